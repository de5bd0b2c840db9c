package resolve

import (
	"strings"

	"github.com/law-makers/tracktime/pkg/models"
)

// carrier status codes as returned by the structured API
var exactCodes = map[string]models.DeliveryStatus{
	"delivered":   models.StatusDelivered,
	"transit":     models.StatusInTransit,
	"in_transit":  models.StatusInTransit,
	"pre-transit": models.StatusProcessing,
	"processing":  models.StatusProcessing,
	"not_found":   models.StatusNotFound,
}

type labelRule struct {
	status  models.DeliveryStatus
	phrases []string
}

// labelRules are evaluated in order; the first rule with a matching phrase wins.
// Negated and future-tense delivery phrases come first so "niet bezorgd" never
// reads as delivered.
var labelRules = []labelRule{
	{models.StatusInTransit, negatedDelivery},
	{models.StatusNotFound, []string{
		"niet gevonden", "geen zending gevonden", "not found", "no shipment found",
	}},
	{models.StatusDelivered, []string{
		"bezorgd", "afgeleverd", "delivered", "in de brievenbus", "in brievenbus",
		"in mailbox", "bij de buren", "overhandigd", "handed over",
	}},
	{models.StatusInTransit, []string{
		"onderweg", "in transit", "in transport", "gesorteerd", "sorteercentrum",
		"sorted", "aangekomen", "arrived", "vertrokken", "departed",
	}},
	{models.StatusProcessing, []string{
		"verwerkt", "in verwerking", "processed", "processing", "in behandeling",
		"aangemeld", "voorgemeld", "registered", "label created", "ontvangen", "received",
	}},
}

var negatedDelivery = []string{
	"niet bezorgd", "niet afgeleverd", "not delivered", "not yet delivered",
	"wordt bezorgd", "wordt vandaag bezorgd", "wordt afgeleverd",
	"verwachte bezorging", "expected delivery", "out for delivery",
}

// deliveryPhrases mark a timeline event as the delivery itself
var deliveryPhrases = []string{
	"bezorgd", "afgeleverd", "delivered", "brievenbus", "mailbox",
	"overhandigd", "handed to", "handed over", "bij de buren", "neighbour", "neighbor",
}

// MatchLabel maps free status text onto a canonical status
func MatchLabel(text string) (models.DeliveryStatus, bool) {
	s := strings.ToLower(strings.TrimSpace(text))
	if s == "" {
		return "", false
	}
	if status, ok := exactCodes[s]; ok {
		return status, true
	}
	for _, rule := range labelRules {
		for _, p := range rule.phrases {
			if strings.Contains(s, p) {
				return rule.status, true
			}
		}
	}
	return "", false
}

// IsDeliveryEvent reports whether an event description records the delivery
func IsDeliveryEvent(description string) bool {
	s := strings.ToLower(description)
	if containsAny(s, negatedDelivery) {
		return false
	}
	return containsAny(s, deliveryPhrases)
}

func containsAny(s string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
