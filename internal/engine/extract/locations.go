package extract

import "strings"

// Location kinds an event can be attributed to
const (
	LocationMailbox       = "mailbox"
	LocationCourier       = "courier"
	LocationSortingCenter = "sorting_center"
	LocationServicePoint  = "service_point"
	LocationTerminal      = "terminal"
	LocationHub           = "hub"
)

// checked in order; sorting centres before the generic hub words
var locationVocabulary = []struct {
	kind     string
	keywords []string
}{
	{LocationMailbox, []string{"brievenbus", "mailbox", "letterbox"}},
	{LocationServicePoint, []string{"servicepunt", "servicepoint", "service point", "parcelshop", "pakketpunt", "afhaalpunt"}},
	{LocationSortingCenter, []string{"sorteercentrum", "sorting center", "sorting centre", "gesorteerd", "sorted"}},
	{LocationCourier, []string{"bezorger", "koerier", "courier", "driver"}},
	{LocationTerminal, []string{"terminal"}},
	{LocationHub, []string{"hub", "depot", "distributiecentrum", "distribution center"}},
}

// ClassifyLocation maps event text onto the location vocabulary. It returns
// "" when nothing matches.
func ClassifyLocation(text string) string {
	s := strings.ToLower(text)
	for _, loc := range locationVocabulary {
		for _, kw := range loc.keywords {
			if strings.Contains(s, kw) {
				return loc.kind
			}
		}
	}
	return ""
}
