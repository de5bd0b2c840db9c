package models

import "time"

// DeliveryStatus is the canonical delivery state of a shipment
type DeliveryStatus string

const (
	StatusUnknown    DeliveryStatus = "unknown"
	StatusProcessing DeliveryStatus = "processing"
	StatusInTransit  DeliveryStatus = "in_transit"
	StatusDelivered  DeliveryStatus = "delivered"
	StatusNotFound   DeliveryStatus = "not_found"
	StatusError      DeliveryStatus = "error"
)

// IsTerminal reports whether the status will not change on a later lookup
func (s DeliveryStatus) IsTerminal() bool {
	return s == StatusDelivered || s == StatusNotFound
}

// TimelineEvent is one carrier-logged milestone
type TimelineEvent struct {
	Timestamp   time.Time `json:"timestamp"`
	Description string    `json:"description"`
	Location    string    `json:"location,omitempty"`
}

// TrackingResult is the outcome of acquiring one tracking code.
// It is treated as immutable once returned by the orchestrator.
type TrackingResult struct {
	TrackingCode     string          `json:"tracking_code"`
	DeliveryStatus   DeliveryStatus  `json:"delivery_status"`
	HandoffMoment    *time.Time      `json:"handoff_moment,omitempty"`
	DeliveryMoment   *time.Time      `json:"delivery_moment,omitempty"`
	LastUpdate       *time.Time      `json:"last_update,omitempty"`
	TimelineEvents   []TimelineEvent `json:"timeline_events"`
	Duration         string          `json:"duration"`
	DurationDays     *float64        `json:"duration_days,omitempty"`
	DurationPartial  bool            `json:"duration_partial,omitempty"`
	ProcessingTimeMs int64           `json:"processing_time_ms"`
	Source           string          `json:"source,omitempty"`
	Message          string          `json:"message,omitempty"`
	FetchedAt        time.Time       `json:"fetched_at"`
}

// Failed reports whether the acquisition ended in the error state
func (r TrackingResult) Failed() bool {
	return r.DeliveryStatus == StatusError
}

// RawEvent is a timeline entry as extracted, before timestamp normalization.
// At is set when the source already carries an absolute instant.
type RawEvent struct {
	When        string     `json:"when,omitempty"`
	At          *time.Time `json:"at,omitempty"`
	Description string     `json:"description"`
	Location    string     `json:"location,omitempty"`
}

// RawExtraction is what one acquisition strategy produced for a tracking code
type RawExtraction struct {
	StatusText   string     `json:"status_text"`
	Timeline     []RawEvent `json:"timeline"`
	HasValidData bool       `json:"has_valid_data"`
}

// NewRawExtraction builds a RawExtraction and derives HasValidData
func NewRawExtraction(status string, timeline []RawEvent) *RawExtraction {
	return &RawExtraction{
		StatusText:   status,
		Timeline:     timeline,
		HasValidData: status != "" || len(timeline) > 0,
	}
}

// BatchOptions configures a batch run
type BatchOptions struct {
	BatchSize           int
	DelayBetweenBatches time.Duration
	MaxRetries          int
	RetryBackoff        time.Duration
}

// BatchRunSummary aggregates a batch run
type BatchRunSummary struct {
	RunID         string           `json:"run_id"`
	Total         int              `json:"total"`
	Successful    int              `json:"successful"`
	Failed        int              `json:"failed"`
	TotalTimeMs   int64            `json:"total_time_ms"`
	AverageTimeMs int64            `json:"average_time_ms"`
	Results       []TrackingResult `json:"results"`
	StartedAt     time.Time        `json:"started_at"`
	FinishedAt    time.Time        `json:"finished_at"`
}
