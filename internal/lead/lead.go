// Package lead defines the core types and interfaces for the lead-acquisition
// pipeline: the persisted Lead entity, its status lifecycle, and the narrow
// contracts the crawl and dispatch loops consume.
package lead

import "time"

// Status is the outreach state of a lead.
type Status string

const (
	// StatusNew marks a lead that has been discovered but not yet contacted.
	StatusNew Status = "new"
	// StatusSent marks a lead whose outreach mail was accepted by the transport.
	StatusSent Status = "sent"
	// StatusFailed marks a lead whose outreach attempt failed. The pipeline
	// never re-queues a failed lead; an operator may reset it to new.
	StatusFailed Status = "failed"
)

// Lead is a prospect contact record produced by the crawl pipeline.
// Email is the dedup key: at most one lead exists per distinct address.
type Lead struct {
	ID          string
	CompanyName string
	Email       string
	Phone       string
	Fax         string
	Website     string
	Industry    string
	Source      string
	Status      Status
	SentAt      *time.Time
	SentSubject string
	SnapshotURI string
	CreatedAt   time.Time
}

// SendOutcome records the result of one outreach attempt for persistence.
type SendOutcome struct {
	Status  Status
	SentAt  time.Time
	Subject string
}

// SweepResult summarizes one crawl sweep.
type SweepResult struct {
	Searched int
	Found    int
}

// DispatchResult summarizes one dispatch run.
type DispatchResult struct {
	Sent   int
	Failed int
}
