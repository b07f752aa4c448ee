package models

import "time"

// FeedbackStatus is the moderation state of a feedback item.
type FeedbackStatus string

const (
	FeedbackStatusPending  FeedbackStatus = "pending"
	FeedbackStatusApproved FeedbackStatus = "approved"
)

// Feedback is a submitted item. The submitter is referenced by identity, never embedded.
type Feedback struct {
	ID            string         `json:"feedbackId"`
	SubmitterType AccountType    `json:"submitterType"`
	SubmitterID   string         `json:"submitterId,omitempty"`
	Topic         string         `json:"topic"`
	Category      string         `json:"category,omitempty"`
	Roadmap       string         `json:"roadmap,omitempty"`
	Body          string         `json:"body"`
	Status        FeedbackStatus `json:"status"`
	Anonymous     bool           `json:"anonymous"`
	StaffMessage  string         `json:"staffMessage,omitempty"`
	SubmittedAt   time.Time      `json:"submittedAt"`
	ApprovedAt    *time.Time     `json:"approvedAt,omitempty"`
	ApprovedBy    string         `json:"approvedBy,omitempty"`
	UpdatedAt     *time.Time     `json:"updatedAt,omitempty"`
}

// Key returns the feedback identity.
func (f Feedback) Key() string {
	return f.ID
}

// SubmittedBy reports whether the feedback belongs to the given account.
func (f Feedback) SubmittedBy(accountType AccountType, id string) bool {
	return f.SubmitterType == accountType && f.SubmitterID == id
}

// Masked hides the submitter identity of anonymous feedback.
func (f Feedback) Masked() Feedback {
	if f.Anonymous {
		f.SubmitterID = ""
		f.SubmitterType = ""
	}
	return f
}

// FeedbackFilter narrows feedback listings.
type FeedbackFilter struct {
	Status        FeedbackStatus
	Category      string
	Roadmap       string
	SubmitterType AccountType
	SubmitterID   string
}
