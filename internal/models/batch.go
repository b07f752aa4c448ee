package models

// BatchTarget selects which collection a batch operates on.
type BatchTarget string

const (
	BatchTargetFeedback BatchTarget = "feedback"
	BatchTargetStudent  BatchTarget = "student"
	BatchTargetAlumni   BatchTarget = "alumni"
	BatchTargetStaff    BatchTarget = "staff"
)

// BatchOperation is the transition applied to every identifier in a batch.
type BatchOperation string

const (
	BatchOperationApprove BatchOperation = "approve"
	BatchOperationReject  BatchOperation = "reject"
	BatchOperationDelete  BatchOperation = "delete"
)

// BatchRequest applies one operation with uniform parameters to a set of identifiers.
type BatchRequest struct {
	Target       BatchTarget    `json:"target" validate:"required,oneof=feedback student alumni staff"`
	Operation    BatchOperation `json:"operation" validate:"required,oneof=approve reject delete"`
	IDs          []string       `json:"ids" validate:"required,min=1,dive,required"`
	Category     string         `json:"category"`
	Roadmap      string         `json:"roadmap"`
	StaffMessage string         `json:"staffMessage"`
	Reason       string         `json:"reason"`
}

// BatchFailure describes an item that failed for a reason other than absence or prior processing.
type BatchFailure struct {
	ID      string `json:"id"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// BatchResult buckets per-item outcomes.
type BatchResult struct {
	Succeeded        []string       `json:"succeeded"`
	AlreadyProcessed []string       `json:"alreadyProcessed"`
	NotFound         []string       `json:"notFound"`
	Failed           []BatchFailure `json:"failed"`
}

// Total returns the number of distinct identifiers processed.
func (r BatchResult) Total() int {
	return len(r.Succeeded) + len(r.AlreadyProcessed) + len(r.NotFound) + len(r.Failed)
}
