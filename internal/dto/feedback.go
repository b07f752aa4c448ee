package dto

// SubmitFeedbackRequest is the payload for new feedback.
type SubmitFeedbackRequest struct {
	Topic     string `json:"topic" validate:"required,max=120"`
	Body      string `json:"body" validate:"required,max=4000"`
	Anonymous bool   `json:"anonymous"`
}

// ApproveFeedbackRequest assigns category and roadmap stage at approval time.
type ApproveFeedbackRequest struct {
	Category     string `json:"category" validate:"required"`
	Roadmap      string `json:"roadmap" validate:"required"`
	StaffMessage string `json:"staffMessage" validate:"max=2000"`
}

// UpdateRoadmapRequest moves approved feedback along the roadmap.
type UpdateRoadmapRequest struct {
	Roadmap      string  `json:"roadmap" validate:"required"`
	Category     string  `json:"category"`
	StaffMessage *string `json:"staffMessage" validate:"omitempty,max=2000"`
}
