package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-feedback-api/internal/dto"
	"github.com/noah-isme/sma-feedback-api/internal/models"
	"github.com/noah-isme/sma-feedback-api/internal/repository"
	appErrors "github.com/noah-isme/sma-feedback-api/pkg/errors"
)

// FeedbackService handles submission, moderation and roadmap tracking of feedback.
type FeedbackService struct {
	lifecycle
	validator *validator.Validate
}

// NewFeedbackService constructs the feedback service.
func NewFeedbackService(store collectionStore, validate *validator.Validate, logger *zap.Logger, opts ...LifecycleOption) *FeedbackService {
	if validate == nil {
		validate = validator.New()
	}
	return &FeedbackService{lifecycle: newLifecycle(store, logger, opts), validator: validate}
}

// Submit records new feedback from an approved account. It starts pending with no category or roadmap.
func (s *FeedbackService) Submit(ctx context.Context, principal models.Principal, req dto.SubmitFeedbackRequest) (*models.Feedback, error) {
	if err := s.gate.AuthorizeOwner(principal, ActionSubmitFeedback, principal.AccountType, principal.ID); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid feedback payload")
	}
	var feedback models.Feedback
	err := s.store.Atomically(ctx, func(tx *repository.Tx) error {
		_, account, err := loadAccount(tx, principal.AccountType, principal.ID)
		if err != nil {
			return err
		}
		if account.Status != models.AccountStatusApproved {
			return appErrors.Clone(appErrors.ErrPermissionDenied, "only approved accounts can submit feedback")
		}
		cfg, err := tx.Configuration()
		if err != nil {
			return err
		}
		topic, ok := cfg.FindActiveByName(models.ConfigurationKindTopic, req.Topic)
		if !ok {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown topic %q", req.Topic))
		}
		feedback = models.Feedback{
			ID:            uuid.NewString(),
			SubmitterType: account.Type,
			SubmitterID:   account.ID,
			Topic:         topic.Name,
			Body:          strings.TrimSpace(req.Body),
			Status:        models.FeedbackStatusPending,
			Anonymous:     req.Anonymous,
			SubmittedAt:   s.clock(),
		}
		feedbacks, err := tx.Feedbacks()
		if err != nil {
			return err
		}
		feedbacks.Put(feedback)
		return s.appendAudit(tx, principal, models.AuditActionFeedbackSubmit, "feedback", feedback.ID, "feedback submitted")
	})
	if err != nil {
		return nil, err
	}
	s.recordTransition("feedback", "submit")
	return &feedback, nil
}

// Approve assigns category and roadmap stage together and publishes pending feedback.
func (s *FeedbackService) Approve(ctx context.Context, principal models.Principal, id string, req dto.ApproveFeedbackRequest) (*models.Feedback, error) {
	if err := s.gate.Authorize(principal, ActionApproveFeedback); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "category and roadmap are required")
	}
	var feedback models.Feedback
	err := s.store.Atomically(ctx, func(tx *repository.Tx) error {
		feedbacks, current, err := loadFeedback(tx, id)
		if err != nil {
			return err
		}
		next, err := NextFeedbackStatus(current.Status, FeedbackEventApprove)
		if err != nil {
			return err
		}
		category, roadmap, err := resolveAssignment(tx, req.Category, req.Roadmap)
		if err != nil {
			return err
		}
		now := s.clock()
		current.Status = next
		current.Category = category
		current.Roadmap = roadmap
		current.StaffMessage = strings.TrimSpace(req.StaffMessage)
		current.ApprovedAt = timePtr(now)
		current.ApprovedBy = principal.ID
		current.UpdatedAt = timePtr(now)
		feedbacks.Put(current)
		feedback = current
		return s.appendAudit(tx, principal, models.AuditActionFeedbackApprove, "feedback", current.ID,
			fmt.Sprintf("approved as %s / %s", category, roadmap))
	})
	if err != nil {
		return nil, err
	}
	s.recordTransition("feedback", "approve")
	return &feedback, nil
}

// Reject sends pending feedback to the recycle bin with the given reason.
func (s *FeedbackService) Reject(ctx context.Context, principal models.Principal, id, reason string) (*models.RecycleBinEntry, error) {
	if err := s.gate.Authorize(principal, ActionRejectFeedback); err != nil {
		return nil, err
	}
	var entry models.RecycleBinEntry
	err := s.store.Atomically(ctx, func(tx *repository.Tx) error {
		_, current, err := loadFeedback(tx, id)
		if err != nil {
			return err
		}
		if _, err := NextFeedbackStatus(current.Status, FeedbackEventReject); err != nil {
			return err
		}
		entry, err = s.softDeleteFeedback(tx, principal, current, reason, models.AuditActionFeedbackReject)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.recordTransition("feedback", "reject")
	entry = entryFor(principal, entry)
	return &entry, nil
}

// UpdateRoadmap moves approved feedback to another roadmap stage, optionally re-categorising it.
func (s *FeedbackService) UpdateRoadmap(ctx context.Context, principal models.Principal, id string, req dto.UpdateRoadmapRequest) (*models.Feedback, error) {
	if err := s.gate.Authorize(principal, ActionUpdateRoadmap); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid roadmap update")
	}
	var feedback models.Feedback
	err := s.store.Atomically(ctx, func(tx *repository.Tx) error {
		feedbacks, current, err := loadFeedback(tx, id)
		if err != nil {
			return err
		}
		if _, err := NextFeedbackStatus(current.Status, FeedbackEventUpdateRoadmap); err != nil {
			return err
		}
		categoryName := req.Category
		if strings.TrimSpace(categoryName) == "" {
			categoryName = current.Category
		}
		category, roadmap, err := resolveAssignment(tx, categoryName, req.Roadmap)
		if err != nil {
			return err
		}
		current.Category = category
		current.Roadmap = roadmap
		if req.StaffMessage != nil {
			current.StaffMessage = strings.TrimSpace(*req.StaffMessage)
		}
		current.UpdatedAt = timePtr(s.clock())
		feedbacks.Put(current)
		feedback = current
		return s.appendAudit(tx, principal, models.AuditActionRoadmapUpdate, "feedback", current.ID,
			fmt.Sprintf("roadmap set to %s", roadmap))
	})
	if err != nil {
		return nil, err
	}
	s.recordTransition("feedback", "update_roadmap")
	return &feedback, nil
}

// Delete soft-deletes feedback in any state.
func (s *FeedbackService) Delete(ctx context.Context, principal models.Principal, id, reason string) (*models.RecycleBinEntry, error) {
	return s.deleteFeedback(ctx, principal, id, reason)
}

// Get returns one feedback item as the principal may see it.
func (s *FeedbackService) Get(ctx context.Context, principal models.Principal, id string) (*models.Feedback, error) {
	var feedback models.Feedback
	err := s.store.View(ctx, func(tx *repository.Tx) error {
		_, current, err := loadFeedback(tx, id)
		if err != nil {
			return err
		}
		if !visibleTo(principal, current) {
			return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("feedback %s not found", id))
		}
		feedback = maskFor(principal, current)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &feedback, nil
}

// List returns feedback visible to the principal, newest first. Staff see everything; others see approved
// feedback plus their own submissions. Anonymous submitters are hidden from everyone except Admins and themselves.
func (s *FeedbackService) List(ctx context.Context, principal models.Principal, filter models.FeedbackFilter) ([]models.Feedback, error) {
	result := make([]models.Feedback, 0)
	err := s.store.View(ctx, func(tx *repository.Tx) error {
		feedbacks, err := tx.Feedbacks()
		if err != nil {
			return err
		}
		for _, feedback := range feedbacks.All() {
			if !visibleTo(principal, feedback) {
				continue
			}
			masked := maskFor(principal, feedback)
			if matchesFeedbackFilter(filter, masked) {
				result = append(result, masked)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].SubmittedAt.After(result[j].SubmittedAt)
	})
	return result, nil
}

func visibleTo(principal models.Principal, feedback models.Feedback) bool {
	return principal.IsStaff() ||
		feedback.Status == models.FeedbackStatusApproved ||
		feedback.SubmittedBy(principal.AccountType, principal.ID)
}

func maskFor(principal models.Principal, feedback models.Feedback) models.Feedback {
	if principal.IsAdmin() || feedback.SubmittedBy(principal.AccountType, principal.ID) {
		return feedback
	}
	return feedback.Masked()
}

func matchesFeedbackFilter(filter models.FeedbackFilter, feedback models.Feedback) bool {
	if filter.Status != "" && feedback.Status != filter.Status {
		return false
	}
	if filter.Category != "" && !strings.EqualFold(feedback.Category, filter.Category) {
		return false
	}
	if filter.Roadmap != "" && !strings.EqualFold(feedback.Roadmap, filter.Roadmap) {
		return false
	}
	if filter.SubmitterID != "" && !feedback.SubmittedBy(filter.SubmitterType, filter.SubmitterID) {
		return false
	}
	return true
}

// resolveAssignment maps category and roadmap names onto active taxonomy items, returning their canonical names.
func resolveAssignment(tx *repository.Tx, categoryName, roadmapName string) (string, string, error) {
	cfg, err := tx.Configuration()
	if err != nil {
		return "", "", err
	}
	category, ok := cfg.FindActiveByName(models.ConfigurationKindCategory, categoryName)
	if !ok {
		return "", "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown category %q", categoryName))
	}
	roadmap, ok := cfg.FindActiveByName(models.ConfigurationKindRoadmap, roadmapName)
	if !ok {
		return "", "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown roadmap stage %q", roadmapName))
	}
	return category.Name, roadmap.Name, nil
}
