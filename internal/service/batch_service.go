package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-feedback-api/internal/dto"
	"github.com/noah-isme/sma-feedback-api/internal/models"
	appErrors "github.com/noah-isme/sma-feedback-api/pkg/errors"
)

type batchFeedbackOperations interface {
	Approve(ctx context.Context, principal models.Principal, id string, req dto.ApproveFeedbackRequest) (*models.Feedback, error)
	Reject(ctx context.Context, principal models.Principal, id, reason string) (*models.RecycleBinEntry, error)
	Delete(ctx context.Context, principal models.Principal, id, reason string) (*models.RecycleBinEntry, error)
}

type batchAccountOperations interface {
	Approve(ctx context.Context, principal models.Principal, accountType models.AccountType, id string) (*models.Account, error)
	Reject(ctx context.Context, principal models.Principal, accountType models.AccountType, id, reason string) (*models.RecycleBinEntry, error)
	Delete(ctx context.Context, principal models.Principal, accountType models.AccountType, id, reason string) (*models.RecycleBinEntry, error)
}

type batchAuditor interface {
	Append(ctx context.Context, principal models.Principal, actionType, details string) error
}

// BatchService applies one operation to many records by running the single-item operation for each id.
// Item failures are collected, never fatal.
type BatchService struct {
	accounts  batchAccountOperations
	feedback  batchFeedbackOperations
	audit     batchAuditor
	gate      *AuthorizationGate
	validator *validator.Validate
	logger    *zap.Logger
	metrics   LifecycleRecorder
}

// BatchServiceOption configures the batch executor.
type BatchServiceOption func(*BatchService)

// WithBatchMetrics attaches an outcome recorder.
func WithBatchMetrics(recorder LifecycleRecorder) BatchServiceOption {
	return func(s *BatchService) {
		if recorder != nil {
			s.metrics = recorder
		}
	}
}

// NewBatchService constructs the batch executor.
func NewBatchService(accounts batchAccountOperations, feedback batchFeedbackOperations, audit batchAuditor, validate *validator.Validate, logger *zap.Logger, opts ...BatchServiceOption) *BatchService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	svc := &BatchService{
		accounts:  accounts,
		feedback:  feedback,
		audit:     audit,
		gate:      NewAuthorizationGate(),
		validator: validate,
		logger:    logger,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Execute runs req.Operation against every distinct id and buckets the outcomes.
func (s *BatchService) Execute(ctx context.Context, principal models.Principal, req models.BatchRequest) (*models.BatchResult, error) {
	if err := s.gate.Authorize(principal, ActionExecuteBatch); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid batch request")
	}
	apply, err := s.operation(req)
	if err != nil {
		return nil, err
	}

	result := &models.BatchResult{
		Succeeded:        []string{},
		AlreadyProcessed: []string{},
		NotFound:         []string{},
		Failed:           []models.BatchFailure{},
	}
	for _, id := range distinctIDs(req.IDs) {
		outcome := "succeeded"
		err := apply(ctx, principal, id)
		switch {
		case err == nil:
			result.Succeeded = append(result.Succeeded, id)
		case errors.Is(err, appErrors.ErrNotFound):
			outcome = "not_found"
			result.NotFound = append(result.NotFound, id)
		case errors.Is(err, appErrors.ErrAlreadyProcessed):
			outcome = "already_processed"
			result.AlreadyProcessed = append(result.AlreadyProcessed, id)
		default:
			outcome = "failed"
			appErr := appErrors.FromError(err)
			result.Failed = append(result.Failed, models.BatchFailure{ID: id, Code: appErr.Code, Message: appErr.Message})
			s.logger.Warn("batch item failed",
				zap.String("target", string(req.Target)),
				zap.String("operation", string(req.Operation)),
				zap.String("id", id),
				zap.Error(err))
		}
		if s.metrics != nil {
			s.metrics.RecordBatchItem(string(req.Operation), outcome)
		}
	}

	if s.audit != nil {
		details := fmt.Sprintf("%s %s: %d succeeded, %d already processed, %d not found, %d failed",
			req.Operation, req.Target, len(result.Succeeded), len(result.AlreadyProcessed), len(result.NotFound), len(result.Failed))
		if err := s.audit.Append(ctx, principal, models.AuditActionBatchExecute, details); err != nil {
			s.logger.Warn("failed to persist batch audit log", zap.Error(err))
		}
	}
	return result, nil
}

type batchItemFunc func(ctx context.Context, principal models.Principal, id string) error

// operation binds the uniform parameters once so every item sees the same inputs.
func (s *BatchService) operation(req models.BatchRequest) (batchItemFunc, error) {
	reason := normalizeReason(req.Reason)
	if (req.Operation == models.BatchOperationReject || req.Operation == models.BatchOperationDelete) && reason == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "reason is required")
	}

	if req.Target == models.BatchTargetFeedback {
		switch req.Operation {
		case models.BatchOperationApprove:
			approval := dto.ApproveFeedbackRequest{Category: req.Category, Roadmap: req.Roadmap, StaffMessage: req.StaffMessage}
			if strings.TrimSpace(approval.Category) == "" || strings.TrimSpace(approval.Roadmap) == "" {
				return nil, appErrors.Clone(appErrors.ErrValidation, "category and roadmap are required")
			}
			return func(ctx context.Context, p models.Principal, id string) error {
				_, err := s.feedback.Approve(ctx, p, id, approval)
				return err
			}, nil
		case models.BatchOperationReject:
			return func(ctx context.Context, p models.Principal, id string) error {
				_, err := s.feedback.Reject(ctx, p, id, reason)
				return err
			}, nil
		case models.BatchOperationDelete:
			return func(ctx context.Context, p models.Principal, id string) error {
				_, err := s.feedback.Delete(ctx, p, id, reason)
				return err
			}, nil
		}
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported batch operation")
	}

	accountType := models.AccountType(req.Target)
	if !accountType.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported batch target")
	}
	switch req.Operation {
	case models.BatchOperationApprove:
		return func(ctx context.Context, p models.Principal, id string) error {
			_, err := s.accounts.Approve(ctx, p, accountType, id)
			return err
		}, nil
	case models.BatchOperationReject:
		return func(ctx context.Context, p models.Principal, id string) error {
			_, err := s.accounts.Reject(ctx, p, accountType, id, reason)
			return err
		}, nil
	case models.BatchOperationDelete:
		return func(ctx context.Context, p models.Principal, id string) error {
			_, err := s.accounts.Delete(ctx, p, accountType, id, reason)
			return err
		}, nil
	}
	return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported batch operation")
}

func distinctIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	result := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	return result
}
