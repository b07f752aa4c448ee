package service

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-feedback-api/internal/models"
	"github.com/noah-isme/sma-feedback-api/internal/repository"
	appErrors "github.com/noah-isme/sma-feedback-api/pkg/errors"
)

const (
	defaultAuditPageSize = 50
	maxAuditPageSize     = 200
)

// AuditService appends to and reads the action log. Records are never edited once written.
type AuditService struct {
	lifecycle
}

// NewAuditService constructs the audit logger.
func NewAuditService(store collectionStore, logger *zap.Logger, opts ...LifecycleOption) *AuditService {
	return &AuditService{lifecycle: newLifecycle(store, logger, opts)}
}

// Append records an action outside any other mutation.
func (s *AuditService) Append(ctx context.Context, principal models.Principal, actionType, details string) error {
	if strings.TrimSpace(actionType) == "" {
		return appErrors.Clone(appErrors.ErrValidation, "action type is required")
	}
	return s.store.Atomically(ctx, func(tx *repository.Tx) error {
		return tx.AppendAudit(models.AuditLog{
			ActorID:   principal.ID,
			ActorRole: principal.Role,
			Action:    actionType,
			Details:   details,
			CreatedAt: s.clock(),
		})
	})
}

// List returns a page of the action log, newest first. Admin only.
func (s *AuditService) List(ctx context.Context, principal models.Principal, filter models.AuditFilter) ([]models.AuditLog, *models.Pagination, error) {
	if err := s.gate.Authorize(principal, ActionViewAuditLog); err != nil {
		return nil, nil, err
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = defaultAuditPageSize
	}
	if size > maxAuditPageSize {
		size = maxAuditPageSize
	}

	var matched []models.AuditLog
	err := s.store.View(ctx, func(tx *repository.Tx) error {
		log, err := tx.ActionLog()
		if err != nil {
			return err
		}
		matched = log.Filter(func(entry models.AuditLog) bool {
			if filter.ActorID != "" && entry.ActorID != filter.ActorID {
				return false
			}
			if filter.Action != "" && !strings.EqualFold(entry.Action, filter.Action) {
				return false
			}
			if filter.Resource != "" && entry.Resource != filter.Resource {
				return false
			}
			return true
		})
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	start := (page - 1) * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}
	return matched[start:end], &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}
