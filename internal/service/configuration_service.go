package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/sma-feedback-api/internal/dto"
	"github.com/noah-isme/sma-feedback-api/internal/models"
	"github.com/noah-isme/sma-feedback-api/internal/repository"
	appErrors "github.com/noah-isme/sma-feedback-api/pkg/errors"
)

// ConfigurationService manages the topic, category, roadmap and course taxonomies. Mutations are Admin only.
type ConfigurationService struct {
	lifecycle
	validator *validator.Validate
}

// NewConfigurationService constructs the configuration service.
func NewConfigurationService(store collectionStore, validate *validator.Validate, logger *zap.Logger, opts ...LifecycleOption) *ConfigurationService {
	if validate == nil {
		validate = validator.New()
	}
	return &ConfigurationService{lifecycle: newLifecycle(store, logger, opts), validator: validate}
}

// List returns the items of one taxonomy. Inactive items are included only on request.
func (s *ConfigurationService) List(ctx context.Context, kind models.ConfigurationKind, includeInactive bool) ([]models.ConfigurationItem, error) {
	if !kind.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown configuration kind")
	}
	result := make([]models.ConfigurationItem, 0)
	err := s.store.View(ctx, func(tx *repository.Tx) error {
		cfg, err := tx.Configuration()
		if err != nil {
			return err
		}
		result = cfg.Items(kind).Filter(func(item models.ConfigurationItem) bool {
			return includeInactive || item.IsActive
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Create adds an item to a taxonomy. Names are unique per taxonomy, ignoring case.
func (s *ConfigurationService) Create(ctx context.Context, principal models.Principal, kind models.ConfigurationKind, req dto.CreateConfigurationRequest) (*models.ConfigurationItem, error) {
	if err := s.gate.Authorize(principal, ActionManageConfiguration); err != nil {
		return nil, err
	}
	if !kind.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown configuration kind")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid configuration payload")
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	var item models.ConfigurationItem
	err := s.store.Atomically(ctx, func(tx *repository.Tx) error {
		cfg, err := tx.Configuration()
		if err != nil {
			return err
		}
		items := cfg.Items(kind)
		if err := ensureUniqueName(items, "", req.Name, kind); err != nil {
			return err
		}
		item = models.ConfigurationItem{
			ID:          fmt.Sprintf("%s-%s", kind, uuid.NewString()),
			Kind:        kind,
			Name:        strings.TrimSpace(req.Name),
			Description: strings.TrimSpace(req.Description),
			IsActive:    active,
			CreatedAt:   s.clock(),
		}
		items.Put(item)
		return s.appendAudit(tx, principal, models.AuditActionConfigurationCreate, string(kind), item.ID,
			fmt.Sprintf("created %s %q", kind, item.Name))
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// Update edits an item in place.
func (s *ConfigurationService) Update(ctx context.Context, principal models.Principal, id string, req dto.UpdateConfigurationRequest) (*models.ConfigurationItem, error) {
	if err := s.gate.Authorize(principal, ActionManageConfiguration); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid configuration payload")
	}
	var item models.ConfigurationItem
	err := s.store.Atomically(ctx, func(tx *repository.Tx) error {
		cfg, err := tx.Configuration()
		if err != nil {
			return err
		}
		current, ok := cfg.Find(id)
		if !ok {
			return appErrors.Clone(appErrors.ErrNotFound, "configuration item not found")
		}
		items := cfg.Items(current.Kind)
		if req.Name != nil {
			if err := ensureUniqueName(items, current.ID, *req.Name, current.Kind); err != nil {
				return err
			}
			current.Name = strings.TrimSpace(*req.Name)
		}
		if req.Description != nil {
			current.Description = strings.TrimSpace(*req.Description)
		}
		if req.IsActive != nil {
			current.IsActive = *req.IsActive
		}
		current.UpdatedAt = timePtr(s.clock())
		items.Put(current)
		item = current
		return s.appendAudit(tx, principal, models.AuditActionConfigurationUpdate, string(current.Kind), current.ID,
			fmt.Sprintf("updated %s %q", current.Kind, current.Name))
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// Delete moves an item into the recycle bin.
func (s *ConfigurationService) Delete(ctx context.Context, principal models.Principal, id, reason string) (*models.RecycleBinEntry, error) {
	return s.deleteConfiguration(ctx, principal, id, reason)
}

// SetRecoveryPin stores a bcrypt hash of the admin recovery PIN.
func (s *ConfigurationService) SetRecoveryPin(ctx context.Context, principal models.Principal, req dto.RecoveryPinRequest) error {
	if err := s.gate.Authorize(principal, ActionManageConfiguration); err != nil {
		return err
	}
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "pin must be 4 to 12 digits")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Pin), bcrypt.DefaultCost)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash pin")
	}
	return s.store.Atomically(ctx, func(tx *repository.Tx) error {
		cfg, err := tx.Configuration()
		if err != nil {
			return err
		}
		cfg.SetRecoveryPin(string(hash))
		return s.appendAudit(tx, principal, models.AuditActionRecoveryPinUpdate, "configuration", "adminRecoveryPin", "recovery pin updated")
	})
}

// VerifyRecoveryPin checks pin against the stored hash.
func (s *ConfigurationService) VerifyRecoveryPin(ctx context.Context, pin string) (bool, error) {
	var hash string
	err := s.store.View(ctx, func(tx *repository.Tx) error {
		cfg, err := tx.Configuration()
		if err != nil {
			return err
		}
		hash = cfg.RecoveryPin()
		return nil
	})
	if err != nil {
		return false, err
	}
	if hash == "" {
		return false, appErrors.Clone(appErrors.ErrNotFound, "recovery pin is not set")
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pin)) == nil, nil
}

func ensureUniqueName(items *repository.Collection[models.ConfigurationItem], selfID, name string, kind models.ConfigurationKind) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return appErrors.Clone(appErrors.ErrValidation, "name is required")
	}
	for _, existing := range items.All() {
		if existing.ID != selfID && existing.SameName(name) {
			return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("%s %q already exists", kind, name))
		}
	}
	return nil
}
