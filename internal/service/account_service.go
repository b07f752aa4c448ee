package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/sma-feedback-api/internal/dto"
	"github.com/noah-isme/sma-feedback-api/internal/models"
	"github.com/noah-isme/sma-feedback-api/internal/repository"
	appErrors "github.com/noah-isme/sma-feedback-api/pkg/errors"
)

// AccountService manages registration, approval and staged profile edits for every account class.
type AccountService struct {
	lifecycle
	validator *validator.Validate
}

// NewAccountService constructs the account service.
func NewAccountService(store collectionStore, validate *validator.Validate, logger *zap.Logger, opts ...LifecycleOption) *AccountService {
	if validate == nil {
		validate = validator.New()
	}
	return &AccountService{lifecycle: newLifecycle(store, logger, opts), validator: validate}
}

// Register creates a student or alumni account awaiting staff approval.
func (s *AccountService) Register(ctx context.Context, req dto.RegisterAccountRequest) (*models.Account, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	var account models.Account
	err = s.store.Atomically(ctx, func(tx *repository.Tx) error {
		taken, err := identityTaken(tx, req.AccountType, req.ID)
		if err != nil {
			return err
		}
		if taken {
			return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("%s %s is already registered", req.AccountType, req.ID))
		}
		course, err := resolveCourse(tx, req.Course)
		if err != nil {
			return err
		}
		account = models.Account{
			Type:           req.AccountType,
			ID:             req.ID,
			DisplayName:    strings.TrimSpace(req.DisplayName),
			Email:          strings.TrimSpace(req.Email),
			Course:         course,
			GraduationYear: req.GraduationYear,
			PasswordHash:   string(hash),
			Status:         models.AccountStatusPending,
			CreatedAt:      s.clock(),
		}
		accounts, err := tx.Accounts(req.AccountType)
		if err != nil {
			return err
		}
		accounts.Put(account)
		registrant := models.Principal{ID: account.ID, AccountType: account.Type}
		return s.appendAudit(tx, registrant, models.AuditActionAccountRegister, string(account.Type), account.ID, "registered, awaiting approval")
	})
	if err != nil {
		return nil, err
	}
	s.recordTransition("account", "register")
	public := account.Public()
	return &public, nil
}

// CreateStaff creates an approved staff account. Admin only.
func (s *AccountService) CreateStaff(ctx context.Context, principal models.Principal, req dto.CreateStaffRequest) (*models.Account, error) {
	if err := s.gate.Authorize(principal, ActionManageStaff); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid staff payload")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	var account models.Account
	err = s.store.Atomically(ctx, func(tx *repository.Tx) error {
		account, err = s.insertStaff(tx, principal, req, string(hash))
		return err
	})
	if err != nil {
		return nil, err
	}
	s.recordTransition("account", "create_staff")
	public := account.Public()
	return &public, nil
}

// BootstrapAdmin creates the first Admin when no staff account exists yet. It reports whether one was created.
func (s *AccountService) BootstrapAdmin(ctx context.Context, username, password string) (bool, error) {
	req := dto.CreateStaffRequest{
		Username:    strings.TrimSpace(username),
		DisplayName: strings.TrimSpace(username),
		Role:        models.RoleAdmin,
		Password:    password,
	}
	if err := s.validator.Struct(req); err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bootstrap admin credentials")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	created := false
	err = s.store.Atomically(ctx, func(tx *repository.Tx) error {
		staff, err := tx.Accounts(models.AccountTypeStaff)
		if err != nil {
			return err
		}
		if staff.Len() > 0 {
			return nil
		}
		if _, err := s.insertStaff(tx, models.SystemPrincipal(), req, string(hash)); err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if created {
		s.logger.Info("bootstrap admin created", zap.String("username", req.Username))
	}
	return created, nil
}

func (s *AccountService) insertStaff(tx *repository.Tx, principal models.Principal, req dto.CreateStaffRequest, hash string) (models.Account, error) {
	taken, err := identityTaken(tx, models.AccountTypeStaff, req.Username)
	if err != nil {
		return models.Account{}, err
	}
	if taken {
		return models.Account{}, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("staff %s already exists", req.Username))
	}
	now := s.clock()
	account := models.Account{
		Type:         models.AccountTypeStaff,
		ID:           req.Username,
		DisplayName:  strings.TrimSpace(req.DisplayName),
		Email:        strings.TrimSpace(req.Email),
		PasswordHash: hash,
		Role:         req.Role,
		Status:       models.AccountStatusApproved,
		CreatedAt:    now,
		ApprovedAt:   timePtr(now),
		ApprovedBy:   principal.ID,
	}
	staff, err := tx.Accounts(models.AccountTypeStaff)
	if err != nil {
		return models.Account{}, err
	}
	staff.Put(account)
	details := fmt.Sprintf("created %s %s", account.Role, account.ID)
	if err := s.appendAudit(tx, principal, models.AuditActionStaffCreate, string(account.Type), account.ID, details); err != nil {
		return models.Account{}, err
	}
	return account, nil
}

// Approve moves a pending account to approved.
func (s *AccountService) Approve(ctx context.Context, principal models.Principal, accountType models.AccountType, id string) (*models.Account, error) {
	if err := s.gate.AuthorizeAccount(principal, ActionApproveAccount, accountType); err != nil {
		return nil, err
	}
	var account models.Account
	err := s.store.Atomically(ctx, func(tx *repository.Tx) error {
		accounts, current, err := loadAccount(tx, accountType, id)
		if err != nil {
			return err
		}
		next, err := NextAccountStatus(current.Status, AccountEventApprove)
		if err != nil {
			return err
		}
		now := s.clock()
		current.Status = next
		current.ApprovedAt = timePtr(now)
		current.ApprovedBy = principal.ID
		current.UpdatedAt = timePtr(now)
		accounts.Put(current)
		account = current
		return s.appendAudit(tx, principal, models.AuditActionAccountApprove, string(accountType), current.ID, "account approved")
	})
	if err != nil {
		return nil, err
	}
	s.recordTransition("account", "approve")
	public := account.Public()
	return &public, nil
}

// Reject sends a pending account to the recycle bin with the given reason.
func (s *AccountService) Reject(ctx context.Context, principal models.Principal, accountType models.AccountType, id, reason string) (*models.RecycleBinEntry, error) {
	if err := s.gate.AuthorizeAccount(principal, ActionRejectAccount, accountType); err != nil {
		return nil, err
	}
	var entry models.RecycleBinEntry
	err := s.store.Atomically(ctx, func(tx *repository.Tx) error {
		_, account, err := loadAccount(tx, accountType, id)
		if err != nil {
			return err
		}
		if _, err := NextAccountStatus(account.Status, AccountEventReject); err != nil {
			return err
		}
		entry, err = s.softDeleteAccount(tx, principal, account, reason, models.AuditActionAccountReject)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.recordTransition("account", "reject")
	entry = entryFor(principal, entry)
	return &entry, nil
}

// Delete soft-deletes any current account, destroying its feedback.
func (s *AccountService) Delete(ctx context.Context, principal models.Principal, accountType models.AccountType, id, reason string) (*models.RecycleBinEntry, error) {
	return s.deleteAccount(ctx, principal, accountType, id, reason)
}

// SubmitInfoChange stages a profile edit on an approved student account.
func (s *AccountService) SubmitInfoChange(ctx context.Context, principal models.Principal, studentID string, req dto.InfoChangeRequest) (*models.Account, error) {
	if err := s.gate.AuthorizeOwner(principal, ActionSubmitInfoChange, models.AccountTypeStudent, studentID); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid info change payload")
	}
	if req.Empty() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "at least one field must change")
	}
	var account models.Account
	err := s.store.Atomically(ctx, func(tx *repository.Tx) error {
		accounts, current, err := loadAccount(tx, models.AccountTypeStudent, studentID)
		if err != nil {
			return err
		}
		if _, err := NextAccountStatus(current.Status, AccountEventStageChange); err != nil {
			return err
		}
		changes := &models.PendingChanges{
			DisplayName: trimmedPtr(req.DisplayName),
			Email:       trimmedPtr(req.Email),
			RequestedAt: s.clock(),
		}
		if req.Course != nil {
			course, err := resolveCourse(tx, *req.Course)
			if err != nil {
				return err
			}
			changes.Course = &course
		}
		current.PendingChanges = changes
		accounts.Put(current)
		account = current
		return s.appendAudit(tx, principal, models.AuditActionInfoChangeSubmit, string(current.Type), current.ID, "profile change submitted")
	})
	if err != nil {
		return nil, err
	}
	public := account.Public()
	return &public, nil
}

// ApproveInfoChange applies the staged edit and clears it.
func (s *AccountService) ApproveInfoChange(ctx context.Context, principal models.Principal, studentID string) (*models.Account, error) {
	return s.resolveInfoChange(ctx, principal, studentID, true, "")
}

// RejectInfoChange discards the staged edit.
func (s *AccountService) RejectInfoChange(ctx context.Context, principal models.Principal, studentID, reason string) (*models.Account, error) {
	return s.resolveInfoChange(ctx, principal, studentID, false, reason)
}

func (s *AccountService) resolveInfoChange(ctx context.Context, principal models.Principal, studentID string, approve bool, reason string) (*models.Account, error) {
	if err := s.gate.AuthorizeAccount(principal, ActionReviewInfoChange, models.AccountTypeStudent); err != nil {
		return nil, err
	}
	var account models.Account
	err := s.store.Atomically(ctx, func(tx *repository.Tx) error {
		accounts, current, err := loadAccount(tx, models.AccountTypeStudent, studentID)
		if err != nil {
			return err
		}
		changes := current.PendingChanges
		if changes == nil {
			return appErrors.Clone(appErrors.ErrAlreadyProcessed, "no pending profile changes")
		}
		action := models.AuditActionInfoChangeReject
		details := "profile change rejected"
		if r := normalizeReason(reason); r != "" {
			details += ": " + r
		}
		if approve {
			if changes.DisplayName != nil {
				current.DisplayName = *changes.DisplayName
			}
			if changes.Email != nil {
				current.Email = *changes.Email
			}
			if changes.Course != nil {
				current.Course = *changes.Course
			}
			action = models.AuditActionInfoChangeApprove
			details = "profile change approved"
		}
		current.PendingChanges = nil
		current.UpdatedAt = timePtr(s.clock())
		accounts.Put(current)
		account = current
		return s.appendAudit(tx, principal, action, string(current.Type), current.ID, details)
	})
	if err != nil {
		return nil, err
	}
	public := account.Public()
	return &public, nil
}

// Get returns one account to its owner or to staff.
func (s *AccountService) Get(ctx context.Context, principal models.Principal, accountType models.AccountType, id string) (*models.Account, error) {
	if err := s.gate.AuthorizeOwner(principal, ActionViewAccounts, accountType, id); err != nil {
		return nil, err
	}
	var account models.Account
	err := s.store.View(ctx, func(tx *repository.Tx) error {
		_, current, err := loadAccount(tx, accountType, id)
		account = current
		return err
	})
	if err != nil {
		return nil, err
	}
	public := account.Public()
	return &public, nil
}

// List returns accounts of one class, optionally narrowed to a status.
func (s *AccountService) List(ctx context.Context, principal models.Principal, accountType models.AccountType, status models.AccountStatus) ([]models.Account, error) {
	if err := s.gate.AuthorizeAccount(principal, ActionViewAccounts, accountType); err != nil {
		return nil, err
	}
	result := make([]models.Account, 0)
	err := s.store.View(ctx, func(tx *repository.Tx) error {
		accounts, err := tx.Accounts(accountType)
		if err != nil {
			return err
		}
		for _, account := range accounts.All() {
			if status != "" && account.Status != status {
				continue
			}
			result = append(result, account.Public())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ListPending returns accounts awaiting approval.
func (s *AccountService) ListPending(ctx context.Context, principal models.Principal, accountType models.AccountType) ([]models.Account, error) {
	return s.List(ctx, principal, accountType, models.AccountStatusPending)
}

// resolveCourse maps a course name onto the active course list. Any name is accepted while no course is configured.
func resolveCourse(tx *repository.Tx, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", nil
	}
	cfg, err := tx.Configuration()
	if err != nil {
		return "", err
	}
	courses := cfg.Items(models.ConfigurationKindCourse).Filter(func(item models.ConfigurationItem) bool {
		return item.IsActive
	})
	if len(courses) == 0 {
		return name, nil
	}
	item, ok := cfg.FindActiveByName(models.ConfigurationKindCourse, name)
	if !ok {
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown course %q", name))
	}
	return item.Name, nil
}

func trimmedPtr(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	return &v
}
