package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/sma-feedback-api/internal/models"
	"github.com/noah-isme/sma-feedback-api/internal/repository"
	appErrors "github.com/noah-isme/sma-feedback-api/pkg/errors"
)

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	AccessTokenSecret string
	AccessTokenExpiry time.Duration
	Issuer            string
}

type sweepTrigger interface {
	Trigger()
}

// AuthService signs principals in and out. Tokens are bound to a stored session so revoking the session
// forces the holder out.
type AuthService struct {
	lifecycle
	validator *validator.Validate
	config    AuthConfig
	sweeper   sweepTrigger
}

// AuthServiceOption configures the auth service.
type AuthServiceOption func(*AuthService)

// WithStaffLoginSweep triggers a background sweep whenever a staff member signs in.
func WithStaffLoginSweep(trigger sweepTrigger) AuthServiceOption {
	return func(s *AuthService) {
		s.sweeper = trigger
	}
}

// WithAuthLifecycle forwards lifecycle options such as the clock.
func WithAuthLifecycle(opts ...LifecycleOption) AuthServiceOption {
	return func(s *AuthService) {
		for _, opt := range opts {
			if opt != nil {
				opt(&s.lifecycle)
			}
		}
	}
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(store collectionStore, validate *validator.Validate, logger *zap.Logger, config AuthConfig, opts ...AuthServiceOption) *AuthService {
	if validate == nil {
		validate = validator.New()
	}
	if config.AccessTokenExpiry <= 0 {
		config.AccessTokenExpiry = 24 * time.Hour
	}
	svc := &AuthService{
		lifecycle: newLifecycle(store, logger, nil),
		validator: validate,
		config:    config,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Login authenticates any account class. An owner signing in during the grace period cancels their pending
// deletion.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	var storedHash string
	err := s.store.View(ctx, func(tx *repository.Tx) error {
		_, account, err := loadAccount(tx, req.AccountType, req.Identifier)
		storedHash = account.PasswordHash
		return err
	})
	if err != nil {
		if errors.Is(err, appErrors.ErrNotFound) {
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid identifier or password")
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(req.Password)); err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid identifier or password")
	}

	var resp models.LoginResponse
	err = s.store.Atomically(ctx, func(tx *repository.Tx) error {
		_, account, err := loadAccount(tx, req.AccountType, req.Identifier)
		if err != nil || account.PasswordHash != storedHash {
			return appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid identifier or password")
		}
		if account.Status == models.AccountStatusPending {
			return appErrors.Clone(appErrors.ErrInactiveAccount, "account is awaiting approval")
		}
		principal := models.Principal{ID: account.ID, Role: account.Role, AccountType: account.Type}
		if account.Status == models.AccountStatusPendingDeletion {
			account, err = s.cancelDeletion(tx, principal, account, "deletion cancelled by owner sign-in")
			if err != nil {
				return err
			}
			resp.DeletionCancelled = true
		}

		now := s.clock()
		sessions, err := tx.Sessions()
		if err != nil {
			return err
		}
		sessions.RemoveWhere(func(existing models.Session) bool {
			return !existing.ExpiresAt.After(now)
		})
		session := models.Session{
			ID:          uuid.NewString(),
			AccountType: account.Type,
			AccountID:   account.ID,
			Role:        account.Role,
			IssuedAt:    now,
			ExpiresAt:   now.Add(s.config.AccessTokenExpiry),
		}
		token, err := s.generateAccessToken(session)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create access token")
		}
		sessions.Put(session)

		resp.AccessToken = token
		resp.ExpiresIn = int64(s.config.AccessTokenExpiry.Seconds())
		resp.IssuedAt = now
		resp.Account = account.Public()
		return s.appendAudit(tx, principal, models.AuditActionLogin, "auth", account.ID, "signed in")
	})
	if err != nil {
		return nil, err
	}
	if resp.DeletionCancelled {
		s.recordTransition("account", "cancel_deletion")
	}
	if resp.Account.Role.Valid() && s.sweeper != nil {
		s.sweeper.Trigger()
	}
	return &resp, nil
}

// Logout revokes the session behind the presented token.
func (s *AuthService) Logout(ctx context.Context, principal models.Principal, sessionID string) error {
	return s.store.Atomically(ctx, func(tx *repository.Tx) error {
		sessions, err := tx.Sessions()
		if err != nil {
			return err
		}
		session, ok := sessions.Get(sessionID)
		if !ok {
			return appErrors.Clone(appErrors.ErrUnauthorized, "session not found")
		}
		if session.AccountID != principal.ID || session.AccountType != principal.AccountType {
			return appErrors.Clone(appErrors.ErrPermissionDenied, "session does not belong to principal")
		}
		sessions.Remove(sessionID)
		return s.appendAudit(tx, principal, models.AuditActionLogout, "auth", principal.ID, "signed out")
	})
}

// ValidateToken parses an access token and checks that its session is still live.
func (s *AuthService) ValidateToken(ctx context.Context, tokenString string) (*models.JWTClaims, error) {
	opts := []jwt.ParserOption{jwt.WithTimeFunc(s.clock)}
	if s.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.config.Issuer))
	}
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.AccessTokenSecret), nil
	}, opts...)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}
	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}

	err = s.store.View(ctx, func(tx *repository.Tx) error {
		sessions, err := tx.Sessions()
		if err != nil {
			return err
		}
		session, ok := sessions.Get(claims.SessionID)
		if !ok || session.AccountID != claims.AccountID || session.AccountType != claims.AccountType {
			return appErrors.Clone(appErrors.ErrUnauthorized, "session has been revoked")
		}
		if !session.ExpiresAt.After(s.clock()) {
			return appErrors.Clone(appErrors.ErrUnauthorized, "session has expired")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claims, nil
}

func (s *AuthService) generateAccessToken(session models.Session) (string, error) {
	claims := &models.JWTClaims{
		SessionID:   session.ID,
		AccountID:   session.AccountID,
		AccountType: session.AccountType,
		Role:        session.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   session.Principal().ID,
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(session.IssuedAt),
			NotBefore: jwt.NewNumericDate(session.IssuedAt),
			ID:        session.ID,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.AccessTokenSecret))
}
