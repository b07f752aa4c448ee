package service

import (
	"fmt"
	"strings"

	"github.com/noah-isme/sma-feedback-api/internal/models"
	"github.com/noah-isme/sma-feedback-api/internal/repository"
	appErrors "github.com/noah-isme/sma-feedback-api/pkg/errors"
)

func loadAccount(tx *repository.Tx, accountType models.AccountType, id string) (*repository.Collection[models.Account], models.Account, error) {
	accounts, err := tx.Accounts(accountType)
	if err != nil {
		return nil, models.Account{}, err
	}
	account, ok := accounts.Get(strings.TrimSpace(id))
	if !ok {
		return accounts, models.Account{}, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("%s %s not found", accountType, id))
	}
	return accounts, account, nil
}

func loadFeedback(tx *repository.Tx, id string) (*repository.Collection[models.Feedback], models.Feedback, error) {
	feedbacks, err := tx.Feedbacks()
	if err != nil {
		return nil, models.Feedback{}, err
	}
	feedback, ok := feedbacks.Get(strings.TrimSpace(id))
	if !ok {
		return feedbacks, models.Feedback{}, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("feedback %s not found", id))
	}
	return feedbacks, feedback, nil
}

// revokeSessions forces every session of the account out.
func revokeSessions(tx *repository.Tx, accountType models.AccountType, id string) (int, error) {
	sessions, err := tx.Sessions()
	if err != nil {
		return 0, err
	}
	removed := sessions.RemoveWhere(func(s models.Session) bool {
		return s.AccountType == accountType && s.AccountID == id
	})
	return len(removed), nil
}

func (l *lifecycle) appendAudit(tx *repository.Tx, principal models.Principal, action, resource, resourceID, details string) error {
	return tx.AppendAudit(models.AuditLog{
		ActorID:    principal.ID,
		ActorRole:  principal.Role,
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		Details:    details,
		CreatedAt:  l.clock(),
	})
}

// entryFor returns the copy of a recycle bin entry the principal may see.
func entryFor(principal models.Principal, entry models.RecycleBinEntry) models.RecycleBinEntry {
	entry = entry.Public()
	if entry.Feedback != nil {
		feedback := maskFor(principal, *entry.Feedback)
		entry.Feedback = &feedback
	}
	return entry
}

// identityTaken reports whether id is in use by an active or recycled account of the class.
func identityTaken(tx *repository.Tx, accountType models.AccountType, id string) (bool, error) {
	accounts, err := tx.Accounts(accountType)
	if err != nil {
		return false, err
	}
	if accounts.Has(id) {
		return true, nil
	}
	bin, err := tx.RecycleBin()
	if err != nil {
		return false, err
	}
	_, recycled := bin.FindRecord(models.BucketForAccount(accountType), id)
	return recycled, nil
}
