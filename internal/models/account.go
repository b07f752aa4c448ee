package models

import (
	"fmt"
	"time"
)

// AccountType discriminates the three account classes, each stored in its own collection.
type AccountType string

const (
	AccountTypeStudent AccountType = "student"
	AccountTypeAlumni  AccountType = "alumni"
	AccountTypeStaff   AccountType = "staff"
)

// AccountTypes lists every account class in a stable order.
var AccountTypes = []AccountType{AccountTypeStudent, AccountTypeAlumni, AccountTypeStaff}

// Valid reports whether t is a known account class.
func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeStudent, AccountTypeAlumni, AccountTypeStaff:
		return true
	}
	return false
}

// AccountStatus is the lifecycle state of an account.
type AccountStatus string

const (
	AccountStatusPending         AccountStatus = "pending"
	AccountStatusApproved        AccountStatus = "approved"
	AccountStatusPendingDeletion AccountStatus = "pending_deletion"
)

// PendingChanges is a staged profile edit awaiting staff approval (students only).
type PendingChanges struct {
	DisplayName *string   `json:"displayName,omitempty"`
	Email       *string   `json:"email,omitempty"`
	Course      *string   `json:"course,omitempty"`
	RequestedAt time.Time `json:"requestedAt"`
}

// Account is a student, alumni or staff record. ID is the studentId, alumniId or username.
type Account struct {
	Type                AccountType     `json:"type"`
	ID                  string          `json:"id"`
	DisplayName         string          `json:"displayName"`
	Email               string          `json:"email,omitempty"`
	Course              string          `json:"course,omitempty"`
	GraduationYear      int             `json:"graduationYear,omitempty"`
	PasswordHash        string          `json:"passwordHash"`
	Role                Role            `json:"role,omitempty"`
	Status              AccountStatus   `json:"status"`
	PendingChanges      *PendingChanges `json:"pendingChanges,omitempty"`
	DeletionRequestedAt *time.Time      `json:"deletionRequestTimestamp,omitempty"`
	ScheduledDeletionAt *time.Time      `json:"scheduledDeletionTimestamp,omitempty"`
	CreatedAt           time.Time       `json:"createdAt"`
	ApprovedAt          *time.Time      `json:"approvedAt,omitempty"`
	ApprovedBy          string          `json:"approvedBy,omitempty"`
	UpdatedAt           *time.Time      `json:"updatedAt,omitempty"`
}

// Key returns the identity used to index the account within its collection.
func (a Account) Key() string {
	return a.ID
}

// Ref returns the cross-collection reference of the account.
func (a Account) Ref() string {
	return AccountRef(a.Type, a.ID)
}

// Public strips the credential before the record leaves the service layer.
func (a Account) Public() Account {
	a.PasswordHash = ""
	return a
}

// AccountRef builds the "type:id" reference used by dependent records and queue entries.
func AccountRef(accountType AccountType, id string) string {
	return fmt.Sprintf("%s:%s", accountType, id)
}
