package models

import "time"

// RecycleKind tags which record a recycle bin entry wraps.
type RecycleKind string

const (
	RecycleKindAccount       RecycleKind = "account"
	RecycleKindFeedback      RecycleKind = "feedback"
	RecycleKindConfiguration RecycleKind = "configuration"
)

// RecycleBucket names a list inside the persisted recycle bin.
type RecycleBucket string

const (
	BucketDeletedStudents  RecycleBucket = "deletedStudents"
	BucketDeletedAlumni    RecycleBucket = "deletedAlumni"
	BucketDeletedStaff     RecycleBucket = "deletedStaff"
	BucketDeletedFeedbacks RecycleBucket = "deletedFeedbacks"
	BucketDeletedConfigs   RecycleBucket = "deletedConfigs"
)

// RecycleBuckets lists every bucket in persisted order.
var RecycleBuckets = []RecycleBucket{
	BucketDeletedStudents,
	BucketDeletedStaff,
	BucketDeletedFeedbacks,
	BucketDeletedConfigs,
	BucketDeletedAlumni,
}

// BucketForAccount maps an account class to its recycle bucket.
func BucketForAccount(accountType AccountType) RecycleBucket {
	switch accountType {
	case AccountTypeAlumni:
		return BucketDeletedAlumni
	case AccountTypeStaff:
		return BucketDeletedStaff
	default:
		return BucketDeletedStudents
	}
}

// DeletionMeta records who removed a record, why, and whether an Admin has confirmed it.
type DeletionMeta struct {
	DeletedByUsername  string     `json:"deletedByUsername"`
	DeletedByRole      Role       `json:"deletedByRole,omitempty"`
	DeletedByModerator bool       `json:"deletedByModerator"`
	AdminReviewed      bool       `json:"adminReviewed"`
	ReviewedBy         string     `json:"reviewedBy,omitempty"`
	ReviewedAt         *time.Time `json:"reviewedAt,omitempty"`
	DeletionDate       time.Time  `json:"deletionDate"`
	DeletionReason     string     `json:"deletionReason"`
	PreviousStatus     string     `json:"previousStatus,omitempty"`
}

// RecycleBinEntry wraps exactly one soft-deleted record together with its deletion metadata.
type RecycleBinEntry struct {
	ID            string             `json:"entryId"`
	Kind          RecycleKind        `json:"kind"`
	Account       *Account           `json:"account,omitempty"`
	Feedback      *Feedback          `json:"feedback,omitempty"`
	Configuration *ConfigurationItem `json:"configuration,omitempty"`
	Meta          DeletionMeta       `json:"meta"`
}

// Key returns the entry identity.
func (e RecycleBinEntry) Key() string {
	return e.ID
}

// Public returns a copy without the wrapped account's credential.
func (e RecycleBinEntry) Public() RecycleBinEntry {
	if e.Account != nil {
		account := e.Account.Public()
		e.Account = &account
	}
	return e
}

// RequiresReview reports whether the entry is locked for everyone but Admins.
func (e RecycleBinEntry) RequiresReview() bool {
	return e.Meta.DeletedByModerator && !e.Meta.AdminReviewed
}

// RecordID returns the identity of the wrapped record.
func (e RecycleBinEntry) RecordID() string {
	switch {
	case e.Account != nil:
		return e.Account.ID
	case e.Feedback != nil:
		return e.Feedback.ID
	case e.Configuration != nil:
		return e.Configuration.ID
	}
	return ""
}

// Bucket returns the list the entry belongs to.
func (e RecycleBinEntry) Bucket() RecycleBucket {
	switch e.Kind {
	case RecycleKindAccount:
		if e.Account != nil {
			return BucketForAccount(e.Account.Type)
		}
	case RecycleKindFeedback:
		return BucketDeletedFeedbacks
	case RecycleKindConfiguration:
		return BucketDeletedConfigs
	}
	return ""
}

// RecycleBin is the persisted shape of the quarantine collection.
type RecycleBin struct {
	DeletedStudents  []RecycleBinEntry `json:"deletedStudents"`
	DeletedStaff     []RecycleBinEntry `json:"deletedStaff"`
	DeletedFeedbacks []RecycleBinEntry `json:"deletedFeedbacks"`
	DeletedConfigs   []RecycleBinEntry `json:"deletedConfigs"`
	DeletedAlumni    []RecycleBinEntry `json:"deletedAlumni"`
}

// RecycleBinFilter narrows recycle bin listings.
type RecycleBinFilter struct {
	Bucket        RecycleBucket
	PendingReview *bool
}
