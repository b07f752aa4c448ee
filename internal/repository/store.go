package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-feedback-api/internal/models"
	appErrors "github.com/noah-isme/sma-feedback-api/pkg/errors"
)

// Persisted collection keys.
const (
	KeyStudents      = "students"
	KeyAlumni        = "alumni"
	KeyStaff         = "staff"
	KeyFeedbacks     = "feedbacks"
	KeyConfiguration = "configuration"
	KeyRecycleBin    = "recycleBin"
	KeyDeletionQueue = "deletionQueue"
	KeyActionLog     = "actionLog"
	KeySessions      = "sessions"
)

// AccountKey returns the collection key holding accounts of the given class.
func AccountKey(accountType models.AccountType) string {
	switch accountType {
	case models.AccountTypeAlumni:
		return KeyAlumni
	case models.AccountTypeStaff:
		return KeyStaff
	default:
		return KeyStudents
	}
}

// StoreObserver receives backend latency samples.
type StoreObserver interface {
	ObserveStoreOperation(operation string, duration time.Duration)
}

// StoreOption configures the Store.
type StoreOption func(*Store)

// WithStoreObserver attaches a latency observer such as the metrics service.
func WithStoreObserver(observer StoreObserver) StoreOption {
	return func(s *Store) {
		if observer != nil {
			s.observer = observer
		}
	}
}

// Store is the typed adapter over a KeyValueStore. It serialises every operation behind one lock:
// collections are read whole, mutated in memory and written whole before the next operation starts.
type Store struct {
	kv       KeyValueStore
	logger   *zap.Logger
	observer StoreObserver
	mu       sync.Mutex
}

// NewStore wraps a raw backend.
func NewStore(kv KeyValueStore, logger *zap.Logger, opts ...StoreOption) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{kv: kv, logger: logger}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Atomically runs fn against a fresh read of the collections it touches and writes back the ones it changed.
// Nothing is written when fn returns an error.
func (s *Store) Atomically(ctx context.Context, fn func(tx *Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &Tx{ctx: ctx, store: s, writable: true}
	if err := fn(tx); err != nil {
		return err
	}
	return tx.commit()
}

// View runs fn against a read-only snapshot.
func (s *Store) View(ctx context.Context, fn func(tx *Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return fn(&Tx{ctx: ctx, store: s})
}

// load decodes key into dest. Missing or malformed payloads leave dest untouched and report false.
func (s *Store) load(ctx context.Context, key string, dest interface{}) (bool, error) {
	start := time.Now()
	raw, err := s.kv.Read(ctx, key)
	s.observe("read", start)
	if err != nil {
		if errors.Is(err, appErrors.ErrStoreMiss) {
			return false, nil
		}
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read "+key)
	}
	if len(raw) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		s.logger.Warn("discarding malformed collection", zap.String("key", key), zap.Error(err))
		return false, nil
	}
	return true, nil
}

func (s *Store) save(ctx context.Context, key string, value interface{}) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	start := time.Now()
	err = s.kv.Write(ctx, key, payload)
	s.observe("write", start)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to write "+key)
	}
	return nil
}

func (s *Store) observe(operation string, start time.Time) {
	if s.observer != nil {
		s.observer.ObserveStoreOperation(operation, time.Since(start))
	}
}

// loadRecords decodes the array stored under key one record at a time. Records that fail to decode are
// skipped and counted so the rest of the collection survives.
func loadRecords[T any](ctx context.Context, s *Store, key string) ([]T, int, error) {
	var raw []json.RawMessage
	if _, err := s.load(ctx, key, &raw); err != nil {
		return nil, 0, err
	}
	items, skipped := decodeRecords[T](raw)
	return items, skipped, nil
}

func decodeRecords[T any](raw []json.RawMessage) ([]T, int) {
	items := make([]T, 0, len(raw))
	skipped := 0
	for _, record := range raw {
		var item T
		if err := json.Unmarshal(record, &item); err != nil {
			skipped++
			continue
		}
		items = append(items, item)
	}
	return items, skipped
}

type persistedConfiguration struct {
	Topics           []json.RawMessage `json:"topics"`
	Categories       []json.RawMessage `json:"categories"`
	Roadmaps         []json.RawMessage `json:"roadmaps"`
	Courses          []json.RawMessage `json:"courses"`
	AdminRecoveryPin string            `json:"adminRecoveryPin"`
}

func (p persistedConfiguration) decode() (models.Configuration, int) {
	topics, a := decodeRecords[models.ConfigurationItem](p.Topics)
	categories, b := decodeRecords[models.ConfigurationItem](p.Categories)
	roadmaps, c := decodeRecords[models.ConfigurationItem](p.Roadmaps)
	courses, d := decodeRecords[models.ConfigurationItem](p.Courses)
	return models.Configuration{
		Topics:           topics,
		Categories:       categories,
		Roadmaps:         roadmaps,
		Courses:          courses,
		AdminRecoveryPin: p.AdminRecoveryPin,
	}, a + b + c + d
}

type persistedRecycleBin struct {
	DeletedStudents  []json.RawMessage `json:"deletedStudents"`
	DeletedStaff     []json.RawMessage `json:"deletedStaff"`
	DeletedFeedbacks []json.RawMessage `json:"deletedFeedbacks"`
	DeletedConfigs   []json.RawMessage `json:"deletedConfigs"`
	DeletedAlumni    []json.RawMessage `json:"deletedAlumni"`
}

func (p persistedRecycleBin) decode() (models.RecycleBin, int) {
	students, a := decodeRecords[models.RecycleBinEntry](p.DeletedStudents)
	staff, b := decodeRecords[models.RecycleBinEntry](p.DeletedStaff)
	feedbacks, c := decodeRecords[models.RecycleBinEntry](p.DeletedFeedbacks)
	configs, d := decodeRecords[models.RecycleBinEntry](p.DeletedConfigs)
	alumni, e := decodeRecords[models.RecycleBinEntry](p.DeletedAlumni)
	return models.RecycleBin{
		DeletedStudents:  students,
		DeletedStaff:     staff,
		DeletedFeedbacks: feedbacks,
		DeletedConfigs:   configs,
		DeletedAlumni:    alumni,
	}, a + b + c + d + e
}
