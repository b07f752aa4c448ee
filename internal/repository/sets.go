package repository

import (
	"github.com/noah-isme/sma-feedback-api/internal/models"
)

// ConfigurationSet holds the taxonomy lists plus the admin recovery PIN.
type ConfigurationSet struct {
	kinds    map[models.ConfigurationKind]*Collection[models.ConfigurationItem]
	pin      string
	pinDirty bool
}

func newConfigurationSet(raw models.Configuration) (*ConfigurationSet, int) {
	lists := map[models.ConfigurationKind][]models.ConfigurationItem{
		models.ConfigurationKindTopic:    raw.Topics,
		models.ConfigurationKindCategory: raw.Categories,
		models.ConfigurationKindRoadmap:  raw.Roadmaps,
		models.ConfigurationKindCourse:   raw.Courses,
	}
	set := &ConfigurationSet{
		kinds: make(map[models.ConfigurationKind]*Collection[models.ConfigurationItem], len(lists)),
		pin:   raw.AdminRecoveryPin,
	}
	total := 0
	for kind, items := range lists {
		for i := range items {
			if items[i].Kind == "" {
				items[i].Kind = kind
			}
		}
		c, dropped := newCollection(items)
		total += dropped
		set.kinds[kind] = c
	}
	return set, total
}

// Items returns the list for kind.
func (s *ConfigurationSet) Items(kind models.ConfigurationKind) *Collection[models.ConfigurationItem] {
	return s.kinds[kind]
}

// FindActiveByName returns the active item of kind whose name matches case-insensitively.
func (s *ConfigurationSet) FindActiveByName(kind models.ConfigurationKind, name string) (models.ConfigurationItem, bool) {
	c := s.kinds[kind]
	if c == nil {
		return models.ConfigurationItem{}, false
	}
	for _, item := range c.items {
		if item.IsActive && item.SameName(name) {
			return item, true
		}
	}
	return models.ConfigurationItem{}, false
}

// Find locates an item by identity across all kinds.
func (s *ConfigurationSet) Find(id string) (models.ConfigurationItem, bool) {
	for _, kind := range models.ConfigurationKinds {
		if item, ok := s.kinds[kind].Get(id); ok {
			return item, true
		}
	}
	return models.ConfigurationItem{}, false
}

// RecoveryPin returns the stored PIN hash.
func (s *ConfigurationSet) RecoveryPin() string {
	return s.pin
}

// SetRecoveryPin replaces the stored PIN hash.
func (s *ConfigurationSet) SetRecoveryPin(hash string) {
	s.pin = hash
	s.pinDirty = true
}

// Dirty reports whether any list or the PIN changed.
func (s *ConfigurationSet) Dirty() bool {
	if s.pinDirty {
		return true
	}
	for _, c := range s.kinds {
		if c.Dirty() {
			return true
		}
	}
	return false
}

func (s *ConfigurationSet) snapshot() models.Configuration {
	return models.Configuration{
		Topics:           s.kinds[models.ConfigurationKindTopic].All(),
		Categories:       s.kinds[models.ConfigurationKindCategory].All(),
		Roadmaps:         s.kinds[models.ConfigurationKindRoadmap].All(),
		Courses:          s.kinds[models.ConfigurationKindCourse].All(),
		AdminRecoveryPin: s.pin,
	}
}

// RecycleBinSet holds the recycle bin buckets.
type RecycleBinSet struct {
	buckets map[models.RecycleBucket]*Collection[models.RecycleBinEntry]
}

func newRecycleBinSet(raw models.RecycleBin) (*RecycleBinSet, int) {
	lists := map[models.RecycleBucket][]models.RecycleBinEntry{
		models.BucketDeletedStudents:  raw.DeletedStudents,
		models.BucketDeletedAlumni:    raw.DeletedAlumni,
		models.BucketDeletedStaff:     raw.DeletedStaff,
		models.BucketDeletedFeedbacks: raw.DeletedFeedbacks,
		models.BucketDeletedConfigs:   raw.DeletedConfigs,
	}
	set := &RecycleBinSet{buckets: make(map[models.RecycleBucket]*Collection[models.RecycleBinEntry], len(lists))}
	total := 0
	for bucket, entries := range lists {
		valid := make([]models.RecycleBinEntry, 0, len(entries))
		for _, entry := range entries {
			if entry.RecordID() == "" || entry.Bucket() != bucket {
				total++
				continue
			}
			valid = append(valid, entry)
		}
		c, dropped := newCollection(valid)
		total += dropped
		set.buckets[bucket] = c
	}
	return set, total
}

// Bucket returns the entries of one bucket.
func (s *RecycleBinSet) Bucket(bucket models.RecycleBucket) *Collection[models.RecycleBinEntry] {
	return s.buckets[bucket]
}

// Find locates an entry by identity across all buckets.
func (s *RecycleBinSet) Find(entryID string) (models.RecycleBinEntry, bool) {
	for _, bucket := range models.RecycleBuckets {
		if entry, ok := s.buckets[bucket].Get(entryID); ok {
			return entry, true
		}
	}
	return models.RecycleBinEntry{}, false
}

// FindRecord locates the entry wrapping the record with the given identity inside bucket.
func (s *RecycleBinSet) FindRecord(bucket models.RecycleBucket, recordID string) (models.RecycleBinEntry, bool) {
	c := s.buckets[bucket]
	if c == nil {
		return models.RecycleBinEntry{}, false
	}
	for _, entry := range c.items {
		if entry.RecordID() == recordID {
			return entry, true
		}
	}
	return models.RecycleBinEntry{}, false
}

// Put stores the entry in the bucket matching its record. Entries without a bucket are ignored.
func (s *RecycleBinSet) Put(entry models.RecycleBinEntry) bool {
	c := s.buckets[entry.Bucket()]
	if c == nil {
		return false
	}
	c.Put(entry)
	return true
}

// Remove deletes the entry from whichever bucket holds it.
func (s *RecycleBinSet) Remove(entryID string) (models.RecycleBinEntry, bool) {
	for _, bucket := range models.RecycleBuckets {
		if entry, ok := s.buckets[bucket].Remove(entryID); ok {
			return entry, true
		}
	}
	return models.RecycleBinEntry{}, false
}

// RemoveWhere deletes matching entries from every bucket.
func (s *RecycleBinSet) RemoveWhere(pred func(models.RecycleBinEntry) bool) []models.RecycleBinEntry {
	var removed []models.RecycleBinEntry
	for _, bucket := range models.RecycleBuckets {
		removed = append(removed, s.buckets[bucket].RemoveWhere(pred)...)
	}
	return removed
}

// All returns every entry in bucket order.
func (s *RecycleBinSet) All() []models.RecycleBinEntry {
	result := make([]models.RecycleBinEntry, 0)
	for _, bucket := range models.RecycleBuckets {
		result = append(result, s.buckets[bucket].All()...)
	}
	return result
}

// Dirty reports whether any bucket changed.
func (s *RecycleBinSet) Dirty() bool {
	for _, c := range s.buckets {
		if c.Dirty() {
			return true
		}
	}
	return false
}

func (s *RecycleBinSet) snapshot() models.RecycleBin {
	return models.RecycleBin{
		DeletedStudents:  s.buckets[models.BucketDeletedStudents].All(),
		DeletedStaff:     s.buckets[models.BucketDeletedStaff].All(),
		DeletedFeedbacks: s.buckets[models.BucketDeletedFeedbacks].All(),
		DeletedConfigs:   s.buckets[models.BucketDeletedConfigs].All(),
		DeletedAlumni:    s.buckets[models.BucketDeletedAlumni].All(),
	}
}
