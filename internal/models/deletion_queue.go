package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// TimestampLayout is the persisted format of deletion queue timestamps.
const TimestampLayout = time.RFC3339Nano

// DeletionQueueEntry is a live self-service deletion request. One per (userId, userType).
type DeletionQueueEntry struct {
	UserID                     string      `json:"userId"`
	UserType                   AccountType `json:"userType"`
	DeletionRequestTimestamp   string      `json:"deletionRequestTimestamp"`
	ScheduledDeletionTimestamp string      `json:"scheduledDeletionTimestamp"`
	RequestedBy                string      `json:"requestedBy,omitempty"`
}

// Key returns the (userType, userId) identity of the entry.
func (e DeletionQueueEntry) Key() string {
	return AccountRef(e.UserType, e.UserID)
}

// ScheduledAt parses the scheduled purge time.
func (e DeletionQueueEntry) ScheduledAt() (time.Time, error) {
	raw := strings.TrimSpace(e.ScheduledDeletionTimestamp)
	if raw == "" {
		return time.Time{}, errors.New("scheduled deletion timestamp is empty")
	}
	ts, err := time.Parse(TimestampLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse scheduled deletion timestamp %q: %w", raw, err)
	}
	return ts, nil
}

// FormatTimestamp renders t in the persisted queue format.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}
