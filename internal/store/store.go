// Package store provides durable storage for the ingestion pipeline.
package store

import (
	"context"
	"time"

	"github.com/kotahealth/healthbot/internal/domain"
)

// Store is the durable state shared by all handler invocations.
type Store interface {
	// MarkEventProcessed atomically inserts an idempotency marker for the
	// given key. It returns true when the marker was newly created and
	// false when a live marker already exists (duplicate delivery).
	MarkEventProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// GetSessionMode returns the user's current mode, ModeIdle when the
	// user has no session yet.
	GetSessionMode(ctx context.Context, userID string) (domain.SessionMode, error)

	// SetSessionMode sets the user's mode, creating the session lazily.
	SetSessionMode(ctx context.Context, userID string, mode domain.SessionMode) error

	// PutStagedAnalysis stores an analysis in the user's single staging
	// slot, silently replacing any prior unconsumed one.
	PutStagedAnalysis(ctx context.Context, analysis *domain.StagedAnalysis) error

	// TakeStagedAnalysis reads and clears the staging slot in one step.
	// Returns nil when the slot is empty.
	TakeStagedAnalysis(ctx context.Context, userID string) (*domain.StagedAnalysis, error)

	// CommitEntries appends all given entries to the ledger in a single
	// transaction. Entries carry their own user id and day.
	CommitEntries(ctx context.Context, meals []domain.MealEntry, exercises []domain.ExerciseEntry, weight *domain.WeightEntry) error

	// GetDailyRecord reads one day's bucket. Never returns nil; an empty
	// day yields a bucket with no entries.
	GetDailyRecord(ctx context.Context, userID, day string) (*domain.DailyRecord, error)

	// GetDailyRecords reads buckets for the inclusive day range.
	GetDailyRecords(ctx context.Context, userID, from, to string) ([]domain.DailyRecord, error)

	// UpsertReminderSettings creates or replaces a user's reminder times.
	UpsertReminderSettings(ctx context.Context, settings *domain.ReminderSettings) error

	// GetReminderSettings returns nil when the user has no reminders set.
	GetReminderSettings(ctx context.Context, userID string) (*domain.ReminderSettings, error)

	// ListReminderSettings lists all users with reminders configured.
	ListReminderSettings(ctx context.Context) ([]domain.ReminderSettings, error)

	Close() error
}
