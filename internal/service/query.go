package service

import (
	"context"
	"fmt"

	"github.com/kotahealth/healthbot/internal/adapter/messenger"
	"github.com/kotahealth/healthbot/internal/domain"
)

// GetDailyRecord reads one day's ledger bucket for the dashboard.
func (s *Service) GetDailyRecord(ctx context.Context, userID, day string) (*domain.DailyRecord, error) {
	rec, err := s.store.GetDailyRecord(ctx, userID, day)
	if err != nil {
		return nil, fmt.Errorf("failed to get daily record: %w", err)
	}
	return rec, nil
}

// GetDailyRecords reads the buckets in an inclusive day range.
func (s *Service) GetDailyRecords(ctx context.Context, userID, from, to string) ([]domain.DailyRecord, error) {
	records, err := s.store.GetDailyRecords(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to get daily records: %w", err)
	}
	return records, nil
}

// SetReminders stores a user's reminder times.
func (s *Service) SetReminders(ctx context.Context, settings *domain.ReminderSettings) error {
	if err := s.store.UpsertReminderSettings(ctx, settings); err != nil {
		return fmt.Errorf("failed to save reminder settings: %w", err)
	}
	return nil
}

// GetReminders returns a user's reminder times, nil when unset.
func (s *Service) GetReminders(ctx context.Context, userID string) (*domain.ReminderSettings, error) {
	settings, err := s.store.GetReminderSettings(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get reminder settings: %w", err)
	}
	return settings, nil
}

// ListReminders lists all configured reminders for the scheduler.
func (s *Service) ListReminders(ctx context.Context) ([]domain.ReminderSettings, error) {
	settings, err := s.store.ListReminderSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list reminder settings: %w", err)
	}
	return settings, nil
}

// PushReminder pushes a morning or evening record prompt to the user.
func (s *Service) PushReminder(ctx context.Context, userID, period string) error {
	return s.messenger.Push(ctx, userID, []messenger.Message{reminderMessage(period)})
}
