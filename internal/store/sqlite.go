package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/kotahealth/healthbot/internal/domain"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	// Keep a single connection to avoid schema/data disappearing across goroutines.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS processed_events (
			key TEXT PRIMARY KEY,
			processed_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			expires_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_processed_events_expiry ON processed_events(expires_at)`,
		`CREATE TABLE IF NOT EXISTS sessions (
			user_id TEXT PRIMARY KEY,
			mode TEXT NOT NULL,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS staged_analyses (
			user_id TEXT PRIMARY KEY,
			payload TEXT NOT NULL,
			original_input TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS meal_entries (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			day TEXT NOT NULL,
			slot TEXT NOT NULL,
			name TEXT NOT NULL,
			calories REAL NOT NULL DEFAULT 0,
			protein REAL NOT NULL DEFAULT 0,
			fat REAL NOT NULL DEFAULT 0,
			carbs REAL NOT NULL DEFAULT 0,
			media_ref TEXT,
			recorded_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_meal_entries_user_day ON meal_entries(user_id, day, recorded_at)`,
		`CREATE TABLE IF NOT EXISTS exercise_entries (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			day TEXT NOT NULL,
			type TEXT NOT NULL,
			name TEXT NOT NULL,
			duration_min REAL NOT NULL DEFAULT 0,
			distance_km REAL NOT NULL DEFAULT 0,
			calories REAL NOT NULL DEFAULT 0,
			media_ref TEXT,
			recorded_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_exercise_entries_user_day ON exercise_entries(user_id, day, recorded_at)`,
		`CREATE TABLE IF NOT EXISTS weight_entries (
			user_id TEXT NOT NULL,
			day TEXT NOT NULL,
			weight_kg REAL NOT NULL,
			recorded_at DATETIME NOT NULL,
			PRIMARY KEY (user_id, day)
		)`,
		`CREATE TABLE IF NOT EXISTS reminder_settings (
			user_id TEXT PRIMARY KEY,
			morning_at TEXT,
			evening_at TEXT,
			tz TEXT NOT NULL DEFAULT 'UTC'
		)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// MarkEventProcessed atomically creates an idempotency marker. Expired
// markers are purged first so a key can be reused after its TTL window.
func (s *SQLiteStore) MarkEventProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM processed_events WHERE expires_at <= ?`, now); err != nil {
		return false, err
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO processed_events (key, processed_at, expires_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO NOTHING`,
		key, now, now.Add(ttl))
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	return affected > 0, nil
}

// GetSessionMode returns the user's mode, defaulting to idle.
func (s *SQLiteStore) GetSessionMode(ctx context.Context, userID string) (domain.SessionMode, error) {
	var mode domain.SessionMode
	err := s.db.QueryRowContext(ctx,
		`SELECT mode FROM sessions WHERE user_id = ?`, userID).Scan(&mode)
	if err == sql.ErrNoRows {
		return domain.ModeIdle, nil
	}
	if err != nil {
		return "", err
	}
	if !mode.Valid() {
		return domain.ModeIdle, nil
	}
	return mode, nil
}

// SetSessionMode upserts the user's mode.
func (s *SQLiteStore) SetSessionMode(ctx context.Context, userID string, mode domain.SessionMode) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (user_id, mode, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET mode = excluded.mode, updated_at = excluded.updated_at`,
		userID, mode, time.Now().UTC())
	return err
}

// PutStagedAnalysis overwrites the user's staging slot (last write wins).
func (s *SQLiteStore) PutStagedAnalysis(ctx context.Context, analysis *domain.StagedAnalysis) error {
	payload, err := domain.EncodeEntries(analysis.Entries)
	if err != nil {
		return fmt.Errorf("failed to encode staged entries: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO staged_analyses (user_id, payload, original_input, created_at) VALUES (?, ?, ?, ?)`,
		analysis.UserID, string(payload), analysis.OriginalInput, analysis.CreatedAt)
	return err
}

// TakeStagedAnalysis reads and deletes the staging slot in one statement,
// so a retried confirmation cannot consume the same analysis twice.
func (s *SQLiteStore) TakeStagedAnalysis(ctx context.Context, userID string) (*domain.StagedAnalysis, error) {
	var (
		payload       string
		originalInput sql.NullString
		createdAt     time.Time
	)
	err := s.db.QueryRowContext(ctx,
		`DELETE FROM staged_analyses WHERE user_id = ? RETURNING payload, original_input, created_at`,
		userID).Scan(&payload, &originalInput, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	entries, err := domain.DecodeEntries(json.RawMessage(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to decode staged entries: %w", err)
	}
	analysis := &domain.StagedAnalysis{
		UserID:    userID,
		Entries:   entries,
		CreatedAt: createdAt,
	}
	if originalInput.Valid {
		analysis.OriginalInput = originalInput.String
	}
	return analysis, nil
}

// CommitEntries appends all entries from one confirmed utterance in a
// single transaction. Weight is an upsert: one measurement per day.
func (s *SQLiteStore) CommitEntries(ctx context.Context, meals []domain.MealEntry, exercises []domain.ExerciseEntry, weight *domain.WeightEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, m := range meals {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO meal_entries (id, user_id, day, slot, name, calories, protein, fat, carbs, media_ref, recorded_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			m.ID, m.UserID, m.Day, m.Slot, m.Name, m.Calories, m.Protein, m.Fat, m.Carbs, nullString(m.MediaRef), m.RecordedAt); err != nil {
			return err
		}
	}
	for _, e := range exercises {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO exercise_entries (id, user_id, day, type, name, duration_min, distance_km, calories, media_ref, recorded_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			e.ID, e.UserID, e.Day, e.Type, e.Name, e.DurationMin, e.DistanceKm, e.Calories, nullString(e.MediaRef), e.RecordedAt); err != nil {
			return err
		}
	}
	if weight != nil {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO weight_entries (user_id, day, weight_kg, recorded_at) VALUES (?, ?, ?, ?)
			 ON CONFLICT(user_id, day) DO UPDATE SET weight_kg = excluded.weight_kg, recorded_at = excluded.recorded_at`,
			weight.UserID, weight.Day, weight.WeightKg, weight.RecordedAt); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetDailyRecord reads one day's bucket.
func (s *SQLiteStore) GetDailyRecord(ctx context.Context, userID, day string) (*domain.DailyRecord, error) {
	rec := &domain.DailyRecord{UserID: userID, Day: day}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, slot, name, calories, protein, fat, carbs, media_ref, recorded_at
		 FROM meal_entries WHERE user_id = ? AND day = ? ORDER BY recorded_at ASC`,
		userID, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		m := domain.MealEntry{UserID: userID, Day: day}
		var mediaRef sql.NullString
		if err := rows.Scan(&m.ID, &m.Slot, &m.Name, &m.Calories, &m.Protein, &m.Fat, &m.Carbs, &mediaRef, &m.RecordedAt); err != nil {
			return nil, err
		}
		if mediaRef.Valid {
			m.MediaRef = mediaRef.String
		}
		rec.Meals = append(rec.Meals, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	exRows, err := s.db.QueryContext(ctx,
		`SELECT id, type, name, duration_min, distance_km, calories, media_ref, recorded_at
		 FROM exercise_entries WHERE user_id = ? AND day = ? ORDER BY recorded_at ASC`,
		userID, day)
	if err != nil {
		return nil, err
	}
	defer exRows.Close()
	for exRows.Next() {
		e := domain.ExerciseEntry{UserID: userID, Day: day}
		var mediaRef sql.NullString
		if err := exRows.Scan(&e.ID, &e.Type, &e.Name, &e.DurationMin, &e.DistanceKm, &e.Calories, &mediaRef, &e.RecordedAt); err != nil {
			return nil, err
		}
		if mediaRef.Valid {
			e.MediaRef = mediaRef.String
		}
		rec.Exercises = append(rec.Exercises, e)
	}
	if err := exRows.Err(); err != nil {
		return nil, err
	}

	var w domain.WeightEntry
	err = s.db.QueryRowContext(ctx,
		`SELECT weight_kg, recorded_at FROM weight_entries WHERE user_id = ? AND day = ?`,
		userID, day).Scan(&w.WeightKg, &w.RecordedAt)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}
	if err == nil {
		w.UserID = userID
		w.Day = day
		rec.Weight = &w
	}

	return rec, nil
}

// GetDailyRecords reads buckets for every day in [from, to] that has data.
func (s *SQLiteStore) GetDailyRecords(ctx context.Context, userID, from, to string) ([]domain.DailyRecord, error) {
	days := map[string]bool{}
	for _, q := range []string{
		`SELECT DISTINCT day FROM meal_entries WHERE user_id = ? AND day BETWEEN ? AND ?`,
		`SELECT DISTINCT day FROM exercise_entries WHERE user_id = ? AND day BETWEEN ? AND ?`,
		`SELECT DISTINCT day FROM weight_entries WHERE user_id = ? AND day BETWEEN ? AND ?`,
	} {
		rows, err := s.db.QueryContext(ctx, q, userID, from, to)
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			var day string
			if err := rows.Scan(&day); err != nil {
				rows.Close()
				return nil, err
			}
			days[day] = true
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()
	}

	sorted := make([]string, 0, len(days))
	for day := range days {
		sorted = append(sorted, day)
	}
	sort.Strings(sorted)

	var records []domain.DailyRecord
	for _, day := range sorted {
		rec, err := s.GetDailyRecord(ctx, userID, day)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, nil
}

// UpsertReminderSettings creates or replaces a user's reminder times.
func (s *SQLiteStore) UpsertReminderSettings(ctx context.Context, settings *domain.ReminderSettings) error {
	tz := settings.TZ
	if tz == "" {
		tz = "UTC"
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO reminder_settings (user_id, morning_at, evening_at, tz) VALUES (?, ?, ?, ?)`,
		settings.UserID, nullString(settings.MorningAt), nullString(settings.EveningAt), tz)
	return err
}

// GetReminderSettings retrieves a user's reminder settings.
func (s *SQLiteStore) GetReminderSettings(ctx context.Context, userID string) (*domain.ReminderSettings, error) {
	var rs domain.ReminderSettings
	var morning, evening sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, morning_at, evening_at, tz FROM reminder_settings WHERE user_id = ?`,
		userID).Scan(&rs.UserID, &morning, &evening, &rs.TZ)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if morning.Valid {
		rs.MorningAt = morning.String
	}
	if evening.Valid {
		rs.EveningAt = evening.String
	}
	return &rs, nil
}

// ListReminderSettings lists all configured reminders.
func (s *SQLiteStore) ListReminderSettings(ctx context.Context) ([]domain.ReminderSettings, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, morning_at, evening_at, tz FROM reminder_settings`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ReminderSettings
	for rows.Next() {
		var rs domain.ReminderSettings
		var morning, evening sql.NullString
		if err := rows.Scan(&rs.UserID, &morning, &evening, &rs.TZ); err != nil {
			return nil, err
		}
		if morning.Valid {
			rs.MorningAt = morning.String
		}
		if evening.Valid {
			rs.EveningAt = evening.String
		}
		out = append(out, rs)
	}
	return out, rows.Err()
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
