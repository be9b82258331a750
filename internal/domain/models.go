package domain

import (
	"encoding/json"
	"time"
)

// Session holds the conversational mode for one user. Exactly one mode per
// user at any instant; created lazily as idle and never expires.
type Session struct {
	UserID    string      `json:"user_id"`
	Mode      SessionMode `json:"mode"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// StagedAnalysis is an AI-derived draft held in the user's single staging
// slot until the category is confirmed. A new staged analysis silently
// replaces a prior unconsumed one.
type StagedAnalysis struct {
	UserID        string           `json:"user_id"`
	Entries       []ExtractedEntry `json:"entries"`
	OriginalInput string           `json:"original_input"`
	CreatedAt     time.Time        `json:"created_at"`
}

// ExtractedEntry is one normalized record extracted by a classifier. A
// single utterance may yield several entries.
type ExtractedEntry struct {
	Category Category `json:"category"`

	// Meal fields.
	Slot     MealSlot `json:"slot,omitempty"`
	Name     string   `json:"name,omitempty"`
	Calories float64  `json:"calories,omitempty"`
	Protein  float64  `json:"protein,omitempty"`
	Fat      float64  `json:"fat,omitempty"`
	Carbs    float64  `json:"carbs,omitempty"`

	// Exercise fields.
	ExerciseType ExerciseType `json:"exercise_type,omitempty"`
	DurationMin  float64      `json:"duration_min,omitempty"`
	DistanceKm   float64      `json:"distance_km,omitempty"`

	// Weight fields.
	WeightKg float64 `json:"weight_kg,omitempty"`

	// MediaRef is set when the extraction came from a stored photo.
	MediaRef string `json:"media_ref,omitempty"`
}

// Judgment is the structured verdict of one classifier over one input.
type Judgment struct {
	Match      bool             `json:"match"`
	Confidence float64          `json:"confidence"`
	Entries    []ExtractedEntry `json:"entries,omitempty"`
}

// NeedsSlot reports whether any extracted entry still lacks the explicit
// category detail (meal slot) required before it can be committed.
func (j *Judgment) NeedsSlot() bool {
	for _, e := range j.Entries {
		if e.Category == CategoryMeal && e.Slot == "" {
			return true
		}
	}
	return false
}

// MealEntry is one committed meal in the daily ledger.
type MealEntry struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Day        string    `json:"day"` // YYYY-MM-DD
	Slot       MealSlot  `json:"slot"`
	Name       string    `json:"name"`
	Calories   float64   `json:"calories"`
	Protein    float64   `json:"protein"`
	Fat        float64   `json:"fat"`
	Carbs      float64   `json:"carbs"`
	MediaRef   string    `json:"media_ref,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

// ExerciseEntry is one committed exercise in the daily ledger.
// DurationMin keeps the user-supplied value (zero when absent); the calorie
// estimate uses a fallback duration internally.
type ExerciseEntry struct {
	ID          string       `json:"id"`
	UserID      string       `json:"user_id"`
	Day         string       `json:"day"`
	Type        ExerciseType `json:"type"`
	Name        string       `json:"name"`
	DurationMin float64      `json:"duration_min"`
	DistanceKm  float64      `json:"distance_km,omitempty"`
	Calories    float64      `json:"calories"`
	MediaRef    string       `json:"media_ref,omitempty"`
	RecordedAt  time.Time    `json:"recorded_at"`
}

// WeightEntry is the day's body-weight measurement, at most one per day.
type WeightEntry struct {
	UserID     string    `json:"user_id"`
	Day        string    `json:"day"`
	WeightKg   float64   `json:"weight_kg"`
	RecordedAt time.Time `json:"recorded_at"`
}

// DailyRecord is the per-user per-date ledger bucket read by the dashboard.
type DailyRecord struct {
	UserID    string          `json:"user_id"`
	Day       string          `json:"day"`
	Meals     []MealEntry     `json:"meals"`
	Exercises []ExerciseEntry `json:"exercises"`
	Weight    *WeightEntry    `json:"weight,omitempty"`
}

// ReminderSettings holds a user's opt-in record prompt times.
type ReminderSettings struct {
	UserID    string `json:"user_id"`
	MorningAt string `json:"morning_at,omitempty"` // "HH:MM", empty disables
	EveningAt string `json:"evening_at,omitempty"`
	TZ        string `json:"tz"`
}

// EncodeEntries marshals extracted entries for the staging slot.
func EncodeEntries(entries []ExtractedEntry) (json.RawMessage, error) {
	return json.Marshal(entries)
}

// DecodeEntries unmarshals a staging slot payload.
func DecodeEntries(raw json.RawMessage) ([]ExtractedEntry, error) {
	var entries []ExtractedEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
