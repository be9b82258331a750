// Package domain defines the core domain models for the health bot.
package domain

// SessionMode represents the per-user conversational mode.
type SessionMode string

const (
	ModeIdle      SessionMode = "idle"
	ModeRecording SessionMode = "recording"
	ModeAdvisor   SessionMode = "advisor"
)

// Valid reports whether m is one of the known modes.
func (m SessionMode) Valid() bool {
	switch m {
	case ModeIdle, ModeRecording, ModeAdvisor:
		return true
	}
	return false
}

// EventType represents the type of an inbound webhook event.
type EventType string

const (
	EventTypeMessage  EventType = "message"
	EventTypeFollow   EventType = "follow"
	EventTypePostback EventType = "postback"
)

// MessageType represents the type of an inbound message payload.
type MessageType string

const (
	MessageTypeText  MessageType = "text"
	MessageTypeImage MessageType = "image"
)

// Category represents a record category.
type Category string

const (
	CategoryWeight   Category = "weight"
	CategoryExercise Category = "exercise"
	CategoryMeal     Category = "meal"
)

// MealSlot represents the time slot of a meal entry.
type MealSlot string

const (
	MealSlotBreakfast MealSlot = "breakfast"
	MealSlotLunch     MealSlot = "lunch"
	MealSlotDinner    MealSlot = "dinner"
	MealSlotSnack     MealSlot = "snack"
)

// ExerciseType represents the kind of an exercise entry.
type ExerciseType string

const (
	ExerciseTypeCardio      ExerciseType = "cardio"
	ExerciseTypeStrength    ExerciseType = "strength"
	ExerciseTypeFlexibility ExerciseType = "flexibility"
	ExerciseTypeSports      ExerciseType = "sports"
	ExerciseTypeDaily       ExerciseType = "daily"
	ExerciseTypeOther       ExerciseType = "other"
)
