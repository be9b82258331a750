package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kotahealth/healthbot/internal/domain"
)

const dayFormat = "2006-01-02"

// fallbackDurationMin is used purely for calorie estimation when the user
// gave no duration; the stored duration stays zero.
const fallbackDurationMin = 30.0

// exerciseKcalPerMin encodes the fixed calorie coefficient per exercise
// type, in kcal per minute.
var exerciseKcalPerMin = map[domain.ExerciseType]float64{
	domain.ExerciseTypeCardio:      8,
	domain.ExerciseTypeStrength:    6,
	domain.ExerciseTypeFlexibility: 3,
	domain.ExerciseTypeSports:      7,
	domain.ExerciseTypeDaily:       4,
	domain.ExerciseTypeOther:       5,
}

// CommitResult holds the normalized records written by one confirmation.
type CommitResult struct {
	Meals     []domain.MealEntry
	Exercises []domain.ExerciseEntry
	Weight    *domain.WeightEntry
}

// commitExtracted normalizes the extracted entries and appends them all to
// the day's ledger in one write. A media failure never blocks the commit.
func (s *Service) commitExtracted(ctx context.Context, userID string, entries []domain.ExtractedEntry, at time.Time) (*CommitResult, error) {
	day := at.Format(dayFormat)
	result := &CommitResult{}

	for _, e := range entries {
		switch e.Category {
		case domain.CategoryMeal:
			meal := domain.MealEntry{
				ID:         uuid.NewString(),
				UserID:     userID,
				Day:        day,
				Slot:       e.Slot,
				Name:       displayName(e.Name, "meal"),
				Calories:   e.Calories,
				Protein:    e.Protein,
				Fat:        e.Fat,
				Carbs:      e.Carbs,
				RecordedAt: at,
			}
			if meal.Slot == "" {
				meal.Slot = domain.MealSlotSnack
			}
			meal.MediaRef = s.uploadMedia(ctx, e.MediaRef, meal.ID)
			result.Meals = append(result.Meals, meal)

		case domain.CategoryExercise:
			exType := e.ExerciseType
			if exType == "" {
				exType = domain.ExerciseTypeOther
			}
			ex := domain.ExerciseEntry{
				ID:          uuid.NewString(),
				UserID:      userID,
				Day:         day,
				Type:        exType,
				Name:        displayName(e.Name, string(exType)),
				DurationMin: e.DurationMin,
				DistanceKm:  e.DistanceKm,
				Calories:    e.Calories,
				RecordedAt:  at,
			}
			if ex.Calories == 0 {
				ex.Calories = estimateExerciseCalories(exType, e.DurationMin)
			}
			ex.MediaRef = s.uploadMedia(ctx, e.MediaRef, ex.ID)
			result.Exercises = append(result.Exercises, ex)

		case domain.CategoryWeight:
			result.Weight = &domain.WeightEntry{
				UserID:     userID,
				Day:        day,
				WeightKg:   e.WeightKg,
				RecordedAt: at,
			}

		default:
			return nil, fmt.Errorf("unknown entry category %q", e.Category)
		}
	}

	if err := s.store.CommitEntries(ctx, result.Meals, result.Exercises, result.Weight); err != nil {
		return nil, err
	}
	return result, nil
}

// estimateExerciseCalories applies the coefficient table. Without a
// duration the fallback duration feeds the estimate only.
func estimateExerciseCalories(exType domain.ExerciseType, durationMin float64) float64 {
	minutes := durationMin
	if minutes <= 0 {
		minutes = fallbackDurationMin
	}
	return exerciseKcalPerMin[exType] * minutes
}

// uploadMedia fetches a photo by message id, recompresses and persists it.
// Any failure degrades to committing without a media reference.
func (s *Service) uploadMedia(ctx context.Context, messageID, entryID string) string {
	if messageID == "" || s.uploader == nil {
		return ""
	}
	data, err := s.messenger.GetContent(ctx, messageID)
	if err != nil {
		log.Printf("media fetch failed for message %s: %v", messageID, err)
		return ""
	}
	return s.uploader.Upload(ctx, entryID, data)
}

func displayName(name, fallback string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return fallback
	}
	return name
}
