package classifier

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/kotahealth/healthbot/internal/domain"
)

// Mock classifiers give deterministic keyword-driven judgments for tests
// and offline development.

var (
	weightRe   = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*kg`)
	distanceRe = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*km`)
	durationRe = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:min|minutes)`)
)

// MockWeightClassifier matches "NN kg" style weight reports.
type MockWeightClassifier struct{}

func (MockWeightClassifier) Category() domain.Category { return domain.CategoryWeight }

func (MockWeightClassifier) Classify(_ context.Context, in Input) (*domain.Judgment, error) {
	text := strings.ToLower(in.Text)
	m := weightRe.FindStringSubmatch(text)
	if m == nil || !containsAny(text, "weigh", "weight", "scale") {
		return &domain.Judgment{Match: false, Confidence: 0.9}, nil
	}
	kg, _ := strconv.ParseFloat(m[1], 64)
	return &domain.Judgment{
		Match:      true,
		Confidence: 0.95,
		Entries: []domain.ExtractedEntry{
			{Category: domain.CategoryWeight, WeightKg: kg},
		},
	}, nil
}

// MockExerciseClassifier matches common exercise verbs and pulls distance
// and duration out of the text when present.
type MockExerciseClassifier struct{}

func (MockExerciseClassifier) Category() domain.Category { return domain.CategoryExercise }

func (MockExerciseClassifier) Classify(_ context.Context, in Input) (*domain.Judgment, error) {
	text := strings.ToLower(in.Text)
	if !containsAny(text, "ran", "run", "jog", "walk", "swam", "swim", "gym", "workout", "trained", "yoga", "stretch") {
		return &domain.Judgment{Match: false, Confidence: 0.9}, nil
	}

	entry := domain.ExtractedEntry{
		Category:     domain.CategoryExercise,
		ExerciseType: domain.ExerciseTypeCardio,
		Name:         firstWordOf(text, "ran", "run", "jog", "walk", "swam", "swim", "gym", "workout", "trained", "yoga", "stretch"),
	}
	switch {
	case containsAny(text, "gym", "workout", "trained"):
		entry.ExerciseType = domain.ExerciseTypeStrength
	case containsAny(text, "yoga", "stretch"):
		entry.ExerciseType = domain.ExerciseTypeFlexibility
	}
	if m := distanceRe.FindStringSubmatch(text); m != nil {
		entry.DistanceKm, _ = strconv.ParseFloat(m[1], 64)
	}
	if m := durationRe.FindStringSubmatch(text); m != nil {
		entry.DurationMin, _ = strconv.ParseFloat(m[1], 64)
	}

	entries := []domain.ExtractedEntry{entry}
	// "X and Y" yields one entry per distinct activity.
	if strings.Contains(text, " and ") {
		second := strings.SplitN(text, " and ", 2)[1]
		if containsAny(second, "yoga", "stretch") && entry.ExerciseType != domain.ExerciseTypeFlexibility {
			entries = append(entries, domain.ExtractedEntry{
				Category:     domain.CategoryExercise,
				ExerciseType: domain.ExerciseTypeFlexibility,
				Name:         "yoga",
			})
		}
	}

	return &domain.Judgment{Match: true, Confidence: 0.9, Entries: entries}, nil
}

// MockMealClassifier matches food keywords. Entries get a slot only when
// the text names the meal explicitly; "X for breakfast and Y for lunch"
// yields two slotted entries.
type MockMealClassifier struct{}

func (MockMealClassifier) Category() domain.Category { return domain.CategoryMeal }

var mealSlotNames = []string{"breakfast", "lunch", "dinner", "snack"}

func (MockMealClassifier) Classify(_ context.Context, in Input) (*domain.Judgment, error) {
	text := strings.ToLower(in.Text)
	if in.ImageDataURL != "" {
		return &domain.Judgment{
			Match:      true,
			Confidence: 0.85,
			Entries: []domain.ExtractedEntry{
				{Category: domain.CategoryMeal, Name: "photographed meal", Calories: 500, Protein: 20, Fat: 15, Carbs: 60},
			},
		}, nil
	}
	if !containsAny(text, "ate", "eat", "meal", "rice", "salad", "oatmeal", "bread", "pasta", "soup", "curry") {
		return &domain.Judgment{Match: false, Confidence: 0.9}, nil
	}

	var entries []domain.ExtractedEntry
	for _, part := range strings.Split(text, " and ") {
		entry := domain.ExtractedEntry{
			Category: domain.CategoryMeal,
			Name:     strings.TrimSpace(part),
			Calories: 400,
			Protein:  15,
			Fat:      12,
			Carbs:    55,
		}
		for _, slot := range mealSlotNames {
			if strings.Contains(part, slot) {
				entry.Slot = domain.MealSlot(slot)
				break
			}
		}
		entries = append(entries, entry)
	}

	return &domain.Judgment{Match: true, Confidence: 0.9, Entries: entries}, nil
}

// MockResponder echoes canned conversational replies.
type MockResponder struct{}

func (MockResponder) Chat(_ context.Context, text string) (string, error) {
	return "Hello! Send me what you ate, your exercise or your weight and I will record it.", nil
}

func (MockResponder) Advise(_ context.Context, text string) (string, error) {
	return "Advisor: keep your meals balanced and stay active. Ask me anything specific.", nil
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func firstWordOf(s string, words ...string) string {
	best := ""
	bestIdx := -1
	for _, w := range words {
		if i := strings.Index(s, w); i >= 0 && (bestIdx == -1 || i < bestIdx) {
			best, bestIdx = w, i
		}
	}
	if best == "" {
		return "exercise"
	}
	return best
}
