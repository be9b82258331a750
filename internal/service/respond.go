package service

import (
	"fmt"

	"github.com/kotahealth/healthbot/internal/adapter/messenger"
	"github.com/kotahealth/healthbot/internal/domain"
)

// Every response that expects a next user action carries an enumerated
// menu, so the user is never left without a valid next input.

func defaultMenu(m messenger.Message) messenger.Message {
	return m.WithMenu(
		"Start recording", "action="+actionStartRecord,
		"AI advice", "action="+actionStartAdvice,
		"Today's summary", "action="+actionTodaySummary,
	)
}

func recordingMenu(m messenger.Message) messenger.Message {
	return m.WithMenu(
		"Today's summary", "action="+actionTodaySummary,
		"End recording", "action="+actionEndRecord,
	)
}

func welcomeMessage() messenger.Message {
	return defaultMenu(messenger.NewCard(messenger.Card{
		Title:    "Welcome to your health diary!",
		Advisory: "Send me what you ate, your exercise or your weight, as text or a photo, and I will keep your daily log.",
	}))
}

func chatMessage(reply string) messenger.Message {
	return defaultMenu(messenger.NewText(reply))
}

func advisorMessage(reply string) messenger.Message {
	return messenger.NewText(reply).WithMenu(
		"End advice", "action="+actionEndAdvice,
		"Start recording", "action="+actionStartRecord,
	)
}

func recordingStartedMessage() messenger.Message {
	return recordingMenu(messenger.NewText(
		"Recording mode is on. Tell me about your meals, exercise or weight and I will log them. Say \"end\" when you are done."))
}

func recordingEndedMessage() messenger.Message {
	return defaultMenu(messenger.NewText("Recording finished. Nice work today!"))
}

func advisorStartedMessage() messenger.Message {
	return messenger.NewCard(messenger.Card{
		Title:    "AI advisor",
		Advisory: "Ask me anything about nutrition, training or your habits. I will answer in detail.",
	}).WithMenu("End advice", "action="+actionEndAdvice)
}

func advisorEndedMessage() messenger.Message {
	return defaultMenu(messenger.NewText("Advisor chat closed."))
}

func rephraseMessage() messenger.Message {
	return recordingMenu(messenger.NewText(
		"I couldn't find a meal, exercise or weight in that. Could you rephrase it?"))
}

func unsupportedMessage() messenger.Message {
	return defaultMenu(messenger.NewText("Sorry, I can't handle that type of message."))
}

func genericErrorMessage() messenger.Message {
	return defaultMenu(messenger.NewText("Something went wrong on my side. Please try again."))
}

func nothingStagedMessage() messenger.Message {
	return defaultMenu(messenger.NewText(
		"I have nothing pending to confirm. Please resend the original message or photo."))
}

func stagedCancelledMessage() messenger.Message {
	return defaultMenu(messenger.NewText("Cancelled. Nothing was recorded."))
}

// slotMenuMessage asks the user to pick the meal slot for a staged
// analysis via a fixed category menu.
func slotMenuMessage(entries []domain.ExtractedEntry) messenger.Message {
	name := "your meal"
	if len(entries) > 0 && entries[0].Name != "" {
		name = entries[0].Name
	}
	return messenger.NewCard(messenger.Card{
		Title:    "Which meal was this?",
		Advisory: fmt.Sprintf("I extracted %s. Pick a slot to save it.", name),
	}).WithMenu(
		"Breakfast", "action="+actionMealBreakfast,
		"Lunch", "action="+actionMealLunch,
		"Dinner", "action="+actionMealDinner,
		"Snack", "action="+actionMealSnack,
		"Cancel", "action="+actionCancelStaged,
	)
}

// committedMessage renders the result card for one confirmed utterance.
func committedMessage(result *CommitResult) messenger.Message {
	var metrics []messenger.Metric
	title := "Recorded!"

	var mealKcal float64
	for _, m := range result.Meals {
		mealKcal += m.Calories
	}
	if len(result.Meals) > 0 {
		metrics = append(metrics,
			messenger.Metric{Label: "Meals", Value: fmt.Sprintf("%d", len(result.Meals))},
			messenger.Metric{Label: "Calories in", Value: fmt.Sprintf("%.0f kcal", mealKcal)},
		)
	}

	var exKcal, exMin float64
	for _, e := range result.Exercises {
		exKcal += e.Calories
		exMin += e.DurationMin
	}
	if len(result.Exercises) > 0 {
		metrics = append(metrics,
			messenger.Metric{Label: "Exercise", Value: fmt.Sprintf("%d", len(result.Exercises))},
			messenger.Metric{Label: "Burned", Value: fmt.Sprintf("%.0f kcal", exKcal)},
			messenger.Metric{Label: "Duration", Value: fmt.Sprintf("%.0f min", exMin)},
		)
	}

	if result.Weight != nil {
		metrics = append(metrics,
			messenger.Metric{Label: "Weight", Value: fmt.Sprintf("%.1f kg", result.Weight.WeightKg)},
		)
	}

	return recordingMenu(messenger.NewCard(messenger.Card{
		Title:   title,
		Metrics: metrics,
	}))
}

// summaryMessage renders the day's totals from the ledger bucket.
func summaryMessage(rec *domain.DailyRecord) messenger.Message {
	var kcalIn, protein float64
	for _, m := range rec.Meals {
		kcalIn += m.Calories
		protein += m.Protein
	}
	var kcalOut, exMin float64
	for _, e := range rec.Exercises {
		kcalOut += e.Calories
		exMin += e.DurationMin
	}

	metrics := []messenger.Metric{
		{Label: "Calories in", Value: fmt.Sprintf("%.0f kcal", kcalIn)},
		{Label: "Protein", Value: fmt.Sprintf("%.0f g", protein)},
		{Label: "Exercise", Value: fmt.Sprintf("%.0f min", exMin)},
		{Label: "Burned", Value: fmt.Sprintf("%.0f kcal", kcalOut)},
	}
	if rec.Weight != nil {
		metrics = append(metrics, messenger.Metric{Label: "Weight", Value: fmt.Sprintf("%.1f kg", rec.Weight.WeightKg)})
	}

	return defaultMenu(messenger.NewCard(messenger.Card{
		Title:   "Today: " + rec.Day,
		Metrics: metrics,
	}))
}

// reminderMessage is pushed by the scheduler.
func reminderMessage(period string) messenger.Message {
	text := "Good morning! Don't forget to record your weight and breakfast."
	if period == "evening" {
		text = "Good evening! How did today go? Record your dinner and any exercise."
	}
	return defaultMenu(messenger.NewText(text))
}
