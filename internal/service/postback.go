package service

import (
	"context"
	"fmt"
	"net/url"

	"github.com/kotahealth/healthbot/internal/domain"
)

// Postback actions carried in flat key=value payloads.
const (
	actionStartRecord  = "start_record"
	actionEndRecord    = "end_record"
	actionStartAdvice  = "start_advice"
	actionEndAdvice    = "end_advice"
	actionTodaySummary = "today_summary"
	actionCancelStaged = "cancel_staged"

	actionMealBreakfast = "meal_breakfast"
	actionMealLunch     = "meal_lunch"
	actionMealDinner    = "meal_dinner"
	actionMealSnack     = "meal_snack"
)

var slotActions = map[string]domain.MealSlot{
	actionMealBreakfast: domain.MealSlotBreakfast,
	actionMealLunch:     domain.MealSlotLunch,
	actionMealDinner:    domain.MealSlotDinner,
	actionMealSnack:     domain.MealSlotSnack,
}

func (s *Service) handlePostback(ctx context.Context, ev *domain.InboundEvent, out *outbox) error {
	if ev.Postback == nil {
		return fmt.Errorf("postback event without payload")
	}
	values, err := url.ParseQuery(ev.Postback.Data)
	if err != nil {
		return fmt.Errorf("malformed postback data %q: %w", ev.Postback.Data, err)
	}
	action := values.Get("action")
	userID := ev.UserID()

	if slot, ok := slotActions[action]; ok {
		return s.confirmStaged(ctx, ev, slot, out)
	}

	switch action {
	case actionStartRecord:
		// Entering recording also leaves advisor chat; mode is a single
		// value per user.
		if err := s.enterRecording(ctx, userID); err != nil {
			return err
		}
		return out.Send(ctx, recordingStartedMessage())
	case actionEndRecord:
		if err := s.exitToIdle(ctx, userID); err != nil {
			return err
		}
		return out.Send(ctx, recordingEndedMessage())
	case actionStartAdvice:
		if err := s.enterAdvisor(ctx, userID); err != nil {
			return err
		}
		return out.Send(ctx, advisorStartedMessage())
	case actionEndAdvice:
		if err := s.exitToIdle(ctx, userID); err != nil {
			return err
		}
		return out.Send(ctx, advisorEndedMessage())
	case actionTodaySummary:
		return s.sendTodaySummary(ctx, ev, out)
	case actionCancelStaged:
		// Consume and discard whatever is staged; an empty slot is fine.
		if _, err := s.store.TakeStagedAnalysis(ctx, userID); err != nil {
			return err
		}
		return out.Send(ctx, stagedCancelledMessage())
	default:
		return out.Send(ctx, unsupportedMessage())
	}
}

// confirmStaged consumes the staging slot exactly once and commits its
// entries. The take-and-clear happens strictly before any side effect, so
// a double-tapped confirmation finds an empty slot and commits nothing.
func (s *Service) confirmStaged(ctx context.Context, ev *domain.InboundEvent, slot domain.MealSlot, out *outbox) error {
	userID := ev.UserID()

	analysis, err := s.store.TakeStagedAnalysis(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to take staged analysis: %w", err)
	}
	if analysis == nil {
		// Already consumed, overwritten or never staged: not an error,
		// the user just needs to resend the original input.
		return out.Send(ctx, nothingStagedMessage())
	}

	entries := analysis.Entries
	for i := range entries {
		if entries[i].Category == domain.CategoryMeal && entries[i].Slot == "" {
			entries[i].Slot = slot
		}
	}

	result, err := s.commitExtracted(ctx, userID, entries, eventTime(ev))
	if err != nil {
		// Staging is already cleared; this loss is accepted and logged
		// by the caller, the user sees a generic error.
		return fmt.Errorf("failed to commit confirmed records: %w", err)
	}
	return out.Send(ctx, committedMessage(result))
}

func (s *Service) sendTodaySummary(ctx context.Context, ev *domain.InboundEvent, out *outbox) error {
	day := eventTime(ev).Format(dayFormat)
	rec, err := s.store.GetDailyRecord(ctx, ev.UserID(), day)
	if err != nil {
		return fmt.Errorf("failed to read daily record: %w", err)
	}
	return out.Send(ctx, summaryMessage(rec))
}
