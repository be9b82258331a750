package domain

import "testing"

func TestDedupeKeyPrecedence(t *testing.T) {
	ev := InboundEvent{
		Type:           EventTypeMessage,
		WebhookEventID: "wh-1",
		Timestamp:      1756700000000,
		Message:        &MessagePayload{ID: "msg-1", Type: MessageTypeText},
	}
	if got := ev.DedupeKey(); got != "msg-1" {
		t.Fatalf("message id should win, got %q", got)
	}

	ev.Message = nil
	if got := ev.DedupeKey(); got != "wh-1" {
		t.Fatalf("webhook event id should be second, got %q", got)
	}

	ev.WebhookEventID = ""
	if got := ev.DedupeKey(); got != "ts:1756700000000" {
		t.Fatalf("timestamp fallback broken, got %q", got)
	}
}

func TestJudgmentNeedsSlot(t *testing.T) {
	j := &Judgment{Match: true, Entries: []ExtractedEntry{
		{Category: CategoryMeal, Slot: MealSlotLunch},
		{Category: CategoryWeight},
	}}
	if j.NeedsSlot() {
		t.Fatal("slotted meal plus weight needs no slot")
	}

	j.Entries = append(j.Entries, ExtractedEntry{Category: CategoryMeal})
	if !j.NeedsSlot() {
		t.Fatal("any unslotted meal entry needs a slot")
	}
}
