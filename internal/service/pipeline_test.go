package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kotahealth/healthbot/internal/adapter/classifier"
	"github.com/kotahealth/healthbot/internal/adapter/messenger"
	"github.com/kotahealth/healthbot/internal/config"
	"github.com/kotahealth/healthbot/internal/domain"
	"github.com/kotahealth/healthbot/internal/media"
	"github.com/kotahealth/healthbot/internal/store"
	"github.com/kotahealth/healthbot/policy"
)

// fakeMessenger records outbound traffic instead of calling the platform.
type fakeMessenger struct {
	mu      sync.Mutex
	replies [][]messenger.Message
	pushes  [][]messenger.Message
	content []byte
	calls   []string
}

func (f *fakeMessenger) Reply(_ context.Context, _ string, msgs []messenger.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies = append(f.replies, msgs)
	f.calls = append(f.calls, "reply")
	return nil
}

func (f *fakeMessenger) Push(_ context.Context, _ string, msgs []messenger.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushes = append(f.pushes, msgs)
	f.calls = append(f.calls, "push")
	return nil
}

func (f *fakeMessenger) ShowLoading(_ context.Context, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "loading")
	return nil
}

func (f *fakeMessenger) GetContent(_ context.Context, _ string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "content")
	return f.content, nil
}

func (f *fakeMessenger) callOrder() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeMessenger) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.replies) + len(f.pushes)
}

func (f *fakeMessenger) lastSent(t *testing.T) messenger.Message {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.pushes) > 0 {
		msgs := f.pushes[len(f.pushes)-1]
		return msgs[len(msgs)-1]
	}
	if len(f.replies) == 0 {
		t.Fatal("nothing was sent")
	}
	msgs := f.replies[len(f.replies)-1]
	return msgs[len(msgs)-1]
}

func newTestService(t *testing.T) (*Service, *fakeMessenger, store.Store) {
	t.Helper()
	db, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	gate, err := policy.NewEngine(context.Background(), policy.DefaultPolicy)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	fm := &fakeMessenger{}
	chain, responder := classifier.NewMockChain()
	cfg := &config.Config{EventMarkerTTL: time.Minute, MediaMaxDim: 1024}
	svc := New(db, fm, chain, responder, gate, nil, cfg)
	return svc, fm, db
}

// eventTS keeps all test events on one known day.
var eventTS = time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC).UnixMilli()

const testDay = "2026-09-01"

func textEvent(userID, msgID, text string) domain.InboundEvent {
	return domain.InboundEvent{
		Type:       domain.EventTypeMessage,
		Timestamp:  eventTS,
		ReplyToken: "rt-" + msgID,
		Source:     domain.EventSource{Type: "user", UserID: userID},
		Message:    &domain.MessagePayload{ID: msgID, Type: domain.MessageTypeText, Text: text},
	}
}

func postbackEvent(userID, eventID, data string) domain.InboundEvent {
	return domain.InboundEvent{
		Type:           domain.EventTypePostback,
		WebhookEventID: eventID,
		Timestamp:      eventTS,
		ReplyToken:     "rt-" + eventID,
		Source:         domain.EventSource{Type: "user", UserID: userID},
		Postback:       &domain.PostbackData{Data: data},
	}
}

func handleOne(svc *Service, ev domain.InboundEvent) {
	svc.HandleBatch(context.Background(), &domain.WebhookBatch{Events: []domain.InboundEvent{ev}})
}

func TestDuplicateDeliveryDroppedSilently(t *testing.T) {
	svc, fm, _ := newTestService(t)

	ev := textEvent("u1", "msg-1", "hello there")
	handleOne(svc, ev)
	handleOne(svc, ev)

	if got := fm.sentCount(); got != 1 {
		t.Fatalf("duplicate delivery must produce exactly one response, got %d", got)
	}
}

func TestRecordingRunCommitsExercise(t *testing.T) {
	svc, fm, db := newTestService(t)
	ctx := context.Background()

	if err := db.SetSessionMode(ctx, "u1", domain.ModeRecording); err != nil {
		t.Fatalf("SetSessionMode failed: %v", err)
	}

	handleOne(svc, textEvent("u1", "msg-1", "ran 5 km"))

	rec, err := db.GetDailyRecord(ctx, "u1", testDay)
	if err != nil {
		t.Fatalf("GetDailyRecord failed: %v", err)
	}
	if len(rec.Exercises) != 1 {
		t.Fatalf("expected one exercise, got %+v", rec.Exercises)
	}
	ex := rec.Exercises[0]
	if ex.DistanceKm != 5 {
		t.Fatalf("expected distance 5, got %v", ex.DistanceKm)
	}
	if ex.DurationMin != 0 {
		t.Fatalf("stored duration must stay 0 without user input, got %v", ex.DurationMin)
	}
	// Cardio coefficient times the fallback estimation duration.
	if ex.Calories != 240 {
		t.Fatalf("expected 240 kcal estimate, got %v", ex.Calories)
	}

	// The confirmation card shows the calorie estimate.
	msg := fm.lastSent(t)
	if msg.Card == nil {
		t.Fatalf("expected a card reply, got %+v", msg)
	}
	found := false
	for _, m := range msg.Card.Metrics {
		if m.Label == "Burned" && m.Value == "240 kcal" {
			found = true
		}
	}
	if !found {
		t.Fatalf("burned calories missing from card: %+v", msg.Card.Metrics)
	}
}

func TestWeightOutranksExercise(t *testing.T) {
	svc, _, db := newTestService(t)
	ctx := context.Background()

	if err := db.SetSessionMode(ctx, "u1", domain.ModeRecording); err != nil {
		t.Fatalf("SetSessionMode failed: %v", err)
	}

	// Mentions both a weigh-in and a run; weight has priority.
	handleOne(svc, textEvent("u1", "msg-1", "weighed 70 kg after my run"))

	rec, err := db.GetDailyRecord(ctx, "u1", testDay)
	if err != nil {
		t.Fatalf("GetDailyRecord failed: %v", err)
	}
	if rec.Weight == nil || rec.Weight.WeightKg != 70 {
		t.Fatalf("expected 70 kg recorded, got %+v", rec.Weight)
	}
	if len(rec.Exercises) != 0 {
		t.Fatalf("lower priority classifier must not also record: %+v", rec.Exercises)
	}
}

func TestUnslottedMealStagesThenConfirms(t *testing.T) {
	svc, fm, db := newTestService(t)
	ctx := context.Background()

	if err := db.SetSessionMode(ctx, "u1", domain.ModeRecording); err != nil {
		t.Fatalf("SetSessionMode failed: %v", err)
	}

	handleOne(svc, textEvent("u1", "msg-1", "ate some oatmeal"))

	// Nothing committed yet, the analysis waits in the staging slot.
	rec, _ := db.GetDailyRecord(ctx, "u1", testDay)
	if len(rec.Meals) != 0 {
		t.Fatalf("meal must not commit before confirmation: %+v", rec.Meals)
	}
	menu := fm.lastSent(t)
	if menu.QuickReply == nil || len(menu.QuickReply.Items) != 5 {
		t.Fatalf("expected the 4 slots plus cancel, got %+v", menu.QuickReply)
	}

	handleOne(svc, postbackEvent("u1", "ev-2", "action=meal_breakfast"))

	rec, _ = db.GetDailyRecord(ctx, "u1", testDay)
	if len(rec.Meals) != 1 {
		t.Fatalf("expected one committed meal, got %+v", rec.Meals)
	}
	if rec.Meals[0].Slot != domain.MealSlotBreakfast {
		t.Fatalf("chosen slot must be applied, got %q", rec.Meals[0].Slot)
	}
}

func TestDoubleConfirmationCommitsOnce(t *testing.T) {
	svc, fm, db := newTestService(t)
	ctx := context.Background()

	if err := db.SetSessionMode(ctx, "u1", domain.ModeRecording); err != nil {
		t.Fatalf("SetSessionMode failed: %v", err)
	}
	handleOne(svc, textEvent("u1", "msg-1", "ate some oatmeal"))

	// Two distinct taps on the same menu, each its own webhook event.
	handleOne(svc, postbackEvent("u1", "ev-2", "action=meal_lunch"))
	handleOne(svc, postbackEvent("u1", "ev-3", "action=meal_lunch"))

	rec, _ := db.GetDailyRecord(ctx, "u1", testDay)
	if len(rec.Meals) != 1 {
		t.Fatalf("second tap must find an empty slot, got %d meals", len(rec.Meals))
	}
	last := fm.lastSent(t)
	if last.Text == "" || !strings.Contains(last.Text, "nothing pending") {
		t.Fatalf("second tap should explain the empty slot, got %+v", last)
	}
}

func TestCancelDiscardsStagedAnalysis(t *testing.T) {
	svc, _, db := newTestService(t)
	ctx := context.Background()

	if err := db.SetSessionMode(ctx, "u1", domain.ModeRecording); err != nil {
		t.Fatalf("SetSessionMode failed: %v", err)
	}
	handleOne(svc, textEvent("u1", "msg-1", "ate some oatmeal"))
	handleOne(svc, postbackEvent("u1", "ev-2", "action=cancel_staged"))
	handleOne(svc, postbackEvent("u1", "ev-3", "action=meal_dinner"))

	rec, _ := db.GetDailyRecord(ctx, "u1", testDay)
	if len(rec.Meals) != 0 {
		t.Fatalf("cancelled analysis must never commit, got %+v", rec.Meals)
	}
}

func TestMultiEntryUtteranceCommitsTogether(t *testing.T) {
	svc, _, db := newTestService(t)
	ctx := context.Background()

	if err := db.SetSessionMode(ctx, "u1", domain.ModeRecording); err != nil {
		t.Fatalf("SetSessionMode failed: %v", err)
	}

	handleOne(svc, textEvent("u1", "msg-1", "ate rice for lunch and salad for dinner"))

	rec, _ := db.GetDailyRecord(ctx, "u1", testDay)
	if len(rec.Meals) != 2 {
		t.Fatalf("expected both meals committed, got %+v", rec.Meals)
	}
	if rec.Meals[0].Slot != domain.MealSlotLunch || rec.Meals[1].Slot != domain.MealSlotDinner {
		t.Fatalf("slots lost in commit: %+v", rec.Meals)
	}
}

func TestIdleSmallTalkStaysIdle(t *testing.T) {
	svc, fm, db := newTestService(t)
	ctx := context.Background()

	handleOne(svc, textEvent("u1", "msg-1", "good morning!"))

	mode, _ := db.GetSessionMode(ctx, "u1")
	if mode != domain.ModeIdle {
		t.Fatalf("small talk must not change mode, got %q", mode)
	}
	rec, _ := db.GetDailyRecord(ctx, "u1", testDay)
	if len(rec.Meals)+len(rec.Exercises) != 0 || rec.Weight != nil {
		t.Fatalf("small talk must not record anything: %+v", rec)
	}
	if fm.sentCount() != 1 {
		t.Fatalf("expected one chat reply, got %d", fm.sentCount())
	}
}

func TestIdleConfidentRecordPromotesToRecording(t *testing.T) {
	svc, _, db := newTestService(t)
	ctx := context.Background()

	handleOne(svc, textEvent("u1", "msg-1", "I weighed 70 kg this morning"))

	mode, _ := db.GetSessionMode(ctx, "u1")
	if mode != domain.ModeRecording {
		t.Fatalf("confident record intent should enter recording mode, got %q", mode)
	}
	rec, _ := db.GetDailyRecord(ctx, "u1", testDay)
	if rec.Weight == nil || rec.Weight.WeightKg != 70 {
		t.Fatalf("weight should be committed, got %+v", rec.Weight)
	}
}

func TestModeTransitions(t *testing.T) {
	svc, fm, db := newTestService(t)
	ctx := context.Background()

	handleOne(svc, postbackEvent("u1", "ev-1", "action=start_advice"))
	mode, _ := db.GetSessionMode(ctx, "u1")
	if mode != domain.ModeAdvisor {
		t.Fatalf("expected advisor mode, got %q", mode)
	}

	// In advisor mode every message goes to the advisor persona.
	handleOne(svc, textEvent("u1", "msg-2", "how much protein do I need?"))
	if !strings.HasPrefix(fm.lastSent(t).Text, "Advisor:") {
		t.Fatalf("expected advisor reply, got %+v", fm.lastSent(t))
	}

	// Starting recording leaves advisor chat; modes never stack.
	handleOne(svc, postbackEvent("u1", "ev-3", "action=start_record"))
	mode, _ = db.GetSessionMode(ctx, "u1")
	if mode != domain.ModeRecording {
		t.Fatalf("expected recording mode, got %q", mode)
	}

	// A bare end utterance leaves recording without touching the ledger.
	handleOne(svc, textEvent("u1", "msg-4", "end"))
	mode, _ = db.GetSessionMode(ctx, "u1")
	if mode != domain.ModeIdle {
		t.Fatalf("expected idle after end, got %q", mode)
	}
}

func TestRecordingUnclassifiableAsksToRephrase(t *testing.T) {
	svc, fm, db := newTestService(t)
	ctx := context.Background()

	if err := db.SetSessionMode(ctx, "u1", domain.ModeRecording); err != nil {
		t.Fatalf("SetSessionMode failed: %v", err)
	}

	handleOne(svc, textEvent("u1", "msg-1", "feeling pretty tired now"))

	msg := fm.lastSent(t)
	if !strings.Contains(msg.Text, "rephrase") {
		t.Fatalf("recording mode must ask to rephrase, not chat: %+v", msg)
	}
	rec, _ := db.GetDailyRecord(ctx, "u1", testDay)
	if len(rec.Meals)+len(rec.Exercises) != 0 {
		t.Fatalf("nothing should be recorded: %+v", rec)
	}
}

func TestFollowSendsWelcomeWithMenu(t *testing.T) {
	svc, fm, _ := newTestService(t)

	handleOne(svc, domain.InboundEvent{
		Type:           domain.EventTypeFollow,
		WebhookEventID: "ev-1",
		Timestamp:      eventTS,
		ReplyToken:     "rt-1",
		Source:         domain.EventSource{UserID: "u1"},
	})

	msg := fm.lastSent(t)
	if msg.Card == nil || msg.QuickReply == nil {
		t.Fatalf("welcome should carry a card and a menu: %+v", msg)
	}
}

func TestBatchKeepsPerUserOrder(t *testing.T) {
	svc, _, db := newTestService(t)
	ctx := context.Background()

	if err := db.SetSessionMode(ctx, "u1", domain.ModeRecording); err != nil {
		t.Fatalf("SetSessionMode failed: %v", err)
	}

	// Staging then confirming in one delivery relies on in-order handling.
	batch := &domain.WebhookBatch{Events: []domain.InboundEvent{
		textEvent("u1", "msg-1", "ate some oatmeal"),
		postbackEvent("u1", "ev-2", "action=meal_snack"),
		textEvent("u2", "msg-3", "ran 3 km"),
	}}
	svc.HandleBatch(ctx, batch)

	rec, _ := db.GetDailyRecord(ctx, "u1", testDay)
	if len(rec.Meals) != 1 || rec.Meals[0].Slot != domain.MealSlotSnack {
		t.Fatalf("in-batch confirmation failed: %+v", rec.Meals)
	}
	other, _ := db.GetDailyRecord(ctx, "u2", testDay)
	if len(other.Exercises) != 1 {
		t.Fatalf("second user's event lost: %+v", other)
	}
}

func TestPhotoMealStagesForSlot(t *testing.T) {
	svc, fm, db := newTestService(t)
	ctx := context.Background()

	fm.content = []byte("jpeg-bytes")

	ev := domain.InboundEvent{
		Type:       domain.EventTypeMessage,
		Timestamp:  eventTS,
		ReplyToken: "rt-1",
		Source:     domain.EventSource{UserID: "u1"},
		Message:    &domain.MessagePayload{ID: "img-1", Type: domain.MessageTypeImage},
	}
	handleOne(svc, ev)

	staged, err := db.TakeStagedAnalysis(ctx, "u1")
	if err != nil {
		t.Fatalf("TakeStagedAnalysis failed: %v", err)
	}
	if staged == nil || len(staged.Entries) != 1 {
		t.Fatalf("photo should stage a meal candidate: %+v", staged)
	}
	if staged.Entries[0].MediaRef != "img-1" {
		t.Fatalf("staged entry must reference the photo message: %+v", staged.Entries[0])
	}
	if staged.OriginalInput != "image:img-1" {
		t.Fatalf("unexpected original input %q", staged.OriginalInput)
	}
	if fm.lastSent(t).QuickReply == nil {
		t.Fatal("photo staging should reply with the slot menu")
	}
}

func TestLoadingIndicatorPrecedesPhotoDownload(t *testing.T) {
	svc, fm, _ := newTestService(t)

	fm.content = []byte("jpeg-bytes")
	handleOne(svc, domain.InboundEvent{
		Type:       domain.EventTypeMessage,
		Timestamp:  eventTS,
		ReplyToken: "rt-1",
		Source:     domain.EventSource{UserID: "u1"},
		Message:    &domain.MessagePayload{ID: "img-1", Type: domain.MessageTypeImage},
	})

	calls := fm.callOrder()
	loadingAt, contentAt := -1, -1
	for i, c := range calls {
		switch c {
		case "loading":
			if loadingAt == -1 {
				loadingAt = i
			}
		case "content":
			if contentAt == -1 {
				contentAt = i
			}
		}
	}
	if loadingAt == -1 || contentAt == -1 {
		t.Fatalf("expected loading and content calls, got %v", calls)
	}
	if loadingAt > contentAt {
		t.Fatalf("indicator must start before the photo download, got %v", calls)
	}
}

// slottedPhotoClassifier commits a photo directly, without staging.
type slottedPhotoClassifier struct{}

func (slottedPhotoClassifier) Category() domain.Category { return domain.CategoryMeal }

func (slottedPhotoClassifier) Classify(_ context.Context, in classifier.Input) (*domain.Judgment, error) {
	if in.ImageDataURL == "" {
		return &domain.Judgment{}, nil
	}
	return &domain.Judgment{
		Match:      true,
		Confidence: 0.9,
		Entries: []domain.ExtractedEntry{
			{Category: domain.CategoryMeal, Slot: domain.MealSlotLunch, Name: "bento", Calories: 600},
		},
	}, nil
}

func TestPhotoDirectCommitKeepsMediaRef(t *testing.T) {
	ctx := context.Background()

	db, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	gate, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	fm := &fakeMessenger{content: []byte("jpeg-bytes")}
	uploader := media.NewUploader(media.NewDiskStore(t.TempDir()), nil, 1024)
	cfg := &config.Config{EventMarkerTTL: time.Minute, MediaMaxDim: 1024}
	svc := New(db, fm, []classifier.Classifier{slottedPhotoClassifier{}}, classifier.MockResponder{}, gate, uploader, cfg)

	handleOne(svc, domain.InboundEvent{
		Type:       domain.EventTypeMessage,
		Timestamp:  eventTS,
		ReplyToken: "rt-1",
		Source:     domain.EventSource{UserID: "u1"},
		Message:    &domain.MessagePayload{ID: "img-1", Type: domain.MessageTypeImage},
	})

	rec, err := db.GetDailyRecord(ctx, "u1", testDay)
	if err != nil {
		t.Fatalf("GetDailyRecord failed: %v", err)
	}
	if len(rec.Meals) != 1 {
		t.Fatalf("expected a directly committed meal, got %+v", rec.Meals)
	}
	if rec.Meals[0].MediaRef == "" {
		t.Fatal("directly committed photo must keep its media reference")
	}
	if !strings.HasSuffix(rec.Meals[0].MediaRef, ".jpg") {
		t.Fatalf("unexpected media reference %q", rec.Meals[0].MediaRef)
	}
}
