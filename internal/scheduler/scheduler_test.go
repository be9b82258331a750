package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/kotahealth/healthbot/internal/adapter/classifier"
	"github.com/kotahealth/healthbot/internal/adapter/messenger"
	"github.com/kotahealth/healthbot/internal/config"
	"github.com/kotahealth/healthbot/internal/domain"
	"github.com/kotahealth/healthbot/internal/service"
	"github.com/kotahealth/healthbot/internal/store"
	"github.com/kotahealth/healthbot/policy"
)

type countingMessenger struct {
	mu     sync.Mutex
	pushed []string
}

func (c *countingMessenger) Reply(context.Context, string, []messenger.Message) error { return nil }

func (c *countingMessenger) Push(_ context.Context, userID string, _ []messenger.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pushed = append(c.pushed, userID)
	return nil
}

func (c *countingMessenger) ShowLoading(context.Context, string) error { return nil }

func (c *countingMessenger) GetContent(context.Context, string) ([]byte, error) { return nil, nil }

func TestTickPushesDueReminders(t *testing.T) {
	ctx := context.Background()

	db, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer db.Close()

	gate, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	cm := &countingMessenger{}
	chain, responder := classifier.NewMockChain()
	svc := service.New(db, cm, chain, responder, gate, nil, &config.Config{EventMarkerTTL: time.Minute})

	// Stay clear of the minute boundary so Format("15:04") is stable
	// across the test.
	if time.Now().UTC().Second() >= 58 {
		time.Sleep(3 * time.Second)
	}
	now := time.Now().UTC().Format("15:04")

	due := &domain.ReminderSettings{UserID: "u-due", MorningAt: now, TZ: "UTC"}
	later := time.Now().UTC().Add(2 * time.Hour).Format("15:04")
	notDue := &domain.ReminderSettings{UserID: "u-later", MorningAt: later, TZ: "UTC"}
	badTZ := &domain.ReminderSettings{UserID: "u-bad", MorningAt: now, TZ: "Mars/Olympus"}
	for _, s := range []*domain.ReminderSettings{due, notDue, badTZ} {
		if err := db.UpsertReminderSettings(ctx, s); err != nil {
			t.Fatalf("UpsertReminderSettings failed: %v", err)
		}
	}

	tick(ctx, svc)

	if len(cm.pushed) != 1 || cm.pushed[0] != "u-due" {
		t.Fatalf("expected exactly one push to u-due, got %v", cm.pushed)
	}
}
