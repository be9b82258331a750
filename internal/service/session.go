package service

import (
	"context"
	"strings"

	"github.com/kotahealth/healthbot/internal/domain"
)

// Session mode is a single upserted row per user, so transitions always
// yield exactly one mode: entering advisor chat exits whatever mode was
// active, and entering recording implicitly leaves advisor chat.

func (s *Service) enterRecording(ctx context.Context, userID string) error {
	return s.store.SetSessionMode(ctx, userID, domain.ModeRecording)
}

func (s *Service) enterAdvisor(ctx context.Context, userID string) error {
	return s.store.SetSessionMode(ctx, userID, domain.ModeAdvisor)
}

func (s *Service) exitToIdle(ctx context.Context, userID string) error {
	return s.store.SetSessionMode(ctx, userID, domain.ModeIdle)
}

var endUtterances = []string{
	"end", "stop", "cancel", "done", "finish", "quit",
	"終了", "おわり", "やめる", "キャンセル",
}

// isEndUtterance reports whether free text is an explicit request to leave
// recording mode.
func isEndUtterance(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	for _, u := range endUtterances {
		if t == u {
			return true
		}
	}
	return false
}

var recordIntentKeywords = []string{
	"record", "log", "track",
	"ate ", "i ate", "eat ", "had breakfast", "had lunch", "had dinner",
	"ran ", "i ran", "walked", "jogged", "swam", "workout", "trained",
	"weighed", "my weight", "kg",
	"記録", "食べた", "走った", "体重",
}

// hasRecordIntent reports whether idle-mode text is explicit enough about
// recording to justify running the classifier chain.
func hasRecordIntent(text string) bool {
	t := strings.ToLower(text)
	for _, k := range recordIntentKeywords {
		if strings.Contains(t, k) {
			return true
		}
	}
	return false
}
