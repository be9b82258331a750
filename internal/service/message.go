package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"time"

	"github.com/kotahealth/healthbot/internal/adapter/classifier"
	"github.com/kotahealth/healthbot/internal/domain"
	"github.com/kotahealth/healthbot/internal/media"
	"github.com/kotahealth/healthbot/policy"
)

const (
	// matchThreshold is the minimum classifier confidence that counts as
	// a match in the priority chain.
	matchThreshold = 0.5
	// highConfidence is the inferred-record-intent bar for promoting an
	// idle session into recording mode.
	highConfidence = 0.8
)

func (s *Service) handleFollow(ctx context.Context, out *outbox) error {
	return out.Send(ctx, welcomeMessage())
}

func (s *Service) handleMessage(ctx context.Context, ev *domain.InboundEvent, out *outbox) error {
	msg := ev.Message
	if msg == nil {
		return fmt.Errorf("message event without payload")
	}
	userID := ev.UserID()

	mode, err := s.store.GetSessionMode(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to read session mode: %w", err)
	}

	switch msg.Type {
	case domain.MessageTypeText:
		if mode == domain.ModeRecording && isEndUtterance(msg.Text) {
			if err := s.exitToIdle(ctx, userID); err != nil {
				return fmt.Errorf("failed to leave recording mode: %w", err)
			}
			return out.Send(ctx, recordingEndedMessage())
		}
	case domain.MessageTypeImage:
		// handled below
	default:
		return out.Send(ctx, unsupportedMessage())
	}

	route, err := s.gate.Route(ctx, policy.Input{
		Mode:           string(mode),
		Kind:           string(msg.Type),
		ExplicitIntent: msg.Type == domain.MessageTypeText && hasRecordIntent(msg.Text),
	})
	if err != nil {
		return fmt.Errorf("mode gate failed: %w", err)
	}

	switch route {
	case policy.RouteClassify:
		return s.classify(ctx, ev, mode, out)
	case policy.RouteAdvisor:
		reply, err := s.responder.Advise(ctx, msg.Text)
		if err != nil {
			return fmt.Errorf("advisor responder failed: %w", err)
		}
		return out.Send(ctx, advisorMessage(reply))
	default:
		reply, err := s.responder.Chat(ctx, msg.Text)
		if err != nil {
			return fmt.Errorf("chat responder failed: %w", err)
		}
		return out.Send(ctx, chatMessage(reply))
	}
}

// classify runs the fixed-priority classifier chain (weight, exercise,
// meal); the first confident match wins and short-circuits the rest.
func (s *Service) classify(ctx context.Context, ev *domain.InboundEvent, mode domain.SessionMode, out *outbox) error {
	msg := ev.Message
	userID := ev.UserID()

	// Start the indicator before fetching any photo content so it also
	// covers the download. It stays up until a message lands in the chat,
	// so every path below must end with exactly one Send.
	if err := s.messenger.ShowLoading(ctx, userID); err != nil {
		log.Printf("loading indicator failed for user %s: %v", userID, err)
	}

	input, err := s.buildClassifierInput(ctx, msg)
	if err != nil {
		return err
	}

	var judgment *domain.Judgment
	for _, c := range s.chain {
		j, err := c.Classify(ctx, input)
		if err != nil {
			// Classifier failure is contained to this event; lower
			// priority classifiers still get their turn.
			log.Printf("%s classifier failed for user %s: %v", c.Category(), userID, err)
			continue
		}
		if j.Match && j.Confidence >= matchThreshold {
			judgment = j
			break
		}
	}

	if judgment == nil {
		if mode == domain.ModeRecording {
			// The open responder is never invoked in recording mode.
			return out.Send(ctx, rephraseMessage())
		}
		reply, err := s.responder.Chat(ctx, msg.Text)
		if err != nil {
			return fmt.Errorf("chat responder failed: %w", err)
		}
		return out.Send(ctx, chatMessage(reply))
	}

	if mode == domain.ModeIdle && judgment.Confidence >= highConfidence {
		if err := s.enterRecording(ctx, userID); err != nil {
			return fmt.Errorf("failed to enter recording mode: %w", err)
		}
	}

	entries := judgment.Entries
	if msg.Type == domain.MessageTypeImage {
		// Keep the message id so the photo can be fetched and uploaded
		// at commit time, whether the commit is direct or confirmed
		// later from the staging slot.
		for i := range entries {
			if entries[i].MediaRef == "" {
				entries[i].MediaRef = msg.ID
			}
		}
	}

	if judgment.NeedsSlot() {
		analysis := &domain.StagedAnalysis{
			UserID:        userID,
			Entries:       entries,
			OriginalInput: originalInputOf(msg),
			CreatedAt:     time.Now().UTC(),
		}
		if err := s.store.PutStagedAnalysis(ctx, analysis); err != nil {
			return fmt.Errorf("failed to stage analysis: %w", err)
		}
		return out.Send(ctx, slotMenuMessage(entries))
	}

	result, err := s.commitExtracted(ctx, userID, entries, eventTime(ev))
	if err != nil {
		return fmt.Errorf("failed to commit records: %w", err)
	}
	return out.Send(ctx, committedMessage(result))
}

func (s *Service) buildClassifierInput(ctx context.Context, msg *domain.MessagePayload) (classifier.Input, error) {
	if msg.Type != domain.MessageTypeImage {
		return classifier.Input{Text: msg.Text}, nil
	}
	data, err := s.messenger.GetContent(ctx, msg.ID)
	if err != nil {
		return classifier.Input{}, fmt.Errorf("failed to fetch image content: %w", err)
	}
	data = media.Recompress(data, s.config.MediaMaxDim)
	return classifier.Input{
		ImageDataURL: "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(data),
	}, nil
}

func originalInputOf(msg *domain.MessagePayload) string {
	if msg.Type == domain.MessageTypeImage {
		return "image:" + msg.ID
	}
	return msg.Text
}

func eventTime(ev *domain.InboundEvent) time.Time {
	if ev.Timestamp > 0 {
		return time.UnixMilli(ev.Timestamp).UTC()
	}
	return time.Now().UTC()
}
