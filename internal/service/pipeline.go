package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log"
	"sync"

	"github.com/kotahealth/healthbot/internal/domain"
)

// HandleBatch processes one verified webhook delivery. Events for distinct
// users run concurrently; events for the same user run sequentially in
// arrival order. A failing event never aborts its siblings, and the caller
// reports success to the transport once the signature has verified.
func (s *Service) HandleBatch(ctx context.Context, batch *domain.WebhookBatch) {
	groups := make(map[string][]*domain.InboundEvent)
	var order []string
	for i := range batch.Events {
		ev := &batch.Events[i]
		userID := ev.UserID()
		if userID == "" {
			log.Printf("dropping event without user id (type=%s)", ev.Type)
			continue
		}
		if _, seen := groups[userID]; !seen {
			order = append(order, userID)
		}
		groups[userID] = append(groups[userID], ev)
	}

	var wg sync.WaitGroup
	for _, userID := range order {
		events := groups[userID]
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, ev := range events {
				s.processEvent(ctx, ev)
			}
		}()
	}
	wg.Wait()
}

// processEvent handles one event in isolation: deduplicated, dispatched by
// type, with panics and errors contained to this event.
func (s *Service) processEvent(ctx context.Context, ev *domain.InboundEvent) {
	out := newOutbox(s.messenger, ev.UserID(), ev.ReplyToken)

	defer func() {
		if r := recover(); r != nil {
			log.Printf("panic handling event for user %s: %v", ev.UserID(), r)
			if err := out.Send(ctx, genericErrorMessage()); err != nil {
				log.Printf("failed to send error reply: %v", err)
			}
		}
	}()

	fresh, err := s.store.MarkEventProcessed(ctx, idempotencyKey(ev), s.config.EventMarkerTTL)
	if err != nil {
		// Marker failure degrades to at-least-once; processing continues.
		log.Printf("idempotency marker failed for user %s: %v", ev.UserID(), err)
	} else if !fresh {
		// Duplicate delivery: drop silently, this is not an error.
		return
	}

	switch ev.Type {
	case domain.EventTypeFollow:
		err = s.handleFollow(ctx, out)
	case domain.EventTypePostback:
		err = s.handlePostback(ctx, ev, out)
	case domain.EventTypeMessage:
		err = s.handleMessage(ctx, ev, out)
	default:
		log.Printf("unknown event type %q from user %s", ev.Type, ev.UserID())
		return
	}
	if err != nil {
		log.Printf("event handling failed for user %s: %v", ev.UserID(), err)
		if sendErr := out.Send(ctx, genericErrorMessage()); sendErr != nil {
			log.Printf("failed to send error reply: %v", sendErr)
		}
	}
}

// idempotencyKey hashes the event's stable identity so the marker store
// never sees raw user ids.
func idempotencyKey(ev *domain.InboundEvent) string {
	sum := sha256.Sum256([]byte(ev.UserID() + ":" + ev.DedupeKey()))
	return hex.EncodeToString(sum[:])
}
