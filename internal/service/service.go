// Package service implements the ingestion pipeline: verified events flow
// through deduplication, the session mode machine, the intent router, the
// staging/confirmation workflow and the recorder, then out via replies or
// pushes.
package service

import (
	"context"

	"github.com/kotahealth/healthbot/internal/adapter/classifier"
	"github.com/kotahealth/healthbot/internal/adapter/messenger"
	"github.com/kotahealth/healthbot/internal/config"
	"github.com/kotahealth/healthbot/internal/media"
	"github.com/kotahealth/healthbot/internal/store"
	"github.com/kotahealth/healthbot/policy"
)

// Messenger is the outbound side of the messaging platform.
type Messenger interface {
	Reply(ctx context.Context, replyToken string, msgs []messenger.Message) error
	Push(ctx context.Context, userID string, msgs []messenger.Message) error
	ShowLoading(ctx context.Context, userID string) error
	GetContent(ctx context.Context, messageID string) ([]byte, error)
}

// Service wires the pipeline components together.
type Service struct {
	store     store.Store
	messenger Messenger
	chain     []classifier.Classifier
	responder classifier.Responder
	gate      *policy.Engine
	uploader  *media.Uploader
	config    *config.Config
}

// New creates the service.
func New(st store.Store, m Messenger, chain []classifier.Classifier, responder classifier.Responder, gate *policy.Engine, uploader *media.Uploader, cfg *config.Config) *Service {
	return &Service{
		store:     st,
		messenger: m,
		chain:     chain,
		responder: responder,
		gate:      gate,
		uploader:  uploader,
		config:    cfg,
	}
}

// outbox delivers messages for one event: the one-time reply token first,
// push thereafter (or when the token was already consumed).
type outbox struct {
	messenger  Messenger
	userID     string
	replyToken string
	replyUsed  bool
}

func newOutbox(m Messenger, userID, replyToken string) *outbox {
	return &outbox{messenger: m, userID: userID, replyToken: replyToken}
}

// Send delivers messages, consuming the reply token on first use and
// falling back to push when the token is gone or rejected.
func (o *outbox) Send(ctx context.Context, msgs ...messenger.Message) error {
	if o.replyToken != "" && !o.replyUsed {
		o.replyUsed = true
		if err := o.messenger.Reply(ctx, o.replyToken, msgs); err == nil {
			return nil
		}
	}
	return o.messenger.Push(ctx, o.userID, msgs)
}
