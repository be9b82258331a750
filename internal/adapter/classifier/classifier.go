// Package classifier provides the category classifiers and conversational
// responders used by the intent router. Each classifier is a pure function
// from input to a structured judgment; its internals are replaceable.
package classifier

import (
	"context"

	"github.com/kotahealth/healthbot/internal/domain"
)

// Input is one piece of user content to classify.
type Input struct {
	Text string
	// ImageDataURL holds a base64 data URL when the input is a photo.
	ImageDataURL string
}

// Classifier extracts structured records of one category from free input.
type Classifier interface {
	// Category returns the record category this classifier detects.
	Category() domain.Category

	// Classify returns a structured judgment. A non-match is not an error.
	Classify(ctx context.Context, in Input) (*domain.Judgment, error)
}

// Responder generates free-form conversational replies.
type Responder interface {
	// Chat answers general conversation in idle mode.
	Chat(ctx context.Context, text string) (string, error)

	// Advise answers with the higher-capability advisor persona.
	Advise(ctx context.Context, text string) (string, error)
}
