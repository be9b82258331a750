package classifier

import (
	"log"
	"os"

	"github.com/kotahealth/healthbot/internal/domain"
)

const (
	// EnvBotMode is the environment variable name for mode selection.
	EnvBotMode = "HEALTHBOT_MODE"
	// ModeMock indicates mock classifiers should be used.
	ModeMock = "MOCK"
)

// NewChain returns the classifier chain in its fixed priority order
// (weight, then exercise, then meal) plus the conversational responder.
// If HEALTHBOT_MODE=MOCK, deterministic mock implementations are returned.
func NewChain(opts Options) ([]Classifier, Responder) {
	if os.Getenv(EnvBotMode) == ModeMock {
		log.Println("HEALTHBOT_MODE=MOCK detected, using mock classifiers")
		return NewMockChain()
	}

	chain := []Classifier{
		NewOpenAIClassifier(opts, domain.CategoryWeight),
		NewOpenAIClassifier(opts, domain.CategoryExercise),
		NewOpenAIClassifier(opts, domain.CategoryMeal),
	}
	return chain, NewOpenAIResponder(opts)
}

// NewMockChain returns the deterministic classifier chain used by tests.
func NewMockChain() ([]Classifier, Responder) {
	chain := []Classifier{
		MockWeightClassifier{},
		MockExerciseClassifier{},
		MockMealClassifier{},
	}
	return chain, MockResponder{}
}
