package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	openaigo "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/kotahealth/healthbot/internal/domain"
)

const (
	weightSystemPrompt = `You are a body-weight extraction engine for a health tracking bot.
Decide whether the user's message reports a body-weight measurement.
Return ONLY a JSON object like:
{"match": true, "confidence": 0.95, "entries": [{"category": "weight", "weight_kg": 70.5}]}
If the message is not a weight report, return {"match": false, "confidence": 0.9, "entries": []}.`

	exerciseSystemPrompt = `You are an exercise extraction engine for a health tracking bot.
Decide whether the user's message describes completed exercise. A single
message may describe several distinct exercises; return one entry per
exercise. exercise_type is one of cardio, strength, flexibility, sports,
daily, other. Omit duration_min when the user gave no duration.
Return ONLY a JSON object like:
{"match": true, "confidence": 0.9, "entries": [{"category": "exercise", "exercise_type": "cardio", "name": "running", "distance_km": 5, "duration_min": 30}]}
If the message describes no exercise, return {"match": false, "confidence": 0.9, "entries": []}.`

	mealSystemPrompt = `You are a meal extraction engine for a health tracking bot.
Decide whether the user's message (or photo) describes food that was eaten.
A single message may describe several meals at several times; return one
entry per meal. slot is one of breakfast, lunch, dinner, snack; omit it
when the user did not say which meal it was. Estimate calories, protein,
fat and carbs in grams.
Return ONLY a JSON object like:
{"match": true, "confidence": 0.9, "entries": [{"category": "meal", "slot": "lunch", "name": "rice bowl", "calories": 650, "protein": 20, "fat": 12, "carbs": 110}]}
If the message describes no food, return {"match": false, "confidence": 0.9, "entries": []}.`

	chatSystemPrompt = `You are a friendly health-tracking assistant. Reply briefly and helpfully
in the user's language. Encourage the user to record meals, exercise and
weight, but never invent records.`

	advisorSystemPrompt = `You are a professional health advisor. Give detailed, personalized
guidance on nutrition balance, exercise programming and lifestyle habits.
Reply in the user's language.`
)

// OpenAIClassifier runs one category prompt against a chat-completion API.
type OpenAIClassifier struct {
	client   openaigo.Client
	model    string
	category domain.Category
	system   string
}

// Options configures the OpenAI-backed classifier set.
type Options struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

func newOpenAIClient(opts Options) openaigo.Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	clientOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithHTTPClient(&http.Client{Timeout: timeout}),
		option.WithMaxRetries(2),
		option.WithRequestTimeout(timeout),
	}
	if base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"); base != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(base))
	}
	return openaigo.NewClient(clientOpts...)
}

// NewOpenAIClassifier creates a classifier for one category.
func NewOpenAIClassifier(opts Options, category domain.Category) *OpenAIClassifier {
	system := mealSystemPrompt
	switch category {
	case domain.CategoryWeight:
		system = weightSystemPrompt
	case domain.CategoryExercise:
		system = exerciseSystemPrompt
	}
	return &OpenAIClassifier{
		client:   newOpenAIClient(opts),
		model:    opts.Model,
		category: category,
		system:   system,
	}
}

// Category returns the record category this classifier detects.
func (c *OpenAIClassifier) Category() domain.Category {
	return c.category
}

// Classify sends the input to the model and parses the JSON judgment.
func (c *OpenAIClassifier) Classify(ctx context.Context, in Input) (*domain.Judgment, error) {
	userMsg := buildUserMessage(in)

	resp, err := c.client.Chat.Completions.New(ctx, openaigo.ChatCompletionNewParams{
		Model: openaigo.ChatModel(c.model),
		Messages: []openaigo.ChatCompletionMessageParamUnion{
			openaigo.SystemMessage(c.system),
			userMsg,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%s classifier call failed: %w", c.category, err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%s classifier returned empty choices", c.category)
	}

	raw := extractJSONFromText(resp.Choices[0].Message.Content)
	var judgment domain.Judgment
	if err := json.Unmarshal([]byte(raw), &judgment); err != nil {
		return nil, fmt.Errorf("%s classifier invalid json: %w (raw=%s)", c.category, err, raw)
	}
	for i := range judgment.Entries {
		if judgment.Entries[i].Category == "" {
			judgment.Entries[i].Category = c.category
		}
	}
	if judgment.Match && len(judgment.Entries) == 0 {
		judgment.Match = false
	}
	return &judgment, nil
}

func buildUserMessage(in Input) openaigo.ChatCompletionMessageParamUnion {
	if in.ImageDataURL == "" {
		return openaigo.UserMessage(in.Text)
	}
	text := in.Text
	if text == "" {
		text = "Extract records from this photo."
	}
	parts := []openaigo.ChatCompletionContentPartUnionParam{
		openaigo.TextContentPart(text),
		openaigo.ImageContentPart(openaigo.ChatCompletionContentPartImageImageURLParam{
			URL: in.ImageDataURL,
		}),
	}
	return openaigo.UserMessage(parts)
}

// OpenAIResponder answers open conversation and advisor chat.
type OpenAIResponder struct {
	client openaigo.Client
	model  string
}

// NewOpenAIResponder creates the conversational responder.
func NewOpenAIResponder(opts Options) *OpenAIResponder {
	return &OpenAIResponder{client: newOpenAIClient(opts), model: opts.Model}
}

// Chat answers general conversation.
func (r *OpenAIResponder) Chat(ctx context.Context, text string) (string, error) {
	return r.complete(ctx, chatSystemPrompt, text)
}

// Advise answers with the advisor persona.
func (r *OpenAIResponder) Advise(ctx context.Context, text string) (string, error) {
	return r.complete(ctx, advisorSystemPrompt, text)
}

func (r *OpenAIResponder) complete(ctx context.Context, system, text string) (string, error) {
	resp, err := r.client.Chat.Completions.New(ctx, openaigo.ChatCompletionNewParams{
		Model: openaigo.ChatModel(r.model),
		Messages: []openaigo.ChatCompletionMessageParamUnion{
			openaigo.SystemMessage(system),
			openaigo.UserMessage(text),
		},
	})
	if err != nil {
		return "", fmt.Errorf("responder call failed: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", fmt.Errorf("responder returned empty choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func extractJSONFromText(s string) string {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(raw, "```") {
		rest := strings.TrimSpace(strings.TrimPrefix(raw, "```"))
		if i := strings.Index(rest, "\n"); i >= 0 {
			rest = rest[i+1:]
		}
		if j := strings.LastIndex(rest, "```"); j >= 0 {
			rest = rest[:j]
		}
		raw = strings.TrimSpace(rest)
	}
	if !strings.HasPrefix(raw, "{") {
		if i := strings.Index(raw, "{"); i >= 0 {
			if j := strings.LastIndex(raw, "}"); j > i {
				return strings.TrimSpace(raw[i : j+1])
			}
		}
	}
	return raw
}
