package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/rs/zerolog/log"

	contractx "viajero/agent/contract"
	promptx "viajero/agent/prompt"
)

// Config configures the OpenAI-backed NLU/geo gateway.
type Config struct {
	BaseURL     string        `envconfig:"BASE_URL" split_words:"true"`
	APIKey      string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	Model       string        `envconfig:"MODEL" split_words:"true" default:"gpt-4o-mini"`
	Temperature float64       `envconfig:"TEMPERATURE" split_words:"true" default:"0"`
	Timeout     time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: openai api key is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: model is required", contractx.ErrValidation)
	}
	return nil
}

// Client is the black-box language-model gateway. It backs the classifier
// port and the two geo lookups; every caller treats it as untrusted and
// degrades on failure.
type Client struct {
	sdk     openaisdk.Client
	model   openaisdk.ChatModel
	temp    float64
	prompts promptx.PromptSet
	digest  string
	now     func() time.Time
}

var (
	jsonBlockPattern = regexp.MustCompile(`(?s)\{.*\}`)
	iataCodePattern  = regexp.MustCompile(`^[A-Z]{3}$`)
)

func NewClient(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(cfg.APIKey)),
		option.WithRequestTimeout(cfg.Timeout),
	}
	if trimmed := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"); trimmed != "" {
		opts = append(opts, option.WithBaseURL(trimmed))
	}

	prompts := promptx.LoadPromptSet()
	return &Client{
		sdk:     openaisdk.NewClient(opts...),
		model:   openaisdk.ChatModel(strings.TrimSpace(cfg.Model)),
		temp:    cfg.Temperature,
		prompts: prompts,
		digest:  promptx.Digest(prompts.NLU),
		now:     time.Now,
	}, nil
}

// PromptDigest identifies the embedded NLU template version.
func (c *Client) PromptDigest() string {
	return c.digest
}

type rawClassification struct {
	Intent   *string              `json:"intent"`
	Entities *contractx.EntitySet `json:"entities"`
}

// Classify runs the NLU call and decodes its JSON answer. Missing intent or
// entities is a schema violation; slot names outside EntitySet are dropped by
// the decoder.
func (c *Client) Classify(ctx context.Context, message string, turnContext map[string]any) (contractx.Classification, error) {
	contextStr := ""
	if len(turnContext) > 0 {
		encoded, err := json.Marshal(turnContext)
		if err != nil {
			return contractx.Classification{}, fmt.Errorf("%w: marshal context: %v", contractx.ErrValidation, err)
		}
		contextStr = "Contexto de la conversación actual: " + string(encoded)
	}
	systemPrompt := fmt.Sprintf(c.prompts.NLU, c.now().Format("2006-01-02"), contextStr)

	text, err := c.complete(ctx, systemPrompt, message)
	if err != nil {
		return contractx.Classification{}, err
	}

	block := jsonBlockPattern.FindString(text)
	if block == "" {
		return contractx.Classification{}, fmt.Errorf("%w: no json block in nlu response", contractx.ErrSchemaViolation)
	}

	var raw rawClassification
	if err := json.Unmarshal([]byte(block), &raw); err != nil {
		return contractx.Classification{}, fmt.Errorf("%w: decode nlu response: %v", contractx.ErrSchemaViolation, err)
	}
	if raw.Intent == nil || raw.Entities == nil {
		return contractx.Classification{}, fmt.Errorf("%w: nlu response missing intent or entities", contractx.ErrSchemaViolation)
	}

	return contractx.Classification{
		Intent:   contractx.ParseIntent(strings.TrimSpace(*raw.Intent)),
		Entities: *raw.Entities,
	}, nil
}

// NormalizeLocation maps a fuzzy region onto its most practical airport city
// ("Toscana" -> "Florencia"). Callers fall back to the raw value on error.
func (c *Client) NormalizeLocation(ctx context.Context, location string) (string, error) {
	text, err := c.complete(ctx, "", fmt.Sprintf(c.prompts.Geo, location))
	if err != nil {
		return "", err
	}
	city := strings.ReplaceAll(strings.TrimSpace(text), ".", "")
	if city == "" {
		return "", fmt.Errorf("%w: empty geo answer", contractx.ErrSchemaViolation)
	}
	log.Info().Str("location", location).Str("city", city).Msg("geo-normalización inteligente")
	return city, nil
}

// LookupIATA asks for the main 3-letter airport code of a city. An empty
// string with nil error means the model did not know one.
func (c *Client) LookupIATA(ctx context.Context, city string) (string, error) {
	text, err := c.complete(ctx, "", fmt.Sprintf(c.prompts.IATA, city))
	if err != nil {
		return "", err
	}
	code := strings.ToUpper(strings.TrimSpace(text))
	if !iataCodePattern.MatchString(code) {
		return "", nil
	}
	return code, nil
}

func (c *Client) complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	messages := make([]openaisdk.ChatCompletionMessageParamUnion, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, openaisdk.SystemMessage(systemPrompt))
	}
	messages = append(messages, openaisdk.UserMessage(userPrompt))

	completion, err := c.sdk.Chat.Completions.New(ctx, openaisdk.ChatCompletionNewParams{
		Model:       c.model,
		Messages:    messages,
		Temperature: openaisdk.Float(c.temp),
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", contractx.ErrModelInvoke, err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("%w: completion returned no choices", contractx.ErrModelInvoke)
	}
	return completion.Choices[0].Message.Content, nil
}
