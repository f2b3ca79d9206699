package sentiment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
	"go.uber.org/zap"

	"chatlens/internal/models"
)

const contextualInstructions = `You are a sentiment classifier for short chat messages.
Score the polarity of the message from -1 (strongly negative) to 1 (strongly positive),
label it Positive, Negative or Neutral, and report your confidence from 0 to 1.
Judge the message on its own, without assuming any surrounding conversation.`

// contextualVerdict is the structured output the model must return.
type contextualVerdict struct {
	Score      float64 `json:"score" jsonschema:"description=Polarity from -1 to 1"`
	Label      string  `json:"label" jsonschema:"description=Positive or Negative or Neutral"`
	Confidence float64 `json:"confidence" jsonschema:"description=Confidence from 0 to 1"`
}

var contextualSchema = generateSchema[contextualVerdict]()

// ContextualOracle scores text through an OpenAI model with a strict
// JSON-schema structured output. The client is lazily built once per
// process and shared by every job; concurrent first use blocks behind a
// single initialization.
type ContextualOracle struct {
	apiKey string
	model  string
	logger *zap.Logger

	once    sync.Once
	client  *openai.Client
	initErr error
}

// NewContextualOracle builds the contextual oracle without touching the
// network; the client is created on first Score.
func NewContextualOracle(apiKey, model string, logger *zap.Logger) *ContextualOracle {
	return &ContextualOracle{apiKey: apiKey, model: model, logger: logger}
}

// Name implements Oracle.
func (o *ContextualOracle) Name() string { return OracleContextual }

func (o *ContextualOracle) init() (*openai.Client, error) {
	o.once.Do(func() {
		if o.apiKey == "" {
			o.initErr = fmt.Errorf("contextual oracle: api key is empty")
			return
		}
		client := openai.NewClient(option.WithAPIKey(o.apiKey))
		o.client = &client
		o.logger.Info("Contextual oracle initialized", zap.String("model", o.model))
	})
	return o.client, o.initErr
}

// Score asks the model for a verdict. Transport failures are retried once;
// a failure after that surfaces as an error for fusion to absorb.
func (o *ContextualOracle) Score(text string) (Result, error) {
	if strings.TrimSpace(text) == "" {
		return Neutral(), nil
	}

	client, err := o.init()
	if err != nil {
		return Neutral(), err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	params := responses.ResponseNewParams{
		Model:           o.model,
		MaxOutputTokens: openai.Int(120),
		Instructions:    openai.String(contextualInstructions),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: []responses.ResponseInputItemUnionParam{
				responses.ResponseInputItemParamOfMessage(text, responses.EasyInputMessageRoleUser),
			},
		},
		Text: responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigUnionParam{
				OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
					Name:   "SentimentVerdict",
					Schema: contextualSchema,
					Strict: openai.Bool(true),
					Type:   "json_schema",
				},
			},
		},
	}

	var resp *responses.Response
	for attempt := 0; attempt < 2; attempt++ {
		resp, err = client.Responses.New(ctx, params)
		if err == nil {
			break
		}
		if attempt == 0 {
			time.Sleep(2 * time.Second)
		}
	}
	if err != nil {
		return Neutral(), fmt.Errorf("contextual oracle request: %w", err)
	}

	var verdict contextualVerdict
	if err := json.Unmarshal([]byte(resp.OutputText()), &verdict); err != nil {
		return Neutral(), fmt.Errorf("contextual oracle output: %w", err)
	}
	if !models.ValidLabel(verdict.Label) {
		return Neutral(), fmt.Errorf("contextual oracle output: unknown label %q", verdict.Label)
	}

	return Result{
		Score:      clamp(verdict.Score, -1, 1),
		Confidence: clamp(verdict.Confidence, 0, 1),
		Label:      verdict.Label,
	}, nil
}

// generateSchema reflects a strict OpenAI-compatible JSON schema for T.
func generateSchema[T any]() map[string]interface{} {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}
	var v T
	raw, err := reflector.Reflect(v).MarshalJSON()
	if err != nil {
		panic(err)
	}
	var schema map[string]interface{}
	if err := json.Unmarshal(raw, &schema); err != nil {
		panic(err)
	}
	ensureStrictSchema(schema)
	return schema
}

// ensureStrictSchema marks every object closed and every property
// required, which strict structured outputs demand.
func ensureStrictSchema(schema map[string]interface{}) {
	if t, ok := schema["type"].(string); ok && t == "object" {
		schema["additionalProperties"] = false
		if props, ok := schema["properties"].(map[string]interface{}); ok {
			var required []string
			for name := range props {
				required = append(required, name)
			}
			if len(required) > 0 {
				schema["required"] = required
			}
		}
	}
	if props, ok := schema["properties"].(map[string]interface{}); ok {
		for _, p := range props {
			if m, ok := p.(map[string]interface{}); ok {
				ensureStrictSchema(m)
			}
		}
	}
	if items, ok := schema["items"].(map[string]interface{}); ok {
		ensureStrictSchema(items)
	}
}
