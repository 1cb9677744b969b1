package sentiment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// BatchScorer scores a batch of texts in one shot. Implementations may
// return fewer results than inputs; callers keep their baseline score
// for any index not covered.
type BatchScorer interface {
	ScoreBatch(ctx context.Context, texts []string) (map[int]Score, error)
}

// Analyzer scores text with the lexicon baseline and optionally refines
// the result with an LLM backend. The backend is selected once at
// construction; a nil backend means lexicon-only.
type Analyzer struct {
	lexicon   *LexiconScorer
	llm       BatchScorer
	batchSize int
}

func NewAnalyzer(llm BatchScorer, batchSize int) *Analyzer {
	if batchSize <= 0 {
		batchSize = 24
	}
	return &Analyzer{lexicon: NewLexiconScorer(), llm: llm, batchSize: batchSize}
}

// ScoreText scores a single text with the lexicon only.
func (a *Analyzer) ScoreText(text string) Score {
	return a.lexicon.Score(text)
}

// ScoreTexts scores every text. The lexicon provides the baseline; when
// an LLM backend exists its batches overlay the baseline, and a failed
// batch silently keeps the lexicon scores.
func (a *Analyzer) ScoreTexts(ctx context.Context, texts []string) []Score {
	out := make([]Score, len(texts))
	for i, t := range texts {
		out[i] = a.lexicon.Score(t)
	}
	if a.llm == nil {
		return out
	}
	for start := 0; start < len(texts); start += a.batchSize {
		end := start + a.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		scored, err := a.llm.ScoreBatch(ctx, texts[start:end])
		if err != nil {
			continue
		}
		for idx, s := range scored {
			if idx < 0 || start+idx >= end {
				continue
			}
			s.Compound = clamp(s.Compound, -1, 1)
			s.Confidence = clamp(s.Confidence, 0, 1)
			s.Label = Classify(s.Compound)
			out[start+idx] = s
		}
	}
	return out
}

type openAIChatClient interface {
	CreateChatCompletion(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error)
}

// OpenAIScorer scores batches of texts with a chat model.
type OpenAIScorer struct {
	client openAIChatClient
	model  string
}

// NewOpenAIScorer returns nil when no API key is configured, which
// disables the LLM overlay without any runtime branching elsewhere.
func NewOpenAIScorer(apiKey, model string) *OpenAIScorer {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil
	}
	if strings.TrimSpace(model) == "" {
		model = "gpt-4o-mini"
	}
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAIScorer{client: &openAIClient{client: client}, model: model}
}

func (s *OpenAIScorer) ScoreBatch(ctx context.Context, texts []string) (map[int]Score, error) {
	if s == nil || s.client == nil || len(texts) == 0 {
		return nil, nil
	}

	var sb strings.Builder
	for i, t := range texts {
		sb.WriteString(fmt.Sprintf("id=%d\ntext=%s\n\n", i, strings.TrimSpace(t)))
	}

	systemPrompt := "You score crypto market sentiment. Return ONLY a JSON array. Each object requires: id (int), compound (-1..1), confidence (0..1). No markdown."
	completion, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionNewParams{
		Model: s.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage("Items:\n" + sb.String()),
		},
	})
	if err != nil {
		return nil, err
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("empty scorer completion")
	}

	raw := trimCodeFence(completion.Choices[0].Message.Content)
	var parsed []struct {
		ID         int     `json:"id"`
		Compound   float64 `json:"compound"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("parse scorer json: %w", err)
	}

	out := make(map[int]Score, len(parsed))
	for _, row := range parsed {
		if row.ID < 0 || row.ID >= len(texts) {
			continue
		}
		compound := clamp(row.Compound, -1, 1)
		out[row.ID] = Score{
			Compound:   compound,
			Confidence: clamp(row.Confidence, 0, 1),
			Label:      Classify(compound),
		}
	}
	return out, nil
}

func trimCodeFence(v string) string {
	v = strings.TrimSpace(v)
	if strings.HasPrefix(v, "```") {
		v = strings.TrimPrefix(v, "```")
		v = strings.TrimSpace(v)
		if strings.HasPrefix(strings.ToLower(v), "json") {
			v = strings.TrimSpace(v[4:])
		}
		v = strings.TrimSuffix(v, "```")
		v = strings.TrimSpace(v)
	}
	return v
}

type openAIClient struct {
	client openai.Client
}

func (c *openAIClient) CreateChatCompletion(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error) {
	return c.client.Chat.Completions.New(ctx, params)
}
