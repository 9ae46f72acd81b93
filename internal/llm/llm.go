package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"stockwatch/internal/enrich"

	"github.com/spf13/viper"
	"google.golang.org/genai"
)

const (
	// DefaultModel is the default Gemini model used for both calls.
	DefaultModel = "gemini-flash-lite-latest"
	// DefaultCallTimeout bounds each individual AI call. A timeout is treated
	// as an ordinary call failure by the enrichment adapter.
	DefaultCallTimeout = 60 * time.Second

	// SummarizePromptTemplate asks for a short reader-facing summary.
	SummarizePromptTemplate = `Tóm tắt bài báo tài chính sau trong 2-3 câu, tập trung vào thông tin quan trọng nhất cho nhà đầu tư.

Tiêu đề: %s

Nội dung:
%s`

	// AnalyzePromptTemplate asks for the structured analysis; the response
	// shape is enforced through a JSON response schema.
	AnalyzePromptTemplate = `Phân tích bài báo tài chính sau. Trả về phân loại (category), cảm xúc thị trường (sentiment: positive, neutral hoặc negative), mức tác động (impact_level: high, medium hoặc low), các thực thể chính (key_entities) và một đoạn nhận định ngắn (analysis_summary).

Tiêu đề: %s

Nội dung:
%s`
)

// Client wraps the Gemini SDK for the summarize and analyze calls the
// ingestion pipeline needs. It satisfies enrich.Analyzer.
type Client struct {
	modelName   string
	callTimeout time.Duration
	gClient     *genai.Client
}

// analysisSchema constrains the analyze call to the exact field shape the
// enrichment adapter expects.
var analysisSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"category":     {Type: genai.TypeString},
		"sentiment":    {Type: genai.TypeString, Enum: []string{"positive", "neutral", "negative"}},
		"impact_level": {Type: genai.TypeString, Enum: []string{"high", "medium", "low"}},
		"key_entities": {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
		"analysis_summary": {Type: genai.TypeString},
	},
	Required: []string{"category", "sentiment", "impact_level"},
}

// NewClient creates a Gemini client. The API key comes from the environment
// (GEMINI_API_KEY) or from the gemini.api_key config key.
func NewClient(modelName string, callTimeout time.Duration) (*Client, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		apiKey = viper.GetString("gemini.api_key")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required. Set GEMINI_API_KEY or gemini.api_key in the config file")
	}

	if modelName == "" {
		modelName = viper.GetString("gemini.model")
		if modelName == "" {
			modelName = DefaultModel
		}
	}
	if callTimeout <= 0 {
		callTimeout = DefaultCallTimeout
	}

	ctx := context.Background()
	gClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Client{
		modelName:   modelName,
		callTimeout: callTimeout,
		gClient:     gClient,
	}, nil
}

// generateContent wraps the SDK call with the client's timeout.
func (c *Client) generateContent(ctx context.Context, prompt string, config *genai.GenerateContentConfig) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	contents := []*genai.Content{{
		Parts: []*genai.Part{{Text: prompt}},
		Role:  "user",
	}}

	resp, err := c.gClient.Models.GenerateContent(ctx, c.modelName, contents, config)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("empty response from model")
	}

	return text, nil
}

// Summarize produces a short AI summary of an article.
func (c *Client) Summarize(ctx context.Context, title, body string) (string, error) {
	prompt := fmt.Sprintf(SummarizePromptTemplate, title, body)

	summary, err := c.generateContent(ctx, prompt, nil)
	if err != nil {
		return "", fmt.Errorf("failed to summarize article: %w", err)
	}

	return strings.TrimSpace(summary), nil
}

// Analyze produces the structured analysis of an article.
func (c *Client) Analyze(ctx context.Context, title, body string) (*enrich.Analysis, error) {
	prompt := fmt.Sprintf(AnalyzePromptTemplate, title, body)

	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   analysisSchema,
	}

	text, err := c.generateContent(ctx, prompt, config)
	if err != nil {
		return nil, fmt.Errorf("failed to analyze article: %w", err)
	}

	var analysis enrich.Analysis
	if err := json.Unmarshal([]byte(text), &analysis); err != nil {
		return nil, fmt.Errorf("failed to decode analysis response: %w", err)
	}

	return &analysis, nil
}
