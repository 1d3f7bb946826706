package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/causerie-app/causerie/domain/entities"
	"github.com/causerie-app/causerie/domain/repositories"
)

const analysisPrompt = `You are reviewing a spoken French practice conversation between a learner (user) and a tutor (model). Based on the transcript below, respond with JSON only, matching this shape exactly:
{"summary": "<two or three sentences on what was discussed and how the learner did>", "struggled_words": [{"word": "<French word or phrase the learner had trouble with>", "context": "<the sentence it appeared in>", "translation": "<English translation>"}]}

Transcript:
%s`

// GeminiAnalyzer produces a post-session analysis with a structured-output
// generation call.
type GeminiAnalyzer struct {
	client *genai.Client
	logger *zap.Logger
	model  string
}

// NewGeminiAnalyzer creates an analyzer backed by the Gemini API
func NewGeminiAnalyzer(ctx context.Context, apiKey, model string, logger *zap.Logger) (*GeminiAnalyzer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("analysis API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiAnalyzer{
		client: client,
		logger: logger,
		model:  model,
	}, nil
}

// Analyze summarizes a finished session and extracts struggled vocabulary.
// A response that is not valid JSON yields entities.ErrAnalysisParse.
func (g *GeminiAnalyzer) Analyze(ctx context.Context, summary entities.SessionSummary) (repositories.SessionAnalysis, error) {
	prompt := fmt.Sprintf(analysisPrompt, formatTranscript(summary))
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	}

	var response *genai.GenerateContentResponse
	var err error
	for attempt := 0; attempt < 3; attempt++ {
		response, err = g.client.Models.GenerateContent(ctx, g.model, contents, config)
		if err == nil {
			break
		}
		g.logger.Warn("Failed to generate analysis, retrying",
			zap.Int("attempt", attempt+1),
			zap.Error(err))
		if attempt < 2 {
			time.Sleep(time.Duration(attempt+1) * time.Second)
		}
	}
	if err != nil {
		return repositories.SessionAnalysis{}, fmt.Errorf("generate analysis: %w", err)
	}

	return parseAnalysis(response)
}

// parseAnalysis extracts and decodes the JSON analysis from a response
func parseAnalysis(response *genai.GenerateContentResponse) (repositories.SessionAnalysis, error) {
	if len(response.Candidates) == 0 || response.Candidates[0].Content == nil {
		return repositories.SessionAnalysis{}, fmt.Errorf("%w: no candidates", entities.ErrAnalysisParse)
	}
	var text string
	for _, part := range response.Candidates[0].Content.Parts {
		text += part.Text
	}
	if text == "" {
		return repositories.SessionAnalysis{}, fmt.Errorf("%w: empty response", entities.ErrAnalysisParse)
	}

	var analysis repositories.SessionAnalysis
	if err := json.Unmarshal([]byte(text), &analysis); err != nil {
		return repositories.SessionAnalysis{}, fmt.Errorf("%w: %v", entities.ErrAnalysisParse, err)
	}
	return analysis, nil
}

// formatTranscript renders the transcript in role-prefixed lines for the prompt
func formatTranscript(summary entities.SessionSummary) string {
	var b strings.Builder
	for _, entry := range summary.Transcript {
		fmt.Fprintf(&b, "%s: %s\n", entry.Role, entry.Text)
	}
	return b.String()
}
