package preview

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	genai "google.golang.org/genai"
)

// ErrEmptyRefinement is returned when the model produced no usable text.
var ErrEmptyRefinement = errors.New("preview: empty refinement")

// Refiner rewrites a preview according to reviewer feedback. Implementations
// live outside the compiler; it only ever consumes the accepted text.
type Refiner interface {
	Refine(ctx context.Context, preview, feedback string) (string, error)
}

// GeminiRefiner is a thin wrapper around the official genai client.
type GeminiRefiner struct {
	cli   *genai.Client
	model string
}

const defaultGeminiModel = "gemini-2.5-flash"

func NewGeminiRefiner(ctx context.Context, apiKey, model string) (*GeminiRefiner, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("preview: gemini api key is required")
	}
	if strings.TrimSpace(model) == "" {
		model = defaultGeminiModel
	}
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("init gemini client: %w", err)
	}
	return &GeminiRefiner{cli: cli, model: model}, nil
}

func (g *GeminiRefiner) Name() string { return "Gemini:" + g.model }

// Refine asks the model for a revised step list in the same line format.
func (g *GeminiRefiner) Refine(ctx context.Context, preview, feedback string) (string, error) {
	resp, err := g.cli.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: RefinePrompt(preview, feedback)}}}},
		&genai.GenerateContentConfig{ResponseMIMEType: "text/plain"},
	)
	if err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", ErrEmptyRefinement
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	out := StripCodeFences(b.String())
	if out == "" {
		return "", ErrEmptyRefinement
	}
	return out, nil
}

// RefinePrompt builds the instruction sent to the model.
func RefinePrompt(preview, feedback string) string {
	var b strings.Builder
	b.WriteString("You edit recorded browser test steps.\n")
	b.WriteString("Keep one step per line in the form: N. Action | Navigation | Data: value | Expected: outcome\n")
	b.WriteString("Do not invent steps that were not recorded; only drop, reorder wording, or annotate.\n\n")
	b.WriteString("[CURRENT STEPS]\n")
	b.WriteString(strings.TrimSpace(preview))
	b.WriteString("\n\n[REVIEWER FEEDBACK]\n")
	b.WriteString(strings.TrimSpace(feedback))
	b.WriteString("\n")
	return b.String()
}

var (
	fenceOpen  = regexp.MustCompile("(?m)^```[a-zA-Z0-9_-]*")
	fenceClose = regexp.MustCompile("(?m)```$")
)

// StripCodeFences removes a surrounding markdown code fence, if any.
func StripCodeFences(text string) string {
	cleaned := strings.TrimSpace(text)
	if strings.HasPrefix(cleaned, "```") {
		cleaned = fenceOpen.ReplaceAllString(cleaned, "")
		cleaned = fenceClose.ReplaceAllString(cleaned, "")
	}
	return strings.TrimSpace(cleaned)
}
