package vision

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"pasalsathi/backend/internal/domain"
)

const quickScanPrompt = `You are looking at a photo of a shelf in a small Nepali utensil shop.
List every distinct product you can identify and estimate how many of each are visible.
Return ONLY a JSON object, no prose, of the form:
{"items": [{"name": "<short product name in English>", "name_np": "<Nepali name if known, else empty>", "count": <integer>, "category": "<steel|brass|plastic|electric|cleaning|boxed|other>", "confidence": "<high|medium|low>", "location_hint": "<where on the shelf, e.g. top shelf, hanging, else empty>"}], "total_counted": <sum of all counts>, "notes": "<anything unusual about the shelf, else empty>"}`

const smartScanPrompt = quickScanPrompt + `
Look carefully at partially hidden and stacked items and include them in the counts.
Prefer specific names (e.g. "Steel Plate" instead of "Plate") so the items can be matched against an inventory list.`

// GeminiAnalyzer reads shelf photos with a Gemini vision model.
type GeminiAnalyzer struct {
	client *genai.Client
	model  string
}

func NewGeminiAnalyzer(ctx context.Context, apiKey string, model string) (*GeminiAnalyzer, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	if model == "" {
		model = "gemini-2.0-flash-001"
	}
	return &GeminiAnalyzer{client: client, model: model}, nil
}

func (g *GeminiAnalyzer) Close() error {
	return g.client.Close()
}

func (g *GeminiAnalyzer) AnalyzeImage(ctx context.Context, imageBase64 string, mode string) (*Analysis, error) {
	imgBytes, err := decodeImage(imageBase64)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	prompt := quickScanPrompt
	if mode == domain.ScanModeSmart {
		prompt = smartScanPrompt
	}

	model := g.client.GenerativeModel(g.model)
	resp, err := model.GenerateContent(ctx, genai.Text(prompt), genai.ImageData("jpeg", imgBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	text := collectText(resp)
	if text == "" {
		return nil, fmt.Errorf("%w: empty model response", ErrUnavailable)
	}

	analysis, err := parseAnalysis(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return analysis, nil
}

func collectText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var out string
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if txt, ok := part.(genai.Text); ok {
				out += string(txt)
			}
		}
	}
	return out
}
