// Package vision is the boundary to the image model that reads shelf
// photos. The model's output is untrusted: responses are parsed
// defensively and missing fields fall back to safe defaults.
package vision

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"

	"pasalsathi/backend/internal/domain"
)

var ErrUnavailable = errors.New("vision analyzer unavailable")

// Analysis is everything the model reported for one photo: the item
// list plus the scan-level total and free-text notes.
type Analysis struct {
	Items        []domain.DetectedItem
	TotalCounted int
	Notes        string
}

type Analyzer interface {
	AnalyzeImage(ctx context.Context, imageBase64 string, mode string) (*Analysis, error)
}

type rawDetectedItem struct {
	Name         string `json:"name"`
	NameNP       string `json:"name_np"`
	Count        int    `json:"count"`
	Category     string `json:"category"`
	Confidence   string `json:"confidence"`
	LocationHint string `json:"location_hint"`
}

type rawAnalysis struct {
	Items        []rawDetectedItem `json:"items"`
	TotalCounted int               `json:"total_counted"`
	Notes        string            `json:"notes"`
}

// decodeImage accepts plain base64 or a data URL and returns raw bytes.
func decodeImage(imageBase64 string) ([]byte, error) {
	payload := strings.TrimSpace(imageBase64)
	if idx := strings.Index(payload, "base64,"); idx >= 0 {
		payload = payload[idx+len("base64,"):]
	}
	if payload == "" {
		return nil, errors.New("empty image payload")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, err
	}
	return data, nil
}

// extractJSON pulls the first JSON object or array out of free-form
// model text. Models wrap output in prose or markdown fences often
// enough that strict unmarshalling of the whole response is useless.
func extractJSON(text string) (string, bool) {
	objStart := strings.Index(text, "{")
	arrStart := strings.Index(text, "[")
	if objStart >= 0 && (arrStart < 0 || objStart < arrStart) {
		end := strings.LastIndex(text, "}")
		if end > objStart {
			return text[objStart : end+1], true
		}
	}
	if arrStart >= 0 {
		end := strings.LastIndex(text, "]")
		if end > arrStart {
			return text[arrStart : end+1], true
		}
	}
	return "", false
}

// parseAnalysis turns raw model text into an Analysis. The expected
// shape is {"items": [...], "total_counted": n, "notes": "..."}, but a
// bare item array is accepted too since models drop the envelope.
// Entries without a name are dropped; missing category, confidence,
// and count get defaults rather than failing the scan. A missing or
// zero total is recomputed from the item counts.
func parseAnalysis(text string) (*Analysis, error) {
	payload, ok := extractJSON(text)
	if !ok {
		return nil, errors.New("no json in model response")
	}

	var raw rawAnalysis
	if strings.HasPrefix(payload, "{") {
		if err := json.Unmarshal([]byte(payload), &raw); err != nil {
			return nil, err
		}
	} else {
		if err := json.Unmarshal([]byte(payload), &raw.Items); err != nil {
			return nil, err
		}
	}

	analysis := &Analysis{
		Items: make([]domain.DetectedItem, 0, len(raw.Items)),
		Notes: strings.TrimSpace(raw.Notes),
	}
	counted := 0
	for _, r := range raw.Items {
		label := strings.TrimSpace(r.Name)
		if label == "" {
			continue
		}
		item := domain.DetectedItem{
			Label:        label,
			NameNP:       strings.TrimSpace(r.NameNP),
			Count:        r.Count,
			Category:     strings.ToLower(strings.TrimSpace(r.Category)),
			Confidence:   strings.ToLower(strings.TrimSpace(r.Confidence)),
			LocationHint: strings.TrimSpace(r.LocationHint),
		}
		if item.Count < 0 {
			item.Count = 0
		}
		if item.Category == "" {
			item.Category = "other"
		}
		switch item.Confidence {
		case domain.ConfidenceHigh, domain.ConfidenceMedium, domain.ConfidenceLow:
		default:
			item.Confidence = domain.ConfidenceMedium
		}
		counted += item.Count
		analysis.Items = append(analysis.Items, item)
	}

	analysis.TotalCounted = raw.TotalCounted
	if analysis.TotalCounted <= 0 {
		analysis.TotalCounted = counted
	}
	return analysis, nil
}
