package vision

import (
	"encoding/base64"
	"testing"

	"pasalsathi/backend/internal/domain"
)

func TestParseAnalysisFromFencedObject(t *testing.T) {
	text := "Here is what I can see:\n```json\n" +
		`{"items": [{"name": "Steel Plate", "name_np": "स्टिल थाल", "count": 12, "category": "steel", "confidence": "high", "location_hint": "top shelf"}], "total_counted": 12, "notes": "back row partially hidden"}` +
		"\n```"
	analysis, err := parseAnalysis(text)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(analysis.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(analysis.Items))
	}
	item := analysis.Items[0]
	if item.Label != "Steel Plate" || item.Count != 12 {
		t.Fatalf("unexpected item %+v", item)
	}
	if item.NameNP != "स्टिल थाल" {
		t.Fatalf("expected nepali name preserved, got %q", item.NameNP)
	}
	if item.LocationHint != "top shelf" {
		t.Fatalf("expected location hint preserved, got %q", item.LocationHint)
	}
	if analysis.TotalCounted != 12 {
		t.Fatalf("expected total 12, got %d", analysis.TotalCounted)
	}
	if analysis.Notes != "back row partially hidden" {
		t.Fatalf("expected notes preserved, got %q", analysis.Notes)
	}
}

func TestParseAnalysisAcceptsBareArray(t *testing.T) {
	text := `[{"name": "Steel Plate", "count": 7}, {"name": "Brass Lamp", "count": 2}]`
	analysis, err := parseAnalysis(text)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(analysis.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(analysis.Items))
	}
	if analysis.TotalCounted != 9 {
		t.Fatalf("expected total summed from counts, got %d", analysis.TotalCounted)
	}
	if analysis.Notes != "" {
		t.Fatalf("expected no notes for array form, got %q", analysis.Notes)
	}
}

func TestParseAnalysisDefaults(t *testing.T) {
	text := `{"items": [{"name": "Brass Lamp"}, {"name": "Bucket", "count": -3, "confidence": "very sure"}, {"name": "  "}]}`
	analysis, err := parseAnalysis(text)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(analysis.Items) != 2 {
		t.Fatalf("expected nameless entry dropped, got %d items", len(analysis.Items))
	}
	for _, item := range analysis.Items {
		if item.Category != "other" {
			t.Fatalf("expected default category other, got %q", item.Category)
		}
		if item.Confidence != domain.ConfidenceMedium {
			t.Fatalf("expected default confidence medium, got %q", item.Confidence)
		}
		if item.Count < 0 {
			t.Fatalf("count should be floored at zero, got %d", item.Count)
		}
	}
	if analysis.TotalCounted != 0 {
		t.Fatalf("expected zero total for zero counts, got %d", analysis.TotalCounted)
	}
}

func TestParseAnalysisNoJSON(t *testing.T) {
	if _, err := parseAnalysis("I could not identify any products."); err == nil {
		t.Fatalf("expected error for prose-only response")
	}
}

func TestDecodeImageDataURL(t *testing.T) {
	raw := []byte{0xFF, 0xD8, 0xFF, 0xE0}
	encoded := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(raw)
	decoded, err := decodeImage(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(decoded) != len(raw) {
		t.Fatalf("expected %d bytes, got %d", len(raw), len(decoded))
	}

	if _, err := decodeImage("   "); err == nil {
		t.Fatalf("expected error for empty payload")
	}
}
