package news

import (
	"encoding/json"
	"testing"
)

func TestNormalize_Defaults(t *testing.T) {
	a := Normalize(RawArticle{"title": "X"})

	if a.Title != "X" {
		t.Errorf("Title = %q, want %q", a.Title, "X")
	}
	if a.Category != DefaultCategory {
		t.Errorf("Category = %q, want %q", a.Category, DefaultCategory)
	}
	if a.Timeframe != TimeframeDaily {
		t.Errorf("Timeframe = %q, want %q", a.Timeframe, TimeframeDaily)
	}
	if a.RelevanceScore != 50 {
		t.Errorf("RelevanceScore = %d, want 50", a.RelevanceScore)
	}
	if a.NationalRelevance != 50 {
		t.Errorf("NationalRelevance = %d, want 50", a.NationalRelevance)
	}
	for _, s := range []Scenario{a.Scenarios.Short, a.Scenarios.Medium, a.Scenarios.Long} {
		if s.Prediction != DefaultText {
			t.Errorf("scenario prediction = %q, want %q", s.Prediction, DefaultText)
		}
		if s.Confidence != 0 {
			t.Errorf("scenario confidence = %d, want 0", s.Confidence)
		}
		if s.Impact != DefaultText {
			t.Errorf("scenario impact = %q, want %q", s.Impact, DefaultText)
		}
	}
	if a.DateAdded == "" {
		t.Error("DateAdded should be defaulted")
	}
	if a.ID == "" {
		t.Error("ID should be derived")
	}
}

func TestNormalize_DeterministicID(t *testing.T) {
	a := Normalize(RawArticle{"title": "Rate Decision", "category": "Finance"})
	b := Normalize(RawArticle{"title": "  rate   DECISION ", "category": "finance"})

	if a.ID != b.ID {
		t.Errorf("same content should yield same id: %q vs %q", a.ID, b.ID)
	}

	c := Normalize(RawArticle{"title": "Rate Decision", "category": "Politics"})
	if a.ID == c.ID {
		t.Error("different category should yield different id")
	}
}

func TestNormalize_KeepsProvidedID(t *testing.T) {
	a := Normalize(RawArticle{"id": "news_custom", "title": "X"})
	if a.ID != "news_custom" {
		t.Errorf("ID = %q, want news_custom", a.ID)
	}
}

func TestNormalize_SummaryFallback(t *testing.T) {
	a := Normalize(RawArticle{"title": "X", "summary": "short version"})
	if a.Narrative != "short version" {
		t.Errorf("Narrative = %q, want summary fallback", a.Narrative)
	}
	// truth falls back to narrative when present
	if a.Truth != "short version" {
		t.Errorf("Truth = %q, want narrative fallback", a.Truth)
	}
}

func TestNormalize_MistypedFields(t *testing.T) {
	a := Normalize(RawArticle{
		"title":          "X",
		"relevanceScore": "very high",
		"timeframe":      42,
		"scenarios":      "not an object",
	})
	if a.RelevanceScore != 50 {
		t.Errorf("RelevanceScore = %d, want 50 for mistyped input", a.RelevanceScore)
	}
	if a.Timeframe != TimeframeDaily {
		t.Errorf("Timeframe = %q, want daily for mistyped input", a.Timeframe)
	}
	if a.Scenarios.Short.Prediction != DefaultText {
		t.Error("mistyped scenarios should degrade to defaults")
	}
}

func TestNormalize_FromDecodedJSON(t *testing.T) {
	payload := `{
		"title": "Port Strike",
		"category": "Logistics",
		"timeframe": "weekly",
		"relevanceScore": 83,
		"scenarios": {"short": {"prediction": "delays", "confidence": 70, "impact": "high"}}
	}`
	var raw RawArticle
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	a := Normalize(raw)
	if a.Timeframe != TimeframeWeekly {
		t.Errorf("Timeframe = %q, want weekly", a.Timeframe)
	}
	if a.RelevanceScore != 83 {
		t.Errorf("RelevanceScore = %d, want 83", a.RelevanceScore)
	}
	if a.Scenarios.Short.Confidence != 70 {
		t.Errorf("short confidence = %d, want 70", a.Scenarios.Short.Confidence)
	}
	// the two untouched slots still get defaulted
	if a.Scenarios.Medium.Prediction != DefaultText {
		t.Error("medium slot should be defaulted")
	}
}

func TestSanitize_ClampsScenarioConfidence(t *testing.T) {
	a := Sanitize(Article{
		Title: "X",
		Scenarios: ScenarioSet{
			Short: Scenario{Prediction: "p", Confidence: 250, Impact: "i"},
			Long:  Scenario{Prediction: "p", Confidence: -5, Impact: "i"},
		},
	})
	if a.Scenarios.Short.Confidence != 100 {
		t.Errorf("short confidence = %d, want 100", a.Scenarios.Short.Confidence)
	}
	if a.Scenarios.Long.Confidence != 0 {
		t.Errorf("long confidence = %d, want 0", a.Scenarios.Long.Confidence)
	}
}
