package news

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"
)

// Default placeholder values applied by the Normalizer. External producers
// routinely drop fields; every consumer downstream relies on these being
// filled, so no tier ever persists a partially-shaped record.
const (
	DefaultTitle    = "Recovered Item"
	DefaultCategory = "Archive"
	DefaultText     = "N/A"
	DefaultTruth    = "Verification pending."
	DefaultScore    = 50
)

// RawArticle is the loosely-typed shape external producers hand us.
// Normalize is the only place in the codebase allowed to touch it.
type RawArticle map[string]any

// Normalize converts a loosely-shaped external record into a canonical
// Article. It never fails: absent or mistyped fields receive the defaults
// above, all three scenario slots are always present, and the id is
// derived deterministically from content when missing, so re-ingesting
// the same source item yields the same id.
func Normalize(raw RawArticle) Article {
	a := Article{
		ID:             rawString(raw, "id"),
		Title:          rawString(raw, "title"),
		Category:       rawString(raw, "category"),
		Timeframe:      Timeframe(rawString(raw, "timeframe")),
		Narrative:      rawString(raw, "narrative"),
		Intent:         rawString(raw, "intent"),
		Action:         rawString(raw, "action"),
		Truth:          rawString(raw, "truth"),
		PersonalImpact: rawString(raw, "personalImpact"),
		Scenarios:      rawScenarios(raw["scenarios"]),
		DateAdded:      rawString(raw, "dateAdded"),
	}

	// narrative falls back to a plain summary field if the producer sent one
	if a.Narrative == "" {
		a.Narrative = rawString(raw, "summary")
	}

	a.RelevanceScore = rawScore(raw, "relevanceScore")
	a.NationalRelevance = rawScore(raw, "nationalRelevance")

	return Sanitize(a)
}

// Sanitize fills defaults on an already-typed Article. It is applied to
// every record read back from a tier, so stale rows written before a
// field existed still come out fully shaped.
func Sanitize(a Article) Article {
	if strings.TrimSpace(a.Title) == "" {
		a.Title = DefaultTitle
	}
	if strings.TrimSpace(a.Category) == "" {
		a.Category = DefaultCategory
	}
	if !ValidTimeframe(a.Timeframe) {
		a.Timeframe = TimeframeDaily
	}
	if strings.TrimSpace(a.Narrative) == "" {
		a.Narrative = DefaultText
	}
	if strings.TrimSpace(a.Intent) == "" {
		a.Intent = DefaultText
	}
	if strings.TrimSpace(a.Action) == "" {
		a.Action = DefaultText
	}
	if strings.TrimSpace(a.Truth) == "" {
		if a.Narrative != DefaultText {
			a.Truth = a.Narrative
		} else {
			a.Truth = DefaultTruth
		}
	}
	if strings.TrimSpace(a.PersonalImpact) == "" {
		a.PersonalImpact = DefaultText
	}

	a.Scenarios.Short = sanitizeScenario(a.Scenarios.Short)
	a.Scenarios.Medium = sanitizeScenario(a.Scenarios.Medium)
	a.Scenarios.Long = sanitizeScenario(a.Scenarios.Long)

	a.RelevanceScore = clampScore(a.RelevanceScore)
	a.NationalRelevance = clampScore(a.NationalRelevance)

	if a.DateAdded == "" {
		a.DateAdded = time.Now().UTC().Format(time.RFC3339)
	}
	if a.ID == "" {
		a.ID = DeterministicID(a.Title, a.Category, a.Timeframe)
	}

	return a
}

// DeterministicID derives a stable article id from content, so the same
// source item always maps to the same row (idempotent upsert).
func DeterministicID(title, category string, tf Timeframe) string {
	h := sha256.Sum256([]byte(normKey(title) + "|" + normKey(category) + "|" + string(tf)))
	return "news_" + hex.EncodeToString(h[:])[:16]
}

func normKey(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func sanitizeScenario(s Scenario) Scenario {
	if strings.TrimSpace(s.Prediction) == "" {
		s.Prediction = DefaultText
	}
	if strings.TrimSpace(s.Impact) == "" {
		s.Impact = DefaultText
	}
	if s.Confidence < 0 {
		s.Confidence = 0
	}
	if s.Confidence > 100 {
		s.Confidence = 100
	}
	return s
}

func clampScore(n int) int {
	if n < 0 || n > 100 {
		return DefaultScore
	}
	return n
}

// rawString extracts a string field, tolerating absent or mistyped values.
func rawString(raw RawArticle, key string) string {
	if raw == nil {
		return ""
	}
	if s, ok := raw[key].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

// rawScore extracts a 0-100 integer, defaulting anything else.
func rawScore(raw RawArticle, key string) int {
	if raw == nil {
		return DefaultScore
	}
	switch v := raw[key].(type) {
	case float64: // encoding/json decodes all numbers to float64
		return clampScore(int(v))
	case int:
		return clampScore(v)
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return clampScore(int(f))
		}
	}
	return DefaultScore
}

// rawScenarios decodes the scenarios object through JSON so that partial
// or mistyped slot data degrades to zero values instead of failing.
func rawScenarios(v any) ScenarioSet {
	var set ScenarioSet
	if v == nil {
		return set
	}
	data, err := json.Marshal(v)
	if err != nil {
		return set
	}
	// Best-effort: a malformed scenarios shape leaves the zero set,
	// which Sanitize then fills with defaults.
	_ = json.Unmarshal(data, &set)
	return set
}
