// Package news defines the canonical record types of the knowledge store:
// analyzed articles, investigations, the reconciled report state, snapshots,
// and the embedding documents derived from articles.
package news

// Timeframe classifies the horizon an analysis covers.
type Timeframe string

const (
	TimeframeDaily   Timeframe = "daily"
	TimeframeWeekly  Timeframe = "weekly"
	TimeframeMonthly Timeframe = "monthly"
	TimeframeYearly  Timeframe = "yearly"
)

// ValidTimeframe reports whether t is one of the known timeframes.
func ValidTimeframe(t Timeframe) bool {
	switch t {
	case TimeframeDaily, TimeframeWeekly, TimeframeMonthly, TimeframeYearly:
		return true
	}
	return false
}

// Scenario is one horizon prediction attached to an article.
type Scenario struct {
	Prediction string `json:"prediction"`
	Confidence int    `json:"confidence"` // 0-100
	Impact     string `json:"impact"`
}

// ScenarioSet holds the three horizon slots every article carries.
type ScenarioSet struct {
	Short  Scenario `json:"short"`
	Medium Scenario `json:"medium"`
	Long   Scenario `json:"long"`
}

// Article is one normalized, analyzed news record, the unit of storage
// and retrieval. Every Article observed outside the Normalizer satisfies
// the defaults documented on Normalize; no field is ever empty or nil.
type Article struct {
	// ID is deterministically derived from content (see DeterministicID),
	// so re-ingesting the same source item upserts rather than duplicates.
	ID             string      `json:"id"`
	Title          string      `json:"title"`
	Category       string      `json:"category"`
	Timeframe      Timeframe   `json:"timeframe"`
	Narrative      string      `json:"narrative"`
	Intent         string      `json:"intent"`
	Action         string      `json:"action"`
	Truth          string      `json:"truth"`
	PersonalImpact string      `json:"personalImpact"`
	Scenarios      ScenarioSet `json:"scenarios"`

	RelevanceScore    int `json:"relevanceScore"`    // 0-100
	NationalRelevance int `json:"nationalRelevance"` // 0-100

	// DateAdded is an RFC 3339 timestamp and the sort key for recency.
	DateAdded string `json:"dateAdded"`
}

// Investigation is a standalone anomaly-hunt record kept alongside articles.
type Investigation struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Category  string `json:"category"`
	Anomaly   string `json:"anomalyDetected"`
	Algorithm string `json:"algorithmUsed"`
	Findings  string `json:"findings"`
	Action    string `json:"action"`
	DateAdded string `json:"dateAdded"`
}

// CommodityForecast is a market datapoint carried inside the report state.
// It rides in the current-state record only; commodities are not merged
// per-item across tiers the way articles are.
type CommodityForecast struct {
	Name         string `json:"name"`
	CurrentPrice string `json:"currentPrice"`
	Unit         string `json:"unit"`
	LastUpdated  string `json:"lastUpdated"`
	Source       string `json:"source"`
}

// ReportKey is the reserved sentinel key for the single current-state
// record. It is distinct from any article id and from dated reports.
const ReportKey = "current-state"

// Report is the reconciled "current" view of the store.
type Report struct {
	Date           string              `json:"date"` // always ReportKey for the live record
	Summary        string              `json:"summary"`
	News           []Article           `json:"news"`
	Investigations []Investigation     `json:"investigations"`
	Commodities    []CommodityForecast `json:"commodities,omitempty"`
}

// SnapshotType distinguishes user-requested snapshots from milestone ones.
type SnapshotType string

const (
	SnapshotAuto   SnapshotType = "AUTO"
	SnapshotManual SnapshotType = "MANUAL"
)

// Snapshot is an immutable, named point-in-time capture of the full
// reconciled state. Data is a value copy taken at capture time; later
// mutation of the live store never alters a stored snapshot.
type Snapshot struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Timestamp string       `json:"timestamp"`
	Type      SnapshotType `json:"type"`
	ItemCount int          `json:"itemCount"`
	Data      Report       `json:"data"`
}

// EmbeddingDoc is the vector representation of one article's semantic
// text. NewsID is a weak reference: index entries do not own articles
// and are pruned when the owning article is gone.
type EmbeddingDoc struct {
	ID        string    `json:"id"` // DocIDPrefix + NewsID
	NewsID    string    `json:"newsId"`
	Text      string    `json:"text"`
	Embedding []float32 `json:"embedding"`
	Category  string    `json:"category"`
	Date      string    `json:"date"`
	Title     string    `json:"title"`
}

// DocIDPrefix prefixes every embedding document id.
const DocIDPrefix = "rag_"

// DocID returns the embedding document id for an article id.
func DocID(newsID string) string {
	return DocIDPrefix + newsID
}

// Backup is the export/import document for the whole store.
type Backup struct {
	Version        int             `json:"version"`
	Timestamp      string          `json:"timestamp"`
	News           []Article       `json:"news"`
	Investigations []Investigation `json:"investigations"`
	Snapshots      []Snapshot      `json:"snapshots"`
	Report         *Report         `json:"report,omitempty"`
}

// BackupVersion is the current export document version.
const BackupVersion = 2

// SearchResult is one ranked hit from the vector index.
type SearchResult struct {
	NewsID   string  `json:"newsId"`
	Title    string  `json:"title"`
	Text     string  `json:"text"`
	Category string  `json:"category"`
	Date     string  `json:"date"`
	Score    float64 `json:"score"` // cosine similarity, 0-1 for unit-ish vectors
}
