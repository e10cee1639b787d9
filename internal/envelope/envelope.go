// Package envelope provides the standard wrapper for CLI JSON responses.
// Every response carries the payload plus metadata about confidence,
// provenance, cache status, truncation and warnings.
package envelope

// ConfidenceTier represents the quality tier of results.
type ConfidenceTier string

const (
	// TierHigh indicates every selected file was extracted.
	TierHigh ConfidenceTier = "high"
	// TierMedium indicates a few files failed or were dropped.
	TierMedium ConfidenceTier = "medium"
	// TierLow indicates a large share of the input was not analyzed.
	TierLow ConfidenceTier = "low"
	// TierSpeculative indicates most of the input was not analyzed.
	TierSpeculative ConfidenceTier = "speculative"
)

// ConfidenceFactor explains one component of the confidence score.
type ConfidenceFactor struct {
	Factor string  `json:"factor"` // e.g., "failed_files", "file_limit"
	Status string  `json:"status"` // e.g., "none", "present"
	Impact float64 `json:"impact"` // contribution to score (-1.0 to 1.0)
}

// Confidence describes result quality.
type Confidence struct {
	Score   float64            `json:"score"`             // 0.0 - 1.0
	Tier    ConfidenceTier     `json:"tier"`              // high, medium, low, speculative
	Reasons []string           `json:"reasons,omitempty"` // why this tier
	Factors []ConfidenceFactor `json:"factors,omitempty"` // breakdown of score
}

// Provenance describes where the result came from.
type Provenance struct {
	Scope    string `json:"scope"`
	RunID    string `json:"runId,omitempty"`
	Analysis string `json:"analysis,omitempty"` // e.g., "python_classes"
}

// Truncation describes result trimming.
type Truncation struct {
	IsTruncated bool   `json:"isTruncated"`
	Shown       int    `json:"shown,omitempty"`  // items returned
	Total       int    `json:"total,omitempty"`  // total available
	Reason      string `json:"reason,omitempty"` // "max-files", "list-limit"
}

// CacheInfo describes cache status for this response.
type CacheInfo struct {
	Hit    bool   `json:"hit"`           // true if served from cache
	Stored bool   `json:"stored"`        // false when persisting failed
	Age    string `json:"age,omitempty"` // if hit, how old (e.g., "2m30s")
	Key    string `json:"key,omitempty"` // cache key for debugging
}

// Meta holds response metadata.
type Meta struct {
	Confidence *Confidence `json:"confidence,omitempty"`
	Provenance *Provenance `json:"provenance,omitempty"`
	Truncation *Truncation `json:"truncation,omitempty"`
	Cache      *CacheInfo  `json:"cache,omitempty"`
}

// SuggestedCall represents a recommended follow-up command.
type SuggestedCall struct {
	Command string `json:"command"`          // full codemap command line
	Reason  string `json:"reason,omitempty"` // why this is suggested
}

// Warning represents a non-fatal issue.
type Warning struct {
	Code    string `json:"code,omitempty"` // machine-readable code
	Message string `json:"message"`        // human-readable message
}

// Response is the standard envelope for CLI JSON output.
type Response struct {
	SchemaVersion      string          `json:"schemaVersion"`
	Data               interface{}     `json:"data"`
	Meta               *Meta           `json:"meta,omitempty"`
	Warnings           []Warning       `json:"warnings,omitempty"`
	Error              *ErrorInfo      `json:"error,omitempty"`
	SuggestedNextCalls []SuggestedCall `json:"suggestedNextCalls,omitempty"`
}

// ErrorInfo is the error part of a failed response
type ErrorInfo struct {
	Code    string      `json:"code,omitempty"`
	Message string      `json:"message"`
	Fixes   interface{} `json:"suggestedFixes,omitempty"`
}

// CurrentSchemaVersion is the current envelope schema version.
const CurrentSchemaVersion = "1.0"

// ScoreToTier converts a completeness score (0.0-1.0) to a confidence tier.
//
// Tier mapping:
//   - 0.95+ -> high
//   - 0.70-0.94 -> medium
//   - 0.30-0.69 -> low
//   - <0.30 -> speculative
func ScoreToTier(score float64) ConfidenceTier {
	switch {
	case score >= 0.95:
		return TierHigh
	case score >= 0.70:
		return TierMedium
	case score >= 0.30:
		return TierLow
	default:
		return TierSpeculative
	}
}
