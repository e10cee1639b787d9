package envelope

import (
	"errors"
	"time"

	cmerrors "codemap/internal/errors"
)

// Builder constructs Response envelopes using a fluent API.
type Builder struct {
	resp *Response
}

// New creates a new envelope builder.
func New() *Builder {
	return &Builder{
		resp: &Response{
			SchemaVersion: CurrentSchemaVersion,
		},
	}
}

func (b *Builder) meta() *Meta {
	if b.resp.Meta == nil {
		b.resp.Meta = &Meta{}
	}
	return b.resp.Meta
}

// Data sets the command-specific payload.
func (b *Builder) Data(data interface{}) *Builder {
	b.resp.Data = data
	return b
}

// Coverage describes how much of the fetched input one run analyzed
type Coverage struct {
	Analyzed int
	Failed   int
	Dropped  int
}

// FromCoverage sets confidence from the share of files that were
// extracted. Failed and dropped files each lower the score.
func (b *Builder) FromCoverage(c Coverage) *Builder {
	total := c.Analyzed + c.Dropped
	score := 1.0
	if total > 0 {
		score = float64(c.Analyzed-c.Failed) / float64(total)
	}
	if score < 0 {
		score = 0
	}

	conf := &Confidence{
		Score:   score,
		Tier:    ScoreToTier(score),
		Factors: generateConfidenceFactors(c, total),
	}
	if c.Failed > 0 {
		conf.Reasons = append(conf.Reasons, "unparseable-files")
	}
	if c.Dropped > 0 {
		conf.Reasons = append(conf.Reasons, "file-limit")
	}
	b.meta().Confidence = conf
	return b
}

// generateConfidenceFactors explains why confidence is what it is.
func generateConfidenceFactors(c Coverage, total int) []ConfidenceFactor {
	impact := func(n int) float64 {
		if total == 0 {
			return 0
		}
		return -float64(n) / float64(total)
	}
	status := func(n int) string {
		if n == 0 {
			return "none"
		}
		return "present"
	}
	return []ConfidenceFactor{
		{Factor: "failed_files", Status: status(c.Failed), Impact: impact(c.Failed)},
		{Factor: "file_limit", Status: status(c.Dropped), Impact: impact(c.Dropped)},
	}
}

// WithProvenance records the scope and run that produced the result.
func (b *Builder) WithProvenance(scope, runID, analysis string) *Builder {
	b.meta().Provenance = &Provenance{Scope: scope, RunID: runID, Analysis: analysis}
	return b
}

// WithCache adds cache status. generatedAt dates a hit.
func (b *Builder) WithCache(hit, stored bool, key string, generatedAt, now time.Time) *Builder {
	info := &CacheInfo{Hit: hit, Stored: stored, Key: key}
	if hit && !generatedAt.IsZero() {
		info.Age = now.Sub(generatedAt).Round(time.Second).String()
	}
	b.meta().Cache = info
	return b
}

// WithTruncation adds truncation metadata.
func (b *Builder) WithTruncation(truncated bool, shown, total int, reason string) *Builder {
	if !truncated {
		return b
	}
	b.meta().Truncation = &Truncation{
		IsTruncated: true,
		Shown:       shown,
		Total:       total,
		Reason:      reason,
	}

	// Downgrade confidence when input was cut
	if conf := b.resp.Meta.Confidence; conf != nil && conf.Tier == TierHigh {
		conf.Tier = TierMedium
		conf.Reasons = append(conf.Reasons, "truncated")
	}
	return b
}

// Suggest adds a follow-up command.
func (b *Builder) Suggest(command, reason string) *Builder {
	b.resp.SuggestedNextCalls = append(b.resp.SuggestedNextCalls, SuggestedCall{Command: command, Reason: reason})
	return b
}

// Warning adds a warning message.
func (b *Builder) Warning(msg string) *Builder {
	if msg == "" {
		return b
	}
	b.resp.Warnings = append(b.resp.Warnings, Warning{Message: msg})
	return b
}

// WarningWithCode adds a warning with a code.
func (b *Builder) WarningWithCode(code, msg string) *Builder {
	b.resp.Warnings = append(b.resp.Warnings, Warning{Code: code, Message: msg})
	return b
}

// Error sets the error field. Coded errors keep their code and fixes.
func (b *Builder) Error(err error) *Builder {
	if err == nil {
		return b
	}
	info := &ErrorInfo{Message: err.Error()}
	var ce *cmerrors.CodemapError
	if errors.As(err, &ce) {
		info.Code = string(ce.Code)
		if len(ce.SuggestedFixes) > 0 {
			info.Fixes = ce.SuggestedFixes
		}
	}
	b.resp.Error = info
	return b
}

// Build returns the completed response envelope.
func (b *Builder) Build() *Response {
	return b.resp
}

// Operational creates a simple envelope for maintenance commands.
// These always have full confidence and no truncation.
func Operational(data interface{}) *Response {
	return &Response{
		SchemaVersion: CurrentSchemaVersion,
		Data:          data,
		Meta: &Meta{
			Confidence: &Confidence{
				Score: 1.0,
				Tier:  TierHigh,
			},
		},
	}
}
