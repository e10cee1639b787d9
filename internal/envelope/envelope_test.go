package envelope

import (
	"encoding/json"
	"fmt"
	"math"
	"testing"
	"time"

	cmerrors "codemap/internal/errors"
)

func TestScoreToTier(t *testing.T) {
	tests := []struct {
		score float64
		want  ConfidenceTier
	}{
		{1.0, TierHigh},
		{0.95, TierHigh},
		{0.94, TierMedium},
		{0.70, TierMedium},
		{0.69, TierLow},
		{0.30, TierLow},
		{0.29, TierSpeculative},
		{0.0, TierSpeculative},
	}

	for _, tt := range tests {
		got := ScoreToTier(tt.score)
		if got != tt.want {
			t.Errorf("ScoreToTier(%v) = %q, want %q", tt.score, got, tt.want)
		}
	}
}

func TestBuilderBasic(t *testing.T) {
	resp := New().
		Data(map[string]string{"key": "value"}).
		Build()

	if resp.SchemaVersion != CurrentSchemaVersion {
		t.Errorf("SchemaVersion = %q, want %q", resp.SchemaVersion, CurrentSchemaVersion)
	}
	data, ok := resp.Data.(map[string]string)
	if !ok {
		t.Fatalf("Data type = %T, want map[string]string", resp.Data)
	}
	if data["key"] != "value" {
		t.Errorf("Data[key] = %q, want %q", data["key"], "value")
	}
	if resp.Meta != nil {
		t.Errorf("Meta = %+v, want nil", resp.Meta)
	}
}

func TestBuilderFromCoverage(t *testing.T) {
	tests := []struct {
		name      string
		cov       Coverage
		wantScore float64
		wantTier  ConfidenceTier
		reasons   int
	}{
		{"everything parsed", Coverage{Analyzed: 10}, 1.0, TierHigh, 0},
		{"no files", Coverage{}, 1.0, TierHigh, 0},
		{"one failure", Coverage{Analyzed: 10, Failed: 1}, 0.9, TierMedium, 1},
		{"file limit", Coverage{Analyzed: 100, Dropped: 100}, 0.5, TierLow, 1},
		{"both", Coverage{Analyzed: 4, Failed: 3, Dropped: 6}, 0.1, TierSpeculative, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := New().FromCoverage(tt.cov).Build()
			conf := resp.Meta.Confidence
			if math.Abs(conf.Score-tt.wantScore) > 1e-9 {
				t.Errorf("Score = %v, want %v", conf.Score, tt.wantScore)
			}
			if conf.Tier != tt.wantTier {
				t.Errorf("Tier = %q, want %q", conf.Tier, tt.wantTier)
			}
			if len(conf.Reasons) != tt.reasons {
				t.Errorf("Reasons = %v, want %d entries", conf.Reasons, tt.reasons)
			}
			if len(conf.Factors) != 2 {
				t.Errorf("Factors = %v, want 2 entries", conf.Factors)
			}
		})
	}
}

func TestBuilderWithCache(t *testing.T) {
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	resp := New().WithCache(true, true, "abc", now.Add(-150*time.Second), now).Build()
	if resp.Meta.Cache == nil || !resp.Meta.Cache.Hit {
		t.Fatalf("Cache = %+v, want hit", resp.Meta.Cache)
	}
	if resp.Meta.Cache.Age != "2m30s" {
		t.Errorf("Age = %q, want 2m30s", resp.Meta.Cache.Age)
	}

	resp = New().WithCache(false, false, "abc", now, now).Build()
	if resp.Meta.Cache.Age != "" {
		t.Errorf("Age = %q, want empty on a miss", resp.Meta.Cache.Age)
	}
	if resp.Meta.Cache.Stored {
		t.Error("Stored = true, want false")
	}
}

func TestBuilderWithTruncation(t *testing.T) {
	resp := New().WithTruncation(false, 10, 10, "").Build()
	if resp.Meta != nil {
		t.Errorf("Meta = %+v, want nil when not truncated", resp.Meta)
	}

	resp = New().
		FromCoverage(Coverage{Analyzed: 100}).
		WithTruncation(true, 100, 101, "max-files").
		Build()
	tr := resp.Meta.Truncation
	if tr == nil || !tr.IsTruncated || tr.Shown != 100 || tr.Total != 101 || tr.Reason != "max-files" {
		t.Errorf("Truncation = %+v", tr)
	}
	if resp.Meta.Confidence.Tier != TierMedium {
		t.Errorf("Tier = %q, want medium after truncation", resp.Meta.Confidence.Tier)
	}
}

func TestBuilderWarningAndSuggest(t *testing.T) {
	resp := New().
		Warning("").
		Warning("diagram generated but not cached").
		WarningWithCode("CACHE_STORE_FAILED", "disk full").
		Suggest("codemap generate uml --refresh", "served from cache").
		Build()

	if len(resp.Warnings) != 2 {
		t.Fatalf("Warnings = %v, want 2", resp.Warnings)
	}
	if resp.Warnings[1].Code != "CACHE_STORE_FAILED" {
		t.Errorf("Warnings[1].Code = %q", resp.Warnings[1].Code)
	}
	if len(resp.SuggestedNextCalls) != 1 || resp.SuggestedNextCalls[0].Command != "codemap generate uml --refresh" {
		t.Errorf("SuggestedNextCalls = %+v", resp.SuggestedNextCalls)
	}
}

func TestBuilderError(t *testing.T) {
	resp := New().Error(nil).Build()
	if resp.Error != nil {
		t.Errorf("Error = %+v, want nil", resp.Error)
	}

	resp = New().Error(fmt.Errorf("plain failure")).Build()
	if resp.Error == nil || resp.Error.Message != "plain failure" || resp.Error.Code != "" {
		t.Errorf("Error = %+v", resp.Error)
	}

	coded := cmerrors.Newf(cmerrors.UnsupportedKind, "unsupported diagram kind %q", "flowchart")
	resp = New().Error(fmt.Errorf("generate: %w", coded)).Build()
	if resp.Error.Code != string(cmerrors.UnsupportedKind) {
		t.Errorf("Error.Code = %q, want %q", resp.Error.Code, cmerrors.UnsupportedKind)
	}
}

func TestOperational(t *testing.T) {
	resp := Operational(map[string]int{"removed": 3})
	if resp.Meta == nil || resp.Meta.Confidence == nil {
		t.Fatal("Operational response should carry confidence")
	}
	if resp.Meta.Confidence.Tier != TierHigh || resp.Meta.Confidence.Score != 1.0 {
		t.Errorf("Confidence = %+v", resp.Meta.Confidence)
	}
}

func TestResponseJSONSerialization(t *testing.T) {
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	resp := New().
		Data(map[string]string{"diagram_type": "uml"}).
		FromCoverage(Coverage{Analyzed: 2}).
		WithProvenance("repo-1", "run-1", "python_classes").
		WithCache(false, true, "k", now, now).
		Build()

	b, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var back map[string]interface{}
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	for _, key := range []string{"schemaVersion", "data", "meta"} {
		if _, ok := back[key]; !ok {
			t.Errorf("missing %q in %s", key, b)
		}
	}
	meta := back["meta"].(map[string]interface{})
	prov := meta["provenance"].(map[string]interface{})
	if prov["scope"] != "repo-1" || prov["runId"] != "run-1" {
		t.Errorf("provenance = %v", prov)
	}
	if _, ok := back["error"]; ok {
		t.Error("error should be omitted")
	}
}
