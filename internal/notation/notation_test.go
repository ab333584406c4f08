package notation

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(n int) *int { return &n }

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		notation string
		outcome  string
		entries  []Entry
	}{
		{
			name:     "patient history with gleason",
			notation: "POS: PHX: Prostate Cancer, Gleason 8 (aggressive)",
			outcome:  OutcomePositive,
			entries: []Entry{{
				Relationship: "PHX", RelationshipType: "patient",
				Conditions: []Condition{{
					CancerType: "Prostate", GleasonScore: intPtr(8),
					Aggressive: boolPtr(true), AdditionalNotes: "aggressive",
				}},
			}},
		},
		{
			name:     "non-aggressive note wins over gleason",
			notation: "NEG: TDR: Prostate, Gleason 5 (non-aggressive)",
			outcome:  OutcomeNegative,
			entries: []Entry{{
				Relationship: "TDR", RelationshipType: "third_degree",
				Conditions: []Condition{{
					CancerType: "Prostate", GleasonScore: intPtr(5),
					Aggressive: boolPtr(false), AdditionalNotes: "non-aggressive",
				}},
			}},
		},
		{
			name:     "two relatives",
			notation: "POS: FDR: Breast Cancer, age 45 AND SDR: Ovarian Cancer",
			outcome:  OutcomePositive,
			entries: []Entry{
				{
					Relationship: "FDR", RelationshipType: "first_degree",
					Conditions: []Condition{{CancerType: "Breast", AgeDiagnosed: intPtr(45)}},
				},
				{
					Relationship: "SDR", RelationshipType: "second_degree",
					Conditions: []Condition{{CancerType: "Ovarian"}},
				},
			},
		},
		{
			name:     "same relative and lowercase and",
			notation: "pos: FDR: Renal Cancer and same FDR: Mesothelioma",
			outcome:  OutcomePositive,
			entries: []Entry{
				{
					Relationship: "FDR", RelationshipType: "first_degree",
					Conditions: []Condition{{CancerType: "Kidney"}},
				},
				{
					Relationship: "FDR", RelationshipType: "first_degree", SameRelative: true,
					Conditions: []Condition{{CancerType: "Mesothelioma"}},
				},
			},
		},
		{
			name:     "high gleason implies aggressive",
			notation: "DEPRECATED: PHX: Prostate, Gleason score: 7",
			outcome:  OutcomeDeprecated,
			entries: []Entry{{
				Relationship: "PHX", RelationshipType: "patient",
				Conditions: []Condition{{CancerType: "Prostate", GleasonScore: intPtr(7), Aggressive: boolPtr(true)}},
			}},
		},
		{
			name:     "missing prefixes default to patient",
			notation: "Uveal Melanoma (metastatic)",
			outcome:  OutcomeUnknown,
			entries: []Entry{{
				Relationship: "PHX", RelationshipType: "patient",
				Conditions: []Condition{{CancerType: "Uveal Melanoma", Metastatic: boolPtr(true), AdditionalNotes: "metastatic"}},
			}},
		},
		{
			name:     "unmapped cancer type kept as written",
			notation: "POS: FDR: Thyroid Cancer",
			outcome:  OutcomePositive,
			entries: []Entry{{
				Relationship: "FDR", RelationshipType: "first_degree",
				Conditions: []Condition{{CancerType: "Thyroid Cancer"}},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.notation, "R1", "P4M")
			assert.Equal(t, tt.outcome, got.ExpectedOutcome)
			assert.Equal(t, "R1", got.TargetRule)
			assert.Equal(t, "P4M", got.Platform)
			assert.Empty(t, got.ParseErrors)
			if diff := cmp.Diff(tt.entries, got.Entries); diff != "" {
				t.Errorf("entries mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	got := Parse("   ", "", "")
	assert.Equal(t, OutcomeUnknown, got.ExpectedOutcome)
	assert.Equal(t, []string{"empty notation string"}, got.ParseErrors)

	got = Parse("POS:", "", "")
	assert.Equal(t, OutcomePositive, got.ExpectedOutcome)
	assert.Equal(t, []string{"no conditions found after outcome"}, got.ParseErrors)
	assert.Empty(t, got.Entries)
}

func TestValidate(t *testing.T) {
	res := Validate("")
	assert.False(t, res.Valid)
	assert.Equal(t, []string{"notation is empty"}, res.Errors)

	res = Validate("POS:")
	assert.False(t, res.Valid)
	assert.Contains(t, res.Errors, "no conditions/entries found in notation")
	assert.Contains(t, res.Warnings, "no conditions found after outcome")

	res = Validate("FDR: Gleason 9")
	assert.True(t, res.Valid)
	assert.Contains(t, res.Warnings, "no POS/NEG outcome prefix found")
	assert.Contains(t, res.Warnings, "entry 1, condition 1: unknown cancer type")

	res = Validate("NEG: PHX: Breast, age 30")
	require.True(t, res.Valid)
	assert.Empty(t, res.Warnings)
	require.NotNil(t, res.Parsed)
	assert.Equal(t, "Breast", res.Parsed.Entries[0].Conditions[0].CancerType)
}

func TestDescribe(t *testing.T) {
	out := Describe(Parse("POS: FDR: Prostate, Gleason 8 AND same FDR: Colon", "R7", ""))
	assert.Contains(t, out, "Expected outcome: positive")
	assert.Contains(t, out, "Rule: R7")
	assert.Contains(t, out, "1. FDR [first_degree]")
	assert.Contains(t, out, "   - Prostate, Gleason 8, aggressive")
	assert.Contains(t, out, "2. FDR [first_degree] (same relative)")
	assert.Contains(t, out, "   - Colorectal")
}
