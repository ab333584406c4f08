// Package notation parses NCCN test case notation such as
//
//	POS: PHX: Prostate Cancer, Gleason 8 (aggressive)
//	NEG: FDR: Breast Cancer, age 45 AND SDR: Ovarian Cancer
//
// into structured entries a tester can enter into an assessment form.
package notation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Expected outcomes
const (
	OutcomePositive   = "positive"
	OutcomeNegative   = "negative"
	OutcomeDeprecated = "deprecated"
	OutcomeUnknown    = "unknown"
)

// Condition is one cancer diagnosis within an entry
type Condition struct {
	CancerType      string `json:"cancer_type"`
	AgeDiagnosed    *int   `json:"age_diagnosed,omitempty"`
	GleasonScore    *int   `json:"gleason_score,omitempty"`
	Aggressive      *bool  `json:"is_aggressive,omitempty"`
	Metastatic      *bool  `json:"is_metastatic,omitempty"`
	AdditionalNotes string `json:"additional_notes,omitempty"`
}

// Entry is the patient or one relative with their conditions
type Entry struct {
	Relationship     string      `json:"relationship"`
	RelationshipType string      `json:"relationship_type"`
	SameRelative     bool        `json:"is_same_relative"`
	Conditions       []Condition `json:"conditions"`
}

// ParsedTestCase is the structured form of a notation string
type ParsedTestCase struct {
	ExpectedOutcome string   `json:"expected_outcome"`
	TargetRule      string   `json:"target_rule,omitempty"`
	Platform        string   `json:"platform,omitempty"`
	RawNotation     string   `json:"raw_notation"`
	Entries         []Entry  `json:"entries"`
	ParseErrors     []string `json:"parse_errors,omitempty"`
}

// ValidationResult reports notation quality problems
type ValidationResult struct {
	Valid    bool            `json:"valid"`
	Errors   []string        `json:"errors"`
	Warnings []string        `json:"warnings"`
	Parsed   *ParsedTestCase `json:"parsed,omitempty"`
}

var relationshipTypes = map[string]string{
	"PHX":     "patient",
	"PATIENT": "patient",
	"FDR":     "first_degree",
	"SDR":     "second_degree",
	"TDR":     "third_degree",
}

var outcomes = map[string]string{
	"POS":        OutcomePositive,
	"POSITIVE":   OutcomePositive,
	"NEG":        OutcomeNegative,
	"NEGATIVE":   OutcomeNegative,
	"DEP":        OutcomeDeprecated,
	"DEPRECATED": OutcomeDeprecated,
}

// cancerTypes maps notation spellings to canonical cancer types
var cancerTypes = map[string]string{
	"PROSTATE":           "Prostate",
	"PROSTATE CANCER":    "Prostate",
	"BREAST":             "Breast",
	"BREAST CANCER":      "Breast",
	"MALE BREAST":        "Male Breast",
	"MALE BREAST CANCER": "Male Breast",
	"COLON":              "Colorectal",
	"COLON CANCER":       "Colorectal",
	"COLORECTAL":         "Colorectal",
	"COLORECTAL CANCER":  "Colorectal",
	"RECTAL":             "Colorectal",
	"OVARIAN":            "Ovarian",
	"OVARIAN CANCER":     "Ovarian",
	"OVARY":              "Ovarian",
	"ENDOMETRIAL":        "Endometrial",
	"ENDOMETRIAL CANCER": "Endometrial",
	"UTERINE":            "Endometrial",
	"PANCREATIC":         "Pancreatic",
	"PANCREATIC CANCER":  "Pancreatic",
	"PANCREAS":           "Pancreatic",
	"RENAL":              "Kidney",
	"RENAL CANCER":       "Kidney",
	"KIDNEY":             "Kidney",
	"KIDNEY CANCER":      "Kidney",
	"MESOTHELIOMA":       "Mesothelioma",
	"UVEAL MELANOMA":     "Uveal Melanoma",
	"MELANOMA OF EYE":    "Uveal Melanoma",
	"EYE MELANOMA":       "Uveal Melanoma",
	"GASTRIC":            "Gastric",
	"GASTRIC CANCER":     "Gastric",
	"STOMACH":            "Gastric",
}

var (
	outcomeRe       = regexp.MustCompile(`(?i)^(POSITIVE|NEGATIVE|DEPRECATED|POS|NEG|DEP)\s*:\s*`)
	andRe           = regexp.MustCompile(`(?i)\s+AND\s+`)
	entryRe         = regexp.MustCompile(`(?i)^(PHX|FDR|SDR|TDR|PATIENT)\s*:\s*(.+)$`)
	notesRe         = regexp.MustCompile(`\(([^)]+)\)`)
	ageRe           = regexp.MustCompile(`(?i)age[:\s]+(\d+)`)
	gleasonRe       = regexp.MustCompile(`(?i)gleason[:\s]*(?:score[:\s]*)?\s*(\d+)`)
	stripAgeRe      = regexp.MustCompile(`(?i),?\s*age[:\s]+\d+`)
	stripGleasonRe  = regexp.MustCompile(`(?i),?\s*gleason[:\s]*(?:score[:\s]*)?\s*\d+`)
	trailingCommaRe = regexp.MustCompile(`\s*,\s*$`)
)

// Parse converts notation into a ParsedTestCase. Problems are collected
// in ParseErrors rather than failing the parse.
func Parse(notation, targetRule, platform string) *ParsedTestCase {
	result := &ParsedTestCase{
		ExpectedOutcome: OutcomeUnknown,
		TargetRule:      targetRule,
		Platform:        platform,
		RawNotation:     notation,
	}

	notation = strings.TrimSpace(notation)
	if notation == "" {
		result.ParseErrors = append(result.ParseErrors, "empty notation string")
		return result
	}

	remainder := notation
	if m := outcomeRe.FindStringSubmatchIndex(notation); m != nil {
		result.ExpectedOutcome = outcomes[strings.ToUpper(notation[m[2]:m[3]])]
		remainder = strings.TrimSpace(notation[m[1]:])
	}
	if remainder == "" {
		result.ParseErrors = append(result.ParseErrors, "no conditions found after outcome")
		return result
	}

	for _, part := range andRe.Split(remainder, -1) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		result.Entries = append(result.Entries, parseEntry(part))
	}
	return result
}

func parseEntry(s string) Entry {
	var entry Entry
	if len(s) > 5 && strings.EqualFold(s[:5], "same ") {
		entry.SameRelative = true
		s = strings.TrimSpace(s[5:])
	}

	m := entryRe.FindStringSubmatch(s)
	if m == nil {
		// No relationship prefix means the patient's own history
		entry.Relationship = "PHX"
		entry.RelationshipType = relationshipTypes["PHX"]
		entry.Conditions = []Condition{parseCondition(s)}
		return entry
	}

	entry.Relationship = strings.ToUpper(m[1])
	entry.RelationshipType = relationshipTypes[entry.Relationship]
	entry.Conditions = []Condition{parseCondition(strings.TrimSpace(m[2]))}
	return entry
}

func parseCondition(s string) Condition {
	cond := Condition{CancerType: "Unknown"}
	if s == "" {
		return cond
	}

	if loc := notesRe.FindStringSubmatchIndex(s); loc != nil {
		cond.AdditionalNotes = s[loc[2]:loc[3]]
		notes := strings.ToLower(cond.AdditionalNotes)
		switch {
		case strings.Contains(notes, "non-aggressive"), strings.Contains(notes, "non aggressive"):
			cond.Aggressive = boolPtr(false)
		case strings.Contains(notes, "aggressive"):
			cond.Aggressive = boolPtr(true)
		}
		if strings.Contains(notes, "metastatic") {
			cond.Metastatic = boolPtr(true)
		}
		s = s[:loc[0]] + s[loc[1]:]
	}

	if m := ageRe.FindStringSubmatch(s); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			cond.AgeDiagnosed = &n
		}
	}
	if m := gleasonRe.FindStringSubmatch(s); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			cond.GleasonScore = &n
			if cond.Aggressive == nil && n >= 7 {
				cond.Aggressive = boolPtr(true)
			}
		}
	}

	name := stripAgeRe.ReplaceAllString(s, "")
	name = stripGleasonRe.ReplaceAllString(name, "")
	name = strings.TrimSpace(trailingCommaRe.ReplaceAllString(name, ""))
	if name == "" {
		return cond
	}
	if canonical, ok := cancerTypes[strings.ToUpper(name)]; ok {
		cond.CancerType = canonical
	} else {
		cond.CancerType = name
	}
	return cond
}

// Validate parses notation and reports errors (unusable notation) and
// warnings (parseable but suspect).
func Validate(notation string) *ValidationResult {
	result := &ValidationResult{Valid: true, Errors: []string{}, Warnings: []string{}}
	if strings.TrimSpace(notation) == "" {
		result.Valid = false
		result.Errors = append(result.Errors, "notation is empty")
		return result
	}

	parsed := Parse(notation, "", "")
	result.Warnings = append(result.Warnings, parsed.ParseErrors...)
	if parsed.ExpectedOutcome == OutcomeUnknown {
		result.Warnings = append(result.Warnings, "no POS/NEG outcome prefix found")
	}
	if len(parsed.Entries) == 0 {
		result.Valid = false
		result.Errors = append(result.Errors, "no conditions/entries found in notation")
		return result
	}

	for i, entry := range parsed.Entries {
		if len(entry.Conditions) == 0 {
			result.Warnings = append(result.Warnings, fmt.Sprintf("entry %d has no conditions", i+1))
			continue
		}
		for j, cond := range entry.Conditions {
			if cond.CancerType == "Unknown" {
				result.Warnings = append(result.Warnings,
					fmt.Sprintf("entry %d, condition %d: unknown cancer type", i+1, j+1))
			}
		}
	}
	result.Parsed = parsed
	return result
}

// Describe renders a parsed test case as indented text for the CLI
func Describe(p *ParsedTestCase) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Expected outcome: %s\n", p.ExpectedOutcome)
	if p.TargetRule != "" {
		fmt.Fprintf(&b, "Rule: %s\n", p.TargetRule)
	}
	if p.Platform != "" {
		fmt.Fprintf(&b, "Platform: %s\n", p.Platform)
	}
	for i, e := range p.Entries {
		same := ""
		if e.SameRelative {
			same = " (same relative)"
		}
		fmt.Fprintf(&b, "%d. %s [%s]%s\n", i+1, e.Relationship, e.RelationshipType, same)
		for _, c := range e.Conditions {
			fmt.Fprintf(&b, "   - %s", c.CancerType)
			if c.AgeDiagnosed != nil {
				fmt.Fprintf(&b, ", age %d", *c.AgeDiagnosed)
			}
			if c.GleasonScore != nil {
				fmt.Fprintf(&b, ", Gleason %d", *c.GleasonScore)
			}
			if c.Aggressive != nil {
				if *c.Aggressive {
					b.WriteString(", aggressive")
				} else {
					b.WriteString(", non-aggressive")
				}
			}
			if c.Metastatic != nil && *c.Metastatic {
				b.WriteString(", metastatic")
			}
			b.WriteString("\n")
		}
	}
	for _, e := range p.ParseErrors {
		fmt.Fprintf(&b, "! %s\n", e)
	}
	return b.String()
}

func boolPtr(b bool) *bool { return &b }
