package services

import (
	"encoding/json"
	"log"
	"regexp"
	"strconv"
	"strings"

	"tripforge/internal/models/domain_models"
	"tripforge/pkg/utils"
)

// SanitizeResult carries the recovered activities plus the indices of
// objects that were individually unparseable and had to be dropped. The
// dropped list is telemetry, not an error: one bad item never fails the
// batch.
type SanitizeResult struct {
	Activities     []domain_models.RawActivity
	DroppedIndices []int
}

type SanitizerServiceInterface interface {
	Sanitize(raw string) (SanitizeResult, error)
}

type SanitizerService struct{}

func NewSanitizerService() SanitizerServiceInterface {
	return &SanitizerService{}
}

// repairStep is one pure string->string transform. Steps run in declared
// order and each one is idempotent, so running the whole chain on its own
// output changes nothing.
type repairStep struct {
	name  string
	apply func(string) string
}

var (
	controlCharRe    = regexp.MustCompile("[\x00-\x08\x0b\x0c\x0e-\x1f]")
	bareUndefinedRe  = regexp.MustCompile(`([:\[,]\s*)undefined`)
	bareNonNumericRe = regexp.MustCompile(`([:\[,]\s*)(?:-Infinity|Infinity|NaN)`)
	numericRangeRe   = regexp.MustCompile(`(:\s*)"?(\d+(?:\.\d+)?)\s*-\s*(\d+(?:\.\d+)?)"?(\s*[,}\]])`)
	singleQuotedRe   = regexp.MustCompile(`([:{,\[]\s*)'((?:[^'\\]|\\.)*)'`)
	// The value-start class after the colon keeps prose like "then: go"
	// inside descriptions from being mistaken for an object key.
	unquotedKeyRe = regexp.MustCompile(`([{,]\s*)([A-Za-z_][A-Za-z0-9_]*)\s*:(\s*[\[{"0-9tfn-])`)
	duplicateCommaRe = regexp.MustCompile(`,\s*,`)
	trailingCommaRe  = regexp.MustCompile(`,(\s*[}\]])`)
	leadingCommaRe   = regexp.MustCompile(`([{\[])\s*,`)
	adjacentObjRe    = regexp.MustCompile(`}\s*{`)
	adjacentArrRe    = regexp.MustCompile(`]\s*\[`)
	multiSpaceRe     = regexp.MustCompile(`  +`)
)

var repairSteps = []repairStep{
	{"strip_code_fences", func(s string) string {
		s = strings.ReplaceAll(s, "```json", "")
		s = strings.ReplaceAll(s, "```JSON", "")
		s = strings.ReplaceAll(s, "```", "")
		return controlCharRe.ReplaceAllString(s, "")
	}},
	{"normalize_whitespace", func(s string) string {
		// LLMs interleave prose with JSON; one line makes every later
		// regex position-stable.
		s = strings.NewReplacer("\r", " ", "\n", " ", "\t", " ").Replace(s)
		return strings.TrimSpace(multiSpaceRe.ReplaceAllString(s, " "))
	}},
	{"replace_bare_tokens", func(s string) string {
		s = bareUndefinedRe.ReplaceAllString(s, "${1}null")
		return bareNonNumericRe.ReplaceAllString(s, "${1}0")
	}},
	{"average_numeric_ranges", averageNumericRanges},
	{"normalize_quotes", func(s string) string {
		s = strings.NewReplacer("“", `"`, "”", `"`, "„", `"`, "‘", "'", "’", "'").Replace(s)
		s = singleQuotedRe.ReplaceAllString(s, `$1"$2"`)
		return unquotedKeyRe.ReplaceAllString(s, `$1"$2":$3`)
	}},
	{"remove_comma_noise", func(s string) string {
		for {
			next := duplicateCommaRe.ReplaceAllString(s, ",")
			if next == s {
				break
			}
			s = next
		}
		s = trailingCommaRe.ReplaceAllString(s, "$1")
		return leadingCommaRe.ReplaceAllString(s, "$1")
	}},
	{"fix_adjacent_boundaries", func(s string) string {
		s = adjacentObjRe.ReplaceAllString(s, "},{")
		return adjacentArrRe.ReplaceAllString(s, "],[")
	}},
}

// Sanitize repairs near-JSON text and extracts the activity list. It fails
// with ErrParse only when not a single object can be recovered.
func (s *SanitizerService) Sanitize(raw string) (SanitizeResult, error) {
	if strings.TrimSpace(raw) == "" {
		return SanitizeResult{}, utils.ErrParse
	}

	cleaned := raw
	for _, step := range repairSteps {
		cleaned = step.apply(cleaned)
	}

	// Attempt 1: the whole text is the payload.
	if activities, ok := parseActivityPayload(cleaned); ok {
		return SanitizeResult{Activities: activities}, nil
	}

	// Attempt 2: locate the {"activities": [...]} array by bracket matching
	// and parse only that substring.
	if region, ok := locateActivitiesArray(cleaned); ok {
		var activities []domain_models.RawActivity
		if err := json.Unmarshal([]byte(region), &activities); err == nil {
			return SanitizeResult{Activities: activities}, nil
		}
		cleaned = region
	}

	// Attempt 3: split into individual {...} objects and keep whatever
	// parses, recording the rest for telemetry.
	result := salvageObjects(cleaned)
	if len(result.Activities) == 0 {
		return SanitizeResult{}, utils.ErrParse
	}
	if len(result.DroppedIndices) > 0 {
		log.Printf("sanitizer: dropped %d unparseable object(s) at %v", len(result.DroppedIndices), result.DroppedIndices)
	}
	return result, nil
}

func averageNumericRanges(s string) string {
	return numericRangeRe.ReplaceAllStringFunc(s, func(m string) string {
		parts := numericRangeRe.FindStringSubmatch(m)
		lo, err1 := strconv.ParseFloat(parts[2], 64)
		hi, err2 := strconv.ParseFloat(parts[3], 64)
		if err1 != nil || err2 != nil {
			return m
		}
		avg := (lo + hi) / 2
		return parts[1] + strconv.FormatFloat(avg, 'f', -1, 64) + parts[4]
	})
}

// parseActivityPayload tries the two documented top-level shapes: an object
// with an "activities" array, or a bare array.
func parseActivityPayload(s string) ([]domain_models.RawActivity, bool) {
	trimmed := strings.TrimSpace(s)
	if strings.HasPrefix(trimmed, "{") {
		var wrapper struct {
			Activities []domain_models.RawActivity `json:"activities"`
		}
		if err := json.Unmarshal([]byte(trimmed), &wrapper); err == nil && len(wrapper.Activities) > 0 {
			return wrapper.Activities, true
		}
		return nil, false
	}
	if strings.HasPrefix(trimmed, "[") {
		var activities []domain_models.RawActivity
		if err := json.Unmarshal([]byte(trimmed), &activities); err == nil && len(activities) > 0 {
			return activities, true
		}
	}
	return nil, false
}

// locateActivitiesArray finds the array value of an "activities" key in
// arbitrary surrounding text.
func locateActivitiesArray(s string) (string, bool) {
	keyIdx := strings.Index(s, `"activities"`)
	if keyIdx == -1 {
		return "", false
	}
	arrStart := strings.Index(s[keyIdx:], "[")
	if arrStart == -1 {
		return "", false
	}
	arrStart += keyIdx
	arrEnd := findMatchingBracket(s, arrStart)
	if arrEnd == -1 {
		return "", false
	}
	return s[arrStart : arrEnd+1], true
}

// anchor fields that mark a chunk of text as an activity object rather
// than some other structure the LLM wrapped around it.
var activityAnchors = []string{`"dayNumber"`, `"day"`, `"timeSlot"`, `"name"`}

func salvageObjects(s string) SanitizeResult {
	var result SanitizeResult
	idx := 0
	for pos := 0; pos < len(s); {
		start := strings.Index(s[pos:], "{")
		if start == -1 {
			break
		}
		start += pos
		end := findMatchingBrace(s, start)
		if end == -1 {
			break
		}
		candidate := s[start : end+1]

		// A wrapper like {"activities": [...]} is not itself an activity;
		// descend into it instead of treating it as one.
		if strings.Contains(candidate, `"activities"`) {
			pos = start + 1
			continue
		}
		pos = end + 1

		if !hasActivityAnchor(candidate) {
			continue
		}

		var activity domain_models.RawActivity
		if err := json.Unmarshal([]byte(candidate), &activity); err != nil {
			result.DroppedIndices = append(result.DroppedIndices, idx)
		} else {
			result.Activities = append(result.Activities, activity)
		}
		idx++
	}
	return result
}

func hasActivityAnchor(s string) bool {
	for _, anchor := range activityAnchors {
		if strings.Contains(s, anchor) {
			return true
		}
	}
	return false
}

// findMatchingBrace finds the matching closing brace for an opening brace
func findMatchingBrace(s string, start int) int {
	return findMatching(s, start, '{', '}')
}

// findMatchingBracket finds the matching closing bracket for an opening bracket
func findMatchingBracket(s string, start int) int {
	return findMatching(s, start, '[', ']')
}

func findMatching(s string, start int, open, closing byte) int {
	if start >= len(s) || s[start] != open {
		return -1
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		char := s[i]

		if escaped {
			escaped = false
			continue
		}
		if char == '\\' && inString {
			escaped = true
			continue
		}
		if char == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}

		switch char {
		case open:
			depth++
		case closing:
			depth--
			if depth == 0 {
				return i
			}
		}
	}

	return -1
}
