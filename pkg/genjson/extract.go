// Package genjson extracts JSON payloads from generative-model output,
// which is not reliably well-formed: models wrap JSON in code fences,
// add commentary, use curly quotes, or slip into other languages'
// literal spellings. Extraction is layered and parsing is strict first,
// tolerant second.
package genjson

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

// ErrNoObject means no parseable JSON object was found in the text.
var ErrNoObject = errors.New("genjson: no JSON object found")

var fenceRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.+?)\\s*```")

// Extract pulls the most plausible JSON candidate out of raw model
// text. Preference order: a fenced code block's contents, then the
// substring from the first "{" to the last "}", then the whole text.
func Extract(text string) string {
	if m := fenceRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start != -1 && end > start {
		return text[start : end+1]
	}
	return strings.TrimSpace(text)
}

var (
	smartQuoteReplacer = strings.NewReplacer(
		"“", `"`, "”", `"`,
		"‘", "'", "’", "'",
	)
	singleQuotedRe  = regexp.MustCompile(`'([^'"\n\\]*)'`)
	pyTrueRe        = regexp.MustCompile(`\bTrue\b`)
	pyFalseRe       = regexp.MustCompile(`\bFalse\b`)
	pyNoneRe        = regexp.MustCompile(`\b(?:None|nil)\b`)
	trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)
	leadingPlusRe   = regexp.MustCompile(`([:\[,]\s*)\+(\d)`)
)

// Normalize applies best-effort textual repairs to a candidate that
// failed strict parsing: straighten smart quotes, convert single-quoted
// literals to double-quoted, canonicalize True/False/None spellings,
// drop trailing commas, and strip the leading "+" from signed numbers.
func Normalize(candidate string) string {
	out := smartQuoteReplacer.Replace(candidate)
	out = singleQuotedRe.ReplaceAllString(out, `"$1"`)
	out = pyTrueRe.ReplaceAllString(out, "true")
	out = pyFalseRe.ReplaceAllString(out, "false")
	out = pyNoneRe.ReplaceAllString(out, "null")
	out = trailingCommaRe.ReplaceAllString(out, "$1")
	out = leadingPlusRe.ReplaceAllString(out, "${1}$2")
	return out
}

// Unmarshal extracts a JSON object from raw model text and decodes it
// into v. A strict parse is attempted first; on failure the candidate
// is normalized and parsed exactly once more. Any remaining failure
// returns ErrNoObject wrapped with the strict error.
func Unmarshal(text string, v any) error {
	candidate := Extract(text)
	if candidate == "" {
		return ErrNoObject
	}
	strictErr := json.Unmarshal([]byte(candidate), v)
	if strictErr == nil {
		return nil
	}
	if err := json.Unmarshal([]byte(Normalize(candidate)), v); err == nil {
		return nil
	}
	return errors.Join(ErrNoObject, strictErr)
}
