package watch

import (
	"strings"
	"unicode/utf8"

	"buildwatch-agent/src/provider"
)

const (
	// DefaultCommandMarker identifies lines that echo the probe command
	// itself. Matching is case-insensitive.
	DefaultCommandMarker = "curl"

	// DefaultSentinel is returned as the diagnostic line when nothing matched.
	DefaultSentinel = "Curl response not captured."
)

// DefaultMarkers are the substrings that make a console line a candidate
// diagnostic line: a greeting body, JSON braces, or an HTTP status phrase.
var DefaultMarkers = []string{"Hello", "{", "}", "200 OK"}

// Extractor recovers a verdict and one diagnostic line from console text.
type Extractor struct {
	CommandMarker string   // Lines containing this (any case) are skipped
	Markers       []string // Case-sensitive candidate markers
	Sentinel      string   // Returned when no line matches
}

// DefaultExtractor returns an Extractor configured with the package defaults.
func DefaultExtractor() Extractor {
	markers := make([]string, len(DefaultMarkers))
	copy(markers, DefaultMarkers)
	return Extractor{
		CommandMarker: DefaultCommandMarker,
		Markers:       markers,
		Sentinel:      DefaultSentinel,
	}
}

// Extraction is the outcome of scanning one console log.
type Extraction struct {
	Succeeded      bool   `json:"succeeded"`
	Verdict        string `json:"verdict"`
	DiagnosticLine string `json:"diagnostic_line"`
	Found          bool   `json:"found"` // false when DiagnosticLine is the sentinel
}

// Extract derives the verdict from declaredResult and scans consoleText for
// the diagnostic line. It does no I/O.
func (e Extractor) Extract(consoleText, declaredResult string) Extraction {
	line, found := e.ScanDiagnostic(consoleText)
	return Extraction{
		Succeeded:      provider.ParseResult(declaredResult) == provider.ResultSuccess,
		Verdict:        declaredResult,
		DiagnosticLine: line,
		Found:          found,
	}
}

// ScanDiagnostic returns the LAST non-skipped line containing any marker,
// trimmed. Later sightings overwrite earlier ones on purpose: the probe's
// response is printed after the build noise that precedes it. Marker hits in
// unrelated noise are accepted as false positives.
func (e Extractor) ScanDiagnostic(consoleText string) (string, bool) {
	command := strings.ToLower(e.CommandMarker)

	var candidate string
	found := false
	for _, line := range splitLines(consoleText) {
		if command != "" && strings.Contains(strings.ToLower(line), command) {
			continue
		}
		if e.matches(line) {
			candidate = strings.TrimSpace(line)
			found = true
		}
	}

	if !found {
		return e.sentinel(), false
	}
	return candidate, true
}

func (e Extractor) matches(line string) bool {
	for _, marker := range e.Markers {
		if marker != "" && strings.Contains(line, marker) {
			return true
		}
	}
	return false
}

func (e Extractor) sentinel() string {
	if e.Sentinel == "" {
		return DefaultSentinel
	}
	return e.Sentinel
}

// splitLines breaks text on every line boundary a console may carry: LF, CR,
// CRLF, VT, FF, the FS/GS/RS separators, NEL and the Unicode line and
// paragraph separators. A trailing boundary does not produce an empty line.
func splitLines(text string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		if !isLineBreak(r) {
			i += size
			continue
		}
		lines = append(lines, text[start:i])
		i += size
		if r == '\r' && i < len(text) && text[i] == '\n' {
			i++
		}
		start = i
	}
	if start < len(text) {
		lines = append(lines, text[start:])
	}
	return lines
}

func isLineBreak(r rune) bool {
	switch r {
	case '\n', '\r', '\v', '\f', 0x1c, 0x1d, 0x1e, 0x85, 0x2028, 0x2029:
		return true
	}
	return false
}
