package watch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScanDiagnostic(t *testing.T) {
	tests := []struct {
		name      string
		console   string
		wantLine  string
		wantFound bool
	}{
		{
			name:      "skips command echo and takes last match",
			console:   "curl http://x/info\n{\"status\":\"ok\"}\nHello World\n200 OK done",
			wantLine:  "200 OK done",
			wantFound: true,
		},
		{
			name:      "no candidate lines",
			console:   "Started by user admin\nBuilding in workspace\nFinished: SUCCESS",
			wantLine:  DefaultSentinel,
			wantFound: false,
		},
		{
			name:      "empty console",
			console:   "",
			wantLine:  DefaultSentinel,
			wantFound: false,
		},
		{
			name:      "command marker matched case-insensitively",
			console:   "+ sudo CURL http://localhost:5000/info {}\nFinished: SUCCESS",
			wantLine:  DefaultSentinel,
			wantFound: false,
		},
		{
			name:      "last candidate wins over first",
			console:   "Hello from pytest\nsome noise\n{\"message\": \"Hello, World!\"}\nFinished: SUCCESS",
			wantLine:  "{\"message\": \"Hello, World!\"}",
			wantFound: true,
		},
		{
			name:      "candidate is trimmed and CRLF tolerated",
			console:   "step one\r\n   HTTP/1.1 200 OK   \r\nFinished: SUCCESS\r\n",
			wantLine:  "HTTP/1.1 200 OK",
			wantFound: true,
		},
		{
			name:      "bare carriage return separates command echo from response",
			console:   "+ curl http://x/info\r{\"status\":\"ok\"}\n",
			wantLine:  "{\"status\":\"ok\"}",
			wantFound: true,
		},
		{
			name:      "form feed and unicode line separators split lines",
			console:   "curl -s http://x\fHello there\u2028noise\u0085curl again {}",
			wantLine:  "Hello there",
			wantFound: true,
		},
		{
			name:      "markers are case-sensitive",
			console:   "hello world\n200 ok",
			wantLine:  DefaultSentinel,
			wantFound: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line, found := DefaultExtractor().ScanDiagnostic(tt.console)
			assert.Equal(t, tt.wantLine, line)
			assert.Equal(t, tt.wantFound, found)
		})
	}
}

func TestExtract_Verdict(t *testing.T) {
	console := "curl http://x/info\nHello World"

	tests := []struct {
		declared  string
		succeeded bool
	}{
		{"SUCCESS", true},
		{"FAILURE", false},
		{"UNSTABLE", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.declared, func(t *testing.T) {
			got := DefaultExtractor().Extract(console, tt.declared)
			assert.Equal(t, tt.succeeded, got.Succeeded)
			assert.Equal(t, tt.declared, got.Verdict)
			assert.Equal(t, "Hello World", got.DiagnosticLine)
			assert.True(t, got.Found)
		})
	}
}

func TestExtractor_Custom(t *testing.T) {
	e := Extractor{
		CommandMarker: "wget",
		Markers:       []string{"READY"},
		Sentinel:      "nothing captured",
	}

	line, found := e.ScanDiagnostic("wget -qO- http://app/ READY\nservice READY\ncurl READY")
	assert.True(t, found)
	assert.Equal(t, "curl READY", line)

	line, found = e.ScanDiagnostic("no markers here")
	assert.False(t, found)
	assert.Equal(t, "nothing captured", line)
}

func TestExtractor_EmptyCommandMarkerSkipsNothing(t *testing.T) {
	e := Extractor{Markers: []string{"{"}}

	line, found := e.ScanDiagnostic("curl -d '{}' http://x")
	assert.True(t, found)
	assert.Equal(t, "curl -d '{}' http://x", line)
}

func TestExtractor_EmptySentinelFallsBack(t *testing.T) {
	e := Extractor{CommandMarker: "curl", Markers: []string{"Hello"}}

	line, found := e.ScanDiagnostic("nothing")
	assert.False(t, found)
	assert.Equal(t, DefaultSentinel, line)
}

func TestDefaultExtractor_CopiesMarkers(t *testing.T) {
	e := DefaultExtractor()
	e.Markers[0] = "changed"

	assert.Equal(t, "Hello", DefaultMarkers[0])
}

func TestSplitLines(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"empty", "", nil},
		{"trailing newline", "a\nb\n", []string{"a", "b"}},
		{"crlf is one break", "a\r\nb", []string{"a", "b"}},
		{"bare cr", "a\rb\r", []string{"a", "b"}},
		{"blank lines kept", "a\n\nb", []string{"a", "", "b"}},
		{"vertical tab and separators", "a\vb\x1cc\x1dd\x1ee", []string{"a", "b", "c", "d", "e"}},
		{"paragraph separator", "a\u2029b", []string{"a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, splitLines(tt.text))
		})
	}
}
