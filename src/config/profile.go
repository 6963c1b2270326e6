package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"buildwatch-agent/src/watch"
)

// Profile tunes how a watch scans console output and how long it waits.
// It is loaded from YAML:
//
//	command_marker: curl
//	markers: ["Hello", "{", "}", "200 OK"]
//	sentinel: Curl response not captured.
//	max_wait: 5m
//	poll_interval: 5s
//	strip_ansi: true
//
// Unset fields keep their defaults.
type Profile struct {
	CommandMarker string   `yaml:"command_marker"`
	Markers       []string `yaml:"markers"`
	Sentinel      string   `yaml:"sentinel"`
	MaxWait       Duration `yaml:"max_wait"`
	PollInterval  Duration `yaml:"poll_interval"`
	StripANSI     *bool    `yaml:"strip_ansi"`
}

// Duration is a time.Duration that unmarshals from whole seconds or a Go
// duration string.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := ParseDuration(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*d = Duration(parsed)
	return nil
}

// LoadProfile reads a profile from a YAML file.
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}
	return ParseProfile(data)
}

// ParseProfile decodes a YAML profile. Unknown keys are rejected.
func ParseProfile(data []byte) (*Profile, error) {
	var p Profile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to parse profile: %w", err)
	}
	return &p, nil
}

// Apply overlays the profile's durations onto cfg.
func (p *Profile) Apply(cfg *Config) {
	if p.MaxWait > 0 {
		cfg.MaxWait = time.Duration(p.MaxWait)
	}
	if p.PollInterval > 0 {
		cfg.PollInterval = time.Duration(p.PollInterval)
	}
}

// KeepANSI reports whether escape codes should be left in console text.
func (p *Profile) KeepANSI() bool {
	return p.StripANSI != nil && !*p.StripANSI
}

// Extractor returns the watch extractor described by the profile, with
// defaults for anything unset.
func (p *Profile) Extractor() watch.Extractor {
	e := watch.DefaultExtractor()
	if p.CommandMarker != "" {
		e.CommandMarker = p.CommandMarker
	}
	if len(p.Markers) > 0 {
		e.Markers = append([]string(nil), p.Markers...)
	}
	if p.Sentinel != "" {
		e.Sentinel = p.Sentinel
	}
	return e
}
