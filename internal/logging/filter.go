package logging

import (
	"io"
	"regexp"

	"github.com/rs/zerolog"
)

// RedactedValue replaces sensitive data.
const RedactedValue = "[REDACTED]"

var (
	// A complete PEM private key block, including JSON-escaped newlines.
	privateKeyBlock = regexp.MustCompile(`-----BEGIN[A-Z0-9 ]*PRIVATE KEY-----(?s:.*?)-----END[A-Z0-9 ]*PRIVATE KEY-----`)
	// A dangling header, e.g. a truncated block.
	privateKeyHeader = regexp.MustCompile(`-----BEGIN[A-Z0-9 ]*PRIVATE KEY-----`)
)

// ContainsSensitiveData reports whether s holds private key material.
func ContainsSensitiveData(s string) bool {
	return privateKeyHeader.MatchString(s)
}

// FilterSensitiveValue redacts private key blocks in s.
func FilterSensitiveValue(s string) string {
	s = privateKeyBlock.ReplaceAllString(s, RedactedValue)
	return privateKeyHeader.ReplaceAllString(s, RedactedValue)
}

// SensitiveDataHook flags events whose message carried key material. The
// message itself is redacted by the FilteringWriter.
type SensitiveDataHook struct{}

func NewSensitiveDataHook() *SensitiveDataHook {
	return &SensitiveDataHook{}
}

func (h *SensitiveDataHook) Run(e *zerolog.Event, _ zerolog.Level, msg string) {
	if ContainsSensitiveData(msg) {
		e.Bool("contains_filtered_data", true)
	}
}

// FilteringWriter redacts sensitive data before it reaches w.
type FilteringWriter struct {
	w io.Writer
}

func NewFilteringWriter(w io.Writer) *FilteringWriter {
	return &FilteringWriter{w: w}
}

// Write reports len(p) on success so callers never see a short write.
func (fw *FilteringWriter) Write(p []byte) (int, error) {
	if _, err := fw.w.Write([]byte(FilterSensitiveValue(string(p)))); err != nil {
		return 0, err
	}
	return len(p), nil
}
