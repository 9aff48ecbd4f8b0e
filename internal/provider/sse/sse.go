// Package sse reads data payloads out of a server-sent-event byte stream,
// one event per line.
package sse

import (
	"bufio"
	"io"
	"strings"
)

const dataPrefix = "data: "

const (
	initialBufferSize = 64 * 1024
	maxEventSize      = 1024 * 1024
)

// Scanner iterates over the data payloads of an SSE stream. Lines without a
// data prefix (comments, event names, keep-alives) are skipped.
type Scanner struct {
	scanner *bufio.Scanner
}

// NewScanner wraps the response body of a streaming call.
func NewScanner(r io.Reader) *Scanner {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, initialBufferSize), maxEventSize)
	return &Scanner{scanner: s}
}

// Next returns the next data payload, or io.EOF when the stream ends.
func (s *Scanner) Next() (string, error) {
	for s.scanner.Scan() {
		line := strings.TrimSpace(s.scanner.Text())
		if !strings.HasPrefix(line, dataPrefix) {
			continue
		}
		return line[len(dataPrefix):], nil
	}

	if err := s.scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}
