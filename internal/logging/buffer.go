// Vigia - Video Quality-of-Experience Telemetry SDK for Go
// Copyright 2026 Vigia Labs
// SPDX-License-Identifier: Apache-2.0
// https://github.com/vigialabs/vigia-go

package logging

import (
	"strings"
	"sync"
)

// DefaultBufferSize bounds the number of retained log lines. The backend
// only ever requests "recent" lines, so older entries are evicted first.
const DefaultBufferSize = 256

// Buffer is a bounded ring of formatted log lines. It implements io.Writer
// so it can be attached to the logger as a secondary output; each Write is
// treated as one line. Sessions drain it into the heartbeat payload when
// the backend enables log shipping.
type Buffer struct {
	mu    sync.Mutex
	lines []string
	next  int
	full  bool
}

// NewBuffer returns a Buffer retaining at most size lines.
// A non-positive size falls back to DefaultBufferSize.
func NewBuffer(size int) *Buffer {
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &Buffer{lines: make([]string, size)}
}

// Write records one formatted log line. It never fails.
func (b *Buffer) Write(p []byte) (int, error) {
	line := strings.TrimRight(string(p), "\n")
	b.mu.Lock()
	b.lines[b.next] = line
	b.next++
	if b.next == len(b.lines) {
		b.next = 0
		b.full = true
	}
	b.mu.Unlock()
	return len(p), nil
}

// Lines returns the retained lines, oldest first.
func (b *Buffer) Lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.full {
		out := make([]string, b.next)
		copy(out, b.lines[:b.next])
		return out
	}
	out := make([]string, 0, len(b.lines))
	out = append(out, b.lines[b.next:]...)
	out = append(out, b.lines[:b.next]...)
	return out
}

// Len reports the number of retained lines.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.full {
		return len(b.lines)
	}
	return b.next
}

// Clear discards all retained lines.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.lines {
		b.lines[i] = ""
	}
	b.next = 0
	b.full = false
}
