package position

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

// Format is the on-disk layout of a recorded track.
type Format int

const (
	FormatJSONLines Format = iota // {"lat":..,"lng":..,"accuracy":..} per line
	FormatCSV                     // lat,lng[,accuracy] per line
)

// ReplaySource hands out one recorded fix per call. Blank lines and lines
// starting with # are skipped. Once the track is exhausted every call
// returns ErrPositionUnavailable.
type ReplaySource struct {
	mu      sync.Mutex
	scanner *bufio.Scanner
	format  Format
	line    int
	closer  io.Closer
}

// NewReplaySource reads a track from r.
func NewReplaySource(r io.Reader, format Format) *ReplaySource {
	return &ReplaySource{scanner: bufio.NewScanner(r), format: format}
}

// OpenReplay opens a track file. Files ending in .csv are read as CSV,
// anything else as JSON lines.
func OpenReplay(path string) (*ReplaySource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open track: %w", err)
	}
	format := FormatJSONLines
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		format = FormatCSV
	}
	src := NewReplaySource(f, format)
	src.closer = f
	return src, nil
}

// Close releases the underlying file, if any.
func (s *ReplaySource) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

func (s *ReplaySource) Current(ctx context.Context) (Fix, error) {
	if err := ctx.Err(); err != nil {
		return Fix{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for s.scanner.Scan() {
		s.line++
		text := strings.TrimSpace(s.scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fix, err := s.parse(text)
		if err != nil {
			return Fix{}, fmt.Errorf("%w: line %d: %v", ErrPositionUnavailable, s.line, err)
		}
		if err := fix.Validate(); err != nil {
			return Fix{}, fmt.Errorf("%w: line %d: %v", ErrPositionUnavailable, s.line, err)
		}
		return fix, nil
	}
	if err := s.scanner.Err(); err != nil {
		return Fix{}, fmt.Errorf("%w: %v", ErrPositionUnavailable, err)
	}
	return Fix{}, fmt.Errorf("%w: track exhausted", ErrPositionUnavailable)
}

func (s *ReplaySource) parse(text string) (Fix, error) {
	if s.format == FormatJSONLines {
		var f Fix
		err := json.Unmarshal([]byte(text), &f)
		return f, err
	}

	parts := strings.Split(text, ",")
	if len(parts) < 2 || len(parts) > 3 {
		return Fix{}, fmt.Errorf("want 2 or 3 fields, got %d", len(parts))
	}
	vals := make([]float64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return Fix{}, err
		}
		vals[i] = v
	}
	f := Fix{Lat: vals[0], Lng: vals[1]}
	if len(vals) == 3 {
		f.Accuracy = &vals[2]
	}
	return f, nil
}
