// Package segment parses work-list lines into segment descriptors.
//
// A work-list line names one clip of an external source as
// <SOURCE_ID>_<START_MS>. Source identifiers may themselves contain
// underscores; only the last underscore-delimited field is the offset.
package segment

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultURLPrefix is prepended to a source identifier to build its URL.
const DefaultURLPrefix = "https://www.youtube.com/watch?v="

// Segment describes one clip to download and cut.
type Segment struct {
	SourceID string // External media identifier.
	StartMS  int    // Start offset in milliseconds.

	key string // Raw line without terminator.
}

// Parse converts a raw work-list line (terminator included or not) into a Segment.
func Parse(line string) (Segment, error) {
	raw := strings.TrimRight(line, "\r\n")

	parts := strings.Split(raw, "_")
	if len(parts) < 2 {
		return Segment{}, fmt.Errorf("%w: %q: missing _<START_MS> suffix", ErrMalformed, raw)
	}

	sourceID := strings.Join(parts[:len(parts)-1], "_")
	if sourceID == "" {
		return Segment{}, fmt.Errorf("%w: %q: empty source id", ErrMalformed, raw)
	}

	// Digits only: a sign would survive into the key and the clip file name.
	offset := parts[len(parts)-1]
	if !isDigits(offset) {
		return Segment{}, fmt.Errorf("%w: %q: start offset must be unsigned digits", ErrMalformed, raw)
	}
	startMS, err := strconv.Atoi(offset)
	if err != nil {
		return Segment{}, fmt.Errorf("%w: %q: start offset out of range", ErrMalformed, raw)
	}

	return Segment{SourceID: sourceID, StartMS: startMS, key: raw}, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// New builds a Segment from its parts.
func New(sourceID string, startMS int) Segment {
	return Segment{
		SourceID: sourceID,
		StartMS:  startMS,
		key:      sourceID + "_" + strconv.Itoa(startMS),
	}
}

// Key returns the unique segment identity, used to name the trimmed clip.
// It is the input line verbatim, so zero-padded offsets are preserved.
func (s Segment) Key() string {
	if s.key == "" {
		return s.SourceID + "_" + strconv.Itoa(s.StartMS)
	}
	return s.key
}

// StartSeconds returns the start offset floored to whole seconds.
func (s Segment) StartSeconds() int {
	return s.StartMS / 1000
}

// URL returns the source URL for the segment's media.
// An empty prefix falls back to DefaultURLPrefix.
func (s Segment) URL(prefix string) string {
	if prefix == "" {
		prefix = DefaultURLPrefix
	}
	return prefix + s.SourceID
}

// String returns the segment key.
func (s Segment) String() string {
	return s.Key()
}

// ClipSeconds converts a configured clip length in milliseconds to whole
// seconds. Zero means "to the end of the source".
func ClipSeconds(clipLengthMS int) int {
	if clipLengthMS <= 0 {
		return 0
	}
	return clipLengthMS / 1000
}
