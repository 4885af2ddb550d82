// Package sequence allocates prefixed business keys such as INV001 or PUR042.
package sequence

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultWidth is the zero-padded width of the numeric suffix.
const DefaultWidth = 3

// Sequencer formats keys for one fixed width.
type Sequencer struct {
	width int
}

// New returns a Sequencer. A non-positive width falls back to DefaultWidth.
func New(width int) Sequencer {
	if width <= 0 {
		width = DefaultWidth
	}
	return Sequencer{width: width}
}

// Width reports the configured suffix width.
func (s Sequencer) Width() int {
	if s.width <= 0 {
		return DefaultWidth
	}
	return s.width
}

// Next scans keys for prefix<digits>, takes the highest suffix and returns the
// key after it. Keys that do not match are ignored. Without any match the
// first key in the sequence is returned.
func (s Sequencer) Next(prefix string, keys ...string) string {
	highest := 0
	for _, key := range keys {
		n, ok := Parse(prefix, key)
		if ok && n > highest {
			highest = n
		}
	}
	return s.Format(prefix, highest+1)
}

// Format renders n with the sequencer width. Values that outgrow the width are
// rendered in full rather than truncated.
func (s Sequencer) Format(prefix string, n int) string {
	return fmt.Sprintf("%s%0*d", prefix, s.Width(), n)
}

// Parse extracts the numeric suffix of key when it has the shape prefix<digits>.
func Parse(prefix, key string) (int, bool) {
	if prefix == "" || !strings.HasPrefix(key, prefix) {
		return 0, false
	}
	digits := key[len(prefix):]
	if digits == "" {
		return 0, false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	return n, true
}
