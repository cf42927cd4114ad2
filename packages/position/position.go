// Package position addresses cells on a fixed-size grid and converts
// between (row, col) coordinates and A1 notation.
package position

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	MaxRows = 16384
	MaxCols = 16384

	maxLetters = 3
	maxDigits  = 5
)

// ErrInvalidPosition is returned when text does not name a cell inside the grid.
var ErrInvalidPosition = errors.New("invalid position")

// Position is a zero-based (row, col) coordinate. It is comparable and is
// used directly as a map key.
type Position struct {
	Row int
	Col int
}

// None is the sentinel for "no position". It is never valid.
var None = Position{Row: -1, Col: -1}

// Size is the extent of a rectangular area in rows and columns.
type Size struct {
	Rows int
	Cols int
}

// IsValid reports whether p lies inside the grid.
func (p Position) IsValid() bool {
	return p.Row >= 0 && p.Col >= 0 && p.Row < MaxRows && p.Col < MaxCols
}

// String renders p in A1 notation, or "" when p is not valid.
func (p Position) String() string {
	if !p.IsValid() {
		return ""
	}
	return columnToLetters(p.Col+1) + strconv.Itoa(p.Row+1)
}

// Less orders positions row-major.
func Less(a, b Position) bool {
	if a.Row != b.Row {
		return a.Row < b.Row
	}
	return a.Col < b.Col
}

// Compare is the three-way form of Less, for use with slices.SortFunc.
func Compare(a, b Position) int {
	switch {
	case Less(a, b):
		return -1
	case Less(b, a):
		return 1
	default:
		return 0
	}
}

// Parse parses a cell address like "A1" or "xfd16384" into a Position.
func Parse(s string) (Position, error) {
	p, ok := parse(s)
	if !ok {
		return None, fmt.Errorf("%w: %q", ErrInvalidPosition, s)
	}
	return p, nil
}

// MustParse is like Parse but panics on malformed input. Intended for tests
// and static tables.
func MustParse(s string) Position {
	p, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return p
}

// Lookup parses s without allocating an error. The second result is false
// for anything that is not a well-formed address; a well-formed address
// outside the grid is returned as-is so callers can tell the two apart.
func Lookup(s string) (Position, bool) {
	letterEnd := 0
	for letterEnd < len(s) && isLetter(s[letterEnd]) {
		letterEnd++
	}
	if letterEnd == 0 || letterEnd == len(s) || letterEnd > maxLetters {
		return None, false
	}
	digits := s[letterEnd:]
	if len(digits) > maxDigits || digits[0] == '0' {
		return None, false
	}
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return None, false
		}
	}

	// A=0, B=1, ..., Z=25, AA=26
	col := 0
	for i := 0; i < letterEnd; i++ {
		col = col*26 + int(upper(s[i])-'A') + 1
	}
	row, err := strconv.Atoi(digits)
	if err != nil {
		return None, false
	}
	return Position{Row: row - 1, Col: col - 1}, true
}

func parse(s string) (Position, bool) {
	p, ok := Lookup(strings.TrimSpace(s))
	if !ok || !p.IsValid() {
		return None, false
	}
	return p, true
}

// ColumnName returns the letters naming the zero-based column col, e.g.
// 0 -> "A", 27 -> "AB".
func ColumnName(col int) string {
	return columnToLetters(col + 1)
}

func columnToLetters(col int) string {
	result := ""
	for col > 0 {
		col--
		result = string(rune('A'+col%26)) + result
		col /= 26
	}
	return result
}

func isLetter(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func upper(ch byte) byte {
	if ch >= 'a' && ch <= 'z' {
		return ch - 32
	}
	return ch
}
