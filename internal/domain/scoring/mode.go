package scoring

import (
	"fmt"
	"strings"
)

// Mode selects the rule variant a hand is scored under.
type Mode int

const (
	Original Mode = iota
	Vengeance
	Combo
)

// Modes lists every supported variant in display order.
var Modes = []Mode{Original, Vengeance, Combo}

var modeNames = map[Mode]string{
	Original:  "ORIGINAL",
	Vengeance: "VENGEANCE",
	Combo:     "COMBO",
}

// String returns the canonical upper-case tag, e.g. "VENGEANCE".
func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("MODE(%d)", int(m))
}

// Label returns the human readable name shown next to scores.
func (m Mode) Label() string {
	switch m {
	case Original:
		return "Original"
	case Vengeance:
		return "Vengeance"
	case Combo:
		return "Combo"
	default:
		return m.String()
	}
}

// Valid reports whether m is one of the known variants.
func (m Mode) Valid() bool {
	_, ok := modeNames[m]
	return ok
}

// ParseMode accepts the canonical tag or label in any case.
func ParseMode(s string) (Mode, error) {
	want := strings.ToUpper(strings.TrimSpace(s))
	for m, name := range modeNames {
		if name == want {
			return m, nil
		}
	}
	return Original, fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// MarshalText encodes the mode as its canonical tag.
func (m Mode) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownMode, int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText decodes a tag produced by MarshalText (case-insensitive).
func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
