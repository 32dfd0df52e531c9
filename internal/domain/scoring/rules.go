package scoring

// Card values with special meaning in the rule tables.
const (
	ZeroCard  = 0
	LuckyCard = 13

	// FlipThreshold is the number of distinct values that earns a Flip 7.
	FlipThreshold = 7
	// FlipBonus is added after the zero floor whenever a hand is a Flip 7.
	FlipBonus = 15
)

// Rules is the per-variant table the engine and the catalog consult.
// Adding a variant means adding one entry to ruleTable.
type Rules struct {
	Mode Mode `json:"mode"`
	// ZeroWipe resets the pre-modifier score to 0 when a zero card is
	// held without a Flip 7.
	ZeroWipe bool `json:"zero_wipe"`
	// NumberCards is the selectable number deck, highest first.
	NumberCards []int `json:"number_cards"`
	// ModifierCards is the selectable flat bonus/penalty deck.
	ModifierCards []int `json:"modifier_cards"`
	AllowDouble   bool  `json:"allow_double"`
	AllowHalve    bool  `json:"allow_halve"`
	// MaxCopies overrides the default single copy for specific values.
	MaxCopies map[int]int `json:"max_copies,omitempty"`
}

var (
	originalNumbers  = []int{12, 11, 10, 9, 8, 7, 6, 5, 4, 3, 2, 1, 0}
	vengeanceNumbers = []int{13, 12, 11, 10, 9, 8, 7, 6, 5, 4, 3, 2, 1, 0}

	bonusModifiers   = []int{2, 4, 6, 8, 10}
	penaltyModifiers = []int{-2, -4, -6, -8, -10}
)

var ruleTable = map[Mode]Rules{
	Original: {
		Mode:          Original,
		NumberCards:   originalNumbers,
		ModifierCards: bonusModifiers,
		AllowDouble:   true,
	},
	Vengeance: {
		Mode:          Vengeance,
		ZeroWipe:      true,
		NumberCards:   vengeanceNumbers,
		ModifierCards: penaltyModifiers,
		AllowHalve:    true,
		MaxCopies:     map[int]int{LuckyCard: 2},
	},
	Combo: {
		Mode:          Combo,
		ZeroWipe:      true,
		NumberCards:   vengeanceNumbers,
		ModifierCards: concat(bonusModifiers, penaltyModifiers),
		AllowDouble:   true,
		AllowHalve:    true,
		MaxCopies:     map[int]int{LuckyCard: 2},
	},
}

// RulesFor returns a copy of the rule table for mode. Unknown modes get the
// Original rules so that scoring stays total over its input.
func RulesFor(mode Mode) Rules {
	r, ok := ruleTable[mode]
	if !ok {
		r = ruleTable[Original]
	}
	return r.clone()
}

// AllRules returns the rule tables of every mode in display order.
func AllRules() []Rules {
	out := make([]Rules, 0, len(Modes))
	for _, m := range Modes {
		out = append(out, RulesFor(m))
	}
	return out
}

// Copies returns how many copies of value a hand may hold in this variant.
func (r Rules) Copies(value int) int {
	if !r.hasNumber(value) {
		return 0
	}
	if n, ok := r.MaxCopies[value]; ok {
		return n
	}
	return 1
}

func (r Rules) hasNumber(value int) bool {
	for _, n := range r.NumberCards {
		if n == value {
			return true
		}
	}
	return false
}

func (r Rules) hasModifier(value int) bool {
	for _, m := range r.ModifierCards {
		if m == value {
			return true
		}
	}
	return false
}

func (r Rules) clone() Rules {
	c := r
	c.NumberCards = append([]int(nil), r.NumberCards...)
	c.ModifierCards = append([]int(nil), r.ModifierCards...)
	if r.MaxCopies != nil {
		c.MaxCopies = make(map[int]int, len(r.MaxCopies))
		for k, v := range r.MaxCopies {
			c.MaxCopies[k] = v
		}
	}
	return c
}

func concat(a, b []int) []int {
	out := make([]int, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}
