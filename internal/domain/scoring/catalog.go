package scoring

import "fmt"

// Validate checks that hand could have been selected from mode's deck:
// every number card exists with no more than its allowed copies, every
// modifier exists and is used once, and each active toggle is offered.
func Validate(mode Mode, hand Hand) error {
	if !mode.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownMode, int(mode))
	}
	rules := RulesFor(mode)

	counts := make(map[int]int, len(hand.Numbers))
	for _, n := range hand.Numbers {
		counts[n]++
		allowed := rules.Copies(n)
		if allowed == 0 {
			return fmt.Errorf("%w: %d in %s", ErrCardNotInDeck, n, mode)
		}
		if counts[n] > allowed {
			return fmt.Errorf("%w: %d (max %d)", ErrTooManyCopies, n, allowed)
		}
	}

	seen := make(map[int]struct{}, len(hand.Modifiers))
	for _, m := range hand.Modifiers {
		if !rules.hasModifier(m) {
			return fmt.Errorf("%w: %d in %s", ErrModifierNotInDeck, m, mode)
		}
		if _, dup := seen[m]; dup {
			return fmt.Errorf("%w: %d", ErrDuplicateModifiers, m)
		}
		seen[m] = struct{}{}
	}

	if hand.Doubled && !rules.AllowDouble {
		return fmt.Errorf("%w: x2 in %s", ErrToggleUnavailable, mode)
	}
	if hand.Halved && !rules.AllowHalve {
		return fmt.Errorf("%w: ÷2 in %s", ErrToggleUnavailable, mode)
	}
	return nil
}

// ToggleCard returns a new selection with value added, or with every copy
// of value removed once the allowed copies are already held. The lucky 13
// therefore cycles 0 -> 1 -> 2 -> 0 copies in Vengeance and Combo. The
// input slice is never modified.
func ToggleCard(mode Mode, numbers []int, value int) []int {
	held := 0
	for _, n := range numbers {
		if n == value {
			held++
		}
	}

	allowed := RulesFor(mode).Copies(value)
	if allowed == 0 {
		allowed = 1
	}
	if held < allowed {
		out := make([]int, 0, len(numbers)+1)
		out = append(out, numbers...)
		return append(out, value)
	}

	out := make([]int, 0, len(numbers))
	for _, n := range numbers {
		if n != value {
			out = append(out, n)
		}
	}
	return out
}

// ToggleModifier adds value to the selection, or removes it if present.
func ToggleModifier(modifiers []int, value int) []int {
	out := make([]int, 0, len(modifiers)+1)
	removed := false
	for _, m := range modifiers {
		if m == value {
			removed = true
			continue
		}
		out = append(out, m)
	}
	if !removed {
		out = append(out, value)
	}
	return out
}
