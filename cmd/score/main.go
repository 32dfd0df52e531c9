// Command score prints the score of a single Flip 7 round.
//
//	score -mode combo -numbers 1,2,3,4,5,6,7 -modifiers 4,-2 -x2
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/okian/flip7/internal/domain/scoring"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run parses args, scores the hand and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("score", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		modeTag   = fs.String("mode", scoring.Original.String(), "ORIGINAL, VENGEANCE or COMBO")
		numbers   = fs.String("numbers", "", "Comma-separated number cards, e.g. 1,5,13")
		modifiers = fs.String("modifiers", "", "Comma-separated modifier cards, e.g. 4,-2")
		taps      = fs.String("taps", "", "Comma-separated card taps replayed like the card picker; prefix modifiers with m, e.g. 13,13,m4")
		doubled   = fs.Bool("x2", false, "Apply the x2 card")
		halved    = fs.Bool("div2", false, "Apply the /2 card")
		strict    = fs.Bool("strict", false, "Reject hands that could not be dealt from the deck")
		asJSON    = fs.Bool("json", false, "Print the full result as JSON")
		rules     = fs.Bool("rules", false, "Print the rule table for -mode and exit")
	)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	mode, err := scoring.ParseMode(*modeTag)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}

	if *rules {
		return printJSON(stdout, stderr, scoring.RulesFor(mode))
	}

	hand := scoring.Hand{Doubled: *doubled, Halved: *halved}
	if hand.Numbers, err = parseCards(*numbers); err != nil {
		fmt.Fprintln(stderr, "numbers:", err)
		return 2
	}
	if hand.Modifiers, err = parseCards(*modifiers); err != nil {
		fmt.Fprintln(stderr, "modifiers:", err)
		return 2
	}
	if hand.Numbers, hand.Modifiers, err = applyTaps(mode, hand.Numbers, hand.Modifiers, *taps); err != nil {
		fmt.Fprintln(stderr, "taps:", err)
		return 2
	}

	engine := scoring.NewEngine(scoring.WithStrictHands(*strict))
	res, err := engine.Score(context.Background(), scoring.Input{Mode: mode, Hand: hand})
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	if *asJSON {
		return printJSON(stdout, stderr, struct {
			Mode scoring.Mode `json:"mode"`
			scoring.Result
		}{mode, res})
	}

	fmt.Fprintf(stdout, "%s round\n", mode.Label())
	fmt.Fprintf(stdout, "Total: %d\n", res.Total)
	if res.BonusDisplay != "" {
		fmt.Fprintf(stdout, "Bonus: %s\n", res.BonusDisplay)
	}
	fmt.Fprintln(stdout, res.Breakdown)
	if res.Wiped {
		fmt.Fprintln(stdout, "Wiped by a zero")
	}
	if res.IsFlip7 {
		fmt.Fprintln(stdout, "Flip 7!")
	}
	return 0
}

// parseCards reads a comma-separated list of integers. Blank input is an
// empty hand.
func parseCards(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	cards := make([]int, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("invalid card %q", strings.TrimSpace(p))
		}
		cards = append(cards, v)
	}
	return cards, nil
}

// applyTaps toggles each tapped card on top of the given selection. A number
// tapped past its allowed copies is cleared; a modifier tapped twice is removed.
func applyTaps(mode scoring.Mode, numbers, modifiers []int, s string) ([]int, []int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return numbers, modifiers, nil
	}
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		tag, isModifier := strings.CutPrefix(p, "m")
		v, err := strconv.Atoi(tag)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid tap %q", p)
		}
		if isModifier {
			modifiers = scoring.ToggleModifier(modifiers, v)
		} else {
			numbers = scoring.ToggleCard(mode, numbers, v)
		}
	}
	return numbers, modifiers, nil
}

func printJSON(stdout, stderr io.Writer, v any) int {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}
