package loadgen

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/okian/flip7/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func TestDealHand(t *testing.T) {
	Convey("Given hands dealt from every deck", t, func() {
		rng := rand.New(rand.NewPCG(7, 7))

		for _, mode := range allModes {
			rules := scoring.RulesFor(mode)
			for range 500 {
				hand := dealHand(rng, rules)
				if err := scoring.Validate(mode, hand); err != nil {
					So(err, ShouldBeNil)
				}
				if len(hand.Numbers) > maxDrawn {
					So(len(hand.Numbers), ShouldBeLessThanOrEqualTo, maxDrawn)
				}
			}
		}

		Convey("Then a fixed seed deals the same hand", func() {
			a := dealHand(rand.New(rand.NewPCG(1, 2)), scoring.RulesFor(scoring.Combo))
			b := dealHand(rand.New(rand.NewPCG(1, 2)), scoring.RulesFor(scoring.Combo))
			So(a, ShouldResemble, b)
		})
	})
}

func TestGenerateRounds(t *testing.T) {
	Convey("Given a generation config", t, func() {
		ctx := context.Background()
		cfg := &Config{Rounds: 30, Players: 3, Seed: 42}
		stats := &Stats{}

		Convey("When modes are mixed", func() {
			rounds, err := generateRounds(ctx, cfg, stats)
			So(err, ShouldBeNil)
			So(len(rounds), ShouldEqual, 30)
			So(stats.RoundsGenerated, ShouldEqual, 30)

			ids := map[string]bool{}
			players := map[string]int{}
			for _, r := range rounds {
				ids[r.SubmissionID] = true
				players[r.PlayerID]++
				_, err := scoring.ParseMode(r.Mode)
				So(err, ShouldBeNil)
				So(r.Modifiers, ShouldNotBeNil)
			}
			So(len(ids), ShouldEqual, 30)
			So(len(players), ShouldEqual, 3)
			for _, n := range players {
				So(n, ShouldEqual, 10)
			}
		})

		Convey("When a mode is fixed", func() {
			cfg.Mode = "vengeance"
			rounds, err := generateRounds(ctx, cfg, stats)
			So(err, ShouldBeNil)
			for _, r := range rounds {
				So(r.Mode, ShouldEqual, "VENGEANCE")
				So(r.Doubled, ShouldBeFalse)
			}
		})

		Convey("When the mode is unknown", func() {
			cfg.Mode = "brutal"
			_, err := generateRounds(ctx, cfg, stats)
			So(errors.Is(err, scoring.ErrUnknownMode), ShouldBeTrue)
		})

		Convey("When the context is cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := generateRounds(cctx, cfg, stats)
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
		})
	})
}
