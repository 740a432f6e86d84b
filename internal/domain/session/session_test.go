package session_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/molehit/molehit/internal/domain/level"
	"github.com/molehit/molehit/internal/domain/session"
	. "github.com/smartystreets/goconvey/convey"
)

func testLevel() level.Definition {
	return level.Definition{
		ID:            1,
		Name:          "test",
		Difficulty:    level.Easy,
		MaxTargets:    2,
		SpawnInterval: time.Second,
		Lifetime:      2 * time.Second,
		TimeLimit:     60 * time.Second,
		TargetScore:   200,
		CharacterSet:  []rune("ASDF"),
	}
}

type capture struct {
	events []session.Event
}

func (c *capture) Publish(ev session.Event) { c.events = append(c.events, ev) }

func (c *capture) ofType(t session.EventType) []session.Event {
	var out []session.Event
	for _, ev := range c.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

type finalizerFunc func(ctx context.Context, res session.Result) (session.CompletedSession, error)

func (f finalizerFunc) Finalize(ctx context.Context, res session.Result) (session.CompletedSession, error) {
	return f(ctx, res)
}

func TestPhaseGuards(t *testing.T) {
	ctx := context.Background()

	Convey("Given a fresh session", t, func() {
		g := session.New(testLevel(), "u1", session.WithBoardSeed(3))

		Convey("Then only Start and Reset are legal from Idle", func() {
			So(g.Pause(), ShouldEqual, session.ErrInvalidTransition)
			So(g.Resume(), ShouldEqual, session.ErrInvalidTransition)
			So(g.End(ctx, false), ShouldEqual, session.ErrInvalidTransition)
			So(g.Reset(), ShouldBeNil)
			So(g.Start(), ShouldBeNil)
			So(g.Phase(), ShouldEqual, session.PhasePlaying)
		})

		Convey("When playing", func() {
			So(g.Start(), ShouldBeNil)

			Convey("Then Start and Reset are refused and state survives", func() {
				So(g.Start(), ShouldEqual, session.ErrInvalidTransition)
				So(g.Reset(), ShouldEqual, session.ErrInvalidTransition)
				So(g.Phase(), ShouldEqual, session.PhasePlaying)
			})

			Convey("Then Pause and Resume round-trip", func() {
				So(g.Pause(), ShouldBeNil)
				So(g.Phase(), ShouldEqual, session.PhasePaused)
				So(g.Pause(), ShouldEqual, session.ErrInvalidTransition)
				So(g.Resume(), ShouldBeNil)
				So(g.Phase(), ShouldEqual, session.PhasePlaying)
			})

			Convey("Then End is legal from Paused too", func() {
				So(g.Pause(), ShouldBeNil)
				So(g.End(ctx, false), ShouldBeNil)
				So(g.Phase(), ShouldEqual, session.PhaseEnded)

				Convey("And a second End reports ErrAlreadyEnded", func() {
					So(g.End(ctx, false), ShouldEqual, session.ErrAlreadyEnded)
				})

				Convey("And an ended session can be restarted or reset", func() {
					So(g.Start(), ShouldBeNil)
					So(g.End(ctx, false), ShouldBeNil)
					So(g.Reset(), ShouldBeNil)
					So(g.Phase(), ShouldEqual, session.PhaseIdle)
				})
			})
		})
	})
}

func TestTick(t *testing.T) {
	ctx := context.Background()

	Convey("Given a playing session", t, func() {
		sink := &capture{}
		g := session.New(testLevel(), "u1",
			session.WithBoardSeed(3),
			session.WithSink(sink),
		)
		So(g.Start(), ShouldBeNil)

		Convey("When the first tick fires", func() {
			So(g.Tick(ctx, 100), ShouldBeNil)

			Convey("Then a primed spawn and a time update are emitted", func() {
				So(len(sink.ofType(session.EventTargetSpawned)), ShouldEqual, 1)
				times := sink.ofType(session.EventTimeUpdated)
				So(len(times), ShouldEqual, 1)
				So(times[0].RemainingMs, ShouldEqual, 60000-100)
			})
		})

		Convey("When spawning catches up to the max-targets bound", func() {
			for i := 0; i < 50; i++ {
				So(g.Tick(ctx, 100), ShouldBeNil)
			}

			Convey("Then the board never exceeds the bound", func() {
				So(len(g.Snapshot().Targets), ShouldBeLessThanOrEqualTo, 2)
			})
		})

		Convey("When a target outlives its deadline", func() {
			So(g.Tick(ctx, 100), ShouldBeNil)
			So(g.Tick(ctx, 2500), ShouldBeNil)

			Convey("Then a miss is recorded exactly once per target", func() {
				So(len(sink.ofType(session.EventTargetExpired)), ShouldEqual, 1)
				view := g.Snapshot()
				So(view.Misses, ShouldEqual, 1)
				So(view.Combo, ShouldEqual, 0)
			})
		})

		Convey("When the session is paused", func() {
			So(g.Pause(), ShouldBeNil)
			before := g.Snapshot()
			So(g.Tick(ctx, 5000), ShouldBeNil)

			Convey("Then the tick is a silent no-op", func() {
				after := g.Snapshot()
				So(after.RemainingMs, ShouldEqual, before.RemainingMs)
				So(after.Phase, ShouldEqual, session.PhasePaused)
			})
		})
	})

	Convey("Given a session 500ms from its time limit", t, func() {
		sink := &capture{}
		def := testLevel()
		def.TimeLimit = 500 * time.Millisecond
		g := session.New(def, "u1", session.WithBoardSeed(3), session.WithSink(sink))
		So(g.Start(), ShouldBeNil)

		Convey("When a 600ms tick overshoots the limit", func() {
			So(g.Tick(ctx, 600), ShouldBeNil)

			Convey("Then time floors at zero and the session ends completed", func() {
				So(g.Phase(), ShouldEqual, session.PhaseEnded)
				ended := sink.ofType(session.EventSessionEnded)
				So(len(ended), ShouldEqual, 1)
				So(ended[0].Result.IsCompleted, ShouldBeTrue)
				times := sink.ofType(session.EventTimeUpdated)
				So(times[len(times)-1].RemainingMs, ShouldEqual, 0)
			})
		})
	})
}

func TestHandleKey(t *testing.T) {
	ctx := context.Background()

	Convey("Given a playing session with one target", t, func() {
		sink := &capture{}
		g := session.New(testLevel(), "u1",
			session.WithBoardSeed(3),
			session.WithSink(sink),
		)
		So(g.Start(), ShouldBeNil)
		So(g.Tick(ctx, 100), ShouldBeNil)
		spawned := sink.ofType(session.EventTargetSpawned)
		So(len(spawned), ShouldEqual, 1)
		char := []rune(spawned[0].Target.Char)[0]

		Convey("When the matching key is pressed", func() {
			res, err := g.HandleKey(char)
			So(err, ShouldBeNil)
			So(res, ShouldNotBeNil)

			Convey("Then the hit is scored and announced", func() {
				So(res.Combo, ShouldEqual, 1)
				So(res.Points, ShouldBeGreaterThan, 0)
				hits := sink.ofType(session.EventTargetHit)
				So(len(hits), ShouldEqual, 1)
				So(hits[0].TargetID, ShouldEqual, res.TargetID)
			})

			Convey("Then the target stays visible through the display-hold", func() {
				So(len(g.Snapshot().Targets), ShouldEqual, 1)
				So(g.Tick(ctx, 100), ShouldBeNil)
				So(g.Tick(ctx, 100), ShouldBeNil)
				So(g.Tick(ctx, 100), ShouldBeNil)
				for _, tv := range g.Snapshot().Targets {
					So(tv.ID, ShouldNotEqual, res.TargetID)
				}
			})

			Convey("Then the same key cannot score the same target again", func() {
				again, err := g.HandleKey(char)
				So(err, ShouldBeNil)
				if again != nil {
					So(again.TargetID, ShouldNotEqual, res.TargetID)
				}
			})
		})

		Convey("When a non-matching key is pressed", func() {
			res, err := g.HandleKey('0')
			So(err, ShouldBeNil)
			So(res, ShouldBeNil)

			Convey("Then the combo breaks but no miss is recorded", func() {
				view := g.Snapshot()
				So(view.Combo, ShouldEqual, 0)
				So(view.Misses, ShouldEqual, 0)
			})
		})

		Convey("When the session is not playing", func() {
			So(g.Pause(), ShouldBeNil)
			_, err := g.HandleKey(char)
			So(err, ShouldEqual, session.ErrInvalidTransition)
		})
	})
}

func TestEndFinalization(t *testing.T) {
	ctx := context.Background()

	Convey("Given a playing session with a finalizer", t, func() {
		sink := &capture{}
		var got session.Result
		fin := finalizerFunc(func(ctx context.Context, res session.Result) (session.CompletedSession, error) {
			got = res
			return session.CompletedSession{SessionID: res.SessionID, Score: res.Score, IsCompleted: res.Completed}, nil
		})
		g := session.New(testLevel(), "u1",
			session.WithBoardSeed(3),
			session.WithSink(sink),
			session.WithFinalizer(fin),
		)
		So(g.Start(), ShouldBeNil)
		So(g.Tick(ctx, 1000), ShouldBeNil)

		Convey("When the session ends early", func() {
			So(g.End(ctx, false), ShouldBeNil)

			Convey("Then the finalizer sees the raw result", func() {
				So(got.SessionID, ShouldEqual, g.ID())
				So(got.Completed, ShouldBeFalse)
				So(got.RemainingMs, ShouldEqual, 59000)
			})

			Convey("Then the ended event carries the finalized record", func() {
				ended := sink.ofType(session.EventSessionEnded)
				So(len(ended), ShouldEqual, 1)
				So(ended[0].Result.SessionID, ShouldEqual, g.ID())
			})

			Convey("Then the board is cleared", func() {
				So(g.Snapshot().Targets, ShouldBeEmpty)
			})
		})
	})

	Convey("Given a finalizer that rejects the result", t, func() {
		sink := &capture{}
		wantErr := errors.New("result rejected")
		fin := finalizerFunc(func(ctx context.Context, res session.Result) (session.CompletedSession, error) {
			return session.CompletedSession{}, wantErr
		})
		g := session.New(testLevel(), "u1", session.WithSink(sink), session.WithFinalizer(fin))
		So(g.Start(), ShouldBeNil)

		Convey("When the session ends", func() {
			err := g.End(ctx, false)

			Convey("Then the error surfaces unchanged and no ended event fires", func() {
				So(errors.Is(err, wantErr), ShouldBeTrue)
				So(sink.ofType(session.EventSessionEnded), ShouldBeEmpty)
				So(g.Phase(), ShouldEqual, session.PhaseEnded)
			})
		})
	})
}
