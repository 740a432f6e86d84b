package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/molehit/molehit/internal/adapters/repository"
	service "github.com/molehit/molehit/internal/app"
	"github.com/molehit/molehit/internal/domain/level"
	"github.com/molehit/molehit/internal/domain/reconcile"
	"github.com/molehit/molehit/internal/domain/session"
	. "github.com/smartystreets/goconvey/convey"
)

func fastLevels() level.Repository {
	repo, err := level.NewStaticRepository(level.Definition{
		ID:            1,
		Name:          "sprint",
		Difficulty:    level.Easy,
		MaxTargets:    2,
		SpawnInterval: 50 * time.Millisecond,
		Lifetime:      200 * time.Millisecond,
		TimeLimit:     400 * time.Millisecond,
		TargetScore:   100,
		CharacterSet:  []rune("ASDF"),
	})
	if err != nil {
		panic(err)
	}
	return repo
}

func newService(t *testing.T, opts ...service.Option) *service.Service {
	t.Helper()
	svc := service.New(append([]service.Option{
		service.WithLevels(fastLevels()),
		service.WithTickInterval(10 * time.Millisecond),
	}, opts...)...)
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("start service: %v", err)
	}
	t.Cleanup(svc.Stop)
	return svc
}

func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()

	Convey("Given a running service", t, func() {
		store := repository.NewMemoryStore()
		svc := newService(t, service.WithStore(store))

		Convey("When a session starts", func() {
			view, err := svc.StartSession(ctx, 1, "alice")
			So(err, ShouldBeNil)
			So(view.Phase, ShouldEqual, session.PhasePlaying)

			Convey("Then it is visible by id and as the user's active session", func() {
				got, err := svc.GetSession(ctx, view.ID)
				So(err, ShouldBeNil)
				So(got.ID, ShouldEqual, view.ID)

				active, err := svc.ActiveSession(ctx, "alice")
				So(err, ShouldBeNil)
				So(active.ID, ShouldEqual, view.ID)
			})

			Convey("Then pause and resume round-trip through the service", func() {
				paused, err := svc.PauseSession(ctx, view.ID)
				So(err, ShouldBeNil)
				So(paused.Phase, ShouldEqual, session.PhasePaused)

				resumed, err := svc.ResumeSession(ctx, view.ID)
				So(err, ShouldBeNil)
				So(resumed.Phase, ShouldEqual, session.PhasePlaying)
			})

			Convey("Then ending persists the reconciled result", func() {
				ended, err := svc.EndSession(ctx, view.ID)
				So(err, ShouldBeNil)
				So(ended.Phase, ShouldEqual, session.PhaseEnded)

				rec, err := store.GetCompleted(ctx, view.ID)
				So(err, ShouldBeNil)
				So(rec.IsCompleted, ShouldBeFalse)

				Convey("And a second end reports the session as already ended", func() {
					_, err := svc.EndSession(ctx, view.ID)
					So(errors.Is(err, session.ErrAlreadyEnded), ShouldBeTrue)
				})
			})

			Convey("Then unknown ids are rejected", func() {
				_, err := svc.GetSession(ctx, "nope")
				So(errors.Is(err, service.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When an unknown level is requested", func() {
			_, err := svc.StartSession(ctx, 99, "alice")
			So(errors.Is(err, level.ErrNotFound), ShouldBeTrue)
		})
	})
}

func TestSessionLimit(t *testing.T) {
	ctx := context.Background()

	Convey("Given a service capped at one live session", t, func() {
		svc := newService(t, service.WithMaxSessions(1))

		first, err := svc.StartSession(ctx, 1, "alice")
		So(err, ShouldBeNil)

		Convey("Then a second session is refused", func() {
			_, err := svc.StartSession(ctx, 1, "bob")
			So(errors.Is(err, service.ErrSessionLimit), ShouldBeTrue)
		})

		Convey("When the first session ends, capacity frees up", func() {
			_, err := svc.EndSession(ctx, first.ID)
			So(err, ShouldBeNil)

			_, err = svc.StartSession(ctx, 1, "bob")
			So(err, ShouldBeNil)
		})
	})
}

func TestRunnerDrivesSession(t *testing.T) {
	ctx := context.Background()

	Convey("Given a session on a 400ms level", t, func() {
		store := repository.NewMemoryStore()
		svc := newService(t, service.WithStore(store))

		view, err := svc.StartSession(ctx, 1, "alice")
		So(err, ShouldBeNil)

		sub, err := svc.Subscribe(ctx, view.ID)
		So(err, ShouldBeNil)
		defer sub.Close()

		Convey("When the time limit elapses", func() {
			deadline := time.After(2 * time.Second)
			var ended *session.Event
			for ended == nil {
				select {
				case ev, ok := <-sub.Events():
					if !ok {
						t.Fatal("event stream closed before session ended")
					}
					if ev.Type == session.EventSessionEnded {
						ended = &ev
					}
				case <-deadline:
					t.Fatal("session did not end in time")
				}
			}

			Convey("Then the session ends itself as completed", func() {
				So(ended.Result.IsCompleted, ShouldBeTrue)

				got, err := svc.GetSession(ctx, view.ID)
				So(err, ShouldBeNil)
				So(got.Phase, ShouldEqual, session.PhaseEnded)

				rec, err := store.GetCompleted(ctx, view.ID)
				So(err, ShouldBeNil)
				So(rec.IsCompleted, ShouldBeTrue)
			})
		})
	})
}

func TestHistoryQueries(t *testing.T) {
	ctx := context.Background()

	Convey("Given a service with persisted results", t, func() {
		store := repository.NewMemoryStore()
		svc := newService(t, service.WithStore(store))

		base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
		So(store.SaveCompleted(ctx, session.CompletedSession{
			SessionID: "old", UserID: "alice", Score: 50, IsCompleted: true, CompletedAt: base,
		}), ShouldBeNil)
		So(store.SaveCompleted(ctx, session.CompletedSession{
			SessionID: "new", UserID: "alice", Score: 150, IsCompleted: true, CompletedAt: base.Add(time.Hour),
		}), ShouldBeNil)

		Convey("Then history and best score pass through to the store", func() {
			recs, err := svc.History(ctx, "alice", 10, 0)
			So(err, ShouldBeNil)
			So(len(recs), ShouldEqual, 2)
			So(recs[0].SessionID, ShouldEqual, "new")

			best, err := svc.BestScore(ctx, "alice", 0)
			So(err, ShouldBeNil)
			So(best.Score, ShouldEqual, 150)

			rec, err := svc.CompletedSession(ctx, "old")
			So(err, ShouldBeNil)
			So(rec.Score, ShouldEqual, 50)

			_, err = svc.BestScore(ctx, "nobody", 0)
			So(errors.Is(err, reconcile.ErrNotFound), ShouldBeTrue)
		})
	})
}

func TestGetStats(t *testing.T) {
	ctx := context.Background()

	Convey("Given a service with one live session", t, func() {
		svc := newService(t)
		_, err := svc.StartSession(ctx, 1, "alice")
		So(err, ShouldBeNil)

		Convey("Then stats reflect the registry", func() {
			stats := svc.GetStats()
			So(stats["started"], ShouldBeTrue)
			So(stats["activeSessions"], ShouldEqual, 1)
			So(stats["totalSessions"], ShouldEqual, 1)
		})
	})
}
