package ws_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"

	"github.com/molehit/molehit/internal/adapters/http/ws"
	service "github.com/molehit/molehit/internal/app"
	"github.com/molehit/molehit/internal/domain/level"
	. "github.com/smartystreets/goconvey/convey"
)

func testLevels() level.Repository {
	repo, err := level.NewStaticRepository(level.Definition{
		ID:            1,
		Name:          "stream",
		Difficulty:    level.Easy,
		MaxTargets:    2,
		SpawnInterval: 50 * time.Millisecond,
		Lifetime:      500 * time.Millisecond,
		TimeLimit:     10 * time.Second,
		TargetScore:   100,
		CharacterSet:  []rune("ASDF"),
	})
	if err != nil {
		panic(err)
	}
	return repo
}

func TestEventStream(t *testing.T) {
	ctx := context.Background()

	svc := service.New(
		service.WithLevels(testLevels()),
		service.WithTickInterval(10*time.Millisecond),
	)
	if err := svc.Start(ctx); err != nil {
		t.Fatalf("start service: %v", err)
	}
	t.Cleanup(svc.Stop)

	r := chi.NewRouter()
	r.Get("/sessions/{id}/events", ws.NewHandler(svc).ServeHTTP)
	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)

	Convey("Given a live session", t, func() {
		view, err := svc.StartSession(ctx, 1, "alice")
		So(err, ShouldBeNil)

		Convey("When a client connects to the event stream", func() {
			dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()

			conn, _, err := websocket.Dial(dialCtx, ts.URL+"/sessions/"+view.ID+"/events", nil)
			So(err, ShouldBeNil)
			defer conn.Close(websocket.StatusNormalClosure, "done")

			Convey("Then the first frame is a session snapshot", func() {
				var msg map[string]any
				So(wsjson.Read(dialCtx, conn, &msg), ShouldBeNil)
				So(msg["type"], ShouldEqual, "snapshot")
				sess, _ := msg["session"].(map[string]any)
				So(sess["id"], ShouldEqual, view.ID)

				Convey("And gameplay events follow", func() {
					seen := map[string]bool{}
					deadline := time.Now().Add(3 * time.Second)
					for time.Now().Before(deadline) && !(seen["time_updated"] && seen["target_spawned"]) {
						var ev map[string]any
						if err := wsjson.Read(dialCtx, conn, &ev); err != nil {
							break
						}
						if typ, ok := ev["type"].(string); ok {
							seen[typ] = true
						}
					}
					So(seen["time_updated"], ShouldBeTrue)
					So(seen["target_spawned"], ShouldBeTrue)
				})

				Convey("And ending the session delivers the final event and closes", func() {
					_, err := svc.EndSession(ctx, view.ID)
					So(err, ShouldBeNil)

					sawEnd := false
					for {
						var ev map[string]any
						if err := wsjson.Read(dialCtx, conn, &ev); err != nil {
							break
						}
						if ev["type"] == "session_ended" {
							sawEnd = true
							break
						}
					}
					So(sawEnd, ShouldBeTrue)
				})
			})
		})

		Convey("When the session does not exist", func() {
			dialCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			defer cancel()

			_, resp, err := websocket.Dial(dialCtx, ts.URL+"/sessions/nope/events", nil)
			So(err, ShouldNotBeNil)
			if resp != nil {
				So(resp.StatusCode, ShouldEqual, 404)
			}
		})
	})
}
