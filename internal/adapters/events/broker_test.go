package events_test

import (
	"errors"
	"testing"

	"github.com/molehit/molehit/internal/adapters/events"
	"github.com/molehit/molehit/internal/domain/session"
	. "github.com/smartystreets/goconvey/convey"
)

func TestBrokerFanOut(t *testing.T) {
	Convey("Given a broker with two subscribers on one session", t, func() {
		broker := events.NewBroker()
		a, err := broker.Subscribe("s1")
		So(err, ShouldBeNil)
		b, err := broker.Subscribe("s1")
		So(err, ShouldBeNil)
		other, err := broker.Subscribe("s2")
		So(err, ShouldBeNil)

		Convey("When an event for the session is published", func() {
			broker.Publish(session.Event{Type: session.EventTimeUpdated, SessionID: "s1", RemainingMs: 42})

			Convey("Then both session subscribers receive it", func() {
				So((<-a.Events()).RemainingMs, ShouldEqual, 42)
				So((<-b.Events()).RemainingMs, ShouldEqual, 42)
			})

			Convey("Then the other session's subscriber does not", func() {
				select {
				case ev := <-other.Events():
					t.Fatalf("unexpected event %v", ev)
				default:
				}
			})
		})

		Convey("When a subscriber closes", func() {
			a.Close()
			broker.Publish(session.Event{Type: session.EventTimeUpdated, SessionID: "s1"})

			Convey("Then its channel is closed and the rest still receive", func() {
				_, open := <-a.Events()
				So(open, ShouldBeFalse)
				ev, open := <-b.Events()
				So(open, ShouldBeTrue)
				So(ev.Type, ShouldEqual, session.EventTimeUpdated)
			})

			Convey("And closing twice is harmless", func() {
				So(a.Close, ShouldNotPanic)
			})
		})
	})
}

func TestBrokerBackpressure(t *testing.T) {
	Convey("Given a subscriber with a one-event buffer", t, func() {
		broker := events.NewBroker(events.WithBufferSize(1))
		sub, err := broker.Subscribe("s1")
		So(err, ShouldBeNil)

		Convey("When more events arrive than the buffer holds", func() {
			broker.Publish(session.Event{Type: session.EventTimeUpdated, SessionID: "s1", RemainingMs: 1})
			broker.Publish(session.Event{Type: session.EventTimeUpdated, SessionID: "s1", RemainingMs: 2})

			Convey("Then the overflow is dropped, not blocked on", func() {
				ev := <-sub.Events()
				So(ev.RemainingMs, ShouldEqual, 1)
				select {
				case ev := <-sub.Events():
					t.Fatalf("unexpected buffered event %v", ev)
				default:
				}
			})
		})
	})
}

func TestBrokerClose(t *testing.T) {
	Convey("Given a broker with a subscriber", t, func() {
		broker := events.NewBroker()
		sub, err := broker.Subscribe("s1")
		So(err, ShouldBeNil)

		Convey("When the broker closes", func() {
			So(broker.Close(), ShouldBeNil)

			Convey("Then the subscriber channel closes", func() {
				_, open := <-sub.Events()
				So(open, ShouldBeFalse)
			})

			Convey("Then new subscriptions are refused", func() {
				_, err := broker.Subscribe("s1")
				So(errors.Is(err, events.ErrClosed), ShouldBeTrue)
				So(broker.IsClosed(), ShouldBeTrue)
			})

			Convey("Then publishing is a no-op", func() {
				So(func() {
					broker.Publish(session.Event{SessionID: "s1"})
				}, ShouldNotPanic)
			})

			Convey("Then a subscriber Close after broker Close is harmless", func() {
				So(sub.Close, ShouldNotPanic)
			})
		})
	})
}
