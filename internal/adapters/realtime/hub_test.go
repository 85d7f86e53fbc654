package realtime_test

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/focusup/backend/internal/adapters/realtime"
	"github.com/focusup/backend/internal/domain/model"
	logging "github.com/focusup/backend/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	if err := logging.Init(); err != nil {
		panic(err)
	}
	m.Run()
}

func drainOne(ch <-chan realtime.Event) (realtime.Event, bool) {
	select {
	case e, ok := <-ch:
		return e, ok
	case <-time.After(time.Second):
		return realtime.Event{}, false
	}
}

func TestHubDashboard(t *testing.T) {
	ctx := context.Background()

	Convey("Given a hub with two dashboard subscribers", t, func() {
		hub := realtime.NewHub()
		defer hub.Close()

		ch1, cancel1 := hub.SubscribeDashboard(ctx)
		ch2, cancel2 := hub.SubscribeDashboard(ctx)
		defer cancel1()
		defer cancel2()

		Convey("When a ranking change is broadcast", func() {
			n := model.Notification{Game: model.GameReaction, UserID: "alice", At: time.Now().UTC()}
			So(hub.BroadcastRankingChanged(ctx, n), ShouldBeNil)

			Convey("Then both subscribers receive it", func() {
				e1, ok1 := drainOne(ch1)
				e2, ok2 := drainOne(ch2)
				So(ok1, ShouldBeTrue)
				So(ok2, ShouldBeTrue)
				So(e1.Name, ShouldEqual, realtime.EventRankingChanged)
				So(e2.Name, ShouldEqual, realtime.EventRankingChanged)

				payload := e1.Data.(realtime.RankingChangedPayload)
				So(payload.Game, ShouldEqual, model.GameReaction)
			})
		})

		Convey("When one subscriber cancels", func() {
			cancel1()
			n := model.Notification{Game: model.GameMemory, At: time.Now().UTC()}
			So(hub.BroadcastRankingChanged(ctx, n), ShouldBeNil)

			Convey("Then only the remaining subscriber receives events", func() {
				_, ok := drainOne(ch2)
				So(ok, ShouldBeTrue)

				_, open := <-ch1
				So(open, ShouldBeFalse)
			})
		})
	})
}

func TestHubUserStreams(t *testing.T) {
	ctx := context.Background()

	Convey("Given subscribers for two different users", t, func() {
		hub := realtime.NewHub()
		defer hub.Close()

		aliceCh, cancelAlice := hub.SubscribeUser(ctx, "alice")
		bobCh, cancelBob := hub.SubscribeUser(ctx, "bob")
		defer cancelAlice()
		defer cancelBob()

		Convey("When alice's stats update", func() {
			n := model.Notification{
				Game:   model.GameMemory,
				UserID: "alice",
				Stats:  model.UserStats{TotalGamesPlayed: 2, BestOverallScore: 300},
				At:     time.Now().UTC(),
			}
			So(hub.NotifyUserStats(ctx, n), ShouldBeNil)

			Convey("Then only alice's subscriber receives the event", func() {
				e, ok := drainOne(aliceCh)
				So(ok, ShouldBeTrue)
				So(e.Name, ShouldEqual, realtime.EventStatsUpdated)

				payload := e.Data.(realtime.StatsUpdatedPayload)
				So(payload.UserID, ShouldEqual, "alice")
				So(payload.Stats.BestOverallScore, ShouldEqual, 300)

				select {
				case <-bobCh:
					So("bob received alice's event", ShouldBeEmpty)
				case <-time.After(50 * time.Millisecond):
					So(true, ShouldBeTrue)
				}
			})
		})
	})
}

func TestHubSlowSubscriber(t *testing.T) {
	ctx := context.Background()

	Convey("Given a subscriber with a tiny buffer that never reads", t, func() {
		hub := realtime.NewHub(realtime.WithSubscriberBuffer(1))
		defer hub.Close()

		_, cancel := hub.SubscribeDashboard(ctx)
		defer cancel()

		Convey("When many events are broadcast", func() {
			var err error
			for i := 0; i < 10; i++ {
				err = hub.BroadcastRankingChanged(ctx, model.Notification{Game: model.GameAttention, At: time.Now()})
			}

			Convey("Then broadcasting never blocks or fails", func() {
				So(err, ShouldBeNil)
			})
		})
	})
}

func TestHubClose(t *testing.T) {
	ctx := context.Background()

	Convey("Given a hub with subscribers", t, func() {
		hub := realtime.NewHub()
		dashCh, _ := hub.SubscribeDashboard(ctx)
		userCh, _ := hub.SubscribeUser(ctx, "alice")

		Convey("When the hub closes", func() {
			hub.Close()

			Convey("Then all channels close and broadcasts fail", func() {
				_, dashOpen := <-dashCh
				_, userOpen := <-userCh
				So(dashOpen, ShouldBeFalse)
				So(userOpen, ShouldBeFalse)

				err := hub.BroadcastRankingChanged(ctx, model.Notification{Game: model.GameReaction})
				So(err, ShouldEqual, realtime.ErrHubClosed)
			})

			Convey("And new subscriptions come back already closed", func() {
				ch, cancel := hub.SubscribeDashboard(ctx)
				defer cancel()
				_, open := <-ch
				So(open, ShouldBeFalse)
			})
		})
	})
}

func TestServeDashboardSSE(t *testing.T) {
	Convey("Given a dashboard SSE client", t, func() {
		hub := realtime.NewHub()
		defer hub.Close()

		server := httptest.NewServer(http.HandlerFunc(hub.ServeDashboard))
		defer server.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, nil)
		So(err, ShouldBeNil)
		resp, err := http.DefaultClient.Do(req)
		So(err, ShouldBeNil)
		defer resp.Body.Close()

		So(resp.Header.Get("Content-Type"), ShouldEqual, "text/event-stream")

		reader := bufio.NewReader(resp.Body)

		// First frame is the initial keepalive comment.
		line, err := reader.ReadString('\n')
		So(err, ShouldBeNil)
		So(strings.HasPrefix(line, ":"), ShouldBeTrue)

		Convey("When a ranking change is broadcast", func() {
			// Give the server goroutine time to register the subscriber.
			time.Sleep(50 * time.Millisecond)
			n := model.Notification{Game: model.GameNumericMemory, At: time.Now().UTC()}
			So(hub.BroadcastRankingChanged(context.Background(), n), ShouldBeNil)

			Convey("Then the client receives a framed event", func() {
				var eventLine, dataLine string
				for {
					l, err := reader.ReadString('\n')
					So(err, ShouldBeNil)
					l = strings.TrimRight(l, "\n")
					if strings.HasPrefix(l, "event: ") {
						eventLine = l
					}
					if strings.HasPrefix(l, "data: ") {
						dataLine = l
						break
					}
				}
				So(eventLine, ShouldEqual, "event: ranking-changed")
				So(dataLine, ShouldContainSubstring, `"game":"numeric-memory"`)
			})
		})
	})
}
