package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/focusup/backend/internal/adapters/mq/queue"
	"github.com/focusup/backend/internal/adapters/mq/worker"
	"github.com/focusup/backend/internal/domain/model"
	logging "github.com/focusup/backend/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	if err := logging.Init(); err != nil {
		panic(err)
	}
	m.Run()
}

// Mock implementations for testing.
type mockQueue struct {
	notifChan  chan queue.Notification
	closeError error
	closeOnce  sync.Once
}

func newMockQueue() *mockQueue {
	return &mockQueue{
		notifChan: make(chan queue.Notification, 10),
	}
}

func (mq *mockQueue) Dequeue(_ context.Context) <-chan queue.Notification {
	return mq.notifChan
}

func (mq *mockQueue) Close() error {
	mq.closeOnce.Do(func() { close(mq.notifChan) })
	return mq.closeError
}

func (mq *mockQueue) add(n queue.Notification) {
	mq.notifChan <- n
}

type mockNotifier struct {
	mu             sync.RWMutex
	broadcasts     []model.Game
	userNotifies   []string
	broadcastError error
	notifyError    error
}

func newMockNotifier() *mockNotifier {
	return &mockNotifier{}
}

func (mn *mockNotifier) BroadcastRankingChanged(_ context.Context, n worker.Notification) error {
	mn.mu.Lock()
	defer mn.mu.Unlock()
	if mn.broadcastError != nil {
		return mn.broadcastError
	}
	mn.broadcasts = append(mn.broadcasts, n.Game)
	return nil
}

func (mn *mockNotifier) NotifyUserStats(_ context.Context, n worker.Notification) error {
	mn.mu.Lock()
	defer mn.mu.Unlock()
	if mn.notifyError != nil {
		return mn.notifyError
	}
	mn.userNotifies = append(mn.userNotifies, n.UserID)
	return nil
}

func (mn *mockNotifier) counts() (int, int) {
	mn.mu.RLock()
	defer mn.mu.RUnlock()
	return len(mn.broadcasts), len(mn.userNotifies)
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

func TestWorkerDispatch(t *testing.T) {
	convey.Convey("Given a worker wired to a queue and notifier", t, func() {
		mq := newMockQueue()
		mn := newMockNotifier()
		w := worker.NewInMemoryWorker(mq, mn, worker.WithName("test-worker"))

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Run(ctx)

		convey.Convey("When a notification arrives", func() {
			mq.add(worker.Notification{Game: model.GameReaction, UserID: "alice", At: time.Now()})

			convey.Convey("Then both signals reach the notifier", func() {
				ok := waitFor(func() bool {
					b, u := mn.counts()
					return b == 1 && u == 1
				})
				convey.So(ok, convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the broadcast fails", func() {
			mn.broadcastError = errors.New("hub unavailable")
			mq.add(worker.Notification{Game: model.GameMemory, UserID: "bob", At: time.Now()})

			convey.Convey("Then the worker keeps running and later notifications flow", func() {
				time.Sleep(50 * time.Millisecond)
				mn.mu.Lock()
				mn.broadcastError = nil
				mn.mu.Unlock()

				mq.add(worker.Notification{Game: model.GameMemory, UserID: "carol", At: time.Now()})
				ok := waitFor(func() bool {
					b, _ := mn.counts()
					return b == 1
				})
				convey.So(ok, convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the queue channel closes", func() {
			_ = mq.Close()

			convey.Convey("Then the worker shuts down cleanly", func() {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Second)
				defer shutdownCancel()
				convey.So(w.Shutdown(shutdownCtx), convey.ShouldBeNil)
			})
		})
	})
}

func TestWorkerShutdown(t *testing.T) {
	convey.Convey("Given a running worker", t, func() {
		mq := newMockQueue()
		mn := newMockNotifier()
		w := worker.NewInMemoryWorker(mq, mn)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Run(ctx)

		convey.Convey("When shutdown is requested", func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Second)
			defer shutdownCancel()
			err := w.Shutdown(shutdownCtx)

			convey.Convey("Then it stops without error", func() {
				convey.So(err, convey.ShouldBeNil)
			})
		})
	})
}

func TestPoolDispatch(t *testing.T) {
	convey.Convey("Given a pool of workers sharing a queue", t, func() {
		mq := newMockQueue()
		mn := newMockNotifier()
		pool := worker.NewPool(4, mq, mn)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		pool.Start(ctx)

		convey.Convey("When many notifications arrive", func() {
			const n = 10
			for i := 0; i < n; i++ {
				mq.add(worker.Notification{Game: model.GameAttention, UserID: "user", At: time.Now()})
			}

			convey.Convey("Then every notification is dispatched exactly once", func() {
				ok := waitFor(func() bool {
					b, u := mn.counts()
					return b == n && u == n
				})
				convey.So(ok, convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the pool shuts down", func() {
			err := pool.Shutdown(context.Background())

			convey.Convey("Then it closes the queue and stops", func() {
				convey.So(err, convey.ShouldBeNil)
				_, open := <-mq.notifChan
				convey.So(open, convey.ShouldBeFalse)
			})
		})
	})
}

func TestPoolDefaultSize(t *testing.T) {
	convey.Convey("Given a pool created with a non-positive worker count", t, func() {
		mq := newMockQueue()
		mn := newMockNotifier()
		pool := worker.NewPool(0, mq, mn)

		convey.Convey("Then it still starts and dispatches", func() {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			pool.Start(ctx)

			mq.add(worker.Notification{Game: model.GameReaction, UserID: "dave", At: time.Now()})
			ok := waitFor(func() bool {
				b, _ := mn.counts()
				return b == 1
			})
			convey.So(ok, convey.ShouldBeTrue)
		})
	})
}
