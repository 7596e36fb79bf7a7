package bridge

import (
	"sync"
	"time"
)

// Task is a running periodic schedule.
type Task interface {
	Cancel()
}

// Scheduler runs fn on a fixed interval. The first run happens right away.
type Scheduler interface {
	Every(interval time.Duration, fn func()) Task
}

type TickerScheduler struct{}

func (TickerScheduler) Every(interval time.Duration, fn func()) Task {
	t := &tickerTask{done: make(chan struct{})}
	ticker := time.NewTicker(interval)

	go func() {
		defer ticker.Stop()
		go fn()
		for {
			select {
			case <-t.done:
				return
			case <-ticker.C:
				select {
				case <-t.done:
					return
				default:
				}
				go fn()
			}
		}
	}()
	return t
}

type tickerTask struct {
	once sync.Once
	done chan struct{}
}

func (t *tickerTask) Cancel() {
	t.once.Do(func() { close(t.done) })
}
