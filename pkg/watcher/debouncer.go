package watcher

import (
	"context"
	"time"

	"github.com/ritzau/flow-editor/pkg/logging"
)

// Debouncer batches rapid file system events so that one save triggers one reload
type Debouncer struct {
	input       <-chan ChangeEvent
	output      chan ChangeEvent
	quietPeriod time.Duration
	maxWait     time.Duration
}

// NewDebouncer creates a new event debouncer. A batch is emitted after quietPeriod
// without new events, or at the latest maxWait after its first event.
func NewDebouncer(input <-chan ChangeEvent, quietPeriod, maxWait time.Duration) *Debouncer {
	return &Debouncer{
		input:       input,
		output:      make(chan ChangeEvent, 10),
		quietPeriod: quietPeriod,
		maxWait:     maxWait,
	}
}

// Start begins processing events with debouncing
func (d *Debouncer) Start(ctx context.Context) {
	go d.run(ctx)
}

func (d *Debouncer) run(ctx context.Context) {
	defer close(d.output)

	var (
		quiet   *time.Timer
		maxWait *time.Timer
		pending []string
		seen    = make(map[string]bool)
	)

	stop := func(t *time.Timer) {
		if t != nil {
			t.Stop()
		}
	}
	timerC := func(t *time.Timer) <-chan time.Time {
		if t == nil {
			return nil
		}
		return t.C
	}

	flush := func() {
		stop(quiet)
		stop(maxWait)
		quiet, maxWait = nil, nil
		if len(pending) == 0 {
			return
		}

		logging.Debug("flushing accumulated events", "paths", len(pending))
		select {
		case d.output <- ChangeEvent{Paths: pending, Timestamp: time.Now()}:
		case <-ctx.Done():
		}
		pending = nil
		seen = make(map[string]bool)
	}

	for {
		select {
		case <-ctx.Done():
			stop(quiet)
			stop(maxWait)
			return

		case event, ok := <-d.input:
			if !ok {
				flush()
				return
			}

			for _, p := range event.Paths {
				if !seen[p] {
					seen[p] = true
					pending = append(pending, p)
				}
			}

			stop(quiet)
			quiet = time.NewTimer(d.quietPeriod)
			if maxWait == nil {
				maxWait = time.NewTimer(d.maxWait)
			}

		case <-timerC(quiet):
			flush()

		case <-timerC(maxWait):
			flush()
		}
	}
}

// Output returns the channel of debounced events
func (d *Debouncer) Output() <-chan ChangeEvent {
	return d.output
}
