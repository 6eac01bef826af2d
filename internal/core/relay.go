package core

import (
	"bufio"
	"io"
	"log/slog"
	"sync"
)

// Stream identifies one of the child's output streams.
type Stream int

// The two streams a relay reads. Each is forwarded to the logging sink
// under a fixed channel identity; stderr lines are tagged at Warn severity.
const (
	Stdout Stream = iota
	Stderr
)

// String returns the channel identity used in log records.
func (s Stream) String() string {
	if s == Stderr {
		return "stderr"
	}
	return "stdout"
}

// scanBufInitial and scanBufMax size the line scanner. The default 64KiB
// scanner limit is too small for processes that log large single-line JSON
// payloads.
const (
	scanBufInitial = 64 * 1024
	scanBufMax     = 1024 * 1024
)

// relay attaches an independent line-oriented reader to each of the child's
// output streams. Every complete line is forwarded to the logging sink and
// fanned out to any subscribed line waiters. Order is preserved within a
// stream (one reader goroutine per stream); there is no cross-stream
// ordering guarantee.
type relay struct {
	log *slog.Logger

	mu     sync.Mutex
	subs   map[Stream][]*subscription
	closed map[Stream]bool

	wg sync.WaitGroup
}

// subscription is a live line feed for one stream. ch is closed when the
// stream ends; cancel detaches the feed from the relay and is idempotent.
type subscription struct {
	ch     chan string
	done   chan struct{}
	cancel func()
}

func newRelay(log *slog.Logger) *relay {
	return &relay{
		log:    log,
		subs:   make(map[Stream][]*subscription),
		closed: make(map[Stream]bool),
	}
}

// start launches the reader goroutine for one stream.
func (r *relay) start(stream Stream, rc io.Reader) {
	r.wg.Add(1)
	go r.run(stream, rc)
}

// wait blocks until every reader has hit end-of-stream. The supervisor
// calls this before cmd.Wait so the pipes are fully drained first; closing
// them mid-read would lose trailing output.
func (r *relay) wait() {
	r.wg.Wait()
}

func (r *relay) run(stream Stream, rc io.Reader) {
	defer r.wg.Done()

	sc := bufio.NewScanner(rc)
	sc.Buffer(make([]byte, 0, scanBufInitial), scanBufMax)
	for sc.Scan() {
		line := sc.Text()
		if stream == Stderr {
			r.log.Warn(line, "channel", "stderr")
		} else {
			r.log.Info(line, "channel", "stdout")
		}
		r.publish(stream, line)
	}
	if err := sc.Err(); err != nil {
		// A closed pipe at process exit is the normal end of stream;
		// anything else is still not actionable for the relay.
		r.log.Debug("stream reader stopped", "channel", stream.String(), "error", err)
	}
	r.close(stream)
}

// publish delivers one line to every subscriber of the stream. The send
// blocks until the subscriber consumes the line or cancels, which keeps
// delivery lossless without unbounded buffering; a waiter always either
// drains its channel or closes done via cancel.
func (r *relay) publish(stream Stream, line string) {
	r.mu.Lock()
	subs := make([]*subscription, len(r.subs[stream]))
	copy(subs, r.subs[stream])
	r.mu.Unlock()

	for _, sub := range subs {
		select {
		case sub.ch <- line:
		case <-sub.done:
		}
	}
}

// close marks the stream ended and closes all its subscriber feeds.
// Only called from the stream's own reader goroutine, after the last
// publish, so there is no send-after-close race.
func (r *relay) close(stream Stream) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed[stream] = true
	for _, sub := range r.subs[stream] {
		close(sub.ch)
	}
	r.subs[stream] = nil
}

// subscribe attaches a new line feed to the stream. If the stream has
// already ended the returned feed is already closed, so the subscriber
// observes termination immediately.
func (r *relay) subscribe(stream Stream) *subscription {
	sub := &subscription{
		ch:   make(chan string),
		done: make(chan struct{}),
	}
	var once sync.Once
	sub.cancel = func() {
		once.Do(func() {
			close(sub.done)
			r.mu.Lock()
			list := r.subs[stream]
			for i, s := range list {
				if s == sub {
					r.subs[stream] = append(list[:i], list[i+1:]...)
					break
				}
			}
			r.mu.Unlock()
		})
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed[stream] {
		close(sub.ch)
		return sub
	}
	r.subs[stream] = append(r.subs[stream], sub)
	return sub
}
