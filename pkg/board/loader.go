// Package board loads pages of the review board. Requests are tagged with a
// sequence number and only the newest one may publish its result, so a slow
// response for an old page never overwrites a newer page.
package board

import (
	"context"
	"sync"
	"time"

	"littletimes/internal/models"
)

// DefaultTimeout bounds how long a page load may stay in the loading state.
const DefaultTimeout = 8 * time.Second

// LoadFailedMessage is shown when a page cannot be loaded.
const LoadFailedMessage = "게시글을 불러오지 못했습니다. 잠시 후 다시 시도해주세요."

// LoadError is the error state of a failed or timed out load.
type LoadError struct {
	Err error
}

func (e *LoadError) Error() string { return LoadFailedMessage }

func (e *LoadError) Unwrap() error { return e.Err }

// ErrTimeout is the cause of a load that did not finish in time.
var ErrTimeout = context.DeadlineExceeded

// Fetcher is implemented by *client.Client.
type Fetcher interface {
	Posts(ctx context.Context, page, limit int) (*models.Page[models.PostView], error)
}

// State is a snapshot of the board.
type State struct {
	Loading    bool
	Posts      []models.PostView
	Page       int
	Limit      int
	Total      int64
	TotalPages int
	Err        error
}

// Option configures a Loader.
type Option func(*Loader)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(l *Loader) { l.timeout = d }
}

// Loader publishes board state for the latest requested page.
type Loader struct {
	api     Fetcher
	timeout time.Duration

	mu     sync.Mutex
	seq    uint64
	state  State
	subs   map[int]func(State)
	nextID int
}

// NewLoader returns an idle loader.
func NewLoader(api Fetcher, opts ...Option) *Loader {
	l := &Loader{
		api:     api,
		timeout: DefaultTimeout,
		subs:    make(map[int]func(State)),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// State returns the current snapshot.
func (l *Loader) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Subscribe calls fn after every state change until unsubscribe is called.
func (l *Loader) Subscribe(fn func(State)) (unsubscribe func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	id := l.nextID
	l.nextID++
	l.subs[id] = fn
	return func() {
		l.mu.Lock()
		delete(l.subs, id)
		l.mu.Unlock()
	}
}

// Load starts loading page and returns its sequence number. It does not
// wait for the result. The underlying request is left running after the
// timeout; its late result is discarded.
func (l *Loader) Load(ctx context.Context, page, limit int) uint64 {
	l.mu.Lock()
	l.seq++
	seq := l.seq
	l.state.Loading = true
	l.state.Err = nil
	l.state.Page = page
	l.state.Limit = limit
	l.publishLocked()
	l.mu.Unlock()

	results := make(chan result, 1)
	go func() {
		p, err := l.api.Posts(ctx, page, limit)
		results <- result{page: p, err: err}
	}()

	go l.await(seq, results)
	return seq
}

type result struct {
	page *models.Page[models.PostView]
	err  error
}

func (l *Loader) await(seq uint64, results <-chan result) {
	timer := time.NewTimer(l.timeout)
	defer timer.Stop()

	select {
	case r := <-results:
		l.settle(seq, r)
	case <-timer.C:
		l.settle(seq, result{err: ErrTimeout})
	}
}

// settle applies r when seq is still the latest request.
func (l *Loader) settle(seq uint64, r result) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if seq != l.seq {
		return
	}

	l.state.Loading = false
	if r.err != nil {
		l.state.Err = &LoadError{Err: r.err}
		l.publishLocked()
		return
	}

	l.state.Err = nil
	l.state.Posts = r.page.Items
	l.state.Page = r.page.Page
	l.state.Limit = r.page.Limit
	l.state.Total = r.page.Total
	l.state.TotalPages = r.page.TotalPages
	l.publishLocked()
}

// publishLocked notifies subscribers while holding the lock so they observe
// states in order. Subscribers must not call back into the loader.
func (l *Loader) publishLocked() {
	st := l.state
	for _, fn := range l.subs {
		fn(st)
	}
}
