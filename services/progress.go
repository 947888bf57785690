package services

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"hostel-analytics/models"
)

// ProgressFunc receives a copy of the job state after every transition.
// A nil state means the progress display should be cleared.
type ProgressFunc func(state *models.JobState)

// Progress holds the live state of one job and fans it out to observers.
// Observers are called synchronously on the job's goroutine.
type Progress struct {
	mu         sync.Mutex
	state      *models.JobState
	observers  []ProgressFunc
	clearDelay time.Duration
	clearTimer *time.Timer
}

// NewProgress creates a tracker whose final state stays visible for clearDelay
func NewProgress(clearDelay time.Duration) *Progress {
	return &Progress{clearDelay: clearDelay}
}

// Subscribe registers an observer
func (p *Progress) Subscribe(fn ProgressFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, fn)
}

// Channel returns a buffered channel fed with every update. Updates are
// dropped rather than blocking the job when the reader falls behind.
//
// The channel is never closed because a Progress outlives its jobs. A nil
// state marks the end of a job and is always delivered: when the buffer is
// full the oldest queued update makes room for it.
func (p *Progress) Channel(buffer int) <-chan *models.JobState {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan *models.JobState, buffer)
	p.Subscribe(func(s *models.JobState) {
		for {
			select {
			case ch <- s:
				return
			default:
			}
			if s != nil {
				return
			}
			select {
			case <-ch:
			default:
			}
		}
	})
	return ch
}

// Current returns a copy of the live state, or nil when idle
func (p *Progress) Current() *models.JobState {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == nil {
		return nil
	}
	s := p.state.Clone()
	return &s
}

func (p *Progress) start(kind string, keys []string) {
	items := make([]models.ItemState, len(keys))
	for i, k := range keys {
		items[i] = models.ItemState{Key: k, Status: models.StatusPending}
	}

	p.mu.Lock()
	if p.clearTimer != nil {
		p.clearTimer.Stop()
		p.clearTimer = nil
	}
	p.state = &models.JobState{
		ID:        uuid.NewString(),
		Kind:      kind,
		Total:     len(keys),
		StartedAt: time.Now(),
		Items:     items,
	}
	p.mu.Unlock()
	p.notify()
}

func (p *Progress) set(i int, status models.ItemStatus, err error) {
	p.mu.Lock()
	if p.state == nil || i < 0 || i >= len(p.state.Items) {
		p.mu.Unlock()
		return
	}
	p.state.Items[i].Status = status
	p.state.Items[i].Error = ""
	if err != nil {
		p.state.Items[i].Error = err.Error()
	}
	if status == models.StatusLoading {
		p.state.Current = i + 1
	}
	p.mu.Unlock()
	p.notify()
}

// finish schedules the state to be cleared once clearDelay has elapsed
func (p *Progress) finish() {
	p.mu.Lock()
	if p.state == nil {
		p.mu.Unlock()
		return
	}
	id := p.state.ID
	if p.clearDelay > 0 {
		p.clearTimer = time.AfterFunc(p.clearDelay, func() { p.clear(id) })
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()
	p.clear(id)
}

// clear drops the state of job id; a newer job's state is left alone
func (p *Progress) clear(id string) {
	p.mu.Lock()
	if p.state == nil || p.state.ID != id {
		p.mu.Unlock()
		return
	}
	p.state = nil
	p.clearTimer = nil
	observers := append([]ProgressFunc(nil), p.observers...)
	p.mu.Unlock()

	for _, fn := range observers {
		fn(nil)
	}
}

func (p *Progress) notify() {
	p.mu.Lock()
	if p.state == nil {
		p.mu.Unlock()
		return
	}
	snapshot := p.state.Clone()
	observers := append([]ProgressFunc(nil), p.observers...)
	p.mu.Unlock()

	for _, fn := range observers {
		s := snapshot.Clone()
		fn(&s)
	}
}
