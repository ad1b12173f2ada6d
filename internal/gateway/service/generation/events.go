package generation

import (
	"context"
	"sync"
	"time"

	"github.com/Sumner-Digital/coloringpage-fun/internal/gateway/repository/jobstore"
)

// Event is one progress update for a job. Progress events with a Message
// are cosmetic; the Phase transitions are the real state changes.
type Event struct {
	JobID    string         `json:"jobId"`
	Phase    jobstore.Phase `json:"phase"`
	Message  string         `json:"message,omitempty"`
	VideoKey string         `json:"videoKey,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// workingMessages rotate on the progress ticker while the remote
// operation is pending, purely for UI feedback.
var workingMessages = []string{
	"Warming up the crayons...",
	"Teaching your drawing to move...",
	"Mixing the colors...",
	"Adding a little sparkle...",
	"Almost there, hold tight...",
}

const progressTickEvery = 5 * time.Second

type eventHub struct {
	mu   sync.Mutex
	subs map[string]map[chan Event]struct{}
}

func newEventHub() *eventHub {
	return &eventHub{subs: make(map[string]map[chan Event]struct{})}
}

func (h *eventHub) subscribe(jobID string) (<-chan Event, func()) {
	ch := make(chan Event, 16)
	h.mu.Lock()
	set, ok := h.subs[jobID]
	if !ok {
		set = make(map[chan Event]struct{})
		h.subs[jobID] = set
	}
	set[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			if set, ok := h.subs[jobID]; ok {
				delete(set, ch)
				if len(set) == 0 {
					delete(h.subs, jobID)
				}
			}
			h.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// publish never blocks: a slow subscriber just misses the event, the job
// record itself stays authoritative.
func (h *eventHub) publish(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[ev.JobID] {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (s *Service) startProgressTicker(ctx context.Context, jobID string) func() {
	tickerCtx, cancel := context.WithCancel(ctx)
	go func() {
		ticker := time.NewTicker(progressTickEvery)
		defer ticker.Stop()
		i := 0
		for {
			select {
			case <-tickerCtx.Done():
				return
			case <-ticker.C:
				s.hub.publish(Event{
					JobID:   jobID,
					Phase:   jobstore.PhaseGenerating,
					Message: workingMessages[i%len(workingMessages)],
				})
				i++
			}
		}
	}()
	return cancel
}
