package livesync

import (
	"context"
	"errors"
	"sync"

	"bitbucket.org/ginoconcreto/estoque_backend/config"
	"bitbucket.org/ginoconcreto/estoque_backend/models"
)

// Synchronizer keeps the shared in-memory AppState eventually consistent
// with the store. On every change notification it performs a full reread of
// the affected collection and merges the result; it never applies event
// payloads incrementally, so delivery order between rereads doesn't matter.
// Session-local fields (usina, role, login flag) are pinned by the merge
// rule and by keeping them per-connection in the hub.
type Synchronizer struct {
	notifier Notifier
	hub      *Hub

	mu      sync.Mutex
	state   *models.AppState
	lastSeq int64

	cancelSub func()
	stop      chan struct{}
	done      chan struct{}
	started   bool
}

func NewSynchronizer(initial *models.AppState, notifier Notifier, hub *Hub) *Synchronizer {
	if initial == nil {
		initial = models.NewFallbackState()
	}
	return &Synchronizer{
		notifier: notifier,
		hub:      hub,
		state:    initial,
	}
}

// Start subscribes and begins merging. Safe to call once per Stop cycle;
// repeated Start/Stop must not leak subscriptions or goroutines.
func (s *Synchronizer) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return errors.New("synchronizer already started")
	}
	events, cancel, err := s.notifier.Subscribe(ctx)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.cancelSub = cancel
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	s.started = true
	s.mu.Unlock()

	go s.run(ctx, events)
	return nil
}

func (s *Synchronizer) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	cancel := s.cancelSub
	stop := s.stop
	done := s.done
	s.started = false
	s.mu.Unlock()

	close(stop)
	cancel()
	<-done
}

func (s *Synchronizer) run(ctx context.Context, events <-chan models.ChangeEvent) {
	defer close(s.done)
	for {
		select {
		case <-s.stop:
			return
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			s.Handle(ctx, ev)
		}
	}
}

// Handle reacts to one change event: stale-sequence events are dropped so a
// late-delivered notification can never replace newer state with an older
// reread.
func (s *Synchronizer) Handle(ctx context.Context, ev models.ChangeEvent) {
	s.mu.Lock()
	if ev.Seq > 0 && ev.Seq <= s.lastSeq {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	view, err := s.reread(ctx, ev.Table)
	if err != nil {
		config.LogError(config.GetLogger(), "synchronizer.go", "Handle", "reread", ev, err)
		return
	}

	s.ApplyView(view)

	s.mu.Lock()
	if ev.Seq > s.lastSeq {
		s.lastSeq = ev.Seq
	}
	s.mu.Unlock()

	if s.hub != nil {
		s.hub.BroadcastState(s.StateView())
	}
}

func (s *Synchronizer) reread(ctx context.Context, table string) (models.RemoteView, error) {
	var view models.RemoteView
	switch table {
	case models.ChangeTableHistory:
		history, err := models.AllHistories(ctx)
		if err != nil {
			return view, err
		}
		view.History = history
	default:
		items, err := models.ListStockItems(ctx)
		if err != nil {
			return view, err
		}
		view.Inventory = models.AllSnapshots(items)
	}
	return view, nil
}

// ApplyView merges a reread payload. Idempotent: applying the same view
// twice leaves the state identical.
func (s *Synchronizer) ApplyView(view models.RemoteView) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.MergeRemote(view)
}

// StateView returns a shallow copy of the merged view. Maps are replaced
// wholesale on merge, never mutated in place, so sharing them is safe.
func (s *Synchronizer) StateView() models.AppState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.state
}
