package flow

import (
	"errors"
	"log/slog"
	"sync"
)

var (
	// ErrNoFlow indicates that the owner has no flow matching the request.
	ErrNoFlow = errors.New("no matching pending flow")
	// ErrNotWaiting indicates that the addressed flow exists but is not in
	// the state the event expects.
	ErrNotWaiting = errors.New("flow is not waiting for this event")
)

// Manager keeps, per owner, a FIFO queue of open flows. Plain text messages
// only ever advance the head of a queue; button callbacks address a flow by
// id wherever it sits. One mutex guards every queue, and the validate-then-
// mutate step of Advance runs entirely under it so two events cannot both
// advance a flow from the same stale state.
type Manager struct {
	mu     sync.Mutex
	queues map[int64][]*Flow
	log    *slog.Logger
}

// NewManager returns an empty Manager.
func NewManager(log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}

	return &Manager{
		queues: make(map[int64][]*Flow),
		log:    log,
	}
}

// Start appends a fresh flow of the given kind to the owner's queue and
// returns a copy of it. Existing flows are never replaced.
func (m *Manager) Start(owner int64, kind Kind) Flow {
	f := New(kind)

	m.mu.Lock()
	m.queues[owner] = append(m.queues[owner], f)
	m.mu.Unlock()

	m.log.Debug("flow started",
		slog.Int64("owner", owner),
		slog.String("flow_id", f.ID),
		slog.String("kind", string(kind)),
	)

	return f.clone()
}

// Head returns a copy of the first flow in the owner's queue, if any.
func (m *Manager) Head(owner int64) (Flow, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	queue := m.queues[owner]
	if len(queue) == 0 {
		return Flow{}, false
	}

	return queue[0].clone(), true
}

// Find returns a copy of the owner's flow with the given id, if any. The
// scan is linear; a queue is bounded by one user's concurrently open flows.
func (m *Manager) Find(owner int64, flowID string) (Flow, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if f := m.findLocked(owner, flowID); f != nil {
		return f.clone(), true
	}

	return Flow{}, false
}

// AdvanceHead applies mutate to the head of the owner's queue. The callback
// runs under the manager's lock and must return an error to refuse the
// mutation; ErrNoFlow is returned when the queue is empty. On success a copy
// of the mutated flow is returned.
func (m *Manager) AdvanceHead(owner int64, mutate func(*Flow) error) (Flow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	queue := m.queues[owner]
	if len(queue) == 0 {
		return Flow{}, ErrNoFlow
	}

	return m.advanceLocked(queue[0], mutate)
}

// Advance applies mutate to the owner's flow with the given id, which is not
// necessarily the head. Validation inside mutate is atomic with the mutation.
func (m *Manager) Advance(owner int64, flowID string, mutate func(*Flow) error) (Flow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	f := m.findLocked(owner, flowID)
	if f == nil {
		return Flow{}, ErrNoFlow
	}

	return m.advanceLocked(f, mutate)
}

// Remove deletes the flow with the given id from the owner's queue, used for
// both completion and abort. Removing the head is O(1); anywhere else is a
// linear removal by identity. Missing flows are a safe no-op.
func (m *Manager) Remove(owner int64, flowID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	queue := m.queues[owner]
	for i, f := range queue {
		if f.ID != flowID {
			continue
		}

		if i == 0 {
			queue = queue[1:]
		} else {
			queue = append(queue[:i], queue[i+1:]...)
		}

		if len(queue) == 0 {
			delete(m.queues, owner)
		} else {
			m.queues[owner] = queue
		}

		return true
	}

	return false
}

// Open returns the number of open flows for the owner.
func (m *Manager) Open(owner int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.queues[owner])
}

func (m *Manager) findLocked(owner int64, flowID string) *Flow {
	for _, f := range m.queues[owner] {
		if f.ID == flowID {
			return f
		}
	}

	return nil
}

func (m *Manager) advanceLocked(f *Flow, mutate func(*Flow) error) (Flow, error) {
	before := f.State

	if err := mutate(f); err != nil {
		return Flow{}, err
	}

	if f.State != before {
		if !IsTransitionAllowed(f.Kind, before, f.State) {
			m.log.Error("illegal flow transition",
				slog.String("flow_id", f.ID),
				slog.String("kind", string(f.Kind)),
				slog.String("from", string(before)),
				slog.String("to", string(f.State)),
			)
		}

		transitionRecorder(string(f.Kind), string(before), string(f.State))
	}

	return f.clone(), nil
}
