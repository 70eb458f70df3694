package realtime

import (
	"fmt"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/sirupsen/logrus"

	"github.com/Pokatocz/quest-and-check/internal/logging"
)

type Event string

const (
	EventInsert Event = "INSERT"
	EventUpdate Event = "UPDATE"
	EventDelete Event = "DELETE"
)

// Table names carried by changes.
const (
	TableTasks    = "tasks"
	TableTeams    = "teams"
	TableMembers  = "team_members"
	TableMessages = "messages"
)

// Change announces that a row was written. It carries no row data;
// subscribers re-read whatever they display.
type Change struct {
	Table  string    `json:"table"`
	Event  Event     `json:"event"`
	TeamID uint      `json:"team_id"`
	RowID  uint      `json:"row_id"`
	At     time.Time `json:"at"`
	Origin string    `json:"origin,omitempty"`
}

type Handle uint64

type subscription struct {
	table    string
	teamID   uint
	onChange func(Change)
}

func (s subscription) matches(c Change) bool {
	return (s.table == "" || s.table == c.Table) && (s.teamID == 0 || s.teamID == c.TeamID)
}

// Hub fans changes out to in-process subscribers. Callbacks run on a worker
// pool, so a slow subscriber never blocks the writer that published.
type Hub struct {
	mu     sync.RWMutex
	subs   map[Handle]subscription
	next   Handle
	pool   *ants.Pool
	relays []func(Change)
}

func NewHub(workers int) (*Hub, error) {
	pool, err := ants.NewPool(workers,
		ants.WithLogger(logging.Logger),
		ants.WithPanicHandler(func(p interface{}) {
			logging.CaptureError("realtime_callback_panic", fmt.Errorf("%v", p), nil)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create dispatch pool: %w", err)
	}
	return &Hub{
		subs: make(map[Handle]subscription),
		pool: pool,
	}, nil
}

// Subscribe registers onChange for changes to table within teamID. An empty
// table or a zero teamID matches everything on that axis.
func (h *Hub) Subscribe(table string, teamID uint, onChange func(Change)) Handle {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.next++
	h.subs[h.next] = subscription{table: table, teamID: teamID, onChange: onChange}
	return h.next
}

func (h *Hub) Unsubscribe(handle Handle) {
	h.mu.Lock()
	delete(h.subs, handle)
	h.mu.Unlock()
}

// AddRelay forwards every locally published change to fn, e.g. to share it
// with other instances.
func (h *Hub) AddRelay(fn func(Change)) {
	h.mu.Lock()
	h.relays = append(h.relays, fn)
	h.mu.Unlock()
}

func (h *Hub) Publish(change Change) {
	if change.At.IsZero() {
		change.At = time.Now()
	}
	h.Deliver(change)

	h.mu.RLock()
	relays := make([]func(Change), len(h.relays))
	copy(relays, h.relays)
	h.mu.RUnlock()
	for _, relay := range relays {
		relay(change)
	}
}

// Deliver hands change to local subscribers only.
func (h *Hub) Deliver(change Change) {
	h.mu.RLock()
	var targets []func(Change)
	for _, sub := range h.subs {
		if sub.matches(change) {
			targets = append(targets, sub.onChange)
		}
	}
	h.mu.RUnlock()

	for _, fn := range targets {
		fn := fn
		if err := h.pool.Submit(func() { fn(change) }); err != nil {
			logging.Logger.WithFields(logrus.Fields{
				"table":   change.Table,
				"team_id": change.TeamID,
			}).WithError(err).Warn("dropped change notification")
		}
	}
}

func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func (h *Hub) Close() {
	h.pool.Release()
}
