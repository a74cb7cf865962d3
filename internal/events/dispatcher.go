package events

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ErrLagged is the sentinel a LaggedError wraps; check with errors.Is.
var ErrLagged = errors.New("events: subscriber lagged, events were dropped")

// LaggedError reports how many events were dropped for a subscriber before
// it caught back up.
type LaggedError struct {
	Count uint64
}

func (e *LaggedError) Error() string {
	return fmt.Sprintf("events: lagged by %d", e.Count)
}

func (e *LaggedError) Unwrap() error {
	return ErrLagged
}

const defaultCapacity = 100

// subscription is the Dispatcher-owned state for one subscriber.
type subscription struct {
	id        uuid.UUID
	pageID    string
	browserID string
	types     map[EventType]struct{}
	filter    *Filter
	createdAt time.Time

	ch      chan Event
	lagged  uint64 // atomic-ish, guarded by dispatcher mu on read/reset
	active  bool
}

func (s *subscription) accepts(e Event) bool {
	if s.pageID != "" && e.PageID != s.pageID {
		return false
	}
	if s.browserID != "" && e.BrowserID != s.browserID {
		return false
	}
	if len(s.types) > 0 {
		if _, ok := s.types[e.Type]; !ok {
			return false
		}
	}
	return s.filter.matches(e)
}

// FilteredReceiver is the subscriber-facing handle returned by Subscribe.
type FilteredReceiver struct {
	d  *Dispatcher
	id uuid.UUID
	ch <-chan Event
}

// Recv blocks until an event matching the subscription arrives or the
// dispatcher closes the channel (subscription removed).
func (r *FilteredReceiver) Recv() (Event, bool) {
	e, ok := <-r.ch
	return e, ok
}

// Release marks the subscription's receiver as released without removing it
// immediately; the next CleanupInactive pass reaps it. Use Unsubscribe for
// immediate removal.
func (r *FilteredReceiver) Release() {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	if sub, ok := r.d.subs[r.id]; ok {
		sub.active = false
	}
}

// TryRecv is the non-blocking form; it also surfaces the "lagged by N"
// condition as a recoverable error before resuming normal delivery.
func (r *FilteredReceiver) TryRecv() (Event, error) {
	if n := r.d.consumeLag(r.id); n > 0 {
		return Event{}, &LaggedError{Count: n}
	}
	select {
	case e, ok := <-r.ch:
		if !ok {
			return Event{}, errors.New("events: subscription closed")
		}
		return e, nil
	default:
		return Event{}, nil
	}
}

// Dispatcher is a broadcast fan-out with bounded per-subscriber capacity.
// dispatch never blocks a producer: a full subscriber channel increments
// that subscriber's lag counter and drops the event instead of waiting.
type Dispatcher struct {
	mu   sync.RWMutex
	subs map[uuid.UUID]*subscription
	cap  int
}

// NewDispatcher constructs a Dispatcher with the given per-subscriber
// channel capacity (100 when non-positive).
func NewDispatcher(capacity int) *Dispatcher {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &Dispatcher{subs: make(map[uuid.UUID]*subscription), cap: capacity}
}

// Subscribe registers a new subscription, optionally scoped to a page
// and/or browser and a set of event types (empty set matches everything).
func (d *Dispatcher) Subscribe(pageID, browserID string, types []EventType) (uuid.UUID, *FilteredReceiver) {
	return d.SubscribeWithFilter(pageID, browserID, types, nil)
}

// SubscribeWithFilter is Subscribe plus per-category filters.
func (d *Dispatcher) SubscribeWithFilter(pageID, browserID string, types []EventType, filter *Filter) (uuid.UUID, *FilteredReceiver) {
	id := uuid.New()
	typeSet := make(map[EventType]struct{}, len(types))
	for _, t := range types {
		typeSet[t] = struct{}{}
	}

	sub := &subscription{
		id:        id,
		pageID:    pageID,
		browserID: browserID,
		types:     typeSet,
		filter:    filter,
		createdAt: time.Now(),
		ch:        make(chan Event, d.cap),
		active:    true,
	}

	d.mu.Lock()
	d.subs[id] = sub
	d.mu.Unlock()

	return id, &FilteredReceiver{d: d, id: id, ch: sub.ch}
}

// Unsubscribe removes a subscription and closes its channel.
func (d *Dispatcher) Unsubscribe(id uuid.UUID) {
	d.mu.Lock()
	sub, ok := d.subs[id]
	if ok {
		delete(d.subs, id)
	}
	d.mu.Unlock()
	if ok {
		close(sub.ch)
	}
}

// ListSubscriptions returns the ids of all live subscriptions.
func (d *Dispatcher) ListSubscriptions() []uuid.UUID {
	d.mu.RLock()
	defer d.mu.RUnlock()
	ids := make([]uuid.UUID, 0, len(d.subs))
	for id := range d.subs {
		ids = append(ids, id)
	}
	return ids
}

// SubscriptionCount returns the number of live subscriptions.
func (d *Dispatcher) SubscriptionCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.subs)
}

// CleanupInactive drops subscriptions marked inactive (receiver released).
func (d *Dispatcher) CleanupInactive() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	removed := 0
	for id, sub := range d.subs {
		if !sub.active {
			close(sub.ch)
			delete(d.subs, id)
			removed++
		}
	}
	return removed
}

// DispatchPageEvent broadcasts a Page-domain event.
func (d *Dispatcher) DispatchPageEvent(pageID, browserID string, data PageEventData) {
	d.dispatch(Event{Kind: KindPage, Type: KindPage.mappedType(), PageID: pageID, BrowserID: browserID, Timestamp: time.Now(), Page: &data})
}

// DispatchConsoleEvent broadcasts a console-domain event.
func (d *Dispatcher) DispatchConsoleEvent(pageID, browserID string, data ConsoleEventData) {
	d.dispatch(Event{Kind: KindConsole, Type: KindConsole.mappedType(), PageID: pageID, BrowserID: browserID, Timestamp: time.Now(), Console: &data})
}

// DispatchNetworkEvent broadcasts a network-domain event.
func (d *Dispatcher) DispatchNetworkEvent(pageID, browserID string, data NetworkEventData) {
	d.dispatch(Event{Kind: KindNetwork, Type: KindNetwork.mappedType(), PageID: pageID, BrowserID: browserID, Timestamp: time.Now(), Network: &data})
}

func (d *Dispatcher) dispatch(e Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, sub := range d.subs {
		if !sub.accepts(e) {
			continue
		}
		select {
		case sub.ch <- e:
		default:
			sub.lagged++
			log.Debug().Str("subscription_id", sub.id.String()).Msg("events: subscriber lagged, event dropped")
		}
	}
}

func (d *Dispatcher) consumeLag(id uuid.UUID) uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	sub, ok := d.subs[id]
	if !ok || sub.lagged == 0 {
		return 0
	}
	n := sub.lagged
	sub.lagged = 0
	return n
}
