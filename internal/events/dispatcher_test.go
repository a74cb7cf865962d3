package events_test

import (
	"testing"
	"time"

	"github.com/cdpforge/cdpd/internal/events"
)

func TestEventFilterOnlyDeliversMatchingType(t *testing.T) {
	d := events.NewDispatcher(100)
	_, recv := d.Subscribe("", "", []events.EventType{events.EventPageLoaded})

	d.DispatchConsoleEvent("", "", events.ConsoleEventData{Level: "info", Text: "hi"})
	d.DispatchNetworkEvent("", "", events.NetworkEventData{URL: "https://x", Method: "GET"})
	d.DispatchPageEvent("", "", events.PageEventData{URL: "https://example.com", Title: "Example"})

	e, ok := recv.Recv()
	if !ok {
		t.Fatal("expected an event")
	}
	if e.Type != events.EventPageLoaded || e.Page == nil || e.Page.URL != "https://example.com" {
		t.Fatalf("got %+v, want the page event", e)
	}
	if d.SubscriptionCount() != 1 {
		t.Fatalf("SubscriptionCount() = %d, want 1", d.SubscriptionCount())
	}
}

func TestEmptyTypeSetMatchesEverything(t *testing.T) {
	d := events.NewDispatcher(10)
	_, recv := d.Subscribe("", "", nil)

	d.DispatchConsoleEvent("", "", events.ConsoleEventData{Level: "warn"})

	select {
	case e := <-chanOf(recv):
		if e.Type != events.EventConsoleLog {
			t.Fatalf("got %+v", e)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestDispatchNeverBlocksOnFullSubscriber(t *testing.T) {
	d := events.NewDispatcher(1)
	_, recv := d.Subscribe("", "", nil)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			d.DispatchConsoleEvent("", "", events.ConsoleEventData{Level: "info"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("dispatch blocked on a full subscriber channel")
	}

	// A LaggedError here is the expected outcome once the single-slot
	// buffer overflowed; TryRecv must still return promptly either way.
	_, _ = recv.TryRecv()
}

func chanOf(r *events.FilteredReceiver) <-chan events.Event {
	out := make(chan events.Event, 1)
	go func() {
		e, ok := r.Recv()
		if ok {
			out <- e
		}
	}()
	return out
}

func TestCleanupInactiveReapsReleasedReceivers(t *testing.T) {
	d := events.NewDispatcher(10)
	_, released := d.Subscribe("", "", nil)
	d.Subscribe("", "", nil)

	released.Release()
	if removed := d.CleanupInactive(); removed != 1 {
		t.Fatalf("CleanupInactive() = %d, want 1", removed)
	}
	if d.SubscriptionCount() != 1 {
		t.Fatalf("SubscriptionCount() = %d, want 1", d.SubscriptionCount())
	}
	if _, ok := released.Recv(); ok {
		t.Fatal("expected released receiver's channel closed after cleanup")
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	d := events.NewDispatcher(10)
	id, recv := d.Subscribe("", "", nil)
	d.Unsubscribe(id)

	_, ok := recv.Recv()
	if ok {
		t.Fatal("expected channel closed after Unsubscribe")
	}
	if d.SubscriptionCount() != 0 {
		t.Fatalf("SubscriptionCount() = %d, want 0", d.SubscriptionCount())
	}
}
