// Package events implements a bounded broadcast bus that dispatches
// page/console/network events to filtered subscribers without ever blocking
// a producer.
package events

import (
	"strings"
	"time"
)

// EventType is the small public taxonomy events are mapped into. The
// mapping from internal CDP domains to this enum is intentionally lossy:
// all Console variants fold to ConsoleLog and all Network variants fold to
// RequestSent. Refining it is left to the gRPC schema, not this package.
type EventType int

const (
	EventTypeUnknown EventType = iota
	EventPageLoaded
	EventConsoleLog
	EventRequestSent
)

// Kind is the internal tagged event variant produced by the CDP domain
// dispatch functions, before it is mapped to the public EventType.
type Kind int

const (
	KindPage Kind = iota
	KindConsole
	KindNetwork
)

func (k Kind) mappedType() EventType {
	switch k {
	case KindPage:
		return EventPageLoaded
	case KindConsole:
		return EventConsoleLog
	case KindNetwork:
		return EventRequestSent
	default:
		return EventTypeUnknown
	}
}

// PageEventData is the payload for a dispatched page event.
type PageEventData struct {
	URL   string
	Title string
}

// ConsoleEventData is the payload for a dispatched console event.
type ConsoleEventData struct {
	Level string
	Text  string
}

// NetworkEventData is the payload for a dispatched network event.
type NetworkEventData struct {
	URL          string
	Method       string
	StatusCode   int
	ResourceType string
}

// Event is the unit broadcast to subscribers.
type Event struct {
	Kind      Kind
	Type      EventType
	PageID    string
	BrowserID string
	Timestamp time.Time

	Page    *PageEventData
	Console *ConsoleEventData
	Network *NetworkEventData
}

// Filter holds the per-category refinements accepted by
// subscribe_with_filters: URL pattern, status-code set, resource-type set,
// log-level set.
type Filter struct {
	URLPattern    string
	StatusCodes   map[int]struct{}
	ResourceTypes map[string]struct{}
	LogLevels     map[string]struct{}
}

func (f *Filter) matches(e Event) bool {
	if f == nil {
		return true
	}
	if f.URLPattern != "" {
		url := ""
		switch {
		case e.Page != nil:
			url = e.Page.URL
		case e.Network != nil:
			url = e.Network.URL
		}
		if !matchPattern(f.URLPattern, url) {
			return false
		}
	}
	if e.Network != nil && len(f.StatusCodes) > 0 {
		if _, ok := f.StatusCodes[e.Network.StatusCode]; !ok {
			return false
		}
	}
	if e.Network != nil && len(f.ResourceTypes) > 0 {
		if _, ok := f.ResourceTypes[e.Network.ResourceType]; !ok {
			return false
		}
	}
	if e.Console != nil && len(f.LogLevels) > 0 {
		if _, ok := f.LogLevels[e.Console.Level]; !ok {
			return false
		}
	}
	return true
}

// matchPattern does a simple substring/wildcard match; "*" matches
// anything, otherwise the pattern must be a case-insensitive substring of
// the URL.
func matchPattern(pattern, url string) bool {
	if pattern == "" || pattern == "*" {
		return true
	}
	return strings.Contains(strings.ToLower(url), strings.ToLower(pattern))
}
