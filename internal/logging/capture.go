package logging

import (
	"context"
	"sync"
)

// CapturedEvent is one Event call recorded by a Capture logger.
type CapturedEvent struct {
	Severity Severity
	Code     string
	Meta     map[string]any
}

// Capture records events in memory. It exists for tests and diagnostic
// surfaces that need to assert on the event stream instead of parsing
// formatted output.
type Capture struct {
	mu     sync.Mutex
	events []CapturedEvent
}

// NewCapture creates an empty capture logger.
func NewCapture() *Capture {
	return &Capture{}
}

func (c *Capture) Debug(ctx context.Context, msg string, fields ...any) {}

func (c *Capture) Info(ctx context.Context, msg string, fields ...any) {}

func (c *Capture) Warn(ctx context.Context, err error, msg string, fields ...any) {}

func (c *Capture) Error(ctx context.Context, err error, msg string, fields ...any) {}

func (c *Capture) Event(severity Severity, code string, meta map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	copied := make(map[string]any, len(meta))
	for k, v := range meta {
		copied[k] = v
	}
	c.events = append(c.events, CapturedEvent{Severity: severity, Code: code, Meta: copied})
}

func (c *Capture) With(fields ...any) Logger { return c }

func (c *Capture) WithComponent(component string) Logger { return c }

// Events returns a snapshot of everything recorded so far.
func (c *Capture) Events() []CapturedEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]CapturedEvent(nil), c.events...)
}

// EventsWithCode filters the recorded events by code.
func (c *Capture) EventsWithCode(code string) []CapturedEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []CapturedEvent
	for _, e := range c.events {
		if e.Code == code {
			out = append(out, e)
		}
	}
	return out
}
