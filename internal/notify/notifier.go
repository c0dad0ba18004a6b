// Package notify holds transient user-facing notifications.
package notify

import (
	"log/slog"
	"sync"
	"time"

	"github.com/starford/itemdesk/internal/sse"
)

// Level classifies a notification.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
)

// DefaultDismissAfter is how long a notification stays visible.
const DefaultDismissAfter = 3 * time.Second

// Notification is one transient message.
type Notification struct {
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Publisher receives every notification for broadcast.
type Publisher interface {
	Publish(sse.Event)
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithPublisher broadcasts notifications as SSE events.
func WithPublisher(p Publisher) Option {
	return func(n *Notifier) { n.pub = p }
}

// WithSink hands every notification to fn as it is raised (terminal output).
func WithSink(fn func(Notification)) Option {
	return func(n *Notifier) { n.sink = fn }
}

// WithLogger sets the logger used for notification diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(n *Notifier) { n.logger = l }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(n *Notifier) { n.now = now }
}

// Notifier keeps the most recent notification until it is auto-dismissed.
type Notifier struct {
	delay  time.Duration
	now    func() time.Time
	pub    Publisher
	sink   func(Notification)
	logger *slog.Logger

	mu      sync.Mutex
	current *Notification
}

// New creates a Notifier whose notifications expire after delay.
func New(delay time.Duration, opts ...Option) *Notifier {
	if delay <= 0 {
		delay = DefaultDismissAfter
	}
	n := &Notifier{
		delay:  delay,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Notify raises a notification, replacing any visible one.
func (n *Notifier) Notify(level Level, msg string) {
	note := Notification{
		Level:     level,
		Message:   msg,
		ExpiresAt: n.now().Add(n.delay),
	}

	n.mu.Lock()
	n.current = &note
	n.mu.Unlock()

	n.logger.Debug("notification", slog.String("level", string(level)), slog.String("message", msg))

	if n.pub != nil {
		n.pub.Publish(sse.Event{Type: sse.EventNotification, Data: note})
	}
	if n.sink != nil {
		n.sink(note)
	}
}

func (n *Notifier) Success(msg string) { n.Notify(LevelSuccess, msg) }
func (n *Notifier) Error(msg string)   { n.Notify(LevelError, msg) }
func (n *Notifier) Info(msg string)    { n.Notify(LevelInfo, msg) }

// Current returns the visible notification, if it has not been dismissed yet.
func (n *Notifier) Current() (Notification, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.current == nil {
		return Notification{}, false
	}
	if !n.now().Before(n.current.ExpiresAt) {
		n.current = nil
		return Notification{}, false
	}
	return *n.current, true
}

// Dismiss hides the visible notification.
func (n *Notifier) Dismiss() {
	n.mu.Lock()
	n.current = nil
	n.mu.Unlock()
}
