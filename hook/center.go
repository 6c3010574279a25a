package hook

import (
	"context"
	"errors"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Event names emitted by the progression engine. Handlers run after the
// originating transaction has committed.
const (
	QuestActivated = "quest.activated"
	QuestCompleted = "quest.completed"
	QuestReset     = "quest.reset"
	QuestRemoved   = "quest.removed"
	TargetAdapted  = "target.adapted"
	StreakUpdated  = "streak.updated"
	PlayerLevelUp  = "player.level_up"
)

// ErrInterrupt stops the remaining handlers for an event.
var ErrInterrupt = errors.New("hook interrupted")

// Event is the payload handed to every handler.
type Event struct {
	Name    string
	UserID  int64
	Payload map[string]any
}

// Fn handles one event.
type Fn func(ctx context.Context, ev Event) error

type entry struct {
	priority int
	name     string
	fn       Fn
}

// Center dispatches engine events to registered handlers.
type Center struct {
	mu     sync.RWMutex
	hooks  map[string][]*entry
	logger *zap.Logger
}

// NewCenter creates an empty Center. A nil logger disables error logging.
func NewCenter(logger *zap.Logger) *Center {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Center{hooks: make(map[string][]*entry), logger: logger}
}

// Register adds fn for event. Lower priority runs first; equal priorities
// keep registration order.
func (c *Center) Register(event string, priority int, name string, fn Fn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entries := append(c.hooks[event], &entry{priority: priority, name: name, fn: fn})
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].priority < entries[j].priority
	})
	c.hooks[event] = entries
}

// Unregister removes every handler called name from event.
func (c *Center) Unregister(event, name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hooks[event] = without(c.hooks[event], name)
}

// UnregisterAll removes every handler called name from every event.
func (c *Center) UnregisterAll(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for ev, entries := range c.hooks {
		c.hooks[ev] = without(entries, name)
	}
}

func without(entries []*entry, name string) []*entry {
	n := 0
	for _, e := range entries {
		if e.name != name {
			entries[n] = e
			n++
		}
	}
	return entries[:n]
}

// Emit runs the handlers for ev.Name in priority order. Handler errors are
// logged and never returned; ErrInterrupt stops the chain.
func (c *Center) Emit(ctx context.Context, ev Event) {
	if c == nil {
		return
	}
	c.mu.RLock()
	entries := make([]*entry, len(c.hooks[ev.Name]))
	copy(entries, c.hooks[ev.Name])
	c.mu.RUnlock()

	for _, e := range entries {
		err := c.call(ctx, e, ev)
		if errors.Is(err, ErrInterrupt) {
			return
		}
		if err != nil {
			c.logger.Warn("hook handler failed",
				zap.String("event", ev.Name),
				zap.String("handler", e.name),
				zap.Int64("user_id", ev.UserID),
				zap.Error(err))
		}
	}
}

func (c *Center) call(ctx context.Context, e *entry, ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("hook handler panicked",
				zap.String("event", ev.Name),
				zap.String("handler", e.name),
				zap.Any("recover", r))
			err = nil
		}
	}()
	return e.fn(ctx, ev)
}
