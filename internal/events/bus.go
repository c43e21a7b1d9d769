package events

import (
	"alcyxob/workout-playlist/internal/logger"
	"alcyxob/workout-playlist/internal/repository"
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// EventType says which part of the library changed.
type EventType string

const (
	EventExerciseChanged EventType = "exercise_changed"
	EventClipChanged     EventType = "clip_changed"
	EventInvalidate      EventType = "invalidate" // operator-triggered, carries a scope
)

// Event is the invalidation message exchanged between workers.
type Event struct {
	Type       EventType `json:"type"`
	ExerciseID string    `json:"exercise_id,omitempty"`
	ClipID     string    `json:"clip_id,omitempty"`
	Scope      string    `json:"scope,omitempty"`
	Origin     string    `json:"origin"`
	SentAt     time.Time `json:"sent_at"`
}

// Handler receives events published by other workers.
type Handler interface {
	repository.ChangeListener
	InvalidateScope(scope string) error
}

// Bus carries cache invalidations across worker processes.
type Bus interface {
	Publish(ctx context.Context, ev Event) error
	Start(ctx context.Context, h Handler) error
	Close() error
}

func encodeEvent(ev Event) ([]byte, error) {
	return json.Marshal(ev)
}

// dispatch applies one payload to h. Events sent by this worker are skipped;
// it has already invalidated locally.
func dispatch(payload []byte, self string, h Handler, log *logger.Logger) error {
	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return fmt.Errorf("decode event: %w", err)
	}
	if ev.Origin == self {
		return nil
	}
	switch ev.Type {
	case EventExerciseChanged:
		h.OnExerciseChanged(ev.ExerciseID)
	case EventClipChanged:
		h.OnClipChanged(ev.ClipID, ev.ExerciseID)
	case EventInvalidate:
		return h.InvalidateScope(ev.Scope)
	default:
		return fmt.Errorf("unknown event type %q", ev.Type)
	}
	log.Debug("applied remote invalidation", "type", string(ev.Type), "origin", ev.Origin)
	return nil
}

// Notifier adapts a Bus to repository.ChangeListener so local writes are
// announced to other workers. Publishing is asynchronous and best effort.
type Notifier struct {
	bus     Bus
	origin  string
	timeout time.Duration
	log     *logger.Logger
}

func NewNotifier(bus Bus, origin string, log *logger.Logger) *Notifier {
	if log == nil {
		log = logger.Nop()
	}
	return &Notifier{bus: bus, origin: origin, timeout: 2 * time.Second, log: log.With("component", "InvalidationNotifier")}
}

func (n *Notifier) OnExerciseChanged(exerciseID string) {
	n.publish(Event{Type: EventExerciseChanged, ExerciseID: exerciseID})
}

func (n *Notifier) OnClipChanged(clipID, exerciseID string) {
	n.publish(Event{Type: EventClipChanged, ClipID: clipID, ExerciseID: exerciseID})
}

// PublishScope announces an operator invalidation and waits for the publish.
func (n *Notifier) PublishScope(ctx context.Context, scope string) error {
	return n.bus.Publish(ctx, Event{Type: EventInvalidate, Scope: scope, Origin: n.origin, SentAt: time.Now().UTC()})
}

func (n *Notifier) publish(ev Event) {
	ev.Origin = n.origin
	ev.SentAt = time.Now().UTC()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		defer cancel()
		if err := n.bus.Publish(ctx, ev); err != nil {
			n.log.Warn("could not publish invalidation", "type", string(ev.Type), "error", err)
		}
	}()
}
