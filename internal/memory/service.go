package memory

import (
	"context"
	"encoding/json"

	"roleplay-insights-go/internal/logger"
	"roleplay-insights-go/internal/types"
)

// DefaultActor is the actor id older sessions were stored under.
const DefaultActor = "default_user"

type EventSource interface {
	ListEvents(ctx context.Context, sessionID, actorID string) ([]json.RawMessage, error)
}

// MessageStore is the fallback transcript source.
type MessageStore interface {
	ListMessages(ctx context.Context, sessionID string) ([]types.ConversationMessage, error)
}

// Transcript is what the service could reconstruct for one session.
type Transcript struct {
	Messages []types.ConversationMessage
	Metrics  []types.MetricSnapshot
	Source   string
}

const (
	SourceMemory        = "memory"
	SourceMemoryDefault = "memory:" + DefaultActor
	SourceStore         = "store"
	SourceNone          = "none"
)

type Service struct {
	events   EventSource
	fallback MessageStore
	log      *logger.Logger
}

// NewService accepts nil for either source.
func NewService(events EventSource, fallback MessageStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Discard()
	}
	return &Service{events: events, fallback: fallback, log: log.Component("memory")}
}

// Load tries the memory service under actorID, then under DefaultActor, then
// the message store. Source errors are logged and never returned; an empty
// transcript is valid input for the pipeline.
func (s *Service) Load(ctx context.Context, sessionID, actorID string) Transcript {
	log := s.log.WithSession(sessionID, actorID)
	var metrics []types.MetricSnapshot

	if s.events != nil {
		actors := []string{DefaultActor}
		if actorID != "" && actorID != DefaultActor {
			actors = []string{actorID, DefaultActor}
		}
		for _, actor := range actors {
			events, err := s.events.ListEvents(ctx, sessionID, actor)
			if err != nil {
				log.WithError(err).WithField("actor", actor).Warn("memory lookup failed")
				continue
			}
			if len(metrics) == 0 {
				metrics = DecodeMetrics(events)
			}
			if msgs := Decode(events); len(msgs) > 0 {
				src := SourceMemory
				if actor == DefaultActor && actorID != DefaultActor {
					src = SourceMemoryDefault
				}
				log.WithField("messages", len(msgs)).WithField("source", src).Info("transcript loaded")
				return Transcript{Messages: msgs, Metrics: metrics, Source: src}
			}
		}
		log.Warn("memory returned no messages, falling back to message store")
	}

	if s.fallback != nil {
		msgs, err := s.fallback.ListMessages(ctx, sessionID)
		if err != nil {
			log.WithError(err).Warn("message store lookup failed")
		} else if len(msgs) > 0 {
			return Transcript{Messages: msgs, Metrics: metrics, Source: SourceStore}
		}
	}
	return Transcript{Messages: []types.ConversationMessage{}, Metrics: metrics, Source: SourceNone}
}
