package notify

import (
	"context"
	"encoding/json"
	"log/slog"
)

// LogPublisher writes events to the log instead of a broker.
type LogPublisher struct {
	Log *slog.Logger
}

func (p LogPublisher) PublishEvent(_ context.Context, topic, key string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	p.Log.Info("event", "topic", topic, "key", key, "payload", json.RawMessage(data))
	return nil
}
