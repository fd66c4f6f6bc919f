package serializer

import (
	"context"

	"github.com/umeboshi2/kotti-jsonapi/application/ports"
)

// Messages pops every flash queue of a session. The unnamed queue is
// reported under "default".
func Messages(ctx context.Context, store ports.MessageStore, sessionID string) map[string][]string {
	out := make(map[string][]string, len(ports.Queues))
	for _, q := range ports.Queues {
		key := q
		if key == ports.QueueDefault {
			key = "default"
		}
		msgs := []string{}
		if store != nil && sessionID != "" {
			msgs = store.Pop(ctx, sessionID, q)
		}
		out[key] = msgs
	}
	return out
}
