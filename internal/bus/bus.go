package bus

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/opensource-health/heron/internal/domain"
)

// ErrNoReply is returned by Respond for messages that were not sent with Request.
var ErrNoReply = errors.New("message has no reply subject")

// DefaultRequestTimeout bounds Request when the context has no deadline.
const DefaultRequestTimeout = 30 * time.Second

// New creates a new event bus based on configuration.
// For Community tier: returns ChannelBus.
// For Pro tier: returns NATSBus.
func New(cfg domain.EventBusConfig) (domain.EventBus, error) {
	switch cfg.Type {
	case "channel":
		return NewChannelBus(cfg.ChannelBufferSize), nil

	case "nats":
		return NewNATSBus(cfg)

	default:
		return nil, fmt.Errorf("unsupported event bus type: %s", cfg.Type)
	}
}

func newMessage(topic, reply string, payload []byte) *domain.Message {
	return &domain.Message{
		ID:        uuid.New().String(),
		Topic:     topic,
		Reply:     reply,
		Payload:   payload,
		Metadata:  make(map[string]string),
		Timestamp: time.Now().UnixNano(),
	}
}
