package events

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	e "staffbase/internal/profiles/errors"
)

// OnlineSetter flips a principal's online flag.
type OnlineSetter interface {
	SetOnline(ctx context.Context, userID uuid.UUID, online bool) error
}

// SessionConsumer applies session lifecycle events to principals'
// online status. Updates are idempotent single-column writes; the last
// event wins and events for unknown users are skipped.
type SessionConsumer struct {
	reader *kafka.Reader
	setter OnlineSetter
	logger *zap.Logger
}

func NewSessionConsumer(brokers []string, groupID, topic string, setter OnlineSetter, logger *zap.Logger) *SessionConsumer {
	return &SessionConsumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers: brokers,
			GroupID: groupID,
			Topic:   topic,
			Dialer:  kafka.DefaultDialer,
		}),
		setter: setter,
		logger: logger.Named("session_consumer"),
	}
}

func (c *SessionConsumer) Start(ctx context.Context) {
	go func() {
		for {
			msg, err := c.reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				c.logger.Error("Failed to fetch message", zap.Error(err))
				continue
			}

			var event Event
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				c.logger.Error("Failed to parse event",
					zap.Error(err),
					zap.ByteString("value", msg.Value),
				)
				continue
			}

			if err := c.handle(ctx, event); err != nil {
				c.logger.Error("Failed to handle event",
					zap.Error(err),
					zap.String("event_type", string(event.Type)),
				)
				continue
			}

			if err := c.reader.CommitMessages(ctx, msg); err != nil {
				c.logger.Error("Failed to commit message",
					zap.Error(err),
					zap.String("event_type", string(event.Type)),
				)
			}
		}
	}()
}

func (c *SessionConsumer) handle(ctx context.Context, event Event) error {
	if event.User == nil {
		c.logger.Warn("session event without user, skipping",
			zap.String("event_type", string(event.Type)),
		)
		return nil
	}

	var online bool
	switch event.Type {
	case UserLoggedIn:
		online = true
	case UserLoggedOut:
		online = false
	default:
		// not a session event
		return nil
	}

	err := c.setter.SetOnline(ctx, event.User.ID, online)
	if errors.Is(err, e.ErrNotFound) {
		c.logger.Warn("session event for unknown user, skipping",
			zap.String("user_id", event.User.ID.String()),
		)
		return nil
	}
	return err
}

func (c *SessionConsumer) Close() {
	if err := c.reader.Close(); err != nil {
		c.logger.Error("Failed to close Kafka reader", zap.Error(err))
	}
}
