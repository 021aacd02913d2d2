package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"staffbase/internal/profiles/models"
)

// MockKafkaWriter implements KafkaWriter for testing
type MockKafkaWriter struct {
	mock.Mock
}

func (m *MockKafkaWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}

func (m *MockKafkaWriter) Close() error {
	args := m.Called()
	return args.Error(0)
}

func TestProducer_Produce(t *testing.T) {
	t.Run("successful produce", func(t *testing.T) {
		producer := &Producer{
			events: make(chan Event, 10),
			logger: zaptest.NewLogger(t),
		}
		user := &models.User{ID: uuid.New()}

		producer.Produce(ManagerCreated, user)

		assert.Equal(t, 1, len(producer.events))
	})

	t.Run("dropped event when queue full", func(t *testing.T) {
		core, recorded := observer.New(zap.WarnLevel)
		producer := &Producer{
			events: make(chan Event, 1), // Small buffer for test
			logger: zap.New(core),
		}
		user := &models.User{ID: uuid.New()}

		// Fill the channel
		producer.Produce(UserLoggedIn, user)
		producer.Produce(UserLoggedIn, user) // This should be dropped

		// Check logs
		assert.Equal(t, 1, recorded.FilterMessage("Kafka producer queue full, dropping event").Len())
	})
}

func TestProducer_SendEvent(t *testing.T) {
	mockWriter := new(MockKafkaWriter)
	user := &models.User{ID: uuid.New(), Username: "sender"}

	producer := &Producer{
		writer: mockWriter,
		logger: zaptest.NewLogger(t),
	}

	t.Run("successful send", func(t *testing.T) {
		mockWriter.On("WriteMessages", mock.Anything, mock.Anything).Return(nil)

		event := Event{Type: EmployeeCreated, User: user}
		producer.sendEvent(context.Background(), event)

		mockWriter.AssertCalled(t, "WriteMessages", mock.Anything, []kafka.Message{
			{
				Key:   []byte(user.ID.String()),
				Value: mustMarshal(event),
			},
		})
	})

	t.Run("serialization error", func(t *testing.T) {
		core, recorded := observer.New(zap.ErrorLevel)
		producer.logger = zap.New(core)

		// Mock JSON marshaling to force error
		oldMarshal := jsonMarshal
		jsonMarshal = func(_ interface{}) ([]byte, error) {
			return nil, errors.New("mock marshal error")
		}
		defer func() { jsonMarshal = oldMarshal }()

		event := Event{Type: EmployeeCreated, User: user}
		producer.sendEvent(context.Background(), event)

		// Verify error logging
		assert.Equal(t, 1, recorded.FilterMessage("Failed to serialize event").Len())
		assert.Equal(t, 1, recorded.FilterField(zap.String("user_id", user.ID.String())).Len())
	})

	t.Run("write error", func(t *testing.T) {
		core, recorded := observer.New(zap.ErrorLevel)
		producer.logger = zap.New(core)
		mockWriter.ExpectedCalls = nil
		mockWriter.On("WriteMessages", mock.Anything, mock.Anything).Return(errors.New("kafka error"))

		event := Event{Type: EmployeeCreated, User: user}
		producer.sendEvent(context.Background(), event)

		assert.Equal(t, 1, recorded.FilterMessage("Failed to produce event").Len())
	})
}

func TestProducer_Close(t *testing.T) {
	mockWriter := new(MockKafkaWriter)
	mockWriter.On("Close").Return(nil)

	producer := &Producer{
		writer:    mockWriter,
		closeChan: make(chan struct{}),
		logger:    zaptest.NewLogger(t),
	}

	producer.Close()

	// Verify close channel is closed
	select {
	case <-producer.closeChan:
	default:
		t.Error("closeChan not closed")
	}

	mockWriter.AssertCalled(t, "Close")
}

func TestProducer_EventLoop(t *testing.T) {
	mockWriter := new(MockKafkaWriter)
	mockWriter.On("WriteMessages", mock.Anything, mock.Anything).Return(nil)

	producer := &Producer{
		writer: mockWriter,
		events: make(chan Event, 1),
		logger: zaptest.NewLogger(t),
	}

	user := &models.User{ID: uuid.New()}
	event := Event{Type: CustomerCreated, User: user}

	// Start event loop
	go producer.eventLoop()

	// Send event
	producer.events <- event

	// Give time for processing
	time.Sleep(100 * time.Millisecond)

	mockWriter.AssertCalled(t, "WriteMessages", mock.Anything, mock.Anything)
}

func mustMarshal(e Event) []byte {
	data, _ := json.Marshal(e)
	return data
}
