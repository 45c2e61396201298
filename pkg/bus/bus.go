// Package bus is the asynchronous request/response channel between the
// session workflow and the content runtime, standing in for the extension's
// cross-context message passing. It is built on watermill's in-process
// gochannel Pub/Sub; every request gets its own correlation-scoped reply
// topic, so late replies from an abandoned request can never be mistaken for
// the answer to a newer one.
package bus

import (
	"context"
	"errors"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"go.uber.org/zap"
)

// Topics the content runtime listens on.
const (
	TopicContentRequest = "formguide.content.request"
	TopicPageMutated    = "formguide.page.mutated"
)

const replyToKey = "reply_to"

// ErrNoResponder signals that nobody answered a request before its deadline;
// the session uses it to trigger the on-demand injection fallback.
var ErrNoResponder = errors.New("bus: no responder")

// Bus wraps the gochannel Pub/Sub with a request/reply convention.
type Bus struct {
	pubsub *gochannel.GoChannel
}

// New constructs an in-process bus. A nil logger is replaced with a nop.
func New(logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{
		pubsub: gochannel.NewGoChannel(gochannel.Config{}, newLoggerAdapter(logger)),
	}
}

// Request publishes payload on topic and blocks until a reply arrives or ctx
// expires. Context expiry maps to ErrNoResponder.
func (b *Bus) Request(ctx context.Context, topic string, payload []byte) ([]byte, error) {
	correlation := watermill.NewUUID()
	replyTopic := topic + ".reply." + correlation

	replies, err := b.pubsub.Subscribe(ctx, replyTopic)
	if err != nil {
		return nil, fmt.Errorf("bus: subscribe reply topic: %w", err)
	}

	msg := message.NewMessage(correlation, payload)
	msg.Metadata.Set(replyToKey, replyTopic)
	if err := b.pubsub.Publish(topic, msg); err != nil {
		return nil, fmt.Errorf("bus: publish request: %w", err)
	}

	select {
	case reply, ok := <-replies:
		if !ok {
			return nil, ErrNoResponder
		}
		reply.Ack()
		return reply.Payload, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %s", ErrNoResponder, topic)
	}
}

// Reply answers a request message on its correlation reply topic.
func (b *Bus) Reply(req *message.Message, payload []byte) error {
	replyTopic := req.Metadata.Get(replyToKey)
	if replyTopic == "" {
		return errors.New("bus: request carries no reply topic")
	}
	return b.pubsub.Publish(replyTopic, message.NewMessage(watermill.NewUUID(), payload))
}

// Publish sends a fire-and-forget notification.
func (b *Bus) Publish(topic string, payload []byte) error {
	return b.pubsub.Publish(topic, message.NewMessage(watermill.NewUUID(), payload))
}

// Subscribe exposes a raw subscription for runtime loops.
func (b *Bus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return b.pubsub.Subscribe(ctx, topic)
}

// Close shuts the underlying Pub/Sub down.
func (b *Bus) Close() error {
	return b.pubsub.Close()
}

// loggerAdapter bridges watermill's logging contract onto zap.
type loggerAdapter struct {
	logger *zap.Logger
}

func newLoggerAdapter(logger *zap.Logger) watermill.LoggerAdapter {
	return &loggerAdapter{logger: logger}
}

func (a *loggerAdapter) Error(msg string, err error, fields watermill.LogFields) {
	a.logger.Error(msg, append(zapFields(fields), zap.Error(err))...)
}

func (a *loggerAdapter) Info(msg string, fields watermill.LogFields) {
	a.logger.Info(msg, zapFields(fields)...)
}

func (a *loggerAdapter) Debug(msg string, fields watermill.LogFields) {
	a.logger.Debug(msg, zapFields(fields)...)
}

func (a *loggerAdapter) Trace(msg string, fields watermill.LogFields) {
	a.logger.Debug(msg, zapFields(fields)...)
}

func (a *loggerAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &loggerAdapter{logger: a.logger.With(zapFields(fields)...)}
}

func zapFields(fields watermill.LogFields) []zap.Field {
	out := make([]zap.Field, 0, len(fields))
	for key, value := range fields {
		out = append(out, zap.Any(key, value))
	}
	return out
}
