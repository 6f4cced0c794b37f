package inventoryrpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"

	"github.com/vendorhub/marketplace-backend/pkg/logger"
)

// ResultSink publishes result envelopes. Wraps a Pub/Sub publisher in
// production; tests substitute an in-memory sink.
type ResultSink interface {
	Publish(ctx context.Context, data []byte, attributes map[string]string) error
}

// PublisherSink adapts a Pub/Sub publisher to the ResultSink interface.
type PublisherSink struct {
	publisher *pubsub.Publisher
}

// NewPublisherSink wraps the provided publisher.
func NewPublisherSink(publisher *pubsub.Publisher) (*PublisherSink, error) {
	if publisher == nil {
		return nil, fmt.Errorf("publisher required")
	}
	return &PublisherSink{publisher: publisher}, nil
}

// Publish sends the message and blocks until the server acknowledges it.
func (p *PublisherSink) Publish(ctx context.Context, data []byte, attributes map[string]string) error {
	result := p.publisher.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: attributes,
	})
	_, err := result.Get(ctx)
	return err
}

// Consumer reads inventory commands from the command subscription and
// publishes one result envelope per command.
type Consumer struct {
	handler      *Handler
	subscription *pubsub.Subscriber
	results      ResultSink
	logg         *logger.Logger
}

// NewConsumer builds an inventory command consumer.
func NewConsumer(handler *Handler, subscription *pubsub.Subscriber, results ResultSink, logg *logger.Logger) (*Consumer, error) {
	if handler == nil {
		return nil, fmt.Errorf("handler required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("command subscription required")
	}
	if results == nil {
		return nil, fmt.Errorf("result sink required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		handler:      handler,
		subscription: subscription,
		results:      results,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg.Data, msg.ID)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, data []byte, messageID string) processResult {
	logCtx := c.logg.WithFields(ctx, map[string]any{"message_id": messageID})

	var envelope CommandEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		// Malformed commands can never succeed; log and drop.
		c.logg.Error(logCtx, "failed to decode command envelope", err)
		return processResult{ack: true}
	}

	logCtx = c.logg.WithFields(logCtx, map[string]any{"event": envelope.Event})

	handled, err := c.handler.Handle(ctx, envelope)
	if err != nil {
		if errors.Is(err, ErrUnknownEvent) {
			c.logg.Warn(logCtx, "unknown inventory event")
			return processResult{nack: true}
		}
		c.logg.Error(logCtx, "failed to decode command payload", err)
		return processResult{ack: true}
	}

	payload, err := json.Marshal(handled.Envelope)
	if err != nil {
		c.logg.Error(logCtx, "failed to encode result envelope", err)
		return processResult{nack: true}
	}

	attributes := map[string]string{"event": envelope.Event}
	if handled.TransactionID != "" {
		attributes["transaction_id"] = handled.TransactionID
		logCtx = c.logg.WithTransactionID(logCtx, handled.TransactionID)
	}

	if err := c.results.Publish(ctx, payload, attributes); err != nil {
		c.logg.Error(logCtx, "failed to publish result", err)
		return processResult{nack: true}
	}

	c.logg.Info(logCtx, "inventory command processed")
	return processResult{ack: true}
}
