package queue

import (
	"context"
	"encoding/json"
	"errors"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/matcreates/tribe-sub001/internal/entity"
	"github.com/matcreates/tribe-sub001/internal/infra/http/middleware"
	"github.com/matcreates/tribe-sub001/internal/usecase"
)

type ReplyIngester interface {
	Execute(ctx context.Context, ev entity.InboundEvent) (*entity.Reply, error)
}

// Worker consumes inbound events and hands them to the reply correlator.
type Worker struct {
	Channel  *amqp.Channel
	Ingester ReplyIngester
	Logger   zerolog.Logger
}

func NewWorker(ch *amqp.Channel, ingester ReplyIngester, logger zerolog.Logger) *Worker {
	return &Worker{
		Channel:  ch,
		Ingester: ingester,
		Logger:   logger,
	}
}

// Start blocks until ctx is done or the broker closes the delivery channel.
func (w *Worker) Start(ctx context.Context, queueName string) error {
	if err := w.Channel.Qos(10, 0, false); err != nil {
		return err
	}

	msgs, err := w.Channel.Consume(queueName, "", false, false, false, false, nil)
	if err != nil {
		return err
	}

	w.Logger.Info().Str("queue", queueName).Msg("reply worker consuming")
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return errors.New("delivery channel closed")
			}
			w.Handle(ctx, d)
		}
	}
}

// Handle acks stored and unmatched replies. Malformed messages and input
// errors go straight to the DLQ; infrastructure errors are requeued once.
func (w *Worker) Handle(ctx context.Context, d amqp.Delivery) {
	var ev entity.InboundEvent
	if err := json.Unmarshal(d.Body, &ev); err != nil {
		w.Logger.Error().Err(err).Str("message_id", d.MessageId).Msg("invalid inbound payload")
		middleware.RecordReply("invalid")
		d.Nack(false, false)
		return
	}

	reply, err := w.Ingester.Execute(ctx, ev)
	if err != nil {
		requeue := usecase.IsTechnicalError(err) && !d.Redelivered
		w.Logger.Error().Err(err).
			Str("provider_id", ev.ProviderID).
			Bool("requeue", requeue).
			Msg("inbound reply failed")
		middleware.RecordReply("failed")
		d.Nack(false, requeue)
		return
	}

	if reply == nil {
		middleware.RecordReply("unmatched")
	} else {
		middleware.RecordReply("matched")
	}
	d.Ack(false)
}
