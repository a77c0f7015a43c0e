package kafka

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/erain9/otcbook/pkg/db/queue"
	"github.com/erain9/otcbook/pkg/messaging"
)

// SetupConsumer initializes and starts the Kafka consumer for fill messages
func SetupConsumer(ctx context.Context, logger zerolog.Logger) (*queue.QueueMessageConsumer, error) {
	consumer, err := queue.NewQueueMessageConsumer()
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to create Kafka consumer - continuing without Kafka support")
		return nil, err
	}

	// Consumer runs in the background until Close
	go func() {
		logger.Info().Msg("Starting Kafka consumer")
		err := consumer.ConsumeFillMessages(func(fill *messaging.FillMessage) error {
			logger.Info().
				Str("order_id", fill.OrderID).
				Str("trade_id", fill.TradeID).
				Str("token", fill.Token).
				Str("side", fill.Side).
				Str("price", fill.Price).
				Str("fill_amount", fill.FillAmount).
				Str("total_filled", fill.TotalFilled).
				Str("remaining", fill.Remaining).
				Str("status", fill.Status).
				Str("maker", fill.Maker).
				Str("taker", fill.Taker).
				Msg("Received fill message")
			return nil
		})
		if err != nil {
			logger.Error().Err(err).Msg("Kafka consumer error")
		}
	}()

	return consumer, nil
}
