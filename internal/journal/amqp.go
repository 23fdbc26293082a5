package journal

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/adsdsdsdad/uMBLER01/internal/model"
	"github.com/adsdsdsdad/uMBLER01/pkg/logger"
	"github.com/adsdsdsdad/uMBLER01/pkg/metrics"
)

// AMQPConfig holds RabbitMQ connection configuration.
type AMQPConfig struct {
	URL           string
	Exchange      string
	RetryAttempts int
	Delay         time.Duration
}

const maxDialDelay = 30 * time.Second

var errNotConfirmed = errors.New("publish not confirmed by broker")

// AMQPPublisher writes entries to a durable topic exchange with publisher confirms.
type AMQPPublisher struct {
	conn     *amqp.Connection
	exchange string
	logger   *logger.Logger

	// channels are not safe for concurrent publishes
	mu sync.Mutex
	ch *amqp.Channel
}

// ConnectAMQP dials RabbitMQ with backoff and declares the exchange.
func ConnectAMQP(ctx context.Context, cfg AMQPConfig, log *logger.Logger) (*AMQPPublisher, error) {
	conn, err := dialWithRetry(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	p := &AMQPPublisher{conn: conn, exchange: cfg.Exchange, logger: log}
	if err := p.openChannel(); err != nil {
		conn.Close()
		return nil, err
	}
	return p, nil
}

func dialWithRetry(ctx context.Context, cfg AMQPConfig, log *logger.Logger) (*amqp.Connection, error) {
	attempts := cfg.RetryAttempts
	if attempts <= 0 {
		attempts = 1
	}
	delay := cfg.Delay
	if delay <= 0 {
		delay = time.Second
	}

	var lastErr error
	for i := 1; i <= attempts; i++ {
		conn, err := amqp.Dial(cfg.URL)
		if err == nil {
			if i > 1 {
				log.Info("rabbit connected", zap.Int("attempt", i))
			}
			return conn, nil
		}
		lastErr = err
		if i == attempts {
			break
		}

		sleep := delay << (i - 1)
		if sleep > maxDialDelay {
			sleep = maxDialDelay
		}
		log.Warn("rabbit dial failed",
			zap.Int("attempt", i),
			zap.Duration("sleep", sleep),
			zap.Error(err),
		)

		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("dial cancelled: %w", ctx.Err())
		case <-timer.C:
		}
	}

	return nil, fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", attempts, lastErr)
}

func (p *AMQPPublisher) openChannel() error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(p.exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		return fmt.Errorf("failed to declare exchange %s: %w", p.exchange, err)
	}
	if err := ch.Confirm(false); err != nil {
		ch.Close()
		return fmt.Errorf("failed to enable confirms: %w", err)
	}
	p.ch = ch
	return nil
}

// Publish writes one entry and waits for the broker confirm.
func (p *AMQPPublisher) Publish(ctx context.Context, entry *model.JournalEntry) error {
	err := p.publish(ctx, entry)
	if err != nil {
		metrics.JournalPublishFailures.WithLabelValues(BackendAMQP, string(entry.Kind)).Inc()
	}
	return err
}

func (p *AMQPPublisher) publish(ctx context.Context, entry *model.JournalEntry) error {
	body, err := encode(entry)
	if err != nil {
		return err
	}
	key := Subject(entry.Kind, entry.ConversationID)

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch == nil || p.ch.IsClosed() {
		if err := p.openChannel(); err != nil {
			return err
		}
	}

	confirm, err := p.ch.PublishWithDeferredConfirmWithContext(
		ctx, p.exchange, key, false, false,
		amqp.Publishing{
			ContentType:   "application/json",
			DeliveryMode:  amqp.Persistent,
			MessageId:     entry.ID,
			CorrelationId: entry.EventID,
			Type:          string(entry.Kind),
			Timestamp:     entry.OccurredAt,
			Body:          body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", key, err)
	}

	ok, err := confirm.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to confirm %s: %w", key, err)
	}
	if !ok {
		return fmt.Errorf("%s: %w", key, errNotConfirmed)
	}

	p.logger.Debug("journal entry published",
		zap.String("exchange", p.exchange),
		zap.String("key", key),
	)
	return nil
}

// Backend returns "amqp".
func (p *AMQPPublisher) Backend() string { return BackendAMQP }

// Healthy returns true while the connection is open.
func (p *AMQPPublisher) Healthy() bool {
	return p.conn != nil && !p.conn.IsClosed()
}

// Close closes the channel and the connection.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		p.ch.Close()
	}
	return p.conn.Close()
}
