package journal

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/adsdsdsdad/uMBLER01/internal/model"
	"github.com/adsdsdsdad/uMBLER01/pkg/logger"
	"github.com/adsdsdsdad/uMBLER01/pkg/metrics"
)

// StreamName is the JetStream stream holding the journal.
const StreamName = "SUPPORT_JOURNAL"

// NATSConfig holds NATS connection configuration.
type NATSConfig struct {
	URL      string
	CAFile   string
	CertFile string
	KeyFile  string
	Token    string
	MaxAge   time.Duration
}

// NATSPublisher writes entries to a JetStream stream. The entry ID is sent as
// Nats-Msg-Id so redeliveries inside the duplicate window are dropped.
type NATSPublisher struct {
	conn   *nats.Conn
	js     jetstream.JetStream
	logger *logger.Logger
}

// ConnectNATS connects to NATS and ensures the journal stream exists.
func ConnectNATS(ctx context.Context, cfg NATSConfig, log *logger.Logger) (*NATSPublisher, error) {
	opts := []nats.Option{
		nats.Name("support-metrics"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.ReconnectBufSize(8 * 1024 * 1024),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error("NATS error", zap.Error(err))
		}),
	}

	if cfg.CAFile != "" && cfg.CertFile != "" && cfg.KeyFile != "" {
		tlsConfig, err := createTLSConfig(cfg.CAFile, cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to create TLS config: %w", err)
		}
		opts = append(opts, nats.Secure(tlsConfig))
	}

	if cfg.Token != "" {
		opts = append(opts, nats.Token(cfg.Token))
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	p := &NATSPublisher{conn: nc, js: js, logger: log}
	if err := p.ensureStream(ctx, cfg.MaxAge); err != nil {
		nc.Close()
		return nil, err
	}
	return p, nil
}

func (p *NATSPublisher) ensureStream(ctx context.Context, maxAge time.Duration) error {
	_, err := p.js.Stream(ctx, StreamName)
	if err == nil {
		return nil
	}
	if !errors.Is(err, jetstream.ErrStreamNotFound) {
		return fmt.Errorf("failed to look up stream: %w", err)
	}

	if maxAge <= 0 {
		maxAge = 90 * 24 * time.Hour
	}
	_, err = p.js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{SubjectPrefix + ".>"},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      maxAge,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Duplicates:  10 * time.Minute,
		Compression: jetstream.S2Compression,
		Description: "Processed support webhook facts",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}
	p.logger.Info("journal stream created", zap.String("stream", StreamName))
	return nil
}

// Publish writes one entry and waits for the stream ack.
func (p *NATSPublisher) Publish(ctx context.Context, entry *model.JournalEntry) error {
	data, err := encode(entry)
	if err != nil {
		return err
	}

	subject := Subject(entry.Kind, entry.ConversationID)
	ack, err := p.js.Publish(ctx, subject, data, jetstream.WithMsgID(entry.ID))
	if err != nil {
		metrics.JournalPublishFailures.WithLabelValues(BackendNATS, string(entry.Kind)).Inc()
		return fmt.Errorf("failed to publish %s: %w", subject, err)
	}

	p.logger.Debug("journal entry published",
		zap.String("subject", subject),
		zap.Uint64("sequence", ack.Sequence),
		zap.Bool("duplicate", ack.Duplicate),
	)
	return nil
}

// Backend returns "nats".
func (p *NATSPublisher) Backend() string { return BackendNATS }

// Healthy returns true if connected to NATS.
func (p *NATSPublisher) Healthy() bool {
	return p.conn != nil && p.conn.IsConnected()
}

// Close drains and closes the NATS connection.
func (p *NATSPublisher) Close() error {
	if p.conn == nil {
		return nil
	}
	return p.conn.Drain()
}

func createTLSConfig(caFile, certFile, keyFile string) (*tls.Config, error) {
	caCert, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA file: %w", err)
	}

	caCertPool := x509.NewCertPool()
	if !caCertPool.AppendCertsFromPEM(caCert) {
		return nil, fmt.Errorf("failed to parse CA certificate")
	}

	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load client cert: %w", err)
	}

	return &tls.Config{
		RootCAs:      caCertPool,
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}
