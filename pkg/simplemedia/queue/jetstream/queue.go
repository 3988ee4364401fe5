package jetstream

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/tendant/simple-media/pkg/simplemedia"
)

// Config options for the JetStream-backed queue
type Config struct {
	URL          string
	StreamName   string
	Subject      string
	ConsumerName string
	// AckWait is the per-delivery processing window before redelivery.
	AckWait time.Duration
	// MaxDeliver bounds infrastructure-level redeliveries. Application-level
	// retries are scheduled by the worker as new delayed jobs.
	MaxDeliver int
}

// Queue is a NATS JetStream implementation of the simplemedia.JobQueue
// interface. Jobs whose NotBefore lies in the future are returned to the
// stream with NakWithDelay, which keeps delayed retries durable across
// process restarts.
type Queue struct {
	logger *slog.Logger
	conn   *nats.Conn
	js     jetstream.JetStream
	config Config

	mu    sync.Mutex
	iters []jetstream.MessagesContext
}

// New connects to NATS and ensures the processing stream exists.
func New(cfg Config, logger *slog.Logger) (*Queue, error) {
	if cfg.AckWait <= 0 {
		cfg.AckWait = 60 * time.Second
	}
	if cfg.MaxDeliver <= 0 {
		cfg.MaxDeliver = 5
	}

	opts := []nats.Option{
		nats.Name(cfg.ConsumerName),
		nats.ReconnectWait(2 * time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Warn("NATS disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
	}
	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to connect to JetStream: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      cfg.StreamName,
		Subjects:  []string{cfg.Subject},
		Retention: jetstream.WorkQueuePolicy,
	})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ensure stream: %w", err)
	}

	return &Queue{
		logger: logger,
		conn:   conn,
		js:     js,
		config: cfg,
	}, nil
}

func (q *Queue) Enqueue(ctx context.Context, job simplemedia.ProcessingJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	if _, err := q.js.Publish(ctx, q.config.Subject, data); err != nil {
		return fmt.Errorf("failed to publish job: %w", err)
	}
	return nil
}

func (q *Queue) Consume(ctx context.Context, handler simplemedia.JobHandler) error {
	consumerCfg := jetstream.ConsumerConfig{
		Durable:       q.config.ConsumerName,
		AckPolicy:     jetstream.AckExplicitPolicy,
		FilterSubject: q.config.Subject,
		AckWait:       q.config.AckWait,
		MaxDeliver:    q.config.MaxDeliver,
	}

	cons, err := q.js.CreateOrUpdateConsumer(ctx, q.config.StreamName, consumerCfg)
	if err != nil {
		return err
	}

	iter, err := cons.Messages()
	if err != nil {
		return err
	}
	q.mu.Lock()
	q.iters = append(q.iters, iter)
	q.mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			q.logger.Info("queue consumer stopped")
			return nil
		default:
			msg, err := iter.Next()
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				q.logger.Error("failed to receive message", "error", err)
				return err
			}

			var job simplemedia.ProcessingJob
			if err := json.Unmarshal(msg.Data(), &job); err != nil {
				q.logger.Error("failed to decode job, dropping", "error", err)
				_ = msg.Term()
				continue
			}

			// Scheduled for later: put it back with the remaining delay.
			if delay := time.Until(job.NotBefore); delay > 0 {
				if err := msg.NakWithDelay(delay); err != nil {
					q.logger.Error("failed to nak message", "error", err)
				}
				continue
			}

			if handleErr := handler(ctx, job); handleErr != nil {
				if nakErr := msg.Nak(); nakErr != nil {
					q.logger.Error("failed to nak message", "error", nakErr)
				}
				q.logger.Warn("failed to handle job", "media_id", job.MediaID, "error", handleErr)
				continue
			}
			if ackErr := msg.Ack(); ackErr != nil {
				q.logger.Error("failed to ack message", "error", ackErr)
			}
		}
	}
}

// Close graceful shutdown
func (q *Queue) Close() error {
	q.mu.Lock()
	for _, iter := range q.iters {
		iter.Stop()
	}
	q.iters = nil
	q.mu.Unlock()

	if q.conn != nil {
		q.conn.Close()
	}
	return nil
}
