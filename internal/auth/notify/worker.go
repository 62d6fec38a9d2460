package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/aussiebroadwan/usermgmt/internal/auth/domain"
	amqp "github.com/rabbitmq/amqp091-go"
)

const maxBackoff = 30 * time.Second

// Worker consumes queued verification emails and hands each one to Deliver.
// Messages that cannot be decoded or delivered are rejected without requeue.
type Worker struct {
	URL         string
	Queue       string
	Deliver     Sender
	Logger      *slog.Logger
	SendTimeout time.Duration

	ctx     context.Context
	cancel  context.CancelFunc
	doneCh  chan struct{}
	started atomic.Bool
}

// NewWorker creates a worker for queue. An empty queue uses DefaultQueue.
func NewWorker(url, queue string, deliver Sender, logger *slog.Logger, sendTimeout time.Duration) *Worker {
	if queue == "" {
		queue = DefaultQueue
	}
	if sendTimeout <= 0 {
		sendTimeout = 10 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		URL:         url,
		Queue:       queue,
		Deliver:     deliver,
		Logger:      logger,
		SendTimeout: sendTimeout,
		ctx:         ctx,
		cancel:      cancel,
		doneCh:      make(chan struct{}),
	}
}

// Start runs the consume loop in the background until Stop is called.
// Calling it more than once has no effect.
func (w *Worker) Start() {
	if !w.started.CompareAndSwap(false, true) {
		return
	}
	go w.run()
	w.Logger.Info("mail worker started", slog.String("queue", w.Queue))
}

// Stop cancels the consume loop and waits for the in-flight message. A worker
// that was never started stops immediately.
func (w *Worker) Stop() {
	w.cancel()
	if !w.started.Load() {
		return
	}
	<-w.doneCh
	w.Logger.Info("mail worker stopped")
}

func (w *Worker) run() {
	defer close(w.doneCh)

	backoff := time.Second
	for {
		conn, err := dialBroker(w.ctx, w.URL)
		if err != nil {
			w.Logger.Warn("mail worker: dial broker failed",
				slog.Any("error", err),
				slog.Duration("retry_in", backoff),
			)
			if !w.sleep(backoff) {
				return
			}
			backoff = min(backoff*2, maxBackoff)
			continue
		}
		backoff = time.Second

		err = w.consume(conn)
		_ = conn.Close()
		if w.ctx.Err() != nil {
			return
		}
		w.Logger.Warn("mail worker: consume loop ended, reconnecting", slog.Any("error", err))
		if !w.sleep(2 * time.Second) {
			return
		}
	}
}

func (w *Worker) consume(conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(10, 0, false); err != nil {
		w.Logger.Warn("mail worker: set qos failed", slog.Any("error", err))
	}
	if err := declareQueue(ch, w.Queue); err != nil {
		return err
	}

	msgs, err := ch.ConsumeWithContext(w.ctx, w.Queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	for {
		select {
		case <-w.ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := w.handle(d.Body); err != nil {
				w.Logger.Error("mail worker: delivery failed", slog.Any("error", err))
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (w *Worker) handle(body []byte) error {
	var msg domain.VerificationEmail
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("decode: %w", err)
	}

	ctx, cancel := context.WithTimeout(w.ctx, w.SendTimeout)
	defer cancel()
	return w.Deliver.SendVerification(ctx, msg)
}

// sleep waits for d and reports false if the worker was stopped meanwhile.
func (w *Worker) sleep(d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-w.ctx.Done():
		return false
	}
}
