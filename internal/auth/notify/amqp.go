package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/aussiebroadwan/usermgmt/internal/auth/domain"
	amqp "github.com/rabbitmq/amqp091-go"
)

// DefaultQueue is the durable queue verification emails are published to.
const DefaultQueue = "auth.verification_email"

// AMQPNotifier publishes verification emails to a durable queue. Delivery is
// done by a Worker consuming the same queue. The connection is opened lazily
// and re-dialled after a failure.
type AMQPNotifier struct {
	URL   string
	Queue string

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewAMQPNotifier(url, queue string) *AMQPNotifier {
	if queue == "" {
		queue = DefaultQueue
	}
	return &AMQPNotifier{URL: url, Queue: queue}
}

func (n *AMQPNotifier) SendVerification(ctx context.Context, msg domain.VerificationEmail) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("notify: marshal verification: %w", err)
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	ch, err := n.channel(ctx)
	if err != nil {
		return err
	}

	err = ch.PublishWithContext(ctx,
		"",      // default exchange
		n.Queue, // routing key = queue name
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	)
	if err != nil {
		n.reset()
		return fmt.Errorf("notify: publish: %w", err)
	}
	return nil
}

// Close releases the broker connection.
func (n *AMQPNotifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.reset()
}

// channel returns an open channel, dialling when needed. The dial and the
// AMQP handshake are bounded by ctx. Callers hold n.mu.
func (n *AMQPNotifier) channel(ctx context.Context) (*amqp.Channel, error) {
	if n.ch != nil && !n.ch.IsClosed() {
		return n.ch, nil
	}
	_ = n.reset()

	conn, err := dialBroker(ctx, n.URL)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("notify: open channel: %w", err)
	}
	if err := declareQueue(ch, n.Queue); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	n.conn, n.ch = conn, ch
	return ch, nil
}

// dialTimeout bounds the handshake when ctx carries no deadline.
const dialTimeout = 30 * time.Second

// dialBroker connects to url. The TCP dial honours ctx, and cancelling ctx
// or reaching its deadline also aborts the AMQP handshake; amqp091 clears the
// socket deadline once the connection is open.
func dialBroker(ctx context.Context, url string) (*amqp.Connection, error) {
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(dialTimeout)
	}

	stop := func() bool { return false }
	conn, err := amqp.DialConfig(url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial: func(network, addr string) (net.Conn, error) {
			var d net.Dialer
			c, err := d.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			if err := c.SetDeadline(deadline); err != nil {
				_ = c.Close()
				return nil, err
			}
			stop = context.AfterFunc(ctx, func() { _ = c.SetDeadline(time.Now()) })
			return c, nil
		},
	})
	stop()
	if err != nil {
		return nil, fmt.Errorf("notify: dial broker: %w", err)
	}
	return conn, nil
}

func (n *AMQPNotifier) reset() error {
	var err error
	if n.ch != nil {
		_ = n.ch.Close()
		n.ch = nil
	}
	if n.conn != nil {
		err = n.conn.Close()
		n.conn = nil
	}
	return err
}

func declareQueue(ch *amqp.Channel, queue string) error {
	_, err := ch.QueueDeclare(
		queue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	)
	if err != nil {
		return fmt.Errorf("notify: declare queue %s: %w", queue, err)
	}
	return nil
}
