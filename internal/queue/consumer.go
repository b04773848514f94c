// Package queue: the consumer side used by cmd/worker.  Each queue gets a
// reconnecting consume loop; individual messages are retried a bounded
// number of times and then dropped with a log line, never bounced back to
// the HTTP layer.
package queue

import (
	"errors"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// maxAttempts bounds per-message retries (first delivery included).
const maxAttempts = 3

// retryHeader counts prior attempts on a republished message.
const retryHeader = "x-retries"

// retryDelay spaces attempts so a transiently failing dependency (SMTP,
// database) gets room to recover.
const retryDelay = 5 * time.Second

// Handler processes one message body.  A nil return acknowledges the
// message; an error triggers the retry policy.
type Handler func(body []byte) error

// Consume connects to the broker, declares the durable queue and processes
// deliveries with h until the process exits.  The function runs a reconnect
// loop with exponential backoff on dial failures and keeps running through
// consume-loop errors, so a broker restart never kills the worker.
func Consume(queueName string, h Handler) {
	url := BrokerURL()
	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Printf("worker: %s: failed to dial broker: %v; retrying in %s", queueName, err, backoff)
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		if err := consumeLoop(conn, queueName, h); err != nil {
			log.Printf("worker: %s: consume loop ended: %v; reconnecting", queueName, err)
			_ = conn.Close()
			time.Sleep(2 * time.Second)
			continue
		}
	}
}

func consumeLoop(conn *amqp.Connection, queueName string, h Handler) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(10, 0, false); err != nil {
		log.Printf("worker: %s: set QoS failed: %v", queueName, err)
	}

	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := h(d.Body); err != nil {
			retry(ch, queueName, d, err)
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

// retry republishes a failed message with an incremented attempt counter
// after a short delay, or drops it once attempts are exhausted.  The
// original delivery is acked either way so the broker does not redeliver
// it in a tight loop.
func retry(ch *amqp.Channel, queueName string, d amqp.Delivery, cause error) {
	attempts := 1
	if v, ok := d.Headers[retryHeader]; ok {
		switch n := v.(type) {
		case int32:
			attempts = int(n) + 1
		case int64:
			attempts = int(n) + 1
		}
	}
	if attempts >= maxAttempts {
		log.Printf("worker: %s: dropping message after %d attempts: %v", queueName, attempts, cause)
		_ = d.Ack(false)
		return
	}
	log.Printf("worker: %s: attempt %d failed: %v; retrying in %s", queueName, attempts, cause, retryDelay)
	time.Sleep(retryDelay)

	pub := amqp.Publishing{
		ContentType:  d.ContentType,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Headers:      amqp.Table{retryHeader: int32(attempts)},
		Body:         d.Body,
	}
	if err := ch.Publish("", queueName, false, false, pub); err != nil {
		// Requeue the original so the message is not lost.
		log.Printf("worker: %s: republish failed: %v; requeueing original", queueName, err)
		_ = d.Nack(false, true)
		return
	}
	_ = d.Ack(false)
}
