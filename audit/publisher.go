// SPDX-License-Identifier: GPL-3.0-only

package audit

import (
	"context"
	"sync"
	"time"
	"vulnmgr-server/commons"

	amqp "github.com/rabbitmq/amqp091-go"
)

type publisherState struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
}

var publisher publisherState

// InitPublisher connects to the broker named by AMQP_URL and declares
// the audit exchange. When AMQP_URL is unset the publisher stays off and
// entries only go to the log.
func InitPublisher() error {
	amqpURL := commons.GetEnv("AMQP_URL")
	if amqpURL == "" {
		commons.Logger.Debug("AMQP_URL not set, audit entries will only be logged")
		return nil
	}
	exchange := commons.GetEnv("AUDIT_EXCHANGE", "vulnmgr.audit")

	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return err
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return err
	}

	publisher.mu.Lock()
	publisher.conn = conn
	publisher.channel = ch
	publisher.exchange = exchange
	publisher.mu.Unlock()

	commons.Logger.Infof("Audit publisher connected, exchange: %s", exchange)
	return nil
}

func ClosePublisher() {
	publisher.mu.Lock()
	defer publisher.mu.Unlock()
	if publisher.channel != nil {
		publisher.channel.Close()
		publisher.channel = nil
	}
	if publisher.conn != nil {
		publisher.conn.Close()
		publisher.conn = nil
	}
}

// publish fans one entry out to the exchange, routing key = action.
// Failures are logged and swallowed: the audit log line already exists
// and request handling must not depend on broker availability.
func publish(action string, body []byte) {
	publisher.mu.Lock()
	defer publisher.mu.Unlock()
	if publisher.channel == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := publisher.channel.PublishWithContext(ctx, publisher.exchange, action, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		commons.Logger.Errorf("Failed to publish audit entry %s: %v", action, err)
	}
}
