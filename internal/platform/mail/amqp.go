// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package mail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ErrNacked is returned when the broker refuses a published message.
var ErrNacked = errors.New("mail: broker did not confirm delivery")

// envelope is the wire format consumed by the delivery worker.
type envelope struct {
	From    string  `json:"from"`
	Message Message `json:"message"`
	Text    string  `json:"text"`
}

// AMQPSender publishes rendered messages to a durable queue.
//
// # Concurrency
//
// The channel is in confirm mode and shared; Send serializes publishes so each
// confirmation matches its message.
type AMQPSender struct {
	mu         sync.Mutex
	connection *amqp.Connection
	channel    *amqp.Channel
	queue      string
	from       string
}

// NewAMQPSender dials the broker, declares the queue and enables publisher confirms.
func NewAMQPSender(url, queue, from string) (*AMQPSender, error) {
	connection, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("mail_amqp_dial_failed: %w", err)
	}

	channel, err := connection.Channel()
	if err != nil {
		_ = connection.Close()
		return nil, fmt.Errorf("mail_amqp_channel_failed: %w", err)
	}

	// Durable so queued mail survives broker restarts
	if _, err := channel.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = connection.Close()
		return nil, fmt.Errorf("mail_amqp_queue_declare_failed: %w", err)
	}

	if err := channel.Confirm(false); err != nil {
		_ = connection.Close()
		return nil, fmt.Errorf("mail_amqp_confirm_failed: %w", err)
	}

	return &AMQPSender{connection: connection, channel: channel, queue: queue, from: from}, nil
}

// Send implements [Sender]. It returns once the broker has confirmed the message.
func (sender *AMQPSender) Send(ctx context.Context, message Message) error {
	publishing, err := encode(sender.from, message)
	if err != nil {
		return err
	}

	sender.mu.Lock()
	defer sender.mu.Unlock()

	confirmation, err := sender.channel.PublishWithDeferredConfirmWithContext(ctx, "", sender.queue, false, false, publishing)
	if err != nil {
		return fmt.Errorf("mail_amqp_publish_failed: %w", err)
	}

	acked, err := confirmation.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("mail_amqp_confirm_wait_failed: %w", err)
	}
	if !acked {
		return ErrNacked
	}
	return nil
}

// Close closes the channel and the connection.
func (sender *AMQPSender) Close() error {
	return errors.Join(sender.channel.Close(), sender.connection.Close())
}

// encode renders message into a persistent JSON publishing.
func encode(from string, message Message) (amqp.Publishing, error) {
	text, err := Render(message)
	if err != nil {
		return amqp.Publishing{}, err
	}

	body, err := json.Marshal(envelope{From: from, Message: message, Text: text})
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("mail_encode_failed: %w", err)
	}

	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         message.Template,
		Body:         body,
	}, nil
}
