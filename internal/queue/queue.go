package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/streadway/amqp"

	"github.com/duespark/duespark-backend/internal/service"
)

// Queue interface
type Queue interface {
	Publish(topic string, payload any) error
	Subscribe(topic string, handler func(payload any) error) error
}

// InMemoryQueue is an in-process queue with retry, used when no AMQP
// broker is reachable. A fresh instance is created per process/test.
type InMemoryQueue struct {
	mu       sync.Mutex
	handlers map[string][]func(payload any) error

	// Backoff is the base delay between retries; attempt n waits n*Backoff.
	Backoff time.Duration
}

func NewInMemoryQueue() *InMemoryQueue {
	return &InMemoryQueue{
		handlers: make(map[string][]func(payload any) error),
		Backoff:  500 * time.Millisecond,
	}
}

// JobPayload wraps a message payload with retry info
type JobPayload struct {
	Payload    any
	RetryCount int
	MaxRetries int
}

// Publish sends a message to all subscribers
func (q *InMemoryQueue) Publish(topic string, payload any) error {
	q.mu.Lock()
	handlers := q.handlers[topic]
	q.mu.Unlock()

	if len(handlers) == 0 {
		return fmt.Errorf("no subscribers for topic %s", topic)
	}

	job := JobPayload{
		Payload:    payload,
		RetryCount: 0,
		MaxRetries: 3,
	}

	for _, handler := range handlers {
		go q.processJob(handler, job)
	}

	return nil
}

// processJob retries a failing job with linear backoff and drops it once
// MaxRetries is exhausted, mirroring the republish counter in cmd/worker.
func (q *InMemoryQueue) processJob(handler func(payload any) error, job JobPayload) {
	for {
		err := handler(job.Payload)
		if err == nil {
			return
		}

		job.RetryCount++
		if job.RetryCount > job.MaxRetries {
			log.Printf("⚠️ Dropping job after %d failed attempts: %+v", job.RetryCount, job.Payload)
			return
		}

		log.Printf("Job failed (attempt %d, retrying): %v", job.RetryCount, err)
		time.Sleep(time.Duration(job.RetryCount) * q.Backoff)
	}
}

// Subscribe adds a handler for a topic
func (q *InMemoryQueue) Subscribe(topic string, handler func(payload any) error) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.handlers[topic] = append(q.handlers[topic], handler)
	return nil
}

// ReminderRunJob is the payload of a scheduled reminder run.
type ReminderRunJob struct {
	OwnerID int64 `json:"owner_id"`
}

// AMQPPublisher publishes reminder run jobs to a durable queue consumed by
// cmd/worker.
type AMQPPublisher struct {
	Channel *amqp.Channel
	Queue   string
}

func NewAMQPPublisher(ch *amqp.Channel, queueName string) (*AMQPPublisher, error) {
	_, err := ch.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		return nil, fmt.Errorf("failed to declare queue %s: %w", queueName, err)
	}
	return &AMQPPublisher{Channel: ch, Queue: queueName}, nil
}

func (p *AMQPPublisher) Publish(topic string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return p.Channel.Publish(
		"",      // exchange
		p.Queue, // routing key
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
}

// Subscribe is not supported on the publisher side; cmd/worker consumes
// directly from the channel.
func (p *AMQPPublisher) Subscribe(topic string, handler func(payload any) error) error {
	return fmt.Errorf("amqp publisher does not support subscribing; run the worker")
}

// StartReminderRunSubscriber processes queued reminder runs in-process.
func StartReminderRunSubscriber(q Queue, svc *service.ReminderService) {
	err := q.Subscribe("reminder_runs", func(payload any) error {
		job, ok := payload.(ReminderRunJob)
		if !ok {
			log.Println("⚠️ Invalid payload type, expected ReminderRunJob")
			return nil // no retry
		}

		log.Println("📩 Processing reminder run for owner:", job.OwnerID)
		result, err := svc.RunReminders(context.Background(), job.OwnerID, service.RunOptions{})
		if err != nil {
			log.Println("⚠️ Reminder run failed:", err)
			return err // triggers retry in queue
		}

		log.Printf("✅ Reminder run %s complete: sent=%d failed=%d skipped=%d\n",
			result.RunID, result.Sent, result.Failed, result.Skipped)
		return nil
	})
	if err != nil {
		log.Println("⚠️ Failed to start subscriber for reminder_runs:", err)
	}
}

var (
	_ Queue = (*InMemoryQueue)(nil)
	_ Queue = (*AMQPPublisher)(nil)
)
