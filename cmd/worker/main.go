// cmd/worker/main.go
package main

import (
	"context"
	"encoding/json"
	"log"

	"github.com/joho/godotenv"
	"github.com/streadway/amqp"

	"github.com/duespark/duespark-backend/internal/ai"
	"github.com/duespark/duespark-backend/internal/config"
	"github.com/duespark/duespark-backend/internal/db"
	"github.com/duespark/duespark-backend/internal/mailer"
	"github.com/duespark/duespark-backend/internal/pdf"
	"github.com/duespark/duespark-backend/internal/queue"
	"github.com/duespark/duespark-backend/internal/repository"
	"github.com/duespark/duespark-backend/internal/service"
)

const maxRunRetries = 3

// retryCount reads the x-retry-count header. AMQP table integers arrive
// in whatever signed width the publisher used.
func retryCount(headers amqp.Table) int {
	switch v := headers["x-retry-count"].(type) {
	case int:
		return v
	case int8:
		return int(v)
	case int16:
		return int(v)
	case int32:
		return int(v)
	case int64:
		return int(v)
	default:
		return 0
	}
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ No .env file found, relying on OS environment variables")
	}

	cfg := config.Load()
	db.Init()

	clientRepo := &repository.ClientRepository{DB: db.DB}
	invoiceRepo := &repository.InvoiceRepository{DB: db.DB}
	reminderRepo := &repository.ReminderRepository{DB: db.DB}
	settingsRepo := &repository.SettingsRepository{DB: db.DB}

	var sender mailer.Sender
	if cfg.SMTPHost != "" {
		sender = mailer.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword)
	} else {
		log.Println("⚠️ SMTP_HOST not set, emails will be logged instead of sent")
		sender = &mailer.LoggingSender{}
	}

	var resolver ai.Resolver
	if cfg.OpenAIKey != "" {
		resolver = ai.NewOpenAIResolver(cfg.OpenAIKey, cfg.OpenAIModel)
	}

	reminderService := &service.ReminderService{
		InvoiceRepo:        invoiceRepo,
		ClientRepo:         clientRepo,
		ReminderRepo:       reminderRepo,
		SettingsRepo:       settingsRepo,
		Resolver:           resolver,
		Mailer:             sender,
		PDF:                &pdf.FPDFGenerator{},
		FromEmail:          cfg.FromEmail,
		MaxAttachmentBytes: cfg.MaxAttachmentBytes,
	}

	// Connect to RabbitMQ
	conn, err := amqp.Dial(cfg.AMQPURL)
	if err != nil {
		log.Fatal("Failed to connect to RabbitMQ:", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		log.Fatal("Failed to open a channel:", err)
	}
	defer ch.Close()

	q, err := ch.QueueDeclare(
		"reminder_runs", // name
		true,            // durable
		false,           // delete when unused
		false,           // exclusive
		false,           // no-wait
		nil,             // arguments
	)
	if err != nil {
		log.Fatal("Failed to declare queue:", err)
	}

	msgs, err := ch.Consume(
		q.Name,
		"",
		false, // autoAck = false for reliability
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		log.Fatal("Failed to register consumer:", err)
	}

	forever := make(chan bool)

	go func() {
		for d := range msgs {
			var job queue.ReminderRunJob
			if err := json.Unmarshal(d.Body, &job); err != nil {
				log.Println("Invalid job:", err)
				d.Ack(false)
				continue
			}

			result, err := reminderService.RunReminders(context.Background(), job.OwnerID, service.RunOptions{})
			if err != nil {
				attempt := retryCount(d.Headers)
				log.Printf("Failed to run reminders for owner %d (attempt %d): %v", job.OwnerID, attempt+1, err)
				if attempt < maxRunRetries {
					// Nack(requeue) redelivers with unchanged headers, so
					// the counter only advances by republishing.
					pubErr := ch.Publish("", q.Name, false, false, amqp.Publishing{
						ContentType:  "application/json",
						DeliveryMode: amqp.Persistent,
						Headers:      amqp.Table{"x-retry-count": int32(attempt + 1)},
						Body:         d.Body,
					})
					if pubErr != nil {
						log.Println("Failed to requeue job, leaving it for redelivery:", pubErr)
						d.Nack(false, true)
						continue
					}
				} else {
					log.Printf("Giving up on reminder run for owner %d after %d attempts", job.OwnerID, attempt+1)
				}
			} else {
				log.Printf("✅ Reminder run %s for owner %d: sent=%d failed=%d skipped=%d",
					result.RunID, job.OwnerID, result.Sent, result.Failed, result.Skipped)
			}

			d.Ack(false)
		}
	}()

	log.Println("Worker running, waiting for reminder runs...")
	<-forever
}
