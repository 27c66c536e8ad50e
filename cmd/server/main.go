// cmd/server/main.go
package main

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/streadway/amqp"

	"github.com/duespark/duespark-backend/internal/ai"
	"github.com/duespark/duespark-backend/internal/config"
	"github.com/duespark/duespark-backend/internal/db"
	"github.com/duespark/duespark-backend/internal/handler"
	"github.com/duespark/duespark-backend/internal/mailer"
	"github.com/duespark/duespark-backend/internal/middleware"
	"github.com/duespark/duespark-backend/internal/pdf"
	"github.com/duespark/duespark-backend/internal/queue"
	"github.com/duespark/duespark-backend/internal/repository"
	"github.com/duespark/duespark-backend/internal/service"
)

func main() {
	// Load .env
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ No .env file found, relying on OS environment variables")
	}

	cfg := config.Load()

	// Init DB
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
	} else {
		log.Println("⚠️ OPENAI_API_KEY not set, custom tokens will not be auto-filled")
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

	q := connectQueue(cfg, reminderService)

	reminderHandler := &handler.ReminderHandler{
		Service:      reminderService,
		ReminderRepo: reminderRepo,
		Queue:        q,
	}
	invoiceHandler := &handler.InvoiceHandler{
		InvoiceRepo:  invoiceRepo,
		ReminderRepo: reminderRepo,
	}
	clientHandler := &handler.ClientHandler{ClientRepo: clientRepo}
	templateHandler := &handler.TemplateHandler{SettingsRepo: settingsRepo}

	runLimiter := middleware.NewRateLimiter(10)
	sendLimiter := middleware.NewRateLimiter(20)

	r := chi.NewRouter()

	// Client routes
	r.Post("/clients", clientHandler.CreateClientHandler)
	r.Get("/clients", clientHandler.ListClientsHandler)

	// Invoice routes
	r.Post("/invoices", invoiceHandler.CreateInvoiceHandler)
	r.Get("/invoices", invoiceHandler.ListInvoicesHandler)
	r.Get("/invoices/{id}", invoiceHandler.GetInvoiceHandler)

	// Reminder routes
	r.With(runLimiter.Limit).Post("/reminders/run", reminderHandler.RunRemindersHandler)
	r.With(runLimiter.Limit).Post("/reminders/run/preview", reminderHandler.PreviewRemindersHandler)
	r.With(runLimiter.Limit).Post("/reminders/schedule", reminderHandler.ScheduleReminderRunHandler)
	r.With(sendLimiter.Limit).Post("/reminders/send", reminderHandler.SendReminderHandler)
	r.Get("/reminders", reminderHandler.ListRemindersHandler)

	// Template and settings routes
	r.Post("/templates/preview", templateHandler.PreviewTemplateHandler)
	r.Get("/settings", templateHandler.GetSettingsHandler)
	r.Put("/settings", templateHandler.UpdateSettingsHandler)

	log.Println("🚀 Server running on port " + cfg.Port)
	log.Fatal(http.ListenAndServe(":"+cfg.Port, r))
}

// connectQueue prefers the durable AMQP queue consumed by cmd/worker and
// falls back to an in-process queue when no broker is reachable.
func connectQueue(cfg *config.Config, svc *service.ReminderService) queue.Queue {
	conn, err := amqp.Dial(cfg.AMQPURL)
	if err == nil {
		ch, chErr := conn.Channel()
		if chErr == nil {
			pub, pubErr := queue.NewAMQPPublisher(ch, "reminder_runs")
			if pubErr == nil {
				return pub
			}
			log.Println("⚠️ Failed to declare reminder_runs queue:", pubErr)
		} else {
			log.Println("⚠️ Failed to open AMQP channel:", chErr)
		}
		conn.Close()
	} else {
		log.Println("⚠️ AMQP unavailable, scheduled runs will execute in-process:", err)
	}

	mem := queue.NewInMemoryQueue()
	queue.StartReminderRunSubscriber(mem, svc)
	return mem
}
