package service

import (
	"context"
	"log"
)

// ReminderRunner defines the methods the worker needs
type ReminderRunner interface {
	RunReminders(ctx context.Context, ownerID int64, opts RunOptions) (*RunResult, error)
}

// Worker drains scheduled reminder runs off a channel of owner IDs
type Worker struct {
	Runner  ReminderRunner
	JobChan <-chan int64
}

// Constructor
func NewWorker(runner ReminderRunner, jobChan <-chan int64) *Worker {
	return &Worker{
		Runner:  runner,
		JobChan: jobChan,
	}
}

// Start begins processing jobs; it returns when the channel closes
func (w *Worker) Start() {
	for ownerID := range w.JobChan {
		result, err := w.Runner.RunReminders(context.Background(), ownerID, RunOptions{})
		if err != nil {
			log.Println("Failed to run reminders for owner:", ownerID, err)
			continue
		}
		log.Printf("Reminder run %s for owner %d: sent=%d failed=%d skipped=%d\n",
			result.RunID, ownerID, result.Sent, result.Failed, result.Skipped)
	}
}
