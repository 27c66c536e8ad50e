package queue_test

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/duespark/duespark-backend/internal/queue"
)

func TestInMemoryQueueDeliversJob(t *testing.T) {
	q := queue.NewInMemoryQueue()

	got := make(chan queue.ReminderRunJob, 1)
	q.Subscribe("reminder_runs", func(payload any) error {
		got <- payload.(queue.ReminderRunJob)
		return nil
	})

	if err := q.Publish("reminder_runs", queue.ReminderRunJob{OwnerID: 7}); err != nil {
		t.Fatal(err)
	}

	select {
	case job := <-got:
		if job.OwnerID != 7 {
			t.Errorf("expected owner 7, got %d", job.OwnerID)
		}
	case <-time.After(time.Second):
		t.Fatal("job was never delivered")
	}
}

func TestInMemoryQueuePublishWithoutSubscribers(t *testing.T) {
	q := queue.NewInMemoryQueue()

	if err := q.Publish("reminder_runs", queue.ReminderRunJob{OwnerID: 1}); err == nil {
		t.Fatal("expected error when no subscriber is registered")
	}
}

func TestInMemoryQueueRetriesUntilSuccess(t *testing.T) {
	q := queue.NewInMemoryQueue()
	q.Backoff = time.Millisecond

	var attempts int32
	done := make(chan struct{})
	q.Subscribe("reminder_runs", func(payload any) error {
		if atomic.AddInt32(&attempts, 1) < 3 {
			return errors.New("transient failure")
		}
		close(done)
		return nil
	})

	if err := q.Publish("reminder_runs", queue.ReminderRunJob{OwnerID: 1}); err != nil {
		t.Fatal(err)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("job never succeeded")
	}
	if n := atomic.LoadInt32(&attempts); n != 3 {
		t.Errorf("expected 3 attempts, got %d", n)
	}
}

func TestInMemoryQueueGivesUpAfterMaxRetries(t *testing.T) {
	q := queue.NewInMemoryQueue()
	q.Backoff = time.Millisecond

	attempts := make(chan struct{}, 16)
	q.Subscribe("reminder_runs", func(payload any) error {
		attempts <- struct{}{}
		return errors.New("permanent failure")
	})

	if err := q.Publish("reminder_runs", queue.ReminderRunJob{OwnerID: 1}); err != nil {
		t.Fatal(err)
	}

	// The initial attempt plus three retries, then the job is dropped.
	count := 0
	for {
		select {
		case <-attempts:
			count++
		case <-time.After(200 * time.Millisecond):
			if count != 4 {
				t.Errorf("expected 4 attempts, got %d", count)
			}
			return
		}
	}
}
