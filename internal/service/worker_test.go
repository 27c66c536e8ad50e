package service_test

import (
	"context"
	"sync"
	"testing"

	"github.com/duespark/duespark-backend/internal/service"
)

// MockRunner records which owners were processed
type MockRunner struct {
	mu     sync.Mutex
	owners []int64
}

func (m *MockRunner) RunReminders(ctx context.Context, ownerID int64, opts service.RunOptions) (*service.RunResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.owners = append(m.owners, ownerID)
	return &service.RunResult{RunID: "test-run", Sent: 1}, nil
}

func TestWorker(t *testing.T) {
	runner := &MockRunner{}

	jobChan := make(chan int64, 2)
	jobChan <- 1
	jobChan <- 7
	close(jobChan)

	done := make(chan struct{})
	worker := service.NewWorker(runner, jobChan)
	go func() {
		worker.Start()
		close(done)
	}()
	<-done

	if len(runner.owners) != 2 || runner.owners[0] != 1 || runner.owners[1] != 7 {
		t.Errorf("expected owners [1 7], got %v", runner.owners)
	}
}
