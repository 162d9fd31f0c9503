// Package webhook delivers committed notifications to an external HTTP
// endpoint through a bounded queue and a fixed pool of workers.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/frahmantamala/hr-approval/internal/core/events"
)

type Job struct {
	UserID  int64
	Payload Payload
}

// Payload is the JSON body posted for each recipient.
type Payload struct {
	EventID      string    `json:"event_id"`
	EventType    string    `json:"event_type"`
	UserID       int64     `json:"user_id"`
	InstanceID   int64     `json:"instance_id"`
	ResourceType string    `json:"resource_type"`
	ResourceID   int64     `json:"resource_id"`
	StepOrder    int       `json:"step_order"`
	Status       string    `json:"status"`
	ActorID      int64     `json:"actor_id"`
	OccurredAt   time.Time `json:"occurred_at"`
}

type Worker struct {
	ID         int
	WorkerPool chan chan Job
	JobChannel chan Job
	Logger     *slog.Logger
}

func NewWorker(id int, workerPool chan chan Job, logger *slog.Logger) *Worker {
	return &Worker{
		ID:         id,
		WorkerPool: workerPool,
		JobChannel: make(chan Job),
		Logger:     logger,
	}
}

func (w *Worker) Start(ctx context.Context, wg *sync.WaitGroup, processFunc func(Job)) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			w.WorkerPool <- w.JobChannel

			select {
			case job := <-w.JobChannel:
				w.Logger.Debug("worker processing delivery", "worker_id", w.ID, "event_id", job.Payload.EventID)
				processFunc(job)
			case <-ctx.Done():
				w.Logger.Debug("worker shutting down", "worker_id", w.ID)
				return
			}
		}
	}()
}

type Config struct {
	URL         string
	Timeout     time.Duration
	MaxWorkers  int
	QueueSize   int
	MaxAttempts int
	Backoff     time.Duration
}

// Channel implements notification.Channel. Deliver only enqueues; a full
// queue is reported to the caller instead of blocking the event bus.
type Channel struct {
	url         string
	timeout     time.Duration
	maxAttempts int
	backoff     time.Duration
	httpClient  *http.Client
	logger      *slog.Logger

	jobQueue   chan Job
	workerPool chan chan Job
	maxWorkers int
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func NewChannel(config Config, logger *slog.Logger) *Channel {
	ctx, cancel := context.WithCancel(context.Background())

	maxWorkers := config.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = 4
	}
	queueSize := config.QueueSize
	if queueSize <= 0 {
		queueSize = 100
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	maxAttempts := config.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	backoff := config.Backoff
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}

	c := &Channel{
		url:         config.URL,
		timeout:     timeout,
		maxAttempts: maxAttempts,
		backoff:     backoff,
		httpClient:  &http.Client{Timeout: timeout},
		logger:      logger,
		jobQueue:    make(chan Job, queueSize),
		workerPool:  make(chan chan Job, maxWorkers),
		maxWorkers:  maxWorkers,
		ctx:         ctx,
		cancel:      cancel,
	}

	for i := 0; i < c.maxWorkers; i++ {
		NewWorker(i, c.workerPool, logger).Start(c.ctx, &c.wg, c.process)
	}
	c.wg.Add(1)
	go c.dispatch()

	logger.Info("webhook notification channel started",
		"max_workers", c.maxWorkers,
		"queue_size", cap(c.jobQueue))
	return c
}

// dispatch hands queued jobs to idle workers until the queue is closed,
// then stops the workers.
func (c *Channel) dispatch() {
	defer c.wg.Done()
	defer c.cancel()

	for job := range c.jobQueue {
		jobChannel := <-c.workerPool
		jobChannel <- job
	}
}

func (c *Channel) Deliver(_ context.Context, userID int64, event *events.WorkflowTransitionEvent) error {
	job := Job{
		UserID: userID,
		Payload: Payload{
			EventID:      event.EventID(),
			EventType:    event.EventType(),
			UserID:       userID,
			InstanceID:   event.InstanceID,
			ResourceType: event.ResourceType,
			ResourceID:   event.ResourceID,
			StepOrder:    event.StepOrder,
			Status:       event.Status,
			ActorID:      event.ActorID,
			OccurredAt:   event.OccurredAt(),
		},
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return fmt.Errorf("webhook channel is shut down")
	}

	select {
	case c.jobQueue <- job:
		return nil
	default:
		c.logger.Warn("webhook queue full, dropping delivery",
			"event_id", job.Payload.EventID,
			"user_id", userID,
			"queue_capacity", cap(c.jobQueue))
		return fmt.Errorf("webhook queue full")
	}
}

// Shutdown stops accepting deliveries and waits for queued ones to finish.
func (c *Channel) Shutdown() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.jobQueue)
	c.mu.Unlock()

	c.logger.Info("shutting down webhook notification channel")
	c.wg.Wait()
	c.logger.Info("webhook notification channel shutdown complete")
}

func (c *Channel) process(job Job) {
	var err error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if err = c.post(job.Payload); err == nil {
			c.logger.Info("webhook notification delivered",
				"event_id", job.Payload.EventID,
				"user_id", job.UserID,
				"attempt", attempt)
			return
		}
		c.logger.Warn("webhook notification attempt failed",
			"event_id", job.Payload.EventID,
			"user_id", job.UserID,
			"attempt", attempt,
			"error", err)
		if attempt < c.maxAttempts {
			time.Sleep(time.Duration(attempt) * c.backoff)
		}
	}
	c.logger.Error("webhook notification abandoned",
		"event_id", job.Payload.EventID,
		"user_id", job.UserID,
		"error", err)
}

func (c *Channel) post(payload Payload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Event-ID", payload.EventID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
