// Package worker runs consultations requested over the event bus.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/opensource-health/heron/internal/consult"
	"github.com/opensource-health/heron/internal/domain"
	"github.com/opensource-health/heron/internal/metrics"
)

// Worker consumes consultation requests from the EventBus.
type Worker struct {
	bus     domain.EventBus
	service *consult.Service
	metrics *metrics.Metrics

	subscriptions []domain.Subscription
	sem           chan struct{}
	wg            sync.WaitGroup
	ctx           context.Context
	cancel        context.CancelFunc

	processed atomic.Int64
	failed    atomic.Int64
	alerts    atomic.Int64
}

// Config holds worker configuration.
type Config struct {
	// WorkerCount bounds concurrently running consultations
	WorkerCount int
}

// Reply is the payload answered to a bus Request.
type Reply struct {
	Consultation *domain.Consultation `json:"consultation,omitempty"`
	Error        string               `json:"error,omitempty"`
}

// NewWorker creates a new async worker. m may be nil.
func NewWorker(bus domain.EventBus, service *consult.Service, m *metrics.Metrics) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:     bus,
		service: service,
		metrics: m,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start subscribes to consultation requests.
func (w *Worker) Start(cfg Config) error {
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	w.sem = make(chan struct{}, cfg.WorkerCount)

	sub, err := w.bus.Subscribe(w.ctx, domain.TopicConsultRequested, w.handleMessage)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", domain.TopicConsultRequested, err)
	}
	w.subscriptions = append(w.subscriptions, sub)

	slog.Info("consult worker started",
		"topic", domain.TopicConsultRequested,
		"worker_count", cfg.WorkerCount,
	)

	return nil
}

// handleMessage blocks while all slots are busy, which applies
// backpressure to the bus.
func (w *Worker) handleMessage(ctx context.Context, msg *domain.Message) error {
	select {
	case w.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer func() { <-w.sem }()
		_ = w.processConsultation(w.ctx, msg)
	}()
	return nil
}

// processConsultation runs one request and publishes the outcome.
func (w *Worker) processConsultation(ctx context.Context, msg *domain.Message) error {
	start := time.Now()

	var req consult.Request
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		w.failed.Add(1)
		slog.Error("failed to parse consultation request",
			"message_id", msg.ID,
			"error", err,
		)
		w.reply(ctx, msg, Reply{Error: "invalid request payload"})
		return err
	}

	if req.TraceID == "" {
		req.TraceID = msg.ID
	}

	slog.Debug("processing consultation",
		"trace_id", req.TraceID,
		"symptoms", len(req.Symptoms),
		"drugs", len(req.Drugs),
	)

	result, err := w.service.Run(ctx, &req)
	if err != nil {
		w.failed.Add(1)
		slog.Error("consultation failed",
			"trace_id", req.TraceID,
			"error", err,
		)
		w.reply(ctx, msg, Reply{Error: err.Error()})
		return err
	}

	w.processed.Add(1)
	w.metrics.ObserveConsultation(result, time.Since(start))

	payload, _ := json.Marshal(result)
	if err := w.bus.Publish(ctx, domain.TopicConsultCompleted, payload); err != nil {
		slog.Error("failed to publish consultation result",
			"trace_id", req.TraceID,
			"error", err,
		)
	}

	if consult.ShouldAlert(result.Assessment) {
		w.alerts.Add(1)
		alert, _ := json.Marshal(result.Assessment)
		if err := w.bus.Publish(ctx, domain.TopicAlert, alert); err != nil {
			slog.Error("failed to publish alert",
				"trace_id", req.TraceID,
				"error", err,
			)
		}
	}

	w.reply(ctx, msg, Reply{Consultation: result})

	slog.Info("consultation processed",
		"trace_id", req.TraceID,
		"status", result.Assessment.Status,
		"findings", len(result.Findings),
		"interactions", len(result.Interactions),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return nil
}

func (w *Worker) reply(ctx context.Context, msg *domain.Message, r Reply) {
	if msg.Reply == "" {
		return
	}
	payload, _ := json.Marshal(r)
	if err := w.bus.Respond(ctx, msg, payload); err != nil {
		slog.Error("failed to send reply",
			"message_id", msg.ID,
			"error", err,
		)
	}
}

// Stop gracefully stops the worker and waits for in-flight consultations.
func (w *Worker) Stop() error {
	// Unsubscribe first so no new work arrives
	for _, sub := range w.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			slog.Error("failed to unsubscribe",
				"topic", sub.Topic(),
				"error", err,
			)
		}
	}
	w.subscriptions = nil

	w.wg.Wait()
	w.cancel()

	slog.Info("consult worker stopped",
		"processed", w.processed.Load(),
		"failed", w.failed.Load(),
	)
	return nil
}

// Stats returns worker statistics.
type Stats struct {
	SubscriptionCount int      `json:"subscriptionCount"`
	Topics            []string `json:"topics"`
	Processed         int64    `json:"processed"`
	Failed            int64    `json:"failed"`
	Alerts            int64    `json:"alerts"`
}

// GetStats returns current worker statistics.
func (w *Worker) GetStats() Stats {
	topics := make([]string, len(w.subscriptions))
	for i, sub := range w.subscriptions {
		topics[i] = sub.Topic()
	}
	return Stats{
		SubscriptionCount: len(w.subscriptions),
		Topics:            topics,
		Processed:         w.processed.Load(),
		Failed:            w.failed.Load(),
		Alerts:            w.alerts.Load(),
	}
}
