package worker

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"github.com/opensource-health/heron/internal/bus"
	"github.com/opensource-health/heron/internal/consult"
	"github.com/opensource-health/heron/internal/domain"
	"github.com/opensource-health/heron/internal/knowledge"
	"github.com/opensource-health/heron/internal/metrics"
	"github.com/opensource-health/heron/internal/rules"
)

func newTestService(t *testing.T) *consult.Service {
	t.Helper()

	catalog, err := knowledge.Default()
	if err != nil {
		t.Fatalf("failed to load catalog: %v", err)
	}
	engine, err := rules.NewEngine()
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	if err := engine.LoadRules(rules.DefaultClinicalRules(domain.DefaultClinicalThresholds())); err != nil {
		t.Fatalf("failed to load rules: %v", err)
	}

	return consult.NewService(
		catalog,
		rules.NewSymptomMatcher(rules.DefaultMinScore),
		rules.NewInteractionChecker(catalog.Interactions),
		engine,
		nil,
		consult.NewProcessor(),
	)
}

func TestWorker(t *testing.T) {
	eventBus := bus.NewChannelBus(100)
	defer eventBus.Close()

	service := newTestService(t)
	ctx := context.Background()

	t.Run("StartAndStop", func(t *testing.T) {
		worker := NewWorker(eventBus, service, nil)

		if err := worker.Start(Config{WorkerCount: 1}); err != nil {
			t.Fatalf("Start failed: %v", err)
		}

		stats := worker.GetStats()
		if stats.SubscriptionCount != 1 {
			t.Errorf("expected 1 subscription, got %d", stats.SubscriptionCount)
		}
		if stats.Topics[0] != domain.TopicConsultRequested {
			t.Errorf("expected topic %s, got %s", domain.TopicConsultRequested, stats.Topics[0])
		}

		if err := worker.Stop(); err != nil {
			t.Errorf("Stop failed: %v", err)
		}

		if stats := worker.GetStats(); stats.SubscriptionCount != 0 {
			t.Errorf("expected 0 subscriptions after stop, got %d", stats.SubscriptionCount)
		}
	})

	t.Run("PublishesCompletedAndAlert", func(t *testing.T) {
		m := metrics.New()
		w := NewWorker(eventBus, service, m)
		if err := w.Start(Config{}); err != nil {
			t.Fatalf("Start failed: %v", err)
		}
		defer w.Stop()

		var completed atomic.Value
		var alertReceived atomic.Bool

		eventBus.Subscribe(ctx, domain.TopicConsultCompleted, func(ctx context.Context, msg *domain.Message) error {
			completed.Store(msg.Payload)
			return nil
		})
		eventBus.Subscribe(ctx, domain.TopicAlert, func(ctx context.Context, msg *domain.Message) error {
			alertReceived.Store(true)
			return nil
		})

		payload, _ := json.Marshal(consult.Request{
			TraceID:  "trace-001",
			Symptoms: []string{"chestPain", "shortnessBreath", "nausea"},
		})
		if err := eventBus.Publish(ctx, domain.TopicConsultRequested, payload); err != nil {
			t.Fatalf("Publish failed: %v", err)
		}

		deadline := time.Now().Add(time.Second)
		for completed.Load() == nil || !alertReceived.Load() {
			if time.Now().After(deadline) {
				t.Fatal("timeout waiting for completed and alert events")
			}
			time.Sleep(5 * time.Millisecond)
		}

		var result domain.Consultation
		if err := json.Unmarshal(completed.Load().([]byte), &result); err != nil {
			t.Fatalf("failed to parse result: %v", err)
		}
		if result.Assessment.Metadata.TraceID != "trace-001" {
			t.Errorf("expected traceID 'trace-001', got '%s'", result.Assessment.Metadata.TraceID)
		}
		if result.Assessment.Status != domain.AssessmentAlert {
			t.Errorf("expected ALERT, got %s", result.Assessment.Status)
		}
		if w.GetStats().Alerts != 1 {
			t.Errorf("expected 1 alert, got %d", w.GetStats().Alerts)
		}
	})

	t.Run("RequestReply", func(t *testing.T) {
		w := NewWorker(eventBus, service, nil)
		if err := w.Start(Config{WorkerCount: 2}); err != nil {
			t.Fatalf("Start failed: %v", err)
		}
		defer w.Stop()

		reqCtx, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()

		payload, _ := json.Marshal(consult.Request{Drugs: []string{"Warfarin", " Aspirin "}})
		data, err := eventBus.Request(reqCtx, domain.TopicConsultRequested, payload)
		if err != nil {
			t.Fatalf("Request failed: %v", err)
		}

		var reply Reply
		if err := json.Unmarshal(data, &reply); err != nil {
			t.Fatalf("failed to parse reply: %v", err)
		}
		if reply.Error != "" {
			t.Fatalf("unexpected error: %s", reply.Error)
		}
		if len(reply.Consultation.Interactions) != 1 {
			t.Fatalf("expected 1 interaction, got %d", len(reply.Consultation.Interactions))
		}
		if got := reply.Consultation.Interactions[0].Pair; got != [2]string{"Warfarin", " Aspirin "} {
			t.Errorf("expected original names, got %v", got)
		}
	})

	t.Run("ReplyWithError", func(t *testing.T) {
		w := NewWorker(eventBus, service, nil)
		if err := w.Start(Config{}); err != nil {
			t.Fatalf("Start failed: %v", err)
		}
		defer w.Stop()

		reqCtx, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()

		data, err := eventBus.Request(reqCtx, domain.TopicConsultRequested, []byte("not json"))
		if err != nil {
			t.Fatalf("Request failed: %v", err)
		}

		var reply Reply
		if err := json.Unmarshal(data, &reply); err != nil {
			t.Fatalf("failed to parse reply: %v", err)
		}
		if reply.Error == "" {
			t.Error("expected error reply")
		}
		if w.GetStats().Failed != 1 {
			t.Errorf("expected 1 failure, got %d", w.GetStats().Failed)
		}
	})
}
