package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
)

type stubSchedulerConfig struct {
	redisURL string
	queue    string
}

func (c stubSchedulerConfig) GetRedisURL() string       { return c.redisURL }
func (c stubSchedulerConfig) GetRedisTLSInsecure() bool { return false }
func (c stubSchedulerConfig) GetAsynqQueueName() string { return c.queue }
func (c stubSchedulerConfig) GetAsynqConcurrency() int  { return 1 }

func TestNewClientRequiresRedisURL(t *testing.T) {
	if _, err := NewClient(stubSchedulerConfig{}); err == nil {
		t.Fatal("expected error without redis url")
	}
}

func TestNewClientRejectsMalformedURL(t *testing.T) {
	if _, err := NewClient(stubSchedulerConfig{redisURL: "://broken"}); err == nil {
		t.Fatal("expected error for malformed url")
	}
}

func TestScheduleExpiryEnqueuesAtDeadline(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()

	client, err := NewClient(stubSchedulerConfig{redisURL: "redis://" + mr.Addr(), queue: "distribution"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	defer client.Close()

	deadline := time.Now().Add(30 * time.Minute)
	if err := client.ScheduleExpiry(context.Background(), uuid.New(), deadline); err != nil {
		t.Fatalf("schedule: %v", err)
	}

	// A future ProcessAt lands the task in the queue's scheduled set.
	if !mr.Exists("asynq:{distribution}:scheduled") {
		t.Fatal("expected task in the scheduled set")
	}
}

func TestScheduleExpiryOnNilClientIsNoop(t *testing.T) {
	var client *Client
	if err := client.ScheduleExpiry(context.Background(), uuid.New(), time.Now()); err != nil {
		t.Fatalf("nil client must be a no-op, got %v", err)
	}
}
