package scheduler

import (
	"testing"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

func TestReservationExpireTaskRoundTrip(t *testing.T) {
	leadID := uuid.New().String()

	task, err := NewReservationExpireTask(ReservationExpirePayload{LeadID: leadID})
	if err != nil {
		t.Fatalf("new task: %v", err)
	}
	if task.Type() != TaskReservationExpire {
		t.Fatalf("unexpected task type %s", task.Type())
	}

	payload, err := ParseReservationExpirePayload(task)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if payload.LeadID != leadID {
		t.Fatalf("expected lead %s, got %s", leadID, payload.LeadID)
	}
}

func TestNotificationOutboxDueTaskRoundTrip(t *testing.T) {
	outboxID := uuid.New().String()
	orgID := uuid.New().String()

	task, err := NewNotificationOutboxDueTask(NotificationOutboxDuePayload{
		OutboxID:       outboxID,
		OrganizationID: orgID,
	})
	if err != nil {
		t.Fatalf("new task: %v", err)
	}
	if task.Type() != TaskNotificationOutboxDue {
		t.Fatalf("unexpected task type %s", task.Type())
	}

	payload, err := ParseNotificationOutboxDuePayload(task)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if payload.OutboxID != outboxID || payload.OrganizationID != orgID {
		t.Fatalf("payload mismatch: %+v", payload)
	}
}

func TestParseReservationExpirePayloadRejectsGarbage(t *testing.T) {
	task := asynq.NewTask(TaskReservationExpire, []byte("not json"))
	if _, err := ParseReservationExpirePayload(task); err == nil {
		t.Fatal("expected parse error")
	}
}
