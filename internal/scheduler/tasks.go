package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskReservationExpire = "leads.reservation.expire"

const TaskNotificationOutboxDue = "notification.outbox.due"

type ReservationExpirePayload struct {
	LeadID string `json:"leadId"`
}

type NotificationOutboxDuePayload struct {
	OutboxID       string `json:"outboxId"`
	OrganizationID string `json:"organizationId"`
}

func NewReservationExpireTask(payload ReservationExpirePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReservationExpire, data), nil
}

func ParseReservationExpirePayload(task *asynq.Task) (ReservationExpirePayload, error) {
	var payload ReservationExpirePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return ReservationExpirePayload{}, err
	}
	return payload, nil
}

func NewNotificationOutboxDueTask(payload NotificationOutboxDuePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskNotificationOutboxDue, data), nil
}

func ParseNotificationOutboxDuePayload(task *asynq.Task) (NotificationOutboxDuePayload, error) {
	var payload NotificationOutboxDuePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return NotificationOutboxDuePayload{}, err
	}
	return payload, nil
}
