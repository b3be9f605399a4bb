// Package notification turns lead lifecycle events into durable outbox
// records and delivers them to the marketplace webhook.
package notification

import (
	"context"
	"fmt"
	"time"

	"realty_portal_backend/internal/events"
	"realty_portal_backend/internal/notification/outbox"
	"realty_portal_backend/internal/notification/webhook"
	"realty_portal_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// maxAttempts bounds webhook delivery retries before a record is parked as
// failed for operator attention.
const maxAttempts = 5

// Service records notification-worthy events and delivers outbox records.
type Service struct {
	outbox *outbox.Repository
	sender *webhook.Sender
	log    *logger.Logger
}

// New creates the notification service.
func New(pool *pgxpool.Pool, sender *webhook.Sender, log *logger.Logger) *Service {
	return &Service{outbox: outbox.New(pool), sender: sender, log: log}
}

// Subscribe registers the outbox writers on the event bus. State changes
// are captured fire-and-forget: a failed insert is logged, never propagated
// back into the lead transition.
func (s *Service) Subscribe(bus events.Bus) {
	capture := events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		return s.capture(ctx, event)
	})

	bus.Subscribe(events.LeadCreated{}.EventName(), capture)
	bus.Subscribe(events.LeadStatusChanged{}.EventName(), capture)
	bus.Subscribe(events.LeadReserved{}.EventName(), capture)
	bus.Subscribe(events.ReservationExpired{}.EventName(), capture)
}

func (s *Service) capture(ctx context.Context, event events.Event) error {
	organizationID, ok := eventOrganization(event)
	if !ok {
		return nil
	}

	_, err := s.outbox.Insert(ctx, outbox.InsertParams{
		OrganizationID: organizationID,
		Kind:           event.EventName(),
		Payload:        event,
		RunAt:          time.Now().UTC(),
	})
	if err != nil {
		s.log.Error("outbox insert failed", "event", event.EventName(), "error", err)
		return err
	}
	return nil
}

func eventOrganization(event events.Event) (uuid.UUID, bool) {
	switch e := event.(type) {
	case events.LeadCreated:
		return e.OrganizationID, true
	case events.LeadStatusChanged:
		return e.OrganizationID, true
	case events.LeadReserved:
		return e.OrganizationID, true
	case events.ReservationExpired:
		return e.OrganizationID, true
	default:
		return uuid.Nil, false
	}
}

// Deliver sends one claimed outbox record to the webhook. Called from the
// background worker; the returned error drives asynq's own retry, while the
// record status tracks the business-level outcome.
func (s *Service) Deliver(ctx context.Context, outboxID uuid.UUID) error {
	rec, err := s.outbox.GetByID(ctx, outboxID)
	if err != nil {
		return fmt.Errorf("load outbox record: %w", err)
	}
	if rec.Status == outbox.StatusSucceeded || rec.Status == outbox.StatusFailed {
		return nil
	}

	if err := s.outbox.MarkProcessing(ctx, rec.ID); err != nil {
		return err
	}

	if err := s.sender.Send(ctx, rec.Kind, rec.Payload); err != nil {
		// Attempts was bumped by MarkProcessing.
		if rec.Attempts+1 >= maxAttempts {
			s.log.Error("webhook delivery abandoned", "outboxId", rec.ID, "kind", rec.Kind, "error", err)
			return s.outbox.MarkFailed(ctx, rec.ID, err.Error())
		}
		msg := err.Error()
		if markErr := s.outbox.MarkPending(ctx, rec.ID, &msg); markErr != nil {
			return markErr
		}
		return fmt.Errorf("webhook delivery: %w", err)
	}

	return s.outbox.MarkSucceeded(ctx, rec.ID)
}

// Outbox exposes the repository for the dispatcher loop.
func (s *Service) Outbox() *outbox.Repository {
	return s.outbox
}
