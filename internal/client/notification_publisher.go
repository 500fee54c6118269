package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// NotificationPublisher publishes timesheet workflow events to NATS for
// consumption by the notifications service (which handles email dispatch).
//
// Subject convention: notifications.hr.<event_type>
// Event types: timesheet_submitted, timesheet_approved, timesheet_rejected,
//              timesheet_reminder
//
// All publish operations are non-fatal. Errors are logged but never
// propagated, so notification failures never interrupt workflow operations.
type NotificationPublisher struct {
	conn *nats.Conn
	log  zerolog.Logger
}

// NotificationEvent is the JSON schema published to NATS.
type NotificationEvent struct {
	EventType    string                 `json:"event_type"`
	ActorID      string                 `json:"actor_id"`
	Recipients   []string               `json:"recipients"`
	ResourceType string                 `json:"resource_type,omitempty"`
	ResourceID   string                 `json:"resource_id,omitempty"`
	Category     string                 `json:"category,omitempty"`
	Payload      map[string]interface{} `json:"payload,omitempty"`
}

// NewNotificationPublisher connects to NATS and returns a publisher. An empty
// URL returns a disabled publisher so the service can run without a broker.
func NewNotificationPublisher(url string, log zerolog.Logger) (*NotificationPublisher, error) {
	if url == "" {
		log.Info().Msg("NATS URL not configured; notifications disabled")
		return &NotificationPublisher{log: log}, nil
	}
	conn, err := nats.Connect(url, nats.Name("hr-timesheets"))
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return &NotificationPublisher{conn: conn, log: log}, nil
}

// Close drains the underlying connection.
func (p *NotificationPublisher) Close() {
	if p.conn != nil {
		_ = p.conn.Drain()
	}
}

// PublishTimesheetEvent publishes a timesheet workflow event.
// Subject: notifications.hr.<eventType>
func (p *NotificationPublisher) PublishTimesheetEvent(ctx context.Context, eventType, timesheetID, actorID string, recipients []string, payload map[string]interface{}) {
	if p.conn == nil {
		return
	}
	if len(recipients) == 0 {
		return
	}

	event := &NotificationEvent{
		EventType:    eventType,
		ActorID:      actorID,
		Recipients:   recipients,
		ResourceType: "timesheet",
		ResourceID:   timesheetID,
		Category:     "hr_timesheets",
		Payload:      payload,
	}

	data, err := json.Marshal(event)
	if err != nil {
		p.log.Warn().Err(err).Str("event_type", eventType).Msg("notification: failed to marshal event")
		return
	}

	subject := fmt.Sprintf("notifications.hr.%s", eventType)
	if err := p.conn.Publish(subject, data); err != nil {
		p.log.Warn().Err(err).
			Str("subject", subject).
			Str("timesheet_id", timesheetID).
			Msg("notification: failed to publish NATS event (non-fatal)")
		return
	}

	p.log.Debug().
		Str("subject", subject).
		Str("timesheet_id", timesheetID).
		Int("recipients", len(recipients)).
		Msg("notification: event published")
}
