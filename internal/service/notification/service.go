package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/hospital-api/internal/email"
	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/pkg/messaging"
)

// Service turns appointment events from the broker into patient e-mails.
type Service struct {
	emailSvc email.Service
	broker   messaging.Broker
	channel  string
}

func NewService(emailSvc email.Service, broker messaging.Broker, channel string) *Service {
	return &Service{emailSvc: emailSvc, broker: broker, channel: channel}
}

// Run consumes the channel until ctx is done or the subscription ends.
func (s *Service) Run(ctx context.Context) error {
	msgs, err := s.broker.Subscribe(ctx, s.channel)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", s.channel, err)
	}

	log.Info().Str("channel", s.channel).Msg("notification consumer started")
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			if err := s.Handle(ctx, msg); err != nil {
				log.Error().Err(err).
					Str("message_id", msg.ID).
					Str("event_type", msg.Type).
					Msg("failed to send notification")
			}
		}
	}
}

// Handle sends the e-mail for one message. Unknown event types are ignored.
func (s *Service) Handle(ctx context.Context, msg messaging.Message) error {
	subject, ok := subjects[msg.Type]
	if !ok {
		return nil
	}

	var evt model.AppointmentEvent
	if err := json.Unmarshal(msg.Payload, &evt); err != nil {
		return fmt.Errorf("invalid %s payload: %w", msg.Type, err)
	}
	if evt.PatientEmail == "" {
		log.Warn().Str("appointment_id", evt.AppointmentID.String()).Msg("no patient email on event")
		return nil
	}

	return s.emailSvc.Send(ctx, evt.PatientEmail, subject, body(msg.Type, &evt))
}

var subjects = map[string]string{
	model.EventAppointmentBooked:    "Appointment confirmed",
	model.EventAppointmentCancelled: "Appointment cancelled",
	model.EventAppointmentCompleted: "Visit summary available",
}

func body(eventType string, evt *model.AppointmentEvent) string {
	when := fmt.Sprintf("%s at %s", evt.Date, evt.Time)
	switch eventType {
	case model.EventAppointmentBooked:
		return fmt.Sprintf("Dear %s,\n\nYour appointment with %s (%s) is confirmed for %s.\n",
			evt.PatientName, evt.DoctorName, evt.Department, when)
	case model.EventAppointmentCancelled:
		return fmt.Sprintf("Dear %s,\n\nYour appointment with %s on %s has been cancelled.\n",
			evt.PatientName, evt.DoctorName, when)
	default:
		return fmt.Sprintf("Dear %s,\n\n%s has completed your visit of %s. The diagnosis is available in your history.\n",
			evt.PatientName, evt.DoctorName, when)
	}
}
