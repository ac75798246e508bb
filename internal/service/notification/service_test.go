package notification

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/pkg/messaging"
)

type sentMail struct {
	to, subject, body string
}

type fakeEmail struct {
	mu   sync.Mutex
	sent []sentMail
}

func (f *fakeEmail) Send(_ context.Context, to, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMail{to, subject, body})
	return nil
}

func (f *fakeEmail) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func bookedMessage(t *testing.T) messaging.Message {
	t.Helper()
	payload, err := json.Marshal(model.AppointmentEvent{
		AppointmentID: uuid.New(),
		Status:        model.AppointmentStatusBooked,
		PatientName:   "Asha Menon",
		PatientEmail:  "asha@example.com",
		DoctorName:    "Dr. Rao",
		Department:    "Cardiology",
		Date:          "2025-11-28",
		Time:          "09:40",
	})
	require.NoError(t, err)
	return messaging.Message{ID: "1", Type: model.EventAppointmentBooked, Payload: payload}
}

func TestHandleBooked(t *testing.T) {
	mail := &fakeEmail{}
	svc := NewService(mail, nil, "hospital.appointments")

	require.NoError(t, svc.Handle(context.Background(), bookedMessage(t)))
	require.Len(t, mail.sent, 1)
	assert.Equal(t, "asha@example.com", mail.sent[0].to)
	assert.Equal(t, "Appointment confirmed", mail.sent[0].subject)
	assert.Contains(t, mail.sent[0].body, "Dr. Rao (Cardiology)")
	assert.Contains(t, mail.sent[0].body, "2025-11-28 at 09:40")
}

func TestHandleIgnoresUnknownAndRejectsGarbage(t *testing.T) {
	mail := &fakeEmail{}
	svc := NewService(mail, nil, "hospital.appointments")

	require.NoError(t, svc.Handle(context.Background(), messaging.Message{Type: "patient.updated"}))
	assert.Error(t, svc.Handle(context.Background(), messaging.Message{Type: model.EventAppointmentCancelled, Payload: json.RawMessage(`[`)}))
	assert.Empty(t, mail.sent)
}

func TestRunConsumesBroker(t *testing.T) {
	mail := &fakeEmail{}
	broker := messaging.NewLocal(4)
	svc := NewService(mail, broker, "hospital.appointments")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	// the subscription is registered asynchronously
	msg := bookedMessage(t)
	require.Eventually(t, func() bool {
		_ = broker.Publish(ctx, "hospital.appointments", msg)
		return mail.count() > 0
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}
