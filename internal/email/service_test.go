package email

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

type recordingDialer struct {
	sent []*gomail.Message
	err  error
}

func (d *recordingDialer) DialAndSend(m ...*gomail.Message) error {
	if d.err != nil {
		return d.err
	}
	d.sent = append(d.sent, m...)
	return nil
}

func TestSend(t *testing.T) {
	d := &recordingDialer{}
	svc := NewService(d, "appointments@hospital.local")

	require.NoError(t, svc.Send(context.Background(), "asha@example.com", "Appointment confirmed", "See you at 09:40"))
	require.Len(t, d.sent, 1)
	assert.Equal(t, []string{"asha@example.com"}, d.sent[0].GetHeader("To"))
	assert.Equal(t, []string{"Appointment confirmed"}, d.sent[0].GetHeader("Subject"))

	var buf bytes.Buffer
	_, err := d.sent[0].WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "See you at 09:40")
}

func TestSendErrors(t *testing.T) {
	svc := NewService(&recordingDialer{err: errors.New("smtp down")}, "x@hospital.local")

	assert.Error(t, svc.Send(context.Background(), "", "s", "b"))
	assert.ErrorContains(t, svc.Send(context.Background(), "a@example.com", "s", "b"), "smtp down")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, svc.Send(ctx, "a@example.com", "s", "b"), context.Canceled)
}
