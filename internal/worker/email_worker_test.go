package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"weconnect-crm/internal/infra"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	sent []infra.Message
	err  error
}

func (f *fakeSender) Send(msg infra.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

var _ Sender = (*fakeSender)(nil)
var _ Sender = (*infra.Mailer)(nil)

func sentJob(t *testing.T, p DocumentSentPayload) Job {
	t.Helper()
	data, err := json.Marshal(p)
	require.NoError(t, err)
	return Job{Type: JobDocumentSent, Payload: data, Attempts: 1}
}

func TestEmailWorker_SendsNotification(t *testing.T) {
	s := &fakeSender{}
	w := NewEmailWorker(s, infra.NewCircuitBreaker(infra.BreakerConfig{Name: "smtp"}))

	err := w.Process(context.Background(), sentJob(t, DocumentSentPayload{
		DocumentType: "INVOICE", Number: "INV-000007", ToEmail: "buyer@acme.test",
		PartyName: "Acme Corp", FormattedTotal: "$265.00", DueDate: "2026-11-01",
	}))
	require.NoError(t, err)
	require.Len(t, s.sent, 1)
	assert.Equal(t, "buyer@acme.test", s.sent[0].To)
	assert.Equal(t, "Your invoice INV-000007", s.sent[0].Subject)
	assert.Contains(t, s.sent[0].Text, "Total: $265.00")
	assert.Contains(t, s.sent[0].Text, "Due date: 2026-11-01")
}

func TestEmailWorker_EmptyRecipientIsSkipped(t *testing.T) {
	s := &fakeSender{}
	w := NewEmailWorker(s, nil)
	require.NoError(t, w.Process(context.Background(), sentJob(t, DocumentSentPayload{Number: "QUO-000001"})))
	assert.Empty(t, s.sent)
}

func TestEmailWorker_InvalidPayloadIsPermanent(t *testing.T) {
	w := NewEmailWorker(&fakeSender{}, nil)
	err := w.Process(context.Background(), Job{Type: JobDocumentSent, Payload: json.RawMessage(`"nope"`)})
	require.Error(t, err)
	assert.Equal(t, stepDeadLetter, nextStep(1, DefaultMaxAttempts, err))
}

func TestEmailWorker_BreakerOpensAfterFailures(t *testing.T) {
	s := &fakeSender{err: errors.New("connection refused")}
	cb := infra.NewCircuitBreaker(infra.BreakerConfig{Name: "smtp", FailureThreshold: 2, OpenTimeout: time.Hour})
	w := NewEmailWorker(s, cb)
	job := sentJob(t, DocumentSentPayload{Number: "INV-000001", ToEmail: "a@b.test"})

	assert.Error(t, w.Process(context.Background(), job))
	assert.Error(t, w.Process(context.Background(), job))
	assert.Equal(t, infra.BreakerOpen, cb.State())

	err := w.Process(context.Background(), job)
	assert.ErrorIs(t, err, infra.ErrCircuitOpen)
	assert.Equal(t, stepRetry, nextStep(2, DefaultMaxAttempts, err))
}

func TestNextStep(t *testing.T) {
	transient := errors.New("timeout")
	cases := []struct {
		name     string
		attempts int
		err      error
		want     step
	}{
		{"success", 1, nil, stepDone},
		{"transient retries", 1, transient, stepRetry},
		{"last attempt dead letters", DefaultMaxAttempts, transient, stepDeadLetter},
		{"permanent dead letters", 1, Permanent(transient), stepDeadLetter},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, nextStep(tc.attempts, DefaultMaxAttempts, tc.err))
		})
	}
}

func TestBackoffIsCapped(t *testing.T) {
	assert.Equal(t, time.Second, backoff(1))
	assert.Equal(t, 4*time.Second, backoff(3))
	assert.Equal(t, 30*time.Second, backoff(20))
}

func TestDispatcherWithoutRedis(t *testing.T) {
	var d *Dispatcher
	assert.ErrorIs(t, d.EnqueueDocumentSent(context.Background(), DocumentSentPayload{}), ErrQueueUnavailable)
	assert.ErrorIs(t, NewDispatcher(nil).EnqueueDocumentSent(context.Background(), DocumentSentPayload{}), ErrQueueUnavailable)
}
