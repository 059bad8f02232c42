package worker

// email_worker.go
// Processes "document sent" jobs from QueueEmail and notifies the party
// by SMTP. Calls go through a circuit breaker so a downed relay is not
// hammered by every retry.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"weconnect-crm/internal/infra"

	"github.com/rs/zerolog/log"
)

// DocumentSentPayload is the job body enqueued when a document moves to SENT.
type DocumentSentPayload struct {
	DocumentID     string `json:"document_id"`
	DocumentType   string `json:"document_type"`
	Number         string `json:"number"`
	Subject        string `json:"subject"`
	ToEmail        string `json:"to_email"`
	PartyName      string `json:"party_name"`
	FormattedTotal string `json:"formatted_total"`
	DueDate        string `json:"due_date,omitempty"`
	ValidUntil     string `json:"valid_until,omitempty"`
}

// Sender delivers a single email. *infra.Mailer satisfies it.
type Sender interface {
	Send(msg infra.Message) error
}

type EmailWorker struct {
	sender  Sender
	breaker *infra.CircuitBreaker
}

func NewEmailWorker(sender Sender, breaker *infra.CircuitBreaker) *EmailWorker {
	return &EmailWorker{sender: sender, breaker: breaker}
}

func (w *EmailWorker) Process(ctx context.Context, job Job) error {
	var p DocumentSentPayload
	if err := json.Unmarshal(job.Payload, &p); err != nil {
		return Permanent(fmt.Errorf("email_worker: invalid payload: %w", err))
	}
	if p.ToEmail == "" {
		log.Warn().Str("number", p.Number).Msg("email_worker: empty to_email, skipping")
		return nil
	}

	msg := documentSentMessage(p)
	send := func(context.Context) error { return w.sender.Send(msg) }

	var err error
	if w.breaker != nil {
		err = w.breaker.Execute(ctx, send)
	} else {
		err = send(ctx)
	}
	if err != nil {
		if errors.Is(err, infra.ErrCircuitOpen) {
			log.Debug().Str("number", p.Number).Msg("email_worker: breaker open, deferring")
		}
		return err
	}
	log.Info().Str("to", p.ToEmail).Str("number", p.Number).Msg("email_worker: document notification sent")
	return nil
}

func documentSentMessage(p DocumentSentPayload) infra.Message {
	kind := strings.ToLower(p.DocumentType)
	subject := fmt.Sprintf("Your %s %s", kind, p.Number)
	if p.Subject != "" {
		subject += ": " + p.Subject
	}

	var b strings.Builder
	name := p.PartyName
	if name == "" {
		name = "customer"
	}
	fmt.Fprintf(&b, "Hello %s,\n\n", name)
	fmt.Fprintf(&b, "Please find the details of %s %s below.\n\n", kind, p.Number)
	fmt.Fprintf(&b, "Total: %s\n", p.FormattedTotal)
	if p.ValidUntil != "" {
		fmt.Fprintf(&b, "Valid until: %s\n", p.ValidUntil)
	}
	if p.DueDate != "" {
		fmt.Fprintf(&b, "Due date: %s\n", p.DueDate)
	}
	b.WriteString("\nThank you for your business.\n")

	return infra.Message{To: p.ToEmail, Subject: subject, Text: b.String()}
}
