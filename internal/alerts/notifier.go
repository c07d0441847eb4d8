package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/netrasat/groundcore/internal/logger"
	"github.com/netrasat/groundcore/pkg/bus"
	"github.com/netrasat/groundcore/pkg/config"
	"github.com/netrasat/groundcore/pkg/store"
)

// Mailer delivers one rendered alert mail.
type Mailer interface {
	Send(ctx context.Context, subject, body string) error
}

// SMTPMailer sends through a STARTTLS-capable relay.
type SMTPMailer struct {
	cfg config.SMTPConfig
}

// NewSMTPMailer returns a mailer for the configured relay.
func NewSMTPMailer(cfg config.SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

// Send delivers one message. smtp.SendMail negotiates STARTTLS when the
// server offers it.
func (m *SMTPMailer) Send(_ context.Context, subject, body string) error {
	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", m.cfg.From)
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(m.cfg.To, ", "))
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	msg.WriteString(body)

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}
	return smtp.SendMail(addr, auth, m.cfg.From, m.cfg.To, []byte(msg.String()))
}

// MockMailer logs instead of sending. Used in development and tests.
type MockMailer struct{}

func (MockMailer) Send(_ context.Context, subject, _ string) error {
	logger.Info("mock alert mail", slog.String(logger.KeyStatus, subject))
	return nil
}

// NewMailer picks the mailer for the given configuration.
func NewMailer(cfg config.SMTPConfig) Mailer {
	if cfg.Mock || cfg.Host == "" {
		return MockMailer{}
	}
	return NewSMTPMailer(cfg)
}

// Notifier consumes forwarded detections, mails them, and marks the stored
// alert notified.
type Notifier struct {
	bus       *bus.Bus
	store     *store.Store
	mailer    Mailer
	retryWait time.Duration
}

// NewNotifier returns a notifier using the given mailer.
func NewNotifier(b *bus.Bus, st *store.Store, m Mailer) *Notifier {
	return &Notifier{bus: b, store: st, mailer: m, retryWait: 2 * time.Second}
}

// Run consumes the notify queue until the context ends.
func (n *Notifier) Run(ctx context.Context) error {
	ch, err := n.bus.Channel()
	if err != nil {
		return err
	}
	if err := bus.DeclareTopology(ch); err != nil {
		ch.Close()
		return err
	}
	ch.Close()

	logger.Info("alert notifier started")

	return n.bus.Consume(ctx, bus.QueueAlertNotify, n.handle)
}

func (n *Notifier) handle(ctx context.Context, d amqp.Delivery) error {
	var det Detection
	if err := json.Unmarshal(d.Body, &det); err != nil {
		logger.Warn("unparseable notify message", logger.Err(err))
		return nil
	}
	return n.notify(ctx, det)
}

// notify mails one detection with a single retry, then advances the alert
// status. A mail failure is logged, not returned: the message is spent.
func (n *Notifier) notify(ctx context.Context, det Detection) error {
	subject, body := renderMail(det)

	var sent bool
	for attempt := 1; attempt <= 2; attempt++ {
		if err := n.mailer.Send(ctx, subject, body); err != nil {
			logger.Warn("alert mail failed",
				logger.Metric(det.Metric), logger.Attempt(attempt), logger.Err(err))
			if attempt == 1 {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(n.retryWait):
				}
			}
			continue
		}
		sent = true
		break
	}

	if !sent || det.DBID == 0 {
		return nil
	}
	if err := n.store.UpdateAlertStatus(ctx, det.DBID, store.StatusNotified); err != nil {
		logger.Error("update alert status failed", logger.AlertID(det.DBID), logger.Err(err))
	}
	return nil
}

// renderMail builds the subject and plain-text body for one detection.
func renderMail(det Detection) (subject, body string) {
	subject = fmt.Sprintf("[GROUNDCORE ALERT] %s - %s", det.Severity, det.Metric)

	var b strings.Builder
	b.WriteString("Telemetry alert detected\n\n")
	b.WriteString("-----------------------------------------\n")
	fmt.Fprintf(&b, "Severity       : %s (%.2f%%)\n", det.Severity, det.SeverityPercent)
	fmt.Fprintf(&b, "Metric         : %s\n", det.Metric)
	fmt.Fprintf(&b, "Value          : %v\n", det.Value)
	fmt.Fprintf(&b, "Submodule      : %s (ID: %s)\n", det.SubmoduleName, det.SubmoduleID)
	fmt.Fprintf(&b, "Min Limit      : %s\n", limitString(det.Min))
	fmt.Fprintf(&b, "Max Limit      : %s\n", limitString(det.Max))
	fmt.Fprintf(&b, "Reason         : %s\n", det.Reason)
	fmt.Fprintf(&b, "Timestamp      : %s\n", det.Timestamp)
	fmt.Fprintf(&b, "Packet (raw)   : %s\n", det.RawPacketName)
	fmt.Fprintf(&b, "Packet (match) : %s\n", det.MatchedPacketName)
	b.WriteString("-----------------------------------------\n")
	fmt.Fprintf(&b, "Status         : %s\n", det.Status)

	return subject, b.String()
}

func limitString(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%v", *v)
}
