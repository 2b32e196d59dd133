// Package mailer owns outbound birthday greetings: transport selection
// (direct SMTP or the SendGrid HTTP API), a process-wide pooled SMTP
// session, and a bounded retry policy for transient delivery failures.
package mailer

import (
	"bytes"
	"context"
	"errors"
	"html/template"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"github.com/wb-go/wbf/zlog"

	"github.com/kmazurek/birthday-greeter/internal/model"
)

const (
	ProviderSMTP     = "smtp"
	ProviderSendGrid = "sendgrid"

	greetingSubject = "Happy Birthday!"
	maxRetryDelay   = 8 * time.Second
)

// Config is the resolved mailer configuration, fixed at process start.
type Config struct {
	Provider string

	// SMTP transport.
	Service  string
	Host     string
	Port     int
	Secure   bool
	User     string
	Password string
	From     string

	// SendGrid transport.
	SendGridAPIKey string
	SendGridFrom   string

	ConnectionTimeout time.Duration
	// GreetingTimeout and SocketTimeout are accepted from the
	// environment but not enforced: the SMTP dialer exposes a single
	// timeout, which ConnectionTimeout feeds.
	GreetingTimeout time.Duration
	SocketTimeout   time.Duration
	Pool            bool
	// MaxConnections is accepted but unused; the pooled transport holds
	// at most one session.
	MaxConnections int
	MaxMessages    int

	RetryCount     int
	RetryBaseDelay time.Duration
}

// Message is a rendered outbound email.
type Message struct {
	From    string
	To      string
	Subject string
	HTML    string
}

// Sender is one delivery transport: it sends a rendered message and
// classifies its own failures as transient or permanent.
type Sender interface {
	Send(ctx context.Context, m Message) error
	Retryable(err error) bool
	Verify(ctx context.Context) error
	Close() error
}

// DeliveryAttempt is the transient record of one delivery: the target,
// the rendered message, how many attempts were consumed and the terminal
// outcome. It exists only for the duration of a Deliver call.
type DeliveryAttempt struct {
	Record    model.Birthday
	Message   Message
	Attempts  int
	Delivered bool
}

// Mailer renders the fixed greeting and delivers it through the transport
// selected once at construction.
type Mailer struct {
	cfg    Config
	sender Sender
	policy Policy
	ready  bool
}

// New builds a Mailer for the configured provider. The transport and its
// retry policy are fixed here; nothing is reconfigurable afterward without
// a process restart.
func New(cfg Config) *Mailer {
	var sender Sender
	switch strings.ToLower(cfg.Provider) {
	case ProviderSendGrid:
		sender = newSendGridSender(cfg)
	default:
		sender = newSMTPSender(cfg)
	}

	return &Mailer{
		cfg:    cfg,
		sender: sender,
		policy: Policy{
			Attempts:  cfg.RetryCount,
			BaseDelay: cfg.RetryBaseDelay,
			MaxDelay:  maxRetryDelay,
			Retryable: sender.Retryable,
		},
	}
}

// Verify runs the non-fatal startup health check. Failure only means the
// mailer is not confirmed ready; sends are still attempted later.
func (m *Mailer) Verify(ctx context.Context) error {
	if err := m.sender.Verify(ctx); err != nil {
		m.ready = false
		return err
	}

	m.ready = true
	zlog.Logger.Info().Str("provider", m.provider()).Msg("mail transport verified and ready")

	return nil
}

// Ready reports whether startup verification succeeded.
func (m *Mailer) Ready() bool {
	return m.ready
}

// Enabled reports whether the selected provider has the credentials it
// needs to attempt delivery at all. The daily check skips sending when
// this is false.
func (m *Mailer) Enabled() bool {
	if m.provider() == ProviderSendGrid {
		return m.cfg.SendGridAPIKey != ""
	}

	return m.cfg.User != "" && m.cfg.Password != ""
}

// Close releases the pooled transport session at process shutdown.
func (m *Mailer) Close() error {
	return m.sender.Close()
}

// Deliver renders the greeting for the record and sends it under the retry
// policy. It never returns an error: failures are logged with a formatted
// diagnostic and reported as false, so one bad delivery cannot abort a
// batch of sends.
func (m *Mailer) Deliver(ctx context.Context, b model.Birthday) bool {
	attempt := DeliveryAttempt{
		Record: b,
		Message: Message{
			From:    m.fromAddress(),
			To:      b.Email,
			Subject: greetingSubject,
			HTML:    renderGreeting(b.Username),
		},
	}

	attempts, err := m.policy.Do(ctx, func() error {
		return m.sender.Send(ctx, attempt.Message)
	})
	attempt.Attempts = attempts

	if err != nil {
		zlog.Logger.Error().
			Str("to", b.Email).
			Str("provider", m.provider()).
			Int("attempts", attempts).
			Str("diagnostic", formatSendError(err)).
			Msg("failed to send birthday email")
		return false
	}

	attempt.Delivered = true
	zlog.Logger.Info().
		Str("to", b.Email).
		Str("provider", m.provider()).
		Int("attempts", attempts).
		Msg("birthday email sent")

	return true
}

func (m *Mailer) provider() string {
	if strings.ToLower(m.cfg.Provider) == ProviderSendGrid {
		return ProviderSendGrid
	}

	return ProviderSMTP
}

// fromAddress resolves the origin address: the configured from address,
// falling back to the SMTP user.
func (m *Mailer) fromAddress() string {
	if m.provider() == ProviderSendGrid {
		for _, addr := range []string{m.cfg.SendGridFrom, m.cfg.From, m.cfg.User} {
			if addr != "" {
				return addr
			}
		}
		return ""
	}

	if m.cfg.From != "" {
		return m.cfg.From
	}

	return m.cfg.User
}

var greetingTmpl = template.Must(template.New("greeting").Parse(`
        <div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
          <h2 style="color: #4361ee; text-align: center;">Happy Birthday {{.Username}}!</h2>
          <p style="font-size: 16px; line-height: 1.6;">
            Wishing you a fantastic birthday filled with joy and happiness!
          </p>
          <p style="font-size: 16px; line-height: 1.6;">
            May your special day be as wonderful as you are!
          </p>
          <div style="text-align: center; margin: 30px 0;">
            <div style="font-size: 48px; color: #4361ee;">🎂 🎉 🎁</div>
          </div>
          <p style="font-size: 14px; color: #6c757d; text-align: center;">
            This is an automated birthday greeting from our system.
          </p>
        </div>
      `))

func renderGreeting(username string) string {
	var buf bytes.Buffer
	if err := greetingTmpl.Execute(&buf, struct{ Username string }{Username: username}); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to render greeting template")
		return ""
	}

	return buf.String()
}

// formatSendError assembles an operator-facing diagnostic from whatever
// fields are present on the failure. It is never used for control flow.
func formatSendError(err error) string {
	if err == nil {
		return "unknown email error"
	}

	parts := []string{err.Error()}

	err = unwrapSendError(err)

	var tpErr *textproto.Error
	if errors.As(err, &tpErr) {
		parts = append(parts,
			"responseCode="+strconv.Itoa(tpErr.Code),
			"response="+truncate(tpErr.Msg, 200),
		)
	}

	var apiErr *apiError
	if errors.As(err, &apiErr) {
		parts = append(parts,
			"status="+strconv.Itoa(apiErr.Status),
			"body="+truncate(apiErr.Body, 200),
		)
	}

	return strings.Join(parts, " | ")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}

	return s[:n]
}
