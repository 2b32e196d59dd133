package mailer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/textproto"
	"strings"
	"sync"
	"syscall"

	mail "gopkg.in/mail.v2"
)

// servicePresets mirrors the named well-known-provider shortcuts: setting
// Service overrides host, port and implicit TLS.
var servicePresets = map[string]struct {
	host   string
	port   int
	secure bool
}{
	"gmail":   {"smtp.gmail.com", 587, false},
	"outlook": {"smtp.office365.com", 587, false},
	"yahoo":   {"smtp.mail.yahoo.com", 465, true},
	"zoho":    {"smtp.zoho.com", 465, true},
}

// smtpSender delivers mail over a direct SMTP session. When pooling is
// enabled it owns a single lazily-dialed connection that is reused across
// sends and recycled after maxMessages messages, the way a small
// transport pool behaves; with pooling off every send dials fresh.
type smtpSender struct {
	dialer      *mail.Dialer
	dial        func() (mail.SendCloser, error)
	pool        bool
	maxMessages int

	mu      sync.Mutex
	session mail.SendCloser
	sent    int // messages on the current session
}

func newSMTPSender(cfg Config) *smtpSender {
	host, port, secure := cfg.Host, cfg.Port, cfg.Secure
	if preset, ok := servicePresets[strings.ToLower(cfg.Service)]; ok {
		host, port, secure = preset.host, preset.port, preset.secure
	}

	d := mail.NewDialer(host, port, cfg.User, cfg.Password)
	d.SSL = secure
	d.Timeout = cfg.ConnectionTimeout

	return &smtpSender{
		dialer:      d,
		dial:        d.Dial,
		pool:        cfg.Pool,
		maxMessages: cfg.MaxMessages,
	}
}

// unwrapSendError digs the transport error out of mail.SendError, which
// wraps every failure from mail.Send but carries no Unwrap method, so
// errors.As alone never reaches the cause.
func unwrapSendError(err error) error {
	var sendErr *mail.SendError
	if errors.As(err, &sendErr) && sendErr.Cause != nil {
		return sendErr.Cause
	}

	return err
}

func (s *smtpSender) Send(ctx context.Context, m Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := mail.NewMessage()
	msg.SetHeader("From", m.From)
	msg.SetHeader("To", m.To)
	msg.SetHeader("Subject", m.Subject)
	msg.SetBody("text/html", m.HTML)

	if !s.pool {
		return s.dialer.DialAndSend(msg)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sc, err := s.conn()
	if err != nil {
		return err
	}

	if err := mail.Send(sc, msg); err != nil {
		// A protocol rejection leaves the connection usable. Anything
		// else means the session is gone, so drop it and let the next
		// attempt redial.
		var tpErr *textproto.Error
		if !errors.As(unwrapSendError(err), &tpErr) {
			s.recycle()
		}
		return err
	}

	s.sent++
	if s.maxMessages > 0 && s.sent >= s.maxMessages {
		s.recycle()
	}

	return nil
}

// conn returns the shared session, dialing it on first use.
// Callers must hold s.mu.
func (s *smtpSender) conn() (mail.SendCloser, error) {
	if s.session != nil {
		return s.session, nil
	}

	sc, err := s.dial()
	if err != nil {
		return nil, err
	}

	s.session = sc
	s.sent = 0

	return sc, nil
}

// recycle closes the current session so the next send redials.
// Callers must hold s.mu.
func (s *smtpSender) recycle() {
	if s.session == nil {
		return
	}
	_ = s.session.Close()
	s.session = nil
	s.sent = 0
}

// Verify fails when credentials are missing, otherwise dials the server
// so the SMTP handshake runs. With pooling on the dialed session is kept
// for the first send; without pooling sends dial for themselves, so the
// handshake connection is closed right away.
func (s *smtpSender) Verify(ctx context.Context) error {
	if s.dialer.Username == "" || s.dialer.Password == "" {
		return errors.New("email credentials not configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.pool {
		sc, err := s.dial()
		if err != nil {
			return fmt.Errorf("smtp verify: %w", err)
		}
		return sc.Close()
	}

	if _, err := s.conn(); err != nil {
		return fmt.Errorf("smtp verify: %w", err)
	}

	return nil
}

func (s *smtpSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil {
		return nil
	}

	err := s.session.Close()
	s.session = nil

	return err
}

// Retryable classifies SMTP delivery errors. Connection-level hiccups
// (timeouts, resets, refused connections, temporary DNS failures) and the
// temporary-unavailability response codes 421/450/451/452 are transient;
// every other protocol response is permanent.
func (s *smtpSender) Retryable(err error) bool {
	err = unwrapSendError(err)

	var tpErr *textproto.Error
	if errors.As(err, &tpErr) {
		switch tpErr.Code {
		case 421, 450, 451, 452:
			return true
		}
		return false
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsTemporary || dnsErr.IsTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	return errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED)
}
