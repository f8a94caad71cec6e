package notifier

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"sync"
	"time"
)

// ErrSessionClosed is returned by Send after Close.
var ErrSessionClosed = errors.New("smtp session closed")

const dialTimeout = 30 * time.Second

// SMTPSender keeps one authenticated SMTP session open for all messages.
// The session is dialed on the first Send.
type SMTPSender struct {
	client   *smtp.Client
	host     string
	addr     string
	user     string
	password string
	mu       sync.Mutex
	closed   bool
}

var _ Sender = (*SMTPSender)(nil)

// NewSMTPSender creates a sender for a host:port address using PLAIN auth.
func NewSMTPSender(addr, user, password string) *SMTPSender {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}

	return &SMTPSender{
		host:     host,
		addr:     addr,
		user:     user,
		password: password,
	}
}

// Send delivers msg to a single recipient over the shared session.
func (s *SMTPSender) Send(ctx context.Context, from, to string, msg []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}

	if s.client == nil {
		client, err := s.dial(ctx)
		if err != nil {
			return err
		}

		s.client = client
	}

	if err := s.deliver(from, to, msg); err != nil {
		// Clear the failed transaction so the next recipient starts clean.
		if resetErr := s.client.Reset(); resetErr != nil {
			_ = s.client.Close()
			s.client = nil
		}

		return err
	}

	return nil
}

func (s *SMTPSender) deliver(from, to string, msg []byte) error {
	if err := s.client.Mail(from); err != nil {
		return fmt.Errorf("MAIL FROM: %w", err)
	}

	if err := s.client.Rcpt(to); err != nil {
		return fmt.Errorf("RCPT TO: %w", err)
	}

	w, err := s.client.Data()
	if err != nil {
		return fmt.Errorf("DATA: %w", err)
	}

	if _, err := w.Write(msg); err != nil {
		_ = w.Close()

		return fmt.Errorf("failed to write message: %w", err)
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("message rejected: %w", err)
	}

	return nil
}

func (s *SMTPSender) dial(ctx context.Context) (*smtp.Client, error) {
	dialer := &net.Dialer{Timeout: dialTimeout}

	conn, err := dialer.DialContext(ctx, "tcp", s.addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", s.addr, err)
	}

	client, err := smtp.NewClient(conn, s.host)
	if err != nil {
		_ = conn.Close()

		return nil, fmt.Errorf("failed to start smtp session: %w", err)
	}

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: s.host, MinVersion: tls.VersionTLS12}); err != nil {
			_ = client.Close()

			return nil, fmt.Errorf("STARTTLS: %w", err)
		}
	}

	if ok, _ := client.Extension("AUTH"); ok && s.password != "" {
		if err := client.Auth(smtp.PlainAuth("", s.user, s.password, s.host)); err != nil {
			_ = client.Close()

			return nil, fmt.Errorf("AUTH: %w", err)
		}
	}

	return client, nil
}

// Close quits the session. It is safe to call more than once.
func (s *SMTPSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true

	if s.client == nil {
		return nil
	}

	err := s.client.Quit()
	s.client = nil

	return err
}
