// Package notifier emails article digests to subscribers.
package notifier

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/mail"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"oski/internal/logger"
	"oski/internal/models"
)

// ErrInvalidSubscriber indicates a malformed line in the subscribers file.
var ErrInvalidSubscriber = errors.New("invalid subscriber address")

// Sender delivers one encoded message to one recipient.
type Sender interface {
	Send(ctx context.Context, from, to string, msg []byte) error
	Close() error
}

// RecipientError is a failed delivery to one subscriber.
type RecipientError struct {
	Err       error
	Recipient string
}

func (e RecipientError) Error() string {
	return fmt.Sprintf("%s: %v", e.Recipient, e.Err)
}

// NotifyError lists every subscriber that could not be reached.
type NotifyError struct {
	Failures []RecipientError
	Total    int
}

func (e *NotifyError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, f.Error())
	}

	return fmt.Sprintf("notify failed for %d of %d subscribers: %s", len(e.Failures), e.Total, strings.Join(parts, "; "))
}

func (e *NotifyError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f.Err)
	}

	return errs
}

// Notifier sends announcements over a single Sender session.
type Notifier struct {
	sender Sender
	logger *logger.Logger
	from   string
}

// New creates a notifier sending as from.
func New(sender Sender, from string, log *logger.Logger) *Notifier {
	if log == nil {
		log = logger.Discard()
	}

	return &Notifier{
		sender: sender,
		logger: log,
		from:   from,
	}
}

// Notify sends the HTML body to every subscriber, one message each. A
// failed recipient does not stop the others; all failures are returned
// together as a *NotifyError.
func (n *Notifier) Notify(ctx context.Context, subscribers []string, subject, body string) error {
	return n.send(ctx, subscribers, subject, htmlToText(body), body)
}

// NotifyArticles renders the digest for articles and sends it.
func (n *Notifier) NotifyArticles(ctx context.Context, subscribers []string, subject string, articles []models.Article) error {
	html, err := RenderDigest(articles)
	if err != nil {
		return err
	}

	return n.send(ctx, subscribers, subject, RenderPlainDigest(articles), html)
}

// Close ends the underlying session.
func (n *Notifier) Close() error {
	return n.sender.Close()
}

func (n *Notifier) send(ctx context.Context, subscribers []string, subject, plain, html string) error {
	var failures []RecipientError

	for _, to := range subscribers {
		if err := ctx.Err(); err != nil {
			failures = append(failures, RecipientError{Recipient: to, Err: err})

			continue
		}

		msg, err := Message{From: n.from, To: to, Subject: subject, Plain: plain, HTML: html}.Bytes()
		if err == nil {
			err = n.sender.Send(ctx, n.from, to, msg)
		}

		if err != nil {
			n.logger.Warn("Failed to notify subscriber", "recipient", to, "error", err)
			failures = append(failures, RecipientError{Recipient: to, Err: err})

			continue
		}

		n.logger.Debug("Notified subscriber", "recipient", to)
	}

	if len(failures) > 0 {
		return &NotifyError{Failures: failures, Total: len(subscribers)}
	}

	return nil
}

// LoadSubscribers reads one address per line. Blank lines and lines
// starting with '#' are skipped.
func LoadSubscribers(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open subscribers file: %w", err)
	}
	defer file.Close()

	var subscribers []string

	scanner := bufio.NewScanner(file)
	for lineNo := 1; scanner.Scan(); lineNo++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		addr, err := mail.ParseAddress(line)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %q: %w", ErrInvalidSubscriber, lineNo, line, err)
		}

		subscribers = append(subscribers, addr.Address)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read subscribers file: %w", err)
	}

	return subscribers, nil
}

func htmlToText(body string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return body
	}

	return strings.TrimSpace(doc.Text())
}
