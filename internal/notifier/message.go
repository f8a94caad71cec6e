package notifier

import (
	"bytes"
	"fmt"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/textproto"
	"time"
)

// Message is one email ready to be encoded.
type Message struct {
	From    string
	To      string
	Subject string
	Plain   string
	HTML    string
	Date    time.Time
}

// Bytes encodes m as a multipart/alternative MIME message with
// quoted-printable text and HTML parts.
func (m Message) Bytes() ([]byte, error) {
	var body bytes.Buffer

	mw := multipart.NewWriter(&body)

	if err := writePart(mw, "text/plain; charset=UTF-8", m.Plain); err != nil {
		return nil, err
	}

	if err := writePart(mw, "text/html; charset=UTF-8", m.HTML); err != nil {
		return nil, err
	}

	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart body: %w", err)
	}

	date := m.Date
	if date.IsZero() {
		date = time.Now()
	}

	var msg bytes.Buffer

	fmt.Fprintf(&msg, "From: %s\r\n", m.From)
	fmt.Fprintf(&msg, "To: %s\r\n", m.To)
	fmt.Fprintf(&msg, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", m.Subject))
	fmt.Fprintf(&msg, "Date: %s\r\n", date.Format(time.RFC1123Z))
	msg.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&msg, "Content-Type: multipart/alternative; boundary=%q\r\n", mw.Boundary())
	msg.WriteString("\r\n")
	msg.Write(body.Bytes())

	return msg.Bytes(), nil
}

func writePart(mw *multipart.Writer, contentType, content string) error {
	header := textproto.MIMEHeader{}
	header.Set("Content-Type", contentType)
	header.Set("Content-Transfer-Encoding", "quoted-printable")

	part, err := mw.CreatePart(header)
	if err != nil {
		return fmt.Errorf("failed to create %s part: %w", contentType, err)
	}

	qp := quotedprintable.NewWriter(part)
	if _, err := qp.Write([]byte(content)); err != nil {
		return fmt.Errorf("failed to write %s part: %w", contentType, err)
	}

	return qp.Close()
}
