package message

import (
	"encoding/base64"
	"fmt"
	"mime"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Outbound is a logical message as handed over by the caller. It is
// immutable once passed to Encode.
type Outbound struct {
	From       string
	To         []string
	Cc         []string
	Bcc        []string
	ReplyTo    string
	InReplyTo  string
	References string
	Subject    string
	TextBody   string
	HTMLBody   string // optional multipart/alternative part
}

// Encode builds the complete RFC 2822 envelope for msg and returns it
// encoded with base64.RawURLEncoding, the exact alphabet the Gmail API
// requires for the Raw message field.
func Encode(msg Outbound) string {
	return encodeAt(msg, time.Now())
}

// encodeAt is the clock-injected body of Encode, split out for tests.
func encodeAt(msg Outbound, now time.Time) string {
	var b strings.Builder

	writeHeader(&b, "From", msg.From)
	writeHeader(&b, "To", strings.Join(msg.To, ", "))
	writeHeader(&b, "Cc", strings.Join(msg.Cc, ", "))
	writeHeader(&b, "Bcc", strings.Join(msg.Bcc, ", "))
	writeHeader(&b, "Subject", encodeSubject(msg.Subject))
	writeHeader(&b, "Reply-To", msg.ReplyTo)
	writeHeader(&b, "In-Reply-To", msg.InReplyTo)
	writeHeader(&b, "References", msg.References)
	writeHeader(&b, "MIME-Version", "1.0")
	writeHeader(&b, "Date", now.Format(time.RFC1123Z))
	writeHeader(&b, "Message-ID", messageID(now))

	if msg.HTMLBody == "" {
		writeHeader(&b, "Content-Type", "text/plain; charset=utf-8")
		b.WriteString("\r\n")
		b.WriteString(msg.TextBody)
	} else {
		boundary := strings.ReplaceAll(uuid.NewString(), "-", "")
		writeHeader(&b, "Content-Type", fmt.Sprintf("multipart/alternative; boundary=%q", boundary))
		b.WriteString("\r\n")
		writePart(&b, boundary, "text/plain; charset=utf-8", msg.TextBody)
		writePart(&b, boundary, "text/html; charset=utf-8", msg.HTMLBody)
		b.WriteString("--" + boundary + "--\r\n")
	}

	return base64.RawURLEncoding.EncodeToString([]byte(b.String()))
}

// writeHeader emits one CRLF-terminated header line, skipping headers
// with no value so optional fields disappear entirely.
func writeHeader(b *strings.Builder, name, value string) {
	if value == "" {
		return
	}
	b.WriteString(name)
	b.WriteString(": ")
	b.WriteString(value)
	b.WriteString("\r\n")
}

func writePart(b *strings.Builder, boundary, contentType, body string) {
	b.WriteString("--" + boundary + "\r\n")
	b.WriteString("Content-Type: " + contentType + "\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	b.WriteString("\r\n")
}

// encodeSubject wraps non-ASCII subjects as a single RFC 2047
// B-encoded word. ASCII subjects pass through verbatim.
func encodeSubject(s string) string {
	for _, r := range s {
		if r > 127 {
			return mime.BEncoding.Encode("UTF-8", s)
		}
	}
	return s
}

// messageID builds a per-call unique identifier from the current time
// and a random component.
func messageID(now time.Time) string {
	return fmt.Sprintf("<%d.%s@mailgate>", now.UnixNano(), uuid.NewString())
}
