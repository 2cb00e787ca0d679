package message

import (
	"encoding/base64"
	"regexp"
	"strings"
	"testing"
	"time"
)

func decode(t *testing.T, raw string) string {
	t.Helper()
	out, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		t.Fatalf("output is not unpadded base64url: %v", err)
	}
	return string(out)
}

func headersAndBody(t *testing.T, envelope string) ([]string, string) {
	t.Helper()
	parts := strings.SplitN(envelope, "\r\n\r\n", 2)
	if len(parts) != 2 {
		t.Fatalf("envelope has no blank line separating headers from body")
	}
	return strings.Split(parts[0], "\r\n"), parts[1]
}

func TestEncodePlainText(t *testing.T) {
	raw := Encode(Outbound{
		From:     "me@example.com",
		To:       []string{"alice@example.com", "bob@example.com"},
		Subject:  "Weekly update",
		TextBody: "All systems nominal.",
	})

	envelope := decode(t, raw)
	headers, body := headersAndBody(t, envelope)

	wantPrefixes := []string{
		"From: me@example.com",
		"To: alice@example.com, bob@example.com",
		"Subject: Weekly update",
		"MIME-Version: 1.0",
		"Date: ",
		"Message-ID: <",
		"Content-Type: text/plain; charset=utf-8",
	}
	if len(headers) != len(wantPrefixes) {
		t.Fatalf("got %d header lines, want %d:\n%s", len(headers), len(wantPrefixes), strings.Join(headers, "\n"))
	}
	for i, want := range wantPrefixes {
		if !strings.HasPrefix(headers[i], want) {
			t.Errorf("header %d = %q, want prefix %q", i, headers[i], want)
		}
	}
	if body != "All systems nominal." {
		t.Errorf("body = %q", body)
	}
}

func TestEncodeOptionalHeaders(t *testing.T) {
	raw := Encode(Outbound{
		To:         []string{"alice@example.com"},
		Cc:         []string{"cc@example.com"},
		Bcc:        []string{"bcc@example.com"},
		ReplyTo:    "replies@example.com",
		InReplyTo:  "<orig@mail.example>",
		References: "<root@mail.example> <orig@mail.example>",
		Subject:    "Re: thread",
		TextBody:   "ack",
	})

	headers, _ := headersAndBody(t, decode(t, raw))

	// Fixed order when present: To, Cc, Bcc, Subject, Reply-To,
	// In-Reply-To, References, then the generated trio.
	order := []string{"To:", "Cc:", "Bcc:", "Subject:", "Reply-To:", "In-Reply-To:", "References:", "MIME-Version:", "Date:", "Message-ID:", "Content-Type:"}
	if len(headers) != len(order) {
		t.Fatalf("got %d header lines, want %d", len(headers), len(order))
	}
	for i, prefix := range order {
		if !strings.HasPrefix(headers[i], prefix) {
			t.Errorf("header %d = %q, want prefix %q", i, headers[i], prefix)
		}
	}
}

func TestEncodeNonASCIISubject(t *testing.T) {
	raw := Encode(Outbound{
		To:       []string{"alice@example.com"},
		Subject:  "Grüße aus Köln",
		TextBody: "hi",
	})

	headers, _ := headersAndBody(t, decode(t, raw))
	var subject string
	for _, h := range headers {
		if strings.HasPrefix(h, "Subject: ") {
			subject = strings.TrimPrefix(h, "Subject: ")
		}
	}
	if !strings.HasPrefix(subject, "=?UTF-8?b?") && !strings.HasPrefix(subject, "=?UTF-8?B?") {
		t.Errorf("non-ASCII subject should be a B-encoded word, got %q", subject)
	}
}

func TestEncodeMultipartAlternative(t *testing.T) {
	raw := Encode(Outbound{
		To:       []string{"alice@example.com"},
		Subject:  "Styled",
		TextBody: "plain version",
		HTMLBody: "<p>html version</p>",
	})

	headers, body := headersAndBody(t, decode(t, raw))

	ctRe := regexp.MustCompile(`^Content-Type: multipart/alternative; boundary="([^"]+)"$`)
	var boundary string
	for _, h := range headers {
		if m := ctRe.FindStringSubmatch(h); m != nil {
			boundary = m[1]
		}
	}
	if boundary == "" {
		t.Fatalf("no multipart/alternative content type in headers:\n%s", strings.Join(headers, "\n"))
	}

	if got := strings.Count(body, "--"+boundary+"\r\n"); got != 2 {
		t.Errorf("want exactly 2 opening boundary markers, got %d", got)
	}
	if !strings.HasSuffix(strings.TrimRight(body, "\r\n"), "--"+boundary+"--") {
		t.Errorf("body should end with closing boundary, got %q", body[len(body)-60:])
	}

	plainIdx := strings.Index(body, "Content-Type: text/plain; charset=utf-8")
	htmlIdx := strings.Index(body, "Content-Type: text/html; charset=utf-8")
	if plainIdx < 0 || htmlIdx < 0 {
		t.Fatal("both parts must declare their content type")
	}
	if plainIdx > htmlIdx {
		t.Error("plain part must come before the html part")
	}
	if !strings.Contains(body, "plain version") || !strings.Contains(body, "<p>html version</p>") {
		t.Error("part bodies missing")
	}
}

func TestMessageIDUniquePerCall(t *testing.T) {
	now := time.Now()
	if messageID(now) == messageID(now) {
		t.Error("message identifiers must differ even at the same timestamp")
	}
}

func TestEncodeDeterministicDate(t *testing.T) {
	at := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	envelope := decode(t, encodeAt(Outbound{To: []string{"a@b.co"}, Subject: "s", TextBody: "b"}, at))
	if !strings.Contains(envelope, "Date: "+at.Format(time.RFC1123Z)) {
		t.Error("date header should reflect the provided clock")
	}
}
