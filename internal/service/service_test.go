package service

import (
	"context"
	"encoding/base64"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/aiemployee/mailgate/internal/config"
	"github.com/aiemployee/mailgate/internal/gmail"
	"github.com/aiemployee/mailgate/internal/mailerr"
)

// fakeAPI records transport calls and plays back configured results.
type fakeAPI struct {
	sendRaw      string
	sendThreadID string
	sendCalls    int
	sendResult   gmail.SendResult
	sendErr      error

	draftRaw    string
	draftCalls  int
	draftResult gmail.DraftResult

	searchQuery string
	searchMax   int64
	searchOut   []gmail.MessageSummary

	thread    gmail.Thread
	threadErr error
}

func (f *fakeAPI) Send(_ context.Context, raw, threadID string) (gmail.SendResult, error) {
	f.sendCalls++
	f.sendRaw = raw
	f.sendThreadID = threadID
	if f.sendErr != nil {
		return gmail.SendResult{}, f.sendErr
	}
	return f.sendResult, nil
}

func (f *fakeAPI) CreateDraft(_ context.Context, raw string) (gmail.DraftResult, error) {
	f.draftCalls++
	f.draftRaw = raw
	return f.draftResult, nil
}

func (f *fakeAPI) Search(_ context.Context, query string, max int64) ([]gmail.MessageSummary, error) {
	f.searchQuery = query
	f.searchMax = max
	return f.searchOut, nil
}

func (f *fakeAPI) GetThread(_ context.Context, id string) (gmail.Thread, error) {
	if f.threadErr != nil {
		return gmail.Thread{}, f.threadErr
	}
	return f.thread, nil
}

// fakeLimiter records which classes were acquired.
type fakeLimiter struct {
	acquired int
	err      error
}

func (f *fakeLimiter) Wait(context.Context) error {
	f.acquired++
	return f.err
}

func newTestService(api *fakeAPI) (*Service, *fakeLimiter, *fakeLimiter) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	s := New(api, &config.Config{SendPerMinute: 10, ReadPerMinute: 30}, logger)
	sendLim := &fakeLimiter{}
	readLim := &fakeLimiter{}
	s.send = sendLim
	s.read = readLim
	return s, sendLim, readLim
}

func decodeEnvelope(t *testing.T, raw string) string {
	t.Helper()
	data, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		t.Fatalf("raw payload is not base64url: %v", err)
	}
	return string(data)
}

func TestSendInvalidRecipientNoNetworkCall(t *testing.T) {
	api := &fakeAPI{}
	s, sendLim, _ := newTestService(api)

	_, err := s.Send(context.Background(), SendInput{To: "not-an-email", Subject: "x", Body: "y"})
	if mailerr.KindOf(err) != mailerr.KindInvalidRecipient {
		t.Fatalf("kind = %v, want INVALID_RECIPIENT", mailerr.KindOf(err))
	}
	if !strings.Contains(err.Error(), "not-an-email") {
		t.Errorf("error should carry the offending address: %v", err)
	}
	if api.sendCalls != 0 {
		t.Error("no transport call may be attempted for invalid input")
	}
	if sendLim.acquired != 0 {
		t.Error("rate budget must not be consumed for invalid input")
	}
}

func TestSendEmptyRecipients(t *testing.T) {
	s, _, _ := newTestService(&fakeAPI{})
	_, err := s.Send(context.Background(), SendInput{To: " , ", Subject: "x", Body: "y"})
	if mailerr.KindOf(err) != mailerr.KindInvalidRecipient {
		t.Errorf("kind = %v, want INVALID_RECIPIENT", mailerr.KindOf(err))
	}
}

func TestSendSuccess(t *testing.T) {
	api := &fakeAPI{sendResult: gmail.SendResult{ID: "m-1", ThreadID: "t-1"}}
	s, sendLim, _ := newTestService(api)

	out, err := s.Send(context.Background(), SendInput{
		To:      "alice@example.com, bob@example.com",
		Cc:      "cc@example.com",
		Subject: "Status",
		Body:    "All good.",
	})
	if err != nil {
		t.Fatal(err)
	}
	if out.MessageID != "m-1" || out.ThreadID != "t-1" {
		t.Errorf("output = %+v", out)
	}
	if sendLim.acquired != 1 {
		t.Errorf("send class acquired %d times, want 1", sendLim.acquired)
	}
	if api.sendThreadID != "" {
		t.Error("a fresh send must not target a thread")
	}

	envelope := decodeEnvelope(t, api.sendRaw)
	if !strings.Contains(envelope, "To: alice@example.com, bob@example.com\r\n") {
		t.Error("To header missing from envelope")
	}
	if !strings.Contains(envelope, "Cc: cc@example.com\r\n") {
		t.Error("Cc header missing from envelope")
	}
	if !strings.Contains(envelope, "Subject: Status\r\n") {
		t.Error("Subject header missing from envelope")
	}
}

func TestSendDryRun(t *testing.T) {
	api := &fakeAPI{}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	s := New(api, &config.Config{SendPerMinute: 10, ReadPerMinute: 30, DryRun: true}, logger)

	out, err := s.Send(context.Background(), SendInput{To: "a@example.com", Subject: "s", Body: "b"})
	if err != nil {
		t.Fatal(err)
	}
	if !out.DryRun {
		t.Error("output should be flagged dry-run")
	}
	if api.sendCalls != 0 {
		t.Error("dry-run must not reach the transport")
	}
}

func TestSendDryRunStillValidates(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	s := New(&fakeAPI{}, &config.Config{SendPerMinute: 10, ReadPerMinute: 30, DryRun: true}, logger)

	_, err := s.Send(context.Background(), SendInput{To: "bad", Subject: "s", Body: "b"})
	if mailerr.KindOf(err) != mailerr.KindInvalidRecipient {
		t.Errorf("dry-run must still validate, kind = %v", mailerr.KindOf(err))
	}
}

func TestSendTransportErrorPassesThrough(t *testing.T) {
	api := &fakeAPI{sendErr: mailerr.New(mailerr.KindRateLimited, "slow down")}
	s, _, _ := newTestService(api)

	_, err := s.Send(context.Background(), SendInput{To: "a@example.com", Subject: "s", Body: "b"})
	if mailerr.KindOf(err) != mailerr.KindRateLimited {
		t.Errorf("kind = %v, want RATE_LIMITED", mailerr.KindOf(err))
	}
}

func TestReplyThreadsProperly(t *testing.T) {
	// Header keys are in canonical MIME form as the transport stores
	// them: "Message-Id", not the "Message-ID" casing replies look up.
	api := &fakeAPI{
		thread: gmail.Thread{
			ID: "t-9",
			Messages: []gmail.MessageSummary{
				{ID: "m-1", Headers: map[string]string{
					"From":       "carol@example.com",
					"Subject":    "Project kickoff",
					"Message-Id": "<one@mail.example>",
				}},
				{ID: "m-2", Headers: map[string]string{
					"From":       "dave@example.com",
					"Subject":    "Re: Project kickoff",
					"Message-Id": "<two@mail.example>",
					"References": "<one@mail.example>",
				}},
			},
		},
		sendResult: gmail.SendResult{ID: "m-3", ThreadID: "t-9"},
	}
	s, sendLim, _ := newTestService(api)

	out, err := s.Reply(context.Background(), ReplyInput{ThreadID: "t-9", Body: "On it."})
	if err != nil {
		t.Fatal(err)
	}
	if out.ThreadID != "t-9" {
		t.Errorf("ThreadID = %q", out.ThreadID)
	}
	if api.sendThreadID != "t-9" {
		t.Error("reply must attach to the original thread")
	}
	if sendLim.acquired != 1 {
		t.Errorf("send class acquired %d times, want 1 for the whole reply", sendLim.acquired)
	}

	envelope := decodeEnvelope(t, api.sendRaw)
	if !strings.Contains(envelope, "To: dave@example.com\r\n") {
		t.Error("reply should address the last message's sender")
	}
	if !strings.Contains(envelope, "Subject: Re: Project kickoff\r\n") {
		t.Errorf("subject must carry a single Re: prefix, envelope:\n%s", envelope)
	}
	if !strings.Contains(envelope, "In-Reply-To: <two@mail.example>\r\n") {
		t.Error("In-Reply-To must reference the replied-to message")
	}
	if !strings.Contains(envelope, "References: <one@mail.example> <two@mail.example>\r\n") {
		t.Error("References chain must extend the original")
	}
}

func TestReplyEmptyThreadID(t *testing.T) {
	s, _, _ := newTestService(&fakeAPI{})
	_, err := s.Reply(context.Background(), ReplyInput{ThreadID: "  ", Body: "x"})
	if mailerr.KindOf(err) != mailerr.KindThreadNotFound {
		t.Errorf("kind = %v, want THREAD_NOT_FOUND", mailerr.KindOf(err))
	}
}

func TestReplyThreadLookupFailure(t *testing.T) {
	api := &fakeAPI{threadErr: mailerr.New(mailerr.KindThreadNotFound, "no such thread")}
	s, _, _ := newTestService(api)

	_, err := s.Reply(context.Background(), ReplyInput{ThreadID: "gone", Body: "x"})
	if mailerr.KindOf(err) != mailerr.KindThreadNotFound {
		t.Errorf("kind = %v, want THREAD_NOT_FOUND", mailerr.KindOf(err))
	}
	if api.sendCalls != 0 {
		t.Error("no send may happen when the thread lookup fails")
	}
}

func TestDraftSuccess(t *testing.T) {
	api := &fakeAPI{draftResult: gmail.DraftResult{ID: "d-1", MessageID: "m-1"}}
	s, sendLim, _ := newTestService(api)

	out, err := s.Draft(context.Background(), SendInput{To: "a@example.com", Subject: "s", Body: "b"})
	if err != nil {
		t.Fatal(err)
	}
	if out.DraftID != "d-1" || out.MessageID != "m-1" {
		t.Errorf("output = %+v", out)
	}
	if sendLim.acquired != 1 {
		t.Error("draft creation shares the send budget")
	}
	if api.draftCalls != 1 {
		t.Errorf("draftCalls = %d", api.draftCalls)
	}
}

func TestSearchUsesReadBudget(t *testing.T) {
	api := &fakeAPI{searchOut: []gmail.MessageSummary{{ID: "m-1"}}}
	s, sendLim, readLim := newTestService(api)

	out, err := s.Search(context.Background(), SearchInput{Query: "from:alice"})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 {
		t.Errorf("got %d results", len(out))
	}
	if api.searchQuery != "from:alice" {
		t.Errorf("query = %q", api.searchQuery)
	}
	if api.searchMax != DefaultSearchMax {
		t.Errorf("max = %d, want default %d", api.searchMax, DefaultSearchMax)
	}
	if readLim.acquired != 1 || sendLim.acquired != 0 {
		t.Errorf("limiter usage read=%d send=%d", readLim.acquired, sendLim.acquired)
	}
}

func TestRateWaitFailureIsClassified(t *testing.T) {
	s, sendLim, _ := newTestService(&fakeAPI{})
	sendLim.err = context.Canceled

	_, err := s.Send(context.Background(), SendInput{To: "a@example.com", Subject: "s", Body: "b"})
	if mailerr.KindOf(err) != mailerr.KindNetworkError {
		t.Errorf("kind = %v, want NETWORK_ERROR", mailerr.KindOf(err))
	}
}
