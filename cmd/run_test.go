package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/aiemployee/mailgate/internal/config"
	"github.com/aiemployee/mailgate/internal/service"
)

func TestSendInputFromParams(t *testing.T) {
	p := runParams{
		To:       "a@example.com",
		Cc:       "c@example.com",
		Bcc:      "d@example.com",
		ReplyTo:  "noreply@example.com",
		Subject:  "Hi",
		Body:     "Hello",
		HTMLBody: "<p>Hello</p>",
	}

	want := service.SendInput{
		To:       "a@example.com",
		Cc:       "c@example.com",
		Bcc:      "d@example.com",
		ReplyTo:  "noreply@example.com",
		Subject:  "Hi",
		Body:     "Hello",
		HTMLBody: "<p>Hello</p>",
	}

	if got := sendInputFromParams(p); got != want {
		t.Errorf("sendInputFromParams() = %+v, want %+v", got, want)
	}
}

func newRunTestService(dryRun bool) *service.Service {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return service.New(nil, &config.Config{SendPerMinute: 10, ReadPerMinute: 30, DryRun: dryRun}, logger)
}

// A failed action must surface as errActionFailed, not a process exit,
// so deferred teardown in runAction still runs.
func TestRunAndReportActionFailure(t *testing.T) {
	var buf bytes.Buffer
	err := runAndReport(context.Background(), newRunTestService(false), &buf, "send_email",
		runParams{To: "not-an-email", Subject: "s", Body: "b"})
	if !errors.Is(err, errActionFailed) {
		t.Fatalf("err = %v, want errActionFailed", err)
	}

	var res runResult
	if err := json.Unmarshal(buf.Bytes(), &res); err != nil {
		t.Fatalf("envelope is not JSON: %v", err)
	}
	if res.Success {
		t.Error("envelope must report failure")
	}
	if res.ActionType != "send_email" || res.Target != "not-an-email" {
		t.Errorf("envelope = %+v", res)
	}
	if res.Error == "" {
		t.Error("envelope must carry the error detail")
	}
}

func TestRunAndReportSuccess(t *testing.T) {
	var buf bytes.Buffer
	err := runAndReport(context.Background(), newRunTestService(true), &buf, "send_email",
		runParams{To: "a@example.com", Subject: "s", Body: "b"})
	if err != nil {
		t.Fatal(err)
	}

	var res runResult
	if err := json.Unmarshal(buf.Bytes(), &res); err != nil {
		t.Fatalf("envelope is not JSON: %v", err)
	}
	if !res.Success || res.Error != "" {
		t.Errorf("envelope = %+v", res)
	}
}

func TestFirstMissing(t *testing.T) {
	tests := []struct {
		name     string
		required map[string]string
		want     string
	}{
		{
			name:     "all present",
			required: map[string]string{"to": "a@example.com", "subject": "s", "body": "b"},
			want:     "",
		},
		{
			name:     "missing to reported first",
			required: map[string]string{"to": "", "subject": "", "body": "b"},
			want:     "to",
		},
		{
			name:     "missing subject",
			required: map[string]string{"to": "a@example.com", "subject": "", "body": "b"},
			want:     "subject",
		},
		{
			name:     "missing thread_id",
			required: map[string]string{"thread_id": "", "body": "b"},
			want:     "thread_id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := firstMissing(tt.required); got != tt.want {
				t.Errorf("firstMissing() = %q, want %q", got, tt.want)
			}
		})
	}
}
