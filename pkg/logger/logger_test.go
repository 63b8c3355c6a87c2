package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestLoggerInit(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("failed to initialize text logger: %v", err)
	}
	if Get() == nil {
		t.Fatal("logger is nil after initialization")
	}

	if err := Init(WithFormat(FormatJSON)); err != nil {
		t.Fatalf("failed to initialize json logger: %v", err)
	}
	if Get() == nil {
		t.Fatal("logger is nil after initialization")
	}

	if err := Init(WithFormat("xml")); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestLoggerJSONFields(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(WithFormat(FormatJSON), WithOutput(&buf)); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() {
		if err := Sync(); err != nil {
			t.Errorf("failed to sync logger: %v", err)
		}
	}()

	Get().Info(context.Background(), "refresh done",
		String("group", "11625"),
		Int("members", 42),
		Bool("cached", true),
		Duration("took", 250*time.Millisecond),
		Error(errors.New("boom")),
	)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not json: %v (%q)", err, buf.String())
	}
	if entry["msg"] != "refresh done" {
		t.Errorf("msg = %v", entry["msg"])
	}
	if entry["members"] != float64(42) {
		t.Errorf("members = %v", entry["members"])
	}
	if entry["error"] != "boom" {
		t.Errorf("error = %v", entry["error"])
	}
	if src, _ := entry["source"].(string); !strings.Contains(src, "logger_test.go") {
		t.Errorf("source = %q, want caller file", src)
	}
}

func TestLoggerRequestID(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(WithFormat(FormatJSON), WithOutput(&buf)); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	if id := RequestID(context.Background()); id != "" {
		t.Fatalf("RequestID on a bare context = %q", id)
	}

	ctx := WithRequestID(context.Background(), "req-7")
	if id := RequestID(ctx); id != "req-7" {
		t.Fatalf("RequestID = %q, want req-7", id)
	}

	Get().Named("service").Error(ctx, "analysis failed")
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not json: %v (%q)", err, buf.String())
	}
	if entry["request_id"] != "req-7" {
		t.Errorf("request_id = %v", entry["request_id"])
	}

	buf.Reset()
	Get().Info(context.Background(), "no request")
	if strings.Contains(buf.String(), "request_id") {
		t.Errorf("request_id written without one in context: %q", buf.String())
	}
}

func TestLoggerLevel(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(WithOutput(&buf)); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	Get().Debug(context.Background(), "hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug written at info level: %q", buf.String())
	}

	if err := SetLevelString("debug"); err != nil {
		t.Fatalf("SetLevelString: %v", err)
	}
	Get().Debug(context.Background(), "visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Fatalf("debug not written at debug level: %q", buf.String())
	}

	if err := SetLevelString("loud"); err == nil {
		t.Fatal("expected error for unknown level")
	}
	_ = SetLevelString("info")
}

func TestLoggerNamed(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(WithOutput(&buf)); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	namedLogger := Named("wom")
	if namedLogger == nil {
		t.Fatal("named logger is nil")
	}
	namedLogger.With(String("group", "7")).Info(context.Background(), "test message")

	out := buf.String()
	if !strings.Contains(out, "component=wom") || !strings.Contains(out, "group=7") {
		t.Fatalf("missing named attrs: %q", out)
	}
}
