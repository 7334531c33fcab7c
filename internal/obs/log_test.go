package obs

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
)

func TestConfigureLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := ConfigureLogger(LogOptions{Level: "debug", Format: "json", Output: &buf}); err != nil {
		t.Fatalf("configure: %v", err)
	}
	Logger().WithField("event", "probe").Debug("hello")

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("log is not valid JSON: %v (%q)", err, buf.String())
	}
	for _, key := range []string{"ts", "level", "msg", "event"} {
		if _, ok := entry[key]; !ok {
			t.Fatalf("expected key %q in %v", key, entry)
		}
	}
}

func TestConfigureLoggerRejectsUnknownLevel(t *testing.T) {
	if err := ConfigureLogger(LogOptions{Level: "loud"}); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestSetupTracingDisabledWithoutEndpoint(t *testing.T) {
	shutdown, err := SetupTracing(context.Background(), "ifs-test", "")
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}
