// SPDX-License-Identifier: Apache-2.0
package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestConfigureSlogJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := ConfigureSlog(&buf, "debug", "json")

	logger.InfoContext(context.Background(), "registry.load.ok", slog.String("unit", "calendar"))

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("expected JSON log line: %v (%s)", err, buf.String())
	}
	if record["msg"] != "registry.load.ok" {
		t.Errorf("unexpected message: %v", record["msg"])
	}
	if record["unit"] != "calendar" {
		t.Errorf("unexpected unit attr: %v", record["unit"])
	}
}

func TestConfigureSlogTextDefault(t *testing.T) {
	var buf bytes.Buffer
	logger := ConfigureSlog(&buf, "info", "text")

	logger.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug should be filtered at info level: %s", buf.String())
	}

	logger.Warn("workflow.member.failed")
	if !strings.Contains(buf.String(), "workflow.member.failed") {
		t.Fatalf("expected warn output, got %s", buf.String())
	}
}

func TestParseLogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := parseLogLevel(in); got != want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
