// SPDX-License-Identifier: Apache-2.0

// Package config loads the Adjutant configuration from defaults, an
// optional YAML file, and ADJUTANT_-prefixed environment variables, in
// that order of precedence.
package config

import (
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Log       LogConfig       `koanf:"log"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Notify    NotifyConfig    `koanf:"notify"`
	Memory    MemoryConfig    `koanf:"memory"`
	Units     UnitsConfig     `koanf:"units"`
	Workflow  WorkflowConfig  `koanf:"workflow"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json, text
}

type TelemetryConfig struct {
	Enabled      bool   `koanf:"enabled"`
	ServiceName  string `koanf:"service_name"`
	Exporter     string `koanf:"exporter"` // stdout, otlp
	OTLPEndpoint string `koanf:"otlp_endpoint"`
	OTLPInsecure bool   `koanf:"otlp_insecure"`
}

type NotifyConfig struct {
	Backend string `koanf:"backend"` // memory, file, sqlite
	Path    string `koanf:"path"`
}

type MemoryConfig struct {
	Enabled          bool   `koanf:"enabled"`
	Provider         string `koanf:"provider"` // vector, file, inmemory
	Path             string `koanf:"path"`
	QdrantAddr       string `koanf:"qdrant_addr"`
	EmbedderProvider string `koanf:"embedder_provider"` // ollama
	EmbedderBaseURL  string `koanf:"embedder_base_url"`
	EmbedderModel    string `koanf:"embedder_model"`
}

// UnitsConfig carries the per-unit credentials and endpoints the
// registry probes at load time.
type UnitsConfig struct {
	Maps      MapsConfig      `koanf:"maps"`
	Flight    FlightConfig    `koanf:"flight"`
	Email     EmailConfig     `koanf:"email"`
	Knowledge KnowledgeConfig `koanf:"knowledge"`
}

type MapsConfig struct {
	APIKey string `koanf:"api_key"`
}

type FlightConfig struct {
	APIKey  string `koanf:"api_key"`
	BaseURL string `koanf:"base_url"`
}

type EmailConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	From     string `koanf:"from"`
	To       string `koanf:"to"`
}

type KnowledgeConfig struct {
	BaseURL string `koanf:"base_url"`
}

type WorkflowConfig struct {
	Path          string        `koanf:"path"` // optional declarative workflow file
	MemberTimeout time.Duration `koanf:"member_timeout"`
	CancelGrace   time.Duration `koanf:"cancel_grace"`
}

// Load reads configuration from defaults, then the optional YAML file at
// path, then ADJUTANT_ environment variables.
func Load(path string) (*Config, error) {
	var paths []string
	if path != "" {
		paths = append(paths, path)
	}
	return loadFrom(paths, nil)
}

// LoadWithProfile loads the base file and overlays the profile variant
// (config.yaml + profile "dev" -> config.dev.yaml) when it exists.
func LoadWithProfile(path, profile string) (*Config, error) {
	var paths []string
	if path != "" {
		paths = append(paths, path)
	}
	if overlay := profileConfigPath(path, profile); overlay != "" {
		paths = append(paths, overlay)
	}
	return loadFrom(paths, nil)
}

func loadFrom(paths []string, sets map[string]string) (*Config, error) {
	k := koanf.New(".")

	// Defaults
	k.Set("log.level", "info")
	k.Set("log.format", "text")

	k.Set("telemetry.enabled", false)
	k.Set("telemetry.service_name", "adjutant")
	k.Set("telemetry.exporter", "stdout")
	k.Set("telemetry.otlp_endpoint", "localhost:4317")
	k.Set("telemetry.otlp_insecure", true)

	k.Set("notify.backend", "file")
	k.Set("notify.path", "notifications.json")

	k.Set("memory.enabled", false)
	k.Set("memory.provider", "file")
	k.Set("memory.path", "memory.jsonl")
	k.Set("memory.qdrant_addr", "localhost:6334")
	k.Set("memory.embedder_provider", "ollama")
	k.Set("memory.embedder_base_url", "http://localhost:11434")
	k.Set("memory.embedder_model", "nomic-embed-text")

	k.Set("units.flight.base_url", "https://api.aviationstack.com/v1")
	k.Set("units.email.port", 587)
	k.Set("units.knowledge.base_url", "https://en.wikipedia.org/api/rest_v1")

	k.Set("workflow.member_timeout", "30s")
	k.Set("workflow.cancel_grace", "0s")

	// 1. Load from files, later paths overriding earlier ones
	for _, path := range paths {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, err
		}
	}

	// 2. Load from ENV (ADJUTANT_NOTIFY_BACKEND -> notify.backend)
	if err := k.Load(env.Provider("ADJUTANT_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, "ADJUTANT_")), "_", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	// 3. Explicit --set overrides win over everything
	for key, value := range sets {
		k.Set(key, value)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
