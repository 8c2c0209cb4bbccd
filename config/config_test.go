package config

import (
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/kbukum/apikit/downstream"
	"github.com/kbukum/apikit/httpclient"
)

const sampleConfig = `
name: orders-gateway
environment: staging
version: "2.1.0"
logging:
  level: debug
  format: json
server:
  port: 9090
credentials:
  client_id: gateway
  client_secret: from-file
  token_url: https://login.example.com/{tenant}/oauth2/v2.0/token
  tenant: contoso
downstream:
  apis:
    orders:
      base_url: https://orders.example.com/v1
      scopes: [api://orders/.default]
      request_app_token: true
      query:
        api-version: "2024-01-01"
  clients:
    orders:
      timeout: 10s
      retry:
        max_attempts: 3
`

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestServiceConfigApplyDefaults(t *testing.T) {
	cfg := ServiceConfig{}
	cfg.ApplyDefaults()
	if cfg.Name != "apikit" {
		t.Errorf("expected name 'apikit', got %q", cfg.Name)
	}
	if cfg.Environment != "development" || !cfg.Debug {
		t.Errorf("expected development with debug, got %q debug=%v", cfg.Environment, cfg.Debug)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected logging defaults, got %q", cfg.Logging.Level)
	}

	prod := ServiceConfig{Name: "svc", Environment: "production"}
	prod.ApplyDefaults()
	if prod.Debug {
		t.Error("expected debug=false for production")
	}
}

func TestServiceConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		cfg    ServiceConfig
		errMsg string
	}{
		{"valid", ServiceConfig{Name: "svc", Environment: "staging"}, ""},
		{"missing name", ServiceConfig{Environment: "staging"}, "config.name is required"},
		{"bad environment", ServiceConfig{Name: "svc", Environment: "qa"}, "config.environment"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := tc.cfg
			cfg.Logging.ApplyDefaults()
			err := cfg.Validate()
			if tc.errMsg == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.errMsg) {
				t.Errorf("expected error containing %q, got %v", tc.errMsg, err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, t.TempDir(), sampleConfig)

	cfg, loader, err := Load("orders-gateway", WithConfigFile(path))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loader.Files().ConfigFile != path {
		t.Errorf("expected config file %q, got %q", path, loader.Files().ConfigFile)
	}
	if cfg.Name != "orders-gateway" || cfg.Environment != "staging" {
		t.Errorf("unexpected service config: %+v", cfg.ServiceConfig)
	}
	if cfg.Server.Port != 9090 || cfg.Server.GatewayPrefix != "/api" {
		t.Errorf("expected port 9090 with default prefix, got %d %q", cfg.Server.Port, cfg.Server.GatewayPrefix)
	}
	if cfg.Tracing.ServiceName != "orders-gateway" || cfg.Tracing.ServiceVersion != "2.1.0" {
		t.Errorf("expected tracing defaults from service, got %+v", cfg.Tracing)
	}
	if cfg.Credentials == nil || cfg.Credentials.Tenant != "contoso" {
		t.Fatalf("expected credentials to be loaded, got %+v", cfg.Credentials)
	}
	if cfg.JWT != nil {
		t.Error("expected jwt to stay nil when not configured")
	}

	orders, ok := cfg.Downstream.APIs["orders"]
	if !ok {
		t.Fatalf("expected orders api, got %v", cfg.Downstream.APIs)
	}
	if orders.BaseURL != "https://orders.example.com/v1" || !orders.RequestAppToken {
		t.Errorf("unexpected orders options: %+v", orders)
	}
	if len(orders.Scopes) != 1 || orders.Scopes[0] != "api://orders/.default" {
		t.Errorf("expected scopes, got %v", orders.Scopes)
	}
	if orders.Query["api-version"] != "2024-01-01" {
		t.Errorf("expected query parameter, got %v", orders.Query)
	}

	client := cfg.Downstream.Clients["orders"]
	if client.Timeout != 10*time.Second {
		t.Errorf("expected 10s timeout, got %v", client.Timeout)
	}
	if client.Retry == nil || client.Retry.MaxAttempts != 3 {
		t.Errorf("expected retry with 3 attempts, got %+v", client.Retry)
	}
	if client.MaxIdleConnsPerHost == 0 {
		t.Error("expected client defaults to be applied")
	}
}

func TestLoadEnvOverride(t *testing.T) {
	path := writeConfig(t, t.TempDir(), sampleConfig)
	t.Setenv("ORDERS_GATEWAY_CREDENTIALS_CLIENT_SECRET", "from-env")
	t.Setenv("ORDERS_GATEWAY_DOWNSTREAM_APIS_ORDERS_BASE_URL", "https://orders.internal/v1")
	t.Setenv("ORDERS_GATEWAY_SERVER_HOST", "0.0.0.0")
	t.Setenv("CREDENTIALS_CLIENT_SECRET", "unprefixed")

	cfg, _, err := Load("orders-gateway", WithConfigFile(path))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Credentials.ClientSecret != "from-env" {
		t.Errorf("expected env to override file, got %q", cfg.Credentials.ClientSecret)
	}
	if got := cfg.Downstream.APIs["orders"].BaseURL; got != "https://orders.internal/v1" {
		t.Errorf("expected env to override map entry, got %q", got)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("expected env to set a key absent from the file, got %q", cfg.Server.Host)
	}
}

func TestLoadEnvPrefix(t *testing.T) {
	path := writeConfig(t, t.TempDir(), sampleConfig)
	t.Setenv("GW_CREDENTIALS_CLIENT_SECRET", "custom")

	cfg, _, err := Load("orders-gateway", WithConfigFile(path), WithEnvPrefix("GW"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Credentials.ClientSecret != "custom" {
		t.Errorf("expected custom prefix to apply, got %q", cfg.Credentials.ClientSecret)
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, sampleConfig)
	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte("ENVFILE_TEST_CREDENTIALS_CLIENT_SECRET=from-dotenv\n"), 0o644); err != nil {
		t.Fatalf("failed to write env file: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("ENVFILE_TEST_CREDENTIALS_CLIENT_SECRET") })

	cfg, _, err := Load("envfile-test", WithConfigFile(path), WithEnvFile(envPath))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Credentials.ClientSecret != "from-dotenv" {
		t.Errorf("expected .env value, got %q", cfg.Credentials.ClientSecret)
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name   string
		yaml   string
		errMsg string
	}{
		{
			"no provider",
			"name: svc\ndownstream:\n  apis:\n    orders:\n      base_url: https://x.example.com\n",
			"either jwt or credentials",
		},
		{
			"missing base url",
			"name: svc\njwt:\n  secret: s\ndownstream:\n  apis:\n    orders:\n      scopes: [a]\n",
			"apis.orders.base_url: is required",
		},
		{
			"invalid method",
			"name: svc\njwt:\n  secret: s\ndownstream:\n  apis:\n    orders:\n      base_url: https://x.example.com\n      http_method: TRACE\n",
			"http_method: must be one of",
		},
		{
			"negative client timeout",
			"name: svc\njwt:\n  secret: s\ndownstream:\n  clients:\n    orders:\n      timeout: -1s\n",
			"clients.orders",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := writeConfig(t, t.TempDir(), tc.yaml)
			_, _, err := Load("svc", WithConfigFile(path))
			if err == nil || !strings.Contains(err.Error(), tc.errMsg) {
				t.Errorf("expected error containing %q, got %v", tc.errMsg, err)
			}
		})
	}
}

func TestLoaderMissingFile(t *testing.T) {
	var cfg ServiceConfig
	if err := NewLoader("nonexistent-service", WithConfigFile("/nonexistent/path.yml")).Load(&cfg); err != nil {
		t.Fatalf("expected Load to succeed with missing file, got %v", err)
	}
}

func TestDownstreamConfigFactoryAndStore(t *testing.T) {
	dc := DownstreamConfig{
		APIs:    map[string]downstream.Options{"orders": {BaseURL: "https://orders.example.com", Scopes: []string{"a"}}},
		Clients: map[string]httpclient.Config{"orders": {Timeout: time.Second}},
	}
	dc.ApplyDefaults()
	if err := dc.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	store := dc.NewStore()
	got, err := store.Get("orders")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got.Scopes[0] = "mutated"
	if dc.APIs["orders"].Scopes[0] != "a" {
		t.Error("expected store to hold copies of the configured options")
	}

	factory, err := dc.NewFactory()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer factory.Close()
	if c := factory.Client("orders"); c == nil || c.Timeout != time.Second {
		t.Errorf("expected orders client with 1s timeout, got %+v", c)
	}
}

func TestWatchRepublishesOptions(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, sampleConfig)

	cfg, loader, err := Load("orders-gateway", WithConfigFile(path))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	store := cfg.Downstream.NewStore()

	updates := make(chan DownstreamConfig, 16)
	if err := loader.Watch(store, func(dc DownstreamConfig) { updates <- dc }); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	writeConfig(t, dir, strings.Replace(sampleConfig, "orders.example.com/v1", "orders.example.com/v2", 1))

	deadline := time.After(5 * time.Second)
	for {
		select {
		case dc := <-updates:
			if dc.APIs["orders"].BaseURL != "https://orders.example.com/v2" {
				continue
			}
			got, err := store.Get("orders")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.BaseURL != "https://orders.example.com/v2" {
				t.Errorf("expected store to be updated, got %q", got.BaseURL)
			}
			return
		case <-deadline:
			t.Fatal("timed out waiting for config reload")
		}
	}
}

func TestWatchWithoutFile(t *testing.T) {
	loader := NewLoader("svc", WithFileSystem(&mockFS{}))
	if err := loader.Watch(downstream.NewOptionsStore(nil), nil); err != ErrNoConfigFile {
		t.Errorf("expected ErrNoConfigFile, got %v", err)
	}
}

func TestResolveFiles(t *testing.T) {
	fs := &mockFS{files: map[string]bool{
		"cmd/gateway/config.yml":  true,
		"config/config.yml":       true,
		".env.orders-gateway":     true,
		"cmd/orders-gateway/.env": true,
	}}

	files := NewLoader("orders-gateway", WithFileSystem(fs)).Files()
	if files.ConfigFile != filepath.Join("cmd", "gateway", "config.yml") {
		t.Errorf("expected config from the short cmd name, got %q", files.ConfigFile)
	}
	if files.EnvFile != ".env.orders-gateway" {
		t.Errorf("expected .env.orders-gateway to win over .env, got %q", files.EnvFile)
	}

	explicit := NewLoader("orders-gateway", WithFileSystem(fs), WithConfigFile("a.yml"), WithEnvFile("b.env")).Files()
	if explicit.ConfigFile != "a.yml" || explicit.EnvFile != "b.env" {
		t.Errorf("expected explicit paths to win, got %+v", explicit)
	}

	none := NewLoader("billing", WithFileSystem(&mockFS{})).Files()
	if none.ConfigFile != "" || none.EnvFile != "" {
		t.Errorf("expected no files, got %+v", none)
	}
}

type mockFS struct {
	files map[string]bool
}

func (m *mockFS) Exists(path string) bool { return m.files[path] }
func (m *mockFS) LoadEnv(string) error    { return nil }

func TestStructKeys(t *testing.T) {
	keys := structKeys(reflect.TypeOf(&Config{}), "")
	for _, want := range []string{"name", "logging.level", "server.host", "credentials.client_secret", "token_cache.addr", "downstream.apis"} {
		if !slices.Contains(keys, want) {
			t.Errorf("expected key %q in %v", want, keys)
		}
	}
	if slices.Contains(keys, "downstream") {
		t.Error("expected nested structs to be expanded")
	}
}
