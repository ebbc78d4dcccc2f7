package secrets

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeSecrets(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "secrets.json")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

// ==================== EnvProvider Tests ====================

func TestEnvProvider_Get_WithPrefix(t *testing.T) {
	t.Setenv("FASCRAFT_TEST_SECRET", "secret_value")

	p := NewEnvProvider("FASCRAFT_")
	val, err := p.Get(context.Background(), "test_secret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != "secret_value" {
		t.Fatalf("expected 'secret_value', got %s", val)
	}
}

func TestEnvProvider_Get_WithoutPrefix(t *testing.T) {
	t.Setenv("NEO4J_PASSWORD", "direct_value")

	p := NewEnvProvider("FASCRAFT_")
	val, err := p.Get(context.Background(), string(SecretNeo4jPassword))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != "direct_value" {
		t.Fatalf("expected 'direct_value', got %s", val)
	}
}

func TestEnvProvider_Get_NotFound(t *testing.T) {
	p := NewEnvProvider("")
	if p.prefix != "FASCRAFT_" {
		t.Fatalf("expected default prefix, got %s", p.prefix)
	}
	if _, err := p.Get(context.Background(), "nonexistent_secret_xyz"); err == nil {
		t.Fatal("expected error for missing secret")
	}
}

// ==================== FileProvider Tests ====================

func TestFileProvider_Get(t *testing.T) {
	p, err := NewFileProvider(writeSecrets(t, `{"graph_password": "s3cret"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Name() != "file" {
		t.Fatalf("expected 'file', got %s", p.Name())
	}

	val, err := p.Get(context.Background(), "graph_password")
	if err != nil || val != "s3cret" {
		t.Fatalf("got %q, %v", val, err)
	}
	if _, err := p.Get(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFileProvider_Reload(t *testing.T) {
	path := writeSecrets(t, `{"k": "v1"}`)
	p, err := NewFileProvider(path)
	if err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(path, []byte(`{"k": "v2"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := p.Reload(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if val, _ := p.Get(context.Background(), "k"); val != "v2" {
		t.Fatalf("expected v2 after reload, got %s", val)
	}
}

func TestFileProvider_Errors(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{"empty path", ""},
		{"missing file", filepath.Join(t.TempDir(), "absent.json")},
		{"invalid json", writeSecrets(t, `not json`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewFileProvider(tt.path); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

// ==================== Manager Tests ====================

func TestManager_DefaultConfig(t *testing.T) {
	m, err := NewManager(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.primary.Name() != "env" || m.fallback != nil {
		t.Fatalf("expected env-only manager, got primary=%s", m.primary.Name())
	}
}

func TestManager_FileWithEnvFallback(t *testing.T) {
	t.Setenv("FASCRAFT_NEO4J_PASSWORD", "from-env")
	path := writeSecrets(t, `{"graph_password": "from-file"}`)

	m, err := NewManager(&Config{Provider: "file", File: path})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx := context.Background()

	if val, _ := m.Get(ctx, "graph_password"); val != "from-file" {
		t.Errorf("expected file value, got %s", val)
	}
	if val, _ := m.Get(ctx, "neo4j_password"); val != "from-env" {
		t.Errorf("expected env fallback, got %s", val)
	}
}

func TestManager_Lookup(t *testing.T) {
	t.Setenv("FASCRAFT_NEO4J_PASSWORD", "second")
	m, _ := NewManager(nil)

	val, err := m.Lookup(context.Background(), SecretGraphPassword, SecretNeo4jPassword)
	if err != nil || val != "second" {
		t.Fatalf("got %q, %v", val, err)
	}

	m.ClearCache()
	os.Unsetenv("FASCRAFT_NEO4J_PASSWORD")
	if _, err := m.Lookup(context.Background(), SecretGraphPassword, SecretNeo4jPassword); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestManager_Cache(t *testing.T) {
	t.Setenv("FASCRAFT_CACHED", "first")
	m, _ := NewManager(nil)
	ctx := context.Background()

	if val, _ := m.Get(ctx, "cached"); val != "first" {
		t.Fatalf("expected first, got %s", val)
	}
	t.Setenv("FASCRAFT_CACHED", "second")
	if val, _ := m.Get(ctx, "cached"); val != "first" {
		t.Errorf("expected cached value, got %s", val)
	}
	m.ClearCache()
	if val, _ := m.Get(ctx, "cached"); val != "second" {
		t.Errorf("expected fresh value after clear, got %s", val)
	}
}

func TestManager_GetOrDefault(t *testing.T) {
	m, _ := NewManager(nil)
	if val := m.GetOrDefault(context.Background(), "nonexistent_xyz", "fallback"); val != "fallback" {
		t.Fatalf("expected fallback, got %s", val)
	}
}

func TestManager_ConfigErrors(t *testing.T) {
	if _, err := NewManager(&Config{Provider: "vault"}); err == nil {
		t.Error("expected error for unknown provider")
	}
	if _, err := NewManager(&Config{Provider: "file"}); err == nil {
		t.Error("expected error for file provider without a path")
	}
}
