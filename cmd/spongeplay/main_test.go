package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bikinibottom/spongeplay/internal/auth"
	"github.com/bikinibottom/spongeplay/internal/config"
	"github.com/bikinibottom/spongeplay/internal/notify"
	"github.com/bikinibottom/spongeplay/internal/storage"
	"golang.org/x/crypto/bcrypt"
)

func runCmd(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestNormalizeCommand(t *testing.T) {
	out, _, err := runCmd(t, "", "normalize", "https://m.v.qq.com/x/m/play?vid=123", "https://example.com/a")
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %q", out)
	}
	if !strings.HasPrefix(lines[0], "https://v.qq.com/x/cover/123.html\t") {
		t.Errorf("expected rewritten url with note, got %q", lines[0])
	}
	if lines[1] != "https://example.com/a" {
		t.Errorf("expected unchanged url, got %q", lines[1])
	}
}

func TestNormalizeCommandRequiresArgs(t *testing.T) {
	if _, _, err := runCmd(t, "", "normalize"); err == nil {
		t.Error("expected an error without urls")
	}
}

func TestPlayCommand(t *testing.T) {
	out, _, err := runCmd(t, "", "play", "--parser", "sponge", "https://www.iqiyi.com/v/abc123.html")
	if err != nil {
		t.Fatalf("play: %v", err)
	}
	expected := "https://parse.ikunfei.top/parse/?url=https%3A%2F%2Fwww.iqiyi.com%2Fv%2Fabc123.html"
	if strings.TrimSpace(out) != expected {
		t.Errorf("expected %q, got %q", expected, out)
	}
}

func TestPlayCommandPrintsNoteToStderr(t *testing.T) {
	out, errOut, err := runCmd(t, "", "play", "https://m.v.qq.com/x/m/play?vid=123")
	if err != nil {
		t.Fatalf("play: %v", err)
	}
	if !strings.HasPrefix(out, "https://jx.xymp4.cc/?url=") {
		t.Errorf("expected default parser url, got %q", out)
	}
	if errOut == "" {
		t.Error("expected the rewrite note on stderr")
	}
}

func TestPlayCommandUnknownParser(t *testing.T) {
	if _, _, err := runCmd(t, "", "play", "-p", "gary", "https://v.qq.com/x/cover/a.html"); err == nil {
		t.Error("expected an error for an unknown parser")
	}
}

func TestParsersCommand(t *testing.T) {
	out, _, err := runCmd(t, "", "parsers")
	if err != nil {
		t.Fatalf("parsers: %v", err)
	}
	if !strings.HasPrefix(out, "ID") {
		t.Errorf("expected a header row, got %q", out)
	}
	for _, id := range []string{"default", "sponge", "patrick"} {
		if !strings.Contains(out, id) {
			t.Errorf("expected parser %q in output", id)
		}
	}
}

func TestHashPasswordCommand(t *testing.T) {
	out, _, err := runCmd(t, "", "hash-password", "spongebob")
	if err != nil {
		t.Fatalf("hash-password: %v", err)
	}
	hash := strings.TrimSpace(out)
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte("spongebob")) != nil {
		t.Errorf("output %q is not a hash of the password", hash)
	}

	gate, err := auth.NewGateFromHash(hash)
	if err != nil {
		t.Fatalf("NewGateFromHash: %v", err)
	}
	if !gate.Login("spongebob") {
		t.Error("gate built from the printed hash should accept the password")
	}
}

func TestHashPasswordCommandReadsStdin(t *testing.T) {
	out, _, err := runCmd(t, "squidward\n", "hash-password")
	if err != nil {
		t.Fatalf("hash-password: %v", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(strings.TrimSpace(out)), []byte("squidward")) != nil {
		t.Error("expected a hash of the stdin password")
	}
}

func TestHashPasswordCommandRejectsEmpty(t *testing.T) {
	if _, _, err := runCmd(t, "", "hash-password"); err == nil {
		t.Error("expected an error for an empty password")
	}
}

func TestRootCommandRequiresSubcommand(t *testing.T) {
	if _, _, err := runCmd(t, ""); err == nil {
		t.Error("expected an error without a subcommand")
	}
}

func TestOpenBackendFile(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{Storage: config.StorageConfig{Backend: config.BackendFile, Dir: dir}}

	backend, closeFn, err := openBackend(context.Background(), cfg)
	if err != nil {
		t.Fatalf("openBackend: %v", err)
	}
	defer closeFn()

	if _, ok := backend.(*storage.FileBackend); !ok {
		t.Errorf("expected a file backend, got %T", backend)
	}
}

func TestOpenBackendSQLite(t *testing.T) {
	cfg := &config.Config{
		Storage: config.StorageConfig{Backend: config.BackendSQLite},
		SQLite:  config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "board.db")},
	}

	backend, closeFn, err := openBackend(context.Background(), cfg)
	if err != nil {
		t.Fatalf("openBackend: %v", err)
	}
	defer closeFn()

	if err := backend.Ping(context.Background()); err != nil {
		t.Errorf("ping: %v", err)
	}
}

func TestOpenBackendUnknown(t *testing.T) {
	cfg := &config.Config{Storage: config.StorageConfig{Backend: "redis"}}
	if _, _, err := openBackend(context.Background(), cfg); err == nil {
		t.Error("expected an error for an unknown backend")
	}
}

func TestNewGatePrefersHash(t *testing.T) {
	hash, err := auth.HashPassword("gary")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	gate, err := newGate(config.AdminConfig{Password: "spongebob", PasswordHash: hash})
	if err != nil {
		t.Fatalf("newGate: %v", err)
	}
	if gate.Login("spongebob") || !gate.Login("gary") {
		t.Error("the configured hash should take precedence over the literal")
	}
}

func TestNewNotifierAddsConfiguredTargets(t *testing.T) {
	n := newNotifier(&config.Config{})
	if m, ok := n.(*notify.Multi); !ok || m.Len() != 1 {
		t.Errorf("expected only the log notifier, got %#v", n)
	}

	n = newNotifier(&config.Config{
		Webhook: config.WebhookConfig{URL: "https://hooks.example.com", Secret: "s"},
		Slack:   config.SlackConfig{WebhookURL: "https://hooks.slack.com/services/T/B/X"},
	})
	if m, ok := n.(*notify.Multi); !ok || m.Len() != 3 {
		t.Errorf("expected log, webhook and slack notifiers, got %#v", n)
	}
}
