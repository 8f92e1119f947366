package main

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cfg := "store:\n  driver: file\n  dir: " + filepath.Join(dir, "data") + "\n" +
		"oracle:\n  provider: stub\n  delay: 1ms\n  matchRate: 1\n"
	p := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(p, []byte(cfg), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func writeTestImage(t *testing.T) string {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 3, 3))); err != nil {
		t.Fatalf("encode: %v", err)
	}
	p := filepath.Join(t.TempDir(), "mole.png")
	if err := os.WriteFile(p, buf.Bytes(), 0o600); err != nil {
		t.Fatalf("write image: %v", err)
	}
	return p
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestScanThenBrowseResults(t *testing.T) {
	cfg := writeTestConfig(t)
	img := writeTestImage(t)

	out, err := run(t, "--config", cfg, "scan", "--image", img,
		"--symptom", "Chronic cough", "--symptom", "Unusual lumps", "--symptom", "Persistent pain")
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if !strings.Contains(out, "High Risk: Consult a doctor immediately.") {
		t.Fatalf("scan output:\n%s", out)
	}

	out, err = run(t, "--config", cfg, "results", "summary")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if strings.TrimSpace(out) != "total=1 high=1 moderate=0 low=0" {
		t.Fatalf("summary = %q", out)
	}

	out, err = run(t, "--config", cfg, "results", "list", "--risk", "high")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "1 results") {
		t.Fatalf("list output:\n%s", out)
	}

	if _, err := run(t, "--config", cfg, "results", "clear"); err == nil {
		t.Fatalf("clear without --yes should fail")
	}
	if _, err := run(t, "--config", cfg, "results", "clear", "--yes"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	out, err = run(t, "--config", cfg, "results", "export")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if strings.TrimSpace(out) != "[]" {
		t.Fatalf("export after clear = %q", out)
	}
}

func TestScanRejectsUnknownSymptom(t *testing.T) {
	cfg := writeTestConfig(t)
	img := writeTestImage(t)
	_, err := run(t, "--config", cfg, "scan", "--image", img, "--symptom", "Hiccups")
	if err == nil || !strings.Contains(err.Error(), "unknown symptom") {
		t.Fatalf("err = %v", err)
	}
}

func TestProfileLoginAndShow(t *testing.T) {
	cfg := writeTestConfig(t)
	if _, err := run(t, "--config", cfg, "--owner", "dina", "profile", "login", "--name", "Dina", "--email", "dina@example.com"); err != nil {
		t.Fatalf("login: %v", err)
	}
	out, err := run(t, "--config", cfg, "--owner", "dina", "profile", "show")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	if !strings.Contains(out, `"email": "dina@example.com"`) {
		t.Fatalf("profile:\n%s", out)
	}
	if _, err := run(t, "--config", cfg, "--owner", "nobody", "profile", "show"); err == nil {
		t.Fatalf("expected missing profile error")
	}
}

func TestSymptomsCommand(t *testing.T) {
	out, err := run(t, "--config", writeTestConfig(t), "symptoms")
	if err != nil {
		t.Fatalf("symptoms: %v", err)
	}
	if lines := strings.Split(strings.TrimSpace(out), "\n"); len(lines) != 10 {
		t.Fatalf("got %d symptoms", len(lines))
	}
}
