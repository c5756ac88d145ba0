package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "escucha.toml")
	contents := fmt.Sprintf(`[paths]
data_dir = %q
log_dir = %q

[recognition]
api_key = "test-key"
`, filepath.Join(dir, "data"), filepath.Join(dir, "logs"))
	if err := os.WriteFile(cfgPath, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return cfgPath
}

func runCommand(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	if stdin != "" {
		cmd.SetIn(strings.NewReader(stdin))
	}
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestRootCommandShowsHelp(t *testing.T) {
	out, err := runCommand(t, "", "--help")
	if err != nil {
		t.Fatalf("help: %v", err)
	}
	for _, sub := range []string{"capture", "transcripts", "notes", "config"} {
		if !strings.Contains(out, sub) {
			t.Fatalf("help missing %q:\n%s", sub, out)
		}
	}
}

func TestConfigInitWritesSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")
	out, err := runCommand(t, "", "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, target) {
		t.Fatalf("expected output to mention %s:\n%s", target, out)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "[recognition]") {
		t.Fatalf("sample config missing recognition section:\n%s", data)
	}

	// A second init without --overwrite refuses to clobber.
	if _, err := runCommand(t, "", "config", "init", "--path", target); err == nil {
		t.Fatal("expected error when config already exists")
	}
}

func TestNotesAddListRemoveFlow(t *testing.T) {
	cfgPath := writeTestConfig(t)

	out, err := runCommand(t, "", "--config", cfgPath, "notes", "add", "parent-1", "usuario", "quiere", "modo", "oscuro")
	if err != nil {
		t.Fatalf("notes add: %v", err)
	}
	if !strings.Contains(out, "Added note") {
		t.Fatalf("unexpected add output:\n%s", out)
	}
	noteID := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(out), "Added note"))

	out, err = runCommand(t, "", "--config", cfgPath, "notes", "list", "parent-1")
	if err != nil {
		t.Fatalf("notes list: %v", err)
	}
	if !strings.Contains(out, "usuario quiere modo oscuro") {
		t.Fatalf("list missing note content:\n%s", out)
	}

	// Declining the prompt keeps the note.
	out, err = runCommand(t, "n\n", "--config", cfgPath, "notes", "remove", noteID)
	if err != nil {
		t.Fatalf("notes remove (declined): %v", err)
	}
	if !strings.Contains(out, "Aborted") {
		t.Fatalf("expected abort message:\n%s", out)
	}

	out, err = runCommand(t, "", "--config", cfgPath, "notes", "list", "parent-1")
	if err != nil {
		t.Fatalf("notes list after abort: %v", err)
	}
	if !strings.Contains(out, "usuario quiere modo oscuro") {
		t.Fatalf("note should survive declined removal:\n%s", out)
	}
}

func TestNotesAddRejectsEmptyContent(t *testing.T) {
	cfgPath := writeTestConfig(t)
	if _, err := runCommand(t, "", "--config", cfgPath, "notes", "add", "parent-1", "   "); err == nil {
		t.Fatal("expected empty content to be rejected")
	}
}

func TestTranscriptsListEmpty(t *testing.T) {
	cfgPath := writeTestConfig(t)
	out, err := runCommand(t, "", "--config", cfgPath, "transcripts", "list", "parent-1")
	if err != nil {
		t.Fatalf("transcripts list: %v", err)
	}
	if !strings.Contains(out, "No transcript sessions found") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}
