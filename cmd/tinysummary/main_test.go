package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/localrivet/tinysummary"
)

const article = "Solar panels convert sunlight into electricity. " +
	"Panels on a roof can power a home during the day. " +
	"Batteries store extra electricity for the night. " +
	"My neighbor owns a red bicycle."

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Chdir(t.TempDir())
	for _, v := range []string{"OPENAI_API_KEY", "ANTHROPIC_API_KEY", "GOOGLE_API_KEY", "XAI_API_KEY"} {
		t.Setenv(v, "")
	}

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestSummarizeLocal_Stdin(t *testing.T) {
	out, err := execute(t, article, "summarize", "--local", "--max-sentences", "2")
	if err != nil {
		t.Fatalf("summarize failed: %v", err)
	}
	if want := tinysummary.Extract(article, 2) + "\n"; out != want {
		t.Errorf("output = %q, want %q", out, want)
	}
}

func TestSummarize_FileJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "article.txt")
	if err := os.WriteFile(path, []byte(article), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "", "summarize", path, "--json", "--max-sentences", "1")
	if err != nil {
		t.Fatalf("summarize failed: %v", err)
	}

	var result tinysummary.Result
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if result.Source != "extractive" || result.Summary != tinysummary.Extract(article, 1) {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestSummarize_MissingFile(t *testing.T) {
	if _, err := execute(t, "", "summarize", "does-not-exist.txt", "--local"); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestConfigInitAndShow(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tinysummary.json")

	if _, err := execute(t, "", "config", "init", path); err != nil {
		t.Fatalf("config init failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	if _, err := execute(t, "", "config", "init", path); err == nil {
		t.Error("expected config init to refuse overwriting without --force")
	}

	out, err := execute(t, "", "--config", path, "config", "show", "--format", "yaml")
	if err != nil {
		t.Fatalf("config show failed: %v", err)
	}
	if !strings.Contains(out, "backend: memory") || !strings.Contains(out, "max_sentences: 5") {
		t.Errorf("unexpected yaml output:\n%s", out)
	}

	out, err = execute(t, "", "--config", path, "config", "show")
	if err != nil {
		t.Fatalf("config show failed: %v", err)
	}
	var shown map[string]interface{}
	if err := json.Unmarshal([]byte(out), &shown); err != nil {
		t.Fatalf("config show json is invalid: %v", err)
	}
	if _, ok := shown["cache"]; !ok {
		t.Errorf("cache section missing: %v", shown)
	}

	if _, err := execute(t, "", "--config", path, "config", "show", "--format", "toml"); err == nil {
		t.Error("expected an error for an unknown format")
	}
}

func TestCacheStats(t *testing.T) {
	out, err := execute(t, "", "cache", "stats")
	if err != nil {
		t.Fatalf("cache stats failed: %v", err)
	}
	if !strings.Contains(out, "backend=memory entries=0") {
		t.Errorf("unexpected output %q", out)
	}
}
