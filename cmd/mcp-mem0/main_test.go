package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestRun_Version(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run([]string{"-version"}, strings.NewReader(""), &stdout, &stderr); code != 0 {
		t.Fatalf("exit = %d, stderr = %q", code, stderr.String())
	}
	if got := stdout.String(); got != "mcp-mem0 "+Version+"\n" {
		t.Errorf("stdout = %q", got)
	}
}

func TestRun_BadFlag(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run([]string{"-nope"}, strings.NewReader(""), &stdout, &stderr); code != 2 {
		t.Fatalf("exit = %d, want 2", code)
	}
	if !strings.Contains(stderr.String(), "flag provided but not defined") {
		t.Errorf("stderr = %q", stderr.String())
	}
}

func TestRun_UnreadableEnvFile(t *testing.T) {
	dir := t.TempDir()
	var stdout, stderr bytes.Buffer
	// A directory cannot be parsed as a dotenv file.
	if code := run([]string{"-env", dir}, strings.NewReader(""), &stdout, &stderr); code != 1 {
		t.Fatalf("exit = %d, want 1", code)
	}
	if !strings.HasPrefix(stderr.String(), "ERROR: read ") {
		t.Errorf("stderr = %q", stderr.String())
	}
}
