package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestRunPrintsTable(t *testing.T) {
	var out, errOut bytes.Buffer
	err := run([]string{"-iterations", "10", "-bench", "mutex_uncontended,sem_signal", "-parallel", "2"}, &out, &errOut)
	if err != nil {
		t.Fatalf("run() err = %v, stderr %s", err, errOut.String())
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("table has %d lines, want 3:\n%s", len(lines), out.String())
	}
	if !strings.Contains(lines[1], "mutex_uncontended") || !strings.Contains(lines[2], "sem_signal") {
		t.Fatalf("rows out of order:\n%s", out.String())
	}
	if !strings.Contains(lines[1], "10") {
		t.Fatalf("row %q missing sample count", lines[1])
	}
}

func TestRunVersion(t *testing.T) {
	var out bytes.Buffer
	if err := run([]string{"-version"}, &out, &bytes.Buffer{}); err != nil {
		t.Fatalf("run(-version) err = %v", err)
	}
	if !strings.HasPrefix(out.String(), "benchport dev") {
		t.Fatalf("version output = %q", out.String())
	}
}

func TestRunRejectsBadFlags(t *testing.T) {
	for _, args := range [][]string{
		{"-counter", "sundial"},
		{"-bench", "nope"},
		{"-iterations", "0"},
		{"-log-level", "loud"},
	} {
		if err := run(args, &bytes.Buffer{}, &bytes.Buffer{}); err == nil {
			t.Fatalf("run(%v) err = nil, want error", args)
		}
	}
}

func TestClockCounterRuns(t *testing.T) {
	var out bytes.Buffer
	if err := run([]string{"-iterations", "3", "-bench", "thread_switch", "-counter", "clock"}, &out, &bytes.Buffer{}); err != nil {
		t.Fatalf("run() err = %v", err)
	}
}

func TestRunRescalesCounter(t *testing.T) {
	var out, errOut bytes.Buffer
	args := []string{"-iterations", "5", "-bench", "mutex_uncontended", "-counter-hz", "3000000000", "-log-level", "info"}
	if err := run(args, &out, &errOut); err != nil {
		t.Fatalf("run() err = %v, stderr %s", err, errOut.String())
	}
	if !strings.Contains(errOut.String(), "@3000000000Hz") {
		t.Fatalf("log does not name the rescaled counter:\n%s", errOut.String())
	}
	if !strings.Contains(out.String(), "mutex_uncontended") {
		t.Fatalf("table missing row:\n%s", out.String())
	}
}
