package main

import (
	"fmt"
	"io"
	"strings"
	"testing"

	"niftymic/internal/deps"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("Masks", statusWarn, "0", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "Masks:", "[WARN] 0")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("Stage", statusOK, "Reconstructed", true)
	if !strings.HasPrefix(got, ansiGreen) || !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected green line, got %q", got)
	}
}

func TestRenderDependency(t *testing.T) {
	ok := renderDependency(deps.Status{Name: "dcm2niix", Available: true, Path: "/usr/bin/dcm2niix"}, false)
	if !strings.Contains(ok, "[OK] /usr/bin/dcm2niix") {
		t.Fatalf("unexpected available line %q", ok)
	}
	missing := renderDependency(deps.Status{Name: "medcon", Detail: `binary "medcon" not found`, Description: "Required for NIfTI to DICOM conversion"}, false)
	if !strings.Contains(missing, "[ERROR]") || !strings.Contains(missing, "Required for NIfTI") {
		t.Fatalf("unexpected missing line %q", missing)
	}
	optional := renderDependency(deps.Status{Name: "extra", Optional: true, Detail: "not configured"}, false)
	if !strings.Contains(optional, "[WARN]") {
		t.Fatalf("expected warning for optional dependency, got %q", optional)
	}
}

func TestRenderTablePadsShortRows(t *testing.T) {
	out := renderTable([]column{{header: "Name"}, {header: "Size", align: alignRight}}, [][]string{{"scan01"}})
	if !strings.Contains(out, "scan01") || !strings.Contains(out, "Size") {
		t.Fatalf("unexpected table:\n%s", out)
	}
	if renderTable(nil, nil) != "" {
		t.Fatal("expected empty output without columns")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("got %q", got)
	}
	if got := truncate("abcdefghij", 5); got != "abcd…" {
		t.Fatalf("got %q", got)
	}
}

func TestShouldColorizeNonFile(t *testing.T) {
	if shouldColorize(io.Discard) {
		t.Fatal("expected non-file writer to disable color")
	}
}
