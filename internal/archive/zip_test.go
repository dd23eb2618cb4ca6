package archive_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/klauspost/compress/zip"

	"niftymic/internal/archive"
	"niftymic/internal/services"
)

func writeZip(t *testing.T, path string, entries map[string]string) {
	t.Helper()
	out, err := os.Create(path)
	if err != nil {
		t.Fatalf("create zip: %v", err)
	}
	w := zip.NewWriter(out)
	for name, body := range entries {
		fw, err := w.Create(name)
		if err != nil {
			t.Fatalf("create entry %s: %v", name, err)
		}
		if _, err := fw.Write([]byte(body)); err != nil {
			t.Fatalf("write entry %s: %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close zip writer: %v", err)
	}
	if err := out.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
}

func TestExtractReturnsSortedFiles(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "study.zip")
	writeZip(t, src, map[string]string{
		"series2/IM0002": "b",
		"series1/IM0001": "a",
		"README":         "c",
	})
	dest := filepath.Join(dir, "out")
	if err := os.Mkdir(dest, 0o755); err != nil {
		t.Fatal(err)
	}

	files, err := archive.Extract(context.Background(), src, dest)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	want := []string{
		filepath.Join(dest, "README"),
		filepath.Join(dest, "series1", "IM0001"),
		filepath.Join(dest, "series2", "IM0002"),
	}
	if diff := cmp.Diff(want, files); diff != "" {
		t.Fatalf("extracted files mismatch (-want +got):\n%s", diff)
	}
	got, err := os.ReadFile(filepath.Join(dest, "series1", "IM0001"))
	if err != nil || string(got) != "a" {
		t.Fatalf("unexpected content %q: %v", got, err)
	}
}

func TestExtractRejectsInvalidInputs(t *testing.T) {
	dir := t.TempDir()

	empty := filepath.Join(dir, "empty.zip")
	writeZip(t, empty, nil)

	corrupt := filepath.Join(dir, "corrupt.zip")
	if err := os.WriteFile(corrupt, []byte("not a zip"), 0o644); err != nil {
		t.Fatal(err)
	}

	wrongExt := filepath.Join(dir, "study.tar")
	if err := os.WriteFile(wrongExt, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	escaping := filepath.Join(dir, "escape.zip")
	writeZip(t, escaping, map[string]string{"../evil": "x"})

	cases := map[string]string{
		"empty":     empty,
		"corrupt":   corrupt,
		"extension": wrongExt,
		"missing":   filepath.Join(dir, "missing.zip"),
		"zip slip":  escaping,
	}
	for name, path := range cases {
		t.Run(name, func(t *testing.T) {
			dest := t.TempDir()
			_, err := archive.Extract(context.Background(), path, dest)
			if !errors.Is(err, services.ErrArchiveInvalid) {
				t.Fatalf("expected ErrArchiveInvalid, got %v", err)
			}
		})
	}
	if _, err := os.Stat(filepath.Join(dir, "evil")); !os.IsNotExist(err) {
		t.Fatalf("zip slip entry written outside destination: %v", err)
	}
}

func TestCreateCollectsFilteredFilesFlat(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "output_dicom")
	if err := os.MkdirAll(filepath.Join(src, "nested"), 0o755); err != nil {
		t.Fatal(err)
	}
	for name, body := range map[string]string{
		"m000001.dcm":        "one",
		"nested/m000002.dcm": "two",
		"notes.txt":          "skip",
	} {
		if err := os.WriteFile(filepath.Join(src, filepath.FromSlash(name)), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	out := filepath.Join(dir, "result.zip")
	if err := archive.Create(context.Background(), src, out, archive.DicomFilter); err != nil {
		t.Fatalf("Create: %v", err)
	}

	reader, err := zip.OpenReader(out)
	if err != nil {
		t.Fatalf("open result: %v", err)
	}
	defer reader.Close()
	var names []string
	for _, f := range reader.File {
		names = append(names, f.Name)
	}
	if diff := cmp.Diff([]string{"m000001.dcm", "m000002.dcm"}, names); diff != "" {
		t.Fatalf("archive entries mismatch (-want +got):\n%s", diff)
	}
}

func TestDicomFilter(t *testing.T) {
	if !archive.DicomFilter("/x/slice.DCM") {
		t.Fatal("expected upper-case extension to match")
	}
	if archive.DicomFilter("/x/slice.dcm.bak") {
		t.Fatal("expected suffix match only")
	}
}
