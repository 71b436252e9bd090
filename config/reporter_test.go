package config

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func readArchive(t *testing.T, name string) map[string]string {
	t.Helper()
	zr, err := zip.OpenReader(name)
	if err != nil {
		t.Fatalf("unable to open report: %v", err)
	}
	defer zr.Close()

	res := make(map[string]string)
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatal(err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatal(err)
		}
		res[f.Name] = string(data)
	}
	return res
}

func TestReport(t *testing.T) {
	dir := t.TempDir()
	conf := ReporterConfig{Destination: filepath.Join(dir, "report.zip")}
	r, err := conf.Prepare()
	if err != nil {
		t.Fatal(err)
	}

	book := filepath.Join(dir, "book")
	if err := os.MkdirAll(filepath.Join(book, "OEBPS"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(book, "OEBPS", "a.xhtml"), []byte("before"), 0644); err != nil {
		t.Fatal(err)
	}
	log := filepath.Join(dir, "run.log")
	if err := os.WriteFile(log, []byte("log line"), 0644); err != nil {
		t.Fatal(err)
	}

	r.Store("final.log", log)
	r.StoreData("config.yaml", []byte("version: 1"))
	if err := r.StoreCopy("workspace", book); err != nil {
		t.Fatal(err)
	}
	// snapshot must not see later changes
	if err := os.WriteFile(filepath.Join(book, "OEBPS", "a.xhtml"), []byte("after"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := r.StoreCopy("workspace", book); err != nil {
		t.Fatal(err)
	}
	temps := append([]string(nil), r.temps...)

	if err := r.Close(); err != nil {
		t.Fatalf("Report.Close() error: %v", err)
	}

	files := readArchive(t, r.Name())
	if files["final.log"] != "log line" || files["config.yaml"] != "version: 1" {
		t.Errorf("unexpected archive content: %v", files)
	}
	if files["workspace/OEBPS/a.xhtml"] != "before" {
		t.Errorf("snapshot = %q, want %q", files["workspace/OEBPS/a.xhtml"], "before")
	}
	var versioned bool
	for name, data := range files {
		if strings.HasPrefix(name, "workspace-") && strings.HasSuffix(name, "a.xhtml") && data == "after" {
			versioned = true
		}
	}
	if !versioned {
		t.Errorf("second snapshot is missing: %v", files)
	}
	if !strings.Contains(files["MANIFEST"], "final.log") {
		t.Errorf("MANIFEST = %q", files["MANIFEST"])
	}

	for _, tmp := range temps {
		if _, err := os.Stat(tmp); !os.IsNotExist(err) {
			t.Errorf("temporary copy %s was not removed", tmp)
		}
	}
	if _, err := os.Stat(log); err != nil {
		t.Errorf("stored file should not be removed: %v", err)
	}
}

func TestReportPrepare_CleansName(t *testing.T) {
	dir := t.TempDir()
	conf := ReporterConfig{Destination: filepath.Join(dir, "run:1.zip")}
	r, err := conf.Prepare()
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(dir, "run1.zip"); r.Name() != want {
		t.Errorf("Name() = %s, want %s", r.Name(), want)
	}
	if err := r.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestReportClose_NilReport(t *testing.T) {
	var r *Report
	r.Store("x", "y")
	r.StoreData("x", nil)
	if err := r.StoreCopy("x", "y"); err != nil {
		t.Errorf("StoreCopy on nil report should not error, got: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Errorf("Close on nil report should not error, got: %v", err)
	}
	if r.Name() != "" {
		t.Error("nil report has a name")
	}
}

func TestReportClose_NilFile(t *testing.T) {
	r := &Report{entries: make(map[string]entry)}
	if err := r.Close(); err != nil {
		t.Errorf("Close with nil file should not error, got: %v", err)
	}
}

func TestLoggingPrepare(t *testing.T) {
	dir := t.TempDir()
	conf := LoggingConfig{
		ConsoleLogger: LoggerConfig{Level: "none"},
		FileLogger:    LoggerConfig{Level: "normal", Destination: filepath.Join(dir, "test.log"), Mode: "overwrite"},
	}
	log, err := conf.Prepare(nil)
	if err != nil {
		t.Fatal(err)
	}
	log.Debug("hidden")
	log.Info("visible", zap.String("key", "value"))
	_ = log.Sync()

	data, err := os.ReadFile(filepath.Join(dir, "test.log"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "visible") || strings.Contains(string(data), "hidden") {
		t.Errorf("unexpected log content:\n%s", data)
	}
}
