// Package archive bundles a finished report into a zip: the JSON summary, the
// JSON entry list, and both rendered documents.
package archive

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/lyallcooper/hashmaker/internal/render"
	"github.com/lyallcooper/hashmaker/internal/types"
)

// ErrNoReport is returned when there is nothing to export.
var ErrNoReport = errors.New("no report to export")

// Entry is one file inside the bundle.
type Entry struct {
	Name string
	Data []byte
}

// BundleName returns the file name for a bundle created at ts.
func BundleName(ts time.Time) string {
	return fmt.Sprintf("hash-results-%d.zip", ts.UnixMilli())
}

// Entries builds the bundle contents. Document names use the report number
// exactly as entered.
func Entries(report *types.HashReport, settings types.Settings, ts time.Time) ([]Entry, error) {
	if report == nil {
		return nil, ErrNoReport
	}

	summary, err := encodeJSON(report.Summary())
	if err != nil {
		return nil, fmt.Errorf("failed to encode summary: %w", err)
	}

	fileHashes := report.FileHashes
	if fileHashes == nil {
		fileHashes = []types.FileHash{}
	}
	list, err := encodeJSON(struct {
		FileHashes []types.FileHash `json:"fileHashes"`
	}{fileHashes})
	if err != nil {
		return nil, fmt.Errorf("failed to encode file hashes: %w", err)
	}

	listHTML, err := render.ListHTML(report, settings)
	if err != nil {
		return nil, err
	}
	reportHTML, err := render.ReportHTML(report, settings)
	if err != nil {
		return nil, err
	}

	stamp := ts.UnixMilli()
	return []Entry{
		{Name: fmt.Sprintf("hash-report-%d.json", stamp), Data: summary},
		{Name: fmt.Sprintf("hash-list-%d.json", stamp), Data: list},
		{Name: settings.TestReportNo + "_HashList.html", Data: []byte(listHTML)},
		{Name: settings.TestReportNo + "_HashReport.html", Data: []byte(reportHTML)},
	}, nil
}

// Write streams the bundle to w. Entry timestamps are ts.
func Write(w io.Writer, report *types.HashReport, settings types.Settings, ts time.Time) error {
	entries, err := Entries(report, settings, ts)
	if err != nil {
		return err
	}
	return WriteEntries(w, entries, ts)
}

// WriteEntries zips prepared entries to w.
func WriteEntries(w io.Writer, entries []Entry, ts time.Time) error {
	zw := zip.NewWriter(w)
	for _, e := range entries {
		f, err := zw.CreateHeader(&zip.FileHeader{
			Name:     e.Name,
			Method:   zip.Deflate,
			Modified: ts.UTC(),
		})
		if err != nil {
			return fmt.Errorf("failed to add %s: %w", e.Name, err)
		}
		if _, err := f.Write(e.Data); err != nil {
			return fmt.Errorf("failed to write %s: %w", e.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finish archive: %w", err)
	}
	return nil
}

// WriteFile writes the bundle to path, or into path/BundleName(ts) when path
// is an existing directory. It returns the file written.
func WriteFile(path string, report *types.HashReport, settings types.Settings, ts time.Time) (string, error) {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, BundleName(ts))
	}

	var buf bytes.Buffer
	if err := Write(&buf, report, settings, ts); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return "", fmt.Errorf("failed to write archive: %w", err)
	}
	return path, nil
}

func encodeJSON(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
