// Package types holds the data shapes shared between the engine, the workflow
// and the document renderers.
package types

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownAlgorithm is returned when an algorithm identifier is not supported.
var ErrUnknownAlgorithm = errors.New("unknown hash algorithm")

// Algorithm identifies a digest the engine can compute.
type Algorithm string

const (
	MD5    Algorithm = "md5"
	SHA1   Algorithm = "sha1"
	SHA256 Algorithm = "sha256"
	SHA384 Algorithm = "sha384"
	SHA512 Algorithm = "sha512"
)

// Algorithms lists the supported identifiers in display order.
var Algorithms = []Algorithm{MD5, SHA1, SHA256, SHA384, SHA512}

// ParseAlgorithm validates s case-insensitively.
func ParseAlgorithm(s string) (Algorithm, error) {
	a := Algorithm(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Algorithms {
		if a == known {
			return a, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAlgorithm, s)
}

// DisplayName returns the name printed on reports, e.g. "SHA-256" or "MD5".
func (a Algorithm) DisplayName() string {
	return strings.Replace(strings.ToUpper(string(a)), "SHA", "SHA-", 1)
}

// FileHash is one (path, hash) record as emitted by the engine, in
// depth-first order. A path ending in a separator marks a folder boundary.
type FileHash struct {
	Path string `json:"path"`
	Hash string `json:"hash"`
}

// HashReport is the complete result of a single engine call.
type HashReport struct {
	Hash        string     `json:"hash"`
	TimeTaken   string     `json:"timeTaken"`
	FolderCount int        `json:"folderCount"`
	FileCount   int        `json:"fileCount"`
	Path        string     `json:"path"`
	FileHashes  []FileHash `json:"fileHashes"`
}

// Summary is the machine-readable report header without the per-entry list.
type Summary struct {
	Hash        string `json:"hash"`
	TimeTaken   string `json:"timeTaken"`
	FolderCount int    `json:"folderCount"`
	FileCount   int    `json:"fileCount"`
	Path        string `json:"path"`
}

// Summary returns the report header.
func (r *HashReport) Summary() Summary {
	return Summary{
		Hash:        r.Hash,
		TimeTaken:   r.TimeTaken,
		FolderCount: r.FolderCount,
		FileCount:   r.FileCount,
		Path:        r.Path,
	}
}

// Settings are the user-supplied fields printed on the rendered documents.
type Settings struct {
	Algorithm    Algorithm `json:"algorithm" yaml:"algorithm"`
	TestReportNo string    `json:"testReportNo" yaml:"testReportNo"`
	ProductName  string    `json:"productName" yaml:"productName"`
	ApplicantCo  string    `json:"applicantCo" yaml:"applicantCo"`
	CopyrightCo  string    `json:"copyrightCo" yaml:"copyrightCo"`
	TestDate     string    `json:"testDate" yaml:"testDate"`
	LabName      string    `json:"labName" yaml:"labName"`
	TesterName   string    `json:"testerName" yaml:"testerName"`
	DocFormID    string    `json:"docFormId" yaml:"docFormId"`
}

// ProgressPayload is a single event on the progress channel.
type ProgressPayload struct {
	Status    string `json:"status"`
	Processed int64  `json:"processed"`
	Total     int64  `json:"total"`
}

// ComparisonResult is the outcome of comparing two reports.
type ComparisonResult string

const (
	Identical ComparisonResult = "identical"
	Mismatch  ComparisonResult = "mismatch"
)

// Compare reports Identical iff both final hashes are byte-equal.
func Compare(primary, comparison *HashReport) ComparisonResult {
	if primary.Hash == comparison.Hash {
		return Identical
	}
	return Mismatch
}
