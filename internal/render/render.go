// Package render produces the two printable documents for a finished report:
// the hash code list (every entry, walked as a tree) and the one-page
// confirmation of hash code. Output depends only on the inputs.
package render

import (
	"embed"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/lyallcooper/hashmaker/internal/tree"
	"github.com/lyallcooper/hashmaker/internal/types"
)

// ToolName is printed on the confirmation document.
const ToolName = "HashMaker v3.0"

// InvalidDate is printed when the settings test date cannot be parsed.
const InvalidDate = "Invalid Date"

//go:embed templates
var templateFS embed.FS

var (
	stylesheet = mustRead("templates/style.css")
	listTmpl   = template.Must(template.New("list").Parse(mustRead("templates/list.html.tmpl")))
	reportTmpl = template.Must(template.New("report").Parse(mustRead("templates/report.html.tmpl")))
)

func mustRead(name string) string {
	b, err := templateFS.ReadFile(name)
	if err != nil {
		panic(fmt.Sprintf("render: missing embedded %s: %v", name, err))
	}
	return string(b)
}

// Settings values are inserted verbatim, so text/template is used rather than
// html/template.
type listData struct {
	Style    string
	Settings types.Settings
	Report   *types.HashReport
	Body     string
}

type reportData struct {
	Style     string
	Settings  types.Settings
	Report    *types.HashReport
	Tool      string
	Algorithm string
	Date      string
}

// ListHTML renders the hash code list document.
func ListHTML(report *types.HashReport, settings types.Settings) (string, error) {
	t := tree.Build(report.FileHashes)

	var body strings.Builder
	writeNodes(&body, t, t.Roots)

	var out strings.Builder
	err := listTmpl.Execute(&out, listData{
		Style:    stylesheet,
		Settings: settings,
		Report:   report,
		Body:     body.String(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to render hash list: %w", err)
	}
	return out.String(), nil
}

// writeNodes emits ids and their subtrees in order. A folder title is framed
// by two rules even when it has no children.
func writeNodes(b *strings.Builder, t *tree.Tree, ids []int) {
	for _, id := range ids {
		n := t.Nodes[id]
		switch t.Kind(id) {
		case tree.FolderTitle:
			b.WriteString("<hr class=\"hr_folder_name\">\n")
			b.WriteString("&#8756; " + n.Path + "<br>\n")
			b.WriteString("<hr class=\"hr_folder_name\">\n")
			writeNodes(b, t, n.Children)
		case tree.FolderSummary:
			b.WriteString("&#9830;&#9830; " + n.Path + "<br>")
			if n.Hash != "" {
				b.WriteString(n.Hash + "<br>")
			}
			b.WriteString("<br>\n")
		default:
			b.WriteString("&#9830; " + n.Path + "<br>" + n.Hash + "<br><br>\n")
		}
	}
}

// ReportHTML renders the confirmation of hash code document.
func ReportHTML(report *types.HashReport, settings types.Settings) (string, error) {
	var out strings.Builder
	err := reportTmpl.Execute(&out, reportData{
		Style:     stylesheet,
		Settings:  settings,
		Report:    report,
		Tool:      ToolName,
		Algorithm: settings.Algorithm.DisplayName(),
		Date:      FormatTestDate(settings.TestDate),
	})
	if err != nil {
		return "", fmt.Errorf("failed to render hash report: %w", err)
	}
	return out.String(), nil
}

var dateLayouts = []string{"2006-01-02", time.RFC3339, "2006-01-02T15:04:05", "2006/01/02"}

// FormatTestDate formats a settings date as "January 2, 2006".
func FormatTestDate(s string) string {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			return d.Format("January 2, 2006")
		}
	}
	return InvalidDate
}
