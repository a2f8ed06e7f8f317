// Package renderer turns reconciliation results into markdown reports and
// CSV exports.
package renderer

import (
	"embed"
	"fmt"
	"io/fs"
	"strings"
	"text/template"

	"github.com/etnz/registrar"
	"github.com/etnz/registrar/date"
)

//go:embed templates/*.md
var templatesFS embed.FS

var templates = mustSub(templatesFS, "templates")

func mustSub(fsys fs.FS, dir string) fs.FS {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		panic(err)
	}
	return sub
}

var funcs = template.FuncMap{
	"date": func(d date.Date) string {
		if d.IsZero() {
			return "(no date)"
		}
		return d.String()
	},
	"signed": registrar.Quantity.SignedString,
	"holder": func(h registrar.Shareholder) string {
		if name := h.Name(); name != "" {
			return name
		}
		return h.ID
	},
}

// RenderBalances renders outstanding balances to a markdown string.
func RenderBalances(r *BalancesReport) string {
	return renderTemplate("balances", "balances.md", map[string]string{"warnings": "warnings.md"}, r)
}

// RenderRunning renders running totals to a markdown string.
func RenderRunning(r *RunningReport) string {
	return renderTemplate("running", "running.md", map[string]string{"warnings": "warnings.md"}, r)
}

// RenderLedger renders a ledger to a markdown string.
func RenderLedger(r *LedgerReport) string {
	return renderTemplate("ledger", "ledger.md", map[string]string{"warnings": "warnings.md"}, r)
}

// RenderRestrictions renders a restriction book to a markdown string.
func RenderRestrictions(r *RestrictionsReport) string {
	return renderTemplate("restrictions", "restrictions.md", map[string]string{"warnings": "warnings.md"}, r)
}

// RenderStatement renders a shareholder statement to a markdown string.
func RenderStatement(r *StatementReport) string {
	partials := map[string]string{
		"statement_legends": "statement_legends.md",
		"warnings":          "warnings.md",
	}
	return renderTemplate("statement", "statement.md", partials, r)
}

// renderTemplate is a generic utility to render a main template that depends on several partials.
func renderTemplate(templateName, mainFile string, partials map[string]string, data any) string {
	mainContent, err := fs.ReadFile(templates, mainFile)
	if err != nil {
		return fmt.Sprintf("error reading main template %q: %v", mainFile, err)
	}

	tmpl, err := template.New(templateName).Funcs(funcs).Parse(string(mainContent))
	if err != nil {
		return fmt.Sprintf("error parsing main template %q: %v", mainFile, err)
	}

	for name, file := range partials {
		content, err := fs.ReadFile(templates, file)
		if err != nil {
			return fmt.Sprintf("error reading partial template %q: %v", file, err)
		}
		if _, err := tmpl.New(name).Parse(string(content)); err != nil {
			return fmt.Sprintf("error parsing partial template %q for %q: %v", file, name, err)
		}
	}

	var b strings.Builder
	if err := tmpl.ExecuteTemplate(&b, templateName, data); err != nil {
		return fmt.Sprintf("error executing template %q: %v", templateName, err)
	}
	return b.String()
}
