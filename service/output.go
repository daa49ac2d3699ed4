package service

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/foomo/contentexport/service/vo"
)

// printer renders the console transcript of a run. Styles are bound to the
// writer so plain buffers get plain text.
type printer struct {
	w       io.Writer
	title   lipgloss.Style
	dim     lipgloss.Style
	success lipgloss.Style
	failure lipgloss.Style
	box     lipgloss.Style
}

func newPrinter(w io.Writer) *printer {
	r := lipgloss.NewRenderer(w)
	return &printer{
		w:       w,
		title:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("33")),
		dim:     r.NewStyle().Foreground(lipgloss.Color("240")),
		success: r.NewStyle().Foreground(lipgloss.Color("42")),
		failure: r.NewStyle().Foreground(lipgloss.Color("196")),
		box: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("33")).
			Padding(0, 1),
	}
}

func (p *printer) header(settings Settings) {
	content := fmt.Sprintf("%s\n%s %s  %s %s",
		p.title.Render("Confluence recursive PDF export"),
		p.dim.Render("Space:"), settings.SpaceKey,
		p.dim.Render("Output:"), settings.OutputDir,
	)
	if settings.ParentPageID != "" {
		content += fmt.Sprintf("\n%s %s", p.dim.Render("Parent page:"), settings.ParentPageID)
	}
	fmt.Fprintln(p.w, p.box.Render(content))
}

func (p *printer) section(name string) {
	fmt.Fprintln(p.w)
	fmt.Fprintln(p.w, p.title.Render("--- "+name+" ---"))
}

func (p *printer) line(s string) {
	fmt.Fprintln(p.w, s)
}

func (p *printer) problem(s string) {
	fmt.Fprintln(p.w, p.failure.Render("Error: "+s))
}

// visit prints one tree line, indented two spaces per level.
func (p *printer) visit(v vo.Visit) {
	fmt.Fprintf(p.w, "%s- %s %s\n", strings.Repeat("  ", v.Depth), v.Page.Title, p.dim.Render("(ID: "+v.Page.ID+")"))
}

func (p *printer) progress(page vo.PageRef, n, total int) {
	fmt.Fprintf(p.w, "  Processing %s (ID: %s) %s\n", page.Title, page.ID, p.dim.Render(fmt.Sprintf("(%d/%d)", n, total)))
}

func (p *printer) saved(path string) {
	fmt.Fprintf(p.w, "    %s %s\n", p.success.Render("saved"), path)
}

func (p *printer) failed(page vo.PageRef) {
	fmt.Fprintf(p.w, "    %s %s\n", p.failure.Render("failed"), page.Title)
}

func (p *printer) totals(report *Report, logFile string) {
	content := fmt.Sprintf("%s\n%s %s  %s %s",
		p.title.Render("PDF export finished"),
		p.dim.Render("Succeeded:"), p.success.Render(fmt.Sprint(report.Succeeded)),
		p.dim.Render("Failed:"), p.failure.Render(fmt.Sprint(report.Failed())),
	)
	if report.Failed() > 0 && logFile != "" {
		content += fmt.Sprintf("\n%s %s", p.dim.Render("See log for details:"), logFile)
	}
	fmt.Fprintln(p.w)
	fmt.Fprintln(p.w, p.box.Render(content))
}

func (p *printer) listing(pages []vo.PageRef) {
	p.section("Summary of all listed pages")
	if len(pages) == 0 {
		p.line("No pages were listed.")
		return
	}
	p.line(fmt.Sprintf("Unique pages processed: %d", len(pages)))
	for i, page := range pages {
		fmt.Fprintf(p.w, "  %d. %s %s\n", i+1, page.Title, p.dim.Render("(ID: "+page.ID+")"))
	}
}
