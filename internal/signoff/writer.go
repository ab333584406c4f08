package signoff

import (
	"strings"

	"github.com/gomutex/godocx/docx"
	"github.com/gomutex/godocx/wml/stypes"

	"github.com/uatkit/uat/internal/types"
)

// headerFill shades table header rows
const headerFill = "D9E2F3"

// cell is one table cell
type cell struct {
	text string
	bold bool
	fill string // hex RGB background
}

// writer adds the package's recurring blocks to a document and keeps the
// first error
type writer struct {
	doc *docx.RootDoc
	err error
}

func (w *writer) heading(level uint, text string) {
	if _, err := w.doc.AddHeading(text, level); err != nil && w.err == nil {
		w.err = err
	}
}

func (w *writer) centered(text string, size uint64, bold bool) {
	p := w.doc.AddEmptyParagraph()
	p.Justification(stypes.JustificationCenter)
	p.AddText(text).Size(size).Bold(bold)
}

// label starts a paragraph with bold text; callers append the value
func (w *writer) label(text string) *docx.Paragraph {
	p := w.doc.AddEmptyParagraph()
	p.AddText(text).Bold(true)
	return p
}

// lines writes multi-line text one paragraph per line
func (w *writer) lines(text string) {
	for _, line := range strings.Split(text, "\n") {
		w.doc.AddParagraph(strings.TrimRight(line, "\r"))
	}
}

// table adds a grid with an optional shaded header row
func (w *writer) table(header []string, rows [][]cell) {
	tbl := w.doc.AddTable()
	tbl.Style("TableGrid")
	if len(header) > 0 {
		row := tbl.AddRow()
		for _, h := range header {
			addCell(row, cell{text: h, bold: true, fill: headerFill})
		}
	}
	for _, r := range rows {
		row := tbl.AddRow()
		for _, c := range r {
			addCell(row, c)
		}
	}
	// Word merges tables that are not separated by a paragraph
	w.doc.AddEmptyParagraph()
}

func addCell(row *docx.Row, c cell) {
	tc := row.AddCell()
	if c.fill != "" {
		tc.BackgroundColor(c.fill)
	}
	tc.AddEmptyPara().AddText(c.text).Bold(c.bold)
}

func (w *writer) testTable(tests []*types.TestCase) {
	if len(tests) == 0 {
		w.doc.AddEmptyParagraph().AddText("No test cases linked.").Italic(true)
		return
	}
	rows := make([][]cell, 0, len(tests))
	for _, t := range tests {
		tester := t.TestedBy
		if tester == "" {
			tester = t.AssignedTo
		}
		rows = append(rows, []cell{
			{text: t.TestID},
			{text: t.Title},
			{text: string(t.Status), fill: statusFills[t.Status], bold: t.Status == types.TestFail},
			{text: orDash(tester)},
			{text: t.ExecutionNotes},
		})
	}
	w.table([]string{"Test ID", "Title", "Status", "Tested By", "Notes"}, rows)
}

// signature adds a labelled signature block
func (w *writer) signature(label, name string) {
	w.label(label)
	w.doc.AddParagraph("Signature: ______________________________")
	w.doc.AddParagraph("Name: " + name)
	w.doc.AddParagraph("Date: ____________________")
}
