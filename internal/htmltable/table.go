package htmltable

import (
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/cockroachdb/errors"
	"github.com/refcal/refcal/internal/textutil"
	"golang.org/x/net/html"
)

// ErrNoTable is returned when a document has no table rows at all.
// It usually means the site layout changed or the session landed on a login page.
var ErrNoTable = errors.New("no recognizable table in document")

// Input is a form control found inside a cell.
type Input struct {
	Type    string
	Name    string
	Value   string
	Checked bool
}

// Cell is the visible content of one <td>.
type Cell struct {
	Text   string
	Link   string
	Inputs []Input
}

// Row is one <tr> of the listing. Index is the 1-based position of the row in
// its table, header included, so warnings can point back at the source HTML.
type Row struct {
	Index int
	Cells []Cell
}

// Table is the generic row/cell view of an HTML listing.
type Table struct {
	Headers []string
	Rows    []Row
}

// Parse reads an HTML document and returns its listing table: the table with
// the most data rows. Nested layout tables are never merged into their parent.
func Parse(r io.Reader) (*Table, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "parsing HTML")
	}

	var best *Table
	bestScore := -1

	doc.Find("table").Each(func(_ int, tbl *goquery.Selection) {
		t := parseTable(tbl)
		if len(t.Rows) == 0 && len(t.Headers) == 0 {
			return
		}
		score := t.dataRows()
		if score > bestScore {
			best = t
			bestScore = score
		}
	})

	if best == nil {
		return nil, ErrNoTable
	}
	return best, nil
}

// ParseString is Parse for an in-memory document.
func ParseString(html string) (*Table, error) {
	return Parse(strings.NewReader(html))
}

func parseTable(tbl *goquery.Selection) *Table {
	t := &Table{}
	owner := tbl.Get(0)

	index := 0
	tbl.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		if tr.Closest("table").Get(0) != owner {
			return
		}
		index++

		tds := tr.ChildrenFiltered("td")
		ths := tr.ChildrenFiltered("th")
		inHead := tr.ParentsFiltered("thead").Length() > 0

		// The first row made only of <th>, or any <thead> row, is the header row.
		if t.Headers == nil && len(t.Rows) == 0 && (inHead || (tds.Length() == 0 && ths.Length() > 0)) {
			tr.ChildrenFiltered("th, td").Each(func(_ int, th *goquery.Selection) {
				t.Headers = append(t.Headers, cellText(th))
			})
			return
		}

		row := Row{Index: index}
		tds.Each(func(_ int, td *goquery.Selection) {
			row.Cells = append(row.Cells, parseCell(td))
		})
		t.Rows = append(t.Rows, row)
	})

	return t
}

func (t *Table) dataRows() int {
	n := 0
	for _, r := range t.Rows {
		if len(r.Cells) > 0 {
			n++
		}
	}
	return n
}

func parseCell(td *goquery.Selection) Cell {
	c := Cell{Text: cellText(td)}

	if href, ok := td.Find("a[href]").First().Attr("href"); ok {
		c.Link = strings.TrimSpace(href)
	}

	td.Find("input").Each(func(_ int, in *goquery.Selection) {
		_, checked := in.Attr("checked")
		c.Inputs = append(c.Inputs, Input{
			Type:    strings.ToLower(in.AttrOr("type", "text")),
			Name:    in.AttrOr("name", ""),
			Value:   strings.TrimSpace(in.AttrOr("value", "")),
			Checked: checked,
		})
	})
	return c
}

// cellText returns the visible text of a cell: form controls, scripts and
// styles are dropped on a copy so the document itself is never mutated.
func cellText(sel *goquery.Selection) string {
	c := sel.Clone()
	c.Find("input, script, style, select, button").Remove()
	c.Find("br").ReplaceWithNodes(&html.Node{Type: html.TextNode, Data: " "})
	return textutil.Collapse(c.Text())
}

// Cell returns the cell at idx, or an empty cell when the row is shorter.
func (r Row) Cell(idx int) Cell {
	if idx < 0 || idx >= len(r.Cells) {
		return Cell{}
	}
	return r.Cells[idx]
}

// Inputs returns every form control in the row.
func (r Row) Inputs() []Input {
	var out []Input
	for _, c := range r.Cells {
		out = append(out, c.Inputs...)
	}
	return out
}

// Empty reports whether the row carries no visible text at all.
func (r Row) Empty() bool {
	for _, c := range r.Cells {
		if c.Text != "" {
			return false
		}
	}
	return true
}
