// Package report renders the ledger view as a PDF statement.
package report

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"ledger/internal/cache"
	"ledger/internal/core"
	"ledger/internal/ledger"
	"ledger/internal/view"

	"github.com/phpdave11/gofpdf"
	"github.com/shopspring/decimal"
)

const maxRows = 500

// Generator builds statements. The clock is injectable for tests.
type Generator struct {
	format view.Formatter
	title  string
	now    func() time.Time
}

func NewGenerator(format view.Formatter) *Generator {
	return &Generator{format: format, title: "Ledger statement", now: time.Now}
}

// Build renders a statement for snap. The table honours c; the summary and
// the category bars cover the whole ledger.
func (g *Generator) Build(snap ledger.Snapshot, c ledger.Criteria) ([]byte, error) {
	now := g.now()
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetCreationDate(now)
	pdf.SetTitle(g.title, true)
	pdf.SetMargins(14, 14, 14)
	pdf.SetAutoPageBreak(false, 14)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetTextColor(20, 20, 20)
	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, g.title)
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(80, 80, 80)
	pdf.Cell(0, 6, tr("Filter: "+describe(c)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Snapshot version %d, %d transactions", snap.Version, len(snap.Transactions)))
	pdf.Ln(10)

	sum := ledger.Summarize(snap.Transactions)
	g.summary(pdf, tr, sum)
	g.bars(pdf, tr, snap.Transactions)
	g.table(pdf, tr, ledger.FilterIndexed(snap.Transactions, c))

	pdf.SetY(-18)
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(120, 120, 120)
	pdf.CellFormat(0, 10, "Generated "+now.Format(time.RFC3339), "", 0, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf build failed: %w", err)
	}
	return buf.Bytes(), nil
}

func (g *Generator) summary(pdf *gofpdf.Fpdf, tr func(string) string, sum ledger.Summary) {
	pdf.SetDrawColor(200, 200, 200)
	pdf.SetFillColor(248, 248, 248)
	pdf.SetTextColor(20, 20, 20)
	pdf.SetFont("Helvetica", "B", 11)

	w := []float64{60.6, 60.6, 60.6}
	pdf.CellFormat(w[0], 10, "Income", "1", 0, "C", true, 0, "")
	pdf.CellFormat(w[1], 10, "Expense", "1", 0, "C", true, 0, "")
	pdf.CellFormat(w[2], 10, "Balance", "1", 1, "C", true, 0, "")

	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(w[0], 10, tr(g.format.Format(sum.Income)), "1", 0, "C", false, 0, "")
	pdf.CellFormat(w[1], 10, tr(g.format.Format(sum.Expense)), "1", 0, "C", false, 0, "")
	if sum.Balance.IsNegative() {
		pdf.SetTextColor(231, 76, 60)
	}
	pdf.CellFormat(w[2], 10, tr(g.format.Format(sum.Balance)), "1", 1, "C", false, 0, "")
	pdf.SetTextColor(20, 20, 20)
	pdf.Ln(6)
}

// bars draws the category series as horizontal bars scaled to the larger
// bucket.
func (g *Generator) bars(pdf *gofpdf.Fpdf, tr func(string) string, list []core.Transaction) {
	labels, values := ledger.CategorySeries(list)
	colors := [][3]int{{46, 139, 87}, {231, 76, 60}}

	top := decimal.Zero
	for _, v := range values {
		if v.GreaterThan(top) {
			top = v
		}
	}

	const labelW, barMaxW, h = 36.0, 110.0, 7.0
	pdf.SetFont("Helvetica", "", 10)
	for i, label := range labels {
		x, y := pdf.GetX(), pdf.GetY()
		pdf.CellFormat(labelW, h, tr(label), "", 0, "L", false, 0, "")
		w := 0.0
		if top.IsPositive() {
			w = values[i].Div(top).InexactFloat64() * barMaxW
		}
		c := colors[i%len(colors)]
		pdf.SetFillColor(c[0], c[1], c[2])
		if w > 0 {
			pdf.Rect(x+labelW, y+1, w, h-2, "F")
		}
		pdf.SetXY(x+labelW+barMaxW+2, y)
		pdf.CellFormat(0, h, tr(g.format.Format(values[i])), "", 1, "L", false, 0, "")
	}
	pdf.Ln(6)
}

var colW = []float64{70, 30, 30, 52}

func tableHeader(pdf *gofpdf.Fpdf) {
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(245, 245, 245)
	pdf.SetTextColor(20, 20, 20)
	pdf.CellFormat(colW[0], 8, "NAME", "1", 0, "L", true, 0, "")
	pdf.CellFormat(colW[1], 8, "CATEGORY", "1", 0, "C", true, 0, "")
	pdf.CellFormat(colW[2], 8, "DATE", "1", 0, "C", true, 0, "")
	pdf.CellFormat(colW[3], 8, "AMOUNT", "1", 1, "R", true, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(30, 30, 30)
}

func (g *Generator) table(pdf *gofpdf.Fpdf, tr func(string) string, entries []ledger.Entry) {
	tableHeader(pdf)
	if len(entries) == 0 {
		pdf.SetFont("Helvetica", "I", 9)
		pdf.CellFormat(0, 8, "No transactions", "1", 1, "C", false, 0, "")
		return
	}
	for i, e := range entries {
		if i >= maxRows {
			pdf.SetFont("Helvetica", "I", 9)
			pdf.CellFormat(0, 8, fmt.Sprintf("... %d more rows not shown", len(entries)-maxRows), "1", 1, "C", false, 0, "")
			break
		}
		if pdf.GetY() > 265 {
			pdf.AddPage()
			tableHeader(pdf)
		}
		t := e.Transaction
		pdf.CellFormat(colW[0], 7, tr(trimTo(t.Name, 40)), "1", 0, "L", false, 0, "")
		pdf.CellFormat(colW[1], 7, tr(trimTo(string(t.Category), 14)), "1", 0, "C", false, 0, "")
		pdf.CellFormat(colW[2], 7, t.Date, "1", 0, "C", false, 0, "")
		pdf.CellFormat(colW[3], 7, tr(g.format.Format(t.Amount)), "1", 1, "R", false, 0, "")
	}
}

func describe(c ledger.Criteria) string {
	if c.IsZero() {
		return "none"
	}
	var parts []string
	if c.Category != "" {
		parts = append(parts, "category "+string(c.Category))
	}
	if c.Date != "" {
		parts = append(parts, "date "+c.Date)
	}
	return strings.Join(parts, ", ")
}

func trimTo(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "..."
}

// Cached memoises statements per snapshot version and filter. The first
// build for a newer version drops every statement of older ones.
type Cached struct {
	gen   *Generator
	cache cache.Cache[[]byte]

	mu     sync.Mutex
	latest uint64
}

func NewCached(gen *Generator, c cache.Cache[[]byte]) *Cached {
	return &Cached{gen: gen, cache: c}
}

func cacheKey(version uint64, c ledger.Criteria) string {
	return fmt.Sprintf("%d|%s|%s", version, c.Category, c.Date)
}

// Build returns the statement and whether it came from the cache.
func (c *Cached) Build(snap ledger.Snapshot, crit ledger.Criteria) ([]byte, bool, error) {
	key := cacheKey(snap.Version, crit)
	if b, ok := c.cache.Get(key); ok {
		return b, true, nil
	}
	c.forgetOlder(snap.Version)
	b, err := c.gen.Build(snap, crit)
	if err != nil {
		return nil, false, err
	}
	c.cache.Set(key, b)
	return b, false, nil
}

func (c *Cached) forgetOlder(version uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if version <= c.latest {
		return
	}
	c.latest = version
	prefix := strconv.FormatUint(version, 10) + "|"
	c.cache.DeleteFunc(func(key string) bool { return !strings.HasPrefix(key, prefix) })
}
