package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	pdfmodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	money "github.com/rezonia/invoice-assistant/internal/decimal"
	"github.com/rezonia/invoice-assistant/internal/model"
)

// DraftNumber is printed in place of an id for unsaved invoices
const DraftNumber = "DRAFT"

const (
	pageWidth    = 595.0
	pageHeight   = 842.0
	margin       = 50.0
	rowHeight    = 20.0
	itemsPerPage = 28
	fontRegular  = "Helvetica"
	fontBold     = "Helvetica-Bold"
	colQuantity  = 360.0
	colRate      = 450.0
	colAmount    = pageWidth - margin
)

// Document is everything printed on an invoice
type Document struct {
	Number      string
	Issuer      string
	ClientName  string
	ClientEmail string
	IssueDate   string
	DueDate     string
	Items       []model.LineItem
}

// FromDraft builds an unsaved document dated today
func FromDraft(d model.Draft, issuer string, now time.Time) Document {
	return Document{
		Number:      DraftNumber,
		Issuer:      issuer,
		ClientName:  d.ClientName,
		ClientEmail: d.ClientEmail,
		IssueDate:   now.UTC().Format(model.DateLayout),
		DueDate:     d.DueDate,
		Items:       d.Items,
	}
}

// FromInvoice builds a document for a stored invoice
func FromInvoice(inv model.Invoice, issuer string) Document {
	return Document{
		Number:      inv.ID,
		Issuer:      issuer,
		ClientName:  inv.ClientName,
		ClientEmail: inv.ClientEmail,
		IssueDate:   inv.InvoiceDate,
		DueDate:     inv.DueDate,
		Items:       inv.Items,
	}
}

// Total recomputes the document total from its items
func (d Document) Total() float64 {
	return money.ToFloat(model.SumItems(d.Items))
}

type textFont struct {
	Name string `json:"name"`
	Size int    `json:"size"`
}

type textElement struct {
	Value string     `json:"value"`
	Pos   [2]float64 `json:"pos"`
	Align string     `json:"align,omitempty"`
	Font  textFont   `json:"font"`
}

type pageContent struct {
	Text []textElement `json:"text"`
}

type page struct {
	Content pageContent `json:"content"`
}

// Layout is the pdfcpu create description of a document
type Layout struct {
	Paper string          `json:"paper"`
	Pages map[string]page `json:"pages"`
}

// TextValues returns every printed string in page order, for inspection
func (l Layout) TextValues() []string {
	var out []string
	for i := 1; i <= len(l.Pages); i++ {
		for _, t := range l.Pages[strconv.Itoa(i)].Content.Text {
			out = append(out, t.Value)
		}
	}
	return out
}

type pageWriter struct {
	pages []page
	y     float64
}

func (w *pageWriter) newPage() {
	w.pages = append(w.pages, page{})
	w.y = pageHeight - margin
}

// text places value at the current line. Blank values are skipped.
func (w *pageWriter) text(x float64, value, font string, size int, align string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	p := &w.pages[len(w.pages)-1]
	p.Content.Text = append(p.Content.Text, textElement{
		Value: value,
		Pos:   [2]float64{x, w.y},
		Align: align,
		Font:  textFont{Name: font, Size: size},
	})
}

func (w *pageWriter) down(lines float64) {
	w.y -= lines * rowHeight
}

// BuildLayout lays the document out on A4 portrait pages. Long item lists
// continue on further pages with the column header repeated.
func BuildLayout(doc Document) Layout {
	w := &pageWriter{}
	w.newPage()

	issuer := strings.TrimSpace(doc.Issuer)
	if issuer == "" {
		issuer = "INVOICE"
	}
	number := doc.Number
	if number == "" {
		number = DraftNumber
	}

	w.text(margin, issuer, fontBold, 22, "")
	w.text(colAmount, "Invoice", fontRegular, 14, "right")
	w.down(2.5)

	w.text(margin, "Bill To:", fontBold, 11, "")
	w.text(colAmount, "Invoice ID: "+number, fontRegular, 10, "right")
	w.down(1)
	w.text(margin, doc.ClientName, fontRegular, 10, "")
	w.text(colAmount, "Date: "+doc.IssueDate, fontRegular, 10, "right")
	w.down(1)
	w.text(margin, doc.ClientEmail, fontRegular, 10, "")
	w.text(colAmount, "Due Date: "+doc.DueDate, fontRegular, 10, "right")
	w.down(2)

	header := func() {
		w.text(margin, "Description", fontBold, 10, "")
		w.text(colQuantity, "Quantity", fontBold, 10, "right")
		w.text(colRate, "Rate", fontBold, 10, "right")
		w.text(colAmount, "Amount", fontBold, 10, "right")
		w.down(1)
	}
	header()

	for i, item := range doc.Items {
		if i > 0 && i%itemsPerPage == 0 {
			w.newPage()
			header()
		}
		w.text(margin, item.Description, fontRegular, 10, "")
		w.text(colQuantity, formatQuantity(item.Quantity), fontRegular, 10, "right")
		w.text(colRate, formatMoney(item.Rate), fontRegular, 10, "right")
		w.text(colAmount, money.FormatUSD(item.Amount()), fontRegular, 10, "right")
		w.down(1)
	}

	total := money.FormatUSD(model.SumItems(doc.Items))
	if w.y-4*rowHeight < margin/2 {
		w.newPage()
	}
	w.down(1)
	w.text(colRate, "Subtotal", fontRegular, 10, "right")
	w.text(colAmount, total, fontRegular, 10, "right")
	w.down(1)
	w.text(colRate, "Tax (0%)", fontRegular, 10, "right")
	w.text(colAmount, money.FormatUSD(money.Zero), fontRegular, 10, "right")
	w.down(1)
	w.text(colRate, "Total", fontBold, 12, "right")
	w.text(colAmount, total, fontBold, 12, "right")

	layout := Layout{Paper: "A4P", Pages: make(map[string]page, len(w.pages))}
	for i, p := range w.pages {
		layout.Pages[strconv.Itoa(i+1)] = p
	}
	return layout
}

func formatQuantity(q *float64) string {
	if q == nil {
		return ""
	}
	return strconv.FormatFloat(*q, 'f', -1, 64)
}

func formatMoney(v *float64) string {
	if v == nil {
		return ""
	}
	return money.FormatUSD(money.FromFloat(*v))
}

var disableConfigDir sync.Once

// Render writes doc as a PDF to w
func Render(w io.Writer, doc Document) error {
	disableConfigDir.Do(api.DisableConfigDir)

	layout, err := json.Marshal(BuildLayout(doc))
	if err != nil {
		return fmt.Errorf("encode layout: %w", err)
	}

	conf := pdfmodel.NewDefaultConfiguration()
	if err := api.Create(nil, bytes.NewReader(layout), w, conf); err != nil {
		return fmt.Errorf("create pdf: %w", err)
	}
	return nil
}

// RenderBytes renders doc into memory
func RenderBytes(doc Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := Render(&buf, doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
