// Package proposal renders customer-facing proposal PDFs.
package proposal

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/diewo77/go-submittals/internal/models"
	"github.com/jung-kurt/gofpdf"
)

const (
	Title  = "PROPOSAL / SUBMITTAL"
	Terms  = "Terms: 50% deposit required. Quote valid for 30 days."
	margin = 20.0
)

// Proposal is everything printed on one document.
type Proposal struct {
	Submittal models.Submittal
	Customer  models.Customer
	Options   []models.QuoteOption
	Date      time.Time
}

// FileName is the download name for the proposal.
func (p Proposal) FileName() string {
	return fmt.Sprintf("Proposal_%s.pdf", p.Submittal.QuoteNumber)
}

// Renderer is implemented by proposal PDF generators.
type Renderer interface {
	Generate(p Proposal) ([]byte, error)
}

// Generator renders proposals with gofpdf's core fonts.
type Generator struct {
	CompanyName string
}

func New(companyName string) *Generator { return &Generator{CompanyName: companyName} }

func (g *Generator) Generate(p Proposal) ([]byte, error) {
	if len(p.Options) == 0 {
		return nil, errors.New("proposal has no options")
	}
	if p.Date.IsZero() {
		p.Date = time.Now()
	}

	pdf := gofpdf.New("P", "mm", "Letter", "")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(true, margin)
	pdf.SetTitle(Title+" "+p.Submittal.QuoteNumber, true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	if g.CompanyName != "" {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(0, 5, tr(g.CompanyName), "", 1, "L", false, 0, "")
	}
	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, Title, "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 6, "Date: "+p.Date.Format("January 2, 2006"), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, "Quote #: "+tr(p.Submittal.QuoteNumber), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 7, "Customer", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 6, tr(p.Customer.FullName()), "", 1, "L", false, 0, "")
	if p.Customer.Email != "" {
		pdf.CellFormat(0, 6, tr(p.Customer.Email), "", 1, "L", false, 0, "")
	}
	if p.Customer.Phone != "" {
		pdf.CellFormat(0, 6, FormatPhone(p.Customer.Phone), "", 1, "L", false, 0, "")
	}
	pdf.CellFormat(0, 6, "Project: "+tr(p.Submittal.JobName), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pageWidth, _ := pdf.GetPageSize()
	contentWidth := pageWidth - 2*margin
	for i, opt := range p.Options {
		pdf.SetDrawColor(200, 200, 200)
		pdf.Line(margin, pdf.GetY(), pageWidth-margin, pdf.GetY())
		pdf.Ln(3)

		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(contentWidth-40, 7, tr(fmt.Sprintf("OPTION %d: %s", i+1, opt.Material)), "", 0, "L", false, 0, "")
		pdf.CellFormat(40, 7, FormatMoney(opt.Price), "", 1, "R", false, 0, "")

		pdf.SetFont("Helvetica", "", 10)
		for _, line := range optionDetails(opt) {
			pdf.MultiCell(contentWidth, 5, tr(line), "", "L", false)
		}
		pdf.Ln(3)
	}

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "I", 10)
	pdf.MultiCell(contentWidth, 5, Terms, "", "L", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		log.Printf("proposal pdf: output failed for %s: %v", p.Submittal.QuoteNumber, err)
		return nil, err
	}
	return buf.Bytes(), nil
}

func optionDetails(o models.QuoteOption) []string {
	var lines []string
	add := func(label, value string) {
		if strings.TrimSpace(value) != "" {
			lines = append(lines, label+": "+value)
		}
	}
	add("Manufacturer", o.Manufacturer)
	add("Style", o.MountingStyle)
	add("Color", o.Color)
	lines = append(lines, fmt.Sprintf("Quantity: %d", o.Quantity))
	add("Shipping", o.ShippingArea)
	return lines
}

// FormatMoney renders an amount as $1,234.50.
func FormatMoney(v float64) string {
	neg := v < 0
	if neg {
		v = -v
	}
	cents := int64(models.RoundCents(v)*100 + 0.5)
	whole, frac := cents/100, cents%100

	digits := fmt.Sprintf("%d", whole)
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	s := fmt.Sprintf("$%s.%02d", b.String(), frac)
	if neg {
		s = "-" + s
	}
	return s
}

// FormatPhone renders 10 digit numbers as (555) 123-4567 and leaves others untouched.
func FormatPhone(digits string) string {
	if len(digits) != 10 {
		return digits
	}
	return fmt.Sprintf("(%s) %s-%s", digits[:3], digits[3:6], digits[6:])
}
