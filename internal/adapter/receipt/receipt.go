// Package receipt renders payout receipts for approved withdrawals.
package receipt

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/phpdave11/gofpdf"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
)

var ErrMissingInput = errors.New("receipt: withdrawal and driver are required")

type PDFRenderer struct {
	issuer string
}

func NewPDFRenderer(issuer string) *PDFRenderer {
	if issuer == "" {
		issuer = "Ride Dispatch"
	}
	return &PDFRenderer{issuer: issuer}
}

func (r *PDFRenderer) Render(w *models.Withdrawal, d *models.Driver) ([]byte, error) {
	if w == nil || d == nil {
		return nil, ErrMissingInput
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Payout receipt", false)
	pdf.SetAuthor(r.issuer, false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "PAYOUT RECEIPT")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	lines := []string{
		"Receipt No   : " + w.ID.String(),
		"Driver       : " + safe(d.Name, d.ID.String()),
		"Requested at : " + w.CreatedAt.UTC().Format(time.DateTime),
	}
	if w.ResolvedAt != nil {
		lines = append(lines, "Approved at  : "+w.ResolvedAt.UTC().Format(time.DateTime))
	}
	for _, s := range lines {
		pdf.Cell(0, 7, s)
		pdf.Ln(7)
	}
	pdf.Ln(4)

	if d.Bank != nil {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.Cell(0, 7, "Paid to:")
		pdf.Ln(7)

		pdf.SetFont("Helvetica", "", 12)
		pdf.Cell(0, 7, "Bank    : "+safe(d.Bank.BankName, "-"))
		pdf.Ln(7)
		pdf.Cell(0, 7, "Holder  : "+safe(d.Bank.HolderName, "-"))
		pdf.Ln(7)
		pdf.Cell(0, 7, "Account : "+d.Bank.MaskedAccount())
		pdf.Ln(10)
	}

	pdf.SetFont("Helvetica", "B", 14)
	pdf.Cell(0, 8, fmt.Sprintf("Amount: %d", w.Amount))
	pdf.Ln(12)

	if w.Note != "" {
		pdf.SetFont("Helvetica", "I", 10)
		pdf.MultiCell(0, 6, "Note: "+w.Note, "", "", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("receipt: render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func safe(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
