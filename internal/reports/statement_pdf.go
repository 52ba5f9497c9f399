package reports

import (
	"bytes"
	"strings"
	"time"

	"github.com/phpdave11/gofpdf"

	"github.com/ishantswami13-crypto/vantro-pay/internal/domain"
	"github.com/ishantswami13-crypto/vantro-pay/internal/ledger"
	"github.com/ishantswami13-crypto/vantro-pay/internal/money"
)

const maxRows = 200

// StatementPDF renders the user's ledger (newest first) with sent/received totals.
func StatementPDF(u *domain.User, entries []domain.LedgerEntry, generatedAt time.Time) ([]byte, error) {
	sum := ledger.Summarize(entries)

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(14, 14, 14)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 48)
	pdf.SetTextColor(235, 235, 235)
	pdf.Text(25, 140, "VANTRO PAY")

	pdf.SetTextColor(20, 20, 20)
	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "Account Statement")
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(80, 80, 80)
	pdf.Cell(0, 6, "Account: "+u.Name+" <"+u.Email+">")
	pdf.Ln(5)
	pdf.Cell(0, 6, "ID: "+maskID(u.ID.String()))
	pdf.Ln(5)
	pdf.Cell(0, 6, "Balance: "+withCommas(money.Format(u.Balance)))
	pdf.Ln(10)

	pdf.SetDrawColor(200, 200, 200)
	pdf.SetFillColor(248, 248, 248)
	pdf.SetTextColor(20, 20, 20)
	pdf.SetFont("Helvetica", "B", 11)

	sumW := []float64{62, 62, 62}
	pdf.CellFormat(sumW[0], 10, "Received", "1", 0, "C", true, 0, "")
	pdf.CellFormat(sumW[1], 10, "Sent", "1", 0, "C", true, 0, "")
	pdf.CellFormat(sumW[2], 10, "Net", "1", 1, "C", true, 0, "")

	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(sumW[0], 10, withCommas(money.Format(sum.Received)), "1", 0, "C", false, 0, "")
	pdf.CellFormat(sumW[1], 10, withCommas(money.Format(sum.Sent)), "1", 0, "C", false, 0, "")
	pdf.CellFormat(sumW[2], 10, withCommas(money.Format(sum.Net)), "1", 1, "C", false, 0, "")
	pdf.Ln(6)

	colW := []float64{22, 34, 84, 30, 16}
	header := func() {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.SetFillColor(245, 245, 245)
		pdf.SetTextColor(20, 20, 20)
		pdf.CellFormat(colW[0], 8, "TYPE", "1", 0, "C", true, 0, "")
		pdf.CellFormat(colW[1], 8, "DATE", "1", 0, "C", true, 0, "")
		pdf.CellFormat(colW[2], 8, "COUNTERPARTY", "1", 0, "L", true, 0, "")
		pdf.CellFormat(colW[3], 8, "AMOUNT", "1", 0, "R", true, 0, "")
		pdf.CellFormat(colW[4], 8, "ID", "1", 1, "C", true, 0, "")
		pdf.SetFont("Helvetica", "", 9)
		pdf.SetTextColor(30, 30, 30)
	}
	header()

	if len(entries) == 0 {
		pdf.CellFormat(0, 8, "No transactions", "1", 1, "C", false, 0, "")
	}
	for i, e := range entries {
		if i >= maxRows {
			pdf.SetFont("Helvetica", "I", 9)
			pdf.CellFormat(0, 8, "...truncated (too many rows)", "1", 1, "C", false, 0, "")
			break
		}
		if pdf.GetY() > 270 {
			pdf.AddPage()
			header()
		}

		typ, counterparty, amt := "RECEIVED", e.Sender, "+"+withCommas(money.Format(e.Amount))
		if e.Sent {
			typ, counterparty, amt = "SENT", e.Recipient, "-"+withCommas(money.Format(e.Amount))
		}

		pdf.CellFormat(colW[0], 8, typ, "1", 0, "C", false, 0, "")
		pdf.CellFormat(colW[1], 8, e.TimeSent.UTC().Format("2006-01-02 15:04"), "1", 0, "C", false, 0, "")
		pdf.CellFormat(colW[2], 8, trimTo(counterparty, 48), "1", 0, "L", false, 0, "")
		pdf.CellFormat(colW[3], 8, amt, "1", 0, "R", false, 0, "")
		pdf.CellFormat(colW[4], 8, shortID(e.ID.String()), "1", 1, "C", false, 0, "")
	}

	pdf.SetY(-18)
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(120, 120, 120)
	pdf.CellFormat(0, 10, "Generated by VANTRO PAY - "+generatedAt.UTC().Format(time.RFC3339), "", 0, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func shortID(id string) string {
	id = strings.TrimSpace(id)
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

func maskID(id string) string {
	id = strings.TrimSpace(id)
	if len(id) <= 8 {
		return id
	}
	return id[:4] + "..." + id[len(id)-4:]
}

func trimTo(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

// withCommas groups the integer part of a formatted amount: "-1234567.50" -> "-1,234,567.50".
func withCommas(amount string) string {
	sign := ""
	if strings.HasPrefix(amount, "-") {
		sign, amount = "-", amount[1:]
	}
	intPart, frac := amount, ""
	if dot := strings.IndexByte(amount, '.'); dot >= 0 {
		intPart, frac = amount[:dot], amount[dot:]
	}

	var b strings.Builder
	l := len(intPart)
	for i := 0; i < l; i++ {
		b.WriteByte(intPart[i])
		rem := l - i - 1
		if rem > 0 && rem%3 == 0 {
			b.WriteByte(',')
		}
	}
	return sign + b.String() + frac
}
