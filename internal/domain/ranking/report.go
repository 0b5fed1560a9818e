package ranking

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// Report renders the period's ranking as a PDF table.
func (s *Service) Report(ctx context.Context, tenantID string, period Period, w io.Writer) error {
	snap, err := s.Ranking(ctx, tenantID, period, false)
	if err != nil {
		return err
	}
	return RenderPDF(snap, w)
}

var reportColumns = []struct {
	title string
	width float64
}{
	{"#", 10},
	{"Employee", 48},
	{"Department", 34},
	{"Score", 18},
	{"Prev", 14},
	{"Var", 14},
	{"Weaknesses", 52},
}

func RenderPDF(snap Snapshot, w io.Writer) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Employee ranking "+snap.Period.String(), false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, "Employee ranking")
	pdf.Ln(10)
	pdf.SetFont("Helvetica", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Period: %s", snap.Period.String()))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Computed at: %s", snap.ComputedAt.Format("2006-01-02 15:04 MST")))
	pdf.Ln(8)

	for _, warn := range snap.Warnings {
		pdf.SetTextColor(180, 40, 40)
		pdf.Cell(0, 6, "Warning: "+warn.Message)
		pdf.Ln(6)
	}
	pdf.SetTextColor(0, 0, 0)

	if len(snap.Results) == 0 {
		pdf.Cell(0, 8, "No ranking available for this period.")
		return pdf.Output(w)
	}

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	for _, col := range reportColumns {
		pdf.CellFormat(col.width, 7, col.title, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	for _, r := range snap.Results {
		cells := []string{
			fmt.Sprintf("%d", r.RankPosition),
			r.EmployeeName,
			r.Department,
			fmt.Sprintf("%.2f", r.TotalScore),
			optionalInt(r.PreviousRank),
			signedInt(r.RankVariation),
			strings.Join(r.Weaknesses, ", "),
		}
		for i, col := range reportColumns {
			pdf.CellFormat(col.width, 6, truncate(pdf, cells[i], col.width-2), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}
	return pdf.Output(w)
}

func optionalInt(v *int) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *v)
}

func signedInt(v *int) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%+d", *v)
}

func truncate(pdf *gofpdf.Fpdf, text string, width float64) string {
	if pdf.GetStringWidth(text) <= width {
		return text
	}
	runes := []rune(text)
	for len(runes) > 0 && pdf.GetStringWidth(string(runes)+"...") > width {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "..."
}
