// Package export writes the admin payments table as CSV or XLSX.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/tbourn/nabostylisten-backend/internal/repo"
)

// Content types for HTTP responses.
const (
	ContentTypeCSV  = "text/csv; charset=utf-8"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// PaymentHeaders are the column titles of both formats.
var PaymentHeaders = []string{
	"Betaling", "Booking", "Bookingstatus", "Time", "Kunde", "Kunde e-post", "Stylist",
	"Status", "Opprinnelig (NOK)", "Rabatt (NOK)", "Endelig (NOK)", "Trukket (NOK)",
	"Refundert (NOK)", "Plattformgebyr (NOK)", "Utbetaling stylist (NOK)", "Opprettet",
}

const timeLayout = "2006-01-02 15:04"

// FileName is the download name for an export taken at now.
func FileName(now time.Time, ext string) string {
	return fmt.Sprintf("betalinger_%s.%s", now.UTC().Format("20060102_1504"), ext)
}

// decimal renders øre as a dot-separated NOK amount ("1234.50").
func decimal(ore int64) string {
	sign := ""
	if ore < 0 {
		sign, ore = "-", -ore
	}
	return fmt.Sprintf("%s%d.%02d", sign, ore/100, ore%100)
}

func record(r repo.PaymentRow) []string {
	return []string{
		r.ID,
		r.BookingID,
		string(r.BookingStatus),
		r.StartTime.UTC().Format(timeLayout),
		r.CustomerName,
		r.CustomerEmail,
		r.StylistName,
		string(r.Status),
		decimal(r.OriginalOre),
		decimal(r.DiscountOre),
		decimal(r.FinalOre),
		decimal(r.CapturedOre),
		decimal(r.RefundedOre),
		decimal(r.PlatformFeeOre),
		decimal(r.StylistPayoutOre),
		r.CreatedAt.UTC().Format(timeLayout),
	}
}

// WritePaymentsCSV writes a header row and one record per payment. A UTF-8
// byte order mark is written first so spreadsheet apps detect the encoding.
func WritePaymentsCSV(w io.Writer, rows []repo.PaymentRow) error {
	if _, err := io.WriteString(w, "\ufeff"); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(PaymentHeaders); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write(record(r)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WritePaymentsXLSX writes a single-sheet workbook with a styled header row.
// Amount columns are numeric so they can be summed.
func WritePaymentsXLSX(w io.Writer, rows []repo.PaymentRow) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Betalinger"
	idx, err := f.NewSheet(sheet)
	if err != nil {
		return err
	}
	f.SetActiveSheet(idx)
	_ = f.DeleteSheet("Sheet1")

	header, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	})
	if err != nil {
		return err
	}
	money, err := f.NewStyle(&excelize.Style{NumFmt: 4}) // #,##0.00
	if err != nil {
		return err
	}

	for i, h := range PaymentHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(PaymentHeaders), 1)
	if err := f.SetCellStyle(sheet, "A1", last, header); err != nil {
		return err
	}

	for n, r := range rows {
		row := n + 2
		values := []any{
			r.ID, r.BookingID, string(r.BookingStatus), r.StartTime.UTC().Format(timeLayout),
			r.CustomerName, r.CustomerEmail, r.StylistName, string(r.Status),
			nok(r.OriginalOre), nok(r.DiscountOre), nok(r.FinalOre), nok(r.CapturedOre),
			nok(r.RefundedOre), nok(r.PlatformFeeOre), nok(r.StylistPayoutOre),
			r.CreatedAt.UTC().Format(timeLayout),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
		from, _ := excelize.CoordinatesToCellName(9, row)
		to, _ := excelize.CoordinatesToCellName(15, row)
		if err := f.SetCellStyle(sheet, from, to, money); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(sheet, "A", "B", 38); err != nil {
		return err
	}
	_, err = f.WriteTo(w)
	return err
}

func nok(ore int64) float64 { return float64(ore) / 100 }
