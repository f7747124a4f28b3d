package documents

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/cx-tal-miterani/fare-booking/internal/models"
	"github.com/phpdave11/gofpdf"
)

const ContentTypePDF = "application/pdf"

// TicketData is everything printed on an itinerary receipt
type TicketData struct {
	OrderID       string
	Passengers    []models.Passenger
	Segments      []models.Segment
	BrandTitle    string
	TicketNumbers []string
	Amount        float64
	Currency      string
	IssuedAt      time.Time
}

// RenderTicket builds the itinerary receipt PDF and a filename for it.
func RenderTicket(d TicketData) ([]byte, string, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Itinerary receipt", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "ELECTRONIC TICKET ITINERARY RECEIPT")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 11)
	header := []string{
		fmt.Sprintf("Booking reference : %s", safe(d.OrderID, "-")),
		fmt.Sprintf("Issued            : %s", d.IssuedAt.UTC().Format("2006-01-02 15:04 MST")),
		fmt.Sprintf("Fare              : %s", safe(d.BrandTitle, "-")),
		fmt.Sprintf("Total             : %.2f %s", d.Amount, d.Currency),
	}
	for _, line := range header {
		pdf.Cell(0, 6, line)
		pdf.Ln(6)
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 7, "Passengers")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 11)
	for i, p := range d.Passengers {
		ticket := "-"
		if i < len(d.TicketNumbers) {
			ticket = d.TicketNumbers[i]
		}
		name := strings.TrimSpace(p.LastName + "/" + p.FirstName + " " + p.MiddleName)
		pdf.Cell(0, 6, fmt.Sprintf("%d. %s  doc %s  ticket %s", i+1, name, safe(p.DocumentNumber, "-"), ticket))
		pdf.Ln(6)
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 7, "Flights")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 11)
	for _, seg := range d.Segments {
		for _, f := range seg.Flights {
			pdf.Cell(0, 6, fmt.Sprintf("%s%s  %s -> %s  %s - %s  class %s",
				f.Carrier, f.FlightNumber,
				f.DepartureAirport, f.ArrivalAirport,
				f.DepartureTime.Format("02Jan 15:04"), f.ArrivalTime.Format("02Jan 15:04"),
				safe(f.FareClass, "-"),
			))
			pdf.Ln(6)
		}
	}

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "I", 9)
	pdf.MultiCell(0, 5, "Present a valid travel document matching the passenger name at check-in.", "", "", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), fmt.Sprintf("TICKET_%s.pdf", safeFilenamePart(d.OrderID)), nil
}

func safe(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}

func safeFilenamePart(v string) string {
	var b strings.Builder
	for _, r := range v {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "ticket"
	}
	return b.String()
}
