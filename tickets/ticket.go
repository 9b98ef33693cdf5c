// Package tickets renders the printable PDF for an itinerary booking. The
// QR code carries an HMAC-signed payload that a guide's scanner can verify
// offline.
package tickets

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/phpdave11/gofpdf"
	"github.com/skip2/go-qrcode"

	"tripgenie/models"
	"tripgenie/pricing"
)

// Signer signs and verifies QR payloads.
type Signer struct {
	Secret []byte
}

// Payload is bookingID|itineraryID|date|signature.
func (s Signer) Payload(b models.ItineraryBooking) string {
	data := fmt.Sprintf("%s|%s|%s", b.ID, b.Itinerary, b.Date.UTC().Format(time.DateOnly))
	return data + "|" + s.sign(data)
}

// Verify checks a scanned payload and returns the booking and itinerary IDs
// it names.
func (s Signer) Verify(payload string) (bookingID, itineraryID string, ok bool) {
	i := strings.LastIndex(payload, "|")
	if i < 0 {
		return "", "", false
	}
	data, sig := payload[:i], payload[i+1:]
	if !hmac.Equal([]byte(sig), []byte(s.sign(data))) {
		return "", "", false
	}
	parts := strings.Split(data, "|")
	if len(parts) != 3 {
		return "", "", false
	}
	return parts[0], parts[1], true
}

func (s Signer) sign(data string) string {
	h := hmac.New(sha256.New, s.Secret)
	h.Write([]byte(data))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

// Ticket is everything printed on one booking ticket.
type Ticket struct {
	Booking   models.ItineraryBooking
	Itinerary models.Itinerary
	Tourist   string
	Paid      pricing.Price
}

// Render writes t as a one-page A4 PDF.
func (s Signer) Render(w io.Writer, t Ticket) error {
	qrPNG, err := qrcode.Encode(s.Payload(t.Booking), qrcode.Medium, 256)
	if err != nil {
		return fmt.Errorf("encoding qr: %w", err)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 18)
	pdf.Cell(0, 10, "Trip Genie itinerary ticket")
	pdf.Ln(14)

	pdf.SetFont("Arial", "", 12)
	rows := [][2]string{
		{"Itinerary", t.Itinerary.Title},
		{"Tourist", t.Tourist},
		{"Date", t.Booking.Date.UTC().Format("Mon 02 Jan 2006")},
		{"Time", t.Booking.Time.StartTime + " - " + t.Booking.Time.EndTime},
		{"Tickets", fmt.Sprintf("%d", t.Booking.NumberOfTickets)},
		{"Paid", fmt.Sprintf("%s %.2f (%s)", t.Paid.Currency, t.Paid.Amount, t.Booking.PaymentType)},
		{"Pick-up", t.Itinerary.PickUpLocation},
		{"Drop-off", t.Itinerary.DropOffLocation},
		{"Booking", t.Booking.ID},
	}
	for _, row := range rows {
		pdf.SetFont("Arial", "B", 12)
		pdf.Cell(35, 8, row[0])
		pdf.SetFont("Arial", "", 12)
		pdf.Cell(0, 8, row[1])
		pdf.Ln(8)
	}

	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("qr", opts, bytes.NewReader(qrPNG))
	pdf.ImageOptions("qr", 140, 30, 50, 50, false, opts, 0, "")

	pdf.Ln(10)
	pdf.SetFont("Arial", "I", 9)
	pdf.MultiCell(0, 5, "Cancellations are accepted up to 48 hours before the booked time slot.", "", "L", false)

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("writing pdf: %w", err)
	}
	return nil
}
