package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"flightbook/internal/domain"
	"flightbook/internal/domain/models"
	"flightbook/internal/utils"

	"github.com/phpdave11/gofpdf"
)

// DocsService renders PDF e-tickets and invoices for owned reservations.
type DocsService struct {
	Reservations ReservationService
	Currency     string
	Log          utils.Logger
	Now          utils.Clock
}

func (s DocsService) GenerateTicket(ctx context.Context, reservationID, userID int64) ([]byte, string, error) {
	d, err := s.Reservations.Get(ctx, reservationID, userID)
	if err != nil {
		return nil, "", err
	}
	if d.Status == models.StatusCancelled {
		return nil, "", domain.ConflictError{Resource: "reservation", Msg: "cancelled reservations have no ticket"}
	}
	logOrNop(s.Log).LogEvent(requestID(ctx), "docs", "generate_eticket", fmt.Sprintf("reservation_id=%d", d.ID))
	return buildTicketPDF(d, s.Currency)
}

// GenerateInvoice is available once the reservation has been purchased.
func (s DocsService) GenerateInvoice(ctx context.Context, reservationID, userID int64) ([]byte, string, error) {
	d, err := s.Reservations.Get(ctx, reservationID, userID)
	if err != nil {
		return nil, "", err
	}
	if d.Kind != models.KindPurchase || d.Status == models.StatusCancelled {
		return nil, "", domain.ConflictError{Resource: "reservation", Msg: "only active purchases have an invoice"}
	}
	logOrNop(s.Log).LogEvent(requestID(ctx), "docs", "generate_invoice", fmt.Sprintf("reservation_id=%d", d.ID))
	return buildInvoicePDF(d, s.Currency, nowFrom(s.Now))
}

func flightLines(d models.ReservationDetail) (code, route, departure string) {
	code, route, departure = "-", "-", "-"
	if d.Flight != nil {
		code = d.Flight.FlightCode
		route = fmt.Sprintf("%s -> %s", safe(d.Flight.Origin, "-"), safe(d.Flight.Destination, "-"))
		departure = utils.FormatDateTime(d.Flight.DepartureAt) + " UTC"
	}
	return code, route, departure
}

func buildTicketPDF(d models.ReservationDetail, currency string) ([]byte, string, error) {
	code, route, departure := flightLines(d)
	holder := "-"
	if d.User != nil {
		holder = d.User.Name
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("E-Ticket", false)
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "E-TICKET")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	lines := []string{
		fmt.Sprintf("Titular        : %s", safe(holder, "-")),
		fmt.Sprintf("Vuelo          : %s", code),
		fmt.Sprintf("Ruta           : %s", route),
		fmt.Sprintf("Salida         : %s", departure),
		fmt.Sprintf("Pasajeros      : %d", d.PassengerCount),
		fmt.Sprintf("Total          : %s", utils.FormatMoney(d.TotalPrice, currency)),
		fmt.Sprintf("Tipo / Estado  : %s / %s", d.Kind, d.Status),
		fmt.Sprintf("Reserva        : #%d", d.ID),
	}
	for _, s := range lines {
		pdf.Cell(0, 7, s)
		pdf.Ln(7)
	}

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "I", 10)
	note := "Presente este documento y un documento de identidad al momento del embarque."
	if d.Kind == models.KindReservation {
		note = "Reserva pendiente de pago. Este documento no es valido para embarcar."
	}
	pdf.MultiCell(0, 6, note, "", "", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", domain.InternalError{Msg: "could not render ticket", Err: err}
	}
	return buf.Bytes(), fmt.Sprintf("eticket-%s-%d.pdf", utils.SafeFilenamePart(code), d.ID), nil
}

func buildInvoicePDF(d models.ReservationDetail, currency string, issued time.Time) ([]byte, string, error) {
	code, route, departure := flightLines(d)

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Invoice", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "FACTURA")
	pdf.Ln(12)

	invNo := fmt.Sprintf("INV-%d-%s", d.ID, utils.SafeFilenamePart(code))
	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 7, "No. factura : "+invNo)
	pdf.Ln(7)
	pdf.Cell(0, 7, "Fecha       : "+issued.Format("2006-01-02 15:04"))
	pdf.Ln(10)

	if d.User != nil {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.Cell(0, 7, "Cliente:")
		pdf.Ln(7)
		pdf.SetFont("Helvetica", "", 12)
		pdf.Cell(0, 7, fmt.Sprintf("%s <%s>", safe(d.User.Name, "-"), safe(d.User.Email, "-")))
		pdf.Ln(10)
	}

	pdf.SetFont("Helvetica", "", 11)
	pdf.MultiCell(0, 6, fmt.Sprintf("Vuelo %s %s, salida %s, %d pasajero(s)", code, route, departure, d.PassengerCount), "", "", false)
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Total: "+utils.FormatMoney(d.TotalPrice, currency))
	pdf.Ln(12)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", domain.InternalError{Msg: "could not render invoice", Err: err}
	}
	return buf.Bytes(), fmt.Sprintf("invoice-%s-%d.pdf", utils.SafeFilenamePart(code), d.ID), nil
}

func safe(v, fallback string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return fallback
	}
	return v
}
