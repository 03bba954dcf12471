package services

import (
	"bytes"
	"context"
	"testing"
)

func TestGenerateTicket(t *testing.T) {
	w := newWorld(t)
	f := w.flight(12, 150000)
	d := w.book(t, w.customer.ID, f.ID, "reserva", 2)

	pdf, name, err := w.docs.GenerateTicket(context.Background(), d.ID, w.customer.ID)
	if err != nil {
		t.Fatalf("GenerateTicket returned error: %v", err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF")) {
		t.Fatalf("output is not a PDF")
	}
	if name != "eticket-AV012-1.pdf" {
		t.Fatalf("unexpected file name %q", name)
	}

	if _, err := w.reservations.Cancel(context.Background(), d.ID, w.customer.ID, ""); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	_, _, err = w.docs.GenerateTicket(context.Background(), d.ID, w.customer.ID)
	assertConflict(t, err, "cancelled reservations have no ticket")
}

func TestGenerateInvoiceOnlyForPurchases(t *testing.T) {
	w := newWorld(t)
	f := w.flight(3, 99000)
	res := w.book(t, w.customer.ID, f.ID, "reserva", 1)
	buy := w.book(t, w.customer.ID, f.ID, "compra", 1)

	_, _, err := w.docs.GenerateInvoice(context.Background(), res.ID, w.customer.ID)
	assertConflict(t, err, "only active purchases have an invoice")

	pdf, name, err := w.docs.GenerateInvoice(context.Background(), buy.ID, w.customer.ID)
	if err != nil {
		t.Fatalf("GenerateInvoice returned error: %v", err)
	}
	if len(pdf) == 0 || name != "invoice-AV003-2.pdf" {
		t.Fatalf("unexpected invoice %q (%d bytes)", name, len(pdf))
	}
}
