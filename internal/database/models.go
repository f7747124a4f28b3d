package database

import (
	"encoding/json"
	"fmt"

	"github.com/cx-tal-miterani/fare-booking/internal/models"
)

// bookingColumns are the JSON-encoded parts of a booking row
type bookingColumns struct {
	passengers   []byte
	contact      []byte
	rawProvider  []byte
	confirmation []byte
}

func encodeBooking(b *models.Booking) (bookingColumns, error) {
	var (
		cols bookingColumns
		err  error
	)
	if cols.passengers, err = json.Marshal(b.Passengers); err != nil {
		return cols, fmt.Errorf("encode passengers: %w", err)
	}
	if cols.contact, err = json.Marshal(b.Contact); err != nil {
		return cols, fmt.Errorf("encode contact: %w", err)
	}
	if len(b.RawProviderData) > 0 {
		cols.rawProvider = []byte(b.RawProviderData)
	}
	if len(b.Confirmation) > 0 {
		cols.confirmation = []byte(b.Confirmation)
	}
	return cols, nil
}

func (c bookingColumns) decodeInto(b *models.Booking) error {
	if len(c.passengers) > 0 {
		if err := json.Unmarshal(c.passengers, &b.Passengers); err != nil {
			return fmt.Errorf("decode passengers: %w", err)
		}
	}
	if len(c.contact) > 0 {
		if err := json.Unmarshal(c.contact, &b.Contact); err != nil {
			return fmt.Errorf("decode contact: %w", err)
		}
	}
	if len(c.rawProvider) > 0 {
		b.RawProviderData = json.RawMessage(c.rawProvider)
	}
	if len(c.confirmation) > 0 {
		b.Confirmation = json.RawMessage(c.confirmation)
	}
	return nil
}

func cloneBooking(b *models.Booking) *models.Booking {
	out := *b
	out.Passengers = append([]models.Passenger(nil), b.Passengers...)
	out.RawProviderData = append(json.RawMessage(nil), b.RawProviderData...)
	out.Confirmation = append(json.RawMessage(nil), b.Confirmation...)
	return &out
}
