package cloudbeds

import (
	"bytes"
	"encoding/json"
	"strings"

	"hostel-analytics/models"
	"hostel-analytics/utils"
)

// Amount decodes money fields that the API sends either as numbers or as strings
type Amount float64

func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*a = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if strings.TrimSpace(s) == "" {
			*a = 0
			return nil
		}
		d, err := utils.ParseAmount(s)
		if err != nil {
			return err
		}
		*a = Amount(d.InexactFloat64())
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*a = Amount(f)
	return nil
}

// Reservation is one record of the bulk reservations listing
type Reservation struct {
	PropertyID    string `json:"propertyID"`
	ReservationID string `json:"reservationID"`
	DateCreated   string `json:"dateCreated"`
	GuestName     string `json:"guestName"`
	StartDate     string `json:"startDate"`
	EndDate       string `json:"endDate"`
	Status        string `json:"status"`
	SourceName    string `json:"sourceName"`
	Total         Amount `json:"total"`
	Balance       Amount `json:"balance"`
}

// BalanceDetailed is the financial breakdown only the detail endpoint returns
type BalanceDetailed struct {
	SubTotal        Amount `json:"subTotal"`
	AdditionalItems Amount `json:"additionalItems"`
	TaxesFees       Amount `json:"taxesFees"`
	GrandTotal      Amount `json:"grandTotal"`
	Paid            Amount `json:"paid"`
}

// ReservationDetail is the payload of the single-reservation endpoint
type ReservationDetail struct {
	PropertyID      string          `json:"propertyID"`
	ReservationID   string          `json:"reservationID"`
	Status          string          `json:"status"`
	Total           Amount          `json:"total"`
	Balance         Amount          `json:"balance"`
	BalanceDetailed BalanceDetailed `json:"balanceDetailed"`
}

// Pricing converts the breakdown into the canonical net/tax/gross triple
func (d ReservationDetail) Pricing() models.Pricing {
	net := float64(d.BalanceDetailed.SubTotal + d.BalanceDetailed.AdditionalItems)
	tax := float64(d.BalanceDetailed.TaxesFees)
	gross := float64(d.BalanceDetailed.GrandTotal)
	if gross == 0 {
		gross = float64(d.Total)
	}
	if gross == 0 {
		gross = net + tax
	}
	return models.Pricing{NetPrice: net, TaxAmount: tax, GrossPrice: gross}
}

type listResponse struct {
	Success bool          `json:"success"`
	Message string        `json:"message"`
	Data    []Reservation `json:"data"`
	Total   int           `json:"total"`
}

type detailResponse struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Data    ReservationDetail `json:"data"`
}
