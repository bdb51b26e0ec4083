package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Index tags the series a record belongs to.
type Index string

const (
	IBOV  Index = "IBOV"
	SELIC Index = "SELIC"
)

// MinYear is the earliest year any series may reference.
const MinYear = 1900

// Record is the normalized shape returned by all providers.
// Field order is the on-disk key order.
type Record struct {
	DateReference Date    `json:"date_reference"`
	Month         int     `json:"month" validate:"min=1,max=12"`
	Year          int     `json:"year" validate:"gte=1900"`
	Index         Index   `json:"index" validate:"oneof=IBOV SELIC"`
	Value         float64 `json:"value"`
}

// NewRecord builds the record for the month containing (year, month).
func NewRecord(index Index, year int, month time.Month, value float64) Record {
	return Record{
		DateReference: MonthStart(year, month),
		Month:         int(month),
		Year:          year,
		Index:         index,
		Value:         value,
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// report json names, e.g. "month" instead of "Month"
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks the record invariants: month and year ranges, a known
// index, and a date_reference on day 1 of (year, month).
func (r Record) Validate() error {
	if err := validate.Struct(r); err != nil {
		return err
	}
	d := r.DateReference
	if d.IsZero() {
		return fmt.Errorf("date_reference is missing")
	}
	if d.Day() != 1 {
		return fmt.Errorf("date_reference %s is not the first day of a month", d)
	}
	if d.Year() != r.Year || int(d.Month()) != r.Month {
		return fmt.Errorf("date_reference %s does not match %04d-%02d", d, r.Year, r.Month)
	}
	return nil
}

// Date is a calendar day, serialized as yyyy-mm-dd.
type Date struct {
	time.Time
}

// MonthStart returns the first day of the given month.
func MonthStart(year int, month time.Month) Date {
	return Date{time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)}
}

func (d Date) String() string { return d.Format(time.DateOnly) }

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

// Provider fetches one series for an inclusive year span.
//
//go:generate mockgen -package=providertest -destination=providertest/mock_provider.go -source=provider.go Provider
type Provider interface {
	Name() string
	Fetch(ctx context.Context, startYear, endYear int) ([]Record, error)
}
