package schema

import (
	"fmt"
	"time"

	"dsmetl/internal/table"
)

// Record is one canonical settlement row: exactly one per (Site, Month).
// Pointer fields are nullable; Site and Month are guaranteed non-null by the
// validator, which must run before alignment.
type Record struct {
	Site              string
	Connectivity      *string
	Technology        *string
	CY                *int64
	Month             time.Time
	MeasuredEnergyKWh *float64
	PlantCapacity     *float64
	PPARate           *float64
	ActualRevenueINR  *float64
	TotalPenaltyINR   *float64
	CommercialLoss    *float64
	QCA               *string
}

// RecordKey is the (Site, Month) composite key.
type RecordKey struct {
	Site  string
	Month time.Time
}

// String renders the stable comparison form: ordered concatenation of the
// key fields' string representations.
func (k RecordKey) String() string {
	return k.Site + "||" + k.Month.Format("2006-01-02")
}

// Key returns the record's composite key.
func (r Record) Key() RecordKey {
	return RecordKey{Site: r.Site, Month: r.Month}
}

// Align projects a validated, canonically-named table onto typed records in
// canonical column order. Existing columns are cast to their declared types
// (numeric coercion failures become nulls, "nan" text becomes null); columns
// absent from the input stay null; extra input columns are dropped.
//
// Align demands non-null key cells and errors otherwise — hand it a table
// that passed Validate.
func Align(t *table.Table) ([]Record, error) {
	out := make([]Record, 0, t.NumRows())
	for r := 0; r < t.NumRows(); r++ {
		site := CoerceString(t.Cell(r, ColSite))
		if site == nil {
			return nil, fmt.Errorf("align: row %d has null %s (validate first)", r, ColSite)
		}
		month := CoerceDate(t.Cell(r, ColMonth))
		if month == nil {
			return nil, fmt.Errorf("align: row %d has null or unparsed %s (validate first)", r, ColMonth)
		}

		out = append(out, Record{
			Site:              *site,
			Connectivity:      CoerceString(t.Cell(r, ColConnectivity)),
			Technology:        CoerceString(t.Cell(r, ColTechnology)),
			CY:                CoerceInt(t.Cell(r, ColCY)),
			Month:             *month,
			MeasuredEnergyKWh: CoerceFloat(t.Cell(r, ColEnergy)),
			PlantCapacity:     CoerceFloat(t.Cell(r, ColCapacity)),
			PPARate:           CoerceFloat(t.Cell(r, ColPPARate)),
			ActualRevenueINR:  CoerceFloat(t.Cell(r, ColRevenue)),
			TotalPenaltyINR:   CoerceFloat(t.Cell(r, ColPenalty)),
			CommercialLoss:    CoerceFloat(t.Cell(r, ColLoss)),
			QCA:               CoerceString(t.Cell(r, ColQCA)),
		})
	}
	return out, nil
}

// ToTable renders records back into a canonical table, used by FetchAll
// consumers that want the tabular shape.
func ToTable(recs []Record) *table.Table {
	t := table.New(ColumnNames())
	for _, r := range recs {
		t.AppendRow([]any{
			r.Site,
			deref(r.Connectivity),
			deref(r.Technology),
			derefInt(r.CY),
			r.Month,
			derefFloat(r.MeasuredEnergyKWh),
			derefFloat(r.PlantCapacity),
			derefFloat(r.PPARate),
			derefFloat(r.ActualRevenueINR),
			derefFloat(r.TotalPenaltyINR),
			derefFloat(r.CommercialLoss),
			deref(r.QCA),
		})
	}
	return t
}

func deref(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func derefInt(i *int64) any {
	if i == nil {
		return nil
	}
	return *i
}

func derefFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}
