package enrich

import (
	"time"

	"dsmetl/internal/schema"
	"dsmetl/internal/table"
)

// Derive fills derived fields on a cleaned table, in place on a clone:
//
//   - Commercial_Loss: when null and both penalty and revenue are present
//     with revenue ≠ 0, penalty / revenue × 100. Ingested loss values are
//     never recomputed.
//   - CY: when null and Month parsed, the month's calendar year.
//
// Cells that fail the preconditions stay null.
func Derive(t *table.Table) *table.Table {
	out := t.Clone()

	if !out.HasColumn(schema.ColLoss) {
		out.AddColumn(schema.ColLoss, nil)
	}
	if !out.HasColumn(schema.ColCY) {
		out.AddColumn(schema.ColCY, nil)
	}

	for r := 0; r < out.NumRows(); r++ {
		if schema.CoerceFloat(out.Cell(r, schema.ColLoss)) == nil {
			penalty := schema.CoerceFloat(out.Cell(r, schema.ColPenalty))
			revenue := schema.CoerceFloat(out.Cell(r, schema.ColRevenue))
			if penalty != nil && revenue != nil && *revenue != 0 {
				out.SetCell(r, schema.ColLoss, *penalty / *revenue*100)
			}
		}

		if schema.CoerceInt(out.Cell(r, schema.ColCY)) == nil {
			if m, ok := out.Cell(r, schema.ColMonth).(time.Time); ok {
				out.SetCell(r, schema.ColCY, int64(m.Year()))
			}
		}
	}
	return out
}

// EfficiencyScore is 100 minus the commercial loss percentage.
func EfficiencyScore(lossPercent float64) float64 {
	return 100 - lossPercent
}
