package schema

import (
	"strings"

	"dsmetl/internal/table"
)

// NormalizeHeader reduces a raw header string to its comparison key:
// trimmed, lowercased, with spaces, parentheses, percent signs, underscores,
// hyphens and periods stripped. "Measured Energy (kWh)" and
// "measured_energy_kwh" normalize to the same key.
func NormalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '(', ')', '%', '_', '-', '.':
			return -1
		}
		return r
	}, h)
}

// headerMap maps normalized header variants to canonical column names. It is
// a flat exact-match table on purpose — fuzzy matching lives in Suggest and
// is advisory only.
var headerMap = map[string]string{
	// Site
	"site":     ColSite,
	"sitename": ColSite,
	"location": ColSite,
	"plant":    ColSite,

	// Connectivity
	"connectivity":   ColConnectivity,
	"connection":     ColConnectivity,
	"gridconnection": ColConnectivity,

	// Technology
	"technology": ColTechnology,
	"tech":       ColTechnology,
	"type":       ColTechnology,
	"planttype":  ColTechnology,

	// Calendar year
	"cy":           ColCY,
	"calendaryear": ColCY,
	"year":         ColCY,

	// Month
	"month":     ColMonth,
	"monthyear": ColMonth,
	"period":    ColMonth,
	"date":      ColMonth,

	// Energy
	"measuredenergykwh": ColEnergy,
	"generationkwh":     ColEnergy,
	"energykwh":         ColEnergy,
	"generation":        ColEnergy,
	"energygeneration":  ColEnergy,
	"kwh":               ColEnergy,

	// Capacity
	"plantcapacity":     ColCapacity,
	"plantrcapacity":    ColCapacity,
	"capacity":          ColCapacity,
	"installedcapacity": ColCapacity,
	"plantcapacitymw":   ColCapacity,

	// PPA rate
	"pparate":   ColPPARate,
	"rate":      ColPPARate,
	"tariff":    ColPPARate,
	"ppatariff": ColPPARate,

	// Revenue
	"actualrevenueinr": ColRevenue,
	"revenueinr":       ColRevenue,
	"revenue":          ColRevenue,
	"actualrevenue":    ColRevenue,
	"totalrevenue":     ColRevenue,

	// Penalty
	"totalpenaltyinr": ColPenalty,
	"totalpenalty":    ColPenalty,
	"dsmpenaltyinr":   ColPenalty,
	"penalty":         ColPenalty,
	"dsmpenalty":      ColPenalty,
	"penaltyinr":      ColPenalty,

	// Commercial loss
	"commercialloss": ColLoss,
	"loss":           ColLoss,
	"losspercent":    ColLoss,
	"closs":          ColLoss,

	// QCA
	"qca":      ColQCA,
	"buyer":    ColQCA,
	"customer": ColQCA,
	"offtaker": ColQCA,
}

// LookupHeader resolves one raw header to its canonical column name.
func LookupHeader(h string) (string, bool) {
	c, ok := headerMap[NormalizeHeader(h)]
	return c, ok
}

// Match records one resolved header.
type Match struct {
	Source    string
	Canonical string
}

// MappingReport is the transient diagnostic produced by MapColumns. It lives
// for the duration of one ingestion call and is never persisted.
type MappingReport struct {
	Matched   []Match
	Unmatched []string // source headers with no mapping entry
	Missing   []string // canonical columns no source header resolved to
}

// MapColumns renames a table's headers to canonical column names and reports
// what matched, what didn't, and which canonical columns received no source.
//
// Contract for duplicate sources: when two raw headers normalize to the same
// canonical field, the rightmost column wins and the earlier column's values
// are discarded. Both headers still appear in Matched so the collision is
// visible to the caller.
//
// Unmatched headers pass through under their original names; the aligner
// drops them later. MapColumns never mutates its input.
func MapColumns(t *table.Table) (*table.Table, MappingReport) {
	var rep MappingReport

	srcCols := t.Columns()
	outName := make([]string, len(srcCols))
	winner := make(map[string]int, len(srcCols)) // canonical -> winning source index

	for i, src := range srcCols {
		if canonical, ok := headerMap[NormalizeHeader(src)]; ok {
			rep.Matched = append(rep.Matched, Match{Source: src, Canonical: canonical})
			outName[i] = canonical
			winner[canonical] = i
			continue
		}
		rep.Unmatched = append(rep.Unmatched, src)
		outName[i] = src
	}

	for _, c := range Columns {
		if _, ok := winner[c.Name]; !ok {
			rep.Missing = append(rep.Missing, c.Name)
		}
	}

	keep := make([]string, 0, len(srcCols))
	srcFor := make(map[string]string, len(srcCols))
	for i, src := range srcCols {
		name := outName[i]
		if w, ok := winner[name]; ok && w != i {
			continue // a later header claimed this canonical column
		}
		keep = append(keep, name)
		srcFor[name] = src
	}

	out := table.New(keep)
	for r := 0; r < t.NumRows(); r++ {
		row := make([]any, len(keep))
		for j, name := range keep {
			row[j] = t.Cell(r, srcFor[name])
		}
		out.AppendRow(row)
	}
	return out, rep
}
