// Package schema owns the canonical settlement schema: the twelve column
// names every downstream consumer agrees on, header normalization and
// mapping, validation against the schema, and alignment of an arbitrary
// table onto typed records.
package schema

import "time"

// Canonical column names.
const (
	ColSite         = "Site"
	ColConnectivity = "Connectivity"
	ColTechnology   = "Technology"
	ColCY           = "CY"
	ColMonth        = "Month"
	ColEnergy       = "Measured_Energy_kWh"
	ColCapacity     = "Plant_Capacity"
	ColPPARate      = "PPA_Rate"
	ColRevenue      = "Actual_Revenue_INR"
	ColPenalty      = "Total_Penalty_INR"
	ColLoss         = "Commercial_Loss"
	ColQCA          = "QCA"
)

// Kind is the declared type of a canonical column.
type Kind int

const (
	KindText Kind = iota
	KindInteger
	KindNumeric
	KindDate
)

// Column describes one canonical column.
type Column struct {
	Name     string
	Kind     Kind
	Required bool // must be present (and, for key columns, non-null) before ingest
	Key      bool // part of the (Site, Month) composite key
}

// Columns is the canonical column set in storage order.
var Columns = []Column{
	{Name: ColSite, Kind: KindText, Required: true, Key: true},
	{Name: ColConnectivity, Kind: KindText},
	{Name: ColTechnology, Kind: KindText},
	{Name: ColCY, Kind: KindInteger},
	{Name: ColMonth, Kind: KindDate, Required: true, Key: true},
	{Name: ColEnergy, Kind: KindNumeric, Required: true},
	{Name: ColCapacity, Kind: KindNumeric},
	{Name: ColPPARate, Kind: KindNumeric},
	{Name: ColRevenue, Kind: KindNumeric, Required: true},
	{Name: ColPenalty, Kind: KindNumeric, Required: true},
	{Name: ColLoss, Kind: KindNumeric},
	{Name: ColQCA, Kind: KindText, Required: true},
}

// ColumnNames returns the canonical names in storage order.
func ColumnNames() []string {
	out := make([]string, len(Columns))
	for i, c := range Columns {
		out[i] = c.Name
	}
	return out
}

// RequiredColumns returns the names that must be present before ingest.
func RequiredColumns() []string {
	var out []string
	for _, c := range Columns {
		if c.Required {
			out = append(out, c.Name)
		}
	}
	return out
}

// KeyColumns returns the composite key column names, in key order.
func KeyColumns() []string { return []string{ColSite, ColMonth} }

// ColumnByName returns the canonical column definition, if any.
func ColumnByName(name string) (Column, bool) {
	for _, c := range Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// MonthOf truncates a time to the first day of its month in UTC. Every Month
// value that crosses the storage boundary goes through this.
func MonthOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
