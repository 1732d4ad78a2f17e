package payment

import (
	"sort"

	"github.com/shopspring/decimal"
)

const (
	DefaultCurrency = "EUR"
	TestPackageID   = "test_free"
)

// Package is a purchasable item with a server-side price.
type Package struct {
	ID     string
	Name   string
	Amount decimal.Decimal
	IsTest bool
}

// MinorUnits returns the amount in cents.
func (p Package) MinorUnits() int64 {
	return p.Amount.Shift(2).Round(0).IntPart()
}

// IsFreeTest is true for the demo package that never reaches the provider.
func (p Package) IsFreeTest() bool {
	return p.IsTest && p.Amount.IsZero()
}

var packages = map[string]Package{
	TestPackageID:      {ID: TestPackageID, Name: "Pizza Test Gratuite (Démo)", Amount: decimal.Zero, IsTest: true},
	"small_pizza":      {ID: "small_pizza", Name: "Pizza Petite", Amount: decimal.RequireFromString("12.90")},
	"medium_pizza":     {ID: "medium_pizza", Name: "Pizza Moyenne", Amount: decimal.RequireFromString("16.90")},
	"large_pizza":      {ID: "large_pizza", Name: "Pizza Grande", Amount: decimal.RequireFromString("19.90")},
	"family_pizza":     {ID: "family_pizza", Name: "Pizza Familiale", Amount: decimal.RequireFromString("24.90")},
	"margherita":       {ID: "margherita", Name: "Pizza Margherita", Amount: decimal.RequireFromString("12.90")},
	"napoletana":       {ID: "napoletana", Name: "Pizza Napoletana", Amount: decimal.RequireFromString("15.90")},
	"quattro_formaggi": {ID: "quattro_formaggi", Name: "Pizza Quattro Formaggi", Amount: decimal.RequireFromString("18.90")},
	"diavola":          {ID: "diavola", Name: "Pizza Diavola", Amount: decimal.RequireFromString("17.90")},
	"vegetariana":      {ID: "vegetariana", Name: "Pizza Végétarienne", Amount: decimal.RequireFromString("16.90")},
	"prosciutto":       {ID: "prosciutto", Name: "Pizza Prosciutto", Amount: decimal.RequireFromString("19.90")},
}

// Lookup resolves a package id against the price table.
func Lookup(id string) (Package, bool) {
	p, ok := packages[id]
	return p, ok
}

// Packages lists the price table sorted by amount, then id.
func Packages() []Package {
	out := make([]Package, 0, len(packages))
	for _, p := range packages {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Amount.Cmp(out[j].Amount); c != 0 {
			return c < 0
		}
		return out[i].ID < out[j].ID
	})
	return out
}
