package models

import (
	"math"
	"testing"
)

func TestJob_Markup(t *testing.T) {
	tests := []struct {
		name string
		sale float64
		est  float64
		want float64
	}{
		{"40% markup", 1500, 900, 0.4},
		{"no cost yet", 1000, 0, 1},
		{"loss", 100, 150, -0.5},
		{"zero sale", 0, 50, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j := &Job{SaleAmount: tt.sale, EstimatedCost: tt.est}
			if got := j.Markup(); math.Abs(got-tt.want) > 0.0001 {
				t.Errorf("Markup() = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestJob_AddOnTotal(t *testing.T) {
	j := &Job{AddOns: []AddOn{{Price: 10.1}, {Price: 20.2}}}
	if got := j.AddOnTotal(); got != 30.3 {
		t.Errorf("AddOnTotal() = %f, want 30.3", got)
	}
}

func TestQuoteOption_ApplyDefaults(t *testing.T) {
	o := &QuoteOption{Price: 1234.567}
	o.ApplyDefaults()
	if o.Color != DefaultColor {
		t.Errorf("Color = %q, want %q", o.Color, DefaultColor)
	}
	if o.ShippingArea != DefaultShippingArea {
		t.Errorf("ShippingArea = %q, want %q", o.ShippingArea, DefaultShippingArea)
	}
	if o.Price != 1234.57 {
		t.Errorf("Price = %f, want 1234.57", o.Price)
	}

	kept := &QuoteOption{Color: "Black", ShippingArea: "Dock"}
	kept.ApplyDefaults()
	if kept.Color != "Black" || kept.ShippingArea != "Dock" {
		t.Errorf("explicit values overwritten: %+v", kept)
	}
}

func TestCustomer_FullName(t *testing.T) {
	tests := []struct {
		name string
		c    Customer
		want string
	}{
		{"both", Customer{FirstName: "Ada", LastName: "Lovelace"}, "Ada Lovelace"},
		{"first only", Customer{FirstName: "Ada"}, "Ada"},
		{"last only", Customer{LastName: " Lovelace "}, "Lovelace"},
		{"empty", Customer{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.c.FullName(); got != tt.want {
				t.Errorf("FullName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSubmittal_IsWon(t *testing.T) {
	if (&Submittal{Status: SubmittalStatusPending}).IsWon() {
		t.Fatalf("pending submittal reported as won")
	}
	if !(&Submittal{Status: SubmittalStatusWon}).IsWon() {
		t.Fatalf("won submittal not reported as won")
	}
}
