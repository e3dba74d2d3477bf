package core

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
)

func TestConvertIdentity(t *testing.T) {
	amount, _ := ParseAmount("0.1")
	for _, rates := range []map[string]float64{nil, {}, {"USD": 1.7}} {
		got := Convert(amount, "USD", "USD", rates)
		if !got.Amount.Equal(amount) || got.Currency != "USD" || !got.Converted {
			t.Fatalf("identity conversion changed value: %+v", got)
		}
	}
}

func TestConvertRatio(t *testing.T) {
	rates := map[string]float64{"USD": 1, "EUR": 0.9}
	got := Convert(decimal.NewFromInt(100), "USD", "EUR", rates)
	if !got.Converted || got.Currency != "EUR" {
		t.Fatalf("expected conversion to EUR, got %+v", got)
	}
	if !got.Amount.Equal(decimal.NewFromInt(90)) {
		t.Fatalf("expected 90, got %s", got.Amount)
	}
}

func TestConvertFallback(t *testing.T) {
	amount := decimal.NewFromInt(100)
	cases := []struct {
		name  string
		rates map[string]float64
	}{
		{"missing target", map[string]float64{"USD": 1}},
		{"missing source", map[string]float64{"EUR": 0.9}},
		{"empty snapshot", map[string]float64{}},
		{"nil snapshot", nil},
		{"zero rate", map[string]float64{"USD": 1, "EUR": 0}},
		{"negative rate", map[string]float64{"USD": -1, "EUR": 0.9}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Convert(amount, "USD", "EUR", tc.rates)
			if got.Converted || got.Currency != "USD" || !got.Amount.Equal(amount) {
				t.Fatalf("expected unchanged USD 100, got %+v", got)
			}
		})
	}
}

func TestConvertRoundTrip(t *testing.T) {
	rates := map[string]float64{"USD": 1, "EUR": 0.9137, "JPY": 151.23, "GBP": 0.7871}
	for _, s := range []string{"100", "0.01", "-42.75", "123456.789"} {
		a, _ := ParseAmount(s)
		for from := range rates {
			for to := range rates {
				there := Convert(a, from, to, rates)
				back := Convert(there.Amount, to, from, rates)
				diff := math.Abs(back.Amount.InexactFloat64() - a.InexactFloat64())
				if diff > 1e-9*math.Max(1, math.Abs(a.InexactFloat64())) {
					t.Fatalf("%s %s->%s->%s drifted by %g", s, from, to, from, diff)
				}
			}
		}
	}
}

func TestRateSnapshotRate(t *testing.T) {
	s := RateSnapshot{Base: "USD", Rates: map[string]float64{"USD": 1, "XXX": 0}}
	if r, ok := s.Rate("USD"); !ok || r != 1 {
		t.Fatalf("expected USD rate 1, got %v %v", r, ok)
	}
	if _, ok := s.Rate("XXX"); ok {
		t.Fatalf("zero rate should not be usable")
	}
	if _, ok := EmptySnapshot("USD").Rate("USD"); ok {
		t.Fatalf("empty snapshot should have no rates")
	}
}
