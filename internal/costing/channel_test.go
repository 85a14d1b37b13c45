package costing

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"hitunghpp/backend/internal/domain"
)

func TestFinalAndNetPrice(t *testing.T) {
	if got := FinalPrice(d("1000"), d("11")); !got.Equal(d("1110")) {
		t.Fatalf("expected 1110, got %s", got)
	}
	if got := FinalPrice(d("1000"), decimal.Zero); !got.Equal(d("1000")) {
		t.Fatalf("expected untaxed price unchanged, got %s", got)
	}
	if got := NetPrice(d("1000"), d("20")); !got.Equal(d("800")) {
		t.Fatalf("expected 800, got %s", got)
	}
}

func TestMarkupAndTargetProfitPrice(t *testing.T) {
	if got := MarkupPrice(d("1000"), d("25")); !got.Equal(d("1250")) {
		t.Fatalf("expected 1250, got %s", got)
	}

	got, err := TargetProfitPrice(d("600"), d("200"), d("20"))
	if err != nil {
		t.Fatalf("target profit: %v", err)
	}
	if !got.Equal(d("1000")) {
		t.Fatalf("expected 1000, got %s", got)
	}
	if net := NetPrice(got, d("20")); !net.Sub(d("600")).Equal(d("200")) {
		t.Fatalf("expected net to leave 200 profit, got %s", net)
	}

	if _, err := TargetProfitPrice(d("600"), d("200"), d("100")); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error at 100%% commission, got %v", err)
	}
}

func TestApplyRounding(t *testing.T) {
	cases := []struct {
		x         string
		policy    domain.RoundingPolicy
		increment string
		want      string
	}{
		{"1234", domain.RoundHundred, "0", "1200"},
		{"1250", domain.RoundHundred, "0", "1300"},
		{"1234", domain.RoundThousand, "0", "1000"},
		{"1500", domain.RoundThousand, "0", "2000"},
		{"1234.5", domain.RoundNone, "0", "1235"},
		{"1234.4", domain.RoundNone, "0", "1234"},
		{"1234.4", "", "0", "1234"},
		{"1234", domain.RoundCustom, "500", "1000"},
		{"1250", domain.RoundCustom, "500", "1500"},
		{"10.26", domain.RoundCustom, "0.05", "10.25"},
		{"-12.5", domain.RoundNone, "0", "-12"},
		{"-12.6", domain.RoundNone, "0", "-13"},
		{"-1250", domain.RoundHundred, "0", "-1200"},
		{"-750", domain.RoundCustom, "500", "-500"},
	}
	for _, tc := range cases {
		got, err := ApplyRounding(d(tc.x), tc.policy, d(tc.increment))
		if err != nil {
			t.Fatalf("round %s %s: %v", tc.x, tc.policy, err)
		}
		if !got.Equal(d(tc.want)) {
			t.Fatalf("round %s %s: expected %s, got %s", tc.x, tc.policy, tc.want, got)
		}
	}

	if _, err := ApplyRounding(d("1"), domain.RoundCustom, decimal.Zero); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for zero increment, got %v", err)
	}
	if _, err := ApplyRounding(d("1"), "tenth", decimal.Zero); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for unknown policy, got %v", err)
	}
}

func TestValidateChannelPrice(t *testing.T) {
	if err := ValidateChannelPrice(d("1000"), d("20"), d("11")); err != nil {
		t.Fatalf("expected valid, got %v", err)
	}
	bad := [][3]string{
		{"-1", "0", "0"},
		{"1", "-1", "0"},
		{"1", "100", "0"},
		{"1", "0", "-1"},
	}
	for _, b := range bad {
		if err := ValidateChannelPrice(d(b[0]), d(b[1]), d(b[2])); !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("expected validation error for %v, got %v", b, err)
		}
	}
}

func TestFormatSku(t *testing.T) {
	if got := FormatSku("ING", "-", 4, 7); got != "ING-0007" {
		t.Fatalf("expected ING-0007, got %s", got)
	}
	if got := FormatSku("RCP", "", 2, 12345); got != "RCP12345" {
		t.Fatalf("expected no truncation, got %s", got)
	}
}

func TestChannelEconomics(t *testing.T) {
	net, profit, margin := ChannelEconomics(d("1000"), d("20"), d("600"))
	if !net.Equal(d("800")) || !profit.Equal(d("200")) || !margin.Equal(d("20")) {
		t.Fatalf("unexpected economics net=%s profit=%s margin=%s", net, profit, margin)
	}

	_, _, margin = ChannelEconomics(decimal.Zero, d("20"), d("600"))
	if !margin.IsZero() {
		t.Fatalf("expected zero margin for zero price, got %s", margin)
	}
}
