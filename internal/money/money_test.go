package money

import (
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "plain integer", input: "10", want: "10.00"},
		{name: "two decimals", input: "12.50", want: "12.50"},
		{name: "rounds extra digits", input: "3.333", want: "3.33"},
		{name: "negative allowed", input: "-4.20", want: "-4.20"},
		{name: "garbage rejected", input: "ten bucks", wantErr: true},
		{name: "empty rejected", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && got.String() != tt.want {
				t.Errorf("Parse(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestParsePositive(t *testing.T) {
	if _, err := ParsePositive("0"); err == nil {
		t.Error("expected error for zero amount")
	}
	if _, err := ParsePositive("-5"); err == nil {
		t.Error("expected error for negative amount")
	}
	if _, err := ParsePositive("0.01"); err != nil {
		t.Errorf("unexpected error for smallest positive amount: %v", err)
	}
}

func TestFromFloatRejectsNonFinite(t *testing.T) {
	nan := func() float64 { var z float64; return z / z }()
	inf := func() float64 { var z float64; return 1 / z }()

	if _, err := FromFloat(nan); err == nil {
		t.Error("expected error for NaN")
	}
	if _, err := FromFloat(inf); err == nil {
		t.Error("expected error for +Inf")
	}
	got, err := FromFloat(19.99)
	if err != nil {
		t.Fatalf("FromFloat(19.99) error: %v", err)
	}
	if got.String() != "19.99" {
		t.Errorf("FromFloat(19.99) = %s", got)
	}
}

func TestSplitEven(t *testing.T) {
	tests := []struct {
		name   string
		amount string
		n      int
		want   []string
	}{
		{name: "clean division", amount: "10.00", n: 2, want: []string{"5.00", "5.00"}},
		{name: "remainder cents to first shares", amount: "10.00", n: 3, want: []string{"3.34", "3.33", "3.33"}},
		{name: "two leftover cents", amount: "0.05", n: 3, want: []string{"0.02", "0.02", "0.01"}},
		{name: "single share", amount: "7.77", n: 1, want: []string{"7.77"}},
		{name: "more shares than cents", amount: "0.02", n: 3, want: []string{"0.01", "0.01", "0.00"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			amount, err := Parse(tt.amount)
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", tt.amount, err)
			}
			shares, err := amount.SplitEven(tt.n)
			if err != nil {
				t.Fatalf("SplitEven(%d) error: %v", tt.n, err)
			}
			if len(shares) != len(tt.want) {
				t.Fatalf("got %d shares, want %d", len(shares), len(tt.want))
			}
			sum := Zero()
			for i, share := range shares {
				if share.String() != tt.want[i] {
					t.Errorf("share[%d] = %s, want %s", i, share, tt.want[i])
				}
				sum = sum.Add(share)
			}
			if !sum.Equal(amount) {
				t.Errorf("shares sum to %s, want %s", sum, amount)
			}
		})
	}
}

func TestSplitEvenRejectsInvalidInput(t *testing.T) {
	ten, _ := Parse("10.00")
	if _, err := ten.SplitEven(0); err == nil {
		t.Error("expected error for zero shares")
	}
	if _, err := Zero().SplitEven(2); err == nil {
		t.Error("expected error for splitting zero")
	}
	neg, _ := Parse("-3.00")
	if _, err := neg.SplitEven(2); err == nil {
		t.Error("expected error for splitting a negative amount")
	}
}

func TestArithmetic(t *testing.T) {
	a, _ := Parse("10.10")
	b, _ := Parse("0.20")

	if got := a.Add(b).String(); got != "10.30" {
		t.Errorf("Add = %s, want 10.30", got)
	}
	if got := a.Sub(b).String(); got != "9.90" {
		t.Errorf("Sub = %s, want 9.90", got)
	}
	if got := b.Sub(a); !got.IsNegative() {
		t.Errorf("expected negative result, got %s", got)
	}
	if got := Min(a, b); !got.Equal(b) {
		t.Errorf("Min = %s, want %s", got, b)
	}
	if a.Neg().Add(a).String() != "0.00" {
		t.Error("a + (-a) should be zero")
	}
}

func TestJSONRoundTrip(t *testing.T) {
	a, _ := Parse("42.05")
	data, err := a.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON error: %v", err)
	}
	if string(data) != `"42.05"` {
		t.Errorf("MarshalJSON = %s", data)
	}

	var back Amount
	if err := back.UnmarshalJSON(data); err != nil {
		t.Fatalf("UnmarshalJSON error: %v", err)
	}
	if !back.Equal(a) {
		t.Errorf("round trip = %s, want %s", back, a)
	}

	var fromNumber Amount
	if err := fromNumber.UnmarshalJSON([]byte("3.5")); err != nil {
		t.Fatalf("UnmarshalJSON number error: %v", err)
	}
	if fromNumber.String() != "3.50" {
		t.Errorf("number decode = %s, want 3.50", fromNumber)
	}
}
