package money

import (
	"encoding/json"
	"testing"
)

func TestArithmeticIsExact(t *testing.T) {
	// 0.1 + 0.2 is the classic float trap.
	a := MustNew("0.1")
	b := MustNew("0.2")
	if got := a.Add(b).String(); got != "0.3" {
		t.Fatalf("0.1 + 0.2 = %s", got)
	}

	big := MustNew("999999999999999.99")
	if got := big.Add(MustNew("0.01")).String(); got != "1000000000000000" {
		t.Fatalf("carry at 10^15 broke: %s", got)
	}
	if got := big.Sub(big).String(); got != "0" {
		t.Fatalf("x - x = %s", got)
	}
}

func TestNegAndSum(t *testing.T) {
	a := MustNew("1500.25")
	if !a.Add(a.Neg()).IsZero() {
		t.Fatalf("a + (-a) != 0")
	}
	total := Sum(MustNew("100"), MustNew("-40"), MustNew("-60"))
	if !total.IsZero() {
		t.Fatalf("balanced set sums to %s", total)
	}
}

func TestComparisons(t *testing.T) {
	small := MustNew("9.99")
	large := MustNew("10")
	if !small.LessThan(large) {
		t.Fatal("9.99 < 10 expected")
	}
	if large.LessThan(small) {
		t.Fatal("10 < 9.99 unexpected")
	}
	if !MustNew("5.0").Equal(MustNew("5")) {
		t.Fatal("5.0 != 5")
	}
	if !MustNew("-1").IsNegative() || !MustNew("1").IsPositive() || !Zero().IsZero() {
		t.Fatal("sign predicates broken")
	}
}

func TestStringRoundTrip(t *testing.T) {
	for _, s := range []string{"0", "5000", "4000.5", "-12.34", "1000000000"} {
		a := MustNew(s)
		back, err := New(a.String())
		if err != nil {
			t.Fatalf("round trip %s: %v", s, err)
		}
		if !a.Equal(back) {
			t.Fatalf("round trip %s -> %s", s, back)
		}
	}
	if got := MustNew("7").StringFixed(); got != "7.00" {
		t.Fatalf("StringFixed = %s", got)
	}
}

func TestJSONNumberAndString(t *testing.T) {
	out, err := json.Marshal(MustNew("1050.75"))
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != "1050.75" {
		t.Fatalf("marshal = %s, want bare number", out)
	}

	var fromNumber Amount
	if err := json.Unmarshal([]byte(`5000`), &fromNumber); err != nil {
		t.Fatal(err)
	}
	var fromString Amount
	if err := json.Unmarshal([]byte(`"5000"`), &fromString); err != nil {
		t.Fatal(err)
	}
	if !fromNumber.Equal(fromString) || !fromNumber.Equal(MustNew("5000")) {
		t.Fatalf("unmarshal mismatch: %s vs %s", fromNumber, fromString)
	}

	if err := json.Unmarshal([]byte(`"abc"`), &fromString); err == nil {
		t.Fatal("expected error for non-decimal input")
	}
}
