package date

import (
	"encoding/json"
	"testing"
	"time"
)

// TestTime assert that the time() is cannonical and gives comparable times.
func TestTime(t *testing.T) {
	d1 := New(2025, 7, 31)
	d2 := New(2025, 7, 31)

	if d1.time() != d2.time() {
		t.Errorf("invalid time() function same day gives two different time")
	}
}

func TestParse(t *testing.T) {
	testCases := []struct {
		in      string
		want    Date
		wantErr bool
	}{
		{in: "2025-07-01", want: New(2025, time.July, 1)},
		{in: "2025-7-1", want: New(2025, time.July, 1)},
		{in: "2024-03-15T00:00:00Z", want: New(2024, time.March, 15)},
		{in: "2024-03-15T16:30:00.123+00:00", want: New(2024, time.March, 15)},
		{in: "2024-03-15 10:00:00", want: New(2024, time.March, 15)},
		{in: " 2024-03-15 ", want: New(2024, time.March, 15)},
		{in: "15/03/2024", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := Parse(tc.in)
			if (err != nil) != tc.wantErr {
				t.Fatalf("Parse(%q) error = %v, wantErr %v", tc.in, err, tc.wantErr)
			}
			if got != tc.want {
				t.Errorf("Parse(%q) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestCompare(t *testing.T) {
	a, b := New(2024, 1, 1), New(2024, 1, 2)
	if !a.Before(b) || !b.After(a) {
		t.Errorf("%v should be before %v", a, b)
	}
	if (Date{}).Compare(a) != -1 || a.Compare(Date{}) != 1 {
		t.Errorf("zero date must sort before any date")
	}
	if a.Compare(New(2024, 1, 1)) != 0 {
		t.Errorf("equal dates must compare to 0")
	}
}

func TestEndOfDay(t *testing.T) {
	d := New(2024, 6, 30)
	eod := d.EndOfDay()
	if Of(eod) != d {
		t.Errorf("EndOfDay() = %v is not on %v", eod, d)
	}
	if Of(eod.Add(time.Nanosecond)) != d.Add(1) {
		t.Errorf("EndOfDay() + 1ns should be the next day")
	}
}

func TestJSON(t *testing.T) {
	var v struct {
		A Date `json:"a"`
		B Date `json:"b"`
		C Date `json:"c"`
	}
	if err := json.Unmarshal([]byte(`{"a":"2025-01-02","b":null,"c":""}`), &v); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if v.A != New(2025, 1, 2) || !v.B.IsZero() || !v.C.IsZero() {
		t.Errorf("Unmarshal() = %+v", v)
	}
	got, err := json.Marshal(v.A)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(got) != `"2025-01-02"` {
		t.Errorf("Marshal() = %s", got)
	}
}
