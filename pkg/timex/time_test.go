package timex

import (
	"encoding/json"
	"testing"
	"time"
)

func TestTime_UnixMethods(t *testing.T) {
	// Create a fixed time
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	tt := Time(now)

	// Test Unix()
	if tt.Unix() != now.Unix() {
		t.Errorf("Unix() = %v, want %v", tt.Unix(), now.Unix())
	}

	// Test UnixMilli()
	if tt.UnixMilli() != now.UnixMilli() {
		t.Errorf("UnixMilli() = %v, want %v", tt.UnixMilli(), now.UnixMilli())
	}

	// Test UnixMicro()
	if tt.UnixMicro() != now.UnixMicro() {
		t.Errorf("UnixMicro() = %v, want %v", tt.UnixMicro(), now.UnixMicro())
	}

	// Test UnixNano()
	if tt.UnixNano() != now.UnixNano() {
		t.Errorf("UnixNano() = %v, want %v", tt.UnixNano(), now.UnixNano())
	}

	// Verify it's not returning time.Now() by waiting a bit
	time.Sleep(10 * time.Millisecond)
	if tt.Unix() != now.Unix() {
		t.Errorf("Unix() changed after sleep, it should be static. got %v, want %v", tt.Unix(), now.Unix())
	}
}

func TestTime_JSONRoundTrip(t *testing.T) {
	now := Time(time.Date(2024, 3, 15, 8, 30, 0, 123000000, time.UTC))

	data, err := json.Marshal(now)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(data) != `"2024-03-15T08:30:00.123Z"` {
		t.Errorf("Marshal() = %s, want %q", data, "2024-03-15T08:30:00.123Z")
	}

	var back Time
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if !back.Time().Equal(now.Time()) {
		t.Errorf("round trip = %v, want %v", back, now)
	}
}

func TestTime_UnmarshalLegacyLayout(t *testing.T) {
	var tt Time
	if err := json.Unmarshal([]byte(`"2023-11-02 21:15:04"`), &tt); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if tt.Time().Year() != 2023 || tt.Time().Minute() != 15 {
		t.Errorf("parsed legacy layout wrong: %v", tt)
	}
}

func TestTime_After(t *testing.T) {
	a := Time(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	b := a.Add(time.Millisecond)
	if !b.After(a) {
		t.Error("b should be after a")
	}
	if a.After(b) {
		t.Error("a should not be after b")
	}
	if a.After(a) {
		t.Error("a should not be after itself")
	}
}
