package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestTimestampAcceptsNaiveISO(t *testing.T) {
	var it Item
	raw := `{"id":"1","name":"n","description":"d","created_at":"2024-03-01T10:20:30.123456","updated_at":"2024-03-02T08:00:00Z"}`
	if err := json.Unmarshal([]byte(raw), &it); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	want := time.Date(2024, 3, 1, 10, 20, 30, 123456000, time.UTC)
	if !it.CreatedAt.Equal(want) {
		t.Errorf("created_at = %v, want %v", it.CreatedAt, want)
	}
	if it.UpdatedAt.Hour() != 8 {
		t.Errorf("updated_at = %v", it.UpdatedAt)
	}
}

func TestTimestampEmptyAndNull(t *testing.T) {
	var it Item
	if err := json.Unmarshal([]byte(`{"created_at":"","updated_at":null}`), &it); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !it.CreatedAt.IsZero() || !it.UpdatedAt.IsZero() {
		t.Errorf("expected zero timestamps, got %v / %v", it.CreatedAt, it.UpdatedAt)
	}
}

func TestTimestampRejectsGarbage(t *testing.T) {
	var ts Timestamp
	if err := json.Unmarshal([]byte(`"yesterday"`), &ts); err == nil {
		t.Error("expected error for unparseable timestamp")
	}
}

func TestDraftOmitsEmptyOptionals(t *testing.T) {
	b, err := json.Marshal(Draft{Name: "a", Description: "b"})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"name":"a","description":"b"}` {
		t.Errorf("draft json = %s", b)
	}
}
