package types

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
)

func TestNullableUnmarshal(t *testing.T) {
	type payload struct {
		ID    Nullable[uuid.UUID] `json:"id"`
		Brand Nullable[string]    `json:"brand"`
	}

	var got payload
	if err := json.Unmarshal([]byte(`{"id": "00000000-0000-0000-0000-000000000001", "brand": "Acme"}`), &got); err != nil {
		t.Fatalf("unmarshal value: %v", err)
	}
	if !got.ID.Present || got.ID.Value == nil {
		t.Fatalf("expected present uuid, got %+v", got.ID)
	}
	if got.ID.Value.String() != "00000000-0000-0000-0000-000000000001" {
		t.Fatalf("unexpected uuid %s", got.ID.Value)
	}
	if got.Brand.Value == nil || *got.Brand.Value != "Acme" {
		t.Fatalf("unexpected brand %+v", got.Brand)
	}

	got = payload{}
	if err := json.Unmarshal([]byte(`{"id": null, "brand": null}`), &got); err != nil {
		t.Fatalf("unmarshal null: %v", err)
	}
	if !got.ID.IsNull() || !got.Brand.IsNull() {
		t.Fatalf("expected explicit nulls, got %+v", got)
	}

	got = payload{}
	if err := json.Unmarshal([]byte(`{}`), &got); err != nil {
		t.Fatalf("unmarshal missing: %v", err)
	}
	if got.ID.Present || got.Brand.Present {
		t.Fatalf("expected absent fields, got %+v", got)
	}
}

func TestNullableRejectsWrongType(t *testing.T) {
	var n Nullable[int]
	if err := json.Unmarshal([]byte(`"nope"`), &n); err == nil {
		t.Fatal("expected type error")
	}
}
