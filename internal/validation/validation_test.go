package validation

import (
	"context"
	"strings"
	"testing"

	"inventory-dashboard/internal/apperror"
)

type sample struct {
	Filter string `default:"month" validate:"oneof=week month quarter year"`
	Limit  int    `default:"50" validate:"gte=1,lte=500"`
	Name   string `validate:"omitempty,max=5"`
}

func TestStruct_AppliesDefaults(t *testing.T) {
	var s sample
	if err := Struct(context.Background(), &s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Filter != "month" || s.Limit != 50 {
		t.Fatalf("defaults not applied: %+v", s)
	}
}

func TestStruct_KeepsExplicitValues(t *testing.T) {
	s := sample{Filter: "week", Limit: 10}
	if err := Struct(context.Background(), &s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Filter != "week" || s.Limit != 10 {
		t.Fatalf("explicit values overwritten: %+v", s)
	}
}

func TestStruct_ReportsValidationKind(t *testing.T) {
	s := sample{Filter: "decade", Limit: 1000, Name: "too-long-name"}
	err := Struct(context.Background(), &s)
	if err == nil {
		t.Fatalf("expected validation error")
	}
	if !apperror.Is(err, apperror.KindValidation) {
		t.Fatalf("expected validation kind, got %v", err)
	}
	msg := err.Error()
	for _, want := range []string{"Filter must be one of: week, month, quarter, year", "Limit must be less than or equal to 500", "Name must be at most 5 characters"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("expected %q in %q", want, msg)
		}
	}
}

func TestStruct_RejectsNonPointer(t *testing.T) {
	if err := Struct(context.Background(), sample{}); err == nil {
		t.Fatalf("expected error for non-pointer")
	}
}
