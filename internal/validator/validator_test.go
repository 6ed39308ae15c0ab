package validator

import (
	"testing"

	"github.com/go-playground/validator/v10"
)

type payload struct {
	Color   string `validate:"omitempty,hex_color"`
	TxType  string `validate:"omitempty,transaction_type"`
	CatType string `validate:"omitempty,category_type"`
	Theme   string `validate:"omitempty,theme"`
	Date    string `validate:"omitempty,flex_date"`
}

func TestCustomValidators(t *testing.T) {
	v := validator.New()
	RegisterOn(v)

	tests := []struct {
		name  string
		input payload
		valid bool
	}{
		{"short_hex", payload{Color: "#abc"}, true},
		{"long_hex", payload{Color: "#22C55E"}, true},
		{"hex_without_hash", payload{Color: "22c55e"}, false},
		{"named_color", payload{Color: "green"}, false},
		{"income_tx", payload{TxType: "income"}, true},
		{"both_tx", payload{TxType: "both"}, false},
		{"both_category", payload{CatType: "both"}, true},
		{"transfer_category", payload{CatType: "transfer"}, false},
		{"dark_theme", payload{Theme: "dark"}, true},
		{"sepia_theme", payload{Theme: "sepia"}, false},
		{"plain_date", payload{Date: "2024-02-29"}, true},
		{"rfc3339_date", payload{Date: "2024-02-29T10:00:00Z"}, true},
		{"bad_date", payload{Date: "29/02/2024"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(tt.input)
			if tt.valid && err != nil {
				t.Errorf("expected valid, got %v", err)
			}
			if !tt.valid && err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate("2024-03-01")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Year() != 2024 || got.Month() != 3 || got.Day() != 1 {
		t.Errorf("unexpected date %s", got)
	}

	if _, err := ParseDate("yesterday"); err == nil {
		t.Error("expected error for unparseable date")
	}
}
