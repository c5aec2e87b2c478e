package parse

import (
	"context"
	"testing"
)

func TestValidateRecordAccepts(t *testing.T) {
	e := newTestEngine()
	rec := e.ExtractInvoiceData(context.Background(), sampleInvoice, nil)
	if err := ValidateRecord(rec); err != nil {
		t.Errorf("assembled record failed validation: %v", err)
	}
	if err := ValidateRecord(Record{}); err != nil {
		t.Errorf("empty record failed validation: %v", err)
	}
}

func TestValidateRecordRejects(t *testing.T) {
	tests := []struct {
		name string
		rec  Record
	}{
		{"unknown top-level key", Record{"unexpected": "x"}},
		{"overlong invoice number", Record{
			"invoice": Section{"number": "123456789012345"},
		}},
		{"malformed inn", Record{
			"supplier": Section{"inn": "12AB"},
		}},
		{"wrong item type", Record{
			"line_items": []Section{{"quantity": "ten"}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateRecord(tt.rec); err == nil {
				t.Error("invalid record passed validation")
			}
		})
	}
}
