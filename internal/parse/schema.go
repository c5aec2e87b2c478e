package parse

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// recordSchema describes the shape of an assembled record. Validation
// is advisory: a failing record is reported, never discarded.
const recordSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "invoice": {
      "type": "object",
      "properties": {
        "number":      {"type": "string", "minLength": 1, "maxLength": 10},
        "date":        {"type": "string"},
        "title":       {"type": "string"},
        "validity":    {"type": "string"},
        "payment_due": {"type": "string"}
      }
    },
    "supplier": {"$ref": "#/$defs/party"},
    "customer": {"$ref": "#/$defs/party"},
    "line_items": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "line_number":            {"type": "integer", "minimum": 1},
          "product_name":           {"type": "string"},
          "unit":                   {"type": "string"},
          "quantity":               {"type": "number"},
          "delivery_terms":         {"type": "string"},
          "unit_price_without_vat": {"type": "number"},
          "amount_without_vat":     {"type": "number"},
          "vat_amount":             {"type": "number"},
          "total_with_vat":         {"type": "number"}
        }
      }
    },
    "financial_summary": {
      "type": "object",
      "properties": {
        "subtotal_without_vat": {"type": "number"},
        "vat": {
          "type": "object",
          "properties": {
            "rate":   {"type": "string"},
            "amount": {"type": "number"}
          }
        },
        "vat_exempt":      {"type": "boolean"},
        "total_with_vat":  {"type": "number"},
        "total_amount":    {"type": "number"},
        "amount_in_words": {"type": "string"},
        "items_count":     {"type": "integer"},
        "currency":        {"type": "string"}
      }
    },
    "signatories": {"type": "object"},
    "terms_and_conditions": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "number": {"type": "integer"},
          "text":   {"type": "string"}
        }
      }
    },
    "additional_info": {"type": "object"}
  },
  "$defs": {
    "party": {
      "type": "object",
      "properties": {
        "company_name": {"type": "string"},
        "inn":     {"type": "string", "pattern": "^[0-9]{10,12}$"},
        "kpp":     {"type": "string", "pattern": "^[0-9]{9}$"},
        "address": {"type": "string"},
        "phone":   {"type": "string"},
        "bank_details": {
          "type": "object",
          "properties": {
            "settlement_account":    {"type": "string", "pattern": "^[0-9]{20}$"},
            "correspondent_account": {"type": "string", "pattern": "^[0-9]{20}$"},
            "bik":                   {"type": "string", "pattern": "^[0-9]{9}$"},
            "bank_name":             {"type": "string"}
          }
        },
        "contract": {"type": "object"}
      }
    }
  }
}`

var compiledRecordSchema = jsonschema.MustCompileString("record.schema.json", recordSchema)

// ValidateRecord checks an assembled record against the record schema.
func ValidateRecord(r Record) error {
	raw, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("decode record: %w", err)
	}
	if err := compiledRecordSchema.Validate(doc); err != nil {
		return fmt.Errorf("record schema: %w", err)
	}
	return nil
}
