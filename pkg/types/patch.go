package types

import (
	"encoding/json"
	"fmt"
	"maps"
	"strconv"
	"strings"
	"time"
)

// Patch field keys. Payload entries are addressed as "payload.<key>".
const (
	FieldID            = "id"
	FieldKind          = "kind"
	FieldStatus        = "status"
	FieldReference     = "reference"
	FieldTitle         = "title"
	FieldCustomerName  = "customer_name"
	FieldCustomerEmail = "customer_email"
	FieldCategory      = "category"
	FieldTotal         = "total"
	FieldCreatedAt     = "created_at"
	FieldUpdatedAt     = "updated_at"

	payloadPrefix = "payload."
)

// immutableFields cannot appear in a patch.
var immutableFields = map[string]bool{
	FieldID:        true,
	FieldKind:      true,
	FieldCreatedAt: true,
	FieldUpdatedAt: true,
}

// Patch is a shallow set of field changes merged over a record.
type Patch map[string]any

func payloadKey(field string) (string, bool) {
	key, ok := strings.CutPrefix(field, payloadPrefix)
	if !ok || key == "" {
		return "", false
	}
	return key, true
}

// Validate checks that every key names a patchable field and every value
// has the field's type. Status values are checked against kind.
func (p Patch) Validate(kind Kind) error {
	if len(p) == 0 {
		return fmt.Errorf("%w: empty patch", ErrValidation)
	}
	for field, value := range p {
		if immutableFields[field] {
			return fmt.Errorf("%w: %s", ErrInvalidField, field)
		}
		switch field {
		case FieldStatus:
			s, ok := value.(string)
			if !ok {
				return fmt.Errorf("%w: %s must be a string", ErrTypeMismatch, field)
			}
			if !kind.ValidStatus(s) {
				return fmt.Errorf("%w: %q for %s", ErrInvalidStatus, s, kind)
			}
		case FieldReference, FieldTitle, FieldCustomerName, FieldCustomerEmail, FieldCategory:
			if _, ok := value.(string); !ok {
				return fmt.Errorf("%w: %s must be a string", ErrTypeMismatch, field)
			}
		case FieldTotal:
			if _, ok := toFloat(value); !ok {
				return fmt.Errorf("%w: %s must be a number", ErrTypeMismatch, field)
			}
		default:
			if _, ok := payloadKey(field); !ok {
				return fmt.Errorf("%w: unknown field %s", ErrInvalidField, field)
			}
		}
	}
	return nil
}

// Apply returns a copy of r with the patch merged over it and UpdatedAt set
// to now. UpdatedAt never moves before CreatedAt. The patch must be valid
// for r.Kind.
func (p Patch) Apply(r Record, now time.Time) (Record, error) {
	if err := p.Validate(r.Kind); err != nil {
		return Record{}, err
	}
	out := r.Clone()
	for field, value := range p {
		switch field {
		case FieldStatus:
			out.Status = value.(string)
		case FieldReference:
			out.Reference = value.(string)
		case FieldTitle:
			out.Title = value.(string)
		case FieldCustomerName:
			out.CustomerName = value.(string)
		case FieldCustomerEmail:
			out.CustomerEmail = value.(string)
		case FieldCategory:
			out.Category = value.(string)
		case FieldTotal:
			out.Total, _ = toFloat(value)
		default:
			key, _ := payloadKey(field)
			if out.Payload == nil {
				out.Payload = make(map[string]any)
			}
			out.Payload[key] = value
		}
	}
	if now.Before(out.CreatedAt) {
		now = out.CreatedAt
	}
	out.UpdatedAt = now
	return out, nil
}

// Clone returns a shallow copy of the patch.
func (p Patch) Clone() Patch {
	return maps.Clone(p)
}

// ParsePatch builds a patch from key=value arguments. Text fields keep the
// raw value, total is parsed as a number, and payload values keep their
// JSON type when they parse as JSON.
func ParsePatch(args []string) (Patch, error) {
	p := make(Patch, len(args))
	for _, arg := range args {
		key, raw, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("%w: %q (expected key=value)", ErrValidation, arg)
		}
		switch {
		case key == FieldTotal:
			f, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: %s must be a number", ErrTypeMismatch, key)
			}
			p[key] = f
		case strings.HasPrefix(key, payloadPrefix):
			var parsed any
			if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
				parsed = raw
			}
			p[key] = parsed
		default:
			p[key] = raw
		}
	}
	return p, nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
