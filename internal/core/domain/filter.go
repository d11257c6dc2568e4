package domain

import (
	"fmt"
	"strings"
	"time"
)

// Operator is a comparison used by a filter condition.
type Operator string

// Supported operators.
const (
	OpEq    Operator = "=="
	OpNotEq Operator = "!="
	OpGt    Operator = ">"
	OpLt    Operator = "<"
)

// IsValid returns true if the operator is recognised.
func (o Operator) IsValid() bool {
	switch o {
	case OpEq, OpNotEq, OpGt, OpLt:
		return true
	default:
		return false
	}
}

// Filter fields that are not metadata keys.
const (
	// FieldContent addresses the chunk text itself.
	FieldContent = "content"

	// FieldTenant addresses the tenant column.
	FieldTenant = "tenant"

	// metaPrefix qualifies metadata keys, e.g. "meta.chat_id".
	metaPrefix = "meta."
)

// MetaField returns the qualified filter field for a metadata key.
func MetaField(key string) string {
	return metaPrefix + key
}

// MetaKey strips the metadata qualifier from a field.
// It returns false if the field does not address metadata.
func MetaKey(field string) (string, bool) {
	if !strings.HasPrefix(field, metaPrefix) {
		return "", false
	}
	return strings.TrimPrefix(field, metaPrefix), true
}

// Condition is one (field, operator, value) term of a filter.
// Values are compared as strings; dates must already be in DateLayout.
type Condition struct {
	Field string
	Op    Operator
	Value string
}

// Filter is a conjunction of conditions scoped to one tenant.
// The tenant term is a dedicated field so it cannot be left out by accident.
type Filter struct {
	Tenant     string
	Conditions []Condition
}

// NewFilter creates a filter scoped to tenant.
func NewFilter(tenant string, conds ...Condition) Filter {
	return Filter{Tenant: tenant, Conditions: conds}
}

// Where returns a copy of the filter with an extra condition.
func (f Filter) Where(field string, op Operator, value string) Filter {
	conds := make([]Condition, len(f.Conditions), len(f.Conditions)+1)
	copy(conds, f.Conditions)
	return Filter{Tenant: f.Tenant, Conditions: append(conds, Condition{Field: field, Op: op, Value: value})}
}

// NewerThan restricts the filter to chunks whose date is strictly after t.
func (f Filter) NewerThan(t time.Time) Filter {
	return f.Where(MetaField(MetaDate), OpGt, FormatDate(t))
}

// Validate rejects filters without a tenant or with malformed conditions.
func (f Filter) Validate() error {
	if strings.TrimSpace(f.Tenant) == "" {
		return ErrMissingTenant
	}
	for _, c := range f.Conditions {
		if !c.Op.IsValid() {
			return fmt.Errorf("%w: unknown operator %q", ErrValidation, c.Op)
		}
		if c.Field == FieldContent || c.Field == FieldTenant {
			continue
		}
		if key, ok := MetaKey(c.Field); !ok || key == "" {
			return fmt.Errorf("%w: unknown filter field %q", ErrValidation, c.Field)
		}
	}
	return nil
}

// Matches evaluates the filter against a chunk.
// Missing metadata keys never satisfy a condition.
func (f Filter) Matches(c *Chunk) bool {
	if c.Tenant != f.Tenant {
		return false
	}
	for _, cond := range f.Conditions {
		var actual string
		switch cond.Field {
		case FieldContent:
			actual = c.Content
		case FieldTenant:
			actual = c.Tenant
		default:
			key, _ := MetaKey(cond.Field)
			v, ok := c.Metadata[key]
			if !ok || v == nil {
				return false
			}
			actual = fmt.Sprint(v)
		}
		if !cond.Op.compare(actual, cond.Value) {
			return false
		}
	}
	return true
}

func (o Operator) compare(actual, want string) bool {
	switch o {
	case OpEq:
		return actual == want
	case OpNotEq:
		return actual != want
	case OpGt:
		return actual > want
	case OpLt:
		return actual < want
	default:
		return false
	}
}

// Order describes how filtered fetches are sorted.
type Order struct {
	// Field is a filter field; empty means insertion order.
	Field string

	// Desc sorts descending when true.
	Desc bool
}

// ByDateDesc orders newest first.
var ByDateDesc = Order{Field: MetaField(MetaDate), Desc: true}
