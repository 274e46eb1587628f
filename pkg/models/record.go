package models

import (
	"fmt"
	"maps"
	"strings"
	"time"
)

// Record is a generic, map backed entity snapshot used for entity types that have
// no typed adapter.
type Record struct {
	Type       string         `json:"type"       validate:"required"`
	ID         string         `json:"id"`
	TenantID   string         `json:"tenant_id"  validate:"required"`
	Attributes map[string]any `json:"attributes"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

func (r *Record) Ref() EntityRef {
	return EntityRef{Type: r.Type, ID: r.ID, TenantID: r.TenantID}
}

func (r *Record) Get(path string) (any, bool) {
	if value, ok := Lookup(r.Attributes, path); ok {
		return value, true
	}

	switch path {
	case "id":
		return r.ID, r.ID != ""
	case "type":
		return r.Type, true
	case "tenant_id":
		return r.TenantID, true
	}

	return nil, false
}

// Set writes a value at a dotted path, creating intermediate objects as needed.
func (r *Record) Set(field string, value any) error {
	if field == "" {
		return fmt.Errorf("%w: empty field", ErrFieldNotWritable)
	}

	if r.Attributes == nil {
		r.Attributes = make(map[string]any)
	}

	parts := strings.Split(field, ".")
	current := r.Attributes

	for _, part := range parts[:len(parts)-1] {
		child, exists := current[part]
		if !exists || child == nil {
			next := make(map[string]any)
			current[part] = next
			current = next

			continue
		}

		next, ok := child.(map[string]any)
		if !ok {
			return fmt.Errorf("%w: %s is not an object", ErrFieldNotWritable, part)
		}

		current = next
	}

	current[parts[len(parts)-1]] = value

	return nil
}

// Clone returns a copy of the record whose nested attributes can be written
// without touching r.
func (r *Record) Clone() MutableEntity {
	clone := *r
	clone.Attributes = cloneAttributes(r.Attributes)

	return &clone
}

func cloneAttributes(attributes map[string]any) map[string]any {
	if attributes == nil {
		return nil
	}

	clone := make(map[string]any, len(attributes))
	for key, value := range attributes {
		if nested, ok := value.(map[string]any); ok {
			value = cloneAttributes(nested)
		}

		clone[key] = value
	}

	return clone
}

// Merge overwrites top level attributes with the given values.
func (r *Record) Merge(attributes map[string]any) {
	if r.Attributes == nil {
		r.Attributes = make(map[string]any, len(attributes))
	}

	maps.Copy(r.Attributes, attributes)
}
