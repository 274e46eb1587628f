package models

import (
	"fmt"
	"strings"
)

// EntityRef identifies a domain object across entity types and tenants.
type EntityRef struct {
	Type     string `json:"type"`
	ID       string `json:"id"`
	TenantID string `json:"tenant_id"`
}

func (r EntityRef) String() string {
	return fmt.Sprintf("%s/%s@%s", r.Type, r.ID, r.TenantID)
}

// Event builds the trigger event name "<entity>.<verb>" for this entity type.
func (r EntityRef) Event(verb string) string {
	return r.Type + "." + verb
}

// Entity is the post mutation snapshot a workflow is evaluated against.
// Get resolves a dotted path ("stage.probability"); the bool is false when the
// path does not resolve.
type Entity interface {
	Ref() EntityRef
	Get(path string) (any, bool)
}

// MutableEntity is an entity whose snapshot can be changed by update_field actions.
type MutableEntity interface {
	Entity
	Set(field string, value any) error
}

// Cloner is implemented by mutable entities that can be copied, so a write is
// tried on the copy before the original changes.
type Cloner interface {
	Clone() MutableEntity
}

// Labeler is implemented by related objects that have a display label.
type Labeler interface {
	Label() string
}

// Lookup resolves a dotted path inside nested maps and entities.
func Lookup(value any, path string) (any, bool) {
	if path == "" {
		return value, value != nil
	}

	head, rest, _ := strings.Cut(path, ".")

	var next any

	switch v := value.(type) {
	case Entity:
		return v.Get(path)
	case map[string]any:
		found, ok := v[head]
		if !ok {
			return nil, false
		}

		next = found
	case map[string]string:
		found, ok := v[head]
		if !ok {
			return nil, false
		}

		next = found
	default:
		return nil, false
	}

	if rest == "" {
		return next, next != nil
	}

	return Lookup(next, rest)
}
