// Package template renders action params against the triggering entity.
package template

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
	"text/template"
	"time"

	"github.com/dukex/crmflow/pkg/models"
)

var ErrNotFinite = errors.New("value is not a finite number")

// IsTemplate reports whether the string contains template actions.
func IsTemplate(input string) bool {
	return strings.Contains(input, "{{")
}

// Data builds the template data for a workflow acting on an entity.
func Data(workflow *models.Workflow, entity models.Entity) map[string]any {
	data := map[string]any{}

	if entity != nil {
		ref := entity.Ref()
		data["entity"] = map[string]any{
			"type":      ref.Type,
			"id":        ref.ID,
			"tenant_id": ref.TenantID,
		}
	}

	if workflow != nil {
		data["workflow"] = map[string]any{
			"id":            workflow.ID,
			"name":          workflow.Name,
			"trigger_event": workflow.TriggerEvent,
		}
	}

	return data
}

func funcs(entity models.Entity) template.FuncMap {
	return template.FuncMap{
		"now": func() string {
			return time.Now().UTC().Format(time.RFC3339)
		},
		"field": func(path string) any {
			if entity == nil {
				return ""
			}

			value, ok := entity.Get(path)
			if !ok {
				return ""
			}

			if labeler, isLabeler := value.(models.Labeler); isLabeler {
				return labeler.Label()
			}

			return value
		},
	}
}

// RenderString renders a template to text. Inputs without template actions are returned untouched.
func RenderString(input string, workflow *models.Workflow, entity models.Entity) (string, error) {
	if !IsTemplate(input) {
		return input, nil
	}

	tmpl, err := template.New("action").Funcs(funcs(entity)).Parse(input)
	if err != nil {
		return "", fmt.Errorf("failed to parse template '%s': %w", input, err)
	}

	var buf strings.Builder

	err = tmpl.Execute(&buf, Data(workflow, entity))
	if err != nil {
		return "", fmt.Errorf("failed to execute template '%s': %w", input, err)
	}

	return buf.String(), nil
}

var singleFieldPattern = regexp.MustCompile(`^\{\{-?\s*field\s+"([^"]+)"\s*-?\}\}$`)

// RenderValue renders a param value. A template made of a single field call
// yields the field value with its own type (nil when unresolved); any other
// template yields text.
func RenderValue(input string, workflow *models.Workflow, entity models.Entity) (any, error) {
	match := singleFieldPattern.FindStringSubmatch(strings.TrimSpace(input))
	if match == nil {
		return RenderString(input, workflow, entity)
	}

	if entity == nil {
		return nil, nil
	}

	value, ok := entity.Get(match[1])
	if !ok {
		return nil, nil
	}

	if labeler, isLabeler := value.(models.Labeler); isLabeler {
		return labeler.Label(), nil
	}

	switch number := value.(type) {
	case float64:
		if math.IsNaN(number) || math.IsInf(number, 0) {
			return nil, fmt.Errorf("%w: field %s is %v", ErrNotFinite, match[1], number)
		}
	case float32:
		if math.IsNaN(float64(number)) || math.IsInf(float64(number), 0) {
			return nil, fmt.Errorf("%w: field %s is %v", ErrNotFinite, match[1], number)
		}
	}

	return value, nil
}
