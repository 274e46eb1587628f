package conditions

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/dukex/crmflow/pkg/models"
	"github.com/spf13/cast"
)

var labelKeys = []string{"name", "label", "title"}

// normalize reduces a resolved value to a scalar. Related objects become their
// display label, other composites their JSON form.
func normalize(value any) any {
	if value == nil {
		return nil
	}

	if rv := reflect.ValueOf(value); rv.Kind() == reflect.Pointer && rv.IsNil() {
		return nil
	}

	switch v := value.(type) {
	case string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64, json.Number:
		return v
	case time.Time:
		return v.Format(time.RFC3339)
	case models.Labeler:
		return v.Label()
	case models.Entity:
		for _, key := range labelKeys {
			if label, ok := v.Get(key); ok {
				if s, isString := label.(string); isString {
					return s
				}
			}
		}

		return serialize(v)
	case map[string]any:
		for _, key := range labelKeys {
			if label, ok := v[key].(string); ok {
				return label
			}
		}

		return serialize(v)
	case fmt.Stringer:
		return v.String()
	default:
		return serialize(v)
	}
}

func serialize(value any) string {
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Sprint(value)
	}

	return string(encoded)
}

func isEmpty(value any) bool {
	if value == nil {
		return true
	}

	s, ok := value.(string)

	return ok && s == ""
}

func text(value any) string {
	if s, ok := value.(string); ok {
		return s
	}

	s, err := cast.ToStringE(value)
	if err != nil {
		return fmt.Sprint(value)
	}

	return s
}

// number parses a scalar as float64. Booleans and empty strings are not numbers.
func number(value any) (float64, bool) {
	switch v := value.(type) {
	case nil, bool:
		return 0, false
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}

		return parsed, true
	}

	parsed, err := cast.ToFloat64E(value)
	if err != nil {
		return 0, false
	}

	return parsed, true
}
