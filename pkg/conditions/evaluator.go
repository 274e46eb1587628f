// Package conditions evaluates workflow conditions against entity snapshots.
//
// Evaluation never fails: malformed conditions and unresolvable fields make the
// condition false. A list of conditions is a logical AND and an empty list matches.
package conditions

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dukex/crmflow/pkg/models"
)

var (
	ErrUnknownOperator        = errors.New("unknown condition operator")
	ErrConditionFieldRequired = errors.New("condition field is required")
	ErrInvalidConditionValue  = errors.New("invalid condition value")
)

type Evaluator struct {
	logger *slog.Logger
}

func NewEvaluator(logger *slog.Logger) *Evaluator {
	return &Evaluator{logger: logger.With("module", "condition_evaluator")}
}

// WithLogger returns an evaluator that reports configuration errors to logger.
func (e *Evaluator) WithLogger(logger *slog.Logger) *Evaluator {
	return &Evaluator{logger: logger}
}

// Matches reports whether all conditions hold for the entity.
func (e *Evaluator) Matches(conditions []models.Condition, entity models.Entity) bool {
	for index, condition := range conditions {
		matched, err := Evaluate(condition, entity)
		if err != nil {
			e.logger.Warn("Invalid condition treated as not matching",
				"index", index,
				"field", condition.Field,
				"operator", condition.Operator,
				"error", err)

			return false
		}

		if !matched {
			e.logger.Debug("Condition not matched",
				"index", index,
				"field", condition.Field,
				"operator", condition.Operator)

			return false
		}
	}

	return true
}

// Evaluate checks a single condition. The error is only set for configuration
// problems (unknown operator); the result is false in that case.
func Evaluate(condition models.Condition, entity models.Entity) (bool, error) {
	resolved := resolve(entity, condition.Field)

	switch condition.Operator {
	case models.OperatorIsEmpty:
		return isEmpty(resolved), nil
	case models.OperatorIsNotEmpty:
		return !isEmpty(resolved), nil
	}

	if !condition.Operator.Valid() {
		return false, fmt.Errorf("%w: %q", ErrUnknownOperator, condition.Operator)
	}

	expected := normalize(condition.Value)

	if resolved == nil {
		// only an equality against null or empty can hold for a missing value
		return condition.Operator == models.OperatorEqual && isEmpty(expected), nil
	}

	switch condition.Operator {
	case models.OperatorEqual:
		return equal(resolved, expected), nil
	case models.OperatorNotEqual:
		return !equal(resolved, expected), nil
	case models.OperatorContains:
		if expected == nil {
			return false, nil
		}

		return strings.Contains(strings.ToLower(text(resolved)), strings.ToLower(text(expected))), nil
	case models.OperatorStartsWith:
		if expected == nil {
			return false, nil
		}

		return strings.HasPrefix(strings.ToLower(text(resolved)), strings.ToLower(text(expected))), nil
	default:
		return compare(condition.Operator, resolved, expected), nil
	}
}

// Validate rejects condition definitions that could never evaluate meaningfully.
func Validate(condition models.Condition) error {
	if condition.Field == "" {
		return ErrConditionFieldRequired
	}

	if !condition.Operator.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownOperator, condition.Operator)
	}

	switch {
	case condition.Operator.Numeric():
		if _, ok := number(condition.Value); !ok {
			return fmt.Errorf("%w: %s on %s needs a number, got %v",
				ErrInvalidConditionValue, condition.Operator, condition.Field, condition.Value)
		}
	case condition.Operator == models.OperatorContains, condition.Operator == models.OperatorStartsWith:
		if condition.Value == nil {
			return fmt.Errorf("%w: %s on %s needs a value",
				ErrInvalidConditionValue, condition.Operator, condition.Field)
		}
	}

	return nil
}

func resolve(entity models.Entity, field string) any {
	if entity == nil || field == "" {
		return nil
	}

	value, ok := entity.Get(field)
	if !ok {
		return nil
	}

	return normalize(value)
}

func equal(actual, expected any) bool {
	if expected == nil {
		return false
	}

	actualNumber, actualIsNumber := number(actual)
	expectedNumber, expectedIsNumber := number(expected)

	if actualIsNumber && expectedIsNumber {
		return actualNumber == expectedNumber
	}

	return strings.EqualFold(text(actual), text(expected))
}

func compare(operator models.Operator, actual, expected any) bool {
	left, ok := number(actual)
	if !ok {
		return false
	}

	right, ok := number(expected)
	if !ok {
		return false
	}

	switch operator {
	case models.OperatorGreaterThan:
		return left > right
	case models.OperatorLessThan:
		return left < right
	case models.OperatorGreaterOrEqual:
		return left >= right
	case models.OperatorLessOrEqual:
		return left <= right
	default:
		return false
	}
}
