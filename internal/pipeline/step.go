package pipeline

import (
	"context"
	"fmt"
	"reflect"
)

const inputTypeErrorTemplateConstant = "%s step expects %s input, received %T"

// Operation performs the work of a single step. The input is the value produced by the
// preceding step, or the pipeline's initial input for the first step.
type Operation func(executionContext context.Context, input any) (any, error)

// Step is a labelled unit of work executed by a Pipeline.
type Step struct {
	Label     string
	Operation Operation
}

// NewStep builds a step from an untyped operation.
func NewStep(label string, operation Operation) Step {
	return Step{Label: label, Operation: operation}
}

// InputTypeError reports a carried value whose dynamic type does not match the step's input type.
type InputTypeError struct {
	Label    string
	Expected string
	Received any
}

// Error describes the mismatch.
func (typeError InputTypeError) Error() string {
	return fmt.Sprintf(inputTypeErrorTemplateConstant, typeError.Label, typeError.Expected, typeError.Received)
}

// Typed builds a step from a function with concrete input and output types. A nil carried
// value is delivered as the zero value of Input, so steps that ignore their input can be
// declared with Input any.
func Typed[Input any, Output any](label string, operation func(context.Context, Input) (Output, error)) Step {
	return Step{
		Label: label,
		Operation: func(executionContext context.Context, input any) (any, error) {
			typedInput, conversionError := convertInput[Input](label, input)
			if conversionError != nil {
				return nil, conversionError
			}
			return operation(executionContext, typedInput)
		},
	}
}

// Tap runs the provided step and forwards the step's own input instead of its output.
// It threads a value across steps that produce nothing, such as a timer.
func Tap(step Step) Step {
	return Step{
		Label: step.Label,
		Operation: func(executionContext context.Context, input any) (any, error) {
			if _, operationError := step.Operation(executionContext, input); operationError != nil {
				return nil, operationError
			}
			return input, nil
		},
	}
}

// FailureReporter receives failures absorbed by a best-effort step.
type FailureReporter func(label string, failure error)

// BestEffort wraps a step so that its failure is reported and then absorbed: the wrapped
// step always succeeds, yielding the inner output on success and nil after a failure.
func BestEffort(step Step, reporter FailureReporter) Step {
	return Step{
		Label: step.Label,
		Operation: func(executionContext context.Context, input any) (any, error) {
			output, operationError := step.Operation(executionContext, input)
			if operationError == nil {
				return output, nil
			}
			if reporter != nil {
				reporter(step.Label, operationError)
			}
			return nil, nil
		},
	}
}

func convertInput[Input any](label string, input any) (Input, error) {
	var zero Input
	if input == nil {
		return zero, nil
	}
	typedInput, matches := input.(Input)
	if !matches {
		return zero, InputTypeError{
			Label:    label,
			Expected: reflect.TypeOf((*Input)(nil)).Elem().String(),
			Received: input,
		}
	}
	return typedInput, nil
}
