// Package pipeline runs ordered steps one at a time, threading each step's output into the
// next step and stopping at the first failure.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	loggerNotConfiguredMessageConstant  = "pipeline logger not configured"
	stepLabelMissingMessageConstant     = "pipeline step label not provided"
	stepOperationMissingMessageConstant = "pipeline step operation not provided"
	stepValidationErrorTemplateConstant = "%w (step %d)"
	stepFailureErrorTemplateConstant    = "%s step failed: %v"
	stepStartMessageConstant            = "pipeline step starting"
	stepSuccessMessageConstant          = "pipeline step completed"
	stepFailureMessageConstant          = "pipeline step failed"
	pipelineCompletedMessageConstant    = "pipeline completed"
	stepStartHumanTemplateConstant      = "step %d/%d started: %s"
	stepSuccessHumanTemplateConstant    = "step %d/%d completed: %s (%s)"
	stepFailureHumanTemplateConstant    = "step %d/%d failed: %s: %v"
	completionHumanTemplateConstant     = "pipeline %s completed %d step(s) in %s"
	pipelineNameFieldConstant           = "pipeline"
	stepLabelFieldConstant              = "step"
	stepPositionFieldConstant           = "position"
	stepCountFieldConstant              = "step_count"
	durationFieldConstant               = "duration"
)

var (
	// ErrLoggerNotConfigured indicates the logger dependency was missing.
	ErrLoggerNotConfigured = errors.New(loggerNotConfiguredMessageConstant)
	// ErrStepLabelMissing indicates a step was declared without a label.
	ErrStepLabelMissing = errors.New(stepLabelMissingMessageConstant)
	// ErrStepOperationMissing indicates a step was declared without an operation.
	ErrStepOperationMissing = errors.New(stepOperationMissingMessageConstant)
)

// StepError is the terminal failure of a pipeline run. It names the failing step and wraps its cause.
type StepError struct {
	Index int
	Label string
	Cause error
}

// Error describes the failing step and the reason.
func (stepError *StepError) Error() string {
	return fmt.Sprintf(stepFailureErrorTemplateConstant, stepError.Label, stepError.Cause)
}

// Unwrap exposes the step's own failure.
func (stepError *StepError) Unwrap() error {
	return stepError.Cause
}

// StepTiming records how long a completed step took.
type StepTiming struct {
	Label    string
	Duration time.Duration
}

// Outcome summarizes a pipeline run.
type Outcome struct {
	Value          any
	CompletedSteps int
	StepTimings    []StepTiming
	Duration       time.Duration
}

// Pipeline executes a fixed sequence of steps in declaration order.
type Pipeline struct {
	name      string
	steps     []Step
	announcer Announcer
	now       func() time.Time
}

// NewPipeline validates the steps and builds a Pipeline.
func NewPipeline(name string, logger *zap.Logger, humanReadableLogging bool, steps ...Step) (*Pipeline, error) {
	if logger == nil {
		return nil, ErrLoggerNotConfigured
	}
	for stepIndex := range steps {
		if len(strings.TrimSpace(steps[stepIndex].Label)) == 0 {
			return nil, fmt.Errorf(stepValidationErrorTemplateConstant, ErrStepLabelMissing, stepIndex+1)
		}
		if steps[stepIndex].Operation == nil {
			return nil, fmt.Errorf(stepValidationErrorTemplateConstant, ErrStepOperationMissing, stepIndex+1)
		}
	}

	ownedSteps := make([]Step, len(steps))
	copy(ownedSteps, steps)

	return &Pipeline{
		name:      strings.TrimSpace(name),
		steps:     ownedSteps,
		announcer: NewAnnouncer(logger, humanReadableLogging),
		now:       time.Now,
	}, nil
}

// Name returns the pipeline name used in log output.
func (pipeline *Pipeline) Name() string {
	return pipeline.name
}

// Len reports the number of steps.
func (pipeline *Pipeline) Len() int {
	return len(pipeline.steps)
}

// Run executes the steps strictly in order. Each step receives the previous step's output;
// the first step receives initialInput. The first failure stops the run and is returned as
// a *StepError; steps after it never start and completed steps are not undone.
func (pipeline *Pipeline) Run(executionContext context.Context, initialInput any) (Outcome, error) {
	runStart := pipeline.now()
	outcome := Outcome{Value: initialInput, StepTimings: make([]StepTiming, 0, len(pipeline.steps))}
	stepCount := len(pipeline.steps)

	carried := initialInput
	for stepIndex, step := range pipeline.steps {
		position := stepIndex + 1
		pipeline.logStepStart(position, stepCount, step.Label)

		stepStart := pipeline.now()
		output, operationError := step.Operation(executionContext, carried)
		stepDuration := pipeline.now().Sub(stepStart)

		if operationError != nil {
			pipeline.logStepFailure(position, stepCount, step.Label, operationError)
			outcome.Duration = pipeline.now().Sub(runStart)
			return outcome, &StepError{Index: stepIndex, Label: step.Label, Cause: operationError}
		}

		pipeline.logStepSuccess(position, stepCount, step.Label, stepDuration)
		outcome.StepTimings = append(outcome.StepTimings, StepTiming{Label: step.Label, Duration: stepDuration})
		outcome.CompletedSteps = position
		carried = output
	}

	outcome.Value = carried
	outcome.Duration = pipeline.now().Sub(runStart)
	pipeline.logCompletion(outcome)
	return outcome, nil
}

// AsStep exposes the whole pipeline as a single step so pipelines can nest.
func (pipeline *Pipeline) AsStep(label string) Step {
	return Step{
		Label: label,
		Operation: func(executionContext context.Context, input any) (any, error) {
			outcome, runError := pipeline.Run(executionContext, input)
			if runError != nil {
				return nil, runError
			}
			return outcome.Value, nil
		},
	}
}

func (pipeline *Pipeline) logStepStart(position int, stepCount int, label string) {
	pipeline.announcer.Debug(stepStartMessageConstant,
		fmt.Sprintf(stepStartHumanTemplateConstant, position, stepCount, label),
		zap.String(pipelineNameFieldConstant, pipeline.name),
		zap.String(stepLabelFieldConstant, label),
		zap.Int(stepPositionFieldConstant, position),
		zap.Int(stepCountFieldConstant, stepCount),
	)
}

func (pipeline *Pipeline) logStepSuccess(position int, stepCount int, label string, duration time.Duration) {
	pipeline.announcer.Debug(stepSuccessMessageConstant,
		fmt.Sprintf(stepSuccessHumanTemplateConstant, position, stepCount, label, duration),
		zap.String(pipelineNameFieldConstant, pipeline.name),
		zap.String(stepLabelFieldConstant, label),
		zap.Int(stepPositionFieldConstant, position),
		zap.Duration(durationFieldConstant, duration),
	)
}

func (pipeline *Pipeline) logStepFailure(position int, stepCount int, label string, failure error) {
	pipeline.announcer.Debug(stepFailureMessageConstant,
		fmt.Sprintf(stepFailureHumanTemplateConstant, position, stepCount, label, failure),
		zap.String(pipelineNameFieldConstant, pipeline.name),
		zap.String(stepLabelFieldConstant, label),
		zap.Int(stepPositionFieldConstant, position),
		zap.Error(failure),
	)
}

func (pipeline *Pipeline) logCompletion(outcome Outcome) {
	pipeline.announcer.Debug(pipelineCompletedMessageConstant,
		fmt.Sprintf(completionHumanTemplateConstant, pipeline.name, outcome.CompletedSteps, outcome.Duration),
		zap.String(pipelineNameFieldConstant, pipeline.name),
		zap.Int(stepCountFieldConstant, outcome.CompletedSteps),
		zap.Duration(durationFieldConstant, outcome.Duration),
	)
}
