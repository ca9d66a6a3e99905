package execution

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is matched by every schema validation failure
	ErrInvalidInput = errors.New("invalid message format")

	// ErrInvalidFieldType is matched when a present field cannot be coerced
	ErrInvalidFieldType = errors.New("invalid field type")
)

// Stage names reported by StageError
const (
	StageValidation = "validation"
	StageSimulation = "simulation"
)

// InvalidInputError is returned by the Validator when a raw message does not
// conform to the schema
type InvalidInputError struct {
	Payload RawMessage
	Cause   error
}

func (e *InvalidInputError) Error() string {
	if e.Cause == nil {
		return ErrInvalidInput.Error()
	}
	return fmt.Sprintf("%s: %v", ErrInvalidInput, e.Cause)
}

func (e *InvalidInputError) Is(target error) bool {
	return target == ErrInvalidInput
}

func (e *InvalidInputError) Unwrap() error {
	return e.Cause
}

// InvalidFieldTypeError names a field whose value could not be coerced
type InvalidFieldTypeError struct {
	Field string
	Value any
	Cause error
}

func (e *InvalidFieldTypeError) Error() string {
	return fmt.Sprintf("%s: field %q has value %#v", ErrInvalidFieldType, e.Field, e.Value)
}

func (e *InvalidFieldTypeError) Is(target error) bool {
	return target == ErrInvalidFieldType
}

func (e *InvalidFieldTypeError) Unwrap() error {
	return e.Cause
}

// StageError tells the caller which stage rejected the request
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// FailedStage returns the stage recorded in err, or "" if err carries none
func FailedStage(err error) string {
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		return stageErr.Stage
	}
	return ""
}
