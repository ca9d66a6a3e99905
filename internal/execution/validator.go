package execution

import (
	"go.uber.org/zap"
)

// SchemaChecker reports whether a record conforms to the request schema
type SchemaChecker interface {
	Check(record map[string]any) error
}

// Validator gates raw messages before simulation
type Validator struct {
	checker SchemaChecker
	logger  Logger
}

// NewValidator creates a validator backed by checker
func NewValidator(checker SchemaChecker, logger Logger) *Validator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Validator{
		checker: checker,
		logger:  logger,
	}
}

// Validate promotes raw to a ValidatedMessage without altering it.
// The returned error is an *InvalidInputError when the schema check fails.
func (v *Validator) Validate(raw RawMessage) (ValidatedMessage, error) {
	v.logger.Debug("validating message schema", zap.Int("fields", len(raw)))

	if err := v.checker.Check(raw); err != nil {
		v.logger.Error("invalid message schema",
			zap.Any("payload", map[string]any(raw)),
			zap.Error(err),
		)
		return nil, &InvalidInputError{Payload: raw, Cause: err}
	}

	return ValidatedMessage(raw), nil
}
