package execution

// Pipeline runs validation followed by simulation for one message
type Pipeline struct {
	validator *Validator
	simulator *Simulator
}

// NewPipeline creates a pipeline using checker for the validation stage
func NewPipeline(checker SchemaChecker, logger Logger) *Pipeline {
	return &Pipeline{
		validator: NewValidator(checker, logger),
		simulator: NewSimulator(logger),
	}
}

// Process returns the enriched message for raw. Errors are *StageError values
// naming the stage that failed; simulation never runs on a message that failed
// validation.
func (p *Pipeline) Process(raw RawMessage) (EnrichedMessage, error) {
	validated, err := p.validator.Validate(raw)
	if err != nil {
		return nil, &StageError{Stage: StageValidation, Err: err}
	}

	enriched, err := p.simulator.Simulate(validated)
	if err != nil {
		return nil, &StageError{Stage: StageSimulation, Err: err}
	}

	return enriched, nil
}
