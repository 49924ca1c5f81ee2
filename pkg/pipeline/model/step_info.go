package model

// StepType is the role a step plays in the graph.
type StepType string

const (
	RootStepType   StepType = "root"
	NormalStepType StepType = "step"
	SinkStepType   StepType = "sink"
	MergerStepType StepType = "merger"
)

// StepInfo describes a step independently of the type of its items.
type StepInfo struct {
	Type       StepType
	Name       string
	Concurrent int
	BufferSize int
}

var (
	StartStep = &StepInfo{Type: RootStepType, Name: "start"}
	EndStep   = &StepInfo{Type: SinkStepType, Name: "end"}
)

// Step is a typed step whose items are read from Output.
type Step[O any] struct {
	Output   chan O
	KeepOpen bool
	Details  *StepInfo
}

// Info returns the step description. Steps built outside of a pipeline have none
// and are reported as the start of the graph.
func (s *Step[O]) Info() *StepInfo {
	if s == nil || s.Details == nil {
		return StartStep
	}

	return s.Details
}
