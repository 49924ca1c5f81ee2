package model

import "time"

// PipelineOption defines the interface for pipeline options.
type PipelineOption interface {
	// New initialises the pipeline option.
	New() error

	pipelineStepOption
	pipelineMergerOption
	pipelineSinkOption

	// Finish runs after the pipeline is finished.
	Finish() error
}

// pipelineStepOption defines the interface for step options at the pipeline level.
// Root steps are reported with StartStep as their parent.
type pipelineStepOption interface {
	// PrepareStep runs before the step is executed.
	PrepareStep(parentStep, step *StepInfo) error
	// OnStepOutput runs everytime something is pushed to the output of the step.
	OnStepOutput(parentStep, step *StepInfo, iterationDuration, computationDuration time.Duration) error
}

// pipelineMergerOption defines the interface for merger options at the pipeline level.
type pipelineMergerOption interface {
	// PrepareMerger runs before the merger step is executed.
	PrepareMerger(parentSteps []*StepInfo, step *StepInfo) error
	// OnMergerOutput runs everytime something is pushed to the output of the merger step.
	OnMergerOutput(parentStep, outputStep *StepInfo, iterationDuration time.Duration) error
}

// pipelineSinkOption defines the interface for sink options at the pipeline level.
type pipelineSinkOption interface {
	// PrepareSink runs before the sink step is executed.
	PrepareSink(parentStep, step *StepInfo) error
	// OnSinkOutput runs everytime the sink consumes an item.
	OnSinkOutput(parentStep, step *StepInfo, iterationDuration, computationDuration time.Duration) error
	// AfterSink runs after the sink step is executed.
	AfterSink(step *StepInfo, totalDuration time.Duration) error
}

// NopOption implements every hook as a no-op. Options embed it and override the hooks they need.
type NopOption struct{}

func (NopOption) New() error { return nil }

func (NopOption) PrepareStep(_, _ *StepInfo) error { return nil }

func (NopOption) OnStepOutput(_, _ *StepInfo, _, _ time.Duration) error { return nil }

func (NopOption) PrepareMerger(_ []*StepInfo, _ *StepInfo) error { return nil }

func (NopOption) OnMergerOutput(_, _ *StepInfo, _ time.Duration) error { return nil }

func (NopOption) PrepareSink(_, _ *StepInfo) error { return nil }

func (NopOption) OnSinkOutput(_, _ *StepInfo, _, _ time.Duration) error { return nil }

func (NopOption) AfterSink(_ *StepInfo, _ time.Duration) error { return nil }

func (NopOption) Finish() error { return nil }

var _ PipelineOption = NopOption{}
