// Package telemetry exposes splatctl job and launch metrics in a private Prometheus registry that
// is written to a node-exporter textfile.
package telemetry

import (
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/askiada/splatctl/internal/jobs"
	"github.com/askiada/splatctl/pkg/pipeline/model"
)

// Metrics holds the splatctl collectors.
type Metrics struct {
	registry *prometheus.Registry

	filesProcessed *prometheus.CounterVec
	filesFailed    *prometheus.CounterVec
	bytesCopied    *prometheus.CounterVec
	stepDuration   *prometheus.HistogramVec
	launchDuration *prometheus.HistogramVec
	launchExitCode *prometheus.GaugeVec
}

// New registers the collectors in a new registry.
func New() (*Metrics, error) {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		filesProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "splatctl_files_processed_total",
			Help: "Files handled successfully by dataset jobs.",
		}, []string{"job"}),
		filesFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "splatctl_files_failed_total",
			Help: "Files dataset jobs failed to handle.",
		}, []string{"job"}),
		bytesCopied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "splatctl_bytes_copied_total",
			Help: "Bytes written by dataset jobs.",
		}, []string{"job"}),
		stepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "splatctl_step_duration_seconds",
			Help:    "Time spent on one item by a pipeline step.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"job", "step"}),
		launchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "splatctl_launch_duration_seconds",
			Help:    "Wall time of renderer launches.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 16),
		}, []string{"script"}),
		launchExitCode: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "splatctl_launch_exit_code",
			Help: "Exit code of the last renderer launch.",
		}, []string{"script"}),
	}

	for _, c := range []prometheus.Collector{
		m.filesProcessed, m.filesFailed, m.bytesCopied, m.stepDuration, m.launchDuration, m.launchExitCode,
	} {
		err := m.registry.Register(c)
		if err != nil {
			return nil, errors.Wrap(err, "registering collector")
		}
	}

	return m, nil
}

// Registry is the registry the collectors live in.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveReport adds a job report to the file counters.
func (m *Metrics) ObserveReport(report *jobs.Report) {
	if report == nil {
		return
	}

	m.filesProcessed.WithLabelValues(report.Job).Add(float64(report.Processed))
	m.filesFailed.WithLabelValues(report.Job).Add(float64(report.Failed))
	m.bytesCopied.WithLabelValues(report.Job).Add(float64(report.Bytes))
}

// ObserveLaunch records a renderer launch.
func (m *Metrics) ObserveLaunch(script string, duration time.Duration, exitCode int) {
	m.launchDuration.WithLabelValues(script).Observe(duration.Seconds())
	m.launchExitCode.WithLabelValues(script).Set(float64(exitCode))
}

// WriteTextfile writes the registry in the text exposition format, atomically.
func (m *Metrics) WriteTextfile(path string) error {
	err := prometheus.WriteToTextfile(path, m.registry)
	if err != nil {
		return errors.Wrapf(err, "writing metrics to %s", path)
	}

	return nil
}

type stepTimer struct {
	model.NopOption
	job      string
	duration *prometheus.HistogramVec
}

func (s *stepTimer) OnStepOutput(_, step *model.StepInfo, _, computationDuration time.Duration) error {
	s.duration.WithLabelValues(s.job, step.Name).Observe(computationDuration.Seconds())

	return nil
}

func (s *stepTimer) OnSinkOutput(_, step *model.StepInfo, _, computationDuration time.Duration) error {
	s.duration.WithLabelValues(s.job, step.Name).Observe(computationDuration.Seconds())

	return nil
}

// PipelineOption times every item of the steps of a job pipeline.
func (m *Metrics) PipelineOption(job string) model.PipelineOption {
	return &stepTimer{job: job, duration: m.stepDuration}
}
