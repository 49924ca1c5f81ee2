package telemetry_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/splatctl/internal/jobs"
	"github.com/askiada/splatctl/internal/telemetry"
	"github.com/askiada/splatctl/pkg/pipeline/model"
)

func TestObserveReport(t *testing.T) {
	t.Parallel()

	m, err := telemetry.New()
	require.NoError(t, err)

	m.ObserveReport(&jobs.Report{Job: "sample", Processed: 4, Failed: 1, Bytes: 2048})
	m.ObserveReport(&jobs.Report{Job: "sample", Processed: 1})
	m.ObserveReport(nil)

	count, err := testutil.GatherAndCount(m.Registry(), "splatctl_files_processed_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	path := filepath.Join(t.TempDir(), "splatctl.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `splatctl_files_processed_total{job="sample"} 5`)
	assert.Contains(t, string(data), `splatctl_files_failed_total{job="sample"} 1`)
	assert.Contains(t, string(data), `splatctl_bytes_copied_total{job="sample"} 2048`)
}

func TestObserveLaunch(t *testing.T) {
	t.Parallel()

	m, err := telemetry.New()
	require.NoError(t, err)

	m.ObserveLaunch("render.py", 90*time.Second, 3)

	path := filepath.Join(t.TempDir(), "splatctl.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `splatctl_launch_exit_code{script="render.py"} 3`)
	assert.Contains(t, string(data), `splatctl_launch_duration_seconds_count{script="render.py"} 1`)
}

func TestPipelineOption(t *testing.T) {
	t.Parallel()

	m, err := telemetry.New()
	require.NoError(t, err)

	tasks := []jobs.Task{}
	for range 3 {
		tasks = append(tasks, jobs.Task{Name: "x", Do: func(context.Context) (int64, error) { return 1, nil }})
	}

	_, err = jobs.Run(t.Context(), "convert", tasks, jobs.Options{Extra: []model.PipelineOption{m.PipelineOption("convert")}})
	require.NoError(t, err)

	count, err := testutil.GatherAndCount(m.Registry(), "splatctl_step_duration_seconds")
	require.NoError(t, err)
	// The convert step and the report sink.
	assert.Equal(t, 2, count)
}
