package measure

import (
	"sort"
	"sync"
	"time"
)

type DefaultMeasure struct {
	mu    sync.Mutex
	Steps map[string]Metric
}

func NewDefaultMeasure() *DefaultMeasure {
	return &DefaultMeasure{
		Steps: make(map[string]Metric),
	}
}

func (m *DefaultMeasure) AddMetric(name string, concurrent int) Metric {
	m.mu.Lock()
	defer m.mu.Unlock()

	mt := &DefaultMetric{
		mu:            &sync.Mutex{},
		allTransports: make(map[string]*TransportInfo),
		concurrent:    concurrent,
	}
	m.Steps[name] = mt

	return mt
}

func (m *DefaultMeasure) GetMetric(name string) Metric {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.Steps[name]
}

func (m *DefaultMeasure) AllMetrics() map[string]Metric {
	m.mu.Lock()
	defer m.mu.Unlock()

	res := make(map[string]Metric, len(m.Steps))
	for name, mt := range m.Steps {
		res[name] = mt
	}

	return res
}

// StepSummary is a flattened view of a step metric.
type StepSummary struct {
	Name  string
	Items int64
	AVG   time.Duration
	Total time.Duration
}

// Summary returns one entry per step that handled at least one item, sorted by name.
func Summary(m Measure) []StepSummary {
	all := m.AllMetrics()
	res := make([]StepSummary, 0, len(all))

	for name, mt := range all {
		if mt.Count() == 0 {
			continue
		}

		res = append(res, StepSummary{
			Name:  name,
			Items: mt.Count(),
			AVG:   mt.AVGDuration(),
			Total: mt.GetTotalDuration(),
		})
	}

	sort.Slice(res, func(i, j int) bool { return res[i].Name < res[j].Name })

	return res
}

var _ Measure = (*DefaultMeasure)(nil)
