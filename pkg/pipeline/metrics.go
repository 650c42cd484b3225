// Copyright 2026 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// metricsPipeline holds Prometheus metrics for the aggregation pipeline.
type metricsPipeline struct {
	once sync.Once

	// Files
	filesProcessed prometheus.Counter
	filesRemoved   prometheus.Counter
	parseFailures  prometheus.Counter

	// Units
	unitsExtracted prometheus.Counter

	// Summaries
	summariesGenerated prometheus.Counter
	summaryFailures    prometheus.Counter
	summaryRetries     prometheus.Counter

	// Durations
	extractDuration   prometheus.Histogram
	summarizeDuration prometheus.Histogram
	fileDuration      prometheus.Histogram
	totalDuration     prometheus.Histogram
}

var aggMetrics metricsPipeline

func (m *metricsPipeline) init() {
	m.once.Do(func() {
		m.filesProcessed = prometheus.NewCounter(prometheus.CounterOpts{Name: "codescribe_agg_files_processed_total", Help: "Archivos procesados por el pipeline"})
		m.filesRemoved = prometheus.NewCounter(prometheus.CounterOpts{Name: "codescribe_agg_files_removed_total", Help: "Archivos eliminados del árbol"})
		m.parseFailures = prometheus.NewCounter(prometheus.CounterOpts{Name: "codescribe_agg_parse_failures_total", Help: "Archivos con fallo de extracción"})

		m.unitsExtracted = prometheus.NewCounter(prometheus.CounterOpts{Name: "codescribe_agg_units_extracted_total", Help: "Unidades de código extraídas"})

		m.summariesGenerated = prometheus.NewCounter(prometheus.CounterOpts{Name: "codescribe_agg_summaries_total", Help: "Resúmenes generados"})
		m.summaryFailures = prometheus.NewCounter(prometheus.CounterOpts{Name: "codescribe_agg_summary_failures_total", Help: "Fallos locales de resumen"})
		m.summaryRetries = prometheus.NewCounter(prometheus.CounterOpts{Name: "codescribe_agg_summary_retries_total", Help: "Reintentos de resumen"})

		buckets := []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}
		m.extractDuration = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "codescribe_agg_extract_seconds", Help: "Duración de extracción por archivo", Buckets: buckets})
		m.summarizeDuration = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "codescribe_agg_summarize_seconds", Help: "Duración de resumen por nodo", Buckets: buckets})
		m.fileDuration = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "codescribe_agg_file_seconds", Help: "Duración total por archivo", Buckets: buckets})
		m.totalDuration = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "codescribe_agg_total_seconds", Help: "Duración total de la ejecución", Buckets: buckets})

		prometheus.MustRegister(
			m.filesProcessed, m.filesRemoved, m.parseFailures,
			m.unitsExtracted,
			m.summariesGenerated, m.summaryFailures, m.summaryRetries,
			m.extractDuration, m.summarizeDuration, m.fileDuration, m.totalDuration,
		)
	})
}
