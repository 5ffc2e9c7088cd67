// Package metrics 将状态机分组的运行指标导出为 Prometheus 指标
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/junbin-yang/go-fsm/pkg/statemachine"
)

// Collector 按需采集 Group 中每个状态机的指标
type Collector struct {
	group *statemachine.Group

	transitions *prometheus.Desc
	undos       *prometheus.Desc
	redos       *prometheus.Desc
	rejected    *prometheus.Desc
	historyLen  *prometheus.Desc
	cursor      *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector 创建采集器，namespace 为空时使用 "fsm"
func NewCollector(namespace string, group *statemachine.Group) *Collector {
	if namespace == "" {
		namespace = "fsm"
	}
	labels := []string{"machine"}

	return &Collector{
		group: group,
		transitions: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "transitions_total"),
			"Forward transitions applied, by kind (change or trigger).",
			[]string{"machine", "kind"}, nil,
		),
		undos: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "undo_total"),
			"Successful undo operations.",
			labels, nil,
		),
		redos: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "redo_total"),
			"Successful redo operations.",
			labels, nil,
		),
		rejected: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "rejected_total"),
			"Operations rejected with an unknown state or event.",
			labels, nil,
		),
		historyLen: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "history_length"),
			"Number of entries in the undo history.",
			labels, nil,
		),
		cursor: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "history_cursor"),
			"Position of the current state in the undo history.",
			labels, nil,
		),
	}
}

// Describe 实现 prometheus.Collector
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.transitions
	ch <- c.undos
	ch <- c.redos
	ch <- c.rejected
	ch <- c.historyLen
	ch <- c.cursor
}

// Collect 实现 prometheus.Collector
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for name, m := range c.group.Metrics() {
		ch <- prometheus.MustNewConstMetric(c.transitions, prometheus.CounterValue, float64(m.TotalChanges), name, "change")
		ch <- prometheus.MustNewConstMetric(c.transitions, prometheus.CounterValue, float64(m.TotalTriggers), name, "trigger")
		ch <- prometheus.MustNewConstMetric(c.undos, prometheus.CounterValue, float64(m.TotalUndos), name)
		ch <- prometheus.MustNewConstMetric(c.redos, prometheus.CounterValue, float64(m.TotalRedos), name)
		ch <- prometheus.MustNewConstMetric(c.rejected, prometheus.CounterValue, float64(m.TotalRejected), name)
		ch <- prometheus.MustNewConstMetric(c.historyLen, prometheus.GaugeValue, float64(m.HistoryLen), name)
		ch <- prometheus.MustNewConstMetric(c.cursor, prometheus.GaugeValue, float64(m.Cursor), name)
	}
}
