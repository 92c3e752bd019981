// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/gogpu/hub"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	kindStyle = lipgloss.NewStyle().
			Width(20).
			Foreground(lipgloss.Color("#87CEEB"))

	modeStyle = lipgloss.NewStyle().
			Width(20).
			Foreground(lipgloss.Color("#98FB98"))

	liveStyle = lipgloss.NewStyle().
			Width(8).
			Align(lipgloss.Right)

	idleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))
)

// renderStats draws one row per resource kind.
func renderStats(h *hub.Hub) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("hub " + h.ID()))
	b.WriteByte('\n')
	for _, s := range h.Stats() {
		live := liveStyle.Render(fmt.Sprint(s.Live))
		if s.Live == 0 {
			live = idleStyle.Render(live)
		}
		b.WriteString(kindStyle.Render(s.Kind.String()))
		b.WriteString(modeStyle.Render(s.Mode.String()))
		b.WriteString(live)
		b.WriteByte('\n')
	}
	return b.String()
}

// renderCounters prints the registry counters collected by reader.
func renderCounters(reader *sdkmetric.ManualReader) string {
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		return errorStyle.Render("metrics: " + err.Error())
	}

	totals := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				key := m.Name
				if reason, ok := dp.Attributes.Value(attribute.Key("reason")); ok {
					key += " " + reason.AsString()
				}
				totals[key] += dp.Value
			}
		}
	}

	keys := make([]string, 0, len(totals))
	for k := range totals {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(titleStyle.Render("counters"))
	b.WriteByte('\n')
	for _, k := range keys {
		style := kindStyle.Width(40)
		if strings.HasPrefix(k, hub.MetricRejected) {
			style = style.Foreground(lipgloss.Color("#FF6B6B"))
		}
		b.WriteString(style.Render(k))
		b.WriteString(liveStyle.Render(fmt.Sprint(totals[k])))
		b.WriteByte('\n')
	}
	return b.String()
}
