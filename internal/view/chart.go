package view

import (
	"encoding/json"
	"fmt"
	"html/template"
)

// ChartRenderer turns a labelled series into whatever the page script
// needs to draw it. Implementations hold no ledger state.
type ChartRenderer interface {
	Render(labels []string, values []float64) (template.JS, error)
}

// Slice colours, income first.
var defaultPalette = []string{"#2E8B57", "#e74c3c"}

// ChartJS emits a Chart.js pie configuration.
type ChartJS struct {
	Palette []string
}

type chartConfig struct {
	Type    string       `json:"type"`
	Data    chartData    `json:"data"`
	Options chartOptions `json:"options"`
}

type chartData struct {
	Labels   []string       `json:"labels"`
	Datasets []chartDataset `json:"datasets"`
}

type chartDataset struct {
	Data            []float64 `json:"data"`
	BackgroundColor []string  `json:"backgroundColor"`
}

type chartOptions struct {
	Animation bool `json:"animation"`
}

func (c ChartJS) Render(labels []string, values []float64) (template.JS, error) {
	if len(labels) != len(values) {
		return "", fmt.Errorf("chart: %d labels for %d values", len(labels), len(values))
	}
	palette := c.Palette
	if len(palette) == 0 {
		palette = defaultPalette
	}
	colors := make([]string, len(values))
	for i := range colors {
		colors[i] = palette[i%len(palette)]
	}
	cfg := chartConfig{
		Type: "pie",
		Data: chartData{
			Labels:   labels,
			Datasets: []chartDataset{{Data: values, BackgroundColor: colors}},
		},
	}
	b, err := json.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("chart: %w", err)
	}
	return template.JS(b), nil
}
