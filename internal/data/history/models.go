package history

import "time"

const SchemaVersion = 2

// Run is one diffusion measurement of one sample. The sample "global" holds
// the whole-graph record.
type Run struct {
	ID                 string    `json:"id"`
	SchemaVersion      int       `json:"schema_version"`
	Sample             string    `json:"sample"`
	Version            string    `json:"version"`
	Timestamp          time.Time `json:"timestamp"`
	Modules            int       `json:"modules"`
	Elements           int       `json:"elements"`
	AvgElements        float64   `json:"avg_elements"`
	DirectWidth        float64   `json:"direct_width"`
	ChainLength        float64   `json:"chain_length"`
	DiffusionIndicator float64   `json:"diffusion_indicator"`
	Edges              int       `json:"edges"`
	CycleHits          int       `json:"cycle_hits"`
}

type TrendPoint struct {
	Timestamp      time.Time `json:"timestamp"`
	Version        string    `json:"version"`
	Modules        int       `json:"modules"`
	Elements       int       `json:"elements"`
	Indicator      float64   `json:"diffusion_indicator"`
	DeltaModules   int       `json:"delta_modules"`
	DeltaElements  int       `json:"delta_elements"`
	DeltaIndicator float64   `json:"delta_diffusion_indicator"`
	IndicatorPct   float64   `json:"indicator_change_pct"`
	AvgIndicator   float64   `json:"avg_diffusion_indicator"`
	WindowHours    float64   `json:"window_hours"`
}

type TrendReport struct {
	Sample   string       `json:"sample"`
	Since    time.Time    `json:"since"`
	Until    time.Time    `json:"until"`
	Window   string       `json:"window"`
	RunCount int          `json:"run_count"`
	Points   []TrendPoint `json:"points"`
}
