package humanize

import (
	"testing"
)

func TestDefaultScrollConfig(t *testing.T) {
	config := DefaultScrollConfig()

	if config.MinScrollSteps <= 0 {
		t.Error("MinScrollSteps should be positive")
	}
	if config.MaxScrollSteps < config.MinScrollSteps {
		t.Error("MaxScrollSteps should be >= MinScrollSteps")
	}
	if config.MinStepDelayMs <= 0 {
		t.Error("MinStepDelayMs should be positive")
	}
	if config.MaxStepDelayMs < config.MinStepDelayMs {
		t.Error("MaxStepDelayMs should be >= MinStepDelayMs")
	}
	if config.ScrollMargin < 0 {
		t.Error("ScrollMargin should be non-negative")
	}
	if config.PreScrollDelayMinMs <= 0 {
		t.Error("PreScrollDelayMinMs should be positive")
	}
	if config.PreScrollDelayMaxMs < config.PreScrollDelayMinMs {
		t.Error("PreScrollDelayMaxMs should be >= PreScrollDelayMinMs")
	}
	if config.PostScrollDelayMinMs <= 0 {
		t.Error("PostScrollDelayMinMs should be positive")
	}
	if config.PostScrollDelayMaxMs < config.PostScrollDelayMinMs {
		t.Error("PostScrollDelayMaxMs should be >= PostScrollDelayMinMs")
	}
}

func TestEaseInOutQuad(t *testing.T) {
	tests := []struct {
		name string
		t    float64
		want float64
	}{
		{"start", 0.0, 0.0},
		{"quarter", 0.25, 0.125},
		{"midpoint", 0.5, 0.5},
		{"three quarters", 0.75, 0.875},
		{"end", 1.0, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := easeInOutQuad(tt.t)
			if !floatsClose(got, tt.want, 0.001) {
				t.Errorf("easeInOutQuad(%v) = %v, want %v", tt.t, got, tt.want)
			}
		})
	}

	// Slow start, slow stop: the first and last tenths each cover less
	// ground than a uniform gesture would.
	if easeInOutQuad(0.1) >= 0.1 {
		t.Errorf("easeInOutQuad(0.1) = %v, expected < 0.1 for a slow start", easeInOutQuad(0.1))
	}
	if 1-easeInOutQuad(0.9) >= 0.1 {
		t.Errorf("easeInOutQuad(0.9) = %v, expected > 0.9 for a slow stop", easeInOutQuad(0.9))
	}

	prev := 0.0
	for i := 0; i <= 100; i++ {
		tVal := float64(i) / 100.0
		result := easeInOutQuad(tVal)
		if result < prev {
			t.Errorf("easeInOutQuad is not monotonic: f(%v) = %v < %v", tVal, result, prev)
		}
		prev = result
	}
}
