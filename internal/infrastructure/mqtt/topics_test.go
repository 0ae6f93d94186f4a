package mqtt_test

import (
	"testing"

	"github.com/nerrad567/auto-lights-core/internal/infrastructure/mqtt"
)

func TestIDFromTopic(t *testing.T) {
	tests := []struct {
		name  string
		topic string
		want  string
	}{
		{"device state", "autolights/state/light-living-main", "light-living-main"},
		{"variable", "autolights/variable/someone-home", "someone-home"},
		{"trailing slash", "autolights/state/", ""},
		{"no separator", "autolights", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mqtt.IDFromTopic(tt.topic); got != tt.want {
				t.Errorf("IDFromTopic(%q) = %q, want %q", tt.topic, got, tt.want)
			}
		})
	}
}
