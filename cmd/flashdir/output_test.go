package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrintThroughputZeroDuration(t *testing.T) {
	assert.Equal(t, "1.0 kB/s", printThroughput(1000, 0))
}

func TestPrintThroughputComputesRate(t *testing.T) {
	assert.Equal(t, "1.0 kB/s", printThroughput(2000, 2))
}

func TestPrintThroughputNegativeDurationFallsBackToRawBytes(t *testing.T) {
	// seconds <= 0 is treated the same as "no duration measured".
	assert.Equal(t, "1.0 kB/s", printThroughput(1000, -1))
}

func TestColorEnabledRespectsNoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	assert.False(t, colorEnabled())
}
