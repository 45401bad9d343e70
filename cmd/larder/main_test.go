package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/larder/internal/calendar"
)

func TestPrintBreakdown_SortedLabels(t *testing.T) {
	var buf bytes.Buffer
	printBreakdown(&buf, "category", map[string]int{
		"produce": 3,
		"dairy":   2,
		"meat":    1,
	})

	assert.Equal(t, "  by category:\n    dairy: 2\n    meat: 1\n    produce: 3\n", buf.String())
}

func TestPrintBreakdown_EmptyMapPrintsNothing(t *testing.T) {
	var buf bytes.Buffer
	printBreakdown(&buf, "location", nil)
	printBreakdown(&buf, "location", map[string]int{})
	assert.Zero(t, buf.Len())
}

func TestParseTimeframe(t *testing.T) {
	tf, err := parseTimeframe("Week")
	require.NoError(t, err)
	assert.Equal(t, calendar.TimeframeWeek, tf)

	_, err = parseTimeframe("fortnight")
	assert.Error(t, err)
}

func TestFormatDate(t *testing.T) {
	assert.Equal(t, "unknown", formatDate(time.Time{}))
	assert.Equal(t, "2026-08-26", formatDate(time.Date(2026, 8, 26, 15, 0, 0, 0, time.UTC)))
}
