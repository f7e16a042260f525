package main

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/linecar-sim/telemetry"
)

func writeLaps(t *testing.T, base string, laps int) {
	t.Helper()
	s, err := telemetry.NewCSVSink(base, true, false)
	require.NoError(t, err)
	for l := range laps {
		if l > 0 {
			require.NoError(t, s.Rotate(l))
		}
		for i := range 20 {
			tm := float64(l*20+i) * 0.01
			require.NoError(t, s.Write(telemetry.Record{
				T: tm, X: tm, Y: -tm,
				LineScan: []int{40, 40, 240, 40}, LinePos: 2,
				LatErr: 0.01, Speed: 1, SteerAngle: float64(i % 7), Lap: l,
			}))
		}
	}
	require.NoError(t, s.Close())
}

func TestLoadLaps(t *testing.T) {
	base := filepath.Join(t.TempDir(), "car_data")
	writeLaps(t, base, 12)

	laps, err := loadLaps(base, true)
	require.NoError(t, err)
	require.Len(t, laps, 11)
	assert.Equal(t, 1, laps[0].index)
	assert.Equal(t, 11, laps[10].index, "numeric, not lexical order")
	assert.Len(t, laps[0].records, 20)

	all, err := loadLaps(base, false)
	require.NoError(t, err)
	assert.Len(t, all, 12)

	_, err = loadLaps(filepath.Join(t.TempDir(), "none"), true)
	assert.Error(t, err)
}

func TestRenderAll(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "car_data")
	writeLaps(t, base, 3)
	laps, err := loadLaps(base, false)
	require.NoError(t, err)

	files, err := renderAll(laps, dir, "svg")
	require.NoError(t, err)
	assert.Len(t, files, len(timeSeries)+len(laps)+1)
	for _, l := range laps {
		assert.Contains(t, files, filepath.Join(dir, fmt.Sprintf("linescan_lap%d.svg", l.index)))
	}
	assert.Contains(t, files, filepath.Join(dir, "path.svg"))
	for _, f := range files {
		info, err := os.Stat(f)
		require.NoError(t, err)
		assert.Positive(t, info.Size())
	}
}

func TestWaterfallNeedsScans(t *testing.T) {
	dir := t.TempDir()
	noScans := lap{index: 1, records: []telemetry.Record{{T: 0}, {T: 0.01}}}
	file, err := renderWaterfall(noScans, dir, "svg")
	require.NoError(t, err)
	assert.Empty(t, file)

	scans := lap{index: 2, records: []telemetry.Record{
		{T: 0, LineScan: []int{0, 255, 0}, LinePos: 1},
		{T: 0.01, LineScan: []int{0, 0, 255}, LinePos: 2},
	}}
	file, err = renderWaterfall(scans, dir, "svg")
	require.NoError(t, err)
	info, err := os.Stat(file)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}
