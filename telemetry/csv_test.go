package telemetry_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/linecar-sim/telemetry"
)

func TestFormatScan(t *testing.T) {
	assert.Equal(t, "[1, 2, 255]", telemetry.FormatScan([]int{1, 2, 255}))
	assert.Equal(t, "[]", telemetry.FormatScan(nil))

	got, err := telemetry.ParseScan("[1, 2, 255]")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 255}, got)

	_, err = telemetry.ParseScan("[1, x]")
	assert.Error(t, err)
}

func TestCSVSinkRotation(t *testing.T) {
	base := filepath.Join(t.TempDir(), "car_data")
	s, err := telemetry.NewCSVSink(base, false, false)
	require.NoError(t, err)

	require.NoError(t, s.Write(telemetry.Record{T: 0.01, LineScan: []int{40, 240}, LinePos: 64, LatErr: -0.005}))
	require.NoError(t, s.Rotate(1))
	require.NoError(t, s.Write(telemetry.Record{T: 1.5, Speed: 1, SteerAngle: 7.5, Lap: 1}))
	require.NoError(t, s.Write(telemetry.Record{T: 1.51, Speed: 1, SteerAngle: 7.25, Lap: 1}))
	require.NoError(t, s.Close())
	assert.Error(t, s.Write(telemetry.Record{}), "closed sink")

	raw, err := os.ReadFile(telemetry.LapFile(base, 0))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "t,x,y,linescan,line_pos,speed,lat_err,int_err,target_steer,steer_angle,lap", lines[0])
	assert.Equal(t, `0.01,0,0,"[40, 240]",64,0,-0.005,0,0,0,0`, lines[1])

	recs, err := telemetry.ReadLapFile(telemetry.LapFile(base, 1))
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, 1.51, recs[1].T)
	assert.Equal(t, 7.25, recs[1].SteerAngle)
	assert.Equal(t, 1, recs[1].Lap)
}

func TestCSVSinkFarColumns(t *testing.T) {
	base := filepath.Join(t.TempDir(), "run")
	s, err := telemetry.NewCSVSink(base, true, true)
	require.NoError(t, err)
	require.NoError(t, s.Write(telemetry.Record{LineScan: []int{1}, FarScan: []int{2, 3}, FarLinePos: 70}))
	require.NoError(t, s.Close())

	recs, err := telemetry.ReadLapFile(telemetry.LapFile(base, 0))
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, []int{2, 3}, recs[0].FarScan)
	assert.Equal(t, 70.0, recs[0].FarLinePos)
}

func TestCSVSinkOverwriteGuard(t *testing.T) {
	base := filepath.Join(t.TempDir(), "car_data")
	require.NoError(t, os.WriteFile(telemetry.LapFile(base, 0), []byte("old"), 0o644))

	_, err := telemetry.NewCSVSink(base, false, false)
	assert.ErrorIs(t, err, telemetry.ErrExists)

	s, err := telemetry.NewCSVSink(base, true, false)
	require.NoError(t, err)
	require.NoError(t, s.Close())
	raw, err := os.ReadFile(telemetry.LapFile(base, 0))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "old")
}
