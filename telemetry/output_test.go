package telemetry

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/flatland/field"
	"github.com/pthm-cable/flatland/shapes"
)

func testField(t *testing.T) *field.Field {
	t.Helper()
	region, err := field.NewRegion(r2.Vec{}, r2.Vec{X: 10, Y: 10}, 11, 11)
	require.NoError(t, err)
	c, err := shapes.NewCircle(2)
	require.NoError(t, err)
	return field.Compute(region, field.NewSnapshot(field.Obstacle{Shape: c}))
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestOutputManagerDisabled(t *testing.T) {
	om, err := NewOutputManager("")
	require.NoError(t, err)
	require.Nil(t, om)

	// All writers are no-ops on a nil manager.
	assert.NoError(t, om.WriteTelemetry(WindowStats{}))
	assert.NoError(t, om.WritePerf(PerfStats{}, 0))
	assert.NoError(t, om.WriteCompute(ComputeRecord{}))
	assert.NoError(t, om.WriteField(nil, 1))
	assert.NoError(t, om.Close())
	assert.Empty(t, om.Dir())
}

func TestOutputManagerWritesHeaderOnce(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "run")
	om, err := NewOutputManager(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, om.Dir())

	require.NoError(t, om.WriteTelemetry(WindowStats{WindowEndTick: 60, Triggers: 2}))
	require.NoError(t, om.WriteTelemetry(WindowStats{WindowEndTick: 120, Triggers: 1}))
	require.NoError(t, om.WriteCompute(ComputeRecord{Tick: 3, ID: "a"}))
	require.NoError(t, om.WriteCompute(ComputeRecord{Tick: 9, ID: "b"}))
	require.NoError(t, om.WriteCompute(ComputeRecord{Tick: 12, ID: "c"}))
	require.NoError(t, om.Close())

	rows := readCSV(t, filepath.Join(dir, "telemetry.csv"))
	require.Len(t, rows, 3)
	assert.Equal(t, "window_end", rows[0][0])
	assert.NotContains(t, rows[0], "WindowStartTick")
	assert.Equal(t, "120", rows[2][0])

	rows = readCSV(t, filepath.Join(dir, "computes.csv"))
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"tick", "id"}, rows[0][:2])
	assert.Equal(t, "c", rows[3][1])

	rows = readCSV(t, filepath.Join(dir, "perf.csv"))
	assert.Empty(t, rows)
}

func TestOutputManagerWriteField(t *testing.T) {
	dir := t.TempDir()
	om, err := NewOutputManager(dir)
	require.NoError(t, err)
	defer om.Close()

	require.NoError(t, om.WriteField(testField(t), 5))
	rows := readCSV(t, filepath.Join(dir, "field.csv"))
	// Nodes 0, 5 and 10 along each axis.
	require.Len(t, rows, 1+9)
	assert.Equal(t, []string{"gx", "gy", "x", "y", "distance", "gradient_x", "gradient_y", "curl"}, rows[0])

	assert.ErrorIs(t, om.WriteField(field.Empty(), 1), ErrEmptyField)
}

func TestFieldCells(t *testing.T) {
	f := testField(t)

	cells := FieldCells(f, 0)
	require.Len(t, cells, 121)
	center := cells[5+5*11]
	assert.Equal(t, 5, center.GX)
	assert.InDelta(t, 0, center.X, 1e-12)
	assert.InDelta(t, -2, center.Distance, 1e-9)

	cells = FieldCells(f, 4)
	require.Len(t, cells, 9)
	assert.Equal(t, 8, cells[2].GX)
	assert.Equal(t, 4, cells[3].GY)

	assert.Nil(t, FieldCells(field.Empty(), 1))

	var buf bytes.Buffer
	assert.ErrorIs(t, WriteFieldCSV(&buf, field.Empty(), 1), ErrEmptyField)
}
