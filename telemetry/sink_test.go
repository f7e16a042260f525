package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/linecar-sim/entity/lap"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type fakeCollection struct {
	batches [][]interface{}
	err     error
}

func (f *fakeCollection) InsertMany(ctx context.Context, docs []interface{}, opts ...*options.InsertManyOptions) (*mongo.InsertManyResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.batches = append(f.batches, append([]interface{}(nil), docs...))
	return &mongo.InsertManyResult{}, nil
}

func TestMongoSinkBatches(t *testing.T) {
	col := &fakeCollection{}
	s := newMongoSink(col, 2)

	for i := range 5 {
		require.NoError(t, s.Write(Record{RunID: "run-1", T: float64(i)}))
	}
	assert.Len(t, col.batches, 2)

	require.NoError(t, s.Rotate(1))
	require.Len(t, col.batches, 3)
	assert.Len(t, col.batches[2], 1)
	assert.Equal(t, "run-1", col.batches[0][0].(Record).RunID)
	assert.Equal(t, 3.0, col.batches[1][1].(Record).T)

	require.NoError(t, s.Close())
	assert.Len(t, col.batches, 3, "nothing left to flush")
}

func TestMongoSinkError(t *testing.T) {
	col := &fakeCollection{err: errors.New("down")}
	s := newMongoSink(col, 1)
	assert.ErrorContains(t, s.Write(Record{}), "down")
}

type countingSink struct {
	writes, rotates, closes int
	err                     error
}

func (c *countingSink) Write(Record) error { c.writes++; return c.err }
func (c *countingSink) Rotate(int) error   { c.rotates++; return nil }
func (c *countingSink) Close() error       { c.closes++; return nil }

func TestMulti(t *testing.T) {
	a, b := &countingSink{}, &countingSink{err: errors.New("full")}
	m := Multi{a, b, Discard{}}

	assert.ErrorContains(t, m.Write(Record{}), "full")
	require.NoError(t, m.Rotate(1))
	require.NoError(t, m.Close())
	for _, c := range []*countingSink{a, b} {
		assert.Equal(t, 1, c.writes)
		assert.Equal(t, 1, c.rotates)
		assert.Equal(t, 1, c.closes)
	}
}

func TestSummaryReport(t *testing.T) {
	s := NewSummary()
	for _, e := range []float64{0.03, -0.04, 0} {
		require.NoError(t, s.Write(Record{LatErr: e, Speed: 1, SteerAngle: e * 100}))
	}
	s.MarkLost()

	r := s.Report([]lap.Lap{{Number: 1, Time: 12.5, Distance: 12.4}, {Number: 2, Time: 12.1, Distance: 12.6}})
	assert.Equal(t, 3, r.Ticks)
	assert.Equal(t, 1, r.LostTicks)
	assert.InDelta(t, 0.028868, r.RMSLatErr, 1e-6)
	assert.InDelta(t, 0.04, r.MaxAbsLatErr, 1e-12)
	assert.InDelta(t, 1.0, r.MeanSpeed, 1e-12)
	assert.Equal(t, 2, r.Laps)
	assert.Equal(t, 12.1, r.BestLap)
	assert.InDelta(t, 12.3, r.MeanLap, 1e-9)
	assert.InDelta(t, 25.0, r.TotalLapDist, 1e-9)

	empty := NewSummary().Report(nil)
	assert.Equal(t, Report{}, empty)
}
