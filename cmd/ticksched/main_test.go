package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sprunq/internal/runq"
)

func TestDefaultWorkload(t *testing.T) {
	cfg := runq.Load("")

	specs := defaultWorkload(cfg)
	require.Len(t, specs, 6)
	for _, spec := range specs {
		assert.GreaterOrEqual(t, spec.Priority, 0)
		assert.Less(t, spec.Priority, cfg.Levels)
		assert.Positive(t, spec.WorkMS)
	}
}

func TestRun_FinishesWorkload(t *testing.T) {
	cfg := runq.Load("")
	cfg.TickMS = 1
	cfg.CSVPath = filepath.Join(t.TempDir(), "events.csv")
	cfg.Tasks = []runq.JobSpec{
		{ID: 1, Priority: 2, WorkMS: 3},
		{ID: 2, Priority: 0, WorkMS: 1},
		{ID: 3, Priority: 3, WorkMS: 1},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, run(ctx, cfg))
	require.NoError(t, ctx.Err(), "workload did not finish in time")

	data, err := os.ReadFile(cfg.CSVPath)
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(string(data), ","+runq.StatusFinish.String()+","))
}

func TestRun_BadCSVPath(t *testing.T) {
	cfg := runq.Load("")
	cfg.CSVPath = filepath.Join(t.TempDir(), "missing", "events.csv")

	assert.Error(t, run(context.Background(), cfg))
}
