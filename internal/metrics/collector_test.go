package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iris-analytics/iris/internal/models"
)

func TestCollectorStages(t *testing.T) {
	c := NewCollector()

	c.RecordStage(models.KindProfile, models.ResultSucceeded, 10*time.Millisecond)
	c.RecordStage(models.KindProfile, models.ResultSucceeded, 30*time.Millisecond)
	c.RecordStage(models.KindInsight, models.ResultFailed, 5*time.Millisecond)
	c.RecordStage(models.KindForecast, models.ResultSkipped, 0)

	snap := c.Snapshot()
	require.NotNil(t, snap.Stages)

	profile := snap.Stages["profile"]
	require.NotNil(t, profile)
	assert.Equal(t, int64(2), profile.Count)
	assert.Equal(t, int64(2), profile.Succeeded)
	assert.Equal(t, int64(10), profile.MinTimeMs)
	assert.Equal(t, int64(30), profile.MaxTimeMs)
	assert.Equal(t, 20.0, profile.AvgTimeMs)

	insight := snap.Stages["insight"]
	require.NotNil(t, insight)
	assert.Equal(t, int64(1), insight.Failed)

	forecast := snap.Stages["forecast"]
	require.NotNil(t, forecast)
	assert.Equal(t, int64(1), forecast.Skipped)

	assert.Nil(t, snap.Stages["anomaly"])
}

func TestCollectorEmptySnapshot(t *testing.T) {
	snap := NewCollector().Snapshot()
	assert.Nil(t, snap.Stages)
	assert.Nil(t, snap.Questions)
	assert.Zero(t, snap.JobsSubmitted)
	assert.GreaterOrEqual(t, snap.UptimeSeconds, 0.0)
}

func TestCollectorCounters(t *testing.T) {
	c := NewCollector()
	c.RecordJob()
	c.RecordJob()
	c.RecordQuestion(50*time.Millisecond, true)
	c.RecordQuestion(70*time.Millisecond, false)
	c.RecordPoint(false)
	c.RecordPoint(true)

	snap := c.Snapshot()
	assert.Equal(t, int64(2), snap.JobsSubmitted)
	require.NotNil(t, snap.Questions)
	assert.Equal(t, int64(1), snap.Questions.Succeeded)
	assert.Equal(t, int64(1), snap.Questions.Failed)
	assert.Equal(t, int64(2), snap.RealtimePoints)
	assert.Equal(t, int64(1), snap.RealtimeFlags)
}

func TestCollectorConcurrent(t *testing.T) {
	c := NewCollector()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.RecordStage(models.KindAnomaly, models.ResultSucceeded, time.Millisecond)
				c.RecordPoint(j%2 == 0)
			}
		}()
	}
	wg.Wait()

	snap := c.Snapshot()
	assert.Equal(t, int64(1600), snap.Stages["anomaly"].Count)
	assert.Equal(t, int64(1600), snap.RealtimePoints)
	assert.Equal(t, int64(800), snap.RealtimeFlags)
}
