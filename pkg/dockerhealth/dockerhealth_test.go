package dockerhealth

import (
	"testing"

	"github.com/docker/docker/api/types/container"
	"github.com/stretchr/testify/assert"
)

func TestComputeCPUPercentNormal(t *testing.T) {
	stats := container.StatsResponse{}
	stats.CPUStats.CPUUsage.TotalUsage = 2_000_000_000
	stats.PreCPUStats.CPUUsage.TotalUsage = 1_000_000_000
	stats.CPUStats.SystemUsage = 20_000_000_000
	stats.PreCPUStats.SystemUsage = 10_000_000_000
	stats.CPUStats.OnlineCPUs = 4

	pct := computeCPUPercent(stats)
	if assert.NotNil(t, pct) {
		assert.InDelta(t, 40.0, *pct, 0.001)
	}
}

func TestComputeCPUPercentUnknownWhenSystemDeltaZero(t *testing.T) {
	stats := container.StatsResponse{}
	stats.CPUStats.SystemUsage = 10_000_000_000
	stats.PreCPUStats.SystemUsage = 10_000_000_000

	assert.Nil(t, computeCPUPercent(stats))
}

func TestComputeCPUPercentFallsBackToPercpuLen(t *testing.T) {
	stats := container.StatsResponse{}
	stats.CPUStats.CPUUsage.TotalUsage = 2_000_000_000
	stats.PreCPUStats.CPUUsage.TotalUsage = 1_000_000_000
	stats.CPUStats.SystemUsage = 20_000_000_000
	stats.PreCPUStats.SystemUsage = 10_000_000_000
	stats.CPUStats.CPUUsage.PercpuUsage = []uint64{1, 2}

	pct := computeCPUPercent(stats)
	if assert.NotNil(t, pct) {
		assert.InDelta(t, 20.0, *pct, 0.001)
	}
}

func TestComputeMemPercent(t *testing.T) {
	stats := container.StatsResponse{}
	stats.MemoryStats.Usage = 512 * 1024 * 1024
	stats.MemoryStats.Limit = 1024 * 1024 * 1024

	pct := computeMemPercent(stats)
	if assert.NotNil(t, pct) {
		assert.InDelta(t, 50.0, *pct, 0.001)
	}
}

func TestComputeMemPercentUnknownWhenLimitZero(t *testing.T) {
	stats := container.StatsResponse{}
	assert.Nil(t, computeMemPercent(stats))
}

func TestIgnoredMatchesNamePrefixAndComposeLabel(t *testing.T) {
	th := Thresholds{IgnoreSet: map[string]struct{}{"web": {}, "abcdef123456": {}, "scratch": {}}}

	assert.True(t, ignored(th, "web", "deadbeef", ""))
	assert.True(t, ignored(th, "other", "abcdef123456789012", ""))
	assert.True(t, ignored(th, "other", "deadbeef", "scratch"))
	assert.False(t, ignored(th, "other", "deadbeef", "prod"))
}

func TestEvaluateProblematic(t *testing.T) {
	th := Thresholds{CPUWarnPct: 85, MemWarnPct: 90}

	assert.True(t, evaluateProblematic(false, "", nil, nil, th))
	assert.True(t, evaluateProblematic(true, "unhealthy", nil, nil, th))
	assert.False(t, evaluateProblematic(true, "healthy", nil, nil, th))

	cpu := 95.0
	assert.True(t, evaluateProblematic(true, "", &cpu, nil, th))

	mem := 50.0
	assert.False(t, evaluateProblematic(true, "", nil, &mem, th))
}

func TestParsePercent(t *testing.T) {
	v := parsePercent("12.34%")
	if assert.NotNil(t, v) {
		assert.InDelta(t, 12.34, *v, 0.001)
	}
	assert.Nil(t, parsePercent(""))
	assert.Nil(t, parsePercent("garbage"))
}

func TestExtractLabel(t *testing.T) {
	assert.Equal(t, "web", extractLabel("com.docker.compose.service=web,other=1", "com.docker.compose.service"))
	assert.Equal(t, "", extractLabel("other=1", "com.docker.compose.service"))
}

func TestReportAllHealthy(t *testing.T) {
	samples := []HealthSample{{Name: "a", Running: true}, {Name: "b", Running: true}}
	assert.Equal(t, "OK (2 checked)", Report(samples))
}

func TestReportWithIssues(t *testing.T) {
	samples := []HealthSample{
		{Name: "a", Running: true},
		{Name: "b", Running: false, Problematic: true},
	}
	out := Report(samples)
	assert.Contains(t, out, "Issues: 1 detected")
	assert.Contains(t, out, "b: not running")
}
