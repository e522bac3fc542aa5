package cleanup

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRemoteTimestamp(t *testing.T) {
	assert.Equal(t, int64(1700000000), parseRemoteTimestamp("2023-11-14 22:13:20 +0000 UTC"))
	assert.Equal(t, int64(0), parseRemoteTimestamp("short"))
	assert.Equal(t, int64(0), parseRemoteTimestamp("not-a-timestamp--xx"))
}

func TestParsePruneOutputWithReclaimedLine(t *testing.T) {
	output := "Deleted Images:\nsha256:abcdef012345\ndeleted: sha256:123456abcdef\n\nTotal reclaimed space: 1.5GB\n"
	reclaimed, count := parsePruneOutput(output)
	assert.Equal(t, uint64(1_610_612_736), reclaimed)
	assert.Equal(t, 2, count)
}

func TestParsePruneOutputFallsBackToLineCount(t *testing.T) {
	output := "untagged: nginx:1.0\nuntagged: redis:7\n"
	_, count := parsePruneOutput(output)
	assert.Equal(t, 2, count)
}

func TestIsShortID(t *testing.T) {
	assert.True(t, isShortID("abc123456789"))
	assert.False(t, isShortID("abc1234"))
	assert.False(t, isShortID("not-hex-chars"))
}

func TestParseRemoteImagesDanglingHasNoTags(t *testing.T) {
	lines := []string{`{"ID":"sha256:abc","Repository":"<none>","Tag":"<none>","Size":"10MB","CreatedAt":"2023-11-14 22:13:20 +0000 UTC"}`}
	images := parseRemoteImages(lines)
	if assert.Len(t, images, 1) {
		assert.Empty(t, images[0].Tags)
		assert.Equal(t, uint64(10*1024*1024), images[0].Size)
	}
}

func TestParseRemoteContainersSizeIsFirstField(t *testing.T) {
	lines := []string{`{"ID":"c1","Names":"/web","State":"running","Image":"nginx","Size":"5MB (virtual 100MB)","CreatedAt":"2023-11-14 22:13:20 +0000 UTC"}`}
	containers := parseRemoteContainers(lines)
	if assert.Len(t, containers, 1) {
		assert.Equal(t, "web", containers[0].Name)
		assert.Equal(t, uint64(5*1024*1024), containers[0].Size)
	}
}
