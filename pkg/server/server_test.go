package server

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseServerWithName(t *testing.T) {
	s, err := Parse("myserver:ubuntu@192.168.1.10")
	require.NoError(t, err)
	assert.Equal(t, "myserver", s.Name)
	assert.Equal(t, "ubuntu@192.168.1.10", s.SSHHost)
	assert.False(t, s.IsLocal())
}

func TestParseServerWithoutName(t *testing.T) {
	s, err := Parse("admin@192.168.1.20")
	require.NoError(t, err)
	assert.Equal(t, "192.168.1.20", s.Name)
	assert.Equal(t, "admin@192.168.1.20", s.SSHHost)
}

func TestParseLocalVariants(t *testing.T) {
	for _, in := range []string{"local", "localhost", "LOCAL", "LocalHost"} {
		s, err := Parse(in)
		require.NoError(t, err)
		assert.True(t, s.IsLocal())
	}
}

func TestParseNameColonLocal(t *testing.T) {
	s, err := Parse("box1:local")
	require.NoError(t, err)
	assert.True(t, s.IsLocal())
	assert.Equal(t, "box1", s.Name)

	s, err = Parse("box2:LOCALHOST")
	require.NoError(t, err)
	assert.True(t, s.IsLocal())
	assert.Equal(t, "box2", s.Name)
}

func TestParseCloudVM(t *testing.T) {
	s, err := Parse("Cloud VM1:ubuntu@10.0.0.5")
	require.NoError(t, err)
	assert.Equal(t, "Cloud VM1", s.Name)
	assert.Equal(t, "ubuntu@10.0.0.5", s.SSHHost)
	assert.False(t, s.IsLocal())
}

func TestParseInvalidTooManyColons(t *testing.T) {
	_, err := Parse("a:b:c")
	assert.Error(t, err)
}

func TestParseEmpty(t *testing.T) {
	_, err := Parse("   ")
	assert.Error(t, err)
}

func TestLocalServerDisplay(t *testing.T) {
	os.Unsetenv("UPDATE_LOCAL_NAME")
	os.Unsetenv("UPDATE_LOCAL_DISPLAY")
	s := Local()
	assert.True(t, s.IsLocal())
	assert.Equal(t, "localhost", s.Name)
	assert.Equal(t, "local", s.DisplayHost())
}

func TestParseAllSkipsBlanks(t *testing.T) {
	servers, err := ParseAll("local, admin@10.0.0.1, ,web:user@10.0.0.2")
	require.NoError(t, err)
	require.Len(t, servers, 3)
	assert.True(t, servers[0].IsLocal())
	assert.Equal(t, "10.0.0.1", servers[1].Name)
	assert.Equal(t, "web", servers[2].Name)
}
