package imageupdate

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExecutor struct {
	responses map[string][]byte
	errors    map[string]error
	calls     []string
}

func key(cmd string, args ...string) string {
	k := cmd
	for _, a := range args {
		k += "|" + a
	}
	return k
}

func (f *fakeExecutor) Execute(ctx context.Context, cmd string, args ...string) ([]byte, error) {
	k := key(cmd, args...)
	f.calls = append(f.calls, k)
	if err, ok := f.errors[k]; ok {
		return nil, err
	}
	return f.responses[k], nil
}

func TestListImagesSkipsDangling(t *testing.T) {
	exec := &fakeExecutor{responses: map[string][]byte{
		key("docker", "images", "--format", "{{.Repository}}:{{.Tag}}"): []byte("nginx:latest\n<none>:<none>\napp:v2\n"),
	}}
	images, err := ListImages(context.Background(), exec)
	require.NoError(t, err)
	assert.Equal(t, []string{"nginx:latest", "app:v2"}, images)
}

func TestShouldRestartAllExceptWebhook(t *testing.T) {
	p := RestartPolicy{Kind: RestartAllExceptWebhook}
	assert.True(t, p.ShouldRestart("srv", "web"))
	assert.False(t, p.ShouldRestart("srv", "updatectl_webhook_1"))
}

func TestShouldRestartNone(t *testing.T) {
	p := RestartPolicy{Kind: RestartNone}
	assert.False(t, p.ShouldRestart("srv", "anything"))
}

func TestShouldRestartExclusionDefaultAndServerScoped(t *testing.T) {
	p := RestartPolicy{
		Kind:           RestartExclusion,
		DefaultExclude: []string{"db"},
		ServerExclude:  map[string][]string{"prod": {"cache"}},
	}
	assert.False(t, p.ShouldRestart("prod", "my-db-1"))
	assert.False(t, p.ShouldRestart("prod", "my-cache-1"))
	assert.True(t, p.ShouldRestart("staging", "my-cache-1"))
	assert.True(t, p.ShouldRestart("prod", "web"))
}

func TestUpdateImagesPullRestartFlow(t *testing.T) {
	fe := &fakeExecutor{
		responses: map[string][]byte{
			key("docker", "pull", "nginx:latest"):                                                    []byte("ok"),
			key("docker", "ps", "--filter", "ancestor=nginx:latest", "--format", "{{.Names}}"):        []byte("web1\nweb2\n"),
			key("docker", "restart", "web1"):                                                         []byte("ok"),
			key("docker", "restart", "web2"):                                                         []byte("ok"),
		},
		errors: map[string]error{},
	}

	policy := RestartPolicy{Kind: RestartAllExceptWebhook}
	outcomes := UpdateImages(context.Background(), fe, "srv1", []string{"nginx:latest"}, policy)

	require.Len(t, outcomes, 1)
	o := outcomes[0]
	assert.True(t, o.Pulled)
	assert.ElementsMatch(t, []string{"web1", "web2"}, o.DependentsRestarted)
	assert.Empty(t, o.DependentsExcluded)
}

func TestUpdateImagesPullFailure(t *testing.T) {
	fe := &fakeExecutor{
		errors: map[string]error{
			key("docker", "pull", "broken:latest"): fmt.Errorf("no such image"),
		},
	}
	outcomes := UpdateImages(context.Background(), fe, "srv1", []string{"broken:latest"}, RestartPolicy{Kind: RestartAllExceptWebhook})
	require.Len(t, outcomes, 1)
	assert.False(t, outcomes[0].Pulled)
	assert.Contains(t, outcomes[0].PullError, "no such image")
}

func TestParseLocalDigest(t *testing.T) {
	d, ok := parseLocalDigest("nginx@sha256:abc123")
	assert.True(t, ok)
	assert.Equal(t, "sha256:abc123", d)

	_, ok = parseLocalDigest("no-at-sign")
	assert.False(t, ok)
}

func TestParseRemoteDigestSingleManifest(t *testing.T) {
	raw := []byte(`{"config":{"digest":"sha256:deadbeef"}}`)
	d, ok := parseRemoteDigest(raw)
	assert.True(t, ok)
	assert.Equal(t, "sha256:deadbeef", d)
}

func TestParseRemoteDigestManifestList(t *testing.T) {
	raw := []byte(`{"manifests":[{"digest":"sha256:first"},{"digest":"sha256:second"}]}`)
	d, ok := parseRemoteDigest(raw)
	assert.True(t, ok)
	assert.Equal(t, "sha256:first", d)
}

func TestCheckUpdateAvailableDifferentDigests(t *testing.T) {
	fe := &fakeExecutor{
		responses: map[string][]byte{
			key("docker", "inspect", "--format", "{{index .RepoDigests 0}}", "nginx:latest"): []byte("nginx@sha256:local"),
			key("docker", "manifest", "inspect", "nginx:latest"):                             []byte(`{"config":{"digest":"sha256:remote"}}`),
		},
	}
	check := CheckUpdateAvailable(context.Background(), fe, "nginx:latest")
	assert.True(t, check.UpdateAvailable)
	assert.Equal(t, "sha256:local", check.LocalDigest)
	assert.Equal(t, "sha256:remote", check.RemoteDigest)
}

func TestCheckUpdateAvailableConservativeOnError(t *testing.T) {
	fe := &fakeExecutor{
		errors: map[string]error{
			key("docker", "inspect", "--format", "{{index .RepoDigests 0}}", "nginx:latest"): fmt.Errorf("no such image"),
		},
	}
	check := CheckUpdateAvailable(context.Background(), fe, "nginx:latest")
	assert.False(t, check.UpdateAvailable)
}

func TestCheckUpdateAvailableSameDigest(t *testing.T) {
	fe := &fakeExecutor{
		responses: map[string][]byte{
			key("docker", "inspect", "--format", "{{index .RepoDigests 0}}", "nginx:latest"): []byte("nginx@sha256:same"),
			key("docker", "manifest", "inspect", "nginx:latest"):                             []byte(`{"config":{"digest":"sha256:same"}}`),
		},
	}
	check := CheckUpdateAvailable(context.Background(), fe, "nginx:latest")
	assert.False(t, check.UpdateAvailable)
}
