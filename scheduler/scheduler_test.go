package scheduler_test

import (
	"path/filepath"
	"testing"

	"github.com/gigcatalog/ingestor/scheduler"
	"github.com/stretchr/testify/require"
)

func TestResolveAllowDenyDisjoint(t *testing.T) {
	all := []string{"a", "b", "c"}
	out, err := scheduler.ResolveAllowDeny(all, nil, []string{"b"})
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"a", "c"}, out)
}

func TestResolveAllowDenyOverlapIsError(t *testing.T) {
	_, err := scheduler.ResolveAllowDeny([]string{"a", "b"}, []string{"a"}, []string{"a"})
	require.Error(t, err)
}

func TestResolveAllowDenyAllowListOnly(t *testing.T) {
	out, err := scheduler.ResolveAllowDeny([]string{"a", "b", "c"}, []string{"a", "c"}, nil)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"a", "c"}, out)
}

func TestAcquirePIDFileRefusesWhileHeld(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ingestor.pid")

	release, err := scheduler.AcquirePIDFile(path)
	require.NoError(t, err)

	_, err = scheduler.AcquirePIDFile(path)
	require.Error(t, err)

	require.NoError(t, release())

	release2, err := scheduler.AcquirePIDFile(path)
	require.NoError(t, err)
	require.NoError(t, release2())
}

func TestLoadSourcesFileMissingIsNotError(t *testing.T) {
	f, err := scheduler.LoadSourcesFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	require.Empty(t, f.Sources)
}
