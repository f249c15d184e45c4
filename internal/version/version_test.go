package version

import (
	"fmt"
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/require"
)

func fakeGit(exactMatch string, describe string, exactErr, descErr error) func(...string) (string, error) {
	return func(args ...string) (string, error) {
		if len(args) == 0 {
			return "", fmt.Errorf("no args")
		}
		switch args[0] {
		case "rev-parse":
			return ".git", nil
		case "describe":
			for _, a := range args {
				if a == "--exact-match" {
					return exactMatch, exactErr
				}
			}
			return describe, descErr
		default:
			return "", fmt.Errorf("unexpected git subcommand %q", args[0])
		}
	}
}

func fakeGitNotARepo() func(...string) (string, error) {
	return func(args ...string) (string, error) {
		return "", fmt.Errorf("not a git repository")
	}
}

func fakeBuildInfo(info *debug.BuildInfo) func() (*debug.BuildInfo, bool) {
	return func() (*debug.BuildInfo, bool) {
		return info, info != nil
	}
}

func TestResolveVersion_TaggedRelease(t *testing.T) {
	t.Parallel()
	git := fakeGit("v0.1.0", "", nil, nil)
	require.Equal(t, "0.1.0", resolveVersion("0.1.0", git))
}

func TestResolveVersion_CommitsAfterTag(t *testing.T) {
	t.Parallel()
	git := fakeGit("", "v0.1.0-3-gabcdef", fmt.Errorf("no tag"), nil)
	require.Equal(t, "0.1.0-3-gabcdef", resolveVersion("0.1.0", git))
}

func TestResolveVersion_DirtyWorkingTree(t *testing.T) {
	t.Parallel()
	git := fakeGit("", "v0.1.0-3-gabcdef-dirty", fmt.Errorf("no tag"), nil)
	require.Equal(t, "0.1.0-3-gabcdef-dirty", resolveVersion("0.1.0", git))
}

func TestResolveVersion_NoTags(t *testing.T) {
	t.Parallel()
	git := fakeGit("", "abcdef", fmt.Errorf("no tag"), nil)
	require.Equal(t, "0.1.0-abcdef", resolveVersion("0.1.0", git))
}

func TestResolveVersion_NotAGitRepo(t *testing.T) {
	t.Parallel()
	require.Equal(t, "0.1.0", resolveVersion("0.1.0", fakeGitNotARepo()))
}

func TestResolveVersion_EmptyBaseFallsBackToZero(t *testing.T) {
	t.Parallel()
	require.Equal(t, "0.0.0", resolveVersion("", fakeGitNotARepo()))
}

func TestResolveVersion_DescribeFails(t *testing.T) {
	t.Parallel()
	git := fakeGit("", "", fmt.Errorf("no tag"), fmt.Errorf("describe failed"))
	require.Equal(t, "0.1.0", resolveVersion("0.1.0", git))
}

func TestModuleVersion(t *testing.T) {
	t.Parallel()

	v, ok := moduleVersion(fakeBuildInfo(&debug.BuildInfo{Main: debug.Module{Version: "v1.2.3"}}))
	require.True(t, ok)
	require.Equal(t, "1.2.3", v)

	_, ok = moduleVersion(fakeBuildInfo(&debug.BuildInfo{Main: debug.Module{Version: "(devel)"}}))
	require.False(t, ok)

	_, ok = moduleVersion(fakeBuildInfo(nil))
	require.False(t, ok)
}

func TestResolveCommit(t *testing.T) {
	t.Parallel()

	require.Equal(t, "abc123", resolveCommit("abc123", fakeBuildInfo(nil)))
	require.Equal(t, "unknown", resolveCommit("unknown", fakeBuildInfo(nil)))

	info := &debug.BuildInfo{Settings: []debug.BuildSetting{
		{Key: "vcs.revision", Value: "0123456789abcdef0123"},
		{Key: "vcs.modified", Value: "true"},
	}}
	require.Equal(t, "0123456789ab-dirty", resolveCommit("", fakeBuildInfo(info)))
}
