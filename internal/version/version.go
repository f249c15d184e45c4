package version

import (
	"os/exec"
	"runtime/debug"
	"strings"
)

var (
	Version = "0.1.0"
	Commit  = "unknown"
	Date    = "unknown"
)

// Resolve returns the full version string. A module version stamped by
// `go install` wins; otherwise a git-derived suffix is appended when the
// binary runs inside a checkout whose HEAD is not on a release tag.
func Resolve() string {
	if v, ok := moduleVersion(debug.ReadBuildInfo); ok {
		return v
	}
	return resolveVersion(Version, runGit)
}

// ResolveCommit prefers the linker-stamped commit and falls back to the
// vcs.revision recorded in the build info.
func ResolveCommit() string {
	return resolveCommit(Commit, debug.ReadBuildInfo)
}

func moduleVersion(read func() (*debug.BuildInfo, bool)) (string, bool) {
	info, ok := read()
	if !ok || info == nil {
		return "", false
	}
	v := info.Main.Version
	if v == "" || v == "(devel)" {
		return "", false
	}
	return strings.TrimPrefix(v, "v"), true
}

func resolveCommit(stamped string, read func() (*debug.BuildInfo, bool)) string {
	if stamped != "" && stamped != "unknown" {
		return stamped
	}
	info, ok := read()
	if !ok || info == nil {
		return "unknown"
	}

	var revision string
	var modified bool
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.modified":
			modified = setting.Value == "true"
		}
	}
	if revision == "" {
		return "unknown"
	}
	if len(revision) > 12 {
		revision = revision[:12]
	}
	if modified {
		revision += "-dirty"
	}
	return revision
}

func resolveVersion(base string, git func(...string) (string, error)) string {
	if base == "" {
		base = "0.0.0"
	}

	suffix := computeGitSuffix(base, git)
	if suffix == "" {
		return base
	}
	return base + "-" + suffix
}

func computeGitSuffix(base string, git func(...string) (string, error)) string {
	if _, err := git("rev-parse", "--git-dir"); err != nil {
		return ""
	}

	if _, err := git("describe", "--tags", "--exact-match"); err == nil {
		return ""
	}

	desc, err := git("describe", "--tags", "--dirty", "--always")
	if err != nil {
		return ""
	}

	prefix := "v" + base + "-"
	if strings.HasPrefix(desc, prefix) {
		return strings.TrimPrefix(desc, prefix)
	}

	return desc
}

func runGit(args ...string) (string, error) {
	out, err := exec.Command("git", args...).Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
