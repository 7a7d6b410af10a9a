package version

// Flag contains extra info about the version, e.g. "develop" or "rc1". It is
// empty for releases.
const Flag = ""

var (
	// Version is The full version string
	Version = "0.1.0"

	// GitCommit is set with
	// --ldflags "-X github.com/mosaicnetworks/joiner/src/version.GitCommit=$(git rev-parse HEAD)"
	GitCommit string
)

func init() {
	Version = build(Version, Flag, GitCommit)
}

func build(base, flag, commit string) string {
	v := base
	if flag != "" {
		v += "-" + flag
	}
	if len(commit) >= 8 {
		v += "-" + commit[:8]
	}
	return v
}
