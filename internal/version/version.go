package version

// Set at build time with -ldflags "-X ...".
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// Info is the build metadata reported by /health and `eventconnect version`.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
}

// Get returns the build metadata of the running binary.
func Get() Info {
	return Info{Version: Version, Commit: Commit, BuildDate: BuildDate}
}

// String formats the info as "1.2.0 (commit: abc1234)".
func (i Info) String() string {
	commit := i.Commit
	if len(commit) > 7 {
		commit = commit[:7]
	}
	return i.Version + " (commit: " + commit + ")"
}

// UserAgent is sent on every backend and notifier request.
func UserAgent() string {
	return "eventconnect/" + Version
}
