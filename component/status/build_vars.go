package status

// Hash of the commit the binary was built on, set via -ldflags at build time.
var GitCommit = "0"

// Version tag the commit is on
var GitVersion string

// The branch the binary was built from
var GitBranch = "development"

func Version() string {
	if GitVersion != "" && GitVersion != "undefined" {
		return GitVersion
	}
	return GitBranch
}
