// Package version carries the build stamp set through -ldflags, e.g.
// -X github.com/dl-alexandre/zsync/pkg/version.Version=v1.2.0
package version

import (
	"fmt"
	"runtime"
)

var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// Info is the payload of `zsync version --json`.
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"gitCommit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	Platform  string `json:"platform"`
}

func Get() *Info {
	return &Info{
		Version:   Version,
		GitCommit: GitCommit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

func (i *Info) String() string {
	return fmt.Sprintf("zsync %s (%s) built %s", i.Version, shortCommit(i.GitCommit), i.BuildTime)
}

// Banner is the first debug line of every run, so a shared log file shows
// which build produced each trace.
func (i *Info) Banner() string {
	return fmt.Sprintf("zsync %s (%s) %s %s", i.Version, shortCommit(i.GitCommit), i.GoVersion, i.Platform)
}

func shortCommit(commit string) string {
	if len(commit) > 7 {
		return commit[:7]
	}
	return commit
}
