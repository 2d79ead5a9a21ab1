package version

import (
	"runtime"
	"strings"
	"testing"
)

func TestInfo_String(t *testing.T) {
	info := &Info{Version: "v1.2.0", GitCommit: "0123456789abcdef", BuildTime: "2024-05-01T10:00:00Z"}

	want := "zsync v1.2.0 (0123456) built 2024-05-01T10:00:00Z"
	if got := info.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestInfo_Banner(t *testing.T) {
	info := Get()

	got := info.Banner()
	if !strings.HasPrefix(got, "zsync dev (unknown) ") {
		t.Errorf("Banner() = %q, want the default build stamp", got)
	}
	if !strings.HasSuffix(got, runtime.GOOS+"/"+runtime.GOARCH) {
		t.Errorf("Banner() = %q, want the platform last", got)
	}
}
