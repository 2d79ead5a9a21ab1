package scanner

// LocalFile is one regular file found under the local root.
type LocalFile struct {
	// RelativePath uses "/" regardless of the host OS.
	RelativePath string
	AbsPath      string
	Size         int64
	// ModTime is in milliseconds since the Unix epoch.
	ModTime int64
}
