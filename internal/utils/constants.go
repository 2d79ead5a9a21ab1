package utils

import "time"

// Run defaults
const (
	DefaultHostname  = "localhost"
	DefaultIndexFile = "zsync.xml"
	DefaultFTPPort   = "21"
)

// Transfer modes for STOR
const (
	TransferModeText   = "text"
	TransferModeBinary = "binary"
)

// Network timeouts
const (
	DefaultCommandTimeout = 120 * time.Second
)

// Dataset naming limits
const (
	QualifierMaxLength = 8
	MemberMaxLength    = 8
)

// MissingContainerReply is the z/OS FTP server reply text for a STOR into a PDS
// that has not been allocated yet.
const MissingContainerReply = "requests a nonexistent partitioned data set"

// ChangeTimeLayout is used for report-only change notifications
const ChangeTimeLayout = "02.01.2006 15:04:05"

// Schema version
const SchemaVersion = "1.0"
