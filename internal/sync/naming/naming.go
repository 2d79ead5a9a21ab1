// Package naming maps hierarchical local paths onto the flat dataset
// namespace: every directory becomes an 8-character qualifier and the file
// becomes a member of the resulting partitioned data set.
//
// The mapping is lossy. Segments are truncated and the result is upper-cased,
// so "reports2024/a.txt" and "reports2025/a.txt" land on the same member.
package naming

import (
	"path"
	"strings"

	"github.com/dl-alexandre/zsync/internal/utils"
)

// MapPath returns the full remote name, CONTAINER(MEMBER), for a relative
// slash-separated path under remoteRoot.
//
// Member names are not validated. A name that is only an extension maps to
// an empty member (".profile" gives "ROOT()") and only the last extension is
// dropped ("x.y.z" gives "ROOT(X.Y)"). The host rejects both at STOR time.
func MapPath(relativePath, remoteRoot string) string {
	segments := strings.Split(path.Clean(relativePath), "/")
	directories := segments[:len(segments)-1]
	fileName := segments[len(segments)-1]

	qualifiers := make([]string, 0, len(directories))
	for _, dir := range directories {
		qualifiers = append(qualifiers, truncate(dir, utils.QualifierMaxLength))
	}

	member := fileName
	if dot := strings.LastIndex(fileName, "."); dot != -1 {
		member = fileName[:dot]
	}
	member = truncate(member, utils.MemberMaxLength)

	container := remoteRoot
	if len(qualifiers) > 0 {
		container = remoteRoot + "." + strings.Join(qualifiers, ".")
	}

	return strings.ToUpper(container + "(" + member + ")")
}

// ContainerOf strips the trailing (MEMBER) from a remote name.
func ContainerOf(remoteName string) string {
	if idx := strings.LastIndex(remoteName, "("); idx != -1 {
		return remoteName[:idx]
	}
	return remoteName
}

// MemberOf returns the member part of a remote name, or "" if there is none.
func MemberOf(remoteName string) string {
	idx := strings.LastIndex(remoteName, "(")
	if idx == -1 {
		return ""
	}
	return strings.TrimSuffix(remoteName[idx+1:], ")")
}

// RelativeContainer returns the container's qualifiers below remoteRoot
// ("A.B" for USER.ROOT.A.B under USER.ROOT). The root container itself, or a
// container outside remoteRoot, yields "".
func RelativeContainer(container, remoteRoot string) string {
	root := strings.ToUpper(remoteRoot)
	container = strings.ToUpper(container)
	if !strings.HasPrefix(container, root+".") {
		return ""
	}
	return container[len(root)+1:]
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
