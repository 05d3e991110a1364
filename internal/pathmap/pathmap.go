// Package pathmap maps local file paths to their remote counterparts and
// evaluates exclusion globs. All functions are purely textual and never
// touch the filesystem.
package pathmap

import (
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Normalize replaces every backslash separator with a forward slash.
func Normalize(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}

// Rel computes target relative to base. Unlike filepath.Rel it never fails:
// targets outside base yield a path with ".." segments, and unresolvable
// pairs fall back to the normalized target. Callers must reject results
// containing parent traversal before mapping them to a remote path.
func Rel(base, target string) string {
	rel, err := filepath.Rel(base, target)
	if err != nil {
		return Normalize(target)
	}
	return Normalize(rel)
}

// IsExcluded reports whether the normalized relative path matches any of
// the glob patterns. Matching is case-sensitive and "**" crosses path
// separators. An empty pattern list excludes nothing; a malformed pattern
// never matches.
func IsExcluded(rel string, patterns []string) bool {
	rel = Normalize(rel)
	for _, pat := range patterns {
		ok, err := doublestar.Match(pat, rel)
		if err != nil {
			continue
		}
		if ok {
			return true
		}
	}
	return false
}

// HasHiddenSegment reports whether any segment of the relative path is
// dot-prefixed.
func HasHiddenSegment(rel string) bool {
	for _, seg := range strings.Split(Normalize(rel), "/") {
		if seg == "." || seg == ".." {
			continue
		}
		if strings.HasPrefix(seg, ".") {
			return true
		}
	}
	return false
}

// BasePath extracts the path component of a remote base descriptor. The
// descriptor may be a full URI or a bare path; a string that fails to
// parse is used verbatim as a literal prefix. The result always carries a
// leading slash.
func BasePath(remoteBase string) string {
	p := remoteBase
	if u, err := url.Parse(remoteBase); err == nil {
		p = u.Path
	}
	if p == "" {
		return "/"
	}
	p = path.Clean("/" + strings.Trim(Normalize(p), "/"))
	return p
}

// ToRemotePath maps localPath under localRoot onto the path component of
// remoteBase. The result always carries a leading slash.
func ToRemotePath(localPath, localRoot, remoteBase string) string {
	rel := Rel(localRoot, localPath)
	joined := path.Join(BasePath(remoteBase), rel)
	if !strings.HasPrefix(joined, "/") {
		joined = "/" + joined
	}
	return joined
}

// AncestorDirs returns every directory between the filesystem root
// (exclusive) and the immediate parent of p (inclusive), ordered
// root-first. Used to create missing remote directories top-down.
func AncestorDirs(p string) []string {
	dir := path.Dir(Normalize(p))
	if dir == "/" || dir == "." {
		return nil
	}
	segs := strings.Split(strings.Trim(dir, "/"), "/")
	out := make([]string, 0, len(segs))
	cur := ""
	for _, seg := range segs {
		if seg == "" {
			continue
		}
		cur += "/" + seg
		out = append(out, cur)
	}
	return out
}

// WithinBase reports whether dir is the base path itself or one of its
// ancestors, using path-segment containment rather than string length.
// Such directories are assumed to already exist on the remote.
func WithinBase(dir, base string) bool {
	if base == "/" {
		return dir == "/"
	}
	if dir == base {
		return true
	}
	return strings.HasPrefix(base+"/", dir+"/")
}
