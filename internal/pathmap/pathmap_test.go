package pathmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "a/b/c.txt", Normalize(`a\b\c.txt`))
	assert.Equal(t, "/already/fine", Normalize("/already/fine"))
}

func TestRel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		base   string
		target string
		want   string
	}{
		{"direct child", "/repo", "/repo/a.txt", "a.txt"},
		{"nested", "/repo", "/repo/src/a.ts", "src/a.ts"},
		{"outside base", "/repo", "/other/b.txt", "../other/b.txt"},
		{"base itself", "/repo", "/repo", "."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Rel(tt.base, tt.target))
		})
	}
}

func TestIsExcluded(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		rel      string
		patterns []string
		want     bool
	}{
		{"no patterns", "src/a.ts", nil, false},
		{"simple glob", "build.log", []string{"**/*.log"}, true},
		{"nested glob", "a/b/c/d.log", []string{"**/*.log"}, true},
		{"git dir shallow", ".git/config", []string{"**/.git/**"}, true},
		{"git dir deep", "x/y/.git/objects/ab/cd", []string{"**/.git/**"}, true},
		{"non-match", "src/a.ts", []string{"**/*.log", "**/.git/**"}, false},
		{"case sensitive", "A.LOG", []string{"**/*.log"}, false},
		{"second pattern wins", "tmp/x", []string{"**/*.log", "tmp/**"}, true},
		{"malformed pattern ignored", "src/a.ts", []string{"[", "src/*.ts"}, true},
		{"backslash input", `x\y\z.log`, []string{"**/*.log"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsExcluded(tt.rel, tt.patterns))
		})
	}
}

func TestHasHiddenSegment(t *testing.T) {
	t.Parallel()

	assert.True(t, HasHiddenSegment(".env"))
	assert.True(t, HasHiddenSegment("a/.cache/b.txt"))
	assert.False(t, HasHiddenSegment("a/b/c.txt"))
	assert.False(t, HasHiddenSegment("./a.txt"))
}

func TestBasePath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"full uri", "https://host/base/", "/base"},
		{"uri deep path", "https://host/remote.php/dav/files/u", "/remote.php/dav/files/u"},
		{"bare path", "/dav", "/dav"},
		{"bare path trailing slash", "/dav/sub/", "/dav/sub"},
		{"host only", "https://host", "/"},
		{"empty", "", "/"},
		{"unparsable literal", "https://host/%zz", "/https:/host/%zz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, BasePath(tt.in))
		})
	}
}

func TestToRemotePath(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "/base/src/a.ts", ToRemotePath("/repo/src/a.ts", "/repo", "https://host/base/"))
	assert.Equal(t, "/dav/a.txt", ToRemotePath("/repo/a.txt", "/repo", "/dav"))
	assert.Equal(t, "/a.txt", ToRemotePath("/repo/a.txt", "/repo", "https://host"))
}

func TestAncestorDirs(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"/a", "/a/b", "/a/b/c"}, AncestorDirs("/a/b/c/file.txt"))
	assert.Nil(t, AncestorDirs("/file.txt"))
	assert.Nil(t, AncestorDirs("file.txt"))
}

func TestWithinBase(t *testing.T) {
	t.Parallel()

	assert.True(t, WithinBase("/sync", "/sync"))
	assert.True(t, WithinBase("/a", "/a/b/c"))
	assert.False(t, WithinBase("/sync2", "/sync"))
	assert.False(t, WithinBase("/sync/sub", "/sync"))
	assert.False(t, WithinBase("/a", "/"))
}
