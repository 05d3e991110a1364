package webdav

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const statResponse = `<?xml version="1.0"?>
<d:multistatus xmlns:d="DAV:">
  <d:response>
    <d:href>/dav/docs/a.txt</d:href>
    <d:propstat>
      <d:status>HTTP/1.1 200 OK</d:status>
      <d:prop>
        <d:resourcetype/>
        <d:getcontentlength>42</d:getcontentlength>
        <d:getlastmodified>Mon, 02 Jan 2006 15:04:05 GMT</d:getlastmodified>
        <d:getetag>"abc123"</d:getetag>
      </d:prop>
    </d:propstat>
  </d:response>
</d:multistatus>`

const listResponse = `<?xml version="1.0"?>
<d:multistatus xmlns:d="DAV:">
  <d:response>
    <d:href>/dav/docs/</d:href>
    <d:propstat>
      <d:status>HTTP/1.1 200 OK</d:status>
      <d:prop><d:resourcetype><d:collection/></d:resourcetype></d:prop>
    </d:propstat>
  </d:response>
  <d:response>
    <d:href>/dav/docs/sub/</d:href>
    <d:propstat>
      <d:status>HTTP/1.1 200 OK</d:status>
      <d:prop><d:resourcetype><d:collection/></d:resourcetype></d:prop>
    </d:propstat>
  </d:response>
  <d:response>
    <d:href>/dav/docs/a%20b.txt</d:href>
    <d:propstat>
      <d:status>HTTP/1.1 200 OK</d:status>
      <d:prop>
        <d:resourcetype/>
        <d:getcontentlength>7</d:getcontentlength>
      </d:prop>
    </d:propstat>
  </d:response>
</d:multistatus>`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(Options{
		BaseURL:  srv.URL,
		Username: "alice",
		Secret:   "s3cret",
		Timeout:  5 * time.Second,
		Logger:   zerolog.Nop(),
	})
	require.NoError(t, err)
	return c
}

func TestClient_Stat(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "PROPFIND", r.Method)
		assert.Equal(t, "/dav/docs/a.txt", r.URL.Path)
		assert.Equal(t, "0", r.Header.Get("Depth"))
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "alice", user)
		assert.Equal(t, "s3cret", pass)

		w.WriteHeader(http.StatusMultiStatus)
		_, _ = w.Write([]byte(statResponse))
	})

	info, err := c.Stat(context.Background(), "/dav/docs/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "/dav/docs/a.txt", info.Path)
	assert.Equal(t, int64(42), info.Size)
	assert.Equal(t, "abc123", info.ETag)
	assert.False(t, info.IsDir)
	assert.Equal(t, 2006, info.Modified.Year())
}

func TestClient_Stat_NotFound(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	})

	_, err := c.Stat(context.Background(), "/dav/missing")
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusNotFound))
}

func TestClient_CreateDirectory(t *testing.T) {
	t.Parallel()

	t.Run("created", func(t *testing.T) {
		t.Parallel()
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "MKCOL", r.Method)
			assert.Equal(t, "/dav/newdir", r.URL.Path)
			w.WriteHeader(http.StatusCreated)
		})
		require.NoError(t, c.CreateDirectory(context.Background(), "/dav/newdir"))
	})

	t.Run("already exists", func(t *testing.T) {
		t.Parallel()
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusMethodNotAllowed)
		})
		err := c.CreateDirectory(context.Background(), "/dav/newdir")
		require.Error(t, err)
		assert.True(t, IsStatus(err, http.StatusMethodNotAllowed))
	})
}

func TestClient_PutFileContents(t *testing.T) {
	t.Parallel()

	var gotBody []byte
	var gotIfNoneMatch string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/dav/a b.txt", r.URL.Path)
		gotIfNoneMatch = r.Header.Get("If-None-Match")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
	})

	err := c.PutFileContents(context.Background(), "/dav/a b.txt", []byte("hello"), true)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), gotBody)
	assert.Empty(t, gotIfNoneMatch)

	err = c.PutFileContents(context.Background(), "/dav/a b.txt", []byte("hi"), false)
	require.NoError(t, err)
	assert.Equal(t, "*", gotIfNoneMatch)
}

func TestClient_DeleteFile(t *testing.T) {
	t.Parallel()

	t.Run("deleted", func(t *testing.T) {
		t.Parallel()
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodDelete, r.Method)
			w.WriteHeader(http.StatusNoContent)
		})
		require.NoError(t, c.DeleteFile(context.Background(), "/dav/a.txt"))
	})

	t.Run("missing surfaces 404", func(t *testing.T) {
		t.Parallel()
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "gone", http.StatusNotFound)
		})
		err := c.DeleteFile(context.Background(), "/dav/a.txt")
		require.Error(t, err)
		assert.True(t, IsStatus(err, http.StatusNotFound))
	})
}

func TestClient_GetDirectoryContents(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "PROPFIND", r.Method)
		assert.Equal(t, "1", r.Header.Get("Depth"))
		w.WriteHeader(http.StatusMultiStatus)
		_, _ = w.Write([]byte(listResponse))
	})

	entries, err := c.GetDirectoryContents(context.Background(), "/dav/docs", false)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "/dav/docs/sub/", entries[0].Path)
	assert.True(t, entries[0].IsDir)
	assert.Equal(t, "/dav/docs/a b.txt", entries[1].Path)
	assert.Equal(t, int64(7), entries[1].Size)
}

func TestNewClient_Validation(t *testing.T) {
	t.Parallel()

	_, err := NewClient(Options{BaseURL: "not-a-url"})
	assert.Error(t, err)
}
