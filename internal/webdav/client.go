package webdav

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

const propfindBody = `<?xml version="1.0" encoding="utf-8"?>
<d:propfind xmlns:d="DAV:">
  <d:prop>
    <d:resourcetype/>
    <d:getcontentlength/>
    <d:getlastmodified/>
    <d:getetag/>
  </d:prop>
</d:propfind>`

// Options configures a Client.
type Options struct {
	// BaseURL is the endpoint origin, e.g. "https://dav.example.com". Any
	// path component is ignored: callers pass full remote paths per call.
	BaseURL  string
	Username string
	Secret   string
	Timeout  time.Duration
	Logger   zerolog.Logger
}

// Client implements RemoteStore against a single WebDAV endpoint.
type Client struct {
	http *resty.Client
	log  zerolog.Logger
}

// NewClient builds a client for the endpoint named by opts.BaseURL.
func NewClient(opts Options) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse endpoint %q: %w", opts.BaseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("endpoint %q has no scheme or host", opts.BaseURL)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	cli := resty.New().
		SetBaseURL(u.Scheme + "://" + u.Host).
		SetTimeout(opts.Timeout)
	if opts.Username != "" {
		cli.SetBasicAuth(opts.Username, opts.Secret)
	}

	return &Client{http: cli, log: opts.Logger}, nil
}

// Stat fetches metadata for a single remote path via a depth-0 PROPFIND.
func (c *Client) Stat(ctx context.Context, path string) (FileInfo, error) {
	ms, err := c.propfind(ctx, path, "0")
	if err != nil {
		return FileInfo{}, err
	}
	if len(ms.Responses) == 0 {
		return FileInfo{}, &StatusError{Code: http.StatusNotFound, Message: "no response for " + path}
	}
	return infoFromResponse(ms.Responses[0]), nil
}

// CreateDirectory issues a MKCOL for path. The caller decides whether a 405
// (collection already exists) is tolerable.
func (c *Client) CreateDirectory(ctx context.Context, path string) error {
	resp, err := c.http.R().SetContext(ctx).Execute("MKCOL", escapePath(path))
	if err != nil {
		return fmt.Errorf("mkcol %s: %w", path, err)
	}
	if resp.StatusCode() != http.StatusCreated && resp.StatusCode() != http.StatusOK {
		return statusErr(resp)
	}
	return nil
}

// PutFileContents uploads data to path. With overwrite false the request
// carries If-None-Match so an existing resource is left untouched.
func (c *Client) PutFileContents(ctx context.Context, path string, data []byte, overwrite bool) error {
	req := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/octet-stream").
		SetBody(data)
	if !overwrite {
		req.SetHeader("If-None-Match", "*")
	}

	resp, err := req.Put(escapePath(path))
	if err != nil {
		return fmt.Errorf("put %s: %w", path, err)
	}
	switch resp.StatusCode() {
	case http.StatusOK, http.StatusCreated, http.StatusNoContent:
		return nil
	}
	return statusErr(resp)
}

// DeleteFile removes a remote resource. A 404 surfaces as a StatusError;
// the engine treats that as an idempotent success.
func (c *Client) DeleteFile(ctx context.Context, path string) error {
	resp, err := c.http.R().SetContext(ctx).Delete(escapePath(path))
	if err != nil {
		return fmt.Errorf("delete %s: %w", path, err)
	}
	switch resp.StatusCode() {
	case http.StatusOK, http.StatusNoContent:
		return nil
	}
	return statusErr(resp)
}

// GetDirectoryContents lists the resources below path. With deep true the
// PROPFIND uses infinite depth, otherwise depth 1. The collection itself is
// not included in the result.
func (c *Client) GetDirectoryContents(ctx context.Context, path string, deep bool) ([]FileInfo, error) {
	depth := "1"
	if deep {
		depth = "infinity"
	}
	ms, err := c.propfind(ctx, path, depth)
	if err != nil {
		return nil, err
	}

	self := strings.TrimRight(path, "/")
	var out []FileInfo
	for _, r := range ms.Responses {
		info := infoFromResponse(r)
		if strings.TrimRight(info.Path, "/") == self {
			continue
		}
		out = append(out, info)
	}
	return out, nil
}

func (c *Client) propfind(ctx context.Context, path, depth string) (*multistatus, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Depth", depth).
		SetHeader("Content-Type", `application/xml; charset="utf-8"`).
		SetBody(propfindBody).
		Execute("PROPFIND", escapePath(path))
	if err != nil {
		return nil, fmt.Errorf("propfind %s: %w", path, err)
	}
	if resp.StatusCode() != http.StatusMultiStatus && resp.StatusCode() != http.StatusOK {
		return nil, statusErr(resp)
	}

	var ms multistatus
	if err := xml.Unmarshal(resp.Body(), &ms); err != nil {
		return nil, fmt.Errorf("propfind %s: decode multistatus: %w", path, err)
	}
	return &ms, nil
}

type multistatus struct {
	XMLName   xml.Name      `xml:"multistatus"`
	Responses []davResponse `xml:"response"`
}

type davResponse struct {
	Href      string        `xml:"href"`
	Propstats []davPropstat `xml:"propstat"`
}

type davPropstat struct {
	Status string  `xml:"status"`
	Prop   davProp `xml:"prop"`
}

type davProp struct {
	ResourceType  davResourceType `xml:"resourcetype"`
	ContentLength int64           `xml:"getcontentlength"`
	LastModified  string          `xml:"getlastmodified"`
	ETag          string          `xml:"getetag"`
}

type davResourceType struct {
	Collection *struct{} `xml:"collection"`
}

func infoFromResponse(r davResponse) FileInfo {
	info := FileInfo{Path: unescapeHref(r.Href)}
	for _, ps := range r.Propstats {
		if ps.Status != "" && !strings.Contains(ps.Status, "200") {
			continue
		}
		info.Size = ps.Prop.ContentLength
		info.ETag = strings.Trim(ps.Prop.ETag, `"`)
		info.IsDir = ps.Prop.ResourceType.Collection != nil
		if ps.Prop.LastModified != "" {
			if t, err := http.ParseTime(ps.Prop.LastModified); err == nil {
				info.Modified = t
			}
		}
	}
	return info
}

func unescapeHref(href string) string {
	if u, err := url.Parse(href); err == nil {
		return u.Path
	}
	return href
}

func escapePath(p string) string {
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return (&url.URL{Path: p}).EscapedPath()
}

func statusErr(resp *resty.Response) error {
	msg := strings.TrimSpace(resp.String())
	if msg == "" {
		msg = resp.Status()
	}
	return &StatusError{Code: resp.StatusCode(), Message: msg}
}
