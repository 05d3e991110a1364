package webdav

import (
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// CredentialSource resolves the globally configured credentials for an
// endpoint origin. Returning empty strings yields an unauthenticated client.
type CredentialSource func(origin string) (username, secret string)

// Pool caches one shared authenticated client per endpoint origin. It is
// owned by whoever constructs the engine; invalidation is explicit rather
// than a deletion from ambient state.
type Pool struct {
	mu      sync.Mutex
	clients map[string]*Client
	creds   CredentialSource
	timeout time.Duration
	log     zerolog.Logger
}

// NewPool builds an empty pool. creds may be nil.
func NewPool(creds CredentialSource, timeout time.Duration, log zerolog.Logger) *Pool {
	return &Pool{
		clients: make(map[string]*Client),
		creds:   creds,
		timeout: timeout,
		log:     log,
	}
}

// Get returns the shared client for the endpoint, creating it lazily. All
// configurations referencing the same origin share one handle.
func (p *Pool) Get(endpoint string) (*Client, error) {
	origin := NormalizeEndpoint(endpoint)

	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.clients[origin]; ok {
		return c, nil
	}

	var user, secret string
	if p.creds != nil {
		user, secret = p.creds(origin)
	}
	c, err := NewClient(Options{
		BaseURL:  origin,
		Username: user,
		Secret:   secret,
		Timeout:  p.timeout,
		Logger:   p.log,
	})
	if err != nil {
		return nil, err
	}

	p.log.Debug().Str("endpoint", origin).Msg("webdav client created")
	p.clients[origin] = c
	return c, nil
}

// Invalidate drops the cached handle for an endpoint, typically after an
// authentication failure or a credential change. In-flight calls holding
// the old handle complete with the old credentials.
func (p *Pool) Invalidate(endpoint string) {
	origin := NormalizeEndpoint(endpoint)

	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.clients, origin)
}

// NormalizeEndpoint reduces an endpoint descriptor to its lowercased
// scheme://host origin, the pool's cache key. Unparsable descriptors are
// returned trimmed of trailing slashes.
func NormalizeEndpoint(endpoint string) string {
	trimmed := strings.TrimRight(endpoint, "/")
	u, err := url.Parse(trimmed)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return trimmed
	}
	return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host)
}
