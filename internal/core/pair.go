// Package core implements the sync engine: sync-pair lifecycle, debounced
// change batching and the local-to-remote upload/delete pipeline.
package core

import (
	"time"

	"github.com/google/uuid"

	"github.com/mkarvela/davsync/internal/pathmap"
)

// Status is the runtime state of a sync pair.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusSyncing Status = "syncing"
	StatusError   Status = "error"
)

// ChangeKind classifies a local filesystem event.
type ChangeKind string

const (
	ChangeCreate ChangeKind = "create"
	ChangeWrite  ChangeKind = "change"
	ChangeDelete ChangeKind = "delete"
)

// SyncPair binds one local directory to a remote WebDAV destination.
//
// The declarative fields are persisted through the PairStore; the runtime
// fields (Status, LastSync, LastError, FilesInQueue) are mutated during
// operation and only written back best-effort.
type SyncPair struct {
	ID        string
	Name      string
	LocalPath string
	// RemoteURL is the remote base: endpoint origin plus an optional
	// embedded subpath, e.g. "https://dav.example.com/backups/site".
	RemoteURL string

	Enabled      bool
	SyncOnSave   bool
	SyncOnDelete bool
	SyncHidden   bool
	Debounce     time.Duration
	Exclude      []string

	// Username/Secret are per-pair credentials, distinct from any globally
	// configured endpoint auth. Secret may be empty when it lives in the
	// OS keyring instead of the store.
	Username string
	Secret   string

	Status       Status
	LastSync     time.Time
	LastError    string
	FilesInQueue int
}

// NewSyncPair builds a pair with a fresh identity and the default policy:
// enabled, upload on save, keep remote files on local delete, skip hidden
// entries, 500ms debounce.
func NewSyncPair(name, localPath, remoteURL string) SyncPair {
	return SyncPair{
		ID:         uuid.NewString(),
		Name:       name,
		LocalPath:  localPath,
		RemoteURL:  remoteURL,
		Enabled:    true,
		SyncOnSave: true,
		Debounce:   500 * time.Millisecond,
		Status:     StatusIdle,
	}
}

// RemoteBasePath returns the path component of RemoteURL. Remote ancestors
// at or above this path are assumed to exist already.
func (p SyncPair) RemoteBasePath() string {
	return pathmap.BasePath(p.RemoteURL)
}

// RemotePathFor maps an absolute local path inside LocalPath to its remote
// counterpart.
func (p SyncPair) RemotePathFor(localPath string) string {
	return pathmap.ToRemotePath(localPath, p.LocalPath, p.RemoteURL)
}

// PairPatch is a partial update of a pair's declarative fields. Nil fields
// are left untouched; Apply returns a new snapshot and never mutates the
// input.
type PairPatch struct {
	Name         *string
	LocalPath    *string
	RemoteURL    *string
	Enabled      *bool
	SyncOnSave   *bool
	SyncOnDelete *bool
	SyncHidden   *bool
	Debounce     *time.Duration
	Exclude      *[]string
	Username     *string
	Secret       *string
}

// Apply merges the patch into p and returns the result.
func (pt PairPatch) Apply(p SyncPair) SyncPair {
	if pt.Name != nil {
		p.Name = *pt.Name
	}
	if pt.LocalPath != nil {
		p.LocalPath = *pt.LocalPath
	}
	if pt.RemoteURL != nil {
		p.RemoteURL = *pt.RemoteURL
	}
	if pt.Enabled != nil {
		p.Enabled = *pt.Enabled
	}
	if pt.SyncOnSave != nil {
		p.SyncOnSave = *pt.SyncOnSave
	}
	if pt.SyncOnDelete != nil {
		p.SyncOnDelete = *pt.SyncOnDelete
	}
	if pt.SyncHidden != nil {
		p.SyncHidden = *pt.SyncHidden
	}
	if pt.Debounce != nil {
		p.Debounce = *pt.Debounce
	}
	if pt.Exclude != nil {
		p.Exclude = append([]string(nil), (*pt.Exclude)...)
	}
	if pt.Username != nil {
		p.Username = *pt.Username
	}
	if pt.Secret != nil {
		p.Secret = *pt.Secret
	}
	return p
}

// PairStore is the durable configuration store consumed by the engine.
// Implementations persist the declarative record wholesale on every
// mutation; runtime updates are best-effort.
type PairStore interface {
	Load() ([]SyncPair, error)
	Save(p SyncPair) error
	Delete(id string) error
	UpdateRuntime(id string, status Status, lastSync time.Time, lastErr string) error
}
