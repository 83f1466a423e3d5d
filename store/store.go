// Package store persists prompts, API keys and preferences in a single local
// JSON file, and merges the remote prompt library into it.
//
// The Store composes:
//   - an in-memory cache of the decoded file
//   - atomic replace-on-write (temp file + rename) under one writer mutex
//   - a single-flight remote library fetch shared by concurrent syncs
//
// Thread-Safety:
//   - All methods are safe for concurrent use
//   - Read-modify-write cycles are serialized; the cache only changes after
//     the file has been replaced successfully
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"genfill/core"
	"genfill/logging"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// File layout under the data directory.
const (
	FolderName  = "prompt-create"
	FileName    = "prompt-create.json"
	FileVersion = 1
)

// isoLayout matches the timestamps written by the plugin UI.
const isoLayout = "2006-01-02T15:04:05.000Z"

// SyncStatus is the outcome of the last library sync.
type SyncStatus string

const (
	SyncIdle    SyncStatus = "idle"
	SyncSuccess SyncStatus = "success"
	SyncError   SyncStatus = "error"
)

// fileData is the on-disk document.
type fileData struct {
	Version                int          `json:"version"`
	UpdatedAt              string       `json:"updatedAt"`
	SkipRemoteSync         Flag         `json:"skipRemoteSync"`
	LibrarySyncFlag        Flag         `json:"librarySyncFlag"`
	LibrarySyncLastStatus  SyncStatus   `json:"librarySyncLastStatus"`
	LibrarySyncLastMessage string       `json:"librarySyncLastMessage"`
	LibrarySyncLastAt      string       `json:"librarySyncLastAt"`
	APIKeys                keyMap       `json:"apiKeys"`
	AIChatAPIKeys          keyMap       `json:"aiChatApiKeys"`
	UIThemePreset          string       `json:"uiThemePreset"`
	StartupNoticeConfirmed Flag         `json:"startupNoticeConfirmed"`
	CustomFeatureEnabled   Flag         `json:"customFeatureEnabled"`
	Items                  []PromptItem `json:"items"`
}

// rawFile is the lenient decoding target for fileData.
type rawFile struct {
	Version                looseNumber     `json:"version"`
	UpdatedAt              looseString     `json:"updatedAt"`
	SkipRemoteSync         Flag            `json:"skipRemoteSync"`
	LibrarySyncFlag        Flag            `json:"librarySyncFlag"`
	LibrarySyncLastStatus  looseString     `json:"librarySyncLastStatus"`
	LibrarySyncLastMessage looseString     `json:"librarySyncLastMessage"`
	LibrarySyncLastAt      looseString     `json:"librarySyncLastAt"`
	APIKeys                keyMap          `json:"apiKeys"`
	AIChatAPIKeys          keyMap          `json:"aiChatApiKeys"`
	UIThemePreset          looseString     `json:"uiThemePreset"`
	StartupNoticeConfirmed Flag            `json:"startupNoticeConfirmed"`
	CustomFeatureEnabled   Flag            `json:"customFeatureEnabled"`
	Items                  json.RawMessage `json:"items"`
}

func emptyFile(now time.Time) *fileData {
	return &fileData{
		Version:               FileVersion,
		UpdatedAt:             formatTime(now),
		LibrarySyncLastStatus: SyncIdle,
		APIKeys:               keyMap{},
		AIChatAPIKeys:         keyMap{},
		Items:                 []PromptItem{},
	}
}

func (d *fileData) clone() *fileData {
	cp := *d
	cp.APIKeys = d.APIKeys.clone()
	cp.AIChatAPIKeys = d.AIChatAPIKeys.clone()
	cp.Items = make([]PromptItem, len(d.Items))
	for i, item := range d.Items {
		cp.Items[i] = item.clone()
	}
	return &cp
}

// Config holds store settings.
type Config struct {
	// Dir is the data directory. The store file lives in Dir/prompt-create/.
	Dir string

	// LibraryURL is the remote prompt library list endpoint.
	LibraryURL string

	// LibraryTimeout bounds one library fetch.
	// Default: 12 seconds
	LibraryTimeout time.Duration
}

// DefaultConfig returns sensible default configuration.
func DefaultConfig() Config {
	return Config{
		Dir:            core.DefaultDataDir,
		LibraryURL:     core.DefaultPromptLibraryURL,
		LibraryTimeout: core.DefaultLibraryTimeoutSec * time.Second,
	}
}

// ConfigFromCore derives store settings from the application config.
func ConfigFromCore(cfg *core.Config) Config {
	sc := DefaultConfig()
	if cfg == nil {
		return sc
	}
	sc.Dir = cfg.DataDir
	sc.LibraryURL = cfg.PromptLibraryURL
	if cfg.PromptLibraryTimeout > 0 {
		sc.LibraryTimeout = cfg.PromptLibraryTimeout
	}
	return sc
}

// Store is the local JSON store.
type Store struct {
	path       string
	config     Config
	httpClient *http.Client
	logger     *logging.Logger

	mu    sync.Mutex
	cache *fileData

	syncGroup singleflight.Group

	// now stamps items and sync status. Replaced in tests.
	now func() time.Time
}

// New creates a store. The file is created on first access, not here.
func New(httpClient *http.Client, logger *logging.Logger, config Config) (*Store, error) {
	if logger == nil {
		return nil, fmt.Errorf("store: logger cannot be nil")
	}
	if config.Dir == "" {
		return nil, fmt.Errorf("store: data directory cannot be empty")
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if config.LibraryTimeout <= 0 {
		config.LibraryTimeout = core.DefaultLibraryTimeoutSec * time.Second
	}
	return &Store{
		path:       filepath.Join(config.Dir, FolderName, FileName),
		config:     config,
		httpClient: httpClient,
		logger:     logger.Named("store"),
		now:        time.Now,
	}, nil
}

// Path returns the location of the store file.
func (s *Store) Path() string {
	return s.path
}

// Invalidate drops the cache; the next access re-reads the file.
func (s *Store) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = nil
}

// ForceReload re-reads the file immediately.
func (s *Store) ForceReload() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.loadLocked(true)
	return err
}

// view runs fn against the cached document. fn must not modify it.
func (s *Store) view(fn func(d *fileData)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, err := s.loadLocked(false)
	if err != nil {
		return err
	}
	fn(d)
	return nil
}

// errNoChange lets an update callback skip the write.
var errNoChange = errors.New("store: no change")

// update applies fn to a copy of the document and writes it back.
// Returning errNoChange from fn skips the write without failing.
func (s *Store) update(fn func(d *fileData) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.loadLocked(false)
	if err != nil {
		return err
	}
	next := d.clone()
	if err := fn(next); err != nil {
		if errors.Is(err, errNoChange) {
			return nil
		}
		return err
	}
	return s.writeLocked(next)
}

// loadLocked returns the cached document, reading or creating the file when
// needed. An empty or unparseable file yields an empty document.
func (s *Store) loadLocked(bypassCache bool) (*fileData, error) {
	if s.cache != nil && !bypassCache {
		return s.cache, nil
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		empty := emptyFile(s.now())
		if err := s.writeLocked(empty); err != nil {
			return nil, err
		}
		return s.cache, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: failed to read %s: %w", s.path, err)
	}

	d, err := decodeFile(data, s.now())
	if err != nil {
		s.logger.Warn("store file is not valid JSON, starting empty",
			zap.String("path", s.path),
			zap.Error(err))
		d = emptyFile(s.now())
	}
	s.cache = d
	return d, nil
}

// decodeFile parses the store document. A top-level array is accepted as a
// bare item list.
func decodeFile(data []byte, now time.Time) (*fileData, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return emptyFile(now), nil
	}

	var raw rawFile
	if data[0] == '[' {
		raw.Items = data
	} else if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	d := emptyFile(now)
	if v := float64(raw.Version); !math.IsNaN(v) && v != 0 {
		d.Version = int(v)
	}
	if raw.UpdatedAt != "" {
		d.UpdatedAt = string(raw.UpdatedAt)
	}
	d.SkipRemoteSync = raw.SkipRemoteSync
	d.LibrarySyncFlag = raw.LibrarySyncFlag
	switch SyncStatus(raw.LibrarySyncLastStatus) {
	case SyncSuccess:
		d.LibrarySyncLastStatus = SyncSuccess
	case SyncError:
		d.LibrarySyncLastStatus = SyncError
	}
	d.LibrarySyncLastMessage = string(raw.LibrarySyncLastMessage)
	d.LibrarySyncLastAt = string(raw.LibrarySyncLastAt)
	if raw.APIKeys != nil {
		d.APIKeys = raw.APIKeys
	}
	if raw.AIChatAPIKeys != nil {
		d.AIChatAPIKeys = raw.AIChatAPIKeys
	}
	d.UIThemePreset = string(raw.UIThemePreset)
	d.StartupNoticeConfirmed = raw.StartupNoticeConfirmed
	d.CustomFeatureEnabled = raw.CustomFeatureEnabled

	var rawItems []json.RawMessage
	if items := bytes.TrimSpace(raw.Items); len(items) > 0 && items[0] == '[' {
		if err := json.Unmarshal(items, &rawItems); err != nil {
			return nil, err
		}
	}
	for _, rawItem := range rawItems {
		var in rawPromptItem
		if err := json.Unmarshal(rawItem, &in); err != nil {
			continue
		}
		if item, ok := sanitizeItem(in, now); ok {
			d.Items = append(d.Items, item)
		}
	}
	return d, nil
}

// writeLocked replaces the store file atomically and then updates the cache.
func (s *Store) writeLocked(d *fileData) error {
	d.UpdatedAt = formatTime(s.now())
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("store: failed to encode: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("store: failed to create %s: %w", dir, err)
	}

	tmpFile, err := os.CreateTemp(dir, FileName+".*.tmp")
	if err != nil {
		return fmt.Errorf("store: failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			tmpFile.Close()
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("store: failed to write temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("store: failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("store: failed to replace %s: %w", s.path, err)
	}

	success = true
	s.cache = d
	return nil
}

// StorageInfo summarizes the store file and its library sync state.
type StorageInfo struct {
	Path            string     `json:"path"`
	Total           int        `json:"total"`
	SkipRemoteSync  bool       `json:"skipRemoteSync"`
	LibrarySynced   bool       `json:"librarySyncFlag"`
	LastSyncStatus  SyncStatus `json:"librarySyncLastStatus"`
	LastSyncMessage string     `json:"librarySyncLastMessage"`
	LastSyncAt      string     `json:"librarySyncLastAt"`
}

// Info returns the current storage summary.
func (s *Store) Info() (StorageInfo, error) {
	var info StorageInfo
	err := s.view(func(d *fileData) {
		info = s.infoOf(d)
	})
	return info, err
}

func (s *Store) infoOf(d *fileData) StorageInfo {
	return StorageInfo{
		Path:            s.path,
		Total:           len(d.Items),
		SkipRemoteSync:  bool(d.SkipRemoteSync),
		LibrarySynced:   bool(d.LibrarySyncFlag),
		LastSyncStatus:  d.LibrarySyncLastStatus,
		LastSyncMessage: d.LibrarySyncLastMessage,
		LastSyncAt:      d.LibrarySyncLastAt,
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(isoLayout)
}

// parseTime accepts the UI layout and any RFC 3339 timestamp.
func parseTime(s string) (time.Time, bool) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
