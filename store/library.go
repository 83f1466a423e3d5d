package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"genfill/core"

	"go.uber.org/zap"
)

// Library request paging. The whole library is fetched in one page.
const (
	libraryPage     = 1
	libraryPageSize = 999
)

// SyncOptions controls SyncLibrary.
type SyncOptions struct {
	// Force fetches even when remote sync is disabled.
	Force bool

	// SkipRemoteSync, when set, updates the stored skip preference first.
	SkipRemoteSync *bool

	// UpdateSkipOnly stores the skip preference and returns without fetching.
	UpdateSkipOnly bool
}

type libraryRequest struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

type libraryRow struct {
	Name        looseString `json:"name"`
	Prompt      looseString `json:"prompt"`
	Content     looseString `json:"content"`
	Description looseString `json:"description"`
	Category    looseString `json:"category"`
	Tags        looseTags   `json:"tags"`
}

type libraryResponse struct {
	Code *looseNumber `json:"code"`
	Msg  looseString  `json:"msg"`
	Data *struct {
		List []json.RawMessage `json:"list"`
	} `json:"data"`
	List []json.RawMessage `json:"list"`
}

// SyncLibrary merges the remote prompt library into the store.
//
// When remote sync is disabled and Force is not set, only the sync status is
// updated. Otherwise the library is fetched (concurrent calls share one
// in-flight request), library items are replaced by the fetched ones and
// user-created items are kept. Favorites and creation times of library items
// that survive the refresh are preserved.
//
// A failed fetch is recorded in the sync status and also returned.
func (s *Store) SyncLibrary(ctx context.Context, opts SyncOptions) (StorageInfo, error) {
	if opts.SkipRemoteSync != nil {
		skip := Flag(*opts.SkipRemoteSync)
		err := s.update(func(d *fileData) error {
			if d.SkipRemoteSync == skip {
				return errNoChange
			}
			d.SkipRemoteSync = skip
			return nil
		})
		if err != nil {
			return StorageInfo{}, err
		}
	}
	if opts.UpdateSkipOnly {
		return s.Info()
	}

	var skip bool
	if err := s.view(func(d *fileData) { skip = bool(d.SkipRemoteSync) }); err != nil {
		return StorageInfo{}, err
	}
	if skip && !opts.Force {
		const msg = "skipRemoteSync=1, skipped remote sync"
		s.logger.Info(msg)
		var info StorageInfo
		err := s.update(func(d *fileData) error {
			d.LibrarySyncLastStatus = SyncIdle
			d.LibrarySyncLastMessage = msg
			d.LibrarySyncLastAt = formatTime(s.now())
			info = s.infoOf(d)
			return nil
		})
		return info, err
	}

	v, fetchErr, _ := s.syncGroup.Do("library", func() (any, error) {
		return s.fetchLibrary(ctx)
	})

	var info StorageInfo
	err := s.update(func(d *fileData) error {
		d.LibrarySyncLastAt = formatTime(s.now())
		if fetchErr != nil {
			d.LibrarySyncLastStatus = SyncError
			d.LibrarySyncLastMessage = fetchErr.Error()
			info = s.infoOf(d)
			return nil
		}

		remote := v.([]PromptItem)
		mergeLibrary(d, remote, s.now())
		libraryCount := 0
		for _, item := range d.Items {
			if item.Type == PromptLibrary {
				libraryCount++
			}
		}
		force := 0
		if opts.Force {
			force = 1
		}
		d.LibrarySyncFlag = true
		d.LibrarySyncLastStatus = SyncSuccess
		d.LibrarySyncLastMessage = fmt.Sprintf("remote=%d, mergedType2=%d, force=%d", len(remote), libraryCount, force)
		info = s.infoOf(d)
		return nil
	})
	if err != nil {
		return StorageInfo{}, err
	}

	if fetchErr != nil {
		s.logger.Warn("prompt library sync failed", zap.Error(fetchErr))
		return info, fetchErr
	}
	s.logger.Info("prompt library sync succeeded", zap.String("result", info.LastSyncMessage))
	return info, nil
}

// mergeLibrary keeps every custom item and replaces library items with remote,
// carrying over the favorite flag and createdAt of items seen before.
func mergeLibrary(d *fileData, remote []PromptItem, now time.Time) {
	prev := make(map[string]PromptItem)
	items := make([]PromptItem, 0, len(d.Items)+len(remote))
	for _, item := range d.Items {
		if item.Type == PromptLibrary {
			prev[item.Name] = item
			continue
		}
		items = append(items, item)
	}

	stamp := formatTime(now)
	for _, item := range remote {
		next := item.clone()
		next.Type = PromptLibrary
		if old, ok := prev[item.Name]; ok {
			next.Favorite = old.Favorite || item.Favorite
			if old.CreatedAt != "" {
				next.CreatedAt = old.CreatedAt
			}
		}
		if next.CreatedAt == "" {
			next.CreatedAt = stamp
		}
		next.UpdatedAt = stamp
		items = append(items, next)
	}
	d.Items = items
}

// fetchLibrary downloads and sanitizes the remote library, de-duplicated by name.
func (s *Store) fetchLibrary(ctx context.Context) ([]PromptItem, error) {
	timeout := s.config.LibraryTimeout
	log := s.logger.With(zap.String("url", s.config.LibraryURL))
	log.Info("fetching prompt library", zap.Int("page", libraryPage), zap.Int("page_size", libraryPageSize))

	body, err := json.Marshal(libraryRequest{Page: libraryPage, PageSize: libraryPageSize})
	if err != nil {
		return nil, fmt.Errorf("store: failed to marshal library request: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, s.config.LibraryURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("store: failed to create library request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", core.UserAgent())

	resp, err := s.httpClient.Do(req)
	if err != nil {
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("store: prompt library request timeout (%ds)", int(timeout/time.Second))
		}
		return nil, fmt.Errorf("store: prompt library request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("store: prompt library request failed (HTTP %d)", resp.StatusCode)
	}

	var parsed libraryResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("store: prompt library returned invalid JSON: %w", err)
	}

	code := -1.0
	if parsed.Code != nil {
		code = float64(*parsed.Code)
	}
	if code != 0 {
		if parsed.Msg != "" {
			return nil, fmt.Errorf("store: prompt library: %s", parsed.Msg)
		}
		return nil, fmt.Errorf("store: prompt library API error code: %v", code)
	}

	rows := parsed.List
	if parsed.Data != nil && parsed.Data.List != nil {
		rows = parsed.Data.List
	}

	now := s.now()
	stamp := looseString(formatTime(now))
	seen := make(map[string]struct{}, len(rows))
	items := make([]PromptItem, 0, len(rows))
	for _, raw := range rows {
		var row libraryRow
		if err := json.Unmarshal(raw, &row); err != nil {
			continue
		}
		content := row.Prompt
		if content == "" {
			content = row.Content
		}
		item, ok := sanitizeItem(rawPromptItem{
			Type:        PromptLibrary,
			Name:        row.Name,
			Content:     content,
			Description: row.Description,
			Category:    row.Category,
			Tags:        row.Tags,
			CreatedAt:   stamp,
			UpdatedAt:   stamp,
		}, now)
		if !ok {
			continue
		}
		if _, dup := seen[item.Name]; dup {
			continue
		}
		seen[item.Name] = struct{}{}
		items = append(items, item)
	}

	log.Info("prompt library fetched", zap.Int("remote_count", len(rows)), zap.Int("valid_count", len(items)))
	return items, nil
}
