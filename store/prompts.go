package store

import (
	"errors"
	"sort"
	"strings"
	"time"
)

// Prompt item types.
const (
	PromptCustom  = 1
	PromptLibrary = 2
)

var (
	// ErrPromptNameEmpty is returned when a prompt name is blank.
	ErrPromptNameEmpty = errors.New("store: prompt name cannot be empty")

	// ErrPromptContentEmpty is returned when prompt content is blank.
	ErrPromptContentEmpty = errors.New("store: prompt content cannot be empty")

	// ErrPromptNotFound is returned when no prompt has the given name.
	ErrPromptNotFound = errors.New("store: prompt not found")
)

// PromptItem is a saved prompt. Type 1 is user-created, type 2 comes from the
// remote library.
type PromptItem struct {
	Type        int      `json:"type"`
	Favorite    Flag     `json:"favorite"`
	Name        string   `json:"name"`
	Content     string   `json:"content"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Tags        []string `json:"tags"`
	CreatedAt   string   `json:"createdAt"`
	UpdatedAt   string   `json:"updatedAt"`
}

func (p PromptItem) clone() PromptItem {
	p.Tags = append([]string(nil), p.Tags...)
	if p.Tags == nil {
		p.Tags = []string{}
	}
	return p
}

type rawPromptItem struct {
	Type        looseNumber `json:"type"`
	Favorite    Flag        `json:"favorite"`
	Name        looseString `json:"name"`
	Content     looseString `json:"content"`
	Description looseString `json:"description"`
	Category    looseString `json:"category"`
	Tags        looseTags   `json:"tags"`
	CreatedAt   looseString `json:"createdAt"`
	UpdatedAt   looseString `json:"updatedAt"`
}

// sanitizeItem applies the item rules: name and content are required, type is
// 2 only when given as 2, and missing timestamps default to updatedAt or now.
func sanitizeItem(in rawPromptItem, now time.Time) (PromptItem, bool) {
	if in.Name == "" || in.Content == "" {
		return PromptItem{}, false
	}

	itemType := PromptCustom
	if in.Type.is(PromptLibrary) {
		itemType = PromptLibrary
	}

	createdAt := string(in.CreatedAt)
	if createdAt == "" {
		createdAt = string(in.UpdatedAt)
	}
	if createdAt == "" {
		createdAt = formatTime(now)
	}
	updatedAt := string(in.UpdatedAt)
	if updatedAt == "" {
		updatedAt = createdAt
	}

	tags := []string(in.Tags)
	if tags == nil {
		tags = []string{}
	}

	return PromptItem{
		Type:        itemType,
		Favorite:    in.Favorite,
		Name:        string(in.Name),
		Content:     string(in.Content),
		Description: string(in.Description),
		Category:    string(in.Category),
		Tags:        tags,
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
	}, true
}

// ListOptions controls how ListPrompts reads the store.
type ListOptions struct {
	// ForceReload re-reads the file instead of using the cache.
	ForceReload bool
}

// ListPrompts returns every prompt: favorites first, then most recently
// updated, then by name.
func (s *Store) ListPrompts(opts ListOptions) ([]PromptItem, error) {
	if opts.ForceReload {
		if err := s.ForceReload(); err != nil {
			return nil, err
		}
	}

	var items []PromptItem
	err := s.view(func(d *fileData) {
		items = make([]PromptItem, len(d.Items))
		for i, item := range d.Items {
			items[i] = item.clone()
		}
	})
	if err != nil {
		return nil, err
	}

	sortPrompts(items)
	return items, nil
}

func sortPrompts(items []PromptItem) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.Favorite != b.Favorite {
			return bool(a.Favorite)
		}
		ta, okA := parseTime(firstNonEmpty(a.UpdatedAt, a.CreatedAt))
		tb, okB := parseTime(firstNonEmpty(b.UpdatedAt, b.CreatedAt))
		if okA && okB && !ta.Equal(tb) {
			return ta.After(tb)
		}
		return a.Name < b.Name
	})
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// SavePromptInput is a user-created prompt.
type SavePromptInput struct {
	Name        string
	Content     string
	Description string
	Category    string
	Tags        []string
}

// SavePrompt upserts a custom prompt by name. Saving over an existing name
// turns it into a custom prompt and keeps its favorite flag and createdAt.
func (s *Store) SavePrompt(in SavePromptInput) (PromptItem, error) {
	name := strings.TrimSpace(in.Name)
	content := strings.TrimSpace(in.Content)
	if name == "" {
		return PromptItem{}, ErrPromptNameEmpty
	}
	if content == "" {
		return PromptItem{}, ErrPromptContentEmpty
	}

	var saved PromptItem
	err := s.update(func(d *fileData) error {
		now := formatTime(s.now())
		saved = PromptItem{
			Type:        PromptCustom,
			Name:        name,
			Content:     content,
			Description: strings.TrimSpace(in.Description),
			Category:    strings.TrimSpace(in.Category),
			Tags:        normalizeTags(in.Tags),
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		for i, prev := range d.Items {
			if prev.Name == name {
				saved.Favorite = prev.Favorite
				saved.CreatedAt = prev.CreatedAt
				d.Items[i] = saved
				return nil
			}
		}
		d.Items = append(d.Items, saved)
		return nil
	})
	if err != nil {
		return PromptItem{}, err
	}
	return saved.clone(), nil
}

// DeletePrompt removes a custom prompt. Library prompts are never deleted;
// the result reports whether anything was removed.
func (s *Store) DeletePrompt(name string) (bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return false, ErrPromptNameEmpty
	}

	deleted := false
	err := s.update(func(d *fileData) error {
		for i, item := range d.Items {
			if item.Type == PromptCustom && item.Name == name {
				d.Items = append(d.Items[:i], d.Items[i+1:]...)
				deleted = true
				return nil
			}
		}
		return errNoChange
	})
	return deleted, err
}

// ToggleFavorite flips the favorite flag of any prompt.
func (s *Store) ToggleFavorite(name string) (PromptItem, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return PromptItem{}, ErrPromptNameEmpty
	}

	var toggled PromptItem
	err := s.update(func(d *fileData) error {
		for i := range d.Items {
			if d.Items[i].Name == name {
				d.Items[i].Favorite = !d.Items[i].Favorite
				d.Items[i].UpdatedAt = formatTime(s.now())
				toggled = d.Items[i].clone()
				return nil
			}
		}
		return ErrPromptNotFound
	})
	return toggled, err
}
