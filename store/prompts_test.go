package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTags(t *testing.T) {
	tests := []struct {
		raw  string
		want []string
	}{
		{"", []string{}},
		{"a", []string{"a"}},
		{" a , b ,a", []string{"a", "b"}},
		{"sky，night\nstars,,", []string{"sky", "night", "stars"}},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseTags(tt.raw))
		})
	}
}

func TestSavePrompt(t *testing.T) {
	s := newTestStore(t, Config{})

	_, err := s.SavePrompt(SavePromptInput{Name: "  ", Content: "x"})
	assert.ErrorIs(t, err, ErrPromptNameEmpty)
	_, err = s.SavePrompt(SavePromptInput{Name: "x", Content: " "})
	assert.ErrorIs(t, err, ErrPromptContentEmpty)

	first, err := s.SavePrompt(SavePromptInput{Name: " sunset ", Content: " warm light ", Tags: []string{"sky", " sky", "evening"}})
	require.NoError(t, err)
	assert.Equal(t, "sunset", first.Name)
	assert.Equal(t, "warm light", first.Content)
	assert.Equal(t, PromptCustom, first.Type)
	assert.Equal(t, []string{"sky", "evening"}, first.Tags)

	_, err = s.ToggleFavorite("sunset")
	require.NoError(t, err)

	second, err := s.SavePrompt(SavePromptInput{Name: "sunset", Content: "cooler light"})
	require.NoError(t, err)
	assert.Equal(t, "cooler light", second.Content)
	assert.True(t, bool(second.Favorite), "favorite survives an upsert")
	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	assert.NotEqual(t, first.UpdatedAt, second.UpdatedAt)

	items, err := s.ListPrompts(ListOptions{ForceReload: true})
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestSavePrompt_ConvertsLibraryItem(t *testing.T) {
	dir := t.TempDir()
	writeStoreFile(t, dir, `{"items": [{"type": 2, "name": "lib", "content": "remote", "favorite": 1, "createdAt": "2023-01-01T00:00:00.000Z"}]}`)
	s := newTestStore(t, Config{Dir: dir})

	saved, err := s.SavePrompt(SavePromptInput{Name: "lib", Content: "mine now"})
	require.NoError(t, err)
	assert.Equal(t, PromptCustom, saved.Type)
	assert.True(t, bool(saved.Favorite))
	assert.Equal(t, "2023-01-01T00:00:00.000Z", saved.CreatedAt)
}

func TestListPrompts_Ordering(t *testing.T) {
	dir := t.TempDir()
	writeStoreFile(t, dir, `{"items": [
		{"name": "old", "content": "x", "updatedAt": "2023-01-01T00:00:00.000Z"},
		{"name": "new", "content": "x", "updatedAt": "2023-06-01T00:00:00.000Z"},
		{"name": "fav-old", "content": "x", "favorite": 1, "updatedAt": "2022-01-01T00:00:00.000Z"},
		{"name": "b-same", "content": "x", "updatedAt": "2023-03-01T00:00:00.000Z"},
		{"name": "a-same", "content": "x", "updatedAt": "2023-03-01T00:00:00.000Z"}
	]}`)
	s := newTestStore(t, Config{Dir: dir})

	items, err := s.ListPrompts(ListOptions{})
	require.NoError(t, err)

	names := make([]string, len(items))
	for i, item := range items {
		names[i] = item.Name
	}
	assert.Equal(t, []string{"fav-old", "new", "a-same", "b-same", "old"}, names)
}

func TestDeletePrompt(t *testing.T) {
	dir := t.TempDir()
	writeStoreFile(t, dir, `{"items": [
		{"type": 1, "name": "mine", "content": "x"},
		{"type": 2, "name": "library", "content": "y"}
	]}`)
	s := newTestStore(t, Config{Dir: dir})

	deleted, err := s.DeletePrompt("library")
	require.NoError(t, err)
	assert.False(t, deleted, "library prompts cannot be deleted")

	deleted, err = s.DeletePrompt("mine")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = s.DeletePrompt("mine")
	require.NoError(t, err)
	assert.False(t, deleted)

	_, err = s.DeletePrompt(" ")
	assert.ErrorIs(t, err, ErrPromptNameEmpty)

	items, err := s.ListPrompts(ListOptions{ForceReload: true})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "library", items[0].Name)
}

func TestToggleFavorite(t *testing.T) {
	dir := t.TempDir()
	writeStoreFile(t, dir, `{"items": [{"type": 2, "name": "library", "content": "y"}]}`)
	s := newTestStore(t, Config{Dir: dir})

	item, err := s.ToggleFavorite("library")
	require.NoError(t, err)
	assert.True(t, bool(item.Favorite))

	item, err = s.ToggleFavorite("library")
	require.NoError(t, err)
	assert.False(t, bool(item.Favorite))

	_, err = s.ToggleFavorite("missing")
	assert.ErrorIs(t, err, ErrPromptNotFound)
}
