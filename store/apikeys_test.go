package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyName(t *testing.T) {
	assert.Equal(t, "sk-ab", KeyName("sk-abcdef"))
	assert.Equal(t, "abc", KeyName(" abc "))
	assert.Equal(t, "密钥一二三", KeyName("密钥一二三四五"))
}

func TestSaveKey(t *testing.T) {
	s := newTestStore(t, Config{})

	_, _, err := s.SaveKey(GenerationKeys, "   ")
	assert.ErrorIs(t, err, ErrKeyEmpty)

	first, created, err := s.SaveKey(GenerationKeys, "sk-aaaa1111")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, KeyEntry{Name: "sk-aa", Value: "sk-aaaa1111"}, first)

	second, created, err := s.SaveKey(GenerationKeys, "sk-aaaa2222")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "sk-aa-2", second.Name)

	third, _, err := s.SaveKey(GenerationKeys, "sk-aaaa3333")
	require.NoError(t, err)
	assert.Equal(t, "sk-aa-3", third.Name)

	again, created, err := s.SaveKey(GenerationKeys, " sk-aaaa2222 ")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, second, again)

	keys, err := s.ListKeys(GenerationKeys)
	require.NoError(t, err)
	assert.Equal(t, []KeyEntry{first, second, third}, keys)

	chat, err := s.ListKeys(ChatKeys)
	require.NoError(t, err)
	assert.Empty(t, chat)
}

func TestLatestKey_SurvivesReload(t *testing.T) {
	dir := t.TempDir()
	s := newTestStore(t, Config{Dir: dir})

	_, ok, err := s.LatestKey(GenerationKeys)
	require.NoError(t, err)
	assert.False(t, ok)

	for _, v := range []string{"zzzzz-last-name", "aaaaa-first-name", "mmmmm-saved-last"} {
		_, _, err := s.SaveKey(GenerationKeys, v)
		require.NoError(t, err)
	}

	reopened := newTestStore(t, Config{Dir: dir})
	latest, ok, err := reopened.LatestKey(GenerationKeys)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "mmmmm-saved-last", latest.Value)
}

func TestUpdateKey(t *testing.T) {
	s := newTestStore(t, Config{})
	a, _, err := s.SaveKey(GenerationKeys, "alpha-key")
	require.NoError(t, err)
	b, _, err := s.SaveKey(GenerationKeys, "bravo-key")
	require.NoError(t, err)

	_, err = s.UpdateKey(GenerationKeys, "", "x")
	assert.ErrorIs(t, err, ErrKeyNameEmpty)
	_, err = s.UpdateKey(GenerationKeys, a.Name, "")
	assert.ErrorIs(t, err, ErrKeyEmpty)
	_, err = s.UpdateKey(GenerationKeys, "missing", "charlie-key")
	assert.ErrorIs(t, err, ErrKeyNotFound)

	renamed, err := s.UpdateKey(GenerationKeys, a.Name, "charlie-key")
	require.NoError(t, err)
	assert.Equal(t, KeyEntry{Name: "charl", Value: "charlie-key"}, renamed)

	merged, err := s.UpdateKey(GenerationKeys, renamed.Name, "bravo-key")
	require.NoError(t, err)
	assert.Equal(t, b, merged)

	keys, err := s.ListKeys(GenerationKeys)
	require.NoError(t, err)
	assert.Equal(t, []KeyEntry{b}, keys)
}

func TestDeleteAndClearKeys(t *testing.T) {
	s := newTestStore(t, Config{})
	entry, _, err := s.SaveKey(ChatKeys, "chat-key-1")
	require.NoError(t, err)
	_, _, err = s.SaveKey(ChatKeys, "chat-key-2")
	require.NoError(t, err)
	_, _, err = s.SaveKey(GenerationKeys, "gen-key-1")
	require.NoError(t, err)

	deleted, err := s.DeleteKey(ChatKeys, entry.Name)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = s.DeleteKey(ChatKeys, entry.Name)
	require.NoError(t, err)
	assert.False(t, deleted)

	_, err = s.DeleteKey(ChatKeys, " ")
	assert.ErrorIs(t, err, ErrKeyNameEmpty)

	require.NoError(t, s.ClearKeys(ChatKeys))
	chat, err := s.ListKeys(ChatKeys)
	require.NoError(t, err)
	assert.Empty(t, chat)

	gen, err := s.ListKeys(GenerationKeys)
	require.NoError(t, err)
	assert.Len(t, gen, 1)

	raw := readStoreFile(t, s)
	assert.Equal(t, map[string]any{}, raw["aiChatApiKeys"])
	assert.Equal(t, map[string]any{"gen-k": "gen-key-1"}, raw["apiKeys"])
}
