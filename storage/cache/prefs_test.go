package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/kampus/core/prefs"
)

func TestMemoryPrefsStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryPrefsStore()

	_, found, err := store.Get(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, found)

	saved := prefs.Preferences{AnalyticsOptIn: true, Theme: prefs.ThemeDark, Notifications: []string{prefs.NotifyMatches}}
	require.NoError(t, store.Set(ctx, "u1", saved))

	got, found, err := store.Get(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, saved, got)

	t.Run("corrupt entry", func(t *testing.T) {
		store.data["u2"] = []byte("{")
		_, _, err := store.Get(ctx, "u2")
		assert.Error(t, err)
	})
}
