package bot

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klabast/wb-services/dday-bot/internal/app"
)

var fixedNow = time.Date(2025, 5, 30, 12, 0, 0, 0, time.UTC)

func newTestRegistry(t *testing.T, store app.Store) *Registry {
	t.Helper()
	h := NewHandlers(store, nil, func() time.Time { return fixedNow })
	r, err := NewRegistry(h.Commands()...)
	require.NoError(t, err)
	return r
}

func newTestStore(t *testing.T) app.Store {
	t.Helper()
	return app.NewJSONStore(filepath.Join(t.TempDir(), app.DefaultDataFile), false, nil)
}

func add(guild, title, date string) Invocation {
	return Invocation{
		Command: CommandAdd,
		GuildID: guild,
		Options: map[string]string{"title": title, "date": date},
	}
}

func del(guild, title string) Invocation {
	return Invocation{
		Command: CommandDelete,
		GuildID: guild,
		Options: map[string]string{"title": title},
	}
}

func check(guild string) Invocation {
	return Invocation{Command: CommandCheck, GuildID: guild}
}

func TestCommandScenario(t *testing.T) {
	r := newTestRegistry(t, newTestStore(t))
	ctx := context.Background()

	resp := r.Dispatch(ctx, add("42", "Exam", "20250601"))
	assert.Equal(t, "✅ D-day 'Exam' (2025-06-01) was added!", resp.Content)
	assert.False(t, resp.Private)

	resp = r.Dispatch(ctx, check("42"))
	require.NotNil(t, resp.Listing)
	assert.False(t, resp.Private)
	assert.Equal(t, listingTitle, resp.Listing.Title)
	require.Len(t, resp.Listing.Entries, 1)
	assert.Equal(t, "Exam", resp.Listing.Entries[0].Title)
	assert.Equal(t, 2, resp.Listing.Entries[0].Offset)

	resp = r.Dispatch(ctx, add("42", "Exam", "20250701"))
	assert.Equal(t, "❌ A D-day titled 'Exam' already exists. Please use another title.", resp.Content)
	assert.True(t, resp.Private)

	resp = r.Dispatch(ctx, del("42", "Exam"))
	assert.Equal(t, "🗑️ D-day 'Exam' was deleted.", resp.Content)
	assert.False(t, resp.Private)

	resp = r.Dispatch(ctx, del("42", "Exam"))
	assert.Equal(t, "❌ Could not find a D-day titled 'Exam'.", resp.Content)
	assert.True(t, resp.Private)

	resp = r.Dispatch(ctx, check("42"))
	assert.Equal(t, msgEmpty, resp.Content)
	assert.Nil(t, resp.Listing)
	assert.True(t, resp.Private)
}

func TestAddInvalidDate(t *testing.T) {
	store := newTestStore(t)
	r := newTestRegistry(t, store)

	for _, date := range []string{"2025-06-01", "20251301", "tomorrow"} {
		resp := r.Dispatch(context.Background(), add("42", "Exam", date))
		assert.Equal(t, msgInvalidDate, resp.Content, date)
		assert.True(t, resp.Private)
	}

	ledger, err := store.LoadLedger(context.Background(), "42")
	require.NoError(t, err)
	assert.Empty(t, ledger)
}

func TestCheckOrdersByDate(t *testing.T) {
	r := newTestRegistry(t, newTestStore(t))
	ctx := context.Background()

	r.Dispatch(ctx, add("42", "Later", "20251224"))
	r.Dispatch(ctx, add("42", "Today", "20250530"))
	r.Dispatch(ctx, add("42", "Past", "20250101"))

	resp := r.Dispatch(ctx, check("42"))
	require.NotNil(t, resp.Listing)

	var labels []string
	for _, c := range resp.Listing.Entries {
		labels = append(labels, c.Title+" "+c.Label())
	}
	assert.Equal(t, []string{"Past D+149", "Today D-Day!", "Later D-208"}, labels)
}

func TestGuildIsolation(t *testing.T) {
	r := newTestRegistry(t, newTestStore(t))
	ctx := context.Background()

	r.Dispatch(ctx, add("1", "Exam", "20250601"))

	resp := r.Dispatch(ctx, check("2"))
	assert.Equal(t, msgEmpty, resp.Content)

	resp = r.Dispatch(ctx, add("2", "Exam", "20250701"))
	assert.False(t, resp.Private, "same title in another guild is allowed")
}

func TestGuildOnly(t *testing.T) {
	r := newTestRegistry(t, newTestStore(t))
	ctx := context.Background()

	for _, inv := range []Invocation{add("", "Exam", "20250601"), del("", "Exam"), check("")} {
		resp := r.Dispatch(ctx, inv)
		assert.Equal(t, msgGuildOnly, resp.Content, inv.Command)
		assert.True(t, resp.Private)
	}
}

func TestStoreFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), app.DefaultDataFile)
	require.NoError(t, os.WriteFile(path, []byte("{broken"), app.FilePermissions))
	r := newTestRegistry(t, app.NewJSONStore(path, false, nil))
	ctx := context.Background()

	for _, inv := range []Invocation{add("42", "Exam", "20250601"), del("42", "Exam"), check("42")} {
		resp := r.Dispatch(ctx, inv)
		assert.Equal(t, msgStoreFailure, resp.Content, inv.Command)
		assert.True(t, resp.Private)
	}

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{broken", string(data))
}
