package archive

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentwire/internal/transcript"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "archive", "turns.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleSnapshot(id string) transcript.Snapshot {
	return transcript.Snapshot{
		TurnID: id,
		Text:   "some assistant text",
		State:  transcript.StateDone,
		Calls: []transcript.ToolCallRecord{
			{
				ID:     "t1",
				Name:   "write_file",
				Args:   map[string]any{"path": "a.txt"},
				Status: transcript.CallDone,
				Result: map[string]any{"path": "a.txt", "bytes": float64(2)},
			},
		},
	}
}

func TestStore_SaveAndLoad(t *testing.T) {
	store := openTestStore(t)

	require.NoError(t, store.Save(sampleSnapshot("turn-1")))

	loaded, err := store.Load("turn-1")
	require.NoError(t, err)
	assert.Equal(t, "turn-1", loaded.TurnID)
	assert.Equal(t, transcript.StateDone, loaded.State)
	assert.Equal(t, "some assistant text", loaded.Text)
	require.Len(t, loaded.Calls, 1)
	assert.Equal(t, "write_file", loaded.Calls[0].Name)
	assert.Equal(t, transcript.CallDone, loaded.Calls[0].Status)
}

func TestStore_LoadMissing(t *testing.T) {
	store := openTestStore(t)

	_, err := store.Load("no-such-turn")
	assert.ErrorIs(t, err, ErrTurnNotFound)
}

func TestStore_SaveReplaces(t *testing.T) {
	store := openTestStore(t)

	first := sampleSnapshot("turn-1")
	first.State = transcript.StateAborted
	require.NoError(t, store.Save(first))

	second := sampleSnapshot("turn-1")
	require.NoError(t, store.Save(second))

	loaded, err := store.Load("turn-1")
	require.NoError(t, err)
	assert.Equal(t, transcript.StateDone, loaded.State)

	turns, err := store.List(10)
	require.NoError(t, err)
	assert.Len(t, turns, 1, "re-saving a turn must not duplicate rows")
}

func TestStore_ListNewestFirst(t *testing.T) {
	store := openTestStore(t)

	for _, id := range []string{"turn-a", "turn-b", "turn-c"} {
		require.NoError(t, store.Save(sampleSnapshot(id)))
	}

	turns, err := store.List(2)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, 1, turns[0].CallCount)
	assert.Equal(t, len("some assistant text"), turns[0].TextBytes)
	assert.False(t, turns[0].CreatedAt.Before(turns[1].CreatedAt))
}

func TestStore_ReopenPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "turns.db")

	store, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, store.Save(sampleSnapshot("turn-1")))
	require.NoError(t, store.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	loaded, err := reopened.Load("turn-1")
	require.NoError(t, err)
	assert.Equal(t, "turn-1", loaded.TurnID)
}
