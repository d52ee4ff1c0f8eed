package repo

import (
	"path/filepath"
	"testing"

	"flux-parties/models"
	"flux-parties/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) *Repo {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return New(s)
}

func TestAppendAndList(t *testing.T) {
	r := newTestRepo(t)

	require.NoError(t, r.Users.Append(models.User{ID: "u1", Name: "mona"}))
	require.NoError(t, r.Users.Append(models.User{ID: "u2", Name: "tarek"}))

	users, err := r.Users.List()
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "mona", users[0].Name)
	assert.Equal(t, "tarek", users[1].Name)
}

func TestUpdate(t *testing.T) {
	r := newTestRepo(t)
	require.NoError(t, r.Users.Save([]models.User{
		{ID: "u1", Name: "mona"},
		{ID: "u2", Name: "tarek"},
	}))

	matched, err := r.Users.Update(
		func(u models.User) bool { return u.ID == "u2" },
		func(u models.User) models.User { u.Name = "nour"; return u },
	)
	require.NoError(t, err)
	assert.Equal(t, 1, matched)

	users, err := r.Users.List()
	require.NoError(t, err)
	assert.Equal(t, "nour", users[1].Name)

	matched, err = r.Users.Update(
		func(u models.User) bool { return u.ID == "missing" },
		func(u models.User) models.User { return u },
	)
	require.NoError(t, err)
	assert.Zero(t, matched)
}

func TestRemove(t *testing.T) {
	r := newTestRepo(t)
	require.NoError(t, r.Users.Save([]models.User{
		{ID: "u1"}, {ID: "u2"}, {ID: "u3"},
	}))

	removed, err := r.Users.Remove(func(u models.User) bool { return u.ID != "u2" })
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	users, err := r.Users.List()
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "u2", users[0].ID)

	removed, err = r.Users.Remove(func(u models.User) bool { return u.ID == "missing" })
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestSaveNilWritesEmptyArray(t *testing.T) {
	r := newTestRepo(t)
	require.NoError(t, r.Users.Save(nil))

	raw, err := r.Store.ReadTable(store.TableUsers)
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(raw))
}

func TestStageAndCommit(t *testing.T) {
	r := newTestRepo(t)

	batch := store.Batch{}
	require.NoError(t, r.Users.Stage(batch, []models.User{{ID: "u1", Name: "mona"}}))
	require.NoError(t, r.Tickets.Stage(batch, []models.Ticket{{ID: "t1", Number: 1, UserID: "u1"}}))
	require.NoError(t, r.Store.WriteTables(batch))

	users, err := r.Users.List()
	require.NoError(t, err)
	require.Len(t, users, 1)

	tickets, err := r.Tickets.List()
	require.NoError(t, err)
	require.Len(t, tickets, 1)
	assert.Equal(t, "u1", tickets[0].UserID)
}

func TestDecodeRows(t *testing.T) {
	r := newTestRepo(t)
	require.NoError(t, r.Users.Append(models.User{ID: "u1", Name: "mona"}))

	snapshot, err := r.Store.ReadTables(store.TableUsers)
	require.NoError(t, err)

	users, err := DecodeRows[models.User](store.TableUsers, snapshot)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "mona", users[0].Name)

	_, err = DecodeRows[models.User](store.TableTickets, snapshot)
	assert.Error(t, err)
}
