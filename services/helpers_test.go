package services

import (
	"path/filepath"
	"testing"

	"flux-parties/models"
	"flux-parties/repo"
	"flux-parties/store"

	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) *repo.Repo {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	return repo.New(st)
}

func testRequest(name string) RegistrationRequest {
	return RegistrationRequest{
		Name:      name,
		Instagram: "@" + name,
		Phone:     "0100000000",
		Method:    models.PaymentInstapay,
		ProofRef:  "proof-" + name,
	}
}
