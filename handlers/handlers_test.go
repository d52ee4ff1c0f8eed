package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"flux-parties/models"
	"flux-parties/repo"
	"flux-parties/services"
	"flux-parties/store"

	"github.com/go-redis/redismock/v9"
	"github.com/labstack/echo/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	echo         *echo.Echo
	repo         *repo.Repo
	registration *RegistrationHandler
	guest        *GuestHandler
	scan         *ScanHandler
	admin        *AdminHandler
	lifecycle    *services.LifecycleService
	regSvc       *services.RegistrationService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	r := repo.New(st)
	guests := services.NewGuestService(r)
	regSvc := services.NewRegistrationService(r)
	lifecycle := services.NewLifecycleService(r, guests, nil)
	adminSvc := services.NewAdminService(r, guests, nil)

	return &fixture{
		echo:         echo.New(),
		repo:         r,
		registration: NewRegistrationHandler(regSvc),
		guest:        NewGuestHandler(guests),
		scan:         NewScanHandler(lifecycle),
		admin:        NewAdminHandler(adminSvc, lifecycle),
		lifecycle:    lifecycle,
		regSvc:       regSvc,
	}
}

func (f *fixture) request(method, target string, body any) (echo.Context, *httptest.ResponseRecorder) {
	var reader *bytes.Reader
	if body != nil {
		encoded, _ := json.Marshal(body)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	return f.echo.NewContext(req, rec), rec
}

func TestRegisterHandler(t *testing.T) {
	f := newFixture(t)

	c, rec := f.request(http.MethodPost, "/api/v1/register", map[string]string{
		"name":           "mona",
		"instagram":      "@mona",
		"phone":          "0100000000",
		"payment_method": "Instapay",
		"proof_ref":      "ref-1",
	})
	require.NoError(t, f.registration.Register(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	var guest models.Guest
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &guest))
	assert.Equal(t, 1, guest.Number)
	assert.NotEmpty(t, guest.QRToken)
}

func TestRegisterHandlerValidation(t *testing.T) {
	f := newFixture(t)

	c, rec := f.request(http.MethodPost, "/api/v1/register", map[string]string{
		"name": "mona",
	})
	require.NoError(t, f.registration.Register(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTermsHandler(t *testing.T) {
	f := newFixture(t)

	c, rec := f.request(http.MethodGet, "/api/v1/terms", nil)
	require.NoError(t, f.registration.Terms(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Terms []string `json:"terms"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, models.Terms, body.Terms)
}

func TestLookupHandler(t *testing.T) {
	f := newFixture(t)
	created := registerGuest(t, f)

	c, rec := f.request(http.MethodGet, "/api/v1/ticket?token="+created.QRToken, nil)
	require.NoError(t, f.guest.Lookup(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	c, rec = f.request(http.MethodGet, "/api/v1/ticket?token=UNKNOWN", nil)
	require.NoError(t, f.guest.Lookup(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	c, rec = f.request(http.MethodGet, "/api/v1/ticket", nil)
	require.NoError(t, f.guest.Lookup(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScanHandlerReturnsResultBody(t *testing.T) {
	f := newFixture(t)
	created := registerGuest(t, f)
	ctx := testContext()
	require.NoError(t, f.lifecycle.Approve(ctx, created.TicketID))

	c, rec := f.request(http.MethodPost, "/api/v1/scan/checkin", map[string]string{"token": created.QREntryToken})
	require.NoError(t, f.scan.CheckIn(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var res models.ScanResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.True(t, res.OK)

	// A duplicate scan still answers 200 with the rejection in the body.
	c, rec = f.request(http.MethodPost, "/api/v1/scan/checkin", map[string]string{"token": created.QREntryToken})
	require.NoError(t, f.scan.CheckIn(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.False(t, res.OK)
	assert.True(t, res.Reuse)
}

func TestApproveHandlerUnknownTicket(t *testing.T) {
	f := newFixture(t)

	c, rec := f.request(http.MethodPost, "/api/v1/admin/approve", map[string]string{"ticket_id": "nope"})
	require.NoError(t, f.admin.Approve(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateGuestHandler(t *testing.T) {
	f := newFixture(t)
	created := registerGuest(t, f)

	created.Name = "Mona Lisa"
	created.Approved = true
	c, rec := f.request(http.MethodPut, "/api/v1/admin/guests", created)
	require.NoError(t, f.admin.UpdateGuest(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	c, rec = f.request(http.MethodGet, "/api/v1/ticket?token="+created.QRToken, nil)
	require.NoError(t, f.guest.Lookup(c))
	var guest models.Guest
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &guest))
	assert.Equal(t, "Mona Lisa", guest.Name)
	assert.True(t, guest.Approved)

	created.TicketID = "nope"
	c, rec = f.request(http.MethodPut, "/api/v1/admin/guests", created)
	require.NoError(t, f.admin.UpdateGuest(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteGuestHandler(t *testing.T) {
	f := newFixture(t)
	created := registerGuest(t, f)

	c, rec := f.request(http.MethodDelete, "/api/v1/admin/guests?ticket_id="+created.TicketID, nil)
	require.NoError(t, f.admin.DeleteGuest(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	c, rec = f.request(http.MethodDelete, "/api/v1/admin/guests", nil)
	require.NoError(t, f.admin.DeleteGuest(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRequireRole(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	r := repo.New(st)

	db, mock := redismock.NewClientMock()
	auth := services.NewAuthService(r, db, "test-secret", time.Hour)

	next := func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "through"})
	}
	adminOnly := RequireRole(auth, models.RoleAdmin)(next)

	e := echo.New()

	// No token at all.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	require.NoError(t, adminOnly(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Valid session but wrong role.
	mock.Regexp().ExpectSet(`session:.+`, `.+`, time.Hour).SetVal("OK")
	token, _, err := auth.Login(testContext(), "Security", "Secure_8749")
	require.NoError(t, err)
	mock.Regexp().ExpectGet(`session:.+`).SetVal("sec-1")

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	require.NoError(t, adminOnly(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Right role passes and the principal is stashed for the handler.
	staff := RequireRole(auth, models.RoleAdmin, models.RoleSecurity)(func(c echo.Context) error {
		principal, ok := c.Get(principalKey).(models.Principal)
		require.True(t, ok)
		assert.Equal(t, models.RoleSecurity, principal.Role)
		return c.JSON(http.StatusOK, map[string]string{"status": "through"})
	})
	mock.Regexp().ExpectGet(`session:.+`).SetVal("sec-1")

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	require.NoError(t, staff(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func testContext() context.Context { return context.Background() }

func registerGuest(t *testing.T, f *fixture) models.Guest {
	t.Helper()
	guest, err := f.regSvc.Register(testContext(), services.RegistrationRequest{
		Name:      "mona",
		Instagram: "@mona",
		Phone:     "0100000000",
		Method:    models.PaymentInstapay,
		ProofRef:  "ref-1",
	})
	require.NoError(t, err)
	return guest
}
