package notification

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsroom-core/internal/handler/http/auth"
	"newsroom-core/internal/store/memstore"
)

func TestRegisterDeviceHandler_AddsTokenOnce(t *testing.T) {
	st := memstore.New()
	h := RegisterDeviceHandler{Users: st}

	for range 2 {
		body := bytes.NewBufferString(`{"device_token":"tok-1"}`)
		req := httptest.NewRequest(http.MethodPost, "/api/notifications/register", body)
		req = req.WithContext(auth.ContextWithUser(req.Context(), "user-1", auth.RoleViewer))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	p, err := st.GetUserProfile(t.Context(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"tok-1"}, p.DeviceTokens)
}

func TestRegisterDeviceHandler_EmptyTokenIsBadRequest(t *testing.T) {
	st := memstore.New()
	h := RegisterDeviceHandler{Users: st}

	body := bytes.NewBufferString(`{"device_token":""}`)
	req := httptest.NewRequest(http.MethodPost, "/api/notifications/register", body)
	req = req.WithContext(auth.ContextWithUser(req.Context(), "user-1", auth.RoleViewer))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
