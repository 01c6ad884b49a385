package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/healthcard-slim/pkg/domain"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantMessage string
	}{
		{"unauthenticated", domain.ErrUnauthenticated, http.StatusUnauthorized, "authentication required"},
		{"forbidden", domain.ErrForbidden, http.StatusForbidden, "insufficient permissions"},
		{"not found", domain.ErrCardNotFound, http.StatusNotFound, "card not found"},
		{"conflict", domain.ErrHouseholdAlreadyCarded, http.StatusConflict, "household already has a card"},
		{"bad request", domain.ErrVerifyTargetRequired, http.StatusBadRequest, "either householdId or memberId is required"},
		{"unavailable", domain.StoreUnavailable(errors.New("dial tcp: refused")), http.StatusInternalServerError, "store unavailable"},
		{"uncoded", errors.New("pq: secret detail"), http.StatusInternalServerError, "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteError(rec, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var body map[string]string
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, tt.wantMessage, body["error"])
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	tests := []struct {
		name       string
		body       string
		limit      int64
		wantOK     bool
		wantStatus int
	}{
		{name: "valid", body: `{"name":"Basic"}`, wantOK: true},
		{name: "empty", body: ``, wantStatus: http.StatusBadRequest},
		{name: "malformed", body: `{name}`, wantStatus: http.StatusBadRequest},
		{name: "unknown field", body: `{"nam":"Basic"}`, wantStatus: http.StatusBadRequest},
		{name: "too large", body: `{"name":"` + strings.Repeat("x", 64) + `"}`, limit: 16, wantStatus: http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/plans", strings.NewReader(tt.body))
			if tt.limit > 0 {
				req.Body = http.MaxBytesReader(rec, req.Body, tt.limit)
			}

			var p payload
			ok := DecodeJSON(rec, req, &p)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, "Basic", p.Name)
				return
			}
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestGetBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
		wantOK bool
	}{
		{header: "Bearer abc.def", want: "abc.def", wantOK: true},
		{header: "bearer abc", want: "abc", wantOK: true},
		{header: "Basic dXNlcg==", wantOK: false},
		{header: "Bearer ", wantOK: false},
		{header: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/cards", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			got, ok := GetBearerToken(req)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGetAccessTokenFromCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/cards", nil)
	req.AddCookie(&http.Cookie{Name: DefaultTokenCookie, Value: "tok"})

	got, ok := GetAccessTokenFromCookie(req, "")
	assert.True(t, ok)
	assert.Equal(t, "tok", got)

	_, ok = GetAccessTokenFromCookie(req, "session")
	assert.False(t, ok)
}
