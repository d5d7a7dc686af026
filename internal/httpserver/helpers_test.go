package httpserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/MorganHuegel/endurance-data-serverside/internal/store"
	"github.com/MorganHuegel/endurance-data-serverside/internal/token"
)

type testEnv struct {
	srv    *Server
	store  *store.Store
	tokens *token.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	tokens := token.New(token.Config{Secret: []byte("test-secret"), Expiry: 7 * 24 * time.Hour})
	return &testEnv{
		srv:    New(st, tokens, "http://localhost:3000"),
		store:  st,
		tokens: tokens,
	}
}

// do runs one request through the real router. A non-empty bearer sets
// the Authorization header; body may be a raw string or any JSON value.
func (e *testEnv) do(t *testing.T, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	e.srv.Router().ServeHTTP(rec, req)
	return rec
}

// register creates a user through the API and returns its token.
func (e *testEnv) register(t *testing.T, username, password string) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/register", "", map[string]string{
		"username": username,
		"password": password,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var tok string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tok))
	require.NotEmpty(t, tok)
	return tok
}

// errBody decodes a {message, status} error response.
func errBody(t *testing.T, rec *httptest.ResponseRecorder) apiError {
	t.Helper()
	var e apiError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
	return e
}
