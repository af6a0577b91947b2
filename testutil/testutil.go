// Package testutil holds helpers shared by handler and end-to-end tests
package testutil

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kendall-kelly/labtest-api/store"
	"github.com/stretchr/testify/require"
)

// RequireTestEnvironment ensures that tests are running in the test environment.
// This prevents accidental execution of tests against production or development databases.
func RequireTestEnvironment(t *testing.T) {
	t.Helper()

	if env := os.Getenv("GO_ENV"); env != "test" {
		t.Fatalf("SAFETY CHECK FAILED: Tests must run with GO_ENV=test to prevent data loss. Current GO_ENV=%q.", env)
	}
}

// MustSetTestEnvironment sets GO_ENV to test for the duration of the test
func MustSetTestEnvironment(t *testing.T) {
	t.Helper()
	t.Setenv("GO_ENV", "test")
}

// OpenStore opens a migrated SQLite store in a temporary directory
func OpenStore(t *testing.T) store.Store {
	t.Helper()
	ctx := context.Background()

	s, err := store.Open(ctx, "sqlite://"+filepath.Join(t.TempDir(), "test.db"), "")
	require.NoError(t, err, "Failed to open test store")
	require.NoError(t, s.Migrate(ctx), "Failed to migrate test store")
	t.Cleanup(func() { _ = s.Close(ctx) })
	return s
}

// FormRequest builds a urlencoded form POST
func FormRequest(path string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

// MultipartRequest builds a multipart POST with the given fields and, when
// filename is not empty, one file part under fileField
func MultipartRequest(t *testing.T, path string, fields map[string]string, fileField, filename string, content []byte) *http.Request {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	if filename != "" {
		part, err := writer.CreateFormFile(fileField, filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

// Browser sends requests straight to a handler and carries cookies between
// them the way a browser would
type Browser struct {
	Handler http.Handler
	cookies map[string]*http.Cookie
}

// NewBrowser creates a browser with no cookies
func NewBrowser(h http.Handler) *Browser {
	return &Browser{Handler: h, cookies: map[string]*http.Cookie{}}
}

// Do serves req with the stored cookies attached and records any cookies set in the response
func (b *Browser) Do(req *http.Request) *httptest.ResponseRecorder {
	for _, c := range b.cookies {
		req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	}

	w := httptest.NewRecorder()
	b.Handler.ServeHTTP(w, req)

	for _, c := range w.Result().Cookies() {
		if c.MaxAge < 0 || c.Value == "" {
			delete(b.cookies, c.Name)
			continue
		}
		b.cookies[c.Name] = c
	}
	return w
}

// Get issues a GET request
func (b *Browser) Get(path string) *httptest.ResponseRecorder {
	return b.Do(httptest.NewRequest(http.MethodGet, path, nil))
}

// PostForm issues a urlencoded form POST
func (b *Browser) PostForm(path string, values url.Values) *httptest.ResponseRecorder {
	return b.Do(FormRequest(path, values))
}

// Follow issues a GET to the redirect target of w
func (b *Browser) Follow(w *httptest.ResponseRecorder) *httptest.ResponseRecorder {
	return b.Get(w.Header().Get("Location"))
}

// Cookie returns the stored cookie with the given name
func (b *Browser) Cookie(name string) (*http.Cookie, bool) {
	c, ok := b.cookies[name]
	return c, ok
}

// ClearCookies forgets every cookie
func (b *Browser) ClearCookies() {
	b.cookies = map[string]*http.Cookie{}
}
