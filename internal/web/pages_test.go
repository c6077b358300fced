package web

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/medflow/medstock/pkg/logger"
	"github.com/medflow/medstock/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(t *testing.T) http.Handler {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "login.html"), []byte("<form>login</form>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<table>inventory</table>"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "css"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "css", "site.css"), []byte("body{}"), 0o644))

	r := chi.NewRouter()
	r.Get("/api/ping", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	NewPages(dir, logger.NewWithWriter("test", io.Discard)).RegisterRoutes(r)
	return r
}

func TestRoot_RedirectsToLogin(t *testing.T) {
	rr := testutil.ExecuteRequest(newRouter(t), testutil.NewHTTPRequest(http.MethodGet, "/", nil))
	testutil.AssertRedirect(t, rr, http.StatusFound, "/login.html")
}

func TestStatic_ServesFiles(t *testing.T) {
	r := newRouter(t)

	rr := testutil.ExecuteRequest(r, testutil.NewHTTPRequest(http.MethodGet, "/login.html", nil))
	testutil.AssertStatus(t, rr, http.StatusOK)
	assert.Equal(t, "<form>login</form>", rr.Body.String())

	rr = testutil.ExecuteRequest(r, testutil.NewHTTPRequest(http.MethodGet, "/css/site.css", nil))
	testutil.AssertStatus(t, rr, http.StatusOK)
	assert.Contains(t, rr.Header().Get("Content-Type"), "text/css")
}

func TestStatic_ServesIndexByName(t *testing.T) {
	rr := testutil.ExecuteRequest(newRouter(t), testutil.NewHTTPRequest(http.MethodGet, "/index.html?category=PPE", nil))

	testutil.AssertStatus(t, rr, http.StatusOK)
	assert.Empty(t, rr.Header().Get("Location"))
	assert.Equal(t, "<table>inventory</table>", rr.Body.String())
	assert.Contains(t, rr.Header().Get("Content-Type"), "text/html")
}

func TestStatic_NotFound(t *testing.T) {
	r := newRouter(t)

	tests := []string{"/missing.html", "/css/", "/../etc/passwd"}
	for _, p := range tests {
		rr := testutil.ExecuteRequest(r, testutil.NewHTTPRequest(http.MethodGet, p, nil))
		testutil.AssertStatus(t, rr, http.StatusNotFound)
	}
}

func TestStatic_UnknownAPIRouteIsJSON(t *testing.T) {
	rr := testutil.ExecuteRequest(newRouter(t), testutil.NewHTTPRequest(http.MethodGet, "/api/nope", nil))

	testutil.AssertStatus(t, rr, http.StatusNotFound)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
}
