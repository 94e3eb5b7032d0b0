package dig_container

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/cblms/apps/api/echo"
)

func TestNew_inmem(t *testing.T) {
	t.Setenv("ENV", "TEST")
	t.Setenv("DATABASE_ENGINE", engineInmem)

	c := New()
	err := c.Invoke(func(p DBParam, server *echoapi.Server) {
		defer func() { _ = server.Close() }()
		assert.Nil(t, p.DB, "no postgres handle with the in-memory engine")

		rec := httptest.NewRecorder()
		server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
		assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		rec = httptest.NewRecorder()
		server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/users", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, rec.Body.String())
	})
	require.NoError(t, err)
}
