package swagger_test

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/rollcall/internal/adapters/http/swagger"
	"github.com/okian/rollcall/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init("error", "text"); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func TestSwaggerRoutes(t *testing.T) {
	convey.Convey("Given a router with the documentation routes", t, func() {
		r := chi.NewRouter()
		swagger.Register(r)

		convey.Convey("The OpenAPI document is served", func() {
			req := httptest.NewRequest(http.MethodGet, "/openapi.yaml", http.NoBody)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			convey.So(w.Header().Get("Content-Type"), convey.ShouldEqual, "application/yaml; charset=utf-8")
			convey.So(w.Body.String(), convey.ShouldContainSubstring, "openapi: 3.0.3")
			convey.So(w.Body.String(), convey.ShouldContainSubstring, "/api/v1/attendance/today")
		})

		convey.Convey("The ReDoc viewer is served", func() {
			req := httptest.NewRequest(http.MethodGet, "/api-docs", http.NoBody)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			convey.So(w.Header().Get("Content-Type"), convey.ShouldEqual, "text/html; charset=utf-8")
			convey.So(w.Body.String(), convey.ShouldContainSubstring, "redoc-container")
			convey.So(w.Body.String(), convey.ShouldContainSubstring, "/openapi.yaml")
		})
	})
}
