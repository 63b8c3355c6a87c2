package site

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestSiteHandler(t *testing.T) {
	Convey("Given a registered dashboard", t, func() {
		mux := http.NewServeMux()
		Register(context.Background(), mux)

		Convey("Then / serves the dashboard page", func() {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))

			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Type"), ShouldContainSubstring, "text/html")
			So(w.Body.String(), ShouldContainSubstring, `id="health-score"`)
			So(w.Body.String(), ShouldContainSubstring, "app.js")
		})

		Convey("And the script reads the report, gains and achievements endpoints", func() {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest("GET", "/app.js", nil))

			So(w.Code, ShouldEqual, http.StatusOK)
			body := w.Body.String()
			So(body, ShouldContainSubstring, "/api/report")
			So(body, ShouldContainSubstring, "/api/gains")
			So(body, ShouldContainSubstring, "/api/achievements")
		})

		Convey("And unknown assets are not found", func() {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest("GET", "/some-asset", nil))

			So(w.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("And writes are rejected", func() {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest("POST", "/", nil))

			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}

func TestSiteHandlerWithNilMux(t *testing.T) {
	Convey("Given a nil mux", t, func() {
		Convey("Then registering panics", func() {
			So(func() { Register(context.Background(), nil) }, ShouldPanic)
		})
	})
}
