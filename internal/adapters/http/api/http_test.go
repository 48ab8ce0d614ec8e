package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/okian/pythians/internal/adapters/http/api"
	"github.com/okian/pythians/internal/domain/catalog"
	"github.com/okian/pythians/internal/domain/denorm"
	"github.com/okian/pythians/internal/domain/types"
	"github.com/okian/pythians/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// mockDeps folds fixed year rows and fails on demand.
type mockDeps struct {
	rows     []denorm.Row
	listErr  error
	getErr   error
	readyErr error
	lastID   string
	lastCtx  context.Context
}

func (m *mockDeps) List(ctx context.Context, resource string) ([]*denorm.Record, error) {
	m.lastCtx = ctx
	if m.listErr != nil {
		return nil, m.listErr
	}
	r, _ := catalog.Lookup(resource)
	return denorm.Denormalize(r.Schema, m.rows)
}

func (m *mockDeps) Get(ctx context.Context, resource, rawID string) (*denorm.Record, error) {
	m.lastCtx = ctx
	m.lastID = rawID
	if _, err := types.ParseID("mock.get", rawID); err != nil {
		return nil, err
	}
	if m.getErr != nil {
		return nil, m.getErr
	}
	r, _ := catalog.Lookup(resource)
	return denorm.DenormalizeOne(r.Schema, m.rows)
}

func (m *mockDeps) Ready(context.Context) error { return m.readyErr }

// downDeps fails every call without keeping state, so it can be shared
// across goroutines.
type downDeps struct{}

func (downDeps) List(context.Context, string) ([]*denorm.Record, error) {
	return nil, types.WrapKind("test.list", types.ErrDataSource, errors.New("connection reset"))
}

func (downDeps) Get(context.Context, string, string) (*denorm.Record, error) {
	return nil, types.WrapKind("test.get", types.ErrDataSource, errors.New("connection reset"))
}

func (downDeps) Ready(context.Context) error { return types.NewKind("test.ready", types.ErrDataSource) }

func yearRows() []denorm.Row {
	return []denorm.Row{
		{int64(1), int64(2000), "Summer", "USA", int64(10), "Sprint"},
		{int64(1), int64(2000), "Summer", "USA", int64(11), "Relay"},
	}
}

func newMux(deps api.Dependencies) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps).Register(context.Background(), mux)
	return mux
}

func do(mux *http.ServeMux, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func errorBody(w *httptest.ResponseRecorder) map[string]string {
	var body map[string]string
	So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
	return body
}

func TestScrapeHandler_List(t *testing.T) {
	Convey("Given a registered scrape API", t, func() {
		deps := &mockDeps{rows: yearRows()}
		mux := newMux(deps)

		Convey("When listing years", func() {
			w := do(mux, http.MethodGet, "/scrape/years/")

			Convey("Then it should return the folded array", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldStartWith, "application/json")
				So(strings.TrimSpace(w.Body.String()), ShouldEqual,
					`[{"id":1,"year":2000,"type":"Summer","host":"USA","events":[{"id":10,"name":"Sprint"},{"id":11,"name":"Relay"}]}]`)
			})
		})

		Convey("When the resource has no rows", func() {
			deps.rows = nil
			w := do(mux, http.MethodGet, "/scrape/years/")

			Convey("Then it should return an empty array", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(strings.TrimSpace(w.Body.String()), ShouldEqual, `[]`)
			})
		})

		Convey("When the row source fails", func() {
			deps.listErr = types.WrapKind("test", types.ErrDataSource, errors.New("dial tcp: secret-host refused"))
			w := do(mux, http.MethodGet, "/scrape/countries/")

			Convey("Then it should be a 500 without internals", func() {
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
				body := errorBody(w)
				So(body["code"], ShouldEqual, "internal_error")
				So(w.Body.String(), ShouldNotContainSubstring, "secret-host")
			})
		})

		Convey("When the path has no trailing slash", func() {
			w := do(mux, http.MethodGet, "/scrape/events")

			Convey("Then the mux should redirect to the collection path", func() {
				So(w.Code, ShouldEqual, http.StatusMovedPermanently)
				So(w.Header().Get("Location"), ShouldEqual, "/scrape/events/")
			})
		})

		Convey("When the resource is unknown", func() {
			w := do(mux, http.MethodGet, "/scrape/medals/")

			Convey("Then it should be not found", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

func TestScrapeHandler_Get(t *testing.T) {
	Convey("Given a registered scrape API", t, func() {
		deps := &mockDeps{rows: yearRows()}
		mux := newMux(deps)

		Convey("When getting a year by id", func() {
			w := do(mux, http.MethodGet, "/scrape/years/1")

			Convey("Then it should return one object", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.lastID, ShouldEqual, "1")
				So(strings.TrimSpace(w.Body.String()), ShouldStartWith, `{"id":1,"year":2000`)
			})
		})

		for _, raw := range []string{"abc", "0", "-1", "+1", "%201", "1.5"} {
			raw := raw
			Convey("When the id is "+raw, func() {
				w := do(mux, http.MethodGet, "/scrape/athletes/"+raw)

				Convey("Then it should be a 400 bad_request", func() {
					So(w.Code, ShouldEqual, http.StatusBadRequest)
					body := errorBody(w)
					So(body["code"], ShouldEqual, "bad_request")
					So(body["message"], ShouldEqual, types.ErrValidation.Error())
				})
			})
		}

		Convey("When nothing matches the id", func() {
			deps.rows = nil
			w := do(mux, http.MethodGet, "/scrape/events/42")

			Convey("Then it should be a 404 not_found", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
				body := errorBody(w)
				So(body["code"], ShouldEqual, "not_found")
				So(body["message"], ShouldEqual, "events/42 not found")
			})
		})

		Convey("When the engine reports an integrity error", func() {
			deps.getErr = denorm.ErrInconsistentRow
			w := do(mux, http.MethodGet, "/scrape/years/1")

			Convey("Then it should be a 500", func() {
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
				So(errorBody(w)["code"], ShouldEqual, "internal_error")
			})
		})

		Convey("When the path has an extra segment", func() {
			w := do(mux, http.MethodGet, "/scrape/years/1/events")

			Convey("Then it should be not found without reaching the service", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
				So(deps.lastID, ShouldEqual, "")
			})
		})
	})
}

func TestScrapeHandler_ConcurrentFailures(t *testing.T) {
	Convey("Given a scrape API whose row source is down", t, func() {
		mux := newMux(downDeps{})

		Convey("When many requests fail at the same time", func() {
			const n = 16
			codes := make([]int, n)
			var wg sync.WaitGroup
			for i := range n {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					path := "/scrape/years/"
					if i%2 == 1 {
						path = "/scrape/athletes/7"
					}
					req := httptest.NewRequest(http.MethodGet, path, nil)
					w := httptest.NewRecorder()
					mux.ServeHTTP(w, req)
					codes[i] = w.Code
				}(i)
			}
			wg.Wait()

			Convey("Then every request should get a 500", func() {
				for _, code := range codes {
					So(code, ShouldEqual, http.StatusInternalServerError)
				}
			})
		})
	})
}

func TestScrapeHandler_Methods(t *testing.T) {
	Convey("Given a registered scrape API", t, func() {
		mux := newMux(&mockDeps{rows: yearRows()})

		for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
			method := method
			Convey("When sending "+method, func() {
				w := do(mux, method, "/scrape/years/1")

				Convey("Then it should be 405 with Allow: GET", func() {
					So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
					So(w.Header().Get("Allow"), ShouldEqual, http.MethodGet)
				})
			})
		}
	})
}

func TestRequestID(t *testing.T) {
	Convey("Given a registered scrape API", t, func() {
		deps := &mockDeps{rows: yearRows()}
		mux := newMux(deps)

		Convey("When the client sends a request id", func() {
			req := httptest.NewRequest(http.MethodGet, "/scrape/years/", nil)
			req.Header.Set(api.HeaderRequestID, "client-123")
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			Convey("Then it should be echoed and reach the service context", func() {
				So(w.Header().Get(api.HeaderRequestID), ShouldEqual, "client-123")
				So(logger.RequestID(deps.lastCtx), ShouldEqual, "client-123")
			})
		})

		Convey("When the client sends none", func() {
			w := do(mux, http.MethodGet, "/scrape/years/")

			Convey("Then a UUID should be generated", func() {
				_, err := uuid.Parse(w.Header().Get(api.HeaderRequestID))
				So(err, ShouldBeNil)
			})
		})
	})
}

func TestHealthAndReady(t *testing.T) {
	Convey("Given a registered scrape API", t, func() {
		deps := &mockDeps{}
		mux := newMux(deps)

		Convey("When scraping /healthz after a request", func() {
			do(mux, http.MethodGet, "/scrape/years/")
			w := do(mux, http.MethodGet, "/healthz")

			Convey("Then it should expose the service metrics", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, "pythians_scrape_http_requests_total")
			})
		})

		Convey("When the row source is reachable", func() {
			w := do(mux, http.MethodGet, "/readyz")

			Convey("Then /readyz should be ok", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(strings.TrimSpace(w.Body.String()), ShouldEqual, `{"status":"ok"}`)
			})
		})

		Convey("When the row source is down", func() {
			deps.readyErr = types.NewKind("test", types.ErrDataSource)
			w := do(mux, http.MethodGet, "/readyz")

			Convey("Then /readyz should be unavailable", func() {
				So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
				So(errorBody(w)["code"], ShouldEqual, "unavailable")
			})
		})
	})
}
