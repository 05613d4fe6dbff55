package http_test

import (
	"context"
	"encoding/json"
	stdhttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pixgeo/internal/platform/config"
	perr "pixgeo/internal/platform/errors"
	phttp "pixgeo/internal/platform/net/http"

	"github.com/go-chi/chi/v5"
)

func decode(t *testing.T, rr *httptest.ResponseRecorder) phttp.Envelope {
	t.Helper()
	var env phttp.Envelope
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v body=%q", err, rr.Body.String())
	}
	return env
}

func serve(t *testing.T, mount func(phttp.Router), target string) *httptest.ResponseRecorder {
	t.Helper()
	m := chi.NewRouter()
	mount(phttp.AdaptChi(m))
	rr := httptest.NewRecorder()
	m.ServeHTTP(rr, httptest.NewRequest(stdhttp.MethodGet, target, nil))
	return rr
}

func TestGetJSON_WrapsDataInEnvelope(t *testing.T) {
	rr := serve(t, func(r phttp.Router) {
		phttp.GetJSON(r, "/runs/{run}", func(req *stdhttp.Request) (any, error) {
			return map[string]string{"run": phttp.URLParam(req, "run")}, nil
		})
	}, "/runs/abc")

	if rr.Code != stdhttp.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Fatalf("content type = %q", ct)
	}
	env := decode(t, rr)
	data, _ := env.Data.(map[string]any)
	if data["run"] != "abc" {
		t.Fatalf("data = %#v, want run=abc", env.Data)
	}
	if env.Status != "OK" || env.Code != "" {
		t.Fatalf("unexpected envelope %+v", env)
	}
}

func TestGetJSON_MapsErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
		field  string
	}{
		{"not found", perr.NotFoundf("no such run"), stdhttp.StatusNotFound, "not_found", ""},
		{"invalid arg", perr.WithField(perr.InvalidArgf("bad limit"), "limit"), stdhttp.StatusUnprocessableEntity, "invalid_argument", "limit"},
		{"plain", context.DeadlineExceeded, stdhttp.StatusInternalServerError, "unknown", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := serve(t, func(r phttp.Router) {
				phttp.GetJSON(r, "/x", func(*stdhttp.Request) (any, error) { return nil, tc.err })
			}, "/x")
			if rr.Code != tc.status {
				t.Fatalf("status = %d, want %d", rr.Code, tc.status)
			}
			env := decode(t, rr)
			if env.Code != tc.code || env.Field != tc.field || env.StatusCode != tc.status {
				t.Fatalf("envelope = %+v", env)
			}
		})
	}
}

func TestList_CarriesPage(t *testing.T) {
	rr := serve(t, func(r phttp.Router) {
		phttp.GetJSON(r, "/x", func(*stdhttp.Request) (any, error) {
			return phttp.List([]int{1, 2}, 7, 2, 4), nil
		})
	}, "/x")
	env := decode(t, rr)
	if env.Page == nil || env.Page.Total != 7 || env.Page.Limit != 2 || env.Page.Offset != 4 {
		t.Fatalf("page = %+v", env.Page)
	}
	if items, _ := env.Data.([]any); len(items) != 2 {
		t.Fatalf("data = %#v", env.Data)
	}
}

func TestRouteAndGroupShareMiddleware(t *testing.T) {
	var hits int
	mw := func(next stdhttp.Handler) stdhttp.Handler {
		return stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
			hits++
			next.ServeHTTP(w, r)
		})
	}
	rr := serve(t, func(r phttp.Router) {
		r.Route("/v1", func(v1 phttp.Router) {
			v1.Use(mw)
			v1.Group(func(g phttp.Router) {
				g.Get("/ping", func(w stdhttp.ResponseWriter, _ *stdhttp.Request) { w.WriteHeader(stdhttp.StatusNoContent) })
			})
		})
	}, "/v1/ping")
	if rr.Code != stdhttp.StatusNoContent || hits != 1 {
		t.Fatalf("code=%d hits=%d", rr.Code, hits)
	}
}

func TestMountProfiler_Disabled(t *testing.T) {
	rr := serve(t, func(r phttp.Router) { phttp.MountProfiler(r, "/debug", false) }, "/debug/pprof/")
	if rr.Code != stdhttp.StatusNotFound {
		t.Fatalf("status = %d, want 404 when disabled", rr.Code)
	}
}

func TestServer_RunStopsOnCancel(t *testing.T) {
	t.Setenv("INSPECT_ADDR", "127.0.0.1:0")
	t.Setenv("INSPECT_SHUTDOWN_GRACE", "1s")
	s := phttp.NewServer(config.New())
	if s.Addr() != "127.0.0.1:0" {
		t.Fatalf("addr = %q", s.Addr())
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
