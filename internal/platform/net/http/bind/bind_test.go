package bind_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	perr "pixgeo/internal/platform/errors"
	"pixgeo/internal/platform/net/http/bind"

	"github.com/go-chi/chi/v5"
)

type listInput struct {
	Run    string `path:"run" validate:"required,max=8"`
	Limit  int    `query:"limit" validate:"min=0,max=50"`
	Offset uint   `query:"offset"`
	Ignore string
}

func bindVia(t *testing.T, target string) (listInput, error) {
	t.Helper()
	var (
		got listInput
		err error
	)
	m := chi.NewRouter()
	m.Get("/runs/{run}", func(w http.ResponseWriter, r *http.Request) {
		got, err = bind.Request[listInput](r)
	})
	m.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, target, nil))
	return got, err
}

func TestRequest_BindsPathAndQuery(t *testing.T) {
	got, err := bindVia(t, "/runs/r1?limit=10&offset=3&Ignore=x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Run != "r1" || got.Limit != 10 || got.Offset != 3 || got.Ignore != "" {
		t.Fatalf("got %+v", got)
	}
}

func TestRequest_AbsentQueryKeepsZero(t *testing.T) {
	got, err := bindVia(t, "/runs/r1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Limit != 0 || got.Offset != 0 {
		t.Fatalf("got %+v", got)
	}
}

func TestRequest_Errors(t *testing.T) {
	cases := []struct {
		target string
		code   perr.ErrorCode
		field  string
	}{
		{"/runs/r1?limit=abc", perr.ErrorCodeInvalidArgument, "limit"},
		{"/runs/r1?offset=-1", perr.ErrorCodeInvalidArgument, "offset"},
		{"/runs/r1?limit=51", perr.ErrorCodeValidation, "limit"},
		{"/runs/abcdefghij", perr.ErrorCodeValidation, "run"},
	}
	for _, tc := range cases {
		t.Run(tc.target, func(t *testing.T) {
			_, err := bindVia(t, tc.target)
			if !perr.IsCode(err, tc.code) {
				t.Fatalf("code = %v, want %v (err %v)", perr.CodeOf(err), tc.code, err)
			}
			e, ok := perr.As(err)
			if !ok || e.Field() != tc.field {
				t.Fatalf("field mismatch for %v", err)
			}
		})
	}
}

func TestRequest_MaxMessageIsShort(t *testing.T) {
	_, err := bindVia(t, "/runs/r1?limit=99")
	if err == nil {
		t.Fatal("expected error")
	}
	if got := perr.WireFrom(err).Message; got != "limit must be at most 50" {
		t.Fatalf("message = %q", got)
	}
}
