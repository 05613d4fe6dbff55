package repokit

import (
	"context"
	"errors"
	"testing"

	"pixgeo/internal/platform/testkit"
)

type probe struct{ q Queryer }

func TestMustBind(t *testing.T) {
	b := BindFunc[probe](func(q Queryer) probe { return probe{q: q} })
	testkit.MustPanic(t, func() { MustBind[probe](b, nil) })

	var q fakeQ
	if got := MustBind[probe](b, q); got.q != Queryer(q) {
		t.Fatalf("queryer not threaded through")
	}
}

type fakeQ struct{ Queryer }

type guardFn func(context.Context) error

func (g guardFn) Guard(ctx context.Context) error { return g(ctx) }

func TestMustGuard(t *testing.T) {
	var sawDeadline bool
	ok := guardFn(func(ctx context.Context) error {
		_, sawDeadline = ctx.Deadline()
		return nil
	})
	testkit.MustNotPanic(t, func() { MustGuard(context.Background(), ok) })
	if !sawDeadline {
		t.Fatal("MustGuard should apply a default deadline")
	}

	bad := guardFn(func(context.Context) error { return errors.New("down") })
	testkit.MustPanic(t, func() { MustGuard(context.Background(), bad) })
}
