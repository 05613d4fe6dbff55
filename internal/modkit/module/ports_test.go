package module

import (
	"strings"
	"testing"

	phttp "pixgeo/internal/platform/net/http"
)

type FooPort interface{ Foo() int }

type fooImpl struct{ v int }

func (f fooImpl) Foo() int { return f.v }

type fakeModule struct {
	name  string
	ports any
}

func (m fakeModule) Name() string             { return m.name }
func (m fakeModule) Ports() any               { return m.ports }
func (m fakeModule) MountRoutes(phttp.Router) {}

func TestPortsOf(t *testing.T) {
	type bundle struct {
		Foo FooPort
		Bar int
	}
	type hidden struct {
		foo FooPort
	}
	cases := []struct {
		name  string
		ports any
		want  int
		ok    bool
	}{
		{"nil", nil, 0, false},
		{"direct", FooPort(fooImpl{v: 42}), 42, true},
		{"struct field", bundle{Foo: fooImpl{v: 7}}, 7, true},
		{"pointer bundle", &bundle{Foo: fooImpl{v: 9}}, 9, true},
		{"unexported field", hidden{foo: fooImpl{v: 1}}, 0, false},
		{"scalar", 3, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := PortsOf[FooPort](fakeModule{ports: tc.ports})
			if ok != tc.ok {
				t.Fatalf("ok = %v, want %v", ok, tc.ok)
			}
			if ok && got.Foo() != tc.want {
				t.Fatalf("Foo = %d, want %d", got.Foo(), tc.want)
			}
		})
	}
}

func TestMustPortsOf_PanicsWithModuleName(t *testing.T) {
	defer func() {
		msg, _ := recover().(string)
		if !strings.Contains(msg, "catalog") {
			t.Fatalf("panic should name the module, got %q", msg)
		}
	}()
	_ = MustPortsOf[FooPort](fakeModule{name: "catalog"})
}
