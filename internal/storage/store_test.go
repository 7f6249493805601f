package storage

import (
	"context"
	"strings"
	"testing"
)

func TestRegisterAndNew(t *testing.T) {
	called := false
	Register("test_kind", func(ctx context.Context, cfg Config) (Store, error) {
		called = true
		return nil, nil
	})

	if _, err := New(context.Background(), Config{Kind: "test_kind"}); err != nil {
		t.Fatalf("New() err=%v", err)
	}
	if !called {
		t.Fatalf("factory not invoked")
	}

	found := false
	for _, k := range Kinds() {
		if k == "test_kind" {
			found = true
		}
	}
	if !found {
		t.Fatalf("Kinds()=%v missing test_kind", Kinds())
	}
}

func TestNew_UnknownKind(t *testing.T) {
	_, err := New(context.Background(), Config{Kind: "no_such_backend"})
	if err == nil || !strings.Contains(err.Error(), "unsupported kind") {
		t.Fatalf("New() err=%v, want unsupported kind", err)
	}
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatalf("New(empty kind) err=nil, want error")
	}
}

func TestRegister_Panics(t *testing.T) {
	tests := []struct {
		name string
		fn   func()
	}{
		{name: "empty_kind", fn: func() { Register("", func(context.Context, Config) (Store, error) { return nil, nil }) }},
		{name: "nil_factory", fn: func() { Register("x_nil", nil) }},
		{name: "duplicate", fn: func() {
			Register("dup_kind", func(context.Context, Config) (Store, error) { return nil, nil })
			Register("dup_kind", func(context.Context, Config) (Store, error) { return nil, nil })
		}},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Fatalf("expected panic")
				}
			}()
			tc.fn()
		})
	}
}
