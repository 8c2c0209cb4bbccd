package authctx

import (
	"context"
	"errors"
	"testing"

	"github.com/kbukum/apikit/auth"
)

func TestWithPrincipal_RoundTrip(t *testing.T) {
	p := &auth.Principal{Subject: "alice"}
	ctx := WithPrincipal(context.Background(), p)

	got, ok := Principal(ctx)
	if !ok {
		t.Fatal("expected principal in context")
	}
	if got != p {
		t.Errorf("expected same principal pointer, got %+v", got)
	}
}

func TestWithPrincipal_Nil(t *testing.T) {
	ctx := WithPrincipal(context.Background(), nil)
	if _, ok := Principal(ctx); ok {
		t.Error("expected no principal after storing nil")
	}
}

func TestPrincipalOrError(t *testing.T) {
	_, err := PrincipalOrError(context.Background())
	if !errors.Is(err, ErrNoPrincipal) {
		t.Errorf("expected ErrNoPrincipal, got %v", err)
	}
}

func TestResolve(t *testing.T) {
	stored := &auth.Principal{Subject: "stored"}
	explicit := &auth.Principal{Subject: "explicit"}
	ctx := WithPrincipal(context.Background(), stored)

	if got := Resolve(ctx, explicit); got != explicit {
		t.Errorf("expected explicit principal to win, got %v", got.Subject)
	}
	if got := Resolve(ctx, nil); got != stored {
		t.Errorf("expected stored principal as fallback, got %v", got)
	}
	if got := Resolve(context.Background(), nil); got != nil {
		t.Errorf("expected nil, got %v", got)
	}
}
