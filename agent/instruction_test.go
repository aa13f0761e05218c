package agent

import (
	"context"
	"errors"
	"testing"
)

type mockProvider struct {
	text string
	err  error
}

func (m mockProvider) Instruction(context.Context) (string, error) { return m.text, m.err }

func TestInstruction_Static(t *testing.T) {
	inst := NewInstructionFromText("static instruction")
	if !inst.IsStatic() {
		t.Fatalf("expected static instruction")
	}

	got, err := inst.Resolve(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got != "static instruction" {
		t.Fatalf("expected 'static instruction', got %q", got)
	}
}

func TestInstruction_NewInstructionFromFunc(t *testing.T) {
	inst := NewInstructionFromFunc(func(context.Context) (string, error) { return "dynamic via func", nil })
	if inst.IsStatic() {
		t.Fatalf("expected dynamic instruction")
	}

	got, err := inst.Resolve(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got != "dynamic via func" {
		t.Fatalf("expected 'dynamic via func', got %q", got)
	}
}

func TestInstruction_ProviderError(t *testing.T) {
	inst := NewInstructionFromProvider(mockProvider{err: errors.New("boom")})

	if _, err := inst.Resolve(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
}
