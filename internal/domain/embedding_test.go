package domain

import (
	"context"
	"errors"
	"testing"
)

type stubEmbedder struct {
	result EmbeddingResult
	err    error
	got    string
}

func (s *stubEmbedder) Embed(_ context.Context, text string) (EmbeddingResult, error) {
	s.got = text
	return s.result, s.err
}

func TestInstructionEmbedder_PrependsInstruction(t *testing.T) {
	inner := &stubEmbedder{result: EmbeddingResult{Embedding: []float32{0.1, 0.2, 0.3}}}
	emb := NewInstructionEmbedder(inner, "query: ")

	result, err := emb.Embed(context.Background(), "moulin rouge")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.got != "query: moulin rouge" {
		t.Errorf("expected prepended text, got %q", inner.got)
	}
	if len(result.Embedding) != 3 {
		t.Errorf("expected 3-element vector, got %d", len(result.Embedding))
	}
}

func TestInstructionEmbedder_ErrorPropagation(t *testing.T) {
	innerErr := errors.New("provider down")
	inner := &stubEmbedder{err: innerErr}
	emb := NewInstructionEmbedder(inner, "query: ")

	_, err := emb.Embed(context.Background(), "hello")
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, innerErr) {
		t.Errorf("expected wrapped inner error, got %v", err)
	}
}

func TestInstructionEmbedder_EmptyInstruction(t *testing.T) {
	inner := &stubEmbedder{result: EmbeddingResult{Embedding: []float32{0.5}}}
	emb := NewInstructionEmbedder(inner, "")

	_, err := emb.Embed(context.Background(), "test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.got != "test" {
		t.Errorf("expected 'test', got %q", inner.got)
	}
}

func TestInvalidArgumentError(t *testing.T) {
	err := NewInvalidArgument("range expects exactly %d values", 2).
		WithNamespace("search").
		WithType("ocrQuality").
		WithValue("[1]")

	want := `invalid argument: range expects exactly 2 values (namespace="search", type="ocrQuality", value="[1]")`
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if !errors.Is(err, ErrInvalidArgument) {
		t.Error("expected errors.Is(err, ErrInvalidArgument)")
	}

	plain := NewInvalidArgument("no filters")
	if plain.Error() != "invalid argument: no filters" {
		t.Errorf("Error() = %q", plain.Error())
	}
}

func TestInvalidArgumentError_WithCopies(t *testing.T) {
	base := NewInvalidArgument("bad")
	withType := base.WithType("language")
	if base.Type != "" {
		t.Error("WithType must not modify the receiver")
	}
	if withType.Type != "language" {
		t.Errorf("Type = %q", withType.Type)
	}
}
