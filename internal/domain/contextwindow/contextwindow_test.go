package contextwindow

import (
	"reflect"
	"strconv"
	"testing"

	"github.com/kailas-cloud/boardrag/internal/domain"
)

func docs(n int) []domain.ScoredDocument {
	out := make([]domain.ScoredDocument, n)
	for i := range out {
		out[i] = domain.ScoredDocument{
			Document: domain.Document{ID: strconv.Itoa(i), Content: "chunk " + strconv.Itoa(i)},
			Score:    float64(n - i),
		}
	}
	return out
}

func TestAssemble_TruncatesToCap(t *testing.T) {
	text, kept := Assemble(docs(8), 5)

	if len(kept) != 5 {
		t.Fatalf("expected 5 kept, got %d", len(kept))
	}
	for i, d := range kept {
		if d.ID != strconv.Itoa(i) {
			t.Errorf("kept[%d].ID = %q, order not preserved", i, d.ID)
		}
	}
	want := "chunk 0\n\n---\n\nchunk 1\n\n---\n\nchunk 2\n\n---\n\nchunk 3\n\n---\n\nchunk 4"
	if text != want {
		t.Errorf("context text:\ngot:  %q\nwant: %q", text, want)
	}
}

func TestAssemble_FewerThanCap(t *testing.T) {
	text, kept := Assemble(docs(2), 5)
	if len(kept) != 2 {
		t.Fatalf("expected 2 kept, got %d", len(kept))
	}
	if text != "chunk 0\n\n---\n\nchunk 1" {
		t.Errorf("unexpected text %q", text)
	}
}

func TestAssemble_Empty(t *testing.T) {
	text, kept := Assemble(nil, 5)
	if text != "" {
		t.Errorf("expected empty text, got %q", text)
	}
	if len(kept) != 0 {
		t.Errorf("expected no kept docs, got %d", len(kept))
	}
}

func TestAssemble_DefaultCap(t *testing.T) {
	_, kept := Assemble(docs(9), 0)
	if len(kept) != DefaultCap {
		t.Errorf("expected %d kept, got %d", DefaultCap, len(kept))
	}
}

func TestAssemble_Idempotent(t *testing.T) {
	in := docs(7)
	text1, kept1 := Assemble(in, 5)
	text2, kept2 := Assemble(in, 5)

	if text1 != text2 {
		t.Error("context text differs between calls")
	}
	if !reflect.DeepEqual(kept1, kept2) {
		t.Error("kept documents differ between calls")
	}
}

func TestAssemble_DoesNotAliasInput(t *testing.T) {
	in := docs(3)
	_, kept := Assemble(in, 5)
	kept[0].Content = "mutated"
	if in[0].Content != "chunk 0" {
		t.Error("kept slice aliases the input")
	}
}

func TestAssemble_LimitAboveCapIsClamped(t *testing.T) {
	_, kept := Assemble(docs(8), 8)
	if len(kept) != DefaultCap {
		t.Fatalf("expected %d kept, got %d", DefaultCap, len(kept))
	}
}
