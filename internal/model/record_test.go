package model

import "testing"

func TestPageRecord(t *testing.T) {
	t.Parallel()

	t.Run("char count counts runes", func(t *testing.T) {
		t.Parallel()

		p := &PageRecord{Text: "Ölmeyen"}
		if got := p.CharCount(); got != 7 {
			t.Errorf("expected 7, got %d", got)
		}
	})

	t.Run("empty text has zero chars", func(t *testing.T) {
		t.Parallel()

		p := &PageRecord{}
		if got := p.CharCount(); got != 0 {
			t.Errorf("expected 0, got %d", got)
		}
	})

	t.Run("hash is stable and content dependent", func(t *testing.T) {
		t.Parallel()

		a := &PageRecord{Text: "dragon"}
		b := &PageRecord{Text: "dragon"}
		c := &PageRecord{Text: "wyvern"}

		if a.Hash() != b.Hash() {
			t.Error("expected identical text to hash identically")
		}
		if a.Hash() == c.Hash() {
			t.Error("expected different text to hash differently")
		}
		if len(a.Hash()) != 64 {
			t.Errorf("expected 64 hex chars, got %d", len(a.Hash()))
		}
	})
}
