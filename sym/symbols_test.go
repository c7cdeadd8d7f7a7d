package sym

import (
	"testing"
	"unicode/utf8"
)

func TestSymbolsAreSingleRunes(t *testing.T) {
	for _, glyph := range []string{Cron, DB, Cache, AM, Schedules, Legacy} {
		if n := utf8.RuneCountInString(glyph); n != 1 {
			t.Errorf("glyph %q has %d runes, want 1", glyph, n)
		}
		if Describe(glyph) == "" {
			t.Errorf("glyph %q has no description", glyph)
		}
	}
}

func TestCommandToSymbolUsesKnownGlyphs(t *testing.T) {
	for cmd, glyph := range CommandToSymbol {
		if Describe(glyph) == "" {
			t.Errorf("command %q maps to unknown glyph %q", cmd, glyph)
		}
	}
	if CommandToSymbol["migrate"] != DB {
		t.Errorf("migrate maps to %q, want %q", CommandToSymbol["migrate"], DB)
	}
}
