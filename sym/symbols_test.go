package sym

import (
	"testing"
	"unicode/utf8"
)

func TestSymbolToCommandAndCommandToSymbolAreBidirectional(t *testing.T) {
	for symbol, cmd := range SymbolToCommand {
		got, ok := CommandToSymbol[cmd]
		if !ok {
			t.Errorf("SymbolToCommand has %q → %q, but CommandToSymbol has no entry for %q", symbol, cmd, cmd)
			continue
		}
		if got != symbol {
			t.Errorf("bidirectional mismatch: SymbolToCommand[%q] = %q, but CommandToSymbol[%q] = %q", symbol, cmd, cmd, got)
		}
	}

	if len(SymbolToCommand) != len(CommandToSymbol) {
		t.Errorf("map size mismatch: %d vs %d", len(SymbolToCommand), len(CommandToSymbol))
	}
}

func TestCommandDescriptionsCoversAllCommands(t *testing.T) {
	for cmd := range CommandToSymbol {
		if _, ok := CommandDescriptions[cmd]; !ok {
			t.Errorf("missing description for command %q", cmd)
		}
	}
}

func TestPaletteOrderContainsEachOperatorOnce(t *testing.T) {
	seen := make(map[string]bool)
	for _, glyph := range PaletteOrder {
		if seen[glyph] {
			t.Errorf("duplicate glyph %q in PaletteOrder", glyph)
		}
		seen[glyph] = true
		if _, ok := SymbolToCommand[glyph]; !ok {
			t.Errorf("PaletteOrder glyph %q has no command", glyph)
		}
	}
}

func TestGlyphsAreSingleRune(t *testing.T) {
	for _, glyph := range []string{AM, AT, SO, IX, AX, Pulse, PulseOpen, PulseClose, DB} {
		if n := utf8.RuneCountInString(glyph); n != 1 {
			t.Errorf("glyph %q has %d runes, want 1", glyph, n)
		}
	}
}

func TestForCommand(t *testing.T) {
	if got := ForCommand("schedule"); got != AT {
		t.Errorf("ForCommand(schedule) = %q, want %q", got, AT)
	}
	if got := ForCommand("nope"); got != "" {
		t.Errorf("ForCommand(nope) = %q, want empty", got)
	}
}
