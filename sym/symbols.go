// Package sym defines the glyphs cadence uses to tag log lines and CLI output.
// Glyphs are stable across log fields, command help, and documentation.
package sym

// Primary operators, one per top-level CLI command.
const (
	AM = "≡" // am: configuration and system settings
	AT = "✦" // at: trigger times and the schedule
	SO = "⟶" // so: publishing, the consequence of a fire
	IX = "⨳" // ix: artifact intake (add/import)
	AX = "⋈" // ax: dashboard, analytics and insights
)

// System infrastructure symbols.
const (
	Pulse      = "꩜" // background loops: scheduler and monitor
	PulseOpen  = "✿" // graceful startup
	PulseClose = "❀" // graceful shutdown
	DB         = "⊔" // database/storage layer
)

// PaletteOrder is the display order of the primary operators in help output.
var PaletteOrder = []string{AM, AT, SO, IX, AX}

// SymbolToCommand maps glyph strings to their CLI command.
var SymbolToCommand = map[string]string{
	AM: "am",
	AT: "schedule",
	SO: "post-now",
	IX: "artifact",
	AX: "dashboard",
}

// CommandToSymbol maps CLI commands to their canonical glyph.
var CommandToSymbol = map[string]string{
	"am":        AM,
	"schedule":  AT,
	"post-now":  SO,
	"artifact":  IX,
	"dashboard": AX,
}

// CommandDescriptions provides one-line explanations used in help output.
var CommandDescriptions = map[string]string{
	"am":        "Configuration: show effective settings and their sources",
	"schedule":  "Trigger times: read or replace the daily schedule",
	"post-now":  "Publish: post one artifact immediately",
	"artifact":  "Intake: add, import and inspect artifacts",
	"dashboard": "Analytics: metrics snapshot and insights",
}

// ForCommand returns the glyph for a CLI command, or "" when it has none.
func ForCommand(cmd string) string {
	return CommandToSymbol[cmd]
}
