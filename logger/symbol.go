package logger

import (
	"github.com/teranos/cadence/sym"
	"go.uber.org/zap"
)

// Instance logger wrappers. Components attach their glyph once at
// construction and log through the returned logger:
//
//	s.pulseLog = logger.AddPulseSymbol(log)
//	s.pulseLog.Infow("Scheduler started", "triggers", cfg.Times)
//
// The symbol travels as a structured field, keeping messages clean and
// logs queryable by subsystem.

// AddPulseSymbol wraps a logger with the Pulse symbol (꩜)
func AddPulseSymbol(l *zap.SugaredLogger) *zap.SugaredLogger {
	return l.With(FieldSymbol, sym.Pulse)
}

// AddPulseOpenSymbol wraps a logger with the PulseOpen symbol (✿)
func AddPulseOpenSymbol(l *zap.SugaredLogger) *zap.SugaredLogger {
	return l.With(FieldSymbol, sym.PulseOpen)
}

// AddPulseCloseSymbol wraps a logger with the PulseClose symbol (❀)
func AddPulseCloseSymbol(l *zap.SugaredLogger) *zap.SugaredLogger {
	return l.With(FieldSymbol, sym.PulseClose)
}

// AddDBSymbol wraps a logger with the DB symbol (⊔)
func AddDBSymbol(l *zap.SugaredLogger) *zap.SugaredLogger {
	return l.With(FieldSymbol, sym.DB)
}

// AddPublishSymbol wraps a logger with the publish symbol (⟶)
func AddPublishSymbol(l *zap.SugaredLogger) *zap.SugaredLogger {
	return l.With(FieldSymbol, sym.SO)
}

// AddConfigSymbol wraps a logger with the config symbol (≡)
func AddConfigSymbol(l *zap.SugaredLogger) *zap.SugaredLogger {
	return l.With(FieldSymbol, sym.AM)
}

// WithSymbol returns the global logger with an arbitrary glyph attached.
func WithSymbol(symbol string) *zap.SugaredLogger {
	return Logger.With(FieldSymbol, symbol)
}
