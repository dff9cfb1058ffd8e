package logging

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	cfg = zap.Config{
		Development: false,
		Encoding:    "console",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "ts",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			FunctionKey:    zapcore.OmitKey,
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.LowercaseLevelEncoder,
			EncodeTime:     zapcore.RFC3339NanoTimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}
	leveler = &levelSetter{
		defaultLevel: zap.InfoLevel,
		levelers:     make(map[string]zap.AtomicLevel),
	}
)

// Leveler adjusts the level of named loggers after they have been built.
type Leveler interface {
	SetLevel(name string, level zapcore.Level)
	GetLevel(name string) zapcore.Level
	SetAll(level zapcore.Level)
}

type levelSetter struct {
	mu           sync.RWMutex
	defaultLevel zapcore.Level
	levelers     map[string]zap.AtomicLevel
}

var _ Leveler = (*levelSetter)(nil)

func GetLeveler() Leveler {
	return leveler
}

func (lw *levelSetter) SetLevel(name string, level zapcore.Level) {
	_ = lw.levelFor(name, level, true)
}

func (lw *levelSetter) GetLevel(name string) zapcore.Level {
	lw.mu.RLock()
	defer lw.mu.RUnlock()

	if l, ok := lw.levelers[name]; ok {
		return l.Level()
	}

	return lw.defaultLevel
}

// SetAll changes every known logger and the level new loggers start at.
func (lw *levelSetter) SetAll(level zapcore.Level) {
	lw.mu.Lock()
	defer lw.mu.Unlock()

	lw.defaultLevel = level
	for _, l := range lw.levelers {
		l.SetLevel(level)
	}
}

func (lw *levelSetter) levelFor(name string, level zapcore.Level, overwrite bool) zap.AtomicLevel {
	lw.mu.Lock()
	defer lw.mu.Unlock()

	l, ok := lw.levelers[name]
	if !ok {
		l = zap.NewAtomicLevelAt(level)
		lw.levelers[name] = l
	} else if overwrite {
		l.SetLevel(level)
	}

	return l
}

// SetLevel parses a textual level ("debug", "info", ...) and applies it to all loggers.
func SetLevel(text string) error {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(text)); err != nil {
		return err
	}
	leveler.SetAll(level)
	return nil
}

func New(name string) *zap.SugaredLogger {
	leveler.mu.RLock()
	def := leveler.defaultLevel
	leveler.mu.RUnlock()

	c := cfg
	c.Level = leveler.levelFor(name, def, false)
	return zap.Must(c.Build(zap.AddStacktrace(zapcore.PanicLevel))).Named(name).Sugar()
}
