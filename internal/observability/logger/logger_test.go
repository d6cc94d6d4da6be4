package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		" WARN ":  zapcore.WarnLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"":        zapcore.InfoLevel,
		"bogus":   zapcore.InfoLevel,
	}
	for in, want := range cases {
		assert.Equal(t, want, parseLevel(in), in)
	}
}

func TestFrom_PrefersContextThenFallback(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	ctxLogger := zap.New(core).With(zap.String("src", "ctx"))
	fallback := zap.NewNop()

	From(ToContext(context.Background(), ctxLogger), fallback).Info("hello")
	assert.Equal(t, 1, logs.Len())

	assert.Same(t, fallback, From(context.Background(), fallback))
	assert.NotNil(t, From(nil, nil)) //nolint:staticcheck
}

func TestReplace(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	Replace(zap.New(core))
	Named("x").Debug("msg", Op("load_keys"), Outcome("generated"))

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		assert.Equal(t, "x", entries[0].LoggerName)
		assert.Equal(t, "generated", entries[0].ContextMap()["outcome"])
	}
}
