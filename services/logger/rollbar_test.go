package logsvc

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/genzugar/backend/core"
	"github.com/genzugar/backend/core/user"
)

func newObserved(t *testing.T) (*RollbarLogger, *observer.ObservedLogs) {
	t.Helper()
	obs, logs := observer.New(zapcore.DebugLevel)
	l := NewRollbarLogger(zap.New(obs).Sugar(), &core.Config{Env: "TEST", Build: "test"})
	l.Enable(false)
	return l, logs
}

func TestRollbarLogger_mirrorsToZap(t *testing.T) {
	l, logs := newObserved(t)
	usr := user.User{ID: "u1", FullName: "Ayu", Email: "ayu@example.com"}

	l.Warn("ebook upload failed", errors.New("boom"), map[string]interface{}{"ebook_id": "e1"}, usr)

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		e := entries[0]
		assert.Equal(t, zapcore.WarnLevel, e.Level)
		assert.Equal(t, "ebook upload failed", e.Message)
		ctx := e.ContextMap()
		assert.Equal(t, "boom", ctx["error"])
		assert.Equal(t, "e1", ctx["ebook_id"])
		assert.Equal(t, "u1", ctx["user_id"])
	}
}

func TestRollbarLogger_levels(t *testing.T) {
	l, logs := newObserved(t)

	l.Debug("d")
	l.Info("i")
	l.Error("e")

	levels := make([]zapcore.Level, 0)
	for _, e := range logs.All() {
		levels = append(levels, e.Level)
	}
	assert.Equal(t, []zapcore.Level{zapcore.DebugLevel, zapcore.InfoLevel, zapcore.ErrorLevel}, levels)
}

func TestRollbarLogger_prepare(t *testing.T) {
	l, _ := newObserved(t)
	usr := user.User{ID: "u1", FullName: "Ayu"}

	args := l.prepare("msg", []interface{}{usr, "extra"})
	assert.Equal(t, []interface{}{"msg", "extra"}, args)
}
