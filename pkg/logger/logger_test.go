package logger

import (
	"bytes"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func withStdLog(t *testing.T) *bytes.Buffer {
	var buf bytes.Buffer
	out, flags := log.Writer(), log.Flags()
	log.SetOutput(&buf)
	log.SetFlags(0)
	t.Cleanup(func() {
		log.SetOutput(out)
		log.SetFlags(flags)
	})
	return &buf
}

func withLogger(t *testing.T, l *zap.SugaredLogger) {
	saved := Logger
	Logger = l
	t.Cleanup(func() { Logger = saved })
}

func TestFallback(t *testing.T) {
	withLogger(t, nil)
	buf := withStdLog(t)

	Debug("select %d", 1)
	assert.Empty(t, buf.String(), "debug is dropped before Init")

	Info("starting %s", "up")
	Warn("careful")
	Error("failed: %v", assert.AnError)
	assert.Equal(t, "starting up\ncareful\nfailed: "+assert.AnError.Error()+"\n", buf.String())
}

func TestLevels(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	withLogger(t, zap.New(core).Sugar())

	Debug("hidden")
	Info("shown %d", 2)

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		assert.Equal(t, "shown 2", entries[0].Message)
		assert.Contains(t, entries[0].ContextMap(), "process_id")
	}
}
