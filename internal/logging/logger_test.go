package logging

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterLoggerFormatsLevels(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger("tas", &buf)

	l.Trace("кадр %d", 1)
	l.Error("сбой %s", "диска")

	out := buf.String()
	assert.Contains(t, out, "[TRACE] [tas] кадр 1")
	assert.Contains(t, out, "[ERROR] [tas] сбой диска")
	assert.Equal(t, "tas", l.Component())
}

func TestLogCorruptFileDumpsHead(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger("storage", &buf)

	LogCorruptFile(l, "run.tas", errors.New("bad magic"), []byte("TAS\x00"))
	out := buf.String()
	assert.Contains(t, out, "Файл run.tas повреждён: bad magic")
	assert.Contains(t, out, "54 41 53 00")
}

func TestHexDumpLimits(t *testing.T) {
	assert.Equal(t, "No data", HexDump(nil))
	dump := HexDump(make([]byte, 1024))
	assert.Equal(t, 16, strings.Count(dump, "\n"), "не больше 256 байт")
}

func TestManagerCreatesFileLoggers(t *testing.T) {
	dir := t.TempDir()
	SetLogDir(dir)
	defer SetLogDir("logs")

	lm := newLoggerManager()
	lm.SetLogLevel(ComponentHook, ERROR, ERROR)

	a, err := lm.GetLogger(ComponentHook)
	require.NoError(t, err)
	b, err := lm.GetLogger(ComponentHook)
	require.NoError(t, err)
	assert.Same(t, a, b)
	assert.Equal(t, []string{ComponentHook}, lm.ListComponents())

	a.Info("не попадёт в файл")
	a.Error("попадёт в файл")
	require.NoError(t, lm.CloseAll())
	assert.Empty(t, lm.ListComponents())

	files, err := filepath.Glob(filepath.Join(dir, "hook_*.log"))
	require.NoError(t, err)
	require.Len(t, files, 1)
	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.NotContains(t, string(data), "не попадёт")
	assert.Contains(t, string(data), "попадёт в файл")
}

func TestSetAllLevelsKeepsComponentOverrides(t *testing.T) {
	SetLogDir(t.TempDir())
	defer SetLogDir("logs")

	lm := newLoggerManager()
	tasLog, err := lm.GetLogger(ComponentTAS)
	require.NoError(t, err)
	lm.SetLogLevel(ComponentStorage, WARN, WARN)
	lm.SetAllLevels(DEBUG, INFO)

	storageLog, err := lm.GetLogger(ComponentStorage)
	require.NoError(t, err)
	hostLog, err := lm.GetLogger(ComponentHost)
	require.NoError(t, err)
	defer lm.CloseAll()

	assert.Equal(t, DEBUG, tasLog.minConsoleLevel)
	assert.Equal(t, INFO, tasLog.minFileLevel)
	assert.Equal(t, WARN, storageLog.minConsoleLevel)
	assert.Equal(t, DEBUG, hostLog.minConsoleLevel)
	assert.Equal(t, []string{ComponentHost, ComponentStorage, ComponentTAS}, lm.ListComponents())
}

func TestParseLevel(t *testing.T) {
	for name, want := range map[string]LogLevel{"trace": TRACE, "Debug": DEBUG, " info ": INFO, "warning": WARN, "ERROR": ERROR} {
		got, ok := ParseLevel(name)
		assert.True(t, ok, name)
		assert.Equal(t, want, got, name)
	}
	_, ok := ParseLevel("verbose")
	assert.False(t, ok)
}
