package logger

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() {
		SetOutput(os.Stdout)
		SetLevel("info")
	})
	return &buf
}

func TestSetLevelFilters(t *testing.T) {
	buf := capture(t)

	SetLevel("info")
	Debugf("hidden %d", 1)
	Infof("shown %d", 2)
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown 2")

	SetLevel("debug")
	Debugf("now visible")
	assert.Contains(t, buf.String(), "now visible")

	SetLevel("nonsense") // falls back to info
	Debugf("hidden again")
	assert.NotContains(t, buf.String(), "hidden again")
}

func TestWithCarriesFields(t *testing.T) {
	buf := capture(t)
	With("cycle", "2026-03-02").Info("snapshot written")
	assert.Contains(t, buf.String(), "cycle=2026-03-02")
	assert.Contains(t, buf.String(), "snapshot written")
}

func TestInfoBlockSplitsLines(t *testing.T) {
	buf := capture(t)
	InfoBlock("first line\nsecond line\n")

	out := buf.String()
	assert.Equal(t, 2, strings.Count(out, "level=INFO"))
	assert.Contains(t, out, "first line")
	assert.Contains(t, out, "second line")
}
