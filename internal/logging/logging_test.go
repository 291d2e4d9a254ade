package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestSetLogLevel(t *testing.T) {
	t.Cleanup(func() { Log.SetLevel(logrus.InfoLevel) })

	cases := map[string]logrus.Level{
		"debug": logrus.DebugLevel,
		"INFO":  logrus.InfoLevel,
		"warn":  logrus.WarnLevel,
		"error": logrus.ErrorLevel,
	}
	for name, want := range cases {
		if err := SetLogLevel(name); err != nil {
			t.Fatalf("SetLogLevel(%q) returned error: %v", name, err)
		}
		if Log.GetLevel() != want {
			t.Fatalf("SetLogLevel(%q): expected %s, got %s", name, want, Log.GetLevel())
		}
	}

	if err := SetLogLevel("chatty"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestForTagsComponent(t *testing.T) {
	var buf bytes.Buffer
	out := Log.Out
	Log.SetOutput(&buf)
	t.Cleanup(func() { Log.SetOutput(out) })

	For("cache").Info("hello")
	if !strings.Contains(buf.String(), "component=cache") {
		t.Fatalf("expected component field in %q", buf.String())
	}
}
