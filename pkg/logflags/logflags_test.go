package logflags

import (
	"bytes"
	"strings"
	"testing"
)

func TestSetupRejectsOutputWithoutLog(t *testing.T) {
	if err := Setup(false, "monitor", ""); err == nil {
		t.Fatal("expected an error")
	}
}

func TestSetupEnablesLayers(t *testing.T) {
	defer func() { monitor, target, debugInfo = false, false, false }()
	if err := Setup(true, "monitor,debuginfo", ""); err != nil {
		t.Fatal(err)
	}
	if !Monitor() || !DebugInfo() {
		t.Error("requested layers not enabled")
	}
	if Target() {
		t.Error("target layer enabled without being requested")
	}
}

func TestDisabledLoggerIsSilent(t *testing.T) {
	var buf bytes.Buffer
	lg := makeLogger(false, nil)
	lg.Logger.Out = &buf
	lg.Debugf("should not appear")
	if buf.Len() != 0 {
		t.Fatalf("disabled logger wrote %q", buf.String())
	}
}

func TestEnabledLoggerWritesFields(t *testing.T) {
	var buf bytes.Buffer
	lg := makeLogger(true, map[string]interface{}{"layer": "monitor"})
	lg.Logger.Out = &buf
	lg.Debugf("hello")
	out := buf.String()
	if !strings.Contains(out, "layer=monitor") || !strings.Contains(out, "hello") {
		t.Fatalf("unexpected log line %q", out)
	}
}
