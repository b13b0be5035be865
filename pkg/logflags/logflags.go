// Package logflags configures the loggers used by the various layers of
// kmon. All loggers are disabled by default and enabled selectively with
// the --log-output flag.
package logflags

import (
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"log"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

var monitor = false
var target = false
var debugInfo = false

var logOut io.WriteCloser

func makeLogger(flag bool, fields logrus.Fields) *logrus.Entry {
	lg := logrus.New()
	lg.Formatter = &textFormatter{}
	lg.Level = logrus.DebugLevel
	if !flag {
		lg.Level = logrus.PanicLevel
	}
	if logOut != nil {
		lg.Out = logOut
	} else {
		lg.Out = os.Stderr
	}
	return lg.WithFields(fields)
}

// Monitor returns true if the monitor session layer should log.
func Monitor() bool {
	return monitor
}

// MonitorLogger returns a logger for the monitor session layer.
func MonitorLogger() *logrus.Entry {
	return makeLogger(monitor, logrus.Fields{"layer": "monitor"})
}

// Target returns true if the target access layer should log.
func Target() bool {
	return target
}

// TargetLogger returns a logger for the target access layer.
func TargetLogger() *logrus.Entry {
	return makeLogger(target, logrus.Fields{"layer": "target"})
}

// DebugInfo returns true if symbol resolution should log.
func DebugInfo() bool {
	return debugInfo
}

// DebugInfoLogger returns a logger for the debug-info resolver.
func DebugInfoLogger() *logrus.Entry {
	return makeLogger(debugInfo, logrus.Fields{"layer": "debuginfo"})
}

var errLogstrWithoutLog = errors.New("--log-output specified without --log")

// Setup sets the enabled log layers based on the contents of logstr.
func Setup(logFlag bool, logstr, logDest string) error {
	if logDest != "" {
		f, err := os.Create(logDest)
		if err != nil {
			return fmt.Errorf("could not create log destination %s: %v", logDest, err)
		}
		logOut = f
	}
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	if !logFlag {
		log.SetOutput(ioutil.Discard)
		if logstr != "" {
			return errLogstrWithoutLog
		}
		return nil
	}
	if logstr == "" {
		logstr = "monitor"
	}
	for _, logcmd := range strings.Split(logstr, ",") {
		switch logcmd {
		case "monitor":
			monitor = true
		case "target":
			target = true
		case "debuginfo":
			debugInfo = true
		}
	}
	return nil
}

// Close closes the file pointed to by the --log-dest flag, if any.
func Close() {
	if logOut != nil {
		logOut.Close()
	}
}
