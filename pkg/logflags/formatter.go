package logflags

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
)

// textFormatter is a compact alternative to logrus.TextFormatter that
// always emits the layer fields in a stable order.
type textFormatter struct{}

func (f *textFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var b *bytes.Buffer
	if entry.Buffer != nil {
		b = entry.Buffer
	} else {
		b = &bytes.Buffer{}
	}

	b.WriteString(entry.Time.Format("2006-01-02T15:04:05"))
	fmt.Fprintf(b, " %s ", entry.Level.String())

	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(b, "%s=%v ", k, entry.Data[k])
	}

	b.WriteString(entry.Message)
	b.WriteByte('\n')
	return b.Bytes(), nil
}
