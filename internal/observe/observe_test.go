package observe

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestQuietByDefault(t *testing.T) {
	var buf bytes.Buffer
	o := New(&buf, false)

	o.Log().Info().Msg("hidden")
	if buf.Len() != 0 {
		t.Errorf("info leaked without verbose: %q", buf.String())
	}

	o.Log().Warn().Msg("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("warning suppressed: %q", buf.String())
	}
}

func TestVerboseShowsInfo(t *testing.T) {
	var buf bytes.Buffer
	o := New(&buf, true)

	o.Log().Info().Str("key", "value").Msg("visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Errorf("info suppressed in verbose mode: %q", buf.String())
	}
}

func TestStartSpan(t *testing.T) {
	o := New(&bytes.Buffer{}, false)
	ctx, span := o.StartSpan(context.Background(), "op")
	if ctx == nil || span == nil {
		t.Fatal("nil context or span")
	}
	span.End()
}
