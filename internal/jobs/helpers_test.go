package jobs

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/dbfuel/internal/modeling"
	"github.com/roach88/dbfuel/internal/pipeline"
	"github.com/roach88/dbfuel/internal/store"
)

func envFor(s *store.Store) pipeline.Env {
	return pipeline.Env{DB: s, Dialect: s.Dialect()}
}

// attrs builds verbatim attributes for keys.
func attrs(keys ...string) []modeling.Attribute {
	out := make([]modeling.Attribute, len(keys))
	for i, k := range keys {
		out[i] = modeling.Attribute{Key: k}
	}
	return out
}

func pk(key string) *modeling.KeyedColumn {
	return &modeling.KeyedColumn{Key: key}
}

func boolPtr(b bool) *bool {
	return &b
}

// payloadWith creates a payload at now holding rows in register.
func payloadWith(now time.Time, register string, rows ...map[string]any) *pipeline.Payload {
	p := pipeline.NewPayload(now)
	list := make([]any, len(rows))
	for i, row := range rows {
		list[i] = row
	}
	p.Set(register, list)
	return p
}

// perform runs job and returns everything it wrote to the output.
func perform(t *testing.T, job pipeline.Job, payload *pipeline.Payload) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, job.Perform(context.Background(), pipeline.NewOutput(&buf), payload))
	return buf.String()
}

func registerRows(t *testing.T, payload *pipeline.Payload, register string) []map[string]any {
	t.Helper()
	rows, err := payload.Rows(register)
	require.NoError(t, err)
	return rows
}

// timeValue asserts v is a time.Time and returns it.
func timeValue(t *testing.T, v any) time.Time {
	t.Helper()
	ts, ok := v.(time.Time)
	require.True(t, ok, "expected time.Time, got %T (%v)", v, v)
	return ts
}
