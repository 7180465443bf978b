package obs

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestAsynqLoggerWritesLevels(t *testing.T) {
	var buf bytes.Buffer
	l := AsynqLogger{Logger: zerolog.New(&buf)}

	l.Warn("retrying task ", 3)
	require.Contains(t, buf.String(), `"level":"warn"`)
	require.Contains(t, buf.String(), `"message":"retrying task 3"`)

	buf.Reset()
	l.Fatal("redis down")
	require.Contains(t, buf.String(), `"level":"error"`)
}
