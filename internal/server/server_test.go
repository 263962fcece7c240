package server

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/groonga-club/grntest/internal/script"
)

func TestStartAndStop_Echo(t *testing.T) {
	proc, err := Start(context.Background(), "cat")
	require.NoError(t, err)

	ch := script.NewChannel(proc.Stdin(), proc.Stdout())
	ch.SetReadTimeout(time.Second)

	require.NoError(t, ch.Write([]byte("status\n")))
	assert.Equal(t, "status\n", string(ch.Drain()))

	assert.NoError(t, proc.Stop(time.Second))
}

func TestStart_MissingBinary(t *testing.T) {
	_, err := Start(context.Background(), "definitely-not-a-real-binary-grntest")
	require.Error(t, err)
}
