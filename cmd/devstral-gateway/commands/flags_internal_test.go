package commands

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"
)

func TestExtractAndTransformFlags_OnlyIncludesExplicitlySetFlags(t *testing.T) {
	var captured map[string]any

	cmd := &cli.Command{
		Name: "serve",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "server--host", Value: "0.0.0.0"},
			&cli.IntFlag{Name: "server--port", Value: 8080},
			&cli.StringFlag{Name: "backend--url"},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			captured = extractAndTransformFlags(cmd)
			return nil
		},
	}

	require.NoError(t, cmd.Run(context.Background(), []string{"serve", "--backend--url", "http://set-explicitly.internal"}))

	assert.Equal(t, "http://set-explicitly.internal", captured["backend.url"])
	_, hostWasSet := captured["server.host"]
	assert.False(t, hostWasSet)
}
