package aria2_test

import (
	"context"
	"testing"

	"github.com/fwojciec/grabfile/aria2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTool_Args(t *testing.T) {
	t.Parallel()

	tool := aria2.NewTool()
	args := tool.Args(
		[]string{"https://a.example.com/f.zip", "https://b.example.com/f.zip"},
		map[string]string{"Referer": "https://host.example.com/", "Cookie": "s=1", "X-Bad": "a\r\nb"},
		"/work/f.zip",
	)

	assert.Equal(t, []string{
		"-x16",
		"-s16",
		"--allow-overwrite=true",
		"--auto-file-renaming=false",
		"--continue=false",
		"--file-allocation=none",
		"--summary-interval=0",
		"--console-log-level=warn",
		"--dir=/work",
		"--out=f.zip",
		"--header=Cookie: s=1",
		"--header=Referer: https://host.example.com/",
		"https://a.example.com/f.zip",
		"https://b.example.com/f.zip",
	}, args)
}

func TestTool_Available(t *testing.T) {
	t.Parallel()

	t.Run("missing binary", func(t *testing.T) {
		t.Parallel()
		tool := &aria2.Tool{Bin: "aria2c-does-not-exist"}
		assert.False(t, tool.Available())
	})

	t.Run("binary on PATH", func(t *testing.T) {
		t.Parallel()
		tool := &aria2.Tool{Bin: "true"}
		assert.True(t, tool.Available())
	})
}

func TestTool_Start(t *testing.T) {
	t.Parallel()

	t.Run("zero exit status", func(t *testing.T) {
		t.Parallel()

		tool := &aria2.Tool{Bin: "true"}
		proc, err := tool.Start(context.Background(), []string{"https://a.example.com/f"}, nil, t.TempDir()+"/f")
		require.NoError(t, err)
		assert.NoError(t, proc.Wait())
	})

	t.Run("non-zero exit status", func(t *testing.T) {
		t.Parallel()

		tool := &aria2.Tool{Bin: "false"}
		proc, err := tool.Start(context.Background(), []string{"https://a.example.com/f"}, nil, t.TempDir()+"/f")
		require.NoError(t, err)
		assert.Error(t, proc.Wait())
	})

	t.Run("requires URLs", func(t *testing.T) {
		t.Parallel()

		_, err := aria2.NewTool().Start(context.Background(), nil, nil, "/tmp/x")
		assert.Error(t, err)
	})
}
