package http_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	grabhttp "github.com/fwojciec/grabfile/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProber_Probe(t *testing.T) {
	t.Parallel()

	t.Run("reads size and headers from HEAD", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodHead, r.Method)
			assert.Equal(t, "session=abc", r.Header.Get("Cookie"))
			w.Header().Set("Content-Type", "application/zip")
			w.Header().Set("Content-Disposition", `attachment; filename="a.zip"`)
			w.Header().Set("Content-Length", "4096")
		}))
		defer server.Close()

		res, err := grabhttp.NewProber().Probe(context.Background(), []string{server.URL + "/a.zip"}, map[string]string{"Cookie": "session=abc"})
		require.NoError(t, err)
		assert.Equal(t, server.URL+"/a.zip", res.URL)
		assert.Equal(t, int64(4096), res.Size)
		assert.Equal(t, "application/zip", res.ContentType)
		assert.True(t, res.IsFileLike())
	})

	t.Run("falls back to ranged GET when HEAD is rejected", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodHead {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			assert.Equal(t, "bytes=0-0", r.Header.Get("Range"))
			w.Header().Set("Content-Type", "application/octet-stream")
			w.Header().Set("Content-Range", "bytes 0-0/123456")
			w.WriteHeader(http.StatusPartialContent)
			_, _ = w.Write([]byte("x"))
		}))
		defer server.Close()

		res, err := grabhttp.NewProber().Probe(context.Background(), []string{server.URL + "/f"}, nil)
		require.NoError(t, err)
		assert.Equal(t, http.StatusPartialContent, res.Status)
		assert.Equal(t, int64(123456), res.Size)
	})

	t.Run("first reachable mirror in order wins", func(t *testing.T) {
		t.Parallel()

		dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer dead.Close()
		slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(30 * time.Millisecond)
			w.Header().Set("Content-Length", "10")
		}))
		defer slow.Close()
		fast := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Length", "20")
		}))
		defer fast.Close()

		res, err := grabhttp.NewProber().Probe(context.Background(), []string{dead.URL, slow.URL, fast.URL}, nil)
		require.NoError(t, err)
		assert.Equal(t, slow.URL, res.URL)
		assert.Equal(t, int64(10), res.Size)
	})

	t.Run("unknown size is tolerated", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodHead {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			// Ignores Range and streams without a length.
			w.(http.Flusher).Flush()
			_, _ = w.Write([]byte("streamed body"))
		}))
		defer server.Close()

		res, err := grabhttp.NewProber().Probe(context.Background(), []string{server.URL}, nil)
		require.NoError(t, err)
		assert.Equal(t, int64(-1), res.Size)
	})

	t.Run("returns error when nothing is reachable", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))
		defer server.Close()

		_, err := grabhttp.NewProber(grabhttp.WithTimeout(time.Second)).Probe(context.Background(), []string{server.URL, "http://non-existent-host.invalid/x"}, nil)
		require.Error(t, err)
	})
}
