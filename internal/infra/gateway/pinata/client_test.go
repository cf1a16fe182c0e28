package pinata_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kislikjeka/memechain/internal/infra/gateway/pinata"
	"github.com/kislikjeka/memechain/pkg/logger"
)

const testCID = "bafybeigdyrzt5sfp7udm7hu76uh7y26nf3efuylqabf3oclgtqy55fbzdi"

func newClient(jwt, url string) *pinata.Client {
	c := pinata.NewClient(jwt, url, logger.New("test", io.Discard))
	c.SetBackoff(time.Millisecond)
	return c
}

func TestPin_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/pinning/pinFileToIPFS", r.URL.Path)
		assert.Equal(t, "Bearer test-jwt", r.Header.Get("Authorization"))

		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			return
		}
		file, header, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)

		assert.Equal(t, "cat.png", header.Filename)
		assert.Equal(t, "image/png", header.Header.Get("Content-Type"))
		assert.Equal(t, []byte("pixels"), data)

		var meta pinata.Metadata
		assert.NoError(t, json.Unmarshal([]byte(r.FormValue("pinataMetadata")), &meta))
		assert.Equal(t, "cat.png", meta.Name)

		_ = json.NewEncoder(w).Encode(pinata.PinResponse{IpfsHash: testCID, PinSize: 6})
	}))
	defer server.Close()

	cid, err := newClient("test-jwt", server.URL).Pin(context.Background(), "cat.png", "image/png", []byte("pixels"))
	require.NoError(t, err)
	assert.Equal(t, testCID, cid)
}

func TestPin_MissingJWT(t *testing.T) {
	_, err := newClient("", "http://127.0.0.1:1").Pin(context.Background(), "cat.png", "image/png", []byte("pixels"))
	assert.ErrorIs(t, err, pinata.ErrMissingJWT)
}

func TestPin_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid token"}`))
	}))
	defer server.Close()

	_, err := newClient("bad", server.URL).Pin(context.Background(), "cat.png", "image/png", []byte("pixels"))

	var apiErr *pinata.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "invalid token")
}

func TestPin_RetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_ = json.NewEncoder(w).Encode(pinata.PinResponse{IpfsHash: testCID})
	}))
	defer server.Close()

	cid, err := newClient("test-jwt", server.URL).Pin(context.Background(), "cat.png", "image/png", []byte("pixels"))
	require.NoError(t, err)
	assert.Equal(t, testCID, cid)
	assert.Equal(t, int32(3), calls.Load())
}

func TestPin_RateLimitExhausted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := newClient("test-jwt", server.URL).Pin(context.Background(), "cat.png", "image/png", []byte("pixels"))
	assert.True(t, pinata.IsRateLimitError(err))
}

func TestPin_EmptyHash(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"PinSize":6}`))
	}))
	defer server.Close()

	_, err := newClient("test-jwt", server.URL).Pin(context.Background(), "cat.png", "image/png", []byte("pixels"))
	assert.ErrorContains(t, err, "IpfsHash")
}
