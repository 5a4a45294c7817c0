package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-go-golems/ragchat/pkg/config"
	"github.com/go-go-golems/ragchat/pkg/upload"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	s, err := config.DefaultSettings()
	require.NoError(t, err)
	s.Server.BaseURL = srv.URL
	return NewClient(s.Server)
}

func TestClient_Chat(t *testing.T) {
	var got ChatRequest
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/chat", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(ChatResponse{Response: "forty-two"})
	}))

	reply, err := c.Chat(context.Background(), " what is it? ")
	require.NoError(t, err)
	require.Equal(t, "forty-two", reply)
	require.Equal(t, " what is it? ", got.Message)
}

func TestClient_ChatNon2xxIsError(t *testing.T) {
	for _, code := range []int{http.StatusBadRequest, http.StatusInternalServerError, http.StatusNotFound} {
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(code)
			_, _ = w.Write([]byte(`{"detail":"boom"}`))
		}))

		_, err := c.Chat(context.Background(), "hi")
		var se *StatusError
		require.ErrorAs(t, err, &se)
		require.Equal(t, code, se.StatusCode)
	}
}

func TestClient_ChatMalformedBody(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))

	_, err := c.Chat(context.Background(), "hi")
	require.Error(t, err)
}

func TestClient_IngestSendsMultipartFile(t *testing.T) {
	var (
		gotName    string
		gotContent []byte
	)
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/upload", r.URL.Path)
		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		gotName = hdr.Filename
		gotContent, err = io.ReadAll(f)
		require.NoError(t, err)
		_, _ = w.Write([]byte(`{"message":"ok"}`))
	}))

	err := c.Ingest(context.Background(), upload.NewMemoryFile("report.pdf", []byte("%PDF-1.4")))
	require.NoError(t, err)
	require.Equal(t, "report.pdf", gotName)
	require.Equal(t, []byte("%PDF-1.4"), gotContent)
}

func TestClient_IngestFailureStatus(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusBadRequest)
	}))

	err := c.Ingest(context.Background(), upload.NewMemoryFile("empty.txt", nil))
	var se *StatusError
	require.ErrorAs(t, err, &se)
	require.Equal(t, http.StatusBadRequest, se.StatusCode)
}

func TestClient_IngestCancelledByContext(t *testing.T) {
	started := make(chan struct{})
	done := make(chan struct{})
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		select {
		case <-r.Context().Done():
		case <-done:
		}
	}))
	defer close(done)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- c.Ingest(ctx, upload.NewMemoryFile("slow.txt", []byte("x")))
	}()

	<-started
	cancel()

	select {
	case err := <-errCh:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("ingest did not return after cancellation")
	}
}

func TestClient_IngestMissingLocalFile(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
	}))

	err := c.Ingest(context.Background(), upload.NewLocalFile("/does/not/exist.pdf"))
	require.Error(t, err)
}
