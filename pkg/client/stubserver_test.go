package client

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/go-go-golems/ragchat/pkg/config"
	"github.com/go-go-golems/ragchat/pkg/stubserver"
	"github.com/go-go-golems/ragchat/pkg/upload"
	"github.com/stretchr/testify/require"
)

func TestClient_AgainstStubServer(t *testing.T) {
	stub := stubserver.NewServer()
	srv := httptest.NewServer(stub.Echo)
	defer srv.Close()

	s, err := config.DefaultSettings()
	require.NoError(t, err)
	s.Server.BaseURL = srv.URL
	c := NewClient(s.Server)

	ctx := context.Background()
	reply, err := c.Chat(ctx, "tomatoes")
	require.NoError(t, err)
	require.Equal(t, stubserver.NoMatchReply, reply)

	require.NoError(t, c.Ingest(ctx, upload.NewMemoryFile("garden.txt", []byte("Tomatoes need sun.\nBasil likes water.\n"))))
	require.Equal(t, 1, stub.KnowledgeBase().Len())

	reply, err = c.Chat(ctx, "tomatoes")
	require.NoError(t, err)
	require.Contains(t, reply, "Tomatoes need sun.")

	_, err = c.Chat(ctx, "")
	var se *StatusError
	require.ErrorAs(t, err, &se)
	require.Equal(t, 400, se.StatusCode)

	err = c.Ingest(ctx, upload.NewMemoryFile("empty.txt", nil))
	require.ErrorAs(t, err, &se)
	require.Equal(t, 400, se.StatusCode)
}
