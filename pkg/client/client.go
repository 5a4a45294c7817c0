package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/go-go-golems/ragchat/pkg/chat"
	"github.com/go-go-golems/ragchat/pkg/config"
	"github.com/go-go-golems/ragchat/pkg/upload"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type ChatRequest struct {
	Message string `json:"message"`
}

type ChatResponse struct {
	Response string `json:"response"`
}

// StatusError is returned for any non-2xx answer. Callers treat every status
// the same way; the code is kept for logging.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code: %d", e.StatusCode)
}

// Client talks to the remote assistant and ingestion endpoints over HTTP.
type Client struct {
	chatURL    string
	uploadURL  string
	fileField  string
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

func NewClient(s config.ServerSettings, options ...Option) *Client {
	ret := &Client{
		chatURL:    s.ChatURL(),
		uploadURL:  s.UploadURL(),
		fileField:  s.FileField,
		httpClient: &http.Client{},
	}
	if ret.fileField == "" {
		ret.fileField = "file"
	}
	for _, o := range options {
		o(ret)
	}
	return ret
}

var _ chat.Assistant = (*Client)(nil)
var _ upload.Ingestor = (*Client)(nil)

// Chat posts message and returns the assistant reply text.
func (c *Client) Chat(ctx context.Context, message string) (string, error) {
	body, err := json.Marshal(ChatRequest{Message: message})
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal request body")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.chatURL, bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "failed to send request")
	}
	defer func(Body io.ReadCloser) {
		_ = Body.Close()
	}(resp.Body)

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "failed to read response body")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &StatusError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var response ChatResponse
	if err := json.Unmarshal(respBody, &response); err != nil {
		return "", errors.Wrap(err, "failed to parse response body")
	}

	return response.Response, nil
}

// Ingest streams file as a multipart form to the upload endpoint. Cancelling
// ctx aborts the transfer.
func (c *Client) Ingest(ctx context.Context, file upload.File) error {
	rc, err := file.Open()
	if err != nil {
		return errors.Wrapf(err, "could not open %s", file.Name())
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		defer func(rc io.ReadCloser) {
			_ = rc.Close()
		}(rc)
		pw.CloseWithError(writeFilePart(mw, c.fileField, file.Name(), rc))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadURL, pr)
	if err != nil {
		_ = pr.Close()
		return errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		_ = pr.Close()
		return errors.Wrap(err, "failed to send request")
	}
	defer func(Body io.ReadCloser) {
		_ = Body.Close()
	}(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	log.Debug().Str("component", "client").Str("file", file.Name()).Int("status", resp.StatusCode).Msg("file ingested")
	return nil
}

func writeFilePart(mw *multipart.Writer, field string, name string, r io.Reader) error {
	part, err := mw.CreateFormFile(field, name)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, r); err != nil {
		return err
	}
	return mw.Close()
}
