package stubserver

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/encoding/charmap"
)

const (
	DefaultAddr      = "127.0.0.1:8000"
	DefaultBodyLimit = "32M"
	DefaultFileField = "file"
	// NoMatchReply is returned when nothing in the knowledge base matches.
	NoMatchReply = "I don't have enough information to answer this question."
	searchDepth  = 3
)

type ChatRequest struct {
	Message string `json:"message"`
}

type ChatResponse struct {
	Response string `json:"response"`
}

type UploadResponse struct {
	Message string `json:"message"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Documents int    `json:"documents"`
}

// Server is a development stand-in for the remote assistant and ingestion
// service.
type Server struct {
	Echo      *echo.Echo
	kb        *KnowledgeBase
	fileField string
	bodyLimit string
}

type Option func(*Server)

func WithFileField(field string) Option {
	return func(s *Server) {
		s.fileField = field
	}
}

func WithBodyLimit(limit string) Option {
	return func(s *Server) {
		s.bodyLimit = limit
	}
}

func WithKnowledgeBase(kb *KnowledgeBase) Option {
	return func(s *Server) {
		s.kb = kb
	}
}

func NewServer(options ...Option) *Server {
	s := &Server{
		kb:        NewKnowledgeBase(),
		fileField: DefaultFileField,
		bodyLimit: DefaultBodyLimit,
	}
	for _, o := range options {
		o(s)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = ErrorHandler

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 4 << 10,
	}))
	e.Use(middleware.BodyLimit(s.bodyLimit))
	e.Use(middleware.CORS())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:    true,
		LogStatus: true,
		LogMethod: true,
		LogError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Debug().
				Str("component", "stubserver").
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Err(v.Error).
				Msg("request")
			return nil
		},
	}))

	api := e.Group("/api")
	api.POST("/chat", s.HandleChat)
	api.POST("/upload", s.HandleUpload)
	api.GET("/health", s.HandleHealth)

	s.Echo = e
	return s
}

func (s *Server) KnowledgeBase() *KnowledgeBase {
	return s.kb
}

func (s *Server) HandleChat(c echo.Context) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("Invalid request body")
	}
	if req.Message == "" {
		return NewBadRequestError("No message provided")
	}

	return c.JSON(http.StatusOK, ChatResponse{Response: s.answer(req.Message)})
}

func (s *Server) answer(query string) string {
	chunks := s.kb.Search(query, searchDepth)
	if len(chunks) == 0 {
		return NoMatchReply
	}

	var sb strings.Builder
	sb.WriteString("Here is what I found in your documents:\n\n")
	for _, chunk := range chunks {
		sb.WriteString("- ")
		sb.WriteString(chunk)
		sb.WriteString("\n")
	}
	return sb.String()
}

func (s *Server) HandleUpload(c echo.Context) error {
	fh, err := c.FormFile(s.fileField)
	if err != nil {
		return NewBadRequestError(fmt.Sprintf("Missing form field %q", s.fileField))
	}

	f, err := fh.Open()
	if err != nil {
		return NewInternalError(err.Error())
	}
	defer func() {
		_ = f.Close()
	}()

	content, err := io.ReadAll(f)
	if err != nil {
		return NewInternalError(err.Error())
	}
	if len(content) == 0 {
		return NewBadRequestError("File is empty")
	}

	text, err := decodeText(content)
	if err != nil {
		return NewBadRequestError("Cannot decode file. Please upload a valid text file.")
	}

	doc := s.kb.Add(fh.Filename, text)
	log.Info().
		Str("component", "stubserver").
		Str("file", fh.Filename).
		Str("document_id", doc.ID).
		Int("chunks", len(doc.Chunks)).
		Msg("document added")

	return c.JSON(http.StatusOK, UploadResponse{
		Message: fmt.Sprintf("File '%s' uploaded and added to knowledge base.", fh.Filename),
	})
}

func (s *Server) HandleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok", Documents: s.kb.Len()})
}

// decodeText reads content as UTF-8, falling back to Latin-1.
func decodeText(content []byte) (string, error) {
	if utf8.Valid(content) {
		return string(content), nil
	}
	b, err := charmap.ISO8859_1.NewDecoder().Bytes(content)
	if err != nil {
		return "", errors.Wrap(err, "could not decode as latin-1")
	}
	return string(b), nil
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("component", "stubserver").Str("addr", addr).Msg("listening")
		errCh <- s.Echo.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Echo.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "could not shut down server")
	}
	return nil
}
