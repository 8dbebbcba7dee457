package httpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jinford/conflux/internal/core/ask"
	"github.com/jinford/conflux/internal/core/ingestion"
	"github.com/jinford/conflux/internal/infra/pdf"
)

const (
	// DefaultShutdownTimeout はグレースフルシャットダウンの猶予時間
	DefaultShutdownTimeout = 10 * time.Second
)

// Server はRAGパイプラインをHTTPで公開するサーバ
type Server struct {
	engine    *gin.Engine
	ingestion *ingestion.IngestionService
	ask       *ask.AskService
	extractor *pdf.Extractor
	uploadDir string
	logger    *slog.Logger
}

// ServerOption はServer構築時のオプション
type ServerOption func(*Server)

// WithUploadDir はPDFの一時保存先を指定する
func WithUploadDir(dir string) ServerOption {
	return func(s *Server) {
		s.uploadDir = dir
	}
}

// WithServerLogger はロガーを差し替える
func WithServerLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer は新しいServerを作成する
func NewServer(
	ingestionSvc *ingestion.IngestionService,
	askSvc *ask.AskService,
	extractor *pdf.Extractor,
	opts ...ServerOption,
) (*Server, error) {
	if ingestionSvc == nil {
		return nil, fmt.Errorf("ingestion service is required")
	}
	if askSvc == nil {
		return nil, fmt.Errorf("ask service is required")
	}
	if extractor == nil {
		return nil, fmt.Errorf("pdf extractor is required")
	}

	s := &Server{
		ingestion: ingestionSvc,
		ask:       askSvc,
		extractor: extractor,
		uploadDir: os.TempDir(),
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	s.engine = engine
	s.registerRoutes()

	return s, nil
}

// Handler はルーティング済みのhttp.Handlerを返す
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run はサーバを起動し、ctxのキャンセルでグレースフルに停止する
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: s.engine,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()

	s.logger.Info("shutting down http server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown failed: %w", err)
	}
	return <-errCh
}

func (s *Server) registerRoutes() {
	s.engine.GET("/healthz", s.handleHealth)
	s.engine.POST("/upload_pdf", s.handleUploadPDF)
	s.engine.POST("/upload_store", s.handleUploadStore)
	s.engine.POST("/query", s.handleQuery)
	s.engine.GET("/sources", s.handleListSources)
	s.engine.DELETE("/sources/:source", s.handleDeleteSource)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type uploadResponse struct {
	Message string `json:"message"`
	Chunks  int    `json:"chunks"`
}

func (s *Server) handleUploadPDF(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}

	filename := filepath.Base(file.Filename)
	if !strings.HasSuffix(strings.ToLower(filename), ".pdf") {
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": "only PDF files are supported"})
		return
	}

	tempPath := filepath.Join(s.uploadDir, filename)
	if err := c.SaveUploadedFile(file, tempPath); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("failed to store PDF: %v", err)})
		return
	}
	defer func() {
		if err := os.Remove(tempPath); err != nil {
			s.logger.Warn("failed to remove temp file", "path", tempPath, "error", err)
		}
	}()

	text, err := s.extractor.ExtractText(tempPath)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("failed to ingest PDF: %v", err)})
		return
	}

	chunks, err := s.ingestion.Ingest(c.Request.Context(), ingestion.IngestParams{
		Text:   text,
		Source: filename,
	})
	if err != nil {
		s.logger.Error("pdf ingestion failed", "filename", filename, "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("failed to ingest PDF: %v", err)})
		return
	}

	c.JSON(http.StatusOK, uploadResponse{
		Message: fmt.Sprintf("Stored %d chunks successfully", chunks),
		Chunks:  chunks,
	})
}

type storeResponse struct {
	Message  string `json:"message"`
	Filename string `json:"filename"`
}

func (s *Server) handleUploadStore(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}

	filename := filepath.Base(file.Filename)
	if !strings.HasSuffix(strings.ToLower(filename), ".pdf") {
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": "only PDF files are supported"})
		return
	}

	if err := c.SaveUploadedFile(file, filepath.Join(s.uploadDir, filename)); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("failed to store PDF: %v", err)})
		return
	}

	c.JSON(http.StatusOK, storeResponse{
		Message:  "File stored successfully",
		Filename: filename,
	})
}

type queryRequest struct {
	Question string  `json:"question" binding:"required"`
	Limit    int     `json:"limit"`
	Source   *string `json:"source"`
}

type queryResponse struct {
	Answer          string `json:"answer"`
	RetrievedChunks int    `json:"retrieved_chunks"`
}

func (s *Server) handleQuery(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := s.ask.Ask(c.Request.Context(), ask.AskParams{
		Question: req.Question,
		Limit:    req.Limit,
		Source:   req.Source,
	})
	if err != nil {
		s.logger.Error("query failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, queryResponse{
		Answer:          result.Answer,
		RetrievedChunks: result.RetrievedChunks,
	})
}

type sourceEntry struct {
	Source        string    `json:"source"`
	PointCount    int       `json:"point_count"`
	LastIndexedAt time.Time `json:"last_indexed_at"`
}

func (s *Server) handleListSources(c *gin.Context) {
	stats, err := s.ingestion.ListSources(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	entries := make([]sourceEntry, 0, len(stats))
	for _, stat := range stats {
		entries = append(entries, sourceEntry{
			Source:        stat.Source,
			PointCount:    stat.PointCount,
			LastIndexedAt: stat.LastIndexedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{"sources": entries})
}

func (s *Server) handleDeleteSource(c *gin.Context) {
	source := c.Param("source")
	if source == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "source is required"})
		return
	}

	if err := s.ingestion.DeleteSource(c.Request.Context(), source); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("Deleted source %s", source)})
}
