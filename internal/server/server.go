// Package server exposes the HTTP intake endpoint for messaging-bot
// forwarded receipts.
package server

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"ncastro/comprobantes/internal/models"
)

var log = logrus.New()

// SetLogger sets a custom logger for this package
func SetLogger(logger *logrus.Logger) {
	if logger != nil {
		log = logger
	}
}

// ReceiptExtractor extracts a receipt from raw image bytes.
type ReceiptExtractor interface {
	ExtractImage(ctx context.Context, data []byte, format string) (*models.Receipt, error)
}

// MessageStore persists a receipt tied to its source message.
type MessageStore interface {
	SaveReceiptForMessage(msg models.Message, r *models.Receipt) (bool, error)
}

// Server handles intake requests.
type Server struct {
	extractor ReceiptExtractor
	store     MessageStore
}

// New creates a Server.
func New(extractor ReceiptExtractor, store MessageStore) *Server {
	return &Server{extractor: extractor, store: store}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", s.handleHealth)
	r.POST("/messages", s.handleMessage)
	return r
}

// Run starts the HTTP server on addr and blocks.
func (s *Server) Run(addr string) error {
	log.WithField("addr", addr).Info("Starting intake server")
	return s.Router().Run(addr)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type mediaPayload struct {
	MimeType string `json:"mimetype"`
	Data     string `json:"data"` // base64
}

type messageRequest struct {
	ID     string        `json:"id" binding:"required"`
	Sender string        `json:"sender"`
	Author string        `json:"author"`
	Body   string        `json:"body"`
	Media  *mediaPayload `json:"media"`
}

func (s *Server) handleMessage(c *gin.Context) {
	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Media == nil || !strings.HasPrefix(req.Media.MimeType, "image/") {
		log.WithField("message_id", req.ID).Debug("Message without image ignored")
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	data, err := base64.StdEncoding.DecodeString(req.Media.Data)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "media.data is not valid base64"})
		return
	}

	receipt, err := s.extractor.ExtractImage(c.Request.Context(), data, imageFormat(req.Media.MimeType))
	if err != nil {
		log.WithError(err).WithField("message_id", req.ID).Error("Extraction failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "extraction failed"})
		return
	}

	msg := models.Message{
		MessageID: req.ID,
		Sender:    req.Sender,
		Author:    req.Author,
		Body:      req.Body,
	}
	stored, err := s.store.SaveReceiptForMessage(msg, receipt)
	if err != nil {
		log.WithError(err).WithField("message_id", req.ID).Error("Persistence failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not store receipt"})
		return
	}

	status := "stored"
	if !stored {
		status = "duplicate"
	}
	log.WithFields(logrus.Fields{"message_id": req.ID, "status": status}).Info("Message processed")
	c.JSON(http.StatusCreated, gin.H{"status": status, "receipt_id": receipt.ID})
}

// imageFormat maps a MIME type onto the short format name the extraction
// API expects.
func imageFormat(mimeType string) string {
	format := strings.TrimPrefix(mimeType, "image/")
	if format == "" || format == mimeType {
		return "jpeg"
	}
	return format
}
