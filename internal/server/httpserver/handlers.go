package httpserver

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/qrshare/qrshare/internal/common"
	"github.com/qrshare/qrshare/internal/server/artifacts"
	"github.com/qrshare/qrshare/internal/server/links"
	"github.com/skip2/go-qrcode"
)

const qrSize = 256

type uploadResponse struct {
	ID        string    `json:"id"`
	Link      string    `json:"link"`
	QR        string    `json:"qr,omitempty"`
	Key       string    `json:"key,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

type statsResponse struct {
	ID            string `json:"id"`
	DownloadCount int64  `json:"download_count"`
}

func (s *Server) upload(c *gin.Context) {
	if s.opts.MaxUploadBytes > 0 {
		if c.Request.ContentLength > s.opts.MaxUploadBytes {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.opts.MaxUploadBytes)
	}

	fh, err := c.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "no file in request"})
		return
	}

	f, err := fh.Open()
	if err != nil {
		s.writeError(c, err)
		return
	}
	data, err := io.ReadAll(f)
	_ = f.Close()
	if err != nil {
		s.writeError(c, err)
		return
	}

	contentType := fh.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}

	ctx := c.Request.Context()
	receipt, err := s.store.Upload(ctx, artifacts.UploadInput{
		Data:         data,
		OriginalName: fh.Filename,
		ContentType:  contentType,
		Password:     c.PostForm("password"),
	})
	if err != nil {
		s.writeError(c, err)
		return
	}

	token, err := s.signer.Token(receipt.ID, receipt.ExpiresAt)
	if err != nil {
		s.writeError(c, err)
		return
	}
	link := links.URL(s.opts.BaseURL, token)

	resp := uploadResponse{
		ID:        receipt.ID,
		Link:      link,
		Key:       receipt.KeyHandle,
		ExpiresAt: receipt.ExpiresAt,
	}

	// the QR is a convenience; the upload stands without it
	if png, err := qrcode.Encode(link, qrcode.Medium, qrSize); err != nil {
		s.log.Warn(ctx, "render qr", "id", receipt.ID, "error", err)
	} else if err := s.store.PutSideArtifact(ctx, receipt.ID, common.QRBlobName, png); err != nil {
		s.log.Warn(ctx, "store qr", "id", receipt.ID, "error", err)
	} else {
		resp.QR = strings.TrimRight(s.opts.BaseURL, "/") + "/qr/" + receipt.ID
	}

	c.JSON(http.StatusCreated, resp)
}

func (s *Server) download(c *gin.Context) {
	id, err := s.signer.ArtifactID(c.Param("token"))
	if err != nil {
		s.writeError(c, err)
		return
	}

	d, err := s.store.Retrieve(c.Request.Context(), id, c.PostForm("password"))
	if err != nil {
		s.writeError(c, err)
		return
	}

	name := d.Artifact.OriginalName
	if name == "" {
		name = id
	}
	contentType := d.Artifact.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	c.Header("X-Download-Count", strconv.FormatInt(d.Count, 10))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, contentType, d.Plaintext)
}

func (s *Server) qr(c *gin.Context) {
	png, err := s.store.GetSideArtifact(c.Request.Context(), c.Param("id"), common.QRBlobName)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

func (s *Server) stats(c *gin.Context) {
	id := c.Param("id")
	n, err := s.store.DownloadCount(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, statsResponse{ID: id, DownloadCount: n})
}

// revoke requires the artifact's link token, as a bearer token or the
// token query parameter.
func (s *Server) revoke(c *gin.Context) {
	id := c.Param("id")

	token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	if token == "" {
		token = c.Query("token")
	}
	owner, err := s.signer.ArtifactID(token)
	if err != nil || owner != id {
		c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
		return
	}

	if err := s.store.Revoke(c.Request.Context(), id); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// writeError renders core errors with messages that do not reveal whether
// an id exists or needs a password.
func (s *Server) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, common.ErrorNotFound), errors.Is(err, common.ErrInvalidToken):
		c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
	case errors.Is(err, common.ErrExpired), errors.Is(err, common.ErrTokenExpired):
		c.JSON(http.StatusGone, gin.H{"error": "link expired"})
	case errors.Is(err, common.ErrDenied), errors.Is(err, common.ErrCorrupt):
		c.JSON(http.StatusForbidden, gin.H{"error": "wrong password"})
	case errors.Is(err, common.ErrorInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
	default:
		s.log.Error(c.Request.Context(), "request failed", "path", c.Request.URL.Path, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
