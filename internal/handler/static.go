package handler

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"mcw-proxy/internal/config"
)

// imageTypes maps the servable extensions to their content types.
var imageTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
	".svg":  "image/svg+xml",
	".txt":  "text/plain; charset=utf-8",
}

// ImageHandler serves and stores files under the image root.
type ImageHandler struct {
	root   string
	logger *slog.Logger
}

// NewImageHandler creates the image root if needed.
func NewImageHandler(cfg *config.Config, logger *slog.Logger) (*ImageHandler, error) {
	root, err := filepath.Abs(cfg.Server.ImagesDir)
	if err != nil {
		return nil, fmt.Errorf("resolve images dir: %w", err)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create images dir: %w", err)
	}
	return &ImageHandler{
		root:   root,
		logger: logger.With("component", "images"),
	}, nil
}

// resolve maps a request path below /images/ to a file under the root. ok is
// false when the result would leave the root.
func (h *ImageHandler) resolve(name string) (string, bool) {
	full := filepath.Join(h.root, filepath.FromSlash(name))
	rel, err := filepath.Rel(h.root, full)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return full, true
}

// Serve writes one file from the image root.
func (h *ImageHandler) Serve(c echo.Context) error {
	name := strings.TrimPrefix(c.Request().URL.Path, "/images/")

	path, ok := h.resolve(name)
	if !ok {
		return fail(http.StatusForbidden, "Forbidden", nil)
	}
	contentType, ok := imageTypes[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return fail(http.StatusForbidden, "File type not allowed", nil)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fail(http.StatusNotFound, "Not Found", nil)
		}
		return fail(http.StatusInternalServerError, "Server error", err)
	}

	c.Response().Header().Set("Cache-Control", "public, max-age=86400")
	return c.Blob(http.StatusOK, contentType, data)
}

type uploadResponse struct {
	Message string `json:"message"`
	URL     string `json:"url"`
}

// Upload stores the multipart field "file" under a random name and returns
// its public URL.
func (h *ImageHandler) Upload(c echo.Context) error {
	req := c.Request()
	if req.Method != http.MethodPost {
		return fail(http.StatusMethodNotAllowed, "Method Not Allowed", nil)
	}
	mediaType, _, err := mime.ParseMediaType(req.Header.Get(echo.HeaderContentType))
	if err != nil || mediaType != echo.MIMEMultipartForm {
		return fail(http.StatusBadRequest, "Expected multipart/form-data", err)
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return fail(http.StatusBadRequest, "No file uploaded", err)
	}

	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if ext == "" {
		ext = ".png"
	}
	if _, ok := imageTypes[ext]; !ok {
		return fail(http.StatusBadRequest, "File type not allowed", nil)
	}
	name := uuid.NewString() + ext

	if err := h.save(fh, filepath.Join(h.root, name)); err != nil {
		return fail(http.StatusInternalServerError, "Upload failed", err)
	}

	h.logger.Info("image uploaded", "file", name, "bytes", fh.Size)
	return c.JSON(http.StatusOK, uploadResponse{Message: "Upload complete", URL: "/images/" + name})
}

func (h *ImageHandler) save(fh *multipart.FileHeader, dst string) (err error) {
	src, err := fh.Open()
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			_ = os.Remove(dst)
		}
	}()

	_, err = io.Copy(out, src)
	return err
}
