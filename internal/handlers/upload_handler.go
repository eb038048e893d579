package handlers

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"marketplace/internal/apperr"
	"marketplace/internal/services"
	"marketplace/internal/utils/logger"

	"github.com/gabriel-vasile/mimetype"
	"github.com/labstack/echo/v4"
)

const (
	MaxUploadSize     = 5 << 20
	MaxProposalImages = 10
)

var uploadLog = logger.New("upload_handler")

var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true, ".svg": true,
}

// formFiles returns the files sent under field, or nil when the request is
// not multipart.
func formFiles(c echo.Context, field string) ([]*multipart.FileHeader, error) {
	if !strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		return nil, nil
	}
	form, err := c.MultipartForm()
	if err != nil {
		return nil, apperr.NewBadRequest("Upload failed")
	}
	files := form.File[field]
	if len(files) == 0 {
		files = form.File[field+"[]"]
	}
	return files, nil
}

// readImage loads one uploaded file after checking its size, extension and
// sniffed content type.
func readImage(fh *multipart.FileHeader) (services.Upload, error) {
	if fh.Size > MaxUploadSize {
		return services.Upload{}, echo.NewHTTPError(http.StatusRequestEntityTooLarge, "File too large")
	}
	if !imageExtensions[strings.ToLower(filepath.Ext(fh.Filename))] {
		return services.Upload{}, apperr.NewBadRequest("Only image files are allowed")
	}

	src, err := fh.Open()
	if err != nil {
		return services.Upload{}, uploadLog.Error("Failed to open upload", err)
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, MaxUploadSize+1))
	if err != nil {
		return services.Upload{}, uploadLog.Error("Failed to read upload", err)
	}
	if len(data) > MaxUploadSize {
		return services.Upload{}, echo.NewHTTPError(http.StatusRequestEntityTooLarge, "File too large")
	}

	mtype := mimetype.Detect(data)
	if !strings.HasPrefix(mtype.String(), "image/") {
		return services.Upload{}, apperr.NewBadRequest("Only image files are allowed")
	}
	return services.Upload{FileName: filepath.Base(fh.Filename), ContentType: mtype.String(), Data: data}, nil
}

// formImage reads an optional single image.
func formImage(c echo.Context, field string) (*services.Upload, error) {
	files, err := formFiles(c, field)
	if err != nil || len(files) == 0 {
		return nil, err
	}
	up, err := readImage(files[0])
	if err != nil {
		return nil, err
	}
	return &up, nil
}

// formImages reads up to limit images.
func formImages(c echo.Context, field string, limit int) ([]services.Upload, error) {
	files, err := formFiles(c, field)
	if err != nil {
		return nil, err
	}
	if len(files) > limit {
		return nil, apperr.NewBadRequest(fmt.Sprintf("You can upload at most %d images", limit))
	}
	uploads := make([]services.Upload, 0, len(files))
	for _, fh := range files {
		up, err := readImage(fh)
		if err != nil {
			return nil, err
		}
		uploads = append(uploads, up)
	}
	return uploads, nil
}
