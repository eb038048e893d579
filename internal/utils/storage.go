package utils

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

type StorageHandler struct {
	client   *http.Client
	maxBytes int64
}

func NewStorageHandler(maxBytes int64) *StorageHandler {
	return &StorageHandler{
		client:   &http.Client{Timeout: 15 * time.Second},
		maxBytes: maxBytes,
	}
}

// DownloadFile fetches url and returns the body with its content type.
func (h *StorageHandler) DownloadFile(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("download %s: status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, h.maxBytes+1))
	if err != nil {
		return nil, "", err
	}
	if int64(len(body)) > h.maxBytes {
		return nil, "", fmt.Errorf("download %s: file exceeds %d bytes", url, h.maxBytes)
	}
	return body, resp.Header.Get("Content-Type"), nil
}
