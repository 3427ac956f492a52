package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"polaris/internal/domain/services"
)

// SupabaseStore implements the BlobStore capability against the Supabase
// Storage API. Blob refs are object keys within a single bucket.
type SupabaseStore struct {
	baseURL    string
	serviceKey string
	bucket     string
	client     *http.Client
	logger     *slog.Logger
}

// NewSupabaseStore creates a blob store backed by a Supabase Storage bucket.
// baseURL is the project URL, e.g. https://xyz.supabase.co.
func NewSupabaseStore(baseURL, serviceKey, bucket string, logger *slog.Logger) *SupabaseStore {
	return &SupabaseStore{
		baseURL:    baseURL,
		serviceKey: serviceKey,
		bucket:     bucket,
		client:     &http.Client{Timeout: 60 * time.Second},
		logger:     logger,
	}
}

// Put stores bytes under a fresh object key and returns the key as the ref.
func (s *SupabaseStore) Put(ctx context.Context, data []byte, contentType string) (string, error) {
	key := uuid.NewString()
	url := fmt.Sprintf("%s/storage/v1/object/%s/%s", s.baseURL, s.bucket, key)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("create upload request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.serviceKey)
	req.Header.Set("Content-Type", contentType)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload blob: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("upload blob: status %d: %s", resp.StatusCode, string(body))
	}

	s.logger.Debug("blob stored", "key", key, "bytes", len(data))
	return key, nil
}

// URL resolves a blob ref to its public object URL. The bucket is expected to
// be public; signed URLs are not needed for project file previews.
func (s *SupabaseStore) URL(ctx context.Context, ref string) (string, error) {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", s.baseURL, s.bucket, ref), nil
}

// Delete releases a blob. A 404 counts as success so release stays idempotent.
func (s *SupabaseStore) Delete(ctx context.Context, ref string) error {
	url := fmt.Sprintf("%s/storage/v1/object/%s/%s", s.baseURL, s.bucket, ref)

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return fmt.Errorf("create delete request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.serviceKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("delete blob: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNotFound {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("delete blob: status %d: %s", resp.StatusCode, string(body))
	}

	return nil
}

var _ services.BlobStore = (*SupabaseStore)(nil)
