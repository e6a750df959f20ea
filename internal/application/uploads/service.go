package uploads

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"daloamarket-backend/internal/pkg/catalog"

	"github.com/google/uuid"
)

// SupabaseClient defines what we need from Supabase storage.
type SupabaseClient interface {
	CreateSignedUploadURL(ctx context.Context, bucket, path string) (string, error)
}

// HTTPClient is a SupabaseClient backed by the HTTP API.
type HTTPClient struct {
	BaseURL   string
	SecretKey string
	Client    *http.Client
}

type supabaseSignedUploadResponse struct {
	SignedURL      string `json:"signedUrl"`
	SignedURLSnake string `json:"signed_url"`
	URL            string `json:"url"` // relative path returned by upload/sign API
	Path           string `json:"path"`
}

func (c *HTTPClient) CreateSignedUploadURL(ctx context.Context, bucket, path string) (string, error) {
	if c.Client == nil {
		c.Client = &http.Client{Timeout: 10 * time.Second}
	}
	if c.BaseURL == "" {
		return "", fmt.Errorf("supabase: SUPABASE_URL is not set")
	}
	if c.SecretKey == "" {
		return "", fmt.Errorf("supabase: SUPABASE_SECRET_KEY is not set")
	}
	base := strings.TrimRight(c.BaseURL, "/")
	url := fmt.Sprintf("%s/storage/v1/object/upload/sign/%s/%s", base, bucket, path)

	bodyBytes, _ := json.Marshal(map[string]interface{}{
		"expiresIn": 3600,
		"upsert":    false,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", err
	}
	// Storage wants the service key both as apikey and as Bearer.
	req.Header.Set("apikey", c.SecretKey)
	req.Header.Set("Authorization", "Bearer "+c.SecretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("supabase request: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyStr := string(respBody)
		if resp.StatusCode == 400 || resp.StatusCode == 403 {
			if strings.Contains(bodyStr, "Invalid Compact JWS") || strings.Contains(bodyStr, "Unauthorized") {
				return "", fmt.Errorf("supabase storage requires the service_role key in SUPABASE_SECRET_KEY (raw body: %s)", bodyStr)
			}
		}
		return "", fmt.Errorf("supabase error: status %d body: %s", resp.StatusCode, bodyStr)
	}

	var data supabaseSignedUploadResponse
	if err := json.Unmarshal(respBody, &data); err != nil {
		return "", fmt.Errorf("supabase response decode: %w", err)
	}
	if data.SignedURL != "" {
		return data.SignedURL, nil
	}
	if data.SignedURLSnake != "" {
		return data.SignedURLSnake, nil
	}
	if data.URL != "" {
		// relative: /storage/v1/object/...?token=...
		u := data.URL
		if len(u) > 0 && u[0] != '/' {
			u = "/" + u
		}
		return base + u, nil
	}
	return "", fmt.Errorf("supabase returned no signed URL, body: %s", string(respBody))
}

var (
	ErrFileNameRequired = errors.New("file_name est requis")
	ErrFileTooLarge     = errors.New("Image trop volumineuse (max 5MB)")
	ErrUnsupportedType  = errors.New("Format d'image non supporté")
)

var imageExtensions = map[string]string{
	"image/jpeg": "jpg",
	"image/jpg":  "jpg",
	"image/png":  "png",
	"image/webp": "webp",
}

// Service signs direct-to-storage uploads for listing photos.
type Service struct {
	Client      SupabaseClient
	SupabaseURL string
	Bucket      string
	now         func() time.Time
}

// UploadResult is what the client needs to PUT the file and reference it afterwards.
type UploadResult struct {
	UploadURL string `json:"uploadUrl"`
	PublicURL string `json:"publicUrl"`
	Path      string `json:"path"`
}

// PhotoRequest describes the file the client is about to upload.
type PhotoRequest struct {
	FileName    string `json:"file_name"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
}

// ListingPhoto validates the file metadata and returns a signed upload URL under <user_id>/.
func (s *Service) ListingPhoto(ctx context.Context, userID uuid.UUID, in PhotoRequest) (*UploadResult, error) {
	if strings.TrimSpace(in.FileName) == "" {
		return nil, ErrFileNameRequired
	}
	if in.Size > catalog.MaxPhotoBytes {
		return nil, ErrFileTooLarge
	}
	ext, ok := photoExtension(in.ContentType, in.FileName)
	if !ok {
		return nil, ErrUnsupportedType
	}

	objectPath := fmt.Sprintf("%s/%d-%s.%s", userID, s.clock().UnixMilli(), randomSuffix(), ext)
	signedURL, err := s.Client.CreateSignedUploadURL(ctx, s.Bucket, objectPath)
	if err != nil {
		return nil, err
	}
	return &UploadResult{
		UploadURL: signedURL,
		PublicURL: s.PublicURL(objectPath),
		Path:      objectPath,
	}, nil
}

// PublicURL is the public object URL for a path in the listing bucket.
func (s *Service) PublicURL(objectPath string) string {
	base := strings.TrimRight(s.SupabaseURL, "/")
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", base, s.Bucket, objectPath)
}

func (s *Service) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

// photoExtension trusts the declared content type; an empty type falls back to the file extension.
func photoExtension(contentType, fileName string) (string, bool) {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if ct == "" {
		switch strings.ToLower(strings.TrimPrefix(path.Ext(fileName), ".")) {
		case "jpg", "jpeg":
			return "jpg", true
		case "png":
			return "png", true
		case "webp":
			return "webp", true
		}
		return "", false
	}
	ext, ok := imageExtensions[ct]
	return ext, ok
}

func randomSuffix() string {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return uuid.NewString()[:8]
	}
	return hex.EncodeToString(b)
}
