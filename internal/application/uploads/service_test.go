package uploads

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStorage struct {
	bucket string
	path   string
	err    error
}

func (f *fakeStorage) CreateSignedUploadURL(ctx context.Context, bucket, path string) (string, error) {
	f.bucket, f.path = bucket, path
	if f.err != nil {
		return "", f.err
	}
	return "https://storage.test/upload/" + path + "?token=t", nil
}

func TestListingPhoto_SignsUnderUserFolder(t *testing.T) {
	fs := &fakeStorage{}
	s := &Service{Client: fs, SupabaseURL: "https://proj.supabase.co/", Bucket: "listings",
		now: func() time.Time { return time.UnixMilli(1700000000000) }}
	userID := uuid.New()

	res, err := s.ListingPhoto(context.Background(), userID, PhotoRequest{FileName: "velo.PNG", Size: 1024, ContentType: "image/png"})
	require.NoError(t, err)
	assert.Equal(t, "listings", fs.bucket)
	assert.Regexp(t, regexp.MustCompile(`^`+userID.String()+`/1700000000000-[0-9a-f]{8}\.png$`), res.Path)
	assert.Equal(t, "https://proj.supabase.co/storage/v1/object/public/listings/"+res.Path, res.PublicURL)
	assert.Contains(t, res.UploadURL, res.Path)
}

func TestListingPhoto_Validation(t *testing.T) {
	s := &Service{Client: &fakeStorage{}, Bucket: "listings"}
	ctx := context.Background()

	_, err := s.ListingPhoto(ctx, uuid.New(), PhotoRequest{FileName: " "})
	assert.Equal(t, ErrFileNameRequired, err)

	_, err = s.ListingPhoto(ctx, uuid.New(), PhotoRequest{FileName: "a.jpg", Size: 6 * 1024 * 1024, ContentType: "image/jpeg"})
	assert.Equal(t, ErrFileTooLarge, err)

	_, err = s.ListingPhoto(ctx, uuid.New(), PhotoRequest{FileName: "a.gif", Size: 10, ContentType: "image/gif"})
	assert.Equal(t, ErrUnsupportedType, err)

	res, err := s.ListingPhoto(ctx, uuid.New(), PhotoRequest{FileName: "a.jpeg", Size: 10})
	require.NoError(t, err)
	assert.Regexp(t, `\.jpg$`, res.Path)
}

func TestListingPhoto_StorageError(t *testing.T) {
	s := &Service{Client: &fakeStorage{err: errors.New("down")}, Bucket: "listings"}
	_, err := s.ListingPhoto(context.Background(), uuid.New(), PhotoRequest{FileName: "a.webp", Size: 10, ContentType: "image/webp"})
	assert.EqualError(t, err, "down")
}

func TestHTTPClient_CreateSignedUploadURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/storage/v1/object/upload/sign/listings/u/1.png", r.URL.Path)
		assert.Equal(t, "Bearer service", r.Header.Get("Authorization"))
		assert.Equal(t, "service", r.Header.Get("apikey"))
		_, _ = w.Write([]byte(`{"url":"/object/upload/sign/listings/u/1.png?token=abc"}`))
	}))
	defer srv.Close()

	c := &HTTPClient{BaseURL: srv.URL, SecretKey: "service"}
	u, err := c.CreateSignedUploadURL(context.Background(), "listings", "u/1.png")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/object/upload/sign/listings/u/1.png?token=abc", u)
}

func TestHTTPClient_MissingConfig(t *testing.T) {
	_, err := (&HTTPClient{}).CreateSignedUploadURL(context.Background(), "b", "p")
	assert.Error(t, err)
	_, err = (&HTTPClient{BaseURL: "http://x"}).CreateSignedUploadURL(context.Background(), "b", "p")
	assert.Error(t, err)
}
