package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/simple-media/pkg/simplemedia"
)

// Backend is an in-memory implementation of the simplemedia.BlobStore
// interface. Minted upload credentials carry a real expiry and are single-use,
// so TTL and reuse behavior can be exercised without an object store.
type Backend struct {
	mu          sync.RWMutex
	objects     map[string][]byte
	mimeTypes   map[string]string
	credentials map[string]*credential
	now         func() time.Time
}

type credential struct {
	objectKey   string
	contentType string
	expiresAt   time.Time
	used        bool
}

// New creates a new in-memory storage backend
func New() *Backend {
	return &Backend{
		objects:     make(map[string][]byte),
		mimeTypes:   make(map[string]string),
		credentials: make(map[string]*credential),
		now:         time.Now,
	}
}

// SetClock overrides the time source. Test hook.
func (b *Backend) SetClock(now func() time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.now = now
}

func (b *Backend) MintUploadCredential(ctx context.Context, objectKey, contentType string, ttl time.Duration) (*simplemedia.UploadCredential, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	token := uuid.New().String()
	expiresAt := b.now().Add(ttl)
	b.credentials[token] = &credential{
		objectKey:   objectKey,
		contentType: contentType,
		expiresAt:   expiresAt,
	}

	return &simplemedia.UploadCredential{
		UploadURL: fmt.Sprintf("memory://%s?token=%s", objectKey, token),
		ObjectKey: objectKey,
		ExpiresAt: expiresAt,
	}, nil
}

// UploadWithCredential writes bytes through a minted upload URL, enforcing
// expiry and single use the way a presigned PUT would.
func (b *Backend) UploadWithCredential(ctx context.Context, uploadURL string, reader io.Reader) error {
	u, err := url.Parse(uploadURL)
	if err != nil {
		return fmt.Errorf("invalid upload url: %w", err)
	}
	token := u.Query().Get("token")

	b.mu.Lock()
	cred, exists := b.credentials[token]
	if !exists {
		b.mu.Unlock()
		return simplemedia.ErrCredentialExpired
	}
	if cred.used || b.now().After(cred.expiresAt) {
		delete(b.credentials, token)
		b.mu.Unlock()
		return simplemedia.ErrCredentialExpired
	}
	cred.used = true
	b.mu.Unlock()

	return b.Upload(ctx, cred.objectKey, cred.contentType, reader)
}

func (b *Backend) MintDownloadURL(ctx context.Context, objectKey string, ttl time.Duration) (string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return fmt.Sprintf("memory://%s?expires=%d", objectKey, b.now().Add(ttl).Unix()), nil
}

func (b *Backend) Upload(ctx context.Context, objectKey, contentType string, reader io.Reader) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.objects[objectKey] = data
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	b.mimeTypes[objectKey] = contentType
	return nil
}

func (b *Backend) Download(ctx context.Context, objectKey string) (io.ReadCloser, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	data, exists := b.objects[objectKey]
	if !exists {
		return nil, simplemedia.ErrObjectNotFound
	}

	return io.NopCloser(bytes.NewReader(data)), nil
}

func (b *Backend) Delete(ctx context.Context, objectKey string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.objects[objectKey]; !exists {
		return simplemedia.ErrObjectNotFound
	}

	delete(b.objects, objectKey)
	delete(b.mimeTypes, objectKey)
	return nil
}

func (b *Backend) GetObjectMeta(ctx context.Context, objectKey string) (*simplemedia.ObjectMeta, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	data, exists := b.objects[objectKey]
	if !exists {
		return nil, simplemedia.ErrObjectNotFound
	}

	return &simplemedia.ObjectMeta{
		Key:         objectKey,
		Size:        int64(len(data)),
		ContentType: b.mimeTypes[objectKey],
		UpdatedAt:   b.now(),
	}, nil
}
