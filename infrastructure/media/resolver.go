package media

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"social-hub/domain/model"
	"social-hub/domain/repository"
	"social-hub/infrastructure/logger"
)

// LocalResolver stores uploads under a local directory served at BaseURL
// and passes remote URLs through after probing them. It satisfies the
// media resolver capability; swapping in object storage only means
// replacing this type.
type LocalResolver struct {
	dir     string
	baseURL string
	client  *http.Client
}

func NewLocalResolver(dir, baseURL string) (*LocalResolver, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("media dir: %w", err)
	}
	return &LocalResolver{
		dir:     dir,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 15 * time.Second},
	}, nil
}

var _ repository.IMediaResolver = (*LocalResolver)(nil)

func (r *LocalResolver) ResolveFile(ctx context.Context, fh *multipart.FileHeader) (*model.MediaItem, error) {
	src, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	name, err := randomName(filepath.Ext(fh.Filename))
	if err != nil {
		return nil, err
	}
	dst, err := os.Create(filepath.Join(r.dir, name))
	if err != nil {
		return nil, err
	}
	defer dst.Close()

	// Sniff the type from the first chunk rather than trusting the header.
	head := make([]byte, 512)
	n, rerr := io.ReadFull(src, head)
	if rerr != nil && rerr != io.ErrUnexpectedEOF && rerr != io.EOF {
		return nil, rerr
	}
	mimeType := http.DetectContentType(head[:n])
	if ct := fh.Header.Get("Content-Type"); ct != "" && mimeType == "application/octet-stream" {
		mimeType = ct
	}

	size := int64(n)
	if _, err := dst.Write(head[:n]); err != nil {
		return nil, err
	}
	copied, err := io.Copy(dst, src)
	if err != nil {
		return nil, err
	}
	size += copied

	item := &model.MediaItem{
		URL:      r.baseURL + "/" + name,
		MimeType: mimeType,
		Size:     size,
	}
	logger.GetLogger().WithField("url", item.URL).WithField("size", size).Debug("media upload stored")
	return item, nil
}

func (r *LocalResolver) ResolveURL(ctx context.Context, rawURL string) (*model.MediaItem, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, &model.ValidationError{Reason: fmt.Sprintf("invalid media url: %s", rawURL)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("media url unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("media url returned %d: %s", resp.StatusCode, rawURL)
	}

	return &model.MediaItem{
		URL:      rawURL,
		MimeType: resp.Header.Get("Content-Type"),
		Size:     resp.ContentLength,
	}, nil
}

func randomName(ext string) (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b) + ext, nil
}
