package storage

import (
	"context"
	"fmt"
	"image"
	"net/url"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
)

// BlobScheme is the reference scheme for photographs kept in Azure Blob Storage:
// azblob://<container>/<blob path>
const BlobScheme = "azblob"

type azureStorage struct {
	client   *azblob.Client
	maxBytes int64
}

// NewAzureStorage creates an ImageFetcher for azblob:// references. An empty
// serviceURL selects the public endpoint of accountName.
func NewAzureStorage(accountName, accountKey, serviceURL string, maxBytes int64) (ImageFetcher, error) {
	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, fmt.Errorf("invalid azure credentials: %w", err)
	}

	if serviceURL == "" {
		serviceURL = fmt.Sprintf("https://%s.blob.core.windows.net", accountName)
	}
	client, err := azblob.NewClientWithSharedKeyCredential(serviceURL, credential, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create azure client: %w", err)
	}

	return &azureStorage{client: client, maxBytes: maxBytes}, nil
}

func (s *azureStorage) FetchImage(ctx context.Context, ref string) (image.Image, error) {
	container, blob, err := ParseBlobRef(ref)
	if err != nil {
		return nil, err
	}

	downloadResponse, err := s.client.DownloadStream(ctx, container, blob, nil)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}
	body := downloadResponse.Body
	defer body.Close()

	img, _, err := DecodeImage(body, s.maxBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to decode blob %s/%s: %w", container, blob, err)
	}
	return img, nil
}

// ParseBlobRef splits an azblob://container/path reference
func ParseBlobRef(ref string) (container, blob string, err error) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", "", fmt.Errorf("invalid blob URL: %w", err)
	}
	if u.Scheme != BlobScheme {
		return "", "", fmt.Errorf("invalid blob URL: scheme %q is not %s", u.Scheme, BlobScheme)
	}

	container = u.Host
	blob = strings.TrimPrefix(u.Path, "/")
	if container == "" || blob == "" {
		return "", "", fmt.Errorf("invalid blob URL %q: want %s://<container>/<blob>", ref, BlobScheme)
	}
	return container, blob, nil
}
