// Package badge renders employee QR codes as printable PNGs and optionally
// hosts them on Cloudinary.
package badge

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	goqrcode "github.com/skip2/go-qrcode"
)

const (
	DefaultSize = 256
	MinSize     = 64
	MaxSize     = 1024
	folder      = "badges"
)

var ErrInvalidSize = errors.New("badge size out of range")

// Render encodes code as a square PNG of size pixels.
func Render(code string, size int) ([]byte, error) {
	if size == 0 {
		size = DefaultSize
	}
	if size < MinSize || size > MaxSize {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	return goqrcode.Encode(code, goqrcode.Medium, size)
}

// Host stores rendered badges somewhere printable.
type Host interface {
	Upload(ctx context.Context, employeeID int64, png []byte) (string, error)
	Remove(ctx context.Context, employeeID int64) error
}

type CloudinaryHost struct {
	cld *cloudinary.Cloudinary
}

func NewCloudinaryHost(url string) (*CloudinaryHost, error) {
	cld, err := cloudinary.NewFromURL(url)
	if err != nil {
		return nil, fmt.Errorf("cloudinary: %w", err)
	}
	return &CloudinaryHost{cld: cld}, nil
}

func PublicID(employeeID int64) string {
	return fmt.Sprintf("employee_%d_badge", employeeID)
}

// Upload overwrites the employee's previous badge. Badges are stored as
// authenticated assets: the returned URL carries a signature made with the
// API secret, and the unsigned path is refused by the CDN.
func (h *CloudinaryHost) Upload(ctx context.Context, employeeID int64, png []byte) (string, error) {
	resp, err := h.cld.Upload.Upload(ctx, bytes.NewReader(png), uploader.UploadParams{
		Folder:     folder,
		PublicID:   PublicID(employeeID),
		Type:       api.Authenticated,
		Overwrite:  api.Bool(true),
		Invalidate: api.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("cloudinary upload: %w", err)
	}
	return h.signedURL(resp.PublicID, resp.Version)
}

func (h *CloudinaryHost) signedURL(publicID string, version int) (string, error) {
	img, err := h.cld.Image(publicID)
	if err != nil {
		return "", fmt.Errorf("cloudinary url: %w", err)
	}
	img.DeliveryType = api.Authenticated
	img.Version = version
	img.Config.URL.SignURL = true
	img.Config.URL.Secure = true
	return img.String()
}

func (h *CloudinaryHost) Remove(ctx context.Context, employeeID int64) error {
	_, err := h.cld.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID:   folder + "/" + PublicID(employeeID),
		Type:       string(api.Authenticated),
		Invalidate: api.Bool(true),
	})
	if err != nil {
		return fmt.Errorf("cloudinary destroy: %w", err)
	}
	return nil
}
