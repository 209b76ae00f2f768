package helpers

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"
)

const (
	ReviewFolder = "reviews"
)

// GenerateSlug builds a human-readable, collision-resistant identifier from
// a restaurant title and the first comma-delimited segment of its address,
// e.g. "Cafe X", "1 Main St, City" -> "cafe-x-1-main-st-3f9a2c". The random
// suffix keeps regenerated slugs from colliding; the store's unique index is
// the hard guarantee.
func GenerateSlug(title, address string) string {
	segment := address
	if idx := strings.Index(address, ","); idx >= 0 {
		segment = address[:idx]
	}

	base := slugify(title + " " + segment)
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	if base == "" {
		return suffix
	}
	return base + "-" + suffix
}

func slugify(s string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

func StringTrim(s string) string {
	return strings.TrimSpace(s)
}

func RemoveDuplicates(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		if seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
	}
	return out
}

// UploadImages pushes review photos to Cloudinary and returns their secure
// URLs. Callers skip this entirely when no Cloudinary client is configured.
func UploadImages(ctx context.Context, cld *cloudinary.Cloudinary, imagePaths []string, folder string) ([]string, error) {
	var urls []string
	for _, filePath := range imagePaths {
		if strings.TrimSpace(filePath) == "" {
			continue
		}
		uploadResult, err := cld.Upload.Upload(ctx, filePath, uploader.UploadParams{
			Folder: folder,
			Tags:   []string{"matjip-app"},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to upload image %s: %w", filePath, err)
		}
		urls = append(urls, uploadResult.SecureURL)
	}
	return urls, nil
}
