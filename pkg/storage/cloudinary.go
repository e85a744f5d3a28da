package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// UploadedFile is what the provider reports back for one stored file.
type UploadedFile struct {
	URL  string
	Name string
}

// DocumentStorage is the contract for the file upload provider.
type DocumentStorage interface {
	// Upload stores r under folder and returns the secure URL.
	Upload(ctx context.Context, r io.Reader, folder, fileName string) (UploadedFile, error)
	// Delete removes a previously uploaded file by its URL.
	Delete(ctx context.Context, fileURL string) error
}

type cloudinaryStorage struct {
	cld *cloudinary.Cloudinary
}

// NewCloudinaryStorage reads CLOUDINARY_URL from the environment. cloudName,
// when set, overrides the cloud name found there.
func NewCloudinaryStorage(cloudName string) (DocumentStorage, error) {
	cld, err := cloudinary.New()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary client: %w", err)
	}

	cld.Config.URL.Secure = true
	if cloudName != "" {
		cld.Config.Cloud.CloudName = cloudName
	}

	return &cloudinaryStorage{cld: cld}, nil
}

func (s *cloudinaryStorage) Upload(ctx context.Context, r io.Reader, folder, fileName string) (UploadedFile, error) {
	if s == nil || s.cld == nil {
		return UploadedFile{}, fmt.Errorf("cloudinary storage is not initialized")
	}

	params := uploader.UploadParams{
		Folder:         folder,
		UseFilename:    api.Bool(true),
		UniqueFilename: api.Bool(true),
		PublicID:       fmt.Sprintf("%d-%s", time.Now().UnixNano(), strings.TrimSuffix(fileName, filepath.Ext(fileName))),
		Overwrite:      api.Bool(false),
		ResourceType:   "auto",
	}

	// Photos and scanned ids are compressed; PDFs are stored as-is.
	if isImage(fileName) {
		params.Transformation = "q_auto"
	}

	resp, err := s.cld.Upload.Upload(ctx, r, params)
	if err != nil {
		return UploadedFile{}, fmt.Errorf("failed to upload file to cloudinary: %w", err)
	}
	if resp.Error.Message != "" {
		return UploadedFile{}, fmt.Errorf("cloudinary rejected upload: %s", resp.Error.Message)
	}
	if resp.SecureURL == "" {
		return UploadedFile{}, fmt.Errorf("cloudinary upload succeeded but secure URL is empty")
	}

	name := resp.OriginalFilename
	if name == "" {
		name = fileName
	}
	return UploadedFile{URL: resp.SecureURL, Name: name}, nil
}

func (s *cloudinaryStorage) Delete(ctx context.Context, fileURL string) error {
	if s == nil || s.cld == nil {
		return fmt.Errorf("cloudinary storage is not initialized")
	}

	publicID := extractPublicID(fileURL)
	if publicID == "" {
		return fmt.Errorf("could not extract public ID from URL: %s", fileURL)
	}

	resp, err := s.cld.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID:     publicID,
		ResourceType: resourceType(fileURL),
		Invalidate:   api.Bool(true),
	})
	if err != nil {
		return fmt.Errorf("failed to delete file from cloudinary: %w", err)
	}

	if resp.Result != "ok" && resp.Result != "not found" {
		return fmt.Errorf("cloudinary destroy api returned result: %s", resp.Result)
	}
	return nil
}

func isImage(fileName string) bool {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".jpg", ".jpeg", ".png", ".bmp", ".tiff", ".gif", ".webp":
		return true
	}
	return false
}

// resourceType reads the resource segment of a delivery URL
// (/<cloud>/<resource>/upload/...). Defaults to image.
func resourceType(fileURL string) string {
	u, err := url.Parse(fileURL)
	if err != nil {
		return "image"
	}
	parts := strings.Split(u.Path, "/")
	for i, p := range parts {
		if p == "upload" && i > 0 {
			return parts[i-1]
		}
	}
	return "image"
}

// extractPublicID pulls the public ID out of a delivery URL. Raw resources
// keep their extension in the public ID; images and videos do not.
// https://res.cloudinary.com/demo/image/upload/v123456789/folder/sample.jpg -> folder/sample
// https://res.cloudinary.com/demo/raw/upload/v1/folder/cv.docx -> folder/cv.docx
func extractPublicID(fileURL string) string {
	u, err := url.Parse(fileURL)
	if err != nil {
		return ""
	}

	parts := strings.Split(u.Path, "/")
	uploadIndex := -1
	for i, p := range parts {
		if p == "upload" {
			uploadIndex = i
			break
		}
	}
	if uploadIndex == -1 || uploadIndex+1 >= len(parts) {
		return ""
	}

	relevant := parts[uploadIndex+1:]
	if len(relevant) > 1 && isVersion(relevant[0]) {
		relevant = relevant[1:]
	}
	if len(relevant) == 0 {
		return ""
	}

	withExt := strings.Join(relevant, "/")
	if resourceType(fileURL) == "raw" {
		return withExt
	}
	return strings.TrimSuffix(withExt, filepath.Ext(withExt))
}

func isVersion(segment string) bool {
	if len(segment) < 2 || segment[0] != 'v' {
		return false
	}
	for _, r := range segment[1:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
