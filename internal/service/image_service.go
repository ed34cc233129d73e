package service

import (
	"fmt"
	"image"
	"mime/multipart"
	"os"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog/log"

	"github.com/vandreio/tourbook/internal/utils"
)

// Image output dimensions. User photos are square avatars; tour images
// keep a 3:2 aspect ratio.
const (
	userPhotoSize   = 500
	tourImageWidth  = 2000
	tourImageHeight = 1333
	jpegQuality     = 90
)

// ImageService resizes and stores uploaded images as JPEG files.
type ImageService struct {
	baseDir string
}

// NewImageService creates a new image service rooted at baseDir.
func NewImageService(baseDir string) *ImageService {
	return &ImageService{baseDir: baseDir}
}

// SaveUserPhoto processes an avatar upload into a 500x500 JPEG and returns
// the stored filename.
func (s *ImageService) SaveUserPhoto(file multipart.File, userID int64) (string, error) {
	img, err := imaging.Decode(file, imaging.AutoOrientation(true))
	if err != nil {
		return "", utils.NewBadRequestError("Uploaded file is not a valid image")
	}

	resized := imaging.Fill(img, userPhotoSize, userPhotoSize, imaging.Center, imaging.Lanczos)

	filename := fmt.Sprintf("user-%d-%d.jpeg", userID, time.Now().UnixMilli())
	if err := s.store(resized, "users", filename); err != nil {
		return "", err
	}
	return filename, nil
}

// SaveTourCover processes a tour cover upload into a 2000x1333 JPEG and
// returns the stored filename.
func (s *ImageService) SaveTourCover(file multipart.File, tourID int64) (string, error) {
	return s.saveTourImage(file, tourID, "cover")
}

// SaveTourImage processes one gallery image for a tour.
func (s *ImageService) SaveTourImage(file multipart.File, tourID int64, index int) (string, error) {
	return s.saveTourImage(file, tourID, fmt.Sprintf("%d", index))
}

func (s *ImageService) saveTourImage(file multipart.File, tourID int64, suffix string) (string, error) {
	img, err := imaging.Decode(file, imaging.AutoOrientation(true))
	if err != nil {
		return "", utils.NewBadRequestError("Uploaded file is not a valid image")
	}

	resized := imaging.Fill(img, tourImageWidth, tourImageHeight, imaging.Center, imaging.Lanczos)

	filename := fmt.Sprintf("tour-%d-%d-%s.jpeg", tourID, time.Now().UnixMilli(), suffix)
	if err := s.store(resized, "tours", filename); err != nil {
		return "", err
	}
	return filename, nil
}

func (s *ImageService) store(img image.Image, subdir, filename string) error {
	dir := filepath.Join(s.baseDir, subdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return utils.NewInternalServerError(err)
	}

	path := filepath.Join(dir, filename)
	if err := imaging.Save(img, path, imaging.JPEGQuality(jpegQuality)); err != nil {
		return utils.NewInternalServerError(err)
	}

	log.Debug().Str("path", path).Msg("Image stored")
	return nil
}
