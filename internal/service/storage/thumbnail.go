package storage

import (
	"bytes"
	"fmt"

	"github.com/disintegration/imaging"
)

// Thumbnail renders a JPEG of filename fitted into a size x size box,
// honouring the EXIF orientation written by the capture clients.
func (s *Store) Thumbnail(filename string, size int) ([]byte, error) {
	if err := ValidateName(filename); err != nil {
		return nil, err
	}
	if !s.HasImage(filename) {
		return nil, ErrNotFound
	}
	if size <= 0 {
		return nil, fmt.Errorf("invalid thumbnail size %d", size)
	}

	img, err := imaging.Open(s.ImagePath(filename), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("open image %s: %w", filename, err)
	}

	thumb := imaging.Fit(img, size, size, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(80)); err != nil {
		return nil, fmt.Errorf("encode thumbnail %s: %w", filename, err)
	}
	return buf.Bytes(), nil
}
