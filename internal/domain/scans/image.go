package scans

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
)

// Image is the uploaded picture. Data stays in memory for the oracle; Ref is
// where a copy was stored, if anywhere.
type Image struct {
	Name        string `json:"name,omitempty"`
	ContentType string `json:"contentType,omitempty"`
	Data        []byte `json:"-"`
	Ref         string `json:"ref,omitempty"`
}

// Digest is the sha256 of the image bytes, hex encoded.
func (i Image) Digest() string {
	sum := sha256.Sum256(i.Data)
	return hex.EncodeToString(sum[:])
}

func (i Image) Empty() bool { return len(i.Data) == 0 }

// Validate sniffs the bytes and rejects anything that is not an image. The
// sniffed type replaces ContentType. maxBytes <= 0 disables the size check.
func (i *Image) Validate(maxBytes int64) error {
	if i.Empty() {
		return ErrEmptyImage
	}
	if maxBytes > 0 && int64(len(i.Data)) > maxBytes {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrImageTooLarge, len(i.Data), maxBytes)
	}
	ct := http.DetectContentType(i.Data)
	if !strings.HasPrefix(ct, "image/") {
		return fmt.Errorf("%w: detected %s", ErrNotAnImage, ct)
	}
	i.ContentType = ct
	return nil
}
