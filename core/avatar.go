package core

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
)

// MaxAvatarSize is the largest accepted avatar upload.
const MaxAvatarSize = 2 * 1024 * 1024

// AllowedAvatarTypes lists the accepted avatar content types.
var AllowedAvatarTypes = []string{
	"image/jpeg",
	"image/png",
	"image/gif",
	"image/webp",
}

// AvatarFile is an image about to be uploaded
type AvatarFile struct {
	Name        string
	ContentType string
	Size        int64
	Content     io.Reader
}

// Validate checks the content type and size. It never reads Content.
func (f AvatarFile) Validate() error {
	if f.Content == nil || f.Name == "" {
		return ErrInvalidFile
	}
	if !allowedAvatarType(f.ContentType) {
		return fmt.Errorf("%w: %q", ErrFileType, f.ContentType)
	}
	if f.Size <= 0 {
		return ErrInvalidFile
	}
	if f.Size > MaxAvatarSize {
		return fmt.Errorf("%w: %d bytes", ErrFileTooLarge, f.Size)
	}
	return nil
}

func allowedAvatarType(ct string) bool {
	for _, t := range AllowedAvatarTypes {
		if t == ct {
			return true
		}
	}
	return false
}

// SniffContentType detects the content type from the head of r. The
// returned reader yields the full content including the sniffed bytes.
func SniffContentType(r io.Reader) (string, io.Reader, error) {
	br := bufio.NewReaderSize(r, 512)
	head, err := br.Peek(512)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return "", nil, err
	}
	return http.DetectContentType(head), br, nil
}
