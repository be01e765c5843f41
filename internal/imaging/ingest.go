package imaging

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"

	"zarab-collections/internal/domain"
	"zarab-collections/internal/telemetry"

	"github.com/gabriel-vasile/mimetype"
)

// MaxImageSize is the largest accepted upload, 2 MiB
const MaxImageSize = 2 * 1024 * 1024

const (
	MessageMissing = "Please upload a product image"
	MessageSize    = "Image size must be less than 2MB"
	MessageType    = "Please upload a PNG, JPG, GIF or WebP image"
	MessageRead    = "Failed to read image file"
)

// Extension allowlist mapped to the MIME type written into the data URL
var allowedTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// File is one selected upload
type File interface {
	Name() string
	Size() int64
	Open() (io.ReadCloser, error)
}

// EncodedImage is a self-contained data URL
type EncodedImage struct {
	DataURL  string
	MimeType string
	Size     int
}

// Callbacks receive the single outcome of Ingest. Exactly one of them runs.
type Callbacks struct {
	OnImage func(EncodedImage)
	OnError func(error)
}

type multipartFile struct {
	header *multipart.FileHeader
}

// FromMultipart adapts an uploaded multipart part
func FromMultipart(header *multipart.FileHeader) File {
	if header == nil {
		return nil
	}
	return multipartFile{header: header}
}

func (f multipartFile) Name() string { return f.header.Filename }
func (f multipartFile) Size() int64  { return f.header.Size }
func (f multipartFile) Open() (io.ReadCloser, error) {
	return f.header.Open()
}

// FirstFile picks the upload to ingest from a multipart form field.
// Extra files are ignored so the choice stays deterministic.
func FirstFile(form *multipart.Form, field string) File {
	if form == nil {
		return nil
	}
	files := form.File[field]
	if len(files) == 0 {
		return nil
	}
	return FromMultipart(files[0])
}

type bytesFile struct {
	name string
	data []byte
}

// FromBytes wraps in-memory content as a File
func FromBytes(name string, data []byte) File {
	return bytesFile{name: name, data: data}
}

func (f bytesFile) Name() string { return f.name }
func (f bytesFile) Size() int64  { return int64(len(f.data)) }
func (f bytesFile) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(f.data)), nil
}

func invalid(reason, message string, err error) error {
	return &domain.ValidationError{Field: "image", Reason: reason, Message: message, Err: err}
}

// Encode validates file and converts it to a data URL. Checks run in order:
// presence, size, extension, read, sniffed content.
func Encode(ctx context.Context, file File) (EncodedImage, error) {
	if file == nil {
		return EncodedImage{}, invalid(domain.ReasonMissing, MessageMissing, nil)
	}

	if file.Size() > MaxImageSize {
		return EncodedImage{}, invalid(domain.ReasonSize, MessageSize, nil)
	}

	mimeType, ok := allowedTypes[strings.ToLower(filepath.Ext(file.Name()))]
	if !ok {
		return EncodedImage{}, invalid(domain.ReasonType, MessageType, nil)
	}

	if err := ctx.Err(); err != nil {
		return EncodedImage{}, invalid(domain.ReasonRead, MessageRead, err)
	}

	data, err := readLimited(file)
	if err != nil {
		return EncodedImage{}, invalid(domain.ReasonRead, MessageRead, err)
	}

	// The declared size can lie, so enforce the limit on what was read
	if len(data) > MaxImageSize {
		return EncodedImage{}, invalid(domain.ReasonSize, MessageSize, nil)
	}

	if !strings.HasPrefix(mimetype.Detect(data).String(), "image/") {
		return EncodedImage{}, invalid(domain.ReasonType, MessageType, nil)
	}

	return EncodedImage{
		DataURL:  "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data),
		MimeType: mimeType,
		Size:     len(data),
	}, nil
}

func readLimited(file File) ([]byte, error) {
	rc, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	return io.ReadAll(io.LimitReader(rc, MaxImageSize+1))
}

// Ingest runs Encode in its own goroutine and delivers the outcome through
// exactly one callback, exactly once. The returned channel closes afterwards.
func Ingest(ctx context.Context, file File, cb Callbacks) <-chan struct{} {
	done := make(chan struct{})

	go func() {
		defer close(done)

		image, err := Encode(ctx, file)
		if err != nil {
			telemetry.ImageIngests.WithLabelValues(outcome(err)).Inc()
			if cb.OnError != nil {
				cb.OnError(err)
			}
			return
		}

		telemetry.ImageIngests.WithLabelValues("ok").Inc()
		if cb.OnImage != nil {
			cb.OnImage(image)
		}
	}()

	return done
}

func outcome(err error) string {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return ve.Reason
	}
	return "error"
}
