package services

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
)

// ArchiveFilename is the attachment name of every produced archive
const ArchiveFilename = "converted-images.zip"

// DeflateZipService builds deflate-compressed zip archives in memory
type DeflateZipService struct {
	level int
	now   func() time.Time
}

// NewDeflateZipService creates a zip service. Encoded images rarely shrink much,
// so callers usually pick flate.BestSpeed.
func NewDeflateZipService(level int) *DeflateZipService {
	return &DeflateZipService{level: level, now: time.Now}
}

// WriteZip streams an archive with one entry per result, in result order
func (z *DeflateZipService) WriteZip(w io.Writer, results []ConversionResult) error {
	zipWriter := zip.NewWriter(w)
	zipWriter.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, z.level)
	})

	modified := z.now()
	for _, result := range results {
		f, err := zipWriter.CreateHeader(&zip.FileHeader{
			Name:     result.OutputName,
			Method:   zip.Deflate,
			Modified: modified,
		})
		if err != nil {
			zipWriter.Close()
			return fmt.Errorf("failed to create zip entry %s: %w", result.OutputName, err)
		}
		if _, err := f.Write(result.Data); err != nil {
			zipWriter.Close()
			return fmt.Errorf("failed to write zip entry %s: %w", result.OutputName, err)
		}
	}

	if err := zipWriter.Close(); err != nil {
		return fmt.Errorf("failed to finalize zip: %w", err)
	}
	return nil
}

// CreateZip creates a zip archive from conversion results
func (z *DeflateZipService) CreateZip(results []ConversionResult) ([]byte, error) {
	var buf bytes.Buffer
	if err := z.WriteZip(&buf, results); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
