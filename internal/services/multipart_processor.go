package services

import (
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"strings"
)

// MultipartProcessor turns a multipart/form-data body into stored files
type MultipartProcessor struct {
	maxFiles     int
	maxFileBytes int64
}

// NewMultipartProcessor creates a processor with per-request file count and
// per-file size limits. Zero or negative limits disable the check.
func NewMultipartProcessor(maxFiles int, maxFileBytes int64) *MultipartProcessor {
	return &MultipartProcessor{
		maxFiles:     maxFiles,
		maxFileBytes: maxFileBytes,
	}
}

// Process reads every file part of body in order. Parts without a filename
// (plain form fields) are skipped.
func (p *MultipartProcessor) Process(body io.Reader, contentType string) ([]StoredFile, error) {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: error parsing media type: %w", ErrMalformedUpload, err)
	}
	if !strings.HasPrefix(mediaType, "multipart/") {
		return nil, fmt.Errorf("%w: expected multipart body, got %s", ErrNoFiles, mediaType)
	}

	boundary := params["boundary"]
	if boundary == "" {
		return nil, fmt.Errorf("%w: multipart body without boundary", ErrMalformedUpload)
	}
	mr := multipart.NewReader(body, boundary)

	var files []StoredFile
	for {
		part, err := mr.NextPart()
		// A clean end is the bare io.EOF; a body cut short wraps it.
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: error reading part: %w", ErrMalformedUpload, err)
		}

		receivedFileName := clientFilename(part)
		if receivedFileName == "" {
			part.Close()
			continue
		}

		if p.maxFiles > 0 && len(files) >= p.maxFiles {
			part.Close()
			return nil, fmt.Errorf("%w: more than %d files in one upload", ErrTooManyFiles, p.maxFiles)
		}

		data, err := p.readPart(part, receivedFileName)
		part.Close()
		if err != nil {
			return nil, err
		}

		files = append(files, StoredFile{
			Filename: receivedFileName,
			Content:  data,
		})
	}

	if len(files) == 0 {
		return nil, ErrNoFiles
	}
	return files, nil
}

func (p *MultipartProcessor) readPart(part *multipart.Part, filename string) ([]byte, error) {
	var r io.Reader = part
	if p.maxFileBytes > 0 {
		r = io.LimitReader(part, p.maxFileBytes+1)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: error reading part data for %s: %w", ErrMalformedUpload, filename, err)
	}
	if p.maxFileBytes > 0 && int64(len(data)) > p.maxFileBytes {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrFileTooLarge, filename, p.maxFileBytes)
	}
	return data, nil
}

// clientFilename returns the filename exactly as the client sent it.
// part.FileName strips directories; names are sanitised later, when
// output names are derived from them.
func clientFilename(part *multipart.Part) string {
	_, params, err := mime.ParseMediaType(part.Header.Get("Content-Disposition"))
	if err != nil {
		return part.FileName()
	}
	return params["filename"]
}
