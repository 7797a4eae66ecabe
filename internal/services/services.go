package services

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	// ErrSessionNotFound is returned for an unknown session id
	ErrSessionNotFound = errors.New("session not found")
	// ErrEmptySession is returned when a known session holds no files
	ErrEmptySession = errors.New("session has no files")
	// ErrDecode is returned when uploaded bytes are not a decodable image
	ErrDecode = errors.New("image decode failed")
	// ErrEncode is returned when re-encoding to the target format fails
	ErrEncode = errors.New("image encode failed")
	// ErrNoFiles is returned when an upload carries no file parts
	ErrNoFiles = errors.New("no files uploaded")
	// ErrMalformedUpload is returned when an upload body or its content type cannot be parsed
	ErrMalformedUpload = errors.New("malformed upload")
	// ErrFileTooLarge is returned when a single upload part exceeds the size limit
	ErrFileTooLarge = errors.New("file too large")
	// ErrTooManyFiles is returned when a session would exceed the file count limit
	ErrTooManyFiles = errors.New("too many files")
	// ErrArchiveStoreDisabled is returned when no archive sink is configured
	ErrArchiveStoreDisabled = errors.New("archive storage is not configured")
)

// StoredFile is one uploaded image as received from the client
type StoredFile struct {
	Filename string
	Content  []byte
}

// ConversionResult is one converted image ready to be archived
type ConversionResult struct {
	OutputName string
	Data       []byte
}

// SessionStore holds uploaded files grouped by session
type SessionStore interface {
	Create() string
	Append(sessionID string, files []StoredFile) error
	List(sessionID string) ([]string, error)
	Get(sessionID string) ([]StoredFile, error)
	Clear(sessionID string) error
	Delete(sessionID string) error
	Expire(idle time.Duration) int
	Len() int
}

// Codec converts a single image to the configured target format
type Codec interface {
	Convert(content []byte, filename string) (ConversionResult, error)
	Format() string
	Extension() string
}

// ZipService packages conversion results into a zip archive
type ZipService interface {
	WriteZip(w io.Writer, results []ConversionResult) error
	CreateZip(results []ConversionResult) ([]byte, error)
}

// ArchiveStore keeps copies of produced archives outside the process
type ArchiveStore interface {
	SaveArchive(ctx context.Context, objectName string, data []byte) error
	ListArchives(ctx context.Context, prefix string) ([]string, error)
}

// IDGenerator generates unique identifiers
type IDGenerator interface {
	Generate() string
}

// Observer receives measurements from the conversion pipeline
type Observer interface {
	ObserveUpload(files int)
	ObserveConversion(format string, d time.Duration, err error)
	ObserveArchive(size int)
	ObserveExpired(n int)
}

type nopObserver struct{}

func (nopObserver) ObserveUpload(int)                              {}
func (nopObserver) ObserveConversion(string, time.Duration, error) {}
func (nopObserver) ObserveArchive(int)                             {}
func (nopObserver) ObserveExpired(int)                             {}
