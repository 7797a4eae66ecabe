package services

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
)

// Archive is a produced zip ready to be sent to the client
type Archive struct {
	Filename   string
	Data       []byte
	Entries    []string
	ObjectName string // set when a copy was stored in the archive store
}

// ConversionService orchestrates uploads, listing, clearing and conversion
type ConversionService struct {
	store     SessionStore
	converter *BatchConverter
	zip       ZipService
	archives  ArchiveStore
	observer  Observer
	logger    zerolog.Logger
	now       func() time.Time
}

// NewConversionService creates a new conversion service with all dependencies.
// archives may be nil when no archive storage is configured.
func NewConversionService(
	store SessionStore,
	converter *BatchConverter,
	zip ZipService,
	archives ArchiveStore,
	observer Observer,
	logger zerolog.Logger,
) *ConversionService {
	if observer == nil {
		observer = nopObserver{}
	}
	return &ConversionService{
		store:     store,
		converter: converter,
		zip:       zip,
		archives:  archives,
		observer:  observer,
		logger:    logger.With().Str("component", "conversion").Logger(),
		now:       time.Now,
	}
}

// Upload stores files under a freshly created session and returns its id.
// Every upload starts a new session.
func (s *ConversionService) Upload(files []StoredFile) (string, error) {
	if len(files) == 0 {
		return "", ErrNoFiles
	}

	sessionID := s.store.Create()
	if err := s.store.Append(sessionID, files); err != nil {
		_ = s.store.Delete(sessionID)
		return "", err
	}
	s.observer.ObserveUpload(len(files))

	var total int
	for _, f := range files {
		total += len(f.Content)
	}
	s.logger.Info().
		Str("session_id", sessionID).
		Int("files", len(files)).
		Str("size", humanize.Bytes(uint64(total))).
		Msg("Stored upload")

	return sessionID, nil
}

// ListFiles returns the filenames of a session in upload order
func (s *ConversionService) ListFiles(sessionID string) ([]string, error) {
	return s.store.List(sessionID)
}

// DeleteAll empties a session; the id remains usable
func (s *ConversionService) DeleteAll(sessionID string) error {
	if err := s.store.Clear(sessionID); err != nil {
		return err
	}
	s.logger.Info().Str("session_id", sessionID).Msg("Cleared session")
	return nil
}

// ConvertAndZip converts every image of a session and bundles them in one zip
func (s *ConversionService) ConvertAndZip(ctx context.Context, sessionID string) (*Archive, error) {
	start := s.now()

	results, err := s.converter.ConvertSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	data, err := s.zip.CreateZip(results)
	if err != nil {
		return nil, fmt.Errorf("failed to create zip: %w", err)
	}
	s.observer.ObserveArchive(len(data))

	archive := &Archive{
		Filename: ArchiveFilename,
		Data:     data,
		Entries:  make([]string, len(results)),
	}
	for i, r := range results {
		archive.Entries[i] = r.OutputName
	}

	if s.archives != nil {
		objectName := fmt.Sprintf("%s/converted-images-%d.zip", sessionID, start.Unix())
		if err := s.archives.SaveArchive(ctx, objectName, data); err != nil {
			s.logger.Error().Err(err).Str("session_id", sessionID).Msg("Failed to store archive copy")
		} else {
			archive.ObjectName = objectName
		}
	}

	s.logger.Info().
		Str("session_id", sessionID).
		Int("files", len(results)).
		Str("size", humanize.Bytes(uint64(len(data)))).
		Dur("elapsed", s.now().Sub(start)).
		Msg("Converted session")

	return archive, nil
}

// ListArchives returns the stored archive copies of a session
func (s *ConversionService) ListArchives(ctx context.Context, sessionID string) ([]string, error) {
	if s.archives == nil {
		return nil, ErrArchiveStoreDisabled
	}
	return s.archives.ListArchives(ctx, sessionID+"/")
}
