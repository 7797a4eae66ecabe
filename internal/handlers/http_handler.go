package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/ahmad-alkadri/luna-converter/internal/services"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// ConversionAPI is the core the handlers call into
type ConversionAPI interface {
	Upload(files []services.StoredFile) (string, error)
	ListFiles(sessionID string) ([]string, error)
	DeleteAll(sessionID string) error
	ConvertAndZip(ctx context.Context, sessionID string) (*services.Archive, error)
	ListArchives(ctx context.Context, sessionID string) ([]string, error)
}

// UploadProcessor extracts uploaded files from a request body
type UploadProcessor interface {
	Process(body io.Reader, contentType string) ([]services.StoredFile, error)
}

// ResponseFormatter formats HTTP responses
type ResponseFormatter interface {
	FormatUploadResponse(sessionID string) map[string]any
	FormatListResponse(files []string) map[string]any
	FormatDeleteResponse() map[string]any
	FormatArchivesResponse(sessionID string, archives []string) map[string]any
	FormatError(message string) map[string]any
}

// HeaderArchiveObject names the stored copy of an archive, when one was kept
const HeaderArchiveObject = "X-Archive-Object"

const (
	msgSessionNotFound = "Session not found"
	msgNothingToFetch  = "No files to convert"
)

type sessionRequest struct {
	SessionID string `json:"session_id" form:"session_id"`
}

// HTTPHandler handles HTTP requests and responses
type HTTPHandler struct {
	service           ConversionAPI
	processor         UploadProcessor
	responseFormatter ResponseFormatter
	logger            zerolog.Logger
}

// NewHTTPHandler creates a new HTTP handler with dependencies
func NewHTTPHandler(
	service ConversionAPI,
	processor UploadProcessor,
	responseFormatter ResponseFormatter,
	logger zerolog.Logger,
) *HTTPHandler {
	return &HTTPHandler{
		service:           service,
		processor:         processor,
		responseFormatter: responseFormatter,
		logger:            logger.With().Str("component", "http").Logger(),
	}
}

// Formatter returns the formatter used for response and error bodies
func (h *HTTPHandler) Formatter() ResponseFormatter {
	return h.responseFormatter
}

// Register mounts the conversion routes on e
func (h *HTTPHandler) Register(e *echo.Echo) {
	e.POST("/upload", h.UploadHandler)
	e.GET("/list-files", h.ListFilesHandler)
	e.POST("/delete-all", h.DeleteAllHandler)
	e.POST("/convert-and-zip", h.ConvertAndZipHandler)
	e.GET("/archives", h.ListArchivesHandler)
}

// UploadHandler stores the uploaded files under a new session
func (h *HTTPHandler) UploadHandler(c echo.Context) error {
	req := c.Request()
	defer req.Body.Close()

	files, err := h.processor.Process(req.Body, req.Header.Get(echo.HeaderContentType))
	if err != nil {
		return h.mapError(err, msgSessionNotFound)
	}

	sessionID, err := h.service.Upload(files)
	if err != nil {
		return h.mapError(err, msgSessionNotFound)
	}

	return c.JSON(http.StatusOK, h.responseFormatter.FormatUploadResponse(sessionID))
}

// ListFilesHandler returns the filenames stored in a session
func (h *HTTPHandler) ListFilesHandler(c echo.Context) error {
	sessionID := c.QueryParam("session_id")
	if sessionID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Missing session_id query parameter")
	}

	files, err := h.service.ListFiles(sessionID)
	if err != nil {
		return h.mapError(err, msgSessionNotFound)
	}

	return c.JSON(http.StatusOK, h.responseFormatter.FormatListResponse(files))
}

// DeleteAllHandler removes every file of a session
func (h *HTTPHandler) DeleteAllHandler(c echo.Context) error {
	sessionID, err := h.sessionID(c)
	if err != nil {
		return err
	}

	if err := h.service.DeleteAll(sessionID); err != nil {
		return h.mapError(err, msgSessionNotFound)
	}

	return c.JSON(http.StatusOK, h.responseFormatter.FormatDeleteResponse())
}

// ConvertAndZipHandler converts a session's images and returns them as a zip attachment
func (h *HTTPHandler) ConvertAndZipHandler(c echo.Context) error {
	sessionID, err := h.sessionID(c)
	if err != nil {
		return err
	}

	archive, err := h.service.ConvertAndZip(c.Request().Context(), sessionID)
	if err != nil {
		return h.mapError(err, msgNothingToFetch)
	}

	header := c.Response().Header()
	header.Set(echo.HeaderContentDisposition, "attachment; filename="+archive.Filename)
	if archive.ObjectName != "" {
		header.Set(HeaderArchiveObject, archive.ObjectName)
	}
	return c.Blob(http.StatusOK, "application/zip", archive.Data)
}

// ListArchivesHandler lists archive copies kept in object storage for a session
func (h *HTTPHandler) ListArchivesHandler(c echo.Context) error {
	sessionID := c.QueryParam("session_id")
	if sessionID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Missing session_id query parameter")
	}

	archives, err := h.service.ListArchives(c.Request().Context(), sessionID)
	if err != nil {
		return h.mapError(err, msgSessionNotFound)
	}

	return c.JSON(http.StatusOK, h.responseFormatter.FormatArchivesResponse(sessionID, archives))
}

// sessionID reads session_id from a JSON or form body, falling back to the query string
func (h *HTTPHandler) sessionID(c echo.Context) (string, error) {
	var req sessionRequest
	if err := (&echo.DefaultBinder{}).BindBody(c, &req); err != nil {
		return "", err
	}
	if req.SessionID == "" {
		req.SessionID = c.QueryParam("session_id")
	}
	if req.SessionID == "" {
		return "", echo.NewHTTPError(http.StatusBadRequest, "Missing session_id")
	}
	return req.SessionID, nil
}

// mapError converts service errors to HTTP errors. notFound is the message used
// for unknown or empty sessions.
func (h *HTTPHandler) mapError(err error, notFound string) error {
	var httpErr *echo.HTTPError
	switch {
	case errors.As(err, &httpErr):
		return httpErr
	case errors.Is(err, services.ErrSessionNotFound), errors.Is(err, services.ErrEmptySession):
		return echo.NewHTTPError(http.StatusNotFound, notFound).SetInternal(err)
	case errors.Is(err, services.ErrArchiveStoreDisabled):
		return echo.NewHTTPError(http.StatusNotFound, "Archive storage is not enabled").SetInternal(err)
	case errors.Is(err, services.ErrDecode):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error()).SetInternal(err)
	case errors.Is(err, services.ErrEncode):
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to encode image").SetInternal(err)
	case errors.Is(err, services.ErrNoFiles):
		return echo.NewHTTPError(http.StatusBadRequest, "No files uploaded").SetInternal(err)
	case errors.Is(err, services.ErrMalformedUpload):
		return echo.NewHTTPError(http.StatusBadRequest, "Malformed upload request").SetInternal(err)
	case errors.Is(err, services.ErrFileTooLarge), errors.Is(err, services.ErrTooManyFiles):
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, err.Error()).SetInternal(err)
	case errors.Is(err, context.DeadlineExceeded):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Conversion timed out").SetInternal(err)
	default:
		h.logger.Error().Err(err).Msg("Unhandled service error")
		return echo.NewHTTPError(http.StatusInternalServerError, "Internal server error").SetInternal(err)
	}
}
