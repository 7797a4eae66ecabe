package handlers

// DefaultResponseFormatter handles formatting HTTP responses
type DefaultResponseFormatter struct{}

// NewDefaultResponseFormatter creates a new response formatter
func NewDefaultResponseFormatter() *DefaultResponseFormatter {
	return &DefaultResponseFormatter{}
}

// FormatUploadResponse formats the response for the upload endpoint
func (f *DefaultResponseFormatter) FormatUploadResponse(sessionID string) map[string]any {
	return map[string]any{
		"message":    "Files stored!",
		"session_id": sessionID,
	}
}

// FormatListResponse formats the response for the list-files endpoint
func (f *DefaultResponseFormatter) FormatListResponse(files []string) map[string]any {
	if files == nil {
		files = []string{}
	}
	return map[string]any{
		"files": files,
	}
}

// FormatDeleteResponse formats the response for the delete-all endpoint
func (f *DefaultResponseFormatter) FormatDeleteResponse() map[string]any {
	return map[string]any{
		"message": "All files removed!",
	}
}

// FormatArchivesResponse formats the response for the archives endpoint
func (f *DefaultResponseFormatter) FormatArchivesResponse(sessionID string, archives []string) map[string]any {
	if archives == nil {
		archives = []string{}
	}
	return map[string]any{
		"session_id": sessionID,
		"archives":   archives,
	}
}

// FormatError formats an error body
func (f *DefaultResponseFormatter) FormatError(message string) map[string]any {
	return map[string]any{
		"detail": message,
	}
}
