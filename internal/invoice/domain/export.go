package domain

import "errors"

// ExportFormat names an export output.
type ExportFormat string

const (
	ExportFormatHTML ExportFormat = "html"
	ExportFormatPDF  ExportFormat = "pdf"
	ExportFormatJSON ExportFormat = "json"
)

// Export is a rendered document ready to be served as a download.
type Export struct {
	Filename    string
	ContentType string
	Body        []byte
}

var (
	ErrUnsupportedExportFormat = errors.New("unsupported_export_format")
	ErrRendererNotConfigured   = errors.New("renderer_not_configured")
)
