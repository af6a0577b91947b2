package utils

import (
	"fmt"
	"mime/multipart"
	"net/url"
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	// DefaultMaxFileSize is 10MB in bytes
	DefaultMaxFileSize = 10 * 1024 * 1024
	// AllowedReportFormat is PDF
	AllowedReportFormat = ".pdf"
	// fallbackReportName is used when sanitizing leaves nothing usable
	fallbackReportName = "report.pdf"
)

// Upload validation codes
const (
	CodeNoFilePart      = "NO_FILE_PART"
	CodeNoSelectedFile  = "NO_SELECTED_FILE"
	CodeInvalidFileType = "INVALID_FILE_TYPE"
	CodeFileTooLarge    = "FILE_TOO_LARGE"
	CodeInvalidFilename = "INVALID_FILENAME"
)

// FileUploadError represents a file upload validation error
type FileUploadError struct {
	Code    string
	Message string
}

func (e *FileUploadError) Error() string {
	return e.Message
}

// ValidateReportFile checks, in order, that a file part was sent, that it has
// a name, that the extension is pdf (case-insensitive) and that it fits maxSize
func ValidateReportFile(fileHeader *multipart.FileHeader, maxSize int64) error {
	if fileHeader == nil {
		return &FileUploadError{Code: CodeNoFilePart, Message: "No file part"}
	}

	if strings.TrimSpace(fileHeader.Filename) == "" {
		return &FileUploadError{Code: CodeNoSelectedFile, Message: "No selected file"}
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if ext != AllowedReportFormat {
		return &FileUploadError{
			Code:    CodeInvalidFileType,
			Message: "Invalid file type. Please upload a PDF.",
		}
	}

	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}
	if fileHeader.Size > maxSize {
		return &FileUploadError{
			Code:    CodeFileTooLarge,
			Message: fmt.Sprintf("File size exceeds maximum allowed size of %d MB", maxSize/(1024*1024)),
		}
	}

	return nil
}

var asciiFold = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// SanitizeFileName reduces name to a safe flat file name: path components are
// dropped, letters are folded to ASCII, whitespace becomes underscores and
// anything outside [A-Za-z0-9_.-] is removed.
func SanitizeFileName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}

	folded, _, err := transform.String(asciiFold, name)
	if err == nil {
		name = folded
	}
	name = strings.Join(strings.Fields(name), "_")

	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '.', r == '-':
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "._")
}

// StoredReportName builds the on-disk name of a report: "<bookingID>_<name>"
// with both parts sanitized. The result always ends in .pdf.
func StoredReportName(bookingID, originalName string) string {
	base := SanitizeFileName(originalName)
	if !strings.HasSuffix(strings.ToLower(base), AllowedReportFormat) || len(base) == len(AllowedReportFormat) {
		base = fallbackReportName
	}
	return SanitizeFileName(bookingID) + "_" + base
}

// ValidateStoredName rejects names that could escape the storage directory
func ValidateStoredName(name string) error {
	if name == "" {
		return &FileUploadError{Code: CodeInvalidFilename, Message: "Filename is required"}
	}
	if strings.Contains(name, "..") || strings.ContainsAny(name, "/\\") {
		return &FileUploadError{Code: CodeInvalidFilename, Message: "Invalid filename"}
	}
	return nil
}

// ReportURL returns the URL path for downloading a stored report
func ReportURL(filename string) string {
	if filename == "" {
		return ""
	}
	return "/download_report/" + url.PathEscape(filename)
}
