package utils

import (
	"bytes"
	"errors"
	"mime/multipart"
	"net/textproto"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createTestFileHeader creates a mock multipart.FileHeader for testing
func createTestFileHeader(t *testing.T, filename string, size int64, content []byte) *multipart.FileHeader {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="report_pdf"; filename="`+filename+`"`)
	h.Set("Content-Type", "application/pdf")
	part, err := writer.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	reader := multipart.NewReader(body, writer.Boundary())
	form, err := reader.ReadForm(int64(len(content)) + 1024)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })

	require.NotEmpty(t, form.File["report_pdf"])
	fileHeader := form.File["report_pdf"][0]
	// Override size for testing purposes
	fileHeader.Size = size
	return fileHeader
}

func uploadCode(t *testing.T, err error) string {
	t.Helper()
	var uploadErr *FileUploadError
	require.True(t, errors.As(err, &uploadErr), "expected *FileUploadError, got %T", err)
	return uploadErr.Code
}

func TestValidateReportFile_Success(t *testing.T) {
	content := []byte("%PDF-1.4 fake")
	for _, name := range []string{"report.pdf", "REPORT.PDF", "Scan.Pdf", ".pdf"} {
		t.Run(name, func(t *testing.T) {
			fh := createTestFileHeader(t, name, int64(len(content)), content)
			assert.NoError(t, ValidateReportFile(fh, DefaultMaxFileSize))
		})
	}
}

func TestValidateReportFile_MissingPart(t *testing.T) {
	err := ValidateReportFile(nil, DefaultMaxFileSize)
	assert.Equal(t, CodeNoFilePart, uploadCode(t, err))
}

func TestValidateReportFile_EmptyFilename(t *testing.T) {
	fh := &multipart.FileHeader{Filename: "", Size: 10}
	err := ValidateReportFile(fh, DefaultMaxFileSize)
	assert.Equal(t, CodeNoSelectedFile, uploadCode(t, err))
}

func TestValidateReportFile_WrongExtension(t *testing.T) {
	content := []byte("not a pdf")
	for _, name := range []string{"report.png", "report.pdf.exe", "report", "pdf", "report.pdfx"} {
		t.Run(name, func(t *testing.T) {
			fh := createTestFileHeader(t, name, int64(len(content)), content)
			err := ValidateReportFile(fh, DefaultMaxFileSize)
			assert.Equal(t, CodeInvalidFileType, uploadCode(t, err))
			assert.Equal(t, "Invalid file type. Please upload a PDF.", err.Error())
		})
	}
}

func TestValidateReportFile_TooLarge(t *testing.T) {
	content := []byte("%PDF")
	fh := createTestFileHeader(t, "large.pdf", 11*1024*1024, content)
	err := ValidateReportFile(fh, DefaultMaxFileSize)
	assert.Equal(t, CodeFileTooLarge, uploadCode(t, err))
	assert.Contains(t, err.Error(), "10 MB")

	// a zero limit falls back to the default
	assert.Error(t, ValidateReportFile(fh, 0))
}

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"report.pdf", "report.pdf"},
		{"my report.pdf", "my_report.pdf"},
		{"../../etc/passwd.pdf", "passwd.pdf"},
		{`C:\Users\lab\scan.pdf`, "scan.pdf"},
		{"résumé final.pdf", "resume_final.pdf"},
		{"a$b%c&d.pdf", "abcd.pdf"},
		{"..hidden.pdf", "hidden.pdf"},
		{"___", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeFileName(tt.input))
		})
	}
}

func TestStoredReportName(t *testing.T) {
	assert.Equal(t, "b123_report.pdf", StoredReportName("b123", "report.pdf"))
	assert.Equal(t, "b123_lab_result.PDF", StoredReportName("b123", "dir/lab result.PDF"))
	assert.Equal(t, "b123_report.pdf", StoredReportName("b123", "???.pdf"))
	assert.Equal(t, "b123_report.pdf", StoredReportName("../b123", "report.pdf"))
}

func TestValidateStoredName(t *testing.T) {
	assert.NoError(t, ValidateStoredName("b1_report.pdf"))

	for _, name := range []string{"", "../secret.pdf", "a/b.pdf", `a\b.pdf`, "..."} {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, CodeInvalidFilename, uploadCode(t, ValidateStoredName(name)))
		})
	}
}

func TestReportURL(t *testing.T) {
	assert.Equal(t, "", ReportURL(""))
	assert.Equal(t, "/download_report/b1_report.pdf", ReportURL("b1_report.pdf"))
}
