package validator

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/futig/onboarding-bot/internal/config"
	"github.com/futig/onboarding-bot/internal/entity"
)

// AllowedExtensions are the spreadsheet formats accepted for a search map.
var AllowedExtensions = map[string]bool{
	".xlsx": true,
	".xls":  true,
}

// Validator validates uploaded documents and reviewer input
type Validator struct {
	cfg config.UploadConfig
}

func NewFileValidator(cfg config.UploadConfig) *Validator {
	return &Validator{cfg: cfg}
}

// ValidateDocument checks the announced name and size before anything is downloaded.
func (v *Validator) ValidateDocument(doc *entity.Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document", entity.ErrMissingField)
	}

	if !HasAllowedExtension(doc.FileName) {
		return fmt.Errorf("%w: %q (allowed: xlsx, xls)", entity.ErrInvalidExtension, filepath.Ext(doc.FileName))
	}

	if v.cfg.MaxFileSize > 0 && doc.Size > v.cfg.MaxFileSize {
		return fmt.Errorf("%w: file '%s' is %d bytes (max %d)", entity.ErrFileTooLarge, doc.FileName, doc.Size, v.cfg.MaxFileSize)
	}

	return nil
}

func (v *Validator) MaxFileSize() int64 {
	return v.cfg.MaxFileSize
}

func HasAllowedExtension(filename string) bool {
	return AllowedExtensions[strings.ToLower(filepath.Ext(filename))]
}

// SanitizeFilename sanitizes a filename for safe storage
func SanitizeFilename(filename string) string {
	filename = filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	replacer := strings.NewReplacer(
		" ", "_",
		"(", "",
		")", "",
		"[", "",
		"]", "",
		"{", "",
		"}", "",
		"..", "",
	)
	filename = replacer.Replace(filename)
	if filename == "" || filename == "." || filename == "/" {
		return "upload"
	}
	return filename
}
