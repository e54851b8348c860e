package formatter

import (
	"fmt"

	"github.com/futig/onboarding-bot/internal/entity"
)

// Formatter renders a titled plain-text document into a downloadable file.
type Formatter interface {
	Format(title, plainText string) ([]byte, error)
	ContentType() string
	FileExtension() string
}

// Factory picks a formatter by result format.
type Factory struct {
	pdfFont string
}

type Option func(*Factory)

// WithPDFFont sets the TrueType font the PDF formatter tries first.
func WithPDFFont(path string) Option {
	return func(f *Factory) {
		f.pdfFont = path
	}
}

func NewFactory(opts ...Option) *Factory {
	f := &Factory{}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Factory) Create(format entity.ResultFormat) (Formatter, error) {
	switch format {
	case entity.FormatMarkdown:
		return NewMarkdownFormatter(), nil
	case entity.FormatDOCX:
		return NewDOCXFormatter(), nil
	case entity.FormatPDF:
		return NewPDFFormatter(f.pdfFont), nil
	default:
		return nil, fmt.Errorf("%w: unsupported format %s", entity.ErrInvalidFormat, format)
	}
}

// Render formats text with the formatter of format and names the file after base.
func (f *Factory) Render(format entity.ResultFormat, base, title, text string) (*entity.ReportFile, string, error) {
	fmtr, err := f.Create(format)
	if err != nil {
		return nil, "", err
	}
	data, err := fmtr.Format(title, text)
	if err != nil {
		return nil, "", fmt.Errorf("format %s: %w", format, err)
	}
	return &entity.ReportFile{FileName: base + fmtr.FileExtension(), Data: data}, fmtr.ContentType(), nil
}
