package formatter

import (
	"bytes"
	"strings"

	"github.com/unidoc/unioffice/document"
	"github.com/unidoc/unioffice/measurement"
)

const (
	docxContentType   = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	docxFileExtension = ".docx"
)

type DOCXFormatter struct{}

func NewDOCXFormatter() *DOCXFormatter {
	return &DOCXFormatter{}
}

// Format writes one paragraph per line. Section lines become Heading2,
// "- " items become indented bullets and blank lines are skipped.
func (mf *DOCXFormatter) Format(title, text string) ([]byte, error) {
	doc := document.New()
	defer doc.Close()
	doc.CoreProperties.SetTitle(title)

	titlePar := doc.AddParagraph()
	titlePar.SetStyle("Heading1")
	titlePar.AddRun().AddText(title)

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		par := doc.AddParagraph()
		switch {
		case isSectionLine(trimmed):
			par.SetStyle("Heading2")
			par.AddRun().AddText(strings.TrimSuffix(trimmed, ":"))
		case strings.HasPrefix(trimmed, "- "):
			par.Properties().SetStartIndent(0.25 * measurement.Inch)
			par.AddRun().AddText("• " + strings.TrimPrefix(trimmed, "- "))
		default:
			par.AddRun().AddText(line)
		}
	}

	var buf bytes.Buffer
	if err := doc.Save(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (mf *DOCXFormatter) ContentType() string {
	return docxContentType
}

func (mf *DOCXFormatter) FileExtension() string {
	return docxFileExtension
}
