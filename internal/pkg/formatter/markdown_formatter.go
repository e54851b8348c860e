package formatter

import (
	"bytes"
	"fmt"
	"strings"
)

const (
	markdownContentType   = "text/markdown; charset=utf-8"
	markdownFileExtension = ".md"
)

type MarkdownFormatter struct{}

func NewMarkdownFormatter() *MarkdownFormatter {
	return &MarkdownFormatter{}
}

// Format turns lines ending with ":" into second-level headings and keeps the rest as is.
func (mf *MarkdownFormatter) Format(title, text string) ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "# %s\n\n", title)
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if isSectionLine(trimmed) {
			fmt.Fprintf(&buf, "## %s\n", strings.TrimSuffix(trimmed, ":"))
			continue
		}
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

func (mf *MarkdownFormatter) ContentType() string {
	return markdownContentType
}

func (mf *MarkdownFormatter) FileExtension() string {
	return markdownFileExtension
}

func isSectionLine(line string) bool {
	return strings.HasSuffix(line, ":") && !strings.HasPrefix(line, "-") && !strings.Contains(strings.TrimSuffix(line, ":"), ":")
}
