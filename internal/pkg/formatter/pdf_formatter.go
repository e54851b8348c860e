package formatter

import (
	"bytes"
	"os"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

const (
	pdfContentType   = "application/pdf"
	pdfFileExtension = ".pdf"

	// pdfFontName is the gofpdf family name of the UTF-8 font.
	pdfFontName     = "DejaVuSans"
	pdfFallbackFont = "Helvetica"
)

// pdfFontCandidates are probed in order after the configured font path.
var pdfFontCandidates = []string{
	"ttf/DejaVuSans.ttf",
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/TTF/DejaVuSans.ttf",
	"/usr/share/fonts/dejavu/DejaVuSans.ttf",
}

// PDFFormatter lays a summary out on A4 pages. Cyrillic needs a UTF-8 TrueType font;
// without one the text is transliterated so the core font can still show it.
type PDFFormatter struct {
	fontPath string
}

func NewPDFFormatter(fontPath ...string) *PDFFormatter {
	candidates := append(append([]string{}, fontPath...), pdfFontCandidates...)
	for _, path := range candidates {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err == nil {
			return &PDFFormatter{fontPath: path}
		}
	}
	return &PDFFormatter{}
}

func (mf *PDFFormatter) Format(title, text string) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(title, true)
	pdf.AddPage()

	fontName := pdfFallbackFont
	encode := transliterate
	if mf.fontPath != "" {
		pdf.AddUTF8Font(pdfFontName, "", mf.fontPath)
		pdf.AddUTF8Font(pdfFontName, "B", mf.fontPath)
		fontName = pdfFontName
		encode = func(s string) string { return s }
	}

	pdf.SetFont(fontName, "B", 18)
	pdf.MultiCell(0, 9, encode(title), "", "", false)
	pdf.Ln(4)

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if isSectionLine(trimmed) {
			pdf.SetFont(fontName, "B", 14)
			pdf.Ln(2)
			pdf.MultiCell(0, 8, encode(strings.TrimSuffix(trimmed, ":")), "", "", false)
			continue
		}
		pdf.SetFont(fontName, "", 12)
		_, lineHeight := pdf.GetFontSize()
		pdf.MultiCell(0, lineHeight*1.5, encode(line), "", "", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (mf *PDFFormatter) ContentType() string {
	return pdfContentType
}

func (mf *PDFFormatter) FileExtension() string {
	return pdfFileExtension
}

var cyrillicToLatin = map[rune]string{
	'а': "a", 'б': "b", 'в': "v", 'г': "g", 'д': "d", 'е': "e", 'ё': "e", 'ж': "zh",
	'з': "z", 'и': "i", 'й': "y", 'к': "k", 'л': "l", 'м': "m", 'н': "n", 'о': "o",
	'п': "p", 'р': "r", 'с': "s", 'т': "t", 'у': "u", 'ф': "f", 'х': "kh", 'ц': "ts",
	'ч': "ch", 'ш': "sh", 'щ': "shch", 'ъ': "", 'ы': "y", 'ь': "", 'э': "e", 'ю': "yu",
	'я': "ya",
}

// transliterate maps Russian letters to Latin and drops runes the core fonts cannot encode.
func transliterate(s string) string {
	var b strings.Builder
	for _, r := range s {
		lower := r
		if r >= 'А' && r <= 'Я' || r == 'Ё' {
			lower = r + ('а' - 'А')
			if r == 'Ё' {
				lower = 'ё'
			}
		}
		if latin, ok := cyrillicToLatin[lower]; ok {
			if lower != r && latin != "" {
				latin = strings.ToUpper(latin[:1]) + latin[1:]
			}
			b.WriteString(latin)
			continue
		}
		switch {
		case r < 0x80:
			b.WriteRune(r)
		case r == '—' || r == '–':
			b.WriteByte('-')
		case r == '«' || r == '»':
			b.WriteByte('"')
		}
	}
	return b.String()
}
