package documents

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/xuri/excelize/v2"
)

// Supported content types.
const (
	ContentTypePDF  = "application/pdf"
	ContentTypeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	ContentTypeText = "text/plain"
)

var extensionTypes = map[string]string{
	".pdf":  ContentTypePDF,
	".docx": ContentTypeDOCX,
	".xlsx": ContentTypeXLSX,
	".txt":  ContentTypeText,
}

// Supported reports whether text can be extracted from the content type.
func Supported(contentType string) bool {
	switch contentType {
	case ContentTypePDF, ContentTypeDOCX, ContentTypeXLSX, ContentTypeText:
		return true
	}
	return false
}

// DetectContentType resolves the content type of an upload. The filename
// extension wins, then an explicit part header, then content sniffing.
func DetectContentType(header, filename string, data []byte) string {
	if ct, ok := extensionTypes[strings.ToLower(filepath.Ext(filename))]; ok {
		return ct
	}

	header = strings.TrimSpace(header)
	if header != "" && header != "application/octet-stream" {
		if mt, _, err := mime.ParseMediaType(header); err == nil {
			return mt
		}
	}

	mt, _, _ := mime.ParseMediaType(http.DetectContentType(data))
	return mt
}

// ExtractText returns the plain text of a document. Failures are logged and
// yield an empty string, which callers treat as unreadable.
func ExtractText(logger *slog.Logger, data []byte, contentType string) string {
	var (
		text string
		err  error
	)

	switch contentType {
	case ContentTypePDF:
		text, err = extractPDF(data)
	case ContentTypeDOCX:
		text, err = extractDOCX(data)
	case ContentTypeXLSX:
		text, err = extractXLSX(data)
	case ContentTypeText:
		text, err = extractPlain(data)
	default:
		err = ErrUnsupportedType
	}

	if err != nil {
		logger.Warn("text extraction failed", "content_type", contentType, "error", err)
		return ""
	}

	return strings.TrimSpace(text)
}

func extractPlain(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(data) {
		return "", errors.New("text is not valid UTF-8")
	}
	return string(data), nil
}

func extractPDF(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf: %v", r)
		}
	}()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(bytes.NewReader(data), conf)
	if err != nil {
		return "", err
	}
	if err := api.ValidateContext(ctx); err != nil {
		return "", err
	}

	pages := make([]string, 0, ctx.PageCount)
	for i := 1; i <= ctx.PageCount; i++ {
		r, err := pdfcpu.ExtractPageContent(ctx, i)
		if err != nil {
			return "", err
		}
		if r == nil {
			continue
		}
		content, err := io.ReadAll(r)
		if err != nil {
			return "", err
		}
		if page := contentStreamText(content); page != "" {
			pages = append(pages, page)
		}
	}

	return strings.Join(pages, "\n"), nil
}

// contentStreamText collects the string operands of the text-showing
// operators in a PDF content stream. Positioning operators start new lines.
func contentStreamText(content []byte) string {
	var (
		out     strings.Builder
		line    strings.Builder
		pending []string
	)

	flush := func() {
		if s := strings.TrimSpace(line.String()); s != "" {
			if out.Len() > 0 {
				out.WriteByte('\n')
			}
			out.WriteString(s)
		}
		line.Reset()
	}

	for i := 0; i < len(content); {
		c := content[i]
		switch {
		case c == '(':
			s, n := readLiteral(content[i:])
			pending = append(pending, s)
			i += n
		case c == '<' && i+1 < len(content) && content[i+1] == '<':
			i += 2
		case c == '<':
			s, n := readHex(content[i:])
			pending = append(pending, s)
			i += n
		case c == '[' || c == ']':
			i++
		case isDelimiter(c):
			i++
		default:
			j := i
			for j < len(content) && !isDelimiter(content[j]) && content[j] != '(' && content[j] != '<' && content[j] != '[' && content[j] != ']' {
				j++
			}
			if j == i {
				j++
			}
			switch string(content[i:j]) {
			case "Tj", "TJ":
				for _, s := range pending {
					line.WriteString(s)
				}
				pending = pending[:0]
			case "'", "\"":
				flush()
				for _, s := range pending {
					line.WriteString(s)
				}
				pending = pending[:0]
			case "Td", "TD", "T*", "ET":
				flush()
			}
			if isOperator(content[i:j]) {
				pending = pending[:0]
			}
			i = j
		}
	}
	flush()

	return out.String()
}

func isDelimiter(c byte) bool {
	switch c {
	case ' ', '\t', '\r', '\n', '\f', 0, '/', '{', '}', '>':
		return true
	}
	return false
}

func isOperator(tok []byte) bool {
	if len(tok) == 0 {
		return false
	}
	c := tok[0]
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || c == '\'' || c == '"' || c == '*'
}

func readLiteral(b []byte) (string, int) {
	var (
		out   []byte
		depth = 0
	)

	i := 0
	for ; i < len(b); i++ {
		c := b[i]
		switch c {
		case '(':
			depth++
			if depth == 1 {
				continue
			}
		case ')':
			depth--
			if depth == 0 {
				return decodePDFString(out), i + 1
			}
		case '\\':
			if i+1 >= len(b) {
				continue
			}
			i++
			switch e := b[i]; e {
			case 'n':
				out = append(out, '\n')
			case 'r', 't', 'b', 'f':
				out = append(out, ' ')
			case '\r', '\n':
			default:
				if e >= '0' && e <= '7' {
					v := 0
					k := 0
					for ; k < 3 && i+k < len(b) && b[i+k] >= '0' && b[i+k] <= '7'; k++ {
						v = v*8 + int(b[i+k]-'0')
					}
					out = append(out, byte(v))
					i += k - 1
				} else {
					out = append(out, e)
				}
			}
			continue
		}
		out = append(out, c)
	}

	return decodePDFString(out), i
}

func readHex(b []byte) (string, int) {
	var (
		out []byte
		hi  = -1
	)

	i := 1
	for ; i < len(b) && b[i] != '>'; i++ {
		v := hexValue(b[i])
		if v < 0 {
			continue
		}
		if hi < 0 {
			hi = v
			continue
		}
		out = append(out, byte(hi<<4|v))
		hi = -1
	}
	if hi >= 0 {
		out = append(out, byte(hi<<4))
	}

	return decodePDFString(out), i + 1
}

func hexValue(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10
	}
	return -1
}

// decodePDFString interprets UTF-16BE strings with a byte order mark and
// falls back to UTF-8, then to Latin-1.
func decodePDFString(b []byte) string {
	if len(b) >= 2 && b[0] == 0xfe && b[1] == 0xff {
		units := make([]uint16, 0, (len(b)-2)/2)
		for i := 2; i+1 < len(b); i += 2 {
			units = append(units, uint16(b[i])<<8|uint16(b[i+1]))
		}
		return string(utf16.Decode(units))
	}
	if utf8.Valid(b) {
		return string(b)
	}
	runes := make([]rune, len(b))
	for i, c := range b {
		runes[i] = rune(c)
	}
	return string(runes)
}

func extractDOCX(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	var doc *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			doc = f
			break
		}
	}
	if doc == nil {
		return "", errors.New("docx: word/document.xml not found")
	}

	rc, err := doc.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	return wordText(rc)
}

// wordText walks WordprocessingML and returns one line per paragraph.
func wordText(r io.Reader) (string, error) {
	var (
		paragraphs []string
		current    strings.Builder
		inText     bool
	)

	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				current.WriteByte(' ')
			case "br", "cr":
				current.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				paragraphs = append(paragraphs, current.String())
				current.Reset()
			}
		case xml.CharData:
			if inText {
				current.Write(t)
			}
		}
	}
	if current.Len() > 0 {
		paragraphs = append(paragraphs, current.String())
	}

	return strings.Join(paragraphs, "\n"), nil
}

func extractXLSX(data []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	defer f.Close()

	var lines []string
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", err
		}
		for _, row := range rows {
			lines = append(lines, strings.Join(row, " "))
		}
	}

	return strings.Join(lines, "\n"), nil
}
