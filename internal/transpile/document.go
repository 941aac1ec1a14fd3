package transpile

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strings"

	"github.com/inful/mdfp"
)

// Delimiter is the line that ends a document's front matter.
const Delimiter = "---"

// Rendered is the result of rendering one document.
type Rendered struct {
	// Body holds the concatenated fragments of every line after the delimiter.
	Body []byte
	// FrontMatter holds the raw lines before the delimiter.
	FrontMatter string
	// HasDelimiter is false when no line equals Delimiter; Body is then empty.
	HasDelimiter bool
	// Lines counts converted lines.
	Lines int
	// Fingerprint identifies the document's front matter and raw body.
	Fingerprint string
}

// RenderDocument reads a document and renders every line strictly after the first
// Delimiter line. A document without a delimiter renders to an empty body: front
// matter is never assumed absent.
func RenderDocument(r io.Reader, conv Converter) (*Rendered, error) {
	var (
		front strings.Builder
		raw   strings.Builder
		body  bytes.Buffer
		res   Rendered
	)
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if len(line) > 0 {
			text := strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r")
			switch {
			case res.HasDelimiter:
				body.WriteString(conv.Convert(text))
				raw.WriteString(text)
				raw.WriteByte('\n')
				res.Lines++
			case text == Delimiter:
				res.HasDelimiter = true
			default:
				front.WriteString(text)
				front.WriteByte('\n')
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
	}
	res.Body = body.Bytes()
	res.FrontMatter = front.String()
	res.Fingerprint = mdfp.CalculateFingerprintFromParts(res.FrontMatter, raw.String())
	return &res, nil
}
