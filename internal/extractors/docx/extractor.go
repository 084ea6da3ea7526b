// Package docx extracts text from Office Open XML word processing
// documents. A .docx file is a zip archive; the body text lives in
// word/document.xml as a sequence of paragraphs.
package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/archivo-labs/archivo-cli/internal/core/domain"
	"github.com/archivo-labs/archivo-cli/internal/core/ports/driven"
	"github.com/archivo-labs/archivo-cli/internal/extractors"
)

const documentPath = "word/document.xml"

// Extractor pulls paragraph text out of .docx archives.
type Extractor struct{}

var _ driven.Extractor = (*Extractor)(nil)

func New() *Extractor {
	return &Extractor{}
}

func (e *Extractor) SupportedMIMETypes() []string {
	return []string{"application/vnd.openxmlformats-officedocument.wordprocessingml.document"}
}

func (e *Extractor) Priority() int {
	return 10
}

func (e *Extractor) Extract(_ context.Context, ref domain.DocumentRef, content []byte) (string, error) {
	reader, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("open docx archive %q: %w", ref.Path, domain.ErrExtraction)
	}

	var docFile *zip.File
	for _, f := range reader.File {
		if f.Name == documentPath {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return "", fmt.Errorf("%q has no %s: %w", ref.Path, documentPath, domain.ErrExtraction)
	}

	rc, err := docFile.Open()
	if err != nil {
		return "", fmt.Errorf("open %s in %q: %w", documentPath, ref.Path, domain.ErrExtraction)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return "", fmt.Errorf("read %s in %q: %w", documentPath, ref.Path, domain.ErrExtraction)
	}

	text, err := parseDocumentXML(data)
	if err != nil {
		return "", fmt.Errorf("parse %q: %w", ref.Path, domain.ErrExtraction)
	}

	text = extractors.NormalizeText(text)
	if text == "" {
		return "", fmt.Errorf("%q: %w", ref.Path, domain.ErrNoContent)
	}
	return text, nil
}

type documentXML struct {
	Body struct {
		Paragraphs []paragraph `xml:"p"`
	} `xml:"body"`
}

type paragraph struct {
	Runs []run `xml:"r"`
}

type run struct {
	Text string
}

// UnmarshalXML walks the run's children in document order, so breaks and
// tabs land exactly where they sit between text elements.
func (r *run) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var b strings.Builder
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				var s string
				if err := d.DecodeElement(&s, &t); err != nil {
					return err
				}
				b.WriteString(s)
			case "br", "cr":
				b.WriteByte('\n')
				if err := d.Skip(); err != nil {
					return err
				}
			case "tab":
				b.WriteByte('\t')
				if err := d.Skip(); err != nil {
					return err
				}
			default:
				if err := d.Skip(); err != nil {
					return err
				}
			}
		case xml.EndElement:
			if t.Name == start.Name {
				r.Text = b.String()
				return nil
			}
		}
	}
}

func parseDocumentXML(data []byte) (string, error) {
	var doc documentXML
	if err := xml.Unmarshal(data, &doc); err != nil {
		return "", err
	}

	var b strings.Builder
	for _, p := range doc.Body.Paragraphs {
		var line strings.Builder
		for _, r := range p.Runs {
			line.WriteString(r.Text)
		}
		if line.Len() > 0 {
			b.WriteString(line.String())
			b.WriteByte('\n')
		}
	}
	return b.String(), nil
}
