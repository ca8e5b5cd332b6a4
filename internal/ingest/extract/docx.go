package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// DOCX reads the main document part of a Word archive. The .doc extension
// is claimed too but only OOXML payloads parse; legacy binary files surface
// as extraction errors.
type DOCX struct{}

func NewDOCX() *DOCX { return &DOCX{} }

func (d *DOCX) Extensions() []string {
	return []string{".docx", ".doc"}
}

func (d *DOCX) Extract(_ context.Context, f File) (string, error) {
	reader, err := zip.NewReader(bytes.NewReader(f.Content), int64(len(f.Content)))
	if err != nil {
		return "", fmt.Errorf("%w: %s is not a Word archive: %v", ErrExtraction, f.Name, err)
	}
	text, err := documentText(reader)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrExtraction, f.Name, err)
	}
	return text, nil
}

// documentXML mirrors the parts of word/document.xml we read.
type documentXML struct {
	Body struct {
		Paragraphs []struct {
			Runs []struct {
				Text []struct {
					Content string `xml:",chardata"`
				} `xml:"t"`
			} `xml:"r"`
		} `xml:"p"`
	} `xml:"body"`
}

func documentText(reader *zip.Reader) (string, error) {
	for _, file := range reader.File {
		if file.Name != "word/document.xml" {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return "", err
		}
		raw, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			return "", err
		}

		var doc documentXML
		if err := xml.Unmarshal(raw, &doc); err != nil {
			return "", err
		}

		var b strings.Builder
		for i, para := range doc.Body.Paragraphs {
			if i > 0 {
				b.WriteString("\n")
			}
			for _, run := range para.Runs {
				for _, t := range run.Text {
					b.WriteString(t.Content)
				}
			}
		}
		return strings.TrimSpace(b.String()), nil
	}
	return "", fmt.Errorf("missing word/document.xml")
}
