package ingest

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"strings"
)

// documentXML mirrors the parts of word/document.xml we care about:
// paragraphs containing runs containing text elements.
type documentXML struct {
	Body struct {
		Paragraphs []paragraph `xml:"p"`
	} `xml:"body"`
}

type paragraph struct {
	Runs []run `xml:"r"`
}

type run struct {
	Text []textElement `xml:"t"`
}

type textElement struct {
	Content string `xml:",chardata"`
}

// extractDocxText opens a .docx archive and joins the text of its paragraphs
// with newlines. Formatting, tables and headers are ignored.
func extractDocxText(path string) (string, error) {
	reader, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("open docx archive: %w", err)
	}
	defer reader.Close()

	for _, file := range reader.File {
		if file.Name != "word/document.xml" {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return "", fmt.Errorf("open document.xml: %w", err)
		}
		defer rc.Close()

		var doc documentXML
		if err := xml.NewDecoder(rc).Decode(&doc); err != nil {
			return "", fmt.Errorf("parse document.xml: %w", err)
		}
		return joinParagraphs(doc), nil
	}

	return "", fmt.Errorf("no word/document.xml in %s", path)
}

func joinParagraphs(doc documentXML) string {
	paragraphs := make([]string, 0, len(doc.Body.Paragraphs))
	for _, p := range doc.Body.Paragraphs {
		var b strings.Builder
		for _, r := range p.Runs {
			for _, t := range r.Text {
				b.WriteString(t.Content)
			}
		}
		if text := strings.TrimSpace(b.String()); text != "" {
			paragraphs = append(paragraphs, text)
		}
	}
	return strings.Join(paragraphs, "\n")
}
