package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// pageNumRe pulls the page number out of pdfcpu's extracted content file names.
var pageNumRe = regexp.MustCompile(`(\d+)\D*$`)

// extractPDFPages dumps a PDF's decoded content streams with pdfcpu and
// recovers the shown text page by page. Layout is not reconstructed and
// glyph-indexed (hex) strings are skipped; the output feeds the chunker,
// which normalizes whitespace anyway.
func extractPDFPages(path string) ([]string, error) {
	tmpDir, err := os.MkdirTemp("", "docqa-pdf-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	conf := api.LoadConfiguration()
	if err := api.ExtractContentFile(path, tmpDir, nil, conf); err != nil {
		return nil, fmt.Errorf("extract content: %w", err)
	}

	entries, err := os.ReadDir(tmpDir)
	if err != nil {
		return nil, fmt.Errorf("read extracted content: %w", err)
	}

	type pageFile struct {
		page int
		name string
	}
	files := make([]pageFile, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		page := 0
		if m := pageNumRe.FindStringSubmatch(entry.Name()); m != nil {
			page, _ = strconv.Atoi(m[1])
		}
		files = append(files, pageFile{page: page, name: entry.Name()})
	}
	sort.Slice(files, func(i, j int) bool {
		if files[i].page != files[j].page {
			return files[i].page < files[j].page
		}
		return files[i].name < files[j].name
	})

	pages := make([]string, 0, len(files))
	for _, f := range files {
		data, err := os.ReadFile(filepath.Join(tmpDir, f.name))
		if err != nil {
			return nil, fmt.Errorf("read page content: %w", err)
		}
		pages = append(pages, contentStreamText(data))
	}
	return pages, nil
}

// contentStreamText walks a decoded PDF content stream and collects the
// arguments of the text-showing operators (Tj, TJ, ' and "). Literal strings
// are unescaped; positioning operators turn into line breaks.
func contentStreamText(content []byte) string {
	var out strings.Builder
	var pending []string

	flush := func() {
		for _, s := range pending {
			out.WriteString(s)
		}
		if len(pending) > 0 {
			out.WriteByte(' ')
		}
		pending = pending[:0]
	}

	i := 0
	for i < len(content) {
		switch c := content[i]; {
		case c == '(':
			s, next := parseLiteralString(content, i)
			pending = append(pending, s)
			i = next
		case c == '<':
			// Dictionaries and hex strings carry no directly usable text.
			i = skipAngle(content, i)
		case c == '[' || c == ']':
			i++
		case isOperatorChar(c):
			start := i
			for i < len(content) && isOperatorChar(content[i]) {
				i++
			}
			switch string(content[start:i]) {
			case "Tj", "TJ":
				flush()
			case "Td", "TD", "T*", "ET":
				pending = pending[:0]
				out.WriteByte('\n')
			}
		default:
			if c == '\'' || c == '"' {
				flush()
			}
			i++
		}
	}
	return strings.TrimSpace(out.String())
}

// parseLiteralString reads a parenthesized PDF string starting at open,
// handling balanced parentheses and backslash escapes. It returns the
// decoded text and the index just past the closing parenthesis.
func parseLiteralString(content []byte, open int) (string, int) {
	var b strings.Builder
	depth := 1
	i := open + 1
	for i < len(content) && depth > 0 {
		c := content[i]
		switch c {
		case '\\':
			if i+1 >= len(content) {
				i++
				break
			}
			i++
			switch e := content[i]; e {
			case 'n':
				b.WriteByte('\n')
			case 'r', 't':
				b.WriteByte(' ')
			case 'b', 'f':
				// backspace/formfeed, nothing worth keeping
			case '(', ')', '\\':
				b.WriteByte(e)
			case '\n':
				// line continuation
			default:
				if e >= '0' && e <= '7' {
					code := int(e - '0')
					for n := 0; n < 2 && i+1 < len(content) && content[i+1] >= '0' && content[i+1] <= '7'; n++ {
						i++
						code = code*8 + int(content[i]-'0')
					}
					if code >= 32 && code < 127 {
						b.WriteByte(byte(code))
					}
				} else {
					b.WriteByte(e)
				}
			}
			i++
		case '(':
			depth++
			b.WriteByte(c)
			i++
		case ')':
			depth--
			if depth > 0 {
				b.WriteByte(c)
			}
			i++
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String(), i
}

// skipAngle consumes a hex string <...> or a dictionary <<...>> starting at i.
func skipAngle(content []byte, i int) int {
	if i+1 < len(content) && content[i+1] == '<' {
		depth := 1
		i += 2
		for i < len(content) && depth > 0 {
			if i+1 < len(content) && content[i] == '<' && content[i+1] == '<' {
				depth++
				i += 2
				continue
			}
			if i+1 < len(content) && content[i] == '>' && content[i+1] == '>' {
				depth--
				i += 2
				continue
			}
			i++
		}
		return i
	}
	for i < len(content) && content[i] != '>' {
		i++
	}
	return i + 1
}

func isOperatorChar(c byte) bool {
	return c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' || c == '*'
}
