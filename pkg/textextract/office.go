package textextract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

func extractDOCX(data []byte) (*Result, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open DOCX: %w", err)
	}

	for _, f := range reader.File {
		if filepath.Base(f.Name) != "document.xml" {
			continue
		}
		content, err := readZipFile(f)
		if err != nil {
			return nil, fmt.Errorf("read document.xml: %w", err)
		}
		text, err := collectXMLText(content)
		if err != nil {
			return nil, fmt.Errorf("parse document.xml: %w", err)
		}
		return &Result{Content: text, Pages: 1}, nil
	}

	return &Result{}, nil
}

var slideNameRe = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

// extractPPTX walks the slide parts in deck order. Each slide's text becomes
// one entry in Slides; Content joins them with blank lines.
func extractPPTX(data []byte) (*Result, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open PPTX: %w", err)
	}

	type slideFile struct {
		num  int
		file *zip.File
	}
	var slides []slideFile
	for _, f := range reader.File {
		m := slideNameRe.FindStringSubmatch(f.Name)
		if m == nil {
			continue
		}
		num, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		slides = append(slides, slideFile{num: num, file: f})
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].num < slides[j].num })

	var texts []string
	for _, s := range slides {
		content, err := readZipFile(s.file)
		if err != nil {
			return nil, fmt.Errorf("read slide %d: %w", s.num, err)
		}
		text, err := collectXMLText(content)
		if err != nil {
			return nil, fmt.Errorf("parse slide %d: %w", s.num, err)
		}
		texts = append(texts, text)
	}

	return &Result{
		Content: joinNonEmpty(texts, "\n\n"),
		Slides:  texts,
		Pages:   len(texts),
	}, nil
}

func extractXLSX(data []byte) (*Result, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open XLSX: %w", err)
	}

	var texts []string
	for _, f := range reader.File {
		if f.Name != "xl/sharedStrings.xml" && !strings.HasPrefix(f.Name, "xl/worksheets/") {
			continue
		}
		content, err := readZipFile(f)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f.Name, err)
		}
		text, err := collectXMLText(content)
		if err != nil {
			continue
		}
		texts = append(texts, text)
	}

	return &Result{
		Content: joinNonEmpty(texts, "\n"),
		Pages:   1,
	}, nil
}

// collectXMLText gathers the character data of text run elements ("t") and
// inserts line breaks at paragraph boundaries ("p"), which is how both the
// WordprocessingML and DrawingML schemas mark them.
func collectXMLText(content []byte) (string, error) {
	decoder := xml.NewDecoder(bytes.NewReader(content))

	var buf strings.Builder
	var inText bool
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p", "row":
				buf.WriteString("\n")
			}
		case xml.CharData:
			if inText {
				buf.Write(t)
			}
		}
	}

	lines := strings.Split(buf.String(), "\n")
	return joinNonEmpty(lines, "\n"), nil
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
