package services

import (
	"bufio"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"

	"medichat-backend/internal/models"
)

// CorpusExtractService turns corpus files into indexable Q&A entries.
// Supported inputs: MedQuAD-style XML, PubMedQA JSONL, PDF and plain text.
type CorpusExtractService struct{}

func NewCorpusExtractService() *CorpusExtractService {
	return &CorpusExtractService{}
}

// ExtractDir walks a directory tree and extracts every supported file.
// Unsupported extensions are skipped, not failed.
func (s *CorpusExtractService) ExtractDir(dir string) ([]models.PubMedSource, error) {
	var entries []models.PubMedSource

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		switch strings.ToLower(filepath.Ext(path)) {
		case ".xml", ".jsonl", ".pdf", ".txt":
			fileEntries, err := s.ExtractFromPath(path)
			if err != nil {
				return fmt.Errorf("failed to extract %s: %w", path, err)
			}
			entries = append(entries, fileEntries...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return entries, nil
}

func (s *CorpusExtractService) ExtractFromPath(path string) ([]models.PubMedSource, error) {
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".xml":
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return parseMedQuADXML(f, baseName(path))
	case ".jsonl":
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return parsePubMedJSONL(f)
	case ".pdf":
		return s.extractPDF(path)
	case ".txt":
		return s.extractTXT(path)
	default:
		return nil, fmt.Errorf("unsupported file type for corpus extraction: %s", ext)
	}
}

// medquadDocument matches the MedQuAD XML layout: a document with a Focus
// topic and a list of question/answer pairs.
type medquadDocument struct {
	Source  string `xml:"source,attr"`
	URL     string `xml:"url,attr"`
	Focus   string `xml:"Focus"`
	QAPairs []struct {
		Question string `xml:"Question"`
		Answer   string `xml:"Answer"`
	} `xml:"QAPairs>QAPair"`
}

func parseMedQuADXML(r io.Reader, name string) ([]models.PubMedSource, error) {
	var doc medquadDocument
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse MedQuAD XML: %w", err)
	}

	if strings.TrimSpace(doc.Focus) == "" {
		return nil, nil
	}

	var entries []models.PubMedSource
	for i, pair := range doc.QAPairs {
		answer := normalizeExtractedText(pair.Answer)
		if answer == "" {
			continue
		}

		entries = append(entries, models.PubMedSource{
			PMID:     fmt.Sprintf("%s#%d", name, i),
			Question: normalizeExtractedText(pair.Question),
			Contexts: []string{answer},
			Labels:   []string{"ANSWER"},
			Meshes:   []string{strings.TrimSpace(doc.Focus)},
		})
	}

	return entries, nil
}

// pubmedQARecord is one JSONL line of a PubMedQA export.
type pubmedQARecord struct {
	PMID     string   `json:"pmid"`
	Question string   `json:"question"`
	Contexts []string `json:"contexts"`
	Labels   []string `json:"labels"`
	Year     string   `json:"year"`
	Meshes   []string `json:"meshes"`
}

func parsePubMedJSONL(r io.Reader) ([]models.PubMedSource, error) {
	var entries []models.PubMedSource

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}

		var rec pubmedQARecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("failed to parse JSONL line %d: %w", line, err)
		}
		if rec.PMID == "" {
			continue
		}

		entries = append(entries, models.PubMedSource{
			PMID:     rec.PMID,
			Question: rec.Question,
			Contexts: rec.Contexts,
			Labels:   rec.Labels,
			Year:     rec.Year,
			Meshes:   rec.Meshes,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read JSONL: %w", err)
	}

	return entries, nil
}

func (s *CorpusExtractService) extractPDF(path string) ([]models.PubMedSource, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var b strings.Builder
	totalPage := reader.NumPage()
	for pageIndex := 1; pageIndex <= totalPage; pageIndex++ {
		page := reader.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}

		content, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		b.WriteString(content)
		b.WriteString("\n")
	}

	text := normalizeExtractedText(b.String())
	if text == "" {
		return nil, fmt.Errorf("no extractable text found in pdf")
	}

	return []models.PubMedSource{{
		PMID:     baseName(path),
		Contexts: []string{text},
		Labels:   []string{"DOCUMENT"},
	}}, nil
}

func (s *CorpusExtractService) extractTXT(path string) ([]models.PubMedSource, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	text := normalizeExtractedText(string(b))
	if text == "" {
		return nil, fmt.Errorf("text file is empty")
	}

	return []models.PubMedSource{{
		PMID:     baseName(path),
		Contexts: []string{text},
		Labels:   []string{"DOCUMENT"},
	}}, nil
}

var whitespaceRe = regexp.MustCompile(`[ \t]+`)

func normalizeExtractedText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = whitespaceRe.ReplaceAllString(text, " ")

	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

func baseName(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}
