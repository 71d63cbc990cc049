package services

import (
	"strings"
	"testing"
)

const medquadSample = `<?xml version="1.0" encoding="UTF-8"?>
<Document source="GARD" url="https://example.org/hypertension">
	<Focus>Hypertension</Focus>
	<QAPairs>
		<QAPair>
			<Question>What is hypertension?</Question>
			<Answer>Hypertension is persistently elevated blood pressure.</Answer>
		</QAPair>
		<QAPair>
			<Question>Unanswered question</Question>
			<Answer>   </Answer>
		</QAPair>
	</QAPairs>
</Document>`

func TestParseMedQuADXML(t *testing.T) {
	entries, err := parseMedQuADXML(strings.NewReader(medquadSample), "0000123")
	if err != nil {
		t.Fatalf("parseMedQuADXML returned error: %v", err)
	}

	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry (empty answers skipped), got %d", len(entries))
	}

	e := entries[0]
	if e.PMID != "0000123#0" {
		t.Errorf("Expected PMID '0000123#0', got %q", e.PMID)
	}
	if e.Question != "What is hypertension?" {
		t.Errorf("Unexpected question %q", e.Question)
	}
	if len(e.Contexts) != 1 || !strings.Contains(e.Contexts[0], "elevated blood pressure") {
		t.Errorf("Unexpected contexts %v", e.Contexts)
	}
	if len(e.Labels) != 1 || e.Labels[0] != "ANSWER" {
		t.Errorf("Unexpected labels %v", e.Labels)
	}
	if len(e.Meshes) != 1 || e.Meshes[0] != "Hypertension" {
		t.Errorf("Expected focus topic as mesh term, got %v", e.Meshes)
	}
}

func TestParseMedQuADXML_NoFocusSkipsDocument(t *testing.T) {
	sample := `<Document source="GARD"><Focus></Focus><QAPairs><QAPair><Question>q</Question><Answer>a</Answer></QAPair></QAPairs></Document>`

	entries, err := parseMedQuADXML(strings.NewReader(sample), "doc")
	if err != nil {
		t.Fatalf("parseMedQuADXML returned error: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected no entries for a document without focus, got %d", len(entries))
	}
}

func TestParsePubMedJSONL(t *testing.T) {
	sample := `{"pmid":"111","question":"Does it work?","contexts":["span one","span two"],"labels":["BACKGROUND","RESULTS"],"year":"2019","meshes":["Humans"]}

{"pmid":"","question":"ignored, no pmid"}
{"pmid":"222","question":"Second?","contexts":["only"],"labels":["METHODS"]}`

	entries, err := parsePubMedJSONL(strings.NewReader(sample))
	if err != nil {
		t.Fatalf("parsePubMedJSONL returned error: %v", err)
	}

	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}
	if entries[0].PMID != "111" || entries[0].Year != "2019" {
		t.Errorf("Unexpected first entry: %+v", entries[0])
	}
	if len(entries[0].Contexts) != 2 || entries[0].Labels[1] != "RESULTS" {
		t.Errorf("Unexpected first entry lists: %+v", entries[0])
	}
	if entries[1].PMID != "222" {
		t.Errorf("Unexpected second entry: %+v", entries[1])
	}
}

func TestParsePubMedJSONL_MalformedLineFails(t *testing.T) {
	if _, err := parsePubMedJSONL(strings.NewReader(`{"pmid": broken`)); err == nil {
		t.Error("Expected error for malformed JSONL line")
	}
}

func TestNormalizeExtractedText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"collapses runs of spaces", "a   b\tc", "a b c"},
		{"drops blank lines", "a\n\n\n  \nb", "a\nb"},
		{"trims line edges", "  a  \n  b  ", "a\nb"},
		{"empty input", "   \n  \n", ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := normalizeExtractedText(tc.input); got != tc.expected {
				t.Errorf("Expected %q, got %q", tc.expected, got)
			}
		})
	}
}
