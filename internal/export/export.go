// Package export renders selected questions to downloadable documents.
// The TXT/PDF/DOCX layouts follow the files the service has always
// produced: numbered statements, lettered options, correctness markers.
package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	docx "github.com/fumiama/go-docx"
	"github.com/go-pdf/fpdf"

	"github.com/bancoq/bancoq/internal/model"
)

// ErrUnknownFormat is returned for formats outside json/txt/pdf/docx.
var ErrUnknownFormat = fmt.Errorf("export: unknown format")

// Render produces the document bytes and MIME type for the given format.
func Render(format string, questions []model.ExportedQuestion) ([]byte, string, error) {
	switch format {
	case "json":
		data, err := json.MarshalIndent(questions, "", "    ")
		if err != nil {
			return nil, "", fmt.Errorf("marshal JSON export: %w", err)
		}
		return data, "application/json", nil
	case "txt":
		return renderTXT(questions), "text/plain; charset=utf-8", nil
	case "pdf":
		data, err := renderPDF(questions)
		if err != nil {
			return nil, "", err
		}
		return data, "application/pdf", nil
	case "docx":
		data, err := renderDOCX(questions)
		if err != nil {
			return nil, "", err
		}
		return data, "application/vnd.openxmlformats-officedocument.wordprocessingml.document", nil
	}
	return nil, "", fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

func renderTXT(questions []model.ExportedQuestion) []byte {
	var sb strings.Builder
	for _, q := range questions {
		fmt.Fprintf(&sb, "ID: %d\nEnunciado: %s\nTipo: %s\n", q.ID, q.Statement, q.Kind)
		if len(q.Options) > 0 {
			sb.WriteString("Opções:\n")
			for i, o := range q.Options {
				marker := ""
				if o.Correct {
					marker = " [CORRETA]"
				}
				fmt.Fprintf(&sb, "  %d. %s%s\n", i+1, o.Text, marker)
			}
		}
		sb.WriteString("\n" + strings.Repeat("=", 50) + "\n\n")
	}
	return []byte(sb.String())
}

func renderPDF(questions []model.ExportedQuestion) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	for i, q := range questions {
		pdf.SetFont("Arial", "B", 14)
		pdf.MultiCell(0, 10, tr(fmt.Sprintf("%d. (ID: %d) %s", i+1, q.ID, q.Statement)), "", "", false)
		pdf.SetFont("Arial", "", 12)
		if len(q.Options) > 0 {
			pdf.Ln(5)
			for j, o := range q.Options {
				marker := ""
				if o.Correct {
					marker = " (Correta)"
				}
				pdf.MultiCell(0, 8, tr(fmt.Sprintf("   %c) %s%s", 'a'+j, o.Text, marker)), "", "", false)
			}
		}
		pdf.Ln(10)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func renderDOCX(questions []model.ExportedQuestion) ([]byte, error) {
	doc := docx.New().WithDefaultTheme()

	for i, q := range questions {
		doc.AddParagraph().AddText(fmt.Sprintf("%d. %s", i+1, q.Statement)).Bold()
		for j, o := range q.Options {
			marker := ""
			if o.Correct {
				marker = " (Correta)"
			}
			doc.AddParagraph().AddText(fmt.Sprintf("   %c) %s%s", 'a'+j, o.Text, marker))
		}
		doc.AddParagraph()
	}

	var buf bytes.Buffer
	if _, err := doc.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("render DOCX: %w", err)
	}
	return buf.Bytes(), nil
}
