package remedypdf

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/ledongthuc/pdf"
)

func TestRenderProducesPDF(t *testing.T) {
	out, err := Render(Document{
		PatientName:        "Asha Devi",
		GurujiName:         "Swami Anand",
		TemplateName:       "Tulsi Decoction",
		Category:           "Herbal",
		Instructions:       "Boil five leaves in water and drink warm.",
		Dosage:             "Twice daily",
		Duration:           "7 days",
		CustomInstructions: "Avoid cold drinks.",
		PrescribedAt:       time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF")) {
		t.Fatal("output does not start with a pdf header")
	}
	if len(out) < 500 {
		t.Fatalf("suspiciously small pdf: %d bytes", len(out))
	}

	text := extractText(t, out)
	for _, want := range []string{"Asha", "Tulsi", "Twice"} {
		if !strings.Contains(text, want) {
			t.Fatalf("extracted text missing %q:\n%s", want, text)
		}
	}
}

func extractText(t *testing.T, raw []byte) string {
	t.Helper()
	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		t.Fatalf("open rendered pdf: %v", err)
	}
	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			t.Fatalf("extract page %d: %v", i, err)
		}
		sb.WriteString(text)
	}
	return sb.String()
}

func TestRenderSkipsEmptyFields(t *testing.T) {
	out, err := Render(Document{
		PatientName:  "Asha Devi",
		TemplateName: "Tulsi Decoction",
		Instructions: "Boil five leaves in water and drink warm.",
		PrescribedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF")) {
		t.Fatal("output does not start with a pdf header")
	}
}
