package chatbot

import (
	"fmt"
	"strings"

	"medichat-backend/internal/models"
)

// BuildPatientContext turns a patient and their active medications into the
// text block injected into the system prompt. Pure function; same input
// always yields the same output.
func BuildPatientContext(p *models.Patient, meds []models.Medication) string {
	if p == nil || len(meds) == 0 {
		return "No active medications."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Patient: %s\n", p.Name)
	for _, m := range meds {
		fmt.Fprintf(&b, "- %s %s, %s", m.Name, m.Dosage, m.Frequency)
		if m.Notes != nil && *m.Notes != "" {
			fmt.Fprintf(&b, " (%s)", *m.Notes)
		}
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n")
}
