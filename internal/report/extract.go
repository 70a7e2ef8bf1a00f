package report

import (
	"strconv"
	"strings"

	"github.com/patient-report-mcp-server/internal/domain"
)

// codingDisplay extracts the human-readable text from a CodeableConcept,
// preferring the text field, then the first coding's display, then its code.
func codingDisplay(cc *domain.CodeableConcept) string {
	if cc == nil {
		return ""
	}
	if cc.Text != "" {
		return cc.Text
	}
	if len(cc.Coding) > 0 {
		if cc.Coding[0].Display != "" {
			return cc.Coding[0].Display
		}
		return cc.Coding[0].Code
	}
	return ""
}

// formatFloat renders a number the way it appears in FHIR JSON (no trailing
// zeros, no exponent for clinical magnitudes).
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// formatQuantity renders "{value} {unit}", dropping either part gracefully.
func formatQuantity(q *domain.Quantity) string {
	if q == nil {
		return ""
	}
	parts := make([]string, 0, 2)
	if q.Value != nil {
		parts = append(parts, formatFloat(*q.Value))
	}
	if q.Unit != "" {
		parts = append(parts, q.Unit)
	}
	return strings.Join(parts, " ")
}

// observationCategory returns the code of the first coded category.
func observationCategory(obs *domain.Observation) string {
	for _, cat := range obs.Category {
		for _, coding := range cat.Coding {
			return coding.Code
		}
	}
	return ""
}

// observationValue renders the value[x] choice in human-readable form.
func observationValue(v domain.Value) string {
	switch {
	case v.ValueQuantity != nil:
		return formatQuantity(v.ValueQuantity)
	case v.ValueCodeableConcept != nil:
		return codingDisplay(v.ValueCodeableConcept)
	case v.ValueString != "":
		return v.ValueString
	case v.ValueBoolean != nil:
		return strconv.FormatBool(*v.ValueBoolean)
	case v.ValueInteger != nil:
		return strconv.Itoa(*v.ValueInteger)
	case v.ValueRange != nil:
		low, high, unit := "", "", ""
		if v.ValueRange.Low != nil {
			if v.ValueRange.Low.Value != nil {
				low = formatFloat(*v.ValueRange.Low.Value)
			}
			unit = v.ValueRange.Low.Unit
		}
		if v.ValueRange.High != nil && v.ValueRange.High.Value != nil {
			high = formatFloat(*v.ValueRange.High.Value)
		}
		return strings.TrimSpace(low + " - " + high + " " + unit)
	}
	return "No value recorded"
}

// observationComponents renders "name: value" for each named sub-measurement.
func observationComponents(obs *domain.Observation) []string {
	var components []string
	for _, comp := range obs.Component {
		name := codingDisplay(comp.Code)
		value := observationValue(comp.Value)
		if name != "" && value != "" {
			components = append(components, name+": "+value)
		}
	}
	return components
}

// referenceRange renders the first reference range as "low - high unit".
func referenceRange(obs *domain.Observation) string {
	if len(obs.ReferenceRange) == 0 {
		return ""
	}
	rr := obs.ReferenceRange[0]
	low, high, unit := "", "", ""
	if rr.Low != nil {
		if rr.Low.Value != nil {
			low = formatFloat(*rr.Low.Value)
		}
		unit = rr.Low.Unit
	}
	if rr.High != nil {
		if rr.High.Value != nil {
			high = formatFloat(*rr.High.Value)
		}
		if unit == "" {
			unit = rr.High.Unit
		}
	}
	if low == "" && high == "" {
		return ""
	}
	return strings.TrimSpace(low + " - " + high + " " + unit)
}

// medicationName extracts the medication name from either the inline concept
// or the reference display.
func medicationName(med *domain.Medication) string {
	if med.MedicationCodeableConcept != nil {
		return codingDisplay(med.MedicationCodeableConcept)
	}
	if med.MedicationReference != nil && med.MedicationReference.Display != "" {
		return med.MedicationReference.Display
	}
	return "Unknown medication"
}

// dosageInstruction renders the first dosage, preferring free text and
// otherwise assembling dose quantity and timing.
func dosageInstruction(med *domain.Medication) string {
	dosages := med.DosageInstruction
	if len(dosages) == 0 {
		dosages = med.Dosage
	}
	if len(dosages) == 0 {
		return ""
	}

	dosage := dosages[0]
	if dosage.Text != "" {
		return dosage.Text
	}

	var parts []string
	for _, doseRate := range dosage.DoseAndRate {
		if doseRate.DoseQuantity != nil {
			parts = append(parts, formatQuantity(doseRate.DoseQuantity))
		}
	}
	if dosage.Timing != nil && dosage.Timing.Repeat != nil {
		repeat := dosage.Timing.Repeat
		if repeat.Frequency != nil {
			period := ""
			if repeat.Period != nil {
				period = formatFloat(*repeat.Period)
			}
			parts = append(parts, strings.TrimSpace(
				strconv.Itoa(*repeat.Frequency)+" times per "+period+" "+repeat.PeriodUnit))
		}
	}
	return strings.Join(parts, " ")
}

// allergyReactions renders each recorded reaction manifestation, annotated
// with severity when present.
func allergyReactions(allergy *domain.AllergyIntolerance) []string {
	var reactions []string
	for _, reaction := range allergy.Reaction {
		for _, manifestation := range reaction.Manifestation {
			m := manifestation
			text := codingDisplay(&m)
			if reaction.Severity != "" {
				text += " (Severity: " + reaction.Severity + ")"
			}
			reactions = append(reactions, text)
		}
	}
	return reactions
}

// encounterType returns the encounter's type display, falling back to class.
func encounterType(enc *domain.Encounter) string {
	if len(enc.Type) > 0 {
		return codingDisplay(&enc.Type[0])
	}
	if enc.Class != nil {
		return codingDisplay(enc.Class)
	}
	return ""
}

// encounterReasons joins the coded visit reasons.
func encounterReasons(enc *domain.Encounter) string {
	var reasons []string
	for _, reason := range enc.ReasonCode {
		r := reason
		if display := codingDisplay(&r); display != "" {
			reasons = append(reasons, display)
		}
	}
	return strings.Join(reasons, ", ")
}

// truncateDate keeps the calendar-date portion of a FHIR timestamp.
func truncateDate(date string) string {
	if idx := strings.Index(date, "T"); idx >= 0 {
		return date[:idx]
	}
	return date
}

// basicResourceInfo renders a one-line summary for resource types without a
// dedicated formatter.
func basicResourceInfo(res *domain.RawResource) string {
	var parts []string

	if res.Status != "" {
		parts = append(parts, "Status: "+res.Status)
	}

	switch res.ResourceType {
	case "DiagnosticReport":
		if code := codingDisplay(res.Code); code != "" {
			parts = append(parts, "Type: "+code)
		}
		date := res.EffectiveDateTime
		if date == "" {
			date = res.Issued
		}
		if date != "" {
			parts = append(parts, "Date: "+truncateDate(date))
		}
	case "DocumentReference":
		if docType := codingDisplay(res.Type); docType != "" {
			parts = append(parts, "Type: "+docType)
		}
		date := res.Created
		if date == "" {
			date = res.Indexed
		}
		if date != "" {
			parts = append(parts, "Date: "+truncateDate(date))
		}
	case "Appointment":
		if res.Start != "" {
			parts = append(parts, "Date: "+truncateDate(res.Start))
		}
		if len(res.ServiceType) > 0 {
			if service := codingDisplay(&res.ServiceType[0]); service != "" {
				parts = append(parts, "Service: "+service)
			}
		}
	case "Coverage":
		if coverageType := codingDisplay(res.Type); coverageType != "" {
			parts = append(parts, "Type: "+coverageType)
		}
		if res.Period != nil && res.Period.Start != "" {
			parts = append(parts, "Start: "+truncateDate(res.Period.Start))
		}
	}

	if len(parts) == 0 {
		name := res.ResourceType
		if name == "" {
			name = domain.TypeUnknown
		}
		return name + " record"
	}
	return strings.Join(parts, " | ")
}
