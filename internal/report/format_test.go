package report

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patient-report-mcp-server/internal/domain"
)

func conditionRecord(name, recordedDate string) domain.Record {
	return domain.Record{
		Type: domain.TypeCondition,
		Condition: &domain.Condition{
			Code:           &domain.CodeableConcept{Text: name},
			ClinicalStatus: &domain.CodeableConcept{Coding: []domain.Coding{{Code: "active", Display: "Active"}}},
			RecordedDate:   recordedDate,
		},
	}
}

func observationRecord(name, category, date string, value float64, unit string) domain.Record {
	return domain.Record{
		Type: domain.TypeObservation,
		Observation: &domain.Observation{
			Code:              &domain.CodeableConcept{Text: name},
			Category:          []domain.CodeableConcept{{Coding: []domain.Coding{{Code: category}}}},
			Status:            "final",
			EffectiveDateTime: date,
			Value:             domain.Value{ValueQuantity: &domain.Quantity{Value: floatPtr(value), Unit: unit}},
		},
	}
}

func TestFormatDemographics(t *testing.T) {
	records := []domain.Record{{
		Type: domain.TypePatient,
		Patient: &domain.Patient{
			Gender:        "female",
			BirthDate:     "1985-04-12",
			MaritalStatus: &domain.CodeableConcept{Text: "Married"},
		},
	}}

	lines := formatDemographics(records)
	require.NotEmpty(t, lines)
	assert.Equal(t, "DEMOGRAPHICS", lines[0])
	assert.Contains(t, lines, "Gender: female")
	assert.Contains(t, lines, "Birth Date: 1985-04-12")
	assert.Contains(t, lines, "Marital Status: Married")
}

func TestFormatDemographicsDefaults(t *testing.T) {
	records := []domain.Record{{Type: domain.TypePatient, Patient: &domain.Patient{}}}

	lines := formatDemographics(records)
	assert.Contains(t, lines, "Gender: Not specified")
	assert.Contains(t, lines, "Birth Date: Not specified")
}

func TestFormatConditionsGroupAndDateOrder(t *testing.T) {
	records := []domain.Record{
		conditionRecord("Hypertension", "2023-01-05"),
		conditionRecord("Diabetes", "2022-03-01"),
		conditionRecord("Hypertension", "2024-02-10"),
	}

	lines := formatConditions(records)
	text := strings.Join(lines, "\n")

	assert.Equal(t, "ALL CONDITIONS (3 records)", lines[0])

	// Alphabetical group order.
	diabetesIdx := strings.Index(text, "• Diabetes")
	hypertensionIdx := strings.Index(text, "• Hypertension")
	require.True(t, diabetesIdx >= 0 && hypertensionIdx >= 0)
	assert.Less(t, diabetesIdx, hypertensionIdx)

	// Most recent first within the group.
	recent := strings.Index(text, "2024-02-10")
	older := strings.Index(text, "2023-01-05")
	require.True(t, recent >= 0 && older >= 0)
	assert.Less(t, recent, older)

	assert.Contains(t, text, "• Hypertension (2 records)")
}

func TestFormatConditionsMissingDateSortsLast(t *testing.T) {
	undated := domain.Record{
		Type: domain.TypeCondition,
		Condition: &domain.Condition{
			Code:     &domain.CodeableConcept{Text: "Asthma"},
			Severity: &domain.CodeableConcept{Text: "Mild"},
		},
	}
	records := []domain.Record{
		undated,
		conditionRecord("Asthma", "2020-07-01"),
	}

	lines := formatConditions(records)
	text := strings.Join(lines, "\n")

	dated := strings.Index(text, "Date: 2020-07-01")
	severityOnly := strings.Index(text, "Severity: Mild")
	require.True(t, dated >= 0 && severityOnly >= 0)
	assert.Less(t, dated, severityOnly)
}

func TestFormatMedicationsReferenceOnly(t *testing.T) {
	records := []domain.Record{{
		Type: domain.TypeMedicationRequest,
		Medication: &domain.Medication{
			ResourceType:        domain.TypeMedicationRequest,
			MedicationReference: &domain.Reference{Display: "Metformin"},
		},
	}}

	lines := formatMedications(records, nil)
	text := strings.Join(lines, "\n")

	assert.Contains(t, text, "• Metformin (1 records)")
	assert.NotContains(t, text, "Dosage:")
}

func TestFormatMedicationsDosageLine(t *testing.T) {
	records := []domain.Record{{
		Type: domain.TypeMedicationStatement,
		Medication: &domain.Medication{
			ResourceType:              domain.TypeMedicationStatement,
			MedicationCodeableConcept: &domain.CodeableConcept{Text: "Lisinopril"},
			Status:                    "active",
			EffectiveDateTime:         "2023-05-01T00:00:00Z",
			Dosage:                    []domain.Dosage{{Text: "10 mg once daily"}},
		},
	}}

	lines := formatMedications(nil, records)
	text := strings.Join(lines, "\n")

	assert.Contains(t, text, "Date: 2023-05-01 | Status: active | Type: MedicationStatement")
	assert.Contains(t, text, "    Dosage: 10 mg once daily")
}

func TestFormatObservationsSplitsByCategory(t *testing.T) {
	records := []domain.Record{
		observationRecord("Heart rate", "vital-signs", "2024-01-01", 72, "bpm"),
		observationRecord("Hemoglobin A1c", "laboratory", "2024-01-02", 6.8, "%"),
		observationRecord("Smoking status", "social-history", "2024-01-03", 0, ""),
	}

	text := strings.Join(formatObservations(records, true), "\n")

	assert.Contains(t, text, "VITAL SIGNS (1 records)")
	assert.Contains(t, text, "LABORATORY RESULTS (1 records)")
	assert.Contains(t, text, "OTHER OBSERVATIONS (1 records)")
	assert.Contains(t, text, "Value: 6.8 %")
}

func TestFormatObservationsRecentLimit(t *testing.T) {
	var records []domain.Record
	for _, date := range []string{"2024-01-01", "2024-01-02", "2024-01-03", "2024-01-04", "2024-01-05"} {
		records = append(records, observationRecord("Blood pressure", "vital-signs", date, 120, "mmHg"))
	}

	text := strings.Join(formatObservations(records, false), "\n")

	assert.Contains(t, text, "  ... and 2 more")
	assert.Contains(t, text, "Date: 2024-01-05")
	assert.NotContains(t, text, "Date: 2024-01-02")
}

func TestFormatObservationsReferenceRange(t *testing.T) {
	rec := observationRecord("Hemoglobin A1c", "laboratory", "2024-01-02", 6.8, "%")
	rec.Observation.ReferenceRange = []domain.ReferenceRange{{
		Low:  &domain.Quantity{Value: floatPtr(4.5), Unit: "%"},
		High: &domain.Quantity{Value: floatPtr(5.6)},
	}}

	text := strings.Join(formatObservations([]domain.Record{rec}, true), "\n")
	assert.Contains(t, text, "Reference: 4.5 - 5.6 %")
}

func TestFormatAllergies(t *testing.T) {
	records := []domain.Record{{
		Type: domain.TypeAllergyIntolerance,
		Allergy: &domain.AllergyIntolerance{
			Code:         &domain.CodeableConcept{Text: "Penicillin"},
			RecordedDate: "2021-09-15T00:00:00Z",
			Type:         "allergy",
			Category:     []string{"medication"},
			Criticality:  "high",
			Reaction: []domain.Reaction{{
				Manifestation: []domain.CodeableConcept{{Text: "Anaphylaxis"}},
				Severity:      "severe",
			}},
		},
	}}

	text := strings.Join(formatAllergies(records), "\n")

	assert.Contains(t, text, "ALL ALLERGIES (1 records)")
	assert.Contains(t, text, "• Penicillin (1 records)")
	assert.Contains(t, text, "Date: 2021-09-15 | Type: allergy | Category: medication | Criticality: high")
	assert.Contains(t, text, "    Reaction: Anaphylaxis (Severity: severe)")
}

func TestFormatProcedures(t *testing.T) {
	records := []domain.Record{{
		Type: domain.TypeProcedure,
		Procedure: &domain.Procedure{
			Code:            &domain.CodeableConcept{Text: "Appendectomy"},
			Status:          "completed",
			PerformedPeriod: &domain.Period{Start: "2019-11-02T08:00:00Z"},
			BodySite:        []domain.CodeableConcept{{Text: "Abdomen"}},
		},
	}}

	text := strings.Join(formatProcedures(records), "\n")

	assert.Contains(t, text, "• Appendectomy (1 records)")
	assert.Contains(t, text, "Date: 2019-11-02 | Status: completed")
	assert.Contains(t, text, "    Body sites: Abdomen")
}

func TestFormatEncountersLimit(t *testing.T) {
	var records []domain.Record
	for _, date := range []string{"2024-01-01", "2024-02-01", "2024-03-01"} {
		records = append(records, domain.Record{
			Type: domain.TypeEncounter,
			Encounter: &domain.Encounter{
				Status: "finished",
				Type:   []domain.CodeableConcept{{Text: "Office visit"}},
				Period: &domain.Period{Start: date + "T09:00:00Z"},
			},
		})
	}

	text := strings.Join(formatEncounters(records, 2), "\n")

	assert.Contains(t, text, "ALL ENCOUNTERS (3 records)")
	assert.Contains(t, text, "Date: 2024-03-01")
	assert.Contains(t, text, "Date: 2024-02-01")
	assert.NotContains(t, text, "Date: 2024-01-01")
	assert.Contains(t, text, "... and 1 more encounters")
}

func TestFormatEncountersDiagnosisAndReason(t *testing.T) {
	records := []domain.Record{{
		Type: domain.TypeEncounter,
		Encounter: &domain.Encounter{
			Status:     "finished",
			Period:     &domain.Period{Start: "2024-01-10T09:00:00Z", End: "2024-01-11T10:00:00Z"},
			ReasonCode: []domain.CodeableConcept{{Text: "Chest pain"}},
			Diagnosis: []domain.EncounterDiagnosis{{
				Condition: &domain.Reference{Display: "Angina"},
				Use:       &domain.CodeableConcept{Text: "admission"},
			}},
		},
	}}

	text := strings.Join(formatEncounters(records, 0), "\n")

	assert.Contains(t, text, "Date: 2024-01-10 | End: 2024-01-11 | Status: finished")
	assert.Contains(t, text, "  Reason: Chest pain")
	assert.Contains(t, text, "  Diagnosis: Angina (admission)")
}

func TestFormatFamilyHistory(t *testing.T) {
	records := []domain.Record{{
		Type: domain.TypeFamilyMemberHistory,
		FamilyHistory: &domain.FamilyMemberHistory{
			Relationship: &domain.CodeableConcept{Text: "Father"},
			Date:         "2020-01-01T00:00:00Z",
			Condition: []domain.FamilyCondition{{
				Code:     &domain.CodeableConcept{Text: "Coronary artery disease"},
				OnsetAge: &domain.Quantity{Value: floatPtr(55)},
			}},
		},
	}}

	text := strings.Join(formatFamilyHistory(records), "\n")

	assert.Contains(t, text, "• Relationship: Father | Date: 2020-01-01")
	assert.Contains(t, text, "  - Coronary artery disease (age 55 years)")
}

func TestFormatOtherResourcesCapPerType(t *testing.T) {
	var reports []domain.Record
	for i := 0; i < 7; i++ {
		reports = append(reports, domain.Record{
			Type:  "DiagnosticReport",
			Other: &domain.RawResource{ResourceType: "DiagnosticReport", Status: "final"},
		})
	}
	other := map[string][]domain.Record{
		"DiagnosticReport": reports,
		"CarePlan": {{
			Type:  "CarePlan",
			Other: &domain.RawResource{ResourceType: "CarePlan", Status: "active"},
		}},
	}

	lines := formatOtherResources(other, 5)
	text := strings.Join(lines, "\n")

	assert.Contains(t, text, "DIAGNOSTICREPORT (7 records)")
	assert.Contains(t, text, "  ... and 2 more")
	assert.Contains(t, text, "CAREPLAN (1 records)")

	// Alphabetical type order.
	assert.Less(t, strings.Index(text, "CAREPLAN"), strings.Index(text, "DIAGNOSTICREPORT"))
}
