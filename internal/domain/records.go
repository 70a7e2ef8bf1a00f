package domain

import (
	"encoding/json"
)

// FHIR resource type names handled by dedicated formatters. Anything else is
// carried as RawResource and rendered by the generic fallback.
const (
	TypePatient             = "Patient"
	TypeCondition           = "Condition"
	TypeMedicationRequest   = "MedicationRequest"
	TypeMedicationStatement = "MedicationStatement"
	TypeObservation         = "Observation"
	TypeAllergyIntolerance  = "AllergyIntolerance"
	TypeProcedure           = "Procedure"
	TypeEncounter           = "Encounter"
	TypeFamilyMemberHistory = "FamilyMemberHistory"
	TypeUnknown             = "Unknown"
)

// Coding is a single coded value from a terminology system.
type Coding struct {
	System  string `json:"system,omitempty"`
	Code    string `json:"code,omitempty"`
	Display string `json:"display,omitempty"`
}

// CodeableConcept pairs coded values with a human-readable text.
type CodeableConcept struct {
	Coding []Coding `json:"coding,omitempty"`
	Text   string   `json:"text,omitempty"`
}

// Quantity is a measured amount with an optional unit.
type Quantity struct {
	Value *float64 `json:"value,omitempty"`
	Unit  string   `json:"unit,omitempty"`
}

// Range is a low/high bounded quantity pair.
type Range struct {
	Low  *Quantity `json:"low,omitempty"`
	High *Quantity `json:"high,omitempty"`
}

// Period is a time interval with string timestamps as they appear on the wire.
type Period struct {
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
}

// Reference points at another resource, usually with a display string.
type Reference struct {
	Reference string `json:"reference,omitempty"`
	Display   string `json:"display,omitempty"`
}

// Annotation is a free-text note.
type Annotation struct {
	Text string `json:"text,omitempty"`
}

// Value holds the FHIR value[x] choice fields shared by observations and
// their components. Exactly one field is expected to be set.
type Value struct {
	ValueQuantity        *Quantity        `json:"valueQuantity,omitempty"`
	ValueCodeableConcept *CodeableConcept `json:"valueCodeableConcept,omitempty"`
	ValueString          string           `json:"valueString,omitempty"`
	ValueBoolean         *bool            `json:"valueBoolean,omitempty"`
	ValueInteger         *int             `json:"valueInteger,omitempty"`
	ValueRange           *Range           `json:"valueRange,omitempty"`
}

// Patient carries the demographic fields rendered in the report header.
type Patient struct {
	Gender        string           `json:"gender,omitempty"`
	BirthDate     string           `json:"birthDate,omitempty"`
	MaritalStatus *CodeableConcept `json:"maritalStatus,omitempty"`
}

// Condition is a diagnosis or problem-list entry.
type Condition struct {
	Code               *CodeableConcept `json:"code,omitempty"`
	ClinicalStatus     *CodeableConcept `json:"clinicalStatus,omitempty"`
	VerificationStatus *CodeableConcept `json:"verificationStatus,omitempty"`
	Severity           *CodeableConcept `json:"severity,omitempty"`
	RecordedDate       string           `json:"recordedDate,omitempty"`
	OnsetDateTime      string           `json:"onsetDateTime,omitempty"`
	Note               []Annotation     `json:"note,omitempty"`
}

// DoseAndRate is a single dose amount within a dosage instruction.
type DoseAndRate struct {
	DoseQuantity *Quantity `json:"doseQuantity,omitempty"`
}

// Repeat describes dosing frequency.
type Repeat struct {
	Frequency  *int     `json:"frequency,omitempty"`
	Period     *float64 `json:"period,omitempty"`
	PeriodUnit string   `json:"periodUnit,omitempty"`
}

// Timing wraps the repeat schedule of a dosage.
type Timing struct {
	Repeat *Repeat `json:"repeat,omitempty"`
}

// Dosage is one dosage instruction, either free text or structured.
type Dosage struct {
	Text        string        `json:"text,omitempty"`
	DoseAndRate []DoseAndRate `json:"doseAndRate,omitempty"`
	Timing      *Timing       `json:"timing,omitempty"`
}

// Medication covers both MedicationRequest and MedicationStatement; the two
// types share a section in the report and differ only in which date and
// dosage fields are populated. ResourceType preserves the original tag.
type Medication struct {
	ResourceType              string           `json:"resourceType,omitempty"`
	MedicationCodeableConcept *CodeableConcept `json:"medicationCodeableConcept,omitempty"`
	MedicationReference       *Reference       `json:"medicationReference,omitempty"`
	Status                    string           `json:"status,omitempty"`
	Intent                    string           `json:"intent,omitempty"`
	AuthoredOn                string           `json:"authoredOn,omitempty"`
	EffectiveDateTime         string           `json:"effectiveDateTime,omitempty"`
	DateAsserted              string           `json:"dateAsserted,omitempty"`
	DosageInstruction         []Dosage         `json:"dosageInstruction,omitempty"`
	Dosage                    []Dosage         `json:"dosage,omitempty"`
}

// ReferenceRange is the expected range for an observation value.
type ReferenceRange struct {
	Low  *Quantity `json:"low,omitempty"`
	High *Quantity `json:"high,omitempty"`
}

// ObservationComponent is a sub-measurement, e.g. one limb of a blood
// pressure reading.
type ObservationComponent struct {
	Code *CodeableConcept `json:"code,omitempty"`
	Value
}

// Observation is a measurement: vital sign, laboratory result or other.
type Observation struct {
	Code              *CodeableConcept       `json:"code,omitempty"`
	Category          []CodeableConcept      `json:"category,omitempty"`
	Status            string                 `json:"status,omitempty"`
	EffectiveDateTime string                 `json:"effectiveDateTime,omitempty"`
	Issued            string                 `json:"issued,omitempty"`
	Interpretation    []CodeableConcept      `json:"interpretation,omitempty"`
	ReferenceRange    []ReferenceRange       `json:"referenceRange,omitempty"`
	Component         []ObservationComponent `json:"component,omitempty"`
	Value
}

// Reaction is one adverse reaction recorded on an allergy.
type Reaction struct {
	Manifestation []CodeableConcept `json:"manifestation,omitempty"`
	Severity      string            `json:"severity,omitempty"`
}

// AllergyIntolerance records an allergy with its reactions.
type AllergyIntolerance struct {
	Code               *CodeableConcept `json:"code,omitempty"`
	ClinicalStatus     *CodeableConcept `json:"clinicalStatus,omitempty"`
	VerificationStatus *CodeableConcept `json:"verificationStatus,omitempty"`
	Type               string           `json:"type,omitempty"`
	Category           []string         `json:"category,omitempty"`
	Criticality        string           `json:"criticality,omitempty"`
	RecordedDate       string           `json:"recordedDate,omitempty"`
	Reaction           []Reaction       `json:"reaction,omitempty"`
}

// Procedure is a performed clinical procedure.
type Procedure struct {
	Code              *CodeableConcept  `json:"code,omitempty"`
	Status            string            `json:"status,omitempty"`
	PerformedDateTime string            `json:"performedDateTime,omitempty"`
	PerformedPeriod   *Period           `json:"performedPeriod,omitempty"`
	BodySite          []CodeableConcept `json:"bodySite,omitempty"`
	Outcome           *CodeableConcept  `json:"outcome,omitempty"`
}

// EncounterDiagnosis links an encounter to a condition.
type EncounterDiagnosis struct {
	Condition *Reference       `json:"condition,omitempty"`
	Use       *CodeableConcept `json:"use,omitempty"`
}

// Encounter is a patient visit.
type Encounter struct {
	Status     string               `json:"status,omitempty"`
	Type       []CodeableConcept    `json:"type,omitempty"`
	Class      *CodeableConcept     `json:"class,omitempty"`
	Period     *Period              `json:"period,omitempty"`
	ReasonCode []CodeableConcept    `json:"reasonCode,omitempty"`
	Diagnosis  []EncounterDiagnosis `json:"diagnosis,omitempty"`
}

// FamilyCondition is a condition recorded for a family member.
type FamilyCondition struct {
	Code     *CodeableConcept `json:"code,omitempty"`
	OnsetAge *Quantity        `json:"onsetAge,omitempty"`
}

// FamilyMemberHistory records conditions of a relative.
type FamilyMemberHistory struct {
	Relationship *CodeableConcept  `json:"relationship,omitempty"`
	Date         string            `json:"date,omitempty"`
	Condition    []FamilyCondition `json:"condition,omitempty"`
}

// RawResource is the catch-all payload for resource types without a dedicated
// formatter. It decodes only the fields the generic renderer knows about.
type RawResource struct {
	ResourceType      string            `json:"resourceType,omitempty"`
	Status            string            `json:"status,omitempty"`
	Code              *CodeableConcept  `json:"code,omitempty"`
	Type              *CodeableConcept  `json:"type,omitempty"`
	EffectiveDateTime string            `json:"effectiveDateTime,omitempty"`
	Issued            string            `json:"issued,omitempty"`
	Created           string            `json:"created,omitempty"`
	Indexed           string            `json:"indexed,omitempty"`
	Start             string            `json:"start,omitempty"`
	ServiceType       []CodeableConcept `json:"serviceType,omitempty"`
	Period            *Period           `json:"period,omitempty"`
}

// Record is the discriminated union over the clinical resource kinds: the
// Type tag names the kind and exactly one payload pointer is non-nil. A
// record whose type has no dedicated payload carries Other.
type Record struct {
	Type          string
	Patient       *Patient
	Condition     *Condition
	Medication    *Medication
	Observation   *Observation
	Allergy       *AllergyIntolerance
	Procedure     *Procedure
	Encounter     *Encounter
	FamilyHistory *FamilyMemberHistory
	Other         *RawResource
}

// resourceTypeProbe extracts only the type tag from a raw resource.
type resourceTypeProbe struct {
	ResourceType string `json:"resourceType"`
}

// DecodeRecord converts one raw FHIR resource into a typed Record. A resource
// without a resourceType tag decodes as Unknown; decoding never fails for a
// recognized tag on syntactically valid JSON.
func DecodeRecord(raw json.RawMessage) (Record, error) {
	var probe resourceTypeProbe
	if err := json.Unmarshal(raw, &probe); err != nil {
		return Record{}, err
	}

	rec := Record{Type: probe.ResourceType}
	if rec.Type == "" {
		rec.Type = TypeUnknown
	}

	var err error
	switch probe.ResourceType {
	case TypePatient:
		rec.Patient = &Patient{}
		err = json.Unmarshal(raw, rec.Patient)
	case TypeCondition:
		rec.Condition = &Condition{}
		err = json.Unmarshal(raw, rec.Condition)
	case TypeMedicationRequest, TypeMedicationStatement:
		rec.Medication = &Medication{}
		err = json.Unmarshal(raw, rec.Medication)
	case TypeObservation:
		rec.Observation = &Observation{}
		err = json.Unmarshal(raw, rec.Observation)
	case TypeAllergyIntolerance:
		rec.Allergy = &AllergyIntolerance{}
		err = json.Unmarshal(raw, rec.Allergy)
	case TypeProcedure:
		rec.Procedure = &Procedure{}
		err = json.Unmarshal(raw, rec.Procedure)
	case TypeEncounter:
		rec.Encounter = &Encounter{}
		err = json.Unmarshal(raw, rec.Encounter)
	case TypeFamilyMemberHistory:
		rec.FamilyHistory = &FamilyMemberHistory{}
		err = json.Unmarshal(raw, rec.FamilyHistory)
	default:
		rec.Other = &RawResource{}
		err = json.Unmarshal(raw, rec.Other)
	}
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}
