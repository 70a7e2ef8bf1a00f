package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/patient-report-mcp-server/internal/domain"
)

const sectionRule = "--------------------------------------------------"

// entry is one record inside an entity group: a sortable date, the
// pipe-joined detail fields, and any extra indented lines below them.
type entry struct {
	date    string
	details []string
	extra   []string
}

// sortByDateDesc orders entries most recent first. Entries without a date
// sort last; ties keep their fetch order.
func sortByDateDesc(entries []entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].date > entries[j].date
	})
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// renderGroup appends the entries of one entity group, sorted by date
// descending. A positive limit caps the entries shown and appends a
// "... and N more" marker.
func renderGroup(out []string, entries []entry, limit int) []string {
	sortByDateDesc(entries)

	shown := entries
	if limit > 0 && len(entries) > limit {
		shown = entries[:limit]
	}
	for _, e := range shown {
		if len(e.details) > 0 {
			out = append(out, "  - "+strings.Join(e.details, " | "))
		}
		out = append(out, e.extra...)
	}
	if limit > 0 && len(entries) > limit {
		out = append(out, fmt.Sprintf("  ... and %d more", len(entries)-limit))
	}
	return out
}

func appendDetail(details []string, label, value string) []string {
	if value == "" {
		return details
	}
	return append(details, label+": "+value)
}

// formatDemographics renders the demographics header from the first Patient
// record.
func formatDemographics(patients []domain.Record) []string {
	if len(patients) == 0 || patients[0].Patient == nil {
		return nil
	}
	p := patients[0].Patient

	gender := p.Gender
	if gender == "" {
		gender = "Not specified"
	}
	birthDate := p.BirthDate
	if birthDate == "" {
		birthDate = "Not specified"
	}

	return []string{
		"DEMOGRAPHICS",
		sectionRule,
		"Gender: " + gender,
		"Birth Date: " + birthDate,
		"Marital Status: " + codingDisplay(p.MaritalStatus),
		"",
	}
}

func formatConditions(conditions []domain.Record) []string {
	if len(conditions) == 0 {
		return nil
	}

	groups := make(map[string][]entry)
	for _, rec := range conditions {
		cond := rec.Condition
		if cond == nil {
			continue
		}
		name := codingDisplay(cond.Code)
		date := cond.RecordedDate
		if date == "" {
			date = cond.OnsetDateTime
		}
		date = truncateDate(date)

		var details []string
		details = appendDetail(details, "Date", date)
		details = appendDetail(details, "Status", codingDisplay(cond.ClinicalStatus))
		details = appendDetail(details, "Verified", codingDisplay(cond.VerificationStatus))
		details = appendDetail(details, "Severity", codingDisplay(cond.Severity))

		var extra []string
		for _, note := range cond.Note {
			if note.Text != "" {
				extra = append(extra, "    Note: "+note.Text)
			}
		}

		groups[name] = append(groups[name], entry{date: date, details: details, extra: extra})
	}

	report := []string{
		fmt.Sprintf("ALL CONDITIONS (%d records)", len(conditions)),
		sectionRule,
	}
	for _, name := range sortedKeys(groups) {
		report = append(report, fmt.Sprintf("• %s (%d records)", name, len(groups[name])))
		report = renderGroup(report, groups[name], 0)
		report = append(report, "")
	}
	return report
}

func formatMedications(requests, statements []domain.Record) []string {
	all := make([]domain.Record, 0, len(requests)+len(statements))
	all = append(all, requests...)
	all = append(all, statements...)
	if len(all) == 0 {
		return nil
	}

	groups := make(map[string][]entry)
	for _, rec := range all {
		med := rec.Medication
		if med == nil {
			continue
		}
		name := medicationName(med)
		date := med.AuthoredOn
		if date == "" {
			date = med.EffectiveDateTime
		}
		if date == "" {
			date = med.DateAsserted
		}
		date = truncateDate(date)

		var details []string
		details = appendDetail(details, "Date", date)
		details = appendDetail(details, "Status", med.Status)
		details = appendDetail(details, "Intent", med.Intent)
		details = appendDetail(details, "Type", med.ResourceType)

		var extra []string
		if dosage := dosageInstruction(med); dosage != "" {
			extra = append(extra, "    Dosage: "+dosage)
		}

		groups[name] = append(groups[name], entry{date: date, details: details, extra: extra})
	}

	report := []string{
		fmt.Sprintf("ALL MEDICATIONS (%d records)", len(all)),
		sectionRule,
	}
	for _, name := range sortedKeys(groups) {
		report = append(report, fmt.Sprintf("• %s (%d records)", name, len(groups[name])))
		report = renderGroup(report, groups[name], 0)
		report = append(report, "")
	}
	return report
}

// formatObservations renders vital signs, laboratory results and other
// observations as separate sections. With showAll false, vitals and labs show
// the three most recent entries per group and other observations only the
// most recent.
func formatObservations(observations []domain.Record, showAll bool) []string {
	if len(observations) == 0 {
		return nil
	}

	var vitals, labs, others []*domain.Observation
	for _, rec := range observations {
		obs := rec.Observation
		if obs == nil {
			continue
		}
		switch observationCategory(obs) {
		case "vital-signs":
			vitals = append(vitals, obs)
		case "laboratory", "exam":
			labs = append(labs, obs)
		default:
			others = append(others, obs)
		}
	}

	var report []string
	if len(vitals) > 0 {
		report = append(report, formatObservationSection(
			"VITAL SIGNS", vitals, showAll, 3, false, false)...)
	}
	if len(labs) > 0 {
		report = append(report, formatObservationSection(
			"LABORATORY RESULTS", labs, showAll, 3, true, false)...)
	}
	if len(others) > 0 {
		report = append(report, formatObservationSection(
			"OTHER OBSERVATIONS", others, showAll, 1, false, true)...)
	}
	return report
}

func formatObservationSection(title string, observations []*domain.Observation, showAll bool, recentLimit int, withRange, withComponents bool) []string {
	groups := make(map[string][]entry)
	for _, obs := range observations {
		name := codingDisplay(obs.Code)
		date := obs.EffectiveDateTime
		if date == "" {
			date = obs.Issued
		}
		date = truncateDate(date)

		interpretation := ""
		if len(obs.Interpretation) > 0 {
			interpretation = codingDisplay(&obs.Interpretation[0])
		}

		var details []string
		details = appendDetail(details, "Date", date)
		if value := observationValue(obs.Value); value != "" {
			if !withComponents || value != "No value recorded" {
				details = appendDetail(details, "Value", value)
			}
		}
		details = appendDetail(details, "Status", obs.Status)
		details = appendDetail(details, "Interpretation", interpretation)
		if withRange {
			details = appendDetail(details, "Reference", referenceRange(obs))
		}
		if withComponents {
			details = appendDetail(details, "Category", observationCategory(obs))
		}

		var extra []string
		if withComponents {
			for _, component := range observationComponents(obs) {
				extra = append(extra, "    "+component)
			}
		}

		groups[name] = append(groups[name], entry{date: date, details: details, extra: extra})
	}

	report := []string{
		fmt.Sprintf("%s (%d records)", title, len(observations)),
		sectionRule,
	}
	limit := 0
	if !showAll {
		limit = recentLimit
	}
	for _, name := range sortedKeys(groups) {
		report = append(report, fmt.Sprintf("• %s (%d records)", name, len(groups[name])))
		report = renderGroup(report, groups[name], limit)
		report = append(report, "")
	}
	return report
}

func formatAllergies(allergies []domain.Record) []string {
	if len(allergies) == 0 {
		return nil
	}

	groups := make(map[string][]entry)
	for _, rec := range allergies {
		allergy := rec.Allergy
		if allergy == nil {
			continue
		}
		substance := codingDisplay(allergy.Code)
		date := truncateDate(allergy.RecordedDate)

		var details []string
		details = appendDetail(details, "Date", date)
		details = appendDetail(details, "Status", codingDisplay(allergy.ClinicalStatus))
		details = appendDetail(details, "Verified", codingDisplay(allergy.VerificationStatus))
		details = appendDetail(details, "Type", allergy.Type)
		details = appendDetail(details, "Category", strings.Join(allergy.Category, ", "))
		details = appendDetail(details, "Criticality", allergy.Criticality)

		var extra []string
		for _, reaction := range allergyReactions(allergy) {
			extra = append(extra, "    Reaction: "+reaction)
		}

		groups[substance] = append(groups[substance], entry{date: date, details: details, extra: extra})
	}

	report := []string{
		fmt.Sprintf("ALL ALLERGIES (%d records)", len(allergies)),
		sectionRule,
	}
	for _, substance := range sortedKeys(groups) {
		report = append(report, fmt.Sprintf("• %s (%d records)", substance, len(groups[substance])))
		report = renderGroup(report, groups[substance], 0)
		report = append(report, "")
	}
	return report
}

func formatProcedures(procedures []domain.Record) []string {
	if len(procedures) == 0 {
		return nil
	}

	groups := make(map[string][]entry)
	for _, rec := range procedures {
		proc := rec.Procedure
		if proc == nil {
			continue
		}
		name := codingDisplay(proc.Code)
		date := proc.PerformedDateTime
		if date == "" && proc.PerformedPeriod != nil {
			date = proc.PerformedPeriod.Start
		}
		date = truncateDate(date)

		var details []string
		details = appendDetail(details, "Date", date)
		details = appendDetail(details, "Status", proc.Status)
		details = appendDetail(details, "Outcome", codingDisplay(proc.Outcome))

		var bodySites []string
		for _, site := range proc.BodySite {
			s := site
			bodySites = append(bodySites, codingDisplay(&s))
		}
		var extra []string
		if len(bodySites) > 0 {
			extra = append(extra, "    Body sites: "+strings.Join(bodySites, ", "))
		}

		groups[name] = append(groups[name], entry{date: date, details: details, extra: extra})
	}

	report := []string{
		fmt.Sprintf("ALL PROCEDURES (%d records)", len(procedures)),
		sectionRule,
	}
	for _, name := range sortedKeys(groups) {
		report = append(report, fmt.Sprintf("• %s (%d records)", name, len(groups[name])))
		report = renderGroup(report, groups[name], 0)
		report = append(report, "")
	}
	return report
}

// formatEncounters renders encounters as a flat date-descending list rather
// than entity groups. A positive limit caps the encounters shown.
func formatEncounters(encounters []domain.Record, limit int) []string {
	if len(encounters) == 0 {
		return nil
	}

	type dated struct {
		date string
		enc  *domain.Encounter
	}
	sorted := make([]dated, 0, len(encounters))
	for _, rec := range encounters {
		if rec.Encounter == nil {
			continue
		}
		date := ""
		if rec.Encounter.Period != nil {
			date = truncateDate(rec.Encounter.Period.Start)
		}
		sorted = append(sorted, dated{date: date, enc: rec.Encounter})
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].date > sorted[j].date
	})

	report := []string{
		fmt.Sprintf("ALL ENCOUNTERS (%d records)", len(encounters)),
		sectionRule,
	}

	shown := sorted
	if limit > 0 && len(sorted) > limit {
		shown = sorted[:limit]
	}
	for _, d := range shown {
		enc := d.enc
		periodEnd := ""
		if enc.Period != nil {
			periodEnd = truncateDate(enc.Period.End)
		}

		var details []string
		details = appendDetail(details, "Date", d.date)
		if periodEnd != "" && periodEnd != d.date {
			details = appendDetail(details, "End", periodEnd)
		}
		details = appendDetail(details, "Status", enc.Status)
		details = appendDetail(details, "Type", encounterType(enc))

		report = append(report, "• "+strings.Join(details, " | "))

		if reasons := encounterReasons(enc); reasons != "" {
			report = append(report, "  Reason: "+reasons)
		}
		for _, diag := range enc.Diagnosis {
			if diag.Condition == nil {
				continue
			}
			ref := diag.Condition.Display
			if ref == "" {
				ref = diag.Condition.Reference
			}
			if ref == "" {
				continue
			}
			line := "  Diagnosis: " + ref
			if use := codingDisplay(diag.Use); use != "" {
				line += " (" + use + ")"
			}
			report = append(report, line)
		}
		report = append(report, "")
	}

	if limit > 0 && len(encounters) > limit {
		report = append(report, fmt.Sprintf("... and %d more encounters", len(encounters)-limit))
		report = append(report, "")
	}
	return report
}

func formatFamilyHistory(familyHistory []domain.Record) []string {
	if len(familyHistory) == 0 {
		return nil
	}

	report := []string{
		fmt.Sprintf("FAMILY HISTORY (%d records)", len(familyHistory)),
		sectionRule,
	}
	for _, rec := range familyHistory {
		member := rec.FamilyHistory
		if member == nil {
			continue
		}
		date := truncateDate(member.Date)

		var details []string
		details = appendDetail(details, "Relationship", codingDisplay(member.Relationship))
		details = appendDetail(details, "Date", date)
		if len(details) > 0 {
			report = append(report, "• "+strings.Join(details, " | "))
		}

		for _, condition := range member.Condition {
			name := codingDisplay(condition.Code)
			if condition.OnsetAge != nil && condition.OnsetAge.Value != nil {
				unit := condition.OnsetAge.Unit
				if unit == "" {
					unit = "years"
				}
				name += fmt.Sprintf(" (age %s %s)", formatFloat(*condition.OnsetAge.Value), unit)
			}
			report = append(report, "  - "+name)
		}
		report = append(report, "")
	}
	return report
}

// formatOtherResources renders resource types without a dedicated section,
// capped per type at limit entries.
func formatOtherResources(other map[string][]domain.Record, limit int) []string {
	if len(other) == 0 {
		return nil
	}

	report := []string{
		"OTHER CLINICAL RESOURCES",
		sectionRule,
	}
	for _, resourceType := range sortedKeys(other) {
		resources := other[resourceType]
		report = append(report, fmt.Sprintf("%s (%d records)", strings.ToUpper(resourceType), len(resources)))

		shown := resources
		if limit > 0 && len(resources) > limit {
			shown = resources[:limit]
		}
		for _, rec := range shown {
			if rec.Other == nil {
				continue
			}
			report = append(report, "  • "+basicResourceInfo(rec.Other))
		}
		if limit > 0 && len(resources) > limit {
			report = append(report, fmt.Sprintf("  ... and %d more", len(resources)-limit))
		}
		report = append(report, "")
	}
	return report
}
