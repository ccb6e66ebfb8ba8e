package catalog

import (
	"fmt"
	"strings"

	"symptom-checker/internal/domain"
)

// Symptom ids of the default catalog.
const (
	ChestPain        domain.SymptomID = "chest_pain"
	TroubleBreathing domain.SymptomID = "trouble_breathing"
	Bleeding         domain.SymptomID = "bleeding"
	Fever            domain.SymptomID = "fever"
	InfectionRisk    domain.SymptomID = "infection_risk"
	Fatigue          domain.SymptomID = "fatigue"
	Nausea           domain.SymptomID = "nausea"
	Diarrhea         domain.SymptomID = "diarrhea"
	Dehydration      domain.SymptomID = "dehydration"
	Constipation     domain.SymptomID = "constipation"
	Pain             domain.SymptomID = "pain"
	MouthSores       domain.SymptomID = "mouth_sores"
)

// Logic is the evaluation code paired with one symptom's content.
// FollowUp is nil for symptoms without a follow-up set.
type Logic struct {
	Screening domain.Evaluator
	FollowUp  domain.Evaluator
}

// DefaultLogic returns the evaluators of the default catalog keyed by id.
func DefaultLogic() map[domain.SymptomID]Logic {
	return map[domain.SymptomID]Logic{
		ChestPain:        {Screening: domain.EvaluatorFunc(screenChestPain)},
		TroubleBreathing: {Screening: domain.EvaluatorFunc(screenTroubleBreathing), FollowUp: domain.EvaluatorFunc(followTroubleBreathing)},
		Bleeding:         {Screening: domain.EvaluatorFunc(screenBleeding)},
		Fever:            {Screening: domain.EvaluatorFunc(screenFever)},
		InfectionRisk:    {Screening: domain.EvaluatorFunc(screenInfectionRisk)},
		Fatigue:          {Screening: domain.EvaluatorFunc(screenFatigue)},
		Nausea:           {Screening: domain.EvaluatorFunc(screenNausea), FollowUp: domain.EvaluatorFunc(followNausea)},
		Diarrhea:         {Screening: domain.EvaluatorFunc(screenDiarrhea)},
		Dehydration:      {Screening: domain.EvaluatorFunc(screenDehydration)},
		Constipation:     {Screening: domain.EvaluatorFunc(screenConstipation)},
		Pain:             {Screening: domain.EvaluatorFunc(screenPain), FollowUp: domain.EvaluatorFunc(followPain)},
		MouthSores:       {Screening: domain.EvaluatorFunc(screenMouthSores)},
	}
}

func screenChestPain(a domain.Answers) domain.LogicResult {
	if !a.Bool("active") {
		if a.Bool("short_of_breath") {
			return domain.Branch(TroubleBreathing)
		}
		return domain.Continue()
	}
	severity, _ := a.Number("severity")
	if a.Bool("radiating") || a.Bool("short_of_breath") || severity >= 7 {
		return domain.Stop(domain.TriageCall911, "Chest pain with warning signs")
	}
	return domain.Stop(domain.TriageNotifyCareTeam, "Ongoing chest pain")
}

func screenTroubleBreathing(a domain.Answers) domain.LogicResult {
	if a.Bool("at_rest") || a.Bool("blue_lips") {
		return domain.Stop(domain.TriageCall911, "Short of breath at rest or blue lips")
	}
	return domain.Continue()
}

func followTroubleBreathing(a domain.Answers) domain.LogicResult {
	if a.Text("cough") == "blood" {
		return domain.Stop(domain.TriageNotifyCareTeam, "Coughing up blood")
	}
	if a.Bool("worse") {
		return domain.Stop(domain.TriageNotifyCareTeam, "Breathing worse over the last 24 hours")
	}
	return domain.Continue()
}

func screenBleeding(a domain.Answers) domain.LogicResult {
	if a.Bool("uncontrolled") {
		return domain.Stop(domain.TriageCall911, "Bleeding that will not stop")
	}
	switch a.Text("location") {
	case "stool", "vomit":
		return domain.Stop(domain.TriageNotifyCareTeam, "Blood in stool or vomit")
	case "urine":
		return domain.Stop(domain.TriageNotifyCareTeam, "Blood in urine")
	}
	return domain.Continue()
}

func screenFever(a domain.Answers) domain.LogicResult {
	temp, _ := a.Number("temperature")
	switch {
	case temp >= 103:
		return domain.Stop(domain.TriageCall911, "Temperature of 103°F or higher")
	case temp >= 100.4:
		return domain.Branch(InfectionRisk).WithTriage(domain.TriageNotifyCareTeam, "Temperature of 100.4°F or higher")
	case a.Bool("chills"):
		return domain.Branch(InfectionRisk)
	}
	return domain.Continue()
}

func screenInfectionRisk(a domain.Answers) domain.LogicResult {
	if a.Bool("confused") {
		return domain.Stop(domain.TriageCall911, "Fever with confusion or unusual sleepiness")
	}
	if a.Bool("recent_chemo") {
		if a.Bool("shaking_chills") {
			return domain.Stop(domain.TriageCall911, "Shaking chills within 14 days of chemotherapy")
		}
		return domain.Stop(domain.TriageNotifyCareTeam, "Fever within 14 days of chemotherapy")
	}
	return domain.Continue()
}

func screenFatigue(a domain.Answers) domain.LogicResult {
	if a.Text("level") == "severe" && a.Bool("bed_bound") {
		return domain.Stop(domain.TriageNotifyCareTeam, "Severe fatigue, in bed most of the day")
	}
	return domain.Continue()
}

func screenNausea(a domain.Answers) domain.LogicResult {
	days, _ := a.Number("vomit_days")
	if a.Bool("vomiting") && days >= 2 {
		return domain.Stop(domain.TriageNotifyCareTeam, "Persistent vomiting for 2+ days")
	}
	if a.Has("keeps_fluids") && !a.Bool("keeps_fluids") {
		return domain.Branch(Dehydration).WithTriage(domain.TriageNotifyCareTeam, "Unable to keep fluids down")
	}
	return domain.Continue()
}

func followNausea(a domain.Answers) domain.LogicResult {
	if a.Text("eating") == "barely" {
		return domain.Stop(domain.TriageNotifyCareTeam, "Barely eating because of nausea")
	}
	if a.Has("meds_helping") && !a.Bool("meds_helping") && a.Bool("meds_taken") {
		return domain.Stop(domain.TriageNotifyCareTeam, "Anti-nausea medicine is not working")
	}
	return domain.Continue()
}

func screenDiarrhea(a domain.Answers) domain.LogicResult {
	if a.Bool("blood") {
		return domain.Stop(domain.TriageNotifyCareTeam, "Blood in stool")
	}
	episodes, _ := a.Number("episodes")
	switch {
	case episodes >= 7:
		return domain.Branch(Dehydration).WithTriage(domain.TriageNotifyCareTeam, "7 or more loose stools in 24 hours")
	case episodes >= 4:
		return domain.Stop(domain.TriageNotifyCareTeam, "4 to 6 loose stools in 24 hours")
	}
	return domain.Continue()
}

func screenDehydration(a domain.Answers) domain.LogicResult {
	if a.Bool("fainted") {
		return domain.Stop(domain.TriageCall911, "Fainting with signs of dehydration")
	}
	if a.Text("urine") == "none" {
		return domain.Stop(domain.TriageNotifyCareTeam, "No urine in the last 12 hours")
	}
	if a.Bool("dizzy") {
		return domain.Stop(domain.TriageNotifyCareTeam, "Dizziness when standing")
	}
	return domain.Continue()
}

func screenConstipation(a domain.Answers) domain.LogicResult {
	days, _ := a.Number("days")
	if days >= 3 && a.Bool("belly_pain") {
		return domain.Stop(domain.TriageNotifyCareTeam, "No bowel movement for 3+ days with belly pain")
	}
	return domain.Continue()
}

func screenPain(a domain.Answers) domain.LogicResult {
	severity, _ := a.Number("severity")
	if a.Includes("location", "chest") {
		r := domain.Branch(ChestPain)
		if severity >= 7 {
			r = r.WithTriage(domain.TriageNotifyCareTeam, fmt.Sprintf("Pain rated %g out of 10", severity))
		}
		return r
	}
	if severity >= 7 {
		return domain.Stop(domain.TriageNotifyCareTeam, fmt.Sprintf("Pain rated %g out of 10", severity))
	}
	return domain.Continue()
}

func followPain(a domain.Answers) domain.LogicResult {
	if a.Has("meds_helping") && !a.Bool("meds_helping") {
		msg := "Pain not controlled by medicine"
		if d := strings.TrimSpace(a.Text("describe")); d != "" {
			msg += " (" + d + ")"
		}
		return domain.Stop(domain.TriageNotifyCareTeam, msg)
	}
	return domain.Continue()
}

func screenMouthSores(a domain.Answers) domain.LogicResult {
	if a.Bool("cannot_eat") {
		return domain.Stop(domain.TriageNotifyCareTeam, "Mouth sores keeping you from eating or drinking")
	}
	if a.Bool("white_patches") {
		return domain.Stop(domain.TriageNotifyCareTeam, "White patches in the mouth")
	}
	return domain.Continue()
}
