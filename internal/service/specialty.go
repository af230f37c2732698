package service

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/Leganyst/clinic-scheduling/internal/model"
)

// SpecialtyMatch — результат сопоставления свободного текста со справочником.
// Mapped=false: текст не распознан и передан дальше как есть.
type SpecialtyMatch struct {
	Value  model.Specialty
	Mapped bool
}

// Ключи без диакритики и в нижнем регистре.
var specialtyLookup = map[string]model.Specialty{
	"cardiologista":       model.SpecialtyCardiology,
	"cardiologia":         model.SpecialtyCardiology,
	"cardiology":          model.SpecialtyCardiology,
	"dermatologista":      model.SpecialtyDermatology,
	"dermatologia":        model.SpecialtyDermatology,
	"dermatology":         model.SpecialtyDermatology,
	"endocrinologista":    model.SpecialtyEndocrinology,
	"endocrinologia":      model.SpecialtyEndocrinology,
	"endocrinology":       model.SpecialtyEndocrinology,
	"gastroenterologista": model.SpecialtyGastroenterology,
	"gastroenterologia":   model.SpecialtyGastroenterology,
	"gastroenterology":    model.SpecialtyGastroenterology,
	"ginecologista":       model.SpecialtyGynecology,
	"ginecologia":         model.SpecialtyGynecology,
	"gynecology":          model.SpecialtyGynecology,
	"neurologista":        model.SpecialtyNeurology,
	"neurologia":          model.SpecialtyNeurology,
	"neurology":           model.SpecialtyNeurology,
	"ortopedista":         model.SpecialtyOrthopedics,
	"ortopedia":           model.SpecialtyOrthopedics,
	"orthopedics":         model.SpecialtyOrthopedics,
	"pediatra":            model.SpecialtyPediatrics,
	"pediatria":           model.SpecialtyPediatrics,
	"pediatrics":          model.SpecialtyPediatrics,
	"psiquiatra":          model.SpecialtyPsychiatry,
	"psiquiatria":         model.SpecialtyPsychiatry,
	"psychiatry":          model.SpecialtyPsychiatry,
	"urologista":          model.SpecialtyUrology,
	"urologia":            model.SpecialtyUrology,
	"urology":             model.SpecialtyUrology,
	"clinico geral":       model.SpecialtyGeneralPractice,
	"clinica geral":       model.SpecialtyGeneralPractice,
	"general practice":    model.SpecialtyGeneralPractice,
	"general_practice":    model.SpecialtyGeneralPractice,
}

func foldText(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}

// LookupSpecialty переводит свободный текст в специальность из справочника.
func LookupSpecialty(text string) SpecialtyMatch {
	if s, ok := specialtyLookup[foldText(text)]; ok {
		return SpecialtyMatch{Value: s, Mapped: true}
	}
	return SpecialtyMatch{Value: model.Specialty(strings.TrimSpace(text))}
}
