package model

// Специальность врача (каноническое значение, хранится в doctors.specialty).
type Specialty string

const (
	SpecialtyCardiology       Specialty = "cardiology"
	SpecialtyDermatology      Specialty = "dermatology"
	SpecialtyEndocrinology    Specialty = "endocrinology"
	SpecialtyGastroenterology Specialty = "gastroenterology"
	SpecialtyGynecology       Specialty = "gynecology"
	SpecialtyNeurology        Specialty = "neurology"
	SpecialtyOrthopedics      Specialty = "orthopedics"
	SpecialtyPediatrics       Specialty = "pediatrics"
	SpecialtyPsychiatry       Specialty = "psychiatry"
	SpecialtyUrology          Specialty = "urology"
	SpecialtyGeneralPractice  Specialty = "general_practice"
)

// Полный список в порядке отображения.
var Specialties = []Specialty{
	SpecialtyCardiology,
	SpecialtyDermatology,
	SpecialtyEndocrinology,
	SpecialtyGastroenterology,
	SpecialtyGynecology,
	SpecialtyNeurology,
	SpecialtyOrthopedics,
	SpecialtyPediatrics,
	SpecialtyPsychiatry,
	SpecialtyUrology,
	SpecialtyGeneralPractice,
}

var specialtyNames = map[Specialty]string{
	SpecialtyCardiology:       "Cardiologia",
	SpecialtyDermatology:      "Dermatologia",
	SpecialtyEndocrinology:    "Endocrinologia",
	SpecialtyGastroenterology: "Gastroenterologia",
	SpecialtyGynecology:       "Ginecologia",
	SpecialtyNeurology:        "Neurologia",
	SpecialtyOrthopedics:      "Ortopedia",
	SpecialtyPediatrics:       "Pediatria",
	SpecialtyPsychiatry:       "Psiquiatria",
	SpecialtyUrology:          "Urologia",
	SpecialtyGeneralPractice:  "Clínica Geral",
}

func (s Specialty) Valid() bool {
	_, ok := specialtyNames[s]
	return ok
}

// DisplayName возвращает название для пациента; неизвестное значение отдаётся как есть.
func (s Specialty) DisplayName() string {
	if name, ok := specialtyNames[s]; ok {
		return name
	}
	return string(s)
}
