package intake

// Question is one entry of a questionnaire. Keys are the stored answer keys.
type Question struct {
	Key   string
	Label string
}

var sharedQuestions = []Question{
	{"sono", "Good sleep quality?"},
	{"intestino", "Regular bowel function?"},
	{"agua", "Drinks water frequently?"},
	{"alcool", "Drinks alcohol?"},
	{"sol", "Sun exposure?"},
	{"menstrual", "Currently menstruating?"},
	{"anticoncepcional", "Uses contraceptives?"},
	{"gestante", "Pregnant?"},
	{"tabagismo", "Smoker?"},
	{"alimentacao", "Balanced diet?"},
	{"atividade_fisica", "Exercises regularly?"},
	{"alergia", "Any allergies?"},
	{"problemas_pele", "Skin problems?"},
	{"cardiacas", "Heart conditions?"},
	{"marcapasso", "Has a pacemaker?"},
	{"epilepsia", "Epilepsy or seizures?"},
	{"protese", "Body or facial prosthesis?"},
}

var facialQuestions = append([]Question{
	{"tratamento_facial", "Previous facial treatment?"},
	{"cremes", "Uses facial creams or lotions?"},
	{"lentes_contato", "Wears contact lenses?"},
}, sharedQuestions...)

var bodyQuestions = append([]Question{
	{"tratamento_corporal", "Previous body treatment?"},
	{"cremes", "Uses body creams or lotions?"},
	{"diabetes", "Diabetes?"},
}, sharedQuestions...)

// Questions returns the questionnaire of kind in form order.
func Questions(kind Kind) []Question {
	if kind == KindBody {
		return bodyQuestions
	}
	return facialQuestions
}

// SkinAssessmentFields lists the facial assessment keys in form order.
var SkinAssessmentFields = []Question{
	{"oleosidade", "Oiliness"},
	{"espessura", "Thickness"},
	{"fototipo", "Phototype"},
	{"acne_grau", "Acne grade"},
	{"hidratacao", "Hydration"},
	{"condicoes", "Conditions"},
}

// Declaration is printed under every questionnaire.
const Declaration = "I declare that the information above is true. The professional is not responsible for information omitted from this assessment."
