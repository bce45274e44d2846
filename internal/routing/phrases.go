package routing

import (
	"fmt"
	"strings"

	"github.com/hyperjump/tayyib/internal/models"
)

// clarifierRule maps topic keywords to a clarifying question and quick replies.
type clarifierRule struct {
	keywords []string
	question string
	options  []string
}

type headings struct {
	direct   string
	steps    string
	mistakes string
}

// phrases holds every fixed user-visible sentence for one language.
type phrases struct {
	scope        string
	disclaimer   string
	headings     headings
	sessionLimit string
	emptyQuery   string
	chatError    string
	clarifiers   []clarifierRule
	generic      clarifierRule
}

var phraseTable = map[models.Lang]*phrases{
	models.LangEN: {
		scope:        "This kiosk covers Umrah, Nusuk, and Rawdah guidance only.",
		disclaimer:   "I do not have official sources for this, but here is general guidance:",
		headings:     headings{direct: "Direct Answer", steps: "Steps", mistakes: "Common Mistakes"},
		sessionLimit: "This session reached the limit (%d messages). Tap End Session to start a new session.",
		emptyQuery:   "Please ask me a question about Umrah!",
		chatError:    "Sorry, I couldn't complete that request. Please try again.",
		clarifiers: []clarifierRule{
			{
				keywords: []string{"ihram"},
				question: "Do you mean ihram rules, crossing the miqat, or what to do if you already passed miqat?",
				options:  []string{"Ihram rules", "Miqat crossing", "Passed miqat"},
			},
			{
				keywords: []string{"rawdah"},
				question: "Do you mean Rawdah booking or visit rules?",
				options:  []string{"Rawdah booking", "Visit rules", "Permit timing"},
			},
		},
		generic: clarifierRule{
			question: "Do you mean an Umrah step, a Nusuk permit, or Rawdah visit details?",
			options:  []string{"Umrah steps", "Nusuk permit", "Rawdah visit"},
		},
	},
	models.LangAR: {
		scope:        "هذا الكشك مخصص لإرشادات العمرة ونسك والروضة الشريفة فقط.",
		disclaimer:   "لا تتوفر لدي مصادر رسمية لهذا السؤال، وهذه ارشادات عامة:",
		headings:     headings{direct: "الاجابة المباشرة", steps: "الخطوات", mistakes: "اخطاء شائعة"},
		sessionLimit: "وصلت هذه الجلسة الى الحد الاقصى (%d رسالة). اضغط انهاء الجلسة للبدء من جديد.",
		emptyQuery:   "من فضلك اكتب سؤالا عن العمرة.",
		chatError:    "عذرا، تعذر اكمال الطلب. حاول مرة اخرى.",
		clarifiers: []clarifierRule{
			{
				keywords: []string{"الإحرام", "ihram"},
				question: "هل تقصد أحكام الإحرام، أم عبور الميقات، أم ماذا تفعل إذا تجاوزت الميقات؟",
				options:  []string{"أحكام الإحرام", "عبور الميقات", "تجاوز الميقات"},
			},
			{
				keywords: []string{"الروضة", "rawdah"},
				question: "هل تقصد حجز الروضة الشريفة أم قواعد الزيارة؟",
				options:  []string{"حجز الروضة الشريفة", "قواعد الزيارة", "وقت التصريح"},
			},
		},
		generic: clarifierRule{
			question: "هل تقصد خطوة من خطوات العمرة، أم تصريح نسك، أم زيارة الروضة الشريفة؟",
			options:  []string{"خطوات العمرة", "تصريح نسك", "زيارة الروضة الشريفة"},
		},
	},
	models.LangFR: {
		scope:        "Ce kiosque couvre uniquement la Omra, Nusuk et la Rawdah.",
		disclaimer:   "Je n'ai pas de sources officielles pour cette question, voici des conseils generaux :",
		headings:     headings{direct: "Reponse directe", steps: "Etapes", mistakes: "Erreurs courantes"},
		sessionLimit: "Cette session a atteint la limite (%d messages). Touchez Fin de session pour recommencer.",
		emptyQuery:   "Veuillez poser une question sur la Omra.",
		chatError:    "Desole, la demande n'a pas pu aboutir. Veuillez reessayer.",
		clarifiers: []clarifierRule{
			{
				keywords: []string{"ihram"},
				question: "Parlez-vous des regles de l'ihram, du passage du miqat, ou de quoi faire apres l'avoir depasse ?",
				options:  []string{"Regles de l'ihram", "Passage du miqat", "Depassement du miqat"},
			},
			{
				keywords: []string{"rawdah"},
				question: "Parlez-vous de la reservation Rawdah ou des regles de visite ?",
				options:  []string{"Reservation Rawdah", "Regles de visite", "Heure du permis"},
			},
		},
		generic: clarifierRule{
			question: "Parlez-vous d'une etape de la Omra, d'un permis Nusuk, ou de la Rawdah ?",
			options:  []string{"Etapes de la Omra", "Permis Nusuk", "Visite Rawdah"},
		},
	},
}

// phrasesFor returns the table for lang, falling back to the default language.
func phrasesFor(lang models.Lang) *phrases {
	if p, ok := phraseTable[lang]; ok {
		return p
	}
	return phraseTable[models.DefaultLang]
}

// ScopeMessage is the fixed scope-boundary sentence.
func ScopeMessage(lang models.Lang) string {
	return phrasesFor(lang).scope
}

// Disclaimer is the sentence every ungrounded answer opens with.
func Disclaimer(lang models.Lang) string {
	return phrasesFor(lang).disclaimer
}

// SessionLimitMessage is shown once a session has used up its turns.
func SessionLimitMessage(lang models.Lang, limit int) string {
	return fmt.Sprintf(phrasesFor(lang).sessionLimit, limit)
}

// EmptyQueryMessage asks the visitor to type a question.
func EmptyQueryMessage(lang models.Lang) string {
	return phrasesFor(lang).emptyQuery
}

// ChatErrorMessage is the generic apology for an unexpected failure.
func ChatErrorMessage(lang models.Lang) string {
	return phrasesFor(lang).chatError
}

func (p *phrases) clarifierFor(query string) clarifierRule {
	lower := strings.ToLower(query)
	for _, rule := range p.clarifiers {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule
			}
		}
	}
	return p.generic
}

// Clarifier returns the deterministic keyword-based clarifying question.
func Clarifier(query string, lang models.Lang) string {
	return phrasesFor(lang).clarifierFor(query).question
}

// ClarifierOptions returns the quick replies paired with Clarifier.
func ClarifierOptions(query string, lang models.Lang) []string {
	opts := phrasesFor(lang).clarifierFor(query).options
	return append([]string(nil), opts...)
}
