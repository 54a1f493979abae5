// Package translations holds the UI string tables for English and Hausa.
package translations

// Supported language codes.
const (
	English = "en"
	Hausa   = "ha"
)

var tables = map[string]map[string]string{
	English: {
		"general_welcome":          "Welcome to FiCore",
		"general_login":            "Log in",
		"general_logout":           "Log out",
		"general_signup":           "Sign up",
		"general_dashboard":        "Dashboard",
		"general_insufficient_fc":  "You do not have enough Ficore Credits for this action.",
		"general_something_wrong":  "Something went wrong. Please try again.",
		"auth_invalid_credentials": "Invalid username or password.",
		"auth_otp_sent":            "A one-time code has been sent to your email.",
		"auth_otp_invalid":         "That code is invalid or has expired.",
		"auth_reset_sent":          "If that email exists, a reset link has been sent.",
		"auth_password_changed":    "Your password has been changed.",
		"tax_calculator":           "Tax Calculator",
		"tax_exempt":               "This category is VAT-exempt.",
		"learning_hub":             "Learning Hub",
		"learning_lesson_done":     "Lesson completed.",
		"learning_quiz_passed":     "You passed the quiz!",
		"learning_quiz_failed":     "You did not pass. Review the lesson and try again.",
		"credits_balance":          "Ficore Credits balance",
		"credits_history":          "Transaction history",
	},
	Hausa: {
		"general_welcome":          "Barka da zuwa FiCore",
		"general_login":            "Shiga",
		"general_logout":           "Fita",
		"general_signup":           "Bude asusu",
		"general_dashboard":        "Allon bayanai",
		"general_insufficient_fc":  "Ba ka da isassun Ficore Credits don wannan aiki.",
		"general_something_wrong":  "Wani abu ya faru. Da fatan za a sake gwadawa.",
		"auth_invalid_credentials": "Sunan mai amfani ko kalmar sirri ba daidai ba ne.",
		"auth_otp_sent":            "An aika lambar wucin gadi zuwa imel dinka.",
		"auth_otp_invalid":         "Lambar ba daidai ba ce ko ta kare.",
		"auth_reset_sent":          "Idan imel din yana nan, an aika hanyar sake saitin.",
		"auth_password_changed":    "An canza kalmar sirrinka.",
		"tax_calculator":           "Kalkuleta na Haraji",
		"tax_exempt":               "Wannan rukuni ba ya biyan VAT.",
		"learning_hub":             "Cibiyar Koyo",
		"learning_lesson_done":     "An kammala darasi.",
		"learning_quiz_passed":     "Ka ci jarrabawar!",
		"learning_quiz_failed":     "Ba ka ci ba. Sake duba darasin ka sake gwadawa.",
		"credits_balance":          "Ragowar Ficore Credits",
		"credits_history":          "Tarihin ma'amaloli",
	},
}

// T looks up a key in the given language, falling back to English, then to
// the key itself so a missing entry is visible rather than blank.
func T(lang, key string) string {
	if t, ok := tables[lang]; ok {
		if s, ok := t[key]; ok {
			return s
		}
	}
	if s, ok := tables[English][key]; ok {
		return s
	}
	return key
}

// Table returns the full string table for a language (English fallback).
func Table(lang string) map[string]string {
	if t, ok := tables[lang]; ok {
		return t
	}
	return tables[English]
}

// Supported reports whether a language code has a table.
func Supported(lang string) bool {
	_, ok := tables[lang]
	return ok
}
