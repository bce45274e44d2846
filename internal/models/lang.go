// Package models defines the request, routing, and streaming data structures of the kiosk assistant.
package models

import "strings"

// Lang is one of the kiosk's supported languages.
type Lang string

const (
	LangEN Lang = "EN"
	LangAR Lang = "AR"
	LangFR Lang = "FR"
)

// DefaultLang is used whenever a language is unknown.
const DefaultLang = LangEN

// Langs lists the supported languages in display order.
var Langs = []Lang{LangEN, LangAR, LangFR}

// ParseLang maps s case-insensitively to a supported language.
// Unknown values fall back to DefaultLang and report false.
func ParseLang(s string) (Lang, bool) {
	switch Lang(strings.ToUpper(strings.TrimSpace(s))) {
	case LangEN:
		return LangEN, true
	case LangAR:
		return LangAR, true
	case LangFR:
		return LangFR, true
	}
	return DefaultLang, false
}

// Valid reports whether l is a supported language.
func (l Lang) Valid() bool {
	switch l {
	case LangEN, LangAR, LangFR:
		return true
	}
	return false
}

// Name returns the English name of the language, used in prompts.
func (l Lang) Name() string {
	switch l {
	case LangAR:
		return "Arabic"
	case LangFR:
		return "French"
	default:
		return "English"
	}
}
