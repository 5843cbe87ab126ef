// Package locale resolves a request's locale and translates user-facing
// messages.
//
// It uses golang.org/x/text: language.Matcher picks the best supported
// language from user preferences and Accept-Language / LANG values, and a
// catalog.Builder holds the built-in message translations used for error
// reporting.
package locale
