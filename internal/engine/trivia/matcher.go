// Package trivia decides whether a submitted answer is correct and serves
// questions from module pools.
package trivia

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/KirkDiggler/cyber-arena/internal/entities"
)

const (
	// AnswerSeparator separates accepted alternatives of a free-text answer
	AnswerSeparator = "|"
	// MinPartialLength is the shortest normalized submission accepted by containment
	MinPartialLength = 3
)

// Normalize lowercases, trims and strips diacritics so "César" matches "cesar"
func Normalize(s string) string {
	// transformers are stateful, build one per call
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return strings.ToLower(strings.TrimSpace(s))
	}
	return out
}

// AcceptedAnswers returns the alternatives that count as a correct answer
func AcceptedAnswers(q *entities.Question) []string {
	var accepted []string
	if q.MultipleChoice() && *q.Correct >= 0 && *q.Correct < len(q.Choices) {
		accepted = append(accepted, q.Choices[*q.Correct])
	}
	for _, alt := range strings.Split(q.Answer, AnswerSeparator) {
		if strings.TrimSpace(alt) != "" {
			accepted = append(accepted, alt)
		}
	}
	return accepted
}

// Check reports whether submission answers q. A multiple choice question
// accepts the index of the correct choice or its text; text answers are
// compared normalized, and a submission of at least MinPartialLength
// characters contained in an accepted alternative also counts.
func Check(q *entities.Question, submission string) bool {
	if q == nil || strings.TrimSpace(submission) == "" {
		return false
	}

	if q.MultipleChoice() {
		if idx, err := strconv.Atoi(strings.TrimSpace(submission)); err == nil {
			return idx == *q.Correct
		}
	}

	user := Normalize(submission)
	for _, alt := range AcceptedAnswers(q) {
		want := Normalize(alt)
		if user == want {
			return true
		}
		if utf8.RuneCountInString(user) >= MinPartialLength && strings.Contains(want, user) {
			return true
		}
	}
	return false
}
