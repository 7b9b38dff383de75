package entities

// Question is a trivia item gating a combat action or a quiz step.
//
// Multiple choice questions carry Choices and the index of the correct one.
// Free-text questions carry Answer, with accepted alternatives separated by "|".
type Question struct {
	ID          string   `json:"id" yaml:"id"`
	Module      string   `json:"module" yaml:"module"`
	Prompt      string   `json:"prompt" yaml:"prompt"`
	Choices     []string `json:"choices,omitempty" yaml:"choices,omitempty"`
	Correct     *int     `json:"correct,omitempty" yaml:"correct,omitempty"`
	Answer      string   `json:"answer,omitempty" yaml:"answer,omitempty"`
	Explanation string   `json:"explanation,omitempty" yaml:"explanation,omitempty"`
}

// MultipleChoice reports whether the question is answered by picking a choice
func (q *Question) MultipleChoice() bool {
	return len(q.Choices) > 0 && q.Correct != nil
}
