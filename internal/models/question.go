package models

type QuestionKind int

const (
	FreeText QuestionKind = iota
	MultipleChoice
)

func (k QuestionKind) String() string {
	if k == MultipleChoice {
		return "multiple choice"
	}
	return "free text"
}

// PendingQuestion is the single outstanding prompt from the agent.
// Options is non-empty and distinct when Kind is MultipleChoice.
type PendingQuestion struct {
	ID      string
	Text    string
	Kind    QuestionKind
	Options []string
}

func (q PendingQuestion) Clone() PendingQuestion {
	out := q
	if q.Options != nil {
		out.Options = append([]string(nil), q.Options...)
	}
	return out
}
