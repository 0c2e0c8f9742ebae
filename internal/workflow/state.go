package workflow

// State is a step of one attempt through the form chain.
type State int

const (
	StateStart State = iota
	StateFirstPageFetched
	StateChallengeSolved
	StateFirstFormSubmitted
	StateSecondFormSubmitted
	StateDone
	StateCaptchaRejected
	StateFailed
)

var stateNames = [...]string{
	StateStart:               "Start",
	StateFirstPageFetched:    "FirstPageFetched",
	StateChallengeSolved:     "ChallengeSolved",
	StateFirstFormSubmitted:  "FirstFormSubmitted",
	StateSecondFormSubmitted: "SecondFormSubmitted",
	StateDone:                "Done",
	StateCaptchaRejected:     "CaptchaRejected",
	StateFailed:              "Failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "Unknown"
	}
	return stateNames[s]
}

// Terminal reports whether no transition leaves s within the same attempt.
func (s State) Terminal() bool {
	return s == StateDone || s == StateCaptchaRejected || s == StateFailed
}

// StateObserver is told about every state an attempt enters.
type StateObserver interface {
	SetState(attempt int, state string)
}

// Kind tags how an attempt ended.
type Kind int

const (
	Success Kind = iota
	Rejected
	Failed
)

func (k Kind) String() string {
	switch k {
	case Success:
		return "success"
	case Rejected:
		return "rejected"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Outcome is the result of one attempt. Message is set for Success, Err for
// Rejected and Failed.
type Outcome struct {
	Kind    Kind
	Message string
	Err     error
}
