// Package workflow runs the queue site's two-step form chain and retries it
// when the captcha is misread.
package workflow

import (
	"bytes"
	"context"
	"fmt"

	"github.com/rahul/slotwatch/internal/captcha"
	"github.com/rahul/slotwatch/internal/observability"
	"github.com/rahul/slotwatch/internal/page"
)

// RejectionMarker appears in the first submission's response when the code
// was wrong.
const RejectionMarker = "Символы с картинки введены неправильно"

// Field names injected into the queue site's forms.
const (
	FieldRequestNumber  = "ctl00$MainContent$txtID"
	FieldProtectionCode = "ctl00$MainContent$txtUniqueID"
	FieldCode           = "ctl00$MainContent$txtCode"
	FieldFeedbackClient = "ctl00$MainContent$FeedbackClientID"
	FieldFeedbackOrder  = "ctl00$MainContent$FeedbackOrderID"
	FieldButtonX        = "ctl00$MainContent$ButtonB.x"
	FieldButtonY        = "ctl00$MainContent$ButtonB.y"
)

// Session is the HTTP session an attempt runs over.
type Session interface {
	page.Fetcher
	Reset() error
}

// Orchestrator runs single attempts of the form chain.
type Orchestrator struct {
	Session        Session
	Solver         captcha.Solver
	QueueURL       string
	RequestNumber  string
	ProtectionCode string

	Observer StateObserver
	Events   *observability.Logger
}

type attempt struct {
	o     *Orchestrator
	runID string
	n     int
	state State
	doc   page.Document
	form  *page.Form
	msg   string
}

func (a *attempt) enter(s State) {
	a.state = s
	a.o.Events.LogState(a.runID, a.n, s.String())
	if a.o.Observer != nil {
		a.o.Observer.SetState(a.n, s.String())
	}
}

func (a *attempt) fail(err error) Outcome {
	a.enter(StateFailed)
	return Outcome{Kind: Failed, Err: err}
}

func (a *attempt) reject(err error) Outcome {
	a.enter(StateCaptchaRejected)
	return Outcome{Kind: Rejected, Err: err}
}

// Attempt walks the chain once. n is the 1-based attempt number used for
// logging.
func (o *Orchestrator) Attempt(ctx context.Context, runID string, n int) Outcome {
	a := &attempt{o: o, runID: runID, n: n}
	a.enter(StateStart)

	for !a.state.Terminal() {
		var out *Outcome
		switch a.state {
		case StateStart:
			out = a.fetchFirstPage(ctx)
		case StateFirstPageFetched:
			out = a.solveChallenge(ctx)
		case StateChallengeSolved:
			out = a.submitFirstForm(ctx)
		case StateFirstFormSubmitted:
			out = a.submitSecondForm(ctx)
		case StateSecondFormSubmitted:
			out = a.readResult()
		}
		if out != nil {
			return *out
		}
	}
	return Outcome{Kind: Success, Message: a.msg}
}

func (a *attempt) fetchFirstPage(ctx context.Context) *Outcome {
	body, err := a.o.Session.Fetch(ctx, a.o.QueueURL, nil)
	if err != nil {
		out := a.fail(fmt.Errorf("fetch queue page: %w", err))
		return &out
	}
	doc, err := page.Parse(body)
	if err != nil {
		out := a.fail(fmt.Errorf("parse queue page: %w", err))
		return &out
	}
	form, err := page.ExtractForm(doc)
	if err != nil {
		out := a.fail(fmt.Errorf("queue page: %w", err))
		return &out
	}
	a.doc, a.form = doc, form
	a.enter(StateFirstPageFetched)
	return nil
}

func (a *attempt) solveChallenge(ctx context.Context) *Outcome {
	ch, err := page.FetchChallenge(ctx, a.o.Session, a.doc, a.o.QueueURL)
	if err != nil {
		out := a.fail(fmt.Errorf("queue page: %w", err))
		return &out
	}
	code, err := a.o.Solver.Solve(ctx, ch.Image)
	if err != nil {
		if ctx.Err() != nil {
			out := a.fail(ctx.Err())
			return &out
		}
		out := a.reject(fmt.Errorf("%w: %w", ErrCaptchaUnsolved, err))
		return &out
	}
	a.o.Events.LogCaptcha(a.runID, a.n, ch.URL, code)

	a.form.Set(FieldRequestNumber, a.o.RequestNumber)
	a.form.Set(FieldProtectionCode, a.o.ProtectionCode)
	a.form.Set(FieldCode, code)
	a.form.Set(FieldFeedbackClient, "0")
	a.form.Set(FieldFeedbackOrder, "0")
	a.enter(StateChallengeSolved)
	return nil
}

func (a *attempt) submitFirstForm(ctx context.Context) *Outcome {
	body, err := a.o.Session.Fetch(ctx, a.o.QueueURL, a.form)
	if err != nil {
		out := a.fail(fmt.Errorf("submit first form: %w", err))
		return &out
	}
	if bytes.Contains(body, []byte(RejectionMarker)) {
		out := a.reject(ErrCaptchaRejected)
		return &out
	}
	doc, err := page.Parse(body)
	if err != nil {
		out := a.fail(fmt.Errorf("parse first form response: %w", err))
		return &out
	}
	form, err := page.ExtractForm(doc)
	if err != nil {
		out := a.fail(fmt.Errorf("first form response: %w", err))
		return &out
	}
	form.Set(FieldButtonX, "0")
	form.Set(FieldButtonY, "0")
	a.form = form
	a.enter(StateFirstFormSubmitted)
	return nil
}

func (a *attempt) submitSecondForm(ctx context.Context) *Outcome {
	body, err := a.o.Session.Fetch(ctx, a.o.QueueURL, a.form)
	if err != nil {
		out := a.fail(fmt.Errorf("submit second form: %w", err))
		return &out
	}
	doc, err := page.Parse(body)
	if err != nil {
		out := a.fail(fmt.Errorf("parse result page: %w", err))
		return &out
	}
	a.doc = doc
	a.enter(StateSecondFormSubmitted)
	return nil
}

func (a *attempt) readResult() *Outcome {
	msg, err := page.ResultText(a.doc)
	if err != nil {
		out := a.fail(fmt.Errorf("result page: %w", err))
		return &out
	}
	a.msg = msg
	a.enter(StateDone)
	return nil
}
