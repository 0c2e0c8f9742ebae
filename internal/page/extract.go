package page

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Element ids on the queue site.
const (
	ChallengeImageID = "ctl00_MainContent_imgSecNum"
	ResultPanelID    = "center-panel"
)

var (
	ErrFormNotFound        = errors.New("no form found in page")
	ErrImageNotFound       = errors.New("captcha image not found in page")
	ErrResultPanelNotFound = errors.New("result panel not found in page")
)

// Fetcher retrieves a URL, posting form when it is non-nil.
type Fetcher interface {
	Fetch(ctx context.Context, url string, form *Form) ([]byte, error)
}

// Challenge is a captcha image downloaded from the page.
type Challenge struct {
	URL   string
	Image []byte
}

// ExtractForm collects every named input of the first form. Inputs without a
// value attribute map to "", and a repeated name keeps its last value.
func ExtractForm(doc Document) (*Form, error) {
	form, ok := doc.FirstForm()
	if !ok {
		return nil, ErrFormNotFound
	}
	f := NewForm()
	for _, in := range form.Inputs() {
		if in.Name == "" {
			continue
		}
		f.Set(in.Name, in.Value)
	}
	return f, nil
}

// ChallengeURL finds the captcha image and resolves its src against the
// folder of pageURL.
func ChallengeURL(doc Document, pageURL string) (string, error) {
	img, ok := doc.FindByID(ChallengeImageID)
	if !ok {
		return "", fmt.Errorf("%w: no element with id %q", ErrImageNotFound, ChallengeImageID)
	}
	src, _ := img.Attr("src")
	if src == "" {
		return "", fmt.Errorf("%w: element %q has no src", ErrImageNotFound, ChallengeImageID)
	}
	return ResolveSameFolder(pageURL, src), nil
}

// ResolveSameFolder joins src onto everything in pageURL up to and including
// its last slash. The query string of pageURL is dropped along with the last
// path segment. This is deliberately not RFC 3986 reference resolution.
func ResolveSameFolder(pageURL, src string) string {
	i := strings.LastIndex(pageURL, "/")
	if i < 0 {
		return src
	}
	return pageURL[:i+1] + src
}

// FetchChallenge locates the captcha image and downloads it through f, so
// the session cookies of the page request apply to the image as well.
func FetchChallenge(ctx context.Context, f Fetcher, doc Document, pageURL string) (*Challenge, error) {
	u, err := ChallengeURL(doc, pageURL)
	if err != nil {
		return nil, err
	}
	img, err := f.Fetch(ctx, u, nil)
	if err != nil {
		return nil, fmt.Errorf("download captcha image: %w", err)
	}
	return &Challenge{URL: u, Image: img}, nil
}

var textPolicy = bluemonday.StrictPolicy()

// ResultText returns the trimmed text content of the result panel. Tags are
// dropped along with script and style bodies; escaped text is decoded, so
// "&lt;b&gt;" on the page reads as a literal "<b>".
func ResultText(doc Document) (string, error) {
	panel, ok := doc.FindByID(ResultPanelID)
	if !ok {
		return "", ErrResultPanelNotFound
	}
	inner, err := panel.HTML()
	if err != nil {
		return "", fmt.Errorf("read result panel: %w", err)
	}
	return strings.TrimSpace(html.UnescapeString(textPolicy.Sanitize(inner))), nil
}
