// Package page reads the queue site's server-rendered pages: the order form,
// the captcha image and the result panel.
package page

import (
	"bytes"
	"fmt"

	"github.com/PuerkitoBio/goquery"
)

// Document is the narrow query surface the workflow needs from a parsed page.
type Document interface {
	// FindByID returns the first element whose id attribute equals id.
	FindByID(id string) (Element, bool)
	// FirstForm returns the first form element in document order.
	FirstForm() (Element, bool)
}

// Element is a single node of a parsed Document.
type Element interface {
	Attr(name string) (string, bool)
	Text() string
	// HTML returns the element's inner markup.
	HTML() (string, error)
	// Inputs lists every descendant input element.
	Inputs() []Input
}

// Input describes one input element. Value is empty when the attribute is absent.
type Input struct {
	Name  string
	Value string
}

// Parse reads an HTML document.
func Parse(body []byte) (Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return &htmlDocument{doc: doc}, nil
}

type htmlDocument struct {
	doc *goquery.Document
}

func (d *htmlDocument) FindByID(id string) (Element, bool) {
	sel := d.doc.Find("[id]").FilterFunction(func(_ int, s *goquery.Selection) bool {
		v, _ := s.Attr("id")
		return v == id
	}).First()
	if sel.Length() == 0 {
		return nil, false
	}
	return &htmlElement{sel: sel}, true
}

func (d *htmlDocument) FirstForm() (Element, bool) {
	sel := d.doc.Find("form").First()
	if sel.Length() == 0 {
		return nil, false
	}
	return &htmlElement{sel: sel}, true
}

type htmlElement struct {
	sel *goquery.Selection
}

func (e *htmlElement) Attr(name string) (string, bool) {
	return e.sel.Attr(name)
}

func (e *htmlElement) Text() string {
	return e.sel.Text()
}

func (e *htmlElement) HTML() (string, error) {
	return e.sel.Html()
}

func (e *htmlElement) Inputs() []Input {
	var inputs []Input
	e.sel.Find("input").Each(func(_ int, s *goquery.Selection) {
		name, _ := s.Attr("name")
		value, _ := s.Attr("value")
		inputs = append(inputs, Input{Name: name, Value: value})
	})
	return inputs
}
