// Package queuetest provides an in-memory fake of the queue site for tests.
package queuetest

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
)

const (
	// Code is the captcha code the fake accepts unless Server.Code is changed.
	Code = "482913"

	RequestNumber  = "123456"
	ProtectionCode = "ABCDEF01"

	rejection = "Символы с картинки введены неправильно"
)

// Image is served for every captcha request.
var Image = []byte("\x89PNG\r\n\x1a\n fake captcha")

// Server fakes OrderInfo.aspx and its captcha image.
type Server struct {
	*httptest.Server

	mu sync.Mutex
	// Code is the accepted captcha code.
	Code string
	// Result is the text placed in the result panel.
	Result string
	// OmitResultPanel drops the panel from the final page.
	OmitResultPanel bool

	sessions     int
	pageCookies  []string
	imageCookies []string
	firstForms   []url.Values
	secondForms  []url.Values
}

// NewServer starts a fake that answers the final step with result.
func NewServer(result string) *Server {
	s := &Server{Code: Code, Result: result}
	mux := http.NewServeMux()
	mux.HandleFunc("/queue/OrderInfo.aspx", s.orderInfo)
	mux.HandleFunc("/queue/CodeImage.aspx", s.codeImage)
	s.Server = httptest.NewServer(mux)
	return s
}

// QueueURL is the order page for the fixed test identifiers.
func (s *Server) QueueURL() string {
	return fmt.Sprintf("%s/queue/OrderInfo.aspx?id=%s&cd=%s", s.URL, RequestNumber, ProtectionCode)
}

func (s *Server) orderInfo(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	if r.Method == http.MethodGet {
		s.mu.Lock()
		s.sessions++
		id := s.sessions
		s.pageCookies = append(s.pageCookies, r.Header.Get("Cookie"))
		s.mu.Unlock()

		http.SetCookie(w, &http.Cookie{Name: "ASP.NET_SessionId", Value: fmt.Sprintf("sess-%d", id), Path: "/"})
		fmt.Fprint(w, firstPage)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := r.PostForm["ctl00$MainContent$ButtonB.x"]; ok {
		s.secondForms = append(s.secondForms, r.PostForm)
		if s.OmitResultPanel {
			fmt.Fprint(w, `<html><body><p>maintenance</p></body></html>`)
			return
		}
		fmt.Fprintf(w, resultPage, s.Result)
		return
	}

	s.firstForms = append(s.firstForms, r.PostForm)
	if r.PostForm.Get("ctl00$MainContent$txtCode") != s.Code {
		fmt.Fprint(w, rejectionPage)
		return
	}
	fmt.Fprint(w, secondPage)
}

func (s *Server) codeImage(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.imageCookies = append(s.imageCookies, r.Header.Get("Cookie"))
	s.mu.Unlock()
	w.Header().Set("Content-Type", "image/png")
	w.Write(Image)
}

// PageCookies returns the Cookie header of every order page GET.
func (s *Server) PageCookies() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.pageCookies...)
}

// ImageCookies returns the Cookie header of every captcha request.
func (s *Server) ImageCookies() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.imageCookies...)
}

// FirstForms returns every first-step submission.
func (s *Server) FirstForms() []url.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]url.Values(nil), s.firstForms...)
}

// SecondForms returns every second-step submission.
func (s *Server) SecondForms() []url.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]url.Values(nil), s.secondForms...)
}

const firstPage = `<html><body>
<form method="post" action="OrderInfo.aspx" id="form1">
  <input type="hidden" name="__VIEWSTATE" value="vs-1" />
  <input type="hidden" name="__EVENTVALIDATION" value="ev-1" />
  <input type="text" name="ctl00$MainContent$txtID" />
  <input type="text" name="ctl00$MainContent$txtUniqueID" />
  <input type="text" name="ctl00$MainContent$txtCode" />
  <img id="ctl00_MainContent_imgSecNum" src="CodeImage.aspx?id=1" />
</form>
</body></html>`

const secondPage = `<html><body>
<form method="post" action="OrderInfo.aspx" id="form1">
  <input type="hidden" name="__VIEWSTATE" value="vs-2" />
  <input type="image" name="ctl00$MainContent$ButtonB" src="b.gif" />
</form>
</body></html>`

const rejectionPage = `<html><body>
<form method="post" action="OrderInfo.aspx" id="form1">
  <span class="error">` + rejection + `</span>
</form>
</body></html>`

const resultPage = `<html><body>
<div id="center-panel">
  %s
</div>
</body></html>`
