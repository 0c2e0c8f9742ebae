package captcha

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tmc/langchaingo/llms"
)

var jpegImage = []byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10, 'J', 'F', 'I', 'F'}

func TestExtractCode(t *testing.T) {
	cases := []struct {
		Label string
		In    string
		Want  string
		OK    bool
	}{
		{Label: "bare code", In: "482913", Want: "482913", OK: true},
		{Label: "surrounded by text", In: "The code is: 482913.", Want: "482913", OK: true},
		{Label: "first of several", In: "12 482913 555555", Want: "482913", OK: true},
		{Label: "too long", In: "4829130", OK: false},
		{Label: "too short", In: "48291", OK: false},
		{Label: "mixed word", In: "48a913", OK: false},
		{Label: "empty", In: "", OK: false},
	}
	for _, c := range cases {
		t.Run(c.Label, func(t *testing.T) {
			got, ok := ExtractCode(c.In)
			if ok != c.OK || got != c.Want {
				t.Fatalf("ExtractCode(%q) = %q, %v; want %q, %v", c.In, got, ok, c.Want, c.OK)
			}
		})
	}
}

// fakeModel answers every call with reply and records the image MIME type.
type fakeModel struct {
	reply    string
	err      error
	calls    int
	lastMIME string
}

func (m *fakeModel) GenerateContent(_ context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	m.calls++
	for _, msg := range messages {
		for _, p := range msg.Parts {
			if b, ok := p.(llms.BinaryContent); ok {
				m.lastMIME = b.MIMEType
			}
		}
	}
	if m.err != nil {
		return nil, m.err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: m.reply}}}, nil
}

func (m *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return m.reply, m.err
}

func TestVisionSolver(t *testing.T) {
	cases := []struct {
		Label   string
		Reply   string
		Err     error
		Want    string
		WantErr bool
	}{
		{Label: "clean reply", Reply: "482913", Want: "482913"},
		{Label: "chatty reply", Reply: "Sure! The digits are 482913", Want: "482913"},
		{Label: "no code", Reply: "I cannot read this image", WantErr: true},
		{Label: "model failure", Err: errors.New("rate limited"), WantErr: true},
	}
	for _, c := range cases {
		t.Run(c.Label, func(t *testing.T) {
			m := &fakeModel{reply: c.Reply, err: c.Err}
			got, err := NewVisionSolver(m, "").Solve(context.Background(), jpegImage)
			if c.WantErr {
				if !errors.Is(err, ErrUnsolved) {
					t.Fatalf("expected ErrUnsolved, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != c.Want {
				t.Fatalf("got %q, want %q", got, c.Want)
			}
			if m.lastMIME != "image/jpeg" {
				t.Fatalf("image sent as %q", m.lastMIME)
			}
		})
	}
}

func TestVisionSolverIsIdempotent(t *testing.T) {
	s := NewVisionSolver(&fakeModel{reply: "482913"}, "")
	first, err := s.Solve(context.Background(), jpegImage)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		again, err := s.Solve(context.Background(), jpegImage)
		if err != nil {
			t.Fatal(err)
		}
		if again != first {
			t.Fatalf("call %d returned %q, first returned %q", i+2, again, first)
		}
	}
}

func TestVisionSolverEmptyImage(t *testing.T) {
	m := &fakeModel{reply: "482913"}
	if _, err := NewVisionSolver(m, "").Solve(context.Background(), nil); !errors.Is(err, ErrUnsolved) {
		t.Fatalf("expected ErrUnsolved, got %v", err)
	}
	if m.calls != 0 {
		t.Fatalf("model should not be called for an empty image")
	}
}

func TestLoadPrompt(t *testing.T) {
	got, err := LoadPrompt("")
	if err != nil || got != DefaultPrompt {
		t.Fatalf("empty path should give the default prompt, got %q, %v", got, err)
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "captcha.md")
	if err := os.WriteFile(path, []byte("  Read the digits.\n"), 0644); err != nil {
		t.Fatal(err)
	}
	got, err = LoadPrompt(path)
	if err != nil {
		t.Fatal(err)
	}
	if got != "Read the digits." {
		t.Fatalf("got %q", got)
	}

	empty := filepath.Join(dir, "empty.md")
	if err := os.WriteFile(empty, []byte("\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadPrompt(empty); err == nil {
		t.Fatal("expected error for an empty prompt file")
	}
}

func TestTwoCaptchaSolver(t *testing.T) {
	var (
		polls       int
		pollAnswers []string
		gotBody     string
	)
	mux := http.NewServeMux()
	mux.HandleFunc("/in.php", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("failed to parse form: %v", err)
		}
		gotBody = r.PostForm.Get("body")
		w.Write([]byte(`{"status":1,"request":"task-1"}`))
	})
	mux.HandleFunc("/res.php", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("id") != "task-1" {
			t.Errorf("unexpected task id %q", r.URL.Query().Get("id"))
		}
		answer := pollAnswers[polls]
		polls++
		w.Write([]byte(answer))
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	cases := []struct {
		Label   string
		Answers []string
		Want    string
		WantErr error
	}{
		{
			Label:   "ready after one poll",
			Answers: []string{`{"status":0,"request":"CAPCHA_NOT_READY"}`, `{"status":1,"request":"482913"}`},
			Want:    "482913",
		},
		{
			Label:   "unsolvable",
			Answers: []string{`{"status":0,"request":"ERROR_CAPTCHA_UNSOLVABLE"}`},
			WantErr: ErrUnsolved,
		},
		{
			Label:   "wrong length answer",
			Answers: []string{`{"status":1,"request":"4829"}`},
			WantErr: ErrUnsolved,
		},
	}
	for _, c := range cases {
		t.Run(c.Label, func(t *testing.T) {
			polls = 0
			pollAnswers = c.Answers
			s := NewTwoCaptchaSolver("key", ts.URL)
			s.PollInterval = time.Millisecond

			got, err := s.Solve(context.Background(), jpegImage)
			if c.WantErr != nil {
				if !errors.Is(err, c.WantErr) {
					t.Fatalf("expected %v, got %v", c.WantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != c.Want {
				t.Fatalf("got %q, want %q", got, c.Want)
			}
			if gotBody != base64.StdEncoding.EncodeToString(jpegImage) {
				t.Fatalf("image not sent as base64")
			}
		})
	}
}
