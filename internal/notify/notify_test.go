package notify

import (
	"context"
	"errors"
	"io"
	"mime/quotedprintable"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rahul/slotwatch/internal/result"
)

type fakeNotifier struct {
	name string
	err  error

	mu   sync.Mutex
	sent []Notification
}

func (f *fakeNotifier) Name() string { return f.name }

func (f *fakeNotifier) Notify(_ context.Context, n Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, n)
	return f.err
}

func newClassifier(t *testing.T) *result.Classifier {
	t.Helper()
	c, err := result.NewClassifier()
	if err != nil {
		t.Fatalf("NewClassifier failed: %v", err)
	}
	return c
}

func TestDispatcherNoSlotsSendsNothing(t *testing.T) {
	ch := &fakeNotifier{name: "fake"}
	d := NewDispatcher(newClassifier(t), Set{ch}, nil)

	del, err := d.Deliver(context.Background(), "run-1", "Свободного времени нет")
	if err != nil {
		t.Fatalf("Deliver failed: %v", err)
	}
	if del.Verdict != result.NoSlots || del.Notified() {
		t.Fatalf("unexpected delivery: %+v", del)
	}
	if len(ch.sent) != 0 {
		t.Fatalf("expected zero notifications, got %d", len(ch.sent))
	}
}

func TestDispatcherSendsExactlyOncePerChannel(t *testing.T) {
	a := &fakeNotifier{name: "a"}
	b := &fakeNotifier{name: "b"}
	d := NewDispatcher(newClassifier(t), Set{a, b}, nil)

	msg := "Запись возможна: 12.11 10:00 & 14:30"
	del, err := d.Deliver(context.Background(), "run-1", msg)
	if err != nil {
		t.Fatalf("Deliver failed: %v", err)
	}
	if del.Verdict != result.SlotsAvailable || len(del.Sent) != 2 {
		t.Fatalf("unexpected delivery: %+v", del)
	}
	for _, ch := range []*fakeNotifier{a, b} {
		if len(ch.sent) != 1 {
			t.Fatalf("%s: expected one notification, got %d", ch.name, len(ch.sent))
		}
		if ch.sent[0].Subject != Subject || ch.sent[0].Body != msg {
			t.Errorf("%s: unexpected notification %+v", ch.name, ch.sent[0])
		}
	}
}

func TestDispatcherSendsMessageVerbatim(t *testing.T) {
	cases := []struct {
		Label   string
		Message string
	}{
		{Label: "angle brackets", Message: "Окно: 10:00 <b>срочно</b>"},
		{Label: "entity text", Message: "Slots on 12.11 &amp; 13.11"},
		{Label: "comparison", Message: "slots left: 1 < 2"},
	}
	for _, c := range cases {
		t.Run(c.Label, func(t *testing.T) {
			ch := &fakeNotifier{name: "fake"}
			d := NewDispatcher(newClassifier(t), Set{ch}, nil)

			if _, err := d.Deliver(context.Background(), "run-1", c.Message); err != nil {
				t.Fatalf("Deliver failed: %v", err)
			}
			if len(ch.sent) != 1 {
				t.Fatalf("expected one notification, got %d", len(ch.sent))
			}
			if got := ch.sent[0].Body; got != c.Message {
				t.Fatalf("body %q, want %q", got, c.Message)
			}
		})
	}
}

func TestDispatcherJoinsChannelErrors(t *testing.T) {
	boom := errors.New("boom")
	bad := &fakeNotifier{name: "bad", err: boom}
	good := &fakeNotifier{name: "good"}
	d := NewDispatcher(newClassifier(t), Set{bad, good}, nil)

	del, err := d.Deliver(context.Background(), "run-1", "slots!")
	if !errors.Is(err, boom) {
		t.Fatalf("expected channel error, got %v", err)
	}
	if len(bad.sent) != 1 || len(good.sent) != 1 {
		t.Fatalf("every channel should be tried exactly once")
	}
	if len(del.Sent) != 1 || del.Sent[0] != "good" || len(del.Failed) != 1 || del.Failed[0] != "bad" {
		t.Fatalf("unexpected delivery: %+v", del)
	}
}

func TestTelegramNotify(t *testing.T) {
	var gotChat, gotText string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/botTOKEN/getMe":
			io.WriteString(w, `{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"slotwatch","username":"slotwatch_bot"}}`)
		case "/botTOKEN/sendMessage":
			r.ParseForm()
			gotChat = r.PostForm.Get("chat_id")
			gotText = r.PostForm.Get("text")
			io.WriteString(w, `{"ok":true,"result":{"message_id":7,"date":0,"chat":{"id":42,"type":"private"}}}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer ts.Close()

	tg, err := NewTelegramWithEndpoint("TOKEN", "42", ts.URL+"/bot%s/%s", ts.Client())
	if err != nil {
		t.Fatalf("NewTelegramWithEndpoint failed: %v", err)
	}
	if err := tg.Notify(context.Background(), Notification{Subject: Subject, Body: "12.11 10:00"}); err != nil {
		t.Fatalf("Notify failed: %v", err)
	}
	if gotChat != "42" {
		t.Errorf("chat_id = %q", gotChat)
	}
	if gotText != Subject+"\n\n12.11 10:00" {
		t.Errorf("text = %q", gotText)
	}
}

func TestTelegramRejectsBadChatID(t *testing.T) {
	if _, err := newTelegram(nil, "not-a-number"); err == nil {
		t.Fatal("expected error for a non-numeric chat id")
	}
}

type fakeChannelSender struct {
	channel, content string
}

func (f *fakeChannelSender) ChannelMessageSend(channelID, content string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.channel, f.content = channelID, content
	return &discordgo.Message{ID: "1", ChannelID: channelID, Content: content}, nil
}

func TestDiscordNotify(t *testing.T) {
	sender := &fakeChannelSender{}
	d := &Discord{ChannelID: "998", session: sender}

	if err := d.Notify(context.Background(), Notification{Subject: Subject, Body: "12.11 10:00"}); err != nil {
		t.Fatalf("Notify failed: %v", err)
	}
	if sender.channel != "998" || sender.content != Subject+"\n\n12.11 10:00" {
		t.Fatalf("unexpected message: %+v", sender)
	}

	if _, err := NewDiscord("token", ""); err == nil {
		t.Fatal("expected error without a channel id")
	}
}

func TestEmailNotify(t *testing.T) {
	e, err := NewEmail("smtp.example.test:587", "contact@ophir.dev", "a@example.test, b@example.test", "user", "secret")
	if err != nil {
		t.Fatalf("NewEmail failed: %v", err)
	}
	e.now = func() time.Time { return time.Date(2024, 11, 12, 10, 0, 0, 0, time.UTC) }

	var (
		gotAddr string
		gotAuth smtp.Auth
		gotTo   []string
		gotMsg  []byte
	)
	e.sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotAuth, gotTo, gotMsg = addr, a, to, msg
		return nil
	}

	body := "Запись возможна 12.11 в 10:00"
	if err := e.Notify(context.Background(), Notification{Subject: Subject, Body: body}); err != nil {
		t.Fatalf("Notify failed: %v", err)
	}
	if gotAddr != "smtp.example.test:587" || gotAuth == nil {
		t.Fatalf("unexpected relay %q / auth %v", gotAddr, gotAuth)
	}
	if len(gotTo) != 2 || gotTo[1] != "b@example.test" {
		t.Fatalf("unexpected recipients %v", gotTo)
	}

	headers, encoded, ok := strings.Cut(string(gotMsg), "\r\n\r\n")
	if !ok {
		t.Fatalf("message has no header separator: %q", gotMsg)
	}
	if !strings.Contains(headers, "Subject: "+Subject+"\r\n") {
		t.Errorf("subject header missing: %q", headers)
	}
	if !strings.Contains(headers, "Content-Type: text/plain; charset=UTF-8") {
		t.Errorf("content type missing: %q", headers)
	}
	decoded, err := io.ReadAll(quotedprintable.NewReader(strings.NewReader(encoded)))
	if err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if string(decoded) != body {
		t.Errorf("body = %q, want %q", decoded, body)
	}
}

func TestEmailSendFailure(t *testing.T) {
	e, err := NewEmail("smtp.example.test:25", "from@example.test", "to@example.test", "", "")
	if err != nil {
		t.Fatalf("NewEmail failed: %v", err)
	}
	e.sendMail = func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("connection refused")
	}
	if err := e.Notify(context.Background(), Notification{Subject: Subject, Body: "x"}); err == nil {
		t.Fatal("expected send error")
	}
}

func TestNewEmailValidation(t *testing.T) {
	cases := []struct {
		Label string
		Addr  string
		From  string
		To    string
	}{
		{Label: "missing port", Addr: "smtp.example.test", From: "a@x", To: "b@x"},
		{Label: "missing sender", Addr: "smtp.example.test:25", To: "b@x"},
		{Label: "missing recipient", Addr: "smtp.example.test:25", From: "a@x", To: " , "},
	}
	for _, c := range cases {
		t.Run(c.Label, func(t *testing.T) {
			if _, err := NewEmail(c.Addr, c.From, c.To, "", ""); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestSetNames(t *testing.T) {
	s := Set{&fakeNotifier{name: "telegram"}, &fakeNotifier{name: "email"}}
	if got := strings.Join(s.Names(), ","); got != "telegram,email" {
		t.Fatalf("Names() = %q", got)
	}
}
