package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestTransport(srv *httptest.Server) *TwilioTransport {
	tr := NewTwilioTransport("AC123", "secret", "whatsapp:+14155238886", "whatsapp:+447700900000", srv.Client(), discardLogger())
	tr.baseURL = srv.URL
	return tr
}

func TestTwilioSendSuccess(t *testing.T) {
	var gotForm map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "AC123" || pass != "secret" {
			t.Errorf("bad basic auth: %s/%s", user, pass)
		}
		r.ParseForm()
		gotForm = map[string]string{
			"To":   r.PostForm.Get("To"),
			"From": r.PostForm.Get("From"),
			"Body": r.PostForm.Get("Body"),
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"sid":"SM123","status":"queued"}`))
	}))
	defer srv.Close()

	tr := newTestTransport(srv)
	if err := tr.Send(context.Background(), "hello"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if gotForm["To"] != "whatsapp:+447700900000" || gotForm["Body"] != "hello" {
		t.Errorf("unexpected form: %v", gotForm)
	}
}

func TestTwilioSendFailureStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"Authentication Error"}`))
	}))
	defer srv.Close()

	tr := newTestTransport(srv)
	if err := tr.Send(context.Background(), "hello"); err == nil {
		t.Fatal("expected error on 401 response")
	}
}

// fakeTransport records sent bodies and can fail from a given part onward.
type fakeTransport struct {
	sent    []string
	failAt  int // 0 = never fail; 1-based part index otherwise
	failErr error
}

func (f *fakeTransport) Send(_ context.Context, body string) error {
	if f.failAt > 0 && len(f.sent)+1 >= f.failAt {
		return f.failErr
	}
	f.sent = append(f.sent, body)
	return nil
}

func TestSendPartsAllParts(t *testing.T) {
	f := &fakeTransport{}
	if err := SendParts(context.Background(), f, []string{"a", "b", "c"}, 0); err != nil {
		t.Fatalf("SendParts: %v", err)
	}
	if len(f.sent) != 3 || f.sent[0] != "a" || f.sent[2] != "c" {
		t.Errorf("sent = %v", f.sent)
	}
}

func TestSendPartsFailureFailsWhole(t *testing.T) {
	f := &fakeTransport{failAt: 2, failErr: errors.New("boom")}
	err := SendParts(context.Background(), f, []string{"a", "b", "c"}, 0)
	if err == nil {
		t.Fatal("expected failure when a part fails")
	}
	if len(f.sent) != 1 {
		t.Errorf("expected send to stop at the failed part, sent %d", len(f.sent))
	}
}

func TestSendPartsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := &fakeTransport{}
	err := SendParts(ctx, f, []string{"a", "b"}, 50*time.Millisecond)
	if err == nil {
		t.Fatal("expected context error")
	}
	if len(f.sent) != 1 {
		t.Errorf("first part sends before the gap, got %d sends", len(f.sent))
	}
}
