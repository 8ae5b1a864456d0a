package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newStubServer(t *testing.T, handler func(method string, form map[string]string) any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		form := map[string]string{}
		for k := range r.PostForm {
			form[k] = r.PostForm.Get(k)
		}
		parts := strings.Split(r.URL.Path, "/")
		method := parts[len(parts)-1]
		json.NewEncoder(w).Encode(handler(method, form))
	}))
}

func TestClient_SendReturnsMessageID(t *testing.T) {
	t.Parallel()

	srv := newStubServer(t, func(method string, form map[string]string) any {
		if method != "sendMessage" {
			t.Errorf("method = %q, want sendMessage", method)
		}
		if form["chat_id"] != "42" || form["text"] != "hello" {
			t.Errorf("unexpected form: %v", form)
		}
		return map[string]any{"ok": true, "result": map[string]any{"message_id": 777}}
	})
	defer srv.Close()

	client := NewClientWithBase("token", srv.URL, srv.Client())
	messageID, err := client.Send(context.Background(), 42, "hello", nil)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if messageID != 777 {
		t.Errorf("message id = %d, want 777", messageID)
	}
}

func TestClient_SendEncodesInlineKeyboard(t *testing.T) {
	t.Parallel()

	var gotMarkup string
	srv := newStubServer(t, func(method string, form map[string]string) any {
		gotMarkup = form["reply_markup"]
		return map[string]any{"ok": true, "result": map[string]any{"message_id": 1}}
	})
	defer srv.Close()

	client := NewClientWithBase("token", srv.URL, srv.Client())
	markup := &Markup{Inline: [][]Button{{{Text: "Accept ab12cd", CallbackData: "accept:ab12cd"}}}}
	if _, err := client.Send(context.Background(), 42, "offer", markup); err != nil {
		t.Fatalf("send: %v", err)
	}

	if !strings.Contains(gotMarkup, `"callback_data":"accept:ab12cd"`) {
		t.Errorf("reply_markup missing callback data: %s", gotMarkup)
	}
}

func TestClient_APIErrorSurfaces(t *testing.T) {
	t.Parallel()

	srv := newStubServer(t, func(method string, form map[string]string) any {
		return map[string]any{"ok": false, "description": "chat not found"}
	})
	defer srv.Close()

	client := NewClientWithBase("token", srv.URL, srv.Client())
	if _, err := client.Send(context.Background(), 42, "hello", nil); err == nil {
		t.Fatal("expected an error from a rejected send")
	}
}

func TestClient_EditTextDropsKeyboard(t *testing.T) {
	t.Parallel()

	var gotMarkup string
	srv := newStubServer(t, func(method string, form map[string]string) any {
		if method != "editMessageText" {
			t.Errorf("method = %q, want editMessageText", method)
		}
		gotMarkup = form["reply_markup"]
		return map[string]any{"ok": true}
	})
	defer srv.Close()

	client := NewClientWithBase("token", srv.URL, srv.Client())
	if err := client.EditText(context.Background(), 42, 7, "done"); err != nil {
		t.Fatalf("edit: %v", err)
	}
	if gotMarkup != `{"inline_keyboard":[]}` {
		t.Errorf("reply_markup = %q, want an emptied keyboard", gotMarkup)
	}
}
