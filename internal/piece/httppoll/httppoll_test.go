package httppoll

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/conveyor-cloud/conveyor/internal/piece"
)

func testConfig(url, keyField string) piece.TriggerConfig {
	settings, _ := json.Marshal(map[string]interface{}{
		"url":       url,
		"key_field": keyField,
	})

	return piece.TriggerConfig{
		TriggerID:   "t-1",
		FlowID:      "f-1",
		TriggerName: TriggerNewItems,
		Settings:    settings,
	}
}

func TestPollKeysItemsByConfiguredField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"id":"a","ts":1100},{"id":"b","ts":1200}]`)
	}))
	defer srv.Close()

	p := New(time.Second)
	trig, ok := p.PollingTrigger(TriggerNewItems)
	if !ok {
		t.Fatalf("trigger %q not found", TriggerNewItems)
	}

	items, err := trig.Poll(context.Background(), testConfig(srv.URL, "ts"), "")
	if err != nil {
		t.Fatal(err)
	}

	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %v", len(items))
	}
	if items[0].Key != "1100" || items[1].Key != "1200" {
		t.Fatalf("unexpected keys %q, %q", items[0].Key, items[1].Key)
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(items[0].Payload, &payload); err != nil {
		t.Fatal(err)
	}
	if payload["id"] != "a" {
		t.Fatalf("unexpected payload %v", payload)
	}
}

func TestPollStringKeys(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"id":"evt-9"}]`)
	}))
	defer srv.Close()

	p := New(time.Second)
	trig, _ := p.PollingTrigger(TriggerNewItems)

	items, err := trig.Poll(context.Background(), testConfig(srv.URL, "id"), "")
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0].Key != "evt-9" {
		t.Fatalf("unexpected items %+v", items)
	}
}

func TestPollSendsConfiguredHeaders(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		fmt.Fprint(w, `[]`)
	}))
	defer srv.Close()

	settings, _ := json.Marshal(map[string]interface{}{
		"url":     srv.URL,
		"headers": map[string]string{"Authorization": "Bearer abc"},
	})

	p := New(time.Second)
	trig, _ := p.PollingTrigger(TriggerNewItems)

	if _, err := trig.Poll(context.Background(), piece.TriggerConfig{Settings: settings}, ""); err != nil {
		t.Fatal(err)
	}
	if got != "Bearer abc" {
		t.Fatalf("expected auth header, got %q", got)
	}
}

func TestPollRejectsNonArrayResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"items":[]}`)
	}))
	defer srv.Close()

	p := New(time.Second)
	trig, _ := p.PollingTrigger(TriggerNewItems)

	if _, err := trig.Poll(context.Background(), testConfig(srv.URL, "ts"), ""); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestPollSourceErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	p := New(time.Second)
	trig, _ := p.PollingTrigger(TriggerNewItems)

	if _, err := trig.Poll(context.Background(), testConfig(srv.URL, "ts"), ""); err == nil {
		t.Fatal("expected status error")
	}
}

func TestPollItemMissingKeyField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"id":"a"}]`)
	}))
	defer srv.Close()

	p := New(time.Second)
	trig, _ := p.PollingTrigger(TriggerNewItems)

	if _, err := trig.Poll(context.Background(), testConfig(srv.URL, "ts"), ""); err == nil {
		t.Fatal("expected missing key error")
	}
}

func TestOnEnableValidatesSettings(t *testing.T) {
	p := New(time.Second)
	trig, _ := p.PollingTrigger(TriggerNewItems)

	if _, err := trig.OnEnable(context.Background(), piece.TriggerConfig{Settings: json.RawMessage(`{}`)}); err == nil {
		t.Fatal("expected error for missing url")
	}

	wm, err := trig.OnEnable(context.Background(), testConfig("http://example.test", "ts"))
	if err != nil {
		t.Fatal(err)
	}
	if wm != "" {
		t.Fatalf("expected empty initial watermark, got %q", wm)
	}
}
