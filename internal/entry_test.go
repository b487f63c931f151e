package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/quikpix/internal/testutil"
)

func TestNewApplication_RequiresConfig(t *testing.T) {
	if _, err := newApplication(nil); err == nil {
		t.Fatal("expected error without config")
	}
}

func TestApplicationLogger_WriterOption(t *testing.T) {
	var buf bytes.Buffer
	app, err := newApplication([]Option{WithConfig(NewDefaultConfig()), WithLogWriter(&buf)})
	if err != nil {
		t.Fatal(err)
	}
	app.logger(nil).Info("hello")
	if !strings.Contains(buf.String(), `"msg":"hello"`) {
		t.Errorf("log output = %q", buf.String())
	}
}

func TestBuildStack(t *testing.T) {
	root := t.TempDir()
	testutil.WriteImage(t, root, "DCIM/Camera/a.jpg", 2, 2, time.Time{})

	cfg := NewDefaultConfig()
	cfg.Library.Root = root
	cfg.SQLite.Path = filepath.Join(t.TempDir(), "quikpix.db")

	st, err := buildStack(cfg, testutil.Quiet)
	if err != nil {
		t.Fatalf("buildStack: %v", err)
	}
	defer st.close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := st.svc.RefreshAndWait(ctx); err != nil {
		t.Fatalf("RefreshAndWait: %v", err)
	}
	cats, _, err := st.svc.Categories(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(cats) != 1 || cats[0].Key != "DCIM/Camera" {
		t.Errorf("categories = %+v", cats)
	}
}

func TestReadyHandler(t *testing.T) {
	env := testutil.NewEnv(t, testutil.SeedCameraRoll(t))

	w := httptest.NewRecorder()
	readyHandler(env.Library)(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("ready = %d, want 200", w.Code)
	}
	var body struct {
		Status     string `json:"status"`
		Generation uint64 `json:"generation"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Status != "ready" || body.Generation == 0 {
		t.Errorf("body = %+v", body)
	}

	env.Library.Close()
	w = httptest.NewRecorder()
	readyHandler(env.Library)(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("closed library ready = %d, want 503", w.Code)
	}
}
