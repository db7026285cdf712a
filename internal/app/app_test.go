package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"query_clash_backend/internal/config"
	"query_clash_backend/internal/util"
	"query_clash_backend/pkg/database"

	"github.com/gin-gonic/gin"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestApp(t *testing.T) *App {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{}
	cfg.Server.Mode = gin.TestMode
	cfg.Database = config.DatabaseConfig{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "game.db")}
	cfg.JWT.Secret = "0123456789abcdef0123456789abcdef"
	cfg.JWT.ExpireTime = time.Hour
	cfg.Admin.User = "QCA"
	cfg.Admin.Password = "8888"
	cfg.Game.RoundLimitSeconds = 3600
	cfg.Game.FinalAnswer = "Miranda Priestly"
	cfg.Game.MaxResultRows = 50

	db, caps, err := database.InitDB(&cfg.Database, cfg.Server.Mode, true)
	if err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	if err := db.Exec("CREATE TABLE person (id INTEGER PRIMARY KEY, name TEXT)").Error; err != nil {
		t.Fatalf("create person: %v", err)
	}
	for i := 1; i <= 60; i++ {
		if err := db.Exec("INSERT INTO person (id, name) VALUES (?, ?)", i, fmt.Sprintf("Person %d", i)).Error; err != nil {
			t.Fatalf("insert person: %v", err)
		}
	}

	a := NewWithDB(cfg, db, caps, nil)
	t.Cleanup(a.Close)
	return a
}

func (a *App) do(t *testing.T, method, path, token string, body interface{}) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.Router.ServeHTTP(w, req)

	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("%s %s: decode %q: %v", method, path, w.Body.String(), err)
	}
	return w.Code, env
}

func decode(t *testing.T, raw json.RawMessage, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(raw, v); err != nil {
		t.Fatalf("decode data %s: %v", raw, err)
	}
}

func (a *App) login(t *testing.T, name, password string) string {
	t.Helper()
	code, env := a.do(t, http.MethodPost, "/api/login", "", map[string]string{"name": name, "password": password})
	if code != http.StatusOK {
		t.Fatalf("login %s: %d %s", name, code, env.Message)
	}
	var res struct {
		Token string `json:"token"`
	}
	decode(t, env.Data, &res)
	return res.Token
}

func TestPlayerJourney(t *testing.T) {
	a := newTestApp(t)
	token := a.login(t, "alice", "pw-alice")

	code, env := a.do(t, http.MethodGet, "/api/state", token, nil)
	if code != http.StatusOK {
		t.Fatalf("state: %d %s", code, env.Message)
	}
	var state struct {
		Round         int   `json:"round"`
		RemainingTime int64 `json:"remaining_time"`
	}
	decode(t, env.Data, &state)
	if state.Round != 1 || state.RemainingTime <= 3500 || state.RemainingTime > 3600 {
		t.Fatalf("initial state %+v", state)
	}

	code, env = a.do(t, http.MethodPost, "/api/query", token, map[string]string{"sql": "DELETE FROM person"})
	if code != http.StatusBadRequest {
		t.Fatalf("rejected query status = %d", code)
	}
	var rejected struct {
		Error   string        `json:"error"`
		Keyword string        `json:"keyword"`
		Results []interface{} `json:"results"`
	}
	decode(t, env.Data, &rejected)
	if rejected.Error != "Only SELECT queries are allowed." || rejected.Keyword != "DELETE" || rejected.Results == nil || len(rejected.Results) != 0 {
		t.Fatalf("rejection body %+v", rejected)
	}

	code, env = a.do(t, http.MethodPost, "/api/query", token, map[string]string{"sql": "SELECT * FROM person"})
	if code != http.StatusOK {
		t.Fatalf("query: %d %s", code, env.Message)
	}
	var result struct {
		Columns []string                 `json:"columns"`
		Results []map[string]interface{} `json:"results"`
	}
	decode(t, env.Data, &result)
	if len(result.Results) != 50 || len(result.Columns) != 2 {
		t.Fatalf("query result: %d rows, columns %v", len(result.Results), result.Columns)
	}

	code, env = a.do(t, http.MethodPost, "/api/query", token, map[string]string{"sql": "SELECT * FROM nowhere"})
	if code != http.StatusOK {
		t.Fatalf("failing query status = %d", code)
	}
	var failed struct {
		Error string `json:"error"`
	}
	decode(t, env.Data, &failed)
	if failed.Error == "" {
		t.Fatalf("expected engine error message")
	}

	code, env = a.do(t, http.MethodPost, "/api/query", token, map[string]string{"sql": "SELECT 1; ROLLBACK"})
	if code != http.StatusOK {
		t.Fatalf("stacked query status = %d %s", code, env.Message)
	}
	failed.Error = ""
	decode(t, env.Data, &failed)
	if failed.Error != "You can only execute one statement at a time." {
		t.Fatalf("stacked query error = %q", failed.Error)
	}

	code, env = a.do(t, http.MethodGet, "/api/investigations", token, nil)
	if code != http.StatusOK {
		t.Fatalf("investigations: %d", code)
	}
	var invs []struct {
		ID     uint `json:"id"`
		Solved bool `json:"solved"`
	}
	decode(t, env.Data, &invs)
	if len(invs) != 1 || invs[0].Solved {
		t.Fatalf("round 1 investigations %+v", invs)
	}

	code, env = a.do(t, http.MethodPost, "/api/verify", token, map[string]interface{}{"id": invs[0].ID, "answer": "jeremy bowers"})
	if code != http.StatusOK {
		t.Fatalf("verify: %d %s", code, env.Message)
	}
	var verify struct {
		Correct  bool `json:"correct"`
		Advanced bool `json:"advanced"`
		Round    int  `json:"round"`
	}
	decode(t, env.Data, &verify)
	if !verify.Correct || !verify.Advanced || verify.Round != 2 {
		t.Fatalf("verify result %+v", verify)
	}

	code, env = a.do(t, http.MethodPost, "/api/submit", token, map[string]string{"final_answer": "Miranda Priestly"})
	if code != http.StatusOK {
		t.Fatalf("submit: %d %s", code, env.Message)
	}
	var submit struct {
		Success bool `json:"success"`
	}
	decode(t, env.Data, &submit)
	if !submit.Success {
		t.Fatalf("correct final answer rejected")
	}

	code, _ = a.do(t, http.MethodPost, "/api/submit", token, map[string]string{"final_answer": "Miranda Priestly"})
	if code != http.StatusConflict {
		t.Fatalf("second submit status = %d, want 409", code)
	}

	code, env = a.do(t, http.MethodGet, "/api/leaderboard", "", nil)
	if code != http.StatusOK {
		t.Fatalf("leaderboard: %d", code)
	}
	var board []struct {
		Name    string `json:"name"`
		Solved  string `json:"solved"`
		Queries int64  `json:"queries"`
	}
	decode(t, env.Data, &board)
	if len(board) != 1 || board[0].Solved != "YES" || board[0].Queries != 3 {
		t.Fatalf("leaderboard %+v", board)
	}
}

func TestAuthBoundaries(t *testing.T) {
	a := newTestApp(t)

	if code, _ := a.do(t, http.MethodGet, "/api/state", "", nil); code != http.StatusUnauthorized {
		t.Fatalf("anonymous state status = %d", code)
	}
	if code, _ := a.do(t, http.MethodGet, "/api/state", "not-a-token", nil); code != http.StatusUnauthorized {
		t.Fatalf("bad token status = %d", code)
	}
	if code, _ := a.do(t, http.MethodPost, "/api/login", "", map[string]string{"name": "bob", "password": "bob"}); code != http.StatusBadRequest {
		t.Fatalf("same name and password status = %d", code)
	}

	player := a.login(t, "bob", "pw-bob")
	if code, _ := a.do(t, http.MethodPost, "/api/login", "", map[string]string{"name": "bob", "password": "other"}); code != http.StatusUnauthorized {
		t.Fatalf("wrong password status = %d", code)
	}
	if code, _ := a.do(t, http.MethodGet, "/api/admin/stats", player, nil); code != http.StatusForbidden {
		t.Fatalf("player admin stats status = %d", code)
	}

	admin := a.login(t, "QCA", "8888")
	code, env := a.do(t, http.MethodGet, "/api/admin/stats", admin, nil)
	if code != http.StatusOK {
		t.Fatalf("admin stats: %d %s", code, env.Message)
	}
	code, env = a.do(t, http.MethodGet, "/api/admin/investigations", admin, nil)
	if code != http.StatusOK {
		t.Fatalf("admin investigations: %d", code)
	}
	var invs []struct {
		Answer string `json:"answer"`
	}
	decode(t, env.Data, &invs)
	if len(invs) != 2 || invs[0].Answer == "" {
		t.Fatalf("admin investigations %+v", invs)
	}

	if code, _ := a.do(t, http.MethodPost, "/api/admin/participants/bob/reset", admin, nil); code != http.StatusOK {
		t.Fatalf("reset status = %d", code)
	}
	if code, _ := a.do(t, http.MethodPost, "/api/admin/participants/bob/delete", admin, nil); code != http.StatusOK {
		t.Fatalf("delete status = %d", code)
	}
	if code, _ := a.do(t, http.MethodPost, "/api/admin/participants/bob/delete", admin, nil); code != http.StatusNotFound {
		t.Fatalf("second delete status = %d", code)
	}
	if code, _ := a.do(t, http.MethodGet, "/api/state", player, nil); code != http.StatusNotFound {
		t.Fatalf("state of deleted participant status = %d", code)
	}
}

func TestCookieSession(t *testing.T) {
	a := newTestApp(t)

	body, _ := json.Marshal(map[string]string{"name": "carol", "password": "pw-carol"})
	req := httptest.NewRequest(http.MethodPost, "/api/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	a.Router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d", w.Code)
	}

	var session *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == util.SessionCookie {
			session = c
		}
	}
	if session == nil || !session.HttpOnly {
		t.Fatalf("session cookie missing or not HttpOnly: %+v", session)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/schema", nil)
	req.AddCookie(session)
	w = httptest.NewRecorder()
	a.Router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("schema via cookie status = %d", w.Code)
	}
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	var schema map[string][]string
	decode(t, env.Data, &schema)
	if _, ok := schema["person"]; !ok {
		t.Fatalf("person table missing from schema %v", schema)
	}
	if _, ok := schema["participants"]; ok {
		t.Fatalf("game table leaked into schema")
	}
}

func TestHealthAndMetrics(t *testing.T) {
	a := newTestApp(t)

	if code, env := a.do(t, http.MethodGet, "/api/health", "", nil); code != http.StatusOK {
		t.Fatalf("health: %d %s", code, env.Message)
	}

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	a.Router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", w.Code)
	}
}
