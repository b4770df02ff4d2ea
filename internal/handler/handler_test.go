package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/crypto/bcrypt"

	"zone/internal/app/library"
	"zone/internal/app/playback"
	"zone/internal/app/ticket"
	"zone/internal/app/zone"
	"zone/internal/configs"
	"zone/internal/pkg/clock"
	"zone/internal/pkg/errs"
	"zone/internal/pkg/pow"
)

const testCatalog = `
items:
  - {id: intro, title: Intro, duration: 2m, src: "https://media.example/intro"}
  - {id: anthem, title: Anthem, duration: 3m, src: "https://media.example/anthem", tags: [banger]}
`

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type options struct {
	powDifficulty int
	adminPassword string
}

func newTestServer(t *testing.T, opts options) *httptest.Server {
	t.Helper()

	cfg := &configs.AppConfig{Environment: "development", TokenSecret: "test-secret"}

	zoneCfg := zone.Config{}
	if opts.adminPassword != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(opts.adminPassword), bcrypt.MinCost)
		if err != nil {
			t.Fatalf("hash password: %v", err)
		}
		zoneCfg.AdminPasswordHash = hash
	}

	z := zone.New(clock.Real(), zoneCfg)
	go z.Run()
	t.Cleanup(func() {
		z.Stop()
		<-z.Done()
	})

	tickets := ticket.NewBroker(clock.Real(), cfg.TokenSecret, ticket.DefaultExpiry)
	t.Cleanup(tickets.Close)

	lib, err := library.Parse([]byte(testCatalog))
	if err != nil {
		t.Fatalf("parse catalog: %v", err)
	}

	deps := &AppDeps{Zone: z, Tickets: tickets, Config: cfg, Library: lib}
	if opts.powDifficulty > 0 {
		deps.Pow = pow.NewManager(opts.powDifficulty)
		t.Cleanup(deps.Pow.Stop)
	}

	srv := httptest.NewServer(Router(deps))
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url, token string, body any, header http.Header) (int, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range header {
		req.Header[k] = v
	}

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer res.Body.Close()

	var env envelope
	if err := json.NewDecoder(res.Body).Decode(&env); err != nil {
		t.Fatalf("%s %s: decode envelope: %v", method, url, err)
	}
	return res.StatusCode, env
}

func join(t *testing.T, srv *httptest.Server, name string) ticket.Record {
	t.Helper()

	status, env := do(t, http.MethodPost, srv.URL+"/join", "", JoinInput{Name: name}, nil)
	if status != http.StatusOK {
		t.Fatalf("join: status %d %+v", status, env)
	}
	var rec ticket.Record
	if err := json.Unmarshal(env.Data, &rec); err != nil {
		t.Fatalf("join: decode record: %v", err)
	}
	return rec
}

func wsURL(srv *httptest.Server, ticketID string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/zone/" + ticketID
}

func dial(t *testing.T, srv *httptest.Server, ticketID string) *websocket.Conn {
	t.Helper()

	conn, res, err := websocket.DefaultDialer.Dial(wsURL(srv, ticketID), nil)
	if err != nil {
		status := 0
		if res != nil {
			status = res.StatusCode
		}
		t.Fatalf("dial: %v (status %d)", err, status)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()

	if err := conn.SetReadDeadline(time.Now().Add(5 * time.Second)); err != nil {
		t.Fatal(err)
	}
	var msg map[string]any
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return msg
}

func readSnapshot(t *testing.T, conn *websocket.Conn) []string {
	t.Helper()

	var types []string
	for range 5 {
		types = append(types, readFrame(t, conn)["type"].(string))
	}
	return types
}

func TestJoinAndHandshake(t *testing.T) {
	srv := newTestServer(t, options{})

	rec := join(t, srv, "alice")
	if rec.UserID != "1" || rec.Token == "" || rec.Ticket == "" {
		t.Fatalf("unexpected join record: %+v", rec)
	}

	conn := dial(t, srv, rec.Ticket)
	got := strings.Join(readSnapshot(t, conn), ",")
	if got != "users,queue,play,echoes,ready" {
		t.Fatalf("got snapshot %s", got)
	}

	_, res, err := websocket.DefaultDialer.Dial(wsURL(srv, rec.Ticket), nil)
	if err == nil {
		t.Fatal("second handshake with the same ticket succeeded")
	}
	if res == nil || res.StatusCode != http.StatusNotFound {
		t.Fatalf("second handshake: got %v want 404", res)
	}
}

func TestHandshakeRejectsUnknownTickets(t *testing.T) {
	srv := newTestServer(t, options{})

	for _, id := range []string{"not-a-ticket", uuid.NewString()} {
		_, res, err := websocket.DefaultDialer.Dial(wsURL(srv, id), nil)
		if err == nil {
			t.Fatalf("handshake with %q succeeded", id)
		}
		if res == nil || res.StatusCode != http.StatusNotFound {
			t.Fatalf("handshake with %q: got %v want 404", id, res)
		}
	}
}

func TestJoinValidatesName(t *testing.T) {
	srv := newTestServer(t, options{})

	status, env := do(t, http.MethodPost, srv.URL+"/join", "", JoinInput{Name: strings.Repeat("x", 40)}, nil)
	if status != http.StatusBadRequest || env.Code != errs.ErrValidation {
		t.Fatalf("got %d %+v", status, env)
	}
}

func TestQueueNeedsLiveToken(t *testing.T) {
	srv := newTestServer(t, options{})
	body := EnqueueInput{Media: &mediaX}

	status, _ := do(t, http.MethodPost, srv.URL+"/queue", "", body, nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("no token: got %d want 401", status)
	}

	rec := join(t, srv, "bob")
	status, _ = do(t, http.MethodPost, srv.URL+"/queue", rec.Token, body, nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("token before handshake: got %d want 401", status)
	}

	conn := dial(t, srv, rec.Ticket)
	readSnapshot(t, conn)

	status, env := do(t, http.MethodPost, srv.URL+"/queue", rec.Token, body, nil)
	if status != http.StatusOK {
		t.Fatalf("live token: got %d %+v", status, env)
	}

	if typ := readFrame(t, conn)["type"]; typ != "queue" {
		t.Fatalf("got %v want queue", typ)
	}
	play := readFrame(t, conn)
	if play["type"] != "play" || play["item"] == nil {
		t.Fatalf("unexpected play frame: %v", play)
	}

	status, env = do(t, http.MethodGet, srv.URL+"/queue", "", nil, nil)
	var view zone.Timeline
	if err := json.Unmarshal(env.Data, &view); err != nil || status != http.StatusOK {
		t.Fatalf("GET /queue: %d %v", status, err)
	}
	if view.Current == nil || view.Current.Media.Title != "x" {
		t.Fatalf("unexpected timeline: %+v", view)
	}

	status, env = do(t, http.MethodDelete, srv.URL+"/queue/999", rec.Token, nil, nil)
	if status != http.StatusNotFound || env.Code != errs.ErrItemNotFound {
		t.Fatalf("unqueue missing item: got %d %+v", status, env)
	}
}

func TestEnqueueFromLibrary(t *testing.T) {
	srv := newTestServer(t, options{})
	rec := join(t, srv, "carol")
	readSnapshot(t, dial(t, srv, rec.Ticket))

	status, env := do(t, http.MethodPost, srv.URL+"/queue", rec.Token, EnqueueInput{Banger: true}, nil)
	if status != http.StatusOK {
		t.Fatalf("banger: %d %+v", status, env)
	}
	var item struct {
		Media struct{ Title string } `json:"media"`
		Info  struct{ Banger bool }  `json:"info"`
	}
	if err := json.Unmarshal(env.Data, &item); err != nil {
		t.Fatal(err)
	}
	if item.Media.Title != "Anthem" || !item.Info.Banger {
		t.Fatalf("unexpected banger item: %+v", item)
	}

	status, _ = do(t, http.MethodPost, srv.URL+"/queue", rec.Token, EnqueueInput{LibraryID: "intro"}, nil)
	if status != http.StatusOK {
		t.Fatalf("library item: got %d", status)
	}

	status, env = do(t, http.MethodPost, srv.URL+"/queue", rec.Token, EnqueueInput{LibraryID: "nope"}, nil)
	if status != http.StatusNotFound || env.Code != errs.ErrItemNotFound {
		t.Fatalf("unknown library item: got %d %+v", status, env)
	}

	status, _ = do(t, http.MethodPost, srv.URL+"/queue", rec.Token, EnqueueInput{LibraryID: "intro", Banger: true}, nil)
	if status != http.StatusBadRequest {
		t.Fatalf("two sources: got %d want 400", status)
	}
}

func TestAdminEndpoints(t *testing.T) {
	srv := newTestServer(t, options{adminPassword: "opensesame"})
	rec := join(t, srv, "dave")
	readSnapshot(t, dial(t, srv, rec.Ticket))

	status, env := do(t, http.MethodPost, srv.URL+"/admin/command", rec.Token, map[string]any{"name": "save"}, nil)
	if status != http.StatusForbidden || env.Code != errs.ErrForbidden {
		t.Fatalf("command before authorize: got %d %+v", status, env)
	}

	status, env = do(t, http.MethodPost, srv.URL+"/admin/authorize", rec.Token, AuthorizeInput{Password: "guess"}, nil)
	if status != http.StatusForbidden || env.Code != errs.ErrWrongPassword {
		t.Fatalf("wrong password: got %d %+v", status, env)
	}
	status, _ = do(t, http.MethodPost, srv.URL+"/admin/authorize", rec.Token, AuthorizeInput{Password: "opensesame"}, nil)
	if status != http.StatusOK {
		t.Fatalf("authorize: got %d", status)
	}

	status, env = do(t, http.MethodPost, srv.URL+"/admin/command", rec.Token, map[string]any{"name": "mode", "restricted": true}, nil)
	if status != http.StatusOK {
		t.Fatalf("mode: got %d %+v", status, env)
	}
	_, env = do(t, http.MethodGet, srv.URL+"/queue", "", nil, nil)
	var view zone.Timeline
	if err := json.Unmarshal(env.Data, &view); err != nil || !view.Restricted {
		t.Fatalf("restricted mode not visible: %+v %v", view, err)
	}

	status, env = do(t, http.MethodPost, srv.URL+"/admin/command", rec.Token, map[string]any{"name": "explode"}, nil)
	if status != http.StatusBadRequest || env.Code != errs.ErrValidation {
		t.Fatalf("unknown command: got %d %+v", status, env)
	}
}

func TestEchoEndpoints(t *testing.T) {
	srv := newTestServer(t, options{})
	rec := join(t, srv, "erin")
	readSnapshot(t, dial(t, srv, rec.Ticket))

	status, env := do(t, http.MethodPost, srv.URL+"/echoes", rec.Token, map[string]any{"text": "hi"}, nil)
	if status != http.StatusConflict || env.Code != errs.ErrNotSpawned {
		t.Fatalf("unspawned echo: got %d %+v", status, env)
	}

	status, _ = do(t, http.MethodPost, srv.URL+"/echoes", rec.Token, map[string]any{"text": "hi", "position": []int{2, 0, 2}}, nil)
	if status != http.StatusOK {
		t.Fatalf("echo: got %d", status)
	}

	_, env = do(t, http.MethodGet, srv.URL+"/echoes", "", nil, nil)
	var echoes []map[string]any
	if err := json.Unmarshal(env.Data, &echoes); err != nil || len(echoes) != 1 || echoes[0]["text"] != "hi" {
		t.Fatalf("unexpected echoes: %s %v", env.Data, err)
	}
}

func TestPowGate(t *testing.T) {
	srv := newTestServer(t, options{powDifficulty: 1})

	status, env := do(t, http.MethodPost, srv.URL+"/join", "", JoinInput{Name: "frank"}, nil)
	if status != http.StatusForbidden || env.Code != errs.ErrPowChallengeRequired {
		t.Fatalf("join without proof: got %d %+v", status, env)
	}

	_, env = do(t, http.MethodGet, srv.URL+"/pow/challenge", "", nil, nil)
	var challenge struct {
		Nonce      string `json:"nonce"`
		Difficulty int    `json:"difficulty"`
	}
	if err := json.Unmarshal(env.Data, &challenge); err != nil {
		t.Fatal(err)
	}

	counter := 0
	for !pow.Meets(challenge.Nonce, strconv.Itoa(counter), challenge.Difficulty) {
		counter++
	}

	status, env = do(t, http.MethodPost, srv.URL+"/pow/verify", "", PowVerifyInput{Nonce: challenge.Nonce, Counter: strconv.Itoa(counter)}, nil)
	if status != http.StatusOK {
		t.Fatalf("verify: got %d %+v", status, env)
	}
	var proof struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(env.Data, &proof); err != nil {
		t.Fatal(err)
	}

	header := http.Header{pow.TokenHeaderKey: []string{proof.Token}}

	// a rejected join leaves the proof unspent
	status, env = do(t, http.MethodPost, srv.URL+"/join", "", JoinInput{Name: strings.Repeat("x", 40)}, header)
	if status != http.StatusBadRequest || env.Code != errs.ErrValidation {
		t.Fatalf("join with bad name: got %d %+v", status, env)
	}

	if status, env := do(t, http.MethodPost, srv.URL+"/join", "", JoinInput{Name: "frank"}, header); status != http.StatusOK {
		t.Fatalf("join with proof: got %d %+v", status, env)
	}
	if status, _ := do(t, http.MethodPost, srv.URL+"/join", "", JoinInput{Name: "frank"}, header); status != http.StatusForbidden {
		t.Fatalf("reused proof: got %d want 403", status)
	}
}

func TestHealthAndUsers(t *testing.T) {
	srv := newTestServer(t, options{})

	if status, _ := do(t, http.MethodGet, srv.URL+"/health", "", nil, nil); status != http.StatusOK {
		t.Fatalf("health: got %d", status)
	}

	rec := join(t, srv, "gina")
	readSnapshot(t, dial(t, srv, rec.Ticket))

	_, env := do(t, http.MethodGet, srv.URL+"/users", "", nil, nil)
	var users []map[string]any
	if err := json.Unmarshal(env.Data, &users); err != nil || len(users) != 1 || users[0]["name"] != "gina" {
		t.Fatalf("unexpected users: %s %v", env.Data, err)
	}
}

var mediaX = playback.Media{Title: "x", Duration: 60_000, Src: "https://media.example/x"}
