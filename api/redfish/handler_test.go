package redfish

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/mattn/go-sqlite3"
	"redfishd/database"
	"redfishd/services/account"
	"redfishd/services/session"
)

func newTestEngine(t *testing.T) (*gin.Engine, *session.Service) {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("Failed to migrate database: %v", err)
	}

	accounts := account.New(db)
	if err := accounts.EnsureDefault("root", "root"); err != nil {
		t.Fatalf("EnsureDefault failed: %v", err)
	}
	sessions := session.New(db, 30*time.Minute)

	tr, err := NewServiceTree(sessions)
	if err != nil {
		t.Fatalf("NewServiceTree failed: %v", err)
	}

	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.HandleMethodNotAllowed = true
	NewHandler(tr, accounts, sessions).RegisterRoutes(engine.Group("/redfish"))

	return engine, sessions
}

func get(engine *gin.Engine, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", path, nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestVersionMap(t *testing.T) {
	engine, _ := newTestEngine(t)

	for _, path := range []string{"/redfish", "/redfish/"} {
		w := get(engine, path)
		if w.Code != http.StatusOK {
			t.Errorf("GET %s: expected status 200, got %d", path, w.Code)
		}
		if body := w.Body.String(); body != `{"v1":"/redfish/v1/"}` {
			t.Errorf("GET %s: unexpected body %q", path, body)
		}
		if ct := w.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("GET %s: expected Content-Type application/json, got %q", path, ct)
		}
	}
}

func TestServiceRoot(t *testing.T) {
	engine, _ := newTestEngine(t)

	for _, path := range []string{"/redfish/v1/", "/redfish/v1"} {
		w := get(engine, path)
		if w.Code != http.StatusOK {
			t.Fatalf("GET %s: expected status 200, got %d", path, w.Code)
		}
		if ct := w.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("GET %s: expected Content-Type application/json, got %q", path, ct)
		}

		var doc map[string]any
		if err := json.Unmarshal(w.Body.Bytes(), &doc); err != nil {
			t.Fatalf("GET %s: body is not valid JSON: %v", path, err)
		}
		if doc["@odata.id"] != "/redfish/v1" {
			t.Errorf("Expected @odata.id /redfish/v1, got %v", doc["@odata.id"])
		}
		if doc["@odata.type"] != "#ServiceRoot.v1_15_0.ServiceRoot" {
			t.Errorf("Expected @odata.type #ServiceRoot.v1_15_0.ServiceRoot, got %v", doc["@odata.type"])
		}
		if doc["Id"] != "RootService" {
			t.Errorf("Expected Id RootService, got %v", doc["Id"])
		}
		if doc["Name"] != "Root Service" {
			t.Errorf("Expected Name 'Root Service', got %v", doc["Name"])
		}
	}
}

func TestNotFound(t *testing.T) {
	engine, _ := newTestEngine(t)

	for _, path := range []string{"/redfish/v1/NotFound", "/redfish/v1/Systems", "/redfish/nonsense"} {
		w := get(engine, path)
		if w.Code != http.StatusNotFound {
			t.Errorf("GET %s: expected status 404, got %d", path, w.Code)
		}
		if w.Body.Len() != 0 {
			t.Errorf("GET %s: expected empty body, got %q", path, w.Body.String())
		}
	}
}

func TestIdempotentGets(t *testing.T) {
	engine, _ := newTestEngine(t)

	for _, path := range []string{"/redfish", "/redfish/v1/", "/redfish/v1/SessionService", "/redfish/v1/odata"} {
		first := get(engine, path).Body.Bytes()
		second := get(engine, path).Body.Bytes()
		if !bytes.Equal(first, second) {
			t.Errorf("GET %s: expected byte-identical bodies on repeat", path)
		}
	}
}

func TestIdempotentGets_SessionCollection(t *testing.T) {
	engine, sessions := newTestEngine(t)

	for i := 0; i < 8; i++ {
		if _, err := sessions.Create("root"); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	first := get(engine, "/redfish/v1/SessionService/Sessions").Body.Bytes()
	for i := 0; i < 10; i++ {
		got := get(engine, "/redfish/v1/SessionService/Sessions").Body.Bytes()
		if !bytes.Equal(first, got) {
			t.Fatalf("Collection body changed between GETs:\n%s\n%s", first, got)
		}
	}
}

func TestSessionService(t *testing.T) {
	engine, _ := newTestEngine(t)

	w := get(engine, "/redfish/v1/SessionService")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var doc map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &doc); err != nil {
		t.Fatalf("Body is not valid JSON: %v", err)
	}
	if doc["@odata.type"] != "#SessionService.v1_1_9.SessionService" {
		t.Errorf("Unexpected @odata.type: %v", doc["@odata.type"])
	}
	if doc["Id"] != "SessionService" {
		t.Errorf("Expected Id SessionService, got %v", doc["Id"])
	}
}

func TestODataServiceDocument(t *testing.T) {
	engine, _ := newTestEngine(t)

	w := get(engine, "/redfish/v1/odata")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var doc struct {
		ODataContext string `json:"@odata.context"`
		Value        []struct {
			Kind string `json:"kind"`
			Name string `json:"name"`
			URL  string `json:"url"`
		} `json:"value"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &doc); err != nil {
		t.Fatalf("Body is not valid JSON: %v", err)
	}
	if doc.ODataContext != "/redfish/v1/$metadata" {
		t.Errorf("Unexpected @odata.context: %s", doc.ODataContext)
	}

	urls := make(map[string]string)
	for _, v := range doc.Value {
		if v.Kind != "Singleton" {
			t.Errorf("Expected kind Singleton for %s, got %s", v.URL, v.Kind)
		}
		urls[v.URL] = v.Name
	}
	if name, ok := urls["/redfish/v1"]; !ok || name != "v1" {
		t.Errorf("Expected service root entry named v1, got %q", name)
	}
	if name, ok := urls["/redfish/v1/SessionService/Sessions"]; !ok || name != "Sessions" {
		t.Errorf("Expected session collection entry named Sessions, got %q", name)
	}
}

func TestServiceRootLinksSessions(t *testing.T) {
	engine, _ := newTestEngine(t)

	var doc struct {
		Links struct {
			Sessions struct {
				ODataID string `json:"@odata.id"`
			}
		}
	}
	w := get(engine, "/redfish/v1/")
	if err := json.Unmarshal(w.Body.Bytes(), &doc); err != nil {
		t.Fatalf("Body is not valid JSON: %v", err)
	}
	if doc.Links.Sessions.ODataID != "/redfish/v1/SessionService/Sessions" {
		t.Errorf("Expected sessions link, got %q", doc.Links.Sessions.ODataID)
	}
}

func TestCreateSession(t *testing.T) {
	engine, _ := newTestEngine(t)

	body := bytes.NewBufferString(`{"UserName":"root","Password":"root"}`)
	req := httptest.NewRequest("POST", "/redfish/v1/SessionService/Sessions", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	if w.Header().Get("X-Auth-Token") == "" {
		t.Error("Expected X-Auth-Token header")
	}
	location := w.Header().Get("Location")
	if location == "" {
		t.Fatal("Expected Location header")
	}

	// The created session is fetchable at its Location
	w2 := get(engine, location)
	if w2.Code != http.StatusOK {
		t.Errorf("GET %s: expected status 200, got %d", location, w2.Code)
	}

	var doc map[string]any
	if err := json.Unmarshal(w2.Body.Bytes(), &doc); err != nil {
		t.Fatalf("Session body is not valid JSON: %v", err)
	}
	if doc["UserName"] != "root" {
		t.Errorf("Expected UserName root, got %v", doc["UserName"])
	}
}

func TestCreateSession_BadCredentials(t *testing.T) {
	engine, _ := newTestEngine(t)

	body := bytes.NewBufferString(`{"UserName":"root","Password":"wrong"}`)
	req := httptest.NewRequest("POST", "/redfish/v1/SessionService/Sessions", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", w.Code)
	}
}

func TestCreateSession_MalformedBody(t *testing.T) {
	engine, _ := newTestEngine(t)

	req := httptest.NewRequest("POST", "/redfish/v1/SessionService/Sessions", bytes.NewBufferString("not json"))
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestDeleteSession(t *testing.T) {
	engine, sessions := newTestEngine(t)

	sess, err := sessions.Create("root")
	if err != nil {
		t.Fatalf("Create session failed: %v", err)
	}

	req := httptest.NewRequest("DELETE", sess.URI(), nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("Expected status 204, got %d", w.Code)
	}

	if w := get(engine, sess.URI()); w.Code != http.StatusNotFound {
		t.Errorf("Expected deleted session to 404, got %d", w.Code)
	}
}

func TestDeleteSession_Unknown(t *testing.T) {
	engine, _ := newTestEngine(t)

	req := httptest.NewRequest("DELETE", "/redfish/v1/SessionService/Sessions/nope", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestSessionCollectionListsMembers(t *testing.T) {
	engine, sessions := newTestEngine(t)

	sess, err := sessions.Create("root")
	if err != nil {
		t.Fatalf("Create session failed: %v", err)
	}

	var doc struct {
		Members []struct {
			ODataID string `json:"@odata.id"`
		} `json:"Members"`
		Count int `json:"Members@odata.count"`
	}
	w := get(engine, "/redfish/v1/SessionService/Sessions")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if err := json.Unmarshal(w.Body.Bytes(), &doc); err != nil {
		t.Fatalf("Body is not valid JSON: %v", err)
	}
	if doc.Count != 1 || len(doc.Members) != 1 || doc.Members[0].ODataID != sess.URI() {
		t.Errorf("Expected collection with member %s, got %+v", sess.URI(), doc)
	}
}

func TestMethodNotAllowedOnKnownURI(t *testing.T) {
	engine, _ := newTestEngine(t)

	req := httptest.NewRequest("POST", "/redfish/v1/", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected status 405 for POST to service root, got %d", w.Code)
	}

	req = httptest.NewRequest("DELETE", "/redfish/v1/SessionService", nil)
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected status 405 for DELETE of session service, got %d", w.Code)
	}
}

func TestPostToUnknownURI(t *testing.T) {
	engine, _ := newTestEngine(t)

	req := httptest.NewRequest("POST", "/redfish/v1/NotFound", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}
