package demo

import (
	"context"
	"html"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/querybar/internal/db"
	"github.com/zulandar/querybar/internal/querybar"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	// Every new connection to :memory: is a fresh database.
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := db.SeedNotes(gdb, nil); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return gdb
}

func testRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	gdb := testDB(t)
	router, err := newRouter(gdb, querybar.Options{})
	if err != nil {
		t.Fatalf("newRouter: %v", err)
	}
	return router, gdb
}

func get(router *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	router.ServeHTTP(w, req)
	return w
}

func TestIndex_ListsNotesWithQueryPanel(t *testing.T) {
	router, _ := testRouter(t)
	w := get(router, "/")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body := html.UnescapeString(w.Body.String())
	for _, want := range []string{
		"Indexes first",
		"N+1 in the list view",
		`id="qb-debugbar"`,
		// One list query plus one count per seeded note.
		"<h1>Queries: 4, time:",
		"4 queries / ",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
	if i, j := strings.Index(body, `id="qb-debugbar"`), strings.LastIndex(body, "</body>"); i < 0 || i > j {
		t.Errorf("bar not injected before </body>")
	}
}

func TestNote_PreloadsComments(t *testing.T) {
	router, gdb := testRouter(t)
	note, err := SearchNotes(gdb, "Indexes")
	if err != nil || len(note) != 1 {
		t.Fatalf("SearchNotes = %v, %v", note, err)
	}

	w := get(router, "/notes/"+strconv.FormatUint(uint64(note[0].ID), 10))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "EXPLAIN saved my afternoon.") {
		t.Error("comment not rendered")
	}
	if !strings.Contains(body, "<h1>Queries: 2, time:") {
		t.Error("expected note + preload queries in panel")
	}
}

func TestNote_NotFoundAndBadID(t *testing.T) {
	router, _ := testRouter(t)
	if w := get(router, "/notes/9999"); w.Code != http.StatusNotFound {
		t.Errorf("missing note status = %d, want 404", w.Code)
	}
	if w := get(router, "/notes/abc"); w.Code != http.StatusBadRequest {
		t.Errorf("bad id status = %d, want 400", w.Code)
	}
}

func TestSearch(t *testing.T) {
	router, _ := testRouter(t)
	w := get(router, "/search?q=quotes")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "Quoting &#39;strings&#39; safely") {
		t.Errorf("search result missing, body: %s", body)
	}
	if !strings.Contains(body, "LIKE") {
		t.Error("search SQL not shown in panel")
	}
}

func TestSearch_EmptyQueryRunsNoSQL(t *testing.T) {
	router, _ := testRouter(t)
	w := get(router, "/search?q=")
	body := w.Body.String()
	if !strings.Contains(body, "No matching notes.") {
		t.Error("expected empty result message")
	}
	if !strings.Contains(body, `alt="">0</span>`) {
		t.Error("expected zero-query tab")
	}
}

func TestStatic_NoBarOnCSS(t *testing.T) {
	router, _ := testRouter(t)
	w := get(router, "/static/style.css")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if strings.Contains(w.Body.String(), "qb-bar") {
		t.Error("bar injected into stylesheet")
	}
}

func TestStart_RequiresDB(t *testing.T) {
	if err := Start(context.Background(), StartOpts{}); err == nil {
		t.Fatal("expected error without db")
	}
}

func TestTimeAgo(t *testing.T) {
	tests := []struct {
		ago  time.Duration
		want string
	}{
		{30 * time.Second, "30s ago"},
		{5 * time.Minute, "5m ago"},
		{3 * time.Hour, "3h ago"},
		{49 * time.Hour, "2d ago"},
	}
	for _, tt := range tests {
		if got := TimeAgo(time.Now().Add(-tt.ago)); got != tt.want {
			t.Errorf("TimeAgo(-%v) = %q, want %q", tt.ago, got, tt.want)
		}
	}
	if got := TimeAgo(time.Time{}); got != "never" {
		t.Errorf("TimeAgo(zero) = %q, want never", got)
	}
}
