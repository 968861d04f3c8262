package gormlog

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/zulandar/querybar/internal/querylog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type widget struct {
	ID   uint `gorm:"primaryKey"`
	Name string
}

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(&widget{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := Install(db); err != nil {
		t.Fatalf("install: %v", err)
	}
	return db
}

type record struct {
	msg      string
	severity querylog.Severity
}

type recordingSink struct {
	records []record
}

func (s *recordingSink) Emergency(m string) { s.Log(m, querylog.SeverityEmergency) }
func (s *recordingSink) Alert(m string)     { s.Log(m, querylog.SeverityAlert) }
func (s *recordingSink) Critical(m string)  { s.Log(m, querylog.SeverityCritical) }
func (s *recordingSink) Error(m string)     { s.Log(m, querylog.SeverityError) }
func (s *recordingSink) Warning(m string)   { s.Log(m, querylog.SeverityWarning) }
func (s *recordingSink) Notice(m string)    { s.Log(m, querylog.SeverityNotice) }
func (s *recordingSink) Info(m string)      { s.Log(m, querylog.SeverityInfo) }
func (s *recordingSink) Debug(m string)     { s.Log(m, querylog.SeverityDebug) }
func (s *recordingSink) Log(m string, sev querylog.Severity) {
	s.records = append(s.records, record{m, sev})
}

func fixedLogger(sink querylog.Logger) *Logger {
	l := NewLogger(sink)
	l.heapMB = func() float64 { return 12.5 }
	return l
}

func TestInstall_Idempotent(t *testing.T) {
	db := testDB(t)
	if err := Install(db); err != nil {
		t.Errorf("second Install() = %v, want nil", err)
	}
	if _, ok := db.Plugins[PluginName]; !ok {
		t.Error("plugin not registered")
	}
}

func TestMessage_AllDetails(t *testing.T) {
	l := fixedLogger(nil)
	msg, err := l.Message(2100*time.Microsecond, "query", "SELECT 1")
	if err != nil {
		t.Fatalf("Message: %v", err)
	}
	want := "time:::0.0021|||mem:::12.50|||method:::query|||sql:::SELECT 1"
	if msg != want {
		t.Errorf("Message() = %q, want %q", msg, want)
	}
}

func TestMessage_DisabledDetailsStayPositional(t *testing.T) {
	l := fixedLogger(nil)
	l.details = querylog.Details{}
	msg, err := l.Message(time.Second, "query", "SELECT 1")
	if err != nil {
		t.Fatalf("Message: %v", err)
	}
	if msg != "time:::|||mem:::|||method:::|||sql:::SELECT 1" {
		t.Errorf("Message() = %q", msg)
	}
	if _, err := querylog.DefaultFormat().Split(msg); err != nil {
		t.Errorf("message no longer splits: %v", err)
	}
}

func TestMessage_RoundTripsThroughCollector(t *testing.T) {
	l := fixedLogger(nil)
	sql := "SELECT * FROM t WHERE a = '|||' AND b = ':::'"
	msg, err := l.Message(1500*time.Microsecond, "raw", sql)
	if err != nil {
		t.Fatalf("Message: %v", err)
	}
	c := querylog.NewCollector(querylog.DefaultFormat(), nil)
	e := querylog.Entry{Message: msg}
	if got, _ := c.ExtractSQL(e); got != sql {
		t.Errorf("ExtractSQL() = %q, want %q", got, sql)
	}
	if got, _ := c.ExtractTime(e); got != 0.0015 {
		t.Errorf("ExtractTime() = %v, want 0.0015", got)
	}
	if got, _ := c.ExtractMethod(e); got != "raw" {
		t.Errorf("ExtractMethod() = %q, want raw", got)
	}
}

func TestTrace_Severity(t *testing.T) {
	fc := func() (string, int64) { return "SELECT 1", 1 }
	tests := []struct {
		name  string
		begin time.Time
		err   error
		want  querylog.Severity
	}{
		{"ok", time.Now(), nil, querylog.SeverityDebug},
		{"not found is not an error", time.Now(), gorm.ErrRecordNotFound, querylog.SeverityDebug},
		{"error", time.Now(), errors.New("no such table"), querylog.SeverityError},
		{"slow", time.Now().Add(-time.Second), nil, querylog.SeverityWarning},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &recordingSink{}
			fixedLogger(sink).Trace(context.Background(), tt.begin, fc, tt.err)
			if len(sink.records) != 1 {
				t.Fatalf("records = %d, want 1", len(sink.records))
			}
			if sink.records[0].severity != tt.want {
				t.Errorf("severity = %v, want %v", sink.records[0].severity, tt.want)
			}
		})
	}
}

func TestTrace_SilentAndNoSink(t *testing.T) {
	fc := func() (string, int64) { return "SELECT 1", 0 }
	sink := &recordingSink{}
	fixedLogger(sink).LogMode(logger.Silent).Trace(context.Background(), time.Now(), fc, nil)
	if len(sink.records) != 0 {
		t.Error("silent logger should not trace")
	}
	// A logger without a sink must not panic.
	fixedLogger(nil).Trace(context.Background(), time.Now(), fc, nil)
}

func TestLogMode_DoesNotMutateReceiver(t *testing.T) {
	l := fixedLogger(nil)
	_ = l.LogMode(logger.Silent)
	if l.level != logger.Info {
		t.Errorf("level = %v, want Info", l.level)
	}
}

func TestConn_Configure(t *testing.T) {
	conn := NewConn(context.Background(), testDB(t))
	if err := conn.Configure(querylog.Format{Outer: "|", Inner: "|", Fields: querylog.DefaultFields}, querylog.Details{}); err == nil {
		t.Error("Configure() accepted equal delimiters")
	}
	if err := conn.Configure(querylog.DefaultFormat(), querylog.Details{TimePrecision: 12}); err == nil {
		t.Error("Configure() accepted precision 12")
	}
	format := querylog.Format{Outer: ";;", Inner: "==", Fields: querylog.DefaultFields}
	if err := conn.Configure(format, querylog.Details{Time: true, TimePrecision: 2}); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	msg, err := conn.Logger().Message(1234*time.Millisecond, "q", "SELECT 1")
	if err != nil {
		t.Fatalf("Message: %v", err)
	}
	if msg != "time==1.23;;mem==;;method==;;sql==SELECT 1" {
		t.Errorf("Message() = %q", msg)
	}
}

func TestConn_RegisterCapturesQueries(t *testing.T) {
	db := testDB(t)
	conn := NewConn(context.Background(), db)
	c, err := querylog.Register(conn, nil, querylog.Options{
		SkipPackages: []string{
			"gorm.io/",
			"database/sql.",
			"github.com/zulandar/querybar/internal/querylog.",
			"github.com/zulandar/querybar/internal/gormlog.(*",
		},
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	tx := conn.DB()
	if err := tx.Create(&widget{Name: "bolt"}).Error; err != nil {
		t.Fatalf("create: %v", err)
	}
	var got []widget
	if err := tx.Where("name = ?", "bolt").Find(&got).Error; err != nil {
		t.Fatalf("find: %v", err)
	}
	var missing widget
	_ = tx.First(&missing, 999).Error

	if conn.QueryCount() != 3 {
		t.Errorf("QueryCount() = %d, want 3", conn.QueryCount())
	}
	if c.QueryCount() != conn.QueryCount() {
		t.Errorf("collector QueryCount() = %d, want %d", c.QueryCount(), conn.QueryCount())
	}

	entries := c.Entries()
	if len(entries) != 3 {
		t.Fatalf("entries = %d, want 3", len(entries))
	}
	wantMethods := []string{"create", "query", "query"}
	for i, e := range entries {
		method, err := c.ExtractMethod(e)
		if err != nil {
			t.Fatalf("ExtractMethod: %v", err)
		}
		if method != wantMethods[i] {
			t.Errorf("entries[%d] method = %q, want %q", i, method, wantMethods[i])
		}
		if e.Source == nil || !strings.HasSuffix(e.Source.File, "gormlog_test.go") {
			t.Errorf("entries[%d].Source = %+v, want gormlog_test.go", i, e.Source)
		}
	}
	sql, _ := c.ExtractSQL(entries[1])
	if !strings.Contains(sql, `"bolt"`) || !strings.Contains(strings.ToUpper(sql), "SELECT") {
		t.Errorf("query SQL = %q, want bound SELECT", sql)
	}
	total, err := c.TotalTime()
	if err != nil || total < 0 {
		t.Errorf("TotalTime() = %v, %v", total, err)
	}
}

func TestConn_RequestsAreIsolated(t *testing.T) {
	db := testDB(t)
	first := NewConn(context.Background(), db)
	second := NewConn(context.Background(), db)
	firstSink, secondSink := &recordingSink{}, &recordingSink{}
	first.SetLogger(firstSink)
	second.SetLogger(secondSink)

	var n int64
	first.DB().Model(&widget{}).Count(&n)
	first.DB().Model(&widget{}).Count(&n)
	second.DB().Model(&widget{}).Count(&n)

	if first.QueryCount() != 2 || second.QueryCount() != 1 {
		t.Errorf("counts = %d/%d, want 2/1", first.QueryCount(), second.QueryCount())
	}
	if len(firstSink.records) != 2 || len(secondSink.records) != 1 {
		t.Errorf("records = %d/%d, want 2/1", len(firstSink.records), len(secondSink.records))
	}
}

func TestMethodFromContext_Empty(t *testing.T) {
	if got := MethodFromContext(context.Background()); got != "" {
		t.Errorf("MethodFromContext() = %q, want empty", got)
	}
	if got := MethodFromContext(nil); got != "" {
		t.Errorf("MethodFromContext(nil) = %q, want empty", got)
	}
}
