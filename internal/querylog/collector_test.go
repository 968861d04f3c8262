package querylog

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/zulandar/querybar/internal/callsite"
)

func timed(t *testing.T, seconds string) string {
	t.Helper()
	msg, err := DefaultFormat().ComposeValues(map[Field]string{
		FieldTime:   seconds,
		FieldMem:    "1",
		FieldMethod: "query",
		FieldSQL:    "SELECT 1",
	})
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	return msg
}

func TestTotalTime_Empty(t *testing.T) {
	c := NewCollector(DefaultFormat(), nil)
	got, err := c.TotalTime()
	if err != nil || got != 0 {
		t.Errorf("TotalTime() = %v, %v; want 0", got, err)
	}
}

func TestTotalTime_SumsMilliseconds(t *testing.T) {
	c := NewCollector(DefaultFormat(), nil)
	for _, s := range []string{"0.001", "0.002", "0.0005"} {
		c.Debug(timed(t, s))
	}
	got, err := c.TotalTime()
	if err != nil {
		t.Fatalf("TotalTime: %v", err)
	}
	if math.Abs(got-3.5) > 1e-9 {
		t.Errorf("TotalTime() = %v, want 3.5", got)
	}
}

func TestTotalTime_MatchesExtractTime(t *testing.T) {
	c := NewCollector(DefaultFormat(), nil)
	for _, s := range []string{"0.25", "bogus", "1.5e-3", ""} {
		c.Info(timed(t, s))
	}
	var sum float64
	for _, e := range c.Entries() {
		v, err := c.ExtractTime(e)
		if err != nil {
			t.Fatalf("ExtractTime: %v", err)
		}
		sum += v
	}
	got, _ := c.TotalTime()
	if math.Abs(got-1000*sum) > 1e-9 {
		t.Errorf("TotalTime() = %v, want %v", got, 1000*sum)
	}
}

func TestTotalTime_MalformedFails(t *testing.T) {
	c := NewCollector(DefaultFormat(), nil)
	c.Debug(timed(t, "0.1"))
	c.Debug("not a query log line")
	_, err := c.TotalTime()
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("TotalTime() error = %v, want ErrMalformed", err)
	}
	if !strings.Contains(err.Error(), "entry 1") {
		t.Errorf("error = %q, want to name entry 1", err.Error())
	}
}

func TestLog_SeverityPerLevel(t *testing.T) {
	c := NewCollector(DefaultFormat(), nil)
	c.Emergency("a")
	c.Alert("b")
	c.Critical("c")
	c.Error("d")
	c.Warning("e")
	c.Notice("f")
	c.Info("g")
	c.Debug("h")
	c.Log("i", SeverityNone)

	want := []Severity{
		SeverityEmergency, SeverityAlert, SeverityCritical, SeverityError,
		SeverityWarning, SeverityNotice, SeverityInfo, SeverityDebug, SeverityNone,
	}
	entries := c.Entries()
	if len(entries) != len(want) {
		t.Fatalf("len(entries) = %d, want %d", len(entries), len(want))
	}
	for i, e := range entries {
		if e.Severity != want[i] {
			t.Errorf("entries[%d].Severity = %v, want %v", i, e.Severity, want[i])
		}
	}
}

func TestLog_ResolvesCallSite(t *testing.T) {
	c := NewCollector(DefaultFormat(), callsite.NewResolver(nil))
	c.Debug(sampleMessage)
	c.Log(sampleMessage, SeverityInfo)

	for i, e := range c.Entries() {
		if e.Source == nil {
			t.Fatalf("entries[%d].Source = nil, want this test file", i)
		}
		if !strings.HasSuffix(e.Source.File, "collector_test.go") {
			t.Errorf("entries[%d].Source.File = %q, want collector_test.go", i, e.Source.File)
		}
		if e.Source.Line <= 0 {
			t.Errorf("entries[%d].Source.Line = %d, want > 0", i, e.Source.Line)
		}
	}
}

func TestLog_NoResolverNoSource(t *testing.T) {
	c := NewCollector(DefaultFormat(), nil)
	c.Debug(sampleMessage)
	if src := c.Entries()[0].Source; src != nil {
		t.Errorf("Source = %+v, want nil", src)
	}
}

func TestLog_AllFramesSkipped(t *testing.T) {
	r := callsite.NewResolver(nil, callsite.WithSkip(func(callsite.Frame) bool { return true }))
	c := NewCollector(DefaultFormat(), r)
	c.Debug(sampleMessage)
	if src := c.Entries()[0].Source; src != nil {
		t.Errorf("Source = %+v, want nil", src)
	}
}

func TestEntries_ReturnsCopy(t *testing.T) {
	c := NewCollector(DefaultFormat(), nil)
	c.Debug(sampleMessage)
	got := c.Entries()
	got[0].Message = "changed"
	if c.Entries()[0].Message != sampleMessage {
		t.Error("Entries() exposed internal storage")
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

func TestQueryCount_NoConnection(t *testing.T) {
	c := NewCollector(DefaultFormat(), nil)
	c.Debug(sampleMessage)
	if got := c.QueryCount(); got != 0 {
		t.Errorf("QueryCount() = %d, want 0", got)
	}
}

func TestSeverity_String(t *testing.T) {
	tests := []struct {
		s    Severity
		want string
	}{
		{SeverityEmergency, "emergency"},
		{SeverityDebug, "debug"},
		{SeverityNone, "none"},
		{Severity(42), "severity(42)"},
	}
	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("Severity(%d).String() = %q, want %q", int(tt.s), got, tt.want)
		}
	}
}
