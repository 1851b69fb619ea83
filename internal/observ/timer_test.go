package observ

import (
	"strings"
	"testing"
	"time"
)

func fakeClock(step time.Duration) func() time.Time {
	cur := time.Unix(0, 0)
	return func() time.Time {
		cur = cur.Add(step)
		return cur
	}
}

func TestTimerReport(t *testing.T) {
	tm := NewTimer()
	tm.now = fakeClock(time.Millisecond)

	a := tm.Begin("config")
	if d := tm.End(a, ""); d != time.Millisecond {
		t.Fatalf("config = %v", d)
	}
	b := tm.Begin("emit")
	tm.End(b, "files=2")
	tm.End(b, "ignored")
	tm.Begin("unfinished")

	report := tm.Report()
	if len(report.Phases) != 2 {
		t.Fatalf("phases = %+v", report.Phases)
	}
	if report.Phases[1].Note != "files=2" {
		t.Fatalf("second End must not overwrite: %+v", report.Phases[1])
	}
	if report.TotalMS != 2 {
		t.Fatalf("TotalMS = %v", report.TotalMS)
	}
	summary := report.Summary()
	for _, want := range []string{"config", "emit", "// files=2", "total"} {
		if !strings.Contains(summary, want) {
			t.Fatalf("summary missing %q:\n%s", want, summary)
		}
	}
	if strings.Contains(summary, "unfinished") {
		t.Fatalf("unfinished phase reported:\n%s", summary)
	}
}

func TestNilTimer(t *testing.T) {
	var tm *Timer
	idx := tm.Begin("x")
	if idx != -1 || tm.End(idx, "") != 0 || len(tm.Report().Phases) != 0 {
		t.Fatalf("nil timer should be inert")
	}
}
