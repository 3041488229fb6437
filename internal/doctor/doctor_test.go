package doctor

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

type fakeCheck struct {
	name   string
	status Severity
	ran    int
}

func (f *fakeCheck) Name() string     { return f.name }
func (f *fakeCheck) Category() string { return "test" }

func (f *fakeCheck) Run(context.Context) *CheckResult {
	f.ran++
	return &CheckResult{Name: f.name, Category: "test", Status: f.status, Message: f.status.String()}
}

func TestRunner_Run(t *testing.T) {
	tests := []struct {
		name         string
		statuses     []Severity
		wantPassed   int
		wantInfo     int
		wantWarnings int
		wantErrors   int
	}{
		{name: "empty runner"},
		{name: "all pass", statuses: []Severity{SeverityPass, SeverityPass}, wantPassed: 2},
		{
			name:         "mixed",
			statuses:     []Severity{SeverityPass, SeverityInfo, SeverityWarning, SeverityError, SeverityWarning},
			wantPassed:   1,
			wantInfo:     1,
			wantWarnings: 2,
			wantErrors:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRunner()
			fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.FixedZone("X", 3600))
			r.now = func() time.Time { return fixed }
			for i, s := range tt.statuses {
				r.AddCheck(&fakeCheck{name: string(rune('a' + i)), status: s})
			}

			report := r.Run(context.Background())

			if len(report.Results) != len(tt.statuses) {
				t.Fatalf("Results = %d, want %d", len(report.Results), len(tt.statuses))
			}
			for i, res := range report.Results {
				if want := string(rune('a' + i)); res.Name != want {
					t.Errorf("Results[%d].Name = %q, want %q", i, res.Name, want)
				}
			}
			s := report.Summary
			if s.Passed != tt.wantPassed || s.Info != tt.wantInfo || s.Warnings != tt.wantWarnings || s.Errors != tt.wantErrors {
				t.Errorf("Summary = %+v", s)
			}
			if report.HasErrors() != (tt.wantErrors > 0) {
				t.Errorf("HasErrors() = %v", report.HasErrors())
			}
			if report.HasWarnings() != (tt.wantWarnings > 0) {
				t.Errorf("HasWarnings() = %v", report.HasWarnings())
			}
			if !report.Timestamp.Equal(fixed) || report.Timestamp.Location() != time.UTC {
				t.Errorf("Timestamp = %v, want %v in UTC", report.Timestamp, fixed)
			}
		})
	}
}

func TestRunner_RunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	check := &fakeCheck{name: "slow", status: SeverityError}
	r := NewRunner()
	r.AddCheck(check)
	report := r.Run(ctx)

	if check.ran != 0 {
		t.Errorf("check ran %d times after cancellation", check.ran)
	}
	if report.Summary.Info != 1 || report.HasErrors() {
		t.Errorf("Summary = %+v, want one skipped info result", report.Summary)
	}
}

func TestSeverity_JSON(t *testing.T) {
	data, err := json.Marshal(&CheckResult{Name: "x", Status: SeverityWarning})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if got := string(data); got != `{"name":"x","category":"","status":"warning","message":""}` {
		t.Errorf("Marshal() = %s", got)
	}
	if Severity(42).String() != "unknown" {
		t.Errorf("String() of unknown severity = %q", Severity(42).String())
	}
}
