package enums

import "testing"

func TestParseDecisionNormalizesInput(t *testing.T) {
	tests := []struct {
		input string
		want  Decision
		ok    bool
	}{
		{input: "LIKE", want: DecisionLike, ok: true},
		{input: " pass ", want: DecisionPass, ok: true},
		{input: "SUPER_LIKE", want: DecisionSuperLike, ok: true},
		{input: "super-like", want: DecisionSuperLike, ok: true},
		{input: "dislike", want: DecisionPass, ok: true},
		{input: "maybe", ok: false},
		{input: "", ok: false},
	}

	for _, tc := range tests {
		got, ok := ParseDecision(tc.input)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("ParseDecision(%q) = %q,%v want %q,%v", tc.input, got, ok, tc.want, tc.ok)
		}
	}
}

func TestDecisionIsPositive(t *testing.T) {
	if !DecisionLike.IsPositive() || !DecisionSuperLike.IsPositive() {
		t.Fatalf("like and superlike must be positive")
	}
	if DecisionPass.IsPositive() {
		t.Fatalf("pass must not be positive")
	}
}

func TestParseReportReason(t *testing.T) {
	if got, ok := ParseReportReason(" Spam "); !ok || got != ReportReasonSpam {
		t.Fatalf("unexpected reason: %q %v", got, ok)
	}
	if _, ok := ParseReportReason("boring"); ok {
		t.Fatalf("unknown reason must be rejected")
	}
}
