package enums

import "strings"

type ReportReason string

const (
	ReportReasonSpam    ReportReason = "spam"
	ReportReasonFake    ReportReason = "fake"
	ReportReasonAbusive ReportReason = "abusive"
	ReportReasonOther   ReportReason = "other"
)

func ParseReportReason(input string) (ReportReason, bool) {
	switch reason := ReportReason(strings.ToLower(strings.TrimSpace(input))); reason {
	case ReportReasonSpam, ReportReasonFake, ReportReasonAbusive, ReportReasonOther:
		return reason, true
	default:
		return "", false
	}
}
