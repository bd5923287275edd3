package analyzer

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/awion/cryon-soc/model"
)

const reportRule = "=================================================="

// WriteReport writes the plain-text incident report for alerts. Alerts are
// ranked first and grouped under one header per severity.
func WriteReport(w io.Writer, alerts []model.AlertRecord, now time.Time) error {
	bw := bufio.NewWriter(w)
	ranked := Rank(alerts)

	fmt.Fprintln(bw, reportRule)
	fmt.Fprintln(bw, "      CAMPUS SECURITY INCIDENT REPORT")
	fmt.Fprintln(bw, reportRule)
	fmt.Fprintf(bw, "Generated at: %s\n", now.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(bw, "Total Incidents Detected: %d\n", len(ranked))
	fmt.Fprintf(bw, "%s\n\n", reportRule)

	if len(ranked) == 0 {
		fmt.Fprintln(bw, "No security incidents detected during the reporting period.")
		return bw.Flush()
	}

	var current model.Severity
	for i, alert := range ranked {
		if i == 0 || alert.Severity != current {
			current = alert.Severity
			fmt.Fprintf(bw, "\n--- %s SEVERITY INCIDENTS ---\n", strings.ToUpper(string(current)))
		}
		fmt.Fprintf(bw, "[%s] %s\n", alert.Timestamp, alert.Type)
		fmt.Fprintf(bw, "Details: %s\n", alert.Description)
		fmt.Fprintln(bw, strings.Repeat("-", 30))
	}

	return bw.Flush()
}

// Report renders the incident report to a string
func Report(alerts []model.AlertRecord, now time.Time) string {
	var sb strings.Builder
	// strings.Builder never fails
	_ = WriteReport(&sb, alerts, now)
	return sb.String()
}
