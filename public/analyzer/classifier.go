package analyzer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/awion/cryon-soc/config"
	"github.com/awion/cryon-soc/model"
)

// TrustedPrefix is the address prefix of the internal network
const TrustedPrefix = "192.168."

// Rule names attached to non-NORMAL verdicts
const (
	RuleBruteForce     = "Brute Force Attack"
	RuleExfiltration   = "Data Exfiltration"
	RuleLargeDownload  = "Large Data Download"
	RuleExternalOrigin = "External IP Activity"
)

// IsExternal reports whether an address lies outside the trusted network.
// Empty addresses are internal; anything else not carrying the trusted prefix,
// malformed input included, is external.
func IsExternal(address string) bool {
	if address == "" {
		return false
	}
	return !strings.HasPrefix(address, TrustedPrefix)
}

// CounterTable counts failed logins per source IP within one pass. A table
// belongs to exactly one pass and must not be shared.
type CounterTable map[string]int

// NewCounterTable returns an empty table
func NewCounterTable() CounterTable {
	return make(CounterTable)
}

// Increment bumps the count for ip and returns the new value
func (c CounterTable) Increment(ip string) int {
	c[ip]++
	return c[ip]
}

// Count returns the current count for ip
func (c CounterTable) Count(ip string) int {
	return c[ip]
}

// Verdict is the classifier's output for one record
type Verdict struct {
	Priority    model.Priority
	Rule        string
	Description *string
}

func normal() Verdict {
	return Verdict{Priority: model.PriorityNormal}
}

func flag(priority model.Priority, rule, format string, args ...interface{}) Verdict {
	description := fmt.Sprintf(format, args...)
	return Verdict{Priority: priority, Rule: rule, Description: &description}
}

// Classify assigns a priority to a single record. Rules are checked in order
// and the first one that fires wins: brute force, exfiltration, large
// download, external origin. Failed logins are counted in counters even when
// the limit has not been reached yet.
func Classify(record model.Activity, counters CounterTable, thresholds config.Thresholds) Verdict {
	env := record.Common()

	switch rec := record.(type) {
	case model.LoginAttempt:
		if rec.Failed() {
			count := counters.Increment(rec.IPAddress)
			if count >= thresholds.FailedLoginLimit {
				return flag(model.PriorityCritical, RuleBruteForce,
					"%d failed login attempts from %s targeting %s (limit %d)",
					count, rec.IPAddress, displayUser(rec.UserID), thresholds.FailedLoginLimit)
			}
		}

	case model.DataUpload:
		if IsExternal(rec.DestinationIP) {
			if rec.SizeMB >= thresholds.DataUploadThreshold {
				return flag(model.PriorityCritical, RuleExfiltration,
					"%sMB uploaded to external host %s by %s (threshold %sMB)",
					formatMB(rec.SizeMB), rec.DestinationIP, displayUser(rec.UserID), formatMB(thresholds.DataUploadThreshold))
			}
			return flag(model.PriorityHigh, RuleExfiltration,
				"%sMB uploaded to external host %s by %s (below %sMB threshold)",
				formatMB(rec.SizeMB), rec.DestinationIP, displayUser(rec.UserID), formatMB(thresholds.DataUploadThreshold))
		}

	case model.DataDownload:
		if rec.SizeMB > thresholds.LargeDownloadThreshold {
			resource := ""
			if rec.Resource != "" {
				resource = " (" + rec.Resource + ")"
			}
			return flag(model.PriorityHigh, RuleLargeDownload,
				"%sMB downloaded%s by %s (threshold %sMB)",
				formatMB(rec.SizeMB), resource, displayUser(rec.UserID), formatMB(thresholds.LargeDownloadThreshold))
		}
	}

	if IsExternal(env.IPAddress) {
		return flag(model.PriorityHigh, RuleExternalOrigin,
			"External access: %s from %s by %s",
			describeKind(record), env.IPAddress, displayUser(env.UserID))
	}

	return normal()
}

// describeKind names the activity for the external-origin message using only
// fields the variant carries
func describeKind(record model.Activity) string {
	switch rec := record.(type) {
	case model.LoginAttempt:
		if rec.Status != "" {
			return string(rec.Status) + " login attempt"
		}
		return "login attempt"
	case model.DataDownload:
		return formatMB(rec.SizeMB) + "MB download"
	case model.DataUpload:
		return formatMB(rec.SizeMB) + "MB upload"
	default:
		if record.Kind() == "" {
			return "activity"
		}
		return strconv.Quote(string(record.Kind())) + " activity"
	}
}

func displayUser(user string) string {
	if user == "" {
		return "unknown user"
	}
	return user
}

func formatMB(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
