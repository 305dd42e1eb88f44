// Package types defines the compliance value model shared across valpas.
package types

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Status is the outcome of a single compliance check.
type Status string

const (
	// StatusCompliant means the check passed.
	StatusCompliant Status = "COMPLIANT"
	// StatusNotCompliant means the check failed.
	StatusNotCompliant Status = "NOT_COMPLIANT"
	// StatusCompliantWarn is a pass with a caveat. It shows up in the
	// per-check report but never in an overall verdict.
	StatusCompliantWarn Status = "COMPLIANT_WARN"
)

// CheckResult is the immutable outcome of one check evaluation.
type CheckResult struct {
	Status    Status   `json:"status"`
	Resources []string `json:"resources,omitempty"`
	Comment   string   `json:"comment"`
}

// ReportEntry pairs a check name with its result.
type ReportEntry struct {
	Name   string
	Result CheckResult
}

// Report holds check results in pipeline execution order.
// It only grows; a check that fails still gets an entry.
type Report struct {
	entries []ReportEntry
}

// Add appends a result under the given check name.
func (r *Report) Add(name string, result CheckResult) {
	r.entries = append(r.entries, ReportEntry{Name: name, Result: result})
}

// Get returns the result for a check name.
func (r *Report) Get(name string) (CheckResult, bool) {
	for _, e := range r.entries {
		if e.Name == name {
			return e.Result, true
		}
	}
	return CheckResult{}, false
}

// Len returns the number of entries in the report.
func (r *Report) Len() int {
	return len(r.entries)
}

// Entries returns the report entries in execution order.
func (r *Report) Entries() []ReportEntry {
	return r.entries
}

// MarshalJSON renders the report as an object keyed by check name,
// preserving execution order.
func (r Report) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range r.entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(e.Result)
		if err != nil {
			return nil, fmt.Errorf("marshal result %q: %w", e.Name, err)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Attachment is a pending cross-account request to connect a VPC to the
// transit hub. Built from one discovery page and discarded after use.
type Attachment struct {
	ID             string `json:"attachment_id"`
	OwnerAccountID string `json:"owner_account_id"`
	VpcID          string `json:"vpc_id"`
	Region         string `json:"region"`
}

// Verdict is the per-attachment decision: the reduced overall status plus
// the full report behind it. Overall is never StatusCompliantWarn.
type Verdict struct {
	AttachmentID string `json:"attachment_id"`
	AccountID    string `json:"account_id"`
	VpcID        string `json:"vpc_id"`
	Region       string `json:"region"`
	Overall      Status `json:"overall"`
	Report       Report `json:"report"`
}

// Reduce collapses a report into one overall status. Any NOT_COMPLIANT
// result makes the whole attachment NOT_COMPLIANT; warnings do not block.
// This precedence is the decision rule for auto-approval, do not weaken it.
func Reduce(r Report) Status {
	for _, e := range r.Entries() {
		if e.Result.Status == StatusNotCompliant {
			return StatusNotCompliant
		}
	}
	return StatusCompliant
}
