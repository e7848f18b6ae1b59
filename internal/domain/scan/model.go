package scan

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Provider identifies the cloud a scan runs against
type Provider string

const (
	ProviderAWS   Provider = "aws"
	ProviderAzure Provider = "azure"
)

// Status represents the lifecycle stage of a scan
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// IsTerminal checks if the status can no longer change
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Category names
const (
	CategoryUsers             = "users"
	CategoryGroups            = "groups"
	CategoryRoles             = "roles"
	CategoryPolicies          = "policies"
	CategoryPolicyAttachments = "policy_attachments"
	CategoryRoleDefinitions   = "role_definitions"
	CategoryRoleAssignments   = "role_assignments"
)

// Filter keys understood by the scanners
const (
	FilterNamePrefix = "name_prefix"
	FilterPathPrefix = "path_prefix"
	FilterRoleType   = "role_type"
)

// ErrTerminalState is returned when a finished scan is asked to change
var ErrTerminalState = errors.New("scan is already in a terminal state")

// AuthParams carries the provider-specific authentication parameters
type AuthParams struct {
	Profile        string `json:"profile,omitempty" yaml:"profile,omitempty"`
	RoleARN        string `json:"role_arn,omitempty" yaml:"role_arn,omitempty"`
	Region         string `json:"region,omitempty" yaml:"region,omitempty"`
	TenantID       string `json:"tenant_id,omitempty" yaml:"tenant_id,omitempty"`
	SubscriptionID string `json:"subscription_id,omitempty" yaml:"subscription_id,omitempty"`
	ClientID       string `json:"client_id,omitempty" yaml:"client_id,omitempty"`
	ClientSecret   string `json:"-" yaml:"client_secret,omitempty"`
}

// ScanConfig describes one scan request. It is treated as immutable once the scan starts.
type ScanConfig struct {
	Provider    Provider          `json:"provider" yaml:"provider" validate:"required,oneof=aws azure"`
	Auth        AuthParams        `json:"auth" yaml:"auth"`
	Categories  map[string]bool   `json:"categories" yaml:"categories"`
	Filters     map[string]string `json:"filters,omitempty" yaml:"filters,omitempty"`
	IncludeTags bool              `json:"include_tags" yaml:"include_tags"`
}

// Enabled reports whether category was switched on for this scan
func (c ScanConfig) Enabled(category string) bool {
	return c.Categories[category]
}

// Filter returns a free-text filter value, or "" when unset
func (c ScanConfig) Filter(key string) string {
	if c.Filters == nil {
		return ""
	}
	return strings.TrimSpace(c.Filters[key])
}

// AuthContext renders the profile/role/tenant context used in error messages
func (c ScanConfig) AuthContext() string {
	var parts []string
	profile := c.Auth.Profile
	if profile == "" && c.Provider == ProviderAWS {
		profile = "default"
	}
	if profile != "" {
		parts = append(parts, fmt.Sprintf("profile %q", profile))
	}
	if c.Auth.RoleARN != "" {
		parts = append(parts, fmt.Sprintf("role %q", c.Auth.RoleARN))
	}
	if c.Auth.TenantID != "" {
		parts = append(parts, fmt.Sprintf("tenant %q", c.Auth.TenantID))
	}
	if c.Auth.SubscriptionID != "" {
		parts = append(parts, fmt.Sprintf("subscription %q", c.Auth.SubscriptionID))
	}
	return strings.Join(parts, ", ")
}

// Record is one scanned resource. Fields are open-ended so unknown provider attributes survive
// into generated templates untouched.
type Record map[string]any

// String returns the string value at key, or "" if missing or not a string
func (r Record) String(key string) string {
	if v, ok := r[key].(string); ok {
		return v
	}
	return ""
}

// Strings returns the string list at key, accepting both []string and decoded []any
func (r Record) Strings(key string) []string {
	switch v := r[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// AsMap exposes the record as a plain map
func (r Record) AsMap() map[string]any {
	return r
}

// Set stores value at key
func (r Record) Set(key string, value any) {
	r[key] = value
}

// Clone returns a shallow copy of the record
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Document is the result of a scan: records grouped by category, in scan order per category
type Document struct {
	Provider  Provider            `json:"provider"`
	Resources map[string][]Record `json:"resources"`
}

// NewDocument creates an empty document for provider
func NewDocument(provider Provider) *Document {
	return &Document{
		Provider:  provider,
		Resources: make(map[string][]Record),
	}
}

// Records returns the records of category
func (d *Document) Records(category string) []Record {
	if d == nil {
		return nil
	}
	return d.Resources[category]
}

// SetRecords replaces the records of category
func (d *Document) SetRecords(category string, records []Record) {
	if records == nil {
		records = []Record{}
	}
	d.Resources[category] = records
}

// Categories returns the category names present, sorted
func (d *Document) Categories() []string {
	if d == nil {
		return nil
	}
	out := make([]string, 0, len(d.Resources))
	for c := range d.Resources {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Summary returns record counts per category
func (d *Document) Summary() map[string]int {
	out := make(map[string]int)
	if d == nil {
		return out
	}
	for c, records := range d.Resources {
		out[c] = len(records)
	}
	return out
}

// ScanState is the polled view of one scan
type ScanState struct {
	ID          string     `json:"id"`
	Provider    Provider   `json:"provider"`
	Status      Status     `json:"status"`
	Progress    int        `json:"progress"`
	Message     string     `json:"message"`
	Document    *Document  `json:"document,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// NewScanState creates a pending scan
func NewScanState(id string, provider Provider) *ScanState {
	now := time.Now().UTC()
	return &ScanState{
		ID:        id,
		Provider:  provider,
		Status:    StatusPending,
		Message:   "Scan queued",
		StartedAt: now,
		UpdatedAt: now,
	}
}

// Advance moves the scan into progress. Progress never goes backwards.
func (s *ScanState) Advance(progress int, message string) error {
	if s.Status.IsTerminal() {
		return ErrTerminalState
	}
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	s.Status = StatusInProgress
	if progress > s.Progress {
		s.Progress = progress
	}
	s.Message = message
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// Complete freezes the scan with its document
func (s *ScanState) Complete(doc *Document, message string) error {
	if s.Status.IsTerminal() {
		return ErrTerminalState
	}
	now := time.Now().UTC()
	s.Status = StatusCompleted
	s.Progress = 100
	s.Message = message
	s.Document = doc
	s.UpdatedAt = now
	s.CompletedAt = &now
	return nil
}

// Fail freezes the scan with an error message
func (s *ScanState) Fail(message string) error {
	if s.Status.IsTerminal() {
		return ErrTerminalState
	}
	now := time.Now().UTC()
	s.Status = StatusFailed
	s.Message = message
	s.UpdatedAt = now
	s.CompletedAt = &now
	return nil
}

// Summary returns per-category counts once the scan completed
func (s *ScanState) Summary() map[string]int {
	if s.Status != StatusCompleted || s.Document == nil {
		return nil
	}
	return s.Document.Summary()
}
