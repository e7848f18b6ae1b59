package dto

import (
	"time"

	"github.com/pratik-mahalle/iamgen/internal/domain/generation"
	"github.com/pratik-mahalle/iamgen/internal/domain/scan"
)

// AuthRequest carries scan credentials; unlike scan.AuthParams it accepts a client secret
type AuthRequest struct {
	Profile        string `json:"profile,omitempty"`
	RoleARN        string `json:"role_arn,omitempty"`
	Region         string `json:"region,omitempty"`
	TenantID       string `json:"tenant_id,omitempty"`
	SubscriptionID string `json:"subscription_id,omitempty"`
	ClientID       string `json:"client_id,omitempty"`
	ClientSecret   string `json:"client_secret,omitempty"`
}

// StartScanRequest represents the request body of POST /api/v1/scans
type StartScanRequest struct {
	Provider    string            `json:"provider"`
	Auth        AuthRequest       `json:"auth"`
	Categories  map[string]bool   `json:"categories"`
	Filters     map[string]string `json:"filters,omitempty"`
	IncludeTags bool              `json:"include_tags"`
}

// ToConfig converts the request into a scan config
func (r StartScanRequest) ToConfig() scan.ScanConfig {
	return scan.ScanConfig{
		Provider: scan.Provider(r.Provider),
		Auth: scan.AuthParams{
			Profile:        r.Auth.Profile,
			RoleARN:        r.Auth.RoleARN,
			Region:         r.Auth.Region,
			TenantID:       r.Auth.TenantID,
			SubscriptionID: r.Auth.SubscriptionID,
			ClientID:       r.Auth.ClientID,
			ClientSecret:   r.Auth.ClientSecret,
		},
		Categories:  r.Categories,
		Filters:     r.Filters,
		IncludeTags: r.IncludeTags,
	}
}

// StartScanResponse is returned once a scan was registered
type StartScanResponse struct {
	ScanID string `json:"scan_id"`
	Status string `json:"status"`
}

// ScanResponse is the polled view of a scan
type ScanResponse struct {
	ID          string         `json:"id"`
	Provider    string         `json:"provider"`
	Status      string         `json:"status"`
	Progress    int            `json:"progress"`
	Message     string         `json:"message"`
	StartedAt   time.Time      `json:"started_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	Summary     map[string]int `json:"summary,omitempty"`
	Document    *scan.Document `json:"document,omitempty"`
}

// NewScanResponse maps a scan state; the document is only included when asked for
func NewScanResponse(st *scan.ScanState, withDocument bool) ScanResponse {
	resp := ScanResponse{
		ID:          st.ID,
		Provider:    string(st.Provider),
		Status:      string(st.Status),
		Progress:    st.Progress,
		Message:     st.Message,
		StartedAt:   st.StartedAt,
		UpdatedAt:   st.UpdatedAt,
		CompletedAt: st.CompletedAt,
		Summary:     st.Summary(),
	}
	if withDocument {
		resp.Document = st.Document
	}
	return resp
}

// ListScansResponse represents the response of GET /api/v1/scans
type ListScansResponse struct {
	Scans []ScanResponse `json:"scans"`
	Total int            `json:"total"`
}

// QueryRequest represents the request body of POST /api/v1/scans/{id}/query
type QueryRequest struct {
	Query      string   `json:"query"`
	Categories []string `json:"categories,omitempty"`
	Page       int      `json:"page"`
	PageSize   int      `json:"page_size"`
}

// SelectByQueryRequest represents the request body of POST /api/v1/scans/{id}/selection/query
type SelectByQueryRequest struct {
	Query      string   `json:"query"`
	Categories []string `json:"categories,omitempty"`
}

// SelectionResponse reports the selection stored for a scan
type SelectionResponse struct {
	Selection scan.Selection `json:"selection"`
	Total     int            `json:"total"`
}

// GenerateRequest represents the request body of POST /api/v1/scans/{id}/generate.
// A missing selection falls back to the stored one.
type GenerateRequest struct {
	Config    generation.Config `json:"config"`
	Selection scan.Selection    `json:"selection,omitempty"`
}
