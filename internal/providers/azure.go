package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/authorization/armauthorization/v2"
	"github.com/hashicorp/go-cleanhttp"

	"github.com/pratik-mahalle/iamgen/internal/domain/scan"
	apperrors "github.com/pratik-mahalle/iamgen/internal/pkg/errors"
	"github.com/pratik-mahalle/iamgen/internal/pkg/logger"
)

const (
	graphScope       = "https://graph.microsoft.com/.default"
	graphBaseURL     = "https://graph.microsoft.com/v1.0"
	graphHTTPTimeout = 15 * time.Second
)

// ErrTokenUnavailable is returned by a PrincipalDirectory whose token could not be acquired
var ErrTokenUnavailable = errors.New("directory token unavailable")

// AzureRBACAPI lists role-based access control resources of one subscription
type AzureRBACAPI interface {
	ListRoleDefinitions(ctx context.Context, scope string, customOnly bool) ([]scan.Record, error)
	ListRoleAssignments(ctx context.Context) ([]scan.Record, error)
}

// PrincipalDirectory resolves principal object ids to display names
type PrincipalDirectory interface {
	DisplayName(ctx context.Context, principalID string) (string, error)
}

// AzureScanner enumerates role definitions and role assignments of a subscription
type AzureScanner struct {
	rbac      AzureRBACAPI
	directory PrincipalDirectory
	cfg       scan.ScanConfig
	logger    *logger.Logger
}

// NewAzureScanner builds the credential chain and the ARM and Graph clients
func NewAzureScanner(cfg scan.ScanConfig, log *logger.Logger) (*AzureScanner, error) {
	if cfg.Auth.SubscriptionID == "" {
		return nil, apperrors.ConfigurationError("azure scans require a subscription id", nil)
	}

	cred, err := azureCredential(cfg.Auth)
	if err != nil {
		return nil, apperrors.AuthenticationError("azure", cfg.AuthContext(),
			"run 'az login' or set AZURE_TENANT_ID, AZURE_CLIENT_ID and AZURE_CLIENT_SECRET", err)
	}

	rbac, err := newARMRBAC(cfg.Auth.SubscriptionID, cred)
	if err != nil {
		return nil, apperrors.AuthenticationError("azure", cfg.AuthContext(), "check the subscription id", err)
	}

	return NewAzureScannerWithClients(rbac, NewGraphDirectory(cred, log), cfg, log), nil
}

// NewAzureScannerWithClients builds a scanner over already configured clients
func NewAzureScannerWithClients(rbac AzureRBACAPI, directory PrincipalDirectory, cfg scan.ScanConfig, log *logger.Logger) *AzureScanner {
	if log == nil {
		log = logger.Nop()
	}
	return &AzureScanner{rbac: rbac, directory: directory, cfg: cfg, logger: log}
}

func azureCredential(auth scan.AuthParams) (azcore.TokenCredential, error) {
	if auth.ClientSecret != "" {
		return azidentity.NewClientSecretCredential(auth.TenantID, auth.ClientID, auth.ClientSecret, nil)
	}
	return azidentity.NewDefaultAzureCredential(&azidentity.DefaultAzureCredentialOptions{
		TenantID: auth.TenantID,
	})
}

// Provider implements Scanner
func (s *AzureScanner) Provider() scan.Provider {
	return scan.ProviderAzure
}

// Prepare implements Scanner. ARM calls acquire their own tokens; the Graph token is fetched lazily.
func (s *AzureScanner) Prepare(ctx context.Context) error {
	return nil
}

// Categories implements Scanner
func (s *AzureScanner) Categories() []Category {
	return []Category{
		{Name: scan.CategoryRoleDefinitions, NameField: "role_name", List: s.listRoleDefinitions},
		{Name: scan.CategoryRoleAssignments, List: s.listRoleAssignments, Enrich: s.enrichRoleAssignment},
	}
}

func (s *AzureScanner) scope() string {
	return "/subscriptions/" + s.cfg.Auth.SubscriptionID
}

func (s *AzureScanner) listRoleDefinitions(ctx context.Context) ([]scan.Record, error) {
	customOnly := strings.EqualFold(s.cfg.Filter(scan.FilterRoleType), "custom")
	records, err := s.rbac.ListRoleDefinitions(ctx, s.scope(), customOnly)
	if err != nil {
		return nil, apperrors.CategoryEnumerationError(scan.CategoryRoleDefinitions, s.cfg.AuthContext(),
			"assign a role with Microsoft.Authorization/roleDefinitions/read on the subscription", err)
	}
	return records, nil
}

func (s *AzureScanner) listRoleAssignments(ctx context.Context) ([]scan.Record, error) {
	records, err := s.rbac.ListRoleAssignments(ctx)
	if err != nil {
		return nil, apperrors.CategoryEnumerationError(scan.CategoryRoleAssignments, s.cfg.AuthContext(),
			"assign a role with Microsoft.Authorization/roleAssignments/read on the subscription", err)
	}
	return records, nil
}

func (s *AzureScanner) enrichRoleAssignment(ctx context.Context, r scan.Record) error {
	if s.directory == nil {
		return nil
	}
	principalID := r.String("principal_id")
	if principalID == "" {
		return nil
	}
	name, err := s.directory.DisplayName(ctx, principalID)
	if errors.Is(err, ErrTokenUnavailable) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("resolve principal %s: %w", principalID, err)
	}
	if name != "" {
		r.Set("principal_display_name", name)
	}
	return nil
}

// armRBAC adapts the armauthorization clients to AzureRBACAPI
type armRBAC struct {
	definitions *armauthorization.RoleDefinitionsClient
	assignments *armauthorization.RoleAssignmentsClient
}

func newARMRBAC(subscriptionID string, cred azcore.TokenCredential) (*armRBAC, error) {
	definitions, err := armauthorization.NewRoleDefinitionsClient(cred, nil)
	if err != nil {
		return nil, fmt.Errorf("create role definitions client: %w", err)
	}
	assignments, err := armauthorization.NewRoleAssignmentsClient(subscriptionID, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("create role assignments client: %w", err)
	}
	return &armRBAC{definitions: definitions, assignments: assignments}, nil
}

func (a *armRBAC) ListRoleDefinitions(ctx context.Context, scope string, customOnly bool) ([]scan.Record, error) {
	var opts *armauthorization.RoleDefinitionsClientListOptions
	if customOnly {
		filter := "type eq 'CustomRole'"
		opts = &armauthorization.RoleDefinitionsClientListOptions{Filter: &filter}
	}

	out := []scan.Record{}
	pager := a.definitions.NewListPager(scope, opts)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, def := range page.Value {
			if def != nil {
				out = append(out, roleDefinitionRecord(def))
			}
		}
	}
	return out, nil
}

func (a *armRBAC) ListRoleAssignments(ctx context.Context) ([]scan.Record, error) {
	out := []scan.Record{}
	pager := a.assignments.NewListForSubscriptionPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, ra := range page.Value {
			if ra != nil {
				out = append(out, roleAssignmentRecord(ra))
			}
		}
	}
	return out, nil
}

func roleDefinitionRecord(def *armauthorization.RoleDefinition) scan.Record {
	rec := scan.Record{
		"id":   deref(def.ID),
		"name": deref(def.Name),
	}
	if p := def.Properties; p != nil {
		rec.Set("role_name", deref(p.RoleName))
		rec.Set("description", deref(p.Description))
		rec.Set("role_type", deref(p.RoleType))
		rec.Set("assignable_scopes", stringList(p.AssignableScopes))

		permissions := make([]any, 0, len(p.Permissions))
		for _, perm := range p.Permissions {
			if perm == nil {
				continue
			}
			permissions = append(permissions, map[string]any{
				"actions":          stringList(perm.Actions),
				"not_actions":      stringList(perm.NotActions),
				"data_actions":     stringList(perm.DataActions),
				"not_data_actions": stringList(perm.NotDataActions),
			})
		}
		rec.Set("permissions", permissions)
	}
	return rec
}

func roleAssignmentRecord(ra *armauthorization.RoleAssignment) scan.Record {
	rec := scan.Record{
		"id":   deref(ra.ID),
		"name": deref(ra.Name),
	}
	if p := ra.Properties; p != nil {
		rec.Set("principal_id", deref(p.PrincipalID))
		rec.Set("role_definition_id", deref(p.RoleDefinitionID))
		rec.Set("scope", deref(p.Scope))
		rec.Set("description", deref(p.Description))
		if p.PrincipalType != nil {
			rec.Set("principal_type", string(*p.PrincipalType))
		}
	}
	return rec
}

// GraphDirectory resolves display names through Microsoft Graph with one cached token
type GraphDirectory struct {
	cred    azcore.TokenCredential
	client  *http.Client
	baseURL string
	logger  *logger.Logger

	once     sync.Once
	token    string
	tokenErr error
}

// NewGraphDirectory creates a directory against the public Graph endpoint
func NewGraphDirectory(cred azcore.TokenCredential, log *logger.Logger) *GraphDirectory {
	client := cleanhttp.DefaultPooledClient()
	client.Timeout = graphHTTPTimeout
	if log == nil {
		log = logger.Nop()
	}
	return &GraphDirectory{cred: cred, client: client, baseURL: graphBaseURL, logger: log}
}

// WithBaseURL points the directory at another Graph endpoint
func (d *GraphDirectory) WithBaseURL(base string) *GraphDirectory {
	d.baseURL = strings.TrimRight(base, "/")
	return d
}

func (d *GraphDirectory) acquire(ctx context.Context) (string, error) {
	d.once.Do(func() {
		tok, err := d.cred.GetToken(ctx, policy.TokenRequestOptions{Scopes: []string{graphScope}})
		if err != nil {
			d.tokenErr = err
			d.logger.WarnWithErr(err, "Graph token unavailable, principal display names will be omitted")
			return
		}
		d.token = tok.Token
	})
	if d.tokenErr != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenUnavailable, d.tokenErr)
	}
	return d.token, nil
}

// DisplayName implements PrincipalDirectory
func (d *GraphDirectory) DisplayName(ctx context.Context, principalID string) (string, error) {
	token, err := d.acquire(ctx)
	if err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("%s/directoryObjects/%s?$select=displayName", d.baseURL, url.PathEscape(principalID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("graph returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var obj struct {
		DisplayName string `json:"displayName"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&obj); err != nil {
		return "", fmt.Errorf("decode graph response: %w", err)
	}
	return obj.DisplayName, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func stringList(in []*string) []any {
	out := make([]any, 0, len(in))
	for _, s := range in {
		if s != nil {
			out = append(out, *s)
		}
	}
	return out
}
