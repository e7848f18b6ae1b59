package providers

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/pratik-mahalle/iamgen/internal/domain/scan"
	apperrors "github.com/pratik-mahalle/iamgen/internal/pkg/errors"
)

const defaultAWSRegion = "us-east-1"

// IAMAPI is the subset of the IAM client the scanner calls
type IAMAPI interface {
	ListUsers(ctx context.Context, params *iam.ListUsersInput, optFns ...func(*iam.Options)) (*iam.ListUsersOutput, error)
	ListGroups(ctx context.Context, params *iam.ListGroupsInput, optFns ...func(*iam.Options)) (*iam.ListGroupsOutput, error)
	ListRoles(ctx context.Context, params *iam.ListRolesInput, optFns ...func(*iam.Options)) (*iam.ListRolesOutput, error)
	ListPolicies(ctx context.Context, params *iam.ListPoliciesInput, optFns ...func(*iam.Options)) (*iam.ListPoliciesOutput, error)
	ListEntitiesForPolicy(ctx context.Context, params *iam.ListEntitiesForPolicyInput, optFns ...func(*iam.Options)) (*iam.ListEntitiesForPolicyOutput, error)
	GetGroup(ctx context.Context, params *iam.GetGroupInput, optFns ...func(*iam.Options)) (*iam.GetGroupOutput, error)
	GetPolicyVersion(ctx context.Context, params *iam.GetPolicyVersionInput, optFns ...func(*iam.Options)) (*iam.GetPolicyVersionOutput, error)
	ListUserTags(ctx context.Context, params *iam.ListUserTagsInput, optFns ...func(*iam.Options)) (*iam.ListUserTagsOutput, error)
	ListRoleTags(ctx context.Context, params *iam.ListRoleTagsInput, optFns ...func(*iam.Options)) (*iam.ListRoleTagsOutput, error)
	ListPolicyTags(ctx context.Context, params *iam.ListPolicyTagsInput, optFns ...func(*iam.Options)) (*iam.ListPolicyTagsOutput, error)
	ListGroupsForUser(ctx context.Context, params *iam.ListGroupsForUserInput, optFns ...func(*iam.Options)) (*iam.ListGroupsForUserOutput, error)
	ListAttachedUserPolicies(ctx context.Context, params *iam.ListAttachedUserPoliciesInput, optFns ...func(*iam.Options)) (*iam.ListAttachedUserPoliciesOutput, error)
	ListAttachedGroupPolicies(ctx context.Context, params *iam.ListAttachedGroupPoliciesInput, optFns ...func(*iam.Options)) (*iam.ListAttachedGroupPoliciesOutput, error)
	ListAttachedRolePolicies(ctx context.Context, params *iam.ListAttachedRolePoliciesInput, optFns ...func(*iam.Options)) (*iam.ListAttachedRolePoliciesOutput, error)
}

// STSAPI verifies the resolved credentials
type STSAPI interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// AWSScanner enumerates IAM users, groups, roles, customer-managed policies and policy attachments
type AWSScanner struct {
	iam IAMAPI
	sts STSAPI
	cfg scan.ScanConfig

	accountID string
}

// NewAWSScanner resolves the shared-config profile and, when a role ARN is given, wraps it in an
// assume-role provider. Credentials are cached for the lifetime of the scanner.
func NewAWSScanner(ctx context.Context, cfg scan.ScanConfig) (*AWSScanner, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(nonEmpty(cfg.Auth.Region, defaultAWSRegion)),
	}
	if cfg.Auth.Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(cfg.Auth.Profile))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, apperrors.AuthenticationError("aws", cfg.AuthContext(),
			"check that the profile exists in ~/.aws/config or that AWS_* environment variables are set", err)
	}

	stsClient := sts.NewFromConfig(awsCfg)
	if cfg.Auth.RoleARN != "" {
		awsCfg.Credentials = aws.NewCredentialsCache(stscreds.NewAssumeRoleProvider(stsClient, cfg.Auth.RoleARN,
			func(o *stscreds.AssumeRoleOptions) {
				o.RoleSessionName = "iamgen-scan"
			}))
		stsClient = sts.NewFromConfig(awsCfg)
	}

	return NewAWSScannerWithClients(iam.NewFromConfig(awsCfg), stsClient, cfg), nil
}

// NewAWSScannerWithClients builds a scanner over already configured clients
func NewAWSScannerWithClients(iamClient IAMAPI, stsClient STSAPI, cfg scan.ScanConfig) *AWSScanner {
	return &AWSScanner{iam: iamClient, sts: stsClient, cfg: cfg}
}

// Provider implements Scanner
func (s *AWSScanner) Provider() scan.Provider {
	return scan.ProviderAWS
}

// Prepare checks that the credentials resolve to a caller identity
func (s *AWSScanner) Prepare(ctx context.Context) error {
	if s.sts == nil {
		return nil
	}
	out, err := s.sts.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		hint := "run 'aws sso login' or refresh the access keys of the profile"
		if s.cfg.Auth.RoleARN != "" {
			hint = "check that the profile may call sts:AssumeRole on the role"
		}
		return apperrors.AuthenticationError("aws", s.cfg.AuthContext(), hint, err)
	}
	s.accountID = aws.ToString(out.Account)
	return nil
}

// AccountID returns the account resolved by Prepare
func (s *AWSScanner) AccountID() string {
	return s.accountID
}

// Categories implements Scanner
func (s *AWSScanner) Categories() []Category {
	return []Category{
		{Name: scan.CategoryUsers, NameField: "user_name", List: s.listUsers, Enrich: s.enrichUser},
		{Name: scan.CategoryGroups, NameField: "group_name", List: s.listGroups, Enrich: s.enrichGroup},
		{Name: scan.CategoryRoles, NameField: "role_name", List: s.listRoles, Enrich: s.enrichRole},
		{Name: scan.CategoryPolicies, NameField: "policy_name", List: s.listPolicies, Enrich: s.enrichPolicy},
		{Name: scan.CategoryPolicyAttachments, NameField: "entity_name", List: s.listPolicyAttachments},
	}
}

func (s *AWSScanner) pathPrefix() *string {
	if p := s.cfg.Filter(scan.FilterPathPrefix); p != "" {
		return aws.String(p)
	}
	return nil
}

func (s *AWSScanner) listUsers(ctx context.Context) ([]scan.Record, error) {
	out := []scan.Record{}
	p := iam.NewListUsersPaginator(s.iam, &iam.ListUsersInput{PathPrefix: s.pathPrefix()})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, s.enumerationError(scan.CategoryUsers, "iam:ListUsers", err)
		}
		for _, u := range page.Users {
			out = append(out, scan.Record{
				"user_name":   aws.ToString(u.UserName),
				"user_id":     aws.ToString(u.UserId),
				"arn":         aws.ToString(u.Arn),
				"path":        aws.ToString(u.Path),
				"create_date": formatTime(u.CreateDate),
			})
		}
	}
	return out, nil
}

func (s *AWSScanner) enrichUser(ctx context.Context, r scan.Record) error {
	name := aws.String(r.String("user_name"))
	var errs []error

	if s.cfg.IncludeTags {
		if out, err := s.iam.ListUserTags(ctx, &iam.ListUserTagsInput{UserName: name}); err != nil {
			errs = append(errs, fmt.Errorf("list user tags: %w", err))
		} else {
			r.Set("tags", tagMap(out.Tags))
		}
	}

	if out, err := s.iam.ListAttachedUserPolicies(ctx, &iam.ListAttachedUserPoliciesInput{UserName: name}); err != nil {
		errs = append(errs, fmt.Errorf("list attached user policies: %w", err))
	} else {
		r.Set("attached_policies", attachedPolicies(out.AttachedPolicies))
	}

	if out, err := s.iam.ListGroupsForUser(ctx, &iam.ListGroupsForUserInput{UserName: name}); err != nil {
		errs = append(errs, fmt.Errorf("list groups for user: %w", err))
	} else {
		groups := make([]any, 0, len(out.Groups))
		for _, g := range out.Groups {
			groups = append(groups, aws.ToString(g.GroupName))
		}
		r.Set("groups", groups)
	}

	return errors.Join(errs...)
}

func (s *AWSScanner) listGroups(ctx context.Context) ([]scan.Record, error) {
	out := []scan.Record{}
	p := iam.NewListGroupsPaginator(s.iam, &iam.ListGroupsInput{PathPrefix: s.pathPrefix()})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, s.enumerationError(scan.CategoryGroups, "iam:ListGroups", err)
		}
		for _, g := range page.Groups {
			out = append(out, scan.Record{
				"group_name":  aws.ToString(g.GroupName),
				"group_id":    aws.ToString(g.GroupId),
				"arn":         aws.ToString(g.Arn),
				"path":        aws.ToString(g.Path),
				"create_date": formatTime(g.CreateDate),
			})
		}
	}
	return out, nil
}

func (s *AWSScanner) enrichGroup(ctx context.Context, r scan.Record) error {
	name := aws.String(r.String("group_name"))
	var errs []error

	members := []any{}
	p := iam.NewGetGroupPaginator(s.iam, &iam.GetGroupInput{GroupName: name})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("get group: %w", err))
			members = nil
			break
		}
		for _, u := range page.Users {
			members = append(members, aws.ToString(u.UserName))
		}
	}
	if members != nil {
		r.Set("members", members)
	}

	if out, err := s.iam.ListAttachedGroupPolicies(ctx, &iam.ListAttachedGroupPoliciesInput{GroupName: name}); err != nil {
		errs = append(errs, fmt.Errorf("list attached group policies: %w", err))
	} else {
		r.Set("attached_policies", attachedPolicies(out.AttachedPolicies))
	}

	return errors.Join(errs...)
}

func (s *AWSScanner) listRoles(ctx context.Context) ([]scan.Record, error) {
	out := []scan.Record{}
	p := iam.NewListRolesPaginator(s.iam, &iam.ListRolesInput{PathPrefix: s.pathPrefix()})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, s.enumerationError(scan.CategoryRoles, "iam:ListRoles", err)
		}
		for _, role := range page.Roles {
			rec := scan.Record{
				"role_name":                   aws.ToString(role.RoleName),
				"role_id":                     aws.ToString(role.RoleId),
				"arn":                         aws.ToString(role.Arn),
				"path":                        aws.ToString(role.Path),
				"description":                 aws.ToString(role.Description),
				"assume_role_policy_document": decodeDocument(aws.ToString(role.AssumeRolePolicyDocument)),
				"create_date":                 formatTime(role.CreateDate),
			}
			if role.MaxSessionDuration != nil {
				rec.Set("max_session_duration", int(*role.MaxSessionDuration))
			}
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *AWSScanner) enrichRole(ctx context.Context, r scan.Record) error {
	name := aws.String(r.String("role_name"))
	var errs []error

	if s.cfg.IncludeTags {
		if out, err := s.iam.ListRoleTags(ctx, &iam.ListRoleTagsInput{RoleName: name}); err != nil {
			errs = append(errs, fmt.Errorf("list role tags: %w", err))
		} else {
			r.Set("tags", tagMap(out.Tags))
		}
	}

	if out, err := s.iam.ListAttachedRolePolicies(ctx, &iam.ListAttachedRolePoliciesInput{RoleName: name}); err != nil {
		errs = append(errs, fmt.Errorf("list attached role policies: %w", err))
	} else {
		r.Set("attached_policies", attachedPolicies(out.AttachedPolicies))
	}

	return errors.Join(errs...)
}

func (s *AWSScanner) listPolicies(ctx context.Context) ([]scan.Record, error) {
	out := []scan.Record{}
	p := iam.NewListPoliciesPaginator(s.iam, &iam.ListPoliciesInput{
		Scope:      iamtypes.PolicyScopeTypeLocal,
		PathPrefix: s.pathPrefix(),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, s.enumerationError(scan.CategoryPolicies, "iam:ListPolicies", err)
		}
		for _, pol := range page.Policies {
			rec := scan.Record{
				"policy_name":        aws.ToString(pol.PolicyName),
				"policy_id":          aws.ToString(pol.PolicyId),
				"arn":                aws.ToString(pol.Arn),
				"path":               aws.ToString(pol.Path),
				"description":        aws.ToString(pol.Description),
				"default_version_id": aws.ToString(pol.DefaultVersionId),
				"is_attachable":      pol.IsAttachable,
				"create_date":        formatTime(pol.CreateDate),
			}
			if pol.AttachmentCount != nil {
				rec.Set("attachment_count", int(*pol.AttachmentCount))
			}
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *AWSScanner) enrichPolicy(ctx context.Context, r scan.Record) error {
	arn := aws.String(r.String("arn"))
	var errs []error

	if s.cfg.IncludeTags {
		if out, err := s.iam.ListPolicyTags(ctx, &iam.ListPolicyTagsInput{PolicyArn: arn}); err != nil {
			errs = append(errs, fmt.Errorf("list policy tags: %w", err))
		} else {
			r.Set("tags", tagMap(out.Tags))
		}
	}

	if version := r.String("default_version_id"); version != "" {
		out, err := s.iam.GetPolicyVersion(ctx, &iam.GetPolicyVersionInput{PolicyArn: arn, VersionId: aws.String(version)})
		switch {
		case err != nil:
			errs = append(errs, fmt.Errorf("get policy version: %w", err))
		case out.PolicyVersion != nil:
			r.Set("policy_document", decodeDocument(aws.ToString(out.PolicyVersion.Document)))
		}
	}

	return errors.Join(errs...)
}

// listPolicyAttachments derives one record per entity->policy link from every attached policy,
// AWS-managed ones included.
func (s *AWSScanner) listPolicyAttachments(ctx context.Context) ([]scan.Record, error) {
	out := []scan.Record{}
	policies := iam.NewListPoliciesPaginator(s.iam, &iam.ListPoliciesInput{
		Scope:        iamtypes.PolicyScopeTypeAll,
		OnlyAttached: true,
	})
	for policies.HasMorePages() {
		page, err := policies.NextPage(ctx)
		if err != nil {
			return nil, s.enumerationError(scan.CategoryPolicyAttachments, "iam:ListPolicies", err)
		}
		for _, pol := range page.Policies {
			records, err := s.policyEntities(ctx, aws.ToString(pol.Arn), aws.ToString(pol.PolicyName))
			if err != nil {
				return nil, err
			}
			out = append(out, records...)
		}
	}
	return out, nil
}

func (s *AWSScanner) policyEntities(ctx context.Context, policyARN, policyName string) ([]scan.Record, error) {
	var out []scan.Record
	p := iam.NewListEntitiesForPolicyPaginator(s.iam, &iam.ListEntitiesForPolicyInput{PolicyArn: aws.String(policyARN)})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, s.enumerationError(scan.CategoryPolicyAttachments, "iam:ListEntitiesForPolicy", err)
		}
		for _, u := range page.PolicyUsers {
			out = append(out, attachmentRecord("user", aws.ToString(u.UserName), policyARN, policyName))
		}
		for _, g := range page.PolicyGroups {
			out = append(out, attachmentRecord("group", aws.ToString(g.GroupName), policyARN, policyName))
		}
		for _, r := range page.PolicyRoles {
			out = append(out, attachmentRecord("role", aws.ToString(r.RoleName), policyARN, policyName))
		}
	}
	return out, nil
}

func attachmentRecord(entityType, entityName, policyARN, policyName string) scan.Record {
	return scan.Record{
		"attachment_id": entityType + "/" + entityName + "/" + policyARN,
		"entity_type":   entityType,
		"entity_name":   entityName,
		"policy_arn":    policyARN,
		"policy_name":   policyName,
	}
}

func (s *AWSScanner) enumerationError(category, action string, err error) error {
	return apperrors.CategoryEnumerationError(category, s.cfg.AuthContext(),
		fmt.Sprintf("grant %s to the scanning identity", action), err)
}

func tagMap(tags []iamtypes.Tag) map[string]any {
	out := make(map[string]any, len(tags))
	for _, t := range tags {
		out[aws.ToString(t.Key)] = aws.ToString(t.Value)
	}
	return out
}

func attachedPolicies(policies []iamtypes.AttachedPolicy) []any {
	out := make([]any, 0, len(policies))
	for _, p := range policies {
		out = append(out, map[string]any{
			"policy_arn":  aws.ToString(p.PolicyArn),
			"policy_name": aws.ToString(p.PolicyName),
		})
	}
	return out
}

// IAM returns policy documents URL-encoded
func decodeDocument(doc string) string {
	if doc == "" {
		return ""
	}
	decoded, err := url.QueryUnescape(doc)
	if err != nil {
		return doc
	}
	return decoded
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func nonEmpty(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
