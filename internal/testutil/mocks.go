package testutil

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/pratik-mahalle/iamgen/internal/domain/scan"
)

// MockIAM is an in-memory implementation of the IAM calls the AWS scanner makes.
// List calls are paged with PageSize entries per page.
type MockIAM struct {
	Users            []iamtypes.User
	Groups           []iamtypes.Group
	Roles            []iamtypes.Role
	Policies         []iamtypes.Policy
	AttachedPolicies []iamtypes.Policy
	GroupMembers     map[string][]string
	UserGroups       map[string][]string
	Attached         map[string][]iamtypes.AttachedPolicy
	Entities         map[string]*iam.ListEntitiesForPolicyOutput
	Tags             map[string]map[string]string
	Documents        map[string]string

	// Errors maps an operation name such as "ListUsers" to the error it returns
	Errors   map[string]error
	PageSize int

	mu    sync.Mutex
	calls map[string]int
}

func NewMockIAM() *MockIAM {
	return &MockIAM{
		GroupMembers: make(map[string][]string),
		UserGroups:   make(map[string][]string),
		Attached:     make(map[string][]iamtypes.AttachedPolicy),
		Entities:     make(map[string]*iam.ListEntitiesForPolicyOutput),
		Tags:         make(map[string]map[string]string),
		Documents:    make(map[string]string),
		Errors:       make(map[string]error),
		PageSize:     2,
		calls:        make(map[string]int),
	}
}

// Calls returns how often op was invoked
func (m *MockIAM) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

func (m *MockIAM) record(op string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[op]++
	return m.Errors[op]
}

// page returns the [start, end) window for marker and the next marker, if any
func (m *MockIAM) page(marker *string, n int) (int, int, *string) {
	start := 0
	if marker != nil {
		start, _ = strconv.Atoi(*marker)
	}
	size := m.PageSize
	if size < 1 {
		size = n
	}
	end := start + size
	if end >= n {
		return start, n, nil
	}
	return start, end, aws.String(strconv.Itoa(end))
}

func (m *MockIAM) ListUsers(ctx context.Context, params *iam.ListUsersInput, optFns ...func(*iam.Options)) (*iam.ListUsersOutput, error) {
	if err := m.record("ListUsers"); err != nil {
		return nil, err
	}
	start, end, next := m.page(params.Marker, len(m.Users))
	return &iam.ListUsersOutput{Users: m.Users[start:end], Marker: next, IsTruncated: next != nil}, nil
}

func (m *MockIAM) ListGroups(ctx context.Context, params *iam.ListGroupsInput, optFns ...func(*iam.Options)) (*iam.ListGroupsOutput, error) {
	if err := m.record("ListGroups"); err != nil {
		return nil, err
	}
	start, end, next := m.page(params.Marker, len(m.Groups))
	return &iam.ListGroupsOutput{Groups: m.Groups[start:end], Marker: next, IsTruncated: next != nil}, nil
}

func (m *MockIAM) ListRoles(ctx context.Context, params *iam.ListRolesInput, optFns ...func(*iam.Options)) (*iam.ListRolesOutput, error) {
	if err := m.record("ListRoles"); err != nil {
		return nil, err
	}
	start, end, next := m.page(params.Marker, len(m.Roles))
	return &iam.ListRolesOutput{Roles: m.Roles[start:end], Marker: next, IsTruncated: next != nil}, nil
}

func (m *MockIAM) ListPolicies(ctx context.Context, params *iam.ListPoliciesInput, optFns ...func(*iam.Options)) (*iam.ListPoliciesOutput, error) {
	if err := m.record("ListPolicies"); err != nil {
		return nil, err
	}
	source := m.Policies
	if params.OnlyAttached {
		source = m.AttachedPolicies
	}
	start, end, next := m.page(params.Marker, len(source))
	return &iam.ListPoliciesOutput{Policies: source[start:end], Marker: next, IsTruncated: next != nil}, nil
}

func (m *MockIAM) ListEntitiesForPolicy(ctx context.Context, params *iam.ListEntitiesForPolicyInput, optFns ...func(*iam.Options)) (*iam.ListEntitiesForPolicyOutput, error) {
	if err := m.record("ListEntitiesForPolicy"); err != nil {
		return nil, err
	}
	if out, ok := m.Entities[aws.ToString(params.PolicyArn)]; ok {
		return out, nil
	}
	return &iam.ListEntitiesForPolicyOutput{}, nil
}

func (m *MockIAM) GetGroup(ctx context.Context, params *iam.GetGroupInput, optFns ...func(*iam.Options)) (*iam.GetGroupOutput, error) {
	if err := m.record("GetGroup"); err != nil {
		return nil, err
	}
	name := aws.ToString(params.GroupName)
	out := &iam.GetGroupOutput{Group: &iamtypes.Group{GroupName: params.GroupName}}
	for _, member := range m.GroupMembers[name] {
		out.Users = append(out.Users, iamtypes.User{UserName: aws.String(member)})
	}
	return out, nil
}

func (m *MockIAM) GetPolicyVersion(ctx context.Context, params *iam.GetPolicyVersionInput, optFns ...func(*iam.Options)) (*iam.GetPolicyVersionOutput, error) {
	if err := m.record("GetPolicyVersion"); err != nil {
		return nil, err
	}
	doc, ok := m.Documents[aws.ToString(params.PolicyArn)]
	if !ok {
		return nil, fmt.Errorf("no such policy version")
	}
	return &iam.GetPolicyVersionOutput{PolicyVersion: &iamtypes.PolicyVersion{
		Document:         aws.String(doc),
		VersionId:        params.VersionId,
		IsDefaultVersion: true,
	}}, nil
}

func (m *MockIAM) tags(key string) []iamtypes.Tag {
	var out []iamtypes.Tag
	for k, v := range m.Tags[key] {
		out = append(out, iamtypes.Tag{Key: aws.String(k), Value: aws.String(v)})
	}
	return out
}

func (m *MockIAM) ListUserTags(ctx context.Context, params *iam.ListUserTagsInput, optFns ...func(*iam.Options)) (*iam.ListUserTagsOutput, error) {
	if err := m.record("ListUserTags"); err != nil {
		return nil, err
	}
	return &iam.ListUserTagsOutput{Tags: m.tags("user/" + aws.ToString(params.UserName))}, nil
}

func (m *MockIAM) ListRoleTags(ctx context.Context, params *iam.ListRoleTagsInput, optFns ...func(*iam.Options)) (*iam.ListRoleTagsOutput, error) {
	if err := m.record("ListRoleTags"); err != nil {
		return nil, err
	}
	return &iam.ListRoleTagsOutput{Tags: m.tags("role/" + aws.ToString(params.RoleName))}, nil
}

func (m *MockIAM) ListPolicyTags(ctx context.Context, params *iam.ListPolicyTagsInput, optFns ...func(*iam.Options)) (*iam.ListPolicyTagsOutput, error) {
	if err := m.record("ListPolicyTags"); err != nil {
		return nil, err
	}
	return &iam.ListPolicyTagsOutput{Tags: m.tags("policy/" + aws.ToString(params.PolicyArn))}, nil
}

func (m *MockIAM) ListGroupsForUser(ctx context.Context, params *iam.ListGroupsForUserInput, optFns ...func(*iam.Options)) (*iam.ListGroupsForUserOutput, error) {
	if err := m.record("ListGroupsForUser"); err != nil {
		return nil, err
	}
	out := &iam.ListGroupsForUserOutput{}
	for _, g := range m.UserGroups[aws.ToString(params.UserName)] {
		out.Groups = append(out.Groups, iamtypes.Group{GroupName: aws.String(g)})
	}
	return out, nil
}

func (m *MockIAM) ListAttachedUserPolicies(ctx context.Context, params *iam.ListAttachedUserPoliciesInput, optFns ...func(*iam.Options)) (*iam.ListAttachedUserPoliciesOutput, error) {
	if err := m.record("ListAttachedUserPolicies"); err != nil {
		return nil, err
	}
	return &iam.ListAttachedUserPoliciesOutput{AttachedPolicies: m.Attached["user/"+aws.ToString(params.UserName)]}, nil
}

func (m *MockIAM) ListAttachedGroupPolicies(ctx context.Context, params *iam.ListAttachedGroupPoliciesInput, optFns ...func(*iam.Options)) (*iam.ListAttachedGroupPoliciesOutput, error) {
	if err := m.record("ListAttachedGroupPolicies"); err != nil {
		return nil, err
	}
	return &iam.ListAttachedGroupPoliciesOutput{AttachedPolicies: m.Attached["group/"+aws.ToString(params.GroupName)]}, nil
}

func (m *MockIAM) ListAttachedRolePolicies(ctx context.Context, params *iam.ListAttachedRolePoliciesInput, optFns ...func(*iam.Options)) (*iam.ListAttachedRolePoliciesOutput, error) {
	if err := m.record("ListAttachedRolePolicies"); err != nil {
		return nil, err
	}
	return &iam.ListAttachedRolePoliciesOutput{AttachedPolicies: m.Attached["role/"+aws.ToString(params.RoleName)]}, nil
}

// MockSTS returns a fixed caller identity or Err
type MockSTS struct {
	Account string
	Err     error
}

func (m *MockSTS) GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return &sts.GetCallerIdentityOutput{Account: aws.String(m.Account)}, nil
}

// MockAzureRBAC serves fixed role definitions and assignments
type MockAzureRBAC struct {
	Definitions    []scan.Record
	Assignments    []scan.Record
	DefinitionsErr error
	AssignmentsErr error

	LastScope      string
	LastCustomOnly bool
}

func (m *MockAzureRBAC) ListRoleDefinitions(ctx context.Context, scope string, customOnly bool) ([]scan.Record, error) {
	m.LastScope = scope
	m.LastCustomOnly = customOnly
	if m.DefinitionsErr != nil {
		return nil, m.DefinitionsErr
	}
	return cloneRecords(m.Definitions), nil
}

func (m *MockAzureRBAC) ListRoleAssignments(ctx context.Context) ([]scan.Record, error) {
	if m.AssignmentsErr != nil {
		return nil, m.AssignmentsErr
	}
	return cloneRecords(m.Assignments), nil
}

// MockDirectory resolves principal ids from a fixed map
type MockDirectory struct {
	Names map[string]string
	Err   error
}

func (m *MockDirectory) DisplayName(ctx context.Context, principalID string) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	return m.Names[principalID], nil
}

func cloneRecords(in []scan.Record) []scan.Record {
	out := make([]scan.Record, len(in))
	for i, r := range in {
		out[i] = r.Clone()
	}
	return out
}
