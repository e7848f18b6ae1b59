package providers_test

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pratik-mahalle/iamgen/internal/domain/scan"
	apperrors "github.com/pratik-mahalle/iamgen/internal/pkg/errors"
	"github.com/pratik-mahalle/iamgen/internal/providers"
	"github.com/pratik-mahalle/iamgen/internal/testutil"
)

func category(t *testing.T, s providers.Scanner, name string) providers.Category {
	t.Helper()
	for _, c := range s.Categories() {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("category %s not found", name)
	return providers.Category{}
}

func newAWSFixture() *testutil.MockIAM {
	m := testutil.NewMockIAM()
	m.Users = []iamtypes.User{
		{UserName: aws.String("alice"), UserId: aws.String("AID1"), Arn: aws.String("arn:aws:iam::111:user/alice"), Path: aws.String("/")},
		{UserName: aws.String("bob"), UserId: aws.String("AID2"), Arn: aws.String("arn:aws:iam::111:user/bob"), Path: aws.String("/")},
		{UserName: aws.String("carol"), UserId: aws.String("AID3"), Arn: aws.String("arn:aws:iam::111:user/carol"), Path: aws.String("/ops/")},
	}
	m.Groups = []iamtypes.Group{
		{GroupName: aws.String("admins"), Arn: aws.String("arn:aws:iam::111:group/admins")},
	}
	m.Roles = []iamtypes.Role{
		{
			RoleName:                 aws.String("deployer"),
			Arn:                      aws.String("arn:aws:iam::111:role/deployer"),
			AssumeRolePolicyDocument: aws.String(url.QueryEscape(`{"Version":"2012-10-17"}`)),
			MaxSessionDuration:       aws.Int32(3600),
		},
	}
	m.Policies = []iamtypes.Policy{
		{PolicyName: aws.String("readonly"), Arn: aws.String("arn:aws:iam::111:policy/readonly"), DefaultVersionId: aws.String("v2"), AttachmentCount: aws.Int32(1)},
	}
	m.AttachedPolicies = []iamtypes.Policy{
		{PolicyName: aws.String("readonly"), Arn: aws.String("arn:aws:iam::111:policy/readonly")},
		{PolicyName: aws.String("AdministratorAccess"), Arn: aws.String("arn:aws:iam::aws:policy/AdministratorAccess")},
	}
	m.Entities["arn:aws:iam::111:policy/readonly"] = &iam.ListEntitiesForPolicyOutput{
		PolicyUsers: []iamtypes.PolicyUser{{UserName: aws.String("alice")}},
	}
	m.Entities["arn:aws:iam::aws:policy/AdministratorAccess"] = &iam.ListEntitiesForPolicyOutput{
		PolicyGroups: []iamtypes.PolicyGroup{{GroupName: aws.String("admins")}},
		PolicyRoles:  []iamtypes.PolicyRole{{RoleName: aws.String("deployer")}},
	}
	m.GroupMembers["admins"] = []string{"alice", "bob"}
	m.UserGroups["alice"] = []string{"admins"}
	m.Attached["user/alice"] = []iamtypes.AttachedPolicy{{PolicyArn: aws.String("arn:aws:iam::111:policy/readonly"), PolicyName: aws.String("readonly")}}
	m.Tags["user/alice"] = map[string]string{"env": "production"}
	m.Documents["arn:aws:iam::111:policy/readonly"] = url.QueryEscape(`{"Statement":[]}`)
	return m
}

func TestAWSScanner_ListUsersPaginates(t *testing.T) {
	m := newAWSFixture()
	s := providers.NewAWSScannerWithClients(m, &testutil.MockSTS{Account: "111"}, scan.ScanConfig{Provider: scan.ProviderAWS})

	records, err := category(t, s, scan.CategoryUsers).List(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "alice", records[0].String("user_name"))
	assert.Equal(t, "carol", records[2].String("user_name"))
	assert.Equal(t, 2, m.Calls("ListUsers"))
}

func TestAWSScanner_CategoryOrder(t *testing.T) {
	s := providers.NewAWSScannerWithClients(testutil.NewMockIAM(), nil, scan.ScanConfig{Provider: scan.ProviderAWS})

	var names []string
	for _, c := range s.Categories() {
		names = append(names, c.Name)
	}
	assert.Equal(t, providers.CategoryNames(scan.ProviderAWS), names)
}

func TestAWSScanner_EnrichUser(t *testing.T) {
	m := newAWSFixture()
	cfg := scan.ScanConfig{Provider: scan.ProviderAWS, IncludeTags: true}
	s := providers.NewAWSScannerWithClients(m, nil, cfg)

	rec := scan.Record{"user_name": "alice"}
	require.NoError(t, category(t, s, scan.CategoryUsers).Enrich(context.Background(), rec))

	assert.Equal(t, map[string]any{"env": "production"}, rec["tags"])
	assert.Equal(t, []any{"admins"}, rec["groups"])
	assert.Len(t, rec["attached_policies"], 1)
}

func TestAWSScanner_EnrichSkipsTagsWhenDisabled(t *testing.T) {
	m := newAWSFixture()
	s := providers.NewAWSScannerWithClients(m, nil, scan.ScanConfig{Provider: scan.ProviderAWS})

	rec := scan.Record{"user_name": "alice"}
	require.NoError(t, category(t, s, scan.CategoryUsers).Enrich(context.Background(), rec))

	assert.NotContains(t, rec, "tags")
	assert.Equal(t, 0, m.Calls("ListUserTags"))
}

func TestAWSScanner_EnrichDegradesPerField(t *testing.T) {
	m := newAWSFixture()
	m.Errors["ListGroupsForUser"] = errors.New("AccessDenied")
	s := providers.NewAWSScannerWithClients(m, nil, scan.ScanConfig{Provider: scan.ProviderAWS})

	rec := scan.Record{"user_name": "alice"}
	err := category(t, s, scan.CategoryUsers).Enrich(context.Background(), rec)

	require.Error(t, err)
	assert.NotContains(t, rec, "groups")
	assert.Contains(t, rec, "attached_policies")
}

func TestAWSScanner_EnrichGroupAndPolicy(t *testing.T) {
	m := newAWSFixture()
	s := providers.NewAWSScannerWithClients(m, nil, scan.ScanConfig{Provider: scan.ProviderAWS})
	ctx := context.Background()

	group := scan.Record{"group_name": "admins"}
	require.NoError(t, category(t, s, scan.CategoryGroups).Enrich(ctx, group))
	assert.Equal(t, []string{"alice", "bob"}, group.Strings("members"))

	policies, err := category(t, s, scan.CategoryPolicies).List(ctx)
	require.NoError(t, err)
	require.Len(t, policies, 1)
	assert.Equal(t, 1, policies[0]["attachment_count"])

	require.NoError(t, category(t, s, scan.CategoryPolicies).Enrich(ctx, policies[0]))
	assert.Equal(t, `{"Statement":[]}`, policies[0].String("policy_document"))
}

func TestAWSScanner_ListRolesDecodesTrustPolicy(t *testing.T) {
	s := providers.NewAWSScannerWithClients(newAWSFixture(), nil, scan.ScanConfig{Provider: scan.ProviderAWS})

	roles, err := category(t, s, scan.CategoryRoles).List(context.Background())
	require.NoError(t, err)
	require.Len(t, roles, 1)
	assert.Equal(t, `{"Version":"2012-10-17"}`, roles[0].String("assume_role_policy_document"))
	assert.Equal(t, 3600, roles[0]["max_session_duration"])
}

func TestAWSScanner_PolicyAttachments(t *testing.T) {
	s := providers.NewAWSScannerWithClients(newAWSFixture(), nil, scan.ScanConfig{Provider: scan.ProviderAWS})

	records, err := category(t, s, scan.CategoryPolicyAttachments).List(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 3)

	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.String("attachment_id"))
	}
	assert.ElementsMatch(t, []string{
		"user/alice/arn:aws:iam::111:policy/readonly",
		"group/admins/arn:aws:iam::aws:policy/AdministratorAccess",
		"role/deployer/arn:aws:iam::aws:policy/AdministratorAccess",
	}, ids)
}

func TestAWSScanner_ListFailureIsEnumerationError(t *testing.T) {
	m := newAWSFixture()
	m.Errors["ListRoles"] = errors.New("AccessDenied")
	cfg := scan.ScanConfig{Provider: scan.ProviderAWS, Auth: scan.AuthParams{Profile: "audit"}}
	s := providers.NewAWSScannerWithClients(m, nil, cfg)

	_, err := category(t, s, scan.CategoryRoles).List(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeCategoryEnumeration))
	assert.Contains(t, err.Error(), `profile "audit"`)
	assert.Contains(t, err.Error(), "iam:ListRoles")
}

func TestAWSScanner_Prepare(t *testing.T) {
	ok := providers.NewAWSScannerWithClients(testutil.NewMockIAM(), &testutil.MockSTS{Account: "111"}, scan.ScanConfig{Provider: scan.ProviderAWS})
	require.NoError(t, ok.Prepare(context.Background()))
	assert.Equal(t, "111", ok.AccountID())

	bad := providers.NewAWSScannerWithClients(testutil.NewMockIAM(), &testutil.MockSTS{Err: errors.New("expired")}, scan.ScanConfig{Provider: scan.ProviderAWS})
	err := bad.Prepare(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeAuthentication))
}
