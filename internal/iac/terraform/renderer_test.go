package terraform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pratik-mahalle/iamgen/internal/domain/scan"
	apperrors "github.com/pratik-mahalle/iamgen/internal/pkg/errors"
)

func TestRenderer_AWSUser(t *testing.T) {
	r := NewRenderer(NewTemplateStore(""))
	user := scan.Record{
		"user_name": "alice",
		"arn":       "arn:aws:iam::123456789012:user/alice",
		"tags":      map[string]any{"team": "platform"},
		"groups":    []any{"admins"},
		"attached_policies": []any{
			map[string]any{"policy_arn": "arn:aws:iam::aws:policy/ReadOnlyAccess", "policy_name": "ReadOnlyAccess"},
		},
	}

	out, err := r.Render(mustMapping(scan.ProviderAWS, scan.CategoryUsers), Instance{
		Category: scan.CategoryUsers,
		Label:    "alice",
		Record:   user,
	})
	require.NoError(t, err)

	body := string(out)
	assert.Contains(t, body, `name = "alice"`)
	assert.Contains(t, body, `path = "/"`)
	assert.Contains(t, body, `team = "platform"`)
	assert.Contains(t, body, `groups = ["admins"]`)
	assert.Contains(t, body, `policy_arn = "arn:aws:iam::aws:policy/ReadOnlyAccess"`)

	parsed, err := NewParser().Parse(out, "users.tf")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"aws_iam_user.alice",
		"aws_iam_user_group_membership.alice",
		"aws_iam_user_policy_attachment.alice_0",
	}, parsed.Addresses())
}

func TestRenderer_OmitsUnenrichedFields(t *testing.T) {
	r := NewRenderer(NewTemplateStore(""))

	out, err := r.Render(mustMapping(scan.ProviderAWS, scan.CategoryUsers), Instance{
		Label:  "bob",
		Record: scan.Record{"user_name": "bob", "path": "/ops/"},
	})
	require.NoError(t, err)

	body := string(out)
	assert.Contains(t, body, `path = "/ops/"`)
	assert.NotContains(t, body, "tags")
	assert.NotContains(t, body, "aws_iam_user_policy_attachment")
}

func TestRenderer_PolicyDocumentEscapesInterpolation(t *testing.T) {
	r := NewRenderer(NewTemplateStore(""))
	policy := scan.Record{
		"policy_name":     "self-manage",
		"arn":             "arn:aws:iam::123456789012:policy/self-manage",
		"policy_document": `{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Action":"iam:*","Resource":"arn:aws:iam::*:user/${aws:username}"}]}`,
	}

	out, err := r.Render(mustMapping(scan.ProviderAWS, scan.CategoryPolicies), Instance{
		Label:  "self_manage",
		Record: policy,
	})
	require.NoError(t, err)

	body := string(out)
	assert.Contains(t, body, "<<EOT")
	assert.Contains(t, body, "$${aws:username}")
	assert.Contains(t, body, `"Version": "2012-10-17"`)
}

func TestRenderer_RoleUsesLiteralDataValues(t *testing.T) {
	r := NewRenderer(NewTemplateStore(""))
	role := scan.Record{
		"role_name":                   "App-Deployer",
		"max_session_duration":        float64(3600),
		"assume_role_policy_document": `{"Version":"2012-10-17","Statement":[]}`,
	}

	out, err := r.Render(mustMapping(scan.ProviderAWS, scan.CategoryRoles), Instance{
		Label:  ResourceLabel("App-Deployer", "snake_case"),
		Record: role,
	})
	require.NoError(t, err)

	body := string(out)
	assert.Contains(t, body, `resource "aws_iam_role" "app_deployer"`)
	assert.Contains(t, body, `"App-Deployer"`)
	assert.Contains(t, body, "3600")
}

func TestRenderer_AzureRoleDefinition(t *testing.T) {
	r := NewRenderer(NewTemplateStore(""))
	def := scan.Record{
		"id":                "/subscriptions/sub-1/providers/Microsoft.Authorization/roleDefinitions/abc",
		"name":              "abc",
		"role_name":         "Storage Reader",
		"assignable_scopes": []any{"/subscriptions/sub-1"},
		"permissions": []any{
			map[string]any{
				"actions":          []any{"Microsoft.Storage/*/read"},
				"not_actions":      []any{},
				"data_actions":     []any{},
				"not_data_actions": []any{},
			},
		},
	}

	out, err := r.Render(mustMapping(scan.ProviderAzure, scan.CategoryRoleDefinitions), Instance{
		Label:  "storage_reader",
		Record: def,
	})
	require.NoError(t, err)

	body := string(out)
	assert.Contains(t, body, `"Microsoft.Storage/*/read"`)
	assert.Contains(t, body, "permissions {")
	assert.Contains(t, body, `scope              = "/subscriptions/sub-1"`)
}

func TestRenderer_RenderAllSeparatesInstances(t *testing.T) {
	r := NewRenderer(NewTemplateStore(""))
	m := mustMapping(scan.ProviderAWS, scan.CategoryGroups)

	out, err := r.RenderAll(m, []Instance{
		{Label: "admins", Record: scan.Record{"group_name": "admins"}},
		{Label: "devs", Record: scan.Record{"group_name": "devs"}},
	})
	require.NoError(t, err)

	parsed, err := NewParser().Parse(out, "groups.tf")
	require.NoError(t, err)
	assert.Equal(t, []string{"aws_iam_group.admins", "aws_iam_group.devs"}, parsed.Addresses())
}

func TestRenderer_TemplateErrors(t *testing.T) {
	tests := []struct {
		name     string
		template string
		want     string
	}{
		{
			name:     "invalid template syntax",
			template: `resource "aws_iam_user" "{{ .resource_name }" {}`,
			want:     "invalid syntax",
		},
		{
			name:     "rendered output is not HCL",
			template: "resource \"aws_iam_user\" \"{{ .resource_name }}\" {\n  name =\n}\n",
			want:     "invalid HCL",
		},
		{
			name:     "execution failure",
			template: `{{ index .user.user_name 10 }}`,
			want:     "failed to render",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRenderer(overrideStore(map[string]string{"aws/iam_user": tt.template}))

			_, err := r.Render(mustMapping(scan.ProviderAWS, scan.CategoryUsers), Instance{
				Label:  "alice",
				Record: scan.Record{"user_name": "alice"},
			})
			require.Error(t, err)
			assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeTemplate))
			assert.Contains(t, err.Error(), tt.want)
			assert.Contains(t, err.Error(), "test:tpl/aws/iam_user.tf.tmpl")
		})
	}
}

func TestHCLLiteral(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"string", "alice", `"alice"`},
		{"interpolation", "${var.x}", `"$${var.x}"`},
		{"nil", nil, "null"},
		{"bool", true, "true"},
		{"int", 42, "42"},
		{"float", float64(3600), "3600"},
		{"string slice", []string{"a", "b"}, `["a", "b"]`},
		{"empty list", []any{}, "[]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, hclLiteral(tt.value))
		})
	}
}

func TestHeredoc(t *testing.T) {
	assert.Equal(t, "null", heredoc(""))
	assert.Equal(t, "null", heredoc(nil))

	out := heredoc("EOT\nplain")
	assert.Equal(t, "<<EOT_\nEOT\nplain\nEOT_", out)
}
