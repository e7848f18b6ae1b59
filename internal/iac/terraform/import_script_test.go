package terraform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pratik-mahalle/iamgen/internal/domain/scan"
)

func TestImportCommands(t *testing.T) {
	sets := []ResourceSet{
		{
			Mapping: mustMapping(scan.ProviderAWS, scan.CategoryUsers),
			Records: []scan.Record{
				{"user_name": "App-User", "arn": "arn:aws:iam::1:user/App-User"},
				{"user_name": "no-arn"},
			},
		},
		{
			Mapping: mustMapping(scan.ProviderAWS, scan.CategoryPolicies),
			Records: []scan.Record{
				{"policy_name": "deploy", "arn": "arn:aws:iam::1:policy/deploy"},
			},
		},
	}

	cmds := ImportCommands(sets, "snake_case")

	assert.Equal(t, []ImportCommand{
		{Address: "aws_iam_user.app_user", ID: "App-User"},
		{Address: "aws_iam_policy.deploy", ID: "arn:aws:iam::1:policy/deploy"},
	}, cmds)
}

func TestImportCommands_AzureRoleDefinitionScope(t *testing.T) {
	sets := []ResourceSet{{
		Mapping: mustMapping(scan.ProviderAzure, scan.CategoryRoleDefinitions),
		Records: []scan.Record{{
			"id":                "/subscriptions/s/providers/Microsoft.Authorization/roleDefinitions/abc",
			"role_name":         "Reader Plus",
			"assignable_scopes": []any{"/subscriptions/s"},
		}},
	}}

	cmds := ImportCommands(sets, "kebab-case")

	require.Len(t, cmds, 1)
	assert.Equal(t, "azurerm_role_definition.reader_plus", cmds[0].Address)
	assert.Equal(t, "/subscriptions/s/providers/Microsoft.Authorization/roleDefinitions/abc|/subscriptions/s", cmds[0].ID)
}

func TestBuildImportScript(t *testing.T) {
	cmds := []ImportCommand{
		{Address: "aws_iam_user.o_brien", ID: "o'brien"},
		{Address: "aws_iam_policy.cost", ID: "arn:aws:iam::1:policy/$cost"},
	}

	t.Run("bash", func(t *testing.T) {
		script := BuildImportScript("bash", cmds)
		require.NotNil(t, script)
		assert.Equal(t, "import.sh", script.Filename)
		assert.Equal(t, 2, script.Commands)
		assert.Equal(t, "#!/bin/bash\nset -e\n\n"+
			"terraform import 'aws_iam_user.o_brien' 'o'\\''brien'\n"+
			"terraform import 'aws_iam_policy.cost' 'arn:aws:iam::1:policy/$cost'\n", script.Body)
	})

	t.Run("powershell", func(t *testing.T) {
		script := BuildImportScript("powershell", cmds)
		require.NotNil(t, script)
		assert.Equal(t, "import.ps1", script.Filename)
		assert.Equal(t, "$ErrorActionPreference=\"Stop\"\n\n"+
			"terraform import \"aws_iam_user.o_brien\" \"o'brien\"\n"+
			"terraform import \"aws_iam_policy.cost\" \"arn:aws:iam::1:policy/`$cost\"\n", script.Body)
	})

	t.Run("unknown format falls back to bash", func(t *testing.T) {
		script := BuildImportScript("zsh", cmds)
		require.NotNil(t, script)
		assert.Equal(t, "import.sh", script.Filename)
	})

	t.Run("none", func(t *testing.T) {
		assert.Nil(t, BuildImportScript("none", cmds))
	})

	t.Run("no commands", func(t *testing.T) {
		assert.Nil(t, BuildImportScript("bash", nil))
	})
}
