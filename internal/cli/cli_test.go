package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pratik-mahalle/iamgen/internal/domain/scan"
)

func scanCommand(t *testing.T, args ...string) (*cobra.Command, *scanFlags) {
	t.Helper()
	f := &scanFlags{}
	cmd := &cobra.Command{Use: "start"}
	f.register(cmd)
	require.NoError(t, cmd.ParseFlags(args))
	return cmd, f
}

func TestScanFlags_DefaultsToAllCategories(t *testing.T) {
	cmd, f := scanCommand(t, "--provider", "AWS", "--profile", "audit", "--name-prefix", "app-")

	cfg, err := f.config(cmd)
	require.NoError(t, err)

	assert.Equal(t, scan.ProviderAWS, cfg.Provider)
	assert.Equal(t, "audit", cfg.Auth.Profile)
	assert.True(t, cfg.Enabled(scan.CategoryUsers))
	assert.True(t, cfg.Enabled(scan.CategoryPolicyAttachments))
	assert.Equal(t, "app-", cfg.Filter(scan.FilterNamePrefix))
	assert.Empty(t, cfg.Filter(scan.FilterPathPrefix))
}

func TestScanFlags_ExplicitCategories(t *testing.T) {
	cmd, f := scanCommand(t, "--provider", "aws", "--categories", "users,roles")

	cfg, err := f.config(cmd)
	require.NoError(t, err)

	assert.Equal(t, map[string]bool{"users": true, "roles": true}, cfg.Categories)
}

func TestScanFlags_FlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
provider: azure
auth:
  tenant_id: tenant-1
  subscription_id: sub-1
categories:
  role_definitions: true
include_tags: false
`), 0o644))

	cmd, f := scanCommand(t, "--file", path, "--subscription-id", "sub-2", "--role-type", "CustomRole")

	cfg, err := f.config(cmd)
	require.NoError(t, err)

	assert.Equal(t, scan.ProviderAzure, cfg.Provider)
	assert.Equal(t, "tenant-1", cfg.Auth.TenantID)
	assert.Equal(t, "sub-2", cfg.Auth.SubscriptionID)
	assert.Equal(t, map[string]bool{"role_definitions": true}, cfg.Categories)
	assert.Equal(t, "CustomRole", cfg.Filter(scan.FilterRoleType))
}

func TestScanFlags_MissingFile(t *testing.T) {
	cmd, f := scanCommand(t, "--file", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := f.config(cmd)
	assert.Error(t, err)
}

func TestReadSelection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "selection.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
users: [alice, bob]
roles: []
`), 0o644))

	sel, err := readSelection(path)
	require.NoError(t, err)

	ids, restricted := sel.Identities(scan.CategoryUsers)
	assert.True(t, restricted)
	assert.Len(t, ids, 2)
	assert.Contains(t, ids, "alice")

	ids, restricted = sel.Identities(scan.CategoryRoles)
	assert.True(t, restricted)
	assert.Empty(t, ids)

	_, restricted = sel.Identities(scan.CategoryGroups)
	assert.False(t, restricted)
}

func TestReadSchedules(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schedules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
- id: nightly-aws
  spec: "0 2 * * *"
  config:
    provider: aws
    categories:
      users: true
`), 0o644))

	schedules, err := readSchedules(path)
	require.NoError(t, err)
	require.Len(t, schedules, 1)
	assert.Equal(t, "nightly-aws", schedules[0].ID)
	assert.Equal(t, scan.ProviderAWS, schedules[0].Config.Provider)
	assert.True(t, schedules[0].Config.Enabled(scan.CategoryUsers))

	empty := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("[]\n"), 0o644))
	_, err = readSchedules(empty)
	assert.Error(t, err)
}

func TestNeedsStore(t *testing.T) {
	root := &cobra.Command{Use: "iamgen"}
	config := &cobra.Command{Use: "config"}
	set := &cobra.Command{Use: "set"}
	scanCmd := &cobra.Command{Use: "scan"}
	list := &cobra.Command{Use: "list"}
	config.AddCommand(set)
	scanCmd.AddCommand(list)
	root.AddCommand(config, scanCmd)

	assert.False(t, needsStore(set))
	assert.False(t, needsStore(config))
	assert.True(t, needsStore(list))
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "alice", displayName(map[string]any{"user_name": "alice", "arn": "arn:aws:iam::1:user/alice"}))
	assert.Equal(t, "Reader", displayName(map[string]any{"role_name": "Reader", "name": "guid"}))
	assert.Equal(t, "-", displayName(map[string]any{"arn": "x"}))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd...", truncate("abcdefghij", 7))
	assert.Equal(t, "ab", truncate("abcdef", 2))
}
