package terraform

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pratik-mahalle/iamgen/internal/domain/scan"
	apperrors "github.com/pratik-mahalle/iamgen/internal/pkg/errors"
)

func TestDefaultTier_BundlesEveryMappedTemplate(t *testing.T) {
	store := NewTemplateStore("")

	for _, provider := range []scan.Provider{scan.ProviderAWS, scan.ProviderAzure} {
		for _, m := range Mappings(provider) {
			tmpl, err := store.Load(m.Template)
			require.NoError(t, err, m.Template)
			assert.Contains(t, tmpl.Body, m.ResourceType)
			assert.Equal(t, "embedded:templates/"+m.Template+TemplateExt, tmpl.Location)
		}
	}
}

func TestLayeredStore_OverrideWins(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "aws"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "aws", "iam_user.tf.tmpl"), []byte("# custom\n"), 0o644))

	store := NewTemplateStore(dir)

	tmpl, err := store.Load("aws/iam_user")
	require.NoError(t, err)
	assert.Equal(t, "# custom\n", tmpl.Body)
	assert.Equal(t, filepath.Join(dir, "aws", "iam_user.tf.tmpl"), tmpl.Location)

	// templates absent from the override tier still come from the defaults
	tmpl, err = store.Load("aws/iam_group")
	require.NoError(t, err)
	assert.Contains(t, tmpl.Body, "aws_iam_group")
}

func TestLayeredStore_MissingTemplateListsSearchedLocations(t *testing.T) {
	store := NewLayeredStore(
		FSTier{FS: fstest.MapFS{}, Root: "custom", Label: "override"},
		DefaultTier(),
	)

	_, err := store.Load("aws/iam_missing")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeTemplate))
	assert.Contains(t, err.Error(), "override:custom/aws/iam_missing.tf.tmpl")
	assert.Contains(t, err.Error(), "embedded:templates/aws/iam_missing.tf.tmpl")

	appErr, ok := err.(*apperrors.AppError)
	require.True(t, ok)
	assert.Len(t, appErr.Details, 2)
}
