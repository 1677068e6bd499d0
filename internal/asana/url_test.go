package asana

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseURLTask(t *testing.T) {
	ref, err := ParseURL("https://app.asana.com/0/123456/987654")
	require.NoError(t, err)
	assert.Equal(t, KindTask, ref.Kind)
	assert.Equal(t, "987654", ref.GID)
}

func TestParseURLProject(t *testing.T) {
	ref, err := ParseURL("https://app.asana.com/0/123456")
	require.NoError(t, err)
	assert.Equal(t, KindProject, ref.Kind)
	assert.Equal(t, "123456", ref.GID)
}

func TestParseURLPortfolio(t *testing.T) {
	ref, err := ParseURL("https://app.asana.com/0/portfolio/555")
	require.NoError(t, err)
	assert.Equal(t, KindPortfolio, ref.Kind)
	assert.Equal(t, "555", ref.GID)
}

func TestParseURLTeam(t *testing.T) {
	ref, err := ParseURL("https://app.asana.com/0/team/777")
	require.NoError(t, err)
	assert.Equal(t, KindTeam, ref.Kind)
	assert.Equal(t, "777", ref.GID)
}

func TestParseURLRejectsNonAsanaHost(t *testing.T) {
	_, err := ParseURL("https://example.com/0/123456")
	assert.Error(t, err)
}

func TestValidateCustomFieldTypeRejectsUnknown(t *testing.T) {
	err := ValidateCustomFieldType("weird_new_shape")
	assert.Error(t, err)
	assert.NoError(t, ValidateCustomFieldType(CustomFieldEnum))
}
