package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelfUpdate_RefusesDevelopmentBuilds(t *testing.T) {
	original := rootCmd.Version
	t.Cleanup(func() { rootCmd.Version = original })

	for _, version := range []string{"", "dev"} {
		t.Run("version "+version, func(t *testing.T) {
			rootCmd.Version = version

			cmd := newSelfUpdateCmd()
			cmd.SetArgs(nil)
			err := cmd.Execute()

			require.Error(t, err)
			assert.Contains(t, err.Error(), "development version")
		})
	}
}

func TestSelfUpdateCmd(t *testing.T) {
	cmd := newSelfUpdateCmd()

	assert.Equal(t, "self-update", cmd.Use)
	assert.Contains(t, cmd.Short, "mcp-tomcat")
	assert.Contains(t, cmd.Long, "GitHub")
	assert.Equal(t, "giantswarm/mcp-tomcat", githubRepoSlug)
}
