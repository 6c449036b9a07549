package cmd

import (
	"fmt"

	"github.com/creativeprojects/go-selfupdate"
	"github.com/spf13/cobra"
)

// githubRepoSlug is the GitHub repository (owner/repo) checked for releases.
const githubRepoSlug = "giantswarm/mcp-tomcat"

// newSelfUpdateCmd creates the Cobra command that replaces the running binary
// with the latest GitHub release.
func newSelfUpdateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "self-update",
		Short: "Update mcp-tomcat to the latest version",
		Long: `Checks for the latest release of mcp-tomcat on GitHub and
updates the current binary if a newer version is found.`,
		RunE: runSelfUpdate,
	}
}

func runSelfUpdate(cmd *cobra.Command, _ []string) error {
	currentVersion := rootCmd.Version
	// Development builds don't follow semantic versioning.
	if currentVersion == "" || currentVersion == "dev" {
		return fmt.Errorf("cannot self-update a development version")
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Current version: %s\n", currentVersion)
	_, _ = fmt.Fprintln(out, "Checking for updates...")

	updater, err := selfupdate.NewUpdater(selfupdate.Config{})
	if err != nil {
		return fmt.Errorf("failed to create updater: %w", err)
	}

	ctx := cmd.Context()
	latest, found, err := updater.DetectLatest(ctx, selfupdate.ParseSlug(githubRepoSlug))
	if err != nil {
		return fmt.Errorf("error detecting latest version: %w", err)
	}
	if !found {
		return fmt.Errorf("latest release for %s could not be found", githubRepoSlug)
	}

	if !latest.GreaterThan(currentVersion) {
		_, _ = fmt.Fprintln(out, "Current version is the latest.")
		return nil
	}

	_, _ = fmt.Fprintf(out, "Found newer version: %s (published at %s)\n", latest.Version(), latest.PublishedAt)
	_, _ = fmt.Fprintf(out, "Release notes:\n%s\n", latest.ReleaseNotes)

	exe, err := selfupdate.ExecutablePath()
	if err != nil {
		return fmt.Errorf("could not locate executable path: %w", err)
	}

	_, _ = fmt.Fprintf(out, "Updating %s to version %s...\n", exe, latest.Version())
	if err := updater.UpdateTo(ctx, latest, exe); err != nil {
		return fmt.Errorf("update failed: %w", err)
	}

	_, _ = fmt.Fprintf(out, "Successfully updated to version %s\n", latest.Version())
	return nil
}
