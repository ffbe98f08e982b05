package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yomna-shousha/orange-build-sub000/internal/app"
	"github.com/yomna-shousha/orange-build-sub000/internal/errors"
	"github.com/yomna-shousha/orange-build-sub000/internal/ghexport"
)

var exportCmd = &cobra.Command{
	Use:   "export <instance>",
	Short: "Export the instance to a GitHub repository",
	Long: `Push the instance's working tree to a GitHub repository.

The repository is created under the token's account if it does not
exist yet. The token comes from --token or ORANGE_GITHUB_TOKEN. The
repository name defaults to the instance's project name.`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

var (
	exportRepoName    string
	exportPrivate     bool
	exportDescription string
	exportUser        string
	exportEmail       string
	exportToken       string
	exportMessage     string
)

func init() {
	exportCmd.Flags().StringVar(&exportRepoName, "repo-name", "", "Repository name (default: the instance's project name)")
	exportCmd.Flags().BoolVar(&exportPrivate, "private", false, "Create the repository as private")
	exportCmd.Flags().StringVar(&exportDescription, "description", "", "Repository description")
	exportCmd.Flags().StringVar(&exportUser, "user", "", "Committer username (required)")
	exportCmd.Flags().StringVar(&exportEmail, "email", "", "Committer email (default: <user>@users.noreply.github.com)")
	exportCmd.Flags().StringVar(&exportToken, "token", "", "GitHub token (default: ORANGE_GITHUB_TOKEN)")
	exportCmd.Flags().StringVarP(&exportMessage, "message", "m", "", "Commit message")
	_ = exportCmd.MarkFlagRequired("user")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	instanceID := args[0]
	ctx := context.Background()

	token := exportToken
	if token == "" && app.Default.HostConfig != nil {
		token = app.Default.HostConfig.GitHubToken
	}
	if token == "" {
		return errors.ValidationError("no GitHub token: pass --token or set ORANGE_GITHUB_TOKEN")
	}

	email := exportEmail
	if email == "" {
		email = exportUser + "@users.noreply.github.com"
	}

	repoName := exportRepoName
	if repoName == "" {
		info, err := orchestrator().Status(ctx, instanceID)
		if err != nil {
			return err
		}
		repoName = info.Meta.ProjectName
	}

	logInfo("Exporting instance %s to GitHub...", instanceID)

	result, err := ghexport.NewExporter(app.Default).Export(ctx, instanceID, ghexport.Request{
		RepositoryName: repoName,
		Private:        exportPrivate,
		Description:    exportDescription,
		Username:       exportUser,
		Email:          email,
		Token:          token,
		CommitMessage:  exportMessage,
	})
	if err != nil {
		return err
	}

	if result.Created {
		logSuccess("Created repository %s", result.RepositoryURL)
	} else {
		logSuccess("Pushed to existing repository %s", result.RepositoryURL)
	}
	fmt.Printf("  Clone: %s\n", result.CloneURL)
	if result.CommitSHA != "" {
		fmt.Printf("  Commit: %s\n", result.CommitSHA)
	}
	return nil
}
