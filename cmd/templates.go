package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yomna-shousha/orange-build-sub000/internal/config"
	"github.com/yomna-shousha/orange-build-sub000/internal/errors"
	"github.com/yomna-shousha/orange-build-sub000/internal/template"
)

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "Manage published template archives",
	Long: `List and publish the template archives instances are scaffolded from.

Templates live in object storage; publishing zips a local project
directory and uploads it under the given name.`,
}

var templatesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List published templates",
	Args:  cobra.NoArgs,
	RunE:  runTemplatesList,
}

var templatesPublishCmd = &cobra.Command{
	Use:   "publish <name> <dir>",
	Short: "Publish a local directory as a template",
	Args:  cobra.ExactArgs(2),
	RunE:  runTemplatesPublish,
}

func init() {
	templatesCmd.AddCommand(templatesListCmd)
	templatesCmd.AddCommand(templatesPublishCmd)
	rootCmd.AddCommand(templatesCmd)
}

func requireTemplateRepo() (*template.Repository, error) {
	repo := templateRepo()
	if repo == nil {
		return nil, errors.ConfigError("object storage is not configured; set storage in config.json", nil)
	}
	return repo, nil
}

func runTemplatesList(cmd *cobra.Command, args []string) error {
	repo, err := requireTemplateRepo()
	if err != nil {
		return err
	}

	names, err := repo.List(context.Background())
	if err != nil {
		return err
	}
	if len(names) == 0 {
		logInfo("No templates published. Publish one with: orangectl templates publish <name> <dir>")
		return nil
	}
	for _, name := range names {
		fmt.Println(name)
	}
	return nil
}

func runTemplatesPublish(cmd *cobra.Command, args []string) error {
	name, dir := args[0], args[1]
	if err := config.ValidateProjectName(name); err != nil {
		return errors.ValidationError(fmt.Sprintf("template name: %v", err))
	}

	repo, err := requireTemplateRepo()
	if err != nil {
		return err
	}

	if err := repo.Publish(context.Background(), name, dir); err != nil {
		return err
	}
	logSuccess("Published template %s", name)
	logInfo("Create an instance with: orangectl up %s -p <project>", name)
	return nil
}
