package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"path"

	"github.com/spf13/cobra"

	"github.com/yomna-shousha/orange-build-sub000/internal/files"
)

var treeCmd = &cobra.Command{
	Use:   "tree <instance>",
	Short: "Show the instance's file tree",
	Long: `Show the instance working tree as an indented listing.

Dependency and build directories (node_modules, dist, .git and friends)
are excluded.`,
	Args: cobra.ExactArgs(1),
	RunE: runTree,
}

var treeJSON bool

func init() {
	treeCmd.Flags().BoolVar(&treeJSON, "json", false, "Output the tree as JSON")
	rootCmd.AddCommand(treeCmd)
}

func runTree(cmd *cobra.Command, args []string) error {
	root, err := orchestrator().Tree(context.Background(), args[0])
	if err != nil {
		return err
	}

	if treeJSON {
		data, err := json.MarshalIndent(root, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal tree: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	fmt.Println(args[0])
	printTree(root.Children, "")
	return nil
}

func printTree(nodes []*files.FileTreeNode, prefix string) {
	for i, node := range nodes {
		connector, childPrefix := "├── ", prefix+"│   "
		if i == len(nodes)-1 {
			connector, childPrefix = "└── ", prefix+"    "
		}
		name := path.Base(node.Path)
		if node.Type == files.TypeDirectory {
			name += "/"
		}
		fmt.Println(prefix + connector + name)
		printTree(node.Children, childPrefix)
	}
}
