package cmd

import (
	"github.com/spf13/cobra"

	"github.com/kundliinsight/kundli/internal/core"
	"github.com/kundliinsight/kundli/internal/output"
)

var postsCmd = &cobra.Command{
	Use:   "posts",
	Short: "Inspect blog posts",
}

var postsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List blog posts",
	Example: `  kundli posts list
  kundli posts list --all --output-format json --out posts.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		all, _ := cmd.Flags().GetBool("all")
		limit, _ := cmd.Flags().GetInt("limit")

		db, err := openStore(ctx, nil)
		if err != nil {
			return err
		}
		defer db.Close() //nolint:errcheck

		posts, err := db.ListPosts(ctx, core.PostQuery{PublishedOnly: !all, Limit: limit})
		if err != nil {
			return err
		}
		return writeListing(cmd, "posts", output.Posts(posts))
	},
}

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "Inspect blog categories",
}

var categoriesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List blog categories",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		db, err := openStore(ctx, nil)
		if err != nil {
			return err
		}
		defer db.Close() //nolint:errcheck

		categories, err := db.ListCategories(ctx)
		if err != nil {
			return err
		}
		return writeListing(cmd, "categories", output.Categories(categories))
	},
}

var contactCmd = &cobra.Command{
	Use:   "contact",
	Short: "Read contact form messages",
}

var contactListCmd = &cobra.Command{
	Use:   "list",
	Short: "List contact messages, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		limit, _ := cmd.Flags().GetInt("limit")

		db, err := openStore(ctx, nil)
		if err != nil {
			return err
		}
		defer db.Close() //nolint:errcheck

		messages, err := db.ListContactMessages(ctx, limit)
		if err != nil {
			return err
		}
		return writeListing(cmd, "contact-messages", output.ContactMessages(messages))
	},
}

func init() {
	rootCmd.AddCommand(postsCmd, categoriesCmd, contactCmd)
	postsCmd.AddCommand(postsListCmd)
	categoriesCmd.AddCommand(categoriesListCmd)
	contactCmd.AddCommand(contactListCmd)

	postsListCmd.Flags().Bool("all", false, "include drafts")
	postsListCmd.Flags().Int("limit", 0, "maximum number of posts (0 for all)")
	contactListCmd.Flags().Int("limit", 50, "maximum number of messages")

	for _, c := range []*cobra.Command{postsListCmd, categoriesListCmd, contactListCmd} {
		addListingFlags(c)
	}
}
