package main

import (
	"github.com/spf13/cobra"
)

var authorDynasty string

func init() {
	CreateAuthorCommand.Flags().StringVar(&authorDynasty, "dynasty", "", "dynasty")
	AuthorsCommand.AddCommand(ListAuthorsCommand, CreateAuthorCommand)
	RootCmd.AddCommand(AuthorsCommand)
}

var AuthorsCommand = &cobra.Command{
	Use:   "authors",
	Short: "Browse and add authors",
}

var ListAuthorsCommand = &cobra.Command{
	Use:   "list",
	Short: "List authors",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		authors, err := api.ListAuthors(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(authors)
	},
}

var CreateAuthorCommand = &cobra.Command{
	Use:   "create <name>",
	Short: "Add an author (admin only)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := api.CreateAuthor(cmd.Context(), args[0], authorDynasty)
		if err != nil {
			return err
		}
		return printJSON(a)
	},
}
