package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JasonKing5/ifs/internal/client"
)

var (
	filter  client.PoemFilter
	newPoem client.NewPoem
)

func init() {
	f := ListPoemsCommand.Flags()
	f.StringVar(&filter.Title, "title", "", "title contains")
	f.StringVar(&filter.Type, "type", "", "shi|ci|qu|fu|other")
	f.StringSliceVar(&filter.Tags, "tag", nil, "tag, repeatable")
	f.StringVar(&filter.Source, "source", "", "system|system_user")
	f.StringVar(&filter.Dynasty, "dynasty", "", "dynasty")
	f.StringVar(&filter.AuthorID, "author", "", "author id")
	f.StringVar(&filter.SubmitterID, "submitter", "", "submitter id")
	f.StringVar(&filter.Status, "status", "", "pending|approved|rejected")
	f.IntVar(&filter.Page, "page", 1, "page number")
	f.IntVar(&filter.PageSize, "page-size", 20, "page size")

	c := CreatePoemCommand.Flags()
	c.StringVar(&newPoem.Title, "title", "", "title")
	c.StringVar(&newPoem.Content, "content", "", "content")
	c.StringVar(&newPoem.AuthorID, "author", "", "author id")
	c.StringVar(&newPoem.Type, "type", "", "shi|ci|qu|fu|other")
	c.StringSliceVar(&newPoem.Tags, "tag", nil, "tag, repeatable")
	c.StringVar(&newPoem.Dynasty, "dynasty", "", "dynasty")
	_ = CreatePoemCommand.MarkFlagRequired("title")
	_ = CreatePoemCommand.MarkFlagRequired("content")

	PoemsCommand.AddCommand(ListPoemsCommand, GetPoemCommand, CreatePoemCommand, DeletePoemCommand)
	RootCmd.AddCommand(PoemsCommand)
}

var PoemsCommand = &cobra.Command{
	Use:     "poems",
	Aliases: []string{"poetry"},
	Short:   "Browse and edit poems",
}

var ListPoemsCommand = &cobra.Command{
	Use:   "list",
	Short: "List poems",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		page, err := api.ListPoems(cmd.Context(), filter)
		if err != nil {
			return err
		}
		return printJSON(page)
	},
}

var GetPoemCommand = &cobra.Command{
	Use:   "get <id>",
	Short: "Show one poem",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := api.GetPoem(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(p)
	},
}

var CreatePoemCommand = &cobra.Command{
	Use:   "create",
	Short: "Submit a poem for review",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := api.CreatePoem(cmd.Context(), newPoem)
		if err != nil {
			return err
		}
		return printJSON(p)
	},
}

var DeletePoemCommand = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a poem",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := api.DeletePoem(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("deleted %s\n", args[0])
		return nil
	},
}
