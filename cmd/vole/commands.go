package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rodent-software/vole"
	"github.com/rodent-software/vole/core"
	"github.com/rodent-software/vole/object"
)

// NewPutCommand creates the put command.
func NewPutCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "put <json-doc>",
		Short: "Write a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var doc object.Document
			if err := json.Unmarshal([]byte(args[0]), &doc); err != nil {
				return fmt.Errorf("parse document: %w", err)
			}
			db, cleanup, err := rootOpts.openDB(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			if _, ok := doc["_id"]; !ok {
				id, rev, err := db.Post(cmd.Context(), doc)
				if err != nil {
					return err
				}
				return printJSON(cmd, map[string]any{"ok": true, "id": id, "rev": rev})
			}
			rev, err := db.Put(cmd.Context(), doc)
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]any{"ok": true, "id": doc["_id"], "rev": rev})
		},
	}
}

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	var conflicts bool

	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Read the winning revision of a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, cleanup, err := rootOpts.openDB(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			doc, err := db.Get(cmd.Context(), args[0], &vole.GetOptions{Conflicts: conflicts})
			if err != nil {
				return err
			}
			return printJSON(cmd, doc)
		},
	}
	cmd.Flags().BoolVar(&conflicts, "conflicts", false, "list conflicting revisions")
	return cmd
}

// NewRemoveCommand creates the rm command.
func NewRemoveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id> <rev>",
		Short: "Delete a document revision",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, cleanup, err := rootOpts.openDB(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			rev, err := db.Delete(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]any{"ok": true, "id": args[0], "rev": rev})
		},
	}
}

// NewAllDocsCommand creates the alldocs command. Query options are given
// as a JSON object matching the query contract.
func NewAllDocsCommand(rootOpts *RootOptions) *cobra.Command {
	var optionsJSON string

	cmd := &cobra.Command{
		Use:   "alldocs",
		Short: "List documents in collation order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw := map[string]any{}
			if optionsJSON != "" {
				if err := json.Unmarshal([]byte(optionsJSON), &raw); err != nil {
					return fmt.Errorf("parse options: %w", err)
				}
			}
			opts, err := core.ParseAllDocsOptions(raw)
			if err != nil {
				return err
			}
			db, cleanup, err := rootOpts.openDB(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			result, err := db.AllDocs(cmd.Context(), opts)
			if err != nil {
				return err
			}
			return printJSON(cmd, result)
		},
	}
	cmd.Flags().StringVar(&optionsJSON, "options", "", "query options as a JSON object")
	return cmd
}

// NewChangesCommand creates the changes command.
func NewChangesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &core.ChangesOptions{}
	var limit int

	cmd := &cobra.Command{
		Use:   "changes",
		Short: "Replay the mutation log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("limit") {
				opts.Limit = &limit
			}
			db, cleanup, err := rootOpts.openDB(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			result, err := db.Changes(cmd.Context(), opts)
			if err != nil {
				return err
			}
			return printJSON(cmd, result)
		},
	}
	cmd.Flags().Int64Var(&opts.Since, "since", 0, "sequence cursor")
	cmd.Flags().BoolVar(&opts.Descending, "descending", false, "reverse enumeration order")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum results")
	cmd.Flags().BoolVar(&opts.IncludeDocs, "include-docs", false, "attach winner documents")
	cmd.Flags().BoolVar(&opts.Conflicts, "conflicts", false, "list conflicting revisions")
	cmd.Flags().StringVar(&opts.Style, "style", "", "main_only or all_docs")
	return cmd
}

// NewInfoCommand creates the info command.
func NewInfoCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Describe the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, cleanup, err := rootOpts.openDB(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			info, err := db.Info(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, info)
		},
	}
}

func printJSON(cmd *cobra.Command, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
