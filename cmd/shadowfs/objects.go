package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/marmos91/shadowfs/pkg/content"
	"github.com/spf13/cobra"
)

func (a *app) putCommand() *cobra.Command {
	var (
		id     string
		opaque bool
	)

	cmd := &cobra.Command{
		Use:   "put <file>",
		Short: "Store a file; DICOM files are also linked into the shadow tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			_, engine, err := a.openEngine(cmd.Context())
			if err != nil {
				return err
			}

			if id == "" {
				id = uuid.NewString()
			}
			kind := content.KindStructured
			if opaque {
				kind = content.KindOpaque
			}

			if err := engine.Put(cmd.Context(), content.ContentID(id), data, kind); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, id)
			if path, ok := engine.ShadowPath(data, kind); ok {
				fmt.Fprintf(out, "shadow: %s\n", path)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "identifier to store under (default: random UUID)")
	cmd.Flags().BoolVar(&opaque, "opaque", false, "store without metadata extraction or shadow link")

	return cmd
}

func (a *app) getCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Read an object from the primary store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, engine, err := a.openEngine(cmd.Context())
			if err != nil {
				return err
			}

			data, err := engine.Get(cmd.Context(), content.ContentID(args[0]))
			if err != nil {
				return err
			}

			if output == "" || output == "-" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			return os.WriteFile(output, data, 0644)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to file instead of stdout")

	return cmd
}

func (a *app) deleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove an object and its shadow link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, engine, err := a.openEngine(cmd.Context())
			if err != nil {
				return err
			}

			return engine.Delete(cmd.Context(), content.ContentID(args[0]))
		},
	}
}
