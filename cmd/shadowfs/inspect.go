package main

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/marmos91/shadowfs/pkg/config"
	"github.com/marmos91/shadowfs/pkg/content"
	"github.com/marmos91/shadowfs/pkg/dicom"
	"github.com/spf13/cobra"
)

func (a *app) inspectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file>",
		Short: "Print the metadata of a DICOM file and the shadow path it would get",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			cfg, engine, err := a.openEngine(cmd.Context())
			if err != nil {
				return err
			}
			extractor, err := config.CreateExtractor(&cfg.Extractor)
			if err != nil {
				return err
			}

			md, err := extractor.Extract(data)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			printMetadata(tw, md)

			path, ok := engine.ShadowPath(data, content.KindStructured)
			if ok {
				rel, err := filepath.Rel(cfg.Storage.ShadowRoot, path)
				if err != nil {
					rel = path
				}
				fmt.Fprintf(tw, "Shadow path:\t%s\n", rel)
			} else {
				fmt.Fprintf(tw, "Shadow path:\t(none: incomplete metadata)\n")
			}

			return tw.Flush()
		},
	}
}

func printMetadata(tw *tabwriter.Writer, md *dicom.Metadata) {
	fmt.Fprintf(tw, "Patient ID:\t%s\n", md.PatientID)
	fmt.Fprintf(tw, "Patient name:\t%s\n", md.PatientName)
	fmt.Fprintf(tw, "Study date:\t%s\n", md.StudyDate)
	fmt.Fprintf(tw, "Study time:\t%s\n", md.StudyTime)
	fmt.Fprintf(tw, "Series:\t%s %s\n", md.SeriesNumber, md.SeriesDescription)
	fmt.Fprintf(tw, "Instance UID:\t%s\n", md.InstanceID)
}
