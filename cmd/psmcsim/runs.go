package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/psmcsim/internal/dynamo"
	"github.com/san-kum/psmcsim/internal/storage"
	"github.com/san-kum/psmcsim/internal/viz"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runs, err := storage.New(dataDir(), log).List()
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Println("no runs found")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTIME\tPRESET\tSOLVER\tTSTART\tTSTOP\tSEGMENTS\tVIOLATIONS")
			for _, run := range runs {
				preset := run.Preset
				if preset == "" {
					preset = "custom"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.0f\t%.0f\t%d\t%d\n",
					run.ID,
					run.Timestamp.Format("2006-01-02 15:04:05"),
					preset,
					run.Solver,
					run.TStart,
					run.TStop,
					run.Segments,
					len(run.Violations),
				)
			}
			return w.Flush()
		},
	}
}

func newPlotCmd() *cobra.Command {
	var width, height int

	cmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot the temperatures of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st := storage.New(dataDir(), log)
			meta, err := st.Load(args[0])
			if err != nil {
				return err
			}
			tr, err := st.LoadTemperatures(args[0])
			if err != nil {
				return err
			}
			if tr.Len() == 0 {
				return fmt.Errorf("no data to plot")
			}

			fmt.Printf("run: %s\n", meta.ID)
			fmt.Printf("samples: %d\n\n", tr.Len())
			fmt.Println(viz.PlotTemperatures(tr, width, height))
			fmt.Println()
			fmt.Println(viz.PlotSeries(tr.Channel(dynamo.NodeDEA, true), width, height/2, "1PDEAAT (degC)"))
			return nil
		},
	}
	cmd.Flags().IntVar(&width, "width", 80, "plot width")
	cmd.Flags().IntVar(&height, "height", 14, "plot height")
	return cmd
}

func newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export [run_id]",
		Short: "export a stored run as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st := storage.New(dataDir(), log)
			meta, err := st.Load(args[0])
			if err != nil {
				return err
			}
			tr, err := st.LoadTemperatures(args[0])
			if err != nil {
				return err
			}
			return storage.ExportJSON(os.Stdout, *meta, tr)
		},
	}
}

func newExportCSVCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export the temperatures of a stored run as CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tr, err := storage.New(dataDir(), log).LoadTemperatures(args[0])
			if err != nil {
				return err
			}

			if out == "" {
				return storage.WriteTemperaturesCSV(os.Stdout, tr)
			}
			file, err := os.Create(out)
			if err != nil {
				return err
			}
			if err := storage.WriteTemperaturesCSV(file, tr); err != nil {
				file.Close()
				return err
			}
			if err := file.Close(); err != nil {
				return err
			}
			fmt.Printf("exported %d samples to %s\n", tr.Len(), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "output file (default stdout)")
	return cmd
}
