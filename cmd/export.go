package main

import (
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/meowafisha/eventmap/internal/export"
	"github.com/meowafisha/eventmap/internal/pipeline"
)

var (
	exportFormat string
	exportOut    string
	exportDate   string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write persisted events as GeoJSON or JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		events, err := pipeline.LoadEvents(ctx, st, cfg.Store.EventsKey)
		if err != nil {
			return eris.Wrap(err, "load events")
		}
		if exportDate != "" {
			events = pipeline.FilterByDate(events, exportDate)
		}

		var w io.Writer = os.Stdout
		if exportOut != "" {
			f, err := os.Create(exportOut)
			if err != nil {
				return eris.Wrapf(err, "create %s", exportOut)
			}
			defer f.Close()
			w = f
		}

		if err := export.Write(w, exportFormat, events); err != nil {
			return err
		}

		if exportOut != "" {
			zap.L().Info("events exported",
				zap.String("path", exportOut),
				zap.String("format", exportFormat),
				zap.Int("events", len(events)),
			)
		}
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", export.FormatGeoJSON, "output format: geojson or json")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output file (default stdout)")
	exportCmd.Flags().StringVar(&exportDate, "date", "", "only events on this date (YYYY-MM-DD)")
	rootCmd.AddCommand(exportCmd)
}
