package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/geology-tools/ls4sm/internal/model"
	"github.com/geology-tools/ls4sm/internal/pipeline"
	"github.com/geology-tools/ls4sm/internal/shapefile"
)

var (
	shpInput      string
	shpOutput     string
	shpRules      string
	shpWorkers    int
	shpNoStore    bool
	shpPolicy     string
	shpIDField    string
	shpILField    string
	shpSlopeField string
)

var shpCmd = &cobra.Command{
	Use:   "shp",
	Short: "Classify a polygon shapefile",
	Long:  "Reads polygons with IL and slope attributes, classifies each into a susceptibility zone, and writes a zoned shapefile.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		classifier, rulesPath, err := initClassifier(shpRules)
		if err != nil {
			return err
		}

		workDir, err := os.MkdirTemp("", "ls4sm-*")
		if err != nil {
			return eris.Wrap(err, "shp: temp dir")
		}
		defer os.RemoveAll(workDir)

		local, err := initResolver().Resolve(ctx, shpInput, workDir, ".shp")
		if err != nil {
			return err
		}

		features, err := shapefile.ReadFeatures(local, shapefile.ReadOptions{
			IDField:    shpIDField,
			ILField:    shpILField,
			SlopeField: shpSlopeField,
		})
		if err != nil {
			return err
		}

		sites := make([]model.Site, len(features))
		areas := make(map[string]float64, len(features))
		for i, ft := range features {
			sites[i] = ft.Site
			areas[ft.Site.ID] = ft.AreaSqm
		}

		workers := shpWorkers
		if workers == 0 {
			workers = cfg.Classify.Workers
		}

		engine := pipeline.New(classifier, workers)
		outcomes, counts, err := engine.Run(ctx, sites)
		if err != nil {
			return eris.Wrap(err, "shp classify")
		}

		keep, err := selectOutcomes(shpPolicy, outcomes)
		if err != nil {
			return err
		}
		kept := make([]pipeline.Outcome, 0, len(keep))
		outFeatures := make([]shapefile.Feature, 0, len(keep))
		results := make([]model.Result, 0, len(keep))
		for _, idx := range keep {
			kept = append(kept, outcomes[idx])
			outFeatures = append(outFeatures, features[idx])
			results = append(results, outcomes[idx].Result())
		}

		out := shpOutput
		if out == "" {
			base := strings.TrimSuffix(filepath.Base(shpInput), filepath.Ext(shpInput))
			out = base + "_zones.shp"
		}
		if err := shapefile.WriteZones(out, outFeatures, results); err != nil {
			return err
		}

		for _, zc := range pipeline.Summarize(kept, areas) {
			fmt.Fprintf(os.Stderr, "zone %d (%s): %d polygons, %.1f m2\n", zc.Code, zc.Family, zc.Count, zc.AreaSqm)
		}

		if cfg.Store.Enabled && !shpNoStore {
			if err := persistRun(ctx, shpInput, rulesPath, counts, results); err != nil {
				return err
			}
		}

		zap.L().Info("shapefile classified",
			zap.String("output", out),
			zap.Int("total", counts.Total),
			zap.Int("classified", counts.Classified),
			zap.Int("unclassified", counts.Unclassified),
			zap.Int("invalid", counts.Invalid),
		)
		return nil
	},
}

func init() {
	shpCmd.Flags().StringVar(&shpInput, "input", "", "polygon shapefile (path, URL, or zip; required)")
	_ = shpCmd.MarkFlagRequired("input")
	shpCmd.Flags().StringVarP(&shpOutput, "output", "o", "", "zoned shapefile path (default <input>_zones.shp)")
	shpCmd.Flags().StringVar(&shpRules, "rules", "", "custom rule table (YAML)")
	shpCmd.Flags().IntVar(&shpWorkers, "workers", 0, "parallel workers (default from config)")
	shpCmd.Flags().BoolVar(&shpNoStore, "no-store", false, "skip run persistence")
	shpCmd.Flags().StringVar(&shpPolicy, "on-unclassified", policyKeep, "unclassified record policy: keep, drop, or fail")
	shpCmd.Flags().StringVar(&shpIDField, "id-field", "", "attribute holding the polygon ID (default record number)")
	shpCmd.Flags().StringVar(&shpILField, "il-field", shapefile.DefaultILField, "attribute holding the liquefaction index")
	shpCmd.Flags().StringVar(&shpSlopeField, "slope-field", shapefile.DefaultSlopeField, "attribute holding the slope percentage")
	rootCmd.AddCommand(shpCmd)
}
