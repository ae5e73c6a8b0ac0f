package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/geology-tools/ls4sm/internal/fetcher"
	"github.com/geology-tools/ls4sm/internal/model"
	"github.com/geology-tools/ls4sm/internal/pipeline"
	"github.com/geology-tools/ls4sm/internal/store"
	"github.com/geology-tools/ls4sm/internal/zoning"
)

var (
	classifyIL      float64
	classifySlope   float64
	classifyInput   string
	classifyOutput  string
	classifyRules   string
	classifyWorkers int
	classifyNoStore bool
	classifyPolicy  string

	classifyDelimiter string
	classifyCharset   string
	classifyIDField   string
	classifyILField   string
	classifySlopeCol  string
	classifySheet     string
)

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Classify sites into susceptibility zones",
	Long:  "Classifies a single IL/slope pair (--il/--slope) or a CSV/XLSX dataset (--input, local path or http/ftp URL, zip archives supported).",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		classifier, rulesPath, err := initClassifier(classifyRules)
		if err != nil {
			return err
		}

		if classifyInput == "" {
			return classifyPoint(cmd, classifier)
		}

		sites, err := loadSites(ctx)
		if err != nil {
			return err
		}

		workers := classifyWorkers
		if workers == 0 {
			workers = cfg.Classify.Workers
		}

		engine := pipeline.New(classifier, workers)
		outcomes, counts, err := engine.Run(ctx, sites)
		if err != nil {
			return eris.Wrap(err, "classify")
		}

		keep, err := selectOutcomes(classifyPolicy, outcomes)
		if err != nil {
			return err
		}
		results := make([]model.Result, 0, len(keep))
		for _, idx := range keep {
			results = append(results, outcomes[idx].Result())
		}

		if err := writeResults(results); err != nil {
			return err
		}

		if cfg.Store.Enabled && !classifyNoStore {
			if err := persistRun(ctx, classifyInput, rulesPath, counts, results); err != nil {
				return err
			}
		}

		zap.L().Info("classification complete",
			zap.Int("total", counts.Total),
			zap.Int("classified", counts.Classified),
			zap.Int("unclassified", counts.Unclassified),
			zap.Int("invalid", counts.Invalid),
		)
		return nil
	},
}

func classifyPoint(cmd *cobra.Command, classifier *zoning.Classifier) error {
	if !cmd.Flags().Changed("il") || !cmd.Flags().Changed("slope") {
		return eris.New("either --input or both --il and --slope are required")
	}

	zone, err := classifier.Classify(classifyIL, classifySlope)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(zone)
}

func loadSites(ctx context.Context) ([]model.Site, error) {
	workDir, err := os.MkdirTemp("", "ls4sm-*")
	if err != nil {
		return nil, eris.Wrap(err, "classify: temp dir")
	}
	defer os.RemoveAll(workDir)

	wantExt := ".csv"
	if isXLSX(classifyInput) {
		wantExt = ".xlsx"
	}

	local, err := initResolver().Resolve(ctx, classifyInput, workDir, wantExt)
	if err != nil {
		return nil, err
	}

	if isXLSX(local) {
		return fetcher.ReadSitesXLSX(local, fetcher.XLSXOptions{
			SheetName:  classifySheet,
			IDField:    classifyIDField,
			ILField:    classifyILField,
			SlopeField: classifySlopeCol,
		})
	}

	f, err := os.Open(local)
	if err != nil {
		return nil, eris.Wrapf(err, "classify: open %s", local)
	}
	defer f.Close()

	opts := fetcher.CSVOptions{
		Charset:    classifyCharset,
		IDField:    classifyIDField,
		ILField:    classifyILField,
		SlopeField: classifySlopeCol,
	}
	if classifyDelimiter != "" {
		opts.Delimiter = rune(classifyDelimiter[0])
	}
	return fetcher.ReadSites(ctx, f, opts)
}

func isXLSX(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".xlsx")
}

func writeResults(results []model.Result) error {
	out := os.Stdout
	if classifyOutput != "" {
		f, err := os.Create(classifyOutput)
		if err != nil {
			return eris.Wrapf(err, "classify: create %s", classifyOutput)
		}
		defer f.Close()
		out = f
	}
	return fetcher.WriteResults(out, results)
}

func persistRun(ctx context.Context, source, rulesPath string, counts model.RunCounts, results []model.Result) error {
	st, err := initStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck
	if err := st.Migrate(ctx); err != nil {
		return err
	}

	run, err := st.CreateRun(ctx, source, rulesPath)
	if err != nil {
		return err
	}
	if err := st.SaveResults(ctx, run.ID, results); err != nil {
		finishFailed(ctx, st, run.ID, counts)
		return err
	}
	if err := st.FinishRun(ctx, run.ID, model.RunStatusComplete, counts); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "run %s recorded\n", run.ID)
	return nil
}

func finishFailed(ctx context.Context, st store.Store, runID string, counts model.RunCounts) {
	if err := st.FinishRun(ctx, runID, model.RunStatusFailed, counts); err != nil {
		zap.L().Error("mark run failed", zap.String("run", runID), zap.Error(err))
	}
}

func init() {
	classifyCmd.Flags().Float64Var(&classifyIL, "il", 0, "liquefaction index for single-point mode")
	classifyCmd.Flags().Float64Var(&classifySlope, "slope", 0, "slope percentage for single-point mode")
	classifyCmd.Flags().StringVar(&classifyInput, "input", "", "CSV/XLSX dataset (path, URL, or zip)")
	classifyCmd.Flags().StringVarP(&classifyOutput, "output", "o", "", "result CSV path (default stdout)")
	classifyCmd.Flags().StringVar(&classifyRules, "rules", "", "custom rule table (YAML)")
	classifyCmd.Flags().IntVar(&classifyWorkers, "workers", 0, "parallel workers (default from config)")
	classifyCmd.Flags().BoolVar(&classifyNoStore, "no-store", false, "skip run persistence")
	classifyCmd.Flags().StringVar(&classifyPolicy, "on-unclassified", policyKeep, "unclassified record policy: keep, drop, or fail")
	classifyCmd.Flags().StringVar(&classifyDelimiter, "delimiter", "", "CSV delimiter (default auto ,)")
	classifyCmd.Flags().StringVar(&classifyCharset, "charset", "", "CSV charset, e.g. latin1 (default utf-8)")
	classifyCmd.Flags().StringVar(&classifyIDField, "id-field", "", "site ID column")
	classifyCmd.Flags().StringVar(&classifyILField, "il-field", "", "liquefaction index column")
	classifyCmd.Flags().StringVar(&classifySlopeCol, "slope-field", "", "slope column")
	classifyCmd.Flags().StringVar(&classifySheet, "sheet", "", "XLSX sheet name (default first)")
	rootCmd.AddCommand(classifyCmd)
}
