package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/geology-tools/ls4sm/internal/fetcher"
	"github.com/geology-tools/ls4sm/internal/pipeline"
	"github.com/geology-tools/ls4sm/internal/store"
	"github.com/geology-tools/ls4sm/internal/zoning"
)

// Policies for records no rule matches.
const (
	policyKeep = "keep"
	policyDrop = "drop"
	policyFail = "fail"
)

// selectOutcomes applies the --on-unclassified policy and returns the indexes
// of the outcomes to emit. keep passes everything through, drop omits
// unclassified records, fail aborts naming the first unclassified site.
// Invalid records are not affected; they are kept as zero-code rows.
func selectOutcomes(policy string, outcomes []pipeline.Outcome) ([]int, error) {
	switch policy {
	case policyKeep, policyDrop, policyFail:
	default:
		return nil, eris.Errorf("invalid --on-unclassified policy %q (keep, drop, fail)", policy)
	}

	keep := make([]int, 0, len(outcomes))
	for i, o := range outcomes {
		if o.Unclassified() {
			switch policy {
			case policyDrop:
				continue
			case policyFail:
				return nil, eris.Errorf("unclassified site %s (IL=%g, slope=%g%%)", o.Site.ID, o.Site.IL, o.Site.SlopePct)
			}
		}
		keep = append(keep, i)
	}
	return keep, nil
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DSN
		if dsn == "" {
			dsn = "ls4sm.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DSN)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func initResolver() *fetcher.Resolver {
	timeout := time.Duration(cfg.Fetch.TimeoutSecs) * time.Second
	return fetcher.NewResolver(
		fetcher.HTTPOptions{
			UserAgent:  cfg.Fetch.UserAgent,
			Timeout:    timeout,
			MaxRetries: cfg.Fetch.MaxRetries,
		},
		fetcher.FTPOptions{Timeout: timeout},
	)
}

// initClassifier builds the classifier from the given rules file, falling
// back to the configured file and finally the built-in table.
func initClassifier(rulesPath string) (*zoning.Classifier, string, error) {
	if rulesPath == "" {
		rulesPath = cfg.Classify.RulesPath
	}
	if rulesPath == "" {
		return zoning.Default(), "", nil
	}

	rules, err := zoning.LoadRules(rulesPath)
	if err != nil {
		return nil, "", err
	}
	c, err := zoning.NewClassifier(rules)
	if err != nil {
		return nil, "", err
	}
	return c, rulesPath, nil
}
