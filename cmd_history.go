package main

import (
	"context"
	"fmt"
	"time"

	"genfill/core"
	"genfill/core/validation"
	"genfill/db"
	"genfill/store"
)

func runHistory(a *app, args []string) int {
	fs := newFlagSet(a, "history", "")
	mode := fs.String("mode", "", "only show runs of one mode: single, batch or partition")
	limit := fs.Int("limit", db.DefaultListLimit, "number of runs to show")
	prune := fs.Int("prune", -1, "delete runs older than this many days instead of listing")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	switch *mode {
	case "", core.RunModeSingle, core.RunModeBatch, core.RunModePartition:
	default:
		return usageError(a, fs, fmt.Sprintf("unknown mode %q", *mode))
	}

	repo, err := a.History()
	if err != nil {
		printError(a.errOut, err)
		return core.ExitCodeError
	}

	err = a.manager.Run("history", func(ctx context.Context) error {
		if *prune >= 0 {
			result, err := a.database.Cleanup(ctx, *prune, time.Now())
			if err != nil {
				return err
			}
			successColor.Fprintf(a.out, "✓ Removed %d runs older than %d days", result.RunsDeleted, *prune)
			dimColor.Fprintf(a.out, " (%v)\n", result.Duration.Round(time.Millisecond))
			return nil
		}

		runs, err := repo.ListRuns(ctx, *mode, *limit)
		if err != nil {
			return err
		}
		total, err := repo.CountRuns(ctx)
		if err != nil {
			return err
		}

		printHeader(a.out, fmt.Sprintf("Run History (%d of %d)", len(runs), total))
		for _, rec := range runs {
			clr := successColor
			switch {
			case rec.FailureCount > 0 && rec.SuccessCount == 0:
				clr = failColor
			case rec.FailureCount > 0:
				clr = warnColor
			}
			dimColor.Fprintf(a.out, "%s ", rec.CreatedAt.Local().Format("2006-01-02 15:04"))
			fmt.Fprintf(a.out, "%-9s ", rec.Mode)
			clr.Fprintf(a.out, "%d/%d", rec.SuccessCount, rec.TotalCount)
			dimColor.Fprintf(a.out, " %6s ", rec.Duration.Round(100*time.Millisecond))
			fmt.Fprintln(a.out, truncatePrompt(rec.Prompt, 48))
		}
		return nil
	})
	if err != nil {
		printError(a.errOut, err)
		return core.ExitCodeError
	}
	return core.ExitCodeSuccess
}

func truncatePrompt(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}

func runCheck(a *app, args []string) int {
	fs := newFlagSet(a, "check", "")
	offline := fs.Bool("offline", false, "skip the network checks")
	failFast := fs.Bool("fail-fast", false, "stop at the first failed check")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	storedKey := func() (string, error) {
		st, err := a.Store()
		if err != nil {
			return "", err
		}
		entry, _, err := st.LatestKey(store.GenerationKeys)
		return entry.Value, err
	}

	suite := validation.NewValidationSuite(
		validation.EnvFileCheck(a.envPath),
		validation.BaseURLCheck(a.cfg.APIBaseURL),
		validation.APIKeyCheck(a.cfg.APIKey, storedKey),
		validation.DirectoryCheck("Data Directory", a.cfg.DataDir),
		validation.DirectoryCheck("Temp Directory", a.cfg.TempDir),
		validation.DiskSpaceCheck("Disk Space", a.cfg.DataDir, validation.DefaultMinFreeBytes),
		validation.FuncCheck("Run History", a.checkHistory),
	).
		WithTitle("genfill environment check").
		WithOutput(a.out).
		WithFailFast(*failFast)

	if !*offline {
		checker := validation.NewConnectivityChecker(core.GetHTTPClient(a.cfg, 0))
		suite.Add(
			validation.EndpointCheck("Generation Endpoint", checker, a.cfg.APIBaseURL),
			validation.EndpointCheck("Prompt Library", checker, a.cfg.PromptLibraryURL),
		)
	}

	var result validation.SuiteResult
	err := a.manager.Run("check", func(ctx context.Context) error {
		result = suite.Validate(ctx)
		return nil
	})
	if err != nil {
		printError(a.errOut, err)
		return core.ExitCodeError
	}
	if !result.Success {
		return core.ExitCodeError
	}
	return core.ExitCodeSuccess
}

// checkHistory opens the run history and reports its schema version.
func (a *app) checkHistory(ctx context.Context) (string, error) {
	repo, err := a.History()
	if err != nil {
		return "", err
	}
	if err := a.database.Ping(ctx); err != nil {
		return "", err
	}
	version, dirty, err := db.MigrationVersionFromPath(a.database.Path())
	if err != nil {
		return "", err
	}
	if dirty {
		return "", fmt.Errorf("schema version %d is dirty", version)
	}
	count, err := repo.CountRuns(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("schema v%d, %d runs", version, count), nil
}
