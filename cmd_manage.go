package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"genfill/core"
	"genfill/logging"
	"genfill/store"

	"go.uber.org/zap"
)

func runQuota(a *app, args []string) int {
	fs := newFlagSet(a, "quota", "")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	apiKey, baseURL, err := a.credentials()
	if err != nil {
		printError(a.errOut, err)
		return core.ExitCodeError
	}
	client, err := a.QuotaClient()
	if err != nil {
		printError(a.errOut, err)
		return core.ExitCodeError
	}

	err = a.manager.Run("quota", func(ctx context.Context) error {
		info, err := client.Quota(ctx, apiKey, baseURL, int(a.cfg.QuotaTimeout/time.Second))
		if err != nil {
			return err
		}
		printHeader(a.out, "Quota")
		printField(a.out, "key", logging.MaskKey(apiKey))
		printField(a.out, "granted", fmt.Sprintf("%.0f", info.TotalGranted))
		printField(a.out, "used", fmt.Sprintf("%.0f", info.TotalUsed))
		printField(a.out, "available", fmt.Sprintf("%.0f", info.TotalAvailable))
		printField(a.out, "balance", fmt.Sprintf("$%.2f", info.AvailableUSD))
		printField(a.out, "1K images", info.Count1K)
		printField(a.out, "2K images", info.Count2K)
		printField(a.out, "4K images", info.Count4K)
		return nil
	})
	if err != nil {
		printError(a.errOut, err)
		return core.ExitCodeError
	}
	return core.ExitCodeSuccess
}

func runPrompts(a *app, args []string) int {
	if len(args) == 0 {
		args = []string{"list"}
	}
	st, err := a.Store()
	if err != nil {
		printError(a.errOut, err)
		return core.ExitCodeError
	}

	sub, rest := args[0], args[1:]
	switch sub {
	case "list":
		return promptsList(a, st, rest)
	case "save":
		return promptsSave(a, st, rest)
	case "delete", "fav":
		fs := newFlagSet(a, "prompts "+sub, "NAME")
		if code, ok := parseFlags(fs, rest); !ok {
			return code
		}
		if fs.NArg() != 1 {
			return usageError(a, fs, "a prompt name is required")
		}
		if sub == "delete" {
			return promptsDelete(a, st, fs.Arg(0))
		}
		return promptsFavorite(a, st, fs.Arg(0))
	case "sync":
		return promptsSync(a, st, rest)
	case "export", "import":
		fs := newFlagSet(a, "prompts "+sub, "FILE")
		if code, ok := parseFlags(fs, rest); !ok {
			return code
		}
		if fs.NArg() != 1 {
			return usageError(a, fs, "a preset file is required")
		}
		if sub == "export" {
			return promptsExport(a, st, fs.Arg(0))
		}
		return promptsImport(a, st, fs.Arg(0))
	default:
		failColor.Fprintf(a.errOut, "unknown prompts command %q (want list, save, delete, fav, sync, export or import)\n", sub)
		return core.ExitCodeUsage
	}
}

func promptsList(a *app, st *store.Store, args []string) int {
	fs := newFlagSet(a, "prompts list", "")
	reload := fs.Bool("reload", false, "re-read the store file")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	items, err := st.ListPrompts(store.ListOptions{ForceReload: *reload})
	if err != nil {
		printError(a.errOut, err)
		return core.ExitCodeError
	}
	info, err := st.Info()
	if err != nil {
		printError(a.errOut, err)
		return core.ExitCodeError
	}

	printHeader(a.out, fmt.Sprintf("Prompts (%d)", len(items)))
	for _, item := range items {
		star := " "
		if item.Favorite {
			star = "★"
		}
		source := "custom"
		if item.Type == store.PromptLibrary {
			source = "library"
		}
		warnColor.Fprintf(a.out, "%s ", star)
		fmt.Fprintf(a.out, "%s", item.Name)
		dimColor.Fprintf(a.out, " [%s]", source)
		if len(item.Tags) > 0 {
			dimColor.Fprintf(a.out, " #%s", strings.Join(item.Tags, " #"))
		}
		fmt.Fprintln(a.out)
	}
	fmt.Fprintln(a.out)
	dimColor.Fprintf(a.out, "%s · last sync: %s %s\n", info.Path, orNone(string(info.LastSyncStatus)), info.LastSyncAt)
	return core.ExitCodeSuccess
}

func promptsSave(a *app, st *store.Store, args []string) int {
	fs := newFlagSet(a, "prompts save", "")
	name := fs.String("name", "", "prompt name (required)")
	content := fs.String("content", "", "prompt text (required)")
	description := fs.String("description", "", "optional description")
	category := fs.String("category", "", "optional category")
	tags := fs.String("tags", "", "comma separated tags")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	item, err := st.SavePrompt(store.SavePromptInput{
		Name:        *name,
		Content:     *content,
		Description: *description,
		Category:    *category,
		Tags:        store.ParseTags(*tags),
	})
	if err != nil {
		printError(a.errOut, err)
		return core.ExitCodeError
	}
	successColor.Fprintf(a.out, "✓ Saved prompt %q\n", item.Name)
	return core.ExitCodeSuccess
}

func promptsDelete(a *app, st *store.Store, name string) int {
	deleted, err := st.DeletePrompt(name)
	if err != nil {
		printError(a.errOut, err)
		return core.ExitCodeError
	}
	if !deleted {
		warnColor.Fprintf(a.out, "! No custom prompt named %q\n", name)
		return core.ExitCodeError
	}
	successColor.Fprintf(a.out, "✓ Deleted prompt %q\n", name)
	return core.ExitCodeSuccess
}

func promptsFavorite(a *app, st *store.Store, name string) int {
	item, err := st.ToggleFavorite(name)
	if err != nil {
		printError(a.errOut, err)
		return core.ExitCodeError
	}
	state := "removed from"
	if item.Favorite {
		state = "added to"
	}
	successColor.Fprintf(a.out, "✓ %q %s favorites\n", item.Name, state)
	return core.ExitCodeSuccess
}

func promptsSync(a *app, st *store.Store, args []string) int {
	fs := newFlagSet(a, "prompts sync", "")
	force := fs.Bool("force", false, "fetch even when remote sync is disabled")
	skip := fs.String("skip", "", "store the skip-remote-sync preference first (1/true or 0/false)")
	skipOnly := fs.Bool("skip-only", false, "only store --skip, do not fetch")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if *skipOnly && *skip == "" {
		return usageError(a, fs, "--skip-only needs --skip")
	}

	opts := store.SyncOptions{Force: *force, UpdateSkipOnly: *skipOnly}
	if *skip != "" {
		value := store.ParseFlag(*skip)
		opts.SkipRemoteSync = &value
	}

	var info store.StorageInfo
	err := a.manager.Run("prompt-sync", func(ctx context.Context) error {
		var err error
		info, err = st.SyncLibrary(ctx, opts)
		return err
	})
	if err != nil {
		printError(a.errOut, err)
		return core.ExitCodeError
	}

	a.logger.Info("prompt library sync finished",
		zap.String("status", string(info.LastSyncStatus)),
		zap.Int("total", info.Total),
	)
	if info.SkipRemoteSync && !*force {
		dimColor.Fprintln(a.out, "○ Remote sync is disabled (use --force to fetch anyway)")
	}
	successColor.Fprintf(a.out, "✓ %d prompts", info.Total)
	dimColor.Fprintf(a.out, " · %s %s\n", orNone(string(info.LastSyncStatus)), info.LastSyncMessage)
	return core.ExitCodeSuccess
}

func promptsExport(a *app, st *store.Store, path string) int {
	items, err := st.ListPrompts(store.ListOptions{})
	if err != nil {
		printError(a.errOut, err)
		return core.ExitCodeError
	}
	presets := make([]store.Preset, 0, len(items))
	for _, item := range items {
		presets = append(presets, store.Preset{Title: item.Name, Content: item.Content})
	}
	if err := store.ExportPresets(path, presets); err != nil {
		printError(a.errOut, err)
		return core.ExitCodeError
	}
	successColor.Fprintf(a.out, "✓ Exported %d presets to %s\n", len(presets), path)
	return core.ExitCodeSuccess
}

func promptsImport(a *app, st *store.Store, path string) int {
	presets, err := store.ImportPresets(path)
	if err != nil {
		printError(a.errOut, err)
		return core.ExitCodeError
	}

	saved := 0
	for _, preset := range presets {
		if _, err := st.SavePrompt(store.SavePromptInput{Name: preset.Title, Content: preset.Content}); err != nil {
			a.logger.Warn("skipping preset", zap.String("title", preset.Title), zap.Error(err))
			continue
		}
		saved++
	}
	successColor.Fprintf(a.out, "✓ Imported %d of %d presets\n", saved, len(presets))
	return core.ExitCodeForCounts(saved, len(presets)-saved)
}

func runKeys(a *app, args []string) int {
	sub := "list"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		sub, args = args[0], args[1:]
	}

	fs := newFlagSet(a, "keys "+sub, keysPositional(sub))
	chat := fs.Bool("chat", false, "use the AI chat keys instead of the generation keys")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	ring := store.GenerationKeys
	if *chat {
		ring = store.ChatKeys
	}

	st, err := a.Store()
	if err != nil {
		printError(a.errOut, err)
		return core.ExitCodeError
	}

	switch sub {
	case "list":
		keys, err := st.ListKeys(ring)
		if err != nil {
			printError(a.errOut, err)
			return core.ExitCodeError
		}
		latest, _, err := st.LatestKey(ring)
		if err != nil {
			printError(a.errOut, err)
			return core.ExitCodeError
		}
		printHeader(a.out, fmt.Sprintf("API Keys (%d)", len(keys)))
		for _, key := range keys {
			marker := " "
			if key.Name == latest.Name {
				marker = "●"
			}
			successColor.Fprintf(a.out, "%s ", marker)
			printField(a.out, key.Name, logging.MaskKey(key.Value))
		}
	case "add":
		if fs.NArg() != 1 {
			return usageError(a, fs, "a key value is required")
		}
		entry, created, err := st.SaveKey(ring, fs.Arg(0))
		if err != nil {
			printError(a.errOut, err)
			return core.ExitCodeError
		}
		if !created {
			dimColor.Fprintf(a.out, "○ Key already saved as %q\n", entry.Name)
			break
		}
		successColor.Fprintf(a.out, "✓ Saved key %q\n", entry.Name)
	case "update":
		if fs.NArg() != 2 {
			return usageError(a, fs, "a key name and a new value are required")
		}
		entry, err := st.UpdateKey(ring, fs.Arg(0), fs.Arg(1))
		if err != nil {
			printError(a.errOut, err)
			return core.ExitCodeError
		}
		successColor.Fprintf(a.out, "✓ Updated key, now %q\n", entry.Name)
	case "delete":
		if fs.NArg() != 1 {
			return usageError(a, fs, "a key name is required")
		}
		deleted, err := st.DeleteKey(ring, fs.Arg(0))
		if err != nil {
			printError(a.errOut, err)
			return core.ExitCodeError
		}
		if !deleted {
			warnColor.Fprintf(a.out, "! No key named %q\n", fs.Arg(0))
			return core.ExitCodeError
		}
		successColor.Fprintf(a.out, "✓ Deleted key %q\n", fs.Arg(0))
	case "clear":
		if err := st.ClearKeys(ring); err != nil {
			printError(a.errOut, err)
			return core.ExitCodeError
		}
		successColor.Fprintln(a.out, "✓ Cleared all keys")
	default:
		failColor.Fprintf(a.errOut, "unknown keys command %q (want list, add, update, delete or clear)\n", sub)
		return core.ExitCodeUsage
	}
	return core.ExitCodeSuccess
}

func keysPositional(sub string) string {
	switch sub {
	case "add":
		return "VALUE"
	case "update":
		return "NAME VALUE"
	case "delete":
		return "NAME"
	}
	return ""
}

func runPrefs(a *app, args []string) int {
	fs := newFlagSet(a, "prefs", "")
	theme := fs.String("theme", "", "set the UI theme preset")
	notice := fs.String("notice", "", "set startup notice confirmed (1/true or 0/false)")
	custom := fs.String("custom", "", "set the custom feature flag (1/true or 0/false)")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	st, err := a.Store()
	if err != nil {
		printError(a.errOut, err)
		return core.ExitCodeError
	}

	if *theme != "" {
		if err := st.SetUIThemePreset(*theme); err != nil {
			printError(a.errOut, err)
			return core.ExitCodeError
		}
	}
	if *notice != "" {
		if _, err := st.SetStartupNoticeConfirmed(*notice); err != nil {
			printError(a.errOut, err)
			return core.ExitCodeError
		}
	}
	if *custom != "" {
		if _, err := st.SetCustomFeatureEnabled(*custom); err != nil {
			printError(a.errOut, err)
			return core.ExitCodeError
		}
	}

	prefs, err := st.Preferences()
	if err != nil {
		printError(a.errOut, err)
		return core.ExitCodeError
	}
	printHeader(a.out, "Preferences")
	printField(a.out, "theme", orNone(prefs.UIThemePreset))
	printField(a.out, "startup notice", prefs.StartupNoticeConfirmed)
	printField(a.out, "custom feature", prefs.CustomFeatureEnabled)
	printField(a.out, "skip remote sync", prefs.SkipRemoteSync)
	return core.ExitCodeSuccess
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
