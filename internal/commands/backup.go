package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hostsolo/hostsolo/internal/ui"
	"github.com/hostsolo/hostsolo/pkg/backup"
	"github.com/hostsolo/hostsolo/pkg/errdefs"
)

func newBackupCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Manage backups",
	}

	var nowEnv string
	now := &cobra.Command{
		Use:   "now APP",
		Short: "Back up an app's data immediately",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.backupNow(cmd.Context(), args[0], nowEnv)
		},
	}
	now.Flags().StringVarP(&nowEnv, "env", "e", DefaultEnv, "target environment")

	var listEnv string
	var limit int
	list := &cobra.Command{
		Use:   "list APP",
		Short: "List available backups",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.backupList(cmd.Context(), args[0], listEnv, limit)
		},
	}
	list.Flags().StringVarP(&listEnv, "env", "e", DefaultEnv, "target environment")
	list.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of backups to show")

	var restoreEnv, restoreTS string
	var restoreForce bool
	restore := &cobra.Command{
		Use:   "restore APP",
		Short: "Restore an app's data from a backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.backupRestore(cmd.Context(), args[0], restoreEnv, restoreTS, restoreForce)
		},
	}
	restore.Flags().StringVarP(&restoreEnv, "env", "e", DefaultEnv, "target environment")
	restore.Flags().StringVarP(&restoreTS, "timestamp", "t", "", "backup timestamp to restore")
	restore.Flags().BoolVarP(&restoreForce, "force", "f", false, "skip confirmation")
	_ = restore.MarkFlagRequired("timestamp")

	var deleteEnv, deleteTS string
	var deleteForce bool
	del := &cobra.Command{
		Use:   "delete APP",
		Short: "Delete a backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.backupDelete(cmd.Context(), args[0], deleteEnv, deleteTS, deleteForce)
		},
	}
	del.Flags().StringVarP(&deleteEnv, "env", "e", DefaultEnv, "target environment")
	del.Flags().StringVarP(&deleteTS, "timestamp", "t", "", "backup timestamp to delete")
	del.Flags().BoolVarP(&deleteForce, "force", "f", false, "skip confirmation")
	_ = del.MarkFlagRequired("timestamp")

	var scheduleEnv string
	var runs int
	schedule := &cobra.Command{
		Use:   "schedule",
		Short: "Show upcoming backup runs and a crontab line",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.backupSchedule(scheduleEnv, runs)
		},
	}
	schedule.Flags().StringVarP(&scheduleEnv, "env", "e", DefaultEnv, "environment used in the crontab line")
	schedule.Flags().IntVarP(&runs, "next", "n", 5, "number of upcoming runs to show")

	cmd.AddCommand(now, list, restore, del, schedule)
	return cmd
}

// backupTarget validates app and env and resolves the app's backup paths.
func (a *App) backupTarget(appName, envName string) (*workspace, []string, []string, error) {
	ws, err := a.load()
	if err != nil {
		return nil, nil, nil, err
	}
	spec, err := ws.cfg.App(appName)
	if err != nil {
		return nil, nil, nil, err
	}
	if _, err := ws.cfg.Environment(envName); err != nil {
		return nil, nil, nil, err
	}
	if len(spec.BackupPaths) == 0 {
		return nil, nil, nil, errdefs.Invalid("apps."+appName+".backup_paths", "no backup paths configured for "+appName)
	}
	existing, missing := backup.ResolvePaths(ws.layout.Root, spec.BackupPaths, envName)
	return ws, existing, missing, nil
}

func validateTimestamp(ts string) error {
	if _, err := backup.ParseTimestamp(ts); err != nil {
		return errdefs.Invalid("timestamp", fmt.Sprintf("%q is not a backup timestamp (expected %s)", ts, backup.TimestampFormat))
	}
	return nil
}

func (a *App) backupNow(ctx context.Context, appName, envName string) error {
	ws, paths, missing, err := a.backupTarget(appName, envName)
	if err != nil {
		return err
	}
	for _, p := range missing {
		a.warnf("Backup path does not exist: %s", p)
	}
	if len(paths) == 0 {
		return errdefs.NotFound("backup paths", appName)
	}

	provider, err := a.backupProvider(ws)
	if err != nil {
		return err
	}

	// Transfers run for as long as the data takes; only an interrupt stops them.
	ts := backup.Timestamp(a.now())
	a.printf("💾 Creating backup for %s (%s)...\n", appName, envName)
	a.printf("   Timestamp: %s\n", ts)

	total := 0
	for _, p := range paths {
		key := backup.Key(envName, appName, ts, backup.RootName(p))
		a.printf("   Backing up: %s\n", p)
		n, err := provider.UploadDirectory(ctx, p, key)
		if err != nil {
			return fmt.Errorf("failed to back up %s: %w", p, err)
		}
		total += n
		a.printf("✅ Uploaded %d file%s to %s/\n", n, ui.Plural(n), key)
	}

	a.logger().Infow("backup created", "app", appName, "env", envName, "timestamp", ts, "files", total)
	a.println("✅ Backup complete")
	return nil
}

func (a *App) backupList(ctx context.Context, appName, envName string, limit int) error {
	ws, err := a.load()
	if err != nil {
		return err
	}
	if _, err := ws.cfg.App(appName); err != nil {
		return err
	}
	provider, err := a.backupProvider(ws)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, ProviderTimeout)
	defer cancel()

	objects, err := provider.List(ctx, backup.Prefix(envName, appName))
	if err != nil {
		return fmt.Errorf("failed to list backups: %w", err)
	}

	a.printf("💾 Backups for %s (%s)\n", appName, envName)
	a.println()

	snapshots := backup.Group(objects)
	if len(snapshots) == 0 {
		a.println("   No backups found")
		return nil
	}
	if limit > 0 && len(snapshots) > limit {
		snapshots = snapshots[:limit]
	}

	table := ui.NewTable("TIMESTAMP", "FILES", "SIZE", "PATHS")
	for _, s := range snapshots {
		table.Row(s.Timestamp, strconv.Itoa(len(s.Objects)), ui.FormatBytes(s.Size()), strings.Join(s.Roots(), ", "))
	}
	table.Print(a.Out)
	return nil
}

func (a *App) backupRestore(ctx context.Context, appName, envName, ts string, force bool) error {
	if err := validateTimestamp(ts); err != nil {
		return err
	}
	ws, existing, missing, err := a.backupTarget(appName, envName)
	if err != nil {
		return err
	}
	// Missing paths are valid restore targets.
	paths := append(existing, missing...)

	provider, err := a.backupProvider(ws)
	if err != nil {
		return err
	}

	if !force {
		a.println("⚠️  This will overwrite existing data in:")
		for _, p := range paths {
			a.printf("   %s\n", p)
		}
		if !a.confirm("Continue?") {
			a.println("\n✅ Restore cancelled")
			return nil
		}
	}

	a.printf("💾 Restoring %s (%s) from %s...\n", appName, envName, ts)
	restored := 0
	for _, p := range paths {
		root := backup.RootName(p)
		prefix := backup.Key(envName, appName, ts, root) + "/"
		a.printf("   Restoring: %s → %s\n", prefix, p)

		n, err := restorePath(ctx, provider, prefix, root, p)
		if err != nil {
			return fmt.Errorf("failed to restore %s: %w", p, err)
		}
		if n == 0 {
			a.warnf("Nothing stored under %s", prefix)
			continue
		}
		restored += n
		a.printf("✅ Restored %d file%s into %s\n", n, ui.Plural(n), p)
	}
	if restored == 0 {
		return errdefs.NotFound("backup", backup.SnapshotPrefix(envName, appName, ts))
	}

	a.logger().Infow("backup restored", "app", appName, "env", envName, "timestamp", ts, "files", restored)
	a.println("✅ Restore complete")
	a.println()
	a.printf("💡 You may need to restart the app: hostsolo deploy restart %s --env %s\n", appName, envName)
	return nil
}

// restorePath downloads one backed-up path. A path that was a single file
// is stored as prefix+root and is written back as a file.
func restorePath(ctx context.Context, provider backup.Provider, prefix, root, localPath string) (int, error) {
	listCtx, cancel := context.WithTimeout(ctx, ProviderTimeout)
	objects, err := provider.List(listCtx, prefix)
	cancel()
	if err != nil {
		return 0, err
	}
	if len(objects) == 1 && objects[0].Key == prefix+root {
		if err := provider.DownloadFile(ctx, objects[0].Key, localPath); err != nil {
			return 0, err
		}
		return 1, nil
	}
	if len(objects) == 0 {
		return 0, nil
	}
	return provider.DownloadDirectory(ctx, prefix, localPath)
}

func (a *App) backupDelete(ctx context.Context, appName, envName, ts string, force bool) error {
	if err := validateTimestamp(ts); err != nil {
		return err
	}
	ws, err := a.load()
	if err != nil {
		return err
	}
	if _, err := ws.cfg.App(appName); err != nil {
		return err
	}
	provider, err := a.backupProvider(ws)
	if err != nil {
		return err
	}

	if !force && !a.confirm(fmt.Sprintf("⚠️  Delete backup %s for %s (%s)?", ts, appName, envName)) {
		a.println("\n✅ Deletion cancelled")
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, ProviderTimeout)
	defer cancel()

	a.printf("🗑️  Deleting backup %s...\n", ts)
	n, err := provider.Delete(ctx, backup.SnapshotPrefix(envName, appName, ts))
	if err != nil {
		return fmt.Errorf("failed to delete backup: %w", err)
	}
	if n == 0 {
		return errdefs.NotFound("backup", backup.SnapshotPrefix(envName, appName, ts))
	}
	a.logger().Infow("backup deleted", "app", appName, "env", envName, "timestamp", ts, "objects", n)
	a.printf("✅ Backup deleted (%d object%s)\n", n, ui.Plural(n))
	return nil
}

func (a *App) backupSchedule(envName string, n int) error {
	ws, err := a.load()
	if err != nil {
		return err
	}
	if _, err := ws.cfg.Environment(envName); err != nil {
		return err
	}
	if n <= 0 {
		n = 1
	}

	runs, err := ws.cfg.NextBackupRuns(a.now(), n)
	if err != nil {
		return err
	}

	a.printf("💾 Backup schedule: %s\n", ws.cfg.Backup.Schedule)
	a.println(ui.Divider)
	a.println()
	a.printf("⏰ Next %d run%s:\n", len(runs), ui.Plural(len(runs)))
	for _, r := range runs {
		a.printf("   %s\n", r.Format("2006-01-02 15:04 MST"))
	}
	a.println()

	var apps []string
	for _, name := range ws.cfg.Apps.Keys() {
		spec, _ := ws.cfg.Apps.Get(name)
		if len(spec.BackupPaths) > 0 {
			apps = append(apps, name)
		}
	}
	if len(apps) == 0 {
		a.println("💡 No apps have backup_paths configured")
		return nil
	}

	a.println("💡 Add to crontab (crontab -e):")
	for _, name := range apps {
		a.printf("   %s cd %s && hostsolo backup now %s --env %s >> .hostsolo/logs/backup.log 2>&1\n",
			ws.cfg.Backup.Schedule, ws.layout.Root, name, envName)
	}
	return nil
}
