package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/LexxLuey/fascraft/internal/depgraph"
	"github.com/LexxLuey/fascraft/internal/observability"
	"github.com/LexxLuey/fascraft/internal/snapshot"
)

func newSnapshotCmd(a *app) *cobra.Command {
	snapshotCmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Record and compare the project graph over time",
	}

	var tag, description string
	saveCmd := &cobra.Command{
		Use:   "save",
		Short: "Save the current project graph",
		Args:  cobra.NoArgs,
		RunE: a.runE(func(ctx context.Context, args []string) error {
			return a.snapshotSave(ctx, tag, description)
		}),
	}
	saveCmd.Flags().StringVar(&tag, "tag", "", "Tag to refer to the snapshot by")
	saveCmd.Flags().StringVar(&description, "description", "", "Free-form description")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List saved snapshots, newest first",
		Args:  cobra.NoArgs,
		RunE: a.runE(func(ctx context.Context, args []string) error {
			store, err := a.openSnapshots()
			if err != nil {
				return err
			}
			summaries := store.List()
			if len(summaries) == 0 {
				a.printf("No snapshots\n")
				return nil
			}
			for _, s := range summaries {
				a.printf("%s  %-12s %-16s %s  modules=%d deps=%d cycles=%d\n",
					s.ID[:8], s.Tag, s.Project, s.CreatedAt.Format("2006-01-02 15:04:05"),
					s.ModuleCount, s.DependencyCount, s.CircularChains)
			}
			return nil
		}),
	}

	var diffJSON bool
	diffCmd := &cobra.Command{
		Use:   "diff <old> [new]",
		Short: "Compare two snapshots, or a snapshot with the current project graph",
		Long: "Snapshots are referenced by id, tag or \"latest\". With one argument\n" +
			"the snapshot is compared against the graph built from the manifest.",
		Args: cobra.RangeArgs(1, 2),
		RunE: a.runE(func(ctx context.Context, args []string) error {
			return a.snapshotDiff(ctx, args, diffJSON)
		}),
	}
	diffCmd.Flags().BoolVar(&diffJSON, "json", false, "Output the diff as JSON")

	snapshotCmd.AddCommand(saveCmd, listCmd, diffCmd)
	return snapshotCmd
}

func (a *app) snapshotSave(ctx context.Context, tag, description string) error {
	m, g, err := a.loadProject()
	if err != nil {
		return err
	}
	_, span := observability.StartSnapshotSpan(ctx, "save")
	defer span.End()

	store, err := a.openSnapshots()
	if err != nil {
		observability.RecordError(span, err)
		return err
	}
	snap, err := snapshot.NewSnapshot(m.Name, g)
	if err != nil {
		observability.RecordError(span, err)
		return err
	}
	snap.Tag = tag
	snap.Description = description
	if err := store.Save(snap); err != nil {
		observability.RecordError(span, err)
		return err
	}
	a.logger.Debug("snapshot saved", "id", snap.ID, "hash", snap.ContentHash)
	a.printf("Saved snapshot %s (%d modules, %d dependencies)\n", snap.ID, snap.ModuleCount, snap.DependencyCount)
	return nil
}

func (a *app) snapshotDiff(ctx context.Context, refs []string, jsonOutput bool) error {
	_, span := observability.StartSnapshotSpan(ctx, "diff")
	defer span.End()

	store, err := a.openSnapshots()
	if err != nil {
		return err
	}
	old, err := store.Resolve(refs[0])
	if err != nil {
		observability.RecordError(span, err)
		return err
	}

	var d *snapshot.GraphDiff
	if len(refs) == 2 {
		newer, err := store.Resolve(refs[1])
		if err != nil {
			observability.RecordError(span, err)
			return err
		}
		d, err = snapshot.Diff(old, newer)
		if err != nil {
			return err
		}
	} else {
		var g *depgraph.DependencyGraph
		if _, g, err = a.loadProject(); err != nil {
			return err
		}
		if d, err = snapshot.DiffDocuments(old.Document, g.Document()); err != nil {
			return err
		}
		d.OldID, d.OldTag = old.ID, old.Tag
	}

	if jsonOutput {
		return a.printJSON(d)
	}
	_, err = fmt.Fprint(a.out, snapshot.FormatDiff(d))
	return err
}
