package models

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// NewCommand creates a Cobra command tree for model reconciliation.
// The returned command can be used as a root command or added to a parent
// CLI's root command.
//
// Commands provided:
//   - fetch [id]                    download artifacts
//   - load [id] [--list] [--force]  register artifacts in the database
//   - drop [id...] [--all] [--list] [-y]  deregister models
func NewCommand(cfg Config, opts ...Option) *cobra.Command {
	o := newOptions()
	for _, opt := range opts {
		opt(o)
	}

	if cfg.ManifestPath == "" {
		cfg.ManifestPath = filepath.Join("models", "models.json")
	}
	if cfg.ModelsDir == "" {
		cfg.ModelsDir = filepath.Dir(cfg.ManifestPath)
	}
	if cfg.DirectoryAlias == "" {
		cfg.DirectoryAlias = DefaultDirectoryAlias
	}

	cmd := &cobra.Command{
		Use:   "modelctl",
		Short: "Manage ONNX embedding models",
		Long: "Keep the ONNX models declared in models.json in sync with the local\n" +
			"artifact directory and the Oracle DBMS_VECTOR model registry.",
		SilenceUsage: true,
	}

	cmd.AddCommand(fetchCmd(cfg, o))
	cmd.AddCommand(loadCmd(cfg, o))
	cmd.AddCommand(dropCmd(cfg, o))

	return cmd
}

// output picks the injected writer, falling back to the command's stdout.
func output(cmd *cobra.Command, o *options) io.Writer {
	if o.out != nil {
		return o.out
	}
	return cmd.OutOrStdout()
}

// openRegistry returns the injected registry or connects to Oracle using
// environment configuration. The caller owns Close.
func openRegistry(ctx context.Context, cfg Config, o *options) (RegistryClient, error) {
	if o.registry != nil {
		return o.registry, nil
	}
	conn, err := LoadConnConfig()
	if err != nil {
		return nil, err
	}
	return Connect(ctx, conn, cfg.DirectoryAlias, o.logger)
}

func fetchCmd(cfg Config, o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch [id]",
		Short: "Download model artifacts",
		Long:  "Download the ONNX artifacts listed in the manifest. With no id, every manifest entry is fetched.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := output(cmd, o)

			man, err := LoadManifest(cfg.ManifestPath)
			if err != nil {
				return err
			}
			store, err := NewStore(cfg.ModelsDir, o.httpClient, o.logger)
			if err != nil {
				return err
			}

			targets, err := ResolveTargets(man, args)
			if err != nil {
				return err
			}

			plan := PlanFetch(store.Snapshot(targets), targets)

			fmt.Fprintf(out, "Fetching %d model(s)...\n\n", len(targets))
			sum := NewExecutor(store, nil, out, o.logger).Apply(ctx, plan)
			fmt.Fprintf(out, "\nDone: %d fetched, %d skipped, %d failed\n", sum.Succeeded, sum.Skipped, sum.Failed)

			if sum.Failed > 0 {
				return fmt.Errorf("%w: %d artifact(s) failed", ErrFetch, sum.Failed)
			}
			return nil
		},
	}
}

func loadCmd(cfg Config, o *options) *cobra.Command {
	var (
		list  bool
		force bool
	)

	cmd := &cobra.Command{
		Use:   "load [id]",
		Short: "Register artifacts in the database",
		Long: "Register local ONNX artifacts in the database model registry. With no id,\n" +
			"every manifest entry is registered. Load never downloads; fetch first.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := output(cmd, o)

			man, err := LoadManifest(cfg.ManifestPath)
			if err != nil {
				return err
			}
			store, err := NewStore(cfg.ModelsDir, o.httpClient, o.logger)
			if err != nil {
				return err
			}

			reg, err := openRegistry(ctx, cfg, o)
			if err != nil {
				return err
			}
			defer reg.Close()

			registered, err := reg.ListRegistered(ctx)
			if err != nil {
				return err
			}

			if list {
				printStatusTable(out, man, registered)
				return nil
			}

			targets, err := ResolveTargets(man, args)
			if err != nil {
				return err
			}

			plan := PlanLoad(store.Snapshot(targets), registered, targets, force)

			fmt.Fprintf(out, "Loading %d model(s)...\n\n", len(targets))
			sum := NewExecutor(store, reg, out, o.logger).Apply(ctx, plan)
			fmt.Fprintf(out, "\nDone: %d loaded, %d skipped, %d failed\n", sum.Succeeded, sum.Skipped, sum.Failed)

			if sum.Failed > 0 {
				return fmt.Errorf("%w: %d model(s) failed", ErrRegistry, sum.Failed)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&list, "list", false, "Print manifest vs registered status and exit")
	cmd.Flags().BoolVar(&force, "force", false, "Replace already-registered models (deregister then register)")
	return cmd
}

func dropCmd(cfg Config, o *options) *cobra.Command {
	var (
		all  bool
		list bool
		yes  bool
	)

	cmd := &cobra.Command{
		Use:   "drop [id...]",
		Short: "Deregister models from the database",
		Long: "Deregister models from the database model registry. With --all, every\n" +
			"registered name is dropped, including orphans not present in the manifest.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := output(cmd, o)

			// Usage validation happens before any I/O.
			if all && len(args) > 0 {
				return fmt.Errorf("%w: --all cannot be combined with explicit ids", ErrUsage)
			}
			if !all && !list && len(args) == 0 {
				cmd.Usage()
				return fmt.Errorf("%w: specify model ids, --all, or --list", ErrUsage)
			}

			man, err := LoadManifest(cfg.ManifestPath)
			if err != nil {
				return err
			}

			reg, err := openRegistry(ctx, cfg, o)
			if err != nil {
				return err
			}
			defer reg.Close()

			registered, err := reg.ListRegistered(ctx)
			if err != nil {
				return err
			}

			if list {
				printLoadedTable(out, man, registered)
				return nil
			}

			plan, err := PlanDrop(man, registered, args, all)
			if err != nil {
				return err
			}

			if !plan.Mutating() {
				// Surfaces the not-registered warnings, if any.
				NewExecutor(nil, reg, out, o.logger).Apply(ctx, plan)
				fmt.Fprintln(out, "No models to drop.")
				return nil
			}

			// Batch-level confirmation: the full resolved plan is shown
			// once before any deregistration executes.
			if !yes {
				n := printDropPreview(out, plan)
				approved, err := o.confirmer.Confirm(fmt.Sprintf("Drop %d model(s)?", n))
				if err != nil {
					return err
				}
				if !approved {
					fmt.Fprintln(out, "Aborted.")
					return nil
				}
			}

			fmt.Fprintln(out)
			sum := NewExecutor(nil, reg, out, o.logger).Apply(ctx, plan)
			fmt.Fprintf(out, "\nDone: %d dropped, %d skipped, %d failed\n", sum.Succeeded, sum.Skipped, sum.Failed)

			if sum.Failed > 0 {
				return fmt.Errorf("%w: %d model(s) failed", ErrRegistry, sum.Failed)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Drop every registered model, including orphans")
	cmd.Flags().BoolVar(&list, "list", false, "Print registered models and exit")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

// printDropPreview lists the pending deregistrations and returns their count.
func printDropPreview(w io.Writer, plan Plan) int {
	n := 0
	for _, a := range plan {
		if a.Kind != ActionDeregister {
			continue
		}
		n++
	}

	fmt.Fprintf(w, "Models to drop (%d):\n", n)
	for _, a := range plan {
		if a.Kind != ActionDeregister {
			continue
		}
		if a.Spec != nil {
			fmt.Fprintf(w, "  - %s (%s)\n", a.RegistryName, a.Spec.ID)
		} else {
			fmt.Fprintf(w, "  - %s (orphan)\n", a.RegistryName)
		}
	}
	return n
}

// Status values for the listing tables.
var (
	loadedStatus    = color.New(color.FgGreen).Sprint("loaded")
	notLoadedStatus = color.New(color.FgYellow).Sprint("not loaded")
)

// newStatusTable builds a borderless table in the house style.
func newStatusTable(w io.Writer, headers []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(headers)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	table.SetNoWhiteSpace(true)
	return table
}

// printStatusTable renders every manifest entry with its registration
// status, followed by any orphan registry entries.
func printStatusTable(w io.Writer, man *Manifest, registered RegistrySnapshot) {
	table := newStatusTable(w, []string{"ID", "STATUS", "DB MODEL NAME", "DESCRIPTION"})

	loaded := 0
	for _, spec := range man.Specs() {
		status := notLoadedStatus
		if registered.Has(spec.DBModelName) {
			status = loadedStatus
			loaded++
		}
		table.Append([]string{spec.ID, status, spec.DBModelName, spec.Description})
	}

	drift := ClassifyDrift(man, registered)
	for _, name := range drift.Orphans {
		table.Append([]string{"(unknown)", loadedStatus, name, "not in manifest"})
	}

	fmt.Fprintln(w)
	table.Render()
	fmt.Fprintf(w, "\n%d of %d manifest models loaded, %d orphan(s)\n", loaded, man.Len(), len(drift.Orphans))
}

// printLoadedTable renders only the currently registered models, manifest
// entries first, orphans last.
func printLoadedTable(w io.Writer, man *Manifest, registered RegistrySnapshot) {
	if len(registered) == 0 {
		fmt.Fprintln(w, "No models loaded.")
		return
	}

	drift := ClassifyDrift(man, registered)
	table := newStatusTable(w, []string{"ID", "DB MODEL NAME", "DESCRIPTION"})
	for _, spec := range drift.Known {
		table.Append([]string{spec.ID, spec.DBModelName, spec.Description})
	}
	for _, name := range drift.Orphans {
		table.Append([]string{"(unknown)", name, "not in manifest"})
	}

	fmt.Fprintln(w)
	table.Render()
	fmt.Fprintf(w, "\n%d model(s) loaded\n", len(registered))
}
