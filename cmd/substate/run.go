package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/wasmflow/substate/host"
	"github.com/wasmflow/substate/manifest"
	"github.com/wasmflow/substate/pbsubstate"
	"github.com/wasmflow/substate/state"
)

type runOptions struct {
	*rootOptions
	InputFile string
	EnvFile   string
	Watch     bool
}

func newRunCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &runOptions{rootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <manifest> <module>",
		Short: "Execute one module handler locally",
		Long: `Execute a module handler from a manifest against a local payload.

Map modules print their output payload; store modules print the state
deltas produced by the run. Store inputs are backed by fresh empty
stores, so handlers observe the same state they would on the first
block of a range.

Example:
  substate run ./substate.yaml map_transfers --input block.bin
  substate run ./substate.yaml store_balances --input block.bin --watch`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runModule(cmd, opts, args[0], args[1])
		},
	}

	cmd.Flags().StringVar(&opts.InputFile, "input", "", "path to the source input payload")
	cmd.Flags().StringVar(&opts.EnvFile, "env", "", "path to a .env file (default: ./.env if present)")
	cmd.Flags().BoolVar(&opts.Watch, "watch", false, "re-run when the wasm binary changes")

	return cmd
}

func runModule(cmd *cobra.Command, opts *runOptions, manifestPath, moduleName string) error {
	loadEnv(opts.EnvFile)

	man, err := manifest.Load(manifestPath)
	if err != nil {
		return err
	}
	mod := man.ModuleNamed(moduleName)
	if mod == nil {
		return fmt.Errorf("module %q not found in %s", moduleName, manifestPath)
	}

	binPath, err := man.BinaryFor(mod)
	if err != nil {
		return err
	}
	if !filepath.IsAbs(binPath) {
		binPath = filepath.Join(filepath.Dir(manifestPath), binPath)
	}

	var payload []byte
	if opts.InputFile != "" {
		payload, err = os.ReadFile(opts.InputFile)
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if err := executeOnce(ctx, cmd, mod, binPath, payload); err != nil {
		if !opts.Watch {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
	}
	if !opts.Watch {
		return nil
	}
	return watchAndRerun(ctx, cmd, mod, binPath, payload)
}

// loadEnv loads an env file if one is named or a ./.env exists. A missing
// default file is not an error.
func loadEnv(path string) {
	if path != "" {
		if err := godotenv.Load(path); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
		return
	}
	if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load()
	}
}

func executeOnce(ctx context.Context, cmd *cobra.Command, mod *manifest.Module, binPath string, payload []byte) error {
	wasmBytes, err := os.ReadFile(binPath)
	if err != nil {
		return fmt.Errorf("read wasm: %w", err)
	}

	rt, err := host.NewRuntime(ctx, nil)
	if err != nil {
		return err
	}
	defer rt.Close(ctx)

	guest, err := rt.Load(ctx, wasmBytes)
	if err != nil {
		return err
	}
	inst, err := guest.Instantiate(ctx)
	if err != nil {
		return err
	}
	defer inst.Close(ctx)

	var writer *state.Store
	if mod.Kind == manifest.KindStore {
		writer = state.NewStore(mod.Name)
	}
	registry := state.NewRegistry()

	inputs := make([]host.Input, 0, len(mod.Inputs))
	for _, in := range mod.Inputs {
		switch {
		case in.Source != "" || in.Map != "":
			inputs = append(inputs, host.BytesInput(payload))
		case in.Mode == manifest.ModeDeltas:
			inputs = append(inputs, host.DeltasInput(&pbsubstate.StoreDeltas{}))
		default:
			idx := registry.Add(state.NewStore(in.Store))
			inputs = append(inputs, host.StoreInput(idx))
		}
	}

	sess := host.NewSession(writer, registry)
	if err := inst.Execute(ctx, sess, mod.Name, inputs...); err != nil {
		return err
	}

	for _, line := range sess.LogLines() {
		fmt.Fprintf(cmd.OutOrStdout(), "log: %s\n", line)
	}

	if mod.Kind == manifest.KindMap {
		printOutput(cmd, sess)
	} else {
		printDeltas(cmd, writer.Flush())
	}
	return nil
}

func printOutput(cmd *cobra.Command, sess *host.Session) {
	out, ok := sess.Output()
	if !ok {
		fmt.Fprintln(cmd.OutOrStdout(), "No output emitted.")
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Output (%d bytes):\n%s\n", len(out), hex.Dump(out))
}

func printDeltas(cmd *cobra.Command, deltas *pbsubstate.StoreDeltas) {
	if len(deltas.Deltas) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No deltas produced.")
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deltas (%d):\n", len(deltas.Deltas))
	for _, d := range deltas.Deltas {
		fmt.Fprintf(cmd.OutOrStdout(), "  %-6s ord=%d key=%q old=%q new=%q\n",
			d.Operation, d.Ordinal, d.Key, d.OldValue, d.NewValue)
	}
}

// watchAndRerun re-executes the module whenever its wasm file is
// rewritten. Editors and build tools often replace the file, so the
// watch sits on the directory and filters by name.
func watchAndRerun(ctx context.Context, cmd *cobra.Command, mod *manifest.Module, binPath string, payload []byte) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(binPath)); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	fmt.Fprintf(cmd.OutOrStdout(), "Watching %s. Press Ctrl-C to stop.\n", binPath)
	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Name != binPath || !ev.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\n%s changed, re-running %s\n", filepath.Base(binPath), mod.Name)
			if err := executeOnce(ctx, cmd, mod, binPath, payload); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Watch error: %v\n", err)
		case <-sigCh:
			return nil
		case <-ctx.Done():
			return nil
		}
	}
}
