package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/watanabe-1/rpc4next-sub000/internal/version"
	"github.com/watanabe-1/rpc4next-sub000/pkg/config"
	"github.com/watanabe-1/rpc4next-sub000/pkg/logger"
	"github.com/watanabe-1/rpc4next-sub000/pkg/scanner"
	"github.com/watanabe-1/rpc4next-sub000/pkg/watcher"
)

var generateCmd = &cobra.Command{
	Use:     "generate",
	Aliases: []string{"g", "gen"},
	Short:   "Generate the RPC path declaration",
	Long: `Scan the app directory and write the TypeScript path declaration.

Directories are classified by their Next.js segment syntax:
  [id]           dynamic param        -> key "_id"
  [...slug]      catch-all param      -> key "___slug"
  [[...slug]]    optional catch-all   -> key "_____slug"
  (group) @slot  spliced into the parent
  _private (.)x  ignored

Examples:
  rpc4next generate
  rpc4next generate --base-dir src/app --output src/rpc.ts
  rpc4next generate --params-file params.ts
  rpc4next generate --watch`,
	Run: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)

	def := config.Default()
	generateCmd.Flags().BoolP("watch", "w", false, "Watch the app directory and regenerate on change")
	generateCmd.Flags().StringP("base-dir", "b", def.BaseDir, "App directory to scan")
	generateCmd.Flags().StringP("output", "o", def.Output, "Generated declaration file")
	generateCmd.Flags().StringP("params-file", "p", "", "Write a params type file with this name next to each endpoint")
	generateCmd.Flags().Duration("debounce", def.Debounce, "Delay before regenerating in watch mode")
}

func runGenerate(cmd *cobra.Command, args []string) {
	cyan := color.New(color.FgCyan).SprintFunc()

	cfg := mustLoadConfig(cmd)
	log := newLogger(cfg)

	if !jsonOutput {
		fmt.Printf("\n  %s Generator\n\n", cyan("rpc4next"))
	}

	gen := scanner.NewGenerator(scanner.GeneratorConfig{
		AppDir:     cfg.BaseDir,
		OutputPath: cfg.Output,
		ParamsFile: cfg.ParamsFile,
		Logger:     log,
	})

	if cfg.Watch {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if err := runWatch(ctx, cfg, gen, log); err != nil {
			fail("watch failed", err)
		}
		return
	}

	log.Infof("Scanning %s...", cfg.BaseDir)
	result, err := gen.Generate()
	if err != nil {
		fail("generation failed", err)
	}

	if jsonOutput {
		printSuccess(generateOutput(gen, result))
		return
	}
	reportGenerate(log, gen, result)
	fmt.Println()
}

// runWatch regenerates once, then on every change until ctx is done.
func runWatch(ctx context.Context, cfg *config.Config, gen *scanner.Generator, log *logger.Logger) error {
	regenerate := func() {
		start := time.Now()
		result, err := gen.Generate()
		if err != nil {
			log.Errorf("Generation failed: %v", err)
			return
		}
		if result.Unchanged {
			log.Debugf("No changes")
			return
		}
		if jsonOutput {
			printSuccess(generateOutput(gen, result))
			return
		}
		reportGenerate(log, gen, result)
		log.Debugf("Done in %s", time.Since(start).Round(time.Millisecond))
	}

	w := watcher.New(gen.Scanner().AppDir(), gen.Scanner(), regenerate,
		watcher.WithDelay(cfg.Debounce),
		watcher.WithLogger(log),
	)
	if err := w.Run(ctx); err != nil {
		return err
	}
	log.Infof("Stopped watching")
	return nil
}

func generateOutput(gen *scanner.Generator, result *scanner.GenerateResult) GenerateOutput {
	files := result.GeneratedFiles
	if files == nil {
		files = []string{}
	}
	return GenerateOutput{
		Output:        gen.Scanner().OutputPath(),
		Files:         files,
		Endpoints:     len(scanner.Endpoints(result.ScanResult.Schema)),
		Imports:       len(scanner.SortedImports(result.ScanResult.Imports)),
		Params:        len(result.ScanResult.Params),
		SchemaVersion: version.GetGeneratorSchemaVersion(),
	}
}

func reportGenerate(log *logger.Logger, gen *scanner.Generator, result *scanner.GenerateResult) {
	endpoints := len(scanner.Endpoints(result.ScanResult.Schema))
	if len(result.GeneratedFiles) == 0 {
		log.Successf("%s is up to date (%d endpoints)", gen.Scanner().OutputPath(), endpoints)
		return
	}
	log.Successf("Generated %d files (%d endpoints)", len(result.GeneratedFiles), endpoints)
	for _, f := range result.GeneratedFiles {
		log.Infof("%s", f)
	}
}
