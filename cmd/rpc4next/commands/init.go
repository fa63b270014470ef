package commands

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/watanabe-1/rpc4next-sub000/pkg/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an rpc4next.yaml config file",
	Long: `Create rpc4next.yaml in the current directory.

The command asks for the app directory, the output file and the optional
params file name. Use --yes to accept the defaults without prompting.

Examples:
  rpc4next init
  rpc4next init --yes
  rpc4next init --force`,
	Run: runInit,
}

var (
	initYes   bool
	initForce bool
)

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().BoolVarP(&initYes, "yes", "y", false, "Accept defaults without prompting")
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite an existing config file")
}

func runInit(cmd *cobra.Command, args []string) {
	cyan := color.New(color.FgCyan).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	path := config.FileName + ".yaml"
	if configFile != "" {
		path = configFile
	}

	fs := afero.NewOsFs()
	if exists, _ := afero.Exists(fs, path); exists && !initForce {
		fail("config already exists", fmt.Errorf("%s (use --force to overwrite)", path))
	}

	if !jsonOutput {
		fmt.Printf("\n  %s Init\n\n", cyan("rpc4next"))
	}

	cfg := config.Default()
	if !initYes && !jsonOutput && isatty.IsTerminal(os.Stdin.Fd()) {
		if err := initForm(cfg).Run(); err != nil {
			fmt.Printf("  %s Cancelled\n", yellow("!"))
			return
		}
	}

	if err := config.Save(fs, path, cfg); err != nil {
		fail("failed to save config", err)
	}

	if jsonOutput {
		printSuccess(map[string]any{
			"file":   path,
			"config": cfg,
		})
		return
	}
	fmt.Printf("  %s Created %s\n\n", green("✓"), path)
	fmt.Printf("  Next: rpc4next generate --watch\n\n")
}

// initForm prompts for the values stored in cfg.
func initForm(cfg *config.Config) *huh.Form {
	required := func(name string) func(string) error {
		return func(s string) error {
			if strings.TrimSpace(s) == "" {
				return errors.New(name + " is required")
			}
			return nil
		}
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("App directory").
				Description("Directory containing the Next.js app router").
				Validate(required("app directory")).
				Value(&cfg.BaseDir),
			huh.NewInput().
				Title("Output file").
				Description("Where the generated path declaration is written").
				Validate(required("output file")).
				Value(&cfg.Output),
			huh.NewInput().
				Title("Params file name").
				Description("Optional file written next to each endpoint with route params (e.g., params.ts)").
				Value(&cfg.ParamsFile),
		),
	)
}
