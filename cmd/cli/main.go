package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"gaussfit/adapters/api"
	"gaussfit/adapters/excel"
	"gaussfit/adapters/report"
	"gaussfit/app"
	"gaussfit/domain/marks"
	"gaussfit/internal"
	"gaussfit/internal/config"
	"gaussfit/internal/errors"
	"gaussfit/internal/histogram"
	"gaussfit/internal/profiling"
	"gaussfit/internal/sample"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// cliState is the configuration shared by every subcommand
type cliState struct {
	cfg    *config.Config
	logger *internal.Logger
}

func newRootCmd() *cobra.Command {
	state := &cliState{}

	rootCmd := &cobra.Command{
		Use:           "gaussfit",
		Short:         "Fit a Gaussian to a set of examination marks",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// A missing .env file is fine; the environment is used as is
			_ = godotenv.Load()

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			state.cfg = cfg
			state.logger = internal.NewLogger(internal.ParseLogLevel(cfg.LogLevel))
			return nil
		},
	}

	rootCmd.AddCommand(
		newAnalyzeCmd(state),
		newSuggestWidthCmd(state),
		newServeCmd(state),
	)
	return rootCmd
}

func newAnalyzeCmd(state *cliState) *cobra.Command {
	var (
		clamp    bool
		rescale  string
		factor   float64
		mean     float64
		sd       float64
		binWidth string
		format   string
		out      string
	)

	cmd := &cobra.Command{
		Use:   "analyze FILE",
		Short: "Run the full analysis on a marks file",
		Long: `Run descriptive statistics, the probability plot regression and the simplex fit
of a Gaussian to the histogram of a marks file.

FILE is a text file (title line, then marks on one delimited line or one per line),
a CSV or an Excel workbook (title in the first cell, marks in the first column).
Use "-" to read text from standard input.

Example: gaussfit analyze marks.txt --rescale target --mean 60 --sd 12 --format html --out report.html`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := app.OptionsFromConfig(state.cfg)

			flags := cmd.Flags()
			if flags.Changed("clamp") {
				opts.ClampOutOfRange = clamp
			}
			if flags.Changed("rescale") {
				mode, err := marks.ParseRescaleMode(rescale)
				if err != nil {
					return errors.InvalidInput(err.Error())
				}
				opts.Rescale.Mode = mode
			}
			if flags.Changed("factor") {
				opts.Rescale.Factor = factor
			}
			if flags.Changed("mean") {
				opts.Rescale.Mean = mean
			}
			if flags.Changed("sd") {
				opts.Rescale.SD = sd
			}
			if flags.Changed("bin-width") {
				w, err := config.ParseBinWidth(binWidth)
				if err != nil {
					return err
				}
				opts.BinWidth = w
			}
			if err := validateRescale(opts.Rescale); err != nil {
				return err
			}

			mf, err := readMarks(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}

			analysis, err := app.NewAnalysisService(state.logger).Run(mf.Title, mf.Tokens, opts)
			if err != nil {
				return err
			}
			return writeReport(cmd.OutOrStdout(), analysis, format, out)
		},
	}

	cmd.Flags().BoolVar(&clamp, "clamp", false, "Clamp marks outside [0, 100] instead of only reporting them")
	cmd.Flags().StringVar(&rescale, "rescale", "none", "Rescaling: none, multiplicative, additive or target")
	cmd.Flags().Float64Var(&factor, "factor", 1, "Factor for multiplicative or additive rescaling")
	cmd.Flags().Float64Var(&mean, "mean", 0, "Target mean for target rescaling")
	cmd.Flags().Float64Var(&sd, "sd", 0, "Target standard deviation for target rescaling")
	cmd.Flags().StringVar(&binWidth, "bin-width", "auto", `Histogram bin width, or "auto" for the suggested width`)
	cmd.Flags().StringVar(&format, "format", "text", "Report format: text, markdown, html or xlsx")
	cmd.Flags().StringVar(&out, "out", "", "Write the report to this path instead of standard output")

	return cmd
}

func newSuggestWidthCmd(state *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "suggest-width FILE",
		Short: "Print the suggested histogram bin width for a marks file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mf, err := readMarks(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			s, err := sample.ParseTokens(mf.Title, mf.Tokens)
			if err != nil {
				return errors.InStep(app.StepParse, err)
			}
			values := s.Values()
			width := histogram.SuggestWidth(profiling.StandardDeviation(values), len(values))
			fmt.Fprintf(cmd.OutOrStdout(), "%g\n", width)
			return nil
		},
	}
}

func newServeCmd(state *cliState) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the analysis HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("port") {
				port = state.cfg.Server.Port
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			service := app.NewAnalysisService(state.logger)
			server := api.NewServer(service, app.OptionsFromConfig(state.cfg), state.cfg.Server.MaxConcurrentAnalyses, state.logger)
			return server.ListenAndServe(ctx, port)
		},
	}

	cmd.Flags().StringVar(&port, "port", config.DefaultPort, "Port to listen on")
	return cmd
}

func readMarks(stdin io.Reader, path string) (*excel.MarksFile, error) {
	if path == "-" {
		return excel.ReadText(stdin)
	}
	return excel.NewMarksReader(path).Read()
}

// validateRescale checks flag combinations after the environment and flags are merged
func validateRescale(spec marks.RescaleSpec) error {
	cfg := config.Default()
	cfg.Analysis.Rescale = spec
	if err := cfg.Validate(); err != nil {
		return errors.WithCode(errors.CodeInvalidInput, err)
	}
	return nil
}

func writeReport(stdout io.Writer, a *app.Analysis, format, out string) error {
	format = strings.ToLower(format)
	if format == "xlsx" {
		if out == "" {
			return errors.InvalidInput("the xlsx format needs --out")
		}
		return report.WriteXLSX(out, a)
	}

	w := stdout
	if out != "" {
		f, err := os.Create(out)
		if err != nil {
			return errors.Wrap(err, "failed to create report file")
		}
		defer f.Close()
		w = f
	}

	switch format {
	case "text", "txt":
		return report.WriteText(w, a)
	case "markdown", "md":
		_, err := io.WriteString(w, report.Markdown(a))
		return err
	case "html":
		_, err := w.Write(report.HTML(a))
		return err
	}
	return errors.InvalidInput("unknown report format " + format)
}
