package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"shelfline/internal/config"
	"shelfline/internal/domain"
	"shelfline/internal/engine"
	"shelfline/internal/normalize"
	"shelfline/internal/render"
	"shelfline/internal/report"
	"shelfline/internal/server"
	"shelfline/internal/source"
)

var rootCmd = &cobra.Command{
	Use:   "sl",
	Short: "Shelfline CLI",
	Long: `Shelfline turns perishable-inventory batch records into a risk-prioritized view.
Each batch carries a manufacture date, expiry date, on-hand quantity and a mean
daily depletion rate (MDD). One run derives, per batch: days to expiry, the
quantity likely consumed before expiry, the expected waste, shelf-life age
percentages and a coarse risk tier (HIGH <= 30 days, MEDIUM <= 90, LOW above,
UNKNOWN when the expiry date is missing or unreadable).

Output goes three ways: colored tier tables and distribution charts on the
terminal, two derived CSV worklists on disk (priority and discard), and an
HTTP API for dashboards. Records with broken fields are never dropped; they
flow through tagged UNKNOWN so problem stock stays visible.`,
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("SHELFLINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory (holds shelfline.yml)")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func registerCommands() {
	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(showCmd())
	rootCmd.AddCommand(normalizeCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(configCmd())
}

func runCmd() *cobra.Command {
	var input, out, asOf string
	var noProgress bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline and write both worklists",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := buildEngine(asOf)
			if err != nil {
				return err
			}
			rows, err := readRows(cmd.Context(), e.Config, input)
			if err != nil {
				return err
			}
			if !noProgress && !viper.GetBool("json") {
				bar := progressbar.Default(int64(len(rows)))
				e.Progress = func(n int) { _ = bar.Add(n) }
			}
			res, err := e.Run(cmd.Context(), rows)
			if err != nil {
				return err
			}
			if out == "" {
				out = e.Config.Report.Dir
			}
			w := report.Writer{Dir: out, Log: e.Log}
			results := w.WriteWorklists(res.Priority, res.Discard, e.Config.Report.PriorityFile, e.Config.Report.DiscardFile)
			if viper.GetBool("json") {
				return printJSON(map[string]any{"result": res, "artifacts": artifactSummaries(results)})
			}
			renderResult(res)
			for _, r := range results {
				if r.Err != nil {
					fmt.Printf("%s: write failed: %v\n", r.Name, r.Err)
				} else {
					fmt.Printf("%s written to %s (%d rows)\n", r.Name, r.Path, r.Rows)
				}
			}
			return report.Err(results)
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "input path (CSV file or sqlite://db path)")
	cmd.Flags().StringVar(&out, "out", "", "output directory for worklist CSVs (defaults to config)")
	cmd.Flags().StringVar(&asOf, "as-of", "", "evaluation instant (RFC 3339 or feed date format); defaults to now")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "disable the progress bar")
	return cmd
}

func showCmd() *cobra.Command {
	var input, asOf string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Render tier tables and charts without writing reports",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := buildEngine(asOf)
			if err != nil {
				return err
			}
			rows, err := readRows(cmd.Context(), e.Config, input)
			if err != nil {
				return err
			}
			res, err := e.Run(cmd.Context(), rows)
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(res)
			}
			renderResult(res)
			return nil
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "input path (CSV file or sqlite://db path)")
	cmd.Flags().StringVar(&asOf, "as-of", "", "evaluation instant (RFC 3339 or feed date format); defaults to now")
	return cmd
}

func normalizeCmd() *cobra.Command {
	var input, output string
	cmd := &cobra.Command{
		Use:   "normalize",
		Short: "Pre-treat a raw feed into a clean comma-separated CSV",
		Long: `Applies the canonical field normalization to a raw delimiter-separated file:
quoting and grouping punctuation stripped from numerics per the configured
policy, date separators normalized to hyphens, empty fields dropped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOptional(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			in, err := os.Open(input)
			if err != nil {
				return fmt.Errorf("open input: %w", err)
			}
			defer in.Close()
			outF, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("create output: %w", err)
			}
			defer outF.Close()

			r := csv.NewReader(in)
			r.Comma = cfg.Delimiter()
			r.FieldsPerRecord = -1
			r.LazyQuotes = true
			w := csv.NewWriter(outF)
			rows := 0
			for {
				fields, err := r.Read()
				if errors.Is(err, io.EOF) {
					break
				}
				if err != nil {
					return fmt.Errorf("read row: %w", err)
				}
				if err := w.Write(normalize.CleanRow(fields, cfg.Normalize.Policy)); err != nil {
					return fmt.Errorf("write row: %w", err)
				}
				rows++
			}
			w.Flush()
			if err := w.Error(); err != nil {
				return err
			}
			fmt.Printf("%d rows normalized into %s\n", rows, output)
			return nil
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "raw input file")
	cmd.Flags().StringVar(&output, "output", "", "clean output file")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := buildEngine("")
			if err != nil {
				return err
			}
			handler, err := server.New(server.Config{Engine: e, BasePath: basePath})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving Shelfline API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n", addr, basePath, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	return cmd
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{
		Use:   "config",
		Short: "Manage shelfline.yml",
	}
	cfg.AddCommand(configInitCmd())
	cfg.AddCommand(configShowCmd())
	cfg.AddCommand(configValidateCmd())
	return cfg
}

func configInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default shelfline.yml into the workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", path)
			return nil
		},
	}
	return cmd
}

func configShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOptional(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(cfg)
			}
			out, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			fmt.Print(string(out))
			return nil
		},
	}
	return cmd
}

func configValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate shelfline.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(viper.GetString("workspace"))
			if err == nil {
				err = cfg.Validate()
			}
			if viper.GetBool("json") {
				return printJSON(map[string]any{"ok": err == nil, "error": fmt.Sprint(err)})
			}
			if err != nil {
				return err
			}
			fmt.Println("config OK")
			return nil
		},
	}
	return cmd
}

// --- helpers ---

func buildEngine(asOf string) (engine.Engine, error) {
	cfg, err := config.LoadOptional(viper.GetString("workspace"))
	if err != nil {
		return engine.Engine{}, err
	}
	log := logrus.New()
	if level, err := logrus.ParseLevel(cfg.Log.Level); err == nil {
		log.SetLevel(level)
	}
	e := engine.New(cfg, log)
	if asOf != "" {
		t, err := parseAsOf(asOf, cfg)
		if err != nil {
			return engine.Engine{}, err
		}
		e.Now = func() time.Time { return t }
	}
	return e, nil
}

func parseAsOf(raw string, cfg *config.Config) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	if t, ok := normalize.Date(raw, cfg.Normalize.DateOrder); ok {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("--as-of %q is not a date", raw)
}

func readRows(ctx context.Context, cfg *config.Config, input string) ([]domain.RawRow, error) {
	src, err := source.Open(cfg, input)
	if err != nil {
		return nil, err
	}
	return src.Read(ctx)
}

func renderResult(res engine.Result) {
	out := os.Stdout
	render.Summary(out, res.Summary)
	fmt.Fprintln(out)
	render.TierTables(out, engine.Partition(res.Records))
	render.Worklist(out, "Priority worklist", res.Priority)
	fmt.Fprintln(out)
	render.Worklist(out, "Discard worklist", res.Discard)
	fmt.Fprintln(out)
	render.TierBars(out, res.Summary.TierCounts)
	fmt.Fprintln(out)
	render.Histogram(out, "Age now (%)", res.Summary.AgeNowHistogram)
	fmt.Fprintln(out)
	render.Histogram(out, "Age at consumption end (%)", res.Summary.AgeEndHistogram)
}

func artifactSummaries(results []report.ArtifactResult) []map[string]any {
	out := make([]map[string]any, 0, len(results))
	for _, r := range results {
		m := map[string]any{"name": r.Name, "path": r.Path, "rows": r.Rows}
		if r.Err != nil {
			m["error"] = r.Err.Error()
		}
		out = append(out, m)
	}
	return out
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
