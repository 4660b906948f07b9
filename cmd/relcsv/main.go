package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/tordrt/relcsv"
	"github.com/tordrt/relcsv/internal/config"
	"github.com/tordrt/relcsv/internal/logging"
	"github.com/tordrt/relcsv/internal/schema"
	"github.com/tordrt/relcsv/internal/value"
)

var (
	outDir       string
	noCSV        bool
	compress     bool
	manifest     bool
	printTree    bool
	dbURL        string
	mysqlURL     string
	sqlitePath   string
	schemaName   string
	schemaOut    string
	schemaDir    string
	format       string
	shapePolicy  string
	fkPolicy     string
	maxSchemas   int
	parentColumn string
	seqColumn    string
	configPath   string
	logLevel     string
	logFormat    string
)

var rootCmd = &cobra.Command{
	Use:   "relcsv <input>",
	Short: "Decompose a JSON or YAML document into relational CSV tables",
	Long: `relcsv infers one table per distinct object shape in a JSON or YAML document and writes every object as a row,
linking nested objects and array elements to their parent row. Rows go to CSV files and, optionally, to PostgreSQL, MySQL or SQLite.`,
	Args:          cobra.ExactArgs(1),
	RunE:          run,
	SilenceErrors: true,
}

func init() {
	registerFlags(rootCmd)
}

func registerFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&outDir, "out-dir", "d", ".", "Directory for the CSV files")
	cmd.Flags().BoolVar(&noCSV, "no-csv", false, "Do not write CSV files")
	cmd.Flags().BoolVar(&compress, "compress", false, "Write xz-compressed .csv.xz files")
	cmd.Flags().BoolVar(&manifest, "manifest", false, "Write _manifest.txt with a BLAKE3 digest per file")
	cmd.Flags().BoolVar(&printTree, "print-tree", false, "Print the parsed document tree to stdout")
	cmd.Flags().StringVar(&dbURL, "db-url", "", "PostgreSQL connection string to load rows into")
	cmd.Flags().StringVar(&mysqlURL, "mysql-url", "", "MySQL connection string to load rows into")
	cmd.Flags().StringVar(&sqlitePath, "sqlite", "", "SQLite database file to load rows into")
	cmd.Flags().StringVarP(&schemaName, "schema", "s", "public", "Database schema name (PostgreSQL only)")
	cmd.Flags().StringVarP(&schemaOut, "schema-out", "o", "", "Describe the inferred tables in this file (- for stdout)")
	cmd.Flags().StringVar(&schemaDir, "schema-dir", "", "Describe the inferred tables in one file per table in this directory")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Description format: text or markdown")
	cmd.Flags().StringVar(&shapePolicy, "shape-policy", string(schema.ShapeOnly), "When objects share a table: shape or shape+origin")
	cmd.Flags().StringVar(&fkPolicy, "fk-policy", string(schema.FirstRegistered), "Which table an _id column references: first or name")
	cmd.Flags().IntVar(&maxSchemas, "max-schemas", schema.DefaultMaxSchemas, "Maximum number of object tables (0 for no limit)")
	cmd.Flags().StringVar(&parentColumn, "parent-column", "parent_id", "Name of the parent link column")
	cmd.Flags().StringVar(&seqColumn, "seq-column", "seq", "Name of the array position column")
	cmd.Flags().StringVar(&configPath, "config", "", "YAML configuration file")
	cmd.Flags().StringVar(&logLevel, "log-level", "warn", "Log level: debug, info, warn or error")
	cmd.Flags().StringVar(&logFormat, "log-format", "text", "Log format: text or json")
}

func run(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	if configPath != "" {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		applyConfig(cmd, cfg)
	}

	if err := initLogging(cmd.ErrOrStderr()); err != nil {
		return err
	}

	databaseURL, err := selectDatabase()
	if err != nil {
		return err
	}

	if schemaOut != "" && schemaDir != "" {
		return fmt.Errorf("cannot use both --schema-out and --schema-dir flags")
	}

	root, err := relcsv.ParseFile(args[0])
	if err != nil {
		return err
	}
	logging.Debug("document parsed", "path", args[0], "pairs", root.Len())

	if printTree {
		if err := value.Dump(cmd.OutOrStdout(), root); err != nil {
			return fmt.Errorf("failed to print tree: %w", err)
		}
	}

	ctx = logging.WithRunID(ctx, logging.NewRunID())

	report, err := relcsv.Convert(ctx, root, &relcsv.Options{
		ShapePolicy:  shapePolicy,
		FKPolicy:     fkPolicy,
		MaxSchemas:   &maxSchemas,
		ParentColumn: parentColumn,
		SeqColumn:    seqColumn,
	}, &relcsv.OutputOptions{
		OutputDir:   outDir,
		NoCSV:       noCSV,
		Compress:    compress,
		Manifest:    manifest,
		DatabaseURL: databaseURL,
		SchemaName:  schemaName,
	})
	if err != nil {
		return err
	}

	return describe(cmd, report)
}

// describe writes the table descriptions selected by --schema-out or --schema-dir
func describe(cmd *cobra.Command, report *relcsv.Report) error {
	if schemaDir != "" {
		if err := relcsv.FormatSchema(report.Tables, &relcsv.SchemaOutputOptions{OutputDir: schemaDir, Format: format}); err != nil {
			return fmt.Errorf("failed to format output: %w", err)
		}
		logging.Info("table descriptions written", "dir", schemaDir, "tables", len(report.Tables))
		return nil
	}
	if schemaOut == "" {
		return nil
	}

	var writer io.Writer = cmd.OutOrStdout()
	if schemaOut != "-" {
		f, err := os.Create(schemaOut)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer func() {
			if err := f.Close(); err != nil {
				logging.Warn("failed to close output file", "path", schemaOut, "error", err)
			}
		}()
		writer = f
	}

	if err := relcsv.FormatSchema(report.Tables, &relcsv.SchemaOutputOptions{Writer: writer, Format: format}); err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	return nil
}

// selectDatabase turns the database flags into one URL, or "" when none is set
func selectDatabase() (string, error) {
	var urls []string
	if dbURL != "" {
		urls = append(urls, dbURL)
	}
	if mysqlURL != "" {
		urls = append(urls, "mysql://"+mysqlURL)
	}
	if sqlitePath != "" {
		urls = append(urls, "sqlite://"+sqlitePath)
	}

	switch len(urls) {
	case 0:
		return "", nil
	case 1:
		return urls[0], nil
	}
	return "", fmt.Errorf("only one of --db-url, --mysql-url, or --sqlite can be specified")
}

// applyConfig copies file settings into every flag not given on the command line
func applyConfig(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	setString := func(name string, dst *string, v string) {
		if v != "" && !flags.Changed(name) {
			*dst = v
		}
	}
	setBool := func(name string, dst *bool, v bool) {
		if v && !flags.Changed(name) {
			*dst = v
		}
	}

	setString("out-dir", &outDir, cfg.OutDir)
	setBool("compress", &compress, cfg.Compress)
	setBool("manifest", &manifest, cfg.Manifest)
	setString("shape-policy", &shapePolicy, cfg.ShapePolicy)
	setString("fk-policy", &fkPolicy, cfg.FKPolicy)
	setString("parent-column", &parentColumn, cfg.ParentColumn)
	setString("seq-column", &seqColumn, cfg.SeqColumn)
	setString("log-level", &logLevel, cfg.LogLevel)
	setString("log-format", &logFormat, cfg.LogFormat)
	if cfg.MaxSchemas != nil && !flags.Changed("max-schemas") {
		maxSchemas = *cfg.MaxSchemas
	}
}

func initLogging(w io.Writer) error {
	level, err := logging.ParseLevel(logLevel)
	if err != nil {
		return err
	}
	logFmt, err := logging.ParseFormat(logFormat)
	if err != nil {
		return err
	}
	logging.InitLogger(level, logFmt, w)
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logging.Error("run failed", "error", err)
		os.Exit(1)
	}
}
