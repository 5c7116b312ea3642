// -----------------------------------------------------------------------
// Last Modified: Friday, 21st August 2026 11:05:02 am
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scriba/internal/app"
	"github.com/ternarybob/scriba/internal/common"
	"github.com/ternarybob/scriba/internal/models"
)

// configPaths is a custom flag type that allows multiple -config flags
type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	// Command-line flags
	configFiles  configPaths // Multiple -config flags supported
	filePath     = flag.String("file", "", "Source document to extract (PDF or image)")
	textFile     = flag.String("text-file", "", "Extract from a plain text file instead of running OCR")
	docType      = flag.String("type", "", "Document type (deliverynote, bank, payroll)")
	modelFlag    = flag.String("model", "", "LLM model (overrides config)")
	engineFlag   = flag.String("engine", "", "OCR engine: tesseract, rapidocr, docling (overrides config)")
	outFlag      = flag.String("out", "", "Outputs directory (overrides config)")
	redactFlag   = flag.Bool("redact", false, "Redact sensitive values in the annotated output")
	showVersion  = flag.Bool("version", false, "Print version information")
	showVersionV = flag.Bool("v", false, "Print version information (shorthand)")

	// Global state
	config *common.Config
	logger arbor.ILogger
)

func init() {
	// Register custom flag for multiple config files
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times, later files override earlier ones)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
}

func main() {
	// Write a crash report if anything below panics
	common.InstallCrashHandler("logs")
	defer common.RecoverWithCrashFile()

	// Parse command-line flags
	flag.Parse()

	// Handle version flag
	if *showVersion || *showVersionV {
		fmt.Printf("Scriba version %s\n", common.LoadVersionFromFile())
		os.Exit(0)
	}

	if *filePath == "" && *textFile == "" {
		fmt.Println("Error: -file or -text-file is required")
		flag.Usage()
		os.Exit(1)
	}
	if *filePath != "" && *textFile != "" {
		fmt.Println("Error: -file and -text-file are mutually exclusive")
		flag.Usage()
		os.Exit(1)
	}
	if *docType == "" {
		fmt.Println("Error: -type is required (deliverynote, bank, payroll)")
		flag.Usage()
		os.Exit(1)
	}

	// Startup sequence (REQUIRED ORDER):
	// 1. Load config (defaults -> file1 -> file2 -> ... -> env)
	// 2. Apply CLI overrides (highest priority)
	// 3. Initialize logger
	// 4. Print banner
	var err error

	// Auto-discover config file if not specified
	if len(configFiles) == 0 {
		if _, err := os.Stat("scriba.toml"); err == nil {
			configFiles = append(configFiles, "scriba.toml")
		} else if execPath, err := os.Executable(); err == nil {
			// Fallback: check next to the binary
			candidate := filepath.Join(filepath.Dir(execPath), "scriba.toml")
			if _, err := os.Stat(candidate); err == nil {
				configFiles = append(configFiles, candidate)
			}
		}
	}

	// 1. Load configuration (default -> file1 -> file2 -> ... -> env -> CLI)
	// Later config files override earlier ones
	config, err = common.LoadFromFiles(configFiles...)
	if err != nil {
		tempLogger := arbor.NewLogger()
		tempLogger.Fatal().Strs("paths", configFiles).Err(err).Msg("Failed to load configuration files")
		os.Exit(1)
	}

	// 2. Apply command-line flag overrides (highest priority)
	common.ApplyFlagOverrides(config, *modelFlag, *engineFlag, *outFlag)
	if *redactFlag {
		config.Output.RedactOutput = true
	}

	// 3. Initialize logger with final configuration
	logger = common.InitLogger(config)

	// 4. Print banner
	common.PrintBanner(common.LoadVersionFromFile())

	logger.Info().
		Strs("config_files", configFiles).
		Str("model", config.LLM.Model).
		Str("ocr_engine", config.OCR.Engine).
		Str("outputs_dir", config.Output.Dir).
		Msg("Application configuration loaded")

	// Initialize application
	application, err := app.New(config, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize application")
	}

	if err := run(application); err != nil {
		logger.Fatal().Err(err).Msg("Extraction run failed")
	}
}

// run executes one extraction and writes the results to the outputs
// directory.
func run(application *app.App) error {
	ctx := context.Background()

	source := *filePath
	if source == "" {
		source = *textFile
	}

	result, err := extract(ctx, application)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(config.Output.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create outputs directory: %w", err)
	}

	stem := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))

	reportPath := filepath.Join(config.Output.Dir, stem+"_report.json")
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if err := os.WriteFile(reportPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	pdfPath := ""
	if len(result.AnnotatedPDF) > 0 {
		pdfPath = filepath.Join(config.Output.Dir, stem+"_annotated.pdf")
		if err := os.WriteFile(pdfPath, result.AnnotatedPDF, 0644); err != nil {
			return fmt.Errorf("failed to write annotated PDF: %w", err)
		}
	}

	logger.Info().
		Str("run_id", result.RunID).
		Str("report", reportPath).
		Str("annotated_pdf", pdfPath).
		Msg("Extraction complete")

	return nil
}

func extract(ctx context.Context, application *app.App) (*models.ExtractionResult, error) {
	if *textFile != "" {
		data, err := os.ReadFile(*textFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read text file: %w", err)
		}
		return application.DocumentService.ExtractFromText(ctx, string(data), *docType)
	}
	return application.DocumentService.ExtractDocument(ctx, *filePath, *docType)
}
