package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	formskema "github.com/reoring/formskema"
	"github.com/reoring/formskema/formdef"
	"github.com/reoring/formskema/i18n"
	"github.com/reoring/formskema/internal/logging"
)

// Exit codes.
const (
	exitValid   = 0
	exitInvalid = 1
	exitUsage   = 2
)

// config is read from the environment; flags override it.
type config struct {
	Lang      string `env:"FORMSKEMA_LANG" envDefault:"en"`
	Output    string `env:"FORMSKEMA_OUTPUT" envDefault:"json"`
	LogLevel  string `env:"FORMSKEMA_LOG_LEVEL" envDefault:"warn"`
	LogFormat string `env:"FORMSKEMA_LOG_FORMAT" envDefault:"text"`
}

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "formskema CLI\n\nUsage:\n  formskema validate -def form.yaml -data data.json [-lang ja] [-output json|text] [-env .env]\n  formskema check -def form.yaml\n\nEnvironment:\n  FORMSKEMA_LANG, FORMSKEMA_OUTPUT, FORMSKEMA_LOG_LEVEL, FORMSKEMA_LOG_FORMAT")
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		usage(stderr)
		return exitUsage
	}
	switch args[0] {
	case "validate":
		return validateCmd(ctx, args[1:], stdout, stderr)
	case "check":
		return checkCmd(args[1:], stdout, stderr)
	default:
		usage(stderr)
		return exitUsage
	}
}

// loadConfig loads envFile (when given) into the environment, then parses
// the environment into a config.
func loadConfig(envFile string) (config, error) {
	var cfg config
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return cfg, fmt.Errorf("loading %s: %w", envFile, err)
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parsing environment: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg config, stderr io.Writer) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	return logging.New(
		logging.WithLevel(level),
		logging.WithFormat(logging.Format(cfg.LogFormat)),
		logging.WithOutput(stderr),
	), nil
}

func validateCmd(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var defPath, dataPath, lang, output, envFile string
	var verbose bool
	fs.StringVar(&defPath, "def", "", "form definition (YAML or JSON)")
	fs.StringVar(&dataPath, "data", "", "data to validate (YAML or JSON)")
	fs.StringVar(&lang, "lang", "", "message language (BCP 47 tag)")
	fs.StringVar(&output, "output", "", "report format: json or text")
	fs.StringVar(&envFile, "env", "", "optional .env file")
	fs.BoolVar(&verbose, "v", false, "enable debug logs")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if defPath == "" || dataPath == "" {
		fs.Usage()
		return exitUsage
	}

	cfg, err := loadConfig(envFile)
	if err != nil {
		fmt.Fprintln(stderr, "formskema:", err)
		return exitUsage
	}
	if lang != "" {
		cfg.Lang = lang
	}
	if output != "" {
		cfg.Output = output
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	log, err := newLogger(cfg, stderr)
	if err != nil {
		fmt.Fprintln(stderr, "formskema:", err)
		return exitUsage
	}
	i18n.SetLanguage(cfg.Lang)

	def, err := formdef.Load(defPath)
	if err != nil {
		log.Error("loading definition failed", slog.String("path", defPath), slog.Any("error", err))
		return exitUsage
	}
	tree, err := formdef.Build(def, formskema.WithLogger(log))
	if err != nil {
		log.Error("building form failed", slog.Any("error", err))
		return exitUsage
	}
	data, err := formdef.LoadData(dataPath)
	if err != nil {
		log.Error("loading data failed", slog.String("path", dataPath), slog.Any("error", err))
		return exitUsage
	}
	if err := formdef.Bind(ctx, tree, data); err != nil {
		log.Error("binding data failed", slog.Any("error", err))
		return exitUsage
	}

	out, err := tree.Validate(ctx)
	if err != nil {
		var fe *formskema.FaultError
		if !errors.As(err, &fe) {
			log.Error("validation failed", slog.Any("error", err))
			return exitUsage
		}
		log.Error("validator fault", slog.String("path", fe.Path), slog.Any("error", fe.Cause))
		report := formskema.Report{Issues: formskema.Issues{fe.Issue()}}
		if err := writeReport(stdout, cfg.Output, report); err != nil {
			log.Error("writing report failed", slog.Any("error", err))
		}
		return exitUsage
	}
	log.Debug("validated", slog.Bool("valid", out.OK()))

	report := formskema.NewReport(tree, out)
	if err := writeReport(stdout, cfg.Output, report); err != nil {
		log.Error("writing report failed", slog.Any("error", err))
		return exitUsage
	}
	if !out.OK() {
		return exitInvalid
	}
	return exitValid
}

func writeReport(w io.Writer, format string, r formskema.Report) error {
	if format != "text" {
		return r.WriteJSON(w)
	}
	if r.Valid {
		_, err := fmt.Fprintln(w, "valid")
		return err
	}
	for _, it := range r.Issues {
		if _, err := fmt.Fprintf(w, "%s: %s (%s)\n", it.Path, it.Message, it.Code); err != nil {
			return err
		}
	}
	return nil
}

func checkCmd(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var defPath string
	fs.StringVar(&defPath, "def", "", "form definition (YAML or JSON)")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if defPath == "" {
		fs.Usage()
		return exitUsage
	}
	def, err := formdef.Load(defPath)
	if err == nil {
		_, err = formdef.Build(def)
	}
	if err != nil {
		fmt.Fprintln(stderr, "formskema:", err)
		return exitInvalid
	}
	fmt.Fprintln(stdout, "ok")
	return exitValid
}
