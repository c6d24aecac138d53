// Command maktaba serves and maintains a reference-corpus browser: an
// HTTP API over a SQLite corpus of book sources, chunks, TOC entries,
// back-of-book index terms, and lexicon evidence.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"github.com/amline/maktaba/internal/api"
	"github.com/amline/maktaba/internal/logging"
	"github.com/amline/maktaba/internal/store"
)

// CLI defines the command-line interface for maktaba.
var CLI struct {
	Serve   ServeCmd   `cmd:"" help:"Start the corpus API server"`
	Reindex ReindexCmd `cmd:"" help:"Rebuild the full-text search index from the corpus tables"`
	Export  ExportCmd  `cmd:"" help:"Write an xz-compressed JSON snapshot of one source"`
	Version VersionCmd `cmd:"" help:"Print version information"`
}

// ServeCmd starts the HTTP API server.
type ServeCmd struct {
	Port      int      `help:"HTTP server port" env:"MAKTABA_PORT"`
	DB        string   `help:"Path to the corpus database" env:"MAKTABA_DB"`
	APIKey    string   `help:"API key required in the X-API-Key header (empty = open)" env:"MAKTABA_API_KEY"`
	Origins   []string `help:"CORS allowed origins (empty = allow all)" env:"MAKTABA_ORIGINS"`
	LogLevel  string   `help:"Log level (debug, info, warn, error)" env:"MAKTABA_LOG_LEVEL"`
	LogFormat string   `help:"Log format (text, json)" env:"MAKTABA_LOG_FORMAT"`
	Config    string   `help:"Optional TOML config file" env:"MAKTABA_CONFIG" type:"path"`
}

func (c *ServeCmd) Run() error {
	cfg := api.Config{
		Port:           c.Port,
		DBPath:         c.DB,
		APIKey:         c.APIKey,
		AllowedOrigins: c.Origins,
		LogLevel:       c.LogLevel,
		LogFormat:      c.LogFormat,
	}
	if c.Config != "" {
		fc, err := api.LoadConfigFile(c.Config)
		if err != nil {
			return err
		}
		cfg.ApplyFile(fc)
	}
	cfg.ApplyDefaults()

	logging.InitLogger(logging.ParseLevel(cfg.LogLevel), logging.ParseFormat(cfg.LogFormat))

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()

	return api.NewServer(cfg, st).Start()
}

// ReindexCmd rebuilds both full-text shadow tables. It is the recovery
// path when a chunk edit committed but its index resync did not.
type ReindexCmd struct {
	DB string `help:"Path to the corpus database" env:"MAKTABA_DB" default:"maktaba.db"`
}

func (c *ReindexCmd) Run() error {
	st, err := store.Open(c.DB)
	if err != nil {
		return err
	}
	defer st.Close()

	stats, err := st.RebuildSearchIndex(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("reindexed %d chunks, %d evidence rows\n", stats.Chunks, stats.Evidence)
	return nil
}

// ExportCmd writes a source snapshot to a file or stdout.
type ExportCmd struct {
	Source string `arg:"" help:"Source code or id to export"`
	DB     string `help:"Path to the corpus database" env:"MAKTABA_DB" default:"maktaba.db"`
	Out    string `help:"Output file (default stdout)" short:"o" type:"path"`
}

func (c *ExportCmd) Run() error {
	st, err := store.Open(c.DB)
	if err != nil {
		return err
	}
	defer st.Close()

	out := os.Stdout
	if c.Out != "" {
		f, err := os.Create(c.Out)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	return st.WriteSnapshot(context.Background(), c.Source, out)
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Printf("maktaba version %s\n", api.Version)
	return nil
}

func main() {
	// A .env file, when present, feeds the env-bound flags below.
	_ = godotenv.Load()

	ctx := kong.Parse(&CLI,
		kong.Name("maktaba"),
		kong.Description("Maktaba - reference corpus browser"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)
	err := ctx.Run(ctx)
	ctx.FatalIfErrorf(err)
}
