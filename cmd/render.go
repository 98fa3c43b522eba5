package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/go-spry/spry/internal/config"
	"github.com/go-spry/spry/internal/engine"
	"github.com/go-spry/spry/internal/logging"
)

var renderCmd = &cobra.Command{
	Use:     "render",
	Aliases: []string{"r"},
	Short:   "Render a template against a data file and print the result",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		logger := newLogger(cfg)

		eng, err := buildEngine(cfg, logger)
		if err != nil {
			return err
		}

		data := map[string]any{}
		if cfg.Render.Data != "" {
			data, err = loadDataFile(cfg.Render.Data)
			if err != nil {
				return err
			}
		}
		if err := eng.ApplyData(data); err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), eng.HTML())
		return nil
	},
}

func init() {
	addRenderFlags(renderCmd.Flags())
	rootCmd.AddCommand(renderCmd)
}

func newLogger(cfg *config.Config) logging.Logger {
	level := logging.ParseLevel(cfg.Log.Level)
	if cfg.Render.Debug {
		level = logging.LevelDebug
	}
	return logging.NewLogger(&logging.LoggerConfig{
		Level:  level,
		Format: cfg.Log.Format,
		Output: os.Stderr,
	})
}

// buildEngine creates an engine from the configured template file.
func buildEngine(cfg *config.Config, logger logging.Logger) (*engine.Engine, error) {
	if cfg.Render.Template == "" {
		return nil, fmt.Errorf("no template file configured (use --template)")
	}
	src, err := os.ReadFile(cfg.Render.Template)
	if err != nil {
		return nil, fmt.Errorf("reading template: %w", err)
	}

	eng := engine.New(
		engine.WithLogger(logger),
		engine.WithPlaceholder(cfg.Render.Placeholder),
	)
	eng.SetDebug(cfg.Render.Debug)
	if err := eng.SetTemplate(string(src)); err != nil {
		return nil, err
	}
	return eng, nil
}

// loadDataFile decodes a JSON or YAML data record by file extension.
func loadDataFile(path string) (map[string]any, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading data file: %w", err)
	}

	data := map[string]any{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		if err := yaml.Unmarshal(raw, &data); err != nil {
			return nil, fmt.Errorf("decoding YAML data: %w", err)
		}
	default:
		if err := json.Unmarshal(raw, &data); err != nil {
			return nil, fmt.Errorf("decoding JSON data: %w", err)
		}
	}
	return data, nil
}
