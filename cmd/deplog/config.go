package main

import (
	"fmt"
	"os"

	"deplog/internal/config"
	"deplog/internal/render"
	"deplog/pkg/fileutil"
	"deplog/pkg/templates"
)

const configFileName = "deplog.yaml"

// resolveConfigPath returns path, or the first default location holding a
// config file when path is empty. It returns "" when no file is found.
func resolveConfigPath(path string) string {
	if path != "" {
		return path
	}
	return fileutil.SearchPathsOptional(fileutil.DefaultConfigPaths(configFileName))
}

// loadConfig loads the configuration file, or the defaults plus the
// environment when there is none. The returned path is "" in that case.
func loadConfig(path string) (*config.Config, string, error) {
	path = resolveConfigPath(path)
	if path == "" {
		cfg, err := config.LoadEnv(os.Getenv)
		if err != nil {
			return nil, "", fmt.Errorf("no configuration file found in %v and the environment is incomplete: %w",
				fileutil.DefaultConfigPaths(configFileName), err)
		}
		return cfg, "", nil
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, path, fmt.Errorf("failed to load config from %s: %w", path, err)
	}
	return cfg, path, nil
}

// newRenderer builds the summary renderer. Template files named
// summary-line and summary-header override the configured line template.
func newRenderer(cfg *config.Config) *render.Renderer {
	return &render.Renderer{
		Environments: cfg.Environments,
		Mainline: render.Mainline{
			Names:    cfg.Mainline.Names,
			Prefixes: cfg.Mainline.Prefixes,
		},
		ActiveIcon:   cfg.Icons.Active,
		DefaultIcon:  cfg.Icons.Default,
		LineTemplate: templates.Resolve(templates.SummaryLine, cfg.LineTemplate),
		Header:       templates.Resolve(templates.SummaryHeader, ""),
		TimeLayout:   cfg.TimeLayout,
		Location:     cfg.Location(),
	}
}
