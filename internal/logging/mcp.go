package logging

import (
	"log/slog"
)

// SetupMCPMode installs a file-only default logger for `notesearch serve`.
// stdout carries JSON-RPC and stderr is often captured by the MCP client, so
// neither may receive log lines.
func SetupMCPMode(level string) (func(), error) {
	cfg := DefaultConfig()
	cfg.Level = level
	cfg.WriteToStderr = false

	logger, cleanup, err := Setup(cfg)
	if err != nil {
		return nil, err
	}

	slog.SetDefault(logger)
	slog.Info("mcp_logging_initialized",
		slog.String("log_file", cfg.FilePath),
		slog.String("level", level))

	return cleanup, nil
}
