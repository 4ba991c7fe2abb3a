package api

import (
	"net/http"

	"github.com/sydlexius/phonyfy/internal/catalog"
	"github.com/sydlexius/phonyfy/internal/logging"
)

// GET /api/v1/logging
func (r *Router) handleGetLogging(w http.ResponseWriter, req *http.Request) {
	if r.logManager == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "logging manager not available"})
		return
	}
	writeJSON(w, http.StatusOK, r.logManager.Config())
}

// handleUpdateLogging changes the log configuration at runtime. Omitted
// fields keep their current values. Changes last until the next restart.
// The log file location comes from the config file only.
// PUT /api/v1/logging
func (r *Router) handleUpdateLogging(w http.ResponseWriter, req *http.Request) {
	if r.logManager == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "logging manager not available"})
		return
	}

	var cfg logging.Config
	if err := decodeJSON(w, req, &cfg); err != nil {
		r.writeError(w, req, err)
		return
	}

	// Merge with current config: only overwrite fields that are provided
	current := r.logManager.Config()
	if cfg.FilePath != "" && cfg.FilePath != current.FilePath {
		r.writeError(w, req, &catalog.ValidationError{Field: "file_path", Reason: "cannot be changed at runtime"})
		return
	}
	if cfg.Level == "" {
		cfg.Level = current.Level
	}
	if cfg.Format == "" {
		cfg.Format = current.Format
	}
	cfg.FilePath = current.FilePath
	if cfg.FileMaxSizeMB == 0 {
		cfg.FileMaxSizeMB = current.FileMaxSizeMB
	}
	if cfg.FileMaxFiles == 0 {
		cfg.FileMaxFiles = current.FileMaxFiles
	}
	if cfg.FileMaxAgeDays == 0 {
		cfg.FileMaxAgeDays = current.FileMaxAgeDays
	}
	if err := cfg.Validate(); err != nil {
		r.writeError(w, req, &catalog.ValidationError{Field: "logging", Reason: err.Error()})
		return
	}

	r.logManager.Reconfigure(cfg)
	r.logger.Info("logging reconfigured",
		"config", cfg.String(),
		"active_level", logging.FormatLevel(r.logManager.Level()))
	writeJSON(w, http.StatusOK, r.logManager.Config())
}
