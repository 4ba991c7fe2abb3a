package api

import "net/http"

func (r *Router) maintenanceAvailable(w http.ResponseWriter) bool {
	if r.maintenance == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "maintenance not available"})
		return false
	}
	return true
}

// GET /api/v1/maintenance/status
func (r *Router) handleMaintenanceStatus(w http.ResponseWriter, req *http.Request) {
	if !r.maintenanceAvailable(w) {
		return
	}
	st, err := r.maintenance.Status(req.Context())
	if err != nil {
		r.writeError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// POST /api/v1/maintenance/optimize
func (r *Router) handleMaintenanceOptimize(w http.ResponseWriter, req *http.Request) {
	if !r.maintenanceAvailable(w) {
		return
	}
	if err := r.maintenance.Optimize(req.Context()); err != nil {
		r.writeError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "optimized"})
}

// GET /api/v1/maintenance/backups
func (r *Router) handleListBackups(w http.ResponseWriter, req *http.Request) {
	if !r.maintenanceAvailable(w) {
		return
	}
	backups, err := r.maintenance.ListBackups()
	if err != nil {
		r.writeError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, backups)
}

// handleCreateBackup snapshots the database and prunes old snapshots.
// POST /api/v1/maintenance/backups
func (r *Router) handleCreateBackup(w http.ResponseWriter, req *http.Request) {
	if !r.maintenanceAvailable(w) {
		return
	}
	info, err := r.maintenance.Backup(req.Context())
	if err != nil {
		r.writeError(w, req, err)
		return
	}
	writeJSON(w, http.StatusCreated, info)
}
