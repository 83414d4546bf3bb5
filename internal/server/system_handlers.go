package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/networth/internal/database"
	"github.com/aristath/networth/internal/events"
	"github.com/aristath/networth/internal/modules/balances"
	"github.com/aristath/networth/internal/reliability"
)

// TriggerableJob is a background job that can be run on demand.
type TriggerableJob interface {
	Run() error
	Name() string
}

// SystemConfig holds dependencies for the system endpoints.
type SystemConfig struct {
	Log         zerolog.Logger
	DataDir     string
	Databases   map[string]*database.DB
	ResultCache *balances.ResultCache
	Hub         *events.Hub
	Backups     *reliability.BackupService
	Restore     *reliability.RestoreService
}

// SystemHandlers handles monitoring and operations endpoints
type SystemHandlers struct {
	log         zerolog.Logger
	dataDir     string
	startupTime time.Time
	databases   map[string]*database.DB
	resultCache *balances.ResultCache
	hub         *events.Hub
	backups     *reliability.BackupService
	restore     *reliability.RestoreService
	jobs        map[string]TriggerableJob
}

// NewSystemHandlers creates handlers for the system endpoints
func NewSystemHandlers(cfg SystemConfig) *SystemHandlers {
	return &SystemHandlers{
		log:         cfg.Log.With().Str("handler", "system").Logger(),
		dataDir:     cfg.DataDir,
		startupTime: time.Now(),
		databases:   cfg.Databases,
		resultCache: cfg.ResultCache,
		hub:         cfg.Hub,
		backups:     cfg.Backups,
		restore:     cfg.Restore,
		jobs:        make(map[string]TriggerableJob),
	}
}

// SetJobs registers jobs for manual triggering
func (h *SystemHandlers) SetJobs(jobs ...TriggerableJob) {
	for _, job := range jobs {
		h.jobs[job.Name()] = job
	}
}

// RegisterRoutes registers all system routes
func (h *SystemHandlers) RegisterRoutes(r chi.Router) {
	r.Route("/system", func(r chi.Router) {
		r.Get("/status", h.HandleStatus)
		r.Get("/database/stats", h.HandleDatabaseStats)
		r.Get("/jobs", h.HandleJobs)
		r.Post("/jobs/{name}/trigger", h.HandleTriggerJob)
		r.Get("/backups", h.HandleListBackups)
		r.Post("/backups", h.HandleCreateBackup)
		r.Post("/restore", h.HandleStageRestore)
	})
}

// HandleStatus handles GET /api/system/status
func (h *SystemHandlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	cpuAvg, memPercent := h.systemStats()

	diskFree := uint64(0)
	diskPercent := 0.0
	if usage, err := disk.Usage(h.dataDir); err == nil {
		diskFree = usage.Free
		diskPercent = usage.UsedPercent
	}

	h.writeJSON(w, map[string]interface{}{
		"status":            "ok",
		"uptime_seconds":    int64(time.Since(h.startupTime).Seconds()),
		"cpu_percent":       cpuAvg,
		"memory_percent":    memPercent,
		"disk_free_bytes":   diskFree,
		"disk_used_percent": diskPercent,
		"cached_results":    h.resultCache.Len(),
		"ws_subscribers":    h.hub.SubscriberCount(),
	})
}

// HandleDatabaseStats handles GET /api/system/database/stats
func (h *SystemHandlers) HandleDatabaseStats(w http.ResponseWriter, r *http.Request) {
	stats := make(map[string]interface{}, len(h.databases))
	for name, db := range h.databases {
		dbStats, err := db.GetStats()
		if err != nil {
			h.log.Warn().Err(err).Str("database", name).Msg("Failed to read database stats")
			stats[name] = map[string]string{"error": err.Error()}
			continue
		}
		stats[name] = map[string]interface{}{
			"size_bytes":     dbStats.SizeBytes,
			"wal_size_bytes": dbStats.WALSizeBytes,
			"page_count":     dbStats.PageCount,
			"page_size":      dbStats.PageSize,
		}
	}
	h.writeJSON(w, stats)
}

// HandleJobs handles GET /api/system/jobs
func (h *SystemHandlers) HandleJobs(w http.ResponseWriter, r *http.Request) {
	names := make([]string, 0, len(h.jobs))
	for name := range h.jobs {
		names = append(names, name)
	}
	h.writeJSON(w, map[string]interface{}{"jobs": names})
}

// HandleTriggerJob handles POST /api/system/jobs/{name}/trigger
func (h *SystemHandlers) HandleTriggerJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	job, ok := h.jobs[name]
	if !ok {
		http.Error(w, "unknown job", http.StatusNotFound)
		return
	}

	h.log.Info().Str("job", name).Msg("Manual job trigger")
	if err := job.Run(); err != nil {
		h.log.Error().Err(err).Str("job", name).Msg("Manually triggered job failed")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, map[string]string{"status": "success", "job": name})
}

// HandleListBackups handles GET /api/system/backups
func (h *SystemHandlers) HandleListBackups(w http.ResponseWriter, r *http.Request) {
	if h.backups == nil {
		http.Error(w, "backups not configured", http.StatusServiceUnavailable)
		return
	}

	backups, err := h.backups.ListBackups(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list backups")
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	h.writeJSON(w, map[string]interface{}{"backups": backups})
}

// HandleCreateBackup handles POST /api/system/backups
func (h *SystemHandlers) HandleCreateBackup(w http.ResponseWriter, r *http.Request) {
	if h.backups == nil {
		http.Error(w, "backups not configured", http.StatusServiceUnavailable)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Minute)
	defer cancel()

	archive, err := h.backups.CreateAndUpload(ctx)
	if err != nil {
		h.log.Error().Err(err).Msg("Manual backup failed")
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	h.writeJSON(w, map[string]string{"status": "success", "archive": archive})
}

// HandleStageRestore handles POST /api/system/restore. The archive is
// downloaded and verified now but applied on the next startup, because
// database files cannot be swapped under open connections.
func (h *SystemHandlers) HandleStageRestore(w http.ResponseWriter, r *http.Request) {
	if h.restore == nil {
		http.Error(w, "backups not configured", http.StatusServiceUnavailable)
		return
	}

	var req struct {
		Archive string `json:"archive"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Archive == "" {
		http.Error(w, "archive is required", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Minute)
	defer cancel()

	if err := h.restore.Stage(ctx, req.Archive); err != nil {
		h.log.Error().Err(err).Str("archive", req.Archive).Msg("Failed to stage restore")
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	h.writeJSON(w, map[string]string{
		"status":  "staged",
		"archive": req.Archive,
		"message": "restore will be applied on next startup",
	})
}

// systemStats samples CPU and RAM usage. The short CPU interval keeps
// the status endpoint responsive.
func (h *SystemHandlers) systemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil || len(cpuPercent) == 0 {
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		return cpuPercent[0], 0
	}
	return cpuPercent[0], memStat.UsedPercent
}

func (h *SystemHandlers) writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
	}
}
