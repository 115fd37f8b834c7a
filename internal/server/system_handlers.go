package server

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/aristath/autosettle/internal/clients/chain"
	"github.com/aristath/autosettle/internal/database"
	"github.com/aristath/autosettle/internal/scheduler"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemHandlers handles system-wide monitoring endpoints
type SystemHandlers struct {
	log         zerolog.Logger
	dataDir     string
	startupTime time.Time
	configDB    *database.DB
	client      *chain.Client
	scheduler   *scheduler.Scheduler

	// Overridable for tests
	systemStats func() (float64, float64)
}

// SystemStatusResponse represents the system status
type SystemStatusResponse struct {
	Status        string    `json:"status"`
	UptimeSeconds int64     `json:"uptime_seconds"`
	DataDir       string    `json:"data_dir"`
	CPUPercent    float64   `json:"cpu_percent"`
	RAMPercent    float64   `json:"ram_percent"`
	RPC           RPCStatus `json:"rpc"`
	LastChecked   string    `json:"last_checked"`
}

// RPCStatus describes the configured Solana RPC endpoint
type RPCStatus struct {
	Endpoint   string `json:"endpoint"`
	Commitment string `json:"commitment"`
	Healthy    bool   `json:"healthy"`
	Error      string `json:"error,omitempty"`
}

// DatabaseStatsResponse represents database statistics
type DatabaseStatsResponse struct {
	Name        string  `json:"name"`
	Path        string  `json:"path"`
	SizeMB      float64 `json:"size_mb"`
	Healthy     bool    `json:"healthy"`
	Error       string  `json:"error,omitempty"`
	LastChecked string  `json:"last_checked"`
}

// NewSystemHandlers creates a new system handlers instance
func NewSystemHandlers(
	log zerolog.Logger,
	dataDir string,
	configDB *database.DB,
	client *chain.Client,
	sched *scheduler.Scheduler,
) *SystemHandlers {
	h := &SystemHandlers{
		log:         log.With().Str("component", "system_handlers").Logger(),
		dataDir:     dataDir,
		startupTime: time.Now(),
		configDB:    configDB,
		client:      client,
		scheduler:   sched,
	}
	h.systemStats = h.getSystemStats
	return h
}

// HandleSystemStatus handles GET /api/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	cpuPercent, ramPercent := h.systemStats()

	response := SystemStatusResponse{
		Status:        "healthy",
		UptimeSeconds: int64(time.Since(h.startupTime).Seconds()),
		DataDir:       h.dataDir,
		CPUPercent:    cpuPercent,
		RAMPercent:    ramPercent,
		LastChecked:   time.Now().Format(time.RFC3339),
	}

	if h.client != nil {
		response.RPC = RPCStatus{
			Endpoint:   h.client.Endpoint(),
			Commitment: string(h.client.Commitment()),
		}
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		err := h.client.Health(ctx)
		cancel()
		if err != nil {
			response.Status = "degraded"
			response.RPC.Error = err.Error()
		} else {
			response.RPC.Healthy = true
		}
	}

	h.writeJSON(w, response)
}

// HandleDatabaseStats handles GET /api/system/database
func (h *SystemHandlers) HandleDatabaseStats(w http.ResponseWriter, r *http.Request) {
	if h.configDB == nil {
		http.Error(w, "Database not available", http.StatusServiceUnavailable)
		return
	}

	response := DatabaseStatsResponse{
		Name:        h.configDB.Name(),
		Path:        h.configDB.Path(),
		LastChecked: time.Now().Format(time.RFC3339),
	}
	if info, err := os.Stat(h.configDB.Path()); err == nil {
		response.SizeMB = float64(info.Size()) / 1024 / 1024
	}
	if err := h.configDB.QuickCheck(r.Context()); err != nil {
		h.log.Warn().Err(err).Msg("Database integrity check failed")
		response.Error = err.Error()
	} else {
		response.Healthy = true
	}

	h.writeJSON(w, response)
}

// HandleJobsStatus handles GET /api/system/jobs
func (h *SystemHandlers) HandleJobsStatus(w http.ResponseWriter, r *http.Request) {
	jobs := []scheduler.Entry{}
	if h.scheduler != nil {
		jobs = h.scheduler.Entries()
	}
	h.writeJSON(w, map[string]interface{}{
		"jobs":  jobs,
		"count": len(jobs),
	})
}

// getSystemStats calculates CPU and RAM usage percentages
// Uses a short sampling interval so the API call does not block for long
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}

// writeJSON writes a JSON response
func (h *SystemHandlers) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
