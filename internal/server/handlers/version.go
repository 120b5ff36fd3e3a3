package handlers

import (
	"net/http"
	"runtime"
	"sync"

	"github.com/fulmenhq/gofulmen/crucible"

	"github.com/banzuke/banzuke/internal/config"
)

var (
	buildMu sync.RWMutex
	build   = BuildInfo{Version: "dev", Commit: "unknown", BuildDate: "unknown"}
)

// BuildInfo is stamped into the binary through ldflags.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildDate string
}

// SetVersionInfo records the build stamp reported by /version.
func SetVersionInfo(version, commit, buildDate string) {
	buildMu.Lock()
	defer buildMu.Unlock()
	build = BuildInfo{Version: version, Commit: commit, BuildDate: buildDate}
}

func currentBuild() BuildInfo {
	buildMu.RLock()
	defer buildMu.RUnlock()
	return build
}

// VersionResponse is the body of GET /version and the source of
// `banzuke version --extended`.
type VersionResponse struct {
	App          AppInfo       `json:"app"`
	Dependencies DepInfo       `json:"dependencies"`
	Upstream     *UpstreamInfo `json:"upstream,omitempty"`
	Runtime      RuntimeInfo   `json:"runtime"`
}

type AppInfo struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	Commit    string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version,omitempty"`
}

type DepInfo struct {
	Gofulmen string `json:"gofulmen"`
	Crucible string `json:"crucible"`
}

// UpstreamInfo describes the Sumo API endpoint and the call budget this
// process enforces against it.
type UpstreamInfo struct {
	BaseURL  string `json:"base_url"`
	MaxCalls int    `json:"max_calls"`
	Window   string `json:"window"`
}

type RuntimeInfo struct {
	Platform      string `json:"platform"`
	NumCPU        int    `json:"num_cpu"`
	NumGoroutines int    `json:"num_goroutines"`
}

// CurrentVersion assembles the version report. Upstream is omitted until a
// configuration has been loaded.
func CurrentVersion() VersionResponse {
	b := currentBuild()
	deps := crucible.GetVersion()

	resp := VersionResponse{
		App: AppInfo{
			Name:      config.AppName,
			Version:   b.Version,
			Commit:    b.Commit,
			BuildDate: b.BuildDate,
			GoVersion: runtime.Version(),
		},
		Dependencies: DepInfo{Gofulmen: deps.Gofulmen, Crucible: deps.Crucible},
		Runtime: RuntimeInfo{
			Platform:      runtime.GOOS + "/" + runtime.GOARCH,
			NumCPU:        runtime.NumCPU(),
			NumGoroutines: runtime.NumGoroutine(),
		},
	}
	if cfg := config.GetConfig(); cfg != nil {
		resp.Upstream = &UpstreamInfo{
			BaseURL:  cfg.API.BaseURL,
			MaxCalls: cfg.RateLimit.MaxCalls,
			Window:   cfg.RateLimit.Window.String(),
		}
	}
	return resp
}

// VersionHandler serves CurrentVersion as JSON.
func VersionHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, CurrentVersion())
}
