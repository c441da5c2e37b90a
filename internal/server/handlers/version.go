package handlers

import (
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/fulmenhq/gofulmen/appidentity"
	"github.com/fulmenhq/gofulmen/crucible"

	"github.com/kundliinsight/kundli/internal/appid"
	"github.com/kundliinsight/kundli/internal/core"
)

// AppVersion is the version stamped by main; health responses echo it.
var AppVersion = "dev"

type buildStamp struct {
	commit    string
	buildDate string
	identity  *appidentity.Identity
	started   time.Time
}

var (
	stampMu sync.RWMutex
	stamp   = buildStamp{commit: "unknown", buildDate: "unknown", started: time.Now()}
)

func SetVersionInfo(version, commit, buildDate string) {
	stampMu.Lock()
	defer stampMu.Unlock()
	AppVersion = version
	stamp.commit, stamp.buildDate = commit, buildDate
}

// SetAppIdentity names the binary in /version; nil falls back to the default.
func SetAppIdentity(identity *appidentity.Identity) {
	stampMu.Lock()
	stamp.identity = identity
	stampMu.Unlock()
}

// VersionResponse is the body of GET /version.
type VersionResponse struct {
	App          AppInfo         `json:"app"`
	Dependencies DepInfo         `json:"dependencies"`
	Runtime      RuntimeInfo     `json:"runtime"`
	Languages    []core.Language `json:"languages"`
}

type AppInfo struct {
	Name      string `json:"name"`
	Vendor    string `json:"vendor,omitempty"`
	Version   string `json:"version"`
	Commit    string `json:"git_commit"`
	BuildDate string `json:"build_date"`
}

type DepInfo struct {
	Gofulmen string `json:"gofulmen"`
	Crucible string `json:"crucible"`
	Go       string `json:"go"`
}

type RuntimeInfo struct {
	Platform      string  `json:"platform"`
	NumCPU        int     `json:"num_cpu"`
	NumGoroutines int     `json:"num_goroutines"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

func currentVersion() VersionResponse {
	stampMu.RLock()
	s := stamp
	version := AppVersion
	stampMu.RUnlock()

	app := AppInfo{Name: appid.DefaultBinaryName, Version: version, Commit: s.commit, BuildDate: s.buildDate}
	if s.identity != nil {
		app.Name, app.Vendor = s.identity.BinaryName, s.identity.Vendor
	}
	libs := crucible.GetVersion()

	return VersionResponse{
		App:          app,
		Dependencies: DepInfo{Gofulmen: libs.Gofulmen, Crucible: libs.Crucible, Go: runtime.Version()},
		Runtime: RuntimeInfo{
			Platform:      runtime.GOOS + "/" + runtime.GOARCH,
			NumCPU:        runtime.NumCPU(),
			NumGoroutines: runtime.NumGoroutine(),
			UptimeSeconds: time.Since(s.started).Round(time.Second).Seconds(),
		},
		Languages: core.Languages(),
	}
}

// VersionHandler reports build metadata and the guidance languages served.
func VersionHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, currentVersion())
}
