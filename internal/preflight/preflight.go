package preflight

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sys/unix"

	"vidbunch/internal/config"
	"vidbunch/internal/vberr"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name     string
	Passed   bool
	Optional bool
	Detail   string
}

// RunAll executes every check that applies to cfg.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Root path", cfg.Paths.RootPath, unix.R_OK|unix.X_OK),
	}
	if cfg.Paths.MetaTrain != "" {
		results = append(results, CheckReadableFile("Train metadata", cfg.Paths.MetaTrain))
	}
	if cfg.Paths.MetaValid != "" {
		results = append(results, CheckReadableFile("Valid metadata", cfg.Paths.MetaValid))
	}
	results = append(results, CheckWritableDirectory("Cache directory", cfg.Paths.CacheDir))
	if cfg.Paths.LogDir != "" {
		results = append(results, CheckWritableDirectory("Log directory", cfg.Paths.LogDir))
	}
	for _, status := range CheckMediaDeps(cfg) {
		detail := status.Path
		if !status.Available {
			detail = status.Detail
		}
		results = append(results, Result{
			Name:     status.Name,
			Passed:   status.Available,
			Optional: status.Optional,
			Detail:   detail,
		})
	}
	return results
}

// Err joins the failed required checks into one configuration error, or
// returns nil when everything required passed.
func Err(results []Result) error {
	var failed []string
	for _, r := range results {
		if !r.Passed && !r.Optional {
			failed = append(failed, fmt.Sprintf("%s: %s", r.Name, r.Detail))
		}
	}
	if len(failed) == 0 {
		return nil
	}
	return vberr.Wrap(vberr.ErrConfiguration, "preflight", "check", strings.Join(failed, "; "), errors.New("required checks failed"))
}
