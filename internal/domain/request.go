package domain

import (
	"fmt"
	"path/filepath"
	"strconv"
)

// The upstream dataset publishes bias-adjusted variables under the original
// CMIP6 name with an "Adjust" suffix, partitioned into per-mode variants.
const (
	remoteVariableSuffix = "Adjust"
	outputExtension      = ".nc"
)

// RemoteVariable returns the upstream name of a catalog variable,
// e.g. "tas" -> "tasAdjust".
func RemoteVariable(variable string) string {
	return variable + remoteVariableSuffix
}

// Variant returns the dataset variant identifier for a variable and mode,
// e.g. "tas" + hist -> "tas-hist".
func Variant(variable string, mode Mode) string {
	return fmt.Sprintf("%s-%s", variable, mode)
}

// DownloadRequest is one concrete (variable, scenario, model, year) download.
// Requests are generated lazily, executed once, and discarded.
type DownloadRequest struct {
	Mode     Mode   `json:"mode"`
	Variable string `json:"variable"`
	Scenario string `json:"scenario"`
	Model    string `json:"model"`
	Year     int    `json:"year"`
	OutPath  string `json:"out_path"`
}

// NewDownloadRequest builds a request with its deterministic output path.
func NewDownloadRequest(outDir string, mode Mode, variable, scenario, model string, year int) DownloadRequest {
	return DownloadRequest{
		Mode:     mode,
		Variable: variable,
		Scenario: scenario,
		Model:    model,
		Year:     year,
		OutPath:  OutputPath(outDir, mode, variable, scenario, model, year),
	}
}

// OutputPath derives the output file path for a request. Every coordinate of
// the tuple appears as its own path segment, so distinct tuples can never
// collide on disk.
func OutputPath(outDir string, mode Mode, variable, scenario, model string, year int) string {
	return filepath.Join(
		outDir,
		string(mode),
		scenario,
		model,
		RemoteVariable(variable),
		strconv.Itoa(year)+outputExtension,
	)
}

// Variant returns the dataset variant this request downloads from.
func (r *DownloadRequest) Variant() string {
	return Variant(r.Variable, r.Mode)
}

// Tuple renders the request coordinates for reports and error messages.
func (r *DownloadRequest) Tuple() string {
	return fmt.Sprintf("(%s, %s, %s, %d)", r.Variable, r.Scenario, r.Model, r.Year)
}
