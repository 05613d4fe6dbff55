// Package http provides the read-only HTTP transport of the catalog
package http

import (
	stdhttp "net/http"

	"pixgeo/internal/modkit/httpkit"
	"pixgeo/internal/services/catalog/domain"
)

// Register mounts catalog endpoints on the given router
func Register(r httpkit.Router, q domain.QueryPort) {
	h := &handlers{q: q}

	// runs, newest first
	httpkit.GetBound(r, "/", h.listRuns)

	// detectors of one run, without manifests
	httpkit.GetBound(r, "/{run}/detectors", h.listDetectors)

	// one detector with its manifest
	httpkit.GetBound(r, "/{run}/detectors/{name}", h.getDetector)
}

type handlers struct{ q domain.QueryPort }

func (h *handlers) listRuns(r *stdhttp.Request, in domain.ListRunsInput) (any, error) {
	rows, total, err := h.q.ListRuns(r.Context(), in)
	if err != nil {
		return nil, err
	}
	return httpkit.List(rows, total, len(rows), in.Offset), nil
}

func (h *handlers) listDetectors(r *stdhttp.Request, in domain.RunInput) (any, error) {
	return h.q.ListDetectors(r.Context(), in)
}

func (h *handlers) getDetector(r *stdhttp.Request, in domain.DetectorInput) (any, error) {
	return h.q.GetDetector(r.Context(), in)
}
