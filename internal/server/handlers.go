package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"scriptforge/internal/archive"
	"scriptforge/internal/compiler"
	"scriptforge/internal/locator"
	"scriptforge/internal/persist"
	"scriptforge/internal/preview"
)

const maxBody = 4 << 20

type handler struct {
	deps Deps
}

type compileRequest struct {
	compiler.Request
	// RunID archives the artifacts under this id when set.
	RunID string `json:"runId,omitempty"`
}

type compileResponse struct {
	compiler.Result
	Archived []string `json:"archived,omitempty"`
	Written  []string `json:"written,omitempty"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (h *handler) compile(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeCompile(w, r)
	if !ok {
		return
	}
	res, err := h.deps.Compiler.Compile(r.Context(), req.Request, nil)
	if err != nil {
		writeError(w, err)
		return
	}
	out := compileResponse{Result: res}
	if req.RunID != "" {
		if out.Archived, err = h.archive(r, req.RunID, res); err != nil {
			writeError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) persist(w http.ResponseWriter, r *http.Request) {
	if h.deps.Writer == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Code: "unavailable", Message: "persisting is not configured"})
		return
	}
	req, ok := decodeCompile(w, r)
	if !ok {
		return
	}
	res, err := h.deps.Compiler.Compile(r.Context(), req.Request, nil)
	if err != nil {
		writeError(w, err)
		return
	}
	written, err := h.deps.Writer.Persist(res.Artifacts.Files())
	if err != nil {
		writeError(w, err)
		return
	}
	out := compileResponse{Result: res, Written: written}
	if req.RunID != "" {
		if out.Archived, err = h.archive(r, req.RunID, res); err != nil {
			writeError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) archive(r *http.Request, runID string, res compiler.Result) ([]string, error) {
	if h.deps.Archive == nil {
		return nil, errArchiveDisabled
	}
	return archive.Save(r.Context(), h.deps.Archive, runID, res.Artifacts)
}

func (h *handler) preview(w http.ResponseWriter, r *http.Request) {
	ref := strings.TrimSpace(r.URL.Query().Get("flow"))
	if ref == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Code: "invalid_argument", Message: "flow is required"})
		return
	}
	maxLines, _ := strconv.Atoi(r.URL.Query().Get("max"))
	steps, _, err := h.deps.Source.Steps(r.Context(), ref)
	if err != nil {
		writeError(w, err)
		return
	}
	if len(steps) == 0 {
		writeError(w, &compiler.InputError{Flow: ref})
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, preview.Render(steps, maxLines)+"\n")
}

type refineRequest struct {
	Preview  string `json:"preview"`
	Feedback string `json:"feedback"`
}

func (h *handler) refine(w http.ResponseWriter, r *http.Request) {
	if h.deps.Refiner == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Code: "unavailable", Message: "preview refinement is not configured"})
		return
	}
	var req refineRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Code: "invalid_argument", Message: err.Error()})
		return
	}
	if strings.TrimSpace(req.Preview) == "" || strings.TrimSpace(req.Feedback) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Code: "invalid_argument", Message: "preview and feedback are required"})
		return
	}
	refined, err := h.deps.Refiner.Refine(r.Context(), req.Preview, req.Feedback)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"preview": refined})
}

type archiveListing struct {
	RunID string        `json:"runId"`
	Files []archiveFile `json:"files"`
}

type archiveFile struct {
	Path string `json:"path"`
	URL  string `json:"url,omitempty"`
}

func (h *handler) listArchive(w http.ResponseWriter, r *http.Request) {
	if h.deps.Archive == nil {
		writeError(w, errArchiveDisabled)
		return
	}
	runID := r.PathValue("run")
	paths, err := h.deps.Archive.List(r.Context(), runID)
	if err != nil {
		writeError(w, err)
		return
	}
	out := archiveListing{RunID: runID, Files: make([]archiveFile, 0, len(paths))}
	for _, p := range paths {
		u, err := h.deps.Archive.GetURL(r.Context(), runID, p)
		if err != nil {
			h.deps.Logger.WithError(err).WithField("path", p).Warn("presign archived artifact")
		}
		out.Files = append(out.Files, archiveFile{Path: p, URL: u})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) getArchive(w http.ResponseWriter, r *http.Request) {
	if h.deps.Archive == nil {
		writeError(w, errArchiveDisabled)
		return
	}
	data, err := h.deps.Archive.Get(r.Context(), r.PathValue("run"), r.PathValue("path"))
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write(data)
}

func decodeCompile(w http.ResponseWriter, r *http.Request) (compileRequest, bool) {
	var req compileRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Code: "invalid_argument", Message: err.Error()})
		return req, false
	}
	req.Flow = strings.TrimSpace(req.Flow)
	if req.Flow == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Code: "invalid_argument", Message: "flow is required"})
		return req, false
	}
	return req, true
}

var errArchiveDisabled = errors.New("archive is not configured")

// classify maps an error to its HTTP status and wire code.
func classify(err error) (int, string) {
	var (
		inputErr *compiler.InputError
		resErr   *locator.ResolutionError
		pathErr  *persist.PathSafetyError
	)
	switch {
	case errors.As(err, &inputErr):
		return http.StatusNotFound, "no_steps"
	case errors.As(err, &resErr):
		return http.StatusUnprocessableEntity, "unresolved_locator"
	case errors.As(err, &pathErr):
		return http.StatusBadRequest, "path_outside_root"
	case errors.Is(err, archive.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, errArchiveDisabled):
		return http.StatusServiceUnavailable, "unavailable"
	case errors.Is(err, preview.ErrEmptyRefinement):
		return http.StatusBadGateway, "empty_refinement"
	}
	return http.StatusInternalServerError, "internal"
}

func writeError(w http.ResponseWriter, err error) {
	status, code := classify(err)
	writeJSON(w, status, errorResponse{Code: code, Message: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
