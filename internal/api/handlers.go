package api

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/bia-service/internal/bia"
	"github.com/sells-group/bia-service/internal/export"
	"github.com/sells-group/bia-service/internal/model"
	"github.com/sells-group/bia-service/internal/source"
	"github.com/sells-group/bia-service/internal/workflow"
)

type actionRequest struct {
	Actor    string `json:"actor"`
	Comments string `json:"comments"`
}

type syncRequest struct {
	Actor     string `json:"actor"`
	Direction string `json:"direction"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) sources(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]source.Status{"sources": source.Statuses(s.adapters)})
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	lookback := s.opts.StatsLookbackHours
	if v := r.URL.Query().Get("lookback_hours"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, r, eris.Wrap(errBadRequest, "lookback_hours must be a non-negative integer"))
			return
		}
		lookback = n
	}
	snap, err := s.metrics.Collect(r.Context(), lookback)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) generate(w http.ResponseWriter, r *http.Request) {
	var req bia.Request
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if dry, _ := strconv.ParseBool(r.URL.Query().Get("dry_run")); dry {
		doc, err := s.generator.Build(r.Context(), req)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, doc)
		return
	}

	doc, err := s.generator.Generate(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	docs, err := s.store.ListDocuments(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs, "count": len(docs)})
}

func parseFilter(r *http.Request) (model.DocumentFilter, error) {
	q := r.URL.Query()
	f := model.DocumentFilter{
		FunctionName: q.Get("function_name"),
		FunctionType: model.FunctionType(q.Get("function_type")),
		Status:       model.Status(q.Get("status")),
	}
	if f.FunctionType != "" && !f.FunctionType.Valid() {
		return f, eris.Wrapf(errBadRequest, "unknown function_type %q", f.FunctionType)
	}
	if f.Status != "" && !f.Status.Valid() {
		return f, eris.Wrapf(errBadRequest, "unknown status %q", f.Status)
	}
	for _, p := range []struct {
		name string
		dst  *int
	}{{"limit", &f.Limit}, {"offset", &f.Offset}} {
		v := q.Get(p.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return f, eris.Wrapf(errBadRequest, "%s must be a non-negative integer", p.name)
		}
		*p.dst = n
	}
	return f, nil
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	doc, err := s.store.GetDocument(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) audit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.store.GetDocument(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	entries, err := s.store.ListAudit(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (s *Server) exportXLSX(w http.ResponseWriter, r *http.Request) {
	doc, err := s.store.GetDocument(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := export.Write(&buf, doc); err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename(doc)+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) transition(action workflow.Action) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body actionRequest
		if err := decodeBody(r, &body); err != nil {
			writeError(w, r, err)
			return
		}
		res, err := s.workflow.Transition(r.Context(), chi.URLParam(r, "id"), action, body.Actor, body.Comments)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func (s *Server) existing(w http.ResponseWriter, r *http.Request) {
	res, err := s.workflow.CheckExisting(r.Context(), chi.URLParam(r, "functionName"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) push(w http.ResponseWriter, r *http.Request) {
	var body actionRequest
	if err := decodeBody(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.workflow.Push(r.Context(), chi.URLParam(r, "id"), body.Actor, body.Comments)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) sync(w http.ResponseWriter, r *http.Request) {
	var body syncRequest
	if err := decodeBody(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	dir, err := workflow.ParseDirection(body.Direction)
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.workflow.Sync(r.Context(), chi.URLParam(r, "id"), body.Actor, dir)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
