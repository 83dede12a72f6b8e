package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/docmap/pkg/docservice"
	"github.com/matzehuels/docmap/pkg/errors"
	"github.com/matzehuels/docmap/pkg/mindmap"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"documents": s.svc.Index.Len(),
	})
}

func (s *Server) handleMindMap(w http.ResponseWriter, r *http.Request) {
	depth := docservice.DefaultDepth
	if v := r.URL.Query().Get("depth"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.writeError(w, r, errors.New(errors.ErrCodeInvalidInput, "depth must be a non-negative integer, got %q", v))
			return
		}
		depth = n
	}
	t, err := s.svc.Tree(chi.URLParam(r, "documentID"), depth)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleNode(w http.ResponseWriter, r *http.Request) {
	n, err := s.svc.Node(chi.URLParam(r, "nodeID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

func (s *Server) handleExpand(w http.ResponseWriter, r *http.Request) {
	var req docservice.ExpandRequest
	if err := s.decodeOptional(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	exp, err := s.svc.Expand(chi.URLParam(r, "nodeID"), req.WantContent())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, exp)
}

func (s *Server) handleUpdateNode(w http.ResponseWriter, r *http.Request) {
	var patch docservice.NodePatch
	if err := s.decode(r, &patch); err != nil {
		s.writeError(w, r, err)
		return
	}
	n, err := s.svc.UpdateNode(r.Context(), chi.URLParam(r, "nodeID"), patch)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.svc.Documents(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, docservice.DocumentsResponse{Documents: docs})
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes))
	if err != nil {
		s.writeError(w, r, errors.Wrap(errors.ErrCodeInvalidInput, err, "read body"))
		return
	}
	var req docservice.ImportRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		s.writeError(w, r, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode document"))
		return
	}
	if len(req.Nodes) == 0 {
		// Nested outlines are accepted too.
		t, err := mindmap.UnmarshalTree(raw)
		if err != nil {
			s.writeError(w, r, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode document"))
			return
		}
		req.Tree = t
	}
	info, err := s.svc.Import(r.Context(), req, raw)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, info)
}

func (s *Server) handleLoadDocument(w http.ResponseWriter, r *http.Request) {
	resp, err := s.svc.LoadDocument(r.Context(), chi.URLParam(r, "contentHash"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	hash := chi.URLParam(r, "contentHash")
	entries, err := s.svc.Audit(r.Context(), hash)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, docservice.AuditResponse{ContentHash: hash, Entries: entries})
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Delete(r.Context(), chi.URLParam(r, "contentHash")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, s.cfg.MaxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode request body")
	}
	return nil
}

// decodeOptional is decode for endpoints whose body may be empty.
func (s *Server) decodeOptional(r *http.Request, v any) error {
	data, err := io.ReadAll(io.LimitReader(r.Body, s.cfg.MaxBodyBytes))
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "read body")
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode request body")
	}
	return nil
}

// writeError maps err to a status code and a {detail, error_code} body.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errors.HTTPStatus(err)
	if status >= 500 {
		s.log.Error("request failed", "path", r.URL.Path, "err", err)
	}
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	writeJSON(w, status, docservice.ErrorResponse{
		Detail:    detail(err),
		ErrorCode: string(code),
	})
}

// detail is the user message of err followed by those of its causes.
func detail(err error) string {
	e, ok := err.(*errors.Error)
	if !ok {
		return err.Error()
	}
	if e.Cause != nil {
		return e.Message + ": " + detail(e.Cause)
	}
	return e.Message
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
