package server

import (
	"encoding/json"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/izzyreal/wsbridge/internal/protocol"
	"github.com/izzyreal/wsbridge/internal/server/httpx"
	"github.com/izzyreal/wsbridge/internal/tooltip"
)

func (s *stateStore) loadModel(w http.ResponseWriter, r *http.Request) (protocol.Model, bool) {
	id, ok := workspaceIDParam(r)
	if !ok {
		httpx.WriteFailure(w, http.StatusBadRequest, "invalid workspace id")
		return protocol.Model{}, false
	}
	stored, found, err := s.db.GetWorkspace(r.Context(), id, strings.TrimSpace(r.URL.Query().Get("branch")))
	if err != nil {
		slog.Error("get workspace failed", "workspace_id", id, "error", err)
		httpx.WriteFailure(w, http.StatusInternalServerError, "could not read workspace")
		return protocol.Model{}, false
	}
	if !found {
		httpx.WriteFailure(w, http.StatusNotFound, fmt.Sprintf("Workspace %d does not exist", id))
		return protocol.Model{}, false
	}
	var ws protocol.Workspace
	if err := json.Unmarshal(stored.JSON, &ws); err != nil {
		slog.Error("decode stored workspace failed", "workspace_id", id, "error", err)
		httpx.WriteFailure(w, http.StatusInternalServerError, "stored workspace is not valid JSON")
		return protocol.Model{}, false
	}
	return ws.Model, true
}

func (s *stateStore) elementTooltipHandler(w http.ResponseWriter, r *http.Request) {
	model, ok := s.loadModel(w, r)
	if !ok {
		return
	}
	ref, found := model.FindElement(chi.URLParam(r, "elementID"))
	if !found {
		httpx.WriteFailure(w, http.StatusNotFound, "element not found")
		return
	}
	e := ref.Element
	tip := tooltip.ElementTooltip{
		Name:        e.Name,
		Metadata:    metadata(ref.Kind, e.Technology),
		Description: e.Description,
		Tags:        protocol.TagList(e.Tags),
		Properties:  e.Properties,
		URL:         e.URL,
		Perspective: perspective(e.Perspectives, r.URL.Query().Get("perspective")),
	}
	if ref.Parent != nil {
		tip.Parent = fmt.Sprintf("Parent: %s [%s]", ref.Parent.Element.Name, ref.Parent.Kind)
	}
	body, err := tooltip.RenderElement(tip)
	writeTooltip(w, body, err)
}

func (s *stateStore) relationshipTooltipHandler(w http.ResponseWriter, r *http.Request) {
	model, ok := s.loadModel(w, r)
	if !ok {
		return
	}
	rel, found := model.FindRelationship(chi.URLParam(r, "relationshipID"))
	if !found {
		httpx.WriteFailure(w, http.StatusNotFound, "relationship not found")
		return
	}
	tip := tooltip.RelationshipTooltip{
		Order:           strings.TrimSpace(r.URL.Query().Get("order")),
		SourceName:      elementName(model, rel.SourceID),
		Description:     rel.Description,
		DestinationName: elementName(model, rel.DestinationID),
		Metadata:        metadata("Relationship", rel.Technology),
		Tags:            protocol.TagList(rel.Tags),
		Properties:      rel.Properties,
		URL:             rel.URL,
		Perspective:     perspective(rel.Perspectives, r.URL.Query().Get("perspective")),
	}
	body, err := tooltip.RenderRelationship(tip)
	writeTooltip(w, body, err)
}

func writeTooltip(w http.ResponseWriter, body string, err error) {
	if err != nil {
		slog.Error("render tooltip failed", "error", err)
		httpx.WriteFailure(w, http.StatusInternalServerError, "could not render tooltip")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=UTF-8")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, `<div class="tooltip" style="%s">%s</div>`, html.EscapeString(tooltip.CSS(nil)), body)
}

func metadata(kind, technology string) string {
	if technology = strings.TrimSpace(technology); technology != "" {
		return "[" + kind + ": " + technology + "]"
	}
	return "[" + kind + "]"
}

func elementName(m protocol.Model, id string) string {
	if ref, ok := m.FindElement(id); ok {
		return ref.Element.Name
	}
	return id
}

func perspective(list []protocol.Perspective, name string) *tooltip.Perspective {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	for _, p := range list {
		if p.Name == name {
			return &tooltip.Perspective{Name: p.Name, Description: p.Description, URL: p.URL, Value: p.Value}
		}
	}
	return nil
}
