package protocol

import (
	"encoding/json"
	"strings"
	"time"
)

// Workspace is the JSON document exchanged with the workspace API. Only the
// parts this module inspects are typed; views, documentation and
// configuration travel as raw JSON.
type Workspace struct {
	ID                int64           `json:"id"`
	Name              string          `json:"name"`
	Description       string          `json:"description,omitempty"`
	Revision          int64           `json:"revision,omitempty"`
	LastModifiedDate  *time.Time      `json:"lastModifiedDate,omitempty"`
	LastModifiedUser  string          `json:"lastModifiedUser,omitempty"`
	LastModifiedAgent string          `json:"lastModifiedAgent,omitempty"`
	Model             Model           `json:"model"`
	Documentation     json.RawMessage `json:"documentation,omitempty"`
	Views             json.RawMessage `json:"views,omitempty"`
	Configuration     json.RawMessage `json:"configuration,omitempty"`
}

type Model struct {
	People          []Element        `json:"people,omitempty"`
	SoftwareSystems []SoftwareSystem `json:"softwareSystems,omitempty"`
}

type Perspective struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url,omitempty"`
	Value       string `json:"value,omitempty"`
}

type Element struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	Description   string            `json:"description,omitempty"`
	Technology    string            `json:"technology,omitempty"`
	Tags          string            `json:"tags,omitempty"`
	URL           string            `json:"url,omitempty"`
	Properties    map[string]string `json:"properties,omitempty"`
	Perspectives  []Perspective     `json:"perspectives,omitempty"`
	Relationships []Relationship    `json:"relationships,omitempty"`
}

type SoftwareSystem struct {
	Element
	Containers []Container `json:"containers,omitempty"`
}

type Container struct {
	Element
	Components []Element `json:"components,omitempty"`
}

type Relationship struct {
	ID                   string            `json:"id"`
	SourceID             string            `json:"sourceId"`
	DestinationID        string            `json:"destinationId"`
	Description          string            `json:"description,omitempty"`
	Technology           string            `json:"technology,omitempty"`
	Tags                 string            `json:"tags,omitempty"`
	URL                  string            `json:"url,omitempty"`
	Properties           map[string]string `json:"properties,omitempty"`
	Perspectives         []Perspective     `json:"perspectives,omitempty"`
	LinkedRelationshipID string            `json:"linkedRelationshipId,omitempty"`
}

// TagList splits the comma separated tag string, dropping blanks.
func TagList(tags string) []string {
	var out []string
	for _, t := range strings.Split(tags, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// ElementRef is an element found in a model together with its kind and
// the name of the element that contains it.
type ElementRef struct {
	Element Element
	Kind    string
	Parent  *ElementRef
}

func (m Model) FindElement(id string) (ElementRef, bool) {
	for _, p := range m.People {
		if p.ID == id {
			return ElementRef{Element: p, Kind: "Person"}, true
		}
	}
	for _, ss := range m.SoftwareSystems {
		ssRef := ElementRef{Element: ss.Element, Kind: "Software System"}
		if ss.ID == id {
			return ssRef, true
		}
		for _, c := range ss.Containers {
			cRef := ElementRef{Element: c.Element, Kind: "Container", Parent: &ssRef}
			if c.ID == id {
				return cRef, true
			}
			for _, comp := range c.Components {
				if comp.ID == id {
					return ElementRef{Element: comp, Kind: "Component", Parent: &cRef}, true
				}
			}
		}
	}
	return ElementRef{}, false
}

func (m Model) FindRelationship(id string) (Relationship, bool) {
	var found Relationship
	ok := false
	m.walk(func(e Element) bool {
		for _, r := range e.Relationships {
			if r.ID == id {
				found, ok = r, true
				return false
			}
		}
		return true
	})
	return found, ok
}

func (m Model) walk(fn func(Element) bool) {
	for _, p := range m.People {
		if !fn(p) {
			return
		}
	}
	for _, ss := range m.SoftwareSystems {
		if !fn(ss.Element) {
			return
		}
		for _, c := range ss.Containers {
			if !fn(c.Element) {
				return
			}
			for _, comp := range c.Components {
				if !fn(comp) {
					return
				}
			}
		}
	}
}
