package org

import (
	"strings"
)

// Property is a single :PROPERTIES: drawer entry. Order is preserved
// when serializing.
type Property struct {
	Name  string
	Value string
}

// Node is one org-mode headline with its drawers and body.
type Node struct {
	Heading    string
	Todo       string
	Tags       []string
	Properties []Property
	Body       string
	Timestamp  *Timestamp
	Clocks     []string
	Level      int
}

// Property returns the value for name (case-insensitive), or "".
func (n *Node) Property(name string) string {
	for _, p := range n.Properties {
		if strings.EqualFold(p.Name, name) {
			return p.Value
		}
	}
	return ""
}

// SetProperty sets or appends a drawer property, keeping existing order.
func (n *Node) SetProperty(name, value string) {
	for i, p := range n.Properties {
		if strings.EqualFold(p.Name, name) {
			n.Properties[i].Value = value
			return
		}
	}
	n.Properties = append(n.Properties, Property{Name: name, Value: value})
}

// AddTag appends tag unless already present.
func (n *Node) AddTag(tag string) {
	for _, t := range n.Tags {
		if t == tag {
			return
		}
	}
	n.Tags = append(n.Tags, tag)
}

// Org serializes the node: headline with optional TODO keyword and tags,
// timestamp line, :LOGBOOK: clocks, :PROPERTIES: drawer and body.
// Standalone timestamp lines inside the body are dropped so the schedule
// line stays authoritative.
func (n *Node) Org() string {
	var lines []string
	level := n.Level
	if level < 1 {
		level = 1
	}
	if n.Heading != "" {
		head := strings.Repeat("*", level)
		if n.Todo != "" {
			head += " " + n.Todo
		}
		head += " " + n.Heading
		if len(n.Tags) > 0 {
			head += "  :" + strings.Join(n.Tags, ":") + ":"
		}
		lines = append(lines, head)
		if s := n.Timestamp.String(); s != "" {
			lines = append(lines, s)
		}
		if len(n.Clocks) > 0 {
			lines = append(lines, ":LOGBOOK:")
			for _, clock := range n.Clocks {
				lines = append(lines, "CLOCK: "+clock)
			}
			lines = append(lines, ":END:")
		}
	}
	if len(n.Properties) > 0 {
		lines = append(lines, ":PROPERTIES:")
		for _, p := range n.Properties {
			lines = append(lines, ":"+strings.ToUpper(p.Name)+": "+p.Value)
		}
		lines = append(lines, ":END:")
	}
	if n.Body != "" {
		var body []string
		for _, line := range strings.Split(n.Body, "\n") {
			if IsTimestampLine(line) {
				continue
			}
			body = append(body, line)
		}
		if len(body) > 0 {
			lines = append(lines, strings.Join(body, "\n"))
		}
	}
	return strings.Join(lines, "\n")
}
