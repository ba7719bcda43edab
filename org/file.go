package org

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/viant/afs"
	afsfile "github.com/viant/afs/file"
)

// File is a parsed org document: a level-0 root holding any preamble,
// plus top-level headline nodes.
type File struct {
	Root     *Node
	Children []*Node
}

// NewFile returns an empty document.
func NewFile() *File {
	return &File{Root: &Node{Level: 0}}
}

var (
	headingExpr  = regexp.MustCompile(`^(\*+)\s+(.*)$`)
	headTagsExpr = regexp.MustCompile(`\s+:([[:word:]@#%]+(?::[[:word:]@#%]+)*):\s*$`)
	drawerExpr   = regexp.MustCompile(`^:([A-Za-z0-9_@-]+):\s*(.*)$`)
)

// todoKeywords are the headline states recognized when parsing.
var todoKeywords = []string{"TODO", "DONE"}

// Parse reads an org document. Active timestamps are resolved in loc;
// only the first standalone timestamp of a node is kept as its schedule,
// further ones stay in the body.
func Parse(r io.Reader, loc *time.Location) (*File, error) {
	f := NewFile()
	current := f.Root
	var body []string
	drawer := "" // "", "PROPERTIES" or "LOGBOOK"

	flush := func() {
		current.Body = strings.TrimRight(strings.Join(body, "\n"), "\n")
		body = nil
		drawer = ""
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if m := headingExpr.FindStringSubmatch(line); m != nil {
			flush()
			// Headlines of every depth become children with their level
			// preserved; rendering them in order reproduces the outline.
			node := &Node{Level: len(m[1])}
			node.Heading, node.Todo, node.Tags = splitHeadline(m[2])
			f.Children = append(f.Children, node)
			current = node
			continue
		}
		trimmed := strings.TrimSpace(line)
		switch {
		case drawer != "":
			if strings.EqualFold(trimmed, ":END:") {
				drawer = ""
				continue
			}
			if drawer == "PROPERTIES" {
				if m := drawerExpr.FindStringSubmatch(trimmed); m != nil {
					current.Properties = append(current.Properties, Property{Name: m[1], Value: strings.TrimSpace(m[2])})
					continue
				}
			}
			if drawer == "LOGBOOK" {
				if strings.HasPrefix(trimmed, "CLOCK:") {
					current.Clocks = append(current.Clocks, strings.TrimSpace(strings.TrimPrefix(trimmed, "CLOCK:")))
					continue
				}
			}
		case strings.EqualFold(trimmed, ":PROPERTIES:"):
			drawer = "PROPERTIES"
			continue
		case strings.EqualFold(trimmed, ":LOGBOOK:"):
			drawer = "LOGBOOK"
			continue
		case current.Timestamp == nil && IsTimestampLine(line):
			ts, err := ParseTimestamp(trimmed, loc)
			if err == nil {
				current.Timestamp = ts
				continue
			}
		}
		body = append(body, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read org file: %w", err)
	}
	flush()
	return f, nil
}

// splitHeadline separates an optional TODO keyword and trailing tags
// from the headline text.
func splitHeadline(s string) (heading, todo string, tags []string) {
	if m := headTagsExpr.FindStringSubmatchIndex(s); m != nil {
		tags = strings.Split(s[m[2]:m[3]], ":")
		s = s[:m[0]]
	}
	for _, kw := range todoKeywords {
		if s == kw {
			return "", kw, tags
		}
		if strings.HasPrefix(s, kw+" ") {
			return strings.TrimSpace(s[len(kw):]), kw, tags
		}
	}
	return strings.TrimSpace(s), "", tags
}

// Render serializes the whole document, newline terminated.
func (f *File) Render() string {
	var blocks []string
	if f.Root != nil {
		if s := f.Root.Org(); s != "" {
			blocks = append(blocks, s)
		}
	}
	for _, n := range f.Children {
		if s := n.Org(); s != "" {
			blocks = append(blocks, s)
		}
	}
	if len(blocks) == 0 {
		return ""
	}
	return strings.Join(blocks, "\n") + "\n"
}

// Load reads and parses the org file at URL; a missing file yields an
// empty document.
func Load(ctx context.Context, fs afs.Service, URL string, loc *time.Location) (*File, error) {
	if ok, _ := fs.Exists(ctx, URL); !ok {
		return NewFile(), nil
	}
	reader, err := fs.OpenURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("open %v: %w", URL, err)
	}
	defer reader.Close()
	return Parse(reader, loc)
}

// Save writes the document to URL atomically: upload to a transient
// sibling, then move it over the destination.
func Save(ctx context.Context, fs afs.Service, URL string, f *File) error {
	parent := path.Dir(URL)
	if ok, _ := fs.Exists(ctx, parent); !ok {
		if err := fs.Create(ctx, parent, afsfile.DefaultDirOsMode, true); err != nil {
			return fmt.Errorf("create %v: %w", parent, err)
		}
	}
	transient := URL + "." + uuid.New().String() + ".tmp"
	data := []byte(f.Render())
	if err := fs.Upload(ctx, transient, 0o644, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write %v: %w", transient, err)
	}
	if err := fs.Move(ctx, transient, URL); err != nil {
		return fmt.Errorf("move %v: %w", URL, err)
	}
	return nil
}
