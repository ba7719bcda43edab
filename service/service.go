// Package service runs the fetch-and-convert pass: pull the calendar
// view, convert events to org nodes and merge them into the org file.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/viant/afs"

	"github.com/santoshs/ol-calendar/config"
	"github.com/santoshs/ol-calendar/convert"
	"github.com/santoshs/ol-calendar/graph"
	"github.com/santoshs/ol-calendar/org"
)

// calendarAPI is the slice of graph.CalendarService the pipeline uses.
type calendarAPI interface {
	CalendarView(ctx context.Context, in *graph.CalendarViewInput, scopes []string, prompt func(string)) (*graph.CalendarViewOutput, error)
	ResolveCalendar(ctx context.Context, alias, name string, scopes []string, prompt func(string)) (string, error)
}

// Service owns one synchronisation pass.
type Service struct {
	cfg *config.Config
	mgr *graph.Manager
	cal calendarAPI
	fs  afs.Service
	out io.Writer
	now func() time.Time
}

func New(cfg *config.Config) *Service {
	mgr := graph.NewManager(cfg.Azure.ClientID, cfg.Azure.TenantID, cfg.Storage.Dir)
	return &Service{
		cfg: cfg,
		mgr: mgr,
		cal: graph.NewCalendarService(mgr),
		fs:  afs.New(),
		out: os.Stdout,
		now: time.Now,
	}
}

func (s *Service) alias() string {
	if s.cfg.Azure.Username != "" {
		return s.cfg.Azure.Username
	}
	return "default"
}

func (s *Service) scopes() []string {
	if len(s.cfg.Azure.Scopes) == 0 {
		return graph.DefaultScopes()
	}
	return graph.QualifyScopes(s.cfg.Azure.Scopes)
}

// devicePrompt surfaces the device-code message on stderr where it does
// not mix with org output on stdout.
func devicePrompt(msg string) {
	fmt.Fprintln(os.Stderr, msg)
}

// Login forces authentication (device-code flow when needed) and
// reports which account answered.
func (s *Service) Login(ctx context.Context) error {
	if s.mgr.HasAuthRecord(ctx, s.alias()) {
		log.Printf("refreshing sign-in for %s", s.alias())
	}
	if err := s.mgr.Acquire(ctx, s.alias(), s.scopes(), devicePrompt); err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}
	s.checkPrincipal(ctx)
	return nil
}

// checkPrincipal warns when the signed-in account does not match the
// configured username.
func (s *Service) checkPrincipal(ctx context.Context) {
	if s.mgr == nil {
		return
	}
	token, err := s.mgr.Token(ctx, s.alias(), s.scopes(), devicePrompt)
	if err != nil {
		return
	}
	principal := graph.Principal(token)
	if principal == "" {
		return
	}
	if s.cfg.Azure.Username != "" && !strings.EqualFold(principal, s.cfg.Azure.Username) {
		log.Printf("warning: signed in as %s, config expects %s", principal, s.cfg.Azure.Username)
		return
	}
	if graph.Debug() {
		log.Printf("[service] signed in as %s", principal)
	}
}

// Fetch pulls the calendar view for the configured window.
func (s *Service) Fetch(ctx context.Context) ([]graph.Event, error) {
	calendarID, err := s.cal.ResolveCalendar(ctx, s.alias(), s.cfg.Calendar.Name, s.scopes(), devicePrompt)
	if err != nil {
		return nil, err
	}
	start, end := s.cfg.Window(s.now())
	out, err := s.cal.CalendarView(ctx, &graph.CalendarViewInput{
		Alias:      s.alias(),
		StartISO:   start.Format(time.RFC3339),
		EndISO:     end.Format(time.RFC3339),
		CalendarID: calendarID,
	}, s.scopes(), devicePrompt)
	if err != nil {
		return nil, fmt.Errorf("fetch calendar: %w", err)
	}
	return out.Events, nil
}

// Entries converts events to org nodes, dropping cancelled and
// skip-listed events and warning on malformed ones.
func (s *Service) Entries(events []graph.Event) []*org.Node {
	opts := convert.Options{
		Location: s.cfg.Location(),
		BaseTags: s.cfg.Org.Tags,
	}
	var nodes []*org.Node
	for i := range events {
		event := &events[i]
		if event.IsCancelled || s.skip(event) {
			log.Printf("skipping %s", event.Subject)
			continue
		}
		node, err := convert.Entry(event, opts)
		if err != nil {
			var verr *convert.ValidationError
			if errors.As(err, &verr) {
				log.Printf("warning: skipping malformed event %q: %v", event.Subject, err)
				continue
			}
			log.Printf("warning: skipping event %q: %v", event.Subject, err)
			continue
		}
		nodes = append(nodes, node)
	}
	return nodes
}

func (s *Service) skip(event *graph.Event) bool {
	for _, expr := range s.cfg.SkipExprs() {
		if expr.MatchString(event.Subject) || expr.MatchString(event.BodyPreview) {
			return true
		}
	}
	return false
}

// Run performs the full pass. With an empty orgPath the rendered
// entries go to stdout; otherwise they are merged into the org file.
func (s *Service) Run(ctx context.Context, orgPath string) error {
	s.checkPrincipal(ctx)
	events, err := s.Fetch(ctx)
	if err != nil {
		return err
	}
	entries := s.Entries(events)
	if orgPath == "" {
		doc := org.NewFile()
		doc.Children = append(doc.Children, entries...)
		if _, err := io.WriteString(s.out, doc.Render()); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		return nil
	}
	doc, err := org.Load(ctx, s.fs, orgPath, s.cfg.Location())
	if err != nil {
		return err
	}
	added, updated := Merge(doc, entries)
	if err := org.Save(ctx, s.fs, orgPath, doc); err != nil {
		return err
	}
	log.Printf("%s: %d events, %d added, %d updated", orgPath, len(entries), added, updated)
	return nil
}
