package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/louisbranch/studies/internal/platform/i18n/catalog"
	"github.com/louisbranch/studies/internal/services/studies/projection"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	serverName = "studies"
	// serverVersion identifies the MCP server version.
	serverVersion = "0.1.0"
)

var errServerClosed = errors.New("studies server is closed")

// Source is the repository surface the tools need.
type Source interface {
	projection.DisciplineSource
	projection.TaskSource
	Lookup
}

// Option customizes a Server.
type Option func(*Server)

// WithLocale localizes projection states and agenda text.
func WithLocale(locale string) Option {
	return func(s *Server) {
		s.locale = catalog.Match(locale)
	}
}

// WithClock sets the clock used for today's agenda.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

// Server hands every MCP session its own screen: a set of studies
// projections with the tools bound to them. Selections made in one session
// never leak into another.
type Server struct {
	ctx    context.Context
	source Source
	locale string
	now    func() time.Time

	mu      sync.Mutex
	screens map[*screen]struct{}
	closed  bool
}

// screen is the projection set of one session.
type screen struct {
	mcpServer   *mcp.Server
	disciplines *projection.Disciplines
	tasks       *projection.Tasks
	agenda      *projection.Agenda
	closeOnce   sync.Once
}

// New prepares a server over source. Screens opened later live until their
// session ends, ctx ends or Close is called.
func New(ctx context.Context, source Source, opts ...Option) (*Server, error) {
	if source == nil {
		return nil, fmt.Errorf("studies source is required")
	}
	s := &Server{
		ctx:     ctx,
		source:  source,
		locale:  catalog.BaseLocale,
		now:     time.Now,
		screens: make(map[*screen]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// openScreen builds the projections for one session and registers every
// tool against them. The screen closes itself once the session ends.
func (s *Server) openScreen() (*screen, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, errServerClosed
	}

	sc := &screen{
		disciplines: projection.NewDisciplines(s.ctx, s.source, projection.WithLocale(s.locale)),
		tasks:       projection.NewTasks(s.ctx, s.source, projection.WithLocale(s.locale)),
		agenda:      projection.NewAgenda(s.ctx, s.source, s.now),
	}
	sc.mcpServer = mcp.NewServer(&mcp.Implementation{Name: serverName, Version: serverVersion}, &mcp.ServerOptions{
		InitializedHandler: func(_ context.Context, req *mcp.InitializedRequest) {
			if req == nil || req.Session == nil {
				return
			}
			go func() {
				_ = req.Session.Wait()
				s.closeScreen(sc)
			}()
		},
	})
	sc.registerTools(s.source, s.locale)
	s.screens[sc] = struct{}{}
	return sc, nil
}

func (sc *screen) registerTools(lookup Lookup, locale string) {
	mcp.AddTool(sc.mcpServer, DisciplineListTool(), DisciplineListHandler(sc.disciplines, locale))
	mcp.AddTool(sc.mcpServer, DisciplineCreateTool(), DisciplineCreateHandler(sc.disciplines, locale))
	mcp.AddTool(sc.mcpServer, DisciplineUpdateTool(), DisciplineUpdateHandler(sc.disciplines, locale))
	mcp.AddTool(sc.mcpServer, DisciplineSelectTool(), DisciplineSelectHandler(sc.disciplines, locale))
	mcp.AddTool(sc.mcpServer, DisciplineDeleteSelectedTool(), DisciplineDeleteSelectedHandler(sc.disciplines, locale))
	mcp.AddTool(sc.mcpServer, ScheduleAddTool(), ScheduleAddHandler(sc.disciplines, locale))
	mcp.AddTool(sc.mcpServer, MaterialLinkAddTool(), MaterialLinkAddHandler(sc.disciplines, locale))
	mcp.AddTool(sc.mcpServer, MaterialLinkUpdateTool(), MaterialLinkUpdateHandler(sc.disciplines, lookup, locale))
	mcp.AddTool(sc.mcpServer, MaterialLinkDeleteTool(), MaterialLinkDeleteHandler(sc.disciplines, lookup, locale))
	mcp.AddTool(sc.mcpServer, MessageOfTheDayTool(), MessageOfTheDayHandler(sc.disciplines, locale))

	mcp.AddTool(sc.mcpServer, TaskListTool(), TaskListHandler(sc.tasks, locale))
	mcp.AddTool(sc.mcpServer, TaskPendingTool(), TaskPendingHandler(sc.tasks, locale))
	mcp.AddTool(sc.mcpServer, TaskCreateTool(), TaskCreateHandler(sc.tasks, locale))
	mcp.AddTool(sc.mcpServer, TaskUpdateTool(), TaskUpdateHandler(sc.tasks, locale))
	mcp.AddTool(sc.mcpServer, TaskGetTool(), TaskGetHandler(sc.tasks, locale))
	mcp.AddTool(sc.mcpServer, TaskSetCompletedTool(), TaskSetCompletedHandler(sc.tasks, lookup, locale))
	mcp.AddTool(sc.mcpServer, TaskDeleteTool(), TaskDeleteHandler(sc.tasks, lookup, locale))

	mcp.AddTool(sc.mcpServer, AgendaDayTool(), AgendaDayHandler(sc.agenda, locale))
}

func (sc *screen) close() {
	sc.closeOnce.Do(func() {
		sc.disciplines.Close()
		sc.tasks.Close()
		sc.agenda.Close()
	})
}

func (s *Server) closeScreen(sc *screen) {
	s.mu.Lock()
	delete(s.screens, sc)
	s.mu.Unlock()
	sc.close()
}

// Serve runs one session over transport until ctx ends or the client
// disconnects.
func (s *Server) Serve(ctx context.Context, transport mcp.Transport) error {
	sc, err := s.openScreen()
	if err != nil {
		return err
	}
	defer s.closeScreen(sc)
	return sc.mcpServer.Run(ctx, transport)
}

// Close stops the projections of every open session and refuses new ones.
func (s *Server) Close() {
	s.mu.Lock()
	s.closed = true
	open := make([]*screen, 0, len(s.screens))
	for sc := range s.screens {
		open = append(open, sc)
	}
	s.screens = make(map[*screen]struct{})
	s.mu.Unlock()

	for _, sc := range open {
		sc.close()
	}
	if len(open) > 0 {
		log.Printf("Closed %d MCP session screens", len(open))
	}
}
