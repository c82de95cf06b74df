package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/louisbranch/studies/internal/services/studies/motd"
	"github.com/louisbranch/studies/internal/services/studies/projection"
	"github.com/louisbranch/studies/internal/services/studies/repository"
	"github.com/louisbranch/studies/internal/services/studies/storage/sqlite"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type stubFetcher struct {
	message motd.Message
	err     error
}

func (f stubFetcher) MessageOfTheDay(context.Context) (motd.Message, error) {
	return f.message, f.err
}

func newTestServer(t *testing.T, opts ...Option) *Server {
	t.Helper()
	return newTestServerWithFetcher(t, stubFetcher{message: motd.Message{ID: 1, UserID: 1, Title: "delectus aut autem"}}, opts...)
}

func newTestServerWithFetcher(t *testing.T, fetcher motd.Fetcher, opts ...Option) *Server {
	t.Helper()
	store, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "studies.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	repo, err := repository.New(store, fetcher)
	if err != nil {
		t.Fatalf("new repository: %v", err)
	}
	server, err := New(context.Background(), repo, opts...)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	t.Cleanup(func() {
		server.Close()
		if err := store.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})
	return server
}

func connect(t *testing.T, server *Server) *mcp.ClientSession {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Serve(ctx, serverTransport)
	}()

	client := mcp.NewClient(&mcp.Implementation{Name: "client", Version: "v0.0.1"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		cancel()
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() {
		_ = session.Close()
		cancel()
		select {
		case <-serveErr:
		case <-time.After(time.Second):
			t.Error("server did not stop")
		}
	})
	return session
}

func callTool[T any](t *testing.T, session *mcp.ClientSession, name string, args any) T {
	t.Helper()
	result := call(t, session, name, args)
	if result.IsError {
		t.Fatalf("%s returned tool error: %s", name, resultText(result))
	}
	raw, err := json.Marshal(result.StructuredContent)
	if err != nil {
		t.Fatalf("marshal %s output: %v", name, err)
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("decode %s output: %v", name, err)
	}
	return out
}

// awaitTool calls name until its output satisfies ready. Live projections
// publish writes asynchronously.
func awaitTool[T any](t *testing.T, session *mcp.ClientSession, name string, args any, ready func(T) bool) T {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		out := callTool[T](t, session, name, args)
		if ready(out) {
			return out
		}
		if time.Now().After(deadline) {
			t.Fatalf("%s never settled, last output %+v", name, out)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func call(t *testing.T, session *mcp.ClientSession, name string, args any) *mcp.CallToolResult {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	result, err := session.CallTool(ctx, &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		t.Fatalf("call %s: %v", name, err)
	}
	return result
}

func screenCount(server *Server) int {
	server.mu.Lock()
	defer server.mu.Unlock()
	return len(server.screens)
}

func waitForScreens(t *testing.T, server *Server, want int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for screenCount(server) != want {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d open screens, got %d", want, screenCount(server))
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func resultText(result *mcp.CallToolResult) string {
	var parts []string
	for _, content := range result.Content {
		if text, ok := content.(*mcp.TextContent); ok {
			parts = append(parts, text.Text)
		}
	}
	return strings.Join(parts, "\n")
}

func TestListToolsRegistersSurface(t *testing.T) {
	t.Parallel()

	session := connect(t, newTestServer(t))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	result, err := session.ListTools(ctx, nil)
	if err != nil {
		t.Fatalf("list tools: %v", err)
	}
	names := make(map[string]bool, len(result.Tools))
	for _, tool := range result.Tools {
		names[tool.Name] = true
		if tool.Name == "discipline_delete_selected" && !strings.Contains(tool.Description, "unassigns its tasks") {
			t.Errorf("unexpected description %q", tool.Description)
		}
	}
	for _, want := range []string{
		"discipline_list", "discipline_create", "discipline_update", "discipline_select",
		"discipline_delete_selected", "schedule_add", "material_link_add", "material_link_update",
		"material_link_delete", "task_list", "task_pending", "task_create", "task_update", "task_get",
		"task_set_completed", "task_delete", "agenda_day", "motd_fetch",
	} {
		if !names[want] {
			t.Errorf("missing tool %s", want)
		}
	}
	if len(result.Tools) != 18 {
		t.Fatalf("expected 18 tools, got %d", len(result.Tools))
	}
}

func TestDisciplineTools(t *testing.T) {
	t.Parallel()

	session := connect(t, newTestServer(t))

	created := callTool[CreatedResult](t, session, "discipline_create", map[string]any{
		"name":     " Cálculo I ",
		"location": "Sala 3",
		"schedules": []map[string]any{
			{"day_of_week": "MONDAY", "start_time": "08:00", "end_time": "09:40"},
		},
	})
	if created.ID == 0 {
		t.Fatal("expected discipline id")
	}

	list := callTool[DisciplineListResult](t, session, "discipline_list", map[string]any{})
	if len(list.Disciplines) != 1 || list.Disciplines[0].Discipline.Name != "Cálculo I" {
		t.Fatalf("unexpected list %+v", list)
	}

	notSelected := callTool[MaterialLinkAddResult](t, session, "material_link_add", map[string]any{"url": "https://example.com"})
	if notSelected.Added {
		t.Fatal("expected link add to be a no-op without selection")
	}

	detail := callTool[projection.DisciplineDetail](t, session, "discipline_select", map[string]any{"id": created.ID})
	if detail.State != projection.DetailLoaded || detail.Data == nil || len(detail.Data.Discipline.Schedules) != 1 {
		t.Fatalf("unexpected detail %+v", detail)
	}

	blank := call(t, session, "material_link_add", map[string]any{"url": "  "})
	if !blank.IsError {
		t.Fatal("expected blank url to be rejected")
	}
	added := callTool[MaterialLinkAddResult](t, session, "material_link_add", map[string]any{"url": "https://example.com/slides", "description": "slides"})
	if !added.Added {
		t.Fatalf("expected link to be added, got %+v", added)
	}
	if deleted := callTool[DeletedResult](t, session, "material_link_delete", map[string]any{"id": added.ID}); !deleted.Deleted {
		t.Fatal("expected link delete")
	}

	invalid := callTool[projection.DisciplineDetail](t, session, "discipline_select", map[string]any{"id": -1})
	if invalid.State != projection.DetailError {
		t.Fatalf("expected error state for invalid id, got %+v", invalid)
	}

	task := callTool[CreatedResult](t, session, "task_create", map[string]any{"name": "Lista 1", "discipline_id": created.ID})
	callTool[projection.DisciplineDetail](t, session, "discipline_select", map[string]any{"id": created.ID})
	if deleted := callTool[DeletedResult](t, session, "discipline_delete_selected", map[string]any{}); !deleted.Deleted {
		t.Fatal("expected selected discipline to be deleted")
	}
	awaitTool(t, session, "task_list", map[string]any{}, func(list TaskListResult) bool {
		return len(list.Tasks) == 1 && list.Tasks[0].Task.ID == task.ID && list.Tasks[0].Task.DisciplineID == 0
	})
}

func TestDisciplineEditTools(t *testing.T) {
	t.Parallel()

	session := connect(t, newTestServer(t))

	created := callTool[CreatedResult](t, session, "discipline_create", map[string]any{"name": "Química"})
	if noSelection := callTool[AddedResult](t, session, "schedule_add", map[string]any{
		"schedules": []map[string]any{{"day_of_week": "TUESDAY", "start_time": "10:00", "end_time": "11:40"}},
	}); noSelection.Added {
		t.Fatal("expected schedule add to be a no-op without selection")
	}

	updated := callTool[UpdatedResult](t, session, "discipline_update", map[string]any{
		"id": created.ID, "name": "Química Orgânica", "professor": "Dra. Lima",
	})
	if !updated.Updated {
		t.Fatal("expected discipline update")
	}

	callTool[projection.DisciplineDetail](t, session, "discipline_select", map[string]any{"id": created.ID})
	added := callTool[AddedResult](t, session, "schedule_add", map[string]any{
		"schedules": []map[string]any{{"day_of_week": "TUESDAY", "start_time": "10:00", "end_time": "11:40"}},
	})
	if !added.Added {
		t.Fatal("expected schedule add on the selected discipline")
	}
	if bad := call(t, session, "schedule_add", map[string]any{
		"schedules": []map[string]any{{"day_of_week": "TUESDAY", "start_time": "12:00", "end_time": "11:00"}},
	}); !bad.IsError {
		t.Fatal("expected inverted slot to be rejected")
	}

	link := callTool[MaterialLinkAddResult](t, session, "material_link_add", map[string]any{"url": "https://example.com/a"})
	if relinked := callTool[UpdatedResult](t, session, "material_link_update", map[string]any{
		"id": link.ID, "url": "https://example.com/b", "description": "apostila",
	}); !relinked.Updated {
		t.Fatal("expected link update")
	}
	if missing := call(t, session, "material_link_update", map[string]any{"id": link.ID + 100, "url": "https://example.com/c"}); !missing.IsError {
		t.Fatal("expected updating a missing link to fail")
	}

	detail := awaitTool(t, session, "discipline_select", map[string]any{"id": created.ID}, func(detail projection.DisciplineDetail) bool {
		return detail.Data != nil && len(detail.Data.Links) == 1 && detail.Data.Links[0].Description == "apostila" &&
			len(detail.Data.Discipline.Schedules) == 1
	})
	if got := detail.Data.Discipline.Discipline; got.Name != "Química Orgânica" || got.Professor != "Dra. Lima" {
		t.Fatalf("unexpected discipline %+v", got)
	}
	if len(detail.Data.Discipline.Schedules) != 1 || detail.Data.Discipline.Schedules[0].DayOfWeek != "TUESDAY" {
		t.Fatalf("unexpected schedules %+v", detail.Data.Discipline.Schedules)
	}
	if len(detail.Data.Links) != 1 || detail.Data.Links[0].URL != "https://example.com/b" || detail.Data.Links[0].Description != "apostila" {
		t.Fatalf("unexpected links %+v", detail.Data.Links)
	}
}

func TestToolErrorsAreLocalized(t *testing.T) {
	t.Parallel()

	session := connect(t, newTestServer(t, WithLocale("pt-BR")))

	result := call(t, session, "discipline_update", map[string]any{"id": 0, "name": "Biologia"})
	if !result.IsError {
		t.Fatal("expected invalid id to be rejected")
	}
	if text := resultText(result); !strings.Contains(text, "ID inválido") {
		t.Fatalf("expected localized error, got %q", text)
	}
}

func TestSessionsKeepSeparateScreens(t *testing.T) {
	t.Parallel()

	server := newTestServer(t)
	first := connect(t, server)
	second := connect(t, server)

	alpha := callTool[CreatedResult](t, first, "discipline_create", map[string]any{"name": "Alpha"})
	beta := callTool[CreatedResult](t, first, "discipline_create", map[string]any{"name": "Beta"})

	callTool[projection.DisciplineDetail](t, first, "discipline_select", map[string]any{"id": alpha.ID})
	callTool[projection.DisciplineDetail](t, second, "discipline_select", map[string]any{"id": beta.ID})

	added := callTool[MaterialLinkAddResult](t, first, "material_link_add", map[string]any{"url": "https://example.com/alpha"})
	if !added.Added {
		t.Fatal("expected link add in the first session")
	}

	if deleted := callTool[DeletedResult](t, second, "discipline_delete_selected", map[string]any{}); !deleted.Deleted {
		t.Fatal("expected the second session to delete its own selection")
	}
	detail := callTool[projection.DisciplineDetail](t, second, "discipline_select", map[string]any{"id": alpha.ID})
	if detail.Data == nil || len(detail.Data.Links) != 1 || detail.Data.Links[0].DisciplineID != alpha.ID {
		t.Fatalf("expected the link on Alpha, got %+v", detail)
	}
	awaitTool(t, first, "discipline_list", map[string]any{}, func(list DisciplineListResult) bool {
		return len(list.Disciplines) == 1 && list.Disciplines[0].Discipline.ID == alpha.ID
	})
}

func TestScreenClosesWithSession(t *testing.T) {
	t.Parallel()

	server := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	served := make(chan error, 1)
	go func() {
		served <- server.Serve(ctx, serverTransport)
	}()

	client := mcp.NewClient(&mcp.Implementation{Name: "client", Version: "v0.0.1"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	waitForScreens(t, server, 1)

	_ = session.Close()
	select {
	case <-served:
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
	waitForScreens(t, server, 0)

	server.Close()
	if err := server.Serve(ctx, serverTransport); err == nil {
		t.Fatal("expected a closed server to refuse new sessions")
	}
}

func TestTaskTools(t *testing.T) {
	t.Parallel()

	session := connect(t, newTestServer(t))

	discipline := callTool[CreatedResult](t, session, "discipline_create", map[string]any{"name": "Física"})
	created := callTool[CreatedResult](t, session, "task_create", map[string]any{
		"discipline_id": discipline.ID,
		"name":          "Lista 2",
		"due_date":      "15/04/2025",
		"due_time":      "18:00",
	})

	list := callTool[TaskListResult](t, session, "task_list", map[string]any{})
	if len(list.Tasks) != 1 {
		t.Fatalf("expected one task, got %+v", list)
	}
	view := list.Tasks[0]
	if view.Task.DueDate != "2025-04-15" || view.DueDisplay != "15/04/2025" || view.DisciplineName != "Física" {
		t.Fatalf("unexpected task view %+v", view)
	}

	detail := callTool[projection.TaskDetail](t, session, "task_get", map[string]any{"id": created.ID})
	if detail.State != projection.DetailLoaded || detail.Task == nil || detail.DisciplineName != "Física" {
		t.Fatalf("unexpected task detail %+v", detail)
	}

	completed := callTool[TaskResult](t, session, "task_set_completed", map[string]any{"id": created.ID, "completed": true})
	if !completed.Task.IsCompleted {
		t.Fatalf("expected completed task, got %+v", completed)
	}

	updated := callTool[TaskResult](t, session, "task_update", map[string]any{
		"id": created.ID, "name": "Lista 2 revisada", "discipline_id": discipline.ID, "is_completed": true,
	})
	if updated.Task.Name != "Lista 2 revisada" || updated.Task.DueDate != "" {
		t.Fatalf("unexpected update %+v", updated)
	}

	if bad := call(t, session, "task_create", map[string]any{"name": "x", "due_date": "31/02/2025"}); !bad.IsError {
		t.Fatal("expected invalid due date to be rejected")
	}

	if deleted := callTool[DeletedResult](t, session, "task_delete", map[string]any{"id": created.ID}); !deleted.Deleted {
		t.Fatal("expected task delete")
	}
	if missing := call(t, session, "task_delete", map[string]any{"id": created.ID}); !missing.IsError {
		t.Fatal("expected deleting a missing task to fail")
	}
}

func TestAgendaAndMessageTools(t *testing.T) {
	t.Parallel()

	// 2025-03-14 is a Friday.
	now := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	session := connect(t, newTestServer(t, WithClock(func() time.Time { return now })))

	callTool[CreatedResult](t, session, "discipline_create", map[string]any{
		"name":      "Redação",
		"schedules": []map[string]any{{"day_of_week": "FRIDAY", "start_time": "10:00", "end_time": "11:00"}},
	})
	callTool[CreatedResult](t, session, "task_create", map[string]any{"name": "Texto", "due_date": "14/03/2025"})

	today := awaitTool(t, session, "agenda_day", map[string]any{}, func(result AgendaDayResult) bool {
		return len(result.Day.Classes) == 1 && len(result.Day.Due) == 1
	})
	if today.Day.Date != "2025-03-14" {
		t.Fatalf("unexpected agenda %+v", today)
	}
	if today.Summary != "14/03/2025: 1 classes, 1 tasks due, 0 overdue" {
		t.Fatalf("unexpected summary %q", today.Summary)
	}

	monday := callTool[AgendaDayResult](t, session, "agenda_day", map[string]any{"date": "2025-03-17"})
	if len(monday.Day.Classes) != 0 || len(monday.Day.Overdue) != 1 || monday.Lines == nil {
		t.Fatalf("unexpected monday agenda %+v", monday)
	}

	message := callTool[projection.MessageOfTheDayState](t, session, "motd_fetch", map[string]any{})
	if message.Message == nil || message.Message.Title != "delectus aut autem" {
		t.Fatalf("unexpected message %+v", message)
	}
}

func TestMessageOfTheDayFailureUsesFetchError(t *testing.T) {
	t.Parallel()

	session := connect(t, newTestServerWithFetcher(t, stubFetcher{err: errors.New("connection refused")}))

	result := call(t, session, "motd_fetch", map[string]any{})
	if !result.IsError {
		t.Fatal("expected fetch failure")
	}
	if text := resultText(result); !strings.Contains(text, "Failed to fetch message: ") || !strings.Contains(text, "connection refused") {
		t.Fatalf("unexpected failure text %q", text)
	}
}

func TestHTTPHandlerServesHealthAndTools(t *testing.T) {
	t.Parallel()

	server := newTestServer(t)
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)
	go func() {
		served <- serveHTTP(ctx, listener, server)
	}()
	base := "http://" + listener.Addr().String()

	resp, err := http.Get(base + "/mcp/health")
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 health, got %d", resp.StatusCode)
	}

	client := mcp.NewClient(&mcp.Implementation{Name: "client", Version: "v0.0.1"}, nil)
	session, err := client.Connect(ctx, &mcp.StreamableClientTransport{Endpoint: base + "/mcp"}, nil)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	list := callTool[DisciplineListResult](t, session, "discipline_list", map[string]any{})
	if list.Disciplines == nil {
		t.Fatal("expected empty, non-nil list")
	}

	other, err := client.Connect(ctx, &mcp.StreamableClientTransport{Endpoint: base + "/mcp"}, nil)
	if err != nil {
		t.Fatalf("connect second session: %v", err)
	}
	waitForScreens(t, server, 2)

	_ = other.Close()
	waitForScreens(t, server, 1)
	_ = session.Close()
	waitForScreens(t, server, 0)

	cancel()
	select {
	case err := <-served:
		if err != nil {
			t.Fatalf("serve: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("http server did not stop")
	}
}

func TestRunRejectsUnknownTransport(t *testing.T) {
	t.Parallel()

	if err := Run(context.Background(), Config{Transport: "carrier-pigeon"}, newTestServer(t)); err == nil {
		t.Fatal("expected unsupported transport error")
	}
}
