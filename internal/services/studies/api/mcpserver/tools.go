package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/louisbranch/studies/internal/platform/errors"
	"github.com/louisbranch/studies/internal/platform/i18n/catalog"
	"github.com/louisbranch/studies/internal/services/studies/agenda"
	"github.com/louisbranch/studies/internal/services/studies/domain"
	"github.com/louisbranch/studies/internal/services/studies/live"
	"github.com/louisbranch/studies/internal/services/studies/projection"
	"github.com/louisbranch/studies/internal/services/studies/storage"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Lookup resolves records that tools address by id.
type Lookup interface {
	Task(ctx context.Context, id int64) <-chan live.Snapshot[storage.Task]
	GetMaterialLink(ctx context.Context, id int64) (storage.MaterialLink, error)
}

// DisciplineListTool defines the MCP tool schema for listing disciplines.
func DisciplineListTool() *mcp.Tool {
	return &mcp.Tool{Name: "discipline_list", Description: "Lists disciplines with their weekly schedules, ordered by name"}
}

// DisciplineCreateTool defines the MCP tool schema for creating a discipline.
func DisciplineCreateTool() *mcp.Tool {
	return &mcp.Tool{Name: "discipline_create", Description: "Creates a discipline together with its weekly schedules"}
}

// DisciplineUpdateTool defines the MCP tool schema for editing a discipline.
func DisciplineUpdateTool() *mcp.Tool {
	return &mcp.Tool{Name: "discipline_update", Description: "Replaces the name, location, professor and image of a discipline; schedules are kept"}
}

// DisciplineSelectTool defines the MCP tool schema for opening a discipline.
func DisciplineSelectTool() *mcp.Tool {
	return &mcp.Tool{Name: "discipline_select", Description: "Opens a discipline and returns its detail with tasks and material links"}
}

// DisciplineDeleteSelectedTool defines the MCP tool schema for deleting the
// open discipline.
func DisciplineDeleteSelectedTool() *mcp.Tool {
	return &mcp.Tool{Name: "discipline_delete_selected", Description: "Deletes the selected discipline with its schedules and links, and unassigns its tasks"}
}

// ScheduleAddTool defines the MCP tool schema for adding weekly slots.
func ScheduleAddTool() *mcp.Tool {
	return &mcp.Tool{Name: "schedule_add", Description: "Adds weekly schedules to the selected discipline"}
}

// MaterialLinkAddTool defines the MCP tool schema for attaching a link.
func MaterialLinkAddTool() *mcp.Tool {
	return &mcp.Tool{Name: "material_link_add", Description: "Attaches a material link to the selected discipline"}
}

// MaterialLinkUpdateTool defines the MCP tool schema for editing a link.
func MaterialLinkUpdateTool() *mcp.Tool {
	return &mcp.Tool{Name: "material_link_update", Description: "Replaces the address and label of a material link"}
}

// MaterialLinkDeleteTool defines the MCP tool schema for deleting a link.
func MaterialLinkDeleteTool() *mcp.Tool {
	return &mcp.Tool{Name: "material_link_delete", Description: "Deletes a material link"}
}

// TaskListTool defines the MCP tool schema for listing tasks.
func TaskListTool() *mcp.Tool {
	return &mcp.Tool{Name: "task_list", Description: "Lists every task, dated tasks first"}
}

// TaskPendingTool defines the MCP tool schema for listing open tasks.
func TaskPendingTool() *mcp.Tool {
	return &mcp.Tool{Name: "task_pending", Description: "Lists tasks that are not completed"}
}

// TaskCreateTool defines the MCP tool schema for creating a task.
func TaskCreateTool() *mcp.Tool {
	return &mcp.Tool{Name: "task_create", Description: "Creates a task, optionally tied to a discipline"}
}

// TaskUpdateTool defines the MCP tool schema for editing a task.
func TaskUpdateTool() *mcp.Tool {
	return &mcp.Tool{Name: "task_update", Description: "Replaces every field of a task"}
}

// TaskGetTool defines the MCP tool schema for opening a task.
func TaskGetTool() *mcp.Tool {
	return &mcp.Tool{Name: "task_get", Description: "Opens a task with its discipline name"}
}

// TaskSetCompletedTool defines the MCP tool schema for the completion flag.
func TaskSetCompletedTool() *mcp.Tool {
	return &mcp.Tool{Name: "task_set_completed", Description: "Marks a task completed or pending"}
}

// TaskDeleteTool defines the MCP tool schema for deleting a task.
func TaskDeleteTool() *mcp.Tool {
	return &mcp.Tool{Name: "task_delete", Description: "Deletes a task"}
}

// AgendaDayTool defines the MCP tool schema for a daily agenda.
func AgendaDayTool() *mcp.Tool {
	return &mcp.Tool{Name: "agenda_day", Description: "Returns the classes, due tasks and overdue tasks of a day"}
}

// MessageOfTheDayTool defines the MCP tool schema for the remote message.
func MessageOfTheDayTool() *mcp.Tool {
	return &mcp.Tool{Name: "motd_fetch", Description: "Fetches the remote message of the day"}
}

// DisciplineListHandler returns the live discipline list.
func DisciplineListHandler(disciplines *projection.Disciplines, locale string) mcp.ToolHandlerFor[EmptyInput, DisciplineListResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, _ EmptyInput) (*mcp.CallToolResult, DisciplineListResult, error) {
		list, err := disciplines.WithSchedules.Published(ctx)
		if err != nil {
			return nil, DisciplineListResult{}, toolError(locale, "discipline list", err)
		}
		return nil, DisciplineListResult{Disciplines: list}, nil
	}
}

// DisciplineCreateHandler executes a discipline create request.
func DisciplineCreateHandler(disciplines *projection.Disciplines, locale string) mcp.ToolHandlerFor[domain.NewDiscipline, CreatedResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input domain.NewDiscipline) (*mcp.CallToolResult, CreatedResult, error) {
		id, err := disciplines.AddDiscipline(ctx, input)
		if err != nil {
			return nil, CreatedResult{}, toolError(locale, "discipline create", err)
		}
		return nil, CreatedResult{ID: id}, nil
	}
}

// DisciplineUpdateHandler executes a discipline update request.
func DisciplineUpdateHandler(disciplines *projection.Disciplines, locale string) mcp.ToolHandlerFor[DisciplineUpdateInput, UpdatedResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input DisciplineUpdateInput) (*mcp.CallToolResult, UpdatedResult, error) {
		err := disciplines.UpdateDiscipline(ctx, storage.Discipline{
			ID:        input.ID,
			Name:      input.Name,
			Location:  input.Location,
			Professor: input.Professor,
			ImageRef:  input.ImageRef,
		})
		if err != nil {
			return nil, UpdatedResult{}, toolError(locale, "discipline update", err)
		}
		return nil, UpdatedResult{Updated: true}, nil
	}
}

// DisciplineSelectHandler selects a discipline and waits for its detail to
// settle.
func DisciplineSelectHandler(disciplines *projection.Disciplines, locale string) mcp.ToolHandlerFor[IDInput, projection.DisciplineDetail] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input IDInput) (*mcp.CallToolResult, projection.DisciplineDetail, error) {
		disciplines.Select(input.ID)
		detail, err := disciplines.Detail.Await(ctx, func(detail projection.DisciplineDetail) bool {
			return detail.ID == input.ID && detail.State.Settled()
		})
		if err != nil {
			return nil, projection.DisciplineDetail{}, toolError(locale, "discipline select", err)
		}
		return nil, detail, nil
	}
}

// DisciplineDeleteSelectedHandler deletes the open discipline. Deleted is
// false when nothing was open.
func DisciplineDeleteSelectedHandler(disciplines *projection.Disciplines, locale string) mcp.ToolHandlerFor[EmptyInput, DeletedResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, _ EmptyInput) (*mcp.CallToolResult, DeletedResult, error) {
		var result DeletedResult
		err := disciplines.DeleteSelected(ctx, func() { result.Deleted = true })
		if err != nil {
			return nil, DeletedResult{}, toolError(locale, "discipline delete", err)
		}
		return nil, result, nil
	}
}

// ScheduleAddHandler executes a schedule add request against the open
// discipline.
func ScheduleAddHandler(disciplines *projection.Disciplines, locale string) mcp.ToolHandlerFor[domain.NewSchedules, AddedResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input domain.NewSchedules) (*mcp.CallToolResult, AddedResult, error) {
		added, err := disciplines.AddSchedules(ctx, input)
		if err != nil {
			return nil, AddedResult{}, toolError(locale, "schedule add", err)
		}
		return nil, AddedResult{Added: added}, nil
	}
}

// MaterialLinkAddHandler executes a material link add request.
func MaterialLinkAddHandler(disciplines *projection.Disciplines, locale string) mcp.ToolHandlerFor[MaterialLinkAddInput, MaterialLinkAddResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input MaterialLinkAddInput) (*mcp.CallToolResult, MaterialLinkAddResult, error) {
		id, err := disciplines.AddMaterialLink(ctx, input.URL, input.Description)
		if err != nil {
			return nil, MaterialLinkAddResult{}, toolError(locale, "material link add", err)
		}
		return nil, MaterialLinkAddResult{ID: id, Added: id != 0}, nil
	}
}

// MaterialLinkUpdateHandler executes a material link update request.
func MaterialLinkUpdateHandler(disciplines *projection.Disciplines, lookup Lookup, locale string) mcp.ToolHandlerFor[MaterialLinkUpdateInput, UpdatedResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input MaterialLinkUpdateInput) (*mcp.CallToolResult, UpdatedResult, error) {
		link, err := lookup.GetMaterialLink(ctx, input.ID)
		if err != nil {
			return nil, UpdatedResult{}, toolError(locale, "material link update", err)
		}
		link.URL, link.Description = input.URL, input.Description
		if err := disciplines.UpdateMaterialLink(ctx, link); err != nil {
			return nil, UpdatedResult{}, toolError(locale, "material link update", err)
		}
		return nil, UpdatedResult{Updated: true}, nil
	}
}

// MaterialLinkDeleteHandler executes a material link delete request.
func MaterialLinkDeleteHandler(disciplines *projection.Disciplines, lookup Lookup, locale string) mcp.ToolHandlerFor[IDInput, DeletedResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input IDInput) (*mcp.CallToolResult, DeletedResult, error) {
		link, err := lookup.GetMaterialLink(ctx, input.ID)
		if err != nil {
			return nil, DeletedResult{}, toolError(locale, "material link delete", err)
		}
		if err := disciplines.DeleteMaterialLink(ctx, link); err != nil {
			return nil, DeletedResult{}, toolError(locale, "material link delete", err)
		}
		return nil, DeletedResult{Deleted: true}, nil
	}
}

// TaskListHandler returns the live task list with discipline names.
func TaskListHandler(tasks *projection.Tasks, locale string) mcp.ToolHandlerFor[EmptyInput, TaskListResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, _ EmptyInput) (*mcp.CallToolResult, TaskListResult, error) {
		list, err := tasks.List.Published(ctx)
		if err != nil {
			return nil, TaskListResult{}, toolError(locale, "task list", err)
		}
		return nil, TaskListResult{Tasks: taskViews(list.Tasks, list.Disciplines)}, nil
	}
}

// TaskPendingHandler returns the live list of open tasks.
func TaskPendingHandler(tasks *projection.Tasks, locale string) mcp.ToolHandlerFor[EmptyInput, TaskListResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, _ EmptyInput) (*mcp.CallToolResult, TaskListResult, error) {
		pending, err := tasks.Pending.Published(ctx)
		if err != nil {
			return nil, TaskListResult{}, toolError(locale, "task pending", err)
		}
		return nil, TaskListResult{Tasks: taskViews(pending, tasks.Pickers.Load())}, nil
	}
}

// TaskCreateHandler executes a task create request.
func TaskCreateHandler(tasks *projection.Tasks, locale string) mcp.ToolHandlerFor[TaskInput, CreatedResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input TaskInput) (*mcp.CallToolResult, CreatedResult, error) {
		dueDate, err := domain.ParseDueDate(input.DueDate)
		if err != nil {
			return nil, CreatedResult{}, toolError(locale, "task create", err)
		}
		id, err := tasks.AddTask(ctx, domain.NewTask{
			DisciplineID: input.DisciplineID,
			Name:         input.Name,
			Description:  input.Description,
			DueDate:      dueDate,
			DueTime:      input.DueTime,
			IsCompleted:  input.IsCompleted,
		})
		if err != nil {
			return nil, CreatedResult{}, toolError(locale, "task create", err)
		}
		return nil, CreatedResult{ID: id}, nil
	}
}

// TaskUpdateHandler executes a task update request.
func TaskUpdateHandler(tasks *projection.Tasks, locale string) mcp.ToolHandlerFor[TaskUpdateInput, TaskResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input TaskUpdateInput) (*mcp.CallToolResult, TaskResult, error) {
		dueDate, err := domain.ParseDueDate(input.DueDate)
		if err != nil {
			return nil, TaskResult{}, toolError(locale, "task update", err)
		}
		task := storage.Task{
			ID:           input.ID,
			DisciplineID: input.DisciplineID,
			Name:         input.Name,
			Description:  input.Description,
			DueDate:      dueDate,
			DueTime:      input.DueTime,
			IsCompleted:  input.IsCompleted,
		}
		if err := tasks.UpdateTask(ctx, task); err != nil {
			return nil, TaskResult{}, toolError(locale, "task update", err)
		}
		return nil, TaskResult{Task: task}, nil
	}
}

// TaskGetHandler opens a task in the detail screen and waits for it.
func TaskGetHandler(tasks *projection.Tasks, locale string) mcp.ToolHandlerFor[IDInput, projection.TaskDetail] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input IDInput) (*mcp.CallToolResult, projection.TaskDetail, error) {
		tasks.LoadTask(input.ID)
		detail, err := tasks.Detail.Await(ctx, func(detail projection.TaskDetail) bool {
			return detail.ID == input.ID && detail.State.Settled()
		})
		if err != nil {
			return nil, projection.TaskDetail{}, toolError(locale, "task get", err)
		}
		return nil, detail, nil
	}
}

// TaskSetCompletedHandler executes a task completion request.
func TaskSetCompletedHandler(tasks *projection.Tasks, lookup Lookup, locale string) mcp.ToolHandlerFor[TaskCompletionInput, TaskResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input TaskCompletionInput) (*mcp.CallToolResult, TaskResult, error) {
		task, err := lookupTask(ctx, lookup, input.ID)
		if err != nil {
			return nil, TaskResult{}, toolError(locale, "task set completed", err)
		}
		if err := tasks.UpdateCompletion(ctx, task, input.Completed); err != nil {
			return nil, TaskResult{}, toolError(locale, "task set completed", err)
		}
		task.IsCompleted = input.Completed
		return nil, TaskResult{Task: task}, nil
	}
}

// TaskDeleteHandler executes a task delete request.
func TaskDeleteHandler(tasks *projection.Tasks, lookup Lookup, locale string) mcp.ToolHandlerFor[IDInput, DeletedResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input IDInput) (*mcp.CallToolResult, DeletedResult, error) {
		task, err := lookupTask(ctx, lookup, input.ID)
		if err != nil {
			return nil, DeletedResult{}, toolError(locale, "task delete", err)
		}
		if err := tasks.DeleteTask(ctx, task); err != nil {
			return nil, DeletedResult{}, toolError(locale, "task delete", err)
		}
		return nil, DeletedResult{Deleted: true}, nil
	}
}

// AgendaDayHandler renders the agenda of the requested day, today by
// default, in locale.
func AgendaDayHandler(days *projection.Agenda, locale string) mcp.ToolHandlerFor[AgendaDayInput, AgendaDayResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input AgendaDayInput) (*mcp.CallToolResult, AgendaDayResult, error) {
		day, err := agendaDay(ctx, days, input.Date)
		if err != nil {
			return nil, AgendaDayResult{}, toolError(locale, "agenda day", err)
		}
		return nil, AgendaDayResult{Day: day, Summary: day.Summary(locale), Lines: day.Lines(locale)}, nil
	}
}

func agendaDay(ctx context.Context, days *projection.Agenda, value string) (agenda.Day, error) {
	if value == "" {
		return days.Current(ctx)
	}
	iso, err := domain.ParseDueDate(value)
	if err != nil {
		return agenda.Day{}, err
	}
	date, err := time.ParseInLocation(storage.DateLayout, iso, days.Now().Location())
	if err != nil {
		return agenda.Day{}, err
	}
	return days.Day(ctx, date)
}

// MessageOfTheDayHandler fetches the remote message. Failures are reported
// with the localized fetch message.
func MessageOfTheDayHandler(disciplines *projection.Disciplines, locale string) mcp.ToolHandlerFor[EmptyInput, projection.MessageOfTheDayState] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, _ EmptyInput) (*mcp.CallToolResult, projection.MessageOfTheDayState, error) {
		message, err := disciplines.FetchMessageOfTheDay(ctx)
		if err != nil {
			return nil, projection.MessageOfTheDayState{}, errors.New(catalog.Message(locale, "motd.fetch_failed", err.Error()))
		}
		return nil, projection.MessageOfTheDayState{Message: &message}, nil
	}
}

// toolError prefixes err with the localized message of its code when it
// carries one.
func toolError(locale, action string, err error) error {
	var domainErr *apperrors.Error
	if errors.As(err, &domainErr) {
		return fmt.Errorf("%s failed: %s: %w", action, domainErr.Localized(locale), err)
	}
	return fmt.Errorf("%s failed: %w", action, err)
}

func lookupTask(ctx context.Context, lookup Lookup, id int64) (storage.Task, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	return live.First(ctx, lookup.Task(ctx, id))
}

func taskViews(tasks []storage.Task, disciplines []storage.Discipline) []TaskView {
	names := make(map[int64]string, len(disciplines))
	for _, discipline := range disciplines {
		names[discipline.ID] = discipline.Name
	}
	views := make([]TaskView, 0, len(tasks))
	for _, task := range tasks {
		views = append(views, TaskView{
			Task:           task,
			DisciplineName: names[task.DisciplineID],
			DueDisplay:     domain.FormatDueDate(task.DueDate),
		})
	}
	return views
}
