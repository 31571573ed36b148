package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// TaskItem is one entry on a session's running task list.
type TaskItem struct {
	ID     int
	Title  string
	Status string // "pending", "in_progress", "completed"
}

// TaskListTool lets an agent keep a lightweight, in-memory checklist of
// its own sub-steps across a turn without that bookkeeping competing
// with Execution-category calls for the turn's minimum-category slot.
type TaskListTool struct {
	mu    sync.Mutex
	items []TaskItem
	next  int
}

func NewTaskListTool() *TaskListTool { return &TaskListTool{next: 1} }

func (t *TaskListTool) Name() string { return "task_list" }
func (t *TaskListTool) Description() string {
	return "View or update the running task checklist for this session (actions: list, add, update)"
}

// Category marks task_list as always admitted alongside whatever else
// is proposed in a turn, per the category-filtering rule.
func (t *TaskListTool) Category() Category { return CategoryTaskList }

func (t *TaskListTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"action": map[string]interface{}{
				"type":        "string",
				"description": "One of: list, add, update",
			},
			"title":  map[string]interface{}{"type": "string", "description": "Task title (add)"},
			"id":     map[string]interface{}{"type": "number", "description": "Task id (update)"},
			"status": map[string]interface{}{"type": "string", "description": "pending, in_progress, or completed (update)"},
		},
		"required": []string{"action"},
	}
}

func (t *TaskListTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	action, _ := args["action"].(string)

	t.mu.Lock()
	defer t.mu.Unlock()

	switch action {
	case "add":
		title, _ := args["title"].(string)
		if title == "" {
			return ErrorResult("title is required for action=add")
		}
		item := TaskItem{ID: t.next, Title: title, Status: "pending"}
		t.items = append(t.items, item)
		t.next++
		return SilentResult(fmt.Sprintf("added task %d: %s", item.ID, item.Title))

	case "update":
		idFloat, ok := args["id"].(float64)
		if !ok {
			return ErrorResult("id is required for action=update")
		}
		status, _ := args["status"].(string)
		if status != "pending" && status != "in_progress" && status != "completed" {
			return ErrorResult("status must be one of: pending, in_progress, completed")
		}
		id := int(idFloat)
		for i := range t.items {
			if t.items[i].ID == id {
				t.items[i].Status = status
				return SilentResult(fmt.Sprintf("task %d -> %s", id, status))
			}
		}
		return ErrorResult(fmt.Sprintf("no task with id %d", id))

	case "list", "":
		return SilentResult(t.render())

	default:
		return ErrorResult("unknown action: " + action)
	}
}

func (t *TaskListTool) render() string {
	if len(t.items) == 0 {
		return "(no tasks)"
	}
	sorted := make([]TaskItem, len(t.items))
	copy(sorted, t.items)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	var b strings.Builder
	for _, item := range sorted {
		fmt.Fprintf(&b, "[%d] %s - %s\n", item.ID, item.Status, item.Title)
	}
	return strings.TrimRight(b.String(), "\n")
}
