package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"todoapp/internal/models"
	"todoapp/internal/todo"
)

const rule = "=============================="

type styles struct {
	header  lipgloss.Style
	success lipgloss.Style
	failure lipgloss.Style
	info    lipgloss.Style
	done    lipgloss.Style
}

func newStyles(out io.Writer) styles {
	// The renderer inspects out, so pipes and buffers get plain text.
	r := lipgloss.NewRenderer(out)
	return styles{
		header:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("#7aa2f7")),
		success: r.NewStyle().Foreground(lipgloss.Color("#9ece6a")),
		failure: r.NewStyle().Foreground(lipgloss.Color("#f7768e")),
		info:    r.NewStyle().Foreground(lipgloss.Color("#7dcfff")),
		done:    r.NewStyle().Faint(true),
	}
}

// UI is the interactive menu. It reads one answer per line.
type UI struct {
	manager *todo.Manager
	in      *bufio.Scanner
	out     io.Writer
	styles  styles
}

// New creates a console UI over the manager.
func New(manager *todo.Manager, in io.Reader, out io.Writer) *UI {
	return &UI{
		manager: manager,
		in:      bufio.NewScanner(in),
		out:     out,
		styles:  newStyles(out),
	}
}

// Run shows the menu until the user exits or input ends.
func (u *UI) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		u.showMenu()
		choice, err := u.prompt("\nEnter choice (1-6): ")
		if errors.Is(err, io.EOF) {
			u.println("")
			return nil
		}
		if err != nil {
			return err
		}
		u.println("")

		switch choice {
		case "1":
			err = u.addTask(ctx)
		case "2":
			err = u.viewTasks(ctx)
		case "3":
			err = u.updateTask(ctx)
		case "4":
			err = u.deleteTask(ctx)
		case "5":
			err = u.toggleComplete(ctx)
		case "6":
			u.println("Thank you for using Todo App!")
			return nil
		default:
			u.errorf("Invalid choice. Please enter 1-6.")
		}

		switch {
		case errors.Is(err, io.EOF):
			return nil
		case errors.Is(err, todo.ErrValidation):
			u.errorf("%s", err.Error())
		case err != nil:
			u.errorf("An unexpected error occurred: %v", err)
		}

		if _, err := u.prompt("\nPress Enter to continue..."); err != nil {
			return nil
		}
		u.println("")
	}
}

func (u *UI) showMenu() {
	u.println(rule)
	u.println(u.styles.header.Render("        Todo App"))
	u.println(rule)
	u.println("1. Add Task")
	u.println("2. View All Tasks")
	u.println("3. Update Task")
	u.println("4. Delete Task")
	u.println("5. Toggle Complete")
	u.println("6. Exit")
	u.println(rule)
}

func (u *UI) addTask(ctx context.Context) error {
	u.println(u.styles.header.Render("=== Add New Task ==="))
	title, err := u.prompt("Enter title: ")
	if err != nil {
		return err
	}
	description, err := u.prompt("Enter description (optional): ")
	if err != nil {
		return err
	}

	task, err := u.manager.CreateTask(ctx, title, description)
	if err != nil {
		return err
	}
	u.successf("Task #%d created successfully: %q", task.ID, task.Title)
	return nil
}

func (u *UI) viewTasks(ctx context.Context) error {
	u.println(u.styles.header.Render("=== Your Tasks ==="))
	tasks, err := u.manager.ListTasks(ctx)
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		u.infof("No tasks found. Add a task to get started!")
		return nil
	}

	completed := 0
	for _, t := range tasks {
		line := t.String()
		if t.Completed {
			completed++
			line = u.styles.done.Render(line)
		}
		u.println(line)
		if t.Description != "" {
			u.println("    " + t.Description)
		}
	}

	plural := "s"
	if len(tasks) == 1 {
		plural = ""
	}
	u.println(fmt.Sprintf("\nTotal: %d task%s (%d completed, %d pending)", len(tasks), plural, completed, len(tasks)-completed))
	return nil
}

func (u *UI) updateTask(ctx context.Context) error {
	u.println(u.styles.header.Render("=== Update Task ==="))
	task, ok, err := u.lookupTask(ctx)
	if err != nil || !ok {
		return err
	}

	u.println("Current title: " + task.Title)
	title, err := u.prompt("New title (press Enter to keep): ")
	if err != nil {
		return err
	}
	u.println("Current description: " + task.Description)
	description, err := u.prompt("New description (press Enter to keep): ")
	if err != nil {
		return err
	}

	var titlePtr, descPtr *string
	if title != "" {
		titlePtr = &title
	}
	if description != "" {
		descPtr = &description
	}
	if titlePtr == nil && descPtr == nil {
		u.println("No changes made.")
		return nil
	}

	updated, err := u.manager.UpdateTask(ctx, task.ID, titlePtr, descPtr)
	if err != nil {
		return err
	}
	if !updated {
		u.errorf("Failed to update task #%d", task.ID)
		return nil
	}
	u.successf("Task #%d updated successfully", task.ID)
	return nil
}

func (u *UI) deleteTask(ctx context.Context) error {
	u.println(u.styles.header.Render("=== Delete Task ==="))
	task, ok, err := u.lookupTask(ctx)
	if err != nil || !ok {
		return err
	}

	answer, err := u.prompt(fmt.Sprintf("Are you sure you want to delete %q? (y/n): ", task.Title))
	if err != nil {
		return err
	}
	if strings.ToLower(answer) != "y" {
		u.println("Deletion cancelled.")
		return nil
	}

	deleted, err := u.manager.DeleteTask(ctx, task.ID)
	if err != nil {
		return err
	}
	if !deleted {
		u.errorf("Failed to delete task #%d", task.ID)
		return nil
	}
	u.successf("Task #%d deleted successfully", task.ID)
	return nil
}

func (u *UI) toggleComplete(ctx context.Context) error {
	u.println(u.styles.header.Render("=== Toggle Complete ==="))
	id, ok, err := u.promptID()
	if err != nil || !ok {
		return err
	}

	toggled, err := u.manager.ToggleComplete(ctx, id)
	if err != nil {
		return err
	}
	if !toggled {
		u.errorf("Task #%d not found", id)
		return nil
	}
	task, _, err := u.manager.GetTask(ctx, id)
	if err != nil {
		return err
	}
	if task.Completed {
		u.successf("Task #%d marked as complete", id)
	} else {
		u.successf("Task #%d marked as incomplete", id)
	}
	return nil
}

// lookupTask asks for an id and loads the task, reporting bad input itself.
func (u *UI) lookupTask(ctx context.Context) (models.Task, bool, error) {
	id, ok, err := u.promptID()
	if err != nil || !ok {
		return models.Task{}, false, err
	}
	task, found, err := u.manager.GetTask(ctx, id)
	if err != nil {
		return models.Task{}, false, err
	}
	if !found {
		u.errorf("Task #%d not found", id)
		return models.Task{}, false, nil
	}
	return task, true, nil
}

func (u *UI) promptID() (int64, bool, error) {
	raw, err := u.prompt("Enter task ID: ")
	if err != nil {
		return 0, false, err
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		u.errorf("Invalid task ID. Please enter a number.")
		return 0, false, nil
	}
	return id, true, nil
}

// prompt prints label and returns the trimmed answer, or io.EOF once input ends.
func (u *UI) prompt(label string) (string, error) {
	fmt.Fprint(u.out, label)
	if !u.in.Scan() {
		if err := u.in.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimSpace(u.in.Text()), nil
}

func (u *UI) println(s string) {
	fmt.Fprintln(u.out, s)
}

func (u *UI) successf(format string, args ...any) {
	u.println(u.styles.success.Render("✓ " + fmt.Sprintf(format, args...)))
}

func (u *UI) errorf(format string, args ...any) {
	u.println(u.styles.failure.Render("✗ Error: " + fmt.Sprintf(format, args...)))
}

func (u *UI) infof(format string, args ...any) {
	u.println(u.styles.info.Render("ℹ " + fmt.Sprintf(format, args...)))
}
