package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ytaudio/task"
)

// TaskSource is the read side of task.Manager.
type TaskSource interface {
	List() []task.Task
	Get(id string) (task.Task, bool)
	Summary() task.Summary
}

type Handler struct {
	tasks TaskSource
}

func NewHandler(tasks TaskSource) *Handler {
	return &Handler{tasks: tasks}
}

// handleListTasks lists all tasks, optionally filtered by ?status=.
func (h *Handler) handleListTasks(c *gin.Context) {
	tasks := h.tasks.List()

	if status := c.Query("status"); status != "" {
		filtered := make([]task.Task, 0, len(tasks))
		for _, t := range tasks {
			if string(t.Status) == status {
				filtered = append(filtered, t)
			}
		}
		tasks = filtered
	}
	c.JSON(http.StatusOK, tasks)
}

// handleGetTaskStatus retrieves the status of a single task.
func (h *Handler) handleGetTaskStatus(c *gin.Context) {
	taskID := c.Param("taskId")
	t, found := h.tasks.Get(taskID)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *Handler) handleSummary(c *gin.Context) {
	c.JSON(http.StatusOK, h.tasks.Summary())
}
