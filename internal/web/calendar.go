package web

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/baiirun/tracker/internal/ical"
	"github.com/baiirun/tracker/internal/model"
	"github.com/baiirun/tracker/internal/snapshot"
)

const calendarContentType = "text/calendar; charset=utf-8"

// handleFeed serves GET /calendar.ics?bucket=&year=.
func (s *Server) handleFeed(c *gin.Context) {
	tasks, err := s.store.LoadTasks(c.Request.Context())
	if err != nil {
		c.String(http.StatusInternalServerError, fmt.Sprintf("Error generating calendar: %v", err))
		return
	}

	criteria, ok := criteriaFromQuery(c)
	if !ok {
		// A year that is not a number matches no fiscal year.
		tasks = nil
	}
	tasks = snapshot.Dated(snapshot.Filter(tasks, criteria))

	doc := ical.Render(tasks, ical.Options{
		Name:   s.calendarName,
		Now:    s.clock(),
		Detail: ical.DetailFeed,
	})
	c.Data(http.StatusOK, calendarContentType, doc)
}

// handleTaskCalendar serves GET /tasks/:id/calendar.ics, a one-event download.
func (s *Server) handleTaskCalendar(c *gin.Context) {
	key, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.String(http.StatusBadRequest, "invalid task id")
		return
	}
	tasks, err := s.store.LoadTasks(c.Request.Context())
	if err != nil {
		c.String(http.StatusInternalServerError, fmt.Sprintf("Error generating calendar: %v", err))
		return
	}
	task, found := snapshot.Find(tasks, key)
	if !found {
		c.String(http.StatusNotFound, fmt.Sprintf("task #%d not found", key))
		return
	}
	if !task.HasDates() {
		c.String(http.StatusUnprocessableEntity, fmt.Sprintf("task #%d has no start and end dates", key))
		return
	}

	doc := ical.Render([]model.Task{task}, ical.Options{
		Name:   s.calendarName,
		Now:    s.clock(),
		Detail: ical.DetailTask,
	})
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="task_%d.ics"`, key))
	c.Data(http.StatusOK, calendarContentType, doc)
}

// criteriaFromQuery reads the bucket and year query parameters. It returns
// false when year is present but not an integer.
func criteriaFromQuery(c *gin.Context) (snapshot.Criteria, bool) {
	var criteria snapshot.Criteria
	if bucket := c.Query("bucket"); bucket != "" {
		criteria.Buckets = []string{bucket}
	}
	if raw := c.Query("year"); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			return criteria, false
		}
		criteria.Years = []int{year}
	}
	return criteria, true
}
