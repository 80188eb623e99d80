package web

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/baiirun/tracker/internal/account"
	"github.com/baiirun/tracker/internal/db"
	"github.com/baiirun/tracker/internal/model"
	"github.com/baiirun/tracker/internal/notify"
	"github.com/baiirun/tracker/internal/snapshot"
)

// DefaultSource labels changelog entries for snapshots saved through the API.
const DefaultSource = "API"

const userKey = "tracker.user"

// requireUser authenticates the request with HTTP basic auth against the
// users table.
func (s *Server) requireUser(c *gin.Context) {
	email, password, ok := c.Request.BasicAuth()
	if !ok {
		unauthorized(c, "authentication required")
		return
	}
	u, err := s.accounts.Authenticate(c.Request.Context(), email, password)
	switch {
	case errors.Is(err, account.ErrInvalidCredentials), errors.Is(err, account.ErrInactive):
		unauthorized(c, err.Error())
		return
	case err != nil:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}
	c.Set(userKey, u)
	c.Next()
}

func unauthorized(c *gin.Context, msg string) {
	c.Header("WWW-Authenticate", `Basic realm="tracker"`)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error":   msg,
	})
}

func requireAdmin(c *gin.Context) {
	if currentUser(c).Role != model.RoleAdmin {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"success": false,
			"error":   "admin role required",
		})
		return
	}
	c.Next()
}

func currentUser(c *gin.Context) model.User {
	v, _ := c.Get(userKey)
	u, _ := v.(model.User)
	return u
}

func fail(c *gin.Context, status int, err error) {
	c.JSON(status, gin.H{
		"success": false,
		"error":   err.Error(),
	})
}

func taskKeyParam(c *gin.Context) (int, bool) {
	key, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "invalid task id",
		})
		return 0, false
	}
	return key, true
}

func (s *Server) handleAPITasks(c *gin.Context) {
	tasks, err := s.store.LoadTasks(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	criteria, ok := criteriaFromQuery(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "year must be an integer",
		})
		return
	}
	tasks = snapshot.Filter(tasks, criteria)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    mapSlice(tasks, toTaskJSON),
		"count":   len(tasks),
	})
}

type saveTasksRequest struct {
	Source string     `json:"source"`
	Tasks  []taskJSON `json:"tasks"`
}

// handleAPISaveTasks replaces the tasks table with the submitted snapshot.
// The original is the stored table at the time of the request.
func (s *Server) handleAPISaveTasks(c *gin.Context) {
	var req saveTasksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	updated := make([]model.Task, 0, len(req.Tasks))
	for _, j := range req.Tasks {
		t, err := j.toTask()
		if err != nil {
			fail(c, http.StatusBadRequest, err)
			return
		}
		updated = append(updated, t)
	}
	source := strings.TrimSpace(req.Source)
	if source == "" {
		source = DefaultSource
	}

	ctx := c.Request.Context()
	original, err := s.store.LoadTasks(ctx)
	if err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	if err := s.saver.SaveAndLog(ctx, original, updated, currentUser(c).Email, source); err != nil {
		fail(c, http.StatusUnprocessableEntity, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"count":   len(updated),
	})
}

func (s *Server) handleAPIComments(c *gin.Context) {
	key, ok := taskKeyParam(c)
	if !ok {
		return
	}
	comments, err := s.notifier.CommentsForTask(c.Request.Context(), key)
	if err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    mapSlice(comments, toCommentJSON),
	})
}

type addCommentRequest struct {
	Text            string   `json:"text"`
	AssignedRole    string   `json:"assigned_role"`
	ExtraRecipients []string `json:"extra_recipients"`
}

func (s *Server) handleAPIAddComment(c *gin.Context) {
	key, ok := taskKeyParam(c)
	if !ok {
		return
	}
	var req addCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}

	res, err := s.notifier.AddCommentAndNotify(c.Request.Context(), notify.CommentInput{
		TaskKey:         key,
		AuthorEmail:     currentUser(c).Email,
		Text:            req.Text,
		AssignedRole:    req.AssignedRole,
		ExtraRecipients: req.ExtraRecipients,
	})
	switch {
	case errors.Is(err, notify.ErrTaskNotFound):
		fail(c, http.StatusNotFound, err)
		return
	case errors.Is(err, notify.ErrEmptyComment):
		fail(c, http.StatusBadRequest, err)
		return
	case err != nil:
		fail(c, http.StatusInternalServerError, err)
		return
	}

	recipients := make([]string, len(res.Notifications))
	for i, n := range res.Notifications {
		recipients[i] = n.RecipientEmail
	}
	c.JSON(http.StatusCreated, gin.H{
		"success":        true,
		"data":           toCommentJSON(res.Comment),
		"recipients":     recipients,
		"email_failures": res.EmailFailures,
	})
}

func (s *Server) handleAPINotifications(c *gin.Context) {
	unread, err := s.notifier.UnreadNotifications(c.Request.Context(), currentUser(c).Email)
	if err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    mapSlice(unread, toNotificationJSON),
		"count":   len(unread),
	})
}

type markReadRequest struct {
	IDs []int `json:"ids"`
	All bool  `json:"all"`
}

func (s *Server) handleAPIMarkRead(c *gin.Context) {
	var req markReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	ctx := c.Request.Context()
	user := currentUser(c).Email

	var (
		changed int
		err     error
	)
	if req.All {
		changed, err = s.notifier.MarkAllRead(ctx, user)
	} else {
		changed, err = s.notifier.MarkRead(ctx, user, req.IDs)
	}
	if err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"marked":  changed,
	})
}

func (s *Server) handleAPIPresets(c *gin.Context) {
	presets, err := s.store.ListPresets(c.Request.Context(), currentUser(c).Email)
	if err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    mapSlice(presets, toPresetJSON),
	})
}

func (s *Server) handleAPISavePreset(c *gin.Context) {
	var req presetJSON
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	name := strings.TrimSpace(c.Param("name"))
	if err := s.store.SavePreset(c.Request.Context(), currentUser(c).Email, name, req.Years, req.Buckets); err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Preset saved",
	})
}

func (s *Server) handleAPIDeletePreset(c *gin.Context) {
	err := s.store.DeletePreset(c.Request.Context(), currentUser(c).Email, c.Param("name"))
	if errors.Is(err, db.ErrNotFound) {
		fail(c, http.StatusNotFound, err)
		return
	}
	if err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Preset deleted",
	})
}

// handleAPIChangelog serves the admin changelog view. Query parameters:
// action, source, from and to (YYYY-MM-DD, inclusive).
func (s *Server) handleAPIChangelog(c *gin.Context) {
	var f db.ChangelogFilter
	if action := strings.ToUpper(c.Query("action")); action != "" {
		f.Action = model.Action(action)
		if !f.Action.IsValid() {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error":   "action must be ADD, DELETE or EDIT",
			})
			return
		}
	}
	f.Source = c.Query("source")
	for _, p := range []struct {
		name string
		dest **time.Time
	}{{"from", &f.From}, {"to", &f.To}} {
		raw := c.Query(p.name)
		if raw == "" {
			continue
		}
		day := db.ParseDate(raw)
		if day == nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error":   "invalid " + p.name + " date",
			})
			return
		}
		*p.dest = day
	}

	entries, err := s.store.QueryChangelog(c.Request.Context(), f)
	if err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    mapSlice(entries, toChangelogJSON),
		"count":   len(entries),
	})
}
