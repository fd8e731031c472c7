package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/shellrunner/shellrunner-server/internal/executor"
	"github.com/shellrunner/shellrunner-server/internal/logstore"
	"github.com/shellrunner/shellrunner-server/internal/procrec"
	"github.com/shellrunner/shellrunner-server/internal/shellerr"
)

type handlers struct {
	exec *executor.Executor
}

// startRequest is the JSON body of POST /processes, mirroring
// shell_bg_start's argument bag (spec.md §6).
type startRequest struct {
	Command        []string `json:"command" binding:"required"`
	Directory      string   `json:"directory" binding:"required"`
	Description    string   `json:"description" binding:"required"`
	Labels         []string `json:"labels"`
	Stdin          string   `json:"stdin"`
	Envs           []string `json:"envs"`
	Encoding       string   `json:"encoding"`
	TimeoutSeconds *float64 `json:"timeout"`
}

func (h *handlers) start(c *gin.Context) {
	var req startRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	pid, err := h.exec.AsyncExecute(executor.StartParams{
		Command:        req.Command,
		Directory:      req.Directory,
		Description:    req.Description,
		Labels:         req.Labels,
		Stdin:          []byte(req.Stdin),
		Envs:           req.Envs,
		Encoding:       req.Encoding,
		TimeoutSeconds: req.TimeoutSeconds,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"pid": pid})
}

func (h *handlers) list(c *gin.Context) {
	var labels []string
	if l := c.QueryArray("labels"); len(l) > 0 {
		labels = l
	}
	var status *procrec.Status
	if s := c.Query("status"); s != "" {
		st := procrec.Status(s)
		status = &st
	}
	c.JSON(http.StatusOK, h.exec.List(labels, status))
}

func (h *handlers) get(c *gin.Context) {
	pid, err := pidParam(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	info, err := h.exec.Get(pid)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

func (h *handlers) output(c *gin.Context) {
	pid, err := pidParam(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	opts := logstore.QueryOptions{}
	if tail := c.Query("tail"); tail != "" {
		if n, perr := strconv.Atoi(tail); perr == nil {
			opts.Tail = n
		}
	}
	if since := c.Query("since"); since != "" {
		if t, perr := time.Parse(time.RFC3339Nano, since); perr == nil {
			opts.Since = &t
		}
	}
	if until := c.Query("until"); until != "" {
		if t, perr := time.Parse(time.RFC3339Nano, until); perr == nil {
			opts.Until = &t
		}
	}
	stderr := c.Query("stream") == "stderr"

	if c.Query("follow") == "true" {
		h.streamOutput(c, pid, opts, stderr)
		return
	}

	entries, err := h.exec.GetOutput(pid, opts, stderr)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

// streamOutput implements the follow mode as Server-Sent Events, the
// natural gin-native transport for a long-lived one-way log tail.
func (h *handlers) streamOutput(c *gin.Context, pid int, opts logstore.QueryOptions, stderr bool) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	err := h.exec.FollowOutput(c.Request.Context(), pid, opts, stderr, func(e logstore.Entry) {
		c.SSEvent("log", e)
		c.Writer.Flush()
	})
	if err != nil && c.Request.Context().Err() == nil {
		c.SSEvent("error", err.Error())
		c.Writer.Flush()
	}
}

func (h *handlers) stop(c *gin.Context) {
	pid, err := pidParam(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	force := c.Query("force") == "true"
	ok, err := h.exec.Stop(pid, force)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stopped": ok})
}

func (h *handlers) clean(c *gin.Context) {
	pid, err := pidParam(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	ok, err := h.exec.Clean(pid)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cleaned": ok})
}

func (h *handlers) cleanAll(c *gin.Context) {
	for _, info := range h.exec.List(nil, nil) {
		if info.Status != procrec.StatusRunning {
			_, _ = h.exec.Clean(info.Pid)
		}
	}
	c.JSON(http.StatusOK, gin.H{"message": "cleaned all terminal processes"})
}

type cleanSelectedRequest struct {
	Pids []int `json:"pids" binding:"required"`
}

func (h *handlers) cleanSelected(c *gin.Context) {
	var req cleanSelectedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	cleaned := make([]int, 0, len(req.Pids))
	for _, pid := range req.Pids {
		if ok, _ := h.exec.Clean(pid); ok {
			cleaned = append(cleaned, pid)
		}
	}
	c.JSON(http.StatusOK, gin.H{"cleaned": cleaned})
}

func pidParam(c *gin.Context) (int, error) {
	return strconv.Atoi(c.Param("pid"))
}

// writeError translates the shellerr taxonomy into HTTP status codes,
// dispatching on the error's Kind after an errors.As match; errors outside
// the taxonomy map to 500.
func writeError(c *gin.Context, err error) {
	_ = c.Error(err)

	var se *shellerr.Error
	if errors.As(err, &se) {
		switch se.Kind {
		case shellerr.KindNotFound:
			c.JSON(http.StatusNotFound, gin.H{"message": err.Error()})
		case shellerr.KindEmptyCommand, shellerr.KindCommandValidation, shellerr.KindDirectory, shellerr.KindIORedirection:
			c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		case shellerr.KindIllegalState:
			c.JSON(http.StatusConflict, gin.H{"message": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		}
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
}
