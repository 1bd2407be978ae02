package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/benniebendiksen/pose-extraction-service/internal/domain/entity"
	"github.com/benniebendiksen/pose-extraction-service/internal/domain/port"
	"github.com/benniebendiksen/pose-extraction-service/internal/usecase"
)

// Service is the slice of the orchestrator the HTTP surface needs.
type Service interface {
	SubmitRemote(ctx context.Context, url string) (*usecase.SubmitResult, error)
	SubmitUpload(ctx context.Context, r io.Reader, originalName string) (*usecase.SubmitResult, error)
	PersistArtifact(ctx context.Context, req usecase.PersistRequest) (*usecase.PersistResult, error)
	FindJob(ctx context.Context, id string) (*entity.Job, error)
}

type Handler struct {
	svc            Service
	maxUploadBytes int64
	logger         *zap.Logger
}

func NewHandler(svc Service, maxUploadBytes int64, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, maxUploadBytes: maxUploadBytes, logger: logger}
}

// RemoteVideo handles POST /api/yt2json: form field `url`, downloads the
// video and extracts its landmark sequence.
func (h *Handler) RemoteVideo(c *gin.Context) {
	url := c.PostForm("url")

	res, err := h.svc.SubmitRemote(c.Request.Context(), url)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"video_path": res.VideoPath,
		"json_path":  res.PosePath,
	})
}

// UploadVideo handles POST /api/video2json: multipart file field `file`.
func (h *Handler) UploadVideo(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)

	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file"})
		return
	}
	if fh.Size == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty file"})
		return
	}

	f, err := fh.Open()
	if err != nil {
		h.respondError(c, err)
		return
	}
	defer f.Close()

	res, err := h.svc.SubmitUpload(c.Request.Context(), f, fh.Filename)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"video_path": res.VideoPath,
		"json_path":  res.PosePath,
	})
}

type saveAnimationRequest struct {
	Content  string `json:"content"`
	Filename string `json:"filename"`
}

// SaveAnimation handles POST /api/save_bvh: persists skeletal-animation text
// handed over by the client.
func (h *Handler) SaveAnimation(c *gin.Context) {
	var req saveAnimationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}

	res, err := h.svc.PersistArtifact(c.Request.Context(), usecase.PersistRequest{
		Kind:    usecase.ArtifactAnimation,
		Name:    req.Filename,
		Content: []byte(req.Content),
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"bvh_path": res.Path,
	})
}

type savePoseRequest struct {
	Content  json.RawMessage `json:"content"`
	Filename string          `json:"filename"`
}

// SaveWebcamPose handles POST /api/save_webcam_pose: persists a landmark
// sequence captured client-side, after validating its shape.
func (h *Handler) SaveWebcamPose(c *gin.Context) {
	var req savePoseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}

	res, err := h.svc.PersistArtifact(c.Request.Context(), usecase.PersistRequest{
		Kind:    usecase.ArtifactPose,
		Name:    req.Filename,
		Content: req.Content,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"json_path": res.Path,
	})
}

type jobResponse struct {
	ID          string     `json:"id"`
	Kind        string     `json:"kind"`
	Status      string     `json:"status"`
	BaseName    string     `json:"base_name,omitempty"`
	InputPath   string     `json:"input_path,omitempty"`
	OutputPath  string     `json:"output_path,omitempty"`
	FramesRead  int        `json:"frames_read"`
	FrameCount  int        `json:"frame_count"`
	StopReason  string     `json:"stop_reason,omitempty"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// JobStatus handles GET /api/jobs/:id: looks a past run up in the ledger.
func (h *Handler) JobStatus(c *gin.Context) {
	job, err := h.svc.FindJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, port.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
			return
		}
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"job": jobResponse{
			ID:          job.ID,
			Kind:        string(job.Kind),
			Status:      string(job.Status),
			BaseName:    job.BaseName,
			InputPath:   job.InputPath,
			OutputPath:  job.OutputPath,
			FramesRead:  job.FramesRead,
			FrameCount:  job.FrameCount,
			StopReason:  string(job.StopReason),
			Error:       job.ErrorMessage,
			CreatedAt:   job.CreatedAt,
			CompletedAt: job.CompletedAt,
		},
	})
}

func (h *Handler) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	if entity.IsKind(err, entity.KindInvalidRequest) {
		status = http.StatusBadRequest
	}

	if status >= 500 {
		h.logger.Error("request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
	} else {
		h.logger.Warn("request rejected", zap.String("path", c.Request.URL.Path), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
