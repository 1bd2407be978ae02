package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/benniebendiksen/pose-extraction-service/internal/domain/entity"
	"github.com/benniebendiksen/pose-extraction-service/internal/domain/port"
	"github.com/benniebendiksen/pose-extraction-service/internal/usecase"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeService struct {
	submitErr  error
	persistErr error
	jobs       map[string]*entity.Job

	lastURL      string
	lastUpload   []byte
	lastName     string
	lastArtifact usecase.PersistRequest
}

func (s *fakeService) SubmitRemote(ctx context.Context, url string) (*usecase.SubmitResult, error) {
	s.lastURL = url
	if s.submitErr != nil {
		return nil, s.submitErr
	}
	return &usecase.SubmitResult{
		Job:       entity.NewJob(entity.JobKindRemote, ""),
		VideoPath: "videos/abc12345.mp4",
		PosePath:  "poses/abc12345_pose.json",
	}, nil
}

func (s *fakeService) SubmitUpload(ctx context.Context, r io.Reader, originalName string) (*usecase.SubmitResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	s.lastUpload = data
	s.lastName = originalName
	if s.submitErr != nil {
		return nil, s.submitErr
	}
	return &usecase.SubmitResult{
		Job:       entity.NewJob(entity.JobKindUpload, "clip"),
		VideoPath: "videos/clip_abc12345.mp4",
		PosePath:  "poses/clip_abc12345_pose.json",
	}, nil
}

func (s *fakeService) PersistArtifact(ctx context.Context, req usecase.PersistRequest) (*usecase.PersistResult, error) {
	s.lastArtifact = req
	if s.persistErr != nil {
		return nil, s.persistErr
	}
	path := "bvh/Mocap_bvh_abc12345.bvh"
	if req.Kind == usecase.ArtifactPose {
		path = "poses/webcam_pose_abc12345.json"
	}
	return &usecase.PersistResult{
		Job:  entity.NewJob(entity.JobKindArtifact, ""),
		Path: path,
	}, nil
}

func (s *fakeService) FindJob(ctx context.Context, id string) (*entity.Job, error) {
	job, ok := s.jobs[id]
	if !ok {
		return nil, port.ErrJobNotFound
	}
	return job, nil
}

func newTestRouter(svc *fakeService) *gin.Engine {
	h := NewHandler(svc, 1<<20, zap.NewNop())
	return SetupRouter(h, zap.NewNop())
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestHealthz(t *testing.T) {
	router := newTestRouter(&fakeService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "ok", body["status"])
}

func TestPreflightAnsweredByCORSMiddleware(t *testing.T) {
	router := newTestRouter(&fakeService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/api/yt2json", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "POST")
	assert.Empty(t, w.Body.Bytes())
}

func TestRemoteVideoHappyPath(t *testing.T) {
	svc := &fakeService{}
	router := newTestRouter(svc)

	form := "url=https%3A%2F%2Fexample.com%2Fwatch%3Fv%3Dabc"
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/yt2json", strings.NewReader(form))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://example.com/watch?v=abc", svc.lastURL)

	body := decodeBody(t, w)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "videos/abc12345.mp4", body["video_path"])
	assert.Equal(t, "poses/abc12345_pose.json", body["json_path"])
}

func TestRemoteVideoInvalidRequestIs400(t *testing.T) {
	svc := &fakeService{submitErr: entity.NewPipelineError(entity.KindInvalidRequest, "missing url", nil)}
	router := newTestRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/yt2json", strings.NewReader(""))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeBody(t, w)
	assert.Contains(t, body["error"], "missing url")
}

func TestRemoteVideoPipelineFailureIs500(t *testing.T) {
	svc := &fakeService{submitErr: entity.NewPipelineError(entity.KindAcquisitionFailure, "fetch remote video", errors.New("exit status 1"))}
	router := newTestRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/yt2json", strings.NewReader("url=x"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := decodeBody(t, w)
	assert.Contains(t, body["error"], "acquisition_failure")
}

func multipartUpload(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return buf, mw.FormDataContentType()
}

func TestUploadVideoHappyPath(t *testing.T) {
	svc := &fakeService{}
	router := newTestRouter(svc)

	payload := []byte("fake mp4 bytes")
	buf, contentType := multipartUpload(t, "file", "clip.mp4", payload)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/video2json", buf)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "clip.mp4", svc.lastName)
	assert.Equal(t, payload, svc.lastUpload)

	body := decodeBody(t, w)
	assert.Equal(t, "videos/clip_abc12345.mp4", body["video_path"])
	assert.Equal(t, "poses/clip_abc12345_pose.json", body["json_path"])
}

func TestUploadVideoMissingFile(t *testing.T) {
	router := newTestRouter(&fakeService{})

	buf, contentType := multipartUpload(t, "wrong_field", "clip.mp4", []byte("x"))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/video2json", buf)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "missing file", body["error"])
}

func TestUploadVideoEmptyFile(t *testing.T) {
	router := newTestRouter(&fakeService{})

	buf, contentType := multipartUpload(t, "file", "clip.mp4", nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/video2json", buf)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "empty file", body["error"])
}

func TestSaveAnimation(t *testing.T) {
	svc := &fakeService{}
	router := newTestRouter(svc)

	reqBody := `{"content": "HIERARCHY\nROOT Hips\n", "filename": "take1.bvh"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/save_bvh", strings.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, usecase.ArtifactAnimation, svc.lastArtifact.Kind)
	assert.Equal(t, "take1.bvh", svc.lastArtifact.Name)
	assert.Equal(t, "HIERARCHY\nROOT Hips\n", string(svc.lastArtifact.Content))

	body := decodeBody(t, w)
	assert.Equal(t, "bvh/Mocap_bvh_abc12345.bvh", body["bvh_path"])
}

func TestSaveAnimationInvalidBody(t *testing.T) {
	router := newTestRouter(&fakeService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/save_bvh", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSaveWebcamPose(t *testing.T) {
	svc := &fakeService{}
	router := newTestRouter(svc)

	reqBody := `{"content": [[{"x":0.1,"y":0.2,"z":0.3,"visibility":0.9}]]}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/save_webcam_pose", strings.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, usecase.ArtifactPose, svc.lastArtifact.Kind)
	assert.JSONEq(t, `[[{"x":0.1,"y":0.2,"z":0.3,"visibility":0.9}]]`, string(svc.lastArtifact.Content))

	body := decodeBody(t, w)
	assert.Equal(t, "poses/webcam_pose_abc12345.json", body["json_path"])
}

func TestSaveWebcamPoseRejectedSequenceIs400(t *testing.T) {
	svc := &fakeService{persistErr: entity.NewPipelineError(entity.KindInvalidRequest, "invalid landmark sequence", errors.New("minItems"))}
	router := newTestRouter(svc)

	reqBody := `{"content": [[]]}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/save_webcam_pose", strings.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeBody(t, w)
	assert.Contains(t, body["error"], "invalid landmark sequence")
}

func TestJobStatusFound(t *testing.T) {
	job := entity.NewJob(entity.JobKindUpload, "dance")
	job.MarkSucceeded("poses/dance_"+job.ID+"_pose.json", 10, 9, entity.StopReasonNone)
	svc := &fakeService{jobs: map[string]*entity.Job{job.ID: job}}
	router := newTestRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/jobs/"+job.ID, nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "ok", body["status"])

	got, ok := body["job"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, job.ID, got["id"])
	assert.Equal(t, "SUCCEEDED", got["status"])
	assert.Equal(t, "poses/dance_"+job.ID+"_pose.json", got["output_path"])
	assert.Equal(t, float64(10), got["frames_read"])
	assert.Equal(t, float64(9), got["frame_count"])
	assert.NotContains(t, got, "error")
}

func TestJobStatusNotFound(t *testing.T) {
	router := newTestRouter(&fakeService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/jobs/deadbeef", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "job not found", body["error"])
}
