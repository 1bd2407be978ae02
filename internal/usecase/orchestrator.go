package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/benniebendiksen/pose-extraction-service/internal/domain/entity"
	"github.com/benniebendiksen/pose-extraction-service/internal/domain/port"
	"github.com/benniebendiksen/pose-extraction-service/internal/infra/metrics"
)

// SubmitResult is returned by every submit operation. Paths are relative to
// the artifact root; VideoPath is empty for device captures.
type SubmitResult struct {
	Job       *entity.Job
	VideoPath string
	PosePath  string
}

// ArtifactKind selects what PersistArtifact is being handed.
type ArtifactKind string

const (
	ArtifactAnimation ArtifactKind = "animation"
	ArtifactPose      ArtifactKind = "pose"
)

// PersistRequest carries a pre-computed artifact: skeletal-animation text or
// a landmark sequence captured client-side. Name is optional and never
// trusted verbatim.
type PersistRequest struct {
	Kind    ArtifactKind
	Name    string
	Content []byte
}

type PersistResult struct {
	Job  *entity.Job
	Path string
}

// Orchestrator runs one job per call, synchronously, on the caller's
// goroutine. Jobs are isolated by token-derived paths; the only shared
// resource is the capture device, held exclusively for the whole run.
type Orchestrator struct {
	repo       port.JobRepository
	store      port.ArtifactStore
	acquirer   port.VideoAcquirer
	loop       *ExtractionLoop
	validator  *PoseValidator
	jobTimeout time.Duration
	logger     *zap.Logger

	deviceMu    sync.Mutex
	devicesBusy map[int]struct{}
}

func NewOrchestrator(
	repo port.JobRepository,
	store port.ArtifactStore,
	acquirer port.VideoAcquirer,
	loop *ExtractionLoop,
	validator *PoseValidator,
	jobTimeout time.Duration,
	logger *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		repo:        repo,
		store:       store,
		acquirer:    acquirer,
		loop:        loop,
		validator:   validator,
		jobTimeout:  jobTimeout,
		logger:      logger,
		devicesBusy: make(map[int]struct{}),
	}
}

// SubmitRemote downloads a video from url and extracts its landmark sequence.
func (o *Orchestrator) SubmitRemote(ctx context.Context, url string) (*SubmitResult, error) {
	tracer := otel.Tracer("usecase")
	ctx, span := tracer.Start(ctx, "Orchestrator.SubmitRemote")
	defer span.End()

	url = strings.TrimSpace(url)
	if url == "" {
		return nil, entity.NewPipelineError(entity.KindInvalidRequest, "missing url", nil)
	}

	ctx, cancel := o.jobContext(ctx)
	defer cancel()

	job := entity.NewJob(entity.JobKindRemote, "")
	span.SetAttributes(attribute.String("job.id", job.ID))
	log := o.logger.With(zap.String("job_id", job.ID), zap.String("job_kind", string(job.Kind)))
	o.createJob(ctx, job, log)

	totalTimer := time.Now()
	videoPath := o.store.ClaimVideo("", job.ID, "mp4")
	posePath := o.store.ClaimPose("", job.ID)

	aqStart := time.Now()
	ctxAq, spanAq := tracer.Start(ctx, "acquire_video")
	err := o.acquirer.Fetch(ctxAq, url, videoPath.Abs)
	spanAq.End()
	if err != nil {
		log.Error("video acquisition failed", zap.String("url", url), zap.Error(err))
		return nil, o.fail(ctx, job, entity.NewPipelineError(entity.KindAcquisitionFailure, "fetch remote video", err), log)
	}
	metrics.JobStageDuration.WithLabelValues("acquire").Observe(time.Since(aqStart).Seconds())

	job.InputPath = videoPath.Rel
	job.MarkRunning()
	o.updateJob(ctx, job, log)

	res, err := o.extractAndPersist(ctx, job, videoPath.Abs, posePath, log)
	if err != nil {
		return nil, err
	}

	o.finish(ctx, job, posePath.Rel, res, totalTimer, log)
	return &SubmitResult{Job: job, VideoPath: videoPath.Rel, PosePath: posePath.Rel}, nil
}

// SubmitUpload stores the uploaded video bytes and extracts their landmark
// sequence. originalName supplies the base for generated file names.
func (o *Orchestrator) SubmitUpload(ctx context.Context, r io.Reader, originalName string) (*SubmitResult, error) {
	tracer := otel.Tracer("usecase")
	ctx, span := tracer.Start(ctx, "Orchestrator.SubmitUpload")
	defer span.End()

	base := strings.TrimSpace(originalName)
	if base == "" {
		return nil, entity.NewPipelineError(entity.KindInvalidRequest, "missing file name", nil)
	}
	if r == nil {
		return nil, entity.NewPipelineError(entity.KindInvalidRequest, "empty upload", nil)
	}
	base = entity.SanitizeName(strings.TrimSuffix(base, filepath.Ext(base)))

	ctx, cancel := o.jobContext(ctx)
	defer cancel()

	job := entity.NewJob(entity.JobKindUpload, base)
	span.SetAttributes(attribute.String("job.id", job.ID))
	log := o.logger.With(zap.String("job_id", job.ID), zap.String("job_kind", string(job.Kind)))
	o.createJob(ctx, job, log)

	totalTimer := time.Now()
	videoPath := o.store.ClaimVideo(base, job.ID, "mp4")
	posePath := o.store.ClaimPose(base, job.ID)

	svStart := time.Now()
	ctxSv, spanSv := tracer.Start(ctx, "save_upload")
	err := o.store.SaveVideo(ctxSv, videoPath, r)
	spanSv.End()
	if err != nil {
		log.Error("upload save failed", zap.Error(err))
		return nil, o.fail(ctx, job, entity.NewPipelineError(entity.KindSerializationFailure, "save uploaded video", err), log)
	}
	metrics.JobStageDuration.WithLabelValues("save_upload").Observe(time.Since(svStart).Seconds())

	job.InputPath = videoPath.Rel
	job.MarkRunning()
	o.updateJob(ctx, job, log)

	res, err := o.extractAndPersist(ctx, job, videoPath.Abs, posePath, log)
	if err != nil {
		return nil, err
	}

	o.finish(ctx, job, posePath.Rel, res, totalTimer, log)
	return &SubmitResult{Job: job, VideoPath: videoPath.Rel, PosePath: posePath.Rel}, nil
}

// SubmitDevice runs a live capture. The device is exclusively owned for the
// whole run; a second concurrent submit for the same index is rejected, not
// queued. Partial captures (device lost, cancelled) are successes.
func (o *Orchestrator) SubmitDevice(ctx context.Context, deviceIndex int, policy entity.StoppingPolicy) (*SubmitResult, error) {
	tracer := otel.Tracer("usecase")
	ctx, span := tracer.Start(ctx, "Orchestrator.SubmitDevice")
	defer span.End()

	if deviceIndex < 0 {
		return nil, entity.NewPipelineError(entity.KindInvalidRequest, fmt.Sprintf("invalid device index %d", deviceIndex), nil)
	}
	if !o.lockDevice(deviceIndex) {
		return nil, entity.NewPipelineError(entity.KindSourceUnavailable,
			fmt.Sprintf("capture device %d already in use", deviceIndex), nil)
	}
	defer o.unlockDevice(deviceIndex)

	job := entity.NewJob(entity.JobKindDevice, "")
	span.SetAttributes(attribute.String("job.id", job.ID), attribute.Int("device.index", deviceIndex))
	log := o.logger.With(zap.String("job_id", job.ID), zap.String("job_kind", string(job.Kind)), zap.Int("device", deviceIndex))
	o.createJob(ctx, job, log)

	totalTimer := time.Now()
	job.MarkRunning()
	o.updateJob(ctx, job, log)

	exStart := time.Now()
	ctxEx, spanEx := tracer.Start(ctx, "extract_pose")
	res, err := o.loop.Run(ctxEx, entity.DeviceSource(deviceIndex), &policy)
	spanEx.End()
	if err != nil {
		log.Error("capture run failed", zap.Error(err))
		return nil, o.fail(ctx, job, err, log)
	}
	metrics.JobStageDuration.WithLabelValues("extract").Observe(time.Since(exStart).Seconds())

	_, spanWr := tracer.Start(ctx, "persist_artifact")
	posePath, err := o.store.WritePoseNamed(fmt.Sprintf("webcam_pose_%s.json", job.ID), res.Sequence)
	spanWr.End()
	if err != nil {
		log.Error("pose artifact write failed", zap.Error(err))
		return nil, o.fail(ctx, job, entity.NewPipelineError(entity.KindSerializationFailure, "write pose artifact", err), log)
	}

	o.finish(ctx, job, posePath.Rel, res, totalTimer, log)
	return &SubmitResult{Job: job, PosePath: posePath.Rel}, nil
}

// PersistArtifact stores a pre-computed artifact without an extraction step.
// Landmark payloads are validated against the artifact schema first.
func (o *Orchestrator) PersistArtifact(ctx context.Context, req PersistRequest) (*PersistResult, error) {
	tracer := otel.Tracer("usecase")
	ctx, span := tracer.Start(ctx, "Orchestrator.PersistArtifact")
	defer span.End()

	if len(req.Content) == 0 {
		return nil, entity.NewPipelineError(entity.KindInvalidRequest, "missing content", nil)
	}

	job := entity.NewJob(entity.JobKindArtifact, "")
	span.SetAttributes(attribute.String("job.id", job.ID), attribute.String("artifact.kind", string(req.Kind)))
	log := o.logger.With(zap.String("job_id", job.ID), zap.String("artifact_kind", string(req.Kind)))
	o.createJob(ctx, job, log)

	var (
		p          port.ArtifactPath
		frameCount int
	)
	switch req.Kind {
	case ArtifactAnimation:
		name := req.Name
		if strings.TrimSpace(name) == "" {
			name = fmt.Sprintf("Mocap_bvh_%s.bvh", job.ID)
		}
		var err error
		p, err = o.store.WriteAnimation(name, req.Content)
		if err != nil {
			log.Error("animation artifact write failed", zap.Error(err))
			return nil, o.fail(ctx, job, entity.NewPipelineError(entity.KindSerializationFailure, "write animation artifact", err), log)
		}

	case ArtifactPose:
		if err := o.validator.Validate(req.Content); err != nil {
			return nil, o.fail(ctx, job, entity.NewPipelineError(entity.KindInvalidRequest, "invalid landmark sequence", err), log)
		}
		var seq entity.LandmarkSequence
		if err := json.Unmarshal(req.Content, &seq); err != nil {
			return nil, o.fail(ctx, job, entity.NewPipelineError(entity.KindInvalidRequest, "decode landmark sequence", err), log)
		}
		name := req.Name
		if strings.TrimSpace(name) == "" {
			name = fmt.Sprintf("webcam_pose_%s.json", job.ID)
		}
		var err error
		p, err = o.store.WritePoseNamed(name, seq)
		if err != nil {
			log.Error("pose artifact write failed", zap.Error(err))
			return nil, o.fail(ctx, job, entity.NewPipelineError(entity.KindSerializationFailure, "write pose artifact", err), log)
		}
		frameCount = len(seq)

	default:
		return nil, o.fail(ctx, job, entity.NewPipelineError(entity.KindInvalidRequest, fmt.Sprintf("unknown artifact kind %q", req.Kind), nil), log)
	}

	job.MarkSucceeded(p.Rel, 0, frameCount, entity.StopReasonNone)
	o.updateJob(ctx, job, log)
	metrics.JobsProcessedTotal.WithLabelValues(string(job.Kind), "succeeded").Inc()

	log.Info("artifact persisted", zap.String("path", p.Rel))
	return &PersistResult{Job: job, Path: p.Rel}, nil
}

// FindJob looks a past run up in the ledger.
func (o *Orchestrator) FindJob(ctx context.Context, id string) (*entity.Job, error) {
	return o.repo.FindByID(ctx, id)
}

func (o *Orchestrator) extractAndPersist(ctx context.Context, job *entity.Job, videoAbs string, posePath port.ArtifactPath, log *zap.Logger) (*ExtractionResult, error) {
	tracer := otel.Tracer("usecase")

	exStart := time.Now()
	ctxEx, spanEx := tracer.Start(ctx, "extract_pose")
	res, err := o.loop.Run(ctxEx, entity.FileSource(videoAbs), nil)
	spanEx.End()
	if err != nil {
		log.Error("pose extraction failed", zap.Error(err))
		return nil, o.fail(ctx, job, err, log)
	}
	metrics.JobStageDuration.WithLabelValues("extract").Observe(time.Since(exStart).Seconds())

	wrStart := time.Now()
	_, spanWr := tracer.Start(ctx, "persist_artifact")
	err = o.store.WritePose(posePath, res.Sequence)
	spanWr.End()
	if err != nil {
		log.Error("pose artifact write failed", zap.Error(err))
		return nil, o.fail(ctx, job, entity.NewPipelineError(entity.KindSerializationFailure, "write pose artifact", err), log)
	}
	metrics.JobStageDuration.WithLabelValues("persist").Observe(time.Since(wrStart).Seconds())

	return res, nil
}

func (o *Orchestrator) finish(ctx context.Context, job *entity.Job, outPath string, res *ExtractionResult, startedAt time.Time, log *zap.Logger) {
	job.MarkSucceeded(outPath, res.FramesRead, len(res.Sequence), res.StopReason)
	o.updateJob(ctx, job, log)

	metrics.JobsProcessedTotal.WithLabelValues(string(job.Kind), "succeeded").Inc()
	metrics.JobStageDuration.WithLabelValues("total").Observe(time.Since(startedAt).Seconds())

	log.Info("job completed",
		zap.Int("frames_read", res.FramesRead),
		zap.Int("frames_retained", len(res.Sequence)),
		zap.String("output", outPath),
	)
}

func (o *Orchestrator) fail(ctx context.Context, job *entity.Job, err error, log *zap.Logger) error {
	job.MarkFailed(err.Error())
	o.updateJob(ctx, job, log)
	metrics.JobsProcessedTotal.WithLabelValues(string(job.Kind), "failed").Inc()
	return err
}

// Ledger writes are observability, not control flow: failures are logged and
// the job proceeds.
func (o *Orchestrator) createJob(ctx context.Context, job *entity.Job, log *zap.Logger) {
	if err := o.repo.Create(ctx, job); err != nil {
		log.Warn("job ledger create failed", zap.Error(err))
	}
}

func (o *Orchestrator) updateJob(ctx context.Context, job *entity.Job, log *zap.Logger) {
	if err := o.repo.Update(context.WithoutCancel(ctx), job); err != nil {
		log.Warn("job ledger update failed", zap.Error(err))
	}
}

func (o *Orchestrator) jobContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.jobTimeout > 0 {
		return context.WithTimeout(ctx, o.jobTimeout)
	}
	return context.WithCancel(ctx)
}

func (o *Orchestrator) lockDevice(index int) bool {
	o.deviceMu.Lock()
	defer o.deviceMu.Unlock()
	if _, busy := o.devicesBusy[index]; busy {
		return false
	}
	o.devicesBusy[index] = struct{}{}
	return true
}

func (o *Orchestrator) unlockDevice(index int) {
	o.deviceMu.Lock()
	defer o.deviceMu.Unlock()
	delete(o.devicesBusy, index)
}
