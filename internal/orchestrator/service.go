// Package orchestrator coordinates the submit -> dispatch -> complete
// saga: persist input, invoke the right worker, record the terminal
// state, and gate result delivery behind the billing check. Every step
// can fail independently; failures inside the asynchronous pipeline end
// up in the job record, never in a synchronous response.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fluxaudio/fluxaudio/internal/apperr"
	"github.com/fluxaudio/fluxaudio/internal/auth"
	"github.com/fluxaudio/fluxaudio/internal/billing"
	"github.com/fluxaudio/fluxaudio/internal/common"
	"github.com/fluxaudio/fluxaudio/internal/job"
	"github.com/fluxaudio/fluxaudio/internal/notify"
	"github.com/fluxaudio/fluxaudio/internal/observability"
	"github.com/fluxaudio/fluxaudio/internal/worker"
)

// BlobStore is the slice of the storage service the orchestrator needs.
type BlobStore interface {
	Store(ctx context.Context, owner string, data []byte, name string) (string, error)
	Fetch(ctx context.Context, path, owner string) ([]byte, error)
}

// Billing is the slice of the accounts service the orchestrator needs.
type Billing interface {
	AccountStatus(ctx context.Context, userID string) (billing.AccountStatus, error)
	DebitMinutes(ctx context.Context, userID string, minutes int) error
}

// Invoker dispatches a capability-tagged payload to a worker endpoint.
type Invoker interface {
	Invoke(ctx context.Context, endpoint string, capability job.Capability, p worker.Payload, timeout time.Duration) (worker.Result, error)
}

// DurationEstimator decides how many minutes a download debits. The
// default charges a fixed unit per download; a real implementation
// would measure the output audio.
type DurationEstimator func(j *job.Job) int

func FixedMinutes(n int) DurationEstimator {
	return func(*job.Job) int { return n }
}

type Service struct {
	store    job.Store
	blobs    BlobStore
	billing  Billing
	registry *worker.Registry
	invoker  Invoker
	notifier notify.Notifier
	log      *logrus.Entry
	metrics  *observability.Metrics

	workerTimeout time.Duration
	estimate      DurationEstimator
}

type Options struct {
	Store         job.Store
	Blobs         BlobStore
	Billing       Billing
	Registry      *worker.Registry
	Invoker       Invoker
	Notifier      notify.Notifier
	Log           *logrus.Entry
	Metrics       *observability.Metrics
	WorkerTimeout time.Duration
	Estimate      DurationEstimator
}

func NewService(opts Options) *Service {
	if opts.WorkerTimeout <= 0 {
		opts.WorkerTimeout = 10 * time.Minute
	}
	if opts.Estimate == nil {
		opts.Estimate = FixedMinutes(1)
	}
	if opts.Log == nil {
		opts.Log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Service{
		store:         opts.Store,
		blobs:         opts.Blobs,
		billing:       opts.Billing,
		registry:      opts.Registry,
		invoker:       opts.Invoker,
		notifier:      opts.Notifier,
		log:           opts.Log,
		metrics:       opts.Metrics,
		workerTimeout: opts.WorkerTimeout,
		estimate:      opts.Estimate,
	}
}

// SubmitRequest is the transport-agnostic submission.
type SubmitRequest struct {
	Capability job.Capability
	ModelName  string
	InputAudio []byte
	InputText  string
	Parameters map[string]any
}

// Submit accepts a processing request, persists the input blob when one
// is supplied, registers the job as pending and schedules dispatch. It
// returns the job id before any worker I/O happens; a submit succeeds
// even when the capability has no registered worker, since the job's
// asynchronous failure stays discoverable through Status.
func (s *Service) Submit(ctx context.Context, userID string, req SubmitRequest) (string, error) {
	jobID := common.NewUUID()

	j := &job.Job{
		ID:          jobID,
		UserID:      userID,
		Capability:  req.Capability,
		ChosenModel: req.ModelName,
		Status:      job.StatusPending,
		Metadata:    map[string]any{},
	}
	for k, v := range req.Parameters {
		j.Metadata[k] = v
	}

	// Input storage is synchronous: no job may exist whose supplied
	// input was not durably stored. A failure here fails the request,
	// not the job.
	if len(req.InputAudio) > 0 {
		path, err := s.blobs.Store(ctx, userID, req.InputAudio, fmt.Sprintf("input_%s.wav", jobID))
		if err != nil {
			return "", fmt.Errorf("failed to upload input audio: %w", err)
		}
		j.InputAudioPath = path
	}

	if err := s.store.Put(ctx, j); err != nil {
		return "", err
	}

	if s.metrics != nil {
		s.metrics.JobsSubmitted.Inc()
	}

	// Fire-and-continue: the pipeline runs detached from the request
	// but the job stays trackable through the store.
	go s.dispatch(context.WithoutCancel(ctx), j.Clone(), req)

	return jobID, nil
}

// dispatch drives one job through the worker and output-storage steps.
// It owns every mutation of the job after creation and never returns an
// error: all failures land in the job's terminal state.
func (s *Service) dispatch(ctx context.Context, j *job.Job, req SubmitRequest) {
	start := time.Now()
	log := s.log.WithFields(logrus.Fields{"job_id": j.ID, "capability": j.Capability})

	defer func() {
		if r := recover(); r != nil {
			log.Errorf("dispatch panic: %v", r)
			s.failJob(ctx, j, fmt.Sprintf("an unexpected error occurred during processing: %v", r))
		}
	}()

	endpoint, err := s.registry.Endpoint(j.Capability)
	if err != nil {
		// The job was accepted before routing was checked, so an
		// unknown capability fails asynchronously like any other error.
		s.failJob(ctx, j, err.Error())
		return
	}

	if err := s.store.MarkProcessing(ctx, j.ID); err != nil {
		log.WithError(err).Error("mark processing failed")
		return
	}
	log.Infof("processing started using model %s", j.ChosenModel)

	res, err := s.invoker.Invoke(ctx, endpoint, j.Capability, worker.Payload{
		InputAudio: req.InputAudio,
		InputText:  req.InputText,
		ModelName:  req.ModelName,
		Parameters: req.Parameters,
	}, s.workerTimeout)
	if err != nil {
		s.failJob(ctx, j, err.Error())
		s.observeTerminal(job.StatusFailed, start)
		return
	}

	if res.Status != worker.ResultCompleted {
		msg := res.Message
		if msg == "" {
			msg = "worker reported failure"
		}
		s.failJob(ctx, j, msg)
		s.observeTerminal(job.StatusFailed, start)
		return
	}

	var outputPath string
	if len(res.OutputAudio) > 0 {
		outputPath, err = s.blobs.Store(ctx, j.UserID, res.OutputAudio, fmt.Sprintf("output_%s.wav", j.ID))
		if err != nil {
			s.failJob(ctx, j, fmt.Sprintf("failed to store output audio: %v", err))
			s.observeTerminal(job.StatusFailed, start)
			return
		}
	}

	meta := map[string]any{}
	if res.OutputText != "" {
		meta[job.MetaOutputText] = res.OutputText
	}

	if err := s.store.Complete(ctx, j.ID, outputPath, meta); err != nil {
		log.WithError(err).Error("complete transition failed")
		return
	}
	log.Infof("completed, output=%s", outputPath)

	s.observeTerminal(job.StatusCompleted, start)
	s.notifyOutcome(ctx, j, job.StatusCompleted, "")
}

// failJob records the terminal failure and sends the single best-effort
// notification for it.
func (s *Service) failJob(ctx context.Context, j *job.Job, reason string) {
	if err := s.store.Fail(ctx, j.ID, reason); err != nil {
		s.log.WithField("job_id", j.ID).WithError(err).Error("fail transition failed")
		return
	}
	s.log.WithField("job_id", j.ID).Warnf("job failed: %s", reason)
	s.notifyOutcome(ctx, j, job.StatusFailed, reason)
}

// notifyOutcome sends exactly one notification per terminal outcome.
// Delivery failures are logged and never reflected into job state.
func (s *Service) notifyOutcome(ctx context.Context, j *job.Job, status job.Status, reason string) {
	kind := notify.KindJobComplete
	msg := fmt.Sprintf("Your audio processing job '%s' for '%s' is %s.", j.ID, j.Capability, status)
	if status == job.StatusFailed {
		kind = notify.KindJobFailed
		if reason != "" {
			msg += " Reason: " + reason
		}
	}

	nctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := s.notifier.Publish(nctx, notify.Notification{UserID: j.UserID, Message: msg, Kind: kind}); err != nil {
		s.log.WithField("job_id", j.ID).WithError(err).Warn("notification delivery failed")
	}
}

func (s *Service) observeTerminal(status job.Status, start time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.JobsTerminal.WithLabelValues(string(status)).Inc()
	s.metrics.JobDuration.Observe(time.Since(start).Seconds())
}

// StatusView is the caller-facing job summary.
type StatusView struct {
	JobID           string `json:"job_id"`
	Status          string `json:"status"`
	OutputAvailable bool   `json:"output_available"`
	OutputText      string `json:"output_text,omitempty"`
	ErrorMessage    string `json:"error_message,omitempty"`
}

// Status is a pure, idempotent read of one job, restricted to its owner
// or an admin.
func (s *Service) Status(ctx context.Context, caller auth.Identity, jobID, userID string) (StatusView, error) {
	j, err := s.authorizedJob(ctx, caller, jobID, userID)
	if err != nil {
		return StatusView{}, err
	}
	return StatusView{
		JobID:           j.ID,
		Status:          string(j.Status),
		OutputAvailable: j.OutputAvailable(),
		OutputText:      j.OutputText(),
		ErrorMessage:    j.ErrorMessage(),
	}, nil
}

// ListJobs returns every job owned by userID, same access rule as Status.
func (s *Service) ListJobs(ctx context.Context, caller auth.Identity, userID string) ([]StatusView, error) {
	if caller.SubjectID != userID && !caller.IsAdmin() {
		return nil, fmt.Errorf("%w: you can only list your own jobs", apperr.ErrForbidden)
	}
	jobs, err := s.store.ListByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]StatusView, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, StatusView{
			JobID:           j.ID,
			Status:          string(j.Status),
			OutputAvailable: j.OutputAvailable(),
			OutputText:      j.OutputText(),
			ErrorMessage:    j.ErrorMessage(),
		})
	}
	return out, nil
}

// Download returns the completed output bytes after the billing gate:
// account must be paid with a positive balance, and the debit must
// succeed before the blob fetch is attempted. A fetch failure after a
// successful debit is surfaced as an upstream error; the charge is not
// compensated (see the debit-before-fetch note in DESIGN.md).
func (s *Service) Download(ctx context.Context, caller auth.Identity, jobID, userID string) ([]byte, error) {
	j, err := s.authorizedJob(ctx, caller, jobID, userID)
	if err != nil {
		return nil, err
	}

	if !j.OutputAvailable() {
		return nil, fmt.Errorf("%w: audio processing not complete or output not available", apperr.ErrInvalidState)
	}

	status, err := s.billing.AccountStatus(ctx, userID)
	if err != nil {
		s.countDownloadError()
		return nil, err
	}
	if !status.Paid || status.MinutesRemaining <= 0 {
		s.countDownloadError()
		return nil, fmt.Errorf("%w: please purchase minutes to download audio", apperr.ErrPaymentRequired)
	}

	minutes := s.estimate(j)
	if err := s.billing.DebitMinutes(ctx, userID, minutes); err != nil {
		s.countDownloadError()
		if errors.Is(err, billing.ErrInsufficientFunds) {
			return nil, fmt.Errorf("%w: please purchase minutes to download audio", apperr.ErrPaymentRequired)
		}
		return nil, fmt.Errorf("%w: debit failed: %v", apperr.ErrUpstream, err)
	}
	s.log.WithFields(logrus.Fields{"job_id": jobID, "user_id": userID, "minutes": minutes}).
		Info("debited minutes for download")

	data, err := s.blobs.Fetch(ctx, j.OutputAudioPath, userID)
	if err != nil {
		s.countDownloadError()
		return nil, fmt.Errorf("%w: output fetch after debit: %v", apperr.ErrUpstream, err)
	}

	if s.metrics != nil {
		s.metrics.Downloads.Inc()
	}
	return data, nil
}

func (s *Service) countDownloadError() {
	if s.metrics != nil {
		s.metrics.DownloadErrors.Inc()
	}
}

// authorizedJob applies the shared ownership rule: the owner or an
// admin may look, and a job not owned by userID reads as absent.
func (s *Service) authorizedJob(ctx context.Context, caller auth.Identity, jobID, userID string) (*job.Job, error) {
	if caller.SubjectID != userID && !caller.IsAdmin() {
		return nil, fmt.Errorf("%w: you can only access your own jobs", apperr.ErrForbidden)
	}
	j, err := s.store.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if j.UserID != userID {
		// hide existence
		return nil, fmt.Errorf("%w: job %s", apperr.ErrNotFound, jobID)
	}
	return j, nil
}
