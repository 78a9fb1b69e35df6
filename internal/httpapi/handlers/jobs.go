package handlers

import (
	"encoding/base64"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fluxaudio/fluxaudio/internal/apperr"
	"github.com/fluxaudio/fluxaudio/internal/common"
	"github.com/fluxaudio/fluxaudio/internal/httpapi/middleware"
	"github.com/fluxaudio/fluxaudio/internal/job"
	"github.com/fluxaudio/fluxaudio/internal/orchestrator"
)

type Handler struct {
	Svc *orchestrator.Service
}

func NewHandler(svc *orchestrator.Service) *Handler {
	return &Handler{Svc: svc}
}

type processAudioReq struct {
	Capability    string         `json:"capability" binding:"required"`
	ModelName     string         `json:"model_name" binding:"required"`
	InputAudioB64 string         `json:"input_audio_b64"`
	InputText     string         `json:"input_text"`
	Parameters    map[string]any `json:"parameters"`
}

// ProcessAudio accepts a job. Unknown capabilities are accepted too:
// the job id comes back immediately and the failure shows up on the
// first status poll.
func (h *Handler) ProcessAudio(c *gin.Context) {
	id, ok := middleware.IdentityFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	var req processAudioReq
	if err := c.ShouldBindJSON(&req); err != nil {
		msg := "invalid json"
		if msgs := common.FormatValidationErrors(err); len(msgs) > 0 {
			msg = msgs[0]
		}
		common.Fail(c, http.StatusBadRequest, 10001, msg)
		return
	}

	var inputAudio []byte
	if req.InputAudioB64 != "" {
		decoded, err := base64.StdEncoding.DecodeString(req.InputAudioB64)
		if err != nil {
			common.Fail(c, http.StatusBadRequest, 10002, "invalid input audio encoding")
			return
		}
		inputAudio = decoded
	}

	jobID, err := h.Svc.Submit(c.Request.Context(), id.SubjectID, orchestrator.SubmitRequest{
		Capability: job.Capability(req.Capability),
		ModelName:  req.ModelName,
		InputAudio: inputAudio,
		InputText:  req.InputText,
		Parameters: req.Parameters,
	})
	if err != nil {
		common.Fail(c, apperr.HTTPStatus(err), 50001, err.Error())
		return
	}

	common.OK(c, gin.H{"job_id": jobID, "accepted": true})
}

// JobStatus reads one job. user_id defaults to the caller; admins may
// pass another user's id.
func (h *Handler) JobStatus(c *gin.Context) {
	id, ok := middleware.IdentityFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	jobID := c.Param("job_id")
	userID := c.Query("user_id")
	if userID == "" {
		userID = id.SubjectID
	}

	view, err := h.Svc.Status(c.Request.Context(), id, jobID, userID)
	if err != nil {
		common.Fail(c, apperr.HTTPStatus(err), 40401, err.Error())
		return
	}
	common.OK(c, view)
}

// ListJobs returns every job owned by user_id.
func (h *Handler) ListJobs(c *gin.Context) {
	id, ok := middleware.IdentityFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	userID := c.Query("user_id")
	if userID == "" {
		userID = id.SubjectID
	}

	jobs, err := h.Svc.ListJobs(c.Request.Context(), id, userID)
	if err != nil {
		common.Fail(c, apperr.HTTPStatus(err), 40302, err.Error())
		return
	}
	common.OK(c, gin.H{"jobs": jobs})
}

// DownloadAudio runs the billing gate and returns the output bytes.
func (h *Handler) DownloadAudio(c *gin.Context) {
	id, ok := middleware.IdentityFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	jobID := c.Param("job_id")
	userID := c.Query("user_id")
	if userID == "" {
		userID = id.SubjectID
	}

	data, err := h.Svc.Download(c.Request.Context(), id, jobID, userID)
	if err != nil {
		common.Fail(c, apperr.HTTPStatus(err), 40201, err.Error())
		return
	}

	common.OK(c, gin.H{"audio_b64": base64.StdEncoding.EncodeToString(data)})
}
