package engine

import (
	"encoding/base64"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/fluxaudio/fluxaudio/internal/common"
	"github.com/fluxaudio/fluxaudio/internal/job"
)

type processReq struct {
	InputAudioB64 string         `json:"input_audio_b64"`
	InputText     string         `json:"input_text"`
	ModelName     string         `json:"model_name" binding:"required"`
	Parameters    map[string]any `json:"parameters"`
}

type processResp struct {
	JobID          string `json:"job_id"`
	Status         string `json:"status"`
	OutputAudioB64 string `json:"output_audio_b64,omitempty"`
	OutputText     string `json:"output_text,omitempty"`
	Message        string `json:"message,omitempty"`
}

// Default returns the stock engine set with production-like latencies.
func Default() map[job.Capability]Engine {
	return map[job.Capability]Engine{
		job.CapabilityTTS:          TTS{Latency: 3 * time.Second},
		job.CapabilitySTT:          STT{Latency: 4 * time.Second},
		job.CapabilityNoiseRemoval: NoiseRemoval{Latency: 2 * time.Second},
	}
}

// NewRouter serves every given engine from one process, one route per
// capability.
func NewRouter(log *logrus.Entry, engines map[job.Capability]Engine) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "worker service is healthy"})
	})

	for capability, eng := range engines {
		capability, eng := capability, eng
		r.POST("/"+string(capability), func(c *gin.Context) {
			var req processReq
			if err := c.ShouldBindJSON(&req); err != nil {
				common.Fail(c, http.StatusBadRequest, 10001, "invalid json: "+joinErrors(common.FormatValidationErrors(err)))
				return
			}

			in := Request{
				InputText:  req.InputText,
				ModelName:  req.ModelName,
				Parameters: req.Parameters,
			}
			if req.InputAudioB64 != "" {
				audio, err := base64.StdEncoding.DecodeString(req.InputAudioB64)
				if err != nil {
					common.Fail(c, http.StatusBadRequest, 10002, "invalid input audio encoding")
					return
				}
				in.InputAudio = audio
			}

			log.WithFields(logrus.Fields{"capability": capability, "model": req.ModelName}).
				Info("processing request")

			out, err := eng.Process(c.Request.Context(), in)
			if err != nil {
				if errors.Is(err, ErrTextRequired) || errors.Is(err, ErrAudioRequired) {
					common.Fail(c, http.StatusBadRequest, 10003, err.Error())
					return
				}
				// Application-level failure: report it in the typed result
				// instead of an opaque transport error.
				c.JSON(http.StatusOK, processResp{
					Status:  "failed",
					Message: err.Error(),
				})
				return
			}

			resp := processResp{
				Status:     "completed",
				OutputText: out.OutputText,
				Message:    out.Message,
			}
			if len(out.OutputAudio) > 0 {
				resp.OutputAudioB64 = base64.StdEncoding.EncodeToString(out.OutputAudio)
			}
			c.JSON(http.StatusOK, resp)
		})
	}

	return r
}

func joinErrors(errs []string) string {
	if len(errs) == 0 {
		return "malformed request body"
	}
	out := errs[0]
	for _, e := range errs[1:] {
		out += "; " + e
	}
	return out
}
