package storage

import (
	"encoding/base64"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/fluxaudio/fluxaudio/internal/apperr"
	"github.com/fluxaudio/fluxaudio/internal/common"
)

type uploadReq struct {
	UserID   string `json:"user_id" binding:"required"`
	AudioB64 string `json:"audio_b64" binding:"required"`
	FileName string `json:"file_name"`
}

// NewRouter exposes the blob store over HTTP for the other services.
func NewRouter(fs *FSStore, log *logrus.Entry) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "storage service is healthy"})
	})

	r.POST("/upload", func(c *gin.Context) {
		var req uploadReq
		if err := c.ShouldBindJSON(&req); err != nil {
			common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
			return
		}
		data, err := base64.StdEncoding.DecodeString(req.AudioB64)
		if err != nil {
			common.Fail(c, http.StatusBadRequest, 10002, "invalid audio encoding")
			return
		}

		path, err := fs.Store(req.UserID, data, req.FileName)
		if err != nil {
			if errors.Is(err, apperr.ErrInvalidArgument) {
				common.Fail(c, http.StatusBadRequest, 10003, "invalid file path")
				return
			}
			log.WithError(err).Error("upload failed")
			common.Fail(c, http.StatusInternalServerError, 50001, "failed to store audio")
			return
		}

		log.WithFields(logrus.Fields{"user_id": req.UserID, "path": path}).Info("stored blob")
		common.OK(c, gin.H{"file_path": path})
	})

	r.GET("/download", func(c *gin.Context) {
		path := c.Query("file_path")
		if path == "" {
			common.Fail(c, http.StatusBadRequest, 10004, "file_path required")
			return
		}

		data, err := fs.Fetch(path)
		if err != nil {
			switch {
			case errors.Is(err, apperr.ErrInvalidArgument):
				common.Fail(c, http.StatusBadRequest, 10003, "invalid file path")
			case errors.Is(err, apperr.ErrNotFound):
				common.Fail(c, http.StatusNotFound, 40401, "file not found")
			default:
				log.WithError(err).Error("download failed")
				common.Fail(c, http.StatusInternalServerError, 50002, "failed to read file")
			}
			return
		}

		common.OK(c, gin.H{"audio_b64": base64.StdEncoding.EncodeToString(data)})
	})

	r.DELETE("/delete", func(c *gin.Context) {
		path := c.Query("file_path")
		if path == "" {
			common.Fail(c, http.StatusBadRequest, 10004, "file_path required")
			return
		}

		if err := fs.Delete(path); err != nil {
			switch {
			case errors.Is(err, apperr.ErrInvalidArgument):
				common.Fail(c, http.StatusBadRequest, 10003, "invalid file path")
			case errors.Is(err, apperr.ErrNotFound):
				common.Fail(c, http.StatusNotFound, 40401, "file not found")
			default:
				log.WithError(err).Error("delete failed")
				common.Fail(c, http.StatusInternalServerError, 50003, "failed to delete file")
			}
			return
		}

		common.OK(c, gin.H{"deleted": path})
	})

	return r
}
