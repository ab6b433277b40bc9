package http

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"social-hub/domain/dto"
	"social-hub/domain/model"
	"social-hub/usecase"
)

type IPublishHandler interface {
	Publish(c *gin.Context)
	GetPublish(c *gin.Context)
	GetStatus(c *gin.Context)
	Platforms(c *gin.Context)
}

type PublishHandler struct {
	publishUsecase usecase.IPublishUsecase
}

func NewPublishHandler(publishUsecase usecase.IPublishUsecase) IPublishHandler {
	return &PublishHandler{publishUsecase: publishUsecase}
}

// Publish accepts JSON or multipart. Multipart carries the same fields as
// form values (platforms and schedule_time JSON-encoded) plus file parts
// named "files".
func (h *PublishHandler) Publish(c *gin.Context) {
	var req dto.PublishRequest

	contentType := c.ContentType()
	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := h.bindMultipart(c, &req); err != nil {
			respondError(c, err)
			return
		}
	} else {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, &model.ValidationError{Reason: err.Error()})
			return
		}
	}

	record, err := h.publishUsecase.Publish(c.Request.Context(), userID(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, record)
}

func (h *PublishHandler) bindMultipart(c *gin.Context, req *dto.PublishRequest) error {
	form, err := c.MultipartForm()
	if err != nil {
		return &model.ValidationError{Reason: err.Error()}
	}

	req.Content = c.PostForm("content")
	req.MediaURLs = form.Value["media_urls"]
	req.Files = form.File["files"]

	if raw := c.PostForm("platforms"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &req.Platforms); err != nil {
			return &model.ValidationError{Reason: "platforms must be a JSON array of targets"}
		}
	}
	if raw := c.PostForm("schedule_time"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return &model.ValidationError{Reason: "schedule_time must be RFC3339"}
		}
		req.ScheduleTime = &t
	}
	return nil
}

func (h *PublishHandler) GetPublish(c *gin.Context) {
	record, err := h.publishUsecase.GetPublish(c.Request.Context(), c.Param("publishId"), userID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, record)
}

func (h *PublishHandler) GetStatus(c *gin.Context) {
	status, err := h.publishUsecase.GetPublishStatus(c.Request.Context(), c.Param("publishId"), userID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, status)
}

func (h *PublishHandler) Platforms(c *gin.Context) {
	respondOK(c, h.publishUsecase.Capabilities())
}
