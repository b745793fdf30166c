package handlers

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gemcove/catalog-intake/internal/models"
	"github.com/gemcove/catalog-intake/internal/service/intake"
	"github.com/gemcove/catalog-intake/pkg/logger"
)

type IntakeHandler struct {
	service intake.IntakeManager
	logger  logger.Logger
}

// ErrorResponse 定义错误响应结构
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// TransformRequest 交互式变换请求体
type TransformRequest struct {
	Prompt string `json:"prompt"`
}

func NewIntakeHandler(service intake.IntakeManager, logger logger.Logger) *IntakeHandler {
	return &IntakeHandler{
		service: service,
		logger:  logger,
	}
}

// EnqueueAssets 批量入队
func (h *IntakeHandler) EnqueueAssets(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		h.handleError(c, http.StatusBadRequest, "Invalid form data", err)
		return
	}

	files := form.File["files"]
	if len(files) == 0 {
		h.handleError(c, http.StatusBadRequest, "No files provided", nil)
		return
	}

	assets := make([]intake.Asset, 0, len(files))
	for _, header := range files {
		data, err := readUpload(header)
		if err != nil {
			h.handleError(c, http.StatusBadRequest, "Unreadable file "+header.Filename, err)
			return
		}
		assets = append(assets, intake.Asset{
			Filename: header.Filename,
			Data:     data,
		})
	}

	hints := models.ClassificationHints{
		Supplier:    c.PostForm("supplier"),
		Category:    c.PostForm("category"),
		Subcategory: c.PostForm("subcategory"),
		Device:      c.PostForm("device"),
	}

	items, err := h.service.Enqueue(c.Request.Context(), assets, hints)
	if err != nil {
		h.handleError(c, http.StatusInternalServerError, "Failed to enqueue assets", err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"items": items,
	})
}

// ListItems 队列全量视图
func (h *IntakeHandler) ListItems(c *gin.Context) {
	items, err := h.service.Items(c.Request.Context())
	if err != nil {
		h.handleError(c, http.StatusInternalServerError, "Failed to list queue", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items": items,
	})
}

// GetStatus 队列快照：是否在处理、各状态计数
func (h *IntakeHandler) GetStatus(c *gin.Context) {
	status, err := h.service.Status(c.Request.Context())
	if err != nil {
		h.handleError(c, http.StatusInternalServerError, "Failed to read queue status", err)
		return
	}

	c.JSON(http.StatusOK, status)
}

// RemoveItem 删除单个队列项
func (h *IntakeHandler) RemoveItem(c *gin.Context) {
	id := c.Param("id")

	if err := h.service.Remove(c.Request.Context(), id); err != nil {
		if errors.Is(err, intake.ErrItemInFlight) {
			h.handleError(c, http.StatusConflict, "Item is mid-flight", err)
			return
		}
		h.handleError(c, http.StatusInternalServerError, "Failed to remove item", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"removed": id,
	})
}

// ClearCompleted 清除所有已完成项
func (h *IntakeHandler) ClearCompleted(c *gin.Context) {
	count, err := h.service.ClearCompleted(c.Request.Context())
	if err != nil {
		h.handleError(c, http.StatusInternalServerError, "Failed to clear completed items", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"cleared": count,
	})
}

// CleanupItem 交互式去水印
func (h *IntakeHandler) CleanupItem(c *gin.Context) {
	h.transformItem(c, intake.TransformCleanup)
}

// EnhanceItem 交互式画质增强
func (h *IntakeHandler) EnhanceItem(c *gin.Context) {
	h.transformItem(c, intake.TransformEnhance)
}

func (h *IntakeHandler) transformItem(c *gin.Context, op intake.TransformOp) {
	id := c.Param("id")

	var req TransformRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.handleError(c, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}

	item, err := h.service.Transform(c.Request.Context(), id, op, req.Prompt)
	switch {
	case errors.Is(err, intake.ErrItemNotFound):
		h.handleError(c, http.StatusNotFound, "Item not found", err)
		return
	case errors.Is(err, intake.ErrNotPending):
		h.handleError(c, http.StatusConflict, "Item is not pending", err)
		return
	case err != nil:
		// Interactive failures are recorded on the item; surface both.
		c.JSON(http.StatusBadGateway, gin.H{
			"error": err.Error(),
			"item":  item,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"item": item,
	})
}

// TransformImage 预提交的单图变换：不入队，直接返回变换后的图像
func (h *IntakeHandler) TransformImage(c *gin.Context) {
	header, err := c.FormFile("image")
	if err != nil {
		h.handleError(c, http.StatusBadRequest, "Invalid image upload", err)
		return
	}

	data, err := readUpload(header)
	if err != nil {
		h.handleError(c, http.StatusBadRequest, "Unreadable image", err)
		return
	}

	op := intake.TransformOp(c.DefaultPostForm("op", string(intake.TransformCleanup)))
	prompt := c.PostForm("prompt")

	out, err := h.service.TransformBytes(c.Request.Context(), data, op, prompt)
	if err != nil {
		h.handleError(c, http.StatusBadGateway, "Transform failed", err)
		return
	}

	c.Data(http.StatusOK, out.MimeType, out.Data)
}

// handleError 统一错误处理
func (h *IntakeHandler) handleError(c *gin.Context, status int, message string, err error) {
	h.logger.Error(message,
		logger.String("path", c.Request.URL.Path),
		logger.Error(err),
	)

	response := ErrorResponse{
		Message: message,
	}
	if err != nil {
		response.Error = err.Error()
	}

	c.JSON(status, response)
}

func readUpload(header *multipart.FileHeader) ([]byte, error) {
	file, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(file)
}
