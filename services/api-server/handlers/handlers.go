package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/freedkr/paycheck/internal/model"
	"github.com/freedkr/paycheck/internal/pipeline"
)

const (
	HealthMessage     = "Pay stub compliance service is running"
	EmailStatusHeader = "X-Email-Status"
)

// 400错误文案
const (
	MsgMissingFields = "Missing required fields"
	MsgInvalidBody   = "Invalid request body"
	MsgInvalidEmail  = "Invalid email address"
)

// 500错误摘要，按错误代码区分
var errorSummaries = map[model.ErrorCode]string{
	model.ErrCodeFetch:          "Failed to fetch pay stub",
	model.ErrCodeDocumentDecode: "Failed to decode pay stub",
	model.ErrCodeRecognition:    "Failed to decode pay stub",
	model.ErrCodeRender:         "Failed to generate report",
	model.ErrCodeDelivery:       "Report generated but email failed",
	model.ErrCodeTimeout:        "Processing timed out",
}

const msgInternal = "Internal Server Error"

// Processor 处理工资单请求
type Processor interface {
	Process(ctx context.Context, req pipeline.Request) (*pipeline.Outcome, error)
}

// Handlers API处理器
type Handlers struct {
	processor Processor
	timeout   time.Duration
	fileName  string
	logger    *slog.Logger
}

// NewHandlers 创建处理器，timeout为单个请求的处理上限
func NewHandlers(processor Processor, timeout time.Duration, fileName string, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		processor: processor,
		timeout:   timeout,
		fileName:  fileName,
		logger:    logger,
	}
}

// ProcessRequest 处理请求体
type ProcessRequest struct {
	FileURL string `json:"file_url" binding:"required"`
	Email   string `json:"email" binding:"required,email"`
}

// Health 存活检查
func (h *Handlers) Health(c *gin.Context) {
	c.String(http.StatusOK, HealthMessage)
}

// ProcessPaystub 处理工资单并返回合规报告PDF
func (h *Handlers) ProcessPaystub(c *gin.Context) {
	var req ProcessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindingMessage(err)})
		return
	}

	ctx := c.Request.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	requestID := c.GetString("RequestID")
	out, err := h.processor.Process(ctx, pipeline.Request{
		RequestID: requestID,
		FileURL:   req.FileURL,
		Email:     req.Email,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	defer func() {
		if err := out.Report.Cleanup(); err != nil {
			h.logger.Warn("清理报告文件失败", "request_id", requestID, "error", err)
		}
	}()

	data, err := out.Report.Bytes()
	if err != nil {
		h.writeError(c, model.NewRenderError("read report", err))
		return
	}

	if out.DeliveryErr != nil {
		c.Header(EmailStatusHeader, "failed")
	} else {
		c.Header(EmailStatusHeader, "sent")
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", h.fileName))
	c.Data(http.StatusOK, "application/pdf", data)
}

func (h *Handlers) writeError(c *gin.Context, err error) {
	var ve *model.ValidationError
	if errors.As(err, &ve) {
		c.JSON(http.StatusBadRequest, gin.H{"error": ve.Message})
		return
	}

	summary, ok := errorSummaries[model.CodeOf(err)]
	if !ok {
		summary = msgInternal
	}
	h.logger.Error("请求处理失败", "request_id", c.GetString("RequestID"), "summary", summary, "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":   summary,
		"details": err.Error(),
	})
}

// bindingMessage 将绑定错误映射为固定文案
func bindingMessage(err error) string {
	// 空请求体等同于两个字段都缺失
	if errors.Is(err, io.EOF) {
		return MsgMissingFields
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return MsgInvalidBody
	}
	for _, fe := range verrs {
		if fe.Tag() == "required" {
			return MsgMissingFields
		}
	}
	return MsgInvalidEmail
}
