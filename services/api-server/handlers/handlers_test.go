package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/freedkr/paycheck/internal/model"
	"github.com/freedkr/paycheck/internal/pipeline"
)

type MockProcessor struct{ mock.Mock }

func (m *MockProcessor) Process(ctx context.Context, req pipeline.Request) (*pipeline.Outcome, error) {
	args := m.Called(ctx, req)
	out, _ := args.Get(0).(*pipeline.Outcome)
	return out, args.Error(1)
}

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(p Processor) *gin.Engine {
	h := NewHandlers(p, time.Minute, "paystub_report.pdf", nil)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("RequestID", "req-test")
		c.Next()
	})
	r.GET("/", h.Health)
	r.POST("/process-paystub", h.ProcessPaystub)
	return r
}

func post(r http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/process-paystub", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func writeReport(t *testing.T) *model.Report {
	t.Helper()
	path := filepath.Join(t.TempDir(), "paystub_report-9.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.3 report"), 0o644))
	return &model.Report{Path: path, Size: 15, Recipient: "worker@example.com"}
}

func TestHealth(t *testing.T) {
	w := httptest.NewRecorder()
	newRouter(new(MockProcessor)).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, HealthMessage, w.Body.String())
}

func TestProcessPaystub_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"missing email", `{"file_url":"s3://stubs/a.pdf"}`, MsgMissingFields},
		{"missing file_url", `{"email":"worker@example.com"}`, MsgMissingFields},
		{"empty object", `{}`, MsgMissingFields},
		{"empty body", ``, MsgMissingFields},
		{"malformed json", `{"file_url":`, MsgInvalidBody},
		{"wrong type", `{"file_url":1,"email":"worker@example.com"}`, MsgInvalidBody},
		{"bad email", `{"file_url":"s3://stubs/a.pdf","email":"nobody"}`, MsgInvalidEmail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := new(MockProcessor)
			w := post(newRouter(p), tt.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, map[string]string{"error": tt.want}, decode(t, w))
			p.AssertNotCalled(t, "Process", mock.Anything, mock.Anything)
		})
	}
}

func TestProcessPaystub_Success(t *testing.T) {
	rpt := writeReport(t)
	p := new(MockProcessor)
	p.On("Process", mock.Anything, pipeline.Request{
		RequestID: "req-test",
		FileURL:   "s3://stubs/a.pdf",
		Email:     "worker@example.com",
	}).Return(&pipeline.Outcome{Report: rpt, Stage: model.StageResponded}, nil)

	w := post(newRouter(p), `{"file_url":"s3://stubs/a.pdf","email":"worker@example.com"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="paystub_report.pdf"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "sent", w.Header().Get(EmailStatusHeader))
	assert.Equal(t, "%PDF-1.3 report", w.Body.String())

	_, err := os.Stat(rpt.Path)
	assert.True(t, os.IsNotExist(err), "report should be removed after the response")
}

func TestProcessPaystub_DeliveryFailedButReturned(t *testing.T) {
	rpt := writeReport(t)
	p := new(MockProcessor)
	p.On("Process", mock.Anything, mock.Anything).Return(&pipeline.Outcome{
		Report:      rpt,
		DeliveryErr: model.NewDeliveryError("send email", errors.New("535")),
		Stage:       model.StageResponded,
	}, nil)

	w := post(newRouter(p), `{"file_url":"s3://stubs/a.pdf","email":"worker@example.com"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "failed", w.Header().Get(EmailStatusHeader))
}

func TestProcessPaystub_InternalFailures(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"delivery", model.NewDeliveryError("send email", errors.New("535 authentication failed")), "Report generated but email failed"},
		{"fetch", model.NewFetchError("https", "unexpected status 404", nil), "Failed to fetch pay stub"},
		{"decode", model.NewDocumentDecodeError("document has no pages", nil), "Failed to decode pay stub"},
		{"render", model.NewRenderError("report is 12 bytes, below minimum 500", nil), "Failed to generate report"},
		{"timeout", model.NewTimeoutError("ocr", "recognize", context.DeadlineExceeded), "Processing timed out"},
		{"unknown", errors.New("boom"), "Internal Server Error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := new(MockProcessor)
			stageErr := &model.StageError{Stage: model.StageNotified, Err: tt.err}
			p.On("Process", mock.Anything, mock.Anything).Return(nil, stageErr)

			w := post(newRouter(p), `{"file_url":"s3://stubs/a.pdf","email":"worker@example.com"}`)

			assert.Equal(t, http.StatusInternalServerError, w.Code)
			assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))
			body := decode(t, w)
			assert.Equal(t, tt.want, body["error"])
			assert.Equal(t, stageErr.Error(), body["details"])
		})
	}
}

func TestProcessPaystub_PipelineValidationError(t *testing.T) {
	p := new(MockProcessor)
	p.On("Process", mock.Anything, mock.Anything).
		Return(nil, &model.StageError{Stage: model.StageValidated, Err: model.NewValidationError(MsgMissingFields, "email")})

	w := post(newRouter(p), `{"file_url":"s3://stubs/a.pdf","email":"worker@example.com"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, MsgMissingFields, decode(t, w)["error"])
}

func TestProcessPaystub_AppliesTimeout(t *testing.T) {
	p := new(MockProcessor)
	p.On("Process", mock.MatchedBy(func(ctx context.Context) bool {
		_, ok := ctx.Deadline()
		return ok
	}), mock.Anything).Return(nil, errors.New("stop"))

	post(newRouter(p), `{"file_url":"s3://stubs/a.pdf","email":"worker@example.com"}`)
	p.AssertExpectations(t)
}
