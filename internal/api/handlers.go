package api

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/medication-net-benefit/internal/cache"
	"github.com/medication-net-benefit/internal/domain"
	"github.com/medication-net-benefit/internal/middleware"
	"github.com/medication-net-benefit/internal/service"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// maxImportBytes caps feedback import documents.
const maxImportBytes = 32 << 20

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error         string `json:"error"`
	Code          string `json:"code"`
	Field         string `json:"field,omitempty"`
	Details       string `json:"details,omitempty"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

func (s *Server) handleHealth(c *gin.Context) {
	body := gin.H{
		"status":          "healthy",
		"timestamp":       time.Now().UTC(),
		"version":         Version,
		"uptime":          time.Since(s.started).Round(time.Second).String(),
		"catalog_version": s.deps.Evaluation.CatalogVersion(),
		"tables_version":  s.deps.Evaluation.TablesVersion(),
		"feedback":        s.deps.Feedback.Enabled(),
	}
	if tiered, ok := s.deps.Cache.(*cache.Tiered); ok {
		body["cache"] = gin.H{
			"redis": tiered.HasRedis(),
			"stats": tiered.Stats(),
		}
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) handleListMedications(c *gin.Context) {
	medications := s.deps.Evaluation.Medications()
	c.JSON(http.StatusOK, gin.H{
		"catalog_version": s.deps.Evaluation.CatalogVersion(),
		"count":           len(medications),
		"medications":     medications,
	})
}

func (s *Server) handleGetMedication(c *gin.Context) {
	med, err := s.deps.Evaluation.Medication(c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, med)
}

func (s *Server) handleRisks(c *gin.Context) {
	var patient domain.PatientAttributes
	if err := bindJSON(c, &patient); err != nil {
		s.respondError(c, err)
		return
	}

	result, err := s.deps.Evaluation.CalculateRisks(c.Request.Context(), patient)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleEvaluate(c *gin.Context) {
	var params service.EvaluateParams
	if err := bindJSON(c, &params); err != nil {
		s.respondError(c, err)
		return
	}

	result, err := s.deps.Evaluation.Evaluate(c.Request.Context(), &params)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleRecordFeedback(c *gin.Context) {
	var params service.FeedbackParams
	if err := bindJSON(c, &params); err != nil {
		s.respondError(c, err)
		return
	}

	fb, err := s.deps.Feedback.Record(c.Request.Context(), &params)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, fb)
}

func (s *Server) handleListFeedback(c *gin.Context) {
	limit, err := queryInt(c, "limit")
	if err != nil {
		s.respondError(c, err)
		return
	}
	offset, err := queryInt(c, "offset")
	if err != nil {
		s.respondError(c, err)
		return
	}

	page, err := s.deps.Feedback.List(c.Request.Context(), limit, offset)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (s *Server) handleGetFeedback(c *gin.Context) {
	fb, err := s.deps.Feedback.Get(c.Request.Context(), c.Param("evaluation_id"), c.Param("medication_id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, fb)
}

func (s *Server) handleExportFeedback(c *gin.Context) {
	var buf bytes.Buffer
	if _, err := s.deps.Feedback.Export(c.Request.Context(), &buf); err != nil {
		s.respondError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="feedback_export.json"`)
	c.Data(http.StatusOK, "application/json", buf.Bytes())
}

func (s *Server) handleImportFeedback(c *gin.Context) {
	body := http.MaxBytesReader(c.Writer, c.Request.Body, maxImportBytes)
	imported, skipped, err := s.deps.Feedback.Import(c.Request.Context(), body)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"imported": imported, "skipped": skipped})
}

// bindJSON binds the body with gin's JSON binding, which rejects unknown
// fields (see init) so a misspelled patient attribute is not silently absent.
func bindJSON(c *gin.Context, dst any) error {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)
	if err := c.ShouldBindJSON(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return domain.NewValidationError("body", "request body is required", nil)
		}
		return domain.NewEngineError(domain.CodeInvalidInput, "malformed JSON body", err.Error(), domain.ErrInvalidInput)
	}
	return nil
}

func queryInt(c *gin.Context, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.NewValidationError(name, "must be an integer", raw)
	}
	return n, nil
}

// statusFor maps an error code to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled):
		return 499
	}
	switch domain.ErrorCode(err) {
	case domain.CodeValidation, domain.CodeInvalidInput:
		return http.StatusBadRequest
	case domain.CodeUnknownMedication, domain.CodeNotFound:
		return http.StatusNotFound
	case domain.CodeFeedbackDisabled:
		return http.StatusServiceUnavailable
	case domain.CodeRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondError(c *gin.Context, err error) {
	status := statusFor(err)
	resp := ErrorResponse{
		Error:         err.Error(),
		Code:          domain.ErrorCode(err),
		CorrelationID: c.GetString(middleware.CorrelationIDKey),
	}

	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		resp.Error = validationErr.Message
		resp.Field = validationErr.Field
	}
	var engineErr *domain.EngineError
	if errors.As(err, &engineErr) {
		resp.Error = engineErr.Message
		resp.Details = engineErr.Details
	}

	fields := logrus.Fields{
		"status":         status,
		"code":           resp.Code,
		"path":           c.Request.URL.Path,
		"correlation_id": resp.CorrelationID,
	}
	if status >= http.StatusInternalServerError {
		// Internal details stay in the log
		s.logger.WithFields(fields).WithError(err).Error("Request failed")
		if status == http.StatusInternalServerError {
			resp.Error = "internal server error"
			resp.Details = ""
		}
	} else {
		s.logger.WithFields(fields).WithError(err).Debug("Request rejected")
	}

	c.AbortWithStatusJSON(status, resp)
}
