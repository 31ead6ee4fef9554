package response

import (
	stdErrors "errors"
	"net/http"
	"runtime"

	"iam/domain/shared"
	"iam/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var httpStatusMap = map[shared.Kind]int{
	shared.KindNotFound:      http.StatusNotFound,
	shared.KindValidation:    http.StatusBadRequest,
	shared.KindStateConflict: http.StatusUnprocessableEntity,
	shared.KindBusinessRule:  http.StatusConflict,
	shared.KindConcurrency:   http.StatusConflict,
	shared.KindForbidden:     http.StatusForbidden,
}

var errorCodes = map[shared.Kind]string{
	shared.KindNotFound:      "NOT_FOUND",
	shared.KindValidation:    "VALIDATION_FAILED",
	shared.KindStateConflict: "INVALID_STATE",
	shared.KindBusinessRule:  "BUSINESS_RULE_VIOLATION",
	shared.KindConcurrency:   "CONCURRENT_MODIFICATION",
	shared.KindForbidden:     "FORBIDDEN",
}

// StatusFor maps an error kind to an HTTP status; unknown errors are 500.
func StatusFor(err error) int {
	if status, ok := httpStatusMap[shared.KindOf(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func codeFor(err error) string {
	if code, ok := errorCodes[shared.KindOf(err)]; ok {
		return code
	}
	return "INTERNAL_ERROR"
}

func getRequestID(c *gin.Context) string {
	if requestID, exists := c.Get(RequestIDKey); exists {
		if id, ok := requestID.(string); ok {
			return id
		}
	}
	return ""
}

func GetRequestID(c *gin.Context) string {
	return getRequestID(c)
}

func captureStack(skip int) []string {
	var pcs [16]uintptr
	n := runtime.Callers(skip, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])

	stack := make([]string, 0, 5)
	for i := 0; i < 5; i++ {
		frame, more := frames.Next()
		if frame.Function != "" {
			stack = append(stack, frame.Function)
		}
		if !more {
			break
		}
	}
	return stack
}

// HandleError 处理参数绑定等框架层错误。
func HandleError(c *gin.Context, err error, message string, code int) {
	requestID := getRequestID(c)

	logger.Error(message,
		zap.String("request_id", requestID),
		zap.String("path", c.Request.URL.Path),
		zap.String("method", c.Request.Method),
		zap.Int("status", code),
		zap.Error(err))

	c.JSON(code, &Response{
		Success:   false,
		Error:     "BAD_REQUEST",
		Message:   message,
		Code:      code,
		RequestID: requestID,
	})
}

// HandleAppError 按错误类别映射 HTTP 状态码；内部错误不向客户端暴露消息。
func HandleAppError(c *gin.Context, err error) {
	requestID := getRequestID(c)
	httpStatus := StatusFor(err)
	code := codeFor(err)

	logger.Error(err.Error(),
		zap.String("request_id", requestID),
		zap.String("path", c.Request.URL.Path),
		zap.String("method", c.Request.Method),
		zap.String("error_code", code),
		zap.Int("http_status", httpStatus),
		zap.Strings("stack", extractStack(err)),
		zap.Error(err),
	)

	message := err.Error()
	var de *shared.DomainError
	if stdErrors.As(err, &de) && de.Message != "" {
		message = de.Message
	}
	if httpStatus == http.StatusInternalServerError {
		message = "internal server error"
	}

	c.JSON(httpStatus, &Response{
		Success:   false,
		Error:     code,
		Message:   message,
		Code:      httpStatus,
		RequestID: requestID,
	})
}

func extractStack(err error) []string {
	var stacker shared.Stacker
	if stdErrors.As(err, &stacker) {
		if stack := stacker.Stack(); len(stack) > 0 {
			return stack
		}
	}
	return captureStack(4)
}
