package handler

import (
	"time"

	"github.com/yndnr/ledgergate-go/internal/core/domain"
)

// Response is the JSON envelope of every non-metrics response.
type Response struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data,omitempty"`
}

// NewResponse creates a success response.
func NewResponse(requestID string, data any) *Response {
	return &Response{
		Code:      "OK",
		Message:   "Success",
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Data:      data,
	}
}

// NewErrorResponse creates an error response.
func NewErrorResponse(requestID, code, message string) *Response {
	return &Response{
		Code:      code,
		Message:   message,
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
	}
}

// FormResponse is returned by form.pl.
type FormResponse struct {
	FormID string `json:"form_id"`
	Valid  bool   `json:"valid"`
}

// ProcedureResponse is returned by procedure.pl.
type ProcedureResponse struct {
	Procedure string       `json:"procedure"`
	Count     int          `json:"count"`
	Rows      []domain.Row `json:"rows"`
}

// SessionInfo is returned by session.pl?action=info.
type SessionInfo struct {
	SessionID string             `json:"session_id,omitempty"`
	Login     string             `json:"login"`
	Company   string             `json:"company"`
	RunMode   string             `json:"run_mode"`
	Language  string             `json:"language"`
	Roles     []string           `json:"roles"`
	User      *domain.UserConfig `json:"user,omitempty"`
}
