package errs

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// 错误码分段：1xxx 握手/鉴权，2xxx 消息帧，3xxx 存储
const (
	CodeInvalidToken           = 1001
	CodeMalformedFrame         = 2001
	CodeUnauthorizedSend       = 2002
	CodePersistenceUnavailable = 3001
)

// Failure taxonomy of the relay. None of these is fatal to the process;
// each one is scoped to a single connection or a single message.
var (
	ErrInvalidToken           = NewCodeError(CodeInvalidToken, "invalid token")
	ErrMalformedFrame         = NewCodeError(CodeMalformedFrame, "malformed frame")
	ErrUnauthorizedSend       = NewCodeError(CodeUnauthorizedSend, "unauthorized send")
	ErrPersistenceUnavailable = NewCodeError(CodePersistenceUnavailable, "persistence unavailable")
)

type CodeError struct {
	Code   int    `json:"code"`
	Msg    string `json:"msg"`
	Detail string `json:"detail,omitempty"`
}

func NewCodeError(code int, msg string) *CodeError {
	return &CodeError{Code: code, Msg: msg}
}

func (e *CodeError) Error() string {
	v := make([]string, 0, 3)
	v = append(v, strconv.Itoa(e.Code), e.Msg)
	if e.Detail != "" {
		v = append(v, e.Detail)
	}
	return strings.Join(v, " ")
}

// WithDetail 返回副本，不修改原错误
func (e *CodeError) WithDetail(detail string) *CodeError {
	d := detail
	if e.Detail != "" {
		d = e.Detail + ", " + detail
	}
	return &CodeError{Code: e.Code, Msg: e.Msg, Detail: d}
}

func (e *CodeError) Is(err error) bool {
	var codeErr *CodeError
	if !errors.As(err, &codeErr) {
		return false
	}
	return codeErr.Code == e.Code
}

func New(msg string) error {
	return errors.New(msg)
}

func Wrap(err error) error {
	return errors.WithStack(err)
}

func WrapMsg(err error, msg string) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(err, msg)
}
