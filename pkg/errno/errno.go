package errno

import "errors"

// Errno defines the error code logic
type Errno struct {
	Code    int
	Message string
}

func (e Errno) Error() string {
	return e.Message
}

// Decode tries to convert an error to Errno.
// 错误通常以 fmt.Errorf("%w: ...") 包裹具体上下文，
// 这里取链上最近的 Errno 定码，消息保留完整上下文。
func Decode(err error) (int, string) {
	if err == nil {
		return OK.Code, OK.Message
	}

	var e Errno
	if errors.As(err, &e) {
		return e.Code, err.Error()
	}
	return InternalServerError.Code, err.Error()
}

// Common Errors
var (
	OK                  = Errno{Code: 0, Message: "Success"}
	InternalServerError = Errno{Code: 10001, Message: "Internal server error"}
	ErrBind             = Errno{Code: 10002, Message: "Error occurred while binding the request body to the struct"}
	ErrInvalidArgument  = Errno{Code: 10003, Message: "Invalid argument"}
)

// Tracer Errors (20000+)
var (
	ErrConfig           = Errno{Code: 20101, Message: "Invalid trace config"}
	ErrMethodResolution = Errno{Code: 20102, Message: "Read method not resolvable from signature"}
	ErrTransientRead    = Errno{Code: 20201, Message: "State read failed"}
	ErrSubscription     = Errno{Code: 20301, Message: "Log subscription failed"}
	ErrCallback         = Errno{Code: 20302, Message: "Caller-supplied callback failed"}
	ErrLockHeld         = Errno{Code: 20401, Message: "Watch lock held by another instance"}
)
