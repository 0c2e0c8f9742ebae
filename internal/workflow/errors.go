package workflow

import (
	"errors"
	"fmt"
)

// ErrCaptcha is the retryable failure kind. Every captcha error wraps it.
var ErrCaptcha = errors.New("captcha not accepted")

var (
	ErrCaptchaUnsolved = fmt.Errorf("%w: solver could not read the image", ErrCaptcha)
	ErrCaptchaRejected = fmt.Errorf("%w: server rejected the code", ErrCaptcha)
)

// ErrAttemptsExhausted is returned by Driver.Run when every attempt ended
// with a captcha failure.
var ErrAttemptsExhausted = errors.New("all attempts ended with a captcha failure")
