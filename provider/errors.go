package provider

import (
	"errors"
	"net"
	"net/http"
	"syscall"

	"hackmate/model"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/ollama/ollama/api"
	"github.com/openai/openai-go/v3"
	"google.golang.org/genai"
)

// classify wraps err in a *model.UpstreamError when it signals a transient
// upstream condition. Other errors are returned unchanged.
func classify(provider string, err error) error {
	if err == nil {
		return nil
	}
	status, transient := upstreamStatus(err)
	if !transient {
		return err
	}
	return &model.UpstreamError{Provider: provider, StatusCode: status, Err: err}
}

func upstreamStatus(err error) (int, bool) {
	var oaErr *openai.Error
	if errors.As(err, &oaErr) {
		return oaErr.StatusCode, transientStatus(oaErr.StatusCode)
	}

	var anErr *anthropic.Error
	if errors.As(err, &anErr) {
		return anErr.StatusCode, transientStatus(anErr.StatusCode)
	}

	var olErr api.StatusError
	if errors.As(err, &olErr) {
		return olErr.StatusCode, transientStatus(olErr.StatusCode)
	}

	var gErr genai.APIError
	if errors.As(err, &gErr) {
		return gErr.Code, transientStatus(gErr.Code)
	}
	var gErrPtr *genai.APIError
	if errors.As(err, &gErrPtr) {
		return gErrPtr.Code, transientStatus(gErrPtr.Code)
	}

	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return 0, true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return 0, true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return 0, true
	}

	return 0, false
}

func transientStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}
