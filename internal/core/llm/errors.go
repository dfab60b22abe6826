package llm

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/sashabaranov/go-openai"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	apperrors "github.com/lueurxax/legal-digest/internal/core/errors"
)

// Registry errors.
var (
	ErrNoProvidersAvailable = errors.New("no LLM providers available")
	ErrAllProvidersFailed   = errors.New("all LLM providers failed")
)

// statusOverloaded is Anthropic's non-standard "overloaded" status.
const statusOverloaded = 529

// classifyError tags provider errors that are worth retrying.
// Rate limits become ErrRateLimited and overload becomes ErrServiceUnavailable.
func classifyError(err error) error {
	if err == nil {
		return nil
	}

	switch statusCodeOf(err) {
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w", apperrors.ErrRateLimited, err)
	case http.StatusServiceUnavailable, http.StatusBadGateway, statusOverloaded:
		return fmt.Errorf("%w: %w", apperrors.ErrServiceUnavailable, err)
	default:
		return err
	}
}

// IsTransient reports whether err is a rate limit or temporary outage.
func IsTransient(err error) bool {
	return errors.Is(err, apperrors.ErrRateLimited) || errors.Is(err, apperrors.ErrServiceUnavailable)
}

// IsQuota reports whether err means the service refused for quota reasons
// even after retries.
func IsQuota(err error) bool {
	return errors.Is(err, apperrors.ErrQuotaExhausted) || errors.Is(err, apperrors.ErrRateLimited)
}

func statusCodeOf(err error) int {
	var anthropicErr *anthropic.Error
	if errors.As(err, &anthropicErr) {
		return anthropicErr.StatusCode
	}

	var openaiErr *openai.APIError
	if errors.As(err, &openaiErr) {
		return openaiErr.HTTPStatusCode
	}

	var openaiReqErr *openai.RequestError
	if errors.As(err, &openaiReqErr) {
		return openaiReqErr.HTTPStatusCode
	}

	var googleErr *googleapi.Error
	if errors.As(err, &googleErr) {
		return googleErr.Code
	}

	if st, ok := status.FromError(err); ok {
		switch st.Code() {
		case codes.ResourceExhausted:
			return http.StatusTooManyRequests
		case codes.Unavailable:
			return http.StatusServiceUnavailable
		}
	}

	return statusFromMessage(err.Error())
}

// statusInMessage matches a status code only where the text labels it as one,
// such as "status 429", "status code: 503", "Error 429" or "HTTP/1.1 503".
var statusInMessage = regexp.MustCompile(`(?i)\b(?:status(?:\s+code)?|code|error|http(?:/\d(?:\.\d)?)?)\s*[:=]?\s*(\d{3})\b`)

// statusFromMessage covers transports that only surface the status in text.
func statusFromMessage(msg string) int {
	if m := statusInMessage.FindStringSubmatch(msg); m != nil {
		if code, err := strconv.Atoi(m[1]); err == nil {
			return code
		}
	}

	switch {
	case strings.Contains(msg, codes.ResourceExhausted.String()), strings.Contains(msg, "RESOURCE_EXHAUSTED"):
		return http.StatusTooManyRequests
	case strings.Contains(msg, "UNAVAILABLE"):
		return http.StatusServiceUnavailable
	default:
		return 0
	}
}
