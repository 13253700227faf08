package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/questx-lab/authserver/pkg/errorx"
	"github.com/questx-lab/authserver/pkg/xcontext"
)

const maxBodySize = 1 << 20

// Middleware runs before the handler. It may return a derived context or an
// error which aborts the request.
type Middleware func(ctx context.Context, r *http.Request) (context.Context, error)

type Endpoint[Request, Response any] struct {
	Method string
	Path   string
	Before []Middleware
	Handle func(context.Context, *Request) (*Response, error)

	// Bind copies request values the body and the query do not carry, for
	// example a path segment.
	Bind func(r *http.Request, req *Request)
}

func (e *Endpoint[Request, Response]) Register(router *Router) {
	router.mux.HandleFunc(e.Path, func(w http.ResponseWriter, r *http.Request) {
		ctx := router.inject(r.Context())
		start := time.Now()

		err := func() error {
			if r.Method != e.Method {
				return errorx.New(errorx.BadRequest, "Method %s is not allowed", r.Method)
			}

			var err error
			for _, before := range e.Before {
				if ctx, err = before(ctx, r); err != nil {
					return err
				}
			}

			var req Request
			if err := e.readRequest(r, &req); err != nil {
				xcontext.Logger(ctx).Debugf("Cannot read request of %s: %v", e.Path, err)
				return errorx.New(errorx.BadRequest, "Invalid request")
			}

			if e.Bind != nil {
				e.Bind(r, &req)
			}

			resp, err := e.Handle(ctx, &req)
			if err != nil {
				return err
			}

			writeResponse(ctx, w, http.StatusOK, newResponse(resp))
			return nil
		}()

		logRequest(ctx, r, err)
		observeRequest(e.Path, start, err)
		if err != nil {
			writeError(ctx, w, err)
		}
	})
}

func (e *Endpoint[Request, Response]) readRequest(r *http.Request, req *Request) error {
	switch e.Method {
	case http.MethodGet, http.MethodDelete:
		query := map[string]any{}
		for k, v := range r.URL.Query() {
			if len(v) > 0 {
				query[k] = v[0]
			}
		}

		decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			TagName:          "json",
			WeaklyTypedInput: true,
			Result:           req,
		})
		if err != nil {
			return err
		}

		return decoder.Decode(query)

	default:
		b, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
		if err != nil {
			return err
		}

		if len(b) == 0 {
			return nil
		}

		return json.Unmarshal(b, req)
	}
}

type response struct {
	Code  int64  `json:"code"`
	Error string `json:"error,omitempty"`
	Data  any    `json:"data,omitempty"`
}

func newResponse(data any) response {
	return response{Code: 0, Data: data}
}

func newErrorResponse(err error) (int, response) {
	errx := errorx.Error{}
	if errors.As(err, &errx) {
		return statusOf(errx.Code), response{Code: int64(errx.Code), Error: errx.Message}
	}

	return http.StatusInternalServerError, response{
		Code:  int64(errorx.Unknown.Code),
		Error: errorx.Unknown.Message,
	}
}

func statusOf(code errorx.Code) int {
	switch code {
	case errorx.Unauthenticated:
		return http.StatusUnauthorized
	case errorx.FailedPrecondition:
		return http.StatusPreconditionFailed
	case errorx.AlreadyExists:
		return http.StatusConflict
	case errorx.BadRequest:
		return http.StatusBadRequest
	case errorx.NotFound:
		return http.StatusNotFound
	case errorx.PermissionDenied:
		return http.StatusForbidden
	case errorx.Unavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	status, resp := newErrorResponse(err)
	writeResponse(ctx, w, status, resp)
}

func writeResponse(ctx context.Context, w http.ResponseWriter, status int, resp response) {
	b, err := json.Marshal(resp)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot marshal the response: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(b); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot write the response: %v", err)
	}
}
