// Package handlers implements the views that are addressed as "@@name"
// below a node's path.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/umeboshi2/kotti-jsonapi/application/ports"
	"github.com/umeboshi2/kotti-jsonapi/application/registry"
	"github.com/umeboshi2/kotti-jsonapi/application/serializer"
	"github.com/umeboshi2/kotti-jsonapi/application/site"
	"github.com/umeboshi2/kotti-jsonapi/domain/content"
	"github.com/umeboshi2/kotti-jsonapi/domain/security"
	"github.com/umeboshi2/kotti-jsonapi/interfaces/http/rest/middleware"
	pkgerrors "github.com/umeboshi2/kotti-jsonapi/pkg/errors"
)

const maxBodyBytes = 10 << 20

// Target is the node path and view name a request was routed to.
type Target struct {
	Path string
	View string
}

// ViewFunc serves one verb of one view.
type ViewFunc func(w http.ResponseWriter, r *http.Request, t Target)

// Env bundles what every view needs.
type Env struct {
	Site       *site.Site
	Registry   *registry.Registry
	Serializer *serializer.Serializer
	Checker    security.Checker
	Messages   ports.MessageStore
	Clipboard  ports.Clipboard
	Principals ports.PrincipalStore
	Errors     *pkgerrors.ErrorHandler
	// BaseURL overrides the URL derived from the request's Host.
	BaseURL string
	Logger  *zap.Logger
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// request describes r to the serializer.
func (e *Env) request(r *http.Request, t Target) *serializer.Request {
	base := e.BaseURL
	if base == "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}
		base = scheme + "://" + r.Host
	}
	return &serializer.Request{
		BaseURL:   strings.TrimSuffix(base, "/"),
		URL:       strings.TrimSuffix(base, "/") + r.URL.RequestURI(),
		ViewName:  t.View,
		SessionID: middleware.SessionID(r.Context()),
	}
}

func (e *Env) authorize(ctx context.Context, permission string, node *content.Node) error {
	if e.Checker.HasPermission(ctx, permission, node) {
		return nil
	}
	if security.PrincipalFrom(ctx) == nil {
		return pkgerrors.NewForbiddenError(fmt.Sprintf("anonymous users lack %s permission", permission))
	}
	return pkgerrors.NewForbiddenError(fmt.Sprintf("%s permission required", permission))
}

type flash struct {
	queue   string
	message string
}

// flashAll stores messages once their transaction has committed.
func (e *Env) flashAll(ctx context.Context, msgs []flash) {
	sid := middleware.SessionID(ctx)
	if e.Messages == nil || sid == "" {
		return
	}
	for _, m := range msgs {
		e.Messages.Flash(ctx, sid, m.queue, m.message)
	}
}

func (e *Env) messages(ctx context.Context) map[string][]string {
	return serializer.Messages(ctx, e.Messages, middleware.SessionID(ctx))
}

// decode reads a JSON body into v and runs struct validation on it.
func decode(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return pkgerrors.NewValidationError("Invalid request body").WithCause(err)
	}
	if err := validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make(map[string]string, len(verrs))
			for _, fe := range verrs {
				// drop the struct type name, keep the json path
				_, name, _ := strings.Cut(fe.Namespace(), ".")
				fields[name] = fe.Tag()
			}
			return pkgerrors.NewFieldValidationError(fields)
		}
		return pkgerrors.NewValidationError(err.Error())
	}
	return nil
}

var callbackName = regexp.MustCompile(`^[A-Za-z_$][0-9A-Za-z_$.]*$`)

// render writes v as JSON with the given media type. A "callback" query
// parameter turns the response into JSONP.
func (e *Env) render(w http.ResponseWriter, r *http.Request, status int, mediaType string, v interface{}) {
	body, err := json.Marshal(v)
	if err != nil {
		e.Errors.Handle(w, r, pkgerrors.NewInternalError("failed to encode response").WithCause(err))
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	if cb := r.URL.Query().Get("callback"); cb != "" && callbackName.MatchString(cb) {
		w.Header().Set("Content-Type", "application/javascript")
		w.WriteHeader(status)
		fmt.Fprintf(w, "/**/%s(%s);", cb, body)
		return
	}
	w.Header().Set("Content-Type", mediaType)
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		e.Logger.Debug("Failed to write response", zap.Error(err))
	}
}
