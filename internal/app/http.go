package app

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/felixgeelhaar/forkadmin/internal/domain/cronjob"
	"github.com/felixgeelhaar/forkadmin/internal/domain/failure"
	"github.com/felixgeelhaar/forkadmin/internal/ports"
)

// Handler is the HTTP front door:
//
//	GET|POST /cronjob?module=<m>&action=<a>   empty body
//	GET|POST /{module}/{action}               JSON body or 302
func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/cronjob", a.serveCronjob)
	mux.HandleFunc("/{module}/{action}", a.serveAction)
	return mux
}

func (a *App) serveCronjob(w http.ResponseWriter, r *http.Request) {
	if !allowed(w, r) {
		return
	}
	params, err := requestValues(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	started := time.Now()
	res, err := a.RunCronjobParams(r.Context(), params)
	if err != nil {
		a.logger.Warn(r.Context(), "cronjob request failed", ports.Err(err), ports.F("path", r.URL.Path))
		w.WriteHeader(failure.HTTPStatus(err))
		return
	}
	if res.Redirect != nil {
		http.Redirect(w, r, res.Redirect.Location(), http.StatusFound)
		return
	}
	a.logger.Debug(r.Context(), "cronjob request served", ports.F("duration", time.Since(started).String()))
	w.WriteHeader(http.StatusOK)
}

func (a *App) serveAction(w http.ResponseWriter, r *http.Request) {
	if !allowed(w, r) {
		return
	}
	query := firstValues(r.URL.Query())
	req := ActionRequest{
		Module:   r.PathValue("module"),
		Action:   r.PathValue("action"),
		Language: query[cronjob.ParamLanguage],
		Params:   query,
	}
	if r.Method == http.MethodPost {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		req.Form = formValues(r.PostForm)
	}

	res, err := a.HandleAction(r.Context(), req)
	if err != nil {
		a.logger.Warn(r.Context(), "action request failed", ports.Err(err), ports.F("path", r.URL.Path))
		writeJSON(w, failure.HTTPStatus(err), errorBody(err))
		return
	}
	if res.Redirect != nil {
		http.Redirect(w, r, res.Redirect.Location(), http.StatusFound)
		return
	}
	writeJSON(w, http.StatusOK, res.Body)
}

func allowed(w http.ResponseWriter, r *http.Request) bool {
	if r.Method == http.MethodGet || r.Method == http.MethodPost {
		return true
	}
	w.Header().Set("Allow", "GET, POST")
	w.WriteHeader(http.StatusMethodNotAllowed)
	return false
}

func requestValues(r *http.Request) (map[string]string, error) {
	if err := r.ParseForm(); err != nil {
		return nil, err
	}
	return firstValues(r.Form), nil
}

// formValues keeps blank fields so a submitted but empty form still
// reaches validation.
func formValues(values map[string][]string) map[string]string {
	out := make(map[string]string, len(values))
	for k, v := range values {
		if len(v) > 0 {
			out[k] = v[0]
		} else {
			out[k] = ""
		}
	}
	return out
}

func firstValues(values map[string][]string) map[string]string {
	out := make(map[string]string, len(values))
	for k, v := range values {
		if len(v) > 0 && v[0] != "" {
			out[k] = v[0]
		}
	}
	return out
}

type errorResponse struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code       string               `json:"code"`
	Message    string               `json:"message"`
	Suggestion string               `json:"suggestion,omitempty"`
	Fields     []failure.FieldError `json:"fields,omitempty"`
}

func errorBody(err error) errorResponse {
	d := errorDetail{Code: failure.CodeOf(err), Message: err.Error()}
	if d.Code == "" {
		d.Code = failure.CodeExecutionFailed
	}
	var fe *failure.Error
	if errors.As(err, &fe) {
		d.Suggestion = fe.Suggestion
		if list, ok := fe.Underlying.(*failure.ErrorList); ok {
			d.Fields = list.Fields()
		}
	}
	return errorResponse{Error: d}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		body = struct{}{}
	}
	_ = json.NewEncoder(w).Encode(body)
}

