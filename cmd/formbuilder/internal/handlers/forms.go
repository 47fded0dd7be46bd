// Package handlers provides the HTTP handlers that render table forms and
// accept their submissions. Routes follow the {table}:{action} pattern.
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/thalib/formbuilder/cmd/formbuilder/internal/constants"
	apperrors "github.com/thalib/formbuilder/cmd/formbuilder/internal/errors"
	"github.com/thalib/formbuilder/cmd/formbuilder/internal/formbuilder"
	"github.com/thalib/formbuilder/cmd/formbuilder/internal/logging"
	"github.com/thalib/formbuilder/cmd/formbuilder/internal/middleware"
	"github.com/thalib/formbuilder/cmd/formbuilder/internal/record"
	"github.com/thalib/formbuilder/cmd/formbuilder/internal/registry"
)

// Valid table name pattern: alphanumeric and underscores only
var tableNameRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// FormsHandler renders and processes table forms
type FormsHandler struct {
	store   *record.Store
	options formbuilder.Options
	hooks   formbuilder.Hooks
	errors  *apperrors.ErrorHandler
	logger  *logging.Logger
}

// NewFormsHandler creates a new forms handler
func NewFormsHandler(store *record.Store, opts formbuilder.Options, errHandler *apperrors.ErrorHandler) *FormsHandler {
	if errHandler == nil {
		errHandler = apperrors.NewErrorHandler(apperrors.ErrorHandlerConfig{})
	}
	return &FormsHandler{
		store:   store,
		options: opts,
		errors:  errHandler,
		logger:  logging.GetLogger().WithComponent("handlers"),
	}
}

// SetHooks installs the callbacks every builder of this handler runs with
func (h *FormsHandler) SetHooks(hooks formbuilder.Hooks) {
	h.hooks = hooks
}

// ListTablesResponse represents the response for listing tables
type ListTablesResponse struct {
	Tables []string `json:"tables"`
	Count  int      `json:"count"`
}

// SubmitResponse represents the result of a processed submission
type SubmitResponse struct {
	Written          bool              `json:"written"`
	ID               any               `json:"id,omitempty"`
	ValidationErrors map[string]string `json:"validation_errors,omitempty"`
}

// ListTables handles GET /tables:list
func (h *FormsHandler) ListTables(w http.ResponseWriter, r *http.Request) {
	tables, err := h.store.Tables(r.Context())
	if err != nil {
		h.errors.WriteErrorFromError(w, r, err)
		return
	}
	if tables == nil {
		tables = []string{}
	}

	writeJSON(w, http.StatusOK, ListTablesResponse{Tables: tables, Count: len(tables)})
}

// Form handles GET /{table}:form. The id query parameter selects the row to
// edit; without it the form creates a new row. The format parameter picks
// the toolkit the form is rendered with.
func (h *FormsHandler) Form(w http.ResponseWriter, r *http.Request, table string) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = constants.DefaultFormatName
	}
	contentType, ok := constants.RenderFormats[format]
	if !ok {
		h.errors.WriteError(w, r, apperrors.NewAPIError(http.StatusBadRequest, apperrors.CodeInvalidFormat,
			fmt.Sprintf("unsupported format %q", format)))
		return
	}

	ctx := r.Context()
	rec, err := h.loadRecord(ctx, table, r.URL.Query().Get("id"))
	if err != nil {
		h.errors.WriteErrorFromError(w, r, err)
		return
	}

	opts := h.options
	opts.Toolkit = format
	b, err := formbuilder.New(rec, h.store, opts, h.hooks)
	if err != nil {
		h.errors.WriteErrorFromError(w, r, err)
		return
	}

	form, err := b.GetForm(ctx)
	if err != nil {
		h.errors.WriteErrorFromError(w, r, err)
		return
	}
	h.logWarnings(ctx, b)

	var buf bytes.Buffer
	if err := form.Render(&buf); err != nil {
		h.errors.WriteErrorFromError(w, r, err)
		return
	}

	w.Header().Set(constants.HeaderContentType, contentType)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// Submit handles POST /{table}:submit. The submitted values are checked
// against the rules of the generated form before they are processed.
func (h *FormsHandler) Submit(w http.ResponseWriter, r *http.Request, table string) {
	ctx := r.Context()

	values, cleanup, err := parseSubmission(r)
	if err != nil {
		h.errors.WriteError(w, r, apperrors.NewBadRequestError("Invalid form submission").Wrap(err))
		return
	}
	defer cleanup()

	log := h.submissionLogger(ctx, table)
	log.WithField("values", log.MaskValues(values)).Debug("form submission received")

	id := r.URL.Query().Get("id")
	rec, err := h.loadRecord(ctx, table, id)
	if err != nil {
		h.errors.WriteErrorFromError(w, r, err)
		return
	}
	if id == "" {
		if pk := rec.Schema().PrimaryKey(); pk != "" {
			if v, ok := values[pk].(string); ok && v != "" {
				if rec, err = h.loadRecord(ctx, table, v); err != nil {
					h.errors.WriteErrorFromError(w, r, err)
					return
				}
			}
		}
	}

	generator, err := formbuilder.New(rec, h.store, h.options, h.hooks)
	if err != nil {
		h.errors.WriteErrorFromError(w, r, err)
		return
	}
	form, err := generator.GetForm(ctx)
	if err != nil {
		h.errors.WriteErrorFromError(w, r, err)
		return
	}
	if errs := form.Validate(values); len(errs) > 0 {
		h.errors.WriteError(w, r, apperrors.NewValidationError("Form validation failed", errs))
		return
	}

	processor, err := formbuilder.New(rec, h.store, h.options, h.hooks)
	if err != nil {
		h.errors.WriteErrorFromError(w, r, err)
		return
	}
	written, err := processor.Process(ctx, values)
	if err != nil {
		h.errors.WriteErrorFromError(w, r, err)
		return
	}
	h.logWarnings(ctx, processor)

	if errs := processor.ValidationErrors(); len(errs) > 0 {
		h.errors.WriteError(w, r, apperrors.NewValidationError("Record validation failed", errs))
		return
	}

	resp := SubmitResponse{Written: written}
	if pk := rec.Schema().PrimaryKey(); pk != "" {
		resp.ID = rec.Get(pk)
	}

	log.WithField("written", written).Info("form submitted")

	writeJSON(w, http.StatusOK, resp)
}

// submissionLogger tags log lines with the table and the authenticated user
func (h *FormsHandler) submissionLogger(ctx context.Context, table string) *logging.Logger {
	log := h.logger.WithContext(ctx).WithField("table", table)
	if claims, ok := middleware.GetUserClaims(ctx); ok {
		log = log.WithField("user_id", claims.UserID)
	}
	return log
}

// loadRecord returns the row of table keyed by id, or a new row when id is empty
func (h *FormsHandler) loadRecord(ctx context.Context, table, id string) (record.Record, error) {
	if !tableNameRegex.MatchString(table) {
		return nil, apperrors.NewBadRequestError(fmt.Sprintf("invalid table name %q", table))
	}

	if id == "" {
		return h.store.New(ctx, table)
	}

	schema, err := h.store.Table(ctx, table)
	if err != nil {
		return nil, err
	}
	row, err := h.store.Get(ctx, table, keyValue(schema, id))
	if err != nil {
		return nil, err
	}
	return row, nil
}

func (h *FormsHandler) logWarnings(ctx context.Context, b *formbuilder.Builder) {
	for _, warning := range b.Warnings() {
		h.logger.WithContext(ctx).Warn(warning)
	}
}

// keyValue converts a primary key taken from the URL to the column type
func keyValue(schema *registry.Table, id string) any {
	col, ok := schema.Column(schema.PrimaryKey())
	if ok && col.Flags.Has(registry.FlagInt) {
		if n, err := strconv.ParseInt(id, 10, 64); err == nil {
			return n
		}
	}
	return id
}

// parseSubmission reads the form values of r. Repeated keys and keys ending
// in "[]" become string slices. Uploaded files are stored in temporary
// files and submitted as {name, tmp_name} maps; the returned cleanup
// removes them.
func parseSubmission(r *http.Request) (map[string]any, func(), error) {
	cleanup := func() {}

	contentType := r.Header.Get(constants.HeaderContentType)
	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(constants.MaxFormMemory); err != nil {
			return nil, cleanup, err
		}
	} else if err := r.ParseForm(); err != nil {
		return nil, cleanup, err
	}

	values := make(map[string]any, len(r.PostForm))
	for key, vals := range r.PostForm {
		if len(vals) == 1 && !strings.HasSuffix(key, "[]") {
			values[key] = vals[0]
		} else {
			values[key] = vals
		}
	}

	if r.MultipartForm == nil || len(r.MultipartForm.File) == 0 {
		return values, cleanup, nil
	}

	var paths []string
	cleanup = func() {
		for _, path := range paths {
			os.Remove(path)
		}
		r.MultipartForm.RemoveAll()
	}

	for key, files := range r.MultipartForm.File {
		if len(files) == 0 {
			continue
		}
		path, err := saveUpload(files[0])
		if err != nil {
			cleanup()
			return nil, func() {}, err
		}
		paths = append(paths, path)
		values[key] = map[string]any{"name": files[0].Filename, "tmp_name": path}
	}

	return values, cleanup, nil
}

func saveUpload(fh *multipart.FileHeader) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open upload %s: %w", fh.Filename, err)
	}
	defer src.Close()

	dst, err := os.CreateTemp("", "formbuilder-upload-*")
	if err != nil {
		return "", fmt.Errorf("failed to store upload %s: %w", fh.Filename, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(dst.Name())
		return "", fmt.Errorf("failed to store upload %s: %w", fh.Filename, err)
	}
	return dst.Name(), nil
}

func writeJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set(constants.HeaderContentType, constants.MIMEApplicationJSON)
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}
