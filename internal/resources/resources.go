// Package resources holds one typed wrapper per SIS API entity. Wrappers only
// shape parameters and payloads; every call goes through apiclient.
package resources

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"

	"studentinfo/sis-console/internal/apiclient"
)

var ErrUnexpectedBody = errors.New("expected a json envelope")

// Sender is the part of apiclient.Client the wrappers use.
type Sender interface {
	Send(ctx context.Context, method, path string, opts apiclient.RequestOptions) (*apiclient.Response, error)
}

type Page[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Size  int   `json:"size"`
	Pages int   `json:"pages"`
}

// ListParams are the paging and search fields shared by list endpoints.
type ListParams struct {
	Page    int    `query:"page,omitempty"`
	Size    int    `query:"size,omitempty"`
	Keyword string `query:"keyword,omitempty"`
}

type IDs struct {
	IDs []int64 `json:"ids" validate:"required,min=1"`
}

type ImportResult struct {
	Total    int      `json:"total"`
	Imported int      `json:"imported"`
	Failed   int      `json:"failed"`
	Errors   []string `json:"errors,omitempty"`
}

// File is a local file sent to an import endpoint.
type File struct {
	Name    string
	Content io.Reader
	Fields  map[string]string
}

type API struct {
	Auth          *Auth
	Students      *Students
	Teachers      *Teachers
	Courses       *Courses
	Enrollments   *Enrollments
	Grades        *Grades
	Messages      *Messages
	Notifications *Notifications
	Reports       *Reports
	SystemConfig  *SystemConfig
	System        *System
	Users         *Users
	DataIO        *DataIO
}

func New(c Sender) *API {
	b := newBase(c)
	return &API{
		Auth:          &Auth{b: b},
		Students:      &Students{b: b},
		Teachers:      &Teachers{b: b},
		Courses:       &Courses{b: b},
		Enrollments:   &Enrollments{b: b},
		Grades:        &Grades{b: b},
		Messages:      &Messages{b: b},
		Notifications: &Notifications{b: b},
		Reports:       &Reports{b: b},
		SystemConfig:  newSystemConfig(b),
		System:        &System{b: b},
		Users:         &Users{b: b},
		DataIO:        &DataIO{b: b},
	}
}

type base struct {
	c        Sender
	validate *validator.Validate
}

func newBase(c Sender) *base {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return &base{c: c, validate: v}
}

// check validates payload structs before they leave the process. Failures
// come back as *apiclient.ValidationError, like a 422 from the server.
func (b *base) check(payload any) error {
	if payload == nil {
		return nil
	}
	v := reflect.ValueOf(payload)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil
	}
	err := b.validate.Struct(payload)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate payload: %w", err)
	}
	fields := make(map[string][]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = append(fields[fe.Field()], fieldMessage(fe))
	}
	return apiclient.NewValidationError(fields)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "email":
		return fe.Field() + " must be a valid email address"
	case "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", fe.Field(), fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param())
	case "eqfield":
		return fmt.Sprintf("%s must match %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid (%s)", fe.Field(), fe.Tag())
	}
}

// query turns a params struct tagged with `query:"name,omitempty"` into
// url.Values.
func query(params any) (url.Values, error) {
	switch p := params.(type) {
	case nil:
		return nil, nil
	case url.Values:
		return p, nil
	}

	var m map[string]any
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{TagName: "query", Result: &m})
	if err != nil {
		return nil, fmt.Errorf("build query decoder: %w", err)
	}
	if err := dec.Decode(params); err != nil {
		return nil, fmt.Errorf("encode query params: %w", err)
	}

	out := url.Values{}
	for k, v := range m {
		addParam(out, k, v)
	}
	return out, nil
}

func addParam(out url.Values, key string, v any) {
	switch x := v.(type) {
	case nil:
	case string:
		if x != "" {
			out.Add(key, x)
		}
	case []string:
		for _, s := range x {
			out.Add(key, s)
		}
	case []int64:
		for _, n := range x {
			out.Add(key, strconv.FormatInt(n, 10))
		}
	case bool:
		out.Add(key, strconv.FormatBool(x))
	case int:
		out.Add(key, strconv.Itoa(x))
	case int64:
		out.Add(key, strconv.FormatInt(x, 10))
	case float64:
		out.Add(key, strconv.FormatFloat(x, 'f', -1, 64))
	default:
		out.Add(key, fmt.Sprint(x))
	}
}

func path(format string, args ...any) string {
	escaped := make([]any, len(args))
	for i, a := range args {
		switch v := a.(type) {
		case string:
			escaped[i] = url.PathEscape(v)
		default:
			escaped[i] = a
		}
	}
	return fmt.Sprintf(format, escaped...)
}

func (b *base) do(ctx context.Context, method, p string, params, body any, opts apiclient.RequestOptions) (*apiclient.Response, error) {
	if err := b.check(body); err != nil {
		return nil, err
	}
	q, err := query(params)
	if err != nil {
		return nil, err
	}
	opts.Params = q
	opts.Body = body
	return b.c.Send(ctx, method, p, opts)
}

func decode[T any](resp *apiclient.Response) (T, error) {
	var out T
	if resp == nil || resp.Envelope == nil {
		return out, ErrUnexpectedBody
	}
	if err := resp.Envelope.Decode(&out); err != nil {
		return out, err
	}
	return out, nil
}

func fetch[T any](ctx context.Context, b *base, p string, params any) (T, error) {
	resp, err := b.do(ctx, http.MethodGet, p, params, nil, apiclient.RequestOptions{})
	if err != nil {
		var zero T
		return zero, err
	}
	return decode[T](resp)
}

func send[T any](ctx context.Context, b *base, method, p string, body any) (T, error) {
	resp, err := b.do(ctx, method, p, nil, body, apiclient.RequestOptions{})
	if err != nil {
		var zero T
		return zero, err
	}
	return decode[T](resp)
}

// exec is for endpoints whose envelope carries no data worth decoding.
func exec(ctx context.Context, b *base, method, p string, body any) error {
	_, err := b.do(ctx, method, p, nil, body, apiclient.RequestOptions{})
	return err
}

func download(ctx context.Context, b *base, method, p string, params, body any) (*apiclient.Raw, error) {
	resp, err := b.do(ctx, method, p, params, body, apiclient.RequestOptions{ResponseType: apiclient.ResponseBinary})
	if err != nil {
		return nil, err
	}
	if resp.Raw == nil {
		return nil, fmt.Errorf("%s: expected a file, got a json envelope", p)
	}
	return resp.Raw, nil
}

func importFile(ctx context.Context, b *base, p string, f File) (ImportResult, error) {
	if f.Content == nil {
		return ImportResult{}, apiclient.NewValidationError(map[string][]string{"file": {"file is required"}})
	}
	up := &apiclient.Upload{FieldName: "file", FileName: f.Name, Content: f.Content, Fields: f.Fields}
	resp, err := b.c.Send(ctx, http.MethodPost, p, apiclient.RequestOptions{Body: up})
	if err != nil {
		return ImportResult{}, err
	}
	res, err := decode[ImportResult](resp)
	if errors.Is(err, apiclient.ErrNoData) {
		return ImportResult{}, nil
	}
	return res, err
}
