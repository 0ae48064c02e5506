package core

import (
	"encoding"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"reflect"
)

var (
	ErrInvalidJSON = NewHTTPError(http.StatusBadRequest, "invalid_json")
	ErrInvalidPath = NewHTTPError(http.StatusBadRequest, "invalid_path_parameter")
)

// BindJSON decodes a JSON body into v, rejecting unknown fields and trailing
// data. An empty body leaves v untouched. maxBytes <= 0 disables the cap.
func BindJSON(maxBytes int64) Bind {
	return func(r *http.Request, v any) error {
		if r.Body == nil || r.ContentLength == 0 {
			return nil
		}
		if ct := r.Header.Get("Content-Type"); ct != "" {
			mediaType, _, err := mime.ParseMediaType(ct)
			if err != nil || mediaType != "application/json" {
				return fmt.Errorf("%w: got %q, expected application/json", ErrUnsupportedMediaType, ct)
			}
		}

		body := r.Body
		if maxBytes > 0 {
			body = http.MaxBytesReader(nil, r.Body, maxBytes)
		}
		decoder := json.NewDecoder(body)
		decoder.DisallowUnknownFields()

		if err := decoder.Decode(v); err != nil {
			var tooLarge *http.MaxBytesError
			switch {
			case errors.As(err, &tooLarge):
				return fmt.Errorf("%w: body exceeds %d bytes", ErrRequestEntityTooLarge, maxBytes)
			case errors.Is(err, io.EOF):
				return nil
			default:
				return fmt.Errorf("%w: %v", ErrInvalidJSON, err)
			}
		}

		var extra json.RawMessage
		if err := decoder.Decode(&extra); !errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: unexpected data after JSON object", ErrInvalidJSON)
		}
		return nil
	}
}

var textUnmarshalerType = reflect.TypeFor[encoding.TextUnmarshaler]()

// BindPath fills struct fields tagged `path:"name"` using extractor, e.g.
// chi.URLParam. Supported field types are string and any type whose pointer
// implements encoding.TextUnmarshaler (uuid.UUID among them). Embedded
// structs are walked.
func BindPath(extractor func(r *http.Request, key string) string) Bind {
	return func(r *http.Request, v any) error {
		rv := reflect.ValueOf(v)
		if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
			return fmt.Errorf("%w: target must be a pointer to struct", ErrInvalidPath)
		}
		return bindPathFields(r, rv.Elem(), extractor)
	}
}

func bindPathFields(r *http.Request, rv reflect.Value, extractor func(r *http.Request, key string) string) error {
	rt := rv.Type()
	for i := range rt.NumField() {
		sf := rt.Field(i)
		if sf.Anonymous && sf.Type.Kind() == reflect.Struct {
			if err := bindPathFields(r, rv.Field(i), extractor); err != nil {
				return err
			}
			continue
		}

		name, ok := sf.Tag.Lookup("path")
		if !ok || name == "-" || !sf.IsExported() {
			continue
		}
		value := extractor(r, name)
		if value == "" {
			continue
		}

		field := rv.Field(i)
		switch {
		case field.Kind() == reflect.String:
			field.SetString(value)
		case reflect.PointerTo(sf.Type).Implements(textUnmarshalerType):
			if err := field.Addr().Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(value)); err != nil {
				return fmt.Errorf("%w: %s: %v", ErrInvalidPath, name, err)
			}
		default:
			return fmt.Errorf("%w: %s: unsupported field type %s", ErrInvalidPath, name, sf.Type)
		}
	}
	return nil
}
