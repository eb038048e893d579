package handlers

import (
	"encoding/json"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"marketplace/internal/apperr"

	"github.com/labstack/echo/v4"
)

var rawMessageType = reflect.TypeOf(json.RawMessage(nil))

// Bind decodes a JSON, urlencoded or multipart body into dst and validates
// it. Form fields are matched by json name; list fields accept repeated keys,
// the key with a [] suffix or a single JSON array.
func Bind(c echo.Context, dst interface{}) error {
	ctype := c.Request().Header.Get(echo.HeaderContentType)
	if strings.HasPrefix(ctype, echo.MIMEMultipartForm) || strings.HasPrefix(ctype, echo.MIMEApplicationForm) {
		form, err := c.FormParams()
		if err != nil {
			return apperr.NewBadRequest("Invalid form data")
		}
		if err := decodeForm(form, dst); err != nil {
			return err
		}
	} else if err := (&echo.DefaultBinder{}).BindBody(c, dst); err != nil {
		return apperr.NewBadRequest("Invalid request body")
	}
	return c.Validate(dst)
}

func decodeForm(form url.Values, dst interface{}) error {
	t := reflect.TypeOf(dst)
	if t.Kind() != reflect.Ptr || t.Elem().Kind() != reflect.Struct {
		return apperr.New(apperr.Internal, "Invalid binding target")
	}
	doc := map[string]interface{}{}
	if err := collectForm(t.Elem(), form, doc); err != nil {
		return err
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return apperr.NewBadRequest("Invalid form data")
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return apperr.NewBadRequest("Invalid form data")
	}
	return nil
}

func collectForm(t reflect.Type, form url.Values, doc map[string]interface{}) error {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Anonymous && f.Type.Kind() == reflect.Struct {
			if err := collectForm(f.Type, form, doc); err != nil {
				return err
			}
			continue
		}
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			continue
		}
		values := form[name]
		if len(values) == 0 {
			values = form[name+"[]"]
		}
		if len(values) == 0 {
			continue
		}

		ft := f.Type
		if ft.Kind() == reflect.Ptr {
			ft = ft.Elem()
		}
		first := strings.TrimSpace(values[0])
		if first == "" && ft.Kind() != reflect.String {
			continue
		}

		switch {
		case ft == rawMessageType:
			if !json.Valid([]byte(first)) {
				return apperr.NewValidation("Validation failed", map[string]string{name: "The " + name + " must be valid JSON."})
			}
			doc[name] = json.RawMessage(first)
		case ft.Kind() == reflect.Slice:
			if len(values) == 1 && strings.HasPrefix(first, "[") {
				doc[name] = json.RawMessage(first)
			} else {
				doc[name] = values
			}
		case ft.Kind() == reflect.Bool:
			b, err := strconv.ParseBool(first)
			if err != nil {
				return apperr.NewValidation("Validation failed", map[string]string{name: "The " + name + " field must be true or false."})
			}
			doc[name] = b
		case ft.Kind() >= reflect.Int && ft.Kind() <= reflect.Float64:
			if _, err := strconv.ParseFloat(first, 64); err != nil {
				return apperr.NewValidation("Validation failed", map[string]string{name: "The " + name + " must be a number."})
			}
			doc[name] = json.Number(first)
		default:
			doc[name] = values[0]
		}
	}
	return nil
}
