// Package bind fills request structs from path and query parameters and
// validates them
package bind

import (
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"sync"

	perr "pixgeo/internal/platform/errors"
	"pixgeo/internal/platform/logger"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// ValidatorSvc holds a singleton validator and translator
type ValidatorSvc struct {
	Validator  *validator.Validate
	Translator ut.Translator
}

var (
	vOnce sync.Once
	vSvc  *ValidatorSvc
)

// Get returns the validator singleton, initializing on first use
func Get() *ValidatorSvc {
	vOnce.Do(func() {
		enLoc := en.New()
		uni := ut.New(enLoc, enLoc)
		trans, _ := uni.GetTranslator("en")

		v := validator.New(validator.WithRequiredStructEnabled())

		// messages use the parameter name the client sent
		v.RegisterTagNameFunc(paramName)

		_ = en_translations.RegisterDefaultTranslations(v, trans)
		registerShort(v, trans, "min", "{0} must be at least {1}")
		registerShort(v, trans, "max", "{0} must be at most {1}")

		vSvc = &ValidatorSvc{Validator: v, Translator: trans}
	})
	return vSvc
}

// Request binds path and query parameters into T and validates the result.
// Fields opt in with `path:"name"` or `query:"name"`; string, int and uint
// kinds are supported. Absent query parameters keep the field's zero value
func Request[T any](r *http.Request) (T, error) {
	var dst T
	rv := reflect.ValueOf(&dst).Elem()
	if rv.Kind() != reflect.Struct {
		return dst, perr.Newf(perr.ErrorCodeUnknown, "bind: %T is not a struct", dst)
	}
	rt := rv.Type()
	q := r.URL.Query()

	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		if !f.IsExported() {
			continue
		}
		var raw, name string
		if name = f.Tag.Get("path"); name != "" {
			raw = chi.URLParam(r, name)
		} else if name = f.Tag.Get("query"); name != "" {
			raw = q.Get(name)
		} else {
			continue
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if err := set(rv.Field(i), raw); err != nil {
			return dst, perr.WithField(perr.InvalidArgf("%s: %v", name, err), name)
		}
	}

	if err := Get().Validator.Struct(dst); err != nil {
		if inv, ok := err.(*validator.InvalidValidationError); ok {
			log := logger.Get()
			log.Error().Err(inv).Msg("validator internal error")
			return dst, perr.Newf(perr.ErrorCodeUnknown, "validation error")
		}
		field, msg := ValidationFieldAndMessage(err)
		return dst, perr.WithField(perr.Newf(perr.ErrorCodeValidation, "%s", msg), field)
	}
	return dst, nil
}

func set(fv reflect.Value, raw string) error {
	switch fv.Kind() {
	case reflect.String:
		fv.SetString(raw)
	case reflect.Int, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return perr.InvalidArgf("not an integer")
		}
		fv.SetInt(n)
	case reflect.Uint, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return perr.InvalidArgf("not a non-negative integer")
		}
		fv.SetUint(n)
	default:
		return perr.InvalidArgf("unsupported field kind %s", fv.Kind())
	}
	return nil
}

func paramName(fld reflect.StructField) string {
	for _, key := range []string{"path", "query", "json"} {
		if tag := fld.Tag.Get(key); tag != "" && tag != "-" {
			if idx := strings.Index(tag, ","); idx >= 0 {
				tag = tag[:idx]
			}
			return tag
		}
	}
	return fld.Name
}

// ValidationFieldAndMessage returns the first field and translated message
func ValidationFieldAndMessage(err error) (field, message string) {
	if err == nil {
		return "", ""
	}
	if verrs, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range verrs {
			return fe.Field(), fe.Translate(Get().Translator)
		}
	}
	return "", err.Error()
}

func registerShort(v *validator.Validate, trans ut.Translator, tag, text string) {
	_ = v.RegisterTranslation(tag, trans,
		func(ut ut.Translator) error {
			return ut.Add(tag, text, true)
		},
		func(ut ut.Translator, fe validator.FieldError) string {
			msg, _ := ut.T(tag, fe.Field(), fe.Param())
			return msg
		},
	)
}
