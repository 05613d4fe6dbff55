package modelcfg

import (
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// validatorSvc holds the model validator and its translator
type validatorSvc struct {
	v     *validator.Validate
	trans ut.Translator
}

var (
	vOnce sync.Once
	vSvc  *validatorSvc
)

// validation returns the singleton, building it on first use
func validation() *validatorSvc {
	vOnce.Do(func() {
		enLoc := en.New()
		uni := ut.New(enLoc, enLoc)
		trans, _ := uni.GetTranslator("en")

		v := validator.New(validator.WithRequiredStructEnabled())

		// messages name the model file key, not the Go field
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			if tag := fld.Tag.Get("cfg"); tag != "" {
				return tag
			}
			return fld.Name
		})

		_ = en_translations.RegisterDefaultTranslations(v, trans)
		registerPositive(v, trans)

		v.RegisterStructValidation(pixelSizeLevel, GeometryConfig{})
		v.RegisterStructValidation(supportLevel, SupportConfig{})

		vSvc = &validatorSvc{v: v, trans: trans}
	})
	return vSvc
}

func pixelSizeLevel(sl validator.StructLevel) {
	c := sl.Current().Interface().(GeometryConfig)
	if c.PixelSize.X <= 0 || c.PixelSize.Y <= 0 {
		sl.ReportError(c.PixelSize, "pixel_size", "PixelSize", "positive", "")
	}
}

func supportLevel(sl validator.StructLevel) {
	s := sl.Current().Interface().(SupportConfig)
	if s.Size.X <= 0 || s.Size.Y <= 0 {
		sl.ReportError(s.Size, "size", "Size", "positive", "")
	}
	if s.HoleSize.X < 0 || s.HoleSize.Y < 0 {
		sl.ReportError(s.HoleSize, "hole_size", "HoleSize", "nonnegative", "")
	}
}

func registerPositive(v *validator.Validate, trans ut.Translator) {
	for tag, text := range map[string]string{
		"positive":    "{0} must have positive components",
		"nonnegative": "{0} must not have negative components",
	} {
		_ = v.RegisterTranslation(tag, trans,
			func(ut ut.Translator) error {
				return ut.Add(tag, text, true)
			},
			func(ut ut.Translator, fe validator.FieldError) string {
				msg, _ := ut.T(fe.Tag(), fe.Field())
				return msg
			},
		)
	}
}

// firstViolation returns the config key and translated message of the first failure
func firstViolation(err error) (key, message string, ok bool) {
	verrs, isV := err.(validator.ValidationErrors)
	if !isV || len(verrs) == 0 {
		return "", "", false
	}
	fe := verrs[0]
	key = fe.Field()
	if i := strings.IndexByte(key, '['); i >= 0 {
		key = key[:i]
	}
	return key, fe.Translate(validation().trans), true
}
