package catalog

import (
	"io"
	"math"
	"math/big"
	"mime/multipart"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cast"
)

const (
	msgRequired       = "Required"
	msgInvalidInput   = "Invalid input"
	msgStringRequired = "String must contain at least 1 character(s)"
	msgPriceMin       = "Number must be greater than or equal to 1"
	msgNotANumber     = "Expected number, received nan"
	msgNotAnInteger   = "Expected integer, received float"
	msgTooLarge       = "Number must be less than or equal to 9223372036854775807"
)

// Mode selects the upload rules: files are required on create and optional on edit.
type Mode int

const (
	ModeCreate Mode = iota
	ModeEdit
)

// Upload is a submitted file part.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

func (u *Upload) empty() bool {
	return u == nil || u.Size <= 0
}

// UploadFromHeader adapts a multipart file header; nil stays nil.
func UploadFromHeader(fh *multipart.FileHeader) *Upload {
	if fh == nil {
		return nil
	}
	return &Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

// ProductForm is the raw submission, field names match the HTML form.
type ProductForm struct {
	Name         string
	Description  string
	PriceInCents string
	File         *Upload
	Image        *Upload
}

// ProductInput is a validated submission. File and Image are nil when an
// edit keeps the stored ones.
type ProductInput struct {
	Name         string
	Description  string
	PriceInCents int64
	File         *Upload
	Image        *Upload
}

type productFields struct {
	Name         string `form:"name" validate:"required"`
	Description  string `form:"description" validate:"required"`
	PriceInCents int64  `form:"priceInCents" validate:"min=1"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return fld.Tag.Get("form")
	})
	return v
}

// ValidateProduct checks a submission against the create or edit rules.
func ValidateProduct(form ProductForm, mode Mode) (*ProductInput, error) {
	fe := FieldErrors{}

	price, msg := coercePrice(form.PriceInCents)
	if msg != "" {
		fe.Add("priceInCents", msg)
	}

	fields := productFields{Name: form.Name, Description: form.Description, PriceInCents: price}
	if err := validate.Struct(fields); err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return nil, err
		}
		for _, ferr := range verrs {
			if fe.Has(ferr.Field()) {
				continue
			}
			fe.Add(ferr.Field(), fieldMessage(ferr))
		}
	}

	in := &ProductInput{Name: form.Name, Description: form.Description, PriceInCents: price}

	switch {
	case mode == ModeCreate && form.File.empty():
		fe.Add("file", msgRequired)
	case !form.File.empty():
		in.File = form.File
	}

	switch {
	case !form.Image.empty() && !isImage(form.Image.ContentType):
		fe.Add("image", msgInvalidInput)
	case mode == ModeCreate && form.Image.empty():
		fe.Add("image", msgRequired)
	case !form.Image.empty():
		in.Image = form.Image
	}

	if len(fe) > 0 {
		return nil, &ValidationError{Fields: fe}
	}
	return in, nil
}

func fieldMessage(ferr validator.FieldError) string {
	switch ferr.Tag() {
	case "required":
		return msgStringRequired
	case "min":
		return msgPriceMin
	}
	return msgInvalidInput
}

// coercePrice converts like Number(s): blank is 0, fractions and NaN are rejected.
func coercePrice(s string) (int64, string) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ""
	}
	f, ok := numberValue(s)
	if !ok {
		return 0, msgNotANumber
	}
	if math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, msgNotAnInteger
	}
	if f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, msgTooLarge
	}
	return int64(f), ""
}

// numberValue parses a trimmed, non-blank string the way Number() does:
// decimal and exponent forms, unsigned 0x/0o/0b integers, and the exact
// spelling Infinity. Go-only forms (inf, nan, hex floats, underscores) fail.
func numberValue(s string) (float64, bool) {
	switch s {
	case "Infinity", "+Infinity":
		return math.Inf(1), true
	case "-Infinity":
		return math.Inf(-1), true
	}
	if len(s) > 2 && s[0] == '0' {
		base := 0
		switch s[1] {
		case 'x', 'X':
			base = 16
		case 'o', 'O':
			base = 8
		case 'b', 'B':
			base = 2
		}
		if base != 0 {
			n, ok := new(big.Int).SetString(s[2:], base)
			if !ok || n.Sign() < 0 || strings.ContainsAny(s[2:], "+-_") {
				return 0, false
			}
			f, _ := new(big.Float).SetInt(n).Float64()
			return f, true
		}
	}
	if t := strings.TrimLeft(strings.ToLower(s), "+-"); strings.HasPrefix(t, "i") || strings.HasPrefix(t, "n") {
		return 0, false
	}
	f, err := cast.ToFloat64E(s)
	if err != nil || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

func isImage(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "image/")
}
