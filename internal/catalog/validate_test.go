package catalog

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func upload(name, contentType string, data []byte) *Upload {
	return &Upload{
		Filename:    name,
		ContentType: contentType,
		Size:        int64(len(data)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

func validForm() ProductForm {
	return ProductForm{
		Name:         "Ebook",
		Description:  "A book",
		PriceInCents: "999",
		File:         upload("book.pdf", "application/pdf", make([]byte, 10)),
		Image:        upload("cover.png", "image/png", make([]byte, 5)),
	}
}

func fieldErrors(t *testing.T, err error) FieldErrors {
	t.Helper()
	ve, ok := AsValidationError(err)
	require.True(t, ok, "expected validation error, got %v", err)
	return ve.Fields
}

func TestValidateProductCreateOK(t *testing.T) {
	in, err := ValidateProduct(validForm(), ModeCreate)
	require.NoError(t, err)
	assert.Equal(t, int64(999), in.PriceInCents)
	assert.Equal(t, "Ebook", in.Name)
	assert.NotNil(t, in.File)
	assert.NotNil(t, in.Image)
}

func TestValidateProductCreateErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(f *ProductForm)
		field  string
		msg    string
	}{
		{"empty name", func(f *ProductForm) { f.Name = "" }, "name", msgStringRequired},
		{"empty description", func(f *ProductForm) { f.Description = "" }, "description", msgStringRequired},
		{"zero price", func(f *ProductForm) { f.PriceInCents = "0" }, "priceInCents", msgPriceMin},
		{"negative price", func(f *ProductForm) { f.PriceInCents = "-3" }, "priceInCents", msgPriceMin},
		{"blank price", func(f *ProductForm) { f.PriceInCents = "" }, "priceInCents", msgPriceMin},
		{"fractional price", func(f *ProductForm) { f.PriceInCents = "9.5" }, "priceInCents", msgNotAnInteger},
		{"non numeric price", func(f *ProductForm) { f.PriceInCents = "abc" }, "priceInCents", msgNotANumber},
		{"go infinity spelling", func(f *ProductForm) { f.PriceInCents = "inf" }, "priceInCents", msgNotANumber},
		{"nan", func(f *ProductForm) { f.PriceInCents = "NaN" }, "priceInCents", msgNotANumber},
		{"hex float", func(f *ProductForm) { f.PriceInCents = "0x1p4" }, "priceInCents", msgNotANumber},
		{"signed hex", func(f *ProductForm) { f.PriceInCents = "-0x10" }, "priceInCents", msgNotANumber},
		{"infinity", func(f *ProductForm) { f.PriceInCents = "Infinity" }, "priceInCents", msgNotAnInteger},
		{"missing file", func(f *ProductForm) { f.File = nil }, "file", msgRequired},
		{"empty file", func(f *ProductForm) { f.File = upload("a.pdf", "application/pdf", nil) }, "file", msgRequired},
		{"missing image", func(f *ProductForm) { f.Image = nil }, "image", msgRequired},
		{"empty image", func(f *ProductForm) { f.Image = upload("a.png", "image/png", nil) }, "image", msgRequired},
		{"image not an image", func(f *ProductForm) { f.Image = upload("a.txt", "text/plain", []byte("x")) }, "image", msgInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := validForm()
			tt.mutate(&form)
			in, err := ValidateProduct(form, ModeCreate)
			assert.Nil(t, in)
			fe := fieldErrors(t, err)
			assert.Equal(t, []string{tt.msg}, fe[tt.field])
			assert.Len(t, fe, 1)
		})
	}
}

func TestValidateProductCoercesPrice(t *testing.T) {
	for raw, want := range map[string]int64{
		"1": 1, " 42 ": 42, "010": 10, "1e3": 1000, "5.0": 5, "0x10": 16, "0B101": 5, "0o17": 15,
	} {
		form := validForm()
		form.PriceInCents = raw
		in, err := ValidateProduct(form, ModeCreate)
		require.NoError(t, err, raw)
		assert.Equal(t, want, in.PriceInCents, raw)
	}
}

func TestValidateProductEditKeepsUploadsOptional(t *testing.T) {
	form := validForm()
	form.File = nil
	form.Image = upload("cover.png", "", nil)

	in, err := ValidateProduct(form, ModeEdit)
	require.NoError(t, err)
	assert.Nil(t, in.File)
	assert.Nil(t, in.Image)
}

func TestValidateProductEditChecksProvidedImage(t *testing.T) {
	form := validForm()
	form.Image = upload("evil.exe", "application/octet-stream", []byte("MZ"))

	_, err := ValidateProduct(form, ModeEdit)
	fe := fieldErrors(t, err)
	assert.Equal(t, msgInvalidInput, fe.First("image"))
}

func TestValidateProductCollectsAllFields(t *testing.T) {
	_, err := ValidateProduct(ProductForm{}, ModeCreate)
	fe := fieldErrors(t, err)
	for _, field := range []string{"name", "description", "priceInCents", "file", "image"} {
		assert.True(t, fe.Has(field), field)
	}
	assert.Contains(t, err.Error(), "priceInCents")
}
