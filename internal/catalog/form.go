package catalog

import (
	"net/http"
)

// maxFormMemory is the part of a multipart body kept in memory; the rest spills to temp files.
const maxFormMemory = 32 << 20

// ParseProductForm reads the product fields and uploads from a form
// submission. Absent file parts become nil uploads.
func ParseProductForm(r *http.Request) ProductForm {
	if r.MultipartForm == nil {
		_ = r.ParseMultipartForm(maxFormMemory)
	}
	return ProductForm{
		Name:         r.FormValue("name"),
		Description:  r.FormValue("description"),
		PriceInCents: r.FormValue("priceInCents"),
		File:         formUpload(r, "file"),
		Image:        formUpload(r, "image"),
	}
}

func formUpload(r *http.Request, field string) *Upload {
	if r.MultipartForm == nil || len(r.MultipartForm.File[field]) == 0 {
		return nil
	}
	return UploadFromHeader(r.MultipartForm.File[field][0])
}
