package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mxforum/mxforum/utils"
)

// Media is where uploaded images go and how they are addressed publicly.
type Media struct {
	Root     string
	SiteURL  string
	MaxBytes int64
}

func (m Media) url(name string) string {
	return utils.MediaURL(m.SiteURL, name)
}

// uploaded reports whether the multipart field carries a file.
func uploaded(ctx *gin.Context, field string) bool {
	_, err := ctx.FormFile(field)
	return err == nil
}

// save stores the multipart file under field. It answers the request itself
// and returns ok=false when the upload is rejected or fails.
func (m Media) save(ctx *gin.Context, field string) (string, bool) {
	fh, err := ctx.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return "", true
		}
		utils.Invalid(ctx, map[string]string{field: "could not read the uploaded file"})
		return "", false
	}
	if fh.Size > m.MaxBytes {
		utils.Invalid(ctx, map[string]string{field: utils.ErrUploadTooLarge.Error()})
		return "", false
	}
	f, err := fh.Open()
	if err != nil {
		respondError(ctx, err)
		return "", false
	}
	defer f.Close()

	name, err := utils.SaveUploadedImage(m.Root, f, m.MaxBytes)
	switch {
	case errors.Is(err, utils.ErrUnsupportedImage), errors.Is(err, utils.ErrUploadTooLarge):
		utils.Invalid(ctx, map[string]string{field: err.Error()})
		return "", false
	case err != nil:
		respondError(ctx, err)
		return "", false
	}
	return name, true
}

// discard removes an upload whose owning row could not be stored.
func (m Media) discard(name string) {
	if name == "" {
		return
	}
	if err := utils.RemoveMedia(m.Root, name); err != nil {
		utils.Sugar.Warnf("remove orphan upload name=%s err=%v", name, err)
	}
}
