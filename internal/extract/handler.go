package extract

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"prism-backend/internal/shared/server/respond"
	"prism-backend/internal/shared/telemetry"
	"prism-backend/internal/shared/util"
)

// MaxUploadBytes bounds a research file upload.
const MaxUploadBytes = 10 << 20

const (
	msgFileRequired  = "ファイルを選択してください。"
	msgFileTooLarge  = "ファイルサイズが大きすぎます。"
	msgUnsupported   = "対応していないファイル形式です（PDF、DOCX、テキストのみ）。"
	msgNoTextFound   = "ファイルからテキストを抽出できませんでした。"
	msgExtractFailed = "ファイルの読み込みに失敗しました。"
)

// RegisterRoutes attaches the research upload route.
func RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/research/extract", upload)
}

func upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxUploadBytes+1<<20)
	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.Error(c, http.StatusRequestEntityTooLarge, respond.CodeValidation, msgFileTooLarge, nil)
			return
		}
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, msgFileRequired, nil)
		return
	}
	if fh.Size > MaxUploadBytes {
		respond.Error(c, http.StatusRequestEntityTooLarge, respond.CodeValidation, msgFileTooLarge, map[string]any{"maxBytes": MaxUploadBytes})
		return
	}

	f, err := fh.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, msgExtractFailed, nil)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, MaxUploadBytes))
	if err != nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, msgExtractFailed, nil)
		return
	}

	name := util.SafeFileName(fh.Filename, "upload")
	text, err := TextFromBytes(c.Request.Context(), data, fh.Header.Get("Content-Type"), name)
	switch {
	case errors.Is(err, ErrUnsupported):
		respond.Error(c, http.StatusUnsupportedMediaType, respond.CodeValidation, msgUnsupported, nil)
		return
	case errors.Is(err, ErrEmpty):
		respond.Error(c, http.StatusUnprocessableEntity, respond.CodeValidation, msgNoTextFound, nil)
		return
	case err != nil:
		telemetry.Warn("extract.failed", map[string]any{"file": name, "err": err.Error()})
		respond.Error(c, http.StatusUnprocessableEntity, respond.CodeValidation, msgExtractFailed, nil)
		return
	}

	telemetry.Info("extract.completed", map[string]any{"file": name, "bytes": len(data), "chars": len([]rune(text))})
	respond.OK(c, gin.H{"text": text, "fileName": name})
}
