package ui

import (
	"context"
	"fmt"
	"log"
	"mime"
	"net/http"

	"datapilot/domain/analysis"

	"github.com/gin-gonic/gin"
)

// responseSaver hands an artifact to the browser as an attachment
type responseSaver struct {
	c       *gin.Context
	written bool
}

func (r *responseSaver) Save(ctx context.Context, artifact analysis.Artifact) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.written {
		return fmt.Errorf("response already carries %s", artifact.Name)
	}
	contentType := artifact.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	r.c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": artifact.Name}))
	r.c.Data(http.StatusOK, contentType, artifact.Data)
	r.written = true
	log.Printf("[Download] Sent %s (%d bytes)", artifact.Name, len(artifact.Data))
	return nil
}
