package agent

import (
	"context"
	"fmt"
	"strings"
)

const urlTextPreviewLen = 100

// buildContextParts ingests the turn's attachments through the hardened
// ingestor and renders them as bracketed blocks prepended to the user input.
// An individual ingest failure becomes an error block and the turn proceeds;
// the returned metadata describes the attachments for the persisted message.
func (o *Orchestrator) buildContextParts(ctx context.Context, sessionID string, req TurnRequest) ([]string, map[string]any) {
	var parts []string
	meta := map[string]any{}

	files := req.Files
	if len(files) > o.maxFiles {
		files = files[:o.maxFiles]
	}
	var fileMeta []map[string]any
	for _, f := range files {
		row, err := o.ingestor.AddFile(ctx, sessionID, f.Filename, f.Data)
		if err != nil {
			o.log.Warn("chat file ingest failed",
				"session_id", sessionID, "filename", f.Filename, "error", err)
			parts = append(parts, fmt.Sprintf("[FILE:%s]\nError: %s\n[/FILE]", f.Filename, err))
			fileMeta = append(fileMeta, map[string]any{
				"filename": f.Filename, "size_bytes": len(f.Data), "error": err.Error(),
			})
			continue
		}
		parts = append(parts, fmt.Sprintf("[FILE:%s]\n%s\n[/FILE]", f.Filename, row.Content))
		fileMeta = append(fileMeta, map[string]any{
			"filename": f.Filename, "size_bytes": len(f.Data),
		})
	}
	if len(fileMeta) > 0 {
		meta["files"] = fileMeta
	}

	urlText := strings.TrimSpace(req.URLText)
	if urlText == "" {
		return parts, meta
	}

	if strings.HasPrefix(urlText, "http://") || strings.HasPrefix(urlText, "https://") {
		meta["url"] = urlText
		row, err := o.ingestor.AddURL(ctx, sessionID, urlText)
		if err != nil {
			o.log.Warn("chat url ingest failed", "session_id", sessionID, "url", urlText, "error", err)
			parts = append(parts, fmt.Sprintf("[URL_FETCH_FAILED:%s]\nError: %s", urlText, err))
			return parts, meta
		}
		// Stored URL rows already carry the [URL:...] framing.
		parts = append(parts, row.Content)
		return parts, meta
	}

	meta["url_text"] = previewText(urlText, urlTextPreviewLen)
	content := urlText
	if row, err := o.ingestor.AddText(ctx, sessionID, urlText); err != nil {
		o.log.Warn("chat text ingest failed", "session_id", sessionID, "error", err)
	} else {
		content = row.Content
	}
	parts = append(parts, fmt.Sprintf("[URL_TEXT]\n%s\n[/URL_TEXT]", content))
	return parts, meta
}

func previewText(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "..."
}
