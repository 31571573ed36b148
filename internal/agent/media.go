package agent

import (
	"encoding/base64"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/tycode-run/goclaw-core/internal/providers"
)

// maxImageBytes caps how much of a single attachment the actor will pull
// into a vision request; anything larger is dropped rather than risking a
// provider-side rejection mid-turn.
const maxImageBytes = 10 * 1024 * 1024

// imageMimeByExt is consulted before a file is read at all, so an attached
// path that isn't a recognized image format never touches the filesystem.
var imageMimeByExt = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// loadImages reads the attachments named on a UserInput turn and returns
// them as base64-encoded ImageContent ready to attach to the user message.
// A file that isn't an image, can't be read, or exceeds maxImageBytes is
// skipped with a warning rather than failing the whole turn.
func loadImages(paths []string) []providers.ImageContent {
	if len(paths) == 0 {
		return nil
	}

	images := make([]providers.ImageContent, 0, len(paths))
	for _, p := range paths {
		mime, ok := imageMimeByExt[strings.ToLower(filepath.Ext(p))]
		if !ok {
			continue
		}

		info, err := os.Stat(p)
		if err != nil {
			slog.Warn("vision: failed to stat attachment", "path", p, "error", err)
			continue
		}
		if info.Size() > maxImageBytes {
			slog.Warn("vision: attachment too large, skipping", "path", p, "size", info.Size())
			continue
		}

		data, err := os.ReadFile(p)
		if err != nil {
			slog.Warn("vision: failed to read attachment", "path", p, "error", err)
			continue
		}

		images = append(images, providers.ImageContent{
			MimeType: mime,
			Data:     base64.StdEncoding.EncodeToString(data),
		})
	}
	if len(images) == 0 {
		return nil
	}
	return images
}
