package enrich

import (
	"regexp"
	"strings"

	"chatlens/internal/models"
)

const mediaOmittedMarker = "<Media omitted>"

var urlRE = regexp.MustCompile(`https?://[^\s]+`)

var mediaSuffixes = map[string][]string{
	"image":    {".jpg", ".jpeg", ".png", ".gif", ".webp", ".bmp"},
	"video":    {".mp4", ".avi", ".mov", ".mkv", ".webm"},
	"audio":    {".mp3", ".wav", ".m4a", ".flac", ".aac"},
	"document": {".pdf", ".doc", ".docx", ".xls", ".xlsx", ".ppt", ".pptx"},
}

// ExtractMedia classifies the URLs of a message by suffix into image,
// video, audio and document; everything else is a plain link. The scan
// is pure pattern matching, never a network call. URLs are deduplicated
// per class in first-seen order.
func ExtractMedia(text string) models.MediaURLs {
	var media models.MediaURLs
	if strings.TrimSpace(text) == "" || strings.Contains(text, mediaOmittedMarker) {
		return media
	}

	seen := make(map[string]struct{})
	for _, url := range urlRE.FindAllString(text, -1) {
		if _, dup := seen[url]; dup {
			continue
		}
		seen[url] = struct{}{}

		switch classifyURL(url) {
		case "image":
			media.Image = append(media.Image, url)
		case "video":
			media.Video = append(media.Video, url)
		case "audio":
			media.Audio = append(media.Audio, url)
		case "document":
			media.Document = append(media.Document, url)
		default:
			media.Link = append(media.Link, url)
		}
	}
	return media
}

func classifyURL(url string) string {
	lower := strings.ToLower(url)
	for class, suffixes := range mediaSuffixes {
		for _, s := range suffixes {
			if strings.HasSuffix(lower, s) {
				return class
			}
		}
	}
	return "link"
}
