package content

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var (
	// ErrNoContent means the directory has no video or no moments document at all.
	ErrNoContent = errors.New("no playable content found in directory")
	// ErrNoDocument means no moments document shares the chosen video's basename.
	ErrNoDocument = errors.New("no moments document found for the video")
)

var videoExtensions = map[string]struct{}{
	".mp4":  {},
	".m4v":  {},
	".mkv":  {},
	".mov":  {},
	".webm": {},
	".avi":  {},
}

// Pair is a video and the moments document that drives it.
type Pair struct {
	VideoPath    string
	DocumentPath string
}

// Resolve picks the first video in dir (by file name) and its same-basename .json document.
func Resolve(dir string) (Pair, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Pair{}, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	var videos, documents []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if _, ok := videoExtensions[ext]; ok {
			videos = append(videos, e.Name())
		} else if ext == ".json" {
			documents = append(documents, e.Name())
		}
	}

	if len(videos) == 0 || len(documents) == 0 {
		return Pair{}, fmt.Errorf("%w: %s", ErrNoContent, dir)
	}

	sort.Strings(videos)
	video := videos[0]
	base := basename(video)
	for _, doc := range documents {
		if basename(doc) == base {
			return Pair{
				VideoPath:    filepath.Join(dir, video),
				DocumentPath: filepath.Join(dir, doc),
			}, nil
		}
	}

	return Pair{}, fmt.Errorf("%w: %s", ErrNoDocument, video)
}

func basename(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}
