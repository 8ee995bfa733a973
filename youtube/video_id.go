package youtube

import (
	"fmt"
	"regexp"
	"strings"
)

var videoIdPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:youtube\.com/watch\?(?:.*&)?v=)([^&\n?#]+)`),
	regexp.MustCompile(`(?:youtu\.be/)([^&\n?#]+)`),
	regexp.MustCompile(`(?:youtube\.com/embed/)([^&\n?#]+)`),
	regexp.MustCompile(`(?:youtube\.com/shorts/)([^&\n?#]+)`),
	regexp.MustCompile(`(?:youtube\.com/live/)([^&\n?#]+)`),
	regexp.MustCompile(`^([a-zA-Z0-9_-]{11})$`),
}

type InvalidURLError struct {
	URL string
}

func (e InvalidURLError) Error() string {
	return fmt.Sprintf("invalid youtube url %q", e.URL)
}

// ExtractVideoID accepts watch, short, embed, shorts and live URLs or a bare id.
func ExtractVideoID(url string) (string, error) {
	url = strings.TrimSpace(url)
	for _, p := range videoIdPatterns {
		if m := p.FindStringSubmatch(url); m != nil {
			return m[1], nil
		}
	}
	return "", InvalidURLError{URL: url}
}

func WatchURL(videoId string) string {
	return "https://www.youtube.com/watch?v=" + videoId
}

// Video is the input every transcript tier receives.
type Video struct {
	ID  string
	URL string
}
