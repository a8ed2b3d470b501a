package permalink

import (
	"path"
	"strings"
)

// Layout turns resolved segments into URLs and output file paths.
type Layout struct {
	// Prefix is prepended to every URL (e.g. a sub-directory deployment).
	// It does not affect file paths.
	Prefix string
	// IndexHTMLOnly writes every page as <dir>/index.html with a URL ending
	// in "/". Otherwise pages are written as <dir>.html.
	IndexHTMLOnly bool
}

// Link is the resolved location of one output.
type Link struct {
	URL  string // site-relative URL, always starting with "/"
	Path string // slash-separated path relative to the output root
}

// Page builds the link for a page from segments. No segments means the
// site root.
func (l Layout) Page(segments ...string) Link {
	segs := compact(segments)
	prefix := l.prefix()

	if len(segs) == 0 {
		if l.IndexHTMLOnly {
			return Link{URL: prefix + "/", Path: "index.html"}
		}
		return Link{URL: prefix + "/index.html", Path: "index.html"}
	}

	joined := strings.Join(segs, "/")
	if l.IndexHTMLOnly {
		return Link{URL: prefix + "/" + joined + "/", Path: joined + "/index.html"}
	}
	return Link{URL: prefix + "/" + joined + ".html", Path: joined + ".html"}
}

// File builds the link for a non-page output such as a feed. The last
// segment is used verbatim as the file name.
func (l Layout) File(segments ...string) Link {
	joined := strings.Join(compact(segments), "/")
	return Link{URL: l.prefix() + "/" + joined, Path: joined}
}

// Absolute joins a site base URL with a link URL.
func Absolute(base, url string) string {
	base = strings.TrimRight(base, "/")
	if base == "" {
		return url
	}
	return base + url
}

func (l Layout) prefix() string {
	p := strings.Trim(l.Prefix, "/")
	if p == "" {
		return ""
	}
	return "/" + p
}

func compact(segments []string) []string {
	out := make([]string, 0, len(segments))
	for _, s := range segments {
		for _, part := range strings.Split(s, "/") {
			if part = strings.TrimSpace(part); part != "" && part != "." {
				out = append(out, part)
			}
		}
	}
	return out
}

// Clean normalizes an output path for comparison.
func Clean(p string) string {
	return strings.TrimPrefix(path.Clean("/"+p), "/")
}
