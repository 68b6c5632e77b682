package history

import (
	"strings"

	"golang.org/x/net/html"
)

// allowedSchemes are the URL protocols kept by SanitizeURL.
var allowedSchemes = map[string]bool{
	"http": true, "https": true, "ftp": true, "ftps": true, "mailto": true, "news": true,
	"irc": true, "gopher": true, "nntp": true, "feed": true, "telnet": true, "mms": true,
	"rtsp": true, "svn": true, "tel": true, "fax": true, "xmpp": true, "webcal": true, "urn": true,
}

var encodedLineBreaks = strings.NewReplacer("%0d", "", "%0a", "", "%0D", "", "%0A", "")

// SanitizeURL returns a storable URL or "" when raw is unusable.
// Characters outside the URL alphabet are dropped, encoded line breaks removed, scheme-less
// absolute inputs get "http://" and any scheme outside the allow-list empties the result.
func SanitizeURL(raw string) string {
	u := strings.TrimSpace(raw)
	if u == "" {
		return ""
	}
	u = strings.ReplaceAll(u, " ", "%20")

	var b strings.Builder
	b.Grow(len(u))
	for i := 0; i < len(u); i++ {
		if c := u[i]; isURLByte(c) {
			b.WriteByte(c)
		}
	}
	u = b.String()
	// Removing one encoded break can expose another.
	for prev := ""; prev != u; {
		prev = u
		u = encodedLineBreaks.Replace(u)
	}
	if u == "" {
		return ""
	}

	if !strings.Contains(u, ":") && !strings.HasPrefix(u, "/") && !strings.HasPrefix(u, "#") && !strings.HasPrefix(u, "?") {
		u = "http://" + u
	}

	if i := strings.IndexAny(u, ":/?#"); i >= 0 && u[i] == ':' {
		if !allowedSchemes[strings.ToLower(u[:i])] {
			return ""
		}
	}
	return u
}

func isURLByte(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c >= 0x80:
		return true
	}
	return strings.IndexByte("-~+_.?#=!&;,/:%@$|*'()[]", c) >= 0
}

// SanitizeText reduces s to a single line of plain text: tags and script/style bodies are
// stripped, invalid UTF-8 dropped and runs of whitespace collapsed.
func SanitizeText(s string) string {
	s = strings.ToValidUTF8(s, "")
	if !strings.ContainsAny(s, "<>") {
		return strings.Join(strings.Fields(s), " ")
	}

	var b strings.Builder
	skip := 0
	z := html.NewTokenizer(strings.NewReader(s))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(b.String()), " ")
		case html.StartTagToken:
			if isRawTextTag(z) {
				skip++
			}
		case html.EndTagToken:
			if isRawTextTag(z) && skip > 0 {
				skip--
			}
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Raw())
			}
		}
	}
}

func isRawTextTag(z *html.Tokenizer) bool {
	name, _ := z.TagName()
	switch string(name) {
	case "script", "style":
		return true
	}
	return false
}
