package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"aether-backend/internal/models"
)

const (
	maxPageBytes      = 5 << 20
	maxExtractedRunes = 200_000
	maxRedirects      = 5
)

var errBlockedAddress = errors.New("address is not publicly routable")

// VideoSource supplies captions and titles for video links.
type VideoSource interface {
	Transcript(ctx context.Context, videoID string) (string, error)
	Title(ctx context.Context, videoID string) (string, error)
}

// URLFetchService reads a web page or YouTube video into plain text. Only
// public addresses are fetched, including after redirects.
type URLFetchService struct {
	httpClient *http.Client
	videos     VideoSource
	allowIP    func(net.IP) bool
}

func NewURLFetchService(videos VideoSource) *URLFetchService {
	s := &URLFetchService{videos: videos, allowIP: publicIP}

	// Checked on the resolved address of every connection, so hostnames
	// and redirects cannot reach internal networks either.
	dialer := &net.Dialer{Timeout: 10 * time.Second, Control: s.dialControl}
	s.httpClient = &http.Client{
		Timeout: 20 * time.Second,
		Transport: &http.Transport{
			DialContext:           dialer.DialContext,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: 15 * time.Second,
		},
		CheckRedirect: s.checkRedirect,
	}
	return s
}

func publicIP(ip net.IP) bool {
	return !(ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() ||
		ip.IsInterfaceLocalMulticast() || ip.IsMulticast())
}

func (s *URLFetchService) dialControl(network, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	ip := net.ParseIP(host)
	if ip == nil || !s.allowIP(ip) {
		return fmt.Errorf("%w: %s", errBlockedAddress, host)
	}
	return nil
}

// checkHost rejects literal IPs and localhost names before any request.
func (s *URLFetchService) checkHost(u *url.URL) error {
	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return fmt.Errorf("%w: %s", errBlockedAddress, host)
	}
	if ip := net.ParseIP(host); ip != nil && !s.allowIP(ip) {
		return fmt.Errorf("%w: %s", errBlockedAddress, host)
	}
	return nil
}

func (s *URLFetchService) checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return fmt.Errorf("stopped after %d redirects", maxRedirects)
	}
	if req.URL.Scheme != "http" && req.URL.Scheme != "https" {
		return fmt.Errorf("%w: redirect to %s", errBlockedAddress, req.URL.Scheme)
	}
	return s.checkHost(req.URL)
}

func blockedURLError() error {
	return &ValidationError{Fields: map[string]string{"url": "URL must point to a public address"}}
}

// Fetch validates rawURL and returns its readable content.
func (s *URLFetchService) Fetch(ctx context.Context, rawURL string) (*models.ExtractedContent, error) {
	u, err := parseFetchURL(rawURL)
	if err != nil {
		return nil, err
	}
	if err := s.checkHost(u); err != nil {
		return nil, blockedURLError()
	}

	if videoID, ok := YouTubeVideoID(u); ok && s.videos != nil {
		return s.fetchVideo(ctx, videoID)
	}
	return s.fetchPage(ctx, u)
}

func parseFetchURL(rawURL string) (*url.URL, error) {
	invalid := &ValidationError{Fields: map[string]string{"url": "Must be an absolute http or https URL"}}

	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, &ValidationError{Fields: map[string]string{"url": "URL is required"}}
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return nil, invalid
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, invalid
	}
	return u, nil
}

func (s *URLFetchService) fetchVideo(ctx context.Context, videoID string) (*models.ExtractedContent, error) {
	transcript, err := s.videos.Transcript(ctx, videoID)
	if err != nil {
		return nil, &UpstreamError{Message: "Could not load a transcript for this video", Err: err}
	}

	title, err := s.videos.Title(ctx, videoID)
	if err != nil {
		title = ""
	}

	return &models.ExtractedContent{
		Content: truncateRunes(transcript, maxExtractedRunes),
		Title:   title,
		Source:  "youtube",
	}, nil
}

func (s *URLFetchService) fetchPage(ctx context.Context, u *url.URL) (*models.ExtractedContent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, &ValidationError{Fields: map[string]string{"url": "Invalid URL"}}
	}
	req.Header.Set("User-Agent", "AetherBot/1.0 (+study assistant)")
	req.Header.Set("Accept", "text/html,text/plain;q=0.9")

	resp, err := s.httpClient.Do(req)
	if errors.Is(err, errBlockedAddress) {
		return nil, blockedURLError()
	}
	if err != nil {
		return nil, &UpstreamError{Message: "Could not reach the page", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &UpstreamError{Message: fmt.Sprintf("Page returned HTTP %d", resp.StatusCode)}
	}

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	body := io.LimitReader(resp.Body, maxPageBytes)

	var content, title string
	switch mediaType {
	case "text/html", "application/xhtml+xml", "":
		title, content, err = htmlToText(body)
		if err != nil {
			return nil, &UpstreamError{Message: "Could not parse the page", Err: err}
		}
	case "text/plain", "text/markdown":
		b, err := io.ReadAll(body)
		if err != nil {
			return nil, &UpstreamError{Message: "Could not read the page", Err: err}
		}
		content = normalizeExtractedText(string(b))
	default:
		return nil, &UnsupportedMediaError{Message: fmt.Sprintf("Unsupported content type %q", mediaType)}
	}

	if content == "" {
		return nil, &ValidationError{Fields: map[string]string{"url": "No readable text found at this URL"}}
	}

	return &models.ExtractedContent{
		Content: truncateRunes(content, maxExtractedRunes),
		Title:   title,
		Source:  "web",
	}, nil
}

// skippedElements never contribute visible text.
var skippedElements = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Template: true,
	atom.Svg:      true,
	atom.Iframe:   true,
	atom.Head:     true,
	atom.Nav:      true,
	atom.Footer:   true,
}

// blockElements end the current line.
var blockElements = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Br: true, atom.Li: true, atom.Tr: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Section: true, atom.Article: true, atom.Blockquote: true, atom.Pre: true,
}

// htmlToText returns the document title and its visible text.
func htmlToText(r io.Reader) (string, string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", "", err
	}

	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && skippedElements[n.DataAtom] {
			return
		}
		if n.Type == html.TextNode {
			if text := strings.Join(strings.Fields(n.Data), " "); text != "" {
				b.WriteString(text)
				b.WriteString(" ")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && blockElements[n.DataAtom] {
			b.WriteString("\n")
		}
	}
	walk(doc)

	return findTitle(doc), normalizeExtractedText(b.String()), nil
}

func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.DataAtom == atom.Title {
		if n.FirstChild != nil {
			return strings.TrimSpace(n.FirstChild.Data)
		}
		return ""
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findTitle(c); t != "" {
			return t
		}
	}
	return ""
}

func truncateRunes(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
