package culler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nikbrunner/bmtools/internal/model"
)

// Defaults for Options.
const (
	DefaultLimit     = 100
	DefaultBatchSize = 20
	DefaultTimeout   = 10 * time.Second

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Options configures Scan. Zero values take the defaults.
type Options struct {
	// Limit caps how many web bookmarks are considered, in pre-order.
	Limit int
	// BatchSize is the number of probes in flight at once.
	BatchSize int
	// Timeout applies to each request on its own.
	Timeout time.Duration
	// SkipDomains are treated like private hosts, subdomains included.
	SkipDomains []string
	Client      *http.Client
	Logger      *zap.Logger
}

// Result is one dead link.
type Result struct {
	ID     string
	Name   string
	URL    string
	Folder string
	// StatusCode is 0 when the request failed.
	StatusCode int
	Reason     string
}

// Report summarizes a scan.
type Report struct {
	// Checked counts the urls that were probed.
	Checked int
	// Skipped counts private and excluded hosts.
	Skipped int
	Dead    []Result
	Log     []string
}

// DeadURLs returns the distinct dead urls.
func (r *Report) DeadURLs() []string {
	urls := make([]string, 0, len(r.Dead))
	for _, d := range r.Dead {
		urls = append(urls, d.URL)
	}
	return urls
}

// NewClient returns the HTTP client used when Options.Client is nil.
func NewClient() *http.Client {
	return &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			// Follow redirects but limit to 10
			if len(via) >= 10 {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}
}

type candidate struct {
	entry model.Entry
	url   string
}

// Scan probes the http and https bookmarks of store. Probes run in
// sequential batches; a batch finishes before the next one starts. Every
// request has its own timeout, and a failing probe only marks its own url
// dead. Scan never modifies the store. It returns ctx.Err() when ctx is
// cancelled.
func Scan(ctx context.Context, store *model.Store, opts Options) (*Report, error) {
	opts = withDefaults(opts)
	log := opts.Logger

	var candidates []candidate
	for _, e := range store.Bookmarks() {
		if len(candidates) >= opts.Limit {
			break
		}
		if isWebURL(e.Node.URL) {
			candidates = append(candidates, candidate{entry: e, url: e.Node.URL})
		}
	}

	report := &Report{Dead: []Result{}, Log: []string{}}
	seen := make(map[string]bool)
	var probes []candidate
	for _, c := range candidates {
		if IsPrivateURL(c.url, opts.SkipDomains) {
			report.Skipped++
			continue
		}
		if seen[c.url] {
			continue
		}
		seen[c.url] = true
		probes = append(probes, c)
	}

	for start := 0; start < len(probes); start += opts.BatchSize {
		end := min(start+opts.BatchSize, len(probes))
		batch := probes[start:end]
		results := make([]probeResult, len(batch))

		var g errgroup.Group
		for i, c := range batch {
			g.Go(func() error {
				results[i] = probe(ctx, opts.Client, c.url, opts.Timeout)
				return nil
			})
		}
		_ = g.Wait()

		// A cancelled scan must not report its aborted probes as dead.
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		for i, res := range results {
			report.Checked++
			if res.alive() {
				continue
			}
			c := batch[i]
			reason := res.reason()
			report.Dead = append(report.Dead, Result{
				ID:         c.entry.Node.ID,
				Name:       c.entry.Node.Name,
				URL:        c.url,
				Folder:     c.entry.FolderPath(),
				StatusCode: res.status,
				Reason:     reason,
			})
			if res.status != 0 {
				report.Log = append(report.Log, fmt.Sprintf("[%d] %s", res.status, c.url))
			} else {
				report.Log = append(report.Log, fmt.Sprintf("[Error] %s (%s)", c.url, reason))
			}
		}

		log.Debug("link batch checked",
			zap.Int("from", start),
			zap.Int("to", end),
			zap.Int("total", len(probes)),
			zap.Int("dead", len(report.Dead)))
	}

	return report, nil
}

func withDefaults(opts Options) Options {
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Client == nil {
		opts.Client = NewClient()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return opts
}

func isWebURL(raw string) bool {
	lower := strings.ToLower(raw)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

type probeResult struct {
	status int
	err    error
}

func (r probeResult) alive() bool {
	return r.err == nil && r.status < 400
}

func (r probeResult) reason() string {
	if r.err != nil {
		return normalizeError(r.err.Error())
	}
	return fmt.Sprintf("%d %s", r.status, http.StatusText(r.status))
}

// probe sends HEAD, then GET when the server refuses HEAD with 403 or 405.
func probe(ctx context.Context, client *http.Client, rawURL string, timeout time.Duration) probeResult {
	status, err := request(ctx, client, http.MethodHead, rawURL, timeout)
	if err == nil && (status == http.StatusForbidden || status == http.StatusMethodNotAllowed) {
		status, err = request(ctx, client, http.MethodGet, rawURL, timeout)
	}
	return probeResult{status: status, err: err}
}

func request(ctx context.Context, client *http.Client, method, rawURL string, timeout time.Duration) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	return resp.StatusCode, nil
}

// localSuffixes are name suffixes that never resolve on the public internet.
var localSuffixes = []string{".local", ".localhost", ".internal", ".lan", ".home.arpa", ".intranet"}

// IsPrivateURL reports whether the url's host is private (see IsPrivateHost).
// Unparseable urls are not private; probing them fails and marks them dead.
func IsPrivateURL(rawURL string, skipDomains []string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return IsPrivateHost(parsed.Hostname(), skipDomains)
}

// IsPrivateHost reports whether host is loopback, private, link-local,
// a local-only name, or one of skipDomains or their subdomains.
func IsPrivateHost(host string, skipDomains []string) bool {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	if host == "" {
		return false
	}

	if addr, err := netip.ParseAddr(host); err == nil {
		addr = addr.Unmap()
		return addr.IsLoopback() || addr.IsPrivate() || addr.IsLinkLocalUnicast() || addr.IsUnspecified()
	}

	if host == "localhost" {
		return true
	}
	for _, suffix := range localSuffixes {
		if strings.HasSuffix(host, suffix) {
			return true
		}
	}

	for _, domain := range skipDomains {
		domain = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(domain)), ".")
		if domain == "" {
			continue
		}
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}

// normalizeError simplifies verbose error messages into readable categories.
func normalizeError(errStr string) string {
	lower := strings.ToLower(errStr)

	switch {
	case strings.Contains(lower, "no such host"):
		return "DNS failure"
	case strings.Contains(lower, "context deadline exceeded"),
		strings.Contains(lower, "timeout"):
		return "Timeout"
	case strings.Contains(lower, "connection refused"):
		return "Connection refused"
	case strings.Contains(lower, "certificate"):
		return "TLS/certificate error"
	case strings.Contains(lower, "network is unreachable"):
		return "Network unreachable"
	case strings.Contains(lower, "tls:"):
		return "TLS error"
	default:
		return errStr
	}
}
