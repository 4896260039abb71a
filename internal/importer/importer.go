package importer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/nerrad567/gray-logic-blueprints/internal/blueprint"
	"github.com/nerrad567/gray-logic-blueprints/internal/infrastructure/config"
)

// Fallbacks for unset config values.
const (
	defaultTimeout  = 15 * time.Second
	defaultMaxBytes = 1 << 20
)

// githubBlobPattern matches GitHub web UI file URLs, which serve the
// HTML viewer page rather than the file body.
var githubBlobPattern = regexp.MustCompile(`^https://github\.com/(.+)/blob/(.+)$`)

// Logger interface for optional logging support.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Imported is the outcome of one fetch: the constructed blueprint, the
// raw document exactly as served, and a path suggestion derived from
// the URL for callers that go on to save it.
type Imported struct {
	Blueprint *blueprint.Blueprint

	// Raw is the fetched document body, unmodified.
	Raw []byte

	// URL is the URL actually fetched, after blob normalization. The
	// blueprint's source_url metadata carries the URL as submitted.
	URL string

	// SuggestedPath is a registry-relative save path without the file
	// extension, derived from the URL. Empty when no sensible name
	// could be derived.
	SuggestedPath string
}

// Importer fetches blueprint documents over HTTP and constructs
// validated Blueprints from them. Transient failures (connection
// errors, 429, 5xx) are retried with exponential backoff up to the
// configured attempt bound; every other failure surfaces immediately.
//
// Fetching is side-effect free: saving an imported blueprint is the
// caller's decision, made through the domain registry.
type Importer struct {
	client   *retryablehttp.Client
	maxBytes int64
	domains  map[string]struct{}
	logger   Logger
}

// New builds an importer from config. domains lists the domains the
// service manages; fetched blueprints declaring any other domain are
// rejected so imports cannot smuggle in configuration no registry
// will ever serve.
func New(cfg config.ImporterConfig, domains []string) *Importer {
	client := retryablehttp.NewClient()
	client.RetryMax = cfg.MaxRetries
	client.RetryWaitMin = 1 * time.Second
	client.RetryWaitMax = 10 * time.Second
	client.Logger = nil

	timeout := cfg.RequestTimeout()
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	client.HTTPClient.Timeout = timeout

	maxBytes := cfg.MaxResponseBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}

	known := make(map[string]struct{}, len(domains))
	for _, d := range domains {
		known[d] = struct{}{}
	}

	return &Importer{
		client:   client,
		maxBytes: maxBytes,
		domains:  known,
	}
}

// SetLogger sets the logger. Call before the importer is shared.
func (i *Importer) SetLogger(logger Logger) {
	i.logger = logger
}

// Fetch retrieves the document at rawURL and constructs a Blueprint
// from it. GitHub blob URLs are rewritten to their raw-content form
// first so the fetch returns the file body instead of the viewer page.
// The blueprint's source_url metadata is stamped with rawURL as
// submitted, preserving the link the user can revisit.
//
// The document must parse as YAML, pass blueprint schema validation,
// and declare a domain this importer was configured with.
func (i *Importer) Fetch(ctx context.Context, rawURL string) (*Imported, error) {
	fetchURL, err := normalizeURL(rawURL)
	if err != nil {
		return nil, err
	}

	raw, err := i.get(ctx, fetchURL)
	if err != nil {
		return nil, err
	}

	doc, err := blueprint.ParseDocument(raw)
	if err != nil {
		return nil, &FetchError{URL: fetchURL, Err: err}
	}

	bp, err := blueprint.New(doc, "", "")
	if err != nil {
		return nil, err
	}

	if _, ok := i.domains[bp.Domain()]; !ok {
		return nil, fmt.Errorf("%w: %q", blueprint.ErrUnknownDomain, bp.Domain())
	}

	bp.UpdateSourceURL(rawURL)

	if i.logger != nil {
		i.logger.Debug("blueprint fetched",
			"url", fetchURL,
			"domain", bp.Domain(),
			"name", bp.Name(),
			"bytes", len(raw))
	}

	return &Imported{
		Blueprint:     bp,
		Raw:           raw,
		URL:           fetchURL,
		SuggestedPath: suggestPath(fetchURL),
	}, nil
}

// get performs the HTTP request and reads the body under the size cap.
func (i *Importer) get(ctx context.Context, fetchURL string) ([]byte, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, fetchURL, nil)
	if err != nil {
		return nil, &FetchError{URL: fetchURL, Err: err}
	}
	req.Header.Set("Accept", "application/yaml, text/yaml, text/plain, */*")

	resp, err := i.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: fetchURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{
			URL:        fetchURL,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %s", resp.Status),
		}
	}

	// Read one byte past the cap so an exactly-at-limit document is
	// distinguishable from an oversized one.
	body, err := io.ReadAll(io.LimitReader(resp.Body, i.maxBytes+1))
	if err != nil {
		return nil, &FetchError{URL: fetchURL, Err: err}
	}
	if int64(len(body)) > i.maxBytes {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrResponseTooLarge, fetchURL, i.maxBytes)
	}
	return body, nil
}

// normalizeURL validates the scheme and rewrites GitHub blob URLs,
// e.g. https://github.com/owner/repo/blob/main/motion.yaml becomes
// https://raw.githubusercontent.com/owner/repo/main/motion.yaml.
func normalizeURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnsupportedScheme, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}

	if m := githubBlobPattern.FindStringSubmatch(rawURL); m != nil {
		return fmt.Sprintf("https://raw.githubusercontent.com/%s/%s", m[1], m[2]), nil
	}
	return rawURL, nil
}

// suggestPath derives a save path from the fetch URL: the file stem,
// prefixed with the repository owner for GitHub content so blueprints
// from different authors do not collide.
func suggestPath(fetchURL string) string {
	u, err := url.Parse(fetchURL)
	if err != nil {
		return ""
	}

	stem := strings.TrimSuffix(path.Base(u.Path), blueprint.Extension)
	if stem == "" || stem == "." || stem == "/" {
		return ""
	}

	if u.Host == "raw.githubusercontent.com" {
		if segs := strings.Split(strings.Trim(u.Path, "/"), "/"); len(segs) >= 2 {
			return segs[0] + "/" + stem
		}
	}
	return stem
}
