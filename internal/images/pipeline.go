package images

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"HRMSLite/internal/metrics"

	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
)

// Pipeline serves resized copies of allow-listed remote images.
//
//	GET /_image?url=<absolute url>&w=<max width>&q=<jpeg quality>
type Pipeline struct {
	allow  *Allowlist
	client *http.Client
	cache  *cache.Cache
	ttl    time.Duration
	log    *logrus.Entry
}

func NewPipeline(allow *Allowlist, fetchTimeout, ttl time.Duration, log *logrus.Entry) *Pipeline {
	if fetchTimeout <= 0 {
		fetchTimeout = 10 * time.Second
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	client := &http.Client{
		Timeout: fetchTimeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 3 {
				return errors.New("too many redirects")
			}
			if !allow.Allowed(req.URL) {
				return ErrHostNotAllowed
			}
			return nil
		},
	}
	return &Pipeline{
		allow:  allow,
		client: client,
		cache:  cache.New(ttl, 2*ttl),
		ttl:    ttl,
		log:    log,
	}
}

func (p *Pipeline) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	src, err := p.allow.Check(q.Get("url"))
	if err != nil {
		metrics.RecordImage("forbidden")
		http.Error(w, "image host not allowed", http.StatusForbidden)
		return
	}

	width, err := intParam(q.Get("w"), DefaultWidth, 1, MaxWidth)
	if err != nil {
		metrics.RecordImage("bad_request")
		http.Error(w, "invalid width", http.StatusBadRequest)
		return
	}
	quality, err := intParam(q.Get("q"), DefaultQuality, 1, 100)
	if err != nil {
		metrics.RecordImage("bad_request")
		http.Error(w, "invalid quality", http.StatusBadRequest)
		return
	}

	key := fmt.Sprintf("%s|%d|%d", src.String(), width, quality)
	var res *Result
	if v, ok := p.cache.Get(key); ok {
		res = v.(*Result)
		metrics.RecordImage("cache_hit")
	} else {
		data, err := p.fetch(r.Context(), src.String())
		if err != nil {
			metrics.RecordImage("fetch_error")
			p.log.WithError(err).WithField("url", src.String()).Warn("image fetch failed")
			http.Error(w, "failed to fetch image", http.StatusBadGateway)
			return
		}
		res, err = Optimize(data, width, quality)
		if err != nil {
			if errors.Is(err, ErrImageTooLarge) {
				metrics.RecordImage("too_large")
			} else {
				metrics.RecordImage("decode_error")
			}
			p.log.WithError(err).WithField("url", src.String()).Warn("image processing failed")
			http.Error(w, "unsupported image", http.StatusUnprocessableEntity)
			return
		}
		p.cache.SetDefault(key, res)
		metrics.RecordImage("processed")
	}

	w.Header().Set("ETag", res.ETag)
	w.Header().Set("Cache-Control", "public, max-age="+strconv.Itoa(int(p.ttl.Seconds())))
	if match := r.Header.Get("If-None-Match"); match != "" && match == res.ETag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", res.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(res.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Data)
}

func (p *Pipeline) fetch(ctx context.Context, src string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "image/*")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("upstream status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "image/") {
		return nil, fmt.Errorf("upstream content type %q", ct)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxSourceBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxSourceBytes {
		return nil, fmt.Errorf("image exceeds %d bytes", maxSourceBytes)
	}
	return data, nil
}

func intParam(raw string, def, lo, hi int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < lo || n > hi {
		return 0, fmt.Errorf("out of range: %q", raw)
	}
	return n, nil
}
