package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"lol-tracker/internal/config"
	"lol-tracker/internal/constants"

	"github.com/valyala/fasthttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type RiotClient struct {
	apiKey      string
	regionalURL string
	platformURL string
	client      *fasthttp.Client
	tracer      trace.Tracer
	rateLimitMu sync.RWMutex
	rateLimit   RateLimitInfo
}

// RateLimitInfo mirrors the last rate limit headers Riot sent back. Limits are
// kept in the raw "count:seconds,count:seconds" form.
type RateLimitInfo struct {
	AppLimit    string `json:"app_limit"`
	AppCount    string `json:"app_count"`
	MethodLimit string `json:"method_limit"`
	MethodCount string `json:"method_count"`

	// seconds, only set on 429
	RetryAfter int `json:"retry_after"`

	UpdatedAt time.Time `json:"updated_at"`
}

func NewRiotClient(cfg *config.Config) *RiotClient {
	return newRiotClient(cfg, &fasthttp.Client{
		MaxConnsPerHost:     100,
		ReadTimeout:         10 * time.Second,
		WriteTimeout:        10 * time.Second,
		MaxIdleConnDuration: 1 * time.Minute,
	})
}

func newRiotClient(cfg *config.Config, hc *fasthttp.Client) *RiotClient {
	return &RiotClient{
		apiKey:      cfg.RiotAPIKey,
		regionalURL: strings.TrimRight(cfg.RiotRegionalURL, "/"),
		platformURL: strings.TrimRight(cfg.RiotPlatformURL, "/"),
		client:      hc,
		tracer:      otel.Tracer("lol-tracker/api"),
		rateLimit:   RateLimitInfo{UpdatedAt: time.Now()},
	}
}

func (c *RiotClient) GetRateLimitInfo() RateLimitInfo {
	c.rateLimitMu.RLock()
	defer c.rateLimitMu.RUnlock()
	return c.rateLimit
}

func (c *RiotClient) updateRateLimit(resp *fasthttp.Response) {
	c.rateLimitMu.Lock()
	defer c.rateLimitMu.Unlock()

	if v := string(resp.Header.Peek("X-App-Rate-Limit")); v != "" {
		c.rateLimit.AppLimit = v
	}
	if v := string(resp.Header.Peek("X-App-Rate-Limit-Count")); v != "" {
		c.rateLimit.AppCount = v
	}
	if v := string(resp.Header.Peek("X-Method-Rate-Limit")); v != "" {
		c.rateLimit.MethodLimit = v
	}
	if v := string(resp.Header.Peek("X-Method-Rate-Limit-Count")); v != "" {
		c.rateLimit.MethodCount = v
	}
	c.rateLimit.RetryAfter = 0
	if resp.StatusCode() == fasthttp.StatusTooManyRequests {
		c.rateLimit.RetryAfter = retryAfterSeconds(resp)
	}
	c.rateLimit.UpdatedAt = time.Now()
}

func (c *RiotClient) GetAccountByRiotID(ctx context.Context, gameName, tagLine string) (*AccountDto, error) {
	u := fmt.Sprintf("%s/riot/account/v1/accounts/by-riot-id/%s/%s", c.regionalURL, url.PathEscape(gameName), url.PathEscape(tagLine))
	return doRequest[AccountDto](ctx, c, "account.by-riot-id", u)
}

func (c *RiotClient) GetSummonerByPUUID(ctx context.Context, puuid string) (*SummonerDto, error) {
	u := fmt.Sprintf("%s/lol/summoner/v4/summoners/by-puuid/%s", c.platformURL, url.PathEscape(puuid))
	return doRequest[SummonerDto](ctx, c, "summoner.by-puuid", u)
}

// GetMatchIDs returns at most count match ids, most recent first.
func (c *RiotClient) GetMatchIDs(ctx context.Context, puuid string, count int) ([]string, error) {
	u := fmt.Sprintf("%s/lol/match/v5/matches/by-puuid/%s/ids?start=0&count=%d", c.regionalURL, url.PathEscape(puuid), count)
	ids, err := doRequest[[]string](ctx, c, "match.ids", u)
	if err != nil {
		return nil, err
	}
	return *ids, nil
}

func (c *RiotClient) GetMatch(ctx context.Context, matchID string) (*MatchDto, error) {
	u := fmt.Sprintf("%s/lol/match/v5/matches/%s", c.regionalURL, url.PathEscape(matchID))
	return doRequest[MatchDto](ctx, c, "match.detail", u)
}

func (c *RiotClient) GetLeagueEntries(ctx context.Context, puuid string) ([]LeagueEntryDto, error) {
	u := fmt.Sprintf("%s/lol/league/v4/entries/by-puuid/%s", c.platformURL, url.PathEscape(puuid))
	entries, err := doRequest[[]LeagueEntryDto](ctx, c, "league.entries", u)
	if err != nil {
		return nil, err
	}
	return *entries, nil
}

func doRequest[T any](ctx context.Context, client *RiotClient, op, uri string) (*T, error) {
	ctx, span := client.tracer.Start(ctx, "riot."+op, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	release := func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}

	req.SetRequestURI(uri)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("X-Riot-Token", client.apiKey)
	req.Header.Set("Accept", "application/json")

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(constants.ExternalAPITimeout)
	}

	// fasthttp has no context support; the call is raced against ctx so a
	// cancelled caller returns at once. The request objects are released by
	// whichever side finishes last.
	done := make(chan error, 1)
	go func() {
		done <- client.client.DoDeadline(req, resp, deadline)
	}()

	var err error
	select {
	case <-ctx.Done():
		go func() {
			<-done
			release()
		}()
		span.SetStatus(codes.Error, "cancelled")
		return nil, ctx.Err()
	case err = <-done:
	}
	defer release()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("riot %s request failed: %w", op, err)
	}

	client.updateRateLimit(resp)
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode()))

	if resp.StatusCode() != fasthttp.StatusOK {
		statusErr := &StatusError{
			Op:         op,
			StatusCode: resp.StatusCode(),
			RetryAfter: time.Duration(retryAfterSeconds(resp)) * time.Second,
		}
		span.SetStatus(codes.Error, statusErr.Error())
		return nil, statusErr
	}

	var result T
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "decode")
		return nil, fmt.Errorf("failed to decode riot %s response: %w", op, err)
	}
	return &result, nil
}

func retryAfterSeconds(resp *fasthttp.Response) int {
	v := string(resp.Header.Peek("Retry-After"))
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
