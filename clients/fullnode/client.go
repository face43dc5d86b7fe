package fullnode

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/kamalbuilds/movetracer/utils"
)

const (
	defaultUserAgent = "movetracer"
	maxResponseBody  = 32 << 20
)

// Request describes one upstream call independently of the endpoint it is sent to.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
	Class  CallClass
}

// Client talks to the full nodes of one network, failing over from the primary
// endpoint to the fallbacks in order.
type Client struct {
	network   utils.NetworkDescriptor
	client    *http.Client
	timeouts  Timeouts
	log       utils.SimpleLogger
	listener  EventListener
	userAgent string
}

func NewClient(network utils.NetworkDescriptor) *Client {
	return &Client{
		network:   network,
		client:    http.DefaultClient,
		timeouts:  DefaultTimeouts(),
		log:       utils.NewNopZapLogger(),
		listener:  &SelectiveListener{},
		userAgent: defaultUserAgent,
	}
}

// NewTestClient returns a client whose only endpoints are the given test servers.
func NewTestClient(network utils.Network, endpoints ...string) *Client {
	d := utils.NetworkDescriptor{Network: network, Name: network.String()}
	if len(endpoints) > 0 {
		d.PrimaryEndpoint = endpoints[0]
		d.FallbackEndpoints = endpoints[1:]
	}
	return NewClient(d)
}

func (c *Client) WithLogger(log utils.SimpleLogger) *Client {
	c.log = log
	return c
}

func (c *Client) WithListener(l EventListener) *Client {
	c.listener = l
	return c
}

func (c *Client) WithHTTPClient(client *http.Client) *Client {
	c.client = client
	return c
}

func (c *Client) WithUserAgent(ua string) *Client {
	c.userAgent = ua
	return c
}

func (c *Client) WithTimeouts(t Timeouts) *Client {
	c.timeouts = t
	return c
}

func (c *Client) Network() utils.NetworkDescriptor {
	return c.network
}

func (c *Client) Timeouts() Timeouts {
	return c.timeouts
}

// Fetch sends req to the network's endpoints under the timeout of its call class.
func (c *Client) Fetch(ctx context.Context, req Request) (*Response, error) {
	var endpoints []string
	if c.network.PrimaryEndpoint != "" {
		endpoints = c.network.Endpoints()
	}
	return c.FetchWithFailover(ctx, endpoints, req, c.timeouts.For(req.Class))
}

// FetchWithFailover tries endpoints strictly in order, each attempt bounded by timeout,
// and returns the first terminal response. Cancelling ctx stops the walk.
func (c *Client) FetchWithFailover(ctx context.Context, endpoints []string, req Request, timeout time.Duration) (*Response, error) {
	body, err := encodeBody(req.Body)
	if err != nil {
		return nil, err
	}

	var last *TransientError
	for i, endpoint := range endpoints {
		if err = ctx.Err(); err != nil {
			return nil, err
		}

		outcome := c.attempt(ctx, c.listener, endpoint, req, body, timeout)
		if res, ok := outcome.Terminal(); ok {
			return res, nil
		}
		if err = ctx.Err(); err != nil {
			return nil, err
		}

		last = outcome.Err()
		c.listener.OnTransient(endpoint, req.Path, last)
		if i+1 < len(endpoints) {
			c.listener.OnFailover(endpoint, endpoints[i+1], req.Path)
		}
		c.log.Debugw("Full node attempt failed, trying next endpoint",
			"endpoint", endpoint,
			"path", req.Path,
			"remaining", len(endpoints)-i-1,
			"err", last,
		)
	}

	network := c.networkName()
	c.listener.OnExhausted(network, req.Path)
	c.log.Warnw("All full node endpoints failed", "network", network, "path", req.Path, "attempts", len(endpoints), "err", last)
	return nil, &AllEndpointsFailedError{Network: network, Path: req.Path, Attempts: len(endpoints), Last: last}
}

func (c *Client) attempt(ctx context.Context, listener EventListener, endpoint string, req Request, body []byte,
	timeout time.Duration,
) Outcome {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	httpReq, err := c.newHTTPRequest(attemptCtx, endpoint, req, body)
	if err != nil {
		return Classify(endpoint, nil, err)
	}

	start := time.Now()
	res, err := c.client.Do(httpReq)
	if err != nil {
		listener.OnAttempt(endpoint, req.Path, 0, time.Since(start))
		return Classify(endpoint, nil, err)
	}
	defer res.Body.Close()

	// The body read is bounded by the attempt timeout too.
	resBody, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBody))
	listener.OnAttempt(endpoint, req.Path, res.StatusCode, time.Since(start))
	if err != nil {
		return Classify(endpoint, nil, fmt.Errorf("read response: %w", err))
	}
	return Classify(endpoint, &Response{
		Endpoint:   endpoint,
		StatusCode: res.StatusCode,
		Header:     res.Header,
		Body:       resBody,
	}, nil)
}

func (c *Client) newHTTPRequest(ctx context.Context, endpoint string, req Request, body []byte) (*http.Request, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	target := endpoint + req.Path
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var reader io.Reader = http.NoBody
	if body != nil {
		reader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}
	return httpReq, nil
}

// do runs req and decodes a 2xx body into out. 4xx answers become UpstreamClientError.
func (c *Client) do(ctx context.Context, req Request, out any) error {
	res, err := c.Fetch(ctx, req)
	if err != nil {
		return err
	}
	if res.StatusCode >= http.StatusBadRequest {
		return decodeClientError(res)
	}
	if out == nil {
		return nil
	}
	if err = json.Unmarshal(res.Body, out); err != nil {
		return fmt.Errorf("decode %s response from %s: %w", req.Path, res.Endpoint, err)
	}
	return nil
}

func decodeClientError(res *Response) error {
	clientErr := &UpstreamClientError{StatusCode: res.StatusCode}
	if len(res.Body) > 0 {
		if err := json.Unmarshal(res.Body, clientErr); err != nil || clientErr.Message == "" {
			clientErr.Message = statusMessage(res)
		}
	}
	return clientErr
}

func encodeBody(body any) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	if raw, ok := body.(json.RawMessage); ok {
		return raw, nil
	}
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request body: %w", err)
	}
	return b, nil
}

func (c *Client) networkName() string {
	if c.network.Network == 0 {
		return c.network.Name
	}
	return c.network.Network.String()
}
