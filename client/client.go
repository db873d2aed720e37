// Package client implements the outbound half of the command exchange: sign
// a request envelope, deliver it to the counterparty's registered endpoint,
// and verify the signed response. Transport failures are surfaced, never
// retried here; callers wanting retries wrap the call.
package client

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
	"github.com/google/uuid"

	"github.com/vaspnet/go-offchain/core"
	"github.com/vaspnet/go-offchain/jws"
)

const (
	HeaderRequestID            = "X-Request-ID"
	HeaderRequestSenderAddress = "X-Request-Sender-Address"

	CommandPath = "/v2/command"

	DefaultConnectTimeout = 2 * time.Second
	DefaultRequestTimeout = 30 * time.Second

	maxResponseBytes = 1 << 20 // 1 MiB
)

// TextCodeTransportFault tags HTTP-level failures outside the protocol's
// 200/400 contract.
const TextCodeTransportFault = "OFFCHAIN_TRANSPORT_FAULT"

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Resolver resolves a counterparty account id to its delivery endpoint and
// verification key.
type Resolver interface {
	Resolve(ctx context.Context, accountID string) (string, ed25519.PublicKey, error)
}

// CommandResponseError carries a verified failure response from the
// counterparty.
type CommandResponseError struct {
	Response core.CommandResponseObject
}

func (e *CommandResponseError) Error() string {
	if e == nil {
		return "client: command response failure"
	}
	if e.Response.Error != nil {
		return fmt.Sprintf("client: command failed: %s %s (field %q)",
			e.Response.Error.Code, e.Response.Error.Message, e.Response.Error.Field)
	}
	return "client: command failed without structured error"
}

type Config struct {
	Resolver       Resolver
	HTTPClient     HTTPDoer
	ConnectTimeout time.Duration
	RequestTimeout time.Duration
	Logger         glog.Logger
}

type Client struct {
	resolver   Resolver
	httpClient HTTPDoer
	logger     glog.Logger
}

func New(cfg Config) (*Client, error) {
	if cfg.Resolver == nil {
		return nil, fmt.Errorf("client: resolver is required")
	}
	connectTimeout := cfg.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = DefaultConnectTimeout
	}
	requestTimeout := cfg.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = DefaultRequestTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: requestTimeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{Timeout: connectTimeout}).DialContext,
			},
		}
	}
	_, logger := glog.Resolve("offchain.client", nil, cfg.Logger)
	return &Client{
		resolver:   cfg.Resolver,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// SendCommand signs the command's request envelope and delivers it to the
// counterparty, returning the verified success response.
func (c *Client) SendCommand(ctx context.Context, cmd core.Command, sign jws.SignFn) (core.CommandResponseObject, error) {
	if c == nil {
		return core.CommandResponseObject{}, fmt.Errorf("client: client is nil")
	}
	if cmd == nil {
		return core.CommandResponseObject{}, fmt.Errorf("client: command is required")
	}
	request, err := cmd.NewRequest()
	if err != nil {
		return core.CommandResponseObject{}, err
	}
	body, err := jws.Serialize(request, sign)
	if err != nil {
		return core.CommandResponseObject{}, err
	}
	return c.SendRequest(ctx, cmd.MyAddress(), cmd.CounterpartyAddress(), body)
}

// SendRequest posts signed envelope bytes to the counterparty's command
// endpoint and verifies the response with the counterparty's key. Any HTTP
// status outside {200, 400} is a transport fault.
func (c *Client) SendRequest(ctx context.Context, senderAddress string, counterpartyID string, body []byte) (core.CommandResponseObject, error) {
	if c == nil || c.httpClient == nil {
		return core.CommandResponseObject{}, fmt.Errorf("client: client is not configured")
	}
	baseURL, publicKey, err := c.resolver.Resolve(ctx, counterpartyID)
	if err != nil {
		return core.CommandResponseObject{}, err
	}

	endpoint := strings.TrimRight(baseURL, "/") + CommandPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(string(body)))
	if err != nil {
		return core.CommandResponseObject{}, fmt.Errorf("client: build request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set(HeaderRequestID, requestID)
	req.Header.Set(HeaderRequestSenderAddress, senderAddress)
	req.Header.Set("Content-Type", "text/plain")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return core.CommandResponseObject{}, transportFault(err,
			fmt.Sprintf("client: post %s failed", endpoint), 0)
	}
	defer res.Body.Close()

	responseBody, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return core.CommandResponseObject{}, transportFault(err, "client: read response body", res.StatusCode)
	}
	if res.StatusCode != http.StatusOK && res.StatusCode != http.StatusBadRequest {
		return core.CommandResponseObject{}, transportFault(nil,
			fmt.Sprintf("client: unexpected response status %d from %s", res.StatusCode, endpoint),
			res.StatusCode)
	}

	var response core.CommandResponseObject
	if err := jws.Deserialize(responseBody, &response, jws.Ed25519Verifier(publicKey)); err != nil {
		return core.CommandResponseObject{}, err
	}
	if response.Status == core.CommandResponseStatusFailure {
		c.logger.Error("command rejected by counterparty",
			"request_id", requestID,
			"counterparty", counterpartyID,
			"cid", response.CID,
		)
		return core.CommandResponseObject{}, &CommandResponseError{Response: response}
	}
	c.logger.Debug("command accepted by counterparty",
		"request_id", requestID,
		"counterparty", counterpartyID,
		"cid", response.CID,
	)
	return response, nil
}

func transportFault(source error, message string, statusCode int) error {
	var err *goerrors.Error
	if source != nil {
		err = goerrors.Wrap(source, goerrors.CategoryExternal, message)
	} else {
		err = goerrors.New(message, goerrors.CategoryExternal)
	}
	err = err.WithTextCode(TextCodeTransportFault)
	if statusCode > 0 {
		err = err.WithCode(statusCode)
	} else {
		err = err.WithCode(http.StatusBadGateway)
	}
	return err
}
