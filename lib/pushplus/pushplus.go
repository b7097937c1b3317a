// Package pushplus is a client for the pushplus push gateway
// (pushplus.plus), which relays a title/content pair to the user's
// WeChat. The gateway reports failure inside a JSON envelope with an
// HTTP 200, so the response body is the only source of truth.
package pushplus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"jwassist-backend/lib/telemetry"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("pushplus")

const DefaultGatewayUrl = "https://www.pushplus.plus/send"

var (
	ErrEmptyResponse     = errors.New("push gateway returned an empty response")
	ErrMalformedResponse = errors.New("push gateway returned a non-JSON response")
)

// GatewayError is a well-formed rejection from the gateway, code != 200.
type GatewayError struct {
	Code int
	Msg  string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("push gateway rejected message: code=%d msg=%q", e.Code, e.Msg)
}

type Client struct {
	Http *resty.Client

	gatewayUrl string
	token      string
}

type ClientOptions struct {
	// zero value means DefaultGatewayUrl
	GatewayUrl string
	Token      string
}

func NewClient(opts ClientOptions) *Client {
	gatewayUrl := opts.GatewayUrl
	if gatewayUrl == "" {
		gatewayUrl = DefaultGatewayUrl
	}

	client := resty.New()
	client.SetTimeout(time.Second * 10)
	telemetry.InstrumentResty(client, "pushplus/http")

	return &Client{
		Http:       client,
		gatewayUrl: gatewayUrl,
		token:      opts.Token,
	}
}

type sendRequest struct {
	Token    string `json:"token"`
	Title    string `json:"title"`
	Content  string `json:"content"`
	Template string `json:"template"`
}

type sendResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// Send posts one html-template message through the gateway. It never
// retries; transient gateway failures are the caller's policy to
// handle. The token is part of the request body only and must never
// appear in errors or telemetry.
func (c *Client) Send(ctx context.Context, title, content string) error {
	ctx, span := tracer.Start(ctx, "client:Send")
	defer span.End()
	span.SetAttributes(attribute.String("title", title))

	res, err := c.Http.R().
		SetContext(ctx).
		SetBody(sendRequest{
			Token:    c.token,
			Title:    title,
			Content:  content,
			Template: "html",
		}).
		Post(c.gatewayUrl)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "push request failed")
		return fmt.Errorf("push request: %w", err)
	}

	body := res.Body()
	if len(body) == 0 {
		span.SetStatus(codes.Error, ErrEmptyResponse.Error())
		return ErrEmptyResponse
	}

	var parsed sendResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		span.SetStatus(codes.Error, ErrMalformedResponse.Error())
		return fmt.Errorf("%w: %s", ErrMalformedResponse, err)
	}
	if parsed.Code != 200 {
		gatewayErr := &GatewayError{Code: parsed.Code, Msg: parsed.Msg}
		span.SetStatus(codes.Error, gatewayErr.Error())
		return gatewayErr
	}
	return nil
}
