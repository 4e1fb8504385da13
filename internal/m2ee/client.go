/*
 * Licensed to the Apache Software Foundation (ASF) under one or more
 * contributor license agreements.  See the NOTICE file distributed with
 * this work for additional information regarding copyright ownership.
 * The ASF licenses this file to You under the Apache License, Version 2.0
 * (the "License"); you may not use this file except in compliance with
 * the License.  You may obtain a copy of the License at
 *
 *    http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package m2ee is a client for the runtime's admin protocol.
// m2ee 包是运行时管理协议的客户端。
//
// Every call is a JSON POST of {"action", "params"} to the admin listener,
// authenticated with the base64 encoded admin password.
package m2ee

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"net/http"
	"time"
)

// Admin protocol actions.
const (
	ActionEcho                            = "echo"
	ActionAbout                           = "about"
	ActionRuntimeStatus                   = "runtime_status"
	ActionUpdateAppContainerConfiguration = "update_appcontainer_configuration"
	ActionUpdateConfiguration             = "update_configuration"
	ActionStart                           = "start"
	ActionGetDDLCommands                  = "get_ddl_commands"
	ActionExecuteDDLCommands              = "execute_ddl_commands"
	ActionShutdown                        = "shutdown"
	ActionRuntimeStatistics               = "runtime_statistics"
	ActionServerStatistics                = "server_statistics"
)

const authHeader = "X-M2EE-Authentication"

// Response is a decoded admin protocol reply.
// Response 是解码后的管理协议响应。
type Response struct {
	Result     int            `json:"result"`
	Feedback   map[string]any `json:"feedback"`
	Message    string         `json:"message"`
	Cause      string         `json:"cause"`
	Stacktrace string         `json:"stacktrace"`
}

// OK reports whether the reply carries the success result code.
func (r *Response) OK() bool {
	return r.Result == ResultSuccess
}

// Err returns an *ActionError for non-success replies.
func (r *Response) Err(action string) error {
	if r.OK() {
		return nil
	}
	return &ActionError{Action: action, Result: r.Result, Message: r.Message, Cause: r.Cause}
}

// About is the runtime identification returned by the about action.
// About 是 about 动作返回的运行时标识信息。
type About struct {
	Name         string
	Version      string
	Copyright    string
	Company      string
	Partner      string
	ModelVersion string
}

// Client talks to one runtime admin listener.
// Client 与一个运行时管理端口通信。
type Client struct {
	url        string
	auth       string
	httpClient *http.Client
}

// NewClient creates a client. Deadlines come from the caller's context.
// NewClient 创建客户端，超时由调用方的 context 控制。
func NewClient(url, password string) *Client {
	return &Client{
		url:  url,
		auth: base64.StdEncoding.EncodeToString([]byte(password)),
		httpClient: &http.Client{
			Transport: &http.Transport{
				DisableKeepAlives: true,
			},
		},
	}
}

// Request sends one action and decodes the reply.
// A reply with a non-success result code is returned without error;
// transport and decoding failures are returned as errors.
// Request 发送一个动作并解码响应。
func (c *Client) Request(ctx context.Context, action string, params map[string]any) (*Response, error) {
	if params == nil {
		params = map[string]any{}
	}
	body, err := json.Marshal(map[string]any{"action": action, "params": params})
	if err != nil {
		return nil, fmt.Errorf("m2ee: encode %s request: %w", action, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("m2ee: build %s request: %w", action, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(authHeader, c.auth)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUnreachable, action, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: read body: %v", ErrBadResponse, action, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s: http status %d", ErrBadResponse, action, resp.StatusCode)
	}

	var out Response
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrBadResponse, action, err)
	}
	if out.Feedback == nil {
		out.Feedback = map[string]any{}
	}
	return &out, nil
}

// call is Request plus result code checking.
func (c *Client) call(ctx context.Context, action string, params map[string]any) (*Response, error) {
	resp, err := c.Request(ctx, action, params)
	if err != nil {
		return nil, err
	}
	if err := resp.Err(action); err != nil {
		return resp, err
	}
	return resp, nil
}

// Echo is the lightweight liveness call.
func (c *Client) Echo(ctx context.Context) error {
	_, err := c.call(ctx, ActionEcho, map[string]any{"echo": "ping"})
	return err
}

// About returns the runtime identification.
func (c *Client) About(ctx context.Context) (*About, error) {
	resp, err := c.call(ctx, ActionAbout, nil)
	if err != nil {
		return nil, err
	}
	return &About{
		Name:         feedbackString(resp.Feedback, "name"),
		Version:      feedbackString(resp.Feedback, "version"),
		Copyright:    feedbackString(resp.Feedback, "copyright"),
		Company:      feedbackString(resp.Feedback, "company"),
		Partner:      feedbackString(resp.Feedback, "partner"),
		ModelVersion: feedbackString(resp.Feedback, "model_version"),
	}, nil
}

// RuntimeStatus returns the runtime's own status string, e.g. "running".
func (c *Client) RuntimeStatus(ctx context.Context) (string, error) {
	resp, err := c.call(ctx, ActionRuntimeStatus, nil)
	if err != nil {
		return "", err
	}
	return feedbackString(resp.Feedback, "status"), nil
}

// UpdateAppContainerConfiguration sets the runtime's HTTP listener parameters.
func (c *Client) UpdateAppContainerConfiguration(ctx context.Context, params map[string]any) error {
	_, err := c.call(ctx, ActionUpdateAppContainerConfiguration, params)
	return err
}

// UpdateConfiguration sends the runtime configuration document.
func (c *Client) UpdateConfiguration(ctx context.Context, doc map[string]any) error {
	_, err := c.call(ctx, ActionUpdateConfiguration, doc)
	return err
}

// Start activates the application. The raw reply is returned so the caller
// can branch on the result code.
func (c *Client) Start(ctx context.Context) (*Response, error) {
	return c.Request(ctx, ActionStart, map[string]any{})
}

// GetDDLCommands returns the verbose schema repair plan.
func (c *Client) GetDDLCommands(ctx context.Context) ([]string, error) {
	resp, err := c.call(ctx, ActionGetDDLCommands, map[string]any{"verbose": true})
	if err != nil {
		return nil, err
	}
	raw, ok := resp.Feedback["ddl_commands"].([]any)
	if !ok {
		return []string{}, nil
	}
	commands := make([]string, 0, len(raw))
	for _, cmd := range raw {
		if s, ok := cmd.(string); ok {
			commands = append(commands, s)
		}
	}
	return commands, nil
}

// ExecuteDDLCommands applies the pending schema repair plan.
func (c *Client) ExecuteDDLCommands(ctx context.Context) error {
	_, err := c.call(ctx, ActionExecuteDDLCommands, nil)
	return err
}

// Shutdown asks the runtime to exit gracefully within timeout.
func (c *Client) Shutdown(ctx context.Context, timeout time.Duration) error {
	_, err := c.call(ctx, ActionShutdown, map[string]any{"timeout": timeout.Milliseconds()})
	return err
}

// Statistics merges the feedback of runtime_statistics and server_statistics
// into one map, e.g. "requests", "memory", "sessions" and "threadpool".
// Statistics 合并 runtime_statistics 与 server_statistics 的返回内容。
func (c *Client) Statistics(ctx context.Context) (map[string]any, error) {
	stats := map[string]any{}
	for _, action := range []string{ActionRuntimeStatistics, ActionServerStatistics} {
		resp, err := c.call(ctx, action, nil)
		if err != nil {
			return nil, err
		}
		maps.Copy(stats, resp.Feedback)
	}
	return stats, nil
}

func feedbackString(feedback map[string]any, key string) string {
	v, ok := feedback[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
