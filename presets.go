package synapse

import (
	"context"
	"fmt"
	"net/http"
	"unicode/utf8"

	"github.com/kleinwizard/synapse-ai-complete/eventlog"
)

// Endpoints used by the presets.
const (
	EndpointLogin    = "/auth/login"
	EndpointRegister = "/auth/register"
	EndpointOptimize = "/optimize"
	EndpointExecute  = "/execute"
)

// AuthUser is the user record returned by the auth endpoints.
type AuthUser struct {
	ID        any    `json:"id"`
	Email     string `json:"email"`
	Username  string `json:"username"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	IsActive  bool   `json:"is_active"`
}

// UserID renders the user id as a string, empty when absent.
func (u AuthUser) UserID() string {
	if u.ID == nil {
		return ""
	}
	return fmt.Sprint(u.ID)
}

// AuthResult is the decoded token response of login and register.
type AuthResult struct {
	AccessToken string   `json:"access_token"`
	TokenType   string   `json:"token_type"`
	User        AuthUser `json:"user"`

	Response *Response `json:"-"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Login authenticates with email and password under AuthPolicy. On success
// the returned user id becomes the logger's current user.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	c.logger.Info("Login attempt", eventlog.EventAuth, eventlog.Fields{"operation": "login", "email": email})

	result, err := c.authCall(ctx, EndpointLogin, loginRequest{Email: email, Password: password})
	if err != nil {
		return nil, err
	}

	if id := result.User.UserID(); id != "" {
		c.logger.SetUserID(id)
	}
	return result, nil
}

// Register creates an account under AuthPolicy.
func (c *Client) Register(ctx context.Context, email, password, name string) (*AuthResult, error) {
	c.logger.Info("Registration attempt", eventlog.EventAuth, eventlog.Fields{"operation": "register", "email": email, "name": name})

	return c.authCall(ctx, EndpointRegister, registerRequest{Email: email, Username: name, Password: password})
}

func (c *Client) authCall(ctx context.Context, endpoint string, body any) (*AuthResult, error) {
	if err := c.validatePayload(endpoint, body); err != nil {
		return nil, err
	}

	resp, err := c.Request(ctx, endpoint, WithMethod(http.MethodPost), WithBody(body), WithPolicy(AuthPolicy()))
	if err != nil {
		return nil, err
	}

	result := &AuthResult{Response: resp}
	if err := resp.Decode(result); err != nil {
		return nil, &ClientError{
			Type:       ErrorTypeEncoding,
			Message:    "unexpected auth response",
			Cause:      err,
			RequestID:  resp.RequestID,
			Method:     http.MethodPost,
			Endpoint:   endpoint,
			StatusCode: resp.Status,
			Body:       resp.Data,
			Attempt:    resp.Attempts,
		}
	}
	return result, nil
}

// OptimizeRequest asks the backend to build an optimized prompt.
type OptimizeRequest struct {
	Prompt            string         `json:"prompt" validate:"required"`
	Role              string         `json:"role,omitempty"`
	Tone              string         `json:"tone,omitempty"`
	TaskDescription   string         `json:"task_description,omitempty"`
	DomainKnowledge   string         `json:"domain_knowledge,omitempty"`
	DeliverableFormat string         `json:"deliverable_format,omitempty"`
	AvailableTools    []string       `json:"available_tools,omitempty"`
	Constraints       []string       `json:"constraints,omitempty"`
	WordLimit         int            `json:"word_limit,omitempty" validate:"gte=0"`
	Parameters        map[string]any `json:"parameters,omitempty"`
}

// ExecuteRequest runs a prompt against the routed model.
type ExecuteRequest struct {
	TaskID     string         `json:"task_id" validate:"required"`
	Action     string         `json:"action" validate:"required"`
	Prompt     string         `json:"prompt" validate:"required"`
	PowerLevel string         `json:"power_level" validate:"required"`
	TaskType   string         `json:"task_type,omitempty"`
	Payload    map[string]any `json:"payload,omitempty"`
}

// Optimize calls the prompt optimizer under GenerationPolicy.
func (c *Client) Optimize(ctx context.Context, req OptimizeRequest) (*Response, error) {
	c.logger.Info("Optimization requested", eventlog.EventGenerationRequest, eventlog.Fields{
		"operation":    "optimize",
		"promptLength": utf8.RuneCountInString(req.Prompt),
		"role":         req.Role,
	})

	if err := c.validatePayload(EndpointOptimize, req); err != nil {
		return nil, err
	}
	return c.Request(ctx, EndpointOptimize, WithMethod(http.MethodPost), WithBody(req), WithPolicy(GenerationPolicy()))
}

// Execute runs a prompt under GenerationPolicy.
func (c *Client) Execute(ctx context.Context, req ExecuteRequest) (*Response, error) {
	c.logger.Info("Execution requested", eventlog.EventGenerationRequest, eventlog.Fields{
		"operation":    "execute",
		"promptLength": utf8.RuneCountInString(req.Prompt),
		"taskType":     req.TaskType,
		"powerLevel":   req.PowerLevel,
	})

	if err := c.validatePayload(EndpointExecute, req); err != nil {
		return nil, err
	}
	return c.Request(ctx, EndpointExecute, WithMethod(http.MethodPost), WithBody(req), WithPolicy(GenerationPolicy()))
}

// validatePayload rejects malformed preset payloads before any attempt and
// logs the rejection.
func (c *Client) validatePayload(endpoint string, payload any) error {
	if err := policyValidator.Struct(payload); err != nil {
		clientErr := &ClientError{
			Type:     ErrorTypeValidation,
			Message:  "invalid request payload",
			Cause:    err,
			Method:   http.MethodPost,
			Endpoint: endpoint,
		}
		c.logger.Error(fmt.Sprintf("API call rejected: POST %s", endpoint), eventlog.EventAPICallError, eventlog.Fields{
			"endpoint":  endpoint,
			"errorType": ErrorTypeValidation,
			"error":     err.Error(),
		})
		c.metrics.RecordError(ErrorTypeValidation, http.MethodPost, endpoint)
		return clientErr
	}
	return nil
}
