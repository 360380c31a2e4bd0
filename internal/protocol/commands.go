package protocol

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// Command is an outbound intent. UserAnswer travels over the duplex
// channel; the rest are request/response calls.
type Command interface {
	command()
}

// Approve approves a pending record, executing it with Overrides in place
// of the named arguments the agent proposed.
type Approve struct {
	ID        string
	Overrides map[string]any
}

type Deny struct {
	ID string
}

// BatchApprove approves several records at once. A batch with no ids takes
// the current selection when dispatched.
type BatchApprove struct {
	IDs []string
}

type BatchDeny struct {
	IDs []string
}

func (Approve) command()      {}
func (Deny) command()         {}
func (BatchApprove) command() {}
func (BatchDeny) command()    {}
func (UserAnswer) command()   {}

// Request describes how a command maps onto the HTTP API.
type Request struct {
	Method string
	Path   string
	Body   []byte
}

// EncodeRequest maps a request/response command onto its endpoint.
func EncodeRequest(cmd Command) (Request, error) {
	switch c := cmd.(type) {
	case Approve:
		mods := c.Overrides
		if mods == nil {
			mods = map[string]any{}
		}
		return jsonRequest("/api/approve/"+url.PathEscape(c.ID), ApproveBody{Modifications: mods})
	case Deny:
		return Request{Method: http.MethodPost, Path: "/api/deny/" + url.PathEscape(c.ID)}, nil
	case BatchApprove:
		return jsonRequest("/api/approve-batch", BatchBody{IDs: nonNil(c.IDs)})
	case BatchDeny:
		return jsonRequest("/api/deny-batch", BatchBody{IDs: nonNil(c.IDs)})
	}
	return Request{}, fmt.Errorf("%T is not a request/response command", cmd)
}

// Name is a short verb for logs and status lines.
func Name(cmd Command) string {
	switch cmd.(type) {
	case Approve:
		return "approve"
	case Deny:
		return "deny"
	case BatchApprove:
		return "approve-batch"
	case BatchDeny:
		return "deny-batch"
	case UserAnswer:
		return "answer"
	}
	return "unknown"
}

func jsonRequest(path string, body any) (Request, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return Request{}, fmt.Errorf("encode %s: %w", path, err)
	}
	return Request{Method: http.MethodPost, Path: path, Body: data}, nil
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
