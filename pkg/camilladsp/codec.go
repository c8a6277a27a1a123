// Copyright (c) 2025, WSO2 LLC. (https://www.wso2.com).
//
// WSO2 LLC. licenses this file to you under the Apache License,
// Version 2.0 (the "License"); you may not use this file except
// in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied. See the License for the
// specific language governing permissions and limitations
// under the License.

package camilladsp

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

const (
	resultOk    = "Ok"
	resultError = "Error"

	defaultErrorMessage = "Command returned an error"
	maxQuotedReply      = 256
)

type replyBody struct {
	Result string          `json:"result"`
	Value  json.RawMessage `json:"value,omitempty"`
}

// EncodeCommand serializes a command for the wire. Commands without an
// argument are sent as a bare JSON string, all others as a single-key object.
func EncodeCommand(name string, arg any) ([]byte, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty command name", ErrMalformedCommand)
	}
	if arg == nil {
		return json.Marshal(name)
	}
	return json.Marshal(map[string]any{name: arg})
}

// DecodeReply extracts the value of a reply to the named command. A nil value
// with a nil error means the command succeeded without returning anything.
func DecodeReply(name string, raw []byte) (json.RawMessage, error) {
	var reply map[string]replyBody
	if err := json.Unmarshal(raw, &reply); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidResponse, quoteReply(raw))
	}
	body, ok := reply[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInvalidResponse, quoteReply(raw))
	}

	hasValue := len(body.Value) > 0 && !bytes.Equal(body.Value, []byte("null"))
	switch body.Result {
	case resultError:
		msg := defaultErrorMessage
		if hasValue {
			msg = valueText(body.Value)
		}
		return nil, &CamillaError{Command: name, Message: msg}
	case resultOk:
		if !hasValue {
			return nil, nil
		}
		return body.Value, nil
	default:
		return nil, fmt.Errorf("%w: unknown result %q for %s", ErrInvalidResponse, body.Result, name)
	}
}

// ParseCommand splits a wire command into its name and raw argument.
func ParseCommand(raw []byte) (string, json.RawMessage, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", nil, fmt.Errorf("%w: empty message", ErrMalformedCommand)
	}

	if raw[0] == '"' {
		var name string
		if err := json.Unmarshal(raw, &name); err != nil || name == "" {
			return "", nil, fmt.Errorf("%w: %s", ErrMalformedCommand, quoteReply(raw))
		}
		return name, nil, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil || len(obj) != 1 {
		return "", nil, fmt.Errorf("%w: %s", ErrMalformedCommand, quoteReply(raw))
	}
	for name, arg := range obj {
		return name, arg, nil
	}
	return "", nil, ErrMalformedCommand
}

// EncodeReply builds the wire reply CamillaDSP would send for a command.
// A non-nil cmdErr produces an error result carrying its message.
func EncodeReply(name string, value any, cmdErr error) ([]byte, error) {
	body := map[string]any{"result": resultOk}
	if cmdErr != nil {
		body["result"] = resultError
		var ce *CamillaError
		if errors.As(cmdErr, &ce) {
			body["value"] = ce.Message
		} else {
			body["value"] = cmdErr.Error()
		}
	} else if value != nil {
		body["value"] = value
	}
	return json.Marshal(map[string]any{name: body})
}

func valueText(v json.RawMessage) string {
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s
	}
	return string(v)
}

func quoteReply(raw []byte) string {
	if len(raw) > maxQuotedReply {
		return fmt.Sprintf("%q...", raw[:maxQuotedReply])
	}
	return fmt.Sprintf("%q", raw)
}
